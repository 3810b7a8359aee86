package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	shopsync "github.com/latranshop/shopsync"
	"github.com/spf13/cobra"
)

var (
	addFlags    productFlags
	updateFlags productFlags
)

// productFlags collects the writable product fields for add/update.
type productFlags struct {
	name          string
	sku           string
	category      string
	originalPrice float64
	salePrice     float64
	stock         int
	weight        float64
	dimL          float64
	dimW          float64
	dimH          float64
	image         string
}

func (f *productFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "product name")
	cmd.Flags().StringVar(&f.sku, "sku", "", "stock keeping unit")
	cmd.Flags().StringVar(&f.category, "category", "", "category name")
	cmd.Flags().Float64Var(&f.originalPrice, "original-price", 0, "original price")
	cmd.Flags().Float64Var(&f.salePrice, "sale-price", 0, "sale price")
	cmd.Flags().IntVar(&f.stock, "stock", 0, "stock count")
	cmd.Flags().Float64Var(&f.weight, "weight", 0, "weight in grams")
	cmd.Flags().Float64Var(&f.dimL, "length", 0, "length in cm")
	cmd.Flags().Float64Var(&f.dimW, "width", 0, "width in cm")
	cmd.Flags().Float64Var(&f.dimH, "height", 0, "height in cm")
	cmd.Flags().StringVar(&f.image, "image", "", "path to an image file")
}

func init() {
	rootCmd.AddCommand(productsCmd)
	productsCmd.AddCommand(productsListCmd)
	productsCmd.AddCommand(productsGetCmd)
	productsCmd.AddCommand(productsSearchCmd)
	productsCmd.AddCommand(productsAddCmd)
	productsCmd.AddCommand(productsUpdateCmd)
	productsCmd.AddCommand(productsDeleteCmd)

	addFlags.register(productsAddCmd)
	updateFlags.register(productsUpdateCmd)
}

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "Manage products",
}

var productsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all products",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := opContext()
		defer cancel()

		store, err := newStore(ctx)
		if err != nil {
			return err
		}
		products, err := store.GetProducts(ctx)
		if err != nil {
			return err
		}
		printProducts(products)
		if store.IsOffline() {
			fmt.Println("\n(offline: showing the local mirror)")
		}
		return nil
	},
}

var productsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := opContext()
		defer cancel()

		store, err := newStore(ctx)
		if err != nil {
			return err
		}
		p, err := store.GetProduct(ctx, args[0])
		if err != nil {
			if shopsync.IsNotFound(err) {
				return fmt.Errorf("no product with id %s", args[0])
			}
			return err
		}
		printProduct(p)
		return nil
	},
}

var productsSearchCmd = &cobra.Command{
	Use:   "search <term>",
	Short: "Search products by name, SKU or category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := opContext()
		defer cancel()

		store, err := newStore(ctx)
		if err != nil {
			return err
		}
		products, err := store.SearchProducts(ctx, args[0])
		if err != nil {
			return err
		}
		printProducts(products)
		return nil
	},
}

var productsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a product",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := opContext()
		defer cancel()

		store, err := newStore(ctx)
		if err != nil {
			return err
		}

		p := shopsync.Product{
			Name:          addFlags.name,
			SKU:           addFlags.sku,
			Category:      addFlags.category,
			OriginalPrice: addFlags.originalPrice,
			SalePrice:     addFlags.salePrice,
			Stock:         addFlags.stock,
			Weight:        addFlags.weight,
			Dimensions:    shopsync.Dimensions{L: addFlags.dimL, W: addFlags.dimW, H: addFlags.dimH},
		}
		if addFlags.image != "" {
			ref, err := uploadImage(ctx, store, addFlags.image)
			if err != nil {
				return err
			}
			p.Image = ref
		}

		created, err := store.AddProduct(ctx, p)
		if err != nil {
			return err
		}
		fmt.Printf("Created product %s\n", created.ID)
		if !created.Synced {
			fmt.Println("(saved locally; run 'shopsync sync' once the backend is reachable)")
		}
		return nil
	},
}

var productsUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update a product (only the flags you pass change)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := opContext()
		defer cancel()

		store, err := newStore(ctx)
		if err != nil {
			return err
		}

		patch := &shopsync.ProductPatch{}
		flags := cmd.Flags()
		if flags.Changed("name") {
			patch.Name = &updateFlags.name
		}
		if flags.Changed("sku") {
			patch.SKU = &updateFlags.sku
		}
		if flags.Changed("category") {
			patch.Category = &updateFlags.category
		}
		if flags.Changed("original-price") {
			patch.OriginalPrice = &updateFlags.originalPrice
		}
		if flags.Changed("sale-price") {
			patch.SalePrice = &updateFlags.salePrice
		}
		if flags.Changed("stock") {
			patch.Stock = &updateFlags.stock
		}
		if flags.Changed("weight") {
			patch.Weight = &updateFlags.weight
		}
		if flags.Changed("length") || flags.Changed("width") || flags.Changed("height") {
			patch.Dimensions = &shopsync.Dimensions{
				L: updateFlags.dimL, W: updateFlags.dimW, H: updateFlags.dimH,
			}
		}
		if flags.Changed("image") {
			ref, err := uploadImage(ctx, store, updateFlags.image)
			if err != nil {
				return err
			}
			patch.Image = &ref
		}
		if patch.IsZero() {
			return fmt.Errorf("nothing to update: pass at least one field flag")
		}

		updated, err := store.UpdateProduct(ctx, args[0], patch)
		if err != nil {
			if shopsync.IsNotFound(err) {
				return fmt.Errorf("no product with id %s", args[0])
			}
			return err
		}
		fmt.Printf("Updated product %s\n", updated.ID)
		return nil
	},
}

var productsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := opContext()
		defer cancel()

		store, err := newStore(ctx)
		if err != nil {
			return err
		}
		if err := store.DeleteProduct(ctx, args[0]); err != nil {
			if shopsync.IsNotFound(err) {
				return fmt.Errorf("no product with id %s", args[0])
			}
			return err
		}
		fmt.Println("Deleted.")
		return nil
	},
}

// uploadImage reads a local file and stores it behind an opaque reference:
// the backend URL when online, an inline data URL when not.
func uploadImage(ctx context.Context, store *shopsync.Store, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("cannot read image: %w", err)
	}
	return store.UploadImage(ctx, data, filepath.Base(path))
}
