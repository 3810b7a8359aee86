package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	shopsync "github.com/latranshop/shopsync"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(categoriesCmd)
	categoriesCmd.AddCommand(categoriesListCmd)
	categoriesCmd.AddCommand(categoriesAddCmd)
	categoriesCmd.AddCommand(categoriesDeleteCmd)
}

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "Manage categories",
}

var categoriesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all categories",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := opContext()
		defer cancel()

		store, err := newStore(ctx)
		if err != nil {
			return err
		}
		categories, err := store.GetCategories(ctx)
		if err != nil {
			return err
		}
		if len(categories) == 0 {
			fmt.Println("No categories.")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tSYNCED")
		for _, c := range categories {
			fmt.Fprintf(w, "%s\t%v\n", c.Name, c.Synced)
		}
		w.Flush()
		return nil
	},
}

var categoriesAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := opContext()
		defer cancel()

		store, err := newStore(ctx)
		if err != nil {
			return err
		}
		created, err := store.AddCategory(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Created category %q\n", created.Name)
		return nil
	},
}

var categoriesDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := opContext()
		defer cancel()

		store, err := newStore(ctx)
		if err != nil {
			return err
		}
		if err := store.DeleteCategory(ctx, args[0]); err != nil {
			if shopsync.IsNotFound(err) {
				return fmt.Errorf("no category named %q", args[0])
			}
			return err
		}
		fmt.Println("Deleted.")
		return nil
	},
}
