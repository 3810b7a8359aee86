package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	shopsync "github.com/latranshop/shopsync"
	"go.uber.org/zap"
)

// opTimeout bounds a whole CLI operation, probe included.
const opTimeout = 15 * time.Second

func opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), opTimeout)
}

// newLogger returns a development logger when --verbose is set, a no-op
// logger otherwise.
func newLogger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	log, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

// newClient builds a gateway client from config and environment.
func newClient() (*shopsync.Client, *Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	baseURL := cfg.Default.BaseURL
	if env := os.Getenv("SHOPSYNC_BASE_URL"); env != "" {
		baseURL = env
	}

	var opts []shopsync.ClientOption
	if baseURL != "" {
		opts = append(opts, shopsync.WithBaseURL(baseURL))
	}
	if cfg.Auth.Token != "" {
		opts = append(opts, shopsync.WithToken(cfg.Auth.Token))
	}
	return shopsync.NewClient(opts...), cfg, nil
}

// newStore builds an initialized Store over the configured backend and the
// local mirror directory.
func newStore(ctx context.Context) (*shopsync.Store, error) {
	client, cfg, err := newClient()
	if err != nil {
		return nil, err
	}

	mirrorDir := cfg.Default.MirrorDir
	if mirrorDir == "" {
		dir, err := configDir()
		if err != nil {
			return nil, err
		}
		mirrorDir = filepath.Join(dir, "mirror")
	}
	mirror, err := shopsync.NewFileMirror(mirrorDir)
	if err != nil {
		return nil, err
	}

	store := shopsync.NewStore(client, mirror, shopsync.WithLogger(newLogger()))
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	return store, nil
}

func printProducts(products []shopsync.Product) {
	if len(products) == 0 {
		fmt.Println("No products.")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSKU\tCATEGORY\tPRICE\tSTOCK\tSYNCED")
	for _, p := range products {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.0f\t%d\t%v\n",
			p.ID, p.Name, p.SKU, p.Category, p.SalePrice, p.Stock, p.Synced)
	}
	w.Flush()
}

func printProduct(p *shopsync.Product) {
	fmt.Printf("ID:             %s\n", p.ID)
	fmt.Printf("Name:           %s\n", p.Name)
	fmt.Printf("SKU:            %s\n", p.SKU)
	fmt.Printf("Category:       %s\n", p.Category)
	fmt.Printf("Original price: %.2f\n", p.OriginalPrice)
	fmt.Printf("Sale price:     %.2f\n", p.SalePrice)
	fmt.Printf("Stock:          %d\n", p.Stock)
	fmt.Printf("Weight:         %.2f\n", p.Weight)
	fmt.Printf("Dimensions:     %.1f x %.1f x %.1f\n", p.Dimensions.L, p.Dimensions.W, p.Dimensions.H)
	fmt.Printf("Created:        %s\n", p.CreatedAt.Format(time.RFC3339))
	fmt.Printf("Updated:        %s\n", p.UpdatedAt.Format(time.RFC3339))
	fmt.Printf("Synced:         %v\n", p.Synced)
}

func maskToken(token string) string {
	if len(token) <= 8 {
		return "********"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
