/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/lewtec/veredito/internal/catalog"
	"github.com/lewtec/veredito/internal/config"
	"github.com/lewtec/veredito/internal/domain"
	"github.com/lewtec/veredito/internal/server"
	"github.com/lewtec/veredito/internal/store"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "veredito [config.yaml]",
	Short: "Annotate VLM anomaly-detection outputs",
	Long: strings.TrimSpace(`
Serve a per-annotator annotation workflow over a catalog of image and
VLM-output pairs. Progress is buffered in memory and written durably
only on the final commit, so sessions can be resumed safely.
    `),
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configFile := "config.yaml"
		if len(args) == 1 {
			configFile = args[0]
		}

		cfg, err := config.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Addr = addr
		}

		annStore, closeStore, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		loader := catalog.NewLoader(osfs.New(filepath.Dir(cfg.Catalog)), filepath.Base(cfg.Catalog))
		samples, err := loader.LoadAll(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to load catalog: %w", err)
		}

		log.Printf("Configuration: %s", configFile)
		log.Printf("Catalog: %s (%d samples)", cfg.Catalog, len(samples))
		log.Printf("Store backend: %s", cfg.Store.Backend)
		log.Printf("Starting server on: %s", cfg.Addr)

		srv := server.New(cfg, annStore, catalog.Static(samples), samples)
		return http.ListenAndServe(cfg.Addr, srv.Handler())
	},
}

// openStore builds the annotation store the config selects. The second
// return value releases the store's resources.
func openStore(cfg *config.Config) (domain.AnnotationStore, func() error, error) {
	switch cfg.Store.Backend {
	case config.BackendJSON:
		if err := os.MkdirAll(cfg.Store.Dir, 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create annotations directory: %w", err)
		}
		return store.NewJSONStore(osfs.New(cfg.Store.Dir)), func() error { return nil }, nil
	case config.BackendSQLite:
		db, err := store.OpenSQLite(cfg.Store.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		s, err := store.NewSQLiteStore(db)
		if err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to prepare database: %w", err)
		}
		return s, db.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend '%s'", cfg.Store.Backend)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}

func init() {
	rootCmd.Flags().StringP("addr", "a", "", "Address to bind the webserver (overrides the config)")
}
