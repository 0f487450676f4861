package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/swstevens/agentic-cag-system/pkg/catalog"
	"github.com/swstevens/agentic-cag-system/pkg/config"
)

// migrateCmd applies pending catalog migrations without starting the
// server. catalog.Open already applies migrations as a side effect of
// opening the store (cfg.AutoMigrate defaults to true), so this
// subcommand is just that open/close pair run standalone.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending catalog schema migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := rootCmd.PersistentFlags().GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		store, err := catalog.Open(catalog.DefaultConfig(cfg.CatalogDSN))
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		defer store.Close()

		fmt.Printf("catalog migrations applied at %s\n", cfg.CatalogDSN)
		return nil
	},
}
