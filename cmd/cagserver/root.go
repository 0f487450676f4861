package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/swstevens/agentic-cag-system/pkg/log"
)

var rootCmd = &cobra.Command{
	Use:   "cagserver",
	Short: "cagserver - MTG card-catalog and deck-construction engine",
	Long: `cagserver serves a chat-driven deck construction and
modification API over a local card catalog, vector index, and deck
store, delegating strategy to an LLM behind a structured-output
contract.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"cagserver version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file (optional; env vars always override)")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}
