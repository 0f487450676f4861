package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/swstevens/agentic-cag-system/pkg/api"
	"github.com/swstevens/agentic-cag-system/pkg/cache"
	"github.com/swstevens/agentic-cag-system/pkg/catalog"
	"github.com/swstevens/agentic-cag-system/pkg/config"
	"github.com/swstevens/agentic-cag-system/pkg/deckstore"
	"github.com/swstevens/agentic-cag-system/pkg/llm"
	"github.com/swstevens/agentic-cag-system/pkg/log"
	"github.com/swstevens/agentic-cag-system/pkg/metrics"
	"github.com/swstevens/agentic-cag-system/pkg/orchestrator"
	"github.com/swstevens/agentic-cag-system/pkg/repository"
	"github.com/swstevens/agentic-cag-system/pkg/vectorindex"
)

// countFunc adapts a closure to metrics.SizeCounter, for stores whose
// Count method takes arguments the collector doesn't need to vary.
type countFunc func() (int, error)

func (f countFunc) Count() (int, error) { return f() }

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the deck construction API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := rootCmd.PersistentFlags().GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := cfg.RequireLLMKey(); err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("listen-addr"); addr != "" {
			cfg.ListenAddr = addr
		}

		logger := log.WithComponent("cagserver")
		metrics.SetVersion(Version)

		catStore, err := catalog.Open(catalog.DefaultConfig(cfg.CatalogDSN))
		if err != nil {
			metrics.RegisterComponent("catalog", false, err.Error())
			return fmt.Errorf("failed to open catalog: %w", err)
		}
		defer catStore.Close()
		metrics.RegisterComponent("catalog", true, "open")

		embedder := vectorindex.NewHTTPEmbedder(vectorindex.HTTPEmbedderConfig{
			BaseURL: cfg.EmbedBaseURL,
			APIKey:  cfg.LLMAPIKey,
			Model:   cfg.EmbedModel,
		})
		vecIndex, err := vectorindex.Open(cfg.VectorStorePath, embedder)
		if err != nil {
			metrics.RegisterComponent("vectorindex", false, err.Error())
			return fmt.Errorf("failed to open vector index: %w", err)
		}
		defer vecIndex.Close()
		metrics.RegisterComponent("vectorindex", true, "open")

		deckStore, err := deckstore.Open(cfg.DeckStorePath)
		if err != nil {
			metrics.RegisterComponent("deckstore", false, err.Error())
			return fmt.Errorf("failed to open deck store: %w", err)
		}
		defer deckStore.Close()
		metrics.RegisterComponent("deckstore", true, "open")

		hotCache := cache.New(cache.Config{Kind: cache.KindTiered})
		repo := repository.New(hotCache, catStore, vecIndex)

		llmClient := llm.Decorate(llm.NewHTTPClient(llm.HTTPConfig{
			BaseURL: cfg.LLMBaseURL,
			APIKey:  cfg.LLMAPIKey,
			Model:   cfg.LLMModel,
			Timeout: cfg.RequestTimeout,
		}))
		metrics.RegisterComponent("llm", true, "configured")

		orch := orchestrator.New(repo, llmClient)
		server := api.NewServer(orch, deckStore)

		collector := metrics.NewCollector(hotCache,
			countFunc(func() (int, error) { return catStore.Count(context.Background(), catalog.Filters{}) }),
			countFunc(func() (int, error) { return deckStore.Count(deckstore.Filters{}) }),
			vecIndex,
		)
		collector.Start()
		defer collector.Stop()

		errCh := make(chan error, 1)
		go func() {
			logger.Info().Str("addr", cfg.ListenAddr).Msg("starting API server")
			if err := server.Start(cfg.ListenAddr); err != nil {
				errCh <- fmt.Errorf("API server error: %w", err)
			}
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case <-sigCh:
			logger.Info().Msg("received shutdown signal")
		case err := <-errCh:
			return err
		}

		logger.Info().Msg("shutdown complete")
		return nil
	},
}

func init() {
	serveCmd.Flags().String("listen-addr", "", "Override the listen address from config/env")
}
