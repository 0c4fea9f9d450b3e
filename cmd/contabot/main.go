package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/contabot/contabot/engine/chat"
	"github.com/contabot/contabot/engine/extract"
	"github.com/contabot/contabot/engine/infra/server"
	"github.com/contabot/contabot/engine/knowledge/chunk"
	"github.com/contabot/contabot/engine/knowledge/embedder"
	"github.com/contabot/contabot/engine/knowledge/ingest"
	"github.com/contabot/contabot/engine/knowledge/retriever"
	"github.com/contabot/contabot/engine/knowledge/vectordb"
	"github.com/contabot/contabot/engine/session"
	"github.com/contabot/contabot/engine/webhook"
	"github.com/contabot/contabot/pkg/config"
	"github.com/contabot/contabot/pkg/logger"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "contabot",
		Short: "Accounting assistant with document-grounded chat",
	}
	root.AddCommand(serveCmd())
	return root
}

func serveCmd() *cobra.Command {
	var envFile string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if envFile != "" {
				_ = godotenv.Load(envFile)
			} else {
				_ = godotenv.Load()
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", "", "path to an env file loaded before configuration")
	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	log := logger.NewLogger(&logger.Config{
		Level:     logger.LogLevel(cfg.Log.Level),
		JSON:      cfg.Log.JSON,
		AddSource: cfg.Log.Source,
	})
	logger.Init(&logger.Config{Level: logger.LogLevel(cfg.Log.Level), JSON: cfg.Log.JSON})
	ctx = logger.ContextWithLogger(ctx, log)

	store, err := buildStore(ctx, cfg, log)
	if err != nil {
		return err
	}

	emb, err := embedder.New(ctx, &embedder.Config{
		Provider:  embedder.Provider(cfg.Embedder.Provider),
		Model:     cfg.Embedder.Model,
		APIKey:    cfg.Embedder.APIKey,
		Dimension: cfg.Embedder.Dimension,
		BatchSize: cfg.Embedder.BatchSize,
	})
	if err != nil {
		return fmt.Errorf("build embedder: %w", err)
	}
	if cfg.Embedder.CacheSize > 0 {
		if err := emb.EnableCache(cfg.Embedder.CacheSize); err != nil {
			return err
		}
	}

	extractor := extract.NewService()
	chunker, err := chunk.NewProcessor(chunk.Settings{
		Size:              cfg.Chunking.Size,
		Overlap:           cfg.Chunking.Overlap,
		Deduplicate:       true,
		NormalizeNewlines: true,
	})
	if err != nil {
		return err
	}
	pipeline, err := ingest.NewPipeline(extractor, chunker, emb, store, cfg.Embedder.BatchSize)
	if err != nil {
		return err
	}
	retr, err := retriever.NewService(emb, retriever.Config{
		TopK:           cfg.Retrieval.TopK,
		Threshold:      cfg.Retrieval.SimilarityThreshold,
		MinWords:       cfg.Retrieval.MinWords,
		LongQueryWords: cfg.Retrieval.LongQueryWords,
	})
	if err != nil {
		return err
	}

	chatSvc, err := buildChat(ctx, cfg, retr, log)
	if err != nil {
		return err
	}

	srv, err := server.New(&server.Deps{
		Config:    cfg,
		Log:       log,
		Store:     store,
		Extractor: extractor,
		Chunker:   chunker,
		Embedder:  emb,
		Pipeline:  pipeline,
		Chat:      chatSvc,
		Sessions:  session.NewStore(),
		Webhooks: webhook.NewTrigger(webhook.Config{
			GastosURL:       cfg.Webhooks.GastosURL,
			IngresosURL:     cfg.Webhooks.IngresosURL,
			ContabilidadURL: cfg.Webhooks.ContabilidadURL,
			Timeout:         cfg.Webhooks.Timeout,
		}),
	})
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}

func buildStore(ctx context.Context, cfg *config.Config, log logger.Logger) (vectordb.Store, error) {
	if cfg.Database.DSN == "" {
		log.Warn("no database configured, using in-memory vector store")
		return vectordb.NewMemoryStore(cfg.Embedder.Dimension), nil
	}
	store, err := vectordb.NewPGStore(ctx, &vectordb.Config{
		DSN:         cfg.Database.DSN,
		Table:       cfg.Database.Table,
		Dimension:   cfg.Embedder.Dimension,
		EnsureIndex: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect vector store: %w", err)
	}
	return store, nil
}

// buildChat returns nil when no generation key is configured; chat
// endpoints then answer 503 while ingestion and query stay available.
func buildChat(ctx context.Context, cfg *config.Config, retr *retriever.Service, log logger.Logger) (*chat.Service, error) {
	if cfg.Chat.APIKey == "" {
		log.Warn("no chat api key configured, chat endpoints disabled")
		return nil, nil
	}
	gen, err := chat.NewGenerator(ctx, chat.GeneratorConfig{
		Provider: cfg.Chat.Provider,
		Model:    cfg.Chat.Model,
		APIKey:   cfg.Chat.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("build generator: %w", err)
	}
	return chat.NewService(gen, retr, chat.Budget{
		Temperature:   cfg.Chat.Temperature,
		Precision:     cfg.Chat.PrecisionTemperature,
		DefaultTokens: cfg.Chat.MaxTokensDefault,
		ExtractTokens: cfg.Chat.MaxTokensExtraction,
		GuideTokens:   cfg.Chat.MaxTokensGuidance,
	})
}
