package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"doctorai/internal/bot"
	"doctorai/internal/config"
	"doctorai/internal/core"
	"doctorai/internal/db"
	"doctorai/internal/llm"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	if cfg.TelegramToken == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN is required")
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	// Chat history lives in Postgres when configured, in memory otherwise.
	var store bot.Store = bot.NewMemoryStore(cfg.DefaultAgent)
	if cfg.DatabaseURL != "" {
		dbConn, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("failed to open database", zap.Error(err))
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := dbConn.PingContext(ctx); err != nil {
			logger.Fatal("failed to ping database", zap.Error(err))
		}
		cancel()
		if err := db.Migrate(context.Background(), dbConn); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
		store = bot.NewDBStore(db.NewRepository(dbConn), cfg.DefaultAgent)
	}

	pipeline := core.NewPipeline(
		llm.NewOpenAIClient(cfg.OpenAIAPIKey),
		cfg.Model, cfg.VerifierModel, cfg.DefaultAgent, cfg.ReasoningEffort,
		logger,
	)

	b, err := bot.New(cfg.TelegramToken, pipeline, store, cfg.DefaultAgent, logger)
	if err != nil {
		logger.Fatal("failed to start bot", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	b.Run(ctx)
	logger.Info("bot stopped")
}

func newLogger(level string) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if lvl, err := zapcore.ParseLevel(level); err == nil {
		zcfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	return zcfg.Build()
}
