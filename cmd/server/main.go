package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"net/http"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"doctorai/internal/config"
	"doctorai/internal/core"
	"doctorai/internal/db"
	httpserver "doctorai/internal/http"
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

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	// The consult log is optional; without DATABASE_URL the server runs
	// stateless and only the analyze/health endpoints are live.
	var repo *db.Repository
	var notifier *db.Notifier
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
		repo = db.NewRepository(dbConn)
		notifier = db.NewNotifier(dbConn, cfg.DatabaseURL, cfg.NotifyChannel)
	}

	pipeline := core.NewPipeline(
		llm.NewOpenAIClient(cfg.OpenAIAPIKey),
		cfg.Model, cfg.VerifierModel, cfg.DefaultAgent, cfg.ReasoningEffort,
		logger,
	)
	srv := httpserver.NewServer(pipeline, repo, notifier, logger)

	logger.Info("listening",
		zap.String("addr", cfg.ListenAddr),
		zap.String("model", cfg.Model),
		zap.String("verifier_model", cfg.VerifierModel),
		zap.Bool("consult_log", repo != nil),
	)
	if err := http.ListenAndServe(cfg.ListenAddr, srv); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if lvl, err := zapcore.ParseLevel(level); err == nil {
		zcfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	return zcfg.Build()
}
