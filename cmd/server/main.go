package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"choco-chat/internal/config"
	"choco-chat/internal/database"
	"choco-chat/internal/logger"
	"choco-chat/internal/server"
	"choco-chat/internal/service"

	"github.com/joho/godotenv"
)

func main() {
	configFile := flag.String("config", "", "config file path (e.g. etc/config-dev.yaml)")
	flag.Parse()

	godotenv.Load()

	cfg := config.Load(*configFile)
	logger.Init(cfg.Log)

	db, err := cfg.OpenGormDB()
	if err != nil {
		slog.Error("db connect failed", "err", err)
		os.Exit(1)
	}

	if err := database.AutoMigrate(db); err != nil {
		slog.Error("db migrate failed", "err", err)
		os.Exit(1)
	}

	if cfg.AI.GeminiAPIKey == "" {
		slog.Warn("GEMINI_API_KEY is not set")
	}
	if cfg.AI.OpenAIAPIKey == "" {
		slog.Warn("OPENAI_API_KEY is not set")
	}
	providers := service.NewProviders(context.Background(), cfg.AI)

	r := server.New(cfg, db, providers)

	slog.Info("server starting", "addr", cfg.Addr())
	if err := r.Run(cfg.Addr()); err != nil {
		slog.Error("server failed", "err", err)
	}
}
