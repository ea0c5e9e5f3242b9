package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"

	"github.com/claude/gymbro/internal/app"
	"github.com/claude/gymbro/internal/config"
	"github.com/claude/gymbro/internal/mcp"
	"github.com/claude/gymbro/internal/storage"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file (local mode)")
	remote := flag.String("remote", "", "base URL of a GymBro server; reads data over its REST API instead of the database")
	flag.Parse()

	// stdout carries the MCP protocol, so logs go to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file loaded", "error", err)
	}

	var ds mcp.DataSource
	var chat mcp.Chat

	if *remote != "" {
		ds = mcp.NewHTTPClient(*remote)
		log.Info("GymBro MCP starting", "version", Version, "mode", "remote", "url", *remote)
	} else {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Error("failed to load config", "error", err)
			os.Exit(1)
		}

		ctx := context.Background()
		db, err := storage.New(ctx, cfg.Database.DSN())
		if err != nil {
			log.Error("failed to connect database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		intake, err := app.NewIntake(ctx, cfg, db, log)
		if err != nil {
			log.Error("failed to build intake", "error", err)
			os.Exit(1)
		}
		defer intake.Close()

		ds = db
		chat = intake.Bot
		log.Info("GymBro MCP starting", "version", Version, "mode", "local")
	}

	s := mcp.New(ds, chat, Version, log)
	if err := server.ServeStdio(s); err != nil {
		log.Error("mcp server error", "error", err)
		os.Exit(1)
	}
}
