// Package app assembles the intake pipeline shared by the HTTP server and the
// MCP binary.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/claude/gymbro/internal/bot"
	"github.com/claude/gymbro/internal/config"
	"github.com/claude/gymbro/internal/dialogue"
	"github.com/claude/gymbro/internal/oracle"
	"github.com/claude/gymbro/internal/storage"
)

const draftNamespace = "gymbro:draft"

// Intake is the wired bot plus the resources it holds open.
type Intake struct {
	Bot      *bot.Bot
	Dialogue *dialogue.Manager
	redis    redis.UniversalClient
}

// Close releases the session store connection, if any.
func (i *Intake) Close() error {
	if i.redis == nil {
		return nil
	}
	return i.redis.Close()
}

// NewIntake builds oracle, session store, catalog cache, dialogue manager and
// bot from cfg.
func NewIntake(ctx context.Context, cfg *config.Config, db *storage.DB, log *slog.Logger) (*Intake, error) {
	orc, err := oracle.New(ctx, oracle.Config{
		Provider:           cfg.Oracle.Provider,
		APIKey:             cfg.Oracle.APIKey,
		BaseURL:            cfg.Oracle.BaseURL,
		Model:              cfg.Oracle.Model,
		TranscriptionModel: cfg.Oracle.TranscriptionModel,
		Timeout:            cfg.Oracle.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("creating oracle: %w", err)
	}

	in := &Intake{}
	var store dialogue.Store
	switch cfg.Session.Store {
	case "redis":
		in.redis = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{cfg.Session.RedisAddr},
			Password: cfg.Session.RedisPassword,
			DB:       cfg.Session.RedisDB,
		})
		if err := in.redis.Ping(ctx).Err(); err != nil {
			_ = in.redis.Close()
			return nil, fmt.Errorf("connecting redis: %w", err)
		}
		store = dialogue.NewRedisStore(in.redis, draftNamespace, cfg.Session.TTL)
	default:
		store = dialogue.NewMemoryStore()
	}

	catalog := dialogue.NewCachedCatalog(db.Catalog(), cfg.Catalog.CacheTTL)
	in.Dialogue = dialogue.NewManager(orc, catalog, db, log.With("component", "dialogue"),
		dialogue.WithStore(store),
		dialogue.WithTranscriber(orc),
	)
	in.Bot = bot.New(db, in.Dialogue, cfg.App.DashboardURL, log.With("component", "bot"))

	log.Info("intake ready",
		"oracle", cfg.Oracle.Provider,
		"session_store", cfg.Session.Store,
		"catalog_ttl", cfg.Catalog.CacheTTL.String(),
	)
	return in, nil
}
