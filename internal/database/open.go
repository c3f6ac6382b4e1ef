package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JonMunkholm/csvingest/internal/config"
	"github.com/JonMunkholm/csvingest/internal/core"
)

// Open returns the repository selected by cfg.Driver.
func Open(ctx context.Context, cfg config.DatabaseConfig) (core.Repository, error) {
	switch strings.ToLower(cfg.Driver) {
	case config.DriverPostgres:
		pg, err := OpenPostgres(ctx, cfg)
		if err != nil {
			return nil, err
		}
		slog.Info("connected to database", "driver", config.DriverPostgres, "name", DatabaseName(cfg.URL))
		return pg, nil

	case config.DriverSQLite:
		lite, err := OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		slog.Info("connected to database", "driver", config.DriverSQLite, "path", cfg.SQLitePath)
		return lite, nil

	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}
