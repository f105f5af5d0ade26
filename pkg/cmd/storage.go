// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/probeflow/probeflow/pkg/storage"
	"github.com/probeflow/probeflow/pkg/storage/file"
	"github.com/probeflow/probeflow/pkg/storage/memory"
	"github.com/probeflow/probeflow/pkg/storage/postgresql"
	"github.com/probeflow/probeflow/pkg/storage/redis"
	"github.com/probeflow/probeflow/pkg/storage/sqlite"
)

// NewStorage selects a storage backend from the database URL scheme:
// memory://, file://<dir>, sqlite://<path>, postgres://..., redis://...
// An empty URL means in-memory.
func NewStorage(ctx context.Context, logger *slog.Logger, databaseURL string) (storage.Storage, error) {
	switch parseStorageProvider(databaseURL) {
	case "memory":
		return memory.NewStorage(), nil
	case "file":
		return file.NewStorage(databaseURL), nil
	case "sqlite":
		return sqlite.NewStorage(ctx, logger, databaseURL)
	case "postgres", "postgresql":
		return postgresql.NewStorage(ctx, logger, databaseURL)
	case "redis":
		return redis.NewStorage(ctx, logger, databaseURL)
	default:
		return nil, fmt.Errorf("unsupported storage provider in database URL %q", databaseURL)
	}
}

func parseStorageProvider(databaseURL string) string {
	if databaseURL == "" {
		return "memory"
	}

	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	return provider
}
