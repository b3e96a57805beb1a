package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/flowd-io/flowd/pkg/persistence"
	"github.com/flowd-io/flowd/pkg/persistence/file"
	"github.com/flowd-io/flowd/pkg/persistence/postgresql"
)

// NewPersistence picks the store from the database URL scheme:
// postgres:// for PostgreSQL, anything else (including file://) for the
// JSON file store.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch parseProvider(databaseURL) {
	case "postgres", "postgresql":
		persist, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(fmt.Errorf("failed to initialize postgres persistence: %w", err))
		}

		return persist
	default:
		return file.NewPersistence(databaseURL)
	}
}

func parseProvider(databaseURL string) string {
	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	return provider
}
