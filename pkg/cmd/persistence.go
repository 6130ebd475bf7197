// Package cmd provides common initialization functions for command-line
// applications.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/venohr/stepflow/pkg/persistence"
	"github.com/venohr/stepflow/pkg/persistence/memory"
	"github.com/venohr/stepflow/pkg/persistence/postgresql"
)

// NewPersistence selects the storage backend from the database URL scheme.
// "memory://" is for local development only, its state dies with the process.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(fmt.Errorf("failed to initialize postgresql persistence: %w", err))
		}

		return p
	case strings.HasPrefix(databaseURL, "memory://"), databaseURL == "memory":
		return memory.NewPersistence()
	default:
		panic("unsupported database URL: " + databaseURL)
	}
}
