// Package storageutils builds a storage.Driver from configuration.
package storageutils

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/switchyard/pkg/storage"
	"github.com/papercomputeco/switchyard/pkg/storage/inmemory"
	"github.com/papercomputeco/switchyard/pkg/storage/postgres"
	"github.com/papercomputeco/switchyard/pkg/storage/sqlite"
)

const (
	ProviderSQLite   = "sqlite"
	ProviderPostgres = "postgres"
	ProviderMemory   = "memory"
)

type NewDriverOpts struct {
	ProviderType string
	SQLitePath   string
	PostgresDSN  string
	Dimensions   int
	Logger       *slog.Logger
}

func NewDriver(ctx context.Context, o *NewDriverOpts) (storage.Driver, error) {
	switch o.ProviderType {
	case ProviderSQLite:
		return sqlite.NewDriver(ctx, sqlite.Config{
			DBPath:     o.SQLitePath,
			Dimensions: o.Dimensions,
		}, o.Logger)
	case ProviderPostgres:
		if o.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres storage requires a DSN")
		}
		return postgres.NewDriver(ctx, o.PostgresDSN, o.Dimensions, o.Logger)
	case ProviderMemory:
		return inmemory.NewDriver(o.Dimensions)
	default:
		return nil, fmt.Errorf("unsupported storage provider: %s", o.ProviderType)
	}
}
