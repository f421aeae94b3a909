package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/mmenanno/inventory-browser/internal/config"
	"github.com/mmenanno/inventory-browser/internal/constants"
	"github.com/mmenanno/inventory-browser/internal/items"
)

// ErrNotFound is returned when a single item lookup has no match
var ErrNotFound = errors.New("item not found")

// Reader returns the current full item collection
type Reader interface {
	ReadAll(ctx context.Context) ([]items.Item, error)
}

// ItemStore is a Reader that can also persist new items
type ItemStore interface {
	Reader
	Get(ctx context.Context, id int64) (items.Item, error)
	Create(ctx context.Context, item items.NewItem) (items.Item, error)
	Close() error
}

// Open returns the item store selected by the configuration
func Open(cfg *config.Config) (ItemStore, error) {
	switch cfg.StoreBackend {
	case constants.BackendJSON, "":
		return NewJSONStore(cfg.DataPath), nil
	case constants.BackendSQLite:
		return NewSQLiteStore(cfg.DatabasePath, SQLiteConfig{
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: cfg.DBConnMaxLifetime,
		})
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.StoreBackend)
	}
}

// ChangePaths lists the files whose modification means the configured
// collection may have changed. SQLite in WAL mode commits to the -wal file
// first, so all three database files are included.
func ChangePaths(cfg *config.Config) []string {
	switch cfg.StoreBackend {
	case constants.BackendSQLite:
		return []string{cfg.DatabasePath, cfg.DatabasePath + "-wal", cfg.DatabasePath + "-shm"}
	default:
		return []string{cfg.DataPath}
	}
}
