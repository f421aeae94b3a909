package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mmenanno/inventory-browser/internal/items"
)

const schema = `
CREATE TABLE IF NOT EXISTS items (
	id       INTEGER PRIMARY KEY,
	name     TEXT    NOT NULL,
	category TEXT    NOT NULL,
	price    REAL    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_items_category ON items(category);
`

// SQLiteConfig holds database connection configuration
type SQLiteConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// SQLiteStore keeps the item collection in a SQLite table
type SQLiteStore struct {
	conn *sql.DB
	now  func() time.Time
}

// NewSQLiteStore opens (and if needed creates) the database at dbPath
func NewSQLiteStore(dbPath string, cfg SQLiteConfig) (*SQLiteStore, error) {
	// Ensure the database directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		conn.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{conn: conn, now: time.Now}, nil
}

// ReadAll returns every item ordered by ID
func (s *SQLiteStore) ReadAll(ctx context.Context) ([]items.Item, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT id, name, category, price FROM items ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	list := make([]items.Item, 0)
	for rows.Next() {
		var item items.Item
		if err := rows.Scan(&item.ID, &item.Name, &item.Category, &item.Price); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		list = append(list, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}

	return list, nil
}

// Get returns a single item by ID
func (s *SQLiteStore) Get(ctx context.Context, id int64) (items.Item, error) {
	var item items.Item
	err := s.conn.QueryRowContext(ctx,
		`SELECT id, name, category, price FROM items WHERE id = ?`, id,
	).Scan(&item.ID, &item.Name, &item.Category, &item.Price)
	if errors.Is(err, sql.ErrNoRows) {
		return items.Item{}, ErrNotFound
	}
	if err != nil {
		return items.Item{}, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

// Create inserts item with a time-based ID that is unique within the table
func (s *SQLiteStore) Create(ctx context.Context, item items.NewItem) (items.Item, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return items.Item{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var maxID sql.NullInt64
	if err := tx.QueryRowContext(ctx, `SELECT MAX(id) FROM items`).Scan(&maxID); err != nil {
		return items.Item{}, fmt.Errorf("failed to read max id: %w", err)
	}

	id := s.now().UnixMilli()
	if maxID.Valid && maxID.Int64 >= id {
		id = maxID.Int64 + 1
	}

	created := item.WithID(id)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO items (id, name, category, price) VALUES (?, ?, ?, ?)`,
		created.ID, created.Name, created.Category, created.Price,
	); err != nil {
		return items.Item{}, fmt.Errorf("failed to insert item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return items.Item{}, fmt.Errorf("failed to commit item: %w", err)
	}

	return created, nil
}

// Import replaces the table contents with list
func (s *SQLiteStore) Import(ctx context.Context, list []items.Item) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM items`); err != nil {
		return fmt.Errorf("failed to clear items: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO items (id, name, category, price) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, item := range list {
		if _, err := stmt.ExecContext(ctx, item.ID, item.Name, item.Category, item.Price); err != nil {
			return fmt.Errorf("failed to insert item %d: %w", item.ID, err)
		}
	}

	return tx.Commit()
}

// Ping checks if the database connection is alive
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}
