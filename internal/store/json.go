package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mmenanno/inventory-browser/internal/items"
)

// JSONStore keeps the item collection in a single JSON document
type JSONStore struct {
	path string
	mu   sync.Mutex // serializes read-modify-write cycles
	now  func() time.Time
}

// NewJSONStore creates a store backed by the JSON file at path
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{
		path: path,
		now:  time.Now,
	}
}

// Path returns the location of the backing file
func (s *JSONStore) Path() string {
	return s.path
}

// ReadAll reads and parses the whole document
func (s *JSONStore) ReadAll(ctx context.Context) ([]items.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.read()
}

// Get returns a single item by ID
func (s *JSONStore) Get(ctx context.Context, id int64) (items.Item, error) {
	list, err := s.ReadAll(ctx)
	if err != nil {
		return items.Item{}, err
	}

	item, ok := items.Find(list, id)
	if !ok {
		return items.Item{}, ErrNotFound
	}
	return item, nil
}

// Create assigns a unique ID to item, appends it and rewrites the document
func (s *JSONStore) Create(ctx context.Context, item items.NewItem) (items.Item, error) {
	if err := ctx.Err(); err != nil {
		return items.Item{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.read()
	if err != nil {
		return items.Item{}, err
	}

	created := item.WithID(items.NextID(list, s.now().UnixMilli()))
	list = append(list, created)

	if err := s.write(list); err != nil {
		return items.Item{}, err
	}

	return created, nil
}

// Close is a no-op; the file is opened per operation
func (s *JSONStore) Close() error {
	return nil
}

func (s *JSONStore) read() ([]items.Item, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read data file: %w", err)
	}

	var list []items.Item
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to parse data file: %w", err)
	}

	return list, nil
}

// write replaces the document through a temp file so readers never see a
// partially written file.
func (s *JSONStore) write(list []items.Item) error {
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal items: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".items-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write data file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write data file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace data file: %w", err)
	}

	return nil
}
