package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	perrors "github.com/cartcraft/storefront/internal/errors"
)

var _ ProductStore = (*FileStore)(nil)

// FileStore keeps the catalog as a JSON array in a single file.
// All access goes through one mutex: readers share it, writers hold it exclusively
// for the whole read-modify-write cycle. The file is replaced atomically on every write.
type FileStore struct {
	mu   sync.RWMutex
	path string
	now  func() time.Time
	// lastID is the highest id this store has handed out or observed.
	lastID int64
}

// NewFileStore creates a store backed by path. A missing file is treated as an empty catalog.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, now: time.Now}
}

func (s *FileStore) FindAll(ctx context.Context) ([]Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.load()
}

func (s *FileStore) FindBySlug(ctx context.Context, slug string) (*Product, error) {
	products, err := s.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		if p.Slug == slug {
			return &p, nil
		}
	}
	return nil, perrors.ErrProductNotFound
}

func (s *FileStore) FindByID(ctx context.Context, id string) (*Product, error) {
	products, err := s.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	if i := indexOf(products, id); i >= 0 {
		return &products[i], nil
	}
	return nil, perrors.ErrProductNotFound
}

func (s *FileStore) Create(ctx context.Context, np NewProduct) (*Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	products, err := s.load()
	if err != nil {
		return nil, err
	}
	id := max(s.lastID, highestID(products)) + 1
	created := Product{
		ID:          strconv.FormatInt(id, 10),
		Name:        np.Name,
		Slug:        np.Slug,
		Description: np.Description,
		Price:       np.Price,
		Category:    np.Category,
		Inventory:   np.Inventory,
		Image:       np.Image,
		LastUpdated: s.now().UTC(),
	}
	if err := s.save(append(products, created)); err != nil {
		return nil, err
	}
	s.lastID = id
	return &created, nil
}

func (s *FileStore) Update(ctx context.Context, id string, patch ProductPatch) (*Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	products, err := s.load()
	if err != nil {
		return nil, err
	}
	i := indexOf(products, id)
	if i < 0 {
		return nil, perrors.ErrProductNotFound
	}
	updated := products[i]
	patch.apply(&updated)
	updated.ID = id
	updated.LastUpdated = nextStamp(products[i].LastUpdated, s.now())
	products[i] = updated

	if err := s.save(products); err != nil {
		return nil, err
	}
	return &updated, nil
}

// load reads and decodes the catalog file. Callers must hold the mutex.
func (s *FileStore) load() ([]Product, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []Product{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", s.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []Product{}, nil
	}
	var products []Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", perrors.ErrInvalidCatalog, s.path, err)
	}
	if products == nil {
		products = []Product{}
	}
	return products, nil
}

// save writes the catalog to a temporary file next to the target and renames it into place.
// Callers must hold the write lock.
func (s *FileStore) save(products []Product) error {
	data, err := json.MarshalIndent(products, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create catalog directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".catalog-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temporary catalog file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write catalog: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync catalog: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close catalog: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("failed to set catalog permissions: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace catalog %s: %w", s.path, err)
	}
	return nil
}

func indexOf(products []Product, id string) int {
	for i := range products {
		if products[i].ID == id {
			return i
		}
	}
	return -1
}

// highestID is the largest numeric id in products, or 0 when there is none.
// Non-numeric ids are ignored.
func highestID(products []Product) int64 {
	var highest int64
	for _, p := range products {
		n, err := strconv.ParseInt(p.ID, 10, 64)
		if err == nil && n > highest {
			highest = n
		}
	}
	return highest
}
