package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	perrors "github.com/cartcraft/storefront/internal/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ ProductStore = (*PgStore)(nil)

const productColumns = `id::text, name, slug, description, price::float8, category, inventory, COALESCE(image, ''), last_updated`

// PgStore keeps the catalog in PostgreSQL. Ids come from the table sequence.
type PgStore struct {
	db  *pgxpool.Pool
	now func() time.Time
}

func NewPgStore(db *pgxpool.Pool) *PgStore {
	return &PgStore{db: db, now: time.Now}
}

func (s *PgStore) FindAll(ctx context.Context) ([]Product, error) {
	rows, err := s.db.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := make([]Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate products: %w", err)
	}
	return products, nil
}

func (s *PgStore) FindBySlug(ctx context.Context, slug string) (*Product, error) {
	row := s.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE slug = $1 ORDER BY id LIMIT 1`, slug)
	return scanProduct(row)
}

func (s *PgStore) FindByID(ctx context.Context, id string) (*Product, error) {
	numericID, ok := parseID(id)
	if !ok {
		return nil, perrors.ErrProductNotFound
	}
	row := s.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, numericID)
	return scanProduct(row)
}

func (s *PgStore) Create(ctx context.Context, np NewProduct) (*Product, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO products (name, slug, description, price, category, inventory, image, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8)
		RETURNING `+productColumns,
		np.Name, np.Slug, np.Description, np.Price, np.Category, np.Inventory, np.Image, s.now().UTC())
	created, err := scanProduct(row)
	if err != nil {
		return nil, fmt.Errorf("failed to insert product: %w", err)
	}
	return created, nil
}

func (s *PgStore) Update(ctx context.Context, id string, patch ProductPatch) (*Product, error) {
	numericID, ok := parseID(id)
	if !ok {
		return nil, perrors.ErrProductNotFound
	}
	row := s.db.QueryRow(ctx, `
		UPDATE products SET
			name         = COALESCE($2, name),
			slug         = COALESCE($3, slug),
			description  = COALESCE($4, description),
			price        = COALESCE($5, price),
			category     = COALESCE($6, category),
			inventory    = COALESCE($7, inventory),
			image        = CASE WHEN $8::text IS NULL THEN image ELSE NULLIF($8::text, '') END,
			last_updated = GREATEST($9::timestamptz, last_updated + INTERVAL '1 millisecond')
		WHERE id = $1
		RETURNING `+productColumns,
		numericID, patch.Name, patch.Slug, patch.Description, patch.Price, patch.Category, patch.Inventory, patch.Image, s.now().UTC())
	return scanProduct(row)
}

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Slug, &p.Description, &p.Price, &p.Category, &p.Inventory, &p.Image, &p.LastUpdated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, perrors.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to scan product: %w", err)
	}
	p.LastUpdated = p.LastUpdated.UTC()
	return &p, nil
}

func parseID(id string) (int64, bool) {
	n, err := strconv.ParseInt(id, 10, 64)
	return n, err == nil && n > 0
}
