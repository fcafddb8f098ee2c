package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/dearher/bagstore/internal/domain/product"
)

const uniqueViolation = "23505"

// productRow is the products table shape.
type productRow struct {
	ID          string     `db:"id"`
	Name        string     `db:"name"`
	Slug        string     `db:"slug"`
	Price       int        `db:"price"`
	Description string     `db:"description"`
	Images      stringList `db:"images"`
	PatternType string     `db:"pattern_type"`
	Size        string     `db:"size"`
	Material    string     `db:"material"`
	Colors      stringList `db:"colors"`
	Featured    bool       `db:"featured"`
	Stock       int        `db:"stock"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

func rowFromProduct(p product.Product) productRow {
	return productRow{
		ID:          p.ID,
		Name:        p.Name,
		Slug:        p.Slug,
		Price:       p.Price,
		Description: p.Description,
		Images:      stringList(p.Images),
		PatternType: p.PatternType,
		Size:        p.Size,
		Material:    p.Material,
		Colors:      stringList(p.Colors),
		Featured:    p.Featured,
		Stock:       p.Stock,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func (r productRow) product() product.Product {
	images, colors := []string(r.Images), []string(r.Colors)
	if images == nil {
		images = []string{}
	}
	if colors == nil {
		colors = []string{}
	}
	return product.Product{
		ID:          r.ID,
		Name:        r.Name,
		Slug:        r.Slug,
		Price:       r.Price,
		Description: r.Description,
		Images:      images,
		PatternType: r.PatternType,
		Size:        r.Size,
		Material:    r.Material,
		Colors:      colors,
		Featured:    r.Featured,
		Stock:       r.Stock,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

const productColumns = `id, name, slug, price, description, images, pattern_type, size, material, colors, featured, stock, created_at, updated_at`

// PostgresCatalogStore implements catalog.Store on the products table.
type PostgresCatalogStore struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewPostgresCatalogStore(db *sqlx.DB) *PostgresCatalogStore {
	return &PostgresCatalogStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *PostgresCatalogStore) List(ctx context.Context) ([]product.Product, error) {
	var rows []productRow
	query := `SELECT ` + productColumns + ` FROM products ORDER BY created_at DESC, id`
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return toProducts(rows), nil
}

func (s *PostgresCatalogStore) ListFeatured(ctx context.Context, limit int) ([]product.Product, error) {
	var rows []productRow
	query := `SELECT ` + productColumns + ` FROM products WHERE featured ORDER BY created_at DESC, id LIMIT $1`
	if err := s.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("list featured products: %w", err)
	}
	return toProducts(rows), nil
}

func (s *PostgresCatalogStore) GetBySlug(ctx context.Context, slug string) (*product.Product, error) {
	return s.getOne(ctx, `SELECT `+productColumns+` FROM products WHERE slug = $1 LIMIT 1`, slug)
}

func (s *PostgresCatalogStore) GetByID(ctx context.Context, id string) (*product.Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, product.ErrProductNotFound
	}
	return s.getOne(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
}

func (s *PostgresCatalogStore) Create(ctx context.Context, in product.Input) (string, error) {
	p := in.Product(uuid.New().String(), s.now())
	query := `
        INSERT INTO products (` + productColumns + `)
        VALUES (:id, :name, :slug, :price, :description, :images, :pattern_type, :size, :material, :colors, :featured, :stock, :created_at, :updated_at)
    `
	if _, err := s.db.NamedExecContext(ctx, query, rowFromProduct(p)); err != nil {
		return "", translateWriteErr("create product", err)
	}
	return p.ID, nil
}

// Update applies patch inside a transaction holding the row lock, so
// concurrent patches to different fields both land.
func (s *PostgresCatalogStore) Update(ctx context.Context, id string, patch product.Patch) error {
	if _, err := uuid.Parse(id); err != nil {
		return product.ErrProductNotFound
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var row productRow
	err = tx.GetContext(ctx, &row, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return product.ErrProductNotFound
		}
		return fmt.Errorf("load product: %w", err)
	}

	p := row.product()
	patch.Apply(&p, s.now())

	query := `
        UPDATE products
        SET name = :name,
            slug = :slug,
            price = :price,
            description = :description,
            images = :images,
            pattern_type = :pattern_type,
            size = :size,
            material = :material,
            colors = :colors,
            featured = :featured,
            stock = :stock,
            updated_at = :updated_at
        WHERE id = :id
    `
	if _, err := tx.NamedExecContext(ctx, query, rowFromProduct(p)); err != nil {
		return translateWriteErr("update product", err)
	}
	return tx.Commit()
}

func (s *PostgresCatalogStore) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return product.ErrProductNotFound
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if n == 0 {
		return product.ErrProductNotFound
	}
	return nil
}

func (s *PostgresCatalogStore) getOne(ctx context.Context, query string, arg any) (*product.Product, error) {
	var row productRow
	if err := s.db.GetContext(ctx, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, product.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	p := row.product()
	return &p, nil
}

func toProducts(rows []productRow) []product.Product {
	out := make([]product.Product, len(rows))
	for i, r := range rows {
		out[i] = r.product()
	}
	return out
}

func translateWriteErr(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return product.ErrSlugTaken
	}
	return fmt.Errorf("%s: %w", op, err)
}
