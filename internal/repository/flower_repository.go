package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"flower-shop/internal/domain"

	"github.com/shopspring/decimal"
)

var (
	ErrFlowerNotFound        = fmt.Errorf("flower %w", domain.ErrNotFound)
	ErrFlowerVersionConflict = fmt.Errorf("flower: %w", domain.ErrConflict)
	ErrUnknownCategory       = fmt.Errorf("flower: %w", domain.ErrInvalidCategory)
)

// FlowerSearchQuery carries the nine arguments of the flower_search function.
// Sort must already be one of the keys the function understands.
type FlowerSearchQuery struct {
	Query      string
	CategoryID *int64
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	ActiveOnly bool
	Sort       string
	Order      SortOrder
	Page       int
	PageSize   int
}

// FlowerRepository defines the interface for flower data access
type FlowerRepository interface {
	Create(ctx context.Context, flower *domain.Flower) error
	Update(ctx context.Context, flower *domain.Flower, expectedVersion int64) error
	Delete(ctx context.Context, id int64) error
	FindByID(ctx context.Context, id int64) (*domain.Flower, error)
	FindByIDWithCategory(ctx context.Context, id int64) (*domain.Flower, error)
	ListByCategory(ctx context.Context, categoryID int64) ([]*domain.Flower, error)
	Search(ctx context.Context, q FlowerSearchQuery) ([]*domain.FlowerSearchRow, error)
}

type flowerRepository struct {
	db *sql.DB
}

// NewFlowerRepository creates a new instance of FlowerRepository
func NewFlowerRepository(db *sql.DB) FlowerRepository {
	return &flowerRepository{db: db}
}

const flowerColumns = `f.id, f.category_id, f.name, f.type, f.sku, f.price, f.quantity_in_stock,
	f.color, f.stem_length_cm, f.image_url, f.active, f.created_at, f.updated_at, f.version`

func flowerDest(flower *domain.Flower) []any {
	return []any{
		&flower.ID,
		&flower.CategoryID,
		&flower.Name,
		&flower.Type,
		&flower.SKU,
		&flower.Price,
		&flower.QuantityInStock,
		&flower.Color,
		&flower.StemLengthCm,
		&flower.ImageURL,
		&flower.Active,
		&flower.CreatedAt,
		&flower.UpdatedAt,
		&flower.Version,
	}
}

func translateFlowerWriteError(op string, err error) error {
	if isForeignKeyViolation(err) {
		return ErrUnknownCategory
	}
	return fmt.Errorf("failed to %s flower: %w", op, err)
}

// Create inserts a new flower and fills in its generated id
func (r *flowerRepository) Create(ctx context.Context, flower *domain.Flower) error {
	query := `
		INSERT INTO flowers (category_id, name, type, sku, price, quantity_in_stock, color,
		                     stem_length_cm, image_url, active, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		flower.CategoryID,
		flower.Name,
		flower.Type,
		flower.SKU,
		flower.Price,
		flower.QuantityInStock,
		flower.Color,
		flower.StemLengthCm,
		flower.ImageURL,
		flower.Active,
		flower.CreatedAt,
		flower.UpdatedAt,
		flower.Version,
	).Scan(&flower.ID)

	if err != nil {
		return translateFlowerWriteError("create", err)
	}

	return nil
}

// Update overwrites every mutable column if the stored version still equals
// expectedVersion. On success flower.Version holds the new version.
func (r *flowerRepository) Update(ctx context.Context, flower *domain.Flower, expectedVersion int64) error {
	query := `
		UPDATE flowers
		SET category_id = $2, name = $3, type = $4, sku = $5, price = $6,
		    quantity_in_stock = $7, color = $8, stem_length_cm = $9, image_url = $10,
		    active = $11, updated_at = $12, version = version + 1
		WHERE id = $1 AND version = $13
		RETURNING version
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		flower.ID,
		flower.CategoryID,
		flower.Name,
		flower.Type,
		flower.SKU,
		flower.Price,
		flower.QuantityInStock,
		flower.Color,
		flower.StemLengthCm,
		flower.ImageURL,
		flower.Active,
		flower.UpdatedAt,
		expectedVersion,
	).Scan(&flower.Version)

	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return translateFlowerWriteError("update", err)
	}

	if _, err := r.FindByID(ctx, flower.ID); err != nil {
		return err
	}
	return ErrFlowerVersionConflict
}

// Delete removes a flower. Returns ErrFlowerNotFound when no row matched.
func (r *flowerRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM flowers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete flower: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrFlowerNotFound
	}

	return nil
}

// FindByID retrieves a flower without its category
func (r *flowerRepository) FindByID(ctx context.Context, id int64) (*domain.Flower, error) {
	query := `SELECT ` + flowerColumns + ` FROM flowers f WHERE f.id = $1`

	flower := &domain.Flower{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(flowerDest(flower)...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFlowerNotFound
		}
		return nil, fmt.Errorf("failed to find flower by ID: %w", err)
	}

	return flower, nil
}

// FindByIDWithCategory retrieves a flower with its category attached
func (r *flowerRepository) FindByIDWithCategory(ctx context.Context, id int64) (*domain.Flower, error) {
	query := `
		SELECT ` + flowerColumns + `,
		       c.id, c.name, c.description, c.created_at, c.version
		FROM flowers f
		JOIN categories c ON c.id = f.category_id
		WHERE f.id = $1
	`

	flower := &domain.Flower{}
	category := &domain.Category{}
	dest := append(flowerDest(flower),
		&category.ID,
		&category.Name,
		&category.Description,
		&category.CreatedAt,
		&category.Version,
	)

	if err := r.db.QueryRowContext(ctx, query, id).Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFlowerNotFound
		}
		return nil, fmt.Errorf("failed to find flower by ID: %w", err)
	}

	flower.Category = category
	return flower, nil
}

// ListByCategory returns every flower in a category ordered by name
func (r *flowerRepository) ListByCategory(ctx context.Context, categoryID int64) ([]*domain.Flower, error) {
	query := `SELECT ` + flowerColumns + ` FROM flowers f WHERE f.category_id = $1 ORDER BY f.name ASC, f.id ASC`

	rows, err := r.db.QueryContext(ctx, query, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list flowers by category: %w", err)
	}
	defer rows.Close()

	flowers := []*domain.Flower{}
	for rows.Next() {
		flower := &domain.Flower{}
		if err := rows.Scan(flowerDest(flower)...); err != nil {
			return nil, fmt.Errorf("failed to scan flower: %w", err)
		}
		flowers = append(flowers, flower)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating flowers: %w", err)
	}

	return flowers, nil
}

// Search runs the flower_search database function, which does filtering,
// sorting and pagination server side.
func (r *flowerRepository) Search(ctx context.Context, q FlowerSearchQuery) ([]*domain.FlowerSearchRow, error) {
	query := `
		SELECT flower_id, name, type, sku, price, quantity_in_stock, color, stem_length_cm,
		       image_url, is_in_stock, active, created_at, updated_at, version,
		       category_id, category_name, total_count
		FROM flower_search($1::text, $2::bigint, $3::numeric, $4::numeric, $5, $6, $7, $8, $9)
	`

	var (
		text       any
		categoryID any
		minPrice   any
		maxPrice   any
	)
	if q.Query != "" {
		text = q.Query
	}
	if q.CategoryID != nil {
		categoryID = *q.CategoryID
	}
	if q.MinPrice != nil {
		minPrice = *q.MinPrice
	}
	if q.MaxPrice != nil {
		maxPrice = *q.MaxPrice
	}

	rows, err := r.db.QueryContext(
		ctx,
		query,
		text,
		categoryID,
		minPrice,
		maxPrice,
		q.ActiveOnly,
		q.Sort,
		string(q.Order),
		q.Page,
		q.PageSize,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search flowers: %w", err)
	}
	defer rows.Close()

	results := []*domain.FlowerSearchRow{}
	for rows.Next() {
		row := &domain.FlowerSearchRow{}
		err := rows.Scan(
			&row.ID,
			&row.Name,
			&row.Type,
			&row.SKU,
			&row.Price,
			&row.QuantityInStock,
			&row.Color,
			&row.StemLengthCm,
			&row.ImageURL,
			&row.IsInStock,
			&row.Active,
			&row.CreatedAt,
			&row.UpdatedAt,
			&row.Version,
			&row.CategoryID,
			&row.CategoryName,
			&row.TotalCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		results = append(results, row)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating search results: %w", err)
	}

	return results, nil
}
