package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"flower-shop/internal/domain"
)

var (
	ErrCategoryNotFound        = fmt.Errorf("category %w", domain.ErrNotFound)
	ErrCategoryAlreadyExists   = fmt.Errorf("category: %w", domain.ErrDuplicateName)
	ErrCategoryVersionConflict = fmt.Errorf("category: %w", domain.ErrConflict)
)

// CategoryRepository defines the interface for category data access
type CategoryRepository interface {
	Create(ctx context.Context, category *domain.Category) error
	Update(ctx context.Context, category *domain.Category, expectedVersion int64) error
	DeleteIfUnused(ctx context.Context, id int64) error
	List(ctx context.Context) ([]*domain.Category, error)
	ListOptions(ctx context.Context) ([]domain.CategoryOption, error)
	FindByID(ctx context.Context, id int64) (*domain.Category, error)
	FindByIDs(ctx context.Context, ids []int64) (map[int64]*domain.Category, error)
	CountFlowers(ctx context.Context, id int64) (int, error)
}

type categoryRepository struct {
	db *sql.DB
}

// NewCategoryRepository creates a new instance of CategoryRepository
func NewCategoryRepository(db *sql.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

const categoryColumns = `id, name, description, created_at, version`

func scanCategory(row rowScanner) (*domain.Category, error) {
	category := &domain.Category{}
	err := row.Scan(
		&category.ID,
		&category.Name,
		&category.Description,
		&category.CreatedAt,
		&category.Version,
	)
	return category, err
}

// Create inserts a new category and fills in its generated id
func (r *categoryRepository) Create(ctx context.Context, category *domain.Category) error {
	query := `
		INSERT INTO categories (name, description, created_at, version)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		category.Name,
		category.Description,
		category.CreatedAt,
		category.Version,
	).Scan(&category.ID)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrCategoryAlreadyExists
		}
		return fmt.Errorf("failed to create category: %w", err)
	}

	return nil
}

// Update writes name and description only if the stored version still equals
// expectedVersion. On success category.Version holds the new version.
func (r *categoryRepository) Update(ctx context.Context, category *domain.Category, expectedVersion int64) error {
	query := `
		UPDATE categories
		SET name = $2, description = $3, version = version + 1
		WHERE id = $1 AND version = $4
		RETURNING version
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		category.ID,
		category.Name,
		category.Description,
		expectedVersion,
	).Scan(&category.Version)

	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return ErrCategoryAlreadyExists
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to update category: %w", err)
	}

	if _, err := r.FindByID(ctx, category.ID); err != nil {
		return err
	}
	return ErrCategoryVersionConflict
}

// DeleteIfUnused removes a category unless flowers still reference it. The
// category row is locked while dependents are counted so a concurrent insert
// cannot slip in between the check and the delete. Missing rows are not an error.
func (r *categoryRepository) DeleteIfUnused(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var locked int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM categories WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to lock category: %w", err)
	}

	count, err := countFlowers(ctx, tx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return &domain.CategoryInUseError{CategoryID: id, Count: count}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id); err != nil {
		if isForeignKeyViolation(err) {
			return &domain.CategoryInUseError{CategoryID: id}
		}
		return fmt.Errorf("failed to delete category: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit category delete: %w", err)
	}

	return nil
}

// List retrieves all categories ordered by name
func (r *categoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories ORDER BY name ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := []*domain.Category{}
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, category)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, nil
}

// ListOptions returns id/name pairs ordered by name
func (r *categoryRepository) ListOptions(ctx context.Context) ([]domain.CategoryOption, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list category options: %w", err)
	}
	defer rows.Close()

	options := []domain.CategoryOption{}
	for rows.Next() {
		var opt domain.CategoryOption
		if err := rows.Scan(&opt.ID, &opt.Name); err != nil {
			return nil, fmt.Errorf("failed to scan category option: %w", err)
		}
		options = append(options, opt)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating category options: %w", err)
	}

	return options, nil
}

// FindByID retrieves a category by ID
func (r *categoryRepository) FindByID(ctx context.Context, id int64) (*domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1`

	category, err := scanCategory(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to find category by ID: %w", err)
	}

	return category, nil
}

// FindByIDs loads the given categories in one round trip, keyed by id.
// Ids with no matching row are simply absent from the result.
func (r *categoryRepository) FindByIDs(ctx context.Context, ids []int64) (map[int64]*domain.Category, error) {
	result := make(map[int64]*domain.Category, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id = ANY($1)`

	rows, err := r.db.QueryContext(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to find categories: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		result[category.ID] = category
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return result, nil
}

// CountFlowers returns how many flowers reference the category
func (r *categoryRepository) CountFlowers(ctx context.Context, id int64) (int, error) {
	return countFlowers(ctx, r.db, id)
}

func countFlowers(ctx context.Context, q querier, categoryID int64) (int, error) {
	var count int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM flowers WHERE category_id = $1`, categoryID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count flowers for category: %w", err)
	}
	return count, nil
}
