package service

import (
	"context"
	"fmt"
	"time"

	"flower-shop/internal/domain"
	"flower-shop/internal/repository"

	"go.uber.org/zap"
)

// CategoryService defines the interface for category business logic
type CategoryService interface {
	List(ctx context.Context) ([]*domain.Category, error)
	ListOptions(ctx context.Context) ([]domain.CategoryOption, error)
	Get(ctx context.Context, id int64) (*domain.Category, error)
	GetWithFlowers(ctx context.Context, id int64) (*domain.Category, error)
	CountFlowers(ctx context.Context, id int64) (int, error)
	Create(ctx context.Context, input *domain.Category) (int64, error)
	Update(ctx context.Context, input *domain.Category, expectedVersion int64) error
	Delete(ctx context.Context, id int64) error
}

type categoryService struct {
	categoryRepo repository.CategoryRepository
	flowerRepo   repository.FlowerRepository
	logger       *zap.Logger
	now          func() time.Time
}

// NewCategoryService creates a new instance of CategoryService
func NewCategoryService(
	categoryRepo repository.CategoryRepository,
	flowerRepo repository.FlowerRepository,
	logger *zap.Logger,
) CategoryService {
	return &categoryService{
		categoryRepo: categoryRepo,
		flowerRepo:   flowerRepo,
		logger:       logger,
		now:          utcNow,
	}
}

// utcNow matches the microsecond precision Postgres keeps for timestamps.
func utcNow() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func (s *categoryService) List(ctx context.Context) ([]*domain.Category, error) {
	return s.categoryRepo.List(ctx)
}

func (s *categoryService) ListOptions(ctx context.Context) ([]domain.CategoryOption, error) {
	return s.categoryRepo.ListOptions(ctx)
}

func (s *categoryService) Get(ctx context.Context, id int64) (*domain.Category, error) {
	return s.categoryRepo.FindByID(ctx, id)
}

// CountFlowers reports how many flowers reference the category. A missing
// category has none.
func (s *categoryService) CountFlowers(ctx context.Context, id int64) (int, error) {
	return s.categoryRepo.CountFlowers(ctx, id)
}

// GetWithFlowers loads a category and every flower that references it
func (s *categoryService) GetWithFlowers(ctx context.Context, id int64) (*domain.Category, error) {
	category, err := s.categoryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	flowers, err := s.flowerRepo.ListByCategory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load flowers for category %d: %w", id, err)
	}
	category.Flowers = flowers

	return category, nil
}

// Create stamps the creation time and stores the category
func (s *categoryService) Create(ctx context.Context, input *domain.Category) (int64, error) {
	input.CreatedAt = s.now()
	input.Version = 1

	if err := s.categoryRepo.Create(ctx, input); err != nil {
		return 0, err
	}

	s.logger.Info("Category created",
		zap.Int64("category_id", input.ID),
		zap.String("name", input.Name),
	)
	return input.ID, nil
}

// Update applies name and description if expectedVersion is still current.
// On success input.Version holds the new version.
func (s *categoryService) Update(ctx context.Context, input *domain.Category, expectedVersion int64) error {
	existing, err := s.categoryRepo.FindByID(ctx, input.ID)
	if err != nil {
		return err
	}

	if existing.Version != expectedVersion {
		return repository.ErrCategoryVersionConflict
	}

	existing.Name = input.Name
	existing.Description = input.Description

	if err := s.categoryRepo.Update(ctx, existing, expectedVersion); err != nil {
		return err
	}

	input.CreatedAt = existing.CreatedAt
	input.Version = existing.Version
	return nil
}

// Delete removes a category that has no flowers. Missing categories are a no-op;
// categories still in use fail with *domain.CategoryInUseError.
func (s *categoryService) Delete(ctx context.Context, id int64) error {
	if err := s.categoryRepo.DeleteIfUnused(ctx, id); err != nil {
		return err
	}

	s.logger.Info("Category deleted", zap.Int64("category_id", id))
	return nil
}
