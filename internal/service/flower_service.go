package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"flower-shop/internal/domain"
	"flower-shop/internal/repository"
	"flower-shop/internal/storage"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const imageCleanupTimeout = 10 * time.Second

var tracer = otel.Tracer("flower-shop/internal/service")

// ErrForeignImage is returned when an update names an image the flower does
// not already own.
var ErrForeignImage = fmt.Errorf("flower: %w", domain.ErrInvalidImage)

// ImageUpload is an image file submitted with a create or update request.
type ImageUpload struct {
	Reader   io.Reader
	Size     int64
	Filename string
}

func (u *ImageUpload) present() bool {
	return u != nil && u.Reader != nil
}

// FlowerService defines the interface for flower business logic
type FlowerService interface {
	Search(ctx context.Context, params SearchParams) (*SearchResult, error)
	Get(ctx context.Context, id int64) (*domain.Flower, error)
	Create(ctx context.Context, input *domain.Flower, upload *ImageUpload) (int64, error)
	Update(ctx context.Context, input *domain.Flower, expectedVersion int64, upload *ImageUpload) error
	Delete(ctx context.Context, id int64) error
	RemoveImage(ctx context.Context, id int64) (*domain.Flower, error)
}

type flowerService struct {
	flowerRepo   repository.FlowerRepository
	categoryRepo repository.CategoryRepository
	images       storage.ImageStore
	logger       *zap.Logger
	now          func() time.Time
}

// NewFlowerService creates a new instance of FlowerService
func NewFlowerService(
	flowerRepo repository.FlowerRepository,
	categoryRepo repository.CategoryRepository,
	images storage.ImageStore,
	logger *zap.Logger,
) FlowerService {
	return &flowerService{
		flowerRepo:   flowerRepo,
		categoryRepo: categoryRepo,
		images:       images,
		logger:       logger,
		now:          utcNow,
	}
}

// Search runs the catalogue query and attaches each flower's category.
func (s *flowerService) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	q := params.query()

	ctx, span := tracer.Start(ctx, "FlowerService.Search")
	defer span.End()
	span.SetAttributes(
		attribute.String("search.query", q.Query),
		attribute.String("search.sort", q.Sort),
		attribute.Int("search.page", q.Page),
		attribute.Int("search.page_size", q.PageSize),
	)

	rows, err := s.flowerRepo.Search(ctx, q)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search failed")
		return nil, err
	}

	total := 0
	if len(rows) > 0 {
		total = rows[0].TotalCount
	} else if q.Page > 1 {
		// Past the last page: the window is empty but the filter may still match.
		probe := q
		probe.Page, probe.PageSize = 1, 1
		probeRows, err := s.flowerRepo.Search(ctx, probe)
		if err != nil {
			return nil, err
		}
		if len(probeRows) > 0 {
			total = probeRows[0].TotalCount
		}
	}

	items, err := s.attachCategories(ctx, rows)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("search.total", total))

	return &SearchResult{
		Items:      items,
		Total:      total,
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalPages: totalPages(total, q.PageSize),
		Sort:       SortKey(q.Sort),
		Descending: q.Order == repository.SortOrderDesc,
	}, nil
}

// attachCategories loads every distinct category of a result page in one query.
func (s *flowerService) attachCategories(ctx context.Context, rows []*domain.FlowerSearchRow) ([]*domain.Flower, error) {
	items := make([]*domain.Flower, 0, len(rows))
	if len(rows) == 0 {
		return items, nil
	}

	seen := make(map[int64]struct{}, len(rows))
	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		if _, ok := seen[row.CategoryID]; !ok {
			seen[row.CategoryID] = struct{}{}
			ids = append(ids, row.CategoryID)
		}
	}

	categories, err := s.categoryRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}

	for _, row := range rows {
		flower := row.Flower()
		if category, ok := categories[row.CategoryID]; ok {
			flower.Category = category
		} else {
			flower.Category = &domain.Category{ID: row.CategoryID, Name: row.CategoryName}
		}
		items = append(items, flower)
	}
	return items, nil
}

func (s *flowerService) Get(ctx context.Context, id int64) (*domain.Flower, error) {
	return s.flowerRepo.FindByIDWithCategory(ctx, id)
}

// Create stores the optional image first, then the row. A failed insert
// removes the freshly stored image. Only an upload can set the image.
func (s *flowerService) Create(ctx context.Context, input *domain.Flower, upload *ImageUpload) (int64, error) {
	input.ImageURL = nil

	newURL, err := s.saveUpload(ctx, upload)
	if err != nil {
		return 0, err
	}
	if newURL != "" {
		input.ImageURL = &newURL
	}

	now := s.now()
	input.CreatedAt = now
	input.UpdatedAt = now
	input.Version = 1

	if err := s.flowerRepo.Create(ctx, input); err != nil {
		s.discardImage(ctx, newURL)
		return 0, err
	}

	s.logger.Info("Flower created",
		zap.Int64("flower_id", input.ID),
		zap.String("name", input.Name),
		zap.Bool("has_image", input.ImageURL != nil),
	)
	return input.ID, nil
}

// Update overwrites the editable fields of a flower when expectedVersion is
// still current. The replaced image is deleted only after the row is written;
// on failure the new image is removed and the old one is left untouched.
// Without an upload input.ImageURL must be nil (clear) or the current URL.
func (s *flowerService) Update(ctx context.Context, input *domain.Flower, expectedVersion int64, upload *ImageUpload) error {
	ctx, span := tracer.Start(ctx, "FlowerService.Update")
	defer span.End()
	span.SetAttributes(attribute.Int64("flower.id", input.ID))

	existing, err := s.flowerRepo.FindByID(ctx, input.ID)
	if err != nil {
		return err
	}
	if existing.Version != expectedVersion {
		return repository.ErrFlowerVersionConflict
	}
	if !upload.present() && input.ImageURL != nil && *input.ImageURL != existing.ImagePath() {
		return ErrForeignImage
	}

	newURL, err := s.saveUpload(ctx, upload)
	if err != nil {
		return err
	}
	if newURL != "" {
		input.ImageURL = &newURL
	}

	previous := existing.ImagePath()
	input.CreatedAt = existing.CreatedAt
	input.UpdatedAt = s.now()

	if err := s.flowerRepo.Update(ctx, input, expectedVersion); err != nil {
		s.discardImage(ctx, newURL)
		span.RecordError(err)
		return err
	}

	if previous != "" && previous != input.ImagePath() {
		s.discardImage(ctx, previous)
	}
	return nil
}

// Delete removes the flower and then its image. Missing flowers are a no-op.
func (s *flowerService) Delete(ctx context.Context, id int64) error {
	existing, err := s.flowerRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrFlowerNotFound) {
			return nil
		}
		return err
	}

	if err := s.flowerRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrFlowerNotFound) {
			return nil
		}
		return err
	}

	s.discardImage(ctx, existing.ImagePath())
	s.logger.Info("Flower deleted", zap.Int64("flower_id", id))
	return nil
}

// RemoveImage clears the flower's image reference and deletes the file.
func (s *flowerService) RemoveImage(ctx context.Context, id int64) (*domain.Flower, error) {
	existing, err := s.flowerRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	previous := existing.ImagePath()
	if previous == "" {
		return existing, nil
	}

	existing.ImageURL = nil
	existing.UpdatedAt = s.now()
	if err := s.flowerRepo.Update(ctx, existing, existing.Version); err != nil {
		return nil, err
	}

	s.discardImage(ctx, previous)
	return existing, nil
}

func (s *flowerService) saveUpload(ctx context.Context, upload *ImageUpload) (string, error) {
	if !upload.present() {
		return "", nil
	}

	url, err := s.images.Save(ctx, upload.Reader, upload.Size, upload.Filename)
	if err != nil {
		return "", fmt.Errorf("failed to save image: %w", err)
	}
	return url, nil
}

// discardImage deletes an image on a best-effort basis. It runs detached from
// the request so a cancelled client cannot leave an orphaned file behind.
func (s *flowerService) discardImage(ctx context.Context, url string) {
	if url == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), imageCleanupTimeout)
	defer cancel()

	if err := s.images.DeleteIfExists(ctx, url); err != nil {
		s.logger.Warn("Failed to delete image",
			zap.String("image_url", url),
			zap.Error(err),
		)
	}
}
