package transport

import (
	"context"
	"net/http"

	"flower-shop/internal/domain"
	"flower-shop/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Stub services; each test sets only the functions it needs.
type stubCategoryService struct {
	list           func(ctx context.Context) ([]*domain.Category, error)
	listOptions    func(ctx context.Context) ([]domain.CategoryOption, error)
	get            func(ctx context.Context, id int64) (*domain.Category, error)
	getWithFlowers func(ctx context.Context, id int64) (*domain.Category, error)
	countFlowers   func(ctx context.Context, id int64) (int, error)
	create         func(ctx context.Context, input *domain.Category) (int64, error)
	update         func(ctx context.Context, input *domain.Category, expectedVersion int64) error
	delete         func(ctx context.Context, id int64) error
}

func (s *stubCategoryService) List(ctx context.Context) ([]*domain.Category, error) {
	return s.list(ctx)
}

func (s *stubCategoryService) ListOptions(ctx context.Context) ([]domain.CategoryOption, error) {
	return s.listOptions(ctx)
}

func (s *stubCategoryService) Get(ctx context.Context, id int64) (*domain.Category, error) {
	return s.get(ctx, id)
}

func (s *stubCategoryService) GetWithFlowers(ctx context.Context, id int64) (*domain.Category, error) {
	return s.getWithFlowers(ctx, id)
}

func (s *stubCategoryService) CountFlowers(ctx context.Context, id int64) (int, error) {
	return s.countFlowers(ctx, id)
}

func (s *stubCategoryService) Create(ctx context.Context, input *domain.Category) (int64, error) {
	return s.create(ctx, input)
}

func (s *stubCategoryService) Update(ctx context.Context, input *domain.Category, expectedVersion int64) error {
	return s.update(ctx, input, expectedVersion)
}

func (s *stubCategoryService) Delete(ctx context.Context, id int64) error {
	return s.delete(ctx, id)
}

type stubFlowerService struct {
	search      func(ctx context.Context, params service.SearchParams) (*service.SearchResult, error)
	get         func(ctx context.Context, id int64) (*domain.Flower, error)
	create      func(ctx context.Context, input *domain.Flower, upload *service.ImageUpload) (int64, error)
	update      func(ctx context.Context, input *domain.Flower, expectedVersion int64, upload *service.ImageUpload) error
	delete      func(ctx context.Context, id int64) error
	removeImage func(ctx context.Context, id int64) (*domain.Flower, error)
}

func (s *stubFlowerService) Search(ctx context.Context, params service.SearchParams) (*service.SearchResult, error) {
	return s.search(ctx, params)
}

func (s *stubFlowerService) Get(ctx context.Context, id int64) (*domain.Flower, error) {
	return s.get(ctx, id)
}

func (s *stubFlowerService) Create(ctx context.Context, input *domain.Flower, upload *service.ImageUpload) (int64, error) {
	return s.create(ctx, input, upload)
}

func (s *stubFlowerService) Update(ctx context.Context, input *domain.Flower, expectedVersion int64, upload *service.ImageUpload) error {
	return s.update(ctx, input, expectedVersion, upload)
}

func (s *stubFlowerService) Delete(ctx context.Context, id int64) error {
	return s.delete(ctx, id)
}

func (s *stubFlowerService) RemoveImage(ctx context.Context, id int64) (*domain.Flower, error) {
	return s.removeImage(ctx, id)
}

func passthrough(next http.Handler) http.Handler {
	return next
}

func newCategoryRouter(svc service.CategoryService) http.Handler {
	r := chi.NewRouter()
	NewCategoryHandler(svc, zap.NewNop()).RegisterRoutes(r, passthrough)
	return r
}

func newFlowerRouter(svc service.FlowerService) http.Handler {
	r := chi.NewRouter()
	NewFlowerHandler(svc, 1<<20, zap.NewNop()).RegisterRoutes(r, passthrough)
	return r
}
