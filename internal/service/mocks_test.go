package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"

	"flower-shop/internal/domain"
	"flower-shop/internal/repository"
	"flower-shop/internal/storage"

	"go.uber.org/zap"
)

// In-memory repositories with the same version semantics as the Postgres ones.
type mockStore struct {
	mu         sync.Mutex
	categories map[int64]*domain.Category
	flowers    map[int64]*domain.Flower
	nextID     int64
	searches   []repository.FlowerSearchQuery
	failUpdate error
}

func newMockStore() *mockStore {
	return &mockStore{
		categories: make(map[int64]*domain.Category),
		flowers:    make(map[int64]*domain.Flower),
	}
}

func (m *mockStore) id() int64 {
	m.nextID++
	return m.nextID
}

type mockCategoryRepository struct{ *mockStore }

func (m mockCategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.categories {
		if existing.Name == category.Name {
			return repository.ErrCategoryAlreadyExists
		}
	}
	category.ID = m.id()
	stored := *category
	m.categories[category.ID] = &stored
	return nil
}

func (m mockCategoryRepository) Update(ctx context.Context, category *domain.Category, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.categories[category.ID]
	if !ok {
		return repository.ErrCategoryNotFound
	}
	if stored.Version != expectedVersion {
		return repository.ErrCategoryVersionConflict
	}
	for id, existing := range m.categories {
		if id != category.ID && existing.Name == category.Name {
			return repository.ErrCategoryAlreadyExists
		}
	}
	stored.Name = category.Name
	stored.Description = category.Description
	stored.Version++
	category.Version = stored.Version
	return nil
}

func (m mockCategoryRepository) DeleteIfUnused(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.categories[id]; !ok {
		return nil
	}
	if n := m.countLocked(id); n > 0 {
		return &domain.CategoryInUseError{CategoryID: id, Count: n}
	}
	delete(m.categories, id)
	return nil
}

func (m mockCategoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Category, 0, len(m.categories))
	for _, c := range m.categories {
		copied := *c
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m mockCategoryRepository) ListOptions(ctx context.Context) ([]domain.CategoryOption, error) {
	categories, _ := m.List(ctx)
	out := make([]domain.CategoryOption, 0, len(categories))
	for _, c := range categories {
		out = append(out, domain.CategoryOption{ID: c.ID, Name: c.Name})
	}
	return out, nil
}

func (m mockCategoryRepository) FindByID(ctx context.Context, id int64) (*domain.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.categories[id]
	if !ok {
		return nil, repository.ErrCategoryNotFound
	}
	copied := *c
	return &copied, nil
}

func (m mockCategoryRepository) FindByIDs(ctx context.Context, ids []int64) (map[int64]*domain.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int64]*domain.Category, len(ids))
	for _, id := range ids {
		if c, ok := m.categories[id]; ok {
			copied := *c
			out[id] = &copied
		}
	}
	return out, nil
}

func (m mockCategoryRepository) CountFlowers(ctx context.Context, id int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.countLocked(id), nil
}

func (m *mockStore) countLocked(categoryID int64) int {
	n := 0
	for _, f := range m.flowers {
		if f.CategoryID == categoryID {
			n++
		}
	}
	return n
}

type mockFlowerRepository struct{ *mockStore }

func (m mockFlowerRepository) Create(ctx context.Context, flower *domain.Flower) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.categories[flower.CategoryID]; !ok {
		return repository.ErrUnknownCategory
	}
	flower.ID = m.id()
	stored := *flower
	m.flowers[flower.ID] = &stored
	return nil
}

func (m mockFlowerRepository) Update(ctx context.Context, flower *domain.Flower, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failUpdate != nil {
		return m.failUpdate
	}
	stored, ok := m.flowers[flower.ID]
	if !ok {
		return repository.ErrFlowerNotFound
	}
	if stored.Version != expectedVersion {
		return repository.ErrFlowerVersionConflict
	}
	if _, ok := m.categories[flower.CategoryID]; !ok {
		return repository.ErrUnknownCategory
	}
	flower.Version = stored.Version + 1
	updated := *flower
	updated.CreatedAt = stored.CreatedAt
	m.flowers[flower.ID] = &updated
	return nil
}

func (m mockFlowerRepository) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.flowers[id]; !ok {
		return repository.ErrFlowerNotFound
	}
	delete(m.flowers, id)
	return nil
}

func (m mockFlowerRepository) FindByID(ctx context.Context, id int64) (*domain.Flower, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.flowers[id]
	if !ok {
		return nil, repository.ErrFlowerNotFound
	}
	copied := *f
	return &copied, nil
}

func (m mockFlowerRepository) FindByIDWithCategory(ctx context.Context, id int64) (*domain.Flower, error) {
	f, err := m.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.categories[f.CategoryID]; ok {
		copied := *c
		f.Category = &copied
	}
	return f, nil
}

func (m mockFlowerRepository) ListByCategory(ctx context.Context, categoryID int64) ([]*domain.Flower, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Flower
	for _, f := range m.flowers {
		if f.CategoryID == categoryID {
			copied := *f
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Search filters like flower_search but only sorts by name and id.
func (m mockFlowerRepository) Search(ctx context.Context, q repository.FlowerSearchQuery) ([]*domain.FlowerSearchRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searches = append(m.searches, q)

	needle := strings.ToLower(q.Query)
	var matched []*domain.FlowerSearchRow
	for _, f := range m.flowers {
		if q.ActiveOnly && !f.Active {
			continue
		}
		if q.CategoryID != nil && f.CategoryID != *q.CategoryID {
			continue
		}
		if q.MinPrice != nil && f.Price.LessThan(*q.MinPrice) {
			continue
		}
		if q.MaxPrice != nil && f.Price.GreaterThan(*q.MaxPrice) {
			continue
		}
		categoryName := ""
		if c, ok := m.categories[f.CategoryID]; ok {
			categoryName = c.Name
		}
		haystack := strings.ToLower(f.Name + " " + f.Type + " " + categoryName)
		if needle != "" && !strings.Contains(haystack, needle) {
			continue
		}
		matched = append(matched, &domain.FlowerSearchRow{
			ID:              f.ID,
			Name:            f.Name,
			Type:            f.Type,
			SKU:             f.SKU,
			Price:           f.Price,
			QuantityInStock: f.QuantityInStock,
			Color:           f.Color,
			StemLengthCm:    f.StemLengthCm,
			ImageURL:        f.ImageURL,
			IsInStock:       f.InStock(),
			Active:          f.Active,
			CreatedAt:       f.CreatedAt,
			UpdatedAt:       f.UpdatedAt,
			Version:         f.Version,
			CategoryID:      f.CategoryID,
			CategoryName:    categoryName,
		})
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Name != matched[j].Name {
			if q.Order == repository.SortOrderDesc {
				return matched[i].Name > matched[j].Name
			}
			return matched[i].Name < matched[j].Name
		}
		return matched[i].ID < matched[j].ID
	})

	for _, row := range matched {
		row.TotalCount = len(matched)
	}

	start := (q.Page - 1) * q.PageSize
	if start >= len(matched) {
		return nil, nil
	}
	end := start + q.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], nil
}

// memoryImageStore records saved and deleted images.
type memoryImageStore struct {
	mu       sync.Mutex
	files    map[string][]byte
	deleted  []string
	failSave error
}

func newMemoryImageStore() *memoryImageStore {
	return &memoryImageStore{files: make(map[string][]byte)}
}

func (s *memoryImageStore) Save(ctx context.Context, r io.Reader, size int64, originalFilename string) (string, error) {
	if s.failSave != nil {
		return "", s.failSave
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	url := storage.DefaultPublicPrefix + "/" + storage.NewImageName(originalFilename)
	s.files[url] = data
	return url, nil
}

func (s *memoryImageStore) DeleteIfExists(ctx context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[url]; ok {
		delete(s.files, url)
		s.deleted = append(s.deleted, url)
	}
	return nil
}

func (s *memoryImageStore) Open(ctx context.Context, name string) (io.ReadCloser, storage.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[storage.DefaultPublicPrefix+"/"+name]
	if !ok {
		return nil, storage.ObjectInfo{}, storage.ErrImageNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), storage.ObjectInfo{Name: name, Size: int64(len(data))}, nil
}

func (s *memoryImageStore) has(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.files[url]
	return ok
}

func (s *memoryImageStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

var errBoom = errors.New("boom")

type fixture struct {
	store      *mockStore
	images     *memoryImageStore
	categories CategoryService
	flowers    FlowerService
}

func newFixture() *fixture {
	store := newMockStore()
	images := newMemoryImageStore()
	categoryRepo := mockCategoryRepository{store}
	flowerRepo := mockFlowerRepository{store}
	logger := zap.NewNop()
	return &fixture{
		store:      store,
		images:     images,
		categories: NewCategoryService(categoryRepo, flowerRepo, logger),
		flowers:    NewFlowerService(flowerRepo, categoryRepo, images, logger),
	}
}

func imageUpload(filename string, payload string) *ImageUpload {
	return &ImageUpload{
		Reader:   strings.NewReader(payload),
		Size:     int64(len(payload)),
		Filename: filename,
	}
}
