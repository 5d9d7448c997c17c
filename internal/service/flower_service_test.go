package service

import (
	"context"
	"fmt"
	"testing"

	"flower-shop/internal/domain"
	"flower-shop/internal/repository"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlowerService_CreateAndGet(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	roses := createCategory(t, f, "Roses")

	flower := createFlower(t, f, roses.ID, "Red Rose", nil)

	got, err := f.flowers.Get(ctx, flower.ID)
	require.NoError(t, err)
	assert.Equal(t, "Red Rose", got.Name)
	assert.Equal(t, int64(1), got.Version)
	assert.Equal(t, got.CreatedAt, got.UpdatedAt)
	require.NotNil(t, got.Category)
	assert.Equal(t, "Roses", got.Category.Name)
	assert.Nil(t, got.ImageURL)
}

func TestFlowerService_CreateWithImage(t *testing.T) {
	f := newFixture()
	roses := createCategory(t, f, "Roses")

	flower := createFlower(t, f, roses.ID, "Red Rose", imageUpload("rose.JPG", "jpeg-bytes"))

	require.NotNil(t, flower.ImageURL)
	assert.Regexp(t, `^/images/[0-9a-f]{32}\.jpg$`, *flower.ImageURL)
	assert.True(t, f.images.has(*flower.ImageURL))
}

func TestFlowerService_CreateEmptyUploadStoresNothing(t *testing.T) {
	f := newFixture()
	roses := createCategory(t, f, "Roses")

	flower := createFlower(t, f, roses.ID, "Red Rose", imageUpload("rose.png", ""))

	assert.Nil(t, flower.ImageURL)
	assert.Zero(t, f.images.count())
}

func TestFlowerService_CreateUnknownCategoryRollsBackImage(t *testing.T) {
	f := newFixture()

	flower := &domain.Flower{CategoryID: 404, Name: "Ghost", Type: "Cut", Price: decimal.NewFromInt(1)}
	_, err := f.flowers.Create(context.Background(), flower, imageUpload("ghost.png", "png"))

	assert.ErrorIs(t, err, domain.ErrInvalidCategory)
	assert.Zero(t, f.images.count(), "image stored for a failed insert must be removed")
}

func TestFlowerService_CreateImageSaveFailure(t *testing.T) {
	f := newFixture()
	roses := createCategory(t, f, "Roses")
	f.images.failSave = errBoom

	flower := &domain.Flower{CategoryID: roses.ID, Name: "Red Rose", Type: "Cut", Price: decimal.NewFromInt(1)}
	_, err := f.flowers.Create(context.Background(), flower, imageUpload("rose.png", "png"))

	assert.ErrorIs(t, err, errBoom)
	assert.Empty(t, f.store.flowers)
}

func TestFlowerService_UpdateQuantity(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	roses := createCategory(t, f, "Roses")
	flower := createFlower(t, f, roses.ID, "Red Rose", nil)

	input := *flower
	input.QuantityInStock = 99
	require.NoError(t, f.flowers.Update(ctx, &input, 1, nil))
	assert.Equal(t, int64(2), input.Version)

	got, err := f.flowers.Get(ctx, flower.ID)
	require.NoError(t, err)
	assert.Equal(t, 99, got.QuantityInStock)
	assert.Equal(t, flower.CreatedAt, got.CreatedAt)
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt))
}

func TestFlowerService_UpdateStaleVersionConflicts(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	roses := createCategory(t, f, "Roses")
	flower := createFlower(t, f, roses.ID, "Red Rose", nil)

	first := *flower
	first.QuantityInStock = 5
	require.NoError(t, f.flowers.Update(ctx, &first, 1, nil))

	second := *flower
	second.QuantityInStock = 7
	err := f.flowers.Update(ctx, &second, 1, imageUpload("late.png", "png"))
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Zero(t, f.images.count(), "a conflicting update must not leave an image behind")

	got, err := f.flowers.Get(ctx, flower.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.QuantityInStock)
}

func TestFlowerService_UpdateMissing(t *testing.T) {
	f := newFixture()
	err := f.flowers.Update(context.Background(), &domain.Flower{ID: 7, Name: "x"}, 1, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFlowerService_ReplaceImageDeletesOldAfterWrite(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	roses := createCategory(t, f, "Roses")
	flower := createFlower(t, f, roses.ID, "Red Rose", imageUpload("old.png", "old"))
	oldURL := *flower.ImageURL

	input := *flower
	require.NoError(t, f.flowers.Update(ctx, &input, 1, imageUpload("new.png", "new")))

	require.NotNil(t, input.ImageURL)
	assert.NotEqual(t, oldURL, *input.ImageURL)
	assert.True(t, f.images.has(*input.ImageURL))
	assert.False(t, f.images.has(oldURL))
}

func TestFlowerService_ReplaceImageKeepsOldWhenWriteFails(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	roses := createCategory(t, f, "Roses")
	flower := createFlower(t, f, roses.ID, "Red Rose", imageUpload("old.png", "old"))
	oldURL := *flower.ImageURL

	f.store.failUpdate = errBoom
	input := *flower
	err := f.flowers.Update(ctx, &input, 1, imageUpload("new.png", "new"))

	assert.ErrorIs(t, err, errBoom)
	assert.True(t, f.images.has(oldURL), "old image must survive a failed write")
	assert.Equal(t, 1, f.images.count(), "new image must be rolled back")
}

func TestFlowerService_ClearingImageURLDeletesFile(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	roses := createCategory(t, f, "Roses")
	flower := createFlower(t, f, roses.ID, "Red Rose", imageUpload("old.png", "old"))
	oldURL := *flower.ImageURL

	input := *flower
	input.ImageURL = nil
	require.NoError(t, f.flowers.Update(ctx, &input, 1, nil))

	assert.False(t, f.images.has(oldURL))
}

func TestFlowerService_CreateIgnoresClientImageURL(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	roses := createCategory(t, f, "Roses")
	owner := createFlower(t, f, roses.ID, "Red Rose", imageUpload("rose.png", "png"))
	ownerURL := *owner.ImageURL

	borrowed := ownerURL
	other := &domain.Flower{
		CategoryID:      roses.ID,
		Name:            "White Rose",
		Type:            "Cut",
		Price:           decimal.RequireFromString("2.50"),
		QuantityInStock: 4,
		ImageURL:        &borrowed,
	}
	id, err := f.flowers.Create(ctx, other, nil)
	require.NoError(t, err)
	assert.Nil(t, other.ImageURL)

	require.NoError(t, f.flowers.Delete(ctx, id))

	stored, err := f.flowers.Get(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, ownerURL, stored.ImagePath())
	assert.True(t, f.images.has(ownerURL), "deleting another flower must not remove this image")
}

func TestFlowerService_UpdateRejectsForeignImageURL(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	roses := createCategory(t, f, "Roses")
	owner := createFlower(t, f, roses.ID, "Red Rose", imageUpload("rose.png", "png"))
	other := createFlower(t, f, roses.ID, "White Rose", imageUpload("white.png", "white"))
	ownerURL, otherURL := *owner.ImageURL, *other.ImageURL

	input := *other
	input.ImageURL = &ownerURL
	err := f.flowers.Update(ctx, &input, other.Version, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidImage)

	stored, err := f.flowers.Get(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, otherURL, stored.ImagePath())
	assert.Equal(t, int64(1), stored.Version)

	require.NoError(t, f.flowers.Delete(ctx, other.ID))
	assert.True(t, f.images.has(ownerURL))
	assert.False(t, f.images.has(otherURL))
}

func TestFlowerService_UpdateKeepingCurrentImageURL(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	roses := createCategory(t, f, "Roses")
	flower := createFlower(t, f, roses.ID, "Red Rose", imageUpload("rose.png", "png"))
	url := *flower.ImageURL

	input := *flower
	input.QuantityInStock = 3
	require.NoError(t, f.flowers.Update(ctx, &input, 1, nil))

	assert.Equal(t, url, input.ImagePath())
	assert.True(t, f.images.has(url))
}

func TestFlowerService_DeleteRemovesImage(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	roses := createCategory(t, f, "Roses")
	flower := createFlower(t, f, roses.ID, "Red Rose", imageUpload("rose.png", "png"))

	require.NoError(t, f.flowers.Delete(ctx, flower.ID))

	_, err := f.flowers.Get(ctx, flower.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Zero(t, f.images.count())

	assert.NoError(t, f.flowers.Delete(ctx, flower.ID), "second delete is a no-op")
}

func TestFlowerService_RemoveImage(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	roses := createCategory(t, f, "Roses")
	flower := createFlower(t, f, roses.ID, "Red Rose", imageUpload("rose.png", "png"))

	updated, err := f.flowers.RemoveImage(ctx, flower.ID)
	require.NoError(t, err)
	assert.Nil(t, updated.ImageURL)
	assert.Equal(t, int64(2), updated.Version)
	assert.Zero(t, f.images.count())

	again, err := f.flowers.RemoveImage(ctx, flower.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), again.Version, "removing a missing image does not write")

	_, err = f.flowers.RemoveImage(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFlowerService_SearchScenario(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	roses := createCategory(t, f, "Roses")
	createFlower(t, f, roses.ID, "Red Rose", nil)

	result, err := f.flowers.Search(ctx, SearchParams{Query: "rose"})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "Red Rose", result.Items[0].Name)
	require.NotNil(t, result.Items[0].Category)
	assert.Equal(t, "Roses", result.Items[0].Category.Name)
	assert.Equal(t, 1, result.Total)
	assert.Equal(t, 1, result.TotalPages)
	assert.Equal(t, SortByName, result.Sort)
}

func TestFlowerService_SearchNormalizesParams(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	result, err := f.flowers.Search(ctx, SearchParams{Page: -3, PageSize: 5000, Sort: "DROP TABLE flowers", Descending: true})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Page)
	assert.Equal(t, MaxPageSize, result.PageSize)
	assert.Equal(t, SortByName, result.Sort)
	assert.True(t, result.Descending)
	assert.Empty(t, result.Items)
	assert.Equal(t, 1, result.TotalPages)

	last := f.store.searches[len(f.store.searches)-1]
	assert.Equal(t, "name", last.Sort)
	assert.Equal(t, repository.SortOrderDesc, last.Order)
	assert.True(t, last.ActiveOnly)
}

func TestFlowerService_SearchPastLastPageReportsTotal(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	roses := createCategory(t, f, "Roses")
	for i := 0; i < 3; i++ {
		createFlower(t, f, roses.ID, fmt.Sprintf("Rose %d", i), nil)
	}

	result, err := f.flowers.Search(ctx, SearchParams{Page: 9, PageSize: 2})
	require.NoError(t, err)
	assert.Empty(t, result.Items)
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 2, result.TotalPages)
}

func TestParseSortKey(t *testing.T) {
	cases := map[string]SortKey{
		"name":              SortByName,
		"Price":             SortByPrice,
		"quantity_in_stock": SortByQuantity,
		"QuantityInStock":   SortByQuantity,
		"created-at":        SortByCreated,
		"UpdatedAt":         SortByUpdated,
		"sku":               SortBySKU,
		"color":             SortByColor,
		"type":              SortByType,
	}
	for raw, want := range cases {
		got, ok := ParseSortKey(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, want, got, raw)
	}

	got, ok := ParseSortKey("price; DROP TABLE flowers")
	assert.False(t, ok)
	assert.Equal(t, SortByName, got)
}

// Feature: flower-shop, Property: pagination metadata is always consistent
func TestProperty_SearchPaginationMetadata(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("page and page size are clamped and total pages covers total", prop.ForAll(
		func(count int, page int, pageSize int) bool {
			f := newFixture()
			ctx := context.Background()
			category := &domain.Category{Name: "Mixed"}
			if _, err := f.categories.Create(ctx, category); err != nil {
				return false
			}
			for i := 0; i < count; i++ {
				flower := &domain.Flower{
					CategoryID: category.ID,
					Name:       fmt.Sprintf("Flower %03d", i),
					Type:       "Cut",
					Price:      decimal.NewFromInt(int64(i + 1)),
					Active:     true,
				}
				if _, err := f.flowers.Create(ctx, flower, nil); err != nil {
					return false
				}
			}

			result, err := f.flowers.Search(ctx, SearchParams{Page: page, PageSize: pageSize})
			if err != nil {
				return false
			}

			if result.Page < 1 || result.PageSize < 1 || result.PageSize > MaxPageSize {
				t.Logf("bad clamp: page=%d size=%d", result.Page, result.PageSize)
				return false
			}
			if result.Total != count {
				t.Logf("total %d != %d", result.Total, count)
				return false
			}
			if result.TotalPages < 1 || (result.TotalPages-1)*result.PageSize >= result.Total && result.Total > 0 {
				t.Logf("bad total pages %d for total %d size %d", result.TotalPages, result.Total, result.PageSize)
				return false
			}
			return len(result.Items) <= result.PageSize
		},
		gen.IntRange(0, 40),
		gen.IntRange(-2, 8),
		gen.IntRange(-5, 150),
	))

	properties.TestingRun(t)
}
