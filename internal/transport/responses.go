package transport

import (
	"time"

	"flower-shop/internal/domain"
	"flower-shop/internal/service"

	"github.com/shopspring/decimal"
)

// CategoryResponse represents a category in API responses
type CategoryResponse struct {
	ID          int64             `json:"id"`
	Name        string            `json:"name"`
	Description *string           `json:"description"`
	CreatedAt   time.Time         `json:"created_at"`
	Version     int64             `json:"version"`
	Flowers     []*FlowerResponse `json:"flowers,omitempty"`
}

// FlowerResponse represents a flower in API responses
type FlowerResponse struct {
	ID              int64               `json:"id"`
	CategoryID      int64               `json:"category_id"`
	CategoryName    string              `json:"category_name,omitempty"`
	Name            string              `json:"name"`
	Type            string              `json:"type"`
	SKU             *string             `json:"sku"`
	Price           decimal.Decimal     `json:"price"`
	QuantityInStock int                 `json:"quantity_in_stock"`
	InStock         bool                `json:"in_stock"`
	Color           *string             `json:"color"`
	StemLengthCm    decimal.NullDecimal `json:"stem_length_cm"`
	ImageURL        *string             `json:"image_url"`
	Active          bool                `json:"active"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
	Version         int64               `json:"version"`
}

// FlowerListResponse is one page of search results
type FlowerListResponse struct {
	Items      []*FlowerResponse `json:"items"`
	Total      int               `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalPages int               `json:"total_pages"`
	Sort       string            `json:"sort"`
	Desc       bool              `json:"desc"`
}

func toCategoryResponse(c *domain.Category) *CategoryResponse {
	resp := &CategoryResponse{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		CreatedAt:   c.CreatedAt,
		Version:     c.Version,
	}
	if c.Flowers != nil {
		resp.Flowers = make([]*FlowerResponse, 0, len(c.Flowers))
		for _, f := range c.Flowers {
			flower := toFlowerResponse(f)
			flower.CategoryName = c.Name
			resp.Flowers = append(resp.Flowers, flower)
		}
	}
	return resp
}

func toFlowerResponse(f *domain.Flower) *FlowerResponse {
	resp := &FlowerResponse{
		ID:              f.ID,
		CategoryID:      f.CategoryID,
		Name:            f.Name,
		Type:            f.Type,
		SKU:             f.SKU,
		Price:           f.Price,
		QuantityInStock: f.QuantityInStock,
		InStock:         f.InStock(),
		Color:           f.Color,
		StemLengthCm:    f.StemLengthCm,
		ImageURL:        f.ImageURL,
		Active:          f.Active,
		CreatedAt:       f.CreatedAt,
		UpdatedAt:       f.UpdatedAt,
		Version:         f.Version,
	}
	if f.Category != nil {
		resp.CategoryName = f.Category.Name
	}
	return resp
}

func toFlowerListResponse(result *service.SearchResult) *FlowerListResponse {
	items := make([]*FlowerResponse, 0, len(result.Items))
	for _, f := range result.Items {
		items = append(items, toFlowerResponse(f))
	}
	return &FlowerListResponse{
		Items:      items,
		Total:      result.Total,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalPages: result.TotalPages,
		Sort:       string(result.Sort),
		Desc:       result.Descending,
	}
}
