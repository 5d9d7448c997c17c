package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// FlowerSearchRow is one row produced by the flower_search database function.
// TotalCount is the number of rows matching the filter, repeated on every row.
type FlowerSearchRow struct {
	ID              int64               `db:"flower_id"`
	Name            string              `db:"name"`
	Type            string              `db:"type"`
	SKU             *string             `db:"sku"`
	Price           decimal.Decimal     `db:"price"`
	QuantityInStock int                 `db:"quantity_in_stock"`
	Color           *string             `db:"color"`
	StemLengthCm    decimal.NullDecimal `db:"stem_length_cm"`
	ImageURL        *string             `db:"image_url"`
	IsInStock       bool                `db:"is_in_stock"`
	Active          bool                `db:"active"`
	CreatedAt       time.Time           `db:"created_at"`
	UpdatedAt       time.Time           `db:"updated_at"`
	Version         int64               `db:"version"`
	CategoryID      int64               `db:"category_id"`
	CategoryName    string              `db:"category_name"`
	TotalCount      int                 `db:"total_count"`
}

// Flower converts the projection back into a Flower without its category.
func (r *FlowerSearchRow) Flower() *Flower {
	return &Flower{
		ID:              r.ID,
		CategoryID:      r.CategoryID,
		Name:            r.Name,
		Type:            r.Type,
		SKU:             r.SKU,
		Price:           r.Price,
		QuantityInStock: r.QuantityInStock,
		Color:           r.Color,
		StemLengthCm:    r.StemLengthCm,
		ImageURL:        r.ImageURL,
		Active:          r.Active,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
		Version:         r.Version,
	}
}
