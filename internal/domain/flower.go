package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Flower is a stock item. ImageURL points at a file owned by the image store;
// the database knows nothing about that file.
type Flower struct {
	ID              int64               `json:"id" db:"id"`
	CategoryID      int64               `json:"category_id" db:"category_id"`
	Category        *Category           `json:"category,omitempty" db:"-"`
	Name            string              `json:"name" db:"name"`
	Type            string              `json:"type" db:"type"`
	SKU             *string             `json:"sku,omitempty" db:"sku"`
	Price           decimal.Decimal     `json:"price" db:"price"`
	QuantityInStock int                 `json:"quantity_in_stock" db:"quantity_in_stock"`
	Color           *string             `json:"color,omitempty" db:"color"`
	StemLengthCm    decimal.NullDecimal `json:"stem_length_cm" db:"stem_length_cm"`
	ImageURL        *string             `json:"image_url,omitempty" db:"image_url"`
	Active          bool                `json:"active" db:"active"`
	CreatedAt       time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at" db:"updated_at"`
	Version         int64               `json:"version" db:"version"`
}

// InStock reports whether at least one unit is available.
func (f *Flower) InStock() bool {
	return f.QuantityInStock > 0
}

// ImagePath returns the image URL or "" when the flower has no image.
func (f *Flower) ImagePath() string {
	if f.ImageURL == nil {
		return ""
	}
	return *f.ImageURL
}
