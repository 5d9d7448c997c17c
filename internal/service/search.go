package service

import (
	"strings"

	"flower-shop/internal/domain"
	"flower-shop/internal/repository"

	"github.com/shopspring/decimal"
)

// SortKey is a sort column understood by the flower_search function.
type SortKey string

const (
	SortByName     SortKey = "name"
	SortByType     SortKey = "type"
	SortBySKU      SortKey = "sku"
	SortByPrice    SortKey = "price"
	SortByQuantity SortKey = "quantity"
	SortByColor    SortKey = "color"
	SortByCreated  SortKey = "created"
	SortByUpdated  SortKey = "updated"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

var sortAliases = map[string]SortKey{
	"name":            SortByName,
	"type":            SortByType,
	"sku":             SortBySKU,
	"price":           SortByPrice,
	"quantity":        SortByQuantity,
	"quantityinstock": SortByQuantity,
	"stock":           SortByQuantity,
	"color":           SortByColor,
	"created":         SortByCreated,
	"createdat":       SortByCreated,
	"updated":         SortByUpdated,
	"updatedat":       SortByUpdated,
}

// ParseSortKey maps user input onto a known key. Unknown input yields
// SortByName and false.
func ParseSortKey(raw string) (SortKey, bool) {
	normalized := strings.ToLower(strings.NewReplacer("_", "", "-", "", " ", "").Replace(raw))
	if key, ok := sortAliases[normalized]; ok {
		return key, true
	}
	return SortByName, false
}

// SearchParams are the filters accepted by FlowerService.Search.
type SearchParams struct {
	Query      string
	CategoryID *int64
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	Sort       string
	Descending bool
	Page       int
	PageSize   int
}

// SearchResult is one page of flowers plus pagination metadata.
type SearchResult struct {
	Items      []*domain.Flower
	Total      int
	Page       int
	PageSize   int
	TotalPages int
	Sort       SortKey
	Descending bool
}

func (p SearchParams) query() repository.FlowerSearchQuery {
	page := p.Page
	if page < 1 {
		page = DefaultPage
	}

	pageSize := p.PageSize
	switch {
	case pageSize < 1:
		pageSize = DefaultPageSize
	case pageSize > MaxPageSize:
		pageSize = MaxPageSize
	}

	sortKey, _ := ParseSortKey(p.Sort)

	order := repository.SortOrderAsc
	if p.Descending {
		order = repository.SortOrderDesc
	}

	return repository.FlowerSearchQuery{
		Query:      strings.TrimSpace(p.Query),
		CategoryID: p.CategoryID,
		MinPrice:   p.MinPrice,
		MaxPrice:   p.MaxPrice,
		ActiveOnly: true,
		Sort:       string(sortKey),
		Order:      order,
		Page:       page,
		PageSize:   pageSize,
	}
}

func totalPages(total, pageSize int) int {
	if pageSize < 1 {
		pageSize = 1
	}
	pages := (total + pageSize - 1) / pageSize
	if pages < 1 {
		return 1
	}
	return pages
}
