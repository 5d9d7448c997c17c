package domain

import "time"

// Category groups flowers. Version is the optimistic concurrency token and is
// bumped by every successful write.
type Category struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description *string   `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	Version     int64     `json:"version" db:"version"`

	Flowers []*Flower `json:"flowers,omitempty" db:"-"`
}

// CategoryOption is the id/name pair used to populate category pickers.
type CategoryOption struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
