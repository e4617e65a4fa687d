package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is a storefront product as returned by the listing store.
// Optional columns stay nil until catalog.NormalizeProduct applies defaults.
type Product struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	Slug          *string    `json:"slug" db:"slug"`
	Name          string     `json:"name" db:"name"`
	Description   *string    `json:"description" db:"description"`
	Price         float64    `json:"price" db:"price"`
	OriginalPrice *float64   `json:"original_price" db:"original_price"`
	OldPrice      *float64   `json:"old_price" db:"old_price"`
	Brand         *string    `json:"brand" db:"brand"`
	CategoryID    *uuid.UUID `json:"category_id" db:"category_id"`
	Rating        *float64   `json:"rating" db:"rating"`
	Reviews       *int       `json:"reviews" db:"reviews"`
	IsFeatured    bool       `json:"is_featured" db:"is_featured"`
	IsBestseller  bool       `json:"is_bestseller" db:"is_bestseller"`
	IsNew         bool       `json:"is_new" db:"is_new"`
	Discount      *int       `json:"discount" db:"discount"`
	Tags          []string   `json:"tags" db:"tags"`
	ImageURL      *string    `json:"image_url" db:"image_url"`
	Stock         int        `json:"stock" db:"stock"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}
