package domain

import (
	"math"
	"time"
)

// Categories lists the product categories the store carries.
var Categories = []string{
	"electronics", "fashion", "home", "beauty", "books", "sports", "toys", "grocery",
}

// ValidCategory reports whether the given category is one the store carries.
func ValidCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}

// Product represents a catalog item.
type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Category    string    `json:"category"`
	ImageURL    string    `json:"image_url,omitempty"`
	Stock       int       `json:"stock"`
	AvgRating   float64   `json:"avg_rating"`
	RatingCount int       `json:"rating_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// RoundedRating returns the average rating rounded to one decimal place.
func (p *Product) RoundedRating() float64 {
	return math.Round(p.AvgRating*10) / 10
}

// Suggestion is a product candidate surfaced by the chat assistant.
// Suggestions are transient: deduplicated by product ID and capped
// before presentation, never stored.
type Suggestion struct {
	ProductID int64   `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
}
