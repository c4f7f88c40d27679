// Package seed populates the database with sample products.
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	_ "embed"

	"github.com/dkrylov/shoply/internal/domain"
	"github.com/dkrylov/shoply/internal/store"
)

//go:embed products.json
var productsJSON []byte

type seedProduct struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	ImageURL    string  `json:"image_url"`
	Stock       int     `json:"stock"`
	AvgRating   float64 `json:"avg_rating"`
	RatingCount int     `json:"rating_count"`
}

// Products inserts the embedded sample catalog. If products already
// exist it is a no-op unless force is set, in which case the catalog
// is replaced.
func Products(ctx context.Context, repo store.Repository, force bool) error {
	var items []seedProduct
	if err := json.Unmarshal(productsJSON, &items); err != nil {
		return fmt.Errorf("parse embedded products: %w", err)
	}

	existing, err := repo.CountProducts(ctx)
	if err != nil {
		return fmt.Errorf("count products: %w", err)
	}

	if existing > 0 && force {
		deleted, err := repo.DeleteAllProducts(ctx)
		if err != nil {
			return fmt.Errorf("delete products: %w", err)
		}
		slog.Info("Deleted existing products", "count", deleted)
		existing = 0
	}

	if existing > 0 {
		slog.Info("Database already has products, skipping seed", "count", existing)
		return nil
	}

	perCategory := make(map[string]int)
	for _, item := range items {
		stock := item.Stock
		if stock == 0 {
			stock = 100
		}
		rating := item.AvgRating
		if rating == 0 {
			rating = 4.0
		}
		p := &domain.Product{
			Name:        item.Name,
			Description: item.Description,
			Price:       item.Price,
			Category:    item.Category,
			ImageURL:    item.ImageURL,
			Stock:       stock,
			AvgRating:   rating,
			RatingCount: item.RatingCount,
		}
		if err := repo.InsertProduct(ctx, p); err != nil {
			return fmt.Errorf("insert product %q: %w", item.Name, err)
		}
		perCategory[item.Category]++
	}

	slog.Info("Seeded products", "count", len(items))
	for _, cat := range domain.Categories {
		if n := perCategory[cat]; n > 0 {
			slog.Info("Seeded category", "category", cat, "count", n)
		}
	}
	return nil
}
