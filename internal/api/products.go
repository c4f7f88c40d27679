package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/dkrylov/shoply/internal/auth"
	"github.com/dkrylov/shoply/internal/domain"
	"github.com/dkrylov/shoply/internal/store"
	"github.com/go-chi/chi/v5"
)

const searchHistoryLimit = 20

// ProductHandler handles catalog, review, and favorite endpoints.
type ProductHandler struct {
	*Handler
}

// NewProductHandler creates the product handler.
func NewProductHandler(base *Handler) *ProductHandler {
	return &ProductHandler{Handler: base}
}

// RegisterRoutes registers product routes.
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/categories", h.Categories)
		r.Get("/favorites", auth.RequireAuth(h.ListFavorites))
		r.Get("/search-history", auth.RequireAuth(h.SearchHistory))
		r.Get("/{productID}", h.Detail)
		r.Post("/{productID}/review", auth.RequireAuth(h.AddReview))
		r.Post("/{productID}/favorite", auth.RequireAuth(h.ToggleFavorite))
	})
}

func productID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	return id, err == nil && id > 0
}

// List returns catalog items matching the query filters. Searches by a
// logged-in user are recorded in their search history.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := store.ProductFilter{
		Search: strings.TrimSpace(r.URL.Query().Get("search")),
		Sort:   r.URL.Query().Get("sort"),
	}
	if category := r.URL.Query().Get("category"); domain.ValidCategory(category) {
		filter.Category = category
	}

	products, err := h.repo.ListProducts(r.Context(), filter)
	if err != nil {
		logHandlerError("Failed to list products", err)
		Fail(w, http.StatusInternalServerError, "failed to load products")
		return
	}
	if products == nil {
		products = []*domain.Product{}
	}

	user := auth.UserFromContext(r.Context())
	favoriteIDs := []int64{}
	if user != nil {
		if filter.Search != "" {
			if err := h.repo.AddSearchEntry(r.Context(), user.ID, filter.Search); err != nil {
				logHandlerError("Failed to record search", err)
			}
		}
		ids, err := h.repo.ListFavoriteIDs(r.Context(), user.ID)
		if err != nil {
			logHandlerError("Failed to load favorite ids", err)
		} else if ids != nil {
			favoriteIDs = ids
		}
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"success":        true,
		"products":       products,
		"categories":     domain.Categories,
		"user_favorites": favoriteIDs,
	})
}

// Categories returns the list of store categories.
func (h *ProductHandler) Categories(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"categories": domain.Categories,
	})
}

// Detail returns one product with its reviews and, for logged-in
// users, their favorite flag and own review.
func (h *ProductHandler) Detail(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(r)
	if !ok {
		Fail(w, http.StatusBadRequest, "invalid product id")
		return
	}

	product, err := h.repo.GetProduct(r.Context(), id)
	if err != nil {
		logHandlerError("Failed to load product", err)
		Fail(w, http.StatusInternalServerError, "failed to load product")
		return
	}
	if product == nil {
		Fail(w, http.StatusNotFound, "product not found")
		return
	}

	reviews, err := h.repo.ListReviews(r.Context(), id)
	if err != nil {
		logHandlerError("Failed to load reviews", err)
		Fail(w, http.StatusInternalServerError, "failed to load reviews")
		return
	}
	if reviews == nil {
		reviews = []*domain.Review{}
	}

	isFavorite := false
	var userReview *domain.Review
	if user := auth.UserFromContext(r.Context()); user != nil {
		isFavorite, err = h.repo.IsFavorite(r.Context(), user.ID, id)
		if err != nil {
			logHandlerError("Failed to check favorite", err)
		}
		userReview, err = h.repo.GetUserReview(r.Context(), user.ID, id)
		if err != nil {
			logHandlerError("Failed to load user review", err)
		}
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"product":     product,
		"reviews":     reviews,
		"is_favorite": isFavorite,
		"user_review": userReview,
	})
}

// AddReview creates or updates the user's review and returns the
// product's recomputed rating.
func (h *ProductHandler) AddReview(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(r)
	if !ok {
		Fail(w, http.StatusBadRequest, "invalid product id")
		return
	}

	var req struct {
		Rating  int    `json:"rating"`
		Comment string `json:"comment"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		Fail(w, http.StatusBadRequest, "Rating must be between 1 and 5")
		return
	}

	product, err := h.repo.GetProduct(r.Context(), id)
	if err != nil {
		logHandlerError("Failed to load product", err)
		Fail(w, http.StatusInternalServerError, "failed to load product")
		return
	}
	if product == nil {
		Fail(w, http.StatusNotFound, "product not found")
		return
	}

	user := auth.UserFromContext(r.Context())
	review := &domain.Review{
		UserID:    user.ID,
		ProductID: id,
		Rating:    req.Rating,
		Comment:   strings.TrimSpace(req.Comment),
	}
	if err := h.repo.UpsertReview(r.Context(), review); err != nil {
		logHandlerError("Failed to save review", err)
		Fail(w, http.StatusInternalServerError, "failed to save review")
		return
	}

	updated, err := h.repo.GetProduct(r.Context(), id)
	if err != nil || updated == nil {
		logHandlerError("Failed to reload product rating", err)
		updated = product
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"message":      "Review submitted successfully",
		"avg_rating":   updated.RoundedRating(),
		"rating_count": updated.RatingCount,
	})
}

// ToggleFavorite flips the favorite flag for a product.
func (h *ProductHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(r)
	if !ok {
		Fail(w, http.StatusBadRequest, "invalid product id")
		return
	}

	product, err := h.repo.GetProduct(r.Context(), id)
	if err != nil {
		logHandlerError("Failed to load product", err)
		Fail(w, http.StatusInternalServerError, "failed to load product")
		return
	}
	if product == nil {
		Fail(w, http.StatusNotFound, "product not found")
		return
	}

	user := auth.UserFromContext(r.Context())
	favorited, err := h.repo.IsFavorite(r.Context(), user.ID, id)
	if err != nil {
		logHandlerError("Failed to check favorite", err)
		Fail(w, http.StatusInternalServerError, "failed to update favorite")
		return
	}

	if favorited {
		if err := h.repo.RemoveFavorite(r.Context(), user.ID, id); err != nil {
			logHandlerError("Failed to remove favorite", err)
			Fail(w, http.StatusInternalServerError, "failed to update favorite")
			return
		}
		JSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"action":  "removed",
			"message": "Removed from favorites",
		})
		return
	}

	if err := h.repo.AddFavorite(r.Context(), user.ID, id); err != nil {
		logHandlerError("Failed to add favorite", err)
		Fail(w, http.StatusInternalServerError, "failed to update favorite")
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"action":  "added",
		"message": "Added to favorites",
	})
}

// ListFavorites returns the user's favorited products.
func (h *ProductHandler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())

	products, err := h.repo.ListFavoriteProducts(r.Context(), user.ID)
	if err != nil {
		logHandlerError("Failed to load favorites", err)
		Fail(w, http.StatusInternalServerError, "failed to load favorites")
		return
	}
	if products == nil {
		products = []*domain.Product{}
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"favorites": products,
	})
}

// SearchHistory returns the user's recent searches.
func (h *ProductHandler) SearchHistory(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())

	entries, err := h.repo.ListSearchHistory(r.Context(), user.ID, searchHistoryLimit)
	if err != nil {
		logHandlerError("Failed to load search history", err)
		Fail(w, http.StatusInternalServerError, "failed to load search history")
		return
	}
	if entries == nil {
		entries = []*domain.SearchEntry{}
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"history": entries,
	})
}
