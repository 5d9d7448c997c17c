package transport

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"flower-shop/internal/domain"
	"flower-shop/internal/logger"
	"flower-shop/internal/middleware"
	"flower-shop/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CategoryRequest represents the create category payload
type CategoryRequest struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
}

// Normalize trims the name and turns a blank description into nil
func (r *CategoryRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Description = trimOptional(r.Description)
}

// UpdateCategoryRequest carries the version the client last saw
type UpdateCategoryRequest struct {
	CategoryRequest
	Version int64 `json:"version" validate:"required,gte=1"`
}

// CategoryHandler handles HTTP requests for category operations
type CategoryHandler struct {
	categoryService service.CategoryService
	logger          *zap.Logger
}

// NewCategoryHandler creates a new CategoryHandler
func NewCategoryHandler(categoryService service.CategoryService, logger *zap.Logger) *CategoryHandler {
	return &CategoryHandler{
		categoryService: categoryService,
		logger:          logger,
	}
}

// RegisterRoutes registers all category routes. writeGuard wraps the mutating ones.
func (h *CategoryHandler) RegisterRoutes(r chi.Router, writeGuard func(http.Handler) http.Handler) {
	r.Route("/api/categories", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)

		r.Group(func(r chi.Router) {
			r.Use(writeGuard)
			r.Post("/", h.Create)
			r.Put("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
		})
	})
}

// List handles GET /api/categories. ?fields=options returns id/name pairs only.
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("fields") == "options" {
		options, err := h.categoryService.ListOptions(r.Context())
		if err != nil {
			middleware.RespondWithServiceError(w, logger.WithRequest(r.Context(), h.logger), err)
			return
		}
		middleware.RespondWithJSON(w, http.StatusOK, options)
		return
	}

	categories, err := h.categoryService.List(r.Context())
	if err != nil {
		middleware.RespondWithServiceError(w, logger.WithRequest(r.Context(), h.logger), err)
		return
	}

	response := make([]*CategoryResponse, 0, len(categories))
	for _, c := range categories {
		response = append(response, toCategoryResponse(c))
	}
	middleware.RespondWithJSON(w, http.StatusOK, response)
}

// Get handles GET /api/categories/{id}. ?include=flowers embeds its flowers.
func (h *CategoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var (
		category *domain.Category
		err      error
	)
	if r.URL.Query().Get("include") == "flowers" {
		category, err = h.categoryService.GetWithFlowers(r.Context(), id)
	} else {
		category, err = h.categoryService.Get(r.Context(), id)
	}
	if err != nil {
		middleware.RespondWithServiceError(w, logger.WithRequest(r.Context(), h.logger), err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toCategoryResponse(category))
}

// Create handles POST /api/categories
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Category validation failed", zap.Error(err))
		middleware.RespondWithRequestError(w, err)
		return
	}

	category := &domain.Category{Name: req.Name, Description: req.Description}
	if _, err := h.categoryService.Create(r.Context(), category); err != nil {
		middleware.RespondWithServiceError(w, logger.WithRequest(r.Context(), h.logger), err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, toCategoryResponse(category))
}

// Update handles PUT /api/categories/{id}
func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req UpdateCategoryRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Category validation failed", zap.Error(err))
		middleware.RespondWithRequestError(w, err)
		return
	}

	category := &domain.Category{ID: id, Name: req.Name, Description: req.Description}
	err := h.categoryService.Update(r.Context(), category, req.Version)
	if errors.Is(err, domain.ErrConflict) {
		h.respondWithConflict(w, r, id)
		return
	}
	if err != nil {
		middleware.RespondWithServiceError(w, logger.WithRequest(r.Context(), h.logger), err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toCategoryResponse(category))
}

// Delete handles DELETE /api/categories/{id}
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	// Report dependents up front; the service re-checks under a row lock.
	count, err := h.categoryService.CountFlowers(r.Context(), id)
	if err != nil {
		middleware.RespondWithServiceError(w, logger.WithRequest(r.Context(), h.logger), err)
		return
	}
	if count > 0 {
		middleware.RespondWithServiceError(w, h.logger, &domain.CategoryInUseError{
			CategoryID: id,
			Count:      count,
		})
		return
	}

	if err := h.categoryService.Delete(r.Context(), id); err != nil {
		middleware.RespondWithServiceError(w, logger.WithRequest(r.Context(), h.logger), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CategoryHandler) respondWithConflict(w http.ResponseWriter, r *http.Request, id int64) {
	current, err := h.categoryService.Get(r.Context(), id)
	if err != nil {
		middleware.RespondWithServiceError(w, logger.WithRequest(r.Context(), h.logger), err)
		return
	}
	middleware.RespondWithConflict(w, toCategoryResponse(current))
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
