package transport

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"flower-shop/internal/domain"
	"flower-shop/internal/logger"
	"flower-shop/internal/middleware"
	"flower-shop/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// FlowerHandler handles HTTP requests for flower operations
type FlowerHandler struct {
	flowerService  service.FlowerService
	maxUploadBytes int64
	logger         *zap.Logger
}

// NewFlowerHandler creates a new FlowerHandler
func NewFlowerHandler(flowerService service.FlowerService, maxUploadBytes int64, logger *zap.Logger) *FlowerHandler {
	return &FlowerHandler{
		flowerService:  flowerService,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// RegisterRoutes registers all flower routes. writeGuard wraps the mutating ones.
func (h *FlowerHandler) RegisterRoutes(r chi.Router, writeGuard func(http.Handler) http.Handler) {
	r.Route("/api/flowers", func(r chi.Router) {
		r.Get("/", h.Search)
		r.Get("/{id}", h.Get)

		r.Group(func(r chi.Router) {
			r.Use(writeGuard)
			r.Post("/", h.Create)
			r.Put("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
			r.Delete("/{id}/image", h.RemoveImage)
		})
	})
}

// Search handles GET /api/flowers
func (h *FlowerHandler) Search(w http.ResponseWriter, r *http.Request) {
	params, fieldErrors := parseSearchParams(r.URL.Query())
	if len(fieldErrors) > 0 {
		middleware.RespondWithValidationErrors(w, fieldErrors)
		return
	}

	result, err := h.flowerService.Search(r.Context(), params)
	if err != nil {
		middleware.RespondWithServiceError(w, logger.WithRequest(r.Context(), h.logger), err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toFlowerListResponse(result))
}

// Get handles GET /api/flowers/{id}
func (h *FlowerHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	flower, err := h.flowerService.Get(r.Context(), id)
	if err != nil {
		middleware.RespondWithServiceError(w, logger.WithRequest(r.Context(), h.logger), err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toFlowerResponse(flower))
}

// Create handles POST /api/flowers
func (h *FlowerHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, err := parseFlowerForm(w, r, h.maxUploadBytes, false)
	if err != nil {
		h.logger.Debug("Flower form rejected", zap.Error(err))
		respondWithFormError(w, err)
		return
	}
	defer req.Close()

	flower := req.Form.toDomain(0)
	id, err := h.flowerService.Create(r.Context(), flower, req.Upload)
	if err != nil {
		middleware.RespondWithServiceError(w, logger.WithRequest(r.Context(), h.logger), err)
		return
	}

	created, err := h.flowerService.Get(r.Context(), id)
	if err != nil {
		middleware.RespondWithServiceError(w, logger.WithRequest(r.Context(), h.logger), err)
		return
	}

	w.Header().Set("Location", "/api/flowers/"+strconv.FormatInt(id, 10))
	middleware.RespondWithJSON(w, http.StatusCreated, toFlowerResponse(created))
}

// Update handles PUT /api/flowers/{id}
func (h *FlowerHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	req, err := parseFlowerForm(w, r, h.maxUploadBytes, true)
	if err != nil {
		h.logger.Debug("Flower form rejected", zap.Error(err))
		respondWithFormError(w, err)
		return
	}
	defer req.Close()

	flower := req.Form.toDomain(id)

	if req.Form.KeepImage {
		current, err := h.flowerService.Get(r.Context(), id)
		if err != nil {
			middleware.RespondWithServiceError(w, logger.WithRequest(r.Context(), h.logger), err)
			return
		}
		flower.ImageURL = current.ImageURL
	}

	err = h.flowerService.Update(r.Context(), flower, req.Form.Version, req.Upload)
	if errors.Is(err, domain.ErrConflict) {
		h.respondWithConflict(w, r, id)
		return
	}
	if err != nil {
		middleware.RespondWithServiceError(w, logger.WithRequest(r.Context(), h.logger), err)
		return
	}

	updated, err := h.flowerService.Get(r.Context(), id)
	if err != nil {
		middleware.RespondWithServiceError(w, logger.WithRequest(r.Context(), h.logger), err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toFlowerResponse(updated))
}

// Delete handles DELETE /api/flowers/{id}
func (h *FlowerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.flowerService.Delete(r.Context(), id); err != nil {
		middleware.RespondWithServiceError(w, logger.WithRequest(r.Context(), h.logger), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RemoveImage handles DELETE /api/flowers/{id}/image
func (h *FlowerHandler) RemoveImage(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	_, err := h.flowerService.RemoveImage(r.Context(), id)
	if errors.Is(err, domain.ErrConflict) {
		h.respondWithConflict(w, r, id)
		return
	}
	if err != nil {
		middleware.RespondWithServiceError(w, logger.WithRequest(r.Context(), h.logger), err)
		return
	}

	updated, err := h.flowerService.Get(r.Context(), id)
	if err != nil {
		middleware.RespondWithServiceError(w, logger.WithRequest(r.Context(), h.logger), err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toFlowerResponse(updated))
}

func (h *FlowerHandler) respondWithConflict(w http.ResponseWriter, r *http.Request, id int64) {
	current, err := h.flowerService.Get(r.Context(), id)
	if err != nil {
		middleware.RespondWithServiceError(w, logger.WithRequest(r.Context(), h.logger), err)
		return
	}
	middleware.RespondWithConflict(w, toFlowerResponse(current))
}

func parseSearchParams(query url.Values) (service.SearchParams, []middleware.ValidationError) {
	var (
		params      service.SearchParams
		fieldErrors []middleware.ValidationError
	)
	fail := func(field, message string) {
		fieldErrors = append(fieldErrors, middleware.ValidationError{Field: field, Message: message})
	}

	params.Query = strings.TrimSpace(query.Get("q"))
	params.Sort = query.Get("sort")

	if raw := query.Get("categoryId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			fail("categoryId", errMustBeInteger)
		} else {
			params.CategoryID = &id
		}
	}

	for _, bound := range []struct {
		key    string
		target **decimal.Decimal
	}{
		{"minPrice", &params.MinPrice},
		{"maxPrice", &params.MaxPrice},
	} {
		raw := query.Get(bound.key)
		if raw == "" {
			continue
		}
		d, err := parseDecimal(raw)
		if err != nil {
			fail(bound.key, errMustBeNumber)
			continue
		}
		*bound.target = &d
	}

	if raw := query.Get("desc"); raw != "" {
		desc, err := parseFormBool(raw)
		if err != nil {
			fail("desc", errMustBeBoolean)
		}
		params.Descending = desc
	}

	if raw := query.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			fail("page", errMustBeInteger)
		}
		params.Page = page
	}

	if raw := query.Get("pageSize"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil {
			fail("pageSize", errMustBeInteger)
		}
		params.PageSize = size
	}

	return params, fieldErrors
}
