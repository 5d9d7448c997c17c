package transport

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"flower-shop/internal/domain"
	"flower-shop/internal/logger"
	"flower-shop/internal/middleware"
	"flower-shop/internal/storage"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ImageHandler serves stored flower images
type ImageHandler struct {
	images storage.ImageStore
	prefix string
	logger *zap.Logger
}

// NewImageHandler creates a new ImageHandler mounted under prefix
func NewImageHandler(images storage.ImageStore, prefix string, logger *zap.Logger) *ImageHandler {
	if prefix == "" {
		prefix = storage.DefaultPublicPrefix
	}
	return &ImageHandler{images: images, prefix: prefix, logger: logger}
}

// RegisterRoutes registers the image route
func (h *ImageHandler) RegisterRoutes(r chi.Router) {
	r.Get(h.prefix+"/{name}", h.Serve)
}

// Serve handles GET /images/{name}
func (h *ImageHandler) Serve(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	body, info, err := h.images.Open(r.Context(), name)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "image not found")
			return
		}
		middleware.RespondWithServiceError(w, logger.WithRequest(r.Context(), h.logger), err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", info.ContentType)
	// Names are never reused, so the content behind one never changes.
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")

	if seeker, ok := body.(io.ReadSeeker); ok {
		http.ServeContent(w, r, info.Name, info.ModTime, seeker)
		return
	}

	if info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Debug("Image copy interrupted", zap.String("name", name), zap.Error(err))
	}
}
