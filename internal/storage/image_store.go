// Package storage keeps uploaded flower images and maps them to public URLs.
//
// File names are always generated (32 hex characters plus the lower-cased
// original extension), so user input never reaches a path on disk or a key in
// the bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"regexp"
	"strings"
	"time"

	"flower-shop/internal/config"
	"flower-shop/internal/domain"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const DefaultPublicPrefix = "/images"

var ErrImageNotFound = fmt.Errorf("image %w", domain.ErrNotFound)

var (
	generatedName = regexp.MustCompile(`^[0-9a-f]{32}(\.[a-z0-9]{1,10})?$`)
	safeExt       = regexp.MustCompile(`^\.[a-z0-9]{1,10}$`)
)

// ObjectInfo describes a stored image.
type ObjectInfo struct {
	Name        string
	Size        int64
	ContentType string
	ModTime     time.Time
}

// ImageStore is the image lifecycle manager used by the flower service.
type ImageStore interface {
	// Save stores the payload under a fresh name and returns its public URL.
	// An empty payload stores nothing and returns "".
	Save(ctx context.Context, r io.Reader, size int64, originalFilename string) (string, error)
	// DeleteIfExists removes the image behind url. Empty URLs, URLs that do
	// not name a generated image, and already missing files are not errors.
	DeleteIfExists(ctx context.Context, url string) error
	// Open returns the stored image for serving. The caller closes the reader.
	Open(ctx context.Context, name string) (io.ReadCloser, ObjectInfo, error)
}

// New builds the store selected by cfg.Backend.
func New(ctx context.Context, cfg config.ImageConfig, minioCfg config.MinioConfig, logger *zap.Logger) (ImageStore, error) {
	switch cfg.Backend {
	case "", "local":
		return NewLocalImageStore(afero.NewOsFs(), cfg.Dir, cfg.PublicPrefix, logger)
	case "minio":
		return NewMinioImageStore(ctx, minioCfg, cfg.PublicPrefix, logger)
	default:
		return nil, fmt.Errorf("unknown image backend %q", cfg.Backend)
	}
}

// NewImageName generates a collision-free file name keeping the original
// extension when it looks sane.
func NewImageName(originalFilename string) string {
	name := strings.ReplaceAll(uuid.NewString(), "-", "")
	ext := strings.ToLower(path.Ext(strings.ReplaceAll(originalFilename, `\`, "/")))
	if safeExt.MatchString(ext) {
		name += ext
	}
	return name
}

// IsImageName reports whether name has the shape produced by NewImageName.
func IsImageName(name string) bool {
	return generatedName.MatchString(name)
}

// NameFromURL extracts the generated image name from a URL built by
// publicURL with the same prefix. Anything else, including absolute URLs and
// nested paths, is not one of our images.
func NameFromURL(prefix, raw string) (string, bool) {
	name, ok := strings.CutPrefix(strings.TrimSpace(raw), publicPrefix(prefix)+"/")
	if !ok || !IsImageName(name) {
		return "", false
	}
	return name, true
}

// ContentType guesses the MIME type from the image name.
func ContentType(name string) string {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func publicPrefix(prefix string) string {
	if prefix = strings.TrimRight(prefix, "/"); prefix == "" {
		return DefaultPublicPrefix
	}
	return prefix
}

func publicURL(prefix, name string) string {
	return publicPrefix(prefix) + "/" + name
}

// contextReader stops a copy as soon as the request context is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr contextReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
