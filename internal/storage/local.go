package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// LocalImageStore keeps images in a directory served by the application.
type LocalImageStore struct {
	fs     afero.Fs
	dir    string
	prefix string
	logger *zap.Logger
}

// NewLocalImageStore creates dir if needed.
func NewLocalImageStore(fsys afero.Fs, dir, prefix string, logger *zap.Logger) (*LocalImageStore, error) {
	if dir == "" {
		return nil, errors.New("image directory is not configured")
	}
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create image directory: %w", err)
	}

	return &LocalImageStore{
		fs:     fsys,
		dir:    dir,
		prefix: prefix,
		logger: logger,
	}, nil
}

func (s *LocalImageStore) Save(ctx context.Context, r io.Reader, size int64, originalFilename string) (string, error) {
	if r == nil || size == 0 {
		return "", nil
	}

	name := NewImageName(originalFilename)
	target := filepath.Join(s.dir, name)

	f, err := s.fs.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create image file: %w", err)
	}

	written, copyErr := io.Copy(f, contextReader{ctx: ctx, r: r})
	closeErr := f.Close()

	if copyErr != nil || closeErr != nil || written == 0 {
		_ = s.fs.Remove(target)
		switch {
		case copyErr != nil:
			if isContextError(copyErr) {
				return "", copyErr
			}
			return "", fmt.Errorf("failed to write image file: %w", copyErr)
		case closeErr != nil:
			return "", fmt.Errorf("failed to close image file: %w", closeErr)
		default:
			return "", nil
		}
	}

	s.logger.Debug("Image saved",
		zap.String("name", name),
		zap.Int64("bytes", written),
	)

	return publicURL(s.prefix, name), nil
}

func (s *LocalImageStore) DeleteIfExists(ctx context.Context, url string) error {
	name, ok := NameFromURL(s.prefix, url)
	if !ok {
		if url != "" {
			s.logger.Debug("Image URL does not reference a stored image", zap.String("url", url))
		}
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.fs.Remove(filepath.Join(s.dir, name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete image file: %w", err)
	}

	s.logger.Debug("Image deleted", zap.String("name", name))
	return nil
}

func (s *LocalImageStore) Open(ctx context.Context, name string) (io.ReadCloser, ObjectInfo, error) {
	if !IsImageName(name) {
		return nil, ObjectInfo{}, ErrImageNotFound
	}
	if err := ctx.Err(); err != nil {
		return nil, ObjectInfo{}, err
	}

	f, err := s.fs.Open(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ObjectInfo{}, ErrImageNotFound
		}
		return nil, ObjectInfo{}, fmt.Errorf("failed to open image file: %w", err)
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, ObjectInfo{}, fmt.Errorf("failed to stat image file: %w", err)
	}

	return f, ObjectInfo{
		Name:        name,
		Size:        stat.Size(),
		ContentType: ContentType(name),
		ModTime:     stat.ModTime(),
	}, nil
}
