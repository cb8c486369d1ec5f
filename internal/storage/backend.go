package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/vidfetch/api/internal/config"
	"github.com/vidfetch/api/internal/model"
)

var (
	ErrNotFound    = errors.New("file not found")
	ErrInvalidName = errors.New("invalid file name")
)

// mediaExtensions are the files surfaced by List
var mediaExtensions = map[string]bool{
	".mp4":  true,
	".flv":  true,
	".webm": true,
}

// Backend stores finished downloads. Both implementations expose the same
// contract so callers never need to know which one is active.
type Backend interface {
	Name() string
	Save(ctx context.Context, key string, body io.Reader) error
	List(ctx context.Context) ([]model.VideoAsset, error)
	Delete(ctx context.Context, filename string) error
	URL(ctx context.Context, filename string) (string, error)
	Ping(ctx context.Context) error
}

var (
	_ Backend = (*LocalBackend)(nil)
	_ Backend = (*S3Backend)(nil)
)

// New builds the backend selected by configuration
func New(ctx context.Context, cfg *config.Config) (Backend, error) {
	switch cfg.Storage.Backend {
	case config.StorageLocal:
		return NewLocalBackend(cfg.Storage.VideosDir)
	case config.StorageS3:
		return NewS3Backend(ctx, &cfg.S3)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func isMedia(name string) bool {
	return mediaExtensions[strings.ToLower(path.Ext(name))]
}

func stem(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func formatSize(bytes int64) string {
	return fmt.Sprintf("%.2f MB", float64(bytes)/(1024*1024))
}

// validName rejects anything that could escape the storage root
func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}
