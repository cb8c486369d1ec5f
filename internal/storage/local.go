package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"

	"github.com/vidfetch/api/internal/model"
)

// VideosMount is the URL prefix the local videos directory is served under
const VideosMount = "/videos"

// siblingExtensions are removed together with a video: thumbnails and
// subtitles written next to it by the extractor.
var siblingExtensions = []string{".jpg", ".png", ".vtt", ".srt"}

// LocalBackend keeps videos in a directory on disk
type LocalBackend struct {
	dir string
}

// NewLocalBackend creates the directory if needed
func NewLocalBackend(dir string) (*LocalBackend, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create videos directory %s: %w", dir, err)
	}
	return &LocalBackend{dir: dir}, nil
}

func (b *LocalBackend) Name() string {
	return "local"
}

// Save writes body to dir/key
func (b *LocalBackend) Save(ctx context.Context, key string, body io.Reader) error {
	if !validName(key) {
		return ErrInvalidName
	}

	path := filepath.Join(b.dir, key)
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create video file %s: %w", path, err)
	}
	defer file.Close()

	if _, err := io.Copy(file, body); err != nil {
		return fmt.Errorf("failed to write video file: %w", err)
	}
	return file.Close()
}

// List returns the media files in the directory
func (b *LocalBackend) List(ctx context.Context) ([]model.VideoAsset, error) {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read videos directory: %w", err)
	}

	videos := make([]model.VideoAsset, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || !isMedia(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// removed between ReadDir and Info
			continue
		}
		videos = append(videos, model.VideoAsset{
			Name:     stem(e.Name()),
			Filename: e.Name(),
			Size:     formatSize(info.Size()),
			URL:      localURL(e.Name()),
		})
	}
	return videos, nil
}

// Delete removes the video and its thumbnail/subtitle siblings
func (b *LocalBackend) Delete(ctx context.Context, filename string) error {
	if !validName(filename) {
		return ErrInvalidName
	}

	path := filepath.Join(b.dir, filename)
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete %s: %w", filename, err)
	}

	base := filepath.Join(b.dir, stem(filename))
	for _, ext := range siblingExtensions {
		sibling := base + ext
		if sibling == path {
			continue
		}
		if err := os.Remove(sibling); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to delete %s: %w", filepath.Base(sibling), err)
		}
	}
	return nil
}

// URL returns the static path the file is served under
func (b *LocalBackend) URL(ctx context.Context, filename string) (string, error) {
	if !validName(filename) {
		return "", ErrInvalidName
	}
	return localURL(filename), nil
}

// Ping checks the directory is still there
func (b *LocalBackend) Ping(ctx context.Context) error {
	info, err := os.Stat(b.dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", b.dir)
	}
	return nil
}

func localURL(filename string) string {
	return VideosMount + "/" + url.PathEscape(filename)
}
