package service

import (
	"context"

	"github.com/vidfetch/api/internal/model"
	"github.com/vidfetch/api/internal/storage"
)

// VideoService lists and deletes downloaded media
type VideoService struct {
	backend storage.Backend
}

func NewVideoService(backend storage.Backend) *VideoService {
	return &VideoService{backend: backend}
}

// Backend returns the name of the active storage backend
func (s *VideoService) Backend() string {
	return s.backend.Name()
}

// List returns the stored media files
func (s *VideoService) List(ctx context.Context) ([]model.VideoAsset, error) {
	return s.backend.List(ctx)
}

// Delete removes a media file. It returns storage.ErrNotFound when there is
// no such file.
func (s *VideoService) Delete(ctx context.Context, filename string) error {
	return s.backend.Delete(ctx, filename)
}

// Ping checks that the storage backend is reachable
func (s *VideoService) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx)
}
