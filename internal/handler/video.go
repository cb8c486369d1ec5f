package handler

import (
	"errors"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/vidfetch/api/internal/model"
	"github.com/vidfetch/api/internal/service"
	"github.com/vidfetch/api/internal/storage"
	"github.com/vidfetch/api/pkg/response"
)

type VideoHandler struct {
	service *service.VideoService
	// inline lists videos in the index page instead of leaving it to
	// the page's call to /api/videos
	inline bool
}

func NewVideoHandler(svc *service.VideoService, inline bool) *VideoHandler {
	return &VideoHandler{
		service: svc,
		inline:  inline,
	}
}

// Index handles GET /
func (h *VideoHandler) Index(c *fiber.Ctx) error {
	videos := []model.VideoAsset{}
	if h.inline {
		listed, err := h.service.List(c.UserContext())
		if err != nil {
			log.Error().Err(err).Msg("failed to list videos for index")
		} else {
			videos = listed
		}
	}

	return c.Render("index", fiber.Map{
		"Videos":  videos,
		"Inline":  h.inline,
		"Backend": h.service.Backend(),
	})
}

// List handles GET /api/videos
func (h *VideoHandler) List(c *fiber.Ctx) error {
	videos, err := h.service.List(c.UserContext())
	if err != nil {
		log.Error().Err(err).Str("backend", h.service.Backend()).Msg("failed to list videos")
		return c.Status(fiber.StatusInternalServerError).JSON(model.VideoListResponse{
			Status: response.StatusError,
			Videos: []model.VideoAsset{},
			Error:  err.Error(),
		})
	}

	return response.OK(c, model.VideoListResponse{
		Status: response.StatusOK,
		Videos: videos,
	})
}

// Delete handles DELETE /video/:filename
func (h *VideoHandler) Delete(c *fiber.Ctx) error {
	// fiber leaves route params escaped
	filename, err := url.PathUnescape(c.Params("filename"))
	if err != nil {
		return response.ValidationError(c, "Invalid file name", nil)
	}

	err = h.service.Delete(c.UserContext(), filename)
	switch {
	case err == nil:
		log.Info().Str("filename", filename).Msg("video deleted")
		return response.Success(c)
	case errors.Is(err, storage.ErrNotFound):
		return response.FileNotFound(c)
	case errors.Is(err, storage.ErrInvalidName):
		return response.ValidationError(c, "Invalid file name", nil)
	default:
		log.Error().Err(err).Str("filename", filename).Msg("failed to delete video")
		return response.ServiceError(c, err.Error())
	}
}
