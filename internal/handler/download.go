package handler

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/vidfetch/api/internal/model"
	"github.com/vidfetch/api/internal/service"
	ws "github.com/vidfetch/api/internal/websocket"
	"github.com/vidfetch/api/pkg/response"
)

type DownloadHandler struct {
	service   *service.DownloadService
	validator *validator.Validate
	hub       *ws.Hub
}

func NewDownloadHandler(svc *service.DownloadService, v *validator.Validate, hub *ws.Hub) *DownloadHandler {
	return &DownloadHandler{
		service:   svc,
		validator: v,
		hub:       hub,
	}
}

// Submit handles POST /download
func (h *DownloadHandler) Submit(c *fiber.Ctx) error {
	var req model.DownloadRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	req.URL = strings.TrimSpace(req.URL)

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	videoID, err := h.service.Submit(c.UserContext(), req.URL)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, model.DownloadResponse{VideoID: videoID})
}

// Progress handles GET /progress/:video_id. Unknown ids are reported as
// not_found with a 200.
func (h *DownloadHandler) Progress(c *fiber.Ctx) error {
	return response.OK(c, h.service.Progress(c.Params("video_id")))
}

// Watch handles GET /ws/progress/:video_id
func (h *DownloadHandler) Watch() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		h.hub.HandleConnection(conn, conn.Params("video_id"))
	})
}
