package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/vidfetch/api/internal/model"
	"github.com/vidfetch/api/internal/progress"
	"github.com/vidfetch/api/internal/service"
	"github.com/vidfetch/api/pkg/response"
)

const statusTimeout = 3 * time.Second

// PingFunc checks that a dependency is reachable
type PingFunc func(ctx context.Context) error

type HealthHandler struct {
	videos       *service.VideoService
	store        progress.Store
	environment  string
	queueBackend string
	queuePing    PingFunc
}

// NewHealthHandler creates the health handler. queuePing may be nil when
// the queue has no external dependency.
func NewHealthHandler(videos *service.VideoService, store progress.Store, environment, queueBackend string, queuePing PingFunc) *HealthHandler {
	return &HealthHandler{
		videos:       videos,
		store:        store,
		environment:  environment,
		queueBackend: queueBackend,
		queuePing:    queuePing,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return response.OK(c, fiber.Map{"status": response.StatusOK})
}

// Status handles GET /status
func (h *HealthHandler) Status(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), statusTimeout)
	defer cancel()

	storage := check(ctx, h.videos.Backend(), h.videos.Ping)
	queue := check(ctx, h.queueBackend, h.queuePing)

	status := response.StatusOK
	if !storage.Connected || !queue.Connected {
		status = response.StatusDegraded
	}

	return response.OK(c, model.StatusResponse{
		Status:      status,
		Environment: h.environment,
		Storage:     storage,
		Queue:       queue,
		Jobs:        h.store.Len(),
	})
}

func check(ctx context.Context, backend string, ping PingFunc) model.ComponentStatus {
	st := model.ComponentStatus{Backend: backend, Connected: true}
	if ping == nil {
		return st
	}
	if err := ping(ctx); err != nil {
		st.Connected = false
		st.Error = err.Error()
	}
	return st
}
