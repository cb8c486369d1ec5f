package handler

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/vidfetch/api/internal/storage"
)

// Handlers groups everything Register mounts
type Handlers struct {
	Download *DownloadHandler
	Video    *VideoHandler
	Health   *HealthHandler
}

// RouteOptions controls the static mounts
type RouteOptions struct {
	StaticDir string
	// VideosDir is served under /videos when set
	VideosDir string
}

// Register mounts all routes on app
func Register(app *fiber.App, h Handlers, opts RouteOptions) {
	app.Get("/health", h.Health.Health)
	app.Get("/status", h.Health.Status)

	app.Get("/", h.Video.Index)
	app.Get("/api/videos", h.Video.List)
	app.Delete("/video/:filename", h.Video.Delete)

	app.Post("/download", h.Download.Submit)
	app.Get("/progress/:video_id", h.Download.Progress)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/progress/:video_id", h.Download.Watch())

	if opts.StaticDir != "" {
		app.Static("/static", opts.StaticDir)
	}
	if opts.VideosDir != "" {
		app.Static(storage.VideosMount, opts.VideosDir)
	}
}
