package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/template/html/v2"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vidfetch/api/internal/config"
	"github.com/vidfetch/api/internal/extractor"
	"github.com/vidfetch/api/internal/handler"
	"github.com/vidfetch/api/internal/logs"
	"github.com/vidfetch/api/internal/middleware"
	"github.com/vidfetch/api/internal/progress"
	"github.com/vidfetch/api/internal/service"
	"github.com/vidfetch/api/internal/storage"
	ws "github.com/vidfetch/api/internal/websocket"
	"github.com/vidfetch/api/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	logger := logs.Setup(cfg.Log, "vidfetch")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Progress store + eviction
	store := progress.NewMemoryStore(cfg.Progress.TTL)
	janitor, err := progress.NewJanitor(store, cfg.Progress.Sweep)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid progress sweep schedule")
	}
	janitor.Start()

	// Storage backend
	backend := newBackend(ctx, cfg)

	// Extractor
	ytdlp := extractor.NewYtDlp(cfg.Extractor)
	if err := extractor.Install(ctx); err != nil {
		log.Warn().Err(err).Msg("yt-dlp not available, downloads will fail")
	}

	// Push hub
	hub := ws.NewHub(store.Get)
	store.SetObserver(hub.BroadcastState)
	go hub.Run(ctx)

	// Worker + dispatcher
	downloadWorker := worker.NewDownloadWorker(store, ytdlp, backend, worker.Options{
		WorkDir: cfg.WorkDir(),
		Handoff: cfg.Storage.Backend != config.StorageLocal,
	})

	var (
		dispatcher  worker.Dispatcher
		queueServer *asynq.Server
		queuePing   handler.PingFunc
	)
	switch cfg.Queue.Backend {
	case config.QueueAsynq:
		redisOpt := asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis not available")
		}
		queuePing = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}

		dispatcher = worker.NewQueueDispatcher(asynq.NewClient(redisOpt), cfg.Queue.TaskTimeout)
		queueServer = startQueueServer(redisOpt, cfg, logger, downloadWorker)
	default:
		dispatcher = worker.NewPoolDispatcher(ctx, downloadWorker)
	}

	// Services
	validate := validator.New()
	downloadService := service.NewDownloadService(store, dispatcher)
	videoService := service.NewVideoService(backend)

	// Handlers
	handlers := handler.Handlers{
		Download: handler.NewDownloadHandler(downloadService, validate, hub),
		Video:    handler.NewVideoHandler(videoService, cfg.MountVideos()),
		Health:   handler.NewHealthHandler(videoService, store, cfg.Server.Env, cfg.Queue.Backend, queuePing),
	}

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler:          handler.ErrorHandler,
		Views:                 html.New(cfg.Storage.TemplatesDir, ".html"),
		DisableStartupMessage: cfg.Server.Env == "production",
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(middleware.RequestLogger())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	routes := handler.RouteOptions{StaticDir: cfg.Storage.StaticDir}
	if cfg.MountVideos() {
		routes.VideosDir = cfg.Storage.VideosDir
	}
	handler.Register(app, handlers, routes)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info().Msg("shutting down server")
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			log.Error().Err(err).Msg("server shutdown error")
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Info().
		Str("addr", addr).
		Str("env", cfg.Server.Env).
		Str("storage", backend.Name()).
		Str("queue", cfg.Queue.Backend).
		Msg("server starting")
	if err := app.Listen(addr); err != nil {
		log.Error().Err(err).Msg("server error")
	}

	// Drain
	drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if queueServer != nil {
		queueServer.Shutdown()
	}
	if err := dispatcher.Close(drainCtx); err != nil {
		log.Warn().Err(err).Msg("jobs still running at shutdown")
	}
	janitor.Stop()
	stop()
}

// newBackend builds the configured storage backend. When that fails the
// service keeps running on the local videos directory and /status reports
// the problem.
func newBackend(ctx context.Context, cfg *config.Config) storage.Backend {
	backend, err := storage.New(ctx, cfg)
	if err != nil {
		failed := cfg.Storage.Backend
		cfg.UseLocalFallback()
		log.Warn().
			Err(err).
			Str("backend", failed).
			Str("videos_dir", cfg.Storage.VideosDir).
			Bool("serverless", cfg.Server.Serverless).
			Msg("storage backend unavailable, running degraded on local storage")
		local, lerr := storage.NewLocalBackend(cfg.Storage.VideosDir)
		if lerr != nil {
			log.Fatal().Err(lerr).Msg("failed to create local storage")
		}
		return local
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := backend.Ping(pingCtx); err != nil {
		log.Warn().Err(err).Str("backend", backend.Name()).Msg("storage backend not reachable")
	}
	return backend
}

func startQueueServer(redisOpt asynq.RedisClientOpt, cfg *config.Config, logger zerolog.Logger, w *worker.DownloadWorker) *asynq.Server {
	srv, mux := worker.NewQueueServer(
		redisOpt,
		cfg.Queue.Concurrency,
		logs.NewAsynqLogger(logger),
		logs.AsynqLevel(cfg.Log.Level),
		w,
	)

	go func() {
		if err := srv.Run(mux); err != nil {
			log.Error().Err(err).Msg("asynq worker error")
		}
	}()
	return srv
}
