package e2e

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/template/html/v2"

	"github.com/vidfetch/api/internal/extractor"
	"github.com/vidfetch/api/internal/handler"
	"github.com/vidfetch/api/internal/middleware"
	"github.com/vidfetch/api/internal/model"
	"github.com/vidfetch/api/internal/progress"
	"github.com/vidfetch/api/internal/service"
	"github.com/vidfetch/api/internal/storage"
	ws "github.com/vidfetch/api/internal/websocket"
	"github.com/vidfetch/api/internal/worker"
)

// testApp holds all components needed for testing
type testApp struct {
	app   *fiber.App
	store *progress.MemoryStore
	dir   string
}

type appOptions struct {
	extractor extractor.Extractor
	backend   storage.Backend
	queuePing handler.PingFunc
}

// fakeExtractor "downloads" by writing a small file named after the title.
type fakeExtractor struct {
	title string
	err   error
}

func (f *fakeExtractor) Probe(ctx context.Context, url string) (*extractor.Info, error) {
	return &extractor.Info{Title: f.title, Duration: 30}, nil
}

func (f *fakeExtractor) Download(ctx context.Context, url, dir string, hook extractor.Hook) (*extractor.Result, error) {
	hook(extractor.Progress{Status: extractor.StatusDownloading, Percent: " 50.0%", Speed: "1.00MiB/s", ETA: "00:01"})
	if f.err != nil {
		return nil, f.err
	}
	path := filepath.Join(dir, f.title+".mp4")
	if err := os.WriteFile(path, []byte("fake video"), 0644); err != nil {
		return nil, err
	}
	hook(extractor.Progress{Status: extractor.StatusFinished, Filename: path})
	return &extractor.Result{Filename: path}, nil
}

// syncDispatcher runs jobs before Dispatch returns so tests can assert on
// the final state right away.
type syncDispatcher struct {
	runner worker.Runner
}

func (d *syncDispatcher) Dispatch(ctx context.Context, url, jobID string) error {
	d.runner.Run(context.Background(), url, jobID)
	return nil
}

func (d *syncDispatcher) Close(context.Context) error { return nil }

// brokenBackend fails every call
type brokenBackend struct{}

var errBackendDown = errors.New("backend down")

func (brokenBackend) Name() string                                     { return "s3" }
func (brokenBackend) Save(context.Context, string, io.Reader) error    { return errBackendDown }
func (brokenBackend) List(context.Context) ([]model.VideoAsset, error) { return nil, errBackendDown }
func (brokenBackend) Delete(context.Context, string) error             { return errBackendDown }
func (brokenBackend) URL(context.Context, string) (string, error)      { return "", errBackendDown }
func (brokenBackend) Ping(context.Context) error                       { return errBackendDown }

// setupApp creates a Fiber app wired like main.go, with a local backend in
// a temp directory and a fake extractor.
func setupApp(t *testing.T, opts appOptions) *testApp {
	t.Helper()

	dir := t.TempDir()

	backend := opts.backend
	if backend == nil {
		local, err := storage.NewLocalBackend(dir)
		if err != nil {
			t.Fatalf("failed to create local backend: %v", err)
		}
		backend = local
	}
	ext := opts.extractor
	if ext == nil {
		ext = &fakeExtractor{title: "Test Clip"}
	}

	store := progress.NewMemoryStore(0)
	hub := ws.NewHub(store.Get)
	store.SetObserver(hub.BroadcastState)

	_, local := backend.(*storage.LocalBackend)
	downloadWorker := worker.NewDownloadWorker(store, ext, backend, worker.Options{
		WorkDir: dir,
		Handoff: !local,
	})

	validate := validator.New()
	downloadService := service.NewDownloadService(store, &syncDispatcher{runner: downloadWorker})
	videoService := service.NewVideoService(backend)

	handlers := handler.Handlers{
		Download: handler.NewDownloadHandler(downloadService, validate, hub),
		Video:    handler.NewVideoHandler(videoService, local),
		Health:   handler.NewHealthHandler(videoService, store, "test", "pool", opts.queuePing),
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handler.ErrorHandler,
		Views:        html.New("../templates", ".html"),
	})
	app.Use(recover.New())
	app.Use(middleware.RequestLogger())

	routes := handler.RouteOptions{StaticDir: "../static"}
	if local {
		routes.VideosDir = dir
	}
	handler.Register(app, handlers, routes)

	return &testApp{app: app, store: store, dir: dir}
}

// doRequest is a helper to perform HTTP requests against the test app.
func doRequest(app *fiber.App, method, path string, body string, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return app.Test(req, -1)
}

// postForm submits form fields the way the index page does.
func postForm(app *fiber.App, path string, fields url.Values) (*http.Response, error) {
	return doRequest(app, http.MethodPost, path, fields.Encode(), map[string]string{
		"Content-Type": "application/x-www-form-urlencoded",
	})
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

// writeVideo puts a file into the app's videos directory.
func writeVideo(t *testing.T, ta *testApp, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(ta.dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
}
