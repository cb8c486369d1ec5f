package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vidfetch/api/internal/extractor"
	"github.com/vidfetch/api/internal/model"
	"github.com/vidfetch/api/internal/progress"
	"github.com/vidfetch/api/internal/storage"
)

const notAvailable = "N/A"

var keyReplacer = strings.NewReplacer("/", "_", `\`, "_")

// Options controls where downloads land
type Options struct {
	// WorkDir is the directory the extractor writes into.
	WorkDir string
	// Handoff uploads the finished file to the backend and removes the local
	// copy. It is off when WorkDir already is the backend's directory.
	Handoff bool
}

// DownloadWorker runs download jobs end to end
type DownloadWorker struct {
	store     progress.Store
	extractor extractor.Extractor
	backend   storage.Backend
	opts      Options
}

// NewDownloadWorker creates a new download worker
func NewDownloadWorker(store progress.Store, ext extractor.Extractor, backend storage.Backend, opts Options) *DownloadWorker {
	return &DownloadWorker{
		store:     store,
		extractor: ext,
		backend:   backend,
		opts:      opts,
	}
}

// Run downloads url and records every state change under jobID. Failures
// end up in the store as an error state; Run itself never fails.
func (w *DownloadWorker) Run(ctx context.Context, url, jobID string) {
	logger := log.With().Str("job_id", jobID).Str("url", url).Logger()

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("download job panicked")
			w.failJob(jobID, fmt.Sprintf("internal error: %v", r))
		}
	}()

	logger.Info().Msg("starting download job")
	if err := w.process(ctx, url, jobID, logger); err != nil {
		logger.Error().Err(err).Msg("download job failed")
		w.failJob(jobID, err.Error())
		return
	}
	logger.Info().Msg("download job completed")
}

// ProcessTask handles queued download tasks
func (w *DownloadWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload model.DownloadTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %v: %w", err, asynq.SkipRetry)
	}

	w.Run(ctx, payload.URL, payload.VideoID)
	return nil
}

func (w *DownloadWorker) process(ctx context.Context, url, jobID string, logger zerolog.Logger) error {
	// Step 1: metadata
	info, err := w.extractor.Probe(ctx, url)
	if err != nil {
		return err
	}
	w.store.Merge(jobID, func(st *model.JobState) {
		st.Status = model.JobStatusStarting
		st.Title = info.Title
		st.Duration = info.Duration
	})

	// Step 2: download
	if err := os.MkdirAll(w.opts.WorkDir, 0755); err != nil {
		return fmt.Errorf("failed to create download directory: %w", err)
	}
	result, err := w.extractor.Download(ctx, url, w.opts.WorkDir, func(p extractor.Progress) {
		w.updateProgress(jobID, p)
	})
	if err != nil {
		return err
	}
	if st := w.store.Get(jobID); !st.IsTerminal() {
		w.store.Update(jobID, model.Finished(result.Filename))
	}

	// Step 3: hand the file to the object store
	if !w.opts.Handoff {
		return nil
	}
	return w.handOff(ctx, info.Title, result.Filename, logger)
}

func (w *DownloadWorker) updateProgress(jobID string, p extractor.Progress) {
	switch p.Status {
	case extractor.StatusDownloading:
		w.store.Update(jobID, downloadingState(p))
	case extractor.StatusFinished:
		w.store.Update(jobID, model.Finished(p.Filename))
	}
}

func (w *DownloadWorker) handOff(ctx context.Context, title, path string, logger zerolog.Logger) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open downloaded file: %w", err)
	}

	key := ObjectKey(title)
	err = w.backend.Save(ctx, key, file)
	file.Close()
	if err != nil {
		return err
	}
	logger.Info().Str("key", key).Str("backend", w.backend.Name()).Msg("uploaded download")

	if err := os.Remove(path); err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("failed to remove local copy")
	}
	return nil
}

func (w *DownloadWorker) failJob(jobID, errMsg string) {
	w.store.Update(jobID, model.Failed(errMsg))
}

// downloadingState turns a raw progress report into the stored state
func downloadingState(p extractor.Progress) model.JobState {
	if p.Err != nil {
		return model.Downloading("0%", notAvailable, notAvailable)
	}

	percent := progress.Normalize(orDefault(p.Percent, "0%"))
	if !strings.HasSuffix(percent, "%") {
		percent = "0%"
	}
	return model.Downloading(
		percent,
		progress.Normalize(orDefault(p.Speed, notAvailable)),
		progress.Normalize(orDefault(p.ETA, notAvailable)),
	)
}

// ObjectKey is the object store key a download with the given title is
// saved under.
func ObjectKey(title string) string {
	return keyReplacer.Replace(title) + ".mp4"
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
