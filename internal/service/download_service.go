package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vidfetch/api/internal/model"
	"github.com/vidfetch/api/internal/progress"
	"github.com/vidfetch/api/internal/worker"
)

// DownloadService accepts download jobs and reports their progress
type DownloadService struct {
	store      progress.Store
	dispatcher worker.Dispatcher
}

func NewDownloadService(store progress.Store, dispatcher worker.Dispatcher) *DownloadService {
	return &DownloadService{
		store:      store,
		dispatcher: dispatcher,
	}
}

// JobID derives the job id of a URL. The same URL always maps to the same
// id, so resubmitting it replaces the previous job's state.
func JobID(url string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(url)).String()
}

// Submit starts a download of url and returns its job id without waiting
// for the job.
func (s *DownloadService) Submit(ctx context.Context, url string) (string, error) {
	jobID := JobID(url)

	if prev := s.store.Get(jobID); prev.Status != model.JobStatusNotFound && !prev.IsTerminal() {
		log.Warn().
			Str("job_id", jobID).
			Str("url", url).
			Str("status", string(prev.Status)).
			Msg("resubmitted url while its job is still running, overwriting state")
	}

	s.store.Create(jobID)

	if err := s.dispatcher.Dispatch(ctx, url, jobID); err != nil {
		err = fmt.Errorf("failed to dispatch download: %w", err)
		s.store.Update(jobID, model.Failed(err.Error()))
		return "", err
	}

	log.Info().Str("job_id", jobID).Str("url", url).Msg("download submitted")
	return jobID, nil
}

// Progress returns the current state of a job
func (s *DownloadService) Progress(jobID string) model.JobState {
	return s.store.Get(jobID)
}
