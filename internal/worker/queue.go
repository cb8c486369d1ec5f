package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/vidfetch/api/internal/model"
)

const (
	TaskTypeDownload = "download:process"
	QueueDownloads   = "downloads"

	defaultTaskTimeout = 24 * time.Hour
)

// QueueDispatcher enqueues jobs on asynq. They are picked up by the server
// returned from NewQueueServer.
type QueueDispatcher struct {
	client  *asynq.Client
	timeout time.Duration
}

// NewQueueDispatcher creates a dispatcher whose tasks may run for up to
// timeout. asynq cancels the task context after it, so it has to outlast
// the longest download.
func NewQueueDispatcher(client *asynq.Client, timeout time.Duration) *QueueDispatcher {
	if timeout <= 0 {
		timeout = defaultTaskTimeout
	}
	return &QueueDispatcher{client: client, timeout: timeout}
}

func (d *QueueDispatcher) Dispatch(ctx context.Context, url, jobID string) error {
	task, err := NewDownloadTask(url, jobID)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	_, err = d.client.EnqueueContext(ctx, task, taskOptions(d.timeout)...)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}

// taskOptions are the enqueue options of a download task. Failures are
// recorded in the job state, so a retry would only overwrite the error with
// another attempt's progress.
func taskOptions(timeout time.Duration) []asynq.Option {
	return []asynq.Option{
		asynq.Queue(QueueDownloads),
		asynq.MaxRetry(0),
		asynq.Timeout(timeout),
		asynq.Retention(24 * time.Hour),
	}
}

func (d *QueueDispatcher) Close(context.Context) error {
	return d.client.Close()
}

// NewDownloadTask builds the asynq task for one download
func NewDownloadTask(url, jobID string) (*asynq.Task, error) {
	data, err := json.Marshal(model.DownloadTaskPayload{URL: url, VideoID: jobID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeDownload, data), nil
}

// NewQueueServer creates the asynq server and handler mux for download tasks
func NewQueueServer(redisOpt asynq.RedisClientOpt, concurrency int, logger asynq.Logger, level asynq.LogLevel, w *DownloadWorker) (*asynq.Server, *asynq.ServeMux) {
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			QueueDownloads: 1,
		},
		Logger:   logger,
		LogLevel: level,
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTypeDownload, w.ProcessTask)

	return srv, mux
}
