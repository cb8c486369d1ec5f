package service

import (
	"context"
	"errors"
	"testing"

	"github.com/vidfetch/api/internal/model"
	"github.com/vidfetch/api/internal/progress"
)

type stubDispatcher struct {
	calls []string
	err   error
}

func (d *stubDispatcher) Dispatch(ctx context.Context, url, jobID string) error {
	if d.err != nil {
		return d.err
	}
	d.calls = append(d.calls, jobID)
	return nil
}

func (d *stubDispatcher) Close(context.Context) error { return nil }

func TestJobIDDeterministic(t *testing.T) {
	a := JobID("https://www.youtube.com/watch?v=abc")
	b := JobID("https://www.youtube.com/watch?v=abc")
	c := JobID("https://www.youtube.com/watch?v=abd")

	if a != b {
		t.Errorf("same url gave different ids: %s, %s", a, b)
	}
	if a == c {
		t.Errorf("different urls gave the same id: %s", a)
	}
	if a == "" {
		t.Error("empty id")
	}
}

func TestSubmit(t *testing.T) {
	store := progress.NewMemoryStore(0)
	dispatcher := &stubDispatcher{}
	svc := NewDownloadService(store, dispatcher)

	url := "https://example.com/watch?v=1"
	id, err := svc.Submit(context.Background(), url)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if id != JobID(url) {
		t.Errorf("id = %s, want %s", id, JobID(url))
	}
	if len(dispatcher.calls) != 1 || dispatcher.calls[0] != id {
		t.Errorf("dispatcher calls = %v", dispatcher.calls)
	}
	if st := svc.Progress(id); st.Status != model.JobStatusStarting {
		t.Errorf("expected starting, got %q", st.Status)
	}
}

func TestSubmitOverwritesExistingJob(t *testing.T) {
	store := progress.NewMemoryStore(0)
	svc := NewDownloadService(store, &stubDispatcher{})

	url := "https://example.com/watch?v=1"
	id := JobID(url)
	store.Update(id, model.Downloading("80.0%", "1MB/s", "00:01"))

	if _, err := svc.Submit(context.Background(), url); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if st := store.Get(id); st != model.Starting() {
		t.Errorf("expected fresh starting state, got %+v", st)
	}
	if store.Len() != 1 {
		t.Errorf("expected one entry, got %d", store.Len())
	}
}

func TestSubmitDispatchFailure(t *testing.T) {
	store := progress.NewMemoryStore(0)
	svc := NewDownloadService(store, &stubDispatcher{err: errors.New("redis down")})

	url := "https://example.com/watch?v=1"
	if _, err := svc.Submit(context.Background(), url); err == nil {
		t.Fatal("expected error")
	}

	st := svc.Progress(JobID(url))
	if st.Status != model.JobStatusError {
		t.Fatalf("expected error state, got %q", st.Status)
	}
	if st.Error != "failed to dispatch download: redis down" {
		t.Errorf("error = %q", st.Error)
	}
}

func TestProgressUnknown(t *testing.T) {
	svc := NewDownloadService(progress.NewMemoryStore(0), &stubDispatcher{})
	if st := svc.Progress("missing"); st != model.NotFound() {
		t.Errorf("expected not_found, got %+v", st)
	}
}
