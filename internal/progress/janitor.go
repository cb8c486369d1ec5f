package progress

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Janitor periodically evicts finished jobs from a Store.
type Janitor struct {
	cron  *cron.Cron
	store Store
}

// NewJanitor schedules store sweeps on the given cron spec, e.g. "@every 1m".
func NewJanitor(store Store, spec string) (*Janitor, error) {
	j := &Janitor{
		cron:  cron.New(),
		store: store,
	}
	if _, err := j.cron.AddFunc(spec, j.sweep); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", spec, err)
	}
	return j, nil
}

func (j *Janitor) Start() {
	j.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to return.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}

func (j *Janitor) sweep() {
	if n := j.store.Sweep(time.Now()); n > 0 {
		log.Debug().Int("evicted", n).Int("remaining", j.store.Len()).Msg("progress entries evicted")
	}
}
