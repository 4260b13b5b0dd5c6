package ratelimit

import (
	"context"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/R3E-Network/chirp/internal/app/system"
	"github.com/R3E-Network/chirp/internal/logging"
)

const defaultJanitorSpec = "@every 1m"

var _ system.Service = (*Janitor)(nil)

// Janitor periodically evicts stale buckets from a Memory limiter.
type Janitor struct {
	limiter *Memory
	spec    string
	log     *logging.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

// NewJanitor creates a janitor running on a cron spec such as "@every 1m".
func NewJanitor(limiter *Memory, spec string, log *logging.Logger) *Janitor {
	if spec == "" {
		spec = defaultJanitorSpec
	}
	if log == nil {
		log = logging.NewDefault("ratelimit-janitor")
	}
	return &Janitor{limiter: limiter, spec: spec, log: log}
}

func (j *Janitor) Name() string { return "ratelimit-janitor" }

func (j *Janitor) Start(context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cron != nil {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(j.spec, j.sweep); err != nil {
		return err
	}
	c.Start()
	j.cron = c
	j.log.WithField("spec", j.spec).Info("rate limit janitor started")
	return nil
}

func (j *Janitor) Stop(ctx context.Context) error {
	j.mu.Lock()
	c := j.cron
	j.cron = nil
	j.mu.Unlock()
	if c == nil {
		return nil
	}

	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	j.log.Info("rate limit janitor stopped")
	return nil
}

func (j *Janitor) sweep() {
	if removed := j.limiter.Cleanup(); removed > 0 {
		j.log.WithField("removed", removed).Debug("evicted stale rate limit buckets")
	}
}
