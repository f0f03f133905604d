package analytics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Pruner periodically deletes prediction events past the retention window.
type Pruner struct {
	recorder  *Recorder
	retention time.Duration
	logger    *zap.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	started bool
}

// NewPruner schedules pruning on a standard five-field cron spec.
func NewPruner(rc *Recorder, retention time.Duration, spec string, logger *zap.Logger) (*Pruner, error) {
	if retention <= 0 {
		return nil, fmt.Errorf("retention must be positive, got %s", retention)
	}

	p := &Pruner{
		recorder:  rc,
		retention: retention,
		logger:    logger,
		cron:      cron.New(cron.WithLocation(time.UTC)),
	}
	if _, err := p.cron.AddFunc(spec, p.RunOnce); err != nil {
		return nil, fmt.Errorf("add cron job %q: %w", spec, err)
	}
	return p, nil
}

// RunOnce prunes immediately.
func (p *Pruner) RunOnce() {
	n, err := p.recorder.Prune(context.Background(), p.retention)
	if err != nil {
		p.logger.Warn("Pruning prediction events failed", zap.Error(err))
		return
	}
	p.logger.Info("Pruned prediction events", zap.Int64("deleted", n), zap.Duration("retention", p.retention))
}

func (p *Pruner) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		p.cron.Start()
		p.started = true
	}
}

// Stop halts the schedule and waits for a running prune to finish.
func (p *Pruner) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		<-p.cron.Stop().Done()
		p.started = false
	}
}
