package keeper

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/solcron/solcron-go/pkg/registry"
	"github.com/solcron/solcron-go/pkg/trigger"
	"github.com/solcron/solcron-go/pkg/types"
)

// Priority orders execution requests within a scan. Condition and log
// windows can close before the next scan, so they jump time-based work.
type Priority uint8

const (
	PriorityNormal Priority = iota
	PriorityHigh
)

// Request is one eligible job surfaced by the monitor for a worker to
// settle.
type Request struct {
	ID           string
	JobID        types.JobID
	Instruction  string
	GasLimit     uint64
	Priority     Priority
	Observations trigger.Observations
	EnqueuedAt   time.Time
}

// Monitor scans the registry on an interval and emits execution requests
// for jobs whose triggers currently hold.
type Monitor struct {
	reg    *registry.Registry
	source Source
	clock  clockwork.Clock
	logger *log.Logger

	interval time.Duration
	out      chan Request
}

func NewMonitor(reg *registry.Registry, source Source, clock clockwork.Clock, interval time.Duration, queueSize int, logger *log.Logger) *Monitor {
	return &Monitor{
		reg:      reg,
		source:   source,
		clock:    clock,
		logger:   logger,
		interval: interval,
		out:      make(chan Request, queueSize),
	}
}

// Requests is the channel of eligible work. Closed when Run returns.
func (m *Monitor) Requests() <-chan Request {
	return m.out
}

// Run scans until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	defer close(m.out)

	ticker := m.clock.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			m.scan(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (m *Monitor) scan(ctx context.Context) {
	now := m.clock.Now().Unix()
	found := 0

	err := m.reg.EachActiveJob(ctx, func(job types.AutomationJob) bool {
		trig, err := job.Trigger()
		if err != nil {
			m.logger.Printf("job %d: skipping undecodable trigger: %s", job.JobID, err)
			return true
		}

		obs := m.source.Observations(job)
		if !trigger.Evaluate(trig, now, job.LastExecution, obs) {
			return true
		}

		req := Request{
			ID:           uuid.New().String(),
			JobID:        job.JobID,
			Instruction:  job.TargetInstruction,
			GasLimit:     job.GasLimit,
			Priority:     priorityFor(trig.Type),
			Observations: obs,
			EnqueuedAt:   m.clock.Now(),
		}

		select {
		case m.out <- req:
			found++
		default:
			// queue full; the job stays eligible and the next scan
			// picks it up
			m.logger.Printf("job %d: request queue full, deferring", job.JobID)
		}
		return true
	})
	if err != nil {
		m.logger.Printf("scan failed: %s", err)
		return
	}

	if found > 0 {
		m.logger.Printf("scan found %d eligible job(s)", found)
	}
}

func priorityFor(tt types.TriggerType) Priority {
	switch tt {
	case types.ConditionalTrigger, types.LogTrigger, types.HybridTrigger:
		return PriorityHigh
	default:
		return PriorityNormal
	}
}
