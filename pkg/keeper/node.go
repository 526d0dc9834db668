package keeper

import (
	"context"
	"io"
	"log"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"

	"github.com/solcron/solcron-go/pkg/registry"
)

// Node wires a monitor and an executor into one running keeper.
type Node struct {
	cfg      Config
	monitor  *Monitor
	executor *Executor
	logger   *log.Logger

	cancel context.CancelFunc
	done   chan struct{}
	start  sync.Once
	stop   sync.Once
}

// NodeOption tweaks node construction.
type NodeOption func(*nodeSettings)

type nodeSettings struct {
	clock  clockwork.Clock
	logger *log.Logger
}

// WithClock overrides the node's time source.
func WithClock(c clockwork.Clock) NodeOption {
	return func(s *nodeSettings) {
		s.clock = c
	}
}

// WithLogger sets the node's logger.
func WithLogger(l *log.Logger) NodeOption {
	return func(s *nodeSettings) {
		s.logger = l
	}
}

// NewNode builds a node for a registered keeper wallet.
func NewNode(reg *registry.Registry, source Source, cfg Config, opts ...NodeOption) (*Node, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid keeper config")
	}

	settings := &nodeSettings{
		clock:  clockwork.NewRealClock(),
		logger: log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(settings)
	}

	return &Node{
		cfg:      cfg,
		monitor:  NewMonitor(reg, source, settings.clock, cfg.PollInterval, cfg.QueueSize, settings.logger),
		executor: NewExecutor(reg, cfg, settings.logger),
		logger:   settings.logger,
		done:     make(chan struct{}),
	}, nil
}

// Start launches the scan and execution loops. Idempotent.
func (n *Node) Start() {
	n.start.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		n.cancel = cancel

		go n.monitor.Run(ctx)
		go func() {
			defer close(n.done)
			n.executor.Run(ctx, n.monitor.Requests())
		}()

		n.logger.Printf("keeper node started: wallet=%s poll=%s workers=%d", n.cfg.Wallet, n.cfg.PollInterval, n.cfg.Workers)
	})
}

// Stop halts both loops and waits for in-flight work to drain. Idempotent.
func (n *Node) Stop() {
	n.stop.Do(func() {
		if n.cancel == nil {
			return
		}
		n.cancel()
		<-n.done
		n.logger.Printf("keeper node stopped")
	})
}

// Stats reports the executor's counters.
func (n *Node) Stats() ExecutorStats {
	return n.executor.Stats()
}
