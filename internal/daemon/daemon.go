package daemon

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/benaskins/vigil/internal/audit"
	"github.com/benaskins/vigil/internal/chainsync"
	"github.com/benaskins/vigil/internal/config"
	"github.com/benaskins/vigil/internal/logbuf"
	"github.com/benaskins/vigil/internal/proc"
	"github.com/benaskins/vigil/internal/rpc"
	"github.com/benaskins/vigil/internal/updater"
)

const (
	// defaultDrainInterval is how often process output queues are drained
	// into the retained history.
	defaultDrainInterval = 100 * time.Millisecond

	// defaultPollInterval is how often the node RPC is polled for chain state.
	defaultPollInterval = 5 * time.Second

	// defaultStopGrace is how long a node is given to exit after an
	// acknowledged RPC stop before it is terminated anyway.
	defaultStopGrace = 60 * time.Second

	// stopPollInterval is how often liveness is re-checked while waiting
	// out an RPC-initiated shutdown.
	stopPollInterval = 500 * time.Millisecond

	// historyLines is how many drained lines are retained per process for
	// log queries.
	historyLines = logbuf.DefaultCapacity
)

// Process names accepted by Logs and reported in Status and audit entries.
const (
	NodeName    = "node"
	IndexerName = "indexer"
)

// procState is everything the daemon tracks for one managed process.
type procState struct {
	queue     *logbuf.Queue
	history   *logbuf.Ring
	handle    *proc.Handle
	startedAt time.Time
}

func newProcState() procState {
	return procState{
		queue:   logbuf.NewQueue(logbuf.DefaultCapacity),
		history: logbuf.NewRing(historyLines),
	}
}

func (s *procState) running() bool {
	return s.handle != nil && s.handle.Running()
}

// Daemon supervises the node and indexer processes: it launches them,
// drains their output, polls the node RPC for sync state, and stages
// their shutdown.
type Daemon struct {
	cfg     *config.Config
	rpc     *rpc.Client
	tracker *chainsync.Tracker
	audit   *audit.Logger
	updater *updater.Manager
	logger  *slog.Logger

	drainInterval time.Duration
	pollInterval  time.Duration
	stopGrace     time.Duration

	mu              sync.Mutex
	node            procState
	indexer         procState
	chain           rpc.ChainInfo
	chainKnown      bool
	nodeSynced      bool
	lastRPCError    string
	updateAvailable bool
	pollInFlight    bool

	stops sync.WaitGroup
}

// New creates a daemon for the given configuration.
func New(cfg *config.Config, opts ...Option) *Daemon {
	d := &Daemon{
		cfg:           cfg,
		rpc:           rpc.NewClient(),
		tracker:       &chainsync.Tracker{},
		logger:        slog.With("component", "daemon"),
		drainInterval: defaultDrainInterval,
		pollInterval:  defaultPollInterval,
		stopGrace:     defaultStopGrace,
		node:          newProcState(),
		indexer:       newProcState(),
	}
	d.updater = &updater.Manager{
		BinariesDst:  cfg.BinariesDir,
		DownloadsDir: cfg.DownloadsDir,
		BuilderPath:  updater.DefaultBuilderPath,
		Logger:       d.logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Option configures the daemon.
type Option func(*Daemon)

// WithAudit sets the audit logger. Without it, audit entries are dropped.
func WithAudit(a *audit.Logger) Option {
	return func(d *Daemon) {
		d.audit = a
	}
}

// WithRPCClient sets the node RPC client.
func WithRPCClient(c *rpc.Client) Option {
	return func(d *Daemon) {
		d.rpc = c
	}
}

// WithUpdater sets the binary update manager.
func WithUpdater(m *updater.Manager) Option {
	return func(d *Daemon) {
		d.updater = m
	}
}

// WithIntervals overrides the drain and RPC poll intervals.
func WithIntervals(drain, poll time.Duration) Option {
	return func(d *Daemon) {
		d.drainInterval = drain
		d.pollInterval = poll
	}
}

// WithStopGrace overrides how long an RPC-acknowledged node shutdown may
// take before the process is terminated.
func WithStopGrace(grace time.Duration) Option {
	return func(d *Daemon) {
		d.stopGrace = grace
	}
}

// Start runs the supervision loop until the context is cancelled: a fast
// ticker drains process output, a slow one polls the node RPC. RPC calls
// run off the loop goroutine so a slow node never stalls output draining.
func (d *Daemon) Start(ctx context.Context) error {
	drain := time.NewTicker(d.drainInterval)
	defer drain.Stop()
	poll := time.NewTicker(d.pollInterval)
	defer poll.Stop()

	d.logger.Info("supervision loop started",
		"drain_interval", d.drainInterval, "poll_interval", d.pollInterval)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-drain.C:
			d.drainOnce()
		case <-poll.C:
			d.pollChain(ctx)
		}
	}
}

// drainOnce moves queued output to the retained history, feeds indexer
// lines to the sync tracker, and detects process exits.
func (d *Daemon) drainOnce() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if lines := d.node.queue.Drain(); lines != nil {
		d.node.history.Append(lines...)
	}
	if lines := d.indexer.queue.Drain(); lines != nil {
		d.indexer.history.Append(lines...)
		wasSynced := d.tracker.IndexerSynced()
		for _, line := range lines {
			d.tracker.ObserveIndexerLine(line)
		}
		if !wasSynced && d.tracker.IndexerSynced() {
			d.logger.Info("indexer reached chain tip")
		}
	}

	if d.node.handle != nil && !d.node.handle.Running() {
		code, signal := d.node.handle.ExitState()
		d.logger.Info("node exited", "code", code, "signal", signal)
		d.node.handle = nil
		d.nodeSynced = false
		d.chainKnown = false
		d.chain = rpc.ChainInfo{}
		// A dead node invalidates everything the indexer reported.
		d.tracker.Reset()
		d.node.queue.Push("bitcoind has stopped.")
	}
	if d.indexer.handle != nil && !d.indexer.handle.Running() {
		code, signal := d.indexer.handle.ExitState()
		d.logger.Info("indexer exited", "code", code, "signal", signal)
		d.indexer.handle = nil
		d.tracker.Reset()
		d.indexer.queue.Push("electrs has stopped.")
	}
}

// pollChain queries getblockchaininfo in the background. Overlapping
// polls are skipped rather than queued.
func (d *Daemon) pollChain(ctx context.Context) {
	d.mu.Lock()
	if d.pollInFlight || !d.node.running() {
		d.mu.Unlock()
		return
	}
	d.pollInFlight = true
	dataDir := d.cfg.NodeDataDir
	d.mu.Unlock()

	go func() {
		auth := rpc.ResolveAuth(dataDir)
		info, err := d.rpc.ChainInfo(ctx, auth)

		d.mu.Lock()
		defer d.mu.Unlock()
		d.pollInFlight = false
		if err != nil {
			d.lastRPCError = err.Error()
			return
		}
		d.lastRPCError = ""
		d.chain = info
		d.chainKnown = true
		d.nodeSynced = chainsync.NodeSynced(info.Blocks, info.Headers, info.VerificationProgress)
	}()
}

func (d *Daemon) auditLog(entry audit.Entry) {
	if d.audit == nil {
		return
	}
	if err := d.audit.Log(entry); err != nil {
		d.logger.Warn("audit write failed", "error", err)
	}
}
