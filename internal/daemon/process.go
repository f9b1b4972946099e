package daemon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benaskins/vigil/internal/audit"
	"github.com/benaskins/vigil/internal/logbuf"
	"github.com/benaskins/vigil/internal/proc"
	"github.com/benaskins/vigil/internal/rpc"
)

// StartNode launches bitcoind. The node data directory gets a generated
// bitcoin.conf on first launch.
func (d *Daemon) StartNode() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.node.running() {
		return fmt.Errorf("bitcoind is already running (pid %d)", d.node.handle.PID())
	}

	if err := rpc.EnsureNodeConf(d.cfg.NodeDataDir); err != nil {
		d.node.queue.Push(fmt.Sprintf("Launch error: %v", err))
		return fmt.Errorf("preparing node config: %w", err)
	}

	h, err := proc.StartNode(d.cfg.BinariesDir, d.cfg.NodeDataDir, d.node.queue)
	if err != nil {
		d.node.queue.Push(fmt.Sprintf("Launch error: %v", err))
		d.auditLog(audit.Entry{Action: audit.ActionLaunch, Process: NodeName, Error: err.Error()})
		return err
	}

	d.node.handle = h
	d.node.startedAt = time.Now()
	d.logger.Info("node launched", "pid", h.PID())
	d.auditLog(audit.Entry{
		Action:  audit.ActionLaunch,
		Process: NodeName,
		Detail:  fmt.Sprintf("pid %d", h.PID()),
	})
	return nil
}

// StartIndexer launches electrs. The node must already be running; the
// indexer cannot make progress against a dead daemon dir, so nothing is
// spawned when the precondition fails.
func (d *Daemon) StartIndexer() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.indexer.running() {
		return fmt.Errorf("electrs is already running (pid %d)", d.indexer.handle.PID())
	}
	if !d.node.running() {
		return errors.New("bitcoind is not running; start the node before the indexer")
	}

	h, err := proc.StartIndexer(d.cfg.BinariesDir, d.cfg.NodeDataDir, d.cfg.IndexerDBDir, d.indexer.queue)
	if err != nil {
		d.indexer.queue.Push(fmt.Sprintf("Launch error: %v", err))
		d.auditLog(audit.Entry{Action: audit.ActionLaunch, Process: IndexerName, Error: err.Error()})
		return err
	}

	d.indexer.handle = h
	d.indexer.startedAt = time.Now()
	d.logger.Info("indexer launched", "pid", h.PID())
	d.auditLog(audit.Entry{
		Action:  audit.ActionLaunch,
		Process: IndexerName,
		Detail:  fmt.Sprintf("pid %d", h.PID()),
	})
	return nil
}

// StopIndexer terminates electrs in the background. Stopping an indexer
// that is not running is a no-op.
func (d *Daemon) StopIndexer() {
	d.mu.Lock()
	h := d.indexer.handle
	d.indexer.handle = nil
	d.tracker.Reset()
	if h == nil {
		d.mu.Unlock()
		return
	}
	d.indexer.queue.Push("Terminating electrs…")
	queue := d.indexer.queue
	d.mu.Unlock()

	d.stops.Add(1)
	go func() {
		defer d.stops.Done()
		h.Terminate()
		queue.Push("electrs stopped.")
		d.auditLog(audit.Entry{Action: audit.ActionTerminate, Process: IndexerName})
	}()
}

// StopNode shuts bitcoind down in the background. The clean path asks
// the node to stop over RPC and waits for it to flush and exit; only a
// transport failure, or a node that outlives the grace window, gets a
// signal instead.
func (d *Daemon) StopNode() {
	d.mu.Lock()
	h := d.node.handle
	d.node.handle = nil
	d.nodeSynced = false
	d.chainKnown = false
	d.chain = rpc.ChainInfo{}
	d.tracker.Reset()
	if h == nil {
		d.mu.Unlock()
		return
	}
	queue := d.node.queue
	dataDir := d.cfg.NodeDataDir
	queue.Push("Sending stop via RPC…")
	d.mu.Unlock()

	d.stops.Add(1)
	go func() {
		defer d.stops.Done()
		d.stopNode(h, queue, dataDir)
	}()
}

func (d *Daemon) stopNode(h *proc.Handle, queue *logbuf.Queue, dataDir string) {
	auth := rpc.ResolveAuth(dataDir)
	err := d.rpc.RequestStop(context.Background(), auth)
	if err != nil {
		d.logger.Warn("rpc stop failed, terminating node", "error", err)
		d.auditLog(audit.Entry{Action: audit.ActionRPCStop, Process: NodeName, Error: err.Error()})
		h.Terminate()
		d.auditLog(audit.Entry{Action: audit.ActionTerminate, Process: NodeName})
		queue.Push("bitcoind stopped.")
		return
	}

	d.auditLog(audit.Entry{Action: audit.ActionRPCStop, Process: NodeName})

	deadline := time.Now().Add(d.stopGrace)
	for h.Running() {
		if time.Now().After(deadline) {
			d.logger.Warn("node outlived rpc stop grace, killing", "grace", d.stopGrace)
			h.Kill()
			d.auditLog(audit.Entry{
				Action:  audit.ActionForceKill,
				Process: NodeName,
				Detail:  "rpc stop grace exceeded",
			})
			break
		}
		time.Sleep(stopPollInterval)
	}
	queue.Push("bitcoind stopped.")
}

// Shutdown stops both processes in order, indexer first so it never
// observes the node's data directory mid-teardown, and blocks until both
// stop paths have finished.
func (d *Daemon) Shutdown() {
	d.StopIndexer()
	d.StopNode()
	d.stops.Wait()
	d.drainOnce()
}
