package daemon

import (
	"fmt"
	"time"
)

// ProcessStatus reports one managed process.
type ProcessStatus struct {
	Running       bool `json:"running"`
	PID           int  `json:"pid,omitempty"`
	UptimeSeconds int  `json:"uptime_seconds,omitempty"`
}

// ChainStatus is the last chain snapshot obtained from the node RPC.
type ChainStatus struct {
	Blocks               uint64  `json:"blocks"`
	Headers              uint64  `json:"headers"`
	VerificationProgress float64 `json:"verification_progress"`
	Chain                string  `json:"chain,omitempty"`
	InitialBlockDownload bool    `json:"initial_block_download"`
}

// Status is one consistent snapshot of everything the daemon supervises.
type Status struct {
	Node            ProcessStatus `json:"node"`
	Indexer         ProcessStatus `json:"indexer"`
	NodeSynced      bool          `json:"node_synced"`
	IndexerSynced   bool          `json:"indexer_synced"`
	Chain           *ChainStatus  `json:"chain,omitempty"`
	LastRPCError    string        `json:"last_rpc_error,omitempty"`
	UpdateAvailable bool          `json:"update_available"`
}

// Status returns the current supervision snapshot.
func (d *Daemon) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()

	st := Status{
		Node:            procStatus(&d.node),
		Indexer:         procStatus(&d.indexer),
		NodeSynced:      d.nodeSynced,
		IndexerSynced:   d.tracker.IndexerSynced(),
		LastRPCError:    d.lastRPCError,
		UpdateAvailable: d.updateAvailable,
	}
	if d.chainKnown {
		st.Chain = &ChainStatus{
			Blocks:               d.chain.Blocks,
			Headers:              d.chain.Headers,
			VerificationProgress: d.chain.VerificationProgress,
			Chain:                d.chain.Chain,
			InitialBlockDownload: d.chain.InitialBlockDownload,
		}
	}
	return st
}

func procStatus(s *procState) ProcessStatus {
	if !s.running() {
		return ProcessStatus{}
	}
	return ProcessStatus{
		Running:       true,
		PID:           s.handle.PID(),
		UptimeSeconds: int(time.Since(s.startedAt).Seconds()),
	}
}

// Logs returns the most recent n retained output lines for the named
// process ("node" or "indexer"). Queued output is drained first so the
// result includes lines produced since the last tick.
func (d *Daemon) Logs(name string, n int) ([]string, error) {
	d.drainOnce()

	d.mu.Lock()
	defer d.mu.Unlock()
	switch name {
	case NodeName:
		return d.node.history.Last(n), nil
	case IndexerName:
		return d.indexer.history.Last(n), nil
	default:
		return nil, fmt.Errorf("unknown process %q", name)
	}
}
