// Package chainsync decides whether the supervised daemons have caught up
// with the chain tip.
//
// Two independent heuristics: the indexer is judged from its log output,
// the node from numeric fields of a getblockchaininfo snapshot.
package chainsync

import (
	"strings"
	"sync"
)

// indexerSyncedMarkers are substrings (matched case-insensitively) that
// electrs prints once its index has reached the chain tip.
var indexerSyncedMarkers = []string{
	"finished full compaction",
	"electrs running",
	"waiting for new block",
	"index update completed",
	"chain best block",
}

// IndexerSyncedLine reports whether one line of indexer output indicates
// the index is fully built.
func IndexerSyncedLine(line string) bool {
	l := strings.ToLower(line)
	for _, marker := range indexerSyncedMarkers {
		if strings.Contains(l, marker) {
			return true
		}
	}
	return false
}

// NodeSynced derives the node's sync state from chain height and
// verification progress. The headers-1 tolerance absorbs the final header
// not yet fully validated.
func NodeSynced(blocks, headers uint64, progress float64) bool {
	return headers > 0 && blocks >= headers-1 && progress > 0.9999
}

// Tracker holds the sticky indexer-synced flag. Once a matching log line
// has been seen the flag stays set until Reset is called, which the owner
// does when the indexer process exits. The node formula is stateless and
// recomputed on every poll, so it lives in NodeSynced, not here.
type Tracker struct {
	mu            sync.Mutex
	indexerSynced bool
}

// ObserveIndexerLine feeds one line of indexer output through the matcher
// and reports the flag's resulting state.
func (t *Tracker) ObserveIndexerLine(line string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.indexerSynced && IndexerSyncedLine(line) {
		t.indexerSynced = true
	}
	return t.indexerSynced
}

// IndexerSynced returns the sticky flag.
func (t *Tracker) IndexerSynced() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.indexerSynced
}

// Reset clears the flag. Called when the indexer process exits.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.indexerSynced = false
}
