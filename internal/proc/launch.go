package proc

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/benaskins/vigil/internal/logbuf"
)

// Executable names expected inside the binaries directory.
const (
	NodeBinary    = "bitcoind"
	IndexerBinary = "electrs"
)

// StartNode launches bitcoind against dataDir, creating the data directory
// if needed.
func StartNode(binariesDir, dataDir string, queue *logbuf.Queue) (*Handle, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating node data dir %s: %w", dataDir, err)
	}

	binary := filepath.Join(binariesDir, NodeBinary)
	args := []string{
		"-datadir=" + dataDir,
		"-printtoconsole",
	}
	return Start(binary, args, queue)
}

// StartIndexer launches electrs pointed at the node's data directory.
// Argument order matters to electrs' flag parser, so the pairs stay fixed.
func StartIndexer(binariesDir, nodeDataDir, dbDir string, queue *logbuf.Queue) (*Handle, error) {
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating indexer db dir %s: %w", dbDir, err)
	}

	binary := filepath.Join(binariesDir, IndexerBinary)
	args := []string{
		"--network", "bitcoin",
		"--daemon-dir", nodeDataDir,
		"--db-dir", dbDir,
		"--electrum-rpc-addr", "127.0.0.1:50001",
	}
	return Start(binary, args, queue)
}
