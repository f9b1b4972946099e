package daemon

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/benaskins/vigil/internal/config"
	"github.com/benaskins/vigil/internal/rpc"
	"github.com/benaskins/vigil/internal/updater"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default(root)
	cfg.DownloadsDir = filepath.Join(root, "downloads")
	if err := os.MkdirAll(cfg.BinariesDir, 0o755); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func writeFakeBinary(t *testing.T, dir, name, script string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
}

// failingDoer simulates an unreachable node RPC endpoint.
type failingDoer struct{}

func (failingDoer) Do(*http.Request) (*http.Response, error) {
	return nil, errors.New("connection refused")
}

// ackDoer answers every RPC call with a successful result.
type ackDoer struct{}

func (ackDoer) Do(*http.Request) (*http.Response, error) {
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader(`{"result":"ok","error":null,"id":"vigil"}`)),
	}, nil
}

func TestStartIndexerRequiresRunningNode(t *testing.T) {
	cfg := testConfig(t)
	writeFakeBinary(t, cfg.BinariesDir, "electrs", "sleep 60")
	d := New(cfg)

	err := d.StartIndexer()
	if err == nil {
		t.Fatal("expected precondition error")
	}
	if !strings.Contains(err.Error(), "bitcoind is not running") {
		t.Errorf("unexpected error: %v", err)
	}

	st := d.Status()
	if st.Indexer.Running || st.Indexer.PID != 0 {
		t.Errorf("expected no indexer process, got %+v", st.Indexer)
	}
}

func TestStartNodeLaunchFailure(t *testing.T) {
	cfg := testConfig(t)
	d := New(cfg)

	if err := d.StartNode(); err == nil {
		t.Fatal("expected error for missing bitcoind binary")
	}

	lines, err := d.Logs(NodeName, 10)
	if err != nil {
		t.Fatalf("Logs: %v", err)
	}
	var sawError bool
	for _, line := range lines {
		if strings.Contains(line, "Launch error") {
			sawError = true
		}
	}
	if !sawError {
		t.Errorf("expected a launch error line, got %v", lines)
	}
}

func TestNodeLifecycleWithRPCFallback(t *testing.T) {
	cfg := testConfig(t)
	writeFakeBinary(t, cfg.BinariesDir, "bitcoind", "sleep 60")
	d := New(cfg, WithRPCClient(rpc.NewClientWithDoer(failingDoer{})))

	if err := d.StartNode(); err != nil {
		t.Fatalf("StartNode: %v", err)
	}

	st := d.Status()
	if !st.Node.Running || st.Node.PID == 0 {
		t.Fatalf("expected running node, got %+v", st.Node)
	}

	if err := d.StartNode(); err == nil {
		t.Fatal("expected error starting an already-running node")
	}

	// RPC stop cannot reach the fake node, so shutdown falls back to
	// signalling the process.
	d.Shutdown()

	st = d.Status()
	if st.Node.Running {
		t.Error("expected node stopped after shutdown")
	}

	lines, err := d.Logs(NodeName, 50)
	if err != nil {
		t.Fatalf("Logs: %v", err)
	}
	joined := strings.Join(lines, "\n")
	if !strings.Contains(joined, "Sending stop via RPC") {
		t.Errorf("missing rpc stop line in %v", lines)
	}
	if !strings.Contains(joined, "bitcoind stopped.") {
		t.Errorf("missing stop confirmation in %v", lines)
	}
}

func TestNodeForceKillAfterStopGrace(t *testing.T) {
	cfg := testConfig(t)
	// The fake node acknowledges the RPC stop but never exits.
	writeFakeBinary(t, cfg.BinariesDir, "bitcoind", "sleep 60")
	d := New(cfg,
		WithRPCClient(rpc.NewClientWithDoer(ackDoer{})),
		WithStopGrace(300*time.Millisecond))

	if err := d.StartNode(); err != nil {
		t.Fatalf("StartNode: %v", err)
	}

	start := time.Now()
	d.Shutdown()
	elapsed := time.Since(start)

	if elapsed < 300*time.Millisecond {
		t.Errorf("shutdown returned before the stop grace elapsed (%v)", elapsed)
	}
	if st := d.Status(); st.Node.Running {
		t.Error("expected node killed after grace")
	}
}

func TestIndexerSyncTracking(t *testing.T) {
	cfg := testConfig(t)
	writeFakeBinary(t, cfg.BinariesDir, "bitcoind", "sleep 60")
	writeFakeBinary(t, cfg.BinariesDir, "electrs", `echo "finished full compaction"; sleep 60`)
	d := New(cfg, WithRPCClient(rpc.NewClientWithDoer(failingDoer{})))

	if err := d.StartNode(); err != nil {
		t.Fatalf("StartNode: %v", err)
	}
	if err := d.StartIndexer(); err != nil {
		t.Fatalf("StartIndexer: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for !d.Status().IndexerSynced {
		if time.Now().After(deadline) {
			t.Fatal("indexer never reported synced")
		}
		time.Sleep(50 * time.Millisecond)
		d.drainOnce()
	}

	// Stopping the indexer invalidates its sync state.
	d.StopIndexer()
	d.stops.Wait()
	d.drainOnce()

	st := d.Status()
	if st.Indexer.Running {
		t.Error("expected indexer stopped")
	}
	if st.IndexerSynced {
		t.Error("expected indexer sync flag cleared after stop")
	}

	d.Shutdown()
}

func TestDrainDetectsNodeExit(t *testing.T) {
	cfg := testConfig(t)
	writeFakeBinary(t, cfg.BinariesDir, "bitcoind", "exit 0")
	d := New(cfg)

	if err := d.StartNode(); err != nil {
		t.Fatalf("StartNode: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for d.Status().Node.Running {
		if time.Now().After(deadline) {
			t.Fatal("node never observed as exited")
		}
		time.Sleep(20 * time.Millisecond)
		d.drainOnce()
	}
	d.drainOnce()

	lines, err := d.Logs(NodeName, 50)
	if err != nil {
		t.Fatalf("Logs: %v", err)
	}
	if !strings.Contains(strings.Join(lines, "\n"), "bitcoind has stopped.") {
		t.Errorf("missing exit diagnostic in %v", lines)
	}
}

func TestLogsUnknownProcess(t *testing.T) {
	d := New(testConfig(t))
	if _, err := d.Logs("router", 10); err == nil {
		t.Fatal("expected error for unknown process name")
	}
}

func TestUpdateClearsPendingFlag(t *testing.T) {
	cfg := testConfig(t)
	d := New(cfg, WithUpdater(&updater.Manager{
		BinariesDst:  cfg.BinariesDir,
		DownloadsDir: filepath.Join(t.TempDir(), "missing"),
		BuilderPath:  filepath.Join(t.TempDir(), "missing.app"),
	}))

	d.mu.Lock()
	d.updateAvailable = true
	d.mu.Unlock()

	result := d.Update()
	if result.Outcome != updater.OutcomeBuilderNotFound {
		t.Errorf("expected builder-not-found outcome, got %v", result.Outcome)
	}
	if d.Status().UpdateAvailable {
		t.Error("expected pending update flag cleared")
	}
}
