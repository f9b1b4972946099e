package updater

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseSemver(t *testing.T) {
	tests := []struct {
		in   string
		want version
		ok   bool
	}{
		{"27.0", version{27, 0, 0}, true},
		{"0.10.5", version{0, 10, 5}, true},
		{"1", version{1, 0, 0}, true},
		{"", version{}, false},
		{"v27", version{}, false},
		{"27.0.1.9", version{27, 0, 1}, true},
	}

	for _, tt := range tests {
		got, ok := parseSemver(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("parseSemver(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestFindLatestVersion(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"bitcoin-26.0", "bitcoin-27.1", "bitcoin-27.0", "electrs-0.10.5"} {
		if err := os.Mkdir(filepath.Join(dir, name), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	// A file (not a dir) with a matching name must be ignored.
	os.WriteFile(filepath.Join(dir, "bitcoin-99.0"), nil, 0o644)
	// A folder without a version suffix is ignored.
	os.Mkdir(filepath.Join(dir, "bitcoin"), 0o755)

	if got := findLatestVersion(dir, "bitcoin", nil); got != "bitcoin-27.1" {
		t.Errorf("got %q want bitcoin-27.1", got)
	}
	if got := findLatestVersion(dir, "electrs", nil); got != "electrs-0.10.5" {
		t.Errorf("got %q want electrs-0.10.5", got)
	}
	if got := findLatestVersion(dir, "missing", nil); got != "" {
		t.Errorf("got %q want empty", got)
	}
}

func TestCopyBinariesSkipsAbsent(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()

	os.WriteFile(filepath.Join(src, "bitcoind"), []byte("node"), 0o644)

	copied, failures := copyBinaries(src, dst, []string{"bitcoind", "bitcoin-cli"})
	if len(failures) != 0 {
		t.Fatalf("unexpected failures: %v", failures)
	}
	if len(copied) != 1 || copied[0] != "bitcoind" {
		t.Errorf("expected only bitcoind copied, got %v", copied)
	}

	data, err := os.ReadFile(filepath.Join(dst, "bitcoind"))
	if err != nil || string(data) != "node" {
		t.Errorf("copied content wrong: %q, %v", data, err)
	}
	info, err := os.Stat(filepath.Join(dst, "bitcoind"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o755 {
		t.Errorf("expected 0755 permissions, got %v", info.Mode().Perm())
	}

	if _, err := os.Stat(filepath.Join(dst, "bitcoin-cli")); !os.IsNotExist(err) {
		t.Error("absent binary should not produce a destination file")
	}
	if _, err := os.Stat(filepath.Join(dst, ".bitcoind.tmp")); !os.IsNotExist(err) {
		t.Error("temp file left behind")
	}
}

func TestCopyBinariesFailureDoesNotAbortRest(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()

	// A directory where a binary is expected triggers a copy failure.
	os.Mkdir(filepath.Join(src, "bitcoind"), 0o755)
	os.WriteFile(filepath.Join(src, "bitcoin-cli"), []byte("cli"), 0o644)

	copied, failures := copyBinaries(src, dst, []string{"bitcoind", "bitcoin-cli"})
	if len(failures) != 1 {
		t.Fatalf("expected one failure, got %v", failures)
	}
	if len(copied) != 1 || copied[0] != "bitcoin-cli" {
		t.Errorf("expected bitcoin-cli still copied, got %v", copied)
	}
	// The failed binary's destination must be untouched.
	if _, err := os.Stat(filepath.Join(dst, "bitcoind")); !os.IsNotExist(err) {
		t.Error("failed copy reached destination name")
	}
}

func setupManager(t *testing.T) (*Manager, string) {
	t.Helper()
	root := t.TempDir()
	return &Manager{
		BinariesDst:  filepath.Join(root, "Binaries"),
		DownloadsDir: filepath.Join(root, "bitcoin_builds"),
		BuilderPath:  filepath.Join(root, "BitForge.app"),
	}, root
}

func TestRunBuilderOutcomes(t *testing.T) {
	m, root := setupManager(t)

	res := m.Run()
	if res.Outcome != OutcomeBuilderNotFound {
		t.Errorf("expected builder_not_found, got %v", res.Outcome)
	}

	if err := os.MkdirAll(filepath.Join(root, "BitForge.app"), 0o755); err != nil {
		t.Fatal(err)
	}
	res = m.Run()
	if res.Outcome != OutcomeBuilderFound {
		t.Errorf("expected builder_found, got %v", res.Outcome)
	}
	if res.BuilderPath != m.BuilderPath {
		t.Errorf("expected builder path %q, got %q", m.BuilderPath, res.BuilderPath)
	}
}

func TestRunBinariesSubfolderMissing(t *testing.T) {
	m, _ := setupManager(t)
	os.MkdirAll(m.DownloadsDir, 0o755)

	if res := m.Run(); res.Outcome != OutcomeBinariesMissing {
		t.Errorf("expected binaries_missing, got %v", res.Outcome)
	}
}

func TestRunNothingToUpdate(t *testing.T) {
	m, _ := setupManager(t)
	binaries := filepath.Join(m.DownloadsDir, "binaries")
	os.MkdirAll(binaries, 0o755)

	if res := m.Run(); res.Outcome != OutcomeNothingToUpdate {
		t.Errorf("expected nothing_to_update with empty binaries dir, got %v", res.Outcome)
	}

	// A matching folder with no recognized binaries inside still yields
	// nothing_to_update.
	os.MkdirAll(filepath.Join(binaries, "bitcoin-27.0"), 0o755)
	if res := m.Run(); res.Outcome != OutcomeNothingToUpdate {
		t.Errorf("expected nothing_to_update with empty version folder, got %v", res.Outcome)
	}
}

func TestRunUpdatesBothComponents(t *testing.T) {
	m, _ := setupManager(t)
	binaries := filepath.Join(m.DownloadsDir, "binaries")

	btcDir := filepath.Join(binaries, "bitcoin-27.1")
	os.MkdirAll(btcDir, 0o755)
	os.WriteFile(filepath.Join(btcDir, "bitcoind"), []byte("new node"), 0o644)
	os.WriteFile(filepath.Join(btcDir, "bitcoin-cli"), []byte("new cli"), 0o644)

	etrDir := filepath.Join(binaries, "electrs-0.10.5")
	os.MkdirAll(etrDir, 0o755)
	os.WriteFile(filepath.Join(etrDir, "electrs"), []byte("new electrs"), 0o644)

	// An older folder must not be selected.
	oldDir := filepath.Join(binaries, "bitcoin-26.0")
	os.MkdirAll(oldDir, 0o755)
	os.WriteFile(filepath.Join(oldDir, "bitcoind"), []byte("old node"), 0o644)

	res := m.Run()
	if res.Outcome != OutcomeUpdated {
		t.Fatalf("expected updated, got %v (%s)", res.Outcome, res.Detail)
	}
	if !strings.Contains(res.Detail, "Bitcoin (bitcoin-27.1): bitcoind, bitcoin-cli") {
		t.Errorf("missing bitcoin summary in %q", res.Detail)
	}
	if !strings.Contains(res.Detail, "Electrs (electrs-0.10.5): electrs") {
		t.Errorf("missing electrs summary in %q", res.Detail)
	}

	data, err := os.ReadFile(filepath.Join(m.BinariesDst, "bitcoind"))
	if err != nil || string(data) != "new node" {
		t.Errorf("expected newest bitcoind installed, got %q, %v", data, err)
	}
}
