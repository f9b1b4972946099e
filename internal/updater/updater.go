package updater

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Components and the binaries each release folder may ship. Not every
// release packages every tool, so absent binaries are skipped.
var (
	nodeComponent = component{
		prefix:   "bitcoin",
		label:    "Bitcoin",
		binaries: []string{"bitcoind", "bitcoin-cli", "bitcoin-tx", "bitcoin-util"},
	}
	indexerComponent = component{
		prefix:   "electrs",
		label:    "Electrs",
		binaries: []string{"electrs"},
	}
)

type component struct {
	prefix   string
	label    string
	binaries []string
}

// Outcome enumerates the closed set of update results.
type Outcome int

const (
	// OutcomeUpdated — at least one binary was replaced.
	OutcomeUpdated Outcome = iota
	// OutcomeBuilderFound — no downloads folder, but the builder app is
	// installed at the expected path.
	OutcomeBuilderFound
	// OutcomeBuilderNotFound — no downloads folder and no builder app.
	OutcomeBuilderNotFound
	// OutcomeBinariesMissing — downloads folder exists but has no
	// binaries/ subfolder.
	OutcomeBinariesMissing
	// OutcomeNothingToUpdate — binaries/ exists but no versioned folder
	// matched, or every matched folder had nothing new to copy.
	OutcomeNothingToUpdate
)

func (o Outcome) String() string {
	switch o {
	case OutcomeUpdated:
		return "updated"
	case OutcomeBuilderFound:
		return "builder_found"
	case OutcomeBuilderNotFound:
		return "builder_not_found"
	case OutcomeBinariesMissing:
		return "binaries_missing"
	case OutcomeNothingToUpdate:
		return "nothing_to_update"
	default:
		return "unknown"
	}
}

// Result describes exactly one update attempt.
type Result struct {
	Outcome     Outcome `json:"outcome"`
	Detail      string  `json:"detail,omitempty"`
	BuilderPath string  `json:"builder_path,omitempty"`
}

// Manager runs update passes against a fixed downloads location.
type Manager struct {
	// BinariesDst receives the replaced binaries.
	BinariesDst string
	// DownloadsDir is the versioned-build drop location,
	// e.g. ~/Downloads/bitcoin_builds.
	DownloadsDir string
	// BuilderPath is the companion builder application checked when the
	// downloads folder is absent.
	BuilderPath string

	Logger *slog.Logger
}

// DefaultDownloadsDir returns ~/Downloads/bitcoin_builds.
func DefaultDownloadsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "bitcoin_builds")
	}
	return filepath.Join(home, "Downloads", "bitcoin_builds")
}

// DefaultBuilderPath is where the companion build app installs.
const DefaultBuilderPath = "/Applications/BitForge.app"

// Run executes one full update pass.
func (m *Manager) Run() Result {
	if _, err := os.Stat(m.DownloadsDir); err != nil {
		if _, err := os.Stat(m.BuilderPath); err == nil {
			return Result{Outcome: OutcomeBuilderFound, BuilderPath: m.BuilderPath}
		}
		return Result{Outcome: OutcomeBuilderNotFound}
	}

	binariesSrc := filepath.Join(m.DownloadsDir, "binaries")
	if _, err := os.Stat(binariesSrc); err != nil {
		return Result{Outcome: OutcomeBinariesMissing}
	}

	nodeFolder := findLatestVersion(binariesSrc, nodeComponent.prefix, m.Logger)
	indexerFolder := findLatestVersion(binariesSrc, indexerComponent.prefix, m.Logger)

	if nodeFolder == "" && indexerFolder == "" {
		return Result{Outcome: OutcomeNothingToUpdate}
	}

	var messages []string
	if nodeFolder != "" {
		if msg := m.updateComponent(nodeComponent, filepath.Join(binariesSrc, nodeFolder), nodeFolder); msg != "" {
			messages = append(messages, msg)
		}
	}
	if indexerFolder != "" {
		if msg := m.updateComponent(indexerComponent, filepath.Join(binariesSrc, indexerFolder), indexerFolder); msg != "" {
			messages = append(messages, msg)
		}
	}

	if len(messages) == 0 {
		return Result{Outcome: OutcomeNothingToUpdate}
	}
	return Result{Outcome: OutcomeUpdated, Detail: strings.Join(messages, "\n")}
}

// updateComponent copies one component's binaries and renders its summary
// line. Returns "" when the folder contained nothing to copy and nothing
// failed.
func (m *Manager) updateComponent(c component, srcDir, folder string) string {
	copied, failures := copyBinaries(srcDir, m.BinariesDst, c.binaries)

	var parts []string
	if len(copied) > 0 {
		parts = append(parts, fmt.Sprintf("%s (%s): %s", c.label, folder, strings.Join(copied, ", ")))
	}
	for _, failure := range failures {
		parts = append(parts, fmt.Sprintf("%s update error: %v", c.label, failure))
	}
	return strings.Join(parts, "\n")
}

// copyBinaries copies each named binary from srcDir to dstDir via a temp
// file and atomic rename, setting 0755 permissions. Binaries absent from
// srcDir are skipped silently. One failed copy does not abort the rest;
// failures are collected and returned alongside the copied names.
func copyBinaries(srcDir, dstDir string, names []string) (copied []string, failures []error) {
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return nil, []error{fmt.Errorf("creating binaries dir %s: %w", dstDir, err)}
	}

	for _, name := range names {
		src := filepath.Join(srcDir, name)
		if _, err := os.Stat(src); err != nil {
			continue
		}

		if err := replaceBinary(src, dstDir, name); err != nil {
			failures = append(failures, err)
			continue
		}
		copied = append(copied, name)
	}
	return copied, failures
}

func replaceBinary(src, dstDir, name string) error {
	dst := filepath.Join(dstDir, name)
	tmp := filepath.Join(dstDir, "."+name+".tmp")

	if err := copyFile(src, tmp); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("copying %s: %w", name, err)
	}
	if err := os.Chmod(tmp, 0o755); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("chmod %s: %w", name, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming %s into place: %w", name, err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
