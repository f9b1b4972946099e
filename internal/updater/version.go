// Package updater replaces the installed node and indexer binaries with
// newer builds dropped into the downloads directory.
//
// Expected layout: <downloads>/binaries/<component>-<version>/ holding the
// component's executables, e.g. bitcoin-27.1/bitcoind. Replacement is
// always tmp-file + chmod + atomic rename, so a partial copy never
// clobbers a working binary.
package updater

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// version is a parsed major.minor.patch tuple, compared lexicographically.
type version struct {
	major, minor, patch uint64
}

func (v version) less(other version) bool {
	if v.major != other.major {
		return v.major < other.major
	}
	if v.minor != other.minor {
		return v.minor < other.minor
	}
	return v.patch < other.patch
}

// parseSemver parses "27.0.1"-style strings. Missing minor/patch parts
// default to zero; an unparsable major part fails the whole parse.
func parseSemver(s string) (version, bool) {
	parts := strings.SplitN(s, ".", 4)
	major, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return version{}, false
	}
	v := version{major: major}
	if len(parts) > 1 {
		if minor, err := strconv.ParseUint(parts[1], 10, 64); err == nil {
			v.minor = minor
		}
	}
	if len(parts) > 2 {
		if patch, err := strconv.ParseUint(parts[2], 10, 64); err == nil {
			v.patch = patch
		}
	}
	return v, true
}

// findLatestVersion scans searchDir for directories named
// <prefix>-<version> and returns the name with the highest parsed version,
// or "" if none match. Only a strictly greater version displaces the
// current best, so the first-enumerated folder wins an exact tie; ties
// should be impossible with unique folder names, so one is logged.
func findLatestVersion(searchDir, prefix string, logger *slog.Logger) string {
	entries, err := os.ReadDir(searchDir)
	if err != nil {
		return ""
	}

	var bestName string
	var best version
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		versionStr, ok := strings.CutPrefix(name, prefix+"-")
		if !ok {
			continue
		}
		v, ok := parseSemver(versionStr)
		if !ok {
			continue
		}
		switch {
		case bestName == "" || best.less(v):
			best, bestName = v, name
		case v == best && logger != nil:
			logger.Warn("duplicate version folders, keeping first seen",
				"kept", bestName, "ignored", name)
		}
	}
	return bestName
}
