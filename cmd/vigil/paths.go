package main

import (
	"os"
	"path/filepath"
)

// vigilHome returns the path to the vigil home directory (~/.vigil).
func vigilHome() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".vigil"), nil
}

func defaultSocketPath() string {
	home, err := vigilHome()
	if err != nil {
		return "/tmp/vigil.sock"
	}
	return filepath.Join(home, "vigil.sock")
}

// resolveStorageRoot determines the storage root that holds the binaries,
// chain data and indexer database.
//
// Priority:
//  1. VIGIL_ROOT environment variable, if it names a directory
//  2. the directory the vigil binary lives in
//  3. the current working directory
func resolveStorageRoot() string {
	if envRoot := os.Getenv("VIGIL_ROOT"); envRoot != "" {
		if info, err := os.Stat(envRoot); err == nil && info.IsDir() {
			return envRoot
		}
	}

	exe, err := os.Executable()
	if err == nil {
		return filepath.Dir(exe)
	}
	return "."
}
