package rpc

import (
	"fmt"
	"os"
	"path/filepath"
)

const generatedConf = `# Bitcoin Core settings generated by vigil
server=1
txindex=1
rpcport=8332
rpcallowip=127.0.0.1
# Cookie-based authentication is active by default.
`

// EnsureNodeConf writes a minimal bitcoin.conf into dataDir if none
// exists. An existing file is never touched.
func EnsureNodeConf(dataDir string) error {
	confPath := filepath.Join(dataDir, "bitcoin.conf")
	if _, err := os.Stat(confPath); err == nil {
		return nil
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating node data dir %s: %w", dataDir, err)
	}
	if err := os.WriteFile(confPath, []byte(generatedConf), 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", confPath, err)
	}
	return nil
}
