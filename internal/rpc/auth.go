// Package rpc is the JSON-RPC client for the supervised bitcoind node.
//
// Cookie-file authentication is preferred: bitcoind writes a fresh
// `.cookie` credential on every startup. Static rpcuser/rpcpassword from
// bitcoin.conf is the fallback.
package rpc

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultPort is bitcoind's mainnet RPC port.
const DefaultPort = 8332

// Static fallback credentials used when neither a cookie nor conf
// credentials exist.
const (
	fallbackUser     = "bitcoin"
	fallbackPassword = "bitcoinrpc"
)

// Auth holds resolved RPC credentials. Immutable once constructed; callers
// copy it by value into background operations.
type Auth struct {
	User     string
	Password string
	Port     int
}

// ResolveAuth determines credentials from the node data directory.
//
// Preference order, first match wins:
//  1. `.cookie` in the data dir root
//  2. `.cookie` in <dataDir>/mainnet/
//  3. rpcuser / rpcpassword from bitcoin.conf
//  4. static fallback credentials
func ResolveAuth(dataDir string) Auth {
	port := readRPCPort(dataDir)

	for _, cookiePath := range []string{
		filepath.Join(dataDir, ".cookie"),
		filepath.Join(dataDir, "mainnet", ".cookie"),
	} {
		data, err := os.ReadFile(cookiePath)
		if err != nil {
			continue
		}
		user, password, ok := strings.Cut(strings.TrimSpace(string(data)), ":")
		if !ok {
			continue
		}
		return Auth{User: user, Password: password, Port: port}
	}

	if user, password, ok := readStaticCredentials(dataDir); ok {
		return Auth{User: user, Password: password, Port: port}
	}

	return Auth{User: fallbackUser, Password: fallbackPassword, Port: port}
}

// readRPCPort parses rpcport from bitcoin.conf, defaulting to DefaultPort
// when the file or key is absent or unparsable.
func readRPCPort(dataDir string) int {
	data, err := os.ReadFile(filepath.Join(dataDir, "bitcoin.conf"))
	if err != nil {
		return DefaultPort
	}
	for _, line := range strings.Split(string(data), "\n") {
		rest, ok := strings.CutPrefix(strings.TrimSpace(line), "rpcport=")
		if !ok {
			continue
		}
		port, err := strconv.Atoi(strings.TrimSpace(rest))
		if err != nil || port <= 0 || port > 65535 {
			return DefaultPort
		}
		return port
	}
	return DefaultPort
}

func readStaticCredentials(dataDir string) (user, password string, ok bool) {
	data, err := os.ReadFile(filepath.Join(dataDir, "bitcoin.conf"))
	if err != nil {
		return "", "", false
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if v, found := strings.CutPrefix(line, "rpcuser="); found {
			user = strings.TrimSpace(v)
		}
		if v, found := strings.CutPrefix(line, "rpcpassword="); found {
			password = strings.TrimSpace(v)
		}
	}
	if user == "" || password == "" {
		return "", "", false
	}
	return user, password, true
}
