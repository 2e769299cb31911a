package main

import (
	"crypto/ed25519"
	"encoding/hex"
	"flag"
	"fmt"
	"strings"
	"time"
)

// Config holds the replica configuration.
type Config struct {
	// DataPath is the directory for persistent storage.
	DataPath string

	// InMemory keeps the store in RAM and ignores DataPath.
	InMemory bool

	// QUICAddress is the QUIC listen address for the front end and peers.
	QUICAddress string

	// Peers lists the QUIC addresses of the other replicas.
	Peers []string

	// JoinTimeout bounds waiting for peers, then bounds taking over their state.
	JoinTimeout time.Duration

	// MetricsAddress is the Prometheus listen address, empty to disable.
	MetricsAddress string

	// LogLevel is the minimum log level.
	LogLevel string

	// KeyPath is the path to the Ed25519 TLS key file.
	KeyPath string

	// PrivateKey is the node's Ed25519 TLS key.
	PrivateKey ed25519.PrivateKey

	// AllowedKeys lists the transport keys of the front ends and peer
	// replicas allowed to connect. Empty accepts any key.
	AllowedKeys []ed25519.PublicKey

	// allowList is the raw -allow value, parsed by validate.
	allowList string
}

// parseFlags parses command-line flags into Config.
func parseFlags() *Config {
	cfg := &Config{}

	var peers string

	flag.StringVar(&cfg.DataPath, "data", "./data", "Data directory path")
	flag.BoolVar(&cfg.InMemory, "in-memory", false, "Keep state in memory only")
	flag.StringVar(&cfg.QUICAddress, "quic", ":9000", "QUIC listen address")
	flag.StringVar(&peers, "peers", "", "Comma-separated QUIC addresses of the other replicas")
	flag.DurationVar(&cfg.JoinTimeout, "join-timeout", 5*time.Second, "Time to wait for peers and their state before starting from local state")
	flag.StringVar(&cfg.MetricsAddress, "metrics", "", "Metrics and health HTTP address (disabled if empty)")
	flag.StringVar(&cfg.LogLevel, "log-level", "info", "Minimum log level (debug, info, warn, error)")
	flag.StringVar(&cfg.KeyPath, "key", "", "Ed25519 TLS key path (generates new if missing)")
	flag.StringVar(&cfg.allowList, "allow", "", "Comma-separated hex TLS public keys of front ends and peers allowed to connect (any if empty)")
	flag.Parse()

	cfg.Peers = splitList(peers)

	return cfg
}

// validate checks the configuration for consistency.
func (c *Config) validate() error {
	if c.QUICAddress == "" {
		return fmt.Errorf("quic address is required")
	}

	if !c.InMemory && c.DataPath == "" {
		return fmt.Errorf("data path is required unless -in-memory is set")
	}

	if c.JoinTimeout < 0 {
		return fmt.Errorf("join timeout must not be negative")
	}

	for _, p := range c.Peers {
		if p == c.QUICAddress {
			return fmt.Errorf("peer list contains own address %s", p)
		}
	}

	keys, err := parseKeys(splitList(c.allowList))
	if err != nil {
		return fmt.Errorf("allow list:\n%w", err)
	}
	c.AllowedKeys = keys

	return nil
}

// parseKeys decodes hex encoded Ed25519 public keys.
func parseKeys(list []string) ([]ed25519.PublicKey, error) {
	keys := make([]ed25519.PublicKey, 0, len(list))

	for _, s := range list {
		b, err := hex.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("decode key %q: %w", s, err)
		}
		if len(b) != ed25519.PublicKeySize {
			return nil, fmt.Errorf("key %q has %d bytes, want %d", s, len(b), ed25519.PublicKeySize)
		}
		keys = append(keys, ed25519.PublicKey(b))
	}

	return keys, nil
}

// splitList splits a comma-separated list, dropping empty entries.
func splitList(s string) []string {
	var out []string

	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}

	return out
}
