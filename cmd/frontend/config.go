package main

import (
	"crypto/ed25519"
	"flag"
	"fmt"
	"strings"
	"time"

	"AuctionHouse/internal/keystore"
)

// Config holds the front end configuration.
type Config struct {
	// HTTPAddress is the client API listen address.
	HTTPAddress string

	// Replicas lists the QUIC addresses of the replicas.
	Replicas []string

	// KeysPath is the key directory holding client and server identities.
	KeysPath string

	// ServerID is the identity the front end authenticates as.
	ServerID string

	// Timeout bounds one broadcast to the replicas.
	Timeout time.Duration

	// LogLevel is the minimum log level.
	LogLevel string

	// KeyPath is the path to the Ed25519 TLS key file.
	KeyPath string

	// PrivateKey is the node's Ed25519 TLS key.
	PrivateKey ed25519.PrivateKey
}

// parseFlags parses command-line flags into Config.
func parseFlags() *Config {
	cfg := &Config{}

	var replicas string

	flag.StringVar(&cfg.HTTPAddress, "http", ":8080", "HTTP API address")
	flag.StringVar(&replicas, "replicas", "", "Comma-separated QUIC addresses of the replicas")
	flag.StringVar(&cfg.KeysPath, "keys", "./keys", "Key directory")
	flag.StringVar(&cfg.ServerID, "server-id", keystore.ServerIdentity, "Server identity name")
	flag.DurationVar(&cfg.Timeout, "timeout", 5*time.Second, "Broadcast timeout")
	flag.StringVar(&cfg.LogLevel, "log-level", "info", "Minimum log level (debug, info, warn, error)")
	flag.StringVar(&cfg.KeyPath, "key", "", "Ed25519 TLS key path (generates new if missing)")
	flag.Parse()

	cfg.Replicas = splitList(replicas)

	return cfg
}

// validate checks the configuration for consistency.
func (c *Config) validate() error {
	if c.HTTPAddress == "" {
		return fmt.Errorf("http address is required")
	}

	if len(c.Replicas) == 0 {
		return fmt.Errorf("at least one replica address is required")
	}

	if c.ServerID == "" {
		return fmt.Errorf("server identity is required")
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}

	return nil
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
