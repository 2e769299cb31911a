// Command replica runs one replica of the auction state machine.
package main

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"os"

	"AuctionHouse/internal/logger"
	"AuctionHouse/internal/network"
)

func main() {
	logger.Init()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main entry point with error handling.
func run() error {
	cfg := parseFlags()

	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		return err
	}

	if err := cfg.validate(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}

	var err error
	cfg.PrivateKey, err = network.LoadOrGenerateKey(cfg.KeyPath)
	if err != nil {
		return fmt.Errorf("load key:\n%w", err)
	}

	node, err := NewNode(cfg)
	if err != nil {
		return fmt.Errorf("create node:\n%w", err)
	}

	printStartupInfo(cfg)

	return node.Run()
}

// printStartupInfo displays replica configuration at startup.
func printStartupInfo(cfg *Config) {
	pubKey := cfg.PrivateKey.Public().(ed25519.PublicKey)

	logger.Info("starting replica",
		"pubkey", hex.EncodeToString(pubKey),
		"quic", cfg.QUICAddress,
		"peers", cfg.Peers,
		"allowed_keys", len(cfg.AllowedKeys),
		"data", cfg.DataPath,
		"in_memory", cfg.InMemory,
		"metrics", cfg.MetricsAddress,
	)
}
