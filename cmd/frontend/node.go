package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"AuctionHouse/internal/api"
	"AuctionHouse/internal/auth"
	"AuctionHouse/internal/coordinator"
	"AuctionHouse/internal/crypto"
	"AuctionHouse/internal/group"
	"AuctionHouse/internal/keystore"
	"AuctionHouse/internal/logger"
	"AuctionHouse/internal/metrics"
	"AuctionHouse/internal/network"
)

// Node is the front end process.
type Node struct {
	cfg *Config // cfg is the front end configuration

	keys    *keystore.Dir            // keys resolves client identities
	server  *crypto.Identity         // server is the front end identity
	network *network.Node            // network dials the replicas
	mesh    *group.Mesh              // mesh is the replica group
	coord   *coordinator.Coordinator // coord serves client operations
	api     *api.Server              // api is the HTTP API
}

// NewNode creates and wires a front end.
func NewNode(cfg *Config) (*Node, error) {
	n := &Node{cfg: cfg}

	if err := n.initKeys(); err != nil {
		return nil, fmt.Errorf("init keys:\n%w", err)
	}

	if err := n.initNetwork(); err != nil {
		return nil, fmt.Errorf("init network:\n%w", err)
	}

	n.initCoordinator()

	return n, nil
}

// initKeys opens the key directory and loads the server identity.
func (n *Node) initKeys() error {
	keys, err := keystore.NewDir(n.cfg.KeysPath)
	if err != nil {
		return err
	}

	server, err := keys.Identity(n.cfg.ServerID)
	if err != nil {
		return fmt.Errorf("load server identity %s:\n%w", n.cfg.ServerID, err)
	}

	n.keys = keys
	n.server = server

	return nil
}

// initNetwork creates a dial-only QUIC node and the replica mesh.
func (n *Node) initNetwork() error {
	node, err := network.NewNode(network.Config{PrivateKey: n.cfg.PrivateKey})
	if err != nil {
		return err
	}

	n.network = node
	n.mesh = group.NewMesh(node, n.cfg.Replicas)

	return nil
}

// initCoordinator wires authentication, metrics and the API.
func (n *Node) initCoordinator() {
	authn := auth.NewAuthenticator(n.server, n.keys, crypto.DefaultAlgorithm)

	// The gauges are read at scrape time, after n.coord is set.
	reg := metrics.NewRegistry()
	m := metrics.NewFrontend(reg,
		func() float64 { return float64(n.coord.Sessions()) },
		func() float64 { return float64(n.coord.Reachable()) },
	)

	n.coord = coordinator.New(authn, n.mesh, n.keys, nil, coordinator.Options{
		Timeout: n.cfg.Timeout,
		Metrics: m,
	})

	n.api = api.New(n.cfg.HTTPAddress, n.coord, metrics.Handler(reg))
}

// Run seeds from the replicas, starts the API and blocks until shutdown.
func (n *Node) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), n.cfg.Timeout)
	err := n.coord.Seed(ctx)
	cancel()

	if err != nil {
		logger.Warn("replicas unreachable at startup, seeding on first operation", "error", err)
	}

	if err := n.api.Start(); err != nil {
		return fmt.Errorf("start api:\n%w", err)
	}

	return n.waitForShutdown()
}

// waitForShutdown blocks until SIGINT or SIGTERM is received.
func (n *Node) waitForShutdown() error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", "signal", sig.String())

	return n.Close()
}

// Close shuts down all components gracefully.
func (n *Node) Close() error {
	if n.api != nil {
		n.api.Stop()
	}

	if n.mesh != nil {
		n.mesh.Close()
	}

	if n.network != nil {
		return n.network.Close()
	}

	return nil
}
