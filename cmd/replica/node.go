package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"AuctionHouse/internal/group"
	"AuctionHouse/internal/logger"
	"AuctionHouse/internal/metrics"
	"AuctionHouse/internal/network"
	"AuctionHouse/internal/replica"
	"AuctionHouse/internal/storage"
)

// Node is one replica process.
type Node struct {
	cfg *Config // cfg is the node configuration

	storage *storage.Storage // storage is the persistent store
	network *network.Node    // network serves the front end and peers
	mesh    *group.Mesh      // mesh reaches the other replicas
	replica *replica.Replica // replica is the auction state machine
	metrics *http.Server     // metrics serves /metrics and /health, nil if disabled
}

// NewNode creates and initializes a replica node.
func NewNode(cfg *Config) (*Node, error) {
	n := &Node{cfg: cfg}

	if err := n.initStorage(); err != nil {
		return nil, fmt.Errorf("init storage:\n%w", err)
	}

	if err := n.initNetwork(); err != nil {
		n.Close()
		return nil, fmt.Errorf("init network:\n%w", err)
	}

	if err := n.initReplica(); err != nil {
		n.Close()
		return nil, fmt.Errorf("init replica:\n%w", err)
	}

	return n, nil
}

// initStorage opens the Pebble store.
func (n *Node) initStorage() error {
	db, err := storage.Open(storage.Options{
		Path:     n.cfg.DataPath,
		InMemory: n.cfg.InMemory,
	})
	if err != nil {
		return err
	}

	n.storage = db

	return nil
}

// initNetwork creates the QUIC node and the peer mesh.
func (n *Node) initNetwork() error {
	if len(n.cfg.AllowedKeys) == 0 {
		logger.Warn("no -allow list, accepting connections from any key")
	}

	node, err := network.NewNode(network.Config{
		PrivateKey:  n.cfg.PrivateKey,
		ListenAddr:  n.cfg.QUICAddress,
		AllowedKeys: n.cfg.AllowedKeys,
	})
	if err != nil {
		return err
	}

	n.network = node
	n.mesh = group.NewMesh(node, n.cfg.Peers)

	return nil
}

// initReplica loads the replica and registers its request handler.
func (n *Node) initReplica() error {
	reg := metrics.NewRegistry()

	m := metrics.NewReplica(reg,
		func() float64 { return float64(n.replica.Len()) },
		func() float64 { return float64(n.replica.LastSeq()) },
	)

	r, err := replica.New(replica.Options{
		Store:   n.storage,
		Syncer:  &replica.GroupSyncer{Group: n.mesh},
		Metrics: m,
	})
	if err != nil {
		return err
	}

	n.replica = r

	n.network.OnRequest(func(_ *network.Peer, data []byte) ([]byte, error) {
		return r.HandleFrame(data), nil
	})

	if n.cfg.MetricsAddress != "" {
		n.metrics = newMetricsServer(n.cfg.MetricsAddress, reg, r)
	}

	return nil
}

// newMetricsServer builds the HTTP server for /metrics and /health.
func newMetricsServer(addr string, reg *prometheus.Registry, r *replica.Replica) *http.Server {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)

	router.Method(http.MethodGet, "/metrics", metrics.Handler(reg))
	router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		if !r.Ready() {
			http.Error(w, "joining", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	})

	return &http.Server{
		Addr:        addr,
		Handler:     router,
		ReadTimeout: 10 * time.Second,
	}
}

// Run starts serving, joins the group and blocks until shutdown.
func (n *Node) Run() error {
	if err := n.network.Start(); err != nil {
		return fmt.Errorf("start network:\n%w", err)
	}

	if n.metrics != nil {
		go func() {
			logger.Info("metrics server started", "addr", n.metrics.Addr)

			if err := n.metrics.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server error", "error", err)
			}
		}()
	}

	n.join()

	return n.waitForShutdown()
}

// join waits for the configured peers to come up, then takes over the
// freshest state among the reachable ones if newer. Each step is bounded
// by JoinTimeout, so a peer that stays down does not starve the transfer.
func (n *Node) join() {
	if len(n.cfg.Peers) > 0 {
		waitCtx, cancel := context.WithTimeout(context.Background(), n.cfg.JoinTimeout)
		n.waitForPeers(waitCtx)
		cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), n.cfg.JoinTimeout)
	defer cancel()

	if err := n.replica.Join(ctx); err != nil {
		logger.Warn("join failed, serving local state", "error", err)
	}

	logger.Info("replica ready",
		"auctions", n.replica.Len(),
		"last_seq", n.replica.LastSeq(),
		"peers", len(n.mesh.View()),
	)
}

// waitForPeers returns once every configured peer is reachable or ctx ends.
func (n *Node) waitForPeers(ctx context.Context) {
	want := len(n.mesh.Members())
	full := make(chan struct{}, 1)

	n.mesh.OnViewChange(func(v group.View) {
		if len(v) < want {
			return
		}
		select {
		case full <- struct{}{}:
		default:
		}
	})

	if len(n.mesh.View()) >= want {
		return
	}

	select {
	case <-full:
	case <-ctx.Done():
		logger.Info("not every peer reachable before the join deadline",
			"reachable", len(n.mesh.View()),
			"configured", want,
		)
	}
}

// waitForShutdown blocks until SIGINT or SIGTERM is received.
func (n *Node) waitForShutdown() error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", "signal", sig.String())

	return n.Close()
}

// Close shuts down all node components gracefully.
func (n *Node) Close() error {
	if n.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		n.metrics.Shutdown(ctx)
		cancel()
	}

	if n.mesh != nil {
		n.mesh.Close()
	}

	if n.network != nil {
		n.network.Close()
	}

	if n.storage != nil {
		return n.storage.Close()
	}

	return nil
}
