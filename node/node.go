// Package node wires the durable mempool together: storage environment,
// metrics registry and the mempool itself. The JSON-RPC surface, p2p layer
// and bundling loop attach to a running node through Mempool().
package node

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/da-bao-jian/aa-bundler/core/config"
	"github.com/da-bao-jian/aa-bundler/mempool"
	"github.com/da-bao-jian/aa-bundler/metrics"
	"github.com/da-bao-jian/aa-bundler/storage"
)

type Node struct {
	cfg  *config.Config
	db   storage.Storage
	pool mempool.Mempool
	reg  *prometheus.Registry
}

// New opens the storage environment at the configured path and builds the
// mempool on top of it. The environment is the single shared resource of the
// process; callers own the returned node and must Close it.
func New(cfg *config.Config) (*Node, error) {
	db, err := storage.NewWithPath(cfg.DbPath)
	if err != nil {
		return nil, fmt.Errorf("open mempool database at %s: %w", cfg.DbPath, err)
	}

	reg := prometheus.NewRegistry()
	pool := mempool.NewDatabaseMempool(db, cfg.Logger, metrics.NewMempoolMetrics(reg))

	return &Node{
		cfg:  cfg,
		db:   db,
		pool: pool,
		reg:  reg,
	}, nil
}

// Mempool returns the shared pool for in-process collaborators.
func (n *Node) Mempool() mempool.Mempool {
	return n.pool
}

func (n *Node) Close() error {
	return n.db.Close()
}

// Run serves the metrics endpoint and blocks until the process is told to
// stop, then tears the environment down.
func (n *Node) Run() error {
	logger := n.cfg.Logger

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(n.reg, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: n.cfg.MetricsAddr, Handler: mux}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("metrics server stopped: %v", err)
		}
	}()

	logger.Info("mempool node started",
		"db_path", n.db.DbPath(),
		"entry_point", n.cfg.EntryPointAddress.Hex(),
		"chain_id", n.cfg.ChainID.String(),
		"metrics_addr", n.cfg.MetricsAddr,
	)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	logger.Info("shutting down")
	server.Close()
	return n.Close()
}

// RunWithConfig loads the config file at path and runs a node until
// interrupted.
func RunWithConfig(configPath string) error {
	cfg, err := config.NewConfig(configPath)
	if err != nil {
		return err
	}

	n, err := New(cfg)
	if err != nil {
		return err
	}
	return n.Run()
}
