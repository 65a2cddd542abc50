// Engine Daemon - process entry point wiring storage, the UTXO and TxID
// Merkle trees and the Groth16 prover. The commitment scanner, transaction
// builder and PPOI pipeline are not constructed here, and no indexer or
// ppoinode client is created.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/privacypool/engine/config"
	applog "github.com/privacypool/engine/internal/log"
	"github.com/privacypool/engine/internal/merkle"
	"github.com/privacypool/engine/internal/prover"
	"github.com/privacypool/engine/internal/storage"
	"github.com/privacypool/engine/internal/txidtree"
)

const (
	version = "0.1.0"
	banner  = `
  ____            _
 / ___|___  _ __ | |__   _____  _ __ ___    _
| |   / _ \| '_ \| '_ \ / _ \ \/ / '__/ _ \  | |
| |__| (_) | | | | | | |  __/>  <| | |  __/ |_|
 \____\___/|_| |_|_| |_|\___/_/\_\_|  \___| (_)

  Engine Daemon v%s
  RAILGUN-style privacy wallet core
`
)

// Config holds daemon configuration.
type Config struct {
	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string

	// Session store
	SessionPath string

	// Network
	Network   string
	ChainType uint
	ChainID   uint64

	LogLevel string
	LogFile  string

	DataDir string
}

func main() {
	cfg := parseFlags()

	fmt.Printf(banner, version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nShutting down...")
		cancel()
	}()

	if err := run(ctx, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() *Config {
	cfg := &Config{}

	flag.StringVar(&cfg.DBHost, "db-host", "localhost", "PostgreSQL host")
	flag.IntVar(&cfg.DBPort, "db-port", 5432, "PostgreSQL port")
	flag.StringVar(&cfg.DBUser, "db-user", "engine", "PostgreSQL user")
	flag.StringVar(&cfg.DBPassword, "db-password", "", "PostgreSQL password")
	flag.StringVar(&cfg.DBName, "db-name", "engine", "PostgreSQL database name")

	flag.StringVar(&cfg.SessionPath, "session-path", "./data/session.db", "session-scoped bbolt store path")

	flag.StringVar(&cfg.Network, "network", "ethereum", "network name (see config.DefaultChainTable)")
	flag.UintVar(&cfg.ChainType, "chain-type", 0, "chain type, only used when -chain-id is non-zero")
	flag.Uint64Var(&cfg.ChainID, "chain-id", 0, "chain id; a non-zero value registers -network with -chain-type and this id")

	flag.StringVar(&cfg.LogLevel, "log-level", "info", "log level (debug, info, warn, error); accepted, but the logger prints every level")
	flag.StringVar(&cfg.LogFile, "log-file", "", "log file path (empty for stderr)")

	flag.StringVar(&cfg.DataDir, "data-dir", "./data", "data directory")

	flag.Parse()

	return cfg
}

// components bundles everything a long-running engine process needs to
// answer scan/build/prove requests for one network. cmd/enginectl (or any
// embedder) drives these through their own exported APIs; this daemon's job
// ends at wiring them together and staying up. It deliberately owns no
// indexer or PPOI-node transport: both are external collaborators supplied
// by the operator's own client, never constructed here.
type components struct {
	durable *storage.PostgresBackend
	session *storage.SessionBackend

	utxoTree *merkle.Tree
	txidTree *txidtree.Tree
	prover   *prover.Prover

	logger *applog.Logger
}

func run(ctx context.Context, cfg *Config) error {
	fmt.Println("Initializing engine daemon...")

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	chainTable := config.DefaultChainTable()
	if cfg.ChainID != 0 {
		chainTable.Add(cfg.Network, uint8(cfg.ChainType), cfg.ChainID)
	}
	entry, ok := chainTable.Lookup(cfg.Network)
	if !ok {
		return fmt.Errorf("unrecognized network %q: pass -chain-id to register it", cfg.Network)
	}

	logger := applog.Default("engined")
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer f.Close()
		logger = applog.New("engined", f)
	}
	logger.Infof("network %s resolved to chain type %d, chain id %d", entry.Name, entry.ChainID.ChainType, entry.ChainID.ID)

	fmt.Println("Connecting to database...")
	durable, err := storage.NewPostgresBackend(ctx, storage.PostgresConfig{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Database: cfg.DBName,
		SSLMode:  "disable",
		MaxConns: 20,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer durable.Close()
	fmt.Println("Database connected.")

	session, err := storage.NewSessionBackend(cfg.SessionPath)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	defer session.Close()

	fmt.Println("Initializing UTXO Merkle tree...")
	utxoTree, err := merkle.New(storage.NewKVMerkleStore(durable))
	if err != nil {
		return fmt.Errorf("failed to initialize utxo tree: %w", err)
	}

	fmt.Println("Initializing TxID Merkle tree...")
	txidIndex := storage.NewKVTxidIndex(durable, entry.Name)
	txTree, err := txidtree.New(storage.NewKVMerkleStore(durable), txidIndex, 0)
	if err != nil {
		return fmt.Errorf("failed to initialize txid tree: %w", err)
	}

	c := &components{
		durable:  durable,
		session:  session,
		utxoTree: utxoTree,
		txidTree: txTree,
		prover:   prover.New(),
		logger:   logger,
	}

	root, err := c.utxoTree.GetRoot(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to read utxo tree root: %w", err)
	}
	c.logger.Infof("utxo tree 0 root %s", root.String())

	fmt.Println("Engine daemon started successfully!")
	fmt.Println("Press Ctrl+C to stop.")
	fmt.Println("Indexer and PPOI-node collaborators are wired by the embedding client, not this process.")

	<-ctx.Done()

	fmt.Println("Daemon stopped.")
	return nil
}
