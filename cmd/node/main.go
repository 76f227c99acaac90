// Command node runs the rock-paper-scissors contract behind a JSON-RPC endpoint.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/tolelom/rpschain/config"
	"github.com/tolelom/rpschain/core"
	"github.com/tolelom/rpschain/events"
	"github.com/tolelom/rpschain/indexer"
	"github.com/tolelom/rpschain/rpc"
	"github.com/tolelom/rpschain/storage"
	"github.com/tolelom/rpschain/vm"
	"github.com/tolelom/rpschain/wallet"

	// Import contract modules to trigger their init() self-registration.
	_ "github.com/tolelom/rpschain/vm/modules/rps"
)

func main() {
	cfgPath := flag.String("config", "config.yml", "path to config file (yaml or json)")
	keyPath := flag.String("key", "node.key", "path to keystore file")
	genKey := flag.Bool("genkey", false, "generate a new node key and exit")
	writeCfg := flag.String("writeconfig", "", "write the effective config as JSON to this path and exit")
	flag.Parse()

	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	bootLog := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// Read keystore password from environment (not CLI flags, they leak via ps).
	password := os.Getenv("RPS_PASSWORD")
	if password == "" {
		bootLog.Warn("RPS_PASSWORD not set, keystore will use an empty password")
	}

	if *genKey {
		w, err := wallet.Generate()
		if err != nil {
			fatal(bootLog, "generate key", err)
		}
		if err := wallet.SaveKey(*keyPath, password, w.PrivKey()); err != nil {
			fatal(bootLog, "save key", err)
		}
		fmt.Printf("Generated key. Public key (identity): %s\n", w.PubKey())
		fmt.Printf("Saved to: %s\n", *keyPath)
		return
	}

	cfg, err := loadConfig(bootLog, *cfgPath)
	if err != nil {
		fatal(bootLog, "config", err)
	}
	if *writeCfg != "" {
		if err := config.Save(cfg, *writeCfg); err != nil {
			fatal(bootLog, "write config", err)
		}
		bootLog.Info("config written", "path", *writeCfg)
		return
	}
	level, _ := config.ParseLevel(cfg.LogLevel)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})).
		With("node_id", cfg.NodeID, "chain_id", cfg.ChainID)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Storage outlives the signal context so shutdown can still read state.
	db, err := openDB(context.Background(), cfg)
	if err != nil {
		fatal(logger, "open db", err)
	}
	defer db.Close()
	logger.Info("storage opened", "backend", cfg.Storage.Backend)

	state := storage.NewStateDB(db)
	emitter := events.NewEmitter(logger)
	idx := indexer.New(db, emitter, logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	exec := vm.NewExecutor(state, emitter, vm.Options{
		ChainID: cfg.ChainID,
		Logger:  logger,
		Metrics: vm.NewMetrics(reg),
	})

	if cfg.InstantiateOnBoot {
		if err := bootstrap(logger, exec, *keyPath, password); err != nil {
			fatal(logger, "instantiate", err)
		}
	}

	stream := rpc.NewStream(emitter, logger)
	server := rpc.NewServer(rpc.NewHandler(exec, idx), rpc.ServerConfig{
		Addr:      cfg.RPCAddr(),
		AuthToken: cfg.RPC.AuthToken,
		Gatherer:  reg,
		Stream:    stream,
		Logger:    logger,
	})
	if err := server.Start(); err != nil {
		fatal(logger, "rpc start", err)
	}
	logger.Info("rpc listening", "addr", server.Addr(), "auth", cfg.RPC.AuthToken != "")

	<-ctx.Done()
	logger.Info("shutting down")
	if err := server.Stop(); err != nil {
		logger.Error("rpc stop", "error", err)
	}
	logger.Info("shutdown complete", "state_root", exec.StateRoot())
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}

func loadConfig(logger *slog.Logger, path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Info("config file not found, using defaults", "path", path)
			cfg, err = config.DefaultConfig()
			if err != nil {
				return nil, err
			}
			return cfg, cfg.Validate()
		}
		return nil, err
	}
	return cfg, nil
}

func openDB(ctx context.Context, cfg *config.Config) (storage.DB, error) {
	switch cfg.Storage.Backend {
	case config.BackendRedis:
		r := cfg.Storage.Redis
		return storage.NewRedisDB(ctx, r.Addr(), r.DB, r.Namespace)
	case config.BackendMemory:
		return storage.NewMemoryDB()
	default:
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir data dir: %w", err)
		}
		return storage.NewLevelDB(filepath.Join(cfg.DataDir, "state"))
	}
}

// bootstrap instantiates the contract with the node key as owner, unless an
// owner is already recorded.
func bootstrap(logger *slog.Logger, exec *vm.Executor, keyPath, password string) error {
	_, err := exec.Query(core.QueryGetOwner, nil)
	if err == nil {
		return nil
	}
	if !errors.Is(err, core.ErrNotInstantiated) {
		return err
	}

	priv, err := wallet.LoadKey(keyPath, password)
	if err != nil {
		return fmt.Errorf("load key %s: %w", keyPath, err)
	}
	w := wallet.New(priv)
	nonce, err := exec.Nonce(w.PubKey())
	if err != nil {
		return err
	}
	tx, err := w.Instantiate(exec.ChainID(), nonce)
	if err != nil {
		return err
	}
	res, err := exec.ExecuteTx(tx)
	if err != nil {
		return err
	}
	logger.Info("contract instantiated", "owner", w.PubKey(), "tx_id", res.TxID)
	return nil
}
