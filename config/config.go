package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// Storage backends.
const (
	BackendLevelDB = "leveldb"
	BackendRedis   = "redis"
	BackendMemory  = "memory" // state is lost on exit
)

// Config holds all node configuration. Values come from env-default, then
// the config file (YAML or JSON, by extension), then environment variables.
type Config struct {
	NodeID            string        `yaml:"node_id" json:"node_id" env:"RPS_NODE_ID" env-default:"node0"`
	ChainID           string        `yaml:"chain_id" json:"chain_id" env:"RPS_CHAIN_ID" env-default:"rpschain-dev"`
	DataDir           string        `yaml:"data_dir" json:"data_dir" env:"RPS_DATA_DIR" env-default:"./data"`
	LogLevel          string        `yaml:"log_level" json:"log_level" env:"RPS_LOG_LEVEL" env-default:"info"`
	InstantiateOnBoot bool          `yaml:"instantiate_on_boot" json:"instantiate_on_boot" env:"RPS_INSTANTIATE_ON_BOOT" env-default:"true"`
	Storage           StorageConfig `yaml:"storage" json:"storage"`
	RPC               RPCConfig     `yaml:"rpc" json:"rpc"`
}

// StorageConfig selects and configures the key-value backend.
type StorageConfig struct {
	Backend string      `yaml:"backend" json:"backend" env:"RPS_STORAGE_BACKEND" env-default:"leveldb"`
	Redis   RedisConfig `yaml:"redis" json:"redis"`
}

// RedisConfig locates the Redis server used by the redis backend.
type RedisConfig struct {
	Host      string `yaml:"host" json:"host" env:"RPS_REDIS_HOST" env-default:"localhost"`
	Port      string `yaml:"port" json:"port" env:"RPS_REDIS_PORT" env-default:"6379"`
	DB        int    `yaml:"db" json:"db" env:"RPS_REDIS_DB" env-default:"0"`
	Namespace string `yaml:"namespace" json:"namespace" env:"RPS_REDIS_NAMESPACE" env-default:"rps:"`
}

// RPCConfig configures the JSON-RPC listener.
type RPCConfig struct {
	Port      int    `yaml:"port" json:"port" env:"RPS_RPC_PORT" env-default:"8545"`
	AuthToken string `yaml:"auth_token" json:"auth_token" env:"RPS_RPC_AUTH_TOKEN"` // empty → no auth
}

// Addr returns host:port for the Redis server.
func (r RedisConfig) Addr() string {
	return net.JoinHostPort(r.Host, r.Port)
}

// DefaultConfig returns a single-node development configuration, with
// environment overrides applied.
func DefaultConfig() (*Config, error) {
	cfg := &Config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("read config from env: %w", err)
	}
	return cfg, nil
}

// Load reads a YAML or JSON config file from path and validates it.
// A missing file is reported with an error satisfying os.IsNotExist.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("unable to load config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to path as formatted JSON.
func Save(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate rejects values the node cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.ChainID == "" {
		errs = append(errs, errors.New("chain_id is required"))
	}
	switch c.Storage.Backend {
	case BackendLevelDB, BackendRedis, BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend %q", c.Storage.Backend))
	}
	if c.RPC.Port < 0 || c.RPC.Port > 65535 {
		errs = append(errs, fmt.Errorf("rpc port %d out of range", c.RPC.Port))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// RPCAddr returns the listen address for the RPC server.
func (c *Config) RPCAddr() string {
	return ":" + strconv.Itoa(c.RPC.Port)
}

// ParseLevel maps a config log level to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}
