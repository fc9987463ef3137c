package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"nftstake/native/staking"
)

const (
	defaultNetworkName  = "nftstake-local"
	defaultChainID      = 7077
	defaultProgramLabel = "nft-staking"
	defaultAuthTokenEnv = "NFTSTAKE_RPC_TOKEN"
)

type Config struct {
	DataDir     string `toml:"DataDir"`
	GenesisFile string `toml:"GenesisFile"`
	NetworkName string `toml:"NetworkName"`
	ChainID     uint64 `toml:"ChainID"`
	Environment string `toml:"Environment"`

	RPC       RPC       `toml:"rpc"`
	Staking   Staking   `toml:"staking"`
	Logging   Logging   `toml:"logging"`
	Telemetry Telemetry `toml:"telemetry"`
	Indexer   Indexer   `toml:"indexer"`
}

// Load loads the configuration from the given path, writing a default file
// when none exists. NFTSTAKE_ENV overrides the environment name.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg, err = createDefault(path)
		if err != nil {
			return nil, err
		}
	} else {
		meta, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, err
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("config file %s has unknown key %s", path, undecoded[0])
		}
	}
	applyDefaults(cfg)
	if env := strings.TrimSpace(os.Getenv("NFTSTAKE_ENV")); env != "" {
		cfg.Environment = env
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = defaultNetworkName
	}
	if cfg.ChainID == 0 {
		cfg.ChainID = defaultChainID
	}
	if strings.TrimSpace(cfg.Staking.ProgramLabel) == "" {
		cfg.Staking.ProgramLabel = defaultProgramLabel
	}
	if cfg.RPC.ReadHeaderTimeout <= 0 {
		cfg.RPC.ReadHeaderTimeout = 5
	}
	if cfg.RPC.WriteTimeout <= 0 {
		cfg.RPC.WriteTimeout = 15
	}
	if strings.TrimSpace(cfg.RPC.AuthTokenEnv) == "" {
		cfg.RPC.AuthTokenEnv = defaultAuthTokenEnv
	}
	if strings.TrimSpace(cfg.Logging.Level) == "" {
		cfg.Logging.Level = "info"
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		DataDir:     "./nftstake-data",
		GenesisFile: "",
		NetworkName: defaultNetworkName,
		ChainID:     defaultChainID,
		RPC: RPC{
			Address:           "127.0.0.1:8547",
			ReadHeaderTimeout: 5,
			WriteTimeout:      15,
			RateLimitPerSec:   20,
			RateLimitBurst:    40,
			AuthTokenEnv:      defaultAuthTokenEnv,
		},
		Staking: Staking{
			ProgramLabel:  defaultProgramLabel,
			RecordDeposit: staking.DefaultRecordDeposit,
		},
		Logging: Logging{Level: "info", MaxSizeMB: 100, MaxBackups: 5, MaxAgeDays: 28},
		Telemetry: Telemetry{
			Endpoint: "localhost:4318",
			Insecure: true,
		},
	}
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// DatabasePath returns the LevelDB directory under DataDir.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "ledger")
}
