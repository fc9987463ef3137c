package config

import (
	"fmt"
	"strings"
)

// ValidateConfig rejects configurations the daemon cannot start with.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil")
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		return fmt.Errorf("DataDir must be set")
	}
	if cfg.ChainID == 0 {
		return fmt.Errorf("ChainID must be greater than zero")
	}
	if strings.TrimSpace(cfg.RPC.Address) == "" {
		return fmt.Errorf("rpc: Address must be set")
	}
	if cfg.RPC.RateLimitPerSec < 0 {
		return fmt.Errorf("rpc: RateLimitPerSec must not be negative")
	}
	if cfg.RPC.RateLimitPerSec > 0 && cfg.RPC.RateLimitBurst <= 0 {
		return fmt.Errorf("rpc: RateLimitBurst must be positive when rate limiting is enabled")
	}
	if strings.TrimSpace(cfg.Staking.ProgramLabel) == "" {
		return fmt.Errorf("staking: ProgramLabel must be set")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Indexer.Driver)) {
	case "":
	case "sqlite", "postgres":
		if strings.TrimSpace(cfg.Indexer.DSN) == "" {
			return fmt.Errorf("indexer: DSN must be set for driver %q", cfg.Indexer.Driver)
		}
	default:
		return fmt.Errorf("indexer: unsupported driver %q", cfg.Indexer.Driver)
	}
	if cfg.Telemetry.SampleRatio < 0 || cfg.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry: SampleRatio must be within [0,1]")
	}
	return nil
}
