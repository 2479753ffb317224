package api

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"

	"dappsuite/sdk"
)

// Config is the process configuration, read from DAPPSUITE_* environment
// variables.
type Config struct {
	// Listen is the HTTP bind address.
	Listen string `envconfig:"LISTEN" default:":8080"`
	// DataDir holds the badger store; empty runs fully in memory.
	DataDir string `envconfig:"DATA_DIR" default:""`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	// PlatformAddress receives the withdrawal fee cut, base58. Empty
	// disables the cut.
	PlatformAddress string `envconfig:"PLATFORM_ADDRESS" default:""`
	// PlatformFeeBps is the withdrawal fee in basis points.
	PlatformFeeBps uint32 `envconfig:"PLATFORM_FEE_BPS" default:"0"`
	// FaucetAmount is what one airdrop request credits. Zero disables the
	// faucet entirely.
	FaucetAmount uint64 `envconfig:"FAUCET_AMOUNT" default:"100000"`
}

// LoadConfig reads the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("dappsuite", &cfg); err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if cfg.PlatformAddress != "" {
		if _, err := sdk.AddressFromString(cfg.PlatformAddress); err != nil {
			return Config{}, fmt.Errorf("platform address: %w", err)
		}
	}
	return cfg, nil
}
