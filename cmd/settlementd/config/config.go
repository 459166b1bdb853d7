package config

import (
	"fmt"
	"math/big"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// SettlementConfig is the YAML-backed daemon configuration.
type SettlementConfig struct {
	SystemName        string        `yaml:"system_name"`
	MetricsListenAddr string        `yaml:"metrics_listen_addr"`
	FeeRateWei        string        `yaml:"fee_rate_wei"`
	FeeRecipient      string        `yaml:"fee_recipient"`
	CancellationDelay time.Duration `yaml:"cancellation_delay"`
	OracleSeed        string        `yaml:"oracle_seed"`
}

// LoadConfig reads and validates the configuration at path.
func LoadConfig(path string) (*SettlementConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := &SettlementConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if cfg.SystemName == "" {
		cfg.SystemName = "settlementd"
	}
	if cfg.MetricsListenAddr == "" {
		cfg.MetricsListenAddr = ":9100"
	}
	if cfg.FeeRateWei == "" {
		cfg.FeeRateWei = "10000000000000000" // 1%
	}
	if cfg.FeeRecipient == "" {
		cfg.FeeRecipient = "treasury"
	}
	if cfg.OracleSeed == "" {
		cfg.OracleSeed = "settlementd"
	}
	if _, err := cfg.FeeRate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FeeRate parses the configured wrapper fee rate on the 1e18 scale.
func (c *SettlementConfig) FeeRate() (*big.Int, error) {
	rate, ok := new(big.Int).SetString(c.FeeRateWei, 10)
	if !ok {
		return nil, fmt.Errorf("invalid fee_rate_wei %q", c.FeeRateWei)
	}
	return rate, nil
}
