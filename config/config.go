package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/mezonai/remit/logx"
	"github.com/mezonai/remit/types"
	"github.com/mezonai/remit/utils"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

const (
	DefaultListenAddr    = "127.0.0.1:8545"
	DefaultMaxExpiration = 720 * time.Hour
)

// DefaultLedgerConfig is what an absent or partial [ledger] section yields
func DefaultLedgerConfig() *LedgerConfig {
	return &LedgerConfig{
		StartPaused:   false,
		BindingMode:   "bound",
		TwoSecrets:    true,
		KeyScheme:     "sequential",
		Fee:           "0.01u",
		FeeThreshold:  "0.1u",
		MaxExpiration: DefaultMaxExpiration,
		BenefitsDrain: "anytime",
	}
}

// LoadNodeConfig reads and parses the node.yml file
func LoadNodeConfig(path string) (*NodeConfig, error) {
	logx.Info("CONFIG", "LoadNodeConfig called with path:", path)
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open node config: %w", err)
	}
	defer file.Close()

	var cfgFile ConfigFile
	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(&cfgFile); err != nil {
		return nil, fmt.Errorf("failed to decode node config: %w", err)
	}

	cfg := &cfgFile.Config
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = DefaultListenAddr
	}
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "memory"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logx.Info("CONFIG", fmt.Sprintf("Loaded node config: operator=%s storage=%s genesis=%d entries",
		cfg.Operator, cfg.Storage.Type, len(cfg.Genesis)))
	return cfg, nil
}

func (c *NodeConfig) Validate() error {
	if c.Operator == "" {
		return fmt.Errorf("operator cannot be empty")
	}
	if _, err := c.Salt(); err != nil {
		return err
	}
	if _, err := c.Allocations(); err != nil {
		return err
	}
	return c.Storage.Validate()
}

// Salt decodes instance_salt. An empty salt returns nil and lets the node
// pick a random one on first start.
func (c *NodeConfig) Salt() ([]byte, error) {
	if c.InstanceSalt == "" {
		return nil, nil
	}
	salt, err := hex.DecodeString(c.InstanceSalt)
	if err != nil {
		return nil, fmt.Errorf("invalid instance_salt: %w", err)
	}
	return salt, nil
}

// Allocations parses the genesis section
func (c *NodeConfig) Allocations() ([]types.Allocation, error) {
	out := make([]types.Allocation, 0, len(c.Genesis))
	for i, g := range c.Genesis {
		if g.Address == "" {
			return nil, fmt.Errorf("genesis entry %d: address cannot be empty", i)
		}
		amount, err := utils.ParseAmount(g.Amount)
		if err != nil {
			return nil, fmt.Errorf("genesis entry %d: %w", i, err)
		}
		out = append(out, types.Allocation{Address: types.Address(g.Address), Amount: amount})
	}
	return out, nil
}

// LoadLedgerConfig reads the [ledger] section from an .ini file on top of
// the defaults. An empty path returns the defaults.
func LoadLedgerConfig(path string) (*LedgerConfig, error) {
	ledgerCfg := DefaultLedgerConfig()
	if path == "" {
		return ledgerCfg, nil
	}
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Section("ledger").MapTo(ledgerCfg); err != nil {
		return nil, err
	}
	return ledgerCfg, nil
}
