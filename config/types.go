package config

import (
	"time"

	"github.com/mezonai/remit/store"
)

// GenesisAllocation credits an address when the instance is first created.
// Amount is a base-unit integer or a unit amount with a "u" suffix.
type GenesisAllocation struct {
	Address string `yaml:"address"`
	Amount  string `yaml:"amount"`
}

// NodeConfig holds the configuration from node.yml
type NodeConfig struct {
	Operator     string              `yaml:"operator"`
	InstanceSalt string              `yaml:"instance_salt"`
	ListenAddr   string              `yaml:"listen_addr"`
	Storage      store.StoreConfig   `yaml:"storage"`
	LedgerConfig string              `yaml:"ledger_config"`
	Genesis      []GenesisAllocation `yaml:"genesis"`
}

// ConfigFile is the top-level structure for node.yml
type ConfigFile struct {
	Config NodeConfig `yaml:"config"`
}

// LedgerConfig is the [ledger] section of the policy file. Amounts are kept
// as strings so they can carry unit suffixes; the ledger parses them.
type LedgerConfig struct {
	StartPaused   bool          `ini:"start_paused"`
	BindingMode   string        `ini:"binding_mode"`
	TwoSecrets    bool          `ini:"two_secrets"`
	KeyScheme     string        `ini:"key_scheme"`
	Fee           string        `ini:"fee"`
	FeeThreshold  string        `ini:"fee_threshold"`
	MaxExpiration time.Duration `ini:"max_expiration"`
	BenefitsDrain string        `ini:"benefits_drain"`
}
