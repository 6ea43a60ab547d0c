package ledger

import (
	"fmt"
	"time"

	"github.com/holiman/uint256"
	"github.com/mezonai/remit/commitment"
	"github.com/mezonai/remit/config"
	"github.com/mezonai/remit/utils"
)

// KeyScheme selects how transfer identifiers are assigned
type KeyScheme string

const (
	// KeySequential numbers transfers "1", "2", ... in deposit order
	KeySequential KeyScheme = "sequential"
	// KeyCommitment uses the commitment hex as the identifier
	KeyCommitment KeyScheme = "commitment"
)

// DrainPolicy decides when the operator may collect benefits
type DrainPolicy string

const (
	DrainAnytime DrainPolicy = "anytime"
	// DrainIdle refuses to drain while any transfer is pending
	DrainIdle DrainPolicy = "idle"
)

// Policy is the immutable configuration of one ledger instance.
type Policy struct {
	StartPaused   bool
	Mode          commitment.Mode
	TwoSecrets    bool
	KeyScheme     KeyScheme
	Fee           *uint256.Int
	FeeThreshold  *uint256.Int
	MaxExpiration time.Duration
	BenefitsDrain DrainPolicy
}

// DefaultPolicy: bound mode, two secrets, 0.01 unit fee from 0.1 unit up
func DefaultPolicy() Policy {
	fee, _ := utils.ParseUnits("0.01")
	threshold, _ := utils.ParseUnits("0.1")
	return Policy{
		Mode:          commitment.ModeBound,
		TwoSecrets:    true,
		KeyScheme:     KeySequential,
		Fee:           fee,
		FeeThreshold:  threshold,
		MaxExpiration: config.DefaultMaxExpiration,
		BenefitsDrain: DrainAnytime,
	}
}

func PolicyFromConfig(cfg *config.LedgerConfig) (Policy, error) {
	if cfg == nil {
		return DefaultPolicy(), nil
	}
	mode, err := commitment.ParseMode(cfg.BindingMode)
	if err != nil {
		return Policy{}, err
	}
	fee, err := utils.ParseAmount(cfg.Fee)
	if err != nil {
		return Policy{}, fmt.Errorf("invalid fee: %w", err)
	}
	threshold, err := utils.ParseAmount(cfg.FeeThreshold)
	if err != nil {
		return Policy{}, fmt.Errorf("invalid fee_threshold: %w", err)
	}
	p := Policy{
		StartPaused:   cfg.StartPaused,
		Mode:          mode,
		TwoSecrets:    cfg.TwoSecrets,
		KeyScheme:     KeyScheme(cfg.KeyScheme),
		Fee:           fee,
		FeeThreshold:  threshold,
		MaxExpiration: cfg.MaxExpiration,
		BenefitsDrain: DrainPolicy(cfg.BenefitsDrain),
	}
	if p.KeyScheme == "" {
		p.KeyScheme = KeySequential
	}
	if p.BenefitsDrain == "" {
		p.BenefitsDrain = DrainAnytime
	}
	return p, p.Validate()
}

// Validate checks the policy once, at construction. fee <= threshold is what
// keeps every payout non-negative.
func (p Policy) Validate() error {
	if p.Mode != commitment.ModeBound && p.Mode != commitment.ModeBearer {
		return fmt.Errorf("unsupported binding mode: %q", p.Mode)
	}
	if p.KeyScheme != KeySequential && p.KeyScheme != KeyCommitment {
		return fmt.Errorf("unsupported key scheme: %q", p.KeyScheme)
	}
	if p.BenefitsDrain != DrainAnytime && p.BenefitsDrain != DrainIdle {
		return fmt.Errorf("unsupported benefits drain policy: %q", p.BenefitsDrain)
	}
	if p.Fee == nil || p.FeeThreshold == nil {
		return fmt.Errorf("fee and fee threshold must be set")
	}
	if p.Fee.Gt(p.FeeThreshold) {
		return fmt.Errorf("fee %s exceeds fee threshold %s", p.Fee.Dec(), p.FeeThreshold.Dec())
	}
	if p.MaxExpiration <= 0 {
		return fmt.Errorf("max expiration must be positive, got %s", p.MaxExpiration)
	}
	return nil
}
