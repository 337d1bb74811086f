// internal/tiers/domain.go
package tiers

import (
	"errors"
	"fmt"
)

// Cents is a currency amount in integer minor units. All fee and proration
// arithmetic happens in Cents; conversion to a decimal display form happens
// only at the presentation boundary via String.
type Cents int64

// String renders the amount as a decimal string, e.g. 26000 -> "260.00".
func (c Cents) String() string {
	v := int64(c)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// TierDefinition describes one membership tier. The catalog of definitions is
// immutable and loaded once per process.
type TierDefinition struct {
	Key         string   `json:"key"`
	DisplayName string   `json:"display_name"`
	Fee         Cents    `json:"fee"`
	Benefits    []string `json:"benefits"`

	// eligibleFrom restricts which current tiers may move to this one.
	// nil means no restriction beyond the fee checks in EligibleUpgrades.
	eligibleFrom func(currentKey string) bool
}

var (
	ErrUnknownTier    = errors.New("unknown membership tier")
	ErrInvalidUpgrade = errors.New("invalid upgrade: target is not a strict upgrade over the amount paid")
)
