// internal/tiers/pricing.go
package tiers

import "fmt"

// UpgradeCost computes the prorated amount owed to move to target, crediting
// the amount already paid. Targets are expected to come from EligibleUpgrades,
// which guarantees fee > paid; any target violating that precondition fails
// with ErrInvalidUpgrade rather than producing a zero or negative charge.
func UpgradeCost(target TierDefinition, currentKey string, paid Cents) (Cents, error) {
	if target.Key == currentKey {
		return 0, fmt.Errorf("%w: already on tier %q", ErrInvalidUpgrade, currentKey)
	}
	if target.eligibleFrom != nil && !target.eligibleFrom(currentKey) {
		return 0, fmt.Errorf("%w: tier %q is not reachable from %q", ErrInvalidUpgrade, target.Key, currentKey)
	}
	cost := target.Fee - paid
	if cost <= 0 {
		return 0, fmt.Errorf("%w: fee %s does not exceed paid amount %s", ErrInvalidUpgrade, target.Fee, paid)
	}
	return cost, nil
}
