package tiers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestCatalogFeesNonDecreasing(t *testing.T) {
	for i := 1; i < len(Catalog); i++ {
		prev, cur := Catalog[i-1], Catalog[i]
		if prev.Key == KeyCorporate && cur.Key == KeyLifetime {
			// The one documented tie.
			assert.Equal(t, prev.Fee, cur.Fee)
			continue
		}
		assert.Greaterf(t, cur.Fee, prev.Fee, "fee for %q must exceed fee for %q", cur.Key, prev.Key)
	}
}

func TestGet(t *testing.T) {
	tier, ok := Get(KeyAssociate)
	require.True(t, ok)
	assert.Equal(t, Cents(4000), tier.Fee)
	assert.Equal(t, "Associate", tier.DisplayName)

	_, ok = Get("platinum")
	assert.False(t, ok)
}

func TestEligibleUpgradesForStudent(t *testing.T) {
	upgrades := EligibleUpgrades(KeyStudent, 1500)

	keys := make([]string, len(upgrades))
	for i, u := range upgrades {
		keys[i] = u.Key
	}
	// Every higher tier except lifetime, which is only reachable from
	// full professional.
	assert.Equal(t, []string{
		KeyAssociate,
		KeyAffiliate,
		KeyFullProfessional,
		KeyInstitutional,
		KeyCorporate,
	}, keys)
}

func TestEligibleUpgradesIncludesLifetimeOnlyFromFullProfessional(t *testing.T) {
	for _, key := range Keys() {
		tier, ok := Get(key)
		require.True(t, ok)
		upgrades := EligibleUpgrades(key, tier.Fee)

		hasLifetime := false
		for _, u := range upgrades {
			if u.Key == KeyLifetime {
				hasLifetime = true
			}
		}
		assert.Equal(t, key == KeyFullProfessional, hasLifetime, "current tier %q", key)
	}
}

func TestEligibleUpgradesPreservesCatalogOrder(t *testing.T) {
	// Declaration order, not price order, is the display contract.
	upgrades := EligibleUpgrades(KeyAssociate, 4000)
	keys := make([]string, len(upgrades))
	for i, u := range upgrades {
		keys[i] = u.Key
	}
	assert.Equal(t, []string{KeyAffiliate, KeyFullProfessional, KeyInstitutional, KeyCorporate}, keys)
}

func TestEligibleUpgradesEmptyAtTopTier(t *testing.T) {
	assert.Empty(t, EligibleUpgrades(KeyLifetime, 50000))
	assert.Empty(t, EligibleUpgrades(KeyCorporate, 50000))
}

func TestEligibleUpgradesNeverLateralOrDownward(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		current := rapid.SampledFrom(Keys()).Draw(t, "current")
		paid := Cents(rapid.Int64Range(0, 60000).Draw(t, "paid"))

		for _, u := range EligibleUpgrades(current, paid) {
			if u.Fee <= paid {
				t.Fatalf("tier %q with fee %s offered against paid amount %s", u.Key, u.Fee, paid)
			}
			if u.Key == current {
				t.Fatalf("current tier %q offered as its own upgrade", current)
			}
		}
	})
}
