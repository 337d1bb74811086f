// internal/tiers/catalog.go
package tiers

// Tier keys as stored in a record's membership class.
const (
	KeyStudent          = "student"
	KeyAssociate        = "associate"
	KeyAffiliate        = "affiliate"
	KeyFullProfessional = "full_professional"
	KeyInstitutional    = "institutional"
	KeyCorporate        = "corporate"
	KeyLifetime         = "lifetime"
)

// Catalog is the fixed, ordered tier table. Declaration order is a display
// contract: EligibleUpgrades preserves it, and callers rely on it for stable
// rendering. Fees are non-decreasing in declaration order except the
// corporate/lifetime tie at 50000.
var Catalog = []TierDefinition{
	{
		Key:         KeyStudent,
		DisplayName: "Student",
		Fee:         1500,
		Benefits: []string{
			"Member directory listing",
			"Quarterly newsletter",
		},
	},
	{
		Key:         KeyAssociate,
		DisplayName: "Associate",
		Fee:         4000,
		Benefits: []string{
			"Member directory listing",
			"Quarterly newsletter",
			"Discounted event registration",
		},
	},
	{
		Key:         KeyAffiliate,
		DisplayName: "Affiliate",
		Fee:         5000,
		Benefits: []string{
			"Member directory listing",
			"Quarterly newsletter",
			"Discounted event registration",
			"Resource library access",
		},
	},
	{
		Key:         KeyFullProfessional,
		DisplayName: "Full Professional",
		Fee:         8000,
		Benefits: []string{
			"Member directory listing",
			"Quarterly newsletter",
			"Discounted event registration",
			"Resource library access",
			"Voting rights",
		},
	},
	{
		Key:         KeyInstitutional,
		DisplayName: "Institutional",
		Fee:         30000,
		Benefits: []string{
			"Up to 10 staff accounts",
			"Quarterly newsletter",
			"Resource library access",
			"Institutional directory listing",
		},
	},
	{
		Key:         KeyCorporate,
		DisplayName: "Corporate",
		Fee:         50000,
		Benefits: []string{
			"Up to 25 staff accounts",
			"Sponsor recognition",
			"Resource library access",
			"Corporate directory listing",
		},
	},
	{
		Key:         KeyLifetime,
		DisplayName: "Lifetime",
		Fee:         50000,
		Benefits: []string{
			"All Full Professional benefits",
			"No renewal required",
			"Lifetime directory listing",
		},
		// Lifetime shares its fee with corporate, so fee ordering alone cannot
		// gate it. It is only reachable from full professional.
		eligibleFrom: func(currentKey string) bool {
			return currentKey == KeyFullProfessional
		},
	},
}

// Get returns the tier definition for key.
func Get(key string) (TierDefinition, bool) {
	for _, t := range Catalog {
		if t.Key == key {
			return t, true
		}
	}
	return TierDefinition{}, false
}

// Keys returns all tier keys in declaration order.
func Keys() []string {
	keys := make([]string, len(Catalog))
	for i, t := range Catalog {
		keys[i] = t.Key
	}
	return keys
}

// EligibleUpgrades returns the tiers that are a valid strict upgrade for a
// member currently on currentKey with paid already credited. The result keeps
// catalog declaration order and may be empty (no upgrades available).
func EligibleUpgrades(currentKey string, paid Cents) []TierDefinition {
	upgrades := make([]TierDefinition, 0, len(Catalog))
	for _, t := range Catalog {
		if t.Key == currentKey {
			continue
		}
		if t.Fee <= paid {
			continue
		}
		if t.eligibleFrom != nil && !t.eligibleFrom(currentKey) {
			continue
		}
		upgrades = append(upgrades, t)
	}
	return upgrades
}
