package entitlement

import (
	"fmt"
	"sort"

	"github.com/docspace/backend/internal/domain/shared"
)

// TierID identifies a subscription tier
type TierID string

// Subscription tiers, ordered by privilege
const (
	TierFree    TierID = "free"
	TierPro     TierID = "pro"
	TierPremium TierID = "premium"
)

// UnlimitedDocuments marks a tier without a document limit
const UnlimitedDocuments int64 = -1

// Tier is an immutable bundle of quota and feature access, ranked by privilege
type Tier struct {
	ID           TierID
	Rank         int
	MaxDocuments int64 // -1 = unlimited
	Features     []string
}

// IsUnlimited returns true if the tier has no document limit
func (t Tier) IsUnlimited() bool {
	return t.MaxDocuments == UnlimitedDocuments
}

// HasFeature checks if the tier includes a feature
func (t Tier) HasFeature(name string) bool {
	for _, f := range t.Features {
		if f == name {
			return true
		}
	}
	return false
}

// Catalog is the static table of tiers and the entitlement ids that map to them.
// It is built once at startup and never mutated.
type Catalog struct {
	tiers         []Tier // rank ascending
	byID          map[TierID]Tier
	byEntitlement map[string]TierID
}

// NewCatalog builds a catalog and validates its invariants:
// unique strictly-ordered ranks, a free (lowest-rank) tier, MaxDocuments
// non-decreasing with rank, and every entitlement mapping targeting a known tier.
func NewCatalog(tiers []Tier, entitlementMap map[string]TierID) (*Catalog, error) {
	if len(tiers) == 0 {
		return nil, shared.NewDomainError("INVALID_CATALOG", "Catalog requires at least one tier")
	}

	sorted := make([]Tier, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Rank < sorted[j].Rank })

	byID := make(map[TierID]Tier, len(sorted))
	for i, t := range sorted {
		if t.MaxDocuments < UnlimitedDocuments {
			return nil, shared.NewDomainError("INVALID_CATALOG",
				fmt.Sprintf("Tier %q has invalid document limit %d", t.ID, t.MaxDocuments))
		}
		if _, exists := byID[t.ID]; exists {
			return nil, shared.NewDomainError("INVALID_CATALOG",
				fmt.Sprintf("Duplicate tier id %q", t.ID))
		}
		if i > 0 {
			prev := sorted[i-1]
			if t.Rank == prev.Rank {
				return nil, shared.NewDomainError("INVALID_CATALOG",
					fmt.Sprintf("Tiers %q and %q share rank %d", prev.ID, t.ID, t.Rank))
			}
			// Unlimited counts as the largest possible limit.
			if !t.IsUnlimited() && (prev.IsUnlimited() || prev.MaxDocuments > t.MaxDocuments) {
				return nil, shared.NewDomainError("INVALID_CATALOG",
					fmt.Sprintf("Tier %q has a lower document limit than lower-ranked tier %q", t.ID, prev.ID))
			}
		}
		byID[t.ID] = t
	}

	byEntitlement := make(map[string]TierID, len(entitlementMap))
	for entID, tierID := range entitlementMap {
		if _, ok := byID[tierID]; !ok {
			return nil, shared.NewDomainError("INVALID_CATALOG",
				fmt.Sprintf("Entitlement %q maps to unknown tier %q", entID, tierID))
		}
		byEntitlement[entID] = tierID
	}

	return &Catalog{
		tiers:         sorted,
		byID:          byID,
		byEntitlement: byEntitlement,
	}, nil
}

// TierFor returns the tier an entitlement id maps to.
// An unknown id is not an error; it simply contributes nothing.
func (c *Catalog) TierFor(entitlementID string) (Tier, bool) {
	tierID, ok := c.byEntitlement[entitlementID]
	if !ok {
		return Tier{}, false
	}
	return c.byID[tierID], true
}

// TierByID returns a tier by its id
func (c *Catalog) TierByID(id TierID) (Tier, bool) {
	t, ok := c.byID[id]
	return t, ok
}

// AllTiers returns the tiers in rank ascending order
func (c *Catalog) AllTiers() []Tier {
	out := make([]Tier, len(c.tiers))
	copy(out, c.tiers)
	return out
}

// FreeTier returns the lowest-rank tier, the fallback when no entitlement applies
func (c *Catalog) FreeTier() Tier {
	return c.tiers[0]
}

// Feature keys gated by tier
const (
	FeatureBasicEditing   = "basic_editing"
	FeatureVersionHistory = "version_history"
	FeatureOfflineAccess  = "offline_access"
	FeatureExportPDF      = "export_pdf"
	FeatureSharedSpaces   = "shared_spaces"
	FeaturePrioritySync   = "priority_sync"
)

// DefaultCatalog returns the built-in tier table.
// Entitlement ids include the per-period product identifiers the billing
// backend reports alongside the plain tier grants.
func DefaultCatalog() *Catalog {
	catalog, err := NewCatalog(
		[]Tier{
			{
				ID:           TierFree,
				Rank:         0,
				MaxDocuments: 10,
				Features:     []string{FeatureBasicEditing},
			},
			{
				ID:           TierPro,
				Rank:         1,
				MaxDocuments: 100,
				Features: []string{
					FeatureBasicEditing,
					FeatureVersionHistory,
					FeatureOfflineAccess,
					FeatureExportPDF,
				},
			},
			{
				ID:           TierPremium,
				Rank:         2,
				MaxDocuments: UnlimitedDocuments,
				Features: []string{
					FeatureBasicEditing,
					FeatureVersionHistory,
					FeatureOfflineAccess,
					FeatureExportPDF,
					FeatureSharedSpaces,
					FeaturePrioritySync,
				},
			},
		},
		map[string]TierID{
			"pro":             TierPro,
			"pro_monthly":     TierPro,
			"pro_yearly":      TierPro,
			"premium":         TierPremium,
			"premium_monthly": TierPremium,
			"premium_yearly":  TierPremium,
		},
	)
	if err != nil {
		// The built-in table is validated by tests; a failure here is a programming error.
		panic(err)
	}
	return catalog
}
