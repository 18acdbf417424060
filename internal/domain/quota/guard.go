// Package quota decides whether a new document may be created under the
// current tier's limit. The guard is a pure predicate: it performs no
// mutation and triggers no network or storage operation. Callers must
// re-check immediately before the actual create; the race window between
// check and create is owned by the document store, not this package.
package quota

import "github.com/docspace/backend/internal/domain/entitlement"

// Unlimited marks a decision without a document limit
const Unlimited int64 = -1

// Decision is the outcome of a quota check. Limit and Remaining are -1 when
// the tier is unbounded.
type Decision struct {
	Allowed   bool  `json:"allowed"`
	Limit     int64 `json:"limit"`
	Remaining int64 `json:"remaining"`
}

// IsUnlimited returns true if the decision carries no limit
func (d Decision) IsUnlimited() bool {
	return d.Limit == Unlimited
}

// Guard enforces per-tier document quotas
type Guard struct{}

// NewGuard creates a quota guard
func NewGuard() *Guard {
	return &Guard{}
}

// CanCreate decides whether one more document may be created given the
// current count and tier. A negative count is treated as zero.
func (g *Guard) CanCreate(tier entitlement.Tier, currentCount int64) Decision {
	if currentCount < 0 {
		currentCount = 0
	}

	if tier.IsUnlimited() {
		return Decision{
			Allowed:   true,
			Limit:     Unlimited,
			Remaining: Unlimited,
		}
	}

	remaining := tier.MaxDocuments - currentCount
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   currentCount < tier.MaxDocuments,
		Limit:     tier.MaxDocuments,
		Remaining: remaining,
	}
}
