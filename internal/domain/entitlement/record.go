package entitlement

import "time"

// Entitlement is one grant from the billing backend, active or not
type Entitlement struct {
	ID       string `json:"id"`
	IsActive bool   `json:"is_active"`
}

// CustomerRecord is an immutable snapshot of a user's billing state at the
// instant it was read. Absence of an entitlement id means "not granted",
// never an error.
type CustomerRecord struct {
	UserID       string        `json:"user_id"`
	Entitlements []Entitlement `json:"entitlements"`
}

// ActiveEntitlements returns only the currently active grants
func (r CustomerRecord) ActiveEntitlements() []Entitlement {
	var active []Entitlement
	for _, e := range r.Entitlements {
		if e.IsActive {
			active = append(active, e)
		}
	}
	return active
}

// ResolvedState is the outcome of resolving a CustomerRecord into a tier.
// It is replaced atomically on every resolution, never mutated in place.
type ResolvedState struct {
	Tier       Tier
	Record     CustomerRecord
	ResolvedAt time.Time
}
