package entitlement

// Resolver maps a raw customer record to the single active tier.
type Resolver struct {
	catalog *Catalog
}

// NewResolver creates a resolver over a validated catalog
func NewResolver(catalog *Catalog) *Resolver {
	return &Resolver{catalog: catalog}
}

// Catalog returns the catalog the resolver resolves against
func (r *Resolver) Catalog() *Catalog {
	return r.catalog
}

// Resolve computes the highest-rank tier among the record's active
// entitlements that the catalog recognizes, or the free tier if none apply.
// It is pure and total: it never fails for any well-formed record, including
// one with zero entitlements. Resolving the same record twice yields the
// same tier.
func (r *Resolver) Resolve(record CustomerRecord) Tier {
	best := r.catalog.FreeTier()
	for _, e := range record.Entitlements {
		if !e.IsActive {
			continue
		}
		tier, ok := r.catalog.TierFor(e.ID)
		if !ok {
			continue
		}
		if tier.Rank > best.Rank {
			best = tier
		}
	}
	return best
}

// UnknownEntitlements returns the active entitlement ids the catalog does not
// recognize. They never affect resolution; callers log them for diagnosis of
// renamed or retired products.
func (r *Resolver) UnknownEntitlements(record CustomerRecord) []string {
	var unknown []string
	for _, e := range record.Entitlements {
		if !e.IsActive {
			continue
		}
		if _, ok := r.catalog.TierFor(e.ID); !ok {
			unknown = append(unknown, e.ID)
		}
	}
	return unknown
}
