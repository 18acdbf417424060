package entitlement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(userID string, entitlements ...Entitlement) CustomerRecord {
	return CustomerRecord{UserID: userID, Entitlements: entitlements}
}

func TestResolver_Resolve(t *testing.T) {
	resolver := NewResolver(DefaultCatalog())

	tests := []struct {
		name   string
		record CustomerRecord
		want   TierID
	}{
		{
			name:   "no entitlements falls back to free",
			record: record("user-1"),
			want:   TierFree,
		},
		{
			name: "single active pro entitlement",
			record: record("user-1",
				Entitlement{ID: "pro_monthly", IsActive: true}),
			want: TierPro,
		},
		{
			name: "inactive entitlements are ignored",
			record: record("user-1",
				Entitlement{ID: "premium_monthly", IsActive: false}),
			want: TierFree,
		},
		{
			name: "highest rank wins when multiple are active",
			record: record("user-1",
				Entitlement{ID: "pro_yearly", IsActive: true},
				Entitlement{ID: "premium_monthly", IsActive: true}),
			want: TierPremium,
		},
		{
			name: "expired premium with active pro resolves to pro",
			record: record("user-1",
				Entitlement{ID: "premium_yearly", IsActive: false},
				Entitlement{ID: "pro_monthly", IsActive: true}),
			want: TierPro,
		},
		{
			name: "unknown entitlement ids contribute nothing",
			record: record("user-1",
				Entitlement{ID: "legacy_gold", IsActive: true}),
			want: TierFree,
		},
		{
			name: "unknown id does not shadow a known one",
			record: record("user-1",
				Entitlement{ID: "legacy_gold", IsActive: true},
				Entitlement{ID: "pro_monthly", IsActive: true}),
			want: TierPro,
		},
		{
			name: "entitlement order does not matter",
			record: record("user-1",
				Entitlement{ID: "premium_monthly", IsActive: true},
				Entitlement{ID: "pro_yearly", IsActive: true}),
			want: TierPremium,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolver.Resolve(tt.record)
			assert.Equal(t, tt.want, got.ID)
		})
	}
}

func TestResolver_ResolveIsIdempotent(t *testing.T) {
	resolver := NewResolver(DefaultCatalog())
	rec := record("user-1",
		Entitlement{ID: "pro_monthly", IsActive: true},
		Entitlement{ID: "premium_yearly", IsActive: false})

	first := resolver.Resolve(rec)
	second := resolver.Resolve(rec)

	assert.Equal(t, first, second)
}

func TestResolver_ResolveIsMonotonic(t *testing.T) {
	resolver := NewResolver(DefaultCatalog())

	base := record("user-1", Entitlement{ID: "pro_monthly", IsActive: true})
	baseTier := resolver.Resolve(base)

	// Adding any active entitlement never lowers the resolved rank.
	for _, extra := range []string{"pro_yearly", "premium_monthly", "unknown_promo"} {
		grown := base
		grown.Entitlements = append([]Entitlement{{ID: extra, IsActive: true}}, base.Entitlements...)
		tier := resolver.Resolve(grown)
		assert.GreaterOrEqual(t, tier.Rank, baseTier.Rank, "adding %q lowered the rank", extra)
	}
}

func TestResolver_UnknownEntitlements(t *testing.T) {
	resolver := NewResolver(DefaultCatalog())

	rec := record("user-1",
		Entitlement{ID: "pro_monthly", IsActive: true},
		Entitlement{ID: "legacy_gold", IsActive: true},
		Entitlement{ID: "retired_plan", IsActive: false})

	unknown := resolver.UnknownEntitlements(rec)

	// Inactive unknown ids are not reported; they never mattered.
	require.Len(t, unknown, 1)
	assert.Equal(t, "legacy_gold", unknown[0])
}

func TestCustomerRecord_ActiveEntitlements(t *testing.T) {
	rec := record("user-1",
		Entitlement{ID: "a", IsActive: true},
		Entitlement{ID: "b", IsActive: false},
		Entitlement{ID: "c", IsActive: true})

	active := rec.ActiveEntitlements()

	require.Len(t, active, 2)
	assert.Equal(t, "a", active[0].ID)
	assert.Equal(t, "c", active[1].ID)
}
