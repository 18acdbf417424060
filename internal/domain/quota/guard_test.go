package quota

import (
	"testing"

	"github.com/docspace/backend/internal/domain/entitlement"
	"github.com/stretchr/testify/assert"
)

func TestGuard_CanCreate(t *testing.T) {
	guard := NewGuard()
	pro := entitlement.Tier{ID: entitlement.TierPro, Rank: 1, MaxDocuments: 100}
	premium := entitlement.Tier{ID: entitlement.TierPremium, Rank: 2, MaxDocuments: entitlement.UnlimitedDocuments}

	tests := []struct {
		name          string
		tier          entitlement.Tier
		count         int64
		wantAllowed   bool
		wantRemaining int64
	}{
		{
			name:          "well under the limit",
			tier:          pro,
			count:         3,
			wantAllowed:   true,
			wantRemaining: 97,
		},
		{
			name:          "one below the limit allows the last slot",
			tier:          pro,
			count:         99,
			wantAllowed:   true,
			wantRemaining: 1,
		},
		{
			name:          "at the limit denies",
			tier:          pro,
			count:         100,
			wantAllowed:   false,
			wantRemaining: 0,
		},
		{
			name:          "over the limit denies with zero remaining",
			tier:          pro,
			count:         150,
			wantAllowed:   false,
			wantRemaining: 0,
		},
		{
			name:          "zero count",
			tier:          pro,
			count:         0,
			wantAllowed:   true,
			wantRemaining: 100,
		},
		{
			name:          "negative count treated as zero",
			tier:          pro,
			count:         -5,
			wantAllowed:   true,
			wantRemaining: 100,
		},
		{
			name:          "unlimited tier always allows",
			tier:          premium,
			count:         1_000_000,
			wantAllowed:   true,
			wantRemaining: Unlimited,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := guard.CanCreate(tt.tier, tt.count)

			assert.Equal(t, tt.wantAllowed, decision.Allowed)
			assert.Equal(t, tt.wantRemaining, decision.Remaining)
			if tt.tier.IsUnlimited() {
				assert.True(t, decision.IsUnlimited())
				assert.Equal(t, Unlimited, decision.Limit)
			} else {
				assert.Equal(t, tt.tier.MaxDocuments, decision.Limit)
			}
		})
	}
}

func TestGuard_AllowedImpliesRemaining(t *testing.T) {
	guard := NewGuard()
	pro := entitlement.Tier{ID: entitlement.TierPro, Rank: 1, MaxDocuments: 100}

	for count := int64(0); count <= 105; count++ {
		decision := guard.CanCreate(pro, count)
		if decision.Allowed {
			assert.Positive(t, decision.Remaining, "count=%d", count)
		} else {
			assert.Zero(t, decision.Remaining, "count=%d", count)
		}
	}
}
