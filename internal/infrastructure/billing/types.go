package billing

import "github.com/docspace/backend/internal/domain/entitlement"

// Error codes the billing backend reports in response bodies
const (
	errCodeUserCancelled  = "user_cancelled"
	errCodePurchaseFailed = "purchase_failed"
	errCodeInvalidUser    = "invalid_user"
)

// entitlementPayload is one grant as reported by the billing backend
type entitlementPayload struct {
	ID     string `json:"id"`
	Active bool   `json:"active"`
}

// customerPayload is the wire form of a customer record
type customerPayload struct {
	UserID       string               `json:"user_id"`
	Entitlements []entitlementPayload `json:"entitlements"`
}

// errorPayload is the wire form of a billing backend error
type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// purchasePayload is the body of a purchase request
type purchasePayload struct {
	PackageRef string `json:"package_ref"`
}

func (p customerPayload) toDomain() entitlement.CustomerRecord {
	record := entitlement.CustomerRecord{UserID: p.UserID}
	if len(p.Entitlements) > 0 {
		record.Entitlements = make([]entitlement.Entitlement, len(p.Entitlements))
		for i, e := range p.Entitlements {
			record.Entitlements[i] = entitlement.Entitlement{ID: e.ID, IsActive: e.Active}
		}
	}
	return record
}
