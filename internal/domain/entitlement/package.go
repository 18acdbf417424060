package entitlement

import "github.com/shopspring/decimal"

// PackageRef identifies a purchasable package at the billing backend
type PackageRef string

// Package describes a purchasable subscription package
type Package struct {
	Ref           PackageRef      `json:"ref"`
	TierID        TierID          `json:"tier"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	Currency      string          `json:"currency"`
	BillingPeriod string          `json:"billing_period"` // monthly, yearly
}

// DefaultPackages returns the purchasable packages offered to users.
// Prices are display metadata; the billing backend remains the source of
// truth for what a purchase actually charges.
func DefaultPackages() []Package {
	return []Package{
		{
			Ref:           "pro_monthly",
			TierID:        TierPro,
			Name:          "Pro Monthly",
			Price:         decimal.NewFromFloat(7.99),
			Currency:      "USD",
			BillingPeriod: "monthly",
		},
		{
			Ref:           "pro_yearly",
			TierID:        TierPro,
			Name:          "Pro Yearly",
			Price:         decimal.NewFromFloat(79.99),
			Currency:      "USD",
			BillingPeriod: "yearly",
		},
		{
			Ref:           "premium_monthly",
			TierID:        TierPremium,
			Name:          "Premium Monthly",
			Price:         decimal.NewFromFloat(14.99),
			Currency:      "USD",
			BillingPeriod: "monthly",
		},
		{
			Ref:           "premium_yearly",
			TierID:        TierPremium,
			Name:          "Premium Yearly",
			Price:         decimal.NewFromFloat(149.99),
			Currency:      "USD",
			BillingPeriod: "yearly",
		},
	}
}

// PackageByRef looks up a package by its reference
func PackageByRef(ref PackageRef) (Package, bool) {
	for _, p := range DefaultPackages() {
		if p.Ref == ref {
			return p, true
		}
	}
	return Package{}, false
}
