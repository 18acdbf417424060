// Package entitlement provides the domain model for subscription tier resolution.
//
// This package implements the entitlement bounded context, which is responsible for:
//   - Defining the static tier catalog (tiers, ranks, document limits, features)
//   - Mapping billing-backend entitlement ids onto tiers
//   - Resolving a CustomerRecord into the single active tier
//
// Key types:
//   - Catalog: validated, immutable tier table with entitlement id mappings
//   - Resolver: pure resolution of a CustomerRecord to the highest-rank tier
//   - CustomerRecord: immutable snapshot of a user's billing state
//   - ResolvedState: tier + record + timestamp, replaced atomically per resolution
//   - Provider: port to the external billing backend
//
// Exactly one tier is active at any instant: the highest-rank tier among the
// record's active entitlements that the catalog recognizes, or the free tier
// when none apply. Unknown entitlement ids contribute nothing and are never
// an error.
package entitlement
