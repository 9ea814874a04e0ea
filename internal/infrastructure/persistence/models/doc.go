// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer free from
// ORM concerns.
//
// Structure:
//   - base.go: base persistence models (BaseModel, OrganizationAggregateModel)
//   - invoice.go: invoices, their line items and payments
package models
