// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer free
// from ORM concerns; repositories convert with ToDomain and *FromDomain mappers.
//
// Structure:
// - base.go: BaseModel, AggregateModel and the AutoMigrate model list
// - identity.go: users
// - catalog.go: products, variations, categories, media, recently viewed
// - cart.go: carts and cart items
// - order.go: orders, order items and after-sales requests
package models
