package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	if strings.ToUpper(strings.TrimSpace(orderDir)) == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns defaultField if the input is empty or not whitelisted.
func ValidateSortField(sortField string, allowedFields map[string]string, defaultField string) string {
	if column, ok := allowedFields[strings.TrimSpace(sortField)]; ok {
		return column
	}
	return defaultField
}

// orderClause builds a whitelisted ORDER BY clause
func orderClause(sortField, sortOrder string, allowed map[string]string, defaultField string) string {
	return ValidateSortField(sortField, allowed, defaultField) + " " + ValidateSortOrder(sortOrder)
}

// Sort field whitelists map the API field name to the column expression.

// ProductSortFields contains allowed sort fields for products
var ProductSortFields = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"name":       "name",
	"price":      finalPriceExpr,
	"quantity":   "total_quantity",
}

// CategorySortFields contains allowed sort fields for categories
var CategorySortFields = map[string]string{
	"created_at": "created_at",
	"name":       "name",
	"sort_order": "sort_order",
}

// OrderSortFields contains allowed sort fields for orders
var OrderSortFields = map[string]string{
	"created_at":   "created_at",
	"updated_at":   "updated_at",
	"order_number": "order_number",
	"status":       "status",
	"total":        "total",
}

// UserSortFields contains allowed sort fields for users
var UserSortFields = map[string]string{
	"created_at":    "created_at",
	"updated_at":    "updated_at",
	"name":          "name",
	"email":         "email",
	"status":        "status",
	"role":          "role",
	"last_login_at": "last_login_at",
}

// CartSortFields contains allowed sort fields for carts
var CartSortFields = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
}

// RecentlyViewedSortFields contains allowed sort fields for recently viewed entries
var RecentlyViewedSortFields = map[string]string{
	"viewed_at":  "viewed_at",
	"created_at": "created_at",
}
