package persistence

import (
	"errors"
	"strings"

	"github.com/storefront/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// finalPriceExpr is the discounted unit price as computed by catalog.Product.FinalPrice
const finalPriceExpr = "(price * (100 - discount_percent) / 100)"

// notFound maps gorm's missing-row error to the domain sentinel
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}
	return err
}

// duplicate maps a translated unique violation to the domain sentinel.
// It relies on gorm.Config.TranslateError being enabled.
func duplicate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.ErrAlreadyExists
	}
	return err
}

// likePattern escapes LIKE wildcards in user input and wraps it for a contains match
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + strings.ToLower(r.Replace(strings.TrimSpace(term))) + "%"
}

// paginate applies the shared filter's page window
func paginate(db *gorm.DB, f shared.Filter) *gorm.DB {
	if f.PageSize > 0 {
		db = db.Offset(f.Offset()).Limit(f.PageSize)
	}
	return db
}
