package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSortOrder(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"asc", "ASC"},
		{" ASC ", "ASC"},
		{"desc", "DESC"},
		{"", "DESC"},
		{"ASC; DROP TABLE products", "DESC"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateSortOrder(tt.in))
		})
	}
}

func TestValidateSortField(t *testing.T) {
	assert.Equal(t, "name", ValidateSortField("name", ProductSortFields, "created_at"))
	assert.Equal(t, finalPriceExpr, ValidateSortField("price", ProductSortFields, "created_at"))
	assert.Equal(t, "created_at", ValidateSortField("password_hash", UserSortFields, "created_at"))
	assert.Equal(t, "created_at", ValidateSortField("", OrderSortFields, "created_at"))
}

func TestOrderClause(t *testing.T) {
	assert.Equal(t, "total ASC", orderClause("total", "asc", OrderSortFields, "created_at"))
	assert.Equal(t, "created_at DESC", orderClause("1=1", "", OrderSortFields, "created_at"))
}
