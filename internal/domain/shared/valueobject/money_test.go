package valueobject

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	t.Run("creates money with valid amount and currency", func(t *testing.T) {
		m, err := NewMoney(decimal.NewFromFloat(100.50), INR)
		require.NoError(t, err)
		assert.Equal(t, INR, m.Currency())
		assert.True(t, m.Amount().Equal(decimal.NewFromFloat(100.50)))
	})

	t.Run("returns error for empty currency", func(t *testing.T) {
		_, err := NewMoney(decimal.NewFromFloat(100), "")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "currency cannot be empty")
	})
}

func TestNewMoneyFromString(t *testing.T) {
	t.Run("valid string", func(t *testing.T) {
		m, err := NewMoneyFromString("123.45", USD)
		require.NoError(t, err)
		assert.True(t, m.Amount().Equal(decimal.RequireFromString("123.45")))
	})

	t.Run("invalid string", func(t *testing.T) {
		_, err := NewMoneyFromString("not-a-number", INR)
		assert.Error(t, err)
	})
}

func TestMoney_Arithmetic(t *testing.T) {
	a := Of(decimal.NewFromInt(100))
	b := Of(decimal.NewFromInt(40))

	assert.True(t, a.MustAdd(b).Amount().Equal(decimal.NewFromInt(140)))
	assert.True(t, a.MustSubtract(b).Amount().Equal(decimal.NewFromInt(60)))
	assert.True(t, a.MultiplyByInt(3).Amount().Equal(decimal.NewFromInt(300)))
	assert.True(t, a.GreaterThan(b))

	usd, _ := NewMoney(decimal.NewFromInt(1), USD)
	_, err := a.Add(usd)
	assert.Error(t, err)
	assert.Panics(t, func() { a.MustAdd(usd) })
}

func TestMoney_ApplyDiscount(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		percent  string
		expected string
	}{
		{"no discount", "100", "0", "100"},
		{"ten percent", "100", "10", "90"},
		{"rounds to paise", "99.99", "15", "84.99"},
		{"full discount", "250", "100", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Of(decimal.RequireFromString(tt.amount))
			got := m.ApplyDiscount(decimal.RequireFromString(tt.percent))
			assert.True(t, got.Amount().Equal(decimal.RequireFromString(tt.expected)), "got %s", got.Amount())
		})
	}
}

func TestMoney_ZeroValueUsesDefaultCurrency(t *testing.T) {
	var m Money
	assert.Equal(t, DefaultCurrency, m.Currency())
	assert.True(t, m.IsZero())
	assert.Equal(t, "0.00 INR", m.String())
}

func TestSum(t *testing.T) {
	total := Sum(Of(decimal.NewFromInt(200)), Of(decimal.RequireFromString("49.50")))
	assert.Equal(t, "249.50", total.StringFixed())
	assert.True(t, Sum().IsZero())
}

func TestMoney_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(Of(decimal.RequireFromString("12.5")))
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"12.50","currency":"INR"}`, string(data))
}
