package order

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaymentMethod(t *testing.T) {
	t.Run("values in declaration order", func(t *testing.T) {
		assert.Equal(t, []PaymentMethod{
			"CASH_ON_DELIVERY", "ONLINE_PAYMENT", "BANK_TRANSFER", "UPI",
			"CREDIT_CARD", "DEBIT_CARD", "WALLET", "OTHER",
		}, PaymentMethodValues())
	})

	t.Run("values are a copy", func(t *testing.T) {
		v := PaymentMethodValues()
		v[0] = "MUTATED"
		assert.Equal(t, PaymentMethodCashOnDelivery, PaymentMethodValues()[0])
	})

	t.Run("default", func(t *testing.T) {
		assert.Equal(t, PaymentMethodCashOnDelivery, DefaultPaymentMethod())
	})

	t.Run("from value", func(t *testing.T) {
		m, ok := PaymentMethodFromValue("UPI")
		assert.True(t, ok)
		assert.Equal(t, PaymentMethodUPI, m)
		assert.Equal(t, "UPI", m.Label())

		tests := []string{"bogus", "", "upi", " UPI", "UPI ", "Cash_On_Delivery"}
		for _, s := range tests {
			m, ok := PaymentMethodFromValue(s)
			assert.False(t, ok, s)
			assert.Empty(t, m, s)
		}
	})

	t.Run("unknown strings never parse", func(t *testing.T) {
		r := rand.New(rand.NewSource(1))
		const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ_abc "
		for i := 0; i < 500; i++ {
			var b strings.Builder
			for j := 0; j < r.Intn(20); j++ {
				b.WriteByte(letters[r.Intn(len(letters))])
			}
			s := b.String()
			_, ok := PaymentMethodFromValue(s)
			assert.Equal(t, PaymentMethod(s).IsValid(), ok)
			if ok {
				assert.Contains(t, PaymentMethodValues(), PaymentMethod(s))
			}
		}
	})

	t.Run("every value has a label and parses back", func(t *testing.T) {
		labels := map[PaymentMethod]string{
			PaymentMethodCashOnDelivery: "Cash on Delivery",
			PaymentMethodOnlinePayment:  "Online Payment",
			PaymentMethodBankTransfer:   "Bank Transfer",
			PaymentMethodUPI:            "UPI",
			PaymentMethodCreditCard:     "Credit Card",
			PaymentMethodDebitCard:      "Debit Card",
			PaymentMethodWallet:         "Wallet",
			PaymentMethodOther:          "Other",
		}
		for _, m := range PaymentMethodValues() {
			assert.Equal(t, labels[m], m.Label())
			parsed, ok := PaymentMethodFromValue(m.String())
			assert.True(t, ok)
			assert.Equal(t, m, parsed)
		}
	})

	t.Run("implied payment type", func(t *testing.T) {
		assert.Equal(t, PaymentTypeCash, PaymentMethodCashOnDelivery.DefaultType())
		assert.Equal(t, PaymentTypeOnline, PaymentMethodUPI.DefaultType())
		assert.Equal(t, PaymentTypeOther, PaymentMethodOther.DefaultType())
	})
}

func TestPaymentType(t *testing.T) {
	assert.Equal(t, []PaymentType{"CASH", "ONLINE", "OTHER"}, PaymentTypeValues())
	assert.Equal(t, PaymentTypeCash, DefaultPaymentType())

	pt, ok := PaymentTypeFromValue("ONLINE")
	assert.True(t, ok)
	assert.Equal(t, "Online", pt.Label())

	_, ok = PaymentTypeFromValue("online")
	assert.False(t, ok)

	for _, v := range PaymentTypeValues() {
		assert.NotEmpty(t, v.Label())
	}
}
