package order

// PaymentMethod is how the customer pays for an order
type PaymentMethod string

const (
	PaymentMethodCashOnDelivery PaymentMethod = "CASH_ON_DELIVERY"
	PaymentMethodOnlinePayment  PaymentMethod = "ONLINE_PAYMENT"
	PaymentMethodBankTransfer   PaymentMethod = "BANK_TRANSFER"
	PaymentMethodUPI            PaymentMethod = "UPI"
	PaymentMethodCreditCard     PaymentMethod = "CREDIT_CARD"
	PaymentMethodDebitCard      PaymentMethod = "DEBIT_CARD"
	PaymentMethodWallet         PaymentMethod = "WALLET"
	PaymentMethodOther          PaymentMethod = "OTHER"
)

var paymentMethods = []PaymentMethod{
	PaymentMethodCashOnDelivery,
	PaymentMethodOnlinePayment,
	PaymentMethodBankTransfer,
	PaymentMethodUPI,
	PaymentMethodCreditCard,
	PaymentMethodDebitCard,
	PaymentMethodWallet,
	PaymentMethodOther,
}

// PaymentMethodValues returns every payment method in declaration order
func PaymentMethodValues() []PaymentMethod {
	out := make([]PaymentMethod, len(paymentMethods))
	copy(out, paymentMethods)
	return out
}

// DefaultPaymentMethod is used when checkout does not name one
func DefaultPaymentMethod() PaymentMethod {
	return PaymentMethodCashOnDelivery
}

// PaymentMethodFromValue parses s. Matching is exact: no trimming, no case folding.
func PaymentMethodFromValue(s string) (PaymentMethod, bool) {
	for _, m := range paymentMethods {
		if string(m) == s {
			return m, true
		}
	}
	return "", false
}

// IsValid checks if the payment method is one of the known values
func (m PaymentMethod) IsValid() bool {
	_, ok := PaymentMethodFromValue(string(m))
	return ok
}

// Label returns the display name
func (m PaymentMethod) Label() string {
	switch m {
	case PaymentMethodCashOnDelivery:
		return "Cash on Delivery"
	case PaymentMethodOnlinePayment:
		return "Online Payment"
	case PaymentMethodBankTransfer:
		return "Bank Transfer"
	case PaymentMethodUPI:
		return "UPI"
	case PaymentMethodCreditCard:
		return "Credit Card"
	case PaymentMethodDebitCard:
		return "Debit Card"
	case PaymentMethodWallet:
		return "Wallet"
	case PaymentMethodOther:
		return "Other"
	}
	return string(m)
}

// DefaultType returns the payment type implied by the method
func (m PaymentMethod) DefaultType() PaymentType {
	switch m {
	case PaymentMethodCashOnDelivery:
		return PaymentTypeCash
	case PaymentMethodOther:
		return PaymentTypeOther
	case "":
		return DefaultPaymentType()
	}
	return PaymentTypeOnline
}

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}

// PaymentType groups payment methods by settlement kind
type PaymentType string

const (
	PaymentTypeCash   PaymentType = "CASH"
	PaymentTypeOnline PaymentType = "ONLINE"
	PaymentTypeOther  PaymentType = "OTHER"
)

var paymentTypes = []PaymentType{PaymentTypeCash, PaymentTypeOnline, PaymentTypeOther}

// PaymentTypeValues returns every payment type in declaration order
func PaymentTypeValues() []PaymentType {
	out := make([]PaymentType, len(paymentTypes))
	copy(out, paymentTypes)
	return out
}

// DefaultPaymentType is used when checkout does not name one
func DefaultPaymentType() PaymentType {
	return PaymentTypeCash
}

// PaymentTypeFromValue parses s with exact matching
func PaymentTypeFromValue(s string) (PaymentType, bool) {
	for _, t := range paymentTypes {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// IsValid checks if the payment type is one of the known values
func (t PaymentType) IsValid() bool {
	_, ok := PaymentTypeFromValue(string(t))
	return ok
}

// Label returns the display name
func (t PaymentType) Label() string {
	switch t {
	case PaymentTypeCash:
		return "Cash"
	case PaymentTypeOnline:
		return "Online"
	case PaymentTypeOther:
		return "Other"
	}
	return string(t)
}

// String returns the string representation of PaymentType
func (t PaymentType) String() string {
	return string(t)
}
