package valueobject

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	phonePattern      = regexp.MustCompile(`^\+?[0-9][0-9 \-]{6,18}[0-9]$`)
	postalCodePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 \-]{2,10}$`)
)

// ShippingAddress is the delivery address captured at checkout.
// It is immutable once created.
type ShippingAddress struct {
	fullName     string
	phone        string
	addressLine1 string
	addressLine2 string
	city         string
	state        string
	postalCode   string
	country      string
}

// AddressDTO carries address fields across layer boundaries
type AddressDTO struct {
	FullName     string `json:"full_name"`
	Phone        string `json:"phone"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postal_code"`
	Country      string `json:"country"`
}

// NewShippingAddress validates and creates a ShippingAddress.
// Country defaults to India when empty.
func NewShippingAddress(dto AddressDTO) (ShippingAddress, error) {
	a := ShippingAddress{
		fullName:     strings.TrimSpace(dto.FullName),
		phone:        strings.TrimSpace(dto.Phone),
		addressLine1: strings.TrimSpace(dto.AddressLine1),
		addressLine2: strings.TrimSpace(dto.AddressLine2),
		city:         strings.TrimSpace(dto.City),
		state:        strings.TrimSpace(dto.State),
		postalCode:   strings.TrimSpace(dto.PostalCode),
		country:      strings.TrimSpace(dto.Country),
	}
	if a.country == "" {
		a.country = "India"
	}

	if err := requireField("full name", a.fullName, 100); err != nil {
		return ShippingAddress{}, err
	}
	if err := requireField("address line 1", a.addressLine1, 255); err != nil {
		return ShippingAddress{}, err
	}
	if len(a.addressLine2) > 255 {
		return ShippingAddress{}, fmt.Errorf("address line 2 cannot exceed 255 characters")
	}
	if err := requireField("city", a.city, 100); err != nil {
		return ShippingAddress{}, err
	}
	if err := requireField("state", a.state, 100); err != nil {
		return ShippingAddress{}, err
	}
	if len(a.country) > 100 {
		return ShippingAddress{}, fmt.Errorf("country cannot exceed 100 characters")
	}
	if !phonePattern.MatchString(a.phone) {
		return ShippingAddress{}, fmt.Errorf("invalid phone number")
	}
	if !postalCodePattern.MatchString(a.postalCode) {
		return ShippingAddress{}, fmt.Errorf("invalid postal code")
	}

	return a, nil
}

func requireField(name, value string, maxLen int) error {
	if value == "" {
		return fmt.Errorf("%s is required", name)
	}
	if len(value) > maxLen {
		return fmt.Errorf("%s cannot exceed %d characters", name, maxLen)
	}
	return nil
}

func (a ShippingAddress) FullName() string     { return a.fullName }
func (a ShippingAddress) Phone() string        { return a.phone }
func (a ShippingAddress) AddressLine1() string { return a.addressLine1 }
func (a ShippingAddress) AddressLine2() string { return a.addressLine2 }
func (a ShippingAddress) City() string         { return a.city }
func (a ShippingAddress) State() string        { return a.state }
func (a ShippingAddress) PostalCode() string   { return a.postalCode }
func (a ShippingAddress) Country() string      { return a.country }

// IsEmpty reports whether no address was captured
func (a ShippingAddress) IsEmpty() bool {
	return a.fullName == "" && a.addressLine1 == "" && a.city == ""
}

// SingleLine formats the address on one line
func (a ShippingAddress) SingleLine() string {
	parts := []string{a.addressLine1}
	if a.addressLine2 != "" {
		parts = append(parts, a.addressLine2)
	}
	parts = append(parts, a.city, a.state+" "+a.postalCode, a.country)
	return strings.Join(parts, ", ")
}

// ToDTO converts the address for storage or transport
func (a ShippingAddress) ToDTO() AddressDTO {
	return AddressDTO{
		FullName:     a.fullName,
		Phone:        a.phone,
		AddressLine1: a.addressLine1,
		AddressLine2: a.addressLine2,
		City:         a.city,
		State:        a.state,
		PostalCode:   a.postalCode,
		Country:      a.country,
	}
}

// RestoreShippingAddress rebuilds an address from persisted fields without validation
func RestoreShippingAddress(dto AddressDTO) ShippingAddress {
	return ShippingAddress{
		fullName:     dto.FullName,
		phone:        dto.Phone,
		addressLine1: dto.AddressLine1,
		addressLine2: dto.AddressLine2,
		city:         dto.City,
		state:        dto.State,
		postalCode:   dto.PostalCode,
		country:      dto.Country,
	}
}

// MarshalJSON implements json.Marshaler
func (a ShippingAddress) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.ToDTO())
}
