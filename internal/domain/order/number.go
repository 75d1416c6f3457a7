package order

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// NumberPrefix starts every order number
const NumberPrefix = "ORD"

// GenerateNumber returns an order number of the form ORD-YYYYMMDD-XXXXXXXX
func GenerateNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return NumberPrefix + "-" + now.UTC().Format("20060102") + "-" + suffix
}
