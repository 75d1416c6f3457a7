package cart

import (
	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// Line is one priced input: a product, an optional variation and a quantity
type Line struct {
	ItemID      uuid.UUID
	Product     *catalog.Product
	VariationID *uuid.UUID
	Quantity    int
}

// LineSummary is the priced result for one line
type LineSummary struct {
	ItemID      uuid.UUID
	ProductID   uuid.UUID
	VariationID *uuid.UUID
	Quantity    int
	UnitPrice   valueobject.Money
	UnitMRP     valueobject.Money
	Subtotal    valueobject.Money
	MRPSubtotal valueobject.Money
	Savings     valueobject.Money
	InStock     bool
}

// Summary holds cart totals.
// Total is the sum of line subtotals; Savings is MRPTotal minus Total.
type Summary struct {
	Lines      []LineSummary
	Total      valueobject.Money
	MRPTotal   valueobject.Money
	Savings    valueobject.Money
	TotalUnits int
	// Unavailable lists items whose product could not be priced
	Unavailable []uuid.UUID
}

// Compute prices a set of lines
func Compute(lines []Line) (Summary, error) {
	summary := Summary{
		Lines:       make([]LineSummary, 0, len(lines)),
		Total:       valueobject.Zero(),
		MRPTotal:    valueobject.Zero(),
		Savings:     valueobject.Zero(),
		Unavailable: make([]uuid.UUID, 0),
	}

	for _, line := range lines {
		if line.Quantity < 1 {
			return Summary{}, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be at least 1")
		}
		if line.Product == nil {
			summary.Unavailable = append(summary.Unavailable, line.ItemID)
			continue
		}

		unit, err := line.Product.UnitPrice(line.VariationID)
		if err != nil {
			summary.Unavailable = append(summary.Unavailable, line.ItemID)
			continue
		}
		unitMRP, err := line.Product.UnitMRP(line.VariationID)
		if err != nil {
			return Summary{}, err
		}
		available, _ := line.Product.AvailableQuantity(line.VariationID)

		subtotal := unit.MultiplyByInt(int64(line.Quantity))
		mrpSubtotal := unitMRP.MultiplyByInt(int64(line.Quantity))

		summary.Lines = append(summary.Lines, LineSummary{
			ItemID:      line.ItemID,
			ProductID:   line.Product.ID,
			VariationID: line.VariationID,
			Quantity:    line.Quantity,
			UnitPrice:   unit,
			UnitMRP:     unitMRP,
			Subtotal:    subtotal,
			MRPSubtotal: mrpSubtotal,
			Savings:     mrpSubtotal.MustSubtract(subtotal),
			InStock:     line.Product.IsPurchasable() && available >= line.Quantity,
		})
		summary.Total = summary.Total.MustAdd(subtotal)
		summary.MRPTotal = summary.MRPTotal.MustAdd(mrpSubtotal)
		summary.TotalUnits += line.Quantity
	}

	summary.Savings = summary.MRPTotal.MustSubtract(summary.Total)
	return summary, nil
}

// Price prices the cart against the given products keyed by ID
func (c *Cart) Price(products map[uuid.UUID]*catalog.Product) (Summary, error) {
	lines := make([]Line, 0, len(c.Items))
	for _, item := range c.Items {
		lines = append(lines, Line{
			ItemID:      item.ID,
			Product:     products[item.ProductID],
			VariationID: item.VariationID,
			Quantity:    item.Quantity,
		})
	}
	return Compute(lines)
}
