/*
sale.go - Immutable sale records

PURPOSE:
  A Sale is the committed form of a cart: a payment method, a timestamp, and
  line items whose prices were fixed when they entered the cart. Once a sale
  is appended to a ledger it is never edited.

COURTESY ITEMS:
  A line flagged IsCourtesy is a giveaway sold through the register so that
  stock depletion is tracked. It contributes zero to the sale total no matter
  what its unit price says.

TOTAL INVARIANT:
  Sale.Total is always recomputed from the items at construction time.
  Caller-supplied totals are ignored everywhere in this codebase; that is the
  only way to guarantee stored totals cannot drift from line items.

SEE ALSO:
  - sales/cart.go: builds the item list this type is committed from
  - totals.go: folds sales into the per-day reconciliation numbers
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod is how a sale was settled at the register.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "CASH"
	PaymentTransfer PaymentMethod = "TRANSFER"
)

// Valid reports whether the method is one the register accepts.
func (m PaymentMethod) Valid() bool {
	return m == PaymentCash || m == PaymentTransfer
}

// SaleItem is one line of a sale. UnitPrice was resolved from the catalog
// when the line was added to the cart, not when the sale was committed.
type SaleItem struct {
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	IsCourtesy  bool            `json:"isCourtesy"`
}

// Subtotal is the line's contribution to the payable total.
// Courtesy lines contribute zero.
func (it SaleItem) Subtotal() decimal.Decimal {
	if it.IsCourtesy {
		return decimal.Zero
	}
	return it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// Sale is an immutable committed sale. Total is derived, never stored input.
type Sale struct {
	ID            string        `json:"id"`
	Timestamp     time.Time     `json:"timestamp"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	Items         []SaleItem    `json:"items"`
	Total         decimal.Decimal `json:"total"`
}

// NewSale validates the items, recomputes the total and stamps the record.
// It does NOT assign an ID; stores do that on first persistence.
func NewSale(items []SaleItem, method PaymentMethod, at time.Time) (Sale, error) {
	if len(items) == 0 {
		return Sale{}, NewValidationError("items", "a sale needs at least one item")
	}
	if !method.Valid() {
		return Sale{}, NewValidationError("paymentMethod", "unknown payment method %q", method)
	}
	for i, it := range items {
		if it.ProductName == "" {
			return Sale{}, NewValidationError("items", "item %d has no product name", i)
		}
		if it.Quantity <= 0 {
			return Sale{}, NewValidationError("items", "item %d has non-positive quantity %d", i, it.Quantity)
		}
		if it.UnitPrice.IsNegative() {
			return Sale{}, NewValidationError("items", "item %d has negative unit price", i)
		}
	}

	copied := make([]SaleItem, len(items))
	copy(copied, items)

	return Sale{
		Timestamp:     at,
		PaymentMethod: method,
		Items:         copied,
		Total:         SaleTotal(copied),
	}, nil
}

// SaleTotal sums unitPrice*quantity over non-courtesy lines.
func SaleTotal(items []SaleItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}
	return total
}
