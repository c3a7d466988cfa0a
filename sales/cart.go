/*
Package sales assembles carts and commits them as immutable sales.

PURPOSE:
  The Sale Recorder is the only path a sale takes into a ledger. A Cart is
  built line by line against a catalog snapshot; Commit turns it into a
  ledger.Sale, appends it to an ACTIVE ledger atomically, and consumes the
  cart.

PRICING RULE:
  Unit price is resolved when the line is ADDED, from the snapshot the cart
  was opened with. A catalog price change during the session does not touch
  lines already in the cart.

COURTESY RULE:
  ToggleCourtesy flips a line's contribution to the running total between
  its subtotal and zero. The unit price on the line never changes, so the
  record still shows what the giveaway was worth.

SEE ALSO:
  - recorder.go: the commit path and its CLOSED/empty-cart guards
  - ledger/sale.go: the committed record type
*/
package sales

import (
	"github.com/shopspring/decimal"

	"github.com/fonda/opsledger/catalog"
	"github.com/fonda/opsledger/ledger"
)

// Cart is a mutable list of sale lines priced against one catalog snapshot.
// Not safe for concurrent use; one cart belongs to one register session.
type Cart struct {
	snapshot *catalog.Snapshot
	items    []ledger.SaleItem
}

// NewCart opens a cart against a catalog snapshot.
func NewCart(snapshot *catalog.Snapshot) *Cart {
	return &Cart{snapshot: snapshot}
}

// AddItem resolves the product and fixes its price into a new line.
func (c *Cart) AddItem(productID string, quantity int) error {
	if quantity <= 0 {
		return ledger.NewValidationError("quantity", "quantity must be positive, got %d", quantity)
	}
	product, ok := c.snapshot.ProductByID(productID)
	if !ok {
		return ledger.NewValidationError("productId", "product %q not found in catalog", productID)
	}
	c.items = append(c.items, ledger.SaleItem{
		ProductName: product.Name,
		Quantity:    quantity,
		UnitPrice:   product.Price,
	})
	return nil
}

// ToggleCourtesy flips the courtesy flag on one line.
func (c *Cart) ToggleCourtesy(index int) error {
	if index < 0 || index >= len(c.items) {
		return ledger.NewValidationError("index", "no cart line at index %d", index)
	}
	c.items[index].IsCourtesy = !c.items[index].IsCourtesy
	return nil
}

// RemoveItem drops one line from the cart.
func (c *Cart) RemoveItem(index int) error {
	if index < 0 || index >= len(c.items) {
		return ledger.NewValidationError("index", "no cart line at index %d", index)
	}
	c.items = append(c.items[:index], c.items[index+1:]...)
	return nil
}

// Total is the payable amount: non-courtesy lines only. Recomputed on every
// call; there is no cached state to go stale.
func (c *Cart) Total() decimal.Decimal {
	return ledger.SaleTotal(c.items)
}

// Items returns a copy of the current lines.
func (c *Cart) Items() []ledger.SaleItem {
	return append([]ledger.SaleItem(nil), c.items...)
}

// Len is the number of lines in the cart.
func (c *Cart) Len() int { return len(c.items) }

// Clear empties the cart. Commit calls this on success.
func (c *Cart) Clear() { c.items = nil }
