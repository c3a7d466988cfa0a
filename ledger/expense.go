/*
expense.go - Purchase/expense records linked to a business day

PURPOSE:
  An Expense is money spent on supplies (gas, flour, crates of soda), owned
  by the Expense Ledger and linked to a DailyLedger by LedgerID. Unlike
  sales, expenses stay mutable until their owning ledger closes.

TOTAL INVARIANT:
  Expense.Total is always recomputed from items. Any total a caller sends is
  discarded on create AND on update.

SEE ALSO:
  - expense/service.go: the CLOSED-guarded CRUD around this type
  - summary/engine.go: folds expense totals into period reports
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExpenseItem is one purchased line.
type ExpenseItem struct {
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
}

// Subtotal is unitPrice*quantity for the line.
func (it ExpenseItem) Subtotal() decimal.Decimal {
	return it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// Expense is a purchase record. Mutable until the owning ledger is CLOSED.
type Expense struct {
	ID                 string          `json:"id"`
	LedgerID           string          `json:"inventoryId"`
	Date               Date            `json:"date"`
	Items              []ExpenseItem   `json:"items"`
	Total              decimal.Decimal `json:"total"`
	InvoiceEvidenceURL string          `json:"invoiceEvidenceUrl,omitempty"`
	CreatedAt          time.Time       `json:"createdAt"`
}

// ValidateItems rejects empty or malformed item lists.
func ValidateExpenseItems(items []ExpenseItem) error {
	if len(items) == 0 {
		return NewValidationError("items", "an expense needs at least one item")
	}
	for i, it := range items {
		if it.Name == "" {
			return NewValidationError("items", "item %d has no name", i)
		}
		if it.Quantity <= 0 {
			return NewValidationError("items", "item %d has non-positive quantity %d", i, it.Quantity)
		}
		if it.UnitPrice.IsNegative() {
			return NewValidationError("items", "item %d has negative unit price", i)
		}
	}
	return nil
}

// RecomputeTotal rederives Total from the items, discarding whatever was
// there before.
func (e *Expense) RecomputeTotal() {
	total := decimal.Zero
	for _, it := range e.Items {
		total = total.Add(it.Subtotal())
	}
	e.Total = total
}
