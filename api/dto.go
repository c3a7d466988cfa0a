/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for API communication, decoupled from the domain types so
  the wire contract can evolve without touching the aggregate. Field names
  on response DTOs match what the existing frontend and reporting tools
  already consume.

VALIDATION:
  Request DTOs carry validator/v10 tags for shape checks (required fields,
  positive quantities). The domain revalidates its own invariants; the tags
  only exist to reject garbage before it reaches a store round-trip.

SEE ALSO:
  - handlers.go: decodes, validates and maps these types
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/fonda/opsledger/catalog"
	"github.com/fonda/opsledger/ledger"
)

// =============================================================================
// LEDGER REQUESTS
// =============================================================================

// CreateLedgerRequest opens a new business day. Date defaults to today.
type CreateLedgerRequest struct {
	Date     string           `json:"date" validate:"omitempty"`
	BaseCash *decimal.Decimal `json:"baseCash,omitempty"`
}

// CloseLedgerRequest carries the declared register count.
type CloseLedgerRequest struct {
	FinalCash      decimal.Decimal `json:"finalCash"`
	TotalTransfers decimal.Decimal `json:"totalTransfers"`
}

// SaleLineRequest is one cart line as the register UI sends it. The server
// resolves the price from the catalog; client-side prices are ignored.
type SaleLineRequest struct {
	ProductID  string `json:"productId" validate:"required"`
	Quantity   int    `json:"quantity" validate:"required,gt=0"`
	IsCourtesy bool   `json:"isCourtesy"`
}

// CommitSaleRequest commits a cart against a ledger.
type CommitSaleRequest struct {
	Items         []SaleLineRequest `json:"items" validate:"required,min=1,dive"`
	PaymentMethod string            `json:"paymentMethod" validate:"required,oneof=CASH TRANSFER"`
}

// =============================================================================
// EXPENSE REQUESTS
// =============================================================================

// ExpenseItemRequest is one purchased line.
type ExpenseItemRequest struct {
	Name      string          `json:"name" validate:"required"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity" validate:"required,gt=0"`
}

// CreateExpenseRequest creates a purchase against a ledger. Any total the
// client computed is absent on purpose: totals are derived server-side.
type CreateExpenseRequest struct {
	InventoryID        string               `json:"inventoryId" validate:"required"`
	Date               string               `json:"date" validate:"omitempty"`
	Items              []ExpenseItemRequest `json:"items" validate:"required,min=1,dive"`
	InvoiceEvidenceURL string               `json:"invoiceEvidenceUrl"`
}

// UpdateExpenseRequest replaces expense fields wholesale.
type UpdateExpenseRequest struct {
	Date               *string               `json:"date,omitempty"`
	Items              *[]ExpenseItemRequest `json:"items,omitempty" validate:"omitempty,min=1,dive"`
	InvoiceEvidenceURL *string               `json:"invoiceEvidenceUrl,omitempty"`
}

// =============================================================================
// CATALOG REQUESTS
// =============================================================================

// ProductRequest creates or updates a catalog product.
type ProductRequest struct {
	Name  string          `json:"name" validate:"required"`
	Price decimal.Decimal `json:"price"`
}

// =============================================================================
// RESPONSES
// =============================================================================

// LedgerResponse is a ledger document plus its derived totals. The totals are
// recomputed on every read; they are never stored.
type LedgerResponse struct {
	*ledger.DailyLedger
	Totals ledger.Totals `json:"totals"`
}

// SaleResponse is the committed sale echoed back to the register.
type SaleResponse struct {
	Sale ledger.Sale `json:"sale"`
}

// StaffDTO mirrors what the user system exposes.
type StaffDTO struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
}

func toStaffDTOs(staff []catalog.Staff) []StaffDTO {
	out := make([]StaffDTO, len(staff))
	for i, s := range staff {
		out[i] = StaffDTO{ID: s.ID, FirstName: s.FirstName, LastName: s.LastName, Role: s.Role}
	}
	return out
}

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`

	// ActiveLedgerID/ActiveDate point at the blocking day on conflicts,
	// so the client can offer "close it first".
	ActiveLedgerID string `json:"activeLedgerId,omitempty"`
	ActiveDate     string `json:"activeDate,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toExpenseItems(reqs []ExpenseItemRequest) []ledger.ExpenseItem {
	items := make([]ledger.ExpenseItem, len(reqs))
	for i, r := range reqs {
		items[i] = ledger.ExpenseItem{Name: r.Name, UnitPrice: r.UnitPrice, Quantity: r.Quantity}
	}
	return items
}
