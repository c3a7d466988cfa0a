/*
Package ledger is the daily operational accounting core.

PURPOSE:
  This package contains the DailyLedger aggregate: one record per business
  day, holding stock counts, committed sales, payroll, discounts,
  collaborations, courtesies and the cash declared when the register is
  counted at night. It owns the two rules everything else leans on:

    1. SINGLE ACTIVE DAY - at most one ledger is ACTIVE at any time. There is
       one physical cash register; two open days would make reconciliation
       meaningless. The check lives at the storage boundary (Store.CreateLedger)
       so racing creations cannot both pass.

    2. CLOSED IS FINAL - Close() is the only state transition. After it, every
       child collection is frozen. Corrections to a closed day are a business
       conversation, not an API call.

DERIVED TOTALS:
  Reconciliation numbers (salesCash, payrollTotal, courtesiesValue, ...) are
  never stored. They are recomputed from the source collections on every call
  (totals.go), so a stored number can never drift from the transactions
  underneath it.

KEY TYPES:
  - DailyLedger:   the aggregate
  - Status:        ACTIVE | CLOSED
  - Patch:         wholesale field update applied while ACTIVE
  - Collaboration: tagged union (PRODUCT carries a product name, CASH doesn't)

SEE ALSO:
  - sale.go, expense.go: the child record types
  - totals.go: the derivation fold
  - store.go: persistence contracts, including the create-time conflict check
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STATUS - two states, one transition
// =============================================================================

type Status string

const (
	StatusActive Status = "ACTIVE"
	StatusClosed Status = "CLOSED"
)

// =============================================================================
// STOCK COUNTS - per-family tallies, simple arithmetic deltas
// =============================================================================

// FamilyCount tracks one product family through a day: what was there at
// opening, what arrived, what was left at closing.
type FamilyCount struct {
	Initial     int `json:"initial"`
	NewReceived int `json:"newReceived"`
	Remaining   int `json:"remaining"`
}

// Used is the day's depletion for the family.
func (f FamilyCount) Used() int {
	return f.Initial + f.NewReceived - f.Remaining
}

// Stock holds the four tracked families. The business counts arepas, breads,
// sodas and waters; anything else moves through expenses untracked.
type Stock struct {
	Arepas   FamilyCount `json:"arepas"`
	Panes    FamilyCount `json:"panes"`
	Gaseosas FamilyCount `json:"gaseosas"`
	Aguas    FamilyCount `json:"aguas"`
}

// Families returns the counts keyed by family name, in a stable order.
func (s Stock) Families() map[string]FamilyCount {
	return map[string]FamilyCount{
		"arepas":   s.Arepas,
		"panes":    s.Panes,
		"gaseosas": s.Gaseosas,
		"aguas":    s.Aguas,
	}
}

// Damaged counts spoiled goods (mermas). Depletion only, no money attached.
type Damaged struct {
	Arepas  int `json:"arepas"`
	Panes   int `json:"panes"`
	Bebidas int `json:"bebidas"`
}

// =============================================================================
// CHILD RECORDS
// =============================================================================

// PayrollEntry is one payment to one employee on this day.
type PayrollEntry struct {
	EmployeeID string          `json:"employeeId"`
	AmountPaid decimal.Decimal `json:"amountPaid"`
}

// Discount records a price reduction granted at the register.
type Discount struct {
	Description    string          `json:"description"`
	OriginalAmount decimal.Decimal `json:"originalAmount"`
	FinalAmount    decimal.Decimal `json:"finalAmount"`
}

// Granted is the money given away by the discount.
func (d Discount) Granted() decimal.Decimal {
	return d.OriginalAmount.Sub(d.FinalAmount)
}

// CollaborationType discriminates the collaboration union.
type CollaborationType string

const (
	CollabProduct CollaborationType = "PRODUCT"
	CollabCash    CollaborationType = "CASH"
)

// Collaboration is an in-kind or cash contribution from a third party.
// The shape is resolved at construction: PRODUCT carries a product name,
// CASH must not. Ad hoc field-presence checks are how the original system
// got this wrong.
type Collaboration struct {
	PersonName  string            `json:"personName"`
	Type        CollaborationType `json:"type"`
	ProductName string            `json:"productName,omitempty"`
	Value       decimal.Decimal   `json:"value"`
}

// NewProductCollaboration builds a PRODUCT-shaped contribution.
func NewProductCollaboration(person, product string, value decimal.Decimal) (Collaboration, error) {
	if person == "" {
		return Collaboration{}, NewValidationError("personName", "collaboration needs a contributor")
	}
	if product == "" {
		return Collaboration{}, NewValidationError("productName", "product collaboration needs a product name")
	}
	return Collaboration{PersonName: person, Type: CollabProduct, ProductName: product, Value: value}, nil
}

// NewCashCollaboration builds a CASH-shaped contribution.
func NewCashCollaboration(person string, value decimal.Decimal) (Collaboration, error) {
	if person == "" {
		return Collaboration{}, NewValidationError("personName", "collaboration needs a contributor")
	}
	return Collaboration{PersonName: person, Type: CollabCash, Value: value}, nil
}

// Validate checks a collaboration decoded from the wire against its tag.
func (c Collaboration) Validate() error {
	switch c.Type {
	case CollabProduct:
		_, err := NewProductCollaboration(c.PersonName, c.ProductName, c.Value)
		return err
	case CollabCash:
		if c.ProductName != "" {
			return NewValidationError("productName", "cash collaboration must not name a product")
		}
		_, err := NewCashCollaboration(c.PersonName, c.Value)
		return err
	default:
		return NewValidationError("type", "unknown collaboration type %q", c.Type)
	}
}

// Courtesy is a zero-cost giveaway tracked for stock depletion. Distinct from
// a courtesy-flagged sale line: this one never went through the register.
type Courtesy struct {
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity"`
}

// ConsumptionEntry is product eaten by staff, priced at catalog price for
// internal reporting but never charged.
type ConsumptionEntry struct {
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity"`
}

// NextDayRequest is a supply the closer wants ready tomorrow.
type NextDayRequest struct {
	Item     string `json:"item"`
	Quantity int    `json:"quantity"`
}

// Receivable is money owed to the business, noted informally on the day sheet.
type Receivable struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

// =============================================================================
// DAILY LEDGER - the aggregate
// =============================================================================

// DailyLedger is one business day's operational record.
type DailyLedger struct {
	ID     string `json:"id"`
	Date   Date   `json:"date"`
	Status Status `json:"status"`

	BaseCash     decimal.Decimal `json:"baseCash"`
	Stock        Stock           `json:"stock"`
	Damaged      Damaged         `json:"damaged"`
	SodaForSauce int             `json:"sodaForSauce"`

	Sales []Sale `json:"sales"`

	Payroll             []PayrollEntry     `json:"payroll"`
	Discounts           []Discount         `json:"discounts"`
	Collaborations      []Collaboration    `json:"collaborations"`
	Courtesies          []Courtesy         `json:"courtesies"`
	EmployeeConsumption []ConsumptionEntry `json:"employeeConsumption"`
	RequestsForNextDay  []NextDayRequest   `json:"requestsForNextDay"`
	Receivables         []Receivable       `json:"receivables"`
	Notes               string             `json:"notes"`

	// Declared at close time by whoever counts the register. Kept alongside
	// the computed totals; discrepancies are reported, never rejected.
	FinalCash      decimal.Decimal `json:"finalCash"`
	TotalTransfers decimal.Decimal `json:"totalTransfers"`

	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	ClosedAt  *time.Time `json:"closedAt,omitempty"`
}

// Template returns the empty-shaped skeleton used for day creation: every
// collection present and empty, every number zero. Callers must never have to
// special-case a missing field.
func Template() *DailyLedger {
	return &DailyLedger{
		Status:              StatusActive,
		BaseCash:            decimal.Zero,
		Sales:               []Sale{},
		Payroll:             []PayrollEntry{},
		Discounts:           []Discount{},
		Collaborations:      []Collaboration{},
		Courtesies:          []Courtesy{},
		EmployeeConsumption: []ConsumptionEntry{},
		RequestsForNextDay:  []NextDayRequest{},
		Receivables:         []Receivable{},
		FinalCash:           decimal.Zero,
		TotalTransfers:      decimal.Zero,
	}
}

// New builds an ACTIVE ledger for the given date from the template.
// A zero date defaults to today. The single-active check happens in the
// store, not here: it has to be transactional to mean anything.
func New(date Date) *DailyLedger {
	if date.IsZero() {
		date = Today()
	}
	l := Template()
	l.Date = date
	return l
}

// IsClosed reports whether the ledger accepts writes.
func (l *DailyLedger) IsClosed() bool { return l.Status == StatusClosed }

// guard rejects the named mutation when the ledger is CLOSED.
func (l *DailyLedger) guard(operation string) error {
	if l.IsClosed() {
		return &InvalidStateError{LedgerID: l.ID, Operation: operation, Reason: "ledger is closed"}
	}
	return nil
}

// AppendSale attaches a committed sale. Sales are append-only: there is no
// edit or delete, a mistaken sale is handled by the humans at the register.
func (l *DailyLedger) AppendSale(s Sale) error {
	if err := l.guard("appendSale"); err != nil {
		return err
	}
	l.Sales = append(l.Sales, s)
	l.UpdatedAt = time.Now()
	return nil
}

// Close transitions ACTIVE -> CLOSED exactly once, snapshotting the declared
// register count. The computed sales totals are derivable at any time via
// Totals(); the design keeps declared and computed side by side because
// cash-handling variance is expected business reality, not an error.
func (l *DailyLedger) Close(declaredFinalCash, declaredTransfers decimal.Decimal) error {
	if l.IsClosed() {
		return &InvalidStateError{LedgerID: l.ID, Operation: "close", Reason: "ledger is already closed"}
	}
	if declaredFinalCash.IsNegative() {
		return NewValidationError("finalCash", "declared final cash cannot be negative")
	}
	if declaredTransfers.IsNegative() {
		return NewValidationError("totalTransfers", "declared transfers cannot be negative")
	}
	now := time.Now()
	l.FinalCash = declaredFinalCash
	l.TotalTransfers = declaredTransfers
	l.Status = StatusClosed
	l.ClosedAt = &now
	l.UpdatedAt = now
	return nil
}

// =============================================================================
// PATCH - wholesale updates while ACTIVE
// =============================================================================

// Patch is a partial update. Nil pointers mean "leave alone"; a non-nil slice
// replaces the stored slice wholesale. Element-wise merging of arrays is
// deliberately unsupported - it is where partial-update ambiguity lives.
type Patch struct {
	Date         *Date            `json:"date,omitempty"`
	BaseCash     *decimal.Decimal `json:"baseCash,omitempty"`
	Stock        *Stock           `json:"stock,omitempty"`
	Damaged      *Damaged         `json:"damaged,omitempty"`
	SodaForSauce *int             `json:"sodaForSauce,omitempty"`

	Payroll             *[]PayrollEntry     `json:"payroll,omitempty"`
	Discounts           *[]Discount         `json:"discounts,omitempty"`
	Collaborations      *[]Collaboration    `json:"collaborations,omitempty"`
	Courtesies          *[]Courtesy         `json:"courtesies,omitempty"`
	EmployeeConsumption *[]ConsumptionEntry `json:"employeeConsumption,omitempty"`
	RequestsForNextDay  *[]NextDayRequest   `json:"requestsForNextDay,omitempty"`
	Receivables         *[]Receivable       `json:"receivables,omitempty"`
	Notes               *string             `json:"notes,omitempty"`
}

// Validate checks the patch's own shape before it touches a ledger.
func (p Patch) Validate() error {
	// A JSON body of {"date": ""} decodes to a present-but-zero Date;
	// applying it would silently reset the business day to 0001-01-01.
	if p.Date != nil && p.Date.IsZero() {
		return NewValidationError("date", "date cannot be empty")
	}
	if p.BaseCash != nil && p.BaseCash.IsNegative() {
		return NewValidationError("baseCash", "base cash cannot be negative")
	}
	if p.Collaborations != nil {
		for _, c := range *p.Collaborations {
			if err := c.Validate(); err != nil {
				return err
			}
		}
	}
	if p.Payroll != nil {
		for i, entry := range *p.Payroll {
			if entry.EmployeeID == "" {
				return NewValidationError("payroll", "entry %d has no employee", i)
			}
			if entry.AmountPaid.IsNegative() {
				return NewValidationError("payroll", "entry %d has negative amount", i)
			}
		}
	}
	if p.Courtesies != nil {
		for i, c := range *p.Courtesies {
			if c.Quantity <= 0 {
				return NewValidationError("courtesies", "entry %d has non-positive quantity", i)
			}
		}
	}
	if p.EmployeeConsumption != nil {
		for i, c := range *p.EmployeeConsumption {
			if c.Quantity <= 0 {
				return NewValidationError("employeeConsumption", "entry %d has non-positive quantity", i)
			}
		}
	}
	return nil
}

// ApplyPatch merges mutable fields into an ACTIVE ledger. Sales are not
// patchable; they only move through AppendSale.
func (l *DailyLedger) ApplyPatch(p Patch) error {
	if err := l.guard("update"); err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}

	if p.Date != nil {
		l.Date = *p.Date
	}
	if p.BaseCash != nil {
		l.BaseCash = *p.BaseCash
	}
	if p.Stock != nil {
		l.Stock = *p.Stock
	}
	if p.Damaged != nil {
		l.Damaged = *p.Damaged
	}
	if p.SodaForSauce != nil {
		l.SodaForSauce = *p.SodaForSauce
	}
	if p.Payroll != nil {
		l.Payroll = append([]PayrollEntry(nil), (*p.Payroll)...)
	}
	if p.Discounts != nil {
		l.Discounts = append([]Discount(nil), (*p.Discounts)...)
	}
	if p.Collaborations != nil {
		l.Collaborations = append([]Collaboration(nil), (*p.Collaborations)...)
	}
	if p.Courtesies != nil {
		l.Courtesies = append([]Courtesy(nil), (*p.Courtesies)...)
	}
	if p.EmployeeConsumption != nil {
		l.EmployeeConsumption = append([]ConsumptionEntry(nil), (*p.EmployeeConsumption)...)
	}
	if p.RequestsForNextDay != nil {
		l.RequestsForNextDay = append([]NextDayRequest(nil), (*p.RequestsForNextDay)...)
	}
	if p.Receivables != nil {
		l.Receivables = append([]Receivable(nil), (*p.Receivables)...)
	}
	if p.Notes != nil {
		l.Notes = *p.Notes
	}
	l.UpdatedAt = time.Now()
	return nil
}
