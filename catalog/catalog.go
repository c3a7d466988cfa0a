/*
Package catalog is the read-only view of products and staff.

PURPOSE:
  The ledger engine treats the product list and the staff roster as external
  lookup data. Operations that need prices or employee names build a Snapshot
  once and use it for the whole operation, so a mid-operation catalog edit
  can never make one sale's lines price inconsistently.

KEY TYPES:
  - Accessor: the external contract (products + staff)
  - Snapshot: immutable per-operation lookup table
  - Product, Staff: the records themselves

SEE ALSO:
  - sales/cart.go: resolves unit prices at add-time from a Snapshot
  - summary/engine.go: resolves employee names for payroll breakdowns
*/
package catalog

import (
	"context"

	"github.com/shopspring/decimal"
)

// Product is a sellable item with its current list price.
type Product struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// Staff is a member of the team. Payroll entries reference staff by ID.
type Staff struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
}

// FullName is how the staff member appears in reports.
func (s Staff) FullName() string {
	if s.FirstName == "" {
		return s.LastName
	}
	if s.LastName == "" {
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}

// Accessor is the external catalog contract.
type Accessor interface {
	Products(ctx context.Context) ([]Product, error)
	Staff(ctx context.Context) ([]Staff, error)
}

// =============================================================================
// SNAPSHOT - immutable lookup for the duration of one operation
// =============================================================================

// Snapshot is a point-in-time copy of the catalog. Build it at the start of
// an operation and never refresh it mid-flight.
type Snapshot struct {
	byID     map[string]Product
	byName   map[string]Product
	staffByID map[string]Staff
}

// Load builds a snapshot from the accessor.
func Load(ctx context.Context, acc Accessor) (*Snapshot, error) {
	products, err := acc.Products(ctx)
	if err != nil {
		return nil, err
	}
	staff, err := acc.Staff(ctx)
	if err != nil {
		return nil, err
	}
	return NewSnapshot(products, staff), nil
}

// NewSnapshot builds a snapshot from already-fetched records.
func NewSnapshot(products []Product, staff []Staff) *Snapshot {
	s := &Snapshot{
		byID:      make(map[string]Product, len(products)),
		byName:    make(map[string]Product, len(products)),
		staffByID: make(map[string]Staff, len(staff)),
	}
	for _, p := range products {
		s.byID[p.ID] = p
		s.byName[p.Name] = p
	}
	for _, st := range staff {
		s.staffByID[st.ID] = st
	}
	return s
}

// ProductByID looks a product up by its identifier.
func (s *Snapshot) ProductByID(id string) (Product, bool) {
	p, ok := s.byID[id]
	return p, ok
}

// PriceOf resolves a product name to its snapshot price.
func (s *Snapshot) PriceOf(name string) (decimal.Decimal, bool) {
	p, ok := s.byName[name]
	if !ok {
		return decimal.Zero, false
	}
	return p.Price, true
}

// StaffName resolves a staff id to a display name.
func (s *Snapshot) StaffName(id string) (string, bool) {
	st, ok := s.staffByID[id]
	if !ok {
		return "", false
	}
	return st.FullName(), true
}
