/*
Package expense is the CLOSED-guarded CRUD around purchase records.

PURPOSE:
  Expenses belong to the Expense Ledger but are linked to a DailyLedger by
  id, and every mutation checks the owning ledger's state first: a closed
  day's books don't change. Totals are recomputed from items on create and
  on update; whatever total the caller sent is discarded.

SEE ALSO:
  - ledger/expense.go: the record type and its validation
  - ledger/store.go: the ExpenseStore contract
*/
package expense

import (
	"context"
	"time"

	"github.com/fonda/opsledger/ledger"
)

// Service coordinates expense records with their owning ledgers.
type Service struct {
	ledgers  ledger.Store
	expenses ledger.ExpenseStore

	now func() time.Time
}

// NewService builds the expense service.
func NewService(ledgers ledger.Store, expenses ledger.ExpenseStore) *Service {
	return &Service{ledgers: ledgers, expenses: expenses, now: time.Now}
}

// Input is what callers provide to create an expense. Totals are not
// accepted: they are always derived.
type Input struct {
	Items              []ledger.ExpenseItem
	Date               ledger.Date
	InvoiceEvidenceURL string
}

// Create records a new expense against an ACTIVE ledger.
func (s *Service) Create(ctx context.Context, ledgerID string, in Input) (*ledger.Expense, error) {
	day, err := s.ledgers.GetLedger(ctx, ledgerID)
	if err != nil {
		return nil, err
	}
	if day.IsClosed() {
		return nil, &ledger.InvalidStateError{LedgerID: ledgerID, Operation: "createExpense", Reason: "ledger is closed"}
	}
	if err := ledger.ValidateExpenseItems(in.Items); err != nil {
		return nil, err
	}

	date := in.Date
	if date.IsZero() {
		date = day.Date
	}

	e := &ledger.Expense{
		LedgerID:           ledgerID,
		Date:               date,
		Items:              append([]ledger.ExpenseItem(nil), in.Items...),
		InvoiceEvidenceURL: in.InvoiceEvidenceURL,
		CreatedAt:          s.now(),
	}
	e.RecomputeTotal()

	if err := s.expenses.CreateExpense(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Patch is a partial expense update. Items are replaced wholesale.
type Patch struct {
	Items              *[]ledger.ExpenseItem
	Date               *ledger.Date
	InvoiceEvidenceURL *string
}

// Update replaces fields on an expense whose owning ledger is still ACTIVE,
// then recomputes the total.
func (s *Service) Update(ctx context.Context, id string, p Patch) (*ledger.Expense, error) {
	e, err := s.expenses.GetExpense(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.guardOwner(ctx, e, "updateExpense"); err != nil {
		return nil, err
	}

	if p.Items != nil {
		if err := ledger.ValidateExpenseItems(*p.Items); err != nil {
			return nil, err
		}
		e.Items = append([]ledger.ExpenseItem(nil), (*p.Items)...)
	}
	if p.Date != nil {
		e.Date = *p.Date
	}
	if p.InvoiceEvidenceURL != nil {
		e.InvoiceEvidenceURL = *p.InvoiceEvidenceURL
	}
	e.RecomputeTotal()

	if err := s.expenses.SaveExpense(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Get returns one expense by id.
func (s *Service) Get(ctx context.Context, id string) (*ledger.Expense, error) {
	return s.expenses.GetExpense(ctx, id)
}

// Delete removes an expense whose owning ledger is still ACTIVE.
func (s *Service) Delete(ctx context.Context, id string) error {
	e, err := s.expenses.GetExpense(ctx, id)
	if err != nil {
		return err
	}
	if err := s.guardOwner(ctx, e, "deleteExpense"); err != nil {
		return err
	}
	return s.expenses.DeleteExpense(ctx, id)
}

// ListByLedger returns one day's expenses in creation order.
func (s *Service) ListByLedger(ctx context.Context, ledgerID string) ([]*ledger.Expense, error) {
	return s.expenses.ListExpensesByLedger(ctx, ledgerID)
}

// ListRange returns expenses dated in [from, to] inclusive.
func (s *Service) ListRange(ctx context.Context, from, to ledger.Date) ([]*ledger.Expense, error) {
	return s.expenses.ListExpensesInRange(ctx, from, to)
}

// guardOwner rejects mutations when the owning ledger is CLOSED. An expense
// whose ledger no longer exists is treated the same as closed books: the
// record stays readable but frozen.
func (s *Service) guardOwner(ctx context.Context, e *ledger.Expense, operation string) error {
	day, err := s.ledgers.GetLedger(ctx, e.LedgerID)
	if err != nil {
		if ledger.IsNotFound(err) {
			return &ledger.InvalidStateError{LedgerID: e.LedgerID, Operation: operation, Reason: "owning ledger no longer exists"}
		}
		return err
	}
	if day.IsClosed() {
		return &ledger.InvalidStateError{LedgerID: e.LedgerID, Operation: operation, Reason: "ledger is closed"}
	}
	return nil
}
