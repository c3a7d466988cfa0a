/*
store.go - Persistence contracts for ledgers and expenses

PURPOSE:
  Defines the interface between the domain and the database. Ledgers move as
  whole documents (last-write-wins saves, one editor at a time); the only
  write-time invariant stores must enforce themselves is the single-ACTIVE
  constraint, because a check done outside the store is a race.

SINGLE-ACTIVE CONTRACT:
  CreateLedger MUST perform the active-ledger check and the insert as one
  atomic unit (transaction or unique constraint). Implementations return
  *ConflictError carrying the blocking ledger's id and date.

ERROR CONTRACT:
  Stores return domain errors (*NotFoundError, *ConflictError) for domain
  conditions and wrap everything else with WrapTransport. A caller must be
  able to tell "no such ledger" from "the database is down".

IMPLEMENTATIONS:
  - store/sqlite: production, partial unique index on status='ACTIVE'
  - ledger/store: in-memory, for tests and dev servers
*/
package ledger

import "context"

// Store persists daily ledgers.
type Store interface {
	// CreateLedger assigns an ID if empty and inserts the ledger.
	// Returns *ConflictError if any ACTIVE ledger exists; the check and the
	// insert are atomic.
	CreateLedger(ctx context.Context, l *DailyLedger) error

	// GetLedger returns the ledger or *NotFoundError.
	GetLedger(ctx context.Context, id string) (*DailyLedger, error)

	// GetActiveLedger returns the single ACTIVE ledger, or *NotFoundError
	// when every day is closed.
	GetActiveLedger(ctx context.Context) (*DailyLedger, error)

	// SaveLedger overwrites the stored document wholesale.
	SaveLedger(ctx context.Context, l *DailyLedger) error

	// ListLedgersInRange returns ledgers with date in [from, to] inclusive,
	// ordered by date.
	ListLedgersInRange(ctx context.Context, from, to Date) ([]*DailyLedger, error)
}

// ExpenseStore persists purchase records, linked to ledgers by LedgerID.
type ExpenseStore interface {
	// CreateExpense assigns an ID if empty and inserts the expense.
	CreateExpense(ctx context.Context, e *Expense) error

	// GetExpense returns the expense or *NotFoundError.
	GetExpense(ctx context.Context, id string) (*Expense, error)

	// SaveExpense overwrites the stored expense wholesale.
	SaveExpense(ctx context.Context, e *Expense) error

	// DeleteExpense removes the expense or returns *NotFoundError.
	DeleteExpense(ctx context.Context, id string) error

	// ListExpensesByLedger returns a ledger's expenses in creation order.
	ListExpensesByLedger(ctx context.Context, ledgerID string) ([]*Expense, error)

	// ListExpensesInRange returns expenses dated in [from, to] inclusive.
	ListExpensesInRange(ctx context.Context, from, to Date) ([]*Expense, error)
}
