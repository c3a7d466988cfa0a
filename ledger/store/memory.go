// Package store provides an in-memory ledger.Store implementation
// for tests and dev servers.
package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/fonda/opsledger/ledger"
)

// =============================================================================
// MEMORY STORE - mirrors the sqlite semantics, including the single-ACTIVE
// check done under the same lock as the insert
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	ledgers  map[string]*ledger.DailyLedger
	expenses map[string]*ledger.Expense
	seq      int // creation order for expense listing
	order    map[string]int
}

func NewMemory() *Memory {
	return &Memory{
		ledgers:  make(map[string]*ledger.DailyLedger),
		expenses: make(map[string]*ledger.Expense),
		order:    make(map[string]int),
	}
}

// clone round-trips through JSON so callers never share memory with the
// store, same as a real document store.
func cloneLedger(l *ledger.DailyLedger) *ledger.DailyLedger {
	b, _ := json.Marshal(l)
	var out ledger.DailyLedger
	_ = json.Unmarshal(b, &out)
	return &out
}

func cloneExpense(e *ledger.Expense) *ledger.Expense {
	b, _ := json.Marshal(e)
	var out ledger.Expense
	_ = json.Unmarshal(b, &out)
	return &out
}

// =============================================================================
// LEDGERS (ledger.Store)
// =============================================================================

func (m *Memory) CreateLedger(_ context.Context, l *ledger.DailyLedger) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Check-then-insert under one lock: the in-memory equivalent of the
	// sqlite partial unique index.
	for _, existing := range m.ledgers {
		if existing.Status == ledger.StatusActive {
			return &ledger.ConflictError{ActiveLedgerID: existing.ID, ActiveDate: existing.Date}
		}
	}

	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	m.ledgers[l.ID] = cloneLedger(l)
	return nil
}

func (m *Memory) GetLedger(_ context.Context, id string) (*ledger.DailyLedger, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	l, ok := m.ledgers[id]
	if !ok {
		return nil, &ledger.NotFoundError{Kind: "ledger", ID: id}
	}
	return cloneLedger(l), nil
}

func (m *Memory) GetActiveLedger(_ context.Context) (*ledger.DailyLedger, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, l := range m.ledgers {
		if l.Status == ledger.StatusActive {
			return cloneLedger(l), nil
		}
	}
	return nil, &ledger.NotFoundError{Kind: "ledger", ID: "active"}
}

func (m *Memory) SaveLedger(_ context.Context, l *ledger.DailyLedger) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.ledgers[l.ID]; !ok {
		return &ledger.NotFoundError{Kind: "ledger", ID: l.ID}
	}
	m.ledgers[l.ID] = cloneLedger(l)
	return nil
}

func (m *Memory) ListLedgersInRange(_ context.Context, from, to ledger.Date) ([]*ledger.DailyLedger, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*ledger.DailyLedger
	for _, l := range m.ledgers {
		if l.Date.InRange(from, to) {
			out = append(out, cloneLedger(l))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// =============================================================================
// EXPENSES (ledger.ExpenseStore)
// =============================================================================

func (m *Memory) CreateExpense(_ context.Context, e *ledger.Expense) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	m.seq++
	m.order[e.ID] = m.seq
	m.expenses[e.ID] = cloneExpense(e)
	return nil
}

func (m *Memory) GetExpense(_ context.Context, id string) (*ledger.Expense, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.expenses[id]
	if !ok {
		return nil, &ledger.NotFoundError{Kind: "expense", ID: id}
	}
	return cloneExpense(e), nil
}

func (m *Memory) SaveExpense(_ context.Context, e *ledger.Expense) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.expenses[e.ID]; !ok {
		return &ledger.NotFoundError{Kind: "expense", ID: e.ID}
	}
	m.expenses[e.ID] = cloneExpense(e)
	return nil
}

func (m *Memory) DeleteExpense(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.expenses[id]; !ok {
		return &ledger.NotFoundError{Kind: "expense", ID: id}
	}
	delete(m.expenses, id)
	delete(m.order, id)
	return nil
}

func (m *Memory) ListExpensesByLedger(_ context.Context, ledgerID string) ([]*ledger.Expense, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*ledger.Expense
	for _, e := range m.expenses {
		if e.LedgerID == ledgerID {
			out = append(out, cloneExpense(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return m.order[out[i].ID] < m.order[out[j].ID] })
	return out, nil
}

func (m *Memory) ListExpensesInRange(_ context.Context, from, to ledger.Date) ([]*ledger.Expense, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*ledger.Expense
	for _, e := range m.expenses {
		if e.Date.InRange(from, to) {
			out = append(out, cloneExpense(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return m.order[out[i].ID] < m.order[out[j].ID] })
	return out, nil
}
