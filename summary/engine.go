/*
Package summary folds daily ledgers into period reports.

PURPOSE:
  Given a date range, the engine loads every ledger in range plus the
  expenses linked to those ledgers and folds them into one Summary: income
  by payment method, expense and payroll totals with breakdowns, courtesy
  and collaboration values, per-family supply usage, and the period balance.

CONTRACT:
  The Summary JSON field names are the external reporting contract; rename
  one and every downstream spreadsheet breaks. A range with zero ledgers
  yields all-zero buckets, never an error and never a null - callers must
  not have to special-case empty periods.

READ-ONLY:
  The engine never writes. It can safely run concurrently with edits to the
  current day because every other ledger it reads is CLOSED and immutable.
*/
package summary

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/fonda/opsledger/catalog"
	"github.com/fonda/opsledger/ledger"
)

// Summary is the folded view of a date range. Field names are the external
// reporting contract.
type Summary struct {
	StartDate ledger.Date `json:"startDate"`
	EndDate   ledger.Date `json:"endDate"`

	TotalIncome   Income          `json:"totalIncome"`
	TotalExpenses decimal.Decimal `json:"totalExpenses"`

	TotalDiscounts           decimal.Decimal            `json:"totalDiscounts"`
	TotalCourtesiesValue     decimal.Decimal            `json:"totalCourtesiesValue"`
	TotalCollaborationsValue decimal.Decimal            `json:"totalCollaborationsValue"`
	CollaborationsByContributor map[string]decimal.Decimal `json:"collaborationsByContributor"`

	TotalPayroll      decimal.Decimal            `json:"totalPayroll"`
	PayrollByEmployee map[string]decimal.Decimal `json:"payrollByEmployee"`

	SuppliesUsed map[string]int `json:"suppliesUsed"`

	Balance decimal.Decimal `json:"balance"`

	LedgerCount int `json:"ledgerCount"`
}

// Engine loads and folds. It holds read-only handles.
type Engine struct {
	ledgers  ledger.Store
	expenses ledger.ExpenseStore
	catalog  catalog.Accessor
}

// NewEngine builds the summary engine.
func NewEngine(ledgers ledger.Store, expenses ledger.ExpenseStore, cat catalog.Accessor) *Engine {
	return &Engine{ledgers: ledgers, expenses: expenses, catalog: cat}
}

// Summarize folds every ledger dated in [start, end] inclusive.
func (e *Engine) Summarize(ctx context.Context, start, end ledger.Date) (*Summary, error) {
	if end.Before(start) {
		return nil, ledger.NewValidationError("endDate", "end date %s is before start date %s", end, start)
	}

	snap, err := catalog.Load(ctx, e.catalog)
	if err != nil {
		return nil, ledger.WrapTransport("summary.catalog", err)
	}

	days, err := e.ledgers.ListLedgersInRange(ctx, start, end)
	if err != nil {
		return nil, err
	}

	s := newZeroSummary(start, end)
	s.LedgerCount = len(days)

	for _, day := range days {
		totals := day.Totals(snap.PriceOf)

		s.TotalIncome.Cash = s.TotalIncome.Cash.Add(totals.SalesCash)
		s.TotalIncome.Transfers = s.TotalIncome.Transfers.Add(totals.SalesTransfer)
		s.TotalDiscounts = s.TotalDiscounts.Add(totals.DiscountsTotal)
		s.TotalCourtesiesValue = s.TotalCourtesiesValue.Add(totals.CourtesiesValue)
		s.TotalCollaborationsValue = s.TotalCollaborationsValue.Add(totals.CollaborationsValue)
		s.TotalPayroll = s.TotalPayroll.Add(totals.PayrollTotal)

		for _, c := range day.Collaborations {
			s.CollaborationsByContributor[c.PersonName] = s.CollaborationsByContributor[c.PersonName].Add(c.Value)
		}
		for _, p := range day.Payroll {
			key := p.EmployeeID
			if name, ok := snap.StaffName(p.EmployeeID); ok {
				key = name
			}
			s.PayrollByEmployee[key] = s.PayrollByEmployee[key].Add(p.AmountPaid)
		}
		for family, used := range totals.SuppliesUsed {
			s.SuppliesUsed[family] += used
		}

		expenses, err := e.expenses.ListExpensesByLedger(ctx, day.ID)
		if err != nil {
			return nil, err
		}
		for _, exp := range expenses {
			s.TotalExpenses = s.TotalExpenses.Add(exp.Total)
		}
	}

	s.Balance = s.TotalIncome.Cash.Add(s.TotalIncome.Transfers).Sub(s.TotalExpenses)
	return s, nil
}

// Income is revenue split by how it was settled.
type Income struct {
	Cash      decimal.Decimal `json:"cash"`
	Transfers decimal.Decimal `json:"transfers"`
}

func newZeroSummary(start, end ledger.Date) *Summary {
	return &Summary{
		StartDate: start,
		EndDate:   end,
		TotalIncome: Income{
			Cash:      decimal.Zero,
			Transfers: decimal.Zero,
		},
		TotalExpenses:               decimal.Zero,
		TotalDiscounts:              decimal.Zero,
		TotalCourtesiesValue:        decimal.Zero,
		TotalCollaborationsValue:    decimal.Zero,
		CollaborationsByContributor: map[string]decimal.Decimal{},
		TotalPayroll:                decimal.Zero,
		PayrollByEmployee:           map[string]decimal.Decimal{},
		SuppliesUsed: map[string]int{
			"arepas":   0,
			"panes":    0,
			"gaseosas": 0,
			"aguas":    0,
		},
		Balance: decimal.Zero,
	}
}
