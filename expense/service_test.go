package expense_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fonda/opsledger/expense"
	"github.com/fonda/opsledger/ledger"
	"github.com/fonda/opsledger/ledger/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func newTestService(t *testing.T) (*expense.Service, *store.Memory, *ledger.DailyLedger) {
	t.Helper()
	m := store.NewMemory()
	day := ledger.New(ledger.NewDate(2026, time.March, 10))
	require.NoError(t, m.CreateLedger(context.Background(), day))
	return expense.NewService(m, m), m, day
}

func gasInput() expense.Input {
	return expense.Input{
		Items: []ledger.ExpenseItem{{Name: "Gas", UnitPrice: dec(20000), Quantity: 2}},
	}
}

// =============================================================================
// CREATE
// =============================================================================

func TestCreate_TotalDerivedFromItems(t *testing.T) {
	// GIVEN: two gas cylinders at 20000 each
	// WHEN: the expense is created
	// THEN: total is 40000, regardless of anything the caller computed

	svc, _, day := newTestService(t)

	e, err := svc.Create(context.Background(), day.ID, gasInput())
	require.NoError(t, err)

	assert.NotEmpty(t, e.ID)
	assert.True(t, e.Total.Equal(dec(40000)))
	assert.Equal(t, day.ID, e.LedgerID)
}

func TestCreate_DateDefaultsToLedgerDate(t *testing.T) {
	svc, _, day := newTestService(t)

	e, err := svc.Create(context.Background(), day.ID, gasInput())
	require.NoError(t, err)
	assert.True(t, e.Date.Equal(day.Date))
}

func TestCreate_ClosedLedger_Rejected(t *testing.T) {
	svc, m, day := newTestService(t)
	ctx := context.Background()
	require.NoError(t, day.Close(decimal.Zero, decimal.Zero))
	require.NoError(t, m.SaveLedger(ctx, day))

	_, err := svc.Create(ctx, day.ID, gasInput())
	assert.True(t, ledger.IsInvalidState(err))
}

func TestCreate_EmptyItems_Rejected(t *testing.T) {
	svc, _, day := newTestService(t)

	_, err := svc.Create(context.Background(), day.ID, expense.Input{})
	assert.True(t, ledger.IsValidation(err))
}

func TestCreate_UnknownLedger_NotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Create(context.Background(), "nope", gasInput())
	assert.True(t, ledger.IsNotFound(err))
}

// =============================================================================
// UPDATE AND DELETE
// =============================================================================

func TestUpdate_ItemsReplacedAndTotalRecomputed(t *testing.T) {
	// GIVEN: a 40000 gas expense
	// WHEN: the items are replaced with a single 3500 line
	// THEN: the stored total follows the new items

	svc, _, day := newTestService(t)
	ctx := context.Background()
	e, err := svc.Create(ctx, day.ID, gasInput())
	require.NoError(t, err)

	items := []ledger.ExpenseItem{{Name: "Servilletas", UnitPrice: dec(3500), Quantity: 1}}
	updated, err := svc.Update(ctx, e.ID, expense.Patch{Items: &items})
	require.NoError(t, err)

	require.Len(t, updated.Items, 1)
	assert.True(t, updated.Total.Equal(dec(3500)))
}

func TestUpdate_ClosedOwner_Rejected(t *testing.T) {
	svc, m, day := newTestService(t)
	ctx := context.Background()
	e, err := svc.Create(ctx, day.ID, gasInput())
	require.NoError(t, err)

	stored, err := m.GetLedger(ctx, day.ID)
	require.NoError(t, err)
	require.NoError(t, stored.Close(decimal.Zero, decimal.Zero))
	require.NoError(t, m.SaveLedger(ctx, stored))

	url := "https://evidence/invoice.jpg"
	_, err = svc.Update(ctx, e.ID, expense.Patch{InvoiceEvidenceURL: &url})
	assert.True(t, ledger.IsInvalidState(err))
}

func TestDelete_RemovesWhileOwnerActive(t *testing.T) {
	svc, _, day := newTestService(t)
	ctx := context.Background()
	e, err := svc.Create(ctx, day.ID, gasInput())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, e.ID))
	_, err = svc.Get(ctx, e.ID)
	assert.True(t, ledger.IsNotFound(err))
}

func TestDelete_ClosedOwner_Rejected(t *testing.T) {
	svc, m, day := newTestService(t)
	ctx := context.Background()
	e, err := svc.Create(ctx, day.ID, gasInput())
	require.NoError(t, err)

	stored, err := m.GetLedger(ctx, day.ID)
	require.NoError(t, err)
	require.NoError(t, stored.Close(decimal.Zero, decimal.Zero))
	require.NoError(t, m.SaveLedger(ctx, stored))

	err = svc.Delete(ctx, e.ID)
	assert.True(t, ledger.IsInvalidState(err))

	kept, err := svc.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.True(t, kept.Total.Equal(dec(40000)), "record stays readable and intact")
}

// =============================================================================
// LISTING
// =============================================================================

func TestListByLedger_CreationOrder(t *testing.T) {
	svc, _, day := newTestService(t)
	ctx := context.Background()

	for _, name := range []string{"Gas", "Queso", "Bolsas"} {
		_, err := svc.Create(ctx, day.ID, expense.Input{
			Items: []ledger.ExpenseItem{{Name: name, UnitPrice: dec(1000), Quantity: 1}},
		})
		require.NoError(t, err)
	}

	out, err := svc.ListByLedger(ctx, day.ID)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "Gas", out[0].Items[0].Name)
	assert.Equal(t, "Bolsas", out[2].Items[0].Name)
}

func TestListRange_FiltersByExpenseDate(t *testing.T) {
	svc, _, day := newTestService(t)
	ctx := context.Background()

	inRange, err := svc.Create(ctx, day.ID, expense.Input{
		Items: []ledger.ExpenseItem{{Name: "Gas", UnitPrice: dec(1000), Quantity: 1}},
		Date:  ledger.NewDate(2026, time.March, 10),
	})
	require.NoError(t, err)
	_, err = svc.Create(ctx, day.ID, expense.Input{
		Items: []ledger.ExpenseItem{{Name: "Queso", UnitPrice: dec(1000), Quantity: 1}},
		Date:  ledger.NewDate(2026, time.April, 2),
	})
	require.NoError(t, err)

	out, err := svc.ListRange(ctx, ledger.NewDate(2026, time.March, 1), ledger.NewDate(2026, time.March, 31))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, inRange.ID, out[0].ID)
}
