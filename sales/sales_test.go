package sales_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fonda/opsledger/catalog"
	"github.com/fonda/opsledger/ledger"
	"github.com/fonda/opsledger/ledger/store"
	"github.com/fonda/opsledger/sales"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func testSnapshot() *catalog.Snapshot {
	return catalog.NewSnapshot([]catalog.Product{
		{ID: "p-arepa", Name: "Arepa de Queso", Price: dec(3000)},
		{ID: "p-soda", Name: "Gaseosa", Price: dec(2500)},
	}, nil)
}

func newTestRecorder(t *testing.T) (*sales.Recorder, *store.Memory, *ledger.DailyLedger) {
	t.Helper()
	m := store.NewMemory()
	day := ledger.New(ledger.NewDate(2026, time.March, 10))
	require.NoError(t, m.CreateLedger(context.Background(), day))
	return sales.NewRecorder(m), m, day
}

// =============================================================================
// CART BEHAVIOR
// =============================================================================

func TestCart_PriceFixedWhenLineAdded(t *testing.T) {
	// GIVEN: a cart opened against a snapshot
	// WHEN: the catalog changes afterwards
	// THEN: lines already in the cart keep the price they were added at

	products := []catalog.Product{{ID: "p-arepa", Name: "Arepa de Queso", Price: dec(3000)}}
	cart := sales.NewCart(catalog.NewSnapshot(products, nil))
	require.NoError(t, cart.AddItem("p-arepa", 1))

	products[0].Price = dec(9999) // mutating the source slice, not the snapshot

	items := cart.Items()
	assert.True(t, items[0].UnitPrice.Equal(dec(3000)))
}

func TestCart_UnknownProduct_Rejected(t *testing.T) {
	cart := sales.NewCart(testSnapshot())
	err := cart.AddItem("p-nope", 1)
	assert.True(t, ledger.IsValidation(err))
	assert.Zero(t, cart.Len())
}

func TestCart_ToggleCourtesy_FlipsRunningTotal(t *testing.T) {
	// GIVEN: 2 arepas and 1 soda in the cart
	// WHEN: the soda is toggled courtesy and back
	// THEN: the total drops by the soda's subtotal, then returns

	cart := sales.NewCart(testSnapshot())
	require.NoError(t, cart.AddItem("p-arepa", 2))
	require.NoError(t, cart.AddItem("p-soda", 1))
	require.True(t, cart.Total().Equal(dec(8500)))

	require.NoError(t, cart.ToggleCourtesy(1))
	assert.True(t, cart.Total().Equal(dec(6000)))

	require.NoError(t, cart.ToggleCourtesy(1))
	assert.True(t, cart.Total().Equal(dec(8500)))
}

func TestCart_RemoveItem(t *testing.T) {
	cart := sales.NewCart(testSnapshot())
	require.NoError(t, cart.AddItem("p-arepa", 1))
	require.NoError(t, cart.AddItem("p-soda", 1))

	require.NoError(t, cart.RemoveItem(0))
	require.Equal(t, 1, cart.Len())
	assert.Equal(t, "Gaseosa", cart.Items()[0].ProductName)

	assert.Error(t, cart.RemoveItem(5))
}

// =============================================================================
// COMMIT PATH
// =============================================================================

func TestCommit_AppendsSaleAndClearsCart(t *testing.T) {
	// GIVEN: a cart with 2 paid arepas and 1 courtesy arepa
	// WHEN: committed as CASH
	// THEN: the ledger gains one sale totaling 6000 and the cart is empty

	rec, m, day := newTestRecorder(t)
	ctx := context.Background()

	cart := sales.NewCart(testSnapshot())
	require.NoError(t, cart.AddItem("p-arepa", 2))
	require.NoError(t, cart.AddItem("p-arepa", 1))
	require.NoError(t, cart.ToggleCourtesy(1))

	sale, err := rec.Commit(ctx, cart, ledger.PaymentCash, day.ID)
	require.NoError(t, err)

	assert.NotEmpty(t, sale.ID)
	assert.True(t, sale.Total.Equal(dec(6000)))
	assert.Zero(t, cart.Len(), "commit consumes the cart")

	stored, err := m.GetLedger(ctx, day.ID)
	require.NoError(t, err)
	require.Len(t, stored.Sales, 1)
	assert.True(t, stored.Sales[0].Total.Equal(dec(6000)))
}

func TestCommit_EmptyCart_Rejected(t *testing.T) {
	rec, _, day := newTestRecorder(t)

	_, err := rec.Commit(context.Background(), sales.NewCart(testSnapshot()), ledger.PaymentCash, day.ID)
	assert.True(t, ledger.IsValidation(err))
}

func TestCommit_ClosedLedger_RejectedAndCartKept(t *testing.T) {
	// GIVEN: the day is CLOSED
	// WHEN: committing a cart
	// THEN: InvalidStateError and the cart still holds its lines

	rec, m, day := newTestRecorder(t)
	ctx := context.Background()
	require.NoError(t, day.Close(decimal.Zero, decimal.Zero))
	require.NoError(t, m.SaveLedger(ctx, day))

	cart := sales.NewCart(testSnapshot())
	require.NoError(t, cart.AddItem("p-soda", 1))

	_, err := rec.Commit(ctx, cart, ledger.PaymentCash, day.ID)
	assert.True(t, ledger.IsInvalidState(err))
	assert.Equal(t, 1, cart.Len(), "failed commit must not consume the cart")
}

func TestCommit_UnknownLedger_NotFound(t *testing.T) {
	rec, _, _ := newTestRecorder(t)

	cart := sales.NewCart(testSnapshot())
	require.NoError(t, cart.AddItem("p-soda", 1))

	_, err := rec.Commit(context.Background(), cart, ledger.PaymentCash, "nope")
	assert.True(t, ledger.IsNotFound(err))
}

func TestCommit_TransferSale_BucketedSeparately(t *testing.T) {
	rec, m, day := newTestRecorder(t)
	ctx := context.Background()

	cart := sales.NewCart(testSnapshot())
	require.NoError(t, cart.AddItem("p-soda", 2))
	_, err := rec.Commit(ctx, cart, ledger.PaymentTransfer, day.ID)
	require.NoError(t, err)

	stored, err := m.GetLedger(ctx, day.ID)
	require.NoError(t, err)
	totals := stored.Totals(nil)
	assert.True(t, totals.SalesCash.IsZero())
	assert.True(t, totals.SalesTransfer.Equal(dec(5000)))
}
