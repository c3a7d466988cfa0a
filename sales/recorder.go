package sales

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fonda/opsledger/ledger"
)

// =============================================================================
// RECORDER - commits carts against ACTIVE ledgers
// =============================================================================

// Recorder commits carts as immutable sales on a ledger.
type Recorder struct {
	ledgers ledger.Store

	// Overridable for tests.
	now   func() time.Time
	newID func() string
}

// NewRecorder builds a recorder over a ledger store.
func NewRecorder(ledgers ledger.Store) *Recorder {
	return &Recorder{
		ledgers: ledgers,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Commit turns the cart into a Sale and appends it to the ledger.
//
// Failure modes:
//   - *ValidationError for an empty cart
//   - *InvalidStateError when the ledger is CLOSED
//   - *NotFoundError for an unknown ledger
//
// The append is a single whole-document save: either the ledger gains the
// full sale or it is left untouched. On success the cart is cleared; the
// caller must treat commit as consuming it.
func (r *Recorder) Commit(ctx context.Context, cart *Cart, method ledger.PaymentMethod, ledgerID string) (ledger.Sale, error) {
	if cart.Len() == 0 {
		return ledger.Sale{}, ledger.NewValidationError("items", "cannot commit an empty cart")
	}

	day, err := r.ledgers.GetLedger(ctx, ledgerID)
	if err != nil {
		return ledger.Sale{}, err
	}

	sale, err := ledger.NewSale(cart.Items(), method, r.now())
	if err != nil {
		return ledger.Sale{}, err
	}
	sale.ID = r.newID()

	if err := day.AppendSale(sale); err != nil {
		return ledger.Sale{}, err
	}
	if err := r.ledgers.SaveLedger(ctx, day); err != nil {
		return ledger.Sale{}, err
	}

	cart.Clear()
	return sale, nil
}
