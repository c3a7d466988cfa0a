/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements ledger.Store, ledger.ExpenseStore and catalog.Store using
  SQLite. Ledgers are stored as whole JSON documents with real columns only
  for what must be indexed or constrained (id, date, status) - wholesale
  last-write-wins saves are exactly the persistence model the engine
  assumes.

SINGLE-ACTIVE ENFORCEMENT:
  The create path runs check-then-insert inside one transaction AND the
  schema carries a partial unique index on status='ACTIVE'. The index is the
  hard floor: even if two creations race past the in-transaction check on
  some future storage engine, the second insert fails and is reported as a
  conflict.

KEY TABLES:
  ledgers:  one row per business day, document in body_json
  expenses: purchase records, queried by ledger and by date range
  products: the sellable catalog
  staff:    read-only roster for payroll name resolution

WAL MODE:
  Opened with WAL so the dashboard can read while the register writes.

USAGE:
  store, err := sqlite.New("./data/opsledger.db")
  defer store.Close()

SEE ALSO:
  - ledger/store.go: the contracts, including the error contract
  - ledger/store/memory.go: in-memory twin used in tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/fonda/opsledger/catalog"
	"github.com/fonda/opsledger/ledger"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (and migrates) a SQLite store. Use ":memory:" for tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection keeps ":memory:" databases coherent and sidesteps
	// SQLITE_BUSY under concurrent writers.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Daily ledgers (one document per business day)
	CREATE TABLE IF NOT EXISTS ledgers (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		status TEXT NOT NULL,
		body_json TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_ledgers_date ON ledgers(date);

	-- CRITICAL: at most one ACTIVE ledger, ever. One physical register.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_ledgers_single_active
		ON ledgers(status) WHERE status = 'ACTIVE';

	-- Expenses (owned by the expense ledger, linked by ledger_id)
	CREATE TABLE IF NOT EXISTS expenses (
		id TEXT PRIMARY KEY,
		ledger_id TEXT NOT NULL,
		date TEXT NOT NULL,
		items_json TEXT NOT NULL,
		total TEXT NOT NULL,
		invoice_url TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_expenses_ledger
		ON expenses(ledger_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_expenses_date ON expenses(date);

	-- Catalog
	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		price TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS staff (
		id TEXT PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		role TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// LEDGERS (ledger.Store)
// =============================================================================

// CreateLedger assigns the ID and inserts inside one transaction. The
// active-ledger check and the insert are atomic; the partial unique index
// backs the check at the schema level.
func (s *Store) CreateLedger(ctx context.Context, l *ledger.DailyLedger) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ledger.WrapTransport("CreateLedger", err)
	}
	defer tx.Rollback()

	var activeID, activeDate string
	err = tx.QueryRowContext(ctx,
		`SELECT id, date FROM ledgers WHERE status = ? LIMIT 1`,
		string(ledger.StatusActive),
	).Scan(&activeID, &activeDate)
	switch {
	case err == nil:
		d, _ := ledger.ParseDate(activeDate)
		return &ledger.ConflictError{ActiveLedgerID: activeID, ActiveDate: d}
	case !errors.Is(err, sql.ErrNoRows):
		return ledger.WrapTransport("CreateLedger", err)
	}

	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	now := time.Now()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now
	}
	l.UpdatedAt = now

	body, err := json.Marshal(l)
	if err != nil {
		return ledger.WrapTransport("CreateLedger", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO ledgers (id, date, status, body_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		l.ID, l.Date.String(), string(l.Status), string(body),
		l.CreatedAt.Format(time.RFC3339), l.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			// A racing creation slipped past the check; the index held.
			return &ledger.ConflictError{ActiveLedgerID: "", ActiveDate: l.Date}
		}
		return ledger.WrapTransport("CreateLedger", err)
	}

	if err := tx.Commit(); err != nil {
		return ledger.WrapTransport("CreateLedger", err)
	}
	return nil
}

// GetLedger loads one ledger document.
func (s *Store) GetLedger(ctx context.Context, id string) (*ledger.DailyLedger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return scanLedger(s.db.QueryRowContext(ctx,
		`SELECT body_json FROM ledgers WHERE id = ?`, id), "ledger", id)
}

// GetActiveLedger loads the single ACTIVE ledger.
func (s *Store) GetActiveLedger(ctx context.Context) (*ledger.DailyLedger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return scanLedger(s.db.QueryRowContext(ctx,
		`SELECT body_json FROM ledgers WHERE status = ? LIMIT 1`,
		string(ledger.StatusActive)), "ledger", "active")
}

func scanLedger(row *sql.Row, kind, id string) (*ledger.DailyLedger, error) {
	var body string
	if err := row.Scan(&body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &ledger.NotFoundError{Kind: kind, ID: id}
		}
		return nil, ledger.WrapTransport("GetLedger", err)
	}
	var l ledger.DailyLedger
	if err := json.Unmarshal([]byte(body), &l); err != nil {
		return nil, ledger.WrapTransport("GetLedger", err)
	}
	return &l, nil
}

// SaveLedger overwrites the document and keeps the indexed columns in sync.
func (s *Store) SaveLedger(ctx context.Context, l *ledger.DailyLedger) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l.UpdatedAt = time.Now()
	body, err := json.Marshal(l)
	if err != nil {
		return ledger.WrapTransport("SaveLedger", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE ledgers SET date = ?, status = ?, body_json = ?, updated_at = ?
		WHERE id = ?`,
		l.Date.String(), string(l.Status), string(body),
		l.UpdatedAt.Format(time.RFC3339), l.ID,
	)
	if err != nil {
		return ledger.WrapTransport("SaveLedger", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return ledger.WrapTransport("SaveLedger", err)
	}
	if affected == 0 {
		return &ledger.NotFoundError{Kind: "ledger", ID: l.ID}
	}
	return nil
}

// ListLedgersInRange returns ledgers dated in [from, to], ordered by date.
func (s *Store) ListLedgersInRange(ctx context.Context, from, to ledger.Date) ([]*ledger.DailyLedger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT body_json FROM ledgers
		WHERE date >= ? AND date <= ?
		ORDER BY date ASC`,
		from.String(), to.String(),
	)
	if err != nil {
		return nil, ledger.WrapTransport("ListLedgersInRange", err)
	}
	defer rows.Close()

	var out []*ledger.DailyLedger
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, ledger.WrapTransport("ListLedgersInRange", err)
		}
		var l ledger.DailyLedger
		if err := json.Unmarshal([]byte(body), &l); err != nil {
			return nil, ledger.WrapTransport("ListLedgersInRange", err)
		}
		out = append(out, &l)
	}
	return out, ledger.WrapTransport("ListLedgersInRange", rows.Err())
}

// =============================================================================
// EXPENSES (ledger.ExpenseStore)
// =============================================================================

// CreateExpense assigns the ID and inserts the record.
func (s *Store) CreateExpense(ctx context.Context, e *ledger.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	items, err := json.Marshal(e.Items)
	if err != nil {
		return ledger.WrapTransport("CreateExpense", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO expenses (id, ledger_id, date, items_json, total, invoice_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.LedgerID, e.Date.String(), string(items),
		e.Total.String(), e.InvoiceEvidenceURL, e.CreatedAt.Format(time.RFC3339Nano),
	)
	return ledger.WrapTransport("CreateExpense", err)
}

// GetExpense loads one expense.
func (s *Store) GetExpense(ctx context.Context, id string) (*ledger.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, ledger_id, date, items_json, total, invoice_url, created_at
		FROM expenses WHERE id = ?`, id)
	e, err := scanExpense(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &ledger.NotFoundError{Kind: "expense", ID: id}
		}
		return nil, ledger.WrapTransport("GetExpense", err)
	}
	return e, nil
}

// SaveExpense overwrites the record wholesale.
func (s *Store) SaveExpense(ctx context.Context, e *ledger.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := json.Marshal(e.Items)
	if err != nil {
		return ledger.WrapTransport("SaveExpense", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE expenses SET ledger_id = ?, date = ?, items_json = ?, total = ?, invoice_url = ?
		WHERE id = ?`,
		e.LedgerID, e.Date.String(), string(items), e.Total.String(), e.InvoiceEvidenceURL, e.ID,
	)
	if err != nil {
		return ledger.WrapTransport("SaveExpense", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return &ledger.NotFoundError{Kind: "expense", ID: e.ID}
	}
	return nil
}

// DeleteExpense removes the record.
func (s *Store) DeleteExpense(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return ledger.WrapTransport("DeleteExpense", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return &ledger.NotFoundError{Kind: "expense", ID: id}
	}
	return nil
}

// ListExpensesByLedger returns one ledger's expenses in creation order.
func (s *Store) ListExpensesByLedger(ctx context.Context, ledgerID string) ([]*ledger.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryExpenses(ctx, `
		SELECT id, ledger_id, date, items_json, total, invoice_url, created_at
		FROM expenses WHERE ledger_id = ?
		ORDER BY created_at ASC`, ledgerID)
}

// ListExpensesInRange returns expenses dated in [from, to].
func (s *Store) ListExpensesInRange(ctx context.Context, from, to ledger.Date) ([]*ledger.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryExpenses(ctx, `
		SELECT id, ledger_id, date, items_json, total, invoice_url, created_at
		FROM expenses WHERE date >= ? AND date <= ?
		ORDER BY created_at ASC`, from.String(), to.String())
}

func (s *Store) queryExpenses(ctx context.Context, query string, args ...any) ([]*ledger.Expense, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, ledger.WrapTransport("ListExpenses", err)
	}
	defer rows.Close()

	var out []*ledger.Expense
	for rows.Next() {
		e, err := scanExpense(rows.Scan)
		if err != nil {
			return nil, ledger.WrapTransport("ListExpenses", err)
		}
		out = append(out, e)
	}
	return out, ledger.WrapTransport("ListExpenses", rows.Err())
}

func scanExpense(scan func(...any) error) (*ledger.Expense, error) {
	var (
		e          ledger.Expense
		date       string
		itemsJSON  string
		total      string
		invoiceURL sql.NullString
		createdAt  string
	)
	if err := scan(&e.ID, &e.LedgerID, &date, &itemsJSON, &total, &invoiceURL, &createdAt); err != nil {
		return nil, err
	}
	d, err := ledger.ParseDate(date)
	if err != nil {
		return nil, err
	}
	e.Date = d
	if err := json.Unmarshal([]byte(itemsJSON), &e.Items); err != nil {
		return nil, err
	}
	e.Total, err = decimal.NewFromString(total)
	if err != nil {
		return nil, err
	}
	e.InvoiceEvidenceURL = invoiceURL.String
	e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &e, nil
}

// =============================================================================
// CATALOG (catalog.Store)
// =============================================================================

// Products returns the full product list, ordered by name.
func (s *Store) Products(ctx context.Context) ([]catalog.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, price FROM products ORDER BY name ASC`)
	if err != nil {
		return nil, ledger.WrapTransport("Products", err)
	}
	defer rows.Close()

	var out []catalog.Product
	for rows.Next() {
		var p catalog.Product
		var price string
		if err := rows.Scan(&p.ID, &p.Name, &price); err != nil {
			return nil, ledger.WrapTransport("Products", err)
		}
		p.Price, err = decimal.NewFromString(price)
		if err != nil {
			return nil, ledger.WrapTransport("Products", err)
		}
		out = append(out, p)
	}
	return out, ledger.WrapTransport("Products", rows.Err())
}

// Staff returns the full roster.
func (s *Store) Staff(ctx context.Context) ([]catalog.Staff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, first_name, last_name, role FROM staff ORDER BY first_name ASC`)
	if err != nil {
		return nil, ledger.WrapTransport("Staff", err)
	}
	defer rows.Close()

	var out []catalog.Staff
	for rows.Next() {
		var st catalog.Staff
		if err := rows.Scan(&st.ID, &st.FirstName, &st.LastName, &st.Role); err != nil {
			return nil, ledger.WrapTransport("Staff", err)
		}
		out = append(out, st)
	}
	return out, ledger.WrapTransport("Staff", rows.Err())
}

// CreateProduct assigns the ID and inserts the product.
func (s *Store) CreateProduct(ctx context.Context, p *catalog.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, price, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Price.String(), now, now,
	)
	if isUniqueViolation(err) {
		return ledger.NewValidationError("name", "product %q already exists", p.Name)
	}
	return ledger.WrapTransport("CreateProduct", err)
}

// UpdateProduct overwrites name and price.
func (s *Store) UpdateProduct(ctx context.Context, p *catalog.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE products SET name = ?, price = ?, updated_at = ? WHERE id = ?`,
		p.Name, p.Price.String(), time.Now().Format(time.RFC3339), p.ID,
	)
	if err != nil {
		return ledger.WrapTransport("UpdateProduct", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return &ledger.NotFoundError{Kind: "product", ID: p.ID}
	}
	return nil
}

// DeleteProduct removes a product from the catalog. Prices already recorded
// on ledgers are untouched.
func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return ledger.WrapTransport("DeleteProduct", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return &ledger.NotFoundError{Kind: "product", ID: id}
	}
	return nil
}

// SeedStaff inserts roster entries, ignoring ones already present.
// Staff management is the user system's job; this exists for bootstrap.
func (s *Store) SeedStaff(ctx context.Context, staff []catalog.Staff) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().Format(time.RFC3339)
	for _, st := range staff {
		id := st.ID
		if id == "" {
			id = uuid.NewString()
		}
		_, err := s.db.ExecContext(ctx, `
			INSERT OR IGNORE INTO staff (id, first_name, last_name, role, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			id, st.FirstName, st.LastName, st.Role, now,
		)
		if err != nil {
			return ledger.WrapTransport("SeedStaff", err)
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
