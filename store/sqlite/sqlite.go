/*
Package sqlite backs the ledger and the directory with SQLite.

PURPOSE:
  One Store implements ledger.Store, ledger.Restorer and
  directory.Directory. The same schema and statement patterns carry to
  PostgreSQL with only dialect changes.

ATOMICITY:
  Every ledger mutation runs inside a single SQL transaction started by
  Mutate. A process-wide write mutex makes the store the single writer
  (mirroring SQLite's own one-writer rule); the station balance row also
  carries a version stamp checked at commit, so a writer that somehow
  raced reports ledger.ErrConflict instead of clobbering counters.

WAL MODE:
  The database is opened with WAL so dashboard reads never block behind
  the writer and always see fully-committed transitions.

KEY TABLES:
  transactions:     one row per fuel event, all monetary fields explicit
  invoices:         consolidated bills, member ids as a JSON array
  station_balances: the materialized counters, version-stamped
  organizations / stations / vehicles / users: the directory

USAGE:
  st, err := sqlite.New("./data/frotagov.db")
  ...
  svc := ledger.NewService(st, directory.LedgerView{Dir: st})

SEE ALSO:
  - ledger/store.go: the interface contracts
  - ledger/store/memory.go: in-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/frotagov/fuel-ledger/ledger"
)

// Store implements the ledger and directory persistence interfaces.
type Store struct {
	db *sql.DB
	mu sync.Mutex // single writer
}

// New opens (or creates) the database at dbPath. Use ":memory:" in tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent and matches
	// the one-writer model.
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
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		voucher_code TEXT NOT NULL UNIQUE,
		org_id TEXT NOT NULL,
		station_id TEXT NOT NULL,
		vehicle_id TEXT NOT NULL,
		driver_name TEXT NOT NULL,
		fuel_type TEXT NOT NULL,
		status TEXT NOT NULL,
		request_date TEXT NOT NULL,
		requested_liters TEXT NOT NULL,
		validation_date TEXT,
		filled_liters TEXT NOT NULL,
		price_per_liter TEXT NOT NULL,
		total_value TEXT NOT NULL,
		odometer INTEGER NOT NULL DEFAULT 0,
		invoice_id TEXT NOT NULL DEFAULT '',
		fee_percent TEXT NOT NULL,
		fee_amount TEXT NOT NULL,
		net_value TEXT NOT NULL,
		is_advanced INTEGER NOT NULL DEFAULT 0,
		payment_date TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_station_status
		ON transactions(station_id, status);
	CREATE INDEX IF NOT EXISTS idx_transactions_station_org_status
		ON transactions(station_id, org_id, status);
	CREATE INDEX IF NOT EXISTS idx_transactions_invoice
		ON transactions(invoice_id) WHERE invoice_id != '';

	CREATE TABLE IF NOT EXISTS invoices (
		id TEXT PRIMARY KEY,
		station_id TEXT NOT NULL,
		org_id TEXT NOT NULL,
		document_number TEXT NOT NULL,
		file_ref TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		is_advance INTEGER NOT NULL DEFAULT 0,
		issue_date TEXT NOT NULL,
		total_value TEXT NOT NULL,
		fee_amount TEXT NOT NULL,
		net_value TEXT NOT NULL,
		transaction_ids TEXT NOT NULL,
		attested_at TEXT,
		paid_at TEXT,
		reject_reason TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_invoices_station_status
		ON invoices(station_id, status);

	CREATE TABLE IF NOT EXISTS station_balances (
		station_id TEXT PRIMARY KEY,
		pending TEXT NOT NULL,
		invoiced TEXT NOT NULL,
		paid TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS organizations (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		tax_id TEXT NOT NULL,
		address TEXT NOT NULL DEFAULT '',
		contact_name TEXT NOT NULL DEFAULT '',
		balance_due TEXT NOT NULL,
		status TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS stations (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		tax_id TEXT NOT NULL,
		address TEXT NOT NULL DEFAULT '',
		contact_name TEXT NOT NULL DEFAULT '',
		base_fee_percent TEXT NOT NULL,
		advance_fee_percent TEXT NOT NULL,
		products_json TEXT NOT NULL DEFAULT '[]',
		status TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS vehicles (
		id TEXT PRIMARY KEY,
		org_id TEXT NOT NULL,
		plate TEXT NOT NULL,
		model TEXT NOT NULL DEFAULT '',
		department TEXT NOT NULL DEFAULT '',
		class TEXT NOT NULL,
		current_odometer INTEGER NOT NULL DEFAULT 0,
		avg_consumption TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_vehicles_org ON vehicles(org_id);

	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		username TEXT NOT NULL UNIQUE COLLATE NOCASE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL,
		org_id TEXT NOT NULL DEFAULT '',
		station_id TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// LEDGER READS
// =============================================================================

const txColumns = `id, voucher_code, org_id, station_id, vehicle_id, driver_name,
	fuel_type, status, request_date, requested_liters, validation_date,
	filled_liters, price_per_liter, total_value, odometer, invoice_id,
	fee_percent, fee_amount, net_value, is_advanced, payment_date`

func (s *Store) GetTransaction(ctx context.Context, id string) (*ledger.Transaction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE id = ?`, id)
	return scanTransaction(row)
}

func (s *Store) ListTransactions(ctx context.Context, f ledger.TransactionFilter) ([]ledger.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions`
	where, args := transactionWhere(f)
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY request_date, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ledger.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *tx)
	}
	return result, rows.Err()
}

func transactionWhere(f ledger.TransactionFilter) (string, []any) {
	var clauses []string
	var args []any
	if f.StationID != "" {
		clauses = append(clauses, "station_id = ?")
		args = append(args, f.StationID)
	}
	if f.OrgID != "" {
		clauses = append(clauses, "org_id = ?")
		args = append(args, f.OrgID)
	}
	if f.VehicleID != "" {
		clauses = append(clauses, "vehicle_id = ?")
		args = append(args, f.VehicleID)
	}
	if f.InvoiceID != "" {
		clauses = append(clauses, "invoice_id = ?")
		args = append(args, f.InvoiceID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(f.Status))
	}
	return strings.Join(clauses, " AND "), args
}

const invColumns = `id, station_id, org_id, document_number, file_ref, status,
	is_advance, issue_date, total_value, fee_amount, net_value,
	transaction_ids, attested_at, paid_at, reject_reason`

func (s *Store) GetInvoice(ctx context.Context, id string) (*ledger.Invoice, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+invColumns+` FROM invoices WHERE id = ?`, id)
	return scanInvoice(row)
}

func (s *Store) ListInvoices(ctx context.Context, f ledger.InvoiceFilter) ([]ledger.Invoice, error) {
	query := `SELECT ` + invColumns + ` FROM invoices`
	var clauses []string
	var args []any
	if f.StationID != "" {
		clauses = append(clauses, "station_id = ?")
		args = append(args, f.StationID)
	}
	if f.OrgID != "" {
		clauses = append(clauses, "org_id = ?")
		args = append(args, f.OrgID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(f.Status))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY issue_date, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ledger.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *inv)
	}
	return result, rows.Err()
}

func (s *Store) StationBalance(ctx context.Context, stationID string) (ledger.StationBalance, error) {
	return balanceQuery(ctx, s.db, stationID)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func balanceQuery(ctx context.Context, q queryer, stationID string) (ledger.StationBalance, error) {
	var pending, invoiced, paid string
	var version int64
	err := q.QueryRowContext(ctx,
		`SELECT pending, invoiced, paid, version FROM station_balances WHERE station_id = ?`,
		stationID).Scan(&pending, &invoiced, &paid, &version)
	if err == sql.ErrNoRows {
		return ledger.StationBalance{
			StationID: stationID,
			Pending:   decimal.Zero,
			Invoiced:  decimal.Zero,
			Paid:      decimal.Zero,
		}, nil
	}
	if err != nil {
		return ledger.StationBalance{}, err
	}
	return ledger.StationBalance{
		StationID: stationID,
		Pending:   mustDecimal(pending),
		Invoiced:  mustDecimal(invoiced),
		Paid:      mustDecimal(paid),
		Version:   version,
	}, nil
}

func (s *Store) VoucherExists(ctx context.Context, code string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM transactions WHERE voucher_code = ?`, code).Scan(&n)
	return n > 0, err
}

// =============================================================================
// MUTATE
// =============================================================================

// Mutate runs fn inside one SQL transaction under the store's write lock.
func (s *Store) Mutate(ctx context.Context, stationID string, fn func(ledger.MutationView) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	view := &sqlView{ctx: ctx, tx: tx, stationID: stationID}
	if err := fn(view); err != nil {
		tx.Rollback()
		return err
	}
	if err := view.commitBalance(); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ledger.ErrConflict, err)
	}
	return nil
}

type sqlView struct {
	ctx       context.Context
	tx        *sql.Tx
	stationID string

	balance       *ledger.StationBalance
	balanceLoaded int64 // version seen when first read
	balanceDirty  bool
}

func (v *sqlView) GetTransaction(id string) (*ledger.Transaction, error) {
	row := v.tx.QueryRowContext(v.ctx,
		`SELECT `+txColumns+` FROM transactions WHERE id = ?`, id)
	return scanTransaction(row)
}

func (v *sqlView) GetInvoice(id string) (*ledger.Invoice, error) {
	row := v.tx.QueryRowContext(v.ctx,
		`SELECT `+invColumns+` FROM invoices WHERE id = ?`, id)
	return scanInvoice(row)
}

func (v *sqlView) ValidatedTransactions(stationID, orgID string) ([]ledger.Transaction, error) {
	rows, err := v.tx.QueryContext(v.ctx,
		`SELECT `+txColumns+` FROM transactions
		 WHERE station_id = ? AND org_id = ? AND status = ?
		 ORDER BY request_date, id`,
		stationID, orgID, string(ledger.StatusValidated))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ledger.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *tx)
	}
	return result, rows.Err()
}

func (v *sqlView) PutTransaction(t ledger.Transaction) error {
	_, err := v.tx.ExecContext(v.ctx, `
		INSERT INTO transactions (`+txColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			validation_date = excluded.validation_date,
			filled_liters = excluded.filled_liters,
			price_per_liter = excluded.price_per_liter,
			total_value = excluded.total_value,
			odometer = excluded.odometer,
			invoice_id = excluded.invoice_id,
			fee_percent = excluded.fee_percent,
			fee_amount = excluded.fee_amount,
			net_value = excluded.net_value,
			is_advanced = excluded.is_advanced,
			payment_date = excluded.payment_date`,
		t.ID, t.VoucherCode, t.OrgID, t.StationID, t.VehicleID, t.DriverName,
		string(t.FuelType), string(t.Status), formatTime(t.RequestDate),
		t.RequestedLiters.String(), formatTimePtr(t.ValidationDate),
		t.FilledLiters.String(), t.PricePerLiter.String(), t.TotalValue.String(),
		t.Odometer, t.InvoiceID, t.FeePercentageApplied.String(),
		t.FeeAmount.String(), t.NetValue.String(), boolToInt(t.IsAdvanced),
		formatTimePtr(t.PaymentDate))
	if err != nil && strings.Contains(err.Error(), "UNIQUE") {
		return fmt.Errorf("%w: %v", ledger.ErrConflict, err)
	}
	return err
}

func (v *sqlView) PutInvoice(inv ledger.Invoice) error {
	memberJSON, err := json.Marshal(inv.TransactionIDs)
	if err != nil {
		return err
	}
	_, err = v.tx.ExecContext(v.ctx, `
		INSERT INTO invoices (`+invColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			attested_at = excluded.attested_at,
			paid_at = excluded.paid_at,
			reject_reason = excluded.reject_reason`,
		inv.ID, inv.StationID, inv.OrgID, inv.DocumentNumber, inv.FileRef,
		string(inv.Status), boolToInt(inv.IsAdvance), formatTime(inv.IssueDate),
		inv.TotalValue.String(), inv.FeeAmount.String(), inv.NetValue.String(),
		string(memberJSON), formatTimePtr(inv.AttestedAt),
		formatTimePtr(inv.PaidAt), inv.RejectReason)
	return err
}

func (v *sqlView) Balance() (ledger.StationBalance, error) {
	if v.balance != nil {
		return *v.balance, nil
	}
	b, err := balanceQuery(v.ctx, v.tx, v.stationID)
	if err != nil {
		return ledger.StationBalance{}, err
	}
	v.balance = &b
	v.balanceLoaded = b.Version
	return b, nil
}

func (v *sqlView) PutBalance(b ledger.StationBalance) error {
	b.StationID = v.stationID
	v.balance = &b
	v.balanceDirty = true
	return nil
}

// commitBalance writes the counters with a compare-and-swap on the version
// stamp. Zero rows affected means the row is new; a duplicate insert after
// that means another writer got there first.
func (v *sqlView) commitBalance() error {
	if !v.balanceDirty {
		return nil
	}
	b := v.balance
	res, err := v.tx.ExecContext(v.ctx, `
		UPDATE station_balances
		SET pending = ?, invoiced = ?, paid = ?, version = version + 1
		WHERE station_id = ? AND version = ?`,
		b.Pending.String(), b.Invoiced.String(), b.Paid.String(),
		v.stationID, v.balanceLoaded)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		_, err := v.tx.ExecContext(v.ctx, `
			INSERT INTO station_balances (station_id, pending, invoiced, paid, version)
			VALUES (?, ?, ?, ?, 1)`,
			v.stationID, b.Pending.String(), b.Invoiced.String(), b.Paid.String())
		if err != nil {
			if strings.Contains(err.Error(), "UNIQUE") || strings.Contains(err.Error(), "PRIMARY") {
				return fmt.Errorf("station %s: %w", v.stationID, ledger.ErrConflict)
			}
			return err
		}
	}
	return nil
}

// =============================================================================
// RESTORE
// =============================================================================

// Restore replaces all ledger state wholesale, as backup import requires.
// Counters are written exactly as given, never re-derived.
func (s *Store) Restore(ctx context.Context, txs []ledger.Transaction, invoices []ledger.Invoice, balances []ledger.StationBalance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer dbtx.Rollback()

	for _, table := range []string{"transactions", "invoices", "station_balances"} {
		if _, err := dbtx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}

	view := &sqlView{ctx: ctx, tx: dbtx}
	for _, t := range txs {
		if err := view.PutTransaction(t); err != nil {
			return err
		}
	}
	for _, inv := range invoices {
		if err := view.PutInvoice(inv); err != nil {
			return err
		}
	}
	for _, b := range balances {
		if _, err := dbtx.ExecContext(ctx, `
			INSERT INTO station_balances (station_id, pending, invoiced, paid, version)
			VALUES (?, ?, ?, ?, ?)`,
			b.StationID, b.Pending.String(), b.Invoiced.String(), b.Paid.String(), b.Version); err != nil {
			return err
		}
	}
	return dbtx.Commit()
}

// =============================================================================
// ROW SCANNING
// =============================================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*ledger.Transaction, error) {
	var t ledger.Transaction
	var fuelType, status, requestDate string
	var requestedLiters, filledLiters, pricePerLiter, totalValue string
	var feePercent, feeAmount, netValue string
	var validationDate, paymentDate sql.NullString
	var isAdvanced int

	err := row.Scan(&t.ID, &t.VoucherCode, &t.OrgID, &t.StationID, &t.VehicleID,
		&t.DriverName, &fuelType, &status, &requestDate, &requestedLiters,
		&validationDate, &filledLiters, &pricePerLiter, &totalValue,
		&t.Odometer, &t.InvoiceID, &feePercent, &feeAmount, &netValue,
		&isAdvanced, &paymentDate)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	t.FuelType = ledger.FuelType(fuelType)
	t.Status = ledger.TransactionStatus(status)
	t.RequestDate = parseTime(requestDate)
	t.RequestedLiters = mustDecimal(requestedLiters)
	t.ValidationDate = parseTimePtr(validationDate)
	t.FilledLiters = mustDecimal(filledLiters)
	t.PricePerLiter = mustDecimal(pricePerLiter)
	t.TotalValue = mustDecimal(totalValue)
	t.FeePercentageApplied = mustDecimal(feePercent)
	t.FeeAmount = mustDecimal(feeAmount)
	t.NetValue = mustDecimal(netValue)
	t.IsAdvanced = isAdvanced != 0
	t.PaymentDate = parseTimePtr(paymentDate)
	return &t, nil
}

func scanInvoice(row rowScanner) (*ledger.Invoice, error) {
	var inv ledger.Invoice
	var status, issueDate, totalValue, feeAmount, netValue, memberJSON string
	var attestedAt, paidAt sql.NullString
	var isAdvance int

	err := row.Scan(&inv.ID, &inv.StationID, &inv.OrgID, &inv.DocumentNumber,
		&inv.FileRef, &status, &isAdvance, &issueDate, &totalValue, &feeAmount,
		&netValue, &memberJSON, &attestedAt, &paidAt, &inv.RejectReason)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	inv.Status = ledger.InvoiceStatus(status)
	inv.IsAdvance = isAdvance != 0
	inv.IssueDate = parseTime(issueDate)
	inv.TotalValue = mustDecimal(totalValue)
	inv.FeeAmount = mustDecimal(feeAmount)
	inv.NetValue = mustDecimal(netValue)
	if err := json.Unmarshal([]byte(memberJSON), &inv.TransactionIDs); err != nil {
		return nil, fmt.Errorf("invoice %s member list: %w", inv.ID, err)
	}
	inv.AttestedAt = parseTimePtr(attestedAt)
	inv.PaidAt = parseTimePtr(paidAt)
	return &inv, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseTimePtr(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t := parseTime(ns.String)
	return &t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
