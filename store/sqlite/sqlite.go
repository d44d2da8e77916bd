/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements engine.Store (the read side the report service uses) plus
  the writes the demo scenario loader needs. The same SQL runs on
  PostgreSQL with minor dialect changes.

KEY TABLES:
  organizations:     Fiscal settings
  accounts:          Ledgers with opening balances
  categories:        Two-level taxonomy (parent_id NULL = root)
  transactions:      Dated income/expense with status and cleared_at
  line_items:        Category splits of a transaction
  budgets:           Dated plans
  budget_line_items: Per-category planned amounts

STORAGE FORMATS:
  Money:      TEXT decimal strings (exact, no float rounding)
  Dates:      TEXT YYYY-MM-DD
  Timestamps: TEXT fixed-width UTC (lexical order = chronological order)

LEDGER ORDER:
  ListTransactions returns rows ordered by transaction_date, created_at,
  id - the order the running-balance calculator expects.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

MIGRATION:
  Versioned migrations are embedded (migrations/*.sql) and applied with
  golang-migrate on New().

USAGE:
  store, err := sqlite.New("./data/fundbooks.db")
  if err != nil {
      log.Fatal().Err(err).Msg("open store")
  }
  defer store.Close()

SEE ALSO:
  - engine/store.go: Interface definition
  - engine/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/fundbooks/engine"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store implements engine.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: an in-memory database is private to its connection.
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

// migrate applies the embedded migrations.
func (s *Store) migrate() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}
	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite3 driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	// m.Close() would also close s.db through the driver.
	return src.Close()
}

// Reset deletes all data (for demo scenarios).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{
		"budget_line_items", "budgets", "line_items", "transactions",
		"accounts", "categories", "organizations",
	}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// =============================================================================
// ORGANIZATIONS
// =============================================================================

func (s *Store) SaveOrganization(ctx context.Context, org engine.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO organizations (id, name, fiscal_year_start_month)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			fiscal_year_start_month = excluded.fiscal_year_start_month
	`, org.ID, org.Name, org.FiscalYearStartMonth)
	if err != nil {
		return fmt.Errorf("failed to save organization: %w", err)
	}
	return nil
}

func (s *Store) GetOrganization(ctx context.Context, orgID engine.OrganizationID) (*engine.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var org engine.Organization
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, fiscal_year_start_month FROM organizations WHERE id = ?", orgID,
	).Scan(&org.ID, &org.Name, &org.FiscalYearStartMonth)
	if err == sql.ErrNoRows {
		return nil, &engine.NotFoundError{Kind: "organization", ID: string(orgID)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return &org, nil
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func (s *Store) SaveAccount(ctx context.Context, a engine.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, organization_id, name, account_type, opening_balance)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			account_type = excluded.account_type,
			opening_balance = excluded.opening_balance
	`, a.ID, a.OrganizationID, a.Name, a.AccountType, a.OpeningBalance.String())
	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

func (s *Store) ListAccounts(ctx context.Context, orgID engine.OrganizationID) ([]engine.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, organization_id, name, account_type, opening_balance
		FROM accounts WHERE organization_id = ?
		ORDER BY name ASC, id ASC
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []engine.Account
	for rows.Next() {
		var a engine.Account
		if err := rows.Scan(&a.ID, &a.OrganizationID, &a.Name, &a.AccountType, &a.OpeningBalance); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (s *Store) GetAccount(ctx context.Context, orgID engine.OrganizationID, accountID engine.AccountID) (*engine.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var a engine.Account
	err := s.db.QueryRowContext(ctx, `
		SELECT id, organization_id, name, account_type, opening_balance
		FROM accounts WHERE organization_id = ? AND id = ?
	`, orgID, accountID).Scan(&a.ID, &a.OrganizationID, &a.Name, &a.AccountType, &a.OpeningBalance)
	if err == sql.ErrNoRows {
		return nil, &engine.NotFoundError{Kind: "account", ID: string(accountID)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &a, nil
}

// =============================================================================
// CATEGORIES
// =============================================================================

func (s *Store) SaveCategory(ctx context.Context, orgID engine.OrganizationID, c engine.CategoryRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var parent sql.NullString
	if c.ParentID != nil {
		parent = nullString(string(*c.ParentID))
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (id, organization_id, name, category_type, parent_id, is_active, position)
		VALUES (?, ?, ?, ?, ?, ?, (SELECT COUNT(*) FROM categories WHERE organization_id = ?))
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			category_type = excluded.category_type,
			parent_id = excluded.parent_id,
			is_active = excluded.is_active
	`, c.ID, orgID, c.Name, c.Type, parent, c.IsActive, orgID)
	if err != nil {
		return fmt.Errorf("failed to save category: %w", err)
	}
	return nil
}

// ListCategories returns categories in insertion order.
func (s *Store) ListCategories(ctx context.Context, orgID engine.OrganizationID) ([]engine.CategoryRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, category_type, parent_id, is_active
		FROM categories WHERE organization_id = ?
		ORDER BY position ASC, id ASC
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var cats []engine.CategoryRow
	for rows.Next() {
		var (
			c      engine.CategoryRow
			parent sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.Type, &parent, &c.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		if parent.Valid {
			id := engine.CategoryID(parent.String)
			c.ParentID = &id
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// SaveTransaction upserts a transaction and replaces its line items atomically.
func (s *Store) SaveTransaction(ctx context.Context, tx engine.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := saveTransaction(ctx, sqlTx, tx); err != nil {
		return err
	}
	return sqlTx.Commit()
}

func saveTransaction(ctx context.Context, db execer, tx engine.Transaction) error {
	createdAt := tx.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	var clearedAt sql.NullString
	if tx.ClearedAt != nil {
		clearedAt = nullString(formatTime(*tx.ClearedAt))
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO transactions
		(id, organization_id, account_id, description, transaction_date, created_at,
		 amount, transaction_type, status, cleared_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			account_id = excluded.account_id,
			description = excluded.description,
			transaction_date = excluded.transaction_date,
			amount = excluded.amount,
			transaction_type = excluded.transaction_type,
			status = excluded.status,
			cleared_at = excluded.cleared_at
	`,
		tx.ID,
		tx.OrganizationID,
		tx.AccountID,
		tx.Description,
		tx.TransactionDate.String(),
		formatTime(createdAt),
		tx.Amount.String(),
		tx.Type,
		tx.Status,
		clearedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save transaction: %w", err)
	}

	if _, err := db.ExecContext(ctx, "DELETE FROM line_items WHERE transaction_id = ?", tx.ID); err != nil {
		return fmt.Errorf("failed to clear line items: %w", err)
	}
	for i, li := range tx.LineItems {
		_, err := db.ExecContext(ctx, `
			INSERT INTO line_items (transaction_id, position, category_id, amount, memo)
			VALUES (?, ?, ?, ?, ?)
		`, tx.ID, i, li.CategoryID, li.Amount.String(), li.Memo)
		if err != nil {
			return fmt.Errorf("failed to save line item: %w", err)
		}
	}
	return nil
}

// ListTransactions returns matching transactions in ledger order with
// their line items.
func (s *Store) ListTransactions(ctx context.Context, orgID engine.OrganizationID, filter engine.TransactionFilter) ([]engine.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	where, args := filterClause(orgID, filter)

	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.organization_id, t.account_id, t.description, t.transaction_date,
		       t.created_at, t.amount, t.transaction_type, t.status, t.cleared_at
		FROM transactions t
		WHERE `+where+`
		ORDER BY t.transaction_date ASC, t.created_at ASC, t.id ASC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var (
		txns  []engine.Transaction
		index = make(map[engine.TransactionID]int)
	)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		index[tx.ID] = len(txns)
		txns = append(txns, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(txns) == 0 {
		return txns, nil
	}

	liRows, err := s.db.QueryContext(ctx, `
		SELECT li.transaction_id, li.category_id, li.amount, li.memo
		FROM line_items li
		JOIN transactions t ON t.id = li.transaction_id
		WHERE `+where+`
		ORDER BY li.transaction_id ASC, li.position ASC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query line items: %w", err)
	}
	defer liRows.Close()

	for liRows.Next() {
		var li engine.LineItem
		if err := liRows.Scan(&li.TransactionID, &li.CategoryID, &li.Amount, &li.Memo); err != nil {
			return nil, fmt.Errorf("failed to scan line item: %w", err)
		}
		if i, ok := index[li.TransactionID]; ok {
			txns[i].LineItems = append(txns[i].LineItems, li)
		}
	}
	return txns, liRows.Err()
}

// filterClause renders a TransactionFilter against alias t.
func filterClause(orgID engine.OrganizationID, f engine.TransactionFilter) (string, []any) {
	clauses := []string{"t.organization_id = ?"}
	args := []any{orgID}

	if f.AccountID != "" {
		clauses = append(clauses, "t.account_id = ?")
		args = append(args, f.AccountID)
	}
	if !f.From.IsZero() {
		clauses = append(clauses, "t.transaction_date >= ?")
		args = append(args, f.From.String())
	}
	if !f.To.IsZero() {
		clauses = append(clauses, "t.transaction_date <= ?")
		args = append(args, f.To.String())
	}
	if f.Type != "" {
		clauses = append(clauses, "t.transaction_type = ?")
		args = append(args, f.Type)
	}
	if len(f.Statuses) > 0 {
		marks := make([]string, len(f.Statuses))
		for i, st := range f.Statuses {
			marks[i] = "?"
			args = append(args, st)
		}
		clauses = append(clauses, "t.status IN ("+strings.Join(marks, ", ")+")")
	}
	return strings.Join(clauses, " AND "), args
}

func scanTransaction(rows *sql.Rows) (engine.Transaction, error) {
	var (
		tx        engine.Transaction
		createdAt string
		clearedAt sql.NullString
	)

	err := rows.Scan(
		&tx.ID, &tx.OrganizationID, &tx.AccountID, &tx.Description, &tx.TransactionDate,
		&createdAt, &tx.Amount, &tx.Type, &tx.Status, &clearedAt,
	)
	if err != nil {
		return tx, fmt.Errorf("failed to scan transaction: %w", err)
	}

	tx.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return tx, fmt.Errorf("transaction %s: bad created_at: %w", tx.ID, err)
	}
	if clearedAt.Valid {
		t, err := parseTime(clearedAt.String)
		if err != nil {
			return tx, fmt.Errorf("transaction %s: bad cleared_at: %w", tx.ID, err)
		}
		tx.ClearedAt = &t
	}
	return tx, nil
}

// =============================================================================
// BUDGETS
// =============================================================================

// SaveBudget upserts a budget and replaces its line items atomically.
func (s *Store) SaveBudget(ctx context.Context, b engine.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	_, err = sqlTx.ExecContext(ctx, `
		INSERT INTO budgets (id, organization_id, name, start_date, end_date, status)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			status = excluded.status
	`, b.ID, b.OrganizationID, b.Name, b.StartDate.String(), b.EndDate.String(), b.Status)
	if err != nil {
		return fmt.Errorf("failed to save budget: %w", err)
	}

	if _, err := sqlTx.ExecContext(ctx, "DELETE FROM budget_line_items WHERE budget_id = ?", b.ID); err != nil {
		return fmt.Errorf("failed to clear budget lines: %w", err)
	}
	for i, li := range b.LineItems {
		_, err := sqlTx.ExecContext(ctx, `
			INSERT INTO budget_line_items (budget_id, position, category_id, amount, notes)
			VALUES (?, ?, ?, ?, ?)
		`, b.ID, i, li.CategoryID, li.Amount.String(), li.Notes)
		if err != nil {
			return fmt.Errorf("failed to save budget line: %w", err)
		}
	}
	return sqlTx.Commit()
}

func (s *Store) GetBudget(ctx context.Context, orgID engine.OrganizationID, budgetID engine.BudgetID) (*engine.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var b engine.Budget
	err := s.db.QueryRowContext(ctx, `
		SELECT id, organization_id, name, start_date, end_date, status
		FROM budgets WHERE organization_id = ? AND id = ?
	`, orgID, budgetID).Scan(&b.ID, &b.OrganizationID, &b.Name, &b.StartDate, &b.EndDate, &b.Status)
	if err == sql.ErrNoRows {
		return nil, &engine.NotFoundError{Kind: "budget", ID: string(budgetID)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get budget: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT category_id, amount, notes FROM budget_line_items
		WHERE budget_id = ? ORDER BY position ASC
	`, budgetID)
	if err != nil {
		return nil, fmt.Errorf("failed to query budget lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var li engine.BudgetLineItem
		if err := rows.Scan(&li.CategoryID, &li.Amount, &li.Notes); err != nil {
			return nil, fmt.Errorf("failed to scan budget line: %w", err)
		}
		b.LineItems = append(b.LineItems, li)
	}
	return &b, rows.Err()
}

func (s *Store) ListBudgets(ctx context.Context, orgID engine.OrganizationID) ([]engine.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, organization_id, name, start_date, end_date, status
		FROM budgets WHERE organization_id = ?
		ORDER BY start_date DESC, name ASC
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list budgets: %w", err)
	}
	defer rows.Close()

	var budgets []engine.Budget
	for rows.Next() {
		var b engine.Budget
		if err := rows.Scan(&b.ID, &b.OrganizationID, &b.Name, &b.StartDate, &b.EndDate, &b.Status); err != nil {
			return nil, fmt.Errorf("failed to scan budget: %w", err)
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(timeLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

// compile-time check
var _ engine.Store = (*Store)(nil)
