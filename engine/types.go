/*
Package engine provides the financial reporting and reconciliation engine.

PURPOSE:
  This package turns already-fetched bookkeeping records (transactions,
  categories, budgets) into balances, fiscal-period ranges and
  budget-vs-actual reports. It owns no data: every function reads an
  immutable snapshot and returns a freshly built aggregate.

KEY CONCEPTS IN THIS FILE (types.go):
  - Transaction: A dated income or expense with a reconciliation status
  - LineItem: The categorized split of a transaction's amount
  - Account: A ledger with an opening balance
  - Budget: A dated plan of per-category amounts

DESIGN PRINCIPLES:
  1. Purity: No I/O, no shared state. Safe to call in parallel on
     independent snapshots.
  2. Precision: Uses decimal.Decimal to avoid floating-point errors
  3. Totality: Unknown ids, empty inputs and zero budgets produce default
     values, never panics.
  4. Type Safety: Strong typing for IDs prevents mixing account/category IDs

USAGE:
  idx, err := engine.NewCategoryIndex(categories)
  summary := engine.ComputeSummary(idx.LabelTransactions(txns), idx)

SEE ALSO:
  - period.go: Fiscal period resolver
  - category.go: Category taxonomy, labels and rollup
  - balance.go: Running balances and status buckets
  - budget.go: Budget variance and combined lines
  - summary.go: Report summary aggregation
*/
package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type OrganizationID string
type AccountID string
type CategoryID string
type TransactionID string
type BudgetID string

// =============================================================================
// ENUMS
// =============================================================================

// TransactionType is shared by transactions and categories.
type TransactionType string

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

func (t TransactionType) Valid() bool { return t == Income || t == Expense }

// Status is the settlement state of a transaction.
//
//	uncleared → cleared ⇄ uncleared
//	uncleared → reconciled, cleared → reconciled (terminal)
type Status string

const (
	StatusUncleared  Status = "uncleared"
	StatusCleared    Status = "cleared"
	StatusReconciled Status = "reconciled"
)

func (s Status) Valid() bool {
	return s == StatusUncleared || s == StatusCleared || s == StatusReconciled
}

// Settled reports whether the transaction has cleared the bank.
func (s Status) Settled() bool { return s == StatusCleared || s == StatusReconciled }

type BudgetStatus string

const (
	BudgetDraft  BudgetStatus = "draft"
	BudgetActive BudgetStatus = "active"
	BudgetClosed BudgetStatus = "closed"
)

// =============================================================================
// RECORDS - Inputs to the engine, never mutated by it
// =============================================================================

// Organization carries the settings the engine needs.
type Organization struct {
	ID                   OrganizationID
	Name                 string
	FiscalYearStartMonth int
}

type Account struct {
	ID             AccountID
	OrganizationID OrganizationID
	Name           string
	AccountType    string
	OpeningBalance decimal.Decimal
}

// LineItem splits a transaction across categories. The amounts of a
// transaction's line items sum to its Amount within 0.01.
type LineItem struct {
	TransactionID TransactionID
	CategoryID    CategoryID
	Amount        decimal.Decimal
	Memo          string
}

// LineItemsTotal sums the amounts of a transaction's line items.
func LineItemsTotal(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, li := range items {
		total = total.Add(li.Amount)
	}
	return total
}

type Transaction struct {
	ID              TransactionID
	OrganizationID  OrganizationID
	AccountID       AccountID
	Description     string
	TransactionDate Date
	CreatedAt       time.Time // tiebreak within a day
	Amount          decimal.Decimal
	Type            TransactionType
	Status          Status
	ClearedAt       *time.Time // set iff Status is cleared or reconciled
	LineItems       []LineItem
}

// Signed returns +Amount for income and -Amount for expense.
func (tx Transaction) Signed() decimal.Decimal {
	if tx.Type == Expense {
		return tx.Amount.Neg()
	}
	return tx.Amount
}

// Key returns the ledger sort key of the transaction.
func (tx Transaction) Key() SortKey {
	return SortKey{Date: tx.TransactionDate, CreatedAt: tx.CreatedAt, ID: tx.ID}
}

type BudgetLineItem struct {
	CategoryID CategoryID
	Amount     decimal.Decimal
	Notes      string
}

type Budget struct {
	ID             BudgetID
	OrganizationID OrganizationID
	Name           string
	StartDate      Date
	EndDate        Date
	Status         BudgetStatus
	LineItems      []BudgetLineItem
}

// Range returns the budget's inclusive date range.
func (b Budget) Range() DateRange {
	return DateRange{Start: b.StartDate, End: b.EndDate, Label: b.Name}
}

// =============================================================================
// SORT KEY - Ledger order is (date, created_at, id)
// =============================================================================

type SortKey struct {
	Date      Date
	CreatedAt time.Time
	ID        TransactionID
}

// Less orders keys by date, then creation time, then id so equal
// timestamps still give a total order.
func (k SortKey) Less(other SortKey) bool {
	if c := k.Date.Compare(other.Date); c != 0 {
		return c < 0
	}
	if !k.CreatedAt.Equal(other.CreatedAt) {
		return k.CreatedAt.Before(other.CreatedAt)
	}
	return k.ID < other.ID
}
