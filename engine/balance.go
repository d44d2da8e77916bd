/*
balance.go - Running balances, status buckets and point-in-time balances

PURPOSE:
  Computes account balances from an ordered transaction sequence. This is
  the calculation behind the account register, the dashboard and the
  reconciliation screen.

KEY INSIGHT:
  Every balance is opening_balance plus a fold of signed amounts
  (+income, -expense). What changes between views is WHICH transactions
  are folded:

  Register page:   matching transactions sorted before the page
  Period start:    settled transactions cleared before the period
  Reconciliation:  settled transactions cleared by the statement date

ORDERING:
  The calculator never sorts. Callers pass transactions already ordered
  by (transaction_date, created_at). SortLedger is provided for callers
  that hold an unordered snapshot.

PAGINATION:
  A page that does not start at the top of the ledger needs the balance
  just before its first row. That balance must be computed with the SAME
  filters as the page; the lifetime account balance would make the
  running column disagree with the visible rows.

  start(N+1) = start(N) + Σ signed(page N)

SEE ALSO:
  - summary.go: Uses StatusBucketedNet for report totals
  - report/service.go: Register and reconciliation orchestration
*/
package engine

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STATUS BUCKETS
// =============================================================================

// StatusNet is the signed net of transactions per settlement status.
type StatusNet struct {
	Uncleared  decimal.Decimal `json:"uncleared"`
	Cleared    decimal.Decimal `json:"cleared"`
	Reconciled decimal.Decimal `json:"reconciled"`
}

// Total returns the sum of all three buckets.
func (s StatusNet) Total() decimal.Decimal {
	return s.Uncleared.Add(s.Cleared).Add(s.Reconciled)
}

// Settled returns cleared + reconciled.
func (s StatusNet) Settled() decimal.Decimal {
	return s.Cleared.Add(s.Reconciled)
}

// Add combines two bucket sets, e.g. across accounts.
func (s StatusNet) Add(o StatusNet) StatusNet {
	return StatusNet{
		Uncleared:  s.Uncleared.Add(o.Uncleared),
		Cleared:    s.Cleared.Add(o.Cleared),
		Reconciled: s.Reconciled.Add(o.Reconciled),
	}
}

// StatusBucketedNet adds each transaction's signed amount to the bucket of
// its status. Transactions with any other status are ignored.
func StatusBucketedNet(txns []Transaction) StatusNet {
	var net StatusNet
	for _, tx := range txns {
		switch tx.Status {
		case StatusUncleared:
			net.Uncleared = net.Uncleared.Add(tx.Signed())
		case StatusCleared:
			net.Cleared = net.Cleared.Add(tx.Signed())
		case StatusReconciled:
			net.Reconciled = net.Reconciled.Add(tx.Signed())
		}
	}
	return net
}

// =============================================================================
// RUNNING BALANCES
// =============================================================================

// RunningBalanceMap maps a transaction id to the balance after it.
type RunningBalanceMap map[TransactionID]decimal.Decimal

// RunningBalances folds ordered transactions left to right starting at
// start and records the balance after each one.
func RunningBalances(start decimal.Decimal, ordered []Transaction) RunningBalanceMap {
	balances := make(RunningBalanceMap, len(ordered))
	balance := start
	for _, tx := range ordered {
		balance = balance.Add(tx.Signed())
		balances[tx.ID] = balance
	}
	return balances
}

// NetChange returns Σ signed amounts.
func NetChange(txns []Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txns {
		total = total.Add(tx.Signed())
	}
	return total
}

// SortLedger orders transactions by (date, created_at, id) in place.
func SortLedger(txns []Transaction) {
	sort.SliceStable(txns, func(i, j int) bool {
		return txns[i].Key().Less(txns[j].Key())
	})
}

// =============================================================================
// FILTERS & PAGINATION
// =============================================================================

// TransactionFilter selects the transactions a view shows. Zero values
// mean "no restriction".
type TransactionFilter struct {
	AccountID AccountID
	From      Date
	To        Date
	Statuses  []Status
	Type      TransactionType
}

// Matches reports whether tx passes every active filter.
func (f TransactionFilter) Matches(tx Transaction) bool {
	if f.AccountID != "" && tx.AccountID != f.AccountID {
		return false
	}
	if !f.From.IsZero() && tx.TransactionDate.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && tx.TransactionDate.After(f.To) {
		return false
	}
	if f.Type != "" && tx.Type != f.Type {
		return false
	}
	if len(f.Statuses) > 0 {
		for _, s := range f.Statuses {
			if tx.Status == s {
				return true
			}
		}
		return false
	}
	return true
}

// Apply returns the matching transactions, preserving order.
func (f TransactionFilter) Apply(txns []Transaction) []Transaction {
	out := make([]Transaction, 0, len(txns))
	for _, tx := range txns {
		if f.Matches(tx) {
			out = append(out, tx)
		}
	}
	return out
}

// PageStartingBalance is the balance just before a page whose first row
// has key first: opening plus every transaction matching filter that
// sorts before first.
func PageStartingBalance(opening decimal.Decimal, txns []Transaction, filter TransactionFilter, first SortKey) decimal.Decimal {
	balance := opening
	for _, tx := range txns {
		if filter.Matches(tx) && tx.Key().Less(first) {
			balance = balance.Add(tx.Signed())
		}
	}
	return balance
}

// LedgerPage is one page of a filtered, ordered register.
type LedgerPage struct {
	Number          int
	StartingBalance decimal.Decimal
	EndingBalance   decimal.Decimal
	Transactions    []Transaction
	Balances        RunningBalanceMap
}

// Paginate splits an ordered register into pages of size rows (page
// numbers start at 1). Each page's starting balance equals the previous
// page's ending balance.
func Paginate(opening decimal.Decimal, ordered []Transaction, size int) []LedgerPage {
	if size <= 0 {
		size = len(ordered)
	}
	var pages []LedgerPage
	balance := opening
	for i := 0; i < len(ordered); i += size {
		end := i + size
		if end > len(ordered) {
			end = len(ordered)
		}
		rows := ordered[i:end]
		balances := RunningBalances(balance, rows)
		page := LedgerPage{
			Number:          len(pages) + 1,
			StartingBalance: balance,
			EndingBalance:   balance.Add(NetChange(rows)),
			Transactions:    rows,
			Balances:        balances,
		}
		pages = append(pages, page)
		balance = page.EndingBalance
	}
	return pages
}

// =============================================================================
// POINT-IN-TIME BALANCES
// =============================================================================

// PeriodStartingBalance is the settled balance at the start of a period:
// opening plus settled transactions whose cleared_at is strictly before
// periodStart (midnight UTC). Uncleared transactions have no settlement
// time and never count.
func PeriodStartingBalance(opening decimal.Decimal, txns []Transaction, periodStart Date) decimal.Decimal {
	return settledBalanceBefore(opening, txns, periodStart.Time())
}

// PeriodEndingBalance is the settled balance at the end of period day end.
func PeriodEndingBalance(opening decimal.Decimal, txns []Transaction, end Date) decimal.Decimal {
	return settledBalanceBefore(opening, txns, end.NextDay().Time())
}

func settledBalanceBefore(opening decimal.Decimal, txns []Transaction, cutoff time.Time) decimal.Decimal {
	balance := opening
	for _, tx := range txns {
		if !tx.Status.Settled() || tx.ClearedAt == nil {
			continue
		}
		if tx.ClearedAt.Before(cutoff) {
			balance = balance.Add(tx.Signed())
		}
	}
	return balance
}

// =============================================================================
// RECONCILIATION STATEMENT
// =============================================================================

// ReconciliationStatement compares the book's cleared balance with a bank
// statement.
type ReconciliationStatement struct {
	StatementDate    Date            `json:"statement_date"`
	StatementBalance decimal.Decimal `json:"statement_balance"`
	ClearedBalance   decimal.Decimal `json:"cleared_balance"`
	UnclearedNet     decimal.Decimal `json:"uncleared_net"`
	WorkingBalance   decimal.Decimal `json:"working_balance"`
	Difference       decimal.Decimal `json:"difference"`
	Balanced         bool            `json:"balanced"`
	ClearedCount     int             `json:"cleared_count"`
	UnclearedCount   int             `json:"uncleared_count"`
}

// Reconcile computes the cleared balance as of the statement date
// (settled transactions cleared on or before that day), the outstanding
// activity dated on or before it, and Difference = statement - cleared.
// A transaction counts as outstanding until it clears, so one that cleared
// after the statement date is still outstanding on the statement.
func Reconcile(opening decimal.Decimal, txns []Transaction, statementDate Date, statementBalance decimal.Decimal) ReconciliationStatement {
	cutoff := statementDate.NextDay().Time()
	rs := ReconciliationStatement{
		StatementDate:    statementDate,
		StatementBalance: statementBalance,
		ClearedBalance:   opening,
		UnclearedNet:     decimal.Zero,
	}
	for _, tx := range txns {
		clearedByCutoff := tx.Status.Settled() && tx.ClearedAt != nil && tx.ClearedAt.Before(cutoff)
		switch {
		case clearedByCutoff:
			rs.ClearedBalance = rs.ClearedBalance.Add(tx.Signed())
			rs.ClearedCount++
		case tx.TransactionDate.BeforeOrEqual(statementDate):
			rs.UnclearedNet = rs.UnclearedNet.Add(tx.Signed())
			rs.UnclearedCount++
		}
	}
	rs.WorkingBalance = rs.ClearedBalance.Add(rs.UnclearedNet)
	rs.Difference = statementBalance.Sub(rs.ClearedBalance)
	rs.Balanced = rs.Difference.IsZero()
	return rs
}
