package engine

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ledger() []Transaction {
	return []Transaction{
		tx("t1", "2025-07-01", "500", Income, StatusReconciled, "grants"),
		tx("t2", "2025-07-03", "120.50", Expense, StatusCleared, "food"),
		tx("t3", "2025-07-03", "80", Expense, StatusUncleared, "rent"),
		tx("t4", "2025-07-10", "45.25", Income, StatusCleared, "donations"),
		tx("t5", "2025-07-15", "300", Expense, StatusUncleared, "food"),
	}
}

// =============================================================================
// RUNNING BALANCES
// =============================================================================

func TestRunningBalances_EmptyInput(t *testing.T) {
	got := RunningBalances(d("1000"), nil)

	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRunningBalances_FoldsSignedAmounts(t *testing.T) {
	// GIVEN: An opening balance of 1000 and an ordered ledger
	txns := ledger()

	// WHEN: Computing running balances
	got := RunningBalances(d("1000"), txns)

	// THEN: Each row holds the balance after it
	want := map[TransactionID]string{
		"t1": "1500",
		"t2": "1379.5",
		"t3": "1299.5",
		"t4": "1344.75",
		"t5": "1044.75",
	}
	require.Len(t, got, len(want))
	for id, bal := range want {
		assert.Equal(t, bal, got[id].String(), id)
	}
	assert.Equal(t, "44.75", NetChange(txns).String())
}

func TestSortLedger_TieBreaksOnCreatedAtThenID(t *testing.T) {
	a := tx("b", "2025-07-03", "1", Income, StatusCleared, "x")
	b := tx("a", "2025-07-03", "1", Income, StatusCleared, "x")
	c := tx("c", "2025-07-03", "1", Income, StatusCleared, "x")
	c.CreatedAt = c.CreatedAt.Add(-time.Hour)
	early := tx("z", "2025-07-01", "1", Income, StatusCleared, "x")

	txns := []Transaction{a, b, c, early}
	SortLedger(txns)

	ids := make([]TransactionID, len(txns))
	for i, tx := range txns {
		ids[i] = tx.ID
	}
	assert.Equal(t, []TransactionID{"z", "c", "a", "b"}, ids)
}

// =============================================================================
// PAGINATION
// =============================================================================

func TestPaginate_PagesChainBalances(t *testing.T) {
	txns := ledger()
	opening := d("1000")

	for size := 1; size <= len(txns)+1; size++ {
		t.Run(fmt.Sprintf("size=%d", size), func(t *testing.T) {
			pages := Paginate(opening, txns, size)

			balance := opening
			all := RunningBalances(opening, txns)
			for i, page := range pages {
				assert.Equal(t, i+1, page.Number)
				assert.True(t, page.StartingBalance.Equal(balance), "page %d start", page.Number)
				assert.True(t, page.EndingBalance.Equal(page.StartingBalance.Add(NetChange(page.Transactions))))

				// Per-page running balances agree with the whole-ledger fold
				for _, tx := range page.Transactions {
					assert.True(t, page.Balances[tx.ID].Equal(all[tx.ID]), tx.ID)
				}
				balance = page.EndingBalance
			}
			assert.Equal(t, "1044.75", balance.String())
		})
	}
}

func TestPaginate_SplitFoldIsAssociative(t *testing.T) {
	txns := ledger()
	opening := d("250")

	whole := RunningBalances(opening, txns)
	for k := 0; k <= len(txns); k++ {
		left := RunningBalances(opening, txns[:k])
		mid := opening.Add(NetChange(txns[:k]))
		right := RunningBalances(mid, txns[k:])

		for id, bal := range left {
			assert.True(t, bal.Equal(whole[id]))
		}
		for id, bal := range right {
			assert.True(t, bal.Equal(whole[id]))
		}
	}
}

func TestPaginate_Empty(t *testing.T) {
	assert.Empty(t, Paginate(d("100"), nil, 10))
}

func TestPageStartingBalance_UsesPageFilter(t *testing.T) {
	// GIVEN: A register filtered to uncleared transactions, second page
	txns := ledger()
	filter := TransactionFilter{Statuses: []Status{StatusUncleared}}
	filtered := filter.Apply(txns)
	require.Len(t, filtered, 2)

	// WHEN: Computing the balance before the second filtered row
	got := PageStartingBalance(d("1000"), txns, filter, filtered[1].Key())

	// THEN: Only filtered rows sorting before it count
	assert.Equal(t, "920", got.String())

	pages := Paginate(d("1000"), filtered, 1)
	require.Len(t, pages, 2)
	assert.True(t, pages[1].StartingBalance.Equal(got))
}

func TestTransactionFilter_Matches(t *testing.T) {
	txns := ledger()

	tests := []struct {
		name   string
		filter TransactionFilter
		want   []TransactionID
	}{
		{"no restriction", TransactionFilter{}, []TransactionID{"t1", "t2", "t3", "t4", "t5"}},
		{"inclusive range", TransactionFilter{From: date("2025-07-03"), To: date("2025-07-10")}, []TransactionID{"t2", "t3", "t4"}},
		{"type", TransactionFilter{Type: Income}, []TransactionID{"t1", "t4"}},
		{"statuses", TransactionFilter{Statuses: []Status{StatusCleared, StatusReconciled}}, []TransactionID{"t1", "t2", "t4"}},
		{"other account", TransactionFilter{AccountID: "savings"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []TransactionID
			for _, tx := range tt.filter.Apply(txns) {
				got = append(got, tx.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

// =============================================================================
// STATUS BUCKETS
// =============================================================================

func TestStatusBucketedNet(t *testing.T) {
	net := StatusBucketedNet(ledger())

	assert.Equal(t, "-380", net.Uncleared.String())
	assert.Equal(t, "-75.25", net.Cleared.String())
	assert.Equal(t, "500", net.Reconciled.String())
	assert.Equal(t, "44.75", net.Total().String())
	assert.Equal(t, "424.75", net.Settled().String())

	odd := tx("x", "2025-07-01", "10", Income, Status("void"), "x")
	assert.True(t, StatusBucketedNet([]Transaction{odd}).Total().IsZero())
}

func TestStatusNet_Add(t *testing.T) {
	a := StatusNet{Uncleared: d("1"), Cleared: d("2"), Reconciled: d("3")}
	b := StatusNet{Uncleared: d("10"), Cleared: d("20"), Reconciled: d("30")}

	sum := a.Add(b)

	assert.Equal(t, "66", sum.Total().String())
}

// =============================================================================
// POINT-IN-TIME BALANCES
// =============================================================================

func TestPeriodStartingBalance_StrictMidnightCutoff(t *testing.T) {
	// GIVEN: One transaction cleared at 23:59:59 the day before the
	// period and one cleared exactly at midnight of the first day
	before := tx("before", "2025-06-30", "100", Income, StatusCleared, "x")
	lastSecond := date("2025-07-01").Time().Add(-time.Second)
	before.ClearedAt = &lastSecond

	atMidnight := tx("midnight", "2025-06-30", "40", Income, StatusReconciled, "x")
	midnight := date("2025-07-01").Time()
	atMidnight.ClearedAt = &midnight

	pending := tx("pending", "2025-06-01", "999", Income, StatusUncleared, "x")

	txns := []Transaction{before, atMidnight, pending}

	// WHEN: Computing the balance at the start of July
	got := PeriodStartingBalance(d("1000"), txns, date("2025-07-01"))

	// THEN: Only the strictly earlier clearance counts
	assert.Equal(t, "1100", got.String())

	// The midnight clearance lands on July 1 and belongs to the period end
	assert.Equal(t, "1140", PeriodEndingBalance(d("1000"), txns, date("2025-07-01")).String())
}

func TestPeriodStartingBalance_UsesClearedAtNotTransactionDate(t *testing.T) {
	// GIVEN: A June transaction that only cleared in July
	late := tx("late", "2025-06-28", "75", Expense, StatusCleared, "x")
	july := date("2025-07-02").Time()
	late.ClearedAt = &july

	// THEN: It is not part of the July 1 starting balance
	assert.Equal(t, "500", PeriodStartingBalance(d("500"), []Transaction{late}, date("2025-07-01")).String())
	assert.Equal(t, "425", PeriodEndingBalance(d("500"), []Transaction{late}, date("2025-07-31")).String())
}

// =============================================================================
// RECONCILIATION
// =============================================================================

func TestReconcile(t *testing.T) {
	// GIVEN: The sample ledger and a statement dated July 10
	txns := ledger()

	// WHEN: The bank reports 1424.75
	rs := Reconcile(d("1000"), txns, date("2025-07-10"), d("1424.75"))

	// THEN: Cleared activity through July 10 balances and the pending
	// rent dated before the statement is listed as uncleared
	assert.Equal(t, "1424.75", rs.ClearedBalance.String())
	assert.Equal(t, 3, rs.ClearedCount)
	assert.Equal(t, "-80", rs.UnclearedNet.String())
	assert.Equal(t, 1, rs.UnclearedCount)
	assert.Equal(t, "1344.75", rs.WorkingBalance.String())
	assert.True(t, rs.Difference.IsZero())
	assert.True(t, rs.Balanced)
}

func TestReconcile_ReportsDifference(t *testing.T) {
	rs := Reconcile(d("1000"), ledger(), date("2025-07-05"), decimal.NewFromInt(1400))

	assert.Equal(t, "1379.5", rs.ClearedBalance.String())
	assert.Equal(t, "20.5", rs.Difference.String())
	assert.False(t, rs.Balanced)
}

func TestReconcile_ClearedAfterStatementIsOutstanding(t *testing.T) {
	// GIVEN: A check written July 8 that the bank only cleared July 12
	check := tx("check", "2025-07-08", "100", Expense, StatusCleared, "rent")
	clearedAt := date("2025-07-12").Time().Add(12 * time.Hour)
	check.ClearedAt = &clearedAt

	// WHEN: Reconciling against the July 10 statement
	rs := Reconcile(d("1000"), []Transaction{check}, date("2025-07-10"), d("1000"))

	// THEN: The check was still outstanding on the statement date
	assert.Equal(t, "1000", rs.ClearedBalance.String())
	assert.Equal(t, 0, rs.ClearedCount)
	assert.Equal(t, "-100", rs.UnclearedNet.String())
	assert.Equal(t, 1, rs.UnclearedCount)
	assert.Equal(t, "900", rs.WorkingBalance.String())
	assert.True(t, rs.Balanced)

	// AND: On a later statement it has cleared
	later := Reconcile(d("1000"), []Transaction{check}, date("2025-07-31"), d("900"))
	assert.Equal(t, "900", later.ClearedBalance.String())
	assert.Equal(t, 0, later.UnclearedCount)
}
