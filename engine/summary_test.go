package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeSummary_Totals(t *testing.T) {
	// GIVEN: 500 income and 200 expense
	idx := mustIndex(
		root("grants", "Grants", Income),
		root("food", "Food", Expense),
	)
	txns := []Transaction{
		tx("a", "2025-07-01", "500", Income, StatusReconciled, "grants"),
		tx("b", "2025-07-02", "200", Expense, StatusUncleared, "food"),
	}

	// WHEN: Summarizing
	s := ComputeSummary(idx.LabelTransactions(txns), idx)

	// THEN: Net is the difference and statuses are bucketed
	assert.Equal(t, "500", s.TotalIncome.String())
	assert.Equal(t, "200", s.TotalExpenses.String())
	assert.Equal(t, "300", s.NetChange.String())
	assert.Equal(t, 2, s.TransactionCount)
	assert.Equal(t, "500", s.BalanceByStatus.Reconciled.String())
	assert.Equal(t, "-200", s.BalanceByStatus.Uncleared.String())
}

func TestComputeSummary_Empty(t *testing.T) {
	s := ComputeSummary(nil, mustIndex())

	assert.True(t, s.TotalIncome.IsZero())
	assert.True(t, s.NetChange.IsZero())
	assert.Empty(t, s.IncomeByCategory)
	assert.NotNil(t, s.ExpensesByCategory)
}

func TestComputeSummary_GroupsChildrenUnderParent(t *testing.T) {
	// GIVEN: Two children of Program, recorded out of name order
	idx := mustIndex(
		root("program", "Program", Expense),
		child("transport", "Transport", Expense, "program"),
		child("food", "Food", Expense, "program"),
	)
	txns := []Transaction{
		tx("a", "2025-07-01", "200", Expense, StatusCleared, "transport"),
		tx("b", "2025-07-02", "100", Expense, StatusCleared, "food"),
		tx("c", "2025-07-03", "50", Expense, StatusCleared, "food"),
	}

	s := ComputeSummary(idx.LabelTransactions(txns), idx)

	// THEN: One Program group, children sorted, subtotal summed
	require.Len(t, s.ExpensesByCategory, 1)
	g := s.ExpensesByCategory[0]
	assert.Equal(t, "Program", g.ParentName)
	require.Len(t, g.Children, 2)
	assert.Equal(t, "Food", g.Children[0].Name)
	assert.Equal(t, "150", g.Children[0].Total.String())
	assert.Equal(t, "Transport", g.Children[1].Name)
	assert.Equal(t, "350", g.Subtotal.String())
}

func TestComputeSummary_SplitTransaction(t *testing.T) {
	idx := mustIndex(
		root("food", "Food", Expense),
		root("rent", "Rent", Expense),
	)
	split := tx("a", "2025-07-01", "300", Expense, StatusCleared, "food")
	split.LineItems = []LineItem{
		{TransactionID: "a", CategoryID: "food", Amount: d("120")},
		{TransactionID: "a", CategoryID: "rent", Amount: d("180")},
	}

	s := ComputeSummary(idx.LabelTransactions([]Transaction{split}), idx)

	require.Len(t, s.ExpensesByCategory, 2)
	assert.Equal(t, "Food", s.ExpensesByCategory[0].ParentName)
	assert.Equal(t, "120", s.ExpensesByCategory[0].Subtotal.String())
	assert.Equal(t, "Rent", s.ExpensesByCategory[1].ParentName)
	assert.Equal(t, "180", s.ExpensesByCategory[1].Subtotal.String())
}

func TestComputeSummary_UnknownCategory(t *testing.T) {
	// GIVEN: A line item whose category is not in the snapshot
	idx := mustIndex(root("food", "Food", Expense))
	txns := []Transaction{tx("a", "2025-07-01", "40", Expense, StatusCleared, "deleted")}

	s := ComputeSummary(idx.LabelTransactions(txns), idx)

	// THEN: It lands in the Unknown group
	require.Len(t, s.ExpensesByCategory, 1)
	assert.Equal(t, UnknownLabel, s.ExpensesByCategory[0].ParentName)
	assert.Equal(t, RootChildName, s.ExpensesByCategory[0].Children[0].Name)
	assert.Equal(t, "40", s.ExpensesByCategory[0].Subtotal.String())
}

func TestBuildCategorySummaries_RootActivityUnderRootChild(t *testing.T) {
	idx := mustIndex(
		root("ops", "Operations", Expense),
		child("rent", "Rent", Expense, "ops"),
		root("admin", "Admin", Expense),
	)
	totals := map[CategoryID]decimal.Decimal{
		"ops":   d("10"),
		"rent":  d("90"),
		"admin": d("5"),
	}

	got := BuildCategorySummaries(totals, idx)

	require.Len(t, got, 2)
	assert.Equal(t, "Admin", got[0].ParentName)
	require.Len(t, got[0].Children, 1)
	assert.Equal(t, RootChildName, got[0].Children[0].Name)
	assert.Equal(t, "5", got[0].Children[0].Total.String())

	ops := got[1]
	assert.Equal(t, "Operations", ops.ParentName)
	require.Len(t, ops.Children, 2)
	assert.Equal(t, RootChildName, ops.Children[0].Name)
	assert.Equal(t, "Rent", ops.Children[1].Name)
	assert.Equal(t, "100", ops.Subtotal.String())
}

func TestLabelTransactions(t *testing.T) {
	idx := mustIndex(
		root("donations", "Donations", Income),
		child("individual", "Individual", Income, "donations"),
	)
	txns := []Transaction{tx("a", "2025-07-01", "25", Income, StatusCleared, "individual")}

	got := idx.LabelTransactions(txns)

	require.Len(t, got, 1)
	assert.Equal(t, "Donations → Individual", got[0].Lines[0].CategoryLabel)
	assert.Equal(t, TransactionID("a"), got[0].ID)
}
