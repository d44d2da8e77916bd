package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func line(name string, t TransactionType, budgeted, actual string) BudgetReportLine {
	return NewBudgetReportLine(CategoryID(name), name, t, d(budgeted), d(actual), OriginBudgeted)
}

func names(lines []BudgetReportLine) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.CategoryName
	}
	return out
}

// =============================================================================
// VARIANCE
// =============================================================================

func TestVariance_PositiveIsFavorable(t *testing.T) {
	// GIVEN: 1000 budgeted and 1200 actual on each side
	income := line("Grants", Income, "1000", "1200")
	expense := line("Rent", Expense, "1000", "1200")

	// THEN: Raising more is favorable, spending more is not
	assert.Equal(t, "200", income.Variance.String())
	assert.Equal(t, "-200", expense.Variance.String())

	require.NotNil(t, income.VariancePercent)
	assert.Equal(t, "120", income.VariancePercent.String())
	assert.Equal(t, "120", expense.VariancePercent.String())
}

func TestVariancePercent_NilUnlessBudgetPositive(t *testing.T) {
	assert.Nil(t, VariancePercent(decimal.Zero, d("50")))
	assert.Nil(t, VariancePercent(d("-10"), d("50")))

	pct := VariancePercent(d("400"), d("100"))
	require.NotNil(t, pct)
	assert.Equal(t, "25", pct.String())
}

func TestSubtotal_RecomputesFromSums(t *testing.T) {
	// GIVEN: Two expense lines, one under and one over plan
	lines := []BudgetReportLine{
		line("Rent", Expense, "1000", "900"),
		line("Food", Expense, "100", "300"),
	}

	// WHEN: Subtotaling
	s := Subtotal(Expense, lines)

	// THEN: Percent comes from the sums (1200/1100), not from the lines
	assert.Equal(t, "1100", s.Budgeted.String())
	assert.Equal(t, "1200", s.Actual.String())
	assert.Equal(t, "-100", s.Variance.String())
	require.NotNil(t, s.VariancePercent)
	assert.Equal(t, "109.1", s.VariancePercent.StringFixed(1))

	assert.Nil(t, Subtotal(Income, nil).VariancePercent)
}

// =============================================================================
// COMBINER
// =============================================================================

func TestCombineBudgetLines_NetsSameName(t *testing.T) {
	// GIVEN: "Grants" on both sides plus one-sided rows
	income := []BudgetReportLine{
		line("Grants", Income, "1000", "1200"),
		line("Donations", Income, "500", "450"),
	}
	expense := []BudgetReportLine{
		line("Rent", Expense, "800", "800"),
		line("Grants", Expense, "300", "250"),
	}

	// WHEN: Combining
	r := CombineBudgetLines(income, expense)

	// THEN: Grants nets to 700 budgeted / 950 actual
	require.Len(t, r.Combined, 1)
	g := r.Combined[0]
	assert.Equal(t, "Grants", g.CategoryName)
	assert.Equal(t, "1000", g.IncomeBudgeted.String())
	assert.Equal(t, "250", g.ExpenseActual.String())
	assert.Equal(t, "700", g.NetBudgeted.String())
	assert.Equal(t, "950", g.NetActual.String())

	// AND: One-sided rows pass through unchanged
	assert.Equal(t, []string{"Donations"}, names(r.UnmatchedIncome))
	assert.Equal(t, []string{"Rent"}, names(r.UnmatchedExpense))
	assert.Equal(t, income[1], r.UnmatchedIncome[0])
}

func TestCombineBudgetLines_GroupsDuplicateNamesPerSide(t *testing.T) {
	income := []BudgetReportLine{
		line("Grants", Income, "100", "10"),
		line("Grants", Income, "200", "20"),
	}
	expense := []BudgetReportLine{line("Grants", Expense, "50", "5")}

	r := CombineBudgetLines(income, expense)

	require.Len(t, r.Combined, 1)
	assert.Equal(t, "300", r.Combined[0].IncomeBudgeted.String())
	assert.Equal(t, "25", r.Combined[0].NetActual.String())
	assert.Empty(t, r.UnmatchedIncome)
	assert.Empty(t, r.UnmatchedExpense)
}

func TestCombineBudgetLines_SortedByName(t *testing.T) {
	income := []BudgetReportLine{line("Zeta", Income, "1", "1"), line("Alpha", Income, "1", "1")}
	expense := []BudgetReportLine{line("Alpha", Expense, "1", "1"), line("Zeta", Expense, "1", "1")}

	r := CombineBudgetLines(income, expense)

	require.Len(t, r.Combined, 2)
	assert.Equal(t, "Alpha", r.Combined[0].CategoryName)
	assert.Equal(t, "Zeta", r.Combined[1].CategoryName)
}

func TestCombineBudgetLines_Empty(t *testing.T) {
	r := CombineBudgetLines(nil, nil)

	assert.Empty(t, r.Combined)
	assert.Empty(t, r.UnmatchedIncome)
	assert.Empty(t, r.UnmatchedExpense)
}

// =============================================================================
// BUDGET REPORT
// =============================================================================

func TestBuildBudgetReport_RollsUpActiveChildren(t *testing.T) {
	inactive := child("vans", "Vans", Expense, "program")
	inactive.Active = false
	idx := mustIndex(
		root("program", "Program", Expense),
		child("food", "Food", Expense, "program"),
		inactive,
	)
	budget := Budget{
		Name:      "FY",
		StartDate: date("2025-07-01"),
		EndDate:   date("2026-06-30"),
		LineItems: []BudgetLineItem{{CategoryID: "program", Amount: d("1000")}},
	}
	txns := []Transaction{
		tx("a", "2025-08-01", "100", Expense, StatusCleared, "program"),
		tx("b", "2025-08-02", "250", Expense, StatusCleared, "food"),
		tx("c", "2025-08-03", "40", Expense, StatusCleared, "vans"),
	}

	report := BuildBudgetReport(budget, idx, txns)

	// THEN: Program counts itself and Food; inactive Vans is unbudgeted
	require.Len(t, report.ExpenseLines, 1)
	assert.Equal(t, "350", report.ExpenseLines[0].Actual.String())
	assert.Equal(t, "650", report.ExpenseLines[0].Variance.String())
	require.Len(t, report.UnbudgetedActuals, 1)
	assert.Equal(t, "Program → Vans", report.UnbudgetedActuals[0].CategoryName)
	assert.Equal(t, OriginUnbudgetedActual, report.UnbudgetedActuals[0].Origin)
}

func TestBuildBudgetReport_RootAndChildSameBareNameNotCombined(t *testing.T) {
	// GIVEN: Income root "Food" and expense child "Program → Food"
	idx := mustIndex(
		root("food-in", "Food", Income),
		root("program", "Program", Expense),
		child("food-out", "Food", Expense, "program"),
	)
	budget := Budget{
		StartDate: date("2025-01-01"),
		EndDate:   date("2025-12-31"),
		LineItems: []BudgetLineItem{
			{CategoryID: "food-in", Amount: d("100")},
			{CategoryID: "food-out", Amount: d("200")},
		},
	}

	report := BuildBudgetReport(budget, idx, nil)

	// THEN: The labels differ, so nothing combines
	assert.Empty(t, report.CombinedLines)
	assert.Equal(t, []string{"Food"}, names(report.IncomeLines))
	assert.Equal(t, []string{"Program → Food"}, names(report.ExpenseLines))
}

func TestBuildBudgetReport_UnbudgetedNetsWithBudgetedLine(t *testing.T) {
	// GIVEN: Budgeted income "Grants" and unbudgeted expense "Grants"
	idx := mustIndex(
		root("grants-in", "Grants", Income),
		root("grants-out", "Grants", Expense),
		root("events", "Events", Income),
		root("misc", "Misc", Expense),
	)
	budget := Budget{
		StartDate: date("2025-07-01"),
		EndDate:   date("2026-06-30"),
		LineItems: []BudgetLineItem{{CategoryID: "grants-in", Amount: d("1000")}},
	}
	txns := []Transaction{
		tx("a", "2025-08-01", "1200", Income, StatusReconciled, "grants-in"),
		tx("b", "2025-09-01", "250", Expense, StatusCleared, "grants-out"),
		tx("c", "2025-09-02", "75", Income, StatusCleared, "events"),
		tx("d", "2025-09-03", "300", Expense, StatusCleared, "misc"),
		tx("e", "2025-09-04", "20", Expense, StatusCleared, "misc"),
		tx("f", "2025-09-05", "20", Income, StatusCleared, "events"),
		tx("g", "2025-09-06", "-20", Income, StatusCleared, "events"),
	}

	report := BuildBudgetReport(budget, idx, txns)

	// THEN: The synthetic expense "Grants" nets against the budgeted income line
	require.Len(t, report.CombinedLines, 1)
	g := report.CombinedLines[0]
	assert.Equal(t, "1000", g.NetBudgeted.String())
	assert.Equal(t, "950", g.NetActual.String())
	assert.Empty(t, report.IncomeLines)

	// AND: Remaining synthetic lines are unbudgeted, largest actual first
	assert.Equal(t, []string{"Misc", "Events"}, names(report.UnbudgetedActuals))
	assert.Equal(t, "320", report.UnbudgetedActuals[0].Actual.String())
	assert.Equal(t, "75", report.UnbudgetedActuals[1].Actual.String())
	assert.Nil(t, report.UnbudgetedActuals[0].VariancePercent)

	// AND: The combined total mirrors the single combined row
	assert.Equal(t, "Total", report.CombinedNet.CategoryName)
	assert.Equal(t, "950", report.CombinedNet.NetActual.String())
}

func TestBuildBudgetReport_ExcludesZeroNetAndOutOfRange(t *testing.T) {
	idx := mustIndex(
		root("rent", "Rent", Expense),
		root("misc", "Misc", Expense),
	)
	budget := Budget{
		StartDate: date("2025-07-01"),
		EndDate:   date("2025-12-31"),
		LineItems: []BudgetLineItem{{CategoryID: "rent", Amount: d("600")}},
	}
	txns := []Transaction{
		tx("early", "2025-06-30", "999", Expense, StatusReconciled, "rent"),
		tx("in", "2025-07-01", "100", Expense, StatusCleared, "rent"),
		tx("last", "2025-12-31", "50", Expense, StatusUncleared, "rent"),
		tx("late", "2026-01-01", "999", Expense, StatusUncleared, "rent"),
		tx("m1", "2025-08-01", "30", Expense, StatusCleared, "misc"),
		tx("m2", "2025-08-02", "-30", Expense, StatusCleared, "misc"),
	}

	report := BuildBudgetReport(budget, idx, txns)

	// THEN: Only in-range activity counts and netted-out categories vanish
	require.Len(t, report.ExpenseLines, 1)
	assert.Equal(t, "150", report.ExpenseLines[0].Actual.String())
	assert.Empty(t, report.UnbudgetedActuals)
	assert.Equal(t, "450", report.ExpenseSubtotal.Variance.String())
	assert.Equal(t, "25", report.ExpenseSubtotal.VariancePercent.String())
	assert.True(t, report.IncomeSubtotal.Budgeted.IsZero())
	assert.NotNil(t, report.CombinedLines)
}
