/*
budget.go - Budget-vs-actual variance and combined income/expense lines

PURPOSE:
  Compares a budget's planned amounts with what was actually posted in
  the budget's date range. Answers "are we on plan?" per category.

VARIANCE SIGN CONVENTION:
  Positive variance is ALWAYS favorable.

    income:  variance = actual - budgeted   (raised more than planned)
    expense: variance = budgeted - actual   (spent less than planned)

  VariancePercent = actual / budgeted * 100, nil when budgeted is zero.

ROLLUP:
  A budget line on a root category counts the root's own line items plus
  those of its ACTIVE children.

COMBINED LINES:
  Some organizations use the same category name on both sides (a
  "Grants" income category and a "Grants" expense category for
  repayments). Rows whose display name appears on both sides fold into
  one net CombinedBudgetLine.

UNBUDGETED ACTUALS:
  Activity in a category with no budget line becomes a synthetic line
  (budgeted 0, OriginUnbudgetedActual) and goes through the combiner so
  it can still net against a same-named line on the other side. Synthetic
  lines left unmatched are reported separately, largest first.

SEE ALSO:
  - category.go: Labels, rollup and the budgeted set
*/
package engine

import (
	"sort"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// LineOrigin tags where a budget report line came from.
type LineOrigin string

const (
	OriginBudgeted         LineOrigin = "budgeted"
	OriginUnbudgetedActual LineOrigin = "unbudgeted_actual"
)

// =============================================================================
// REPORT LINES
// =============================================================================

// BudgetReportLine is one category row of a budget report.
type BudgetReportLine struct {
	CategoryID      CategoryID       `json:"category_id"`
	CategoryName    string           `json:"category_name"`
	CategoryType    TransactionType  `json:"category_type"`
	Budgeted        decimal.Decimal  `json:"budgeted"`
	Actual          decimal.Decimal  `json:"actual"`
	Variance        decimal.Decimal  `json:"variance"`
	VariancePercent *decimal.Decimal `json:"variance_percent"`
	Origin          LineOrigin       `json:"origin"`
}

// Variance returns the favorable-positive variance for a category type.
func Variance(t TransactionType, budgeted, actual decimal.Decimal) decimal.Decimal {
	if t == Income {
		return actual.Sub(budgeted)
	}
	return budgeted.Sub(actual)
}

// VariancePercent returns actual/budgeted*100, or nil unless budgeted > 0.
func VariancePercent(budgeted, actual decimal.Decimal) *decimal.Decimal {
	if !budgeted.IsPositive() {
		return nil
	}
	pct := actual.Div(budgeted).Mul(hundred)
	return &pct
}

// NewBudgetReportLine fills in variance and percent.
func NewBudgetReportLine(id CategoryID, name string, t TransactionType, budgeted, actual decimal.Decimal, origin LineOrigin) BudgetReportLine {
	return BudgetReportLine{
		CategoryID:      id,
		CategoryName:    name,
		CategoryType:    t,
		Budgeted:        budgeted,
		Actual:          actual,
		Variance:        Variance(t, budgeted, actual),
		VariancePercent: VariancePercent(budgeted, actual),
		Origin:          origin,
	}
}

// BudgetSubtotal sums a section and recomputes variance from the sums.
type BudgetSubtotal struct {
	Budgeted        decimal.Decimal  `json:"budgeted"`
	Actual          decimal.Decimal  `json:"actual"`
	Variance        decimal.Decimal  `json:"variance"`
	VariancePercent *decimal.Decimal `json:"variance_percent"`
}

// Subtotal sums budgeted and actual independently, then derives variance
// and percent from the totals (never by averaging line variances).
func Subtotal(t TransactionType, lines []BudgetReportLine) BudgetSubtotal {
	budgeted, actual := decimal.Zero, decimal.Zero
	for _, l := range lines {
		budgeted = budgeted.Add(l.Budgeted)
		actual = actual.Add(l.Actual)
	}
	return BudgetSubtotal{
		Budgeted:        budgeted,
		Actual:          actual,
		Variance:        Variance(t, budgeted, actual),
		VariancePercent: VariancePercent(budgeted, actual),
	}
}

// =============================================================================
// ACTUALS
// =============================================================================

// ActualsByCategory sums line-item amounts per category for transactions
// dated within r.
func ActualsByCategory(txns []Transaction, r DateRange) map[CategoryID]decimal.Decimal {
	actuals := make(map[CategoryID]decimal.Decimal)
	for _, tx := range txns {
		if !r.Contains(tx.TransactionDate) {
			continue
		}
		for _, li := range tx.LineItems {
			actuals[li.CategoryID] = actuals[li.CategoryID].Add(li.Amount)
		}
	}
	return actuals
}

// rolledUpActual is the category's own actual plus its active children's.
func rolledUpActual(idx *CategoryIndex, actuals map[CategoryID]decimal.Decimal, id CategoryID) decimal.Decimal {
	total := decimal.Zero
	for _, cid := range idx.RollupIDs(id) {
		total = total.Add(actuals[cid])
	}
	return total
}

// BudgetVarianceLines computes one line per budget line item, in budget
// order, split into income and expense sections.
func BudgetVarianceLines(budget Budget, idx *CategoryIndex, actuals map[CategoryID]decimal.Decimal) (income, expense []BudgetReportLine) {
	for _, bl := range budget.LineItems {
		t := idx.TypeOf(bl.CategoryID)
		line := NewBudgetReportLine(
			bl.CategoryID,
			idx.ResolveLabel(bl.CategoryID),
			t,
			bl.Amount,
			rolledUpActual(idx, actuals, bl.CategoryID),
			OriginBudgeted,
		)
		if t == Income {
			income = append(income, line)
		} else {
			expense = append(expense, line)
		}
	}
	return income, expense
}

// UnbudgetedLines builds synthetic lines for categories with non-zero
// activity that are not in the budgeted set, ordered by category id.
func UnbudgetedLines(idx *CategoryIndex, actuals map[CategoryID]decimal.Decimal, budgeted CategorySet) (income, expense []BudgetReportLine) {
	ids := make([]CategoryID, 0, len(actuals))
	for id, amount := range actuals {
		if amount.IsZero() || budgeted.Has(id) {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		t := idx.TypeOf(id)
		line := NewBudgetReportLine(id, idx.ResolveLabel(id), t, decimal.Zero, actuals[id], OriginUnbudgetedActual)
		if t == Income {
			income = append(income, line)
		} else {
			expense = append(expense, line)
		}
	}
	return income, expense
}

// =============================================================================
// COMBINER
// =============================================================================

// CombinedBudgetLine nets an income row against an expense row of the same
// display name.
type CombinedBudgetLine struct {
	CategoryName    string          `json:"category_name"`
	IncomeBudgeted  decimal.Decimal `json:"income_budgeted"`
	IncomeActual    decimal.Decimal `json:"income_actual"`
	ExpenseBudgeted decimal.Decimal `json:"expense_budgeted"`
	ExpenseActual   decimal.Decimal `json:"expense_actual"`
	NetBudgeted     decimal.Decimal `json:"net_budgeted"`
	NetActual       decimal.Decimal `json:"net_actual"`
}

// CombineResult is the combiner output.
type CombineResult struct {
	Combined         []CombinedBudgetLine
	UnmatchedIncome  []BudgetReportLine
	UnmatchedExpense []BudgetReportLine
}

type nameTotals struct {
	budgeted decimal.Decimal
	actual   decimal.Decimal
}

func groupByName(lines []BudgetReportLine) map[string]nameTotals {
	groups := make(map[string]nameTotals, len(lines))
	for _, l := range lines {
		g := groups[l.CategoryName]
		g.budgeted = g.budgeted.Add(l.Budgeted)
		g.actual = g.actual.Add(l.Actual)
		groups[l.CategoryName] = g
	}
	return groups
}

// CombineBudgetLines matches income and expense rows by display name.
// Names on both sides become one CombinedBudgetLine (sorted by name) built
// from the per-side grouped totals. Rows whose name is on one side only
// pass through unchanged and ungrouped, in input order.
func CombineBudgetLines(income, expense []BudgetReportLine) CombineResult {
	incomeByName := groupByName(income)
	expenseByName := groupByName(expense)

	var result CombineResult
	for name, in := range incomeByName {
		out, ok := expenseByName[name]
		if !ok {
			continue
		}
		result.Combined = append(result.Combined, CombinedBudgetLine{
			CategoryName:    name,
			IncomeBudgeted:  in.budgeted,
			IncomeActual:    in.actual,
			ExpenseBudgeted: out.budgeted,
			ExpenseActual:   out.actual,
			NetBudgeted:     in.budgeted.Sub(out.budgeted),
			NetActual:       in.actual.Sub(out.actual),
		})
	}
	sort.Slice(result.Combined, func(i, j int) bool {
		return result.Combined[i].CategoryName < result.Combined[j].CategoryName
	})

	for _, l := range income {
		if _, matched := expenseByName[l.CategoryName]; !matched {
			result.UnmatchedIncome = append(result.UnmatchedIncome, l)
		}
	}
	for _, l := range expense {
		if _, matched := incomeByName[l.CategoryName]; !matched {
			result.UnmatchedExpense = append(result.UnmatchedExpense, l)
		}
	}
	return result
}

// =============================================================================
// BUDGET REPORT
// =============================================================================

// BudgetReport is the full budget-vs-actual report.
type BudgetReport struct {
	Budget            Budget               `json:"-"`
	Period            DateRange            `json:"period"`
	IncomeLines       []BudgetReportLine   `json:"income_lines"`
	ExpenseLines      []BudgetReportLine   `json:"expense_lines"`
	CombinedLines     []CombinedBudgetLine `json:"combined_lines"`
	UnbudgetedActuals []BudgetReportLine   `json:"unbudgeted_actuals"`
	IncomeSubtotal    BudgetSubtotal       `json:"income_subtotal"`
	ExpenseSubtotal   BudgetSubtotal       `json:"expense_subtotal"`
	CombinedNet       CombinedBudgetLine   `json:"combined_net"`
}

// BuildBudgetReport runs variance, unbudgeted detection and the combiner
// for one budget over a transaction snapshot.
//
// Sections hold the budgeted lines left unmatched by the combiner;
// subtotals cover those sections. Unmatched synthetic lines become
// UnbudgetedActuals sorted by actual descending.
func BuildBudgetReport(budget Budget, idx *CategoryIndex, txns []Transaction) BudgetReport {
	period := budget.Range()
	actuals := ActualsByCategory(txns, period)

	income, expense := BudgetVarianceLines(budget, idx, actuals)
	extraIncome, extraExpense := UnbudgetedLines(idx, actuals, idx.BudgetedCategorySet(budget.LineItems))

	combined := CombineBudgetLines(append(income, extraIncome...), append(expense, extraExpense...))

	report := BudgetReport{
		Budget:            budget,
		Period:            period,
		IncomeLines:       []BudgetReportLine{},
		ExpenseLines:      []BudgetReportLine{},
		CombinedLines:     combined.Combined,
		UnbudgetedActuals: []BudgetReportLine{},
	}
	if report.CombinedLines == nil {
		report.CombinedLines = []CombinedBudgetLine{}
	}

	for _, l := range combined.UnmatchedIncome {
		switch l.Origin {
		case OriginUnbudgetedActual:
			report.UnbudgetedActuals = append(report.UnbudgetedActuals, l)
		default:
			report.IncomeLines = append(report.IncomeLines, l)
		}
	}
	for _, l := range combined.UnmatchedExpense {
		switch l.Origin {
		case OriginUnbudgetedActual:
			report.UnbudgetedActuals = append(report.UnbudgetedActuals, l)
		default:
			report.ExpenseLines = append(report.ExpenseLines, l)
		}
	}
	sort.SliceStable(report.UnbudgetedActuals, func(i, j int) bool {
		return report.UnbudgetedActuals[i].Actual.GreaterThan(report.UnbudgetedActuals[j].Actual)
	})

	report.IncomeSubtotal = Subtotal(Income, report.IncomeLines)
	report.ExpenseSubtotal = Subtotal(Expense, report.ExpenseLines)
	report.CombinedNet = sumCombined(report.CombinedLines)
	return report
}

func sumCombined(lines []CombinedBudgetLine) CombinedBudgetLine {
	total := CombinedBudgetLine{CategoryName: "Total"}
	for _, l := range lines {
		total.IncomeBudgeted = total.IncomeBudgeted.Add(l.IncomeBudgeted)
		total.IncomeActual = total.IncomeActual.Add(l.IncomeActual)
		total.ExpenseBudgeted = total.ExpenseBudgeted.Add(l.ExpenseBudgeted)
		total.ExpenseActual = total.ExpenseActual.Add(l.ExpenseActual)
	}
	total.NetBudgeted = total.IncomeBudgeted.Sub(total.ExpenseBudgeted)
	total.NetActual = total.IncomeActual.Sub(total.ExpenseActual)
	return total
}
