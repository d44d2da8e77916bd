package engine

import (
	"sort"

	"github.com/shopspring/decimal"
)

// RootChildName is the synthetic child a root category's own activity is
// listed under.
const RootChildName = "(root)"

// =============================================================================
// LABELED TRANSACTIONS - Line items as the presentation layer sees them
// =============================================================================

// LabeledLineItem is a line item whose category has been rendered to its
// display label.
type LabeledLineItem struct {
	CategoryLabel string          `json:"category"`
	Amount        decimal.Decimal `json:"amount"`
	Memo          string          `json:"memo,omitempty"`
}

// ReportTransaction is a transaction with labeled line items.
type ReportTransaction struct {
	Transaction
	Lines []LabeledLineItem
}

// LabelTransactions renders every line item's category label.
func (idx *CategoryIndex) LabelTransactions(txns []Transaction) []ReportTransaction {
	out := make([]ReportTransaction, len(txns))
	for i, tx := range txns {
		lines := make([]LabeledLineItem, len(tx.LineItems))
		for j, li := range tx.LineItems {
			lines[j] = LabeledLineItem{
				CategoryLabel: idx.ResolveLabel(li.CategoryID),
				Amount:        li.Amount,
				Memo:          li.Memo,
			}
		}
		out[i] = ReportTransaction{Transaction: tx, Lines: lines}
	}
	return out
}

// =============================================================================
// CATEGORY SUMMARIES
// =============================================================================

type CategoryTotal struct {
	Name  string          `json:"name"`
	Total decimal.Decimal `json:"total"`
}

// CategorySummary is a parent group: its children sorted by name and their
// subtotal.
type CategorySummary struct {
	ParentName string          `json:"parent_name"`
	Children   []CategoryTotal `json:"children"`
	Subtotal   decimal.Decimal `json:"subtotal"`
}

// BuildCategorySummaries groups per-category totals by parent name. A
// child contributes under its parent's name; a root (or an id the index
// doesn't know) is its own group with a single "(root)" child. Groups and
// children are sorted alphabetically.
func BuildCategorySummaries(totals map[CategoryID]decimal.Decimal, idx *CategoryIndex) []CategorySummary {
	groups := make(map[string]map[string]decimal.Decimal)
	add := func(parent, child string, amount decimal.Decimal) {
		if groups[parent] == nil {
			groups[parent] = make(map[string]decimal.Decimal)
		}
		groups[parent][child] = groups[parent][child].Add(amount)
	}

	for id, amount := range totals {
		c, known := idx.Get(id)
		if !known {
			add(UnknownLabel, RootChildName, amount)
			continue
		}
		if parent, ok := idx.Parent(id); ok {
			add(parent.Meta().Name, c.Meta().Name, amount)
			continue
		}
		add(c.Meta().Name, RootChildName, amount)
	}

	summaries := make([]CategorySummary, 0, len(groups))
	for parent, children := range groups {
		s := CategorySummary{ParentName: parent, Subtotal: decimal.Zero}
		for name, total := range children {
			s.Children = append(s.Children, CategoryTotal{Name: name, Total: total})
			s.Subtotal = s.Subtotal.Add(total)
		}
		sort.Slice(s.Children, func(i, j int) bool { return s.Children[i].Name < s.Children[j].Name })
		summaries = append(summaries, s)
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].ParentName < summaries[j].ParentName })
	return summaries
}

// =============================================================================
// REPORT SUMMARY
// =============================================================================

type ReportSummary struct {
	TotalIncome        decimal.Decimal   `json:"total_income"`
	TotalExpenses      decimal.Decimal   `json:"total_expenses"`
	NetChange          decimal.Decimal   `json:"net_change"`
	BalanceByStatus    StatusNet         `json:"balance_by_status"`
	IncomeByCategory   []CategorySummary `json:"income_by_category"`
	ExpensesByCategory []CategorySummary `json:"expenses_by_category"`
	TransactionCount   int               `json:"transaction_count"`
}

// ComputeSummary aggregates a filtered transaction list. Line items carry
// labels at this stage, so each label goes back through FindIDByLabel
// before grouping.
func ComputeSummary(txns []ReportTransaction, idx *CategoryIndex) ReportSummary {
	summary := ReportSummary{
		TotalIncome:      decimal.Zero,
		TotalExpenses:    decimal.Zero,
		TransactionCount: len(txns),
	}
	incomeTotals := make(map[CategoryID]decimal.Decimal)
	expenseTotals := make(map[CategoryID]decimal.Decimal)
	plain := make([]Transaction, len(txns))

	for i, tx := range txns {
		plain[i] = tx.Transaction
		totals := expenseTotals
		switch tx.Type {
		case Income:
			summary.TotalIncome = summary.TotalIncome.Add(tx.Amount)
			totals = incomeTotals
		case Expense:
			summary.TotalExpenses = summary.TotalExpenses.Add(tx.Amount)
		default:
			continue
		}
		for _, line := range tx.Lines {
			id := idx.FindIDByLabel(line.CategoryLabel)
			totals[id] = totals[id].Add(line.Amount)
		}
	}

	summary.NetChange = summary.TotalIncome.Sub(summary.TotalExpenses)
	summary.BalanceByStatus = StatusBucketedNet(plain)
	summary.IncomeByCategory = BuildCategorySummaries(incomeTotals, idx)
	summary.ExpensesByCategory = BuildCategorySummaries(expenseTotals, idx)
	return summary
}
