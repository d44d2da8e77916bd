/*
dto.go - Data Transfer Objects for API responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine's records from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  Every amount is a decimal string with two places ("1234.50"). Clients
  must not round-trip money through floats.

DATES:
  Calendar days are "YYYY-MM-DD". Timestamps are RFC 3339.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/fundbooks/engine"
	"github.com/warp/fundbooks/report"
)

// =============================================================================
// ORGANIZATION & ACCOUNTS
// =============================================================================

type OrganizationDTO struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	FiscalYearStartMonth int    `json:"fiscal_year_start_month"`
}

type AccountDTO struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	AccountType    string `json:"account_type"`
	OpeningBalance string `json:"opening_balance"`
}

type StatusNetDTO struct {
	Uncleared  string `json:"uncleared"`
	Cleared    string `json:"cleared"`
	Reconciled string `json:"reconciled"`
	Total      string `json:"total"`
}

type AccountBalanceDTO struct {
	Account        AccountDTO   `json:"account"`
	CurrentBalance string       `json:"current_balance"`
	SettledBalance string       `json:"settled_balance"`
	ByStatus       StatusNetDTO `json:"by_status"`
}

type DashboardDTO struct {
	Organization OrganizationDTO     `json:"organization"`
	FiscalYear   PeriodDTO           `json:"fiscal_year"`
	Accounts     []AccountBalanceDTO `json:"accounts"`
	ByStatus     StatusNetDTO        `json:"by_status"`
	TotalBalance string              `json:"total_balance"`
	IncomeYTD    string              `json:"income_ytd"`
	ExpensesYTD  string              `json:"expenses_ytd"`
}

// =============================================================================
// PERIODS
// =============================================================================

type PeriodDTO struct {
	Preset  string `json:"preset,omitempty"`
	Start   string `json:"start"`
	End     string `json:"end"`
	Label   string `json:"label"`
	Display string `json:"display"`
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

type LineItemDTO struct {
	Category string `json:"category"`
	Amount   string `json:"amount"`
	Memo     string `json:"memo,omitempty"`
}

type TransactionDTO struct {
	ID          string        `json:"id"`
	AccountID   string        `json:"account_id"`
	Description string        `json:"description"`
	Date        string        `json:"date"`
	Amount      string        `json:"amount"`
	Type        string        `json:"type"`
	Status      string        `json:"status"`
	ClearedAt   *string       `json:"cleared_at,omitempty"`
	LineItems   []LineItemDTO `json:"line_items"`
	Balance     *string       `json:"balance,omitempty"`
}

type RegisterDTO struct {
	Account         AccountDTO       `json:"account"`
	Page            int              `json:"page"`
	PageSize        int              `json:"page_size"`
	TotalCount      int              `json:"total_count"`
	TotalPages      int              `json:"total_pages"`
	StartingBalance string           `json:"starting_balance"`
	EndingBalance   string           `json:"ending_balance"`
	Transactions    []TransactionDTO `json:"transactions"`
}

type ReconciliationDTO struct {
	Account          AccountDTO `json:"account"`
	StatementDate    string     `json:"statement_date"`
	StatementBalance string     `json:"statement_balance"`
	ClearedBalance   string     `json:"cleared_balance"`
	UnclearedNet     string     `json:"uncleared_net"`
	WorkingBalance   string     `json:"working_balance"`
	Difference       string     `json:"difference"`
	Balanced         bool       `json:"balanced"`
	ClearedCount     int        `json:"cleared_count"`
	UnclearedCount   int        `json:"uncleared_count"`
}

// =============================================================================
// SUMMARY
// =============================================================================

type CategoryTotalDTO struct {
	Name  string `json:"name"`
	Total string `json:"total"`
}

type CategorySummaryDTO struct {
	ParentName string             `json:"parent_name"`
	Children   []CategoryTotalDTO `json:"children"`
	Subtotal   string             `json:"subtotal"`
}

type SummaryDTO struct {
	Period             PeriodDTO            `json:"period"`
	StartingBalance    string               `json:"starting_balance"`
	EndingBalance      string               `json:"ending_balance"`
	TotalIncome        string               `json:"total_income"`
	TotalExpenses      string               `json:"total_expenses"`
	NetChange          string               `json:"net_change"`
	BalanceByStatus    StatusNetDTO         `json:"balance_by_status"`
	IncomeByCategory   []CategorySummaryDTO `json:"income_by_category"`
	ExpensesByCategory []CategorySummaryDTO `json:"expenses_by_category"`
	TransactionCount   int                  `json:"transaction_count"`
	Transactions       []TransactionDTO     `json:"transactions"`
}

// =============================================================================
// BUDGETS
// =============================================================================

type BudgetDTO struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Start  string `json:"start"`
	End    string `json:"end"`
	Status string `json:"status"`
}

type BudgetLineDTO struct {
	CategoryID      string  `json:"category_id"`
	CategoryName    string  `json:"category_name"`
	CategoryType    string  `json:"category_type"`
	Budgeted        string  `json:"budgeted"`
	Actual          string  `json:"actual"`
	Variance        string  `json:"variance"`
	VariancePercent *string `json:"variance_percent"`
	Origin          string  `json:"origin"`
}

type BudgetSubtotalDTO struct {
	Budgeted        string  `json:"budgeted"`
	Actual          string  `json:"actual"`
	Variance        string  `json:"variance"`
	VariancePercent *string `json:"variance_percent"`
}

type CombinedLineDTO struct {
	CategoryName    string `json:"category_name"`
	IncomeBudgeted  string `json:"income_budgeted"`
	IncomeActual    string `json:"income_actual"`
	ExpenseBudgeted string `json:"expense_budgeted"`
	ExpenseActual   string `json:"expense_actual"`
	NetBudgeted     string `json:"net_budgeted"`
	NetActual       string `json:"net_actual"`
}

type BudgetReportDTO struct {
	Budget            BudgetDTO         `json:"budget"`
	Period            PeriodDTO         `json:"period"`
	IncomeLines       []BudgetLineDTO   `json:"income_lines"`
	ExpenseLines      []BudgetLineDTO   `json:"expense_lines"`
	CombinedLines     []CombinedLineDTO `json:"combined_lines"`
	UnbudgetedActuals []BudgetLineDTO   `json:"unbudgeted_actuals"`
	IncomeSubtotal    BudgetSubtotalDTO `json:"income_subtotal"`
	ExpenseSubtotal   BudgetSubtotalDTO `json:"expense_subtotal"`
	CombinedNet       CombinedLineDTO   `json:"combined_net"`
}

// =============================================================================
// SCENARIOS & ERRORS
// =============================================================================

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

type LoadScenarioResponse struct {
	Scenario       ScenarioDTO  `json:"scenario"`
	OrganizationID string       `json:"organization_id"`
	Accounts       []AccountDTO `json:"accounts"`
	Budgets        []BudgetDTO  `json:"budgets"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func percent(p *decimal.Decimal) *string {
	if p == nil {
		return nil
	}
	s := p.StringFixed(1)
	return &s
}

func toOrganizationDTO(o engine.Organization) OrganizationDTO {
	return OrganizationDTO{ID: string(o.ID), Name: o.Name, FiscalYearStartMonth: o.FiscalYearStartMonth}
}

func toAccountDTO(a engine.Account) AccountDTO {
	return AccountDTO{
		ID:             string(a.ID),
		Name:           a.Name,
		AccountType:    a.AccountType,
		OpeningBalance: money(a.OpeningBalance),
	}
}

func toStatusNetDTO(s engine.StatusNet) StatusNetDTO {
	return StatusNetDTO{
		Uncleared:  money(s.Uncleared),
		Cleared:    money(s.Cleared),
		Reconciled: money(s.Reconciled),
		Total:      money(s.Total()),
	}
}

func toPeriodDTO(preset engine.PeriodPreset, r engine.DateRange) PeriodDTO {
	return PeriodDTO{
		Preset:  string(preset),
		Start:   r.Start.String(),
		End:     r.End.String(),
		Label:   r.Label,
		Display: r.Display(),
	}
}

func toDashboardDTO(d *report.Dashboard) DashboardDTO {
	dto := DashboardDTO{
		Organization: toOrganizationDTO(d.Organization),
		FiscalYear:   toPeriodDTO(engine.PresetFiscalYear, d.FiscalYear),
		Accounts:     make([]AccountBalanceDTO, 0, len(d.Accounts)),
		ByStatus:     toStatusNetDTO(d.ByStatus),
		TotalBalance: money(d.TotalBalance),
		IncomeYTD:    money(d.IncomeYTD),
		ExpensesYTD:  money(d.ExpensesYTD),
	}
	for _, a := range d.Accounts {
		dto.Accounts = append(dto.Accounts, AccountBalanceDTO{
			Account:        toAccountDTO(a.Account),
			CurrentBalance: money(a.CurrentBalance),
			SettledBalance: money(a.SettledBalance),
			ByStatus:       toStatusNetDTO(a.ByStatus),
		})
	}
	return dto
}

func toTransactionDTO(tx engine.ReportTransaction) TransactionDTO {
	dto := TransactionDTO{
		ID:          string(tx.ID),
		AccountID:   string(tx.AccountID),
		Description: tx.Description,
		Date:        tx.TransactionDate.String(),
		Amount:      money(tx.Amount),
		Type:        string(tx.Type),
		Status:      string(tx.Status),
		LineItems:   make([]LineItemDTO, 0, len(tx.Lines)),
	}
	if tx.ClearedAt != nil {
		s := tx.ClearedAt.UTC().Format(time.RFC3339)
		dto.ClearedAt = &s
	}
	for _, l := range tx.Lines {
		dto.LineItems = append(dto.LineItems, LineItemDTO{Category: l.CategoryLabel, Amount: money(l.Amount), Memo: l.Memo})
	}
	return dto
}

func toRegisterDTO(p *report.RegisterPage) RegisterDTO {
	dto := RegisterDTO{
		Account:         toAccountDTO(p.Account),
		Page:            p.Page,
		PageSize:        p.PageSize,
		TotalCount:      p.TotalCount,
		TotalPages:      p.TotalPages,
		StartingBalance: money(p.StartingBalance),
		EndingBalance:   money(p.EndingBalance),
		Transactions:    make([]TransactionDTO, 0, len(p.Rows)),
	}
	for _, row := range p.Rows {
		tx := toTransactionDTO(row.ReportTransaction)
		balance := money(row.Balance)
		tx.Balance = &balance
		dto.Transactions = append(dto.Transactions, tx)
	}
	return dto
}

func toReconciliationDTO(r *report.Reconciliation) ReconciliationDTO {
	return ReconciliationDTO{
		Account:          toAccountDTO(r.Account),
		StatementDate:    r.StatementDate.String(),
		StatementBalance: money(r.StatementBalance),
		ClearedBalance:   money(r.ClearedBalance),
		UnclearedNet:     money(r.UnclearedNet),
		WorkingBalance:   money(r.WorkingBalance),
		Difference:       money(r.Difference),
		Balanced:         r.Balanced,
		ClearedCount:     r.ClearedCount,
		UnclearedCount:   r.UnclearedCount,
	}
}

func toCategorySummaryDTOs(groups []engine.CategorySummary) []CategorySummaryDTO {
	out := make([]CategorySummaryDTO, 0, len(groups))
	for _, g := range groups {
		dto := CategorySummaryDTO{ParentName: g.ParentName, Subtotal: money(g.Subtotal)}
		for _, c := range g.Children {
			dto.Children = append(dto.Children, CategoryTotalDTO{Name: c.Name, Total: money(c.Total)})
		}
		out = append(out, dto)
	}
	return out
}

func toSummaryDTO(preset engine.PeriodPreset, r *report.SummaryReport) SummaryDTO {
	dto := SummaryDTO{
		Period:             toPeriodDTO(preset, r.Period),
		StartingBalance:    money(r.StartingBalance),
		EndingBalance:      money(r.EndingBalance),
		TotalIncome:        money(r.Summary.TotalIncome),
		TotalExpenses:      money(r.Summary.TotalExpenses),
		NetChange:          money(r.Summary.NetChange),
		BalanceByStatus:    toStatusNetDTO(r.Summary.BalanceByStatus),
		IncomeByCategory:   toCategorySummaryDTOs(r.Summary.IncomeByCategory),
		ExpensesByCategory: toCategorySummaryDTOs(r.Summary.ExpensesByCategory),
		TransactionCount:   r.Summary.TransactionCount,
		Transactions:       make([]TransactionDTO, 0, len(r.Transactions)),
	}
	for _, tx := range r.Transactions {
		dto.Transactions = append(dto.Transactions, toTransactionDTO(tx))
	}
	return dto
}

func toBudgetDTO(b engine.Budget) BudgetDTO {
	return BudgetDTO{
		ID:     string(b.ID),
		Name:   b.Name,
		Start:  b.StartDate.String(),
		End:    b.EndDate.String(),
		Status: string(b.Status),
	}
}

func toBudgetLineDTOs(lines []engine.BudgetReportLine) []BudgetLineDTO {
	out := make([]BudgetLineDTO, 0, len(lines))
	for _, l := range lines {
		out = append(out, BudgetLineDTO{
			CategoryID:      string(l.CategoryID),
			CategoryName:    l.CategoryName,
			CategoryType:    string(l.CategoryType),
			Budgeted:        money(l.Budgeted),
			Actual:          money(l.Actual),
			Variance:        money(l.Variance),
			VariancePercent: percent(l.VariancePercent),
			Origin:          string(l.Origin),
		})
	}
	return out
}

func toSubtotalDTO(s engine.BudgetSubtotal) BudgetSubtotalDTO {
	return BudgetSubtotalDTO{
		Budgeted:        money(s.Budgeted),
		Actual:          money(s.Actual),
		Variance:        money(s.Variance),
		VariancePercent: percent(s.VariancePercent),
	}
}

func toCombinedLineDTO(l engine.CombinedBudgetLine) CombinedLineDTO {
	return CombinedLineDTO{
		CategoryName:    l.CategoryName,
		IncomeBudgeted:  money(l.IncomeBudgeted),
		IncomeActual:    money(l.IncomeActual),
		ExpenseBudgeted: money(l.ExpenseBudgeted),
		ExpenseActual:   money(l.ExpenseActual),
		NetBudgeted:     money(l.NetBudgeted),
		NetActual:       money(l.NetActual),
	}
}

func toBudgetReportDTO(r *engine.BudgetReport) BudgetReportDTO {
	dto := BudgetReportDTO{
		Budget:            toBudgetDTO(r.Budget),
		Period:            toPeriodDTO("", r.Period),
		IncomeLines:       toBudgetLineDTOs(r.IncomeLines),
		ExpenseLines:      toBudgetLineDTOs(r.ExpenseLines),
		CombinedLines:     make([]CombinedLineDTO, 0, len(r.CombinedLines)),
		UnbudgetedActuals: toBudgetLineDTOs(r.UnbudgetedActuals),
		IncomeSubtotal:    toSubtotalDTO(r.IncomeSubtotal),
		ExpenseSubtotal:   toSubtotalDTO(r.ExpenseSubtotal),
		CombinedNet:       toCombinedLineDTO(r.CombinedNet),
	}
	for _, l := range r.CombinedLines {
		dto.CombinedLines = append(dto.CombinedLines, toCombinedLineDTO(l))
	}
	return dto
}
