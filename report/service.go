/*
Package report runs one report against a store snapshot.

PURPOSE:
  The engine is pure: it takes records and returns numbers. This package
  is the orchestration layer that fetches the records a report needs,
  builds the category index once, and calls the engine.

  ┌──────────┐   snapshot   ┌─────────┐   records   ┌────────┐
  │  Store   │ ───────────▶ │ Service │ ──────────▶ │ engine │
  └──────────┘  (errgroup)  └─────────┘             └────────┘

REPORTS:
  Dashboard:       Per-account balances and org-wide status buckets
  Register:        Filtered, paged account register with running balances
  Reconciliation:  Book vs. bank statement for one account
  Summary:         Income/expense totals by category for a period
  BudgetReport:    Budget vs. actual with combined lines
  Periods:         Every preset range for the organization

CONCURRENCY:
  Independent queries of one report run in parallel through errgroup.
  The first error cancels the rest.

SEE ALSO:
  - engine/: The calculations
  - api/handlers.go: HTTP surface
*/
package report

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/warp/fundbooks/engine"
)

// DefaultPageSize is used when a register query doesn't set one.
const DefaultPageSize = 50

// Service produces reports from a Store.
type Service struct {
	store engine.Store
	today func() engine.Date
}

// NewService creates a report service over store.
func NewService(store engine.Store) *Service {
	return &Service{store: store, today: engine.Today}
}

// =============================================================================
// SNAPSHOT HELPERS
// =============================================================================

func (s *Service) loadIndex(ctx context.Context, orgID engine.OrganizationID) (*engine.CategoryIndex, error) {
	rows, err := s.store.ListCategories(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	idx, err := engine.NewCategoryIndexFromRows(rows)
	if err != nil {
		return nil, fmt.Errorf("build category index: %w", err)
	}
	for _, c := range idx.Collisions() {
		log.Ctx(ctx).Warn().
			Str("org_id", string(orgID)).
			Str("label", c.Label).
			Str("kept", string(c.Kept)).
			Str("shadowed", string(c.Shadowed)).
			Msg("category label collision")
	}
	return idx, nil
}

func (s *Service) calendar(ctx context.Context, orgID engine.OrganizationID) (*engine.Organization, engine.FiscalCalendar, error) {
	org, err := s.store.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, engine.FiscalCalendar{}, fmt.Errorf("get organization: %w", err)
	}
	fc, err := engine.NewFiscalCalendar(org.FiscalYearStartMonth)
	if err != nil {
		return nil, engine.FiscalCalendar{}, fmt.Errorf("%w: organization %s: %w", engine.ErrInvalidStoredData, orgID, err)
	}
	return org, fc, nil
}

func openingTotal(accounts []engine.Account, accountID engine.AccountID) decimal.Decimal {
	total := decimal.Zero
	for _, a := range accounts {
		if accountID == "" || a.ID == accountID {
			total = total.Add(a.OpeningBalance)
		}
	}
	return total
}

// =============================================================================
// DASHBOARD
// =============================================================================

// AccountBalance is one account row of the dashboard.
type AccountBalance struct {
	Account        engine.Account
	CurrentBalance decimal.Decimal // opening + every transaction
	SettledBalance decimal.Decimal // opening + cleared + reconciled
	ByStatus       engine.StatusNet
}

type Dashboard struct {
	Organization engine.Organization
	FiscalYear   engine.DateRange
	Accounts     []AccountBalance
	ByStatus     engine.StatusNet
	TotalBalance decimal.Decimal
	IncomeYTD    decimal.Decimal
	ExpensesYTD  decimal.Decimal
}

// Dashboard summarizes every account of the organization.
func (s *Service) Dashboard(ctx context.Context, orgID engine.OrganizationID) (*Dashboard, error) {
	var (
		org      *engine.Organization
		fc       engine.FiscalCalendar
		accounts []engine.Account
		txns     []engine.Transaction
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		org, fc, err = s.calendar(gctx, orgID)
		return err
	})
	g.Go(func() (err error) {
		accounts, err = s.store.ListAccounts(gctx, orgID)
		return err
	})
	g.Go(func() (err error) {
		txns, err = s.store.ListTransactions(gctx, orgID, engine.TransactionFilter{})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ytd := fc.FiscalYTDRange(s.today())
	d := &Dashboard{
		Organization: *org,
		FiscalYear:   fc.FiscalYearRange(s.today()),
		Accounts:     make([]AccountBalance, 0, len(accounts)),
		ByStatus:     engine.StatusBucketedNet(txns),
		TotalBalance: decimal.Zero,
		IncomeYTD:    decimal.Zero,
		ExpensesYTD:  decimal.Zero,
	}

	for _, a := range accounts {
		own := engine.TransactionFilter{AccountID: a.ID}.Apply(txns)
		byStatus := engine.StatusBucketedNet(own)
		row := AccountBalance{
			Account:        a,
			CurrentBalance: a.OpeningBalance.Add(engine.NetChange(own)),
			SettledBalance: a.OpeningBalance.Add(byStatus.Settled()),
			ByStatus:       byStatus,
		}
		d.Accounts = append(d.Accounts, row)
		d.TotalBalance = d.TotalBalance.Add(row.CurrentBalance)
	}

	for _, tx := range txns {
		if !ytd.Contains(tx.TransactionDate) {
			continue
		}
		switch tx.Type {
		case engine.Income:
			d.IncomeYTD = d.IncomeYTD.Add(tx.Amount)
		case engine.Expense:
			d.ExpensesYTD = d.ExpensesYTD.Add(tx.Amount)
		}
	}
	return d, nil
}

// =============================================================================
// REGISTER
// =============================================================================

// RegisterQuery selects one page of an account register. Filter.AccountID
// is overridden by the account being viewed.
type RegisterQuery struct {
	Filter   engine.TransactionFilter
	Page     int // 1-based
	PageSize int
}

type RegisterRow struct {
	engine.ReportTransaction
	Balance decimal.Decimal
}

type RegisterPage struct {
	Account         engine.Account
	Page            int
	PageSize        int
	TotalCount      int
	TotalPages      int
	StartingBalance decimal.Decimal
	EndingBalance   decimal.Decimal
	Rows            []RegisterRow
}

// Register returns one page of an account's filtered register. The
// starting balance folds every matching transaction that sorts before the
// page, so running balances agree with the rows a user can see.
func (s *Service) Register(ctx context.Context, orgID engine.OrganizationID, accountID engine.AccountID, q RegisterQuery) (*RegisterPage, error) {
	q.Filter.AccountID = accountID
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}

	var (
		account *engine.Account
		idx     *engine.CategoryIndex
		txns    []engine.Transaction
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		account, err = s.store.GetAccount(gctx, orgID, accountID)
		return err
	})
	g.Go(func() (err error) {
		idx, err = s.loadIndex(gctx, orgID)
		return err
	})
	g.Go(func() (err error) {
		txns, err = s.store.ListTransactions(gctx, orgID, q.Filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	page := &RegisterPage{
		Account:    *account,
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalCount: len(txns),
		TotalPages: (len(txns) + q.PageSize - 1) / q.PageSize,
		Rows:       []RegisterRow{},
	}

	offset := (q.Page - 1) * q.PageSize
	if offset >= len(txns) {
		page.StartingBalance = account.OpeningBalance.Add(engine.NetChange(txns))
		page.EndingBalance = page.StartingBalance
		return page, nil
	}
	end := offset + q.PageSize
	if end > len(txns) {
		end = len(txns)
	}
	rows := txns[offset:end]

	page.StartingBalance = engine.PageStartingBalance(account.OpeningBalance, txns, q.Filter, rows[0].Key())
	balances := engine.RunningBalances(page.StartingBalance, rows)
	page.EndingBalance = page.StartingBalance.Add(engine.NetChange(rows))

	for _, rt := range idx.LabelTransactions(rows) {
		page.Rows = append(page.Rows, RegisterRow{ReportTransaction: rt, Balance: balances[rt.ID]})
	}

	log.Ctx(ctx).Debug().
		Str("account_id", string(accountID)).
		Int("page", q.Page).
		Int("rows", len(page.Rows)).
		Msg("register page built")
	return page, nil
}

// =============================================================================
// RECONCILIATION
// =============================================================================

type Reconciliation struct {
	Account engine.Account
	engine.ReconciliationStatement
}

// Reconciliation compares an account's cleared balance with a bank
// statement balance as of statementDate.
func (s *Service) Reconciliation(ctx context.Context, orgID engine.OrganizationID, accountID engine.AccountID, statementDate engine.Date, statementBalance decimal.Decimal) (*Reconciliation, error) {
	var (
		account *engine.Account
		txns    []engine.Transaction
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		account, err = s.store.GetAccount(gctx, orgID, accountID)
		return err
	})
	g.Go(func() (err error) {
		txns, err = s.store.ListTransactions(gctx, orgID, engine.TransactionFilter{AccountID: accountID})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rs := engine.Reconcile(account.OpeningBalance, txns, statementDate, statementBalance)
	if !rs.Balanced {
		log.Ctx(ctx).Info().
			Str("account_id", string(accountID)).
			Str("difference", rs.Difference.StringFixed(2)).
			Msg("reconciliation out of balance")
	}
	return &Reconciliation{Account: *account, ReconciliationStatement: rs}, nil
}

// =============================================================================
// SUMMARY
// =============================================================================

// SummaryQuery picks the period (a preset, or a custom From/To) and the
// filters. Ref defaults to today.
type SummaryQuery struct {
	Preset    engine.PeriodPreset
	From      engine.Date
	To        engine.Date
	Ref       engine.Date
	AccountID engine.AccountID
	Statuses  []engine.Status
	Type      engine.TransactionType
}

type SummaryReport struct {
	Period          engine.DateRange
	Summary         engine.ReportSummary
	StartingBalance decimal.Decimal
	EndingBalance   decimal.Decimal
	Transactions    []engine.ReportTransaction
}

// resolvePeriod turns a query into a concrete range.
func resolvePeriod(fc engine.FiscalCalendar, q SummaryQuery, today engine.Date) (engine.DateRange, error) {
	if !q.From.IsZero() || !q.To.IsZero() {
		if q.From.IsZero() || q.To.IsZero() {
			return engine.DateRange{}, fmt.Errorf("%w: custom range needs both from and to", engine.ErrInvalidPeriod)
		}
		r := engine.DateRange{Start: q.From, End: q.To, Label: "Custom"}
		return r, r.Validate()
	}
	preset := q.Preset
	if preset == "" {
		preset = engine.PresetFiscalYear
	}
	ref := q.Ref
	if ref.IsZero() {
		ref = today
	}
	return fc.Resolve(preset, ref)
}

// Summary aggregates the period's transactions. Starting and ending
// balances are settled balances at the period bounds (by cleared_at).
func (s *Service) Summary(ctx context.Context, orgID engine.OrganizationID, q SummaryQuery) (*SummaryReport, error) {
	var (
		fc       engine.FiscalCalendar
		idx      *engine.CategoryIndex
		accounts []engine.Account
		txns     []engine.Transaction
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		_, fc, err = s.calendar(gctx, orgID)
		return err
	})
	g.Go(func() (err error) {
		idx, err = s.loadIndex(gctx, orgID)
		return err
	})
	g.Go(func() (err error) {
		accounts, err = s.store.ListAccounts(gctx, orgID)
		return err
	})
	g.Go(func() (err error) {
		txns, err = s.store.ListTransactions(gctx, orgID, engine.TransactionFilter{AccountID: q.AccountID})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	period, err := resolvePeriod(fc, q, s.today())
	if err != nil {
		return nil, err
	}

	filter := engine.TransactionFilter{
		AccountID: q.AccountID,
		From:      period.Start,
		To:        period.End,
		Statuses:  q.Statuses,
		Type:      q.Type,
	}
	labeled := idx.LabelTransactions(filter.Apply(txns))
	opening := openingTotal(accounts, q.AccountID)

	return &SummaryReport{
		Period:          period,
		Summary:         engine.ComputeSummary(labeled, idx),
		StartingBalance: engine.PeriodStartingBalance(opening, txns, period.Start),
		EndingBalance:   engine.PeriodEndingBalance(opening, txns, period.End),
		Transactions:    labeled,
	}, nil
}

// =============================================================================
// BUDGETS
// =============================================================================

// Budgets lists the organization's budgets without line items.
func (s *Service) Budgets(ctx context.Context, orgID engine.OrganizationID) ([]engine.Budget, error) {
	if _, err := s.store.GetOrganization(ctx, orgID); err != nil {
		return nil, fmt.Errorf("get organization: %w", err)
	}
	return s.store.ListBudgets(ctx, orgID)
}

// BudgetReport compares a budget with the actuals posted in its range.
func (s *Service) BudgetReport(ctx context.Context, orgID engine.OrganizationID, budgetID engine.BudgetID) (*engine.BudgetReport, error) {
	var (
		budget *engine.Budget
		idx    *engine.CategoryIndex
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		budget, err = s.store.GetBudget(gctx, orgID, budgetID)
		return err
	})
	g.Go(func() (err error) {
		idx, err = s.loadIndex(gctx, orgID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	period := budget.Range()
	if err := period.Validate(); err != nil {
		return nil, fmt.Errorf("%w: budget %s: %w", engine.ErrInvalidStoredData, budgetID, err)
	}
	txns, err := s.store.ListTransactions(ctx, orgID, engine.TransactionFilter{From: period.Start, To: period.End})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	report := engine.BuildBudgetReport(*budget, idx, txns)
	log.Ctx(ctx).Debug().
		Str("budget_id", string(budgetID)).
		Int("combined", len(report.CombinedLines)).
		Int("unbudgeted", len(report.UnbudgetedActuals)).
		Msg("budget report built")
	return &report, nil
}

// =============================================================================
// PERIODS
// =============================================================================

// Periods resolves every preset for ref (today when zero).
func (s *Service) Periods(ctx context.Context, orgID engine.OrganizationID, ref engine.Date) ([]engine.NamedRange, error) {
	_, fc, err := s.calendar(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if ref.IsZero() {
		ref = s.today()
	}
	return fc.All(ref), nil
}
