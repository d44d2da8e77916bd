/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built organizations that populate the database with
	realistic bookkeeping data, so every report endpoint has something to
	show. Dates are relative to the load day so the current fiscal year is
	never empty.

AVAILABLE SCENARIOS:

	food-bank:  July fiscal year, two accounts, nested categories, a
	            "Grants" category on both sides (combined budget line),
	            an inactive child with activity (unbudgeted actual)
	shelter:    Calendar fiscal year, one account, small budget

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create organization, accounts and categories
 3. Post transactions; older ones are reconciled, recent ones uncleared
 4. Create a budget for the current fiscal year

IDS:

	Organization ids are the scenario id. Accounts, categories and
	budgets get name-based UUIDs (stable across loads); transactions get
	random UUIDs.

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "food-bank"}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Report endpoints
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/warp/fundbooks/engine"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "food-bank",
		Name:        "Food Bank",
		Description: "July fiscal year, checking + savings, grants on both sides of the budget",
	},
	{
		ID:          "shelter",
		Name:        "Family Shelter",
		Description: "Calendar fiscal year, one account, unbudgeted fundraising costs",
	},
}

var scenarioLoaders = map[string]func(*seeder){
	"food-bank": seedFoodBank,
	"shelter":   seedShelter,
}

// ErrUnknownScenario is returned by Seed for an unregistered scenario id.
var ErrUnknownScenario = fmt.Errorf("%w: unknown scenario", errBadRequest)

// =============================================================================
// HANDLERS
// =============================================================================

// ListScenarios returns all available demo scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the id of the last loaded scenario.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	writeJSON(w, http.StatusOK, map[string]string{"scenario_id": h.currentScenario})
}

// LoadScenario resets the database and loads a scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	resp, err := h.Seed(r.Context(), req.ScenarioID, engine.Today())
	if err != nil {
		respondError(w, r, "Failed to load scenario", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		respondError(w, r, "Failed to reset database", err)
		return
	}

	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Seed resets the store and loads the scenario with dates relative to today.
func (h *Handler) Seed(ctx context.Context, scenarioID string, today engine.Date) (*LoadScenarioResponse, error) {
	load, ok := scenarioLoaders[scenarioID]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownScenario, scenarioID)
	}

	if err := h.Store.Reset(ctx); err != nil {
		return nil, fmt.Errorf("reset: %w", err)
	}

	s := &seeder{
		ctx:        ctx,
		store:      h.Store,
		scenario:   scenarioID,
		org:        engine.OrganizationID(scenarioID),
		today:      today,
		categories: make(map[string]engine.CategoryID),
		accounts:   make(map[string]engine.AccountID),
	}
	load(s)
	if s.err != nil {
		return nil, fmt.Errorf("seed %s: %w", scenarioID, s.err)
	}

	h.mu.Lock()
	h.currentScenario = scenarioID
	h.mu.Unlock()

	log.Ctx(ctx).Info().
		Str("scenario", scenarioID).
		Int("transactions", s.txCount).
		Msg("scenario loaded")

	resp := &LoadScenarioResponse{OrganizationID: string(s.org)}
	for _, sc := range scenarios {
		if sc.ID == scenarioID {
			resp.Scenario = sc
		}
	}

	accounts, err := h.Store.ListAccounts(ctx, s.org)
	if err != nil {
		return nil, err
	}
	for _, a := range accounts {
		resp.Accounts = append(resp.Accounts, toAccountDTO(a))
	}
	budgets, err := h.Store.ListBudgets(ctx, s.org)
	if err != nil {
		return nil, err
	}
	for _, b := range budgets {
		resp.Budgets = append(resp.Budgets, toBudgetDTO(b))
	}
	return resp, nil
}

// =============================================================================
// SEEDER - Stops at the first error; check s.err once at the end
// =============================================================================

type seeder struct {
	ctx      context.Context
	store    Store
	scenario string
	org      engine.OrganizationID
	today    engine.Date
	fc       engine.FiscalCalendar

	categories map[string]engine.CategoryID
	accounts   map[string]engine.AccountID
	txCount    int
	err        error
}

type split struct {
	category string
	amount   string
	memo     string
}

func (s *seeder) id(kind, key string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("fundbooks/"+s.scenario+"/"+kind+"/"+key)).String()
}

func (s *seeder) organization(name string, fiscalStartMonth int) {
	if s.err != nil {
		return
	}
	if s.fc, s.err = engine.NewFiscalCalendar(fiscalStartMonth); s.err != nil {
		return
	}
	s.err = s.store.SaveOrganization(s.ctx, engine.Organization{ID: s.org, Name: name, FiscalYearStartMonth: fiscalStartMonth})
}

func (s *seeder) account(key, name, accountType, opening string) {
	if s.err != nil {
		return
	}
	id := engine.AccountID(s.id("account", key))
	s.accounts[key] = id
	s.err = s.store.SaveAccount(s.ctx, engine.Account{
		ID:             id,
		OrganizationID: s.org,
		Name:           name,
		AccountType:    accountType,
		OpeningBalance: decimal.RequireFromString(opening),
	})
}

// category creates a root when parent is empty.
func (s *seeder) category(key, name string, t engine.TransactionType, parent string, active bool) {
	if s.err != nil {
		return
	}
	id := engine.CategoryID(s.id("category", key))
	s.categories[key] = id
	row := engine.CategoryRow{ID: id, Name: name, Type: t, IsActive: active}
	if parent != "" {
		pid, ok := s.categories[parent]
		if !ok {
			s.err = fmt.Errorf("category %s: parent %s not seeded", key, parent)
			return
		}
		row.ParentID = &pid
	}
	s.err = s.store.SaveCategory(s.ctx, s.org, row)
}

// txn posts a transaction daysAgo days before today. Older activity is
// reconciled, the last week is still uncleared.
func (s *seeder) txn(account string, daysAgo int, desc string, t engine.TransactionType, splits ...split) {
	if s.err != nil {
		return
	}
	date := s.today.AddDays(-daysAgo)
	id := engine.TransactionID(uuid.NewString())

	tx := engine.Transaction{
		ID:              id,
		OrganizationID:  s.org,
		AccountID:       s.accounts[account],
		Description:     desc,
		TransactionDate: date,
		CreatedAt:       date.Time().Add(9*time.Hour + time.Duration(s.txCount)*time.Minute),
		Amount:          decimal.Zero,
		Type:            t,
		Status:          engine.StatusUncleared,
	}
	for _, sp := range splits {
		cat, ok := s.categories[sp.category]
		if !ok {
			s.err = fmt.Errorf("transaction %q: category %s not seeded", desc, sp.category)
			return
		}
		amount := decimal.RequireFromString(sp.amount)
		tx.Amount = tx.Amount.Add(amount)
		tx.LineItems = append(tx.LineItems, engine.LineItem{TransactionID: id, CategoryID: cat, Amount: amount, Memo: sp.memo})
	}

	switch {
	case daysAgo > 45:
		tx.Status = engine.StatusReconciled
	case daysAgo > 7:
		tx.Status = engine.StatusCleared
	}
	if tx.Status.Settled() {
		cleared := date.AddDays(2).Time().Add(12 * time.Hour)
		tx.ClearedAt = &cleared
	}

	s.txCount++
	s.err = s.store.SaveTransaction(s.ctx, tx)
}

// budget creates a budget for the current fiscal year.
func (s *seeder) budget(key string, lines ...split) {
	if s.err != nil {
		return
	}
	fy := s.fc.FiscalYearRange(s.today)
	b := engine.Budget{
		ID:             engine.BudgetID(s.id("budget", key)),
		OrganizationID: s.org,
		Name:           fy.Label + " Operating Budget",
		StartDate:      fy.Start,
		EndDate:        fy.End,
		Status:         engine.BudgetActive,
	}
	for _, l := range lines {
		b.LineItems = append(b.LineItems, engine.BudgetLineItem{
			CategoryID: s.categories[l.category],
			Amount:     decimal.RequireFromString(l.amount),
			Notes:      l.memo,
		})
	}
	s.err = s.store.SaveBudget(s.ctx, b)
}

// =============================================================================
// SCENARIOS
// =============================================================================

func seedFoodBank(s *seeder) {
	s.organization("Riverside Food Bank", 7)

	s.account("checking", "Operating Checking", "checking", "25000.00")
	s.account("savings", "Reserve Savings", "savings", "10000.00")

	s.category("grants-in", "Grants", engine.Income, "", true)
	s.category("federal", "Federal", engine.Income, "grants-in", true)
	s.category("foundation", "Foundation", engine.Income, "grants-in", true)
	s.category("donations", "Donations", engine.Income, "", true)
	s.category("individual", "Individual", engine.Income, "donations", true)
	s.category("corporate", "Corporate", engine.Income, "donations", true)
	s.category("events", "Events", engine.Income, "", true)
	// Sub-grants to partner pantries share the "Grants" name.
	s.category("grants-out", "Grants", engine.Expense, "", true)
	s.category("program", "Program", engine.Expense, "", true)
	s.category("food", "Food", engine.Expense, "program", true)
	s.category("transport", "Transport", engine.Expense, "program", true)
	s.category("operations", "Operations", engine.Expense, "", true)
	s.category("rent", "Rent", engine.Expense, "operations", true)
	s.category("utilities", "Utilities", engine.Expense, "operations", true)
	s.category("supplies", "Supplies", engine.Expense, "operations", false)

	s.txn("checking", 200, "USDA TEFAP reimbursement", engine.Income, split{category: "federal", amount: "15000.00"})
	s.txn("checking", 170, "Community foundation grant", engine.Income, split{category: "foundation", amount: "8000.00"})
	s.txn("checking", 150, "Warehouse rent", engine.Expense, split{category: "rent", amount: "2500.00"})
	s.txn("checking", 140, "Food purchase and delivery", engine.Expense,
		split{category: "food", amount: "3200.00"},
		split{category: "transport", amount: "450.00", memo: "refrigerated truck"},
	)
	s.txn("checking", 120, "Online giving", engine.Income, split{category: "individual", amount: "1250.00"})
	s.txn("checking", 110, "Partner pantry sub-grant", engine.Expense, split{category: "grants-out", amount: "1500.00"})
	s.txn("savings", 90, "Grocer sponsorship", engine.Income, split{category: "corporate", amount: "5000.00"})
	s.txn("checking", 80, "Electric & water", engine.Expense, split{category: "utilities", amount: "640.00"})
	s.txn("checking", 60, "Warehouse rent", engine.Expense, split{category: "rent", amount: "2500.00"})
	s.txn("checking", 50, "Spring gala", engine.Income, split{category: "events", amount: "3400.00"})
	s.txn("checking", 40, "Shelving", engine.Expense, split{category: "supplies", amount: "180.00"})
	s.txn("checking", 30, "Produce order", engine.Expense, split{category: "food", amount: "2800.00"})
	s.txn("checking", 20, "Online giving", engine.Income, split{category: "individual", amount: "900.00"})
	s.txn("checking", 12, "Partner pantry sub-grant", engine.Expense, split{category: "grants-out", amount: "750.00"})
	s.txn("checking", 5, "Van fuel", engine.Expense, split{category: "transport", amount: "320.00"})
	s.txn("checking", 2, "TEFAP quarterly reimbursement", engine.Income, split{category: "federal", amount: "4000.00"})

	s.budget("operating",
		split{category: "grants-in", amount: "30000.00"},
		split{category: "donations", amount: "8000.00"},
		split{category: "grants-out", amount: "3000.00"},
		split{category: "program", amount: "40000.00"},
		split{category: "operations", amount: "36000.00", memo: "rent and utilities"},
	)
}

func seedShelter(s *seeder) {
	s.organization("Harbor Family Shelter", 1)

	s.account("checking", "Checking", "checking", "4000.00")

	s.category("contributions", "Contributions", engine.Income, "", true)
	s.category("services", "Shelter Services", engine.Expense, "", true)
	s.category("beds", "Beds", engine.Expense, "services", true)
	s.category("meals", "Meals", engine.Expense, "services", true)
	s.category("fundraising", "Fundraising", engine.Expense, "", true)

	s.txn("checking", 75, "Church partnership", engine.Income, split{category: "contributions", amount: "6000.00"})
	s.txn("checking", 60, "Bed linens", engine.Expense, split{category: "beds", amount: "1800.00"})
	s.txn("checking", 45, "Kitchen supplies", engine.Expense, split{category: "meals", amount: "950.00"})
	s.txn("checking", 30, "Mailer printing", engine.Expense, split{category: "fundraising", amount: "400.00"})
	s.txn("checking", 10, "Year-end appeal", engine.Income, split{category: "contributions", amount: "1200.00"})
	s.txn("checking", 3, "Grocery run", engine.Expense, split{category: "meals", amount: "300.00"})

	s.budget("operating",
		split{category: "contributions", amount: "20000.00"},
		split{category: "services", amount: "15000.00"},
	)
}
