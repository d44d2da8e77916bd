/*
handlers.go - HTTP request handlers

PURPOSE:
  Implements the HTTP handlers for the report endpoints. Handlers parse
  query parameters, call the report service, and map results to DTOs.

ENDPOINTS:
  Reports:
    GET  /api/organizations/{orgID}/dashboard
    GET  /api/organizations/{orgID}/periods?date=
    GET  /api/organizations/{orgID}/summary?preset=&from=&to=&date=&account=&status=&type=
    GET  /api/organizations/{orgID}/budgets
    GET  /api/organizations/{orgID}/budgets/{budgetID}/report
    GET  /api/organizations/{orgID}/accounts/{accountID}/register?page=&page_size=&from=&to=&status=&type=
    GET  /api/organizations/{orgID}/accounts/{accountID}/reconciliation?statement_date=&statement_balance=

  Scenarios (see scenarios.go):
    GET  /api/scenarios
    GET  /api/scenarios/current
    POST /api/scenarios/load
    POST /api/scenarios/reset

ERROR HANDLING:
  All errors return JSON: {"error": "message", "details": "..."}
  HTTP status codes:
    400: Invalid input (bad date, unknown preset, malformed number)
    404: Organization, account or budget not found
    500: Internal error

SEE ALSO:
  - server.go: Route definitions
  - dto.go: Request/response types
  - report/service.go: Report orchestration
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"
	"github.com/shopspring/decimal"

	"github.com/warp/fundbooks/engine"
	"github.com/warp/fundbooks/report"
)

// Store is what the API needs from persistence: the read side for
// reports plus the writes used by the scenario loader.
type Store interface {
	engine.Store
	Reset(ctx context.Context) error
	SaveOrganization(ctx context.Context, org engine.Organization) error
	SaveAccount(ctx context.Context, a engine.Account) error
	SaveCategory(ctx context.Context, orgID engine.OrganizationID, c engine.CategoryRow) error
	SaveTransaction(ctx context.Context, tx engine.Transaction) error
	SaveBudget(ctx context.Context, b engine.Budget) error
}

// Handler contains dependencies for HTTP handlers.
type Handler struct {
	Store   Store
	Reports *report.Service

	mu              sync.RWMutex
	currentScenario string
}

// NewHandler creates a new handler with the given store.
func NewHandler(store Store) *Handler {
	return &Handler{
		Store:   store,
		Reports: report.NewService(store),
	}
}

// errBadRequest marks query-parameter problems.
var errBadRequest = errors.New("bad request")

// =============================================================================
// HEALTH
// =============================================================================

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// REPORT ENDPOINTS
// =============================================================================

// GetDashboard returns per-account balances and org-wide totals.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	orgID := engine.OrganizationID(chi.URLParam(r, "orgID"))

	d, err := h.Reports.Dashboard(r.Context(), orgID)
	if err != nil {
		respondError(w, r, "Failed to build dashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, toDashboardDTO(d))
}

// GetPeriods resolves every preset for ?date= (default today).
func (h *Handler) GetPeriods(w http.ResponseWriter, r *http.Request) {
	orgID := engine.OrganizationID(chi.URLParam(r, "orgID"))

	ref, err := dateParam(r, "date")
	if err != nil {
		respondError(w, r, "Invalid date", err)
		return
	}

	periods, err := h.Reports.Periods(r.Context(), orgID, ref)
	if err != nil {
		respondError(w, r, "Failed to resolve periods", err)
		return
	}

	dtos := make([]PeriodDTO, 0, len(periods))
	for _, p := range periods {
		dtos = append(dtos, toPeriodDTO(p.Preset, p.Range))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetSummary returns the report summary for a preset or custom range.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	orgID := engine.OrganizationID(chi.URLParam(r, "orgID"))

	query, err := parseSummaryQuery(r)
	if err != nil {
		respondError(w, r, "Invalid summary query", err)
		return
	}

	rep, err := h.Reports.Summary(r.Context(), orgID, query)
	if err != nil {
		respondError(w, r, "Failed to build summary", err)
		return
	}

	preset := query.Preset
	switch {
	case !query.From.IsZero() || !query.To.IsZero():
		preset = ""
	case preset == "":
		preset = engine.PresetFiscalYear
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(preset, rep))
}

// ListBudgets returns the organization's budgets.
func (h *Handler) ListBudgets(w http.ResponseWriter, r *http.Request) {
	orgID := engine.OrganizationID(chi.URLParam(r, "orgID"))

	budgets, err := h.Reports.Budgets(r.Context(), orgID)
	if err != nil {
		respondError(w, r, "Failed to list budgets", err)
		return
	}

	dtos := make([]BudgetDTO, 0, len(budgets))
	for _, b := range budgets {
		dtos = append(dtos, toBudgetDTO(b))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetBudgetReport returns budget vs. actual for one budget.
func (h *Handler) GetBudgetReport(w http.ResponseWriter, r *http.Request) {
	orgID := engine.OrganizationID(chi.URLParam(r, "orgID"))
	budgetID := engine.BudgetID(chi.URLParam(r, "budgetID"))

	rep, err := h.Reports.BudgetReport(r.Context(), orgID, budgetID)
	if err != nil {
		respondError(w, r, "Failed to build budget report", err)
		return
	}
	writeJSON(w, http.StatusOK, toBudgetReportDTO(rep))
}

// GetRegister returns one page of an account register.
func (h *Handler) GetRegister(w http.ResponseWriter, r *http.Request) {
	orgID := engine.OrganizationID(chi.URLParam(r, "orgID"))
	accountID := engine.AccountID(chi.URLParam(r, "accountID"))

	filter, err := parseFilter(r)
	if err != nil {
		respondError(w, r, "Invalid register filter", err)
		return
	}
	page, err := intParam(r, "page", 1)
	if err != nil {
		respondError(w, r, "Invalid page", err)
		return
	}
	size, err := intParam(r, "page_size", report.DefaultPageSize)
	if err != nil {
		respondError(w, r, "Invalid page size", err)
		return
	}

	reg, err := h.Reports.Register(r.Context(), orgID, accountID, report.RegisterQuery{
		Filter:   filter,
		Page:     page,
		PageSize: size,
	})
	if err != nil {
		respondError(w, r, "Failed to build register", err)
		return
	}
	writeJSON(w, http.StatusOK, toRegisterDTO(reg))
}

// GetReconciliation compares the account with a bank statement.
func (h *Handler) GetReconciliation(w http.ResponseWriter, r *http.Request) {
	orgID := engine.OrganizationID(chi.URLParam(r, "orgID"))
	accountID := engine.AccountID(chi.URLParam(r, "accountID"))

	statementDate, err := dateParam(r, "statement_date")
	if err != nil {
		respondError(w, r, "Invalid statement date", err)
		return
	}
	if statementDate.IsZero() {
		statementDate = engine.Today()
	}

	raw := r.URL.Query().Get("statement_balance")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "statement_balance is required", nil)
		return
	}
	balance, err := decimal.NewFromString(raw)
	if err != nil {
		respondError(w, r, "Invalid statement balance", fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	rec, err := h.Reports.Reconciliation(r.Context(), orgID, accountID, statementDate, balance)
	if err != nil {
		respondError(w, r, "Failed to reconcile", err)
		return
	}
	writeJSON(w, http.StatusOK, toReconciliationDTO(rec))
}

// =============================================================================
// QUERY PARSING
// =============================================================================

func parseSummaryQuery(r *http.Request) (report.SummaryQuery, error) {
	q := r.URL.Query()
	var (
		out report.SummaryQuery
		err error
	)

	out.Preset = engine.PeriodPreset(q.Get("preset"))
	if out.From, err = dateParam(r, "from"); err != nil {
		return out, err
	}
	if out.To, err = dateParam(r, "to"); err != nil {
		return out, err
	}
	if out.Ref, err = dateParam(r, "date"); err != nil {
		return out, err
	}

	filter, err := parseFilter(r)
	if err != nil {
		return out, err
	}
	out.AccountID = engine.AccountID(q.Get("account"))
	out.Statuses = filter.Statuses
	out.Type = filter.Type
	return out, nil
}

// parseFilter reads from, to, status (comma-separated) and type.
func parseFilter(r *http.Request) (engine.TransactionFilter, error) {
	q := r.URL.Query()
	var (
		f   engine.TransactionFilter
		err error
	)

	if f.From, err = dateParam(r, "from"); err != nil {
		return f, err
	}
	if f.To, err = dateParam(r, "to"); err != nil {
		return f, err
	}
	if !f.From.IsZero() && !f.To.IsZero() {
		if err := (engine.DateRange{Start: f.From, End: f.To}).Validate(); err != nil {
			return f, err
		}
	}

	if raw := q.Get("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			s := engine.Status(strings.TrimSpace(part))
			if !s.Valid() {
				return f, fmt.Errorf("%w: unknown status %q", errBadRequest, s)
			}
			f.Statuses = append(f.Statuses, s)
		}
	}

	if raw := q.Get("type"); raw != "" {
		t := engine.TransactionType(raw)
		if !t.Valid() {
			return f, fmt.Errorf("%w: unknown type %q", errBadRequest, raw)
		}
		f.Type = t
	}
	return f, nil
}

// dateParam returns the zero Date when the parameter is absent.
func dateParam(r *http.Request, name string) (engine.Date, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return engine.Date{}, nil
	}
	d, err := engine.ParseDate(raw)
	if err != nil {
		return engine.Date{}, fmt.Errorf("%s: %w", name, err)
	}
	return d, nil
}

func intParam(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", errBadRequest, name)
	}
	return n, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// respondError maps an error to its status code and logs server errors.
func respondError(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		hlog.FromRequest(r).Error().Err(err).Msg(message)
	}
	writeError(w, status, message, err)
}

func statusFor(err error) int {
	switch {
	case engine.IsNotFound(err):
		return http.StatusNotFound
	case engine.IsClientError(err), errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
