// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/fundbooks/engine"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu            sync.RWMutex
	organizations map[engine.OrganizationID]engine.Organization
	accounts      map[engine.OrganizationID][]engine.Account
	categories    map[engine.OrganizationID][]engine.CategoryRow
	transactions  map[engine.OrganizationID][]engine.Transaction
	budgets       map[engine.OrganizationID][]engine.Budget
}

func NewMemory() *Memory {
	m := &Memory{}
	m.resetLocked()
	return m
}

func (m *Memory) resetLocked() {
	m.organizations = make(map[engine.OrganizationID]engine.Organization)
	m.accounts = make(map[engine.OrganizationID][]engine.Account)
	m.categories = make(map[engine.OrganizationID][]engine.CategoryRow)
	m.transactions = make(map[engine.OrganizationID][]engine.Transaction)
	m.budgets = make(map[engine.OrganizationID][]engine.Budget)
}

// Reset drops every record.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLocked()
	return nil
}

// =============================================================================
// WRITES
// =============================================================================

func (m *Memory) SaveOrganization(_ context.Context, org engine.Organization) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.organizations[org.ID] = org
	return nil
}

func (m *Memory) SaveAccount(_ context.Context, a engine.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	accounts := m.accounts[a.OrganizationID]
	for i := range accounts {
		if accounts[i].ID == a.ID {
			accounts[i] = a
			return nil
		}
	}
	m.accounts[a.OrganizationID] = append(accounts, a)
	return nil
}

func (m *Memory) SaveCategory(_ context.Context, orgID engine.OrganizationID, c engine.CategoryRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cats := m.categories[orgID]
	for i := range cats {
		if cats[i].ID == c.ID {
			cats[i] = c
			return nil
		}
	}
	m.categories[orgID] = append(cats, c)
	return nil
}

// SaveTransaction inserts or replaces a transaction, keeping ledger order.
func (m *Memory) SaveTransaction(_ context.Context, tx engine.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	txs := m.transactions[tx.OrganizationID]
	for i := range txs {
		if txs[i].ID == tx.ID {
			txs = append(txs[:i], txs[i+1:]...)
			break
		}
	}

	// Binary search for insertion point
	i := sort.Search(len(txs), func(i int) bool {
		return tx.Key().Less(txs[i].Key())
	})
	txs = append(txs, engine.Transaction{})
	copy(txs[i+1:], txs[i:])
	txs[i] = tx
	m.transactions[tx.OrganizationID] = txs
	return nil
}

func (m *Memory) SaveBudget(_ context.Context, b engine.Budget) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	budgets := m.budgets[b.OrganizationID]
	for i := range budgets {
		if budgets[i].ID == b.ID {
			budgets[i] = b
			return nil
		}
	}
	m.budgets[b.OrganizationID] = append(budgets, b)
	return nil
}

// =============================================================================
// READS (engine.Store)
// =============================================================================

func (m *Memory) GetOrganization(_ context.Context, orgID engine.OrganizationID) (*engine.Organization, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	org, ok := m.organizations[orgID]
	if !ok {
		return nil, &engine.NotFoundError{Kind: "organization", ID: string(orgID)}
	}
	return &org, nil
}

func (m *Memory) ListAccounts(_ context.Context, orgID engine.OrganizationID) ([]engine.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := append([]engine.Account(nil), m.accounts[orgID]...)
	sort.SliceStable(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *Memory) GetAccount(_ context.Context, orgID engine.OrganizationID, accountID engine.AccountID) (*engine.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.accounts[orgID] {
		if a.ID == accountID {
			a := a
			return &a, nil
		}
	}
	return nil, &engine.NotFoundError{Kind: "account", ID: string(accountID)}
}

func (m *Memory) ListCategories(_ context.Context, orgID engine.OrganizationID) ([]engine.CategoryRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]engine.CategoryRow(nil), m.categories[orgID]...), nil
}

func (m *Memory) ListTransactions(_ context.Context, orgID engine.OrganizationID, filter engine.TransactionFilter) ([]engine.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []engine.Transaction
	for _, tx := range m.transactions[orgID] {
		if filter.Matches(tx) {
			tx.LineItems = append([]engine.LineItem(nil), tx.LineItems...)
			result = append(result, tx)
		}
	}
	return result, nil
}

func (m *Memory) GetBudget(_ context.Context, orgID engine.OrganizationID, budgetID engine.BudgetID) (*engine.Budget, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, b := range m.budgets[orgID] {
		if b.ID == budgetID {
			b.LineItems = append([]engine.BudgetLineItem(nil), b.LineItems...)
			return &b, nil
		}
	}
	return nil, &engine.NotFoundError{Kind: "budget", ID: string(budgetID)}
}

func (m *Memory) ListBudgets(_ context.Context, orgID engine.OrganizationID) ([]engine.Budget, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]engine.Budget, 0, len(m.budgets[orgID]))
	for _, b := range m.budgets[orgID] {
		b.LineItems = nil
		result = append(result, b)
	}
	// Newest first, then by name.
	sort.SliceStable(result, func(i, j int) bool {
		if c := result[i].StartDate.Compare(result[j].StartDate); c != 0 {
			return c > 0
		}
		return result[i].Name < result[j].Name
	})
	return result, nil
}
