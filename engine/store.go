/*
store.go - Data-access interface the report service reads from

PURPOSE:
  Defines the boundary between the engine and persistence. The engine
  never calls a Store itself; the report service fetches a snapshot
  through it and hands plain records to the engine functions.

READ-ONLY CONTRACT:
  Reports never write. Store exposes queries only; writes live on the
  concrete implementations (used by the scenario loader and tests).

ORDERING:
  Transactions come back in ledger order: transaction_date, then
  created_at, then id. Line items are nested on each transaction.

NOT FOUND:
  Get* methods return an error wrapping ErrNotFound (see NotFoundError)
  when the record doesn't exist or belongs to another organization.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - engine/store/memory.go: In-memory for testing

SEE ALSO:
  - report/service.go: Consumer
*/
package engine

import "context"

// Store is the read side of the data-access layer.
type Store interface {
	// GetOrganization returns the organization and its fiscal settings.
	GetOrganization(ctx context.Context, orgID OrganizationID) (*Organization, error)

	// ListAccounts returns the organization's accounts ordered by name.
	ListAccounts(ctx context.Context, orgID OrganizationID) ([]Account, error)

	// GetAccount returns one account of the organization.
	GetAccount(ctx context.Context, orgID OrganizationID, accountID AccountID) (*Account, error)

	// ListCategories returns every category, active or not.
	ListCategories(ctx context.Context, orgID OrganizationID) ([]CategoryRow, error)

	// ListTransactions returns transactions matching filter in ledger order.
	ListTransactions(ctx context.Context, orgID OrganizationID, filter TransactionFilter) ([]Transaction, error)

	// GetBudget returns a budget with its line items.
	GetBudget(ctx context.Context, orgID OrganizationID, budgetID BudgetID) (*Budget, error)

	// ListBudgets returns the organization's budgets without line items.
	ListBudgets(ctx context.Context, orgID OrganizationID) ([]Budget, error)
}
