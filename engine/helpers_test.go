package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func date(s string) Date { return MustParseDate(s) }

// tx builds a single-line transaction. Settled statuses clear at noon on
// the transaction date.
func tx(id, day, amount string, t TransactionType, status Status, cat CategoryID) Transaction {
	td := date(day)
	out := Transaction{
		ID:              TransactionID(id),
		AccountID:       "acc",
		TransactionDate: td,
		CreatedAt:       td.Time().Add(8 * time.Hour),
		Amount:          d(amount),
		Type:            t,
		Status:          status,
		LineItems:       []LineItem{{TransactionID: TransactionID(id), CategoryID: cat, Amount: d(amount)}},
	}
	if status.Settled() {
		cleared := td.Time().Add(12 * time.Hour)
		out.ClearedAt = &cleared
	}
	return out
}

func root(id, name string, t TransactionType) RootCategory {
	return RootCategory{CategoryMeta{ID: CategoryID(id), Name: name, Type: t, Active: true}}
}

func child(id, name string, t TransactionType, parent string) ChildCategory {
	return ChildCategory{CategoryMeta: CategoryMeta{ID: CategoryID(id), Name: name, Type: t, Active: true}, ParentID: CategoryID(parent)}
}

func mustIndex(cats ...Category) *CategoryIndex {
	idx, err := NewCategoryIndex(cats)
	if err != nil {
		panic(err)
	}
	return idx
}
