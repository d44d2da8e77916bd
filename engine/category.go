/*
category.go - Two-level category taxonomy, display labels and rollup

PURPOSE:
  Categories form a tree exactly two levels deep: roots and their
  children. Reports show a child as "Parent → Child" and attribute a
  child's activity to its parent's budget line (rollup).

KEY TYPES:
  Category:      Sealed sum type, RootCategory | ChildCategory
  CategoryRow:   The nullable-parent shape the data layer hands us
  CategoryIndex: Built once per report run. Holds id→category,
                 id→label, label→id and parent→active-children maps.

LABEL COLLISIONS:
  Two categories can render the same label (e.g. a root "Grants" and an
  orphaned child "Grants"). The label→id map keeps the first category in
  input order and records every later one in Collisions() so callers can
  warn about it.

EXAMPLE:
  idx, _ := NewCategoryIndex(cats)
  idx.ResolveLabel("c-ind")          // "Donations → Individual"
  idx.FindIDByLabel("Donations → Individual") // "c-ind"
  idx.BudgetedCategorySet(budget.LineItems)   // budgeted ids + active children
*/
package engine

import "sort"

// =============================================================================
// CATEGORY - Sum type
// =============================================================================

// LabelSeparator joins a parent name and a child name.
const LabelSeparator = " → "

const (
	// UnknownLabel is the label of an id not in the index.
	UnknownLabel = "Unknown"

	// UnknownCategoryID is returned for a label no category renders.
	UnknownCategoryID CategoryID = "unknown"
)

// CategoryMeta holds the fields every category has.
type CategoryMeta struct {
	ID     CategoryID
	Name   string
	Type   TransactionType
	Active bool
}

func (m CategoryMeta) Meta() CategoryMeta { return m }

// Category is either a RootCategory or a ChildCategory.
type Category interface {
	Meta() CategoryMeta
	category()
}

type RootCategory struct {
	CategoryMeta
}

type ChildCategory struct {
	CategoryMeta
	ParentID CategoryID
}

func (RootCategory) category()  {}
func (ChildCategory) category() {}

// CategoryRow is a category as stored: a nil ParentID means root.
type CategoryRow struct {
	ID       CategoryID
	Name     string
	Type     TransactionType
	ParentID *CategoryID
	IsActive bool
}

// Category converts the row to the sum type.
func (r CategoryRow) Category() Category {
	meta := CategoryMeta{ID: r.ID, Name: r.Name, Type: r.Type, Active: r.IsActive}
	if r.ParentID == nil || *r.ParentID == "" {
		return RootCategory{CategoryMeta: meta}
	}
	return ChildCategory{CategoryMeta: meta, ParentID: *r.ParentID}
}

// CategoriesFromRows converts rows, preserving order.
func CategoriesFromRows(rows []CategoryRow) []Category {
	out := make([]Category, len(rows))
	for i, r := range rows {
		out[i] = r.Category()
	}
	return out
}

// =============================================================================
// CATEGORY INDEX
// =============================================================================

// LabelCollision records a category whose label was already taken.
type LabelCollision struct {
	Label    string
	Kept     CategoryID
	Shadowed CategoryID
}

// CategoryIndex is a read-only, bidirectional view of one taxonomy snapshot.
type CategoryIndex struct {
	order      []CategoryID
	byID       map[CategoryID]Category
	labels     map[CategoryID]string
	ids        map[string]CategoryID
	children   map[CategoryID][]CategoryID // active children only
	collisions []LabelCollision
}

// NewCategoryIndex validates the two-level invariant and builds every map.
// A child whose parent is missing keeps its bare name as label and takes
// part in no rollup.
func NewCategoryIndex(cats []Category) (*CategoryIndex, error) {
	idx := &CategoryIndex{
		order:    make([]CategoryID, 0, len(cats)),
		byID:     make(map[CategoryID]Category, len(cats)),
		labels:   make(map[CategoryID]string, len(cats)),
		ids:      make(map[string]CategoryID, len(cats)),
		children: make(map[CategoryID][]CategoryID),
	}
	for _, c := range cats {
		id := c.Meta().ID
		if _, dup := idx.byID[id]; !dup {
			idx.order = append(idx.order, id)
		}
		idx.byID[id] = c
	}

	for _, id := range idx.order {
		child, ok := idx.byID[id].(ChildCategory)
		if !ok {
			continue
		}
		parent, found := idx.byID[child.ParentID]
		if !found {
			continue
		}
		if _, nested := parent.(ChildCategory); nested {
			return nil, &CategoryError{CategoryID: id, ParentID: child.ParentID, Err: ErrCategoryTooDeep}
		}
		if parent.Meta().Type != child.Type {
			return nil, &CategoryError{CategoryID: id, ParentID: child.ParentID, Err: ErrCategoryTypeMismatch}
		}
		if child.Active {
			idx.children[child.ParentID] = append(idx.children[child.ParentID], id)
		}
	}

	for _, id := range idx.order {
		label := idx.label(idx.byID[id])
		idx.labels[id] = label
		if kept, taken := idx.ids[label]; taken {
			idx.collisions = append(idx.collisions, LabelCollision{Label: label, Kept: kept, Shadowed: id})
			continue
		}
		idx.ids[label] = id
	}
	return idx, nil
}

// NewCategoryIndexFromRows is NewCategoryIndex over stored rows.
func NewCategoryIndexFromRows(rows []CategoryRow) (*CategoryIndex, error) {
	return NewCategoryIndex(CategoriesFromRows(rows))
}

func (idx *CategoryIndex) label(c Category) string {
	switch v := c.(type) {
	case ChildCategory:
		if parent, ok := idx.byID[v.ParentID]; ok {
			return parent.Meta().Name + LabelSeparator + v.Name
		}
		return v.Name
	default:
		return c.Meta().Name
	}
}

// Get returns the category with the given id.
func (idx *CategoryIndex) Get(id CategoryID) (Category, bool) {
	c, ok := idx.byID[id]
	return c, ok
}

// Categories returns all categories in input order.
func (idx *CategoryIndex) Categories() []Category {
	out := make([]Category, len(idx.order))
	for i, id := range idx.order {
		out[i] = idx.byID[id]
	}
	return out
}

// ResolveLabel returns the display label, or "Unknown".
func (idx *CategoryIndex) ResolveLabel(id CategoryID) string {
	if label, ok := idx.labels[id]; ok {
		return label
	}
	return UnknownLabel
}

// FindIDByLabel is the inverse of ResolveLabel. Returns "unknown" when no
// category renders the label.
func (idx *CategoryIndex) FindIDByLabel(label string) CategoryID {
	if id, ok := idx.ids[label]; ok {
		return id
	}
	return UnknownCategoryID
}

// Collisions lists labels rendered by more than one category.
func (idx *CategoryIndex) Collisions() []LabelCollision {
	return append([]LabelCollision(nil), idx.collisions...)
}

// Parent returns the parent of a child category.
func (idx *CategoryIndex) Parent(id CategoryID) (Category, bool) {
	child, ok := idx.byID[id].(ChildCategory)
	if !ok {
		return nil, false
	}
	parent, ok := idx.byID[child.ParentID]
	return parent, ok
}

// ActiveChildren returns the ids of a root's active children in input order.
func (idx *CategoryIndex) ActiveChildren(id CategoryID) []CategoryID {
	return append([]CategoryID(nil), idx.children[id]...)
}

// RollupIDs returns id followed by its active children.
func (idx *CategoryIndex) RollupIDs(id CategoryID) []CategoryID {
	return append([]CategoryID{id}, idx.children[id]...)
}

// TypeOf returns the category's type. Unknown ids default to expense.
func (idx *CategoryIndex) TypeOf(id CategoryID) TransactionType {
	if c, ok := idx.byID[id]; ok {
		return c.Meta().Type
	}
	return Expense
}

// CategorySet is a set of category ids.
type CategorySet map[CategoryID]struct{}

func (s CategorySet) Has(id CategoryID) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members in ascending order.
func (s CategorySet) Sorted() []CategoryID {
	out := make([]CategoryID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// BudgetedCategorySet returns every budgeted category id plus the ids of
// their active children, so activity coded to a child of a budgeted
// parent is not reported as unbudgeted.
func (idx *CategoryIndex) BudgetedCategorySet(lines []BudgetLineItem) CategorySet {
	set := make(CategorySet, len(lines))
	for _, line := range lines {
		for _, id := range idx.RollupIDs(line.CategoryID) {
			set[id] = struct{}{}
		}
	}
	return set
}
