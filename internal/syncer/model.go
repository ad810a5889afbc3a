package syncer

import (
	"time"
)

const (
	TypeExpense = "EXPENSE"
	TypeIncome  = "INCOME"
)

const (
	PeriodWeek  = "WEEK"
	PeriodMonth = "MONTH"
	PeriodYear  = "YEAR"
)

// REQUESTS START:

type TransactionRequest struct {
	RemoteID   string // empty means "create new remote document"
	Name       string
	Amount     float64
	Type       string
	CategoryID string
	Date       time.Time
	Note       string
}

type CategoryRequest struct {
	RemoteID string
	Name     string
	Icon     string
	Color    string
}

type LimitRequest struct {
	RemoteID   string
	CategoryID string
	Amount     float64
	Period     string
}

// REQUESTS END:

// MODELS:
//
// Local rows. LocalID is assigned by the cache on insert and never leaves
// the device; RemoteID is the cloud document key and the cross-store
// identity. A row is synced iff RemoteID is non-empty.

type Transaction struct {
	LocalID    int64
	RemoteID   string
	OwnerID    string
	Synced     bool
	Name       string
	Amount     float64
	Type       string
	CategoryID string
	Date       time.Time
	Note       string
}

type Category struct {
	LocalID  int64
	RemoteID string
	OwnerID  string
	Synced   bool
	Name     string
	Icon     string
	Color    string
}

type BudgetLimit struct {
	LocalID    int64
	RemoteID   string
	OwnerID    string
	Synced     bool
	CategoryID string
	Amount     float64
	Period     string
}

// DOCUMENTS:
//
// The remote image of a record: no local id, no owner (the adapter scopes
// every call by owner already).

type TransactionDoc struct {
	RemoteID   string
	Name       string
	Amount     float64
	Type       string
	CategoryID string
	Date       time.Time
	Note       string
}

type CategoryDoc struct {
	RemoteID string
	Name     string
	Icon     string
	Color    string
}

type LimitDoc struct {
	RemoteID   string
	CategoryID string
	Amount     float64
	Period     string
}

// Snapshot is one owner's full remote image, as replaced into the local
// cache by a pull-down.
type Snapshot struct {
	Categories   []Category
	Transactions []Transaction
	Limits       []BudgetLimit
}

// RESPONSES:

type SummaryResponse struct {
	Expense float64
	Income  float64
	Balance float64
}

type LimitProgressResponse struct {
	RemoteID     string
	CategoryID   string
	Amount       float64
	Period       string
	Spent        float64
	UsagePercent int
}
