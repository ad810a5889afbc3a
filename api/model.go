package api

import (
	"fmt"
	"net/url"
	"time"

	appErrors "github.com/fatali-fataliyev/budget_sync/errors"
	"github.com/fatali-fataliyev/budget_sync/internal/syncer"
)

// REQUESTS START:

type CreateTransactionRequest struct {
	Name       string  `json:"name"`
	Amount     float64 `json:"amount"`
	Type       string  `json:"type"`
	CategoryID string  `json:"category_id"`
	Date       string  `json:"date"` // "02/01/2006 15:04"
	Note       string  `json:"note"`
}

type CreateCategoryRequest struct {
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

type CreateLimitRequest struct {
	CategoryID string  `json:"category_id"`
	Amount     float64 `json:"amount"`
	Period     string  `json:"period"`
}

//REQUESTS END:

//RESPONSES:

type CreatedResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

type TransactionItem struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Amount     float64 `json:"amount"`
	Type       string  `json:"type"`
	CategoryID string  `json:"category_id"`
	Date       string  `json:"date"`
	Note       string  `json:"note"`
	Synced     bool    `json:"synced"`
}

type CategoryItem struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Icon   string `json:"icon"`
	Color  string `json:"color"`
	Synced bool   `json:"synced"`
}

type LimitItem struct {
	ID         string  `json:"id"`
	CategoryID string  `json:"category_id"`
	Amount     float64 `json:"amount"`
	Period     string  `json:"period"`
	Synced     bool    `json:"synced"`
}

type ListTransactionsResponse struct {
	Transactions []TransactionItem `json:"transactions"`
}

type ListCategoriesResponse struct {
	Categories []CategoryItem `json:"categories"`
}

type ListLimitsResponse struct {
	Limits []LimitItem `json:"limits"`
}

type SummaryItem struct {
	Expense float64 `json:"expense"`
	Income  float64 `json:"income"`
	Balance float64 `json:"balance"`
}

type LimitProgressItem struct {
	ID           string  `json:"id"`
	CategoryID   string  `json:"category_id"`
	Amount       float64 `json:"amount"`
	Period       string  `json:"period"`
	Spent        float64 `json:"spent"`
	UsagePercent int     `json:"usage_percent"`
}

type ListLimitProgressResponse struct {
	Limits []LimitProgressItem `json:"limits"`
}

func httpStatusFromError(err error) int {
	switch appErrors.CodeOf(err) {
	case appErrors.ErrNotFound:
		return 404 // not found
	case appErrors.ErrInvalidInput:
		return 400 // bad request
	case appErrors.ErrRemoteRejected:
		return 422 // the cloud store refused the write
	case appErrors.ErrRemoteUnavailable:
		return 503 // the cloud store is unreachable
	default:
		return 500 //internal error
	}
}

func TransactionToHttp(transaction syncer.Transaction) TransactionItem {
	return TransactionItem{
		ID:         transaction.RemoteID,
		Name:       transaction.Name,
		Amount:     transaction.Amount,
		Type:       transaction.Type,
		CategoryID: transaction.CategoryID,
		Date:       transaction.Date.Format("02/01/2006 15:04"),
		Note:       transaction.Note,
		Synced:     transaction.Synced,
	}
}

func CategoryToHttp(category syncer.Category) CategoryItem {
	return CategoryItem{
		ID:     category.RemoteID,
		Name:   category.Name,
		Icon:   category.Icon,
		Color:  category.Color,
		Synced: category.Synced,
	}
}

func LimitToHttp(limit syncer.BudgetLimit) LimitItem {
	return LimitItem{
		ID:         limit.RemoteID,
		CategoryID: limit.CategoryID,
		Amount:     limit.Amount,
		Period:     limit.Period,
		Synced:     limit.Synced,
	}
}

func LimitProgressToHttp(progress syncer.LimitProgressResponse) LimitProgressItem {
	return LimitProgressItem{
		ID:           progress.RemoteID,
		CategoryID:   progress.CategoryID,
		Amount:       progress.Amount,
		Period:       progress.Period,
		Spent:        progress.Spent,
		UsagePercent: progress.UsagePercent,
	}
}

// transactionRequestFromHttp converts the wire form into an engine request.
// An empty date is left as the zero time; the engine stamps it at write.
func transactionRequestFromHttp(remoteID string, req CreateTransactionRequest) (syncer.TransactionRequest, error) {
	var date time.Time
	if req.Date != "" {
		parsed, err := time.Parse("02/01/2006 15:04", req.Date)
		if err != nil {
			return syncer.TransactionRequest{}, appErrors.ErrorResponse{
				Code:    appErrors.ErrInvalidInput,
				Message: fmt.Sprintf("invalid transaction date: %s", req.Date),
			}
		}
		date = parsed
	}

	return syncer.TransactionRequest{
		RemoteID:   remoteID,
		Name:       req.Name,
		Amount:     req.Amount,
		Type:       req.Type,
		CategoryID: req.CategoryID,
		Date:       date,
		Note:       req.Note,
	}, nil
}

// DateRangeCheckParams reads the optional "from" and "to" filters. Both are
// "02/01/2006" dates; "to" is made inclusive by extending it to end of day.
// A missing filter stays the zero time, which the cache treats as unbounded.
func DateRangeCheckParams(params url.Values) (time.Time, time.Time, error) {
	var from, to time.Time

	if fromStr := params.Get("from"); fromStr != "" {
		parsed, err := time.Parse("02/01/2006", fromStr)
		if err != nil {
			return from, to, appErrors.ErrorResponse{
				Code:    appErrors.ErrInvalidInput,
				Message: fmt.Sprintf("invalid 'from' date: %s", fromStr),
			}
		}
		from = parsed
	}

	if toStr := params.Get("to"); toStr != "" {
		parsed, err := time.Parse("02/01/2006", toStr)
		if err != nil {
			return from, to, appErrors.ErrorResponse{
				Code:    appErrors.ErrInvalidInput,
				Message: fmt.Sprintf("invalid 'to' date: %s", toStr),
			}
		}
		to = parsed.Add(24*time.Hour - time.Second)
	}

	return from, to, nil
}
