package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	appErrors "github.com/fatali-fataliyev/budget_sync/errors"
	"github.com/fatali-fataliyev/budget_sync/logging"
)

const (
	MAX_TRANSACTION_AMOUNT_LIMIT = 999999999999999999
	MAX_NAME_LENGTH              = 255
	MAX_NOTE_LENGTH              = 1000
	Epsilon                      = 1e-9 // For IsFloatZero() func.
)

func IsFloatZero(f float64) bool {
	return f >= 0 && f < Epsilon
}

// LocalCache is the on-device relational store. It serves every read path;
// it is never the system of record. Rows are keyed by (owner_id, remote_id)
// and the whole owner image may be erased at any time.
type LocalCache interface {
	ReplaceAll(ctx context.Context, ownerID string, snapshot Snapshot) error
	UpsertTransaction(ctx context.Context, t Transaction) error
	UpsertCategory(ctx context.Context, c Category) error
	UpsertLimit(ctx context.Context, l BudgetLimit) error
	DeleteTransactionByRemoteID(ctx context.Context, ownerID string, remoteID string) error
	DeleteCategoryByRemoteID(ctx context.Context, ownerID string, remoteID string) error
	DeleteLimitByRemoteID(ctx context.Context, ownerID string, remoteID string) error
	DeleteAllByOwner(ctx context.Context, ownerID string) error
	ListTransactions(ctx context.Context, ownerID string, from time.Time, to time.Time) ([]Transaction, error)
	ListCategories(ctx context.Context, ownerID string) ([]Category, error)
	ListLimits(ctx context.Context, ownerID string) ([]BudgetLimit, error)
	SumByType(ctx context.Context, ownerID string, txType string, from time.Time, to time.Time) (float64, error)
	SumByCategory(ctx context.Context, ownerID string, categoryID string, txType string, from time.Time, to time.Time) (float64, error)
	GetStorageType() string
}

// RemoteStore is the authoritative cloud document store, one collection per
// entity kind, scoped by owner. Create returns the id the store assigned to
// the new document. Implementations must surface only well-typed documents
// from the list calls and drop anything undecodable.
type RemoteStore interface {
	ListCategories(ctx context.Context, ownerID string) ([]CategoryDoc, error)
	ListTransactions(ctx context.Context, ownerID string) ([]TransactionDoc, error)
	ListLimits(ctx context.Context, ownerID string) ([]LimitDoc, error)
	CreateCategory(ctx context.Context, ownerID string, doc CategoryDoc) (string, error)
	CreateTransaction(ctx context.Context, ownerID string, doc TransactionDoc) (string, error)
	CreateLimit(ctx context.Context, ownerID string, doc LimitDoc) (string, error)
	SetCategory(ctx context.Context, ownerID string, remoteID string, doc CategoryDoc) error
	SetTransaction(ctx context.Context, ownerID string, remoteID string, doc TransactionDoc) error
	SetLimit(ctx context.Context, ownerID string, remoteID string, doc LimitDoc) error
	DeleteCategory(ctx context.Context, ownerID string, remoteID string) error
	DeleteTransaction(ctx context.Context, ownerID string, remoteID string) error
	DeleteLimit(ctx context.Context, ownerID string, remoteID string) error
}

// Engine orchestrates the two stores: remote-then-local write ordering,
// full-snapshot pull-down on session start and owner purge on logout.
// Operations for the same owner are serialized by a per-owner mutex; the
// stores themselves define no behavior for racing writers.
type Engine struct {
	cache  LocalCache
	remote RemoteStore

	mu     sync.Mutex
	owners map[string]*sync.Mutex
}

func NewEngine(cache LocalCache, remote RemoteStore) *Engine {
	return &Engine{
		cache:  cache,
		remote: remote,
		owners: make(map[string]*sync.Mutex),
	}
}

func (e *Engine) ownerLock(ownerID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.owners[ownerID]
	if !ok {
		lock = &sync.Mutex{}
		e.owners[ownerID] = lock
	}
	return lock
}

// SyncFromCloud replaces the owner's local image with a full remote
// snapshot. Categories are fetched first because transactions and limits
// reference them by remote id. A fetch failure aborts the run before the
// cache is touched; the replace itself happens in a single local
// transaction, so a failed pull-down leaves the cache exactly as it was.
func (e *Engine) SyncFromCloud(ctx context.Context, ownerID string) error {
	if ownerID == "" {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: "Owner id is required.",
		}
	}

	lock := e.ownerLock(ownerID)
	lock.Lock()
	defer lock.Unlock()

	categoryDocs, err := e.remote.ListCategories(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("failed to fetch categories: %w", err)
	}

	transactionDocs, err := e.remote.ListTransactions(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("failed to fetch transactions: %w", err)
	}

	limitDocs, err := e.remote.ListLimits(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("failed to fetch budget limits: %w", err)
	}

	snapshot := Snapshot{
		Categories:   make([]Category, 0, len(categoryDocs)),
		Transactions: make([]Transaction, 0, len(transactionDocs)),
		Limits:       make([]BudgetLimit, 0, len(limitDocs)),
	}
	for _, doc := range categoryDocs {
		snapshot.Categories = append(snapshot.Categories, CategoryFromDoc(doc, ownerID))
	}
	for _, doc := range transactionDocs {
		snapshot.Transactions = append(snapshot.Transactions, TransactionFromDoc(doc, ownerID))
	}
	for _, doc := range limitDocs {
		snapshot.Limits = append(snapshot.Limits, LimitFromDoc(doc, ownerID))
	}

	if err := e.cache.ReplaceAll(ctx, ownerID, snapshot); err != nil {
		return fmt.Errorf("failed to store pulled data: %w", err)
	}

	logging.Logger.Infof("pull-down completed for owner=%s: %d categories, %d transactions, %d limits",
		ownerID, len(snapshot.Categories), len(snapshot.Transactions), len(snapshot.Limits))
	return nil
}

// ClearLocalData purges every local row for the owner. Idempotent; the
// remote store is never touched.
func (e *Engine) ClearLocalData(ctx context.Context, ownerID string) error {
	lock := e.ownerLock(ownerID)
	lock.Lock()
	defer lock.Unlock()

	if err := e.cache.DeleteAllByOwner(ctx, ownerID); err != nil {
		return fmt.Errorf("failed to clear local data: %w", err)
	}
	return nil
}

func (e *Engine) AddTransaction(ctx context.Context, ownerID string, req TransactionRequest) (string, error) {
	if req.Name == "" {
		return "", appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: "Transaction name cannot be empty!",
		}
	}
	if IsFloatZero(req.Amount) || req.Amount < 0 {
		return "", appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: "Transaction amount is zero or very close to zero.",
		}
	}
	if req.Amount > MAX_TRANSACTION_AMOUNT_LIMIT {
		return "", appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: fmt.Sprintf("Maximum allowed amount per transaction is: %d", MAX_TRANSACTION_AMOUNT_LIMIT),
		}
	}
	if req.Type != TypeExpense && req.Type != TypeIncome {
		return "", appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: fmt.Sprintf("Invalid transaction type: %s", req.Type),
		}
	}
	if len(req.Name) > MAX_NAME_LENGTH {
		return "", appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: fmt.Sprintf("Transaction name so long, maximum allowed length is: %d", MAX_NAME_LENGTH),
		}
	}
	if len(req.Note) > MAX_NOTE_LENGTH {
		return "", appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: fmt.Sprintf("Note so long, maximum allowed length is: %d", MAX_NOTE_LENGTH),
		}
	}

	date := req.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}

	lock := e.ownerLock(ownerID)
	lock.Lock()
	defer lock.Unlock()

	doc := TransactionDoc{
		RemoteID:   req.RemoteID,
		Name:       req.Name,
		Amount:     req.Amount,
		Type:       req.Type,
		CategoryID: req.CategoryID,
		Date:       date,
		Note:       req.Note,
	}

	remoteID, err := e.writeTransactionRemote(ctx, ownerID, doc)
	if err != nil {
		return "", fmt.Errorf("failed to save transaction remotely: %w", err)
	}
	doc.RemoteID = remoteID

	if err := e.cache.UpsertTransaction(ctx, TransactionFromDoc(doc, ownerID)); err != nil {
		// The remote document exists; the next pull-down recovers the row.
		return "", fmt.Errorf("failed to mirror transaction locally: %w", err)
	}
	return remoteID, nil
}

func (e *Engine) writeTransactionRemote(ctx context.Context, ownerID string, doc TransactionDoc) (string, error) {
	if doc.RemoteID == "" {
		return e.remote.CreateTransaction(ctx, ownerID, doc)
	}
	if err := e.remote.SetTransaction(ctx, ownerID, doc.RemoteID, doc); err != nil {
		return "", err
	}
	return doc.RemoteID, nil
}

func (e *Engine) AddCategory(ctx context.Context, ownerID string, req CategoryRequest) (string, error) {
	if req.Name == "" {
		return "", appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: "Category name cannot be empty!",
		}
	}
	if len(req.Name) > MAX_NAME_LENGTH {
		return "", appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: fmt.Sprintf("Category name so long, maximum allowed length is: %d", MAX_NAME_LENGTH),
		}
	}

	lock := e.ownerLock(ownerID)
	lock.Lock()
	defer lock.Unlock()

	doc := CategoryDoc{
		RemoteID: req.RemoteID,
		Name:     req.Name,
		Icon:     req.Icon,
		Color:    req.Color,
	}

	var remoteID string
	var err error
	if doc.RemoteID == "" {
		remoteID, err = e.remote.CreateCategory(ctx, ownerID, doc)
	} else {
		remoteID = doc.RemoteID
		err = e.remote.SetCategory(ctx, ownerID, remoteID, doc)
	}
	if err != nil {
		return "", fmt.Errorf("failed to save category remotely: %w", err)
	}
	doc.RemoteID = remoteID

	if err := e.cache.UpsertCategory(ctx, CategoryFromDoc(doc, ownerID)); err != nil {
		return "", fmt.Errorf("failed to mirror category locally: %w", err)
	}
	return remoteID, nil
}

func (e *Engine) AddLimit(ctx context.Context, ownerID string, req LimitRequest) (string, error) {
	if err := validateLimit(req); err != nil {
		return "", err
	}

	lock := e.ownerLock(ownerID)
	lock.Lock()
	defer lock.Unlock()

	doc := LimitDoc{
		RemoteID:   req.RemoteID,
		CategoryID: req.CategoryID,
		Amount:     req.Amount,
		Period:     req.Period,
	}

	var remoteID string
	var err error
	if doc.RemoteID == "" {
		remoteID, err = e.remote.CreateLimit(ctx, ownerID, doc)
	} else {
		remoteID = doc.RemoteID
		err = e.remote.SetLimit(ctx, ownerID, remoteID, doc)
	}
	if err != nil {
		return "", fmt.Errorf("failed to save budget limit remotely: %w", err)
	}
	doc.RemoteID = remoteID

	if err := e.cache.UpsertLimit(ctx, LimitFromDoc(doc, ownerID)); err != nil {
		return "", fmt.Errorf("failed to mirror budget limit locally: %w", err)
	}
	return remoteID, nil
}

// UpdateLimit overwrites an existing remote limit, then mirrors it locally.
func (e *Engine) UpdateLimit(ctx context.Context, ownerID string, req LimitRequest) error {
	if req.RemoteID == "" {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: "Limit id is required for update.",
		}
	}
	_, err := e.AddLimit(ctx, ownerID, req)
	return err
}

// UpdateCategory overwrites an existing remote category, then mirrors it.
func (e *Engine) UpdateCategory(ctx context.Context, ownerID string, req CategoryRequest) error {
	if req.RemoteID == "" {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: "Category id is required for update.",
		}
	}
	_, err := e.AddCategory(ctx, ownerID, req)
	return err
}

func validateLimit(req LimitRequest) error {
	if req.CategoryID == "" {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: "Limit category is required.",
		}
	}
	if IsFloatZero(req.Amount) || req.Amount < 0 {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: "Limit amount is zero or very close to zero.",
		}
	}
	if req.Period != PeriodWeek && req.Period != PeriodMonth && req.Period != PeriodYear {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: fmt.Sprintf("Invalid limit period: %s", req.Period),
		}
	}
	return nil
}

// DeleteTransaction removes the remote document first; the local row is
// deleted only after the remote delete reports success, so the cache never
// forgets a record the cloud still has.
func (e *Engine) DeleteTransaction(ctx context.Context, ownerID string, remoteID string) error {
	if remoteID == "" {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: "Transaction id is required.",
		}
	}

	lock := e.ownerLock(ownerID)
	lock.Lock()
	defer lock.Unlock()

	if err := e.remote.DeleteTransaction(ctx, ownerID, remoteID); err != nil {
		return fmt.Errorf("failed to delete transaction remotely: %w", err)
	}
	if err := e.cache.DeleteTransactionByRemoteID(ctx, ownerID, remoteID); err != nil {
		return fmt.Errorf("failed to delete transaction locally: %w", err)
	}
	return nil
}

func (e *Engine) DeleteLimit(ctx context.Context, ownerID string, remoteID string) error {
	if remoteID == "" {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: "Limit id is required.",
		}
	}

	lock := e.ownerLock(ownerID)
	lock.Lock()
	defer lock.Unlock()

	if err := e.remote.DeleteLimit(ctx, ownerID, remoteID); err != nil {
		return fmt.Errorf("failed to delete budget limit remotely: %w", err)
	}
	if err := e.cache.DeleteLimitByRemoteID(ctx, ownerID, remoteID); err != nil {
		return fmt.Errorf("failed to delete budget limit locally: %w", err)
	}
	return nil
}

func (e *Engine) DeleteCategory(ctx context.Context, ownerID string, remoteID string) error {
	if remoteID == "" {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: "Category id is required.",
		}
	}

	lock := e.ownerLock(ownerID)
	lock.Lock()
	defer lock.Unlock()

	if err := e.remote.DeleteCategory(ctx, ownerID, remoteID); err != nil {
		return fmt.Errorf("failed to delete category remotely: %w", err)
	}
	if err := e.cache.DeleteCategoryByRemoteID(ctx, ownerID, remoteID); err != nil {
		return fmt.Errorf("failed to delete category locally: %w", err)
	}
	return nil
}

// READ PATHS: served exclusively by the local cache.

func (e *Engine) GetTransactions(ctx context.Context, ownerID string, from time.Time, to time.Time) ([]Transaction, error) {
	ts, err := e.cache.ListTransactions(ctx, ownerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	return ts, nil
}

func (e *Engine) GetCategories(ctx context.Context, ownerID string) ([]Category, error) {
	cs, err := e.cache.ListCategories(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}
	return cs, nil
}

func (e *Engine) GetLimits(ctx context.Context, ownerID string) ([]BudgetLimit, error) {
	ls, err := e.cache.ListLimits(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get budget limits: %w", err)
	}
	return ls, nil
}

// GetSummary sums local transactions by type over the range and derives the
// balance.
func (e *Engine) GetSummary(ctx context.Context, ownerID string, from time.Time, to time.Time) (SummaryResponse, error) {
	expense, err := e.cache.SumByType(ctx, ownerID, TypeExpense, from, to)
	if err != nil {
		return SummaryResponse{}, fmt.Errorf("failed to sum expenses: %w", err)
	}
	income, err := e.cache.SumByType(ctx, ownerID, TypeIncome, from, to)
	if err != nil {
		return SummaryResponse{}, fmt.Errorf("failed to sum incomes: %w", err)
	}
	return SummaryResponse{
		Expense: expense,
		Income:  income,
		Balance: income - expense,
	}, nil
}

// GetLimitProgress reports, for every limit of the owner, the expense sum
// of its category over the current period window.
func (e *Engine) GetLimitProgress(ctx context.Context, ownerID string, now time.Time) ([]LimitProgressResponse, error) {
	limits, err := e.cache.ListLimits(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get budget limits: %w", err)
	}

	progress := make([]LimitProgressResponse, 0, len(limits))
	for _, limit := range limits {
		from := periodStart(limit.Period, now)
		spent, err := e.cache.SumByCategory(ctx, ownerID, limit.CategoryID, TypeExpense, from, now)
		if err != nil {
			return nil, fmt.Errorf("failed to sum category spending: %w", err)
		}

		var usagePercent int
		if limit.Amount > 0 {
			usagePercent = int((spent / limit.Amount) * 100)
		}
		progress = append(progress, LimitProgressResponse{
			RemoteID:     limit.RemoteID,
			CategoryID:   limit.CategoryID,
			Amount:       limit.Amount,
			Period:       limit.Period,
			Spent:        spent,
			UsagePercent: usagePercent,
		})
	}
	return progress, nil
}

// periodStart returns the beginning of the period window containing now.
// Weeks start on Monday.
func periodStart(period string, now time.Time) time.Time {
	now = now.UTC()
	switch period {
	case PeriodWeek:
		weekday := int(now.Weekday())
		if weekday == 0 {
			weekday = 7
		}
		day := now.AddDate(0, 0, -(weekday - 1))
		return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	case PeriodYear:
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	default: // PeriodMonth
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
}
