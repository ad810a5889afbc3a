package syncer

import (
	"context"
	"fmt"
	"io"
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	appErrors "github.com/fatali-fataliyev/budget_sync/errors"
	"github.com/fatali-fataliyev/budget_sync/logging"
)

func TestMain(m *testing.M) {
	logging.Logger = logrus.New()
	logging.Logger.SetOutput(io.Discard)
	os.Exit(m.Run())
}

// Mocks

// mockRemote is a stateful in-process stand-in for the cloud store. Setting
// unreachable makes every call fail as if the network were down; setting
// reject makes writes fail as if the store refused them.
type mockRemote struct {
	unreachable bool
	reject      bool
	nextID      int

	categories   map[string]map[string]CategoryDoc
	transactions map[string]map[string]TransactionDoc
	limits       map[string]map[string]LimitDoc
}

func newMockRemote() *mockRemote {
	return &mockRemote{
		categories:   make(map[string]map[string]CategoryDoc),
		transactions: make(map[string]map[string]TransactionDoc),
		limits:       make(map[string]map[string]LimitDoc),
	}
}

func (m *mockRemote) fail() error {
	if m.unreachable {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrRemoteUnavailable,
			Message: "The cloud store is unreachable, try again later.",
		}
	}
	if m.reject {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrRemoteRejected,
			Message: "The cloud store rejected the operation.",
		}
	}
	return nil
}

func (m *mockRemote) newID() string {
	m.nextID++
	return fmt.Sprintf("remote-%d", m.nextID)
}

func (m *mockRemote) ListCategories(ctx context.Context, ownerID string) ([]CategoryDoc, error) {
	if err := m.fail(); err != nil {
		return nil, err
	}
	var docs []CategoryDoc
	for _, doc := range m.categories[ownerID] {
		docs = append(docs, doc)
	}
	return docs, nil
}

func (m *mockRemote) ListTransactions(ctx context.Context, ownerID string) ([]TransactionDoc, error) {
	if err := m.fail(); err != nil {
		return nil, err
	}
	var docs []TransactionDoc
	for _, doc := range m.transactions[ownerID] {
		docs = append(docs, doc)
	}
	return docs, nil
}

func (m *mockRemote) ListLimits(ctx context.Context, ownerID string) ([]LimitDoc, error) {
	if err := m.fail(); err != nil {
		return nil, err
	}
	var docs []LimitDoc
	for _, doc := range m.limits[ownerID] {
		docs = append(docs, doc)
	}
	return docs, nil
}

func (m *mockRemote) CreateCategory(ctx context.Context, ownerID string, doc CategoryDoc) (string, error) {
	if err := m.fail(); err != nil {
		return "", err
	}
	id := m.newID()
	doc.RemoteID = id
	if m.categories[ownerID] == nil {
		m.categories[ownerID] = make(map[string]CategoryDoc)
	}
	m.categories[ownerID][id] = doc
	return id, nil
}

func (m *mockRemote) CreateTransaction(ctx context.Context, ownerID string, doc TransactionDoc) (string, error) {
	if err := m.fail(); err != nil {
		return "", err
	}
	id := m.newID()
	doc.RemoteID = id
	if m.transactions[ownerID] == nil {
		m.transactions[ownerID] = make(map[string]TransactionDoc)
	}
	m.transactions[ownerID][id] = doc
	return id, nil
}

func (m *mockRemote) CreateLimit(ctx context.Context, ownerID string, doc LimitDoc) (string, error) {
	if err := m.fail(); err != nil {
		return "", err
	}
	id := m.newID()
	doc.RemoteID = id
	if m.limits[ownerID] == nil {
		m.limits[ownerID] = make(map[string]LimitDoc)
	}
	m.limits[ownerID][id] = doc
	return id, nil
}

func (m *mockRemote) SetCategory(ctx context.Context, ownerID string, remoteID string, doc CategoryDoc) error {
	if err := m.fail(); err != nil {
		return err
	}
	if m.categories[ownerID] == nil {
		m.categories[ownerID] = make(map[string]CategoryDoc)
	}
	doc.RemoteID = remoteID
	m.categories[ownerID][remoteID] = doc
	return nil
}

func (m *mockRemote) SetTransaction(ctx context.Context, ownerID string, remoteID string, doc TransactionDoc) error {
	if err := m.fail(); err != nil {
		return err
	}
	if m.transactions[ownerID] == nil {
		m.transactions[ownerID] = make(map[string]TransactionDoc)
	}
	doc.RemoteID = remoteID
	m.transactions[ownerID][remoteID] = doc
	return nil
}

func (m *mockRemote) SetLimit(ctx context.Context, ownerID string, remoteID string, doc LimitDoc) error {
	if err := m.fail(); err != nil {
		return err
	}
	if m.limits[ownerID] == nil {
		m.limits[ownerID] = make(map[string]LimitDoc)
	}
	doc.RemoteID = remoteID
	m.limits[ownerID][remoteID] = doc
	return nil
}

func (m *mockRemote) DeleteCategory(ctx context.Context, ownerID string, remoteID string) error {
	if err := m.fail(); err != nil {
		return err
	}
	delete(m.categories[ownerID], remoteID)
	return nil
}

func (m *mockRemote) DeleteTransaction(ctx context.Context, ownerID string, remoteID string) error {
	if err := m.fail(); err != nil {
		return err
	}
	delete(m.transactions[ownerID], remoteID)
	return nil
}

func (m *mockRemote) DeleteLimit(ctx context.Context, ownerID string, remoteID string) error {
	if err := m.fail(); err != nil {
		return err
	}
	delete(m.limits[ownerID], remoteID)
	return nil
}

// mockCache is an in-memory LocalCache for the engine tests.
type mockCache struct {
	failReplace  bool
	replaceCalls int
	nextLocalID  int64

	transactions []Transaction
	categories   []Category
	limits       []BudgetLimit
}

func newMockCache() *mockCache {
	return &mockCache{nextLocalID: 1}
}

func (m *mockCache) GetStorageType() string {
	return "mock"
}

func (m *mockCache) nextID() int64 {
	id := m.nextLocalID
	m.nextLocalID++
	return id
}

func (m *mockCache) purgeOwner(ownerID string) {
	var transactions []Transaction
	for _, t := range m.transactions {
		if t.OwnerID != ownerID {
			transactions = append(transactions, t)
		}
	}
	m.transactions = transactions

	var categories []Category
	for _, c := range m.categories {
		if c.OwnerID != ownerID {
			categories = append(categories, c)
		}
	}
	m.categories = categories

	var limits []BudgetLimit
	for _, l := range m.limits {
		if l.OwnerID != ownerID {
			limits = append(limits, l)
		}
	}
	m.limits = limits
}

func (m *mockCache) ReplaceAll(ctx context.Context, ownerID string, snapshot Snapshot) error {
	m.replaceCalls++
	if m.failReplace {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrLocalFailure,
			Message: "Local database operation failed.",
		}
	}
	m.purgeOwner(ownerID)
	for _, c := range snapshot.Categories {
		c.LocalID = m.nextID()
		m.categories = append(m.categories, c)
	}
	for _, t := range snapshot.Transactions {
		t.LocalID = m.nextID()
		m.transactions = append(m.transactions, t)
	}
	for _, l := range snapshot.Limits {
		l.LocalID = m.nextID()
		m.limits = append(m.limits, l)
	}
	return nil
}

func (m *mockCache) UpsertTransaction(ctx context.Context, t Transaction) error {
	for i, existing := range m.transactions {
		if existing.OwnerID == t.OwnerID && existing.RemoteID == t.RemoteID {
			t.LocalID = existing.LocalID
			m.transactions[i] = t
			return nil
		}
	}
	t.LocalID = m.nextID()
	m.transactions = append(m.transactions, t)
	return nil
}

func (m *mockCache) UpsertCategory(ctx context.Context, c Category) error {
	for i, existing := range m.categories {
		if existing.OwnerID == c.OwnerID && existing.RemoteID == c.RemoteID {
			c.LocalID = existing.LocalID
			m.categories[i] = c
			return nil
		}
	}
	c.LocalID = m.nextID()
	m.categories = append(m.categories, c)
	return nil
}

func (m *mockCache) UpsertLimit(ctx context.Context, l BudgetLimit) error {
	for i, existing := range m.limits {
		if existing.OwnerID == l.OwnerID && existing.RemoteID == l.RemoteID {
			l.LocalID = existing.LocalID
			m.limits[i] = l
			return nil
		}
	}
	l.LocalID = m.nextID()
	m.limits = append(m.limits, l)
	return nil
}

func (m *mockCache) DeleteTransactionByRemoteID(ctx context.Context, ownerID string, remoteID string) error {
	for i, t := range m.transactions {
		if t.OwnerID == ownerID && t.RemoteID == remoteID {
			m.transactions = append(m.transactions[:i], m.transactions[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *mockCache) DeleteCategoryByRemoteID(ctx context.Context, ownerID string, remoteID string) error {
	for i, c := range m.categories {
		if c.OwnerID == ownerID && c.RemoteID == remoteID {
			m.categories = append(m.categories[:i], m.categories[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *mockCache) DeleteLimitByRemoteID(ctx context.Context, ownerID string, remoteID string) error {
	for i, l := range m.limits {
		if l.OwnerID == ownerID && l.RemoteID == remoteID {
			m.limits = append(m.limits[:i], m.limits[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *mockCache) DeleteAllByOwner(ctx context.Context, ownerID string) error {
	m.purgeOwner(ownerID)
	return nil
}

func inRange(date, from, to time.Time) bool {
	if !from.IsZero() && date.Before(from) {
		return false
	}
	if !to.IsZero() && date.After(to) {
		return false
	}
	return true
}

func (m *mockCache) ListTransactions(ctx context.Context, ownerID string, from time.Time, to time.Time) ([]Transaction, error) {
	var result []Transaction
	for _, t := range m.transactions {
		if t.OwnerID == ownerID && inRange(t.Date, from, to) {
			result = append(result, t)
		}
	}
	return result, nil
}

func (m *mockCache) ListCategories(ctx context.Context, ownerID string) ([]Category, error) {
	var result []Category
	for _, c := range m.categories {
		if c.OwnerID == ownerID {
			result = append(result, c)
		}
	}
	return result, nil
}

func (m *mockCache) ListLimits(ctx context.Context, ownerID string) ([]BudgetLimit, error) {
	var result []BudgetLimit
	for _, l := range m.limits {
		if l.OwnerID == ownerID {
			result = append(result, l)
		}
	}
	return result, nil
}

func (m *mockCache) SumByType(ctx context.Context, ownerID string, txType string, from time.Time, to time.Time) (float64, error) {
	var total float64
	for _, t := range m.transactions {
		if t.OwnerID == ownerID && t.Type == txType && inRange(t.Date, from, to) {
			total += t.Amount
		}
	}
	return total, nil
}

func (m *mockCache) SumByCategory(ctx context.Context, ownerID string, categoryID string, txType string, from time.Time, to time.Time) (float64, error) {
	var total float64
	for _, t := range m.transactions {
		if t.OwnerID == ownerID && t.CategoryID == categoryID && t.Type == txType && inRange(t.Date, from, to) {
			total += t.Amount
		}
	}
	return total, nil
}

// Tests

func TestAddTransactionValidation(t *testing.T) {
	engine := NewEngine(newMockCache(), newMockRemote())
	ctx := context.Background()

	tests := []struct {
		name        string
		input       TransactionRequest
		expectedMsg string
	}{
		{
			name:        "Fail - Empty Name",
			input:       TransactionRequest{Name: "", Amount: 10, Type: TypeExpense},
			expectedMsg: "Transaction name cannot be empty!",
		},
		{
			name:        "Fail - Zero Amount",
			input:       TransactionRequest{Name: "groceries", Amount: 0, Type: TypeExpense},
			expectedMsg: "Transaction amount is zero or very close to zero.",
		},
		{
			name:        "Fail - Negative Amount",
			input:       TransactionRequest{Name: "groceries", Amount: -5, Type: TypeExpense},
			expectedMsg: "Transaction amount is zero or very close to zero.",
		},
		{
			name:        "Fail - Invalid Type",
			input:       TransactionRequest{Name: "groceries", Amount: 10, Type: "TRANSFER"},
			expectedMsg: "Invalid transaction type: TRANSFER",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.AddTransaction(ctx, "owner-1", tt.input)
			if err == nil {
				t.Fatalf("expected error, got nil")
			}
			if appErr, ok := err.(appErrors.ErrorResponse); ok {
				if appErr.Message != tt.expectedMsg {
					t.Errorf("Got message %q, want %q", appErr.Message, tt.expectedMsg)
				}
				if appErr.Code != appErrors.ErrInvalidInput {
					t.Errorf("Got code %q, want %q", appErr.Code, appErrors.ErrInvalidInput)
				}
			} else {
				t.Errorf("expected ErrorResponse, got %T", err)
			}
		})
	}
}

func TestAddLimitValidation(t *testing.T) {
	engine := NewEngine(newMockCache(), newMockRemote())
	ctx := context.Background()

	tests := []struct {
		name        string
		input       LimitRequest
		expectedMsg string
	}{
		{
			name:        "Fail - Missing Category",
			input:       LimitRequest{CategoryID: "", Amount: 100, Period: PeriodMonth},
			expectedMsg: "Limit category is required.",
		},
		{
			name:        "Fail - Zero Amount",
			input:       LimitRequest{CategoryID: "cat-1", Amount: 0, Period: PeriodMonth},
			expectedMsg: "Limit amount is zero or very close to zero.",
		},
		{
			name:        "Fail - Invalid Period",
			input:       LimitRequest{CategoryID: "cat-1", Amount: 100, Period: "DAY"},
			expectedMsg: "Invalid limit period: DAY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.AddLimit(ctx, "owner-1", tt.input)
			if err == nil {
				t.Fatalf("expected error, got nil")
			}
			if appErr, ok := err.(appErrors.ErrorResponse); ok {
				if appErr.Message != tt.expectedMsg {
					t.Errorf("Got message %q, want %q", appErr.Message, tt.expectedMsg)
				}
			} else {
				t.Errorf("expected ErrorResponse, got %T", err)
			}
		})
	}
}

func TestAddTransactionWritesRemoteFirst(t *testing.T) {
	remote := newMockRemote()
	cache := newMockCache()
	engine := NewEngine(cache, remote)
	ctx := context.Background()

	id, err := engine.AddTransaction(ctx, "owner-1", TransactionRequest{
		Name:       "groceries",
		Amount:     42.50,
		Type:       TypeExpense,
		CategoryID: "cat-food",
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	// The remote document and the local row share the same identity.
	require.Contains(t, remote.transactions["owner-1"], id)

	rows, err := cache.ListTransactions(ctx, "owner-1", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, id, rows[0].RemoteID)
	require.True(t, rows[0].Synced)
	require.Equal(t, "owner-1", rows[0].OwnerID)
}

func TestAddTransactionRemoteUnavailable(t *testing.T) {
	remote := newMockRemote()
	remote.unreachable = true
	cache := newMockCache()
	engine := NewEngine(cache, remote)
	ctx := context.Background()

	_, err := engine.AddTransaction(ctx, "owner-1", TransactionRequest{
		Name:   "groceries",
		Amount: 42.50,
		Type:   TypeExpense,
	})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrRemoteUnavailable, appErrors.CodeOf(err))

	// Nothing may be mirrored locally when the remote write failed.
	rows, err := cache.ListTransactions(ctx, "owner-1", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestAddTransactionRemoteRejected(t *testing.T) {
	remote := newMockRemote()
	remote.reject = true
	cache := newMockCache()
	engine := NewEngine(cache, remote)
	ctx := context.Background()

	_, err := engine.AddTransaction(ctx, "owner-1", TransactionRequest{
		Name:   "groceries",
		Amount: 42.50,
		Type:   TypeExpense,
	})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrRemoteRejected, appErrors.CodeOf(err))
}

func TestUpdateTransactionKeepsIdentity(t *testing.T) {
	remote := newMockRemote()
	cache := newMockCache()
	engine := NewEngine(cache, remote)
	ctx := context.Background()

	id, err := engine.AddTransaction(ctx, "owner-1", TransactionRequest{
		Name:   "groceries",
		Amount: 42.50,
		Type:   TypeExpense,
	})
	require.NoError(t, err)

	updatedID, err := engine.AddTransaction(ctx, "owner-1", TransactionRequest{
		RemoteID: id,
		Name:     "groceries and cleaning",
		Amount:   55.00,
		Type:     TypeExpense,
	})
	require.NoError(t, err)
	require.Equal(t, id, updatedID)

	rows, err := cache.ListTransactions(ctx, "owner-1", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "groceries and cleaning", rows[0].Name)
	require.Equal(t, 55.00, rows[0].Amount)
	require.Equal(t, "groceries and cleaning", remote.transactions["owner-1"][id].Name)
}

func TestDeleteTransactionRemoteFirst(t *testing.T) {
	remote := newMockRemote()
	cache := newMockCache()
	engine := NewEngine(cache, remote)
	ctx := context.Background()

	id, err := engine.AddTransaction(ctx, "owner-1", TransactionRequest{
		Name:   "groceries",
		Amount: 42.50,
		Type:   TypeExpense,
	})
	require.NoError(t, err)

	require.NoError(t, engine.DeleteTransaction(ctx, "owner-1", id))
	require.NotContains(t, remote.transactions["owner-1"], id)

	rows, err := cache.ListTransactions(ctx, "owner-1", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestDeleteTransactionRemoteUnavailableKeepsLocalRow(t *testing.T) {
	remote := newMockRemote()
	cache := newMockCache()
	engine := NewEngine(cache, remote)
	ctx := context.Background()

	id, err := engine.AddTransaction(ctx, "owner-1", TransactionRequest{
		Name:   "groceries",
		Amount: 42.50,
		Type:   TypeExpense,
	})
	require.NoError(t, err)

	remote.unreachable = true
	err = engine.DeleteTransaction(ctx, "owner-1", id)
	require.Error(t, err)

	// The cloud still has the document, so the cache must keep the row.
	rows, err := cache.ListTransactions(ctx, "owner-1", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestUpdateCategoryRequiresID(t *testing.T) {
	engine := NewEngine(newMockCache(), newMockRemote())
	ctx := context.Background()

	err := engine.UpdateCategory(ctx, "owner-1", CategoryRequest{Name: "food"})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInvalidInput, appErrors.CodeOf(err))

	err = engine.UpdateLimit(ctx, "owner-1", LimitRequest{CategoryID: "cat-1", Amount: 100, Period: PeriodMonth})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInvalidInput, appErrors.CodeOf(err))
}

func TestSyncFromCloudReplacesOwnerImage(t *testing.T) {
	remote := newMockRemote()
	cache := newMockCache()
	engine := NewEngine(cache, remote)
	ctx := context.Background()

	// Stale local rows: one synced leftover and one for another owner.
	_ = cache.UpsertTransaction(ctx, Transaction{RemoteID: "stale-1", OwnerID: "owner-1", Name: "old", Amount: 1, Type: TypeExpense})
	_ = cache.UpsertTransaction(ctx, Transaction{RemoteID: "other-1", OwnerID: "owner-2", Name: "keep", Amount: 2, Type: TypeExpense})

	catID, err := remote.CreateCategory(ctx, "owner-1", CategoryDoc{Name: "food"})
	require.NoError(t, err)
	txID, err := remote.CreateTransaction(ctx, "owner-1", TransactionDoc{
		Name: "groceries", Amount: 42.50, Type: TypeExpense, CategoryID: catID, Date: time.Now(),
	})
	require.NoError(t, err)
	limID, err := remote.CreateLimit(ctx, "owner-1", LimitDoc{CategoryID: catID, Amount: 300, Period: PeriodMonth})
	require.NoError(t, err)

	require.NoError(t, engine.SyncFromCloud(ctx, "owner-1"))

	rows, err := cache.ListTransactions(ctx, "owner-1", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, txID, rows[0].RemoteID)
	require.True(t, rows[0].Synced)

	categories, err := cache.ListCategories(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, categories, 1)
	require.Equal(t, catID, categories[0].RemoteID)

	limits, err := cache.ListLimits(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, limits, 1)
	require.Equal(t, limID, limits[0].RemoteID)

	// The other owner's rows are untouched.
	otherRows, err := cache.ListTransactions(ctx, "owner-2", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, otherRows, 1)
}

func TestSyncFromCloudRemoteUnavailable(t *testing.T) {
	remote := newMockRemote()
	cache := newMockCache()
	engine := NewEngine(cache, remote)
	ctx := context.Background()

	_ = cache.UpsertTransaction(ctx, Transaction{RemoteID: "keep-1", OwnerID: "owner-1", Name: "old", Amount: 1, Type: TypeExpense})

	remote.unreachable = true
	err := engine.SyncFromCloud(ctx, "owner-1")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrRemoteUnavailable, appErrors.CodeOf(err))

	// A failed pull-down never touches the cache.
	require.Equal(t, 0, cache.replaceCalls)
	rows, err := cache.ListTransactions(ctx, "owner-1", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestSyncFromCloudLocalFailure(t *testing.T) {
	remote := newMockRemote()
	cache := newMockCache()
	cache.failReplace = true
	engine := NewEngine(cache, remote)
	ctx := context.Background()

	err := engine.SyncFromCloud(ctx, "owner-1")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrLocalFailure, appErrors.CodeOf(err))
}

func TestClearLocalData(t *testing.T) {
	remote := newMockRemote()
	cache := newMockCache()
	engine := NewEngine(cache, remote)
	ctx := context.Background()

	id, err := engine.AddTransaction(ctx, "owner-1", TransactionRequest{
		Name:   "groceries",
		Amount: 42.50,
		Type:   TypeExpense,
	})
	require.NoError(t, err)
	_ = cache.UpsertTransaction(ctx, Transaction{RemoteID: "other-1", OwnerID: "owner-2", Name: "keep", Amount: 2, Type: TypeExpense})

	require.NoError(t, engine.ClearLocalData(ctx, "owner-1"))
	// Idempotent.
	require.NoError(t, engine.ClearLocalData(ctx, "owner-1"))

	rows, err := cache.ListTransactions(ctx, "owner-1", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Empty(t, rows)

	// Logout is local only: the cloud document survives.
	require.Contains(t, remote.transactions["owner-1"], id)

	otherRows, err := cache.ListTransactions(ctx, "owner-2", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, otherRows, 1)
}

func TestGetSummary(t *testing.T) {
	cache := newMockCache()
	engine := NewEngine(cache, newMockRemote())
	ctx := context.Background()

	jan := func(day int) time.Time {
		return time.Date(2025, time.January, day, 12, 0, 0, 0, time.UTC)
	}
	_ = cache.UpsertTransaction(ctx, Transaction{RemoteID: "t1", OwnerID: "owner-1", Name: "rent", Amount: 500, Type: TypeExpense, Date: jan(5)})
	_ = cache.UpsertTransaction(ctx, Transaction{RemoteID: "t2", OwnerID: "owner-1", Name: "salary", Amount: 25000, Type: TypeIncome, Date: jan(10)})
	// Outside the requested range.
	_ = cache.UpsertTransaction(ctx, Transaction{RemoteID: "t3", OwnerID: "owner-1", Name: "gift", Amount: 999, Type: TypeIncome, Date: time.Date(2025, time.February, 3, 0, 0, 0, 0, time.UTC)})
	// Another owner.
	_ = cache.UpsertTransaction(ctx, Transaction{RemoteID: "t4", OwnerID: "owner-2", Name: "noise", Amount: 777, Type: TypeExpense, Date: jan(6)})

	from := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, time.January, 31, 23, 59, 59, 0, time.UTC)

	summary, err := engine.GetSummary(ctx, "owner-1", from, to)
	require.NoError(t, err)
	require.Equal(t, 500.0, summary.Expense)
	require.Equal(t, 25000.0, summary.Income)
	require.Equal(t, 24500.0, summary.Balance)
}

func TestGetSummaryEmptyCache(t *testing.T) {
	engine := NewEngine(newMockCache(), newMockRemote())

	summary, err := engine.GetSummary(context.Background(), "owner-1", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Equal(t, 0.0, summary.Expense)
	require.Equal(t, 0.0, summary.Income)
	require.Equal(t, 0.0, summary.Balance)
}

func TestGetLimitProgress(t *testing.T) {
	cache := newMockCache()
	engine := NewEngine(cache, newMockRemote())
	ctx := context.Background()

	now := time.Date(2025, time.June, 15, 10, 0, 0, 0, time.UTC)

	_ = cache.UpsertLimit(ctx, BudgetLimit{RemoteID: "l1", OwnerID: "owner-1", CategoryID: "cat-food", Amount: 1000, Period: PeriodMonth})
	// Inside the current month window.
	_ = cache.UpsertTransaction(ctx, Transaction{RemoteID: "t1", OwnerID: "owner-1", Name: "groceries", Amount: 150, Type: TypeExpense, CategoryID: "cat-food", Date: time.Date(2025, time.June, 3, 0, 0, 0, 0, time.UTC)})
	_ = cache.UpsertTransaction(ctx, Transaction{RemoteID: "t2", OwnerID: "owner-1", Name: "market", Amount: 100, Type: TypeExpense, CategoryID: "cat-food", Date: time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)})
	// Previous month: excluded.
	_ = cache.UpsertTransaction(ctx, Transaction{RemoteID: "t3", OwnerID: "owner-1", Name: "old", Amount: 400, Type: TypeExpense, CategoryID: "cat-food", Date: time.Date(2025, time.May, 20, 0, 0, 0, 0, time.UTC)})
	// Income never counts against a limit.
	_ = cache.UpsertTransaction(ctx, Transaction{RemoteID: "t4", OwnerID: "owner-1", Name: "refund", Amount: 50, Type: TypeIncome, CategoryID: "cat-food", Date: time.Date(2025, time.June, 11, 0, 0, 0, 0, time.UTC)})

	progress, err := engine.GetLimitProgress(ctx, "owner-1", now)
	require.NoError(t, err)
	require.Len(t, progress, 1)
	require.Equal(t, "l1", progress[0].RemoteID)
	require.Equal(t, 250.0, progress[0].Spent)
	require.Equal(t, 25, progress[0].UsagePercent)
}

func TestPeriodStart(t *testing.T) {
	// Sunday June 15, 2025.
	now := time.Date(2025, time.June, 15, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name   string
		period string
		want   time.Time
	}{
		{
			name:   "Week starts on Monday",
			period: PeriodWeek,
			want:   time.Date(2025, time.June, 9, 0, 0, 0, 0, time.UTC),
		},
		{
			name:   "Month starts on the 1st",
			period: PeriodMonth,
			want:   time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:   "Year starts on January 1st",
			period: PeriodYear,
			want:   time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := periodStart(tt.period, now)
			if !got.Equal(tt.want) {
				t.Errorf("periodStart(%s) = %v, want %v", tt.period, got, tt.want)
			}
		})
	}
}
