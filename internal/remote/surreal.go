package remote

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"

	"github.com/google/uuid"
	surrealdb "github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/pkg/connection"
	"github.com/surrealdb/surrealdb.go/pkg/connection/gorillaws"
	"github.com/surrealdb/surrealdb.go/pkg/models"
	"github.com/surrealdb/surrealdb.go/surrealcbor"

	appErrors "github.com/fatali-fataliyev/budget_sync/errors"
	"github.com/fatali-fataliyev/budget_sync/internal/contextutil"
	"github.com/fatali-fataliyev/budget_sync/internal/syncer"
	"github.com/fatali-fataliyev/budget_sync/logging"
)

// One table per entity kind; the record id is the remote identity and every
// document carries its owner for the list filter.
const (
	tableCategory    = "category"
	tableTransaction = "transaction"
	tableLimit       = "budget_limit"
)

// SurrealRemote is the authoritative document store, backed by SurrealDB.
// The surrealcbor codec is required for time.Time and RecordID round trips;
// the default marshaling produces datetime formats the server rejects.
type SurrealRemote struct {
	db *surrealdb.DB
}

func Init() (*SurrealRemote, error) {
	wsURL := os.Getenv("SURREAL_URL")
	namespace := os.Getenv("SURREAL_NS")
	database := os.Getenv("SURREAL_DB")
	username := os.Getenv("SURREAL_USER")
	password := os.Getenv("SURREAL_PASS")

	if wsURL == "" {
		wsURL = "ws://localhost:8000/rpc"
	}
	if namespace == "" {
		namespace = "budget_sync"
	}
	if database == "" {
		database = "budget_sync"
	}

	ctx := context.Background()

	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse SURREAL_URL: %w", err)
	}

	conf := connection.NewConfig(u)
	codec := surrealcbor.New()
	conf.Marshaler = codec
	conf.Unmarshaler = codec

	conn := gorillaws.New(conf)

	db, err := surrealdb.FromConnection(ctx, conn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to remote store: %w", err)
	}

	if username != "" && password != "" {
		if _, err := db.SignIn(ctx, map[string]any{
			"user": username,
			"pass": password,
		}); err != nil {
			return nil, fmt.Errorf("failed to authenticate to remote store: %w", err)
		}
	}

	if err := db.Use(ctx, namespace, database); err != nil {
		return nil, fmt.Errorf("failed to use namespace/database: %w", err)
	}

	logging.Logger.Infof("connected to remote store at %s (%s/%s)", wsURL, namespace, database)
	return &SurrealRemote{db: db}, nil
}

func (s *SurrealRemote) Close() error {
	return s.db.Close(context.Background())
}

// Document shapes as stored in SurrealDB.

type categoryDoc struct {
	ID    *models.RecordID `json:"id,omitempty"`
	Owner string           `json:"owner"`
	Name  string           `json:"name"`
	Icon  string           `json:"icon"`
	Color string           `json:"color"`
}

type transactionDoc struct {
	ID       *models.RecordID      `json:"id,omitempty"`
	Owner    string                `json:"owner"`
	Name     string                `json:"name"`
	Amount   float64               `json:"amount"`
	Type     string                `json:"type"`
	Category string                `json:"category"`
	Date     models.CustomDateTime `json:"date"`
	Note     string                `json:"note"`
}

type limitDoc struct {
	ID       *models.RecordID `json:"id,omitempty"`
	Owner    string           `json:"owner"`
	Category string           `json:"category"`
	Amount   float64          `json:"amount"`
	Period   string           `json:"period"`
}

// recordKey extracts the plain string key from a record id. Documents with
// missing or non-string ids are malformed and get dropped by the callers.
func recordKey(id *models.RecordID) string {
	if id == nil {
		return ""
	}
	if key, ok := id.ID.(string); ok {
		return key
	}
	return ""
}

// remoteFailure classifies a remote error: store-reported rejections keep
// their own taxonomy slot so callers can distinguish "the store said no"
// from "the store did not answer".
func remoteFailure(traceID string, op string, err error) error {
	logging.Logger.Errorf("[TraceID=%s] | remote store failure in Remote.%s() | Error: %v", traceID, op, err)

	var rpcErr connection.RPCError
	var rpcErrPtr *connection.RPCError
	var legacyRPCErr *surrealdb.RPCError
	if errors.As(err, &rpcErr) || errors.As(err, &rpcErrPtr) || errors.As(err, &legacyRPCErr) {
		return appErrors.ErrorResponse{
			Code:    appErrors.ErrRemoteRejected,
			Message: "The cloud store rejected the operation.",
		}
	}
	return appErrors.ErrorResponse{
		Code:    appErrors.ErrRemoteUnavailable,
		Message: "The cloud store is unreachable, try again later.",
	}
}

const listQuery = `SELECT * FROM type::table($tb) WHERE owner = $owner`

func (s *SurrealRemote) ListCategories(ctx context.Context, ownerID string) ([]syncer.CategoryDoc, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	res, err := surrealdb.Query[[]categoryDoc](ctx, s.db, listQuery, map[string]any{
		"tb":    tableCategory,
		"owner": ownerID,
	})
	if err != nil {
		return nil, remoteFailure(traceID, "ListCategories", err)
	}

	var docs []syncer.CategoryDoc
	for _, result := range *res {
		for _, doc := range result.Result {
			key := recordKey(doc.ID)
			if key == "" {
				logging.Logger.Warnf("[TraceID=%s] | dropping malformed category document", traceID)
				continue
			}
			docs = append(docs, syncer.CategoryDoc{
				RemoteID: key,
				Name:     doc.Name,
				Icon:     doc.Icon,
				Color:    doc.Color,
			})
		}
	}
	return docs, nil
}

func (s *SurrealRemote) ListTransactions(ctx context.Context, ownerID string) ([]syncer.TransactionDoc, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	res, err := surrealdb.Query[[]transactionDoc](ctx, s.db, listQuery, map[string]any{
		"tb":    tableTransaction,
		"owner": ownerID,
	})
	if err != nil {
		return nil, remoteFailure(traceID, "ListTransactions", err)
	}

	var docs []syncer.TransactionDoc
	for _, result := range *res {
		for _, doc := range result.Result {
			key := recordKey(doc.ID)
			if key == "" || (doc.Type != syncer.TypeExpense && doc.Type != syncer.TypeIncome) {
				logging.Logger.Warnf("[TraceID=%s] | dropping malformed transaction document", traceID)
				continue
			}
			docs = append(docs, syncer.TransactionDoc{
				RemoteID:   key,
				Name:       doc.Name,
				Amount:     doc.Amount,
				Type:       doc.Type,
				CategoryID: doc.Category,
				Date:       doc.Date.Time,
				Note:       doc.Note,
			})
		}
	}
	return docs, nil
}

func (s *SurrealRemote) ListLimits(ctx context.Context, ownerID string) ([]syncer.LimitDoc, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	res, err := surrealdb.Query[[]limitDoc](ctx, s.db, listQuery, map[string]any{
		"tb":    tableLimit,
		"owner": ownerID,
	})
	if err != nil {
		return nil, remoteFailure(traceID, "ListLimits", err)
	}

	var docs []syncer.LimitDoc
	for _, result := range *res {
		for _, doc := range result.Result {
			key := recordKey(doc.ID)
			if key == "" || doc.Category == "" {
				logging.Logger.Warnf("[TraceID=%s] | dropping malformed budget limit document", traceID)
				continue
			}
			docs = append(docs, syncer.LimitDoc{
				RemoteID:   key,
				CategoryID: doc.Category,
				Amount:     doc.Amount,
				Period:     doc.Period,
			})
		}
	}
	return docs, nil
}

func (s *SurrealRemote) CreateCategory(ctx context.Context, ownerID string, doc syncer.CategoryDoc) (string, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	id := uuid.New().String()
	rid := models.NewRecordID(tableCategory, id)
	_, err := surrealdb.Create[categoryDoc](ctx, s.db, tableCategory, categoryDoc{
		ID:    &rid,
		Owner: ownerID,
		Name:  doc.Name,
		Icon:  doc.Icon,
		Color: doc.Color,
	})
	if err != nil {
		return "", remoteFailure(traceID, "CreateCategory", err)
	}
	return id, nil
}

func (s *SurrealRemote) CreateTransaction(ctx context.Context, ownerID string, doc syncer.TransactionDoc) (string, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	id := uuid.New().String()
	rid := models.NewRecordID(tableTransaction, id)
	_, err := surrealdb.Create[transactionDoc](ctx, s.db, tableTransaction, transactionDoc{
		ID:       &rid,
		Owner:    ownerID,
		Name:     doc.Name,
		Amount:   doc.Amount,
		Type:     doc.Type,
		Category: doc.CategoryID,
		Date:     models.CustomDateTime{Time: doc.Date},
		Note:     doc.Note,
	})
	if err != nil {
		return "", remoteFailure(traceID, "CreateTransaction", err)
	}
	return id, nil
}

func (s *SurrealRemote) CreateLimit(ctx context.Context, ownerID string, doc syncer.LimitDoc) (string, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	id := uuid.New().String()
	rid := models.NewRecordID(tableLimit, id)
	_, err := surrealdb.Create[limitDoc](ctx, s.db, tableLimit, limitDoc{
		ID:       &rid,
		Owner:    ownerID,
		Category: doc.CategoryID,
		Amount:   doc.Amount,
		Period:   doc.Period,
	})
	if err != nil {
		return "", remoteFailure(traceID, "CreateLimit", err)
	}
	return id, nil
}

func (s *SurrealRemote) SetCategory(ctx context.Context, ownerID string, remoteID string, doc syncer.CategoryDoc) error {
	traceID := contextutil.TraceIDFromContext(ctx)

	rid := models.NewRecordID(tableCategory, remoteID)
	_, err := surrealdb.Update[categoryDoc](ctx, s.db, rid, categoryDoc{
		ID:    &rid,
		Owner: ownerID,
		Name:  doc.Name,
		Icon:  doc.Icon,
		Color: doc.Color,
	})
	if err != nil {
		return remoteFailure(traceID, "SetCategory", err)
	}
	return nil
}

func (s *SurrealRemote) SetTransaction(ctx context.Context, ownerID string, remoteID string, doc syncer.TransactionDoc) error {
	traceID := contextutil.TraceIDFromContext(ctx)

	rid := models.NewRecordID(tableTransaction, remoteID)
	_, err := surrealdb.Update[transactionDoc](ctx, s.db, rid, transactionDoc{
		ID:       &rid,
		Owner:    ownerID,
		Name:     doc.Name,
		Amount:   doc.Amount,
		Type:     doc.Type,
		Category: doc.CategoryID,
		Date:     models.CustomDateTime{Time: doc.Date},
		Note:     doc.Note,
	})
	if err != nil {
		return remoteFailure(traceID, "SetTransaction", err)
	}
	return nil
}

func (s *SurrealRemote) SetLimit(ctx context.Context, ownerID string, remoteID string, doc syncer.LimitDoc) error {
	traceID := contextutil.TraceIDFromContext(ctx)

	rid := models.NewRecordID(tableLimit, remoteID)
	_, err := surrealdb.Update[limitDoc](ctx, s.db, rid, limitDoc{
		ID:       &rid,
		Owner:    ownerID,
		Category: doc.CategoryID,
		Amount:   doc.Amount,
		Period:   doc.Period,
	})
	if err != nil {
		return remoteFailure(traceID, "SetLimit", err)
	}
	return nil
}

func (s *SurrealRemote) DeleteCategory(ctx context.Context, ownerID string, remoteID string) error {
	traceID := contextutil.TraceIDFromContext(ctx)

	if _, err := surrealdb.Delete[categoryDoc](ctx, s.db, models.NewRecordID(tableCategory, remoteID)); err != nil {
		return remoteFailure(traceID, "DeleteCategory", err)
	}
	return nil
}

func (s *SurrealRemote) DeleteTransaction(ctx context.Context, ownerID string, remoteID string) error {
	traceID := contextutil.TraceIDFromContext(ctx)

	if _, err := surrealdb.Delete[transactionDoc](ctx, s.db, models.NewRecordID(tableTransaction, remoteID)); err != nil {
		return remoteFailure(traceID, "DeleteTransaction", err)
	}
	return nil
}

func (s *SurrealRemote) DeleteLimit(ctx context.Context, ownerID string, remoteID string) error {
	traceID := contextutil.TraceIDFromContext(ctx)

	if _, err := surrealdb.Delete[limitDoc](ctx, s.db, models.NewRecordID(tableLimit, remoteID)); err != nil {
		return remoteFailure(traceID, "DeleteLimit", err)
	}
	return nil
}
