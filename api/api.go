package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/0xcafe-io/iz"
	"github.com/fatali-fataliyev/budget_sync/internal/contextutil"
	"github.com/fatali-fataliyev/budget_sync/internal/syncer"
	"github.com/fatali-fataliyev/budget_sync/logging"
)

type Api struct {
	Engine *syncer.Engine
}

func NewApi(engine *syncer.Engine) *Api {
	return &Api{
		Engine: engine,
	}
}

// ownerFromRequest reads the owner identity established by the external
// auth layer. Requests without it never reach the engine.
func ownerFromRequest(r *iz.Request) (string, iz.Responder) {
	ownerId := r.Header.Get("X-Owner-ID")
	if ownerId == "" {
		msg := "authorization failed: X-Owner-ID header is required."
		return "", iz.Respond().Status(401).Text(msg)
	}
	return ownerId, nil
}

func requestContext() context.Context {
	return contextutil.WithTraceID(context.Background())
}

func (api *Api) SyncHandler(r *iz.Request) iz.Responder {
	ownerId, denied := ownerFromRequest(r)
	if denied != nil {
		return denied
	}

	if err := api.Engine.SyncFromCloud(requestContext(), ownerId); err != nil {
		msg := fmt.Sprintf("synchronization failed: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}
	return iz.Respond().Status(200).Text("synchronization completed")
}

func (api *Api) LogoutHandler(r *iz.Request) iz.Responder {
	ownerId, denied := ownerFromRequest(r)
	if denied != nil {
		return denied
	}

	if err := api.Engine.ClearLocalData(requestContext(), ownerId); err != nil {
		msg := fmt.Sprintf("logout failed: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}
	return iz.Respond().Status(200).Text("local data cleared")
}

func (api *Api) SaveTransactionHandler(r *iz.Request) iz.Responder {
	ownerId, denied := ownerFromRequest(r)
	if denied != nil {
		return denied
	}

	var newTransactionReq CreateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&newTransactionReq); err != nil {
		logging.Logger.Errorf("Failed to parse save transaction request: %v", err)
		msg := fmt.Sprintf("failed to parse save transaction request: %v", err)
		return iz.Respond().Status(400).Text(msg)
	}

	req, err := transactionRequestFromHttp("", newTransactionReq)
	if err != nil {
		return iz.Respond().Status(httpStatusFromError(err)).Text(err.Error())
	}

	id, err := api.Engine.AddTransaction(requestContext(), ownerId, req)
	if err != nil {
		msg := fmt.Sprintf("failed to create transaction: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}

	resp := CreatedResponse{
		Message: "transaction successfully created",
		ID:      id,
	}
	return iz.Respond().Status(201).JSON(resp)
}

func (api *Api) UpdateTransactionHandler(r *iz.Request) iz.Responder {
	ownerId, denied := ownerFromRequest(r)
	if denied != nil {
		return denied
	}

	tId := r.PathValue("id")
	if tId == "" {
		return iz.Respond().Status(400).Text("transaction id is required.")
	}

	var updateReq CreateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&updateReq); err != nil {
		msg := fmt.Sprintf("failed to parse update transaction request: %v", err)
		return iz.Respond().Status(400).Text(msg)
	}

	req, err := transactionRequestFromHttp(tId, updateReq)
	if err != nil {
		return iz.Respond().Status(httpStatusFromError(err)).Text(err.Error())
	}

	if _, err := api.Engine.AddTransaction(requestContext(), ownerId, req); err != nil {
		msg := fmt.Sprintf("failed to update transaction: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}
	return iz.Respond().Status(200).Text("transaction successfully updated")
}

func (api *Api) DeleteTransactionHandler(r *iz.Request) iz.Responder {
	ownerId, denied := ownerFromRequest(r)
	if denied != nil {
		return denied
	}

	tId := r.PathValue("id")
	if tId == "" {
		return iz.Respond().Status(400).Text("transaction id is required.")
	}

	if err := api.Engine.DeleteTransaction(requestContext(), ownerId, tId); err != nil {
		msg := fmt.Sprintf("failed to delete transaction: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}
	return iz.Respond().Status(200).Text("transaction successfully deleted")
}

func (api *Api) GetFilteredTransactionsHandler(r *iz.Request) iz.Responder {
	ownerId, denied := ownerFromRequest(r)
	if denied != nil {
		return denied
	}

	from, to, err := DateRangeCheckParams(r.URL.Query())
	if err != nil {
		return iz.Respond().Status(httpStatusFromError(err)).Text(err.Error())
	}

	transactions, err := api.Engine.GetTransactions(requestContext(), ownerId, from, to)
	if err != nil {
		msg := fmt.Sprintf("failed to get transactions: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}

	resp := ListTransactionsResponse{
		Transactions: make([]TransactionItem, 0, len(transactions)),
	}
	for _, transaction := range transactions {
		resp.Transactions = append(resp.Transactions, TransactionToHttp(transaction))
	}
	return iz.Respond().Status(200).JSON(resp)
}

func (api *Api) SaveCategoryHandler(r *iz.Request) iz.Responder {
	ownerId, denied := ownerFromRequest(r)
	if denied != nil {
		return denied
	}

	var newCategoryReq CreateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&newCategoryReq); err != nil {
		msg := fmt.Sprintf("failed to parse save category request: %v", err)
		return iz.Respond().Status(400).Text(msg)
	}

	id, err := api.Engine.AddCategory(requestContext(), ownerId, syncer.CategoryRequest{
		Name:  newCategoryReq.Name,
		Icon:  newCategoryReq.Icon,
		Color: newCategoryReq.Color,
	})
	if err != nil {
		msg := fmt.Sprintf("failed to create category: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}

	resp := CreatedResponse{
		Message: "category successfully created",
		ID:      id,
	}
	return iz.Respond().Status(201).JSON(resp)
}

func (api *Api) UpdateCategoryHandler(r *iz.Request) iz.Responder {
	ownerId, denied := ownerFromRequest(r)
	if denied != nil {
		return denied
	}

	cId := r.PathValue("id")
	if cId == "" {
		return iz.Respond().Status(400).Text("category id is required.")
	}

	var updateReq CreateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&updateReq); err != nil {
		msg := fmt.Sprintf("failed to parse update category request: %v", err)
		return iz.Respond().Status(400).Text(msg)
	}

	if err := api.Engine.UpdateCategory(requestContext(), ownerId, syncer.CategoryRequest{
		RemoteID: cId,
		Name:     updateReq.Name,
		Icon:     updateReq.Icon,
		Color:    updateReq.Color,
	}); err != nil {
		msg := fmt.Sprintf("failed to update category: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}
	return iz.Respond().Status(200).Text("category successfully updated")
}

func (api *Api) DeleteCategoryHandler(r *iz.Request) iz.Responder {
	ownerId, denied := ownerFromRequest(r)
	if denied != nil {
		return denied
	}

	cId := r.PathValue("id")
	if cId == "" {
		return iz.Respond().Status(400).Text("category id is required.")
	}

	if err := api.Engine.DeleteCategory(requestContext(), ownerId, cId); err != nil {
		msg := fmt.Sprintf("failed to delete category: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}
	return iz.Respond().Status(200).Text("category successfully deleted")
}

func (api *Api) GetCategoriesHandler(r *iz.Request) iz.Responder {
	ownerId, denied := ownerFromRequest(r)
	if denied != nil {
		return denied
	}

	categories, err := api.Engine.GetCategories(requestContext(), ownerId)
	if err != nil {
		msg := fmt.Sprintf("failed to get categories: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}

	resp := ListCategoriesResponse{
		Categories: make([]CategoryItem, 0, len(categories)),
	}
	for _, category := range categories {
		resp.Categories = append(resp.Categories, CategoryToHttp(category))
	}
	return iz.Respond().Status(200).JSON(resp)
}

func (api *Api) SaveLimitHandler(r *iz.Request) iz.Responder {
	ownerId, denied := ownerFromRequest(r)
	if denied != nil {
		return denied
	}

	var newLimitReq CreateLimitRequest
	if err := json.NewDecoder(r.Body).Decode(&newLimitReq); err != nil {
		msg := fmt.Sprintf("failed to parse save limit request: %v", err)
		return iz.Respond().Status(400).Text(msg)
	}

	id, err := api.Engine.AddLimit(requestContext(), ownerId, syncer.LimitRequest{
		CategoryID: newLimitReq.CategoryID,
		Amount:     newLimitReq.Amount,
		Period:     newLimitReq.Period,
	})
	if err != nil {
		msg := fmt.Sprintf("failed to create limit: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}

	resp := CreatedResponse{
		Message: "limit successfully created",
		ID:      id,
	}
	return iz.Respond().Status(201).JSON(resp)
}

func (api *Api) UpdateLimitHandler(r *iz.Request) iz.Responder {
	ownerId, denied := ownerFromRequest(r)
	if denied != nil {
		return denied
	}

	lId := r.PathValue("id")
	if lId == "" {
		return iz.Respond().Status(400).Text("limit id is required.")
	}

	var updateReq CreateLimitRequest
	if err := json.NewDecoder(r.Body).Decode(&updateReq); err != nil {
		msg := fmt.Sprintf("failed to parse update limit request: %v", err)
		return iz.Respond().Status(400).Text(msg)
	}

	if err := api.Engine.UpdateLimit(requestContext(), ownerId, syncer.LimitRequest{
		RemoteID:   lId,
		CategoryID: updateReq.CategoryID,
		Amount:     updateReq.Amount,
		Period:     updateReq.Period,
	}); err != nil {
		msg := fmt.Sprintf("failed to update limit: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}
	return iz.Respond().Status(200).Text("limit successfully updated")
}

func (api *Api) DeleteLimitHandler(r *iz.Request) iz.Responder {
	ownerId, denied := ownerFromRequest(r)
	if denied != nil {
		return denied
	}

	lId := r.PathValue("id")
	if lId == "" {
		return iz.Respond().Status(400).Text("limit id is required.")
	}

	if err := api.Engine.DeleteLimit(requestContext(), ownerId, lId); err != nil {
		msg := fmt.Sprintf("failed to delete limit: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}
	return iz.Respond().Status(200).Text("limit successfully deleted")
}

func (api *Api) GetLimitsHandler(r *iz.Request) iz.Responder {
	ownerId, denied := ownerFromRequest(r)
	if denied != nil {
		return denied
	}

	limits, err := api.Engine.GetLimits(requestContext(), ownerId)
	if err != nil {
		msg := fmt.Sprintf("failed to get limits: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}

	resp := ListLimitsResponse{
		Limits: make([]LimitItem, 0, len(limits)),
	}
	for _, limit := range limits {
		resp.Limits = append(resp.Limits, LimitToHttp(limit))
	}
	return iz.Respond().Status(200).JSON(resp)
}

func (api *Api) GetSummaryHandler(r *iz.Request) iz.Responder {
	ownerId, denied := ownerFromRequest(r)
	if denied != nil {
		return denied
	}

	from, to, err := DateRangeCheckParams(r.URL.Query())
	if err != nil {
		return iz.Respond().Status(httpStatusFromError(err)).Text(err.Error())
	}

	summary, err := api.Engine.GetSummary(requestContext(), ownerId, from, to)
	if err != nil {
		msg := fmt.Sprintf("failed to get summary: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}

	resp := SummaryItem{
		Expense: summary.Expense,
		Income:  summary.Income,
		Balance: summary.Balance,
	}
	return iz.Respond().Status(200).JSON(resp)
}

func (api *Api) GetLimitProgressHandler(r *iz.Request) iz.Responder {
	ownerId, denied := ownerFromRequest(r)
	if denied != nil {
		return denied
	}

	progress, err := api.Engine.GetLimitProgress(requestContext(), ownerId, time.Now())
	if err != nil {
		msg := fmt.Sprintf("failed to get limit progress: %v", err)
		return iz.Respond().Status(httpStatusFromError(err)).Text(msg)
	}

	resp := ListLimitProgressResponse{
		Limits: make([]LimitProgressItem, 0, len(progress)),
	}
	for _, item := range progress {
		resp.Limits = append(resp.Limits, LimitProgressToHttp(item))
	}
	return iz.Respond().Status(200).JSON(resp)
}
