package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/0xcafe-io/iz"
	"github.com/fatali-fataliyev/budget_sync/api"
	"github.com/fatali-fataliyev/budget_sync/internal/remote"
	"github.com/fatali-fataliyev/budget_sync/internal/storage"
	"github.com/fatali-fataliyev/budget_sync/internal/syncer"
	"github.com/fatali-fataliyev/budget_sync/logging"
	"github.com/rs/cors"
)

var corsConf = cors.New(cors.Options{
	AllowedOrigins:   []string{"*"},
	AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
	AllowedHeaders:   []string{"X-Owner-ID", "Content-Type"},
	AllowCredentials: true,
})

func main() {
	if err := logging.Init("debug"); err != nil {
		fmt.Println("failed to initialize logger: %w", err)
		return
	}

	logging.Logger.Info("application starting...")

	var cache syncer.LocalCache
	db, err := storage.Init()
	if err != nil {
		// The local cache is an optimization, not the source of truth.
		// Fall back to the in-memory cache so writes can still reach the cloud.
		logging.Logger.Warnf("failed to initialize local database, using in-memory cache: %v", err)
		cache = storage.NewInMemoryStorage()
	} else {
		cache = storage.NewMySQLStorage(db)
	}

	remoteStore, err := remote.Init()
	if err != nil {
		logging.Logger.Errorf("failed to initialize remote store: %v", err)
		return
	}
	defer remoteStore.Close()

	engine := syncer.NewEngine(cache, remoteStore)

	server := http.NewServeMux()
	api := api.NewApi(engine)

	// SESSION ENDPOINTS.
	server.HandleFunc("POST /api/sync", iz.Bind(api.SyncHandler))     // Pull down the cloud snapshot
	server.HandleFunc("POST /api/logout", iz.Bind(api.LogoutHandler)) // Purge local data for the owner

	// TRANSACTION ENDPOINTS.
	server.HandleFunc("POST /api/transaction", iz.Bind(api.SaveTransactionHandler))          // Create Transaction
	server.HandleFunc("GET /api/transaction", iz.Bind(api.GetFilteredTransactionsHandler))   // Get Transactions with filters
	server.HandleFunc("PUT /api/transaction/{id}", iz.Bind(api.UpdateTransactionHandler))    // Update Transaction
	server.HandleFunc("DELETE /api/transaction/{id}", iz.Bind(api.DeleteTransactionHandler)) // Delete Transaction

	// CATEGORY ENDPOINTS.
	server.HandleFunc("POST /api/category", iz.Bind(api.SaveCategoryHandler))          // Create Category
	server.HandleFunc("GET /api/category", iz.Bind(api.GetCategoriesHandler))          // Get Categories
	server.HandleFunc("PUT /api/category/{id}", iz.Bind(api.UpdateCategoryHandler))    // Update Category
	server.HandleFunc("DELETE /api/category/{id}", iz.Bind(api.DeleteCategoryHandler)) // Delete Category

	// LIMIT ENDPOINTS.
	server.HandleFunc("POST /api/limit", iz.Bind(api.SaveLimitHandler))          // Create Budget Limit
	server.HandleFunc("GET /api/limit", iz.Bind(api.GetLimitsHandler))           // Get Budget Limits
	server.HandleFunc("PUT /api/limit/{id}", iz.Bind(api.UpdateLimitHandler))    // Update Budget Limit
	server.HandleFunc("DELETE /api/limit/{id}", iz.Bind(api.DeleteLimitHandler)) // Delete Budget Limit

	// STATISTICS ENDPOINTS.
	server.HandleFunc("GET /api/statistics/summary", iz.Bind(api.GetSummaryHandler))              // Expense/income totals and balance
	server.HandleFunc("GET /api/statistics/limit-progress", iz.Bind(api.GetLimitProgressHandler)) // Spending against each limit

	port := os.Getenv("APP_PORT")
	if port == "" {
		logging.Logger.Info("APP_PORT environment variable not set, using default port 8080")
		port = "8080"
	}
	fmt.Println("Starting server on port: ", port)
	handlerWithCors := corsConf.Handler(server)
	err = http.ListenAndServe(":"+port, handlerWithCors) // Start the server
	if err != nil {
		logging.Logger.Errorf("failed to start server: %v", err)
		return
	}
}
