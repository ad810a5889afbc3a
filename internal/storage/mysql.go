package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	appErrors "github.com/fatali-fataliyev/budget_sync/errors"
	"github.com/fatali-fataliyev/budget_sync/internal/contextutil"
	"github.com/fatali-fataliyev/budget_sync/internal/syncer"
	"github.com/fatali-fataliyev/budget_sync/logging"
	_ "github.com/go-sql-driver/mysql"
)

// --- INIT START --- //

func Init() (*sql.DB, error) {
	username := os.Getenv("DB_USER")
	password := os.Getenv("DB_PASS")
	host := os.Getenv("DB_HOST")
	port := os.Getenv("DB_PORT")
	dbname := os.Getenv("DB_NAME")
	fullDsn := os.Getenv("FULL_DSN")

	if dbname == "" {
		dbname = "budget_sync"
	}

	var adminDsn string
	if fullDsn != "" {
		parts := strings.Split(fullDsn, "/")
		adminDsn = strings.Join(parts[:len(parts)-1], "/") + "/"
	} else {
		if username == "" || password == "" || host == "" || port == "" {
			return nil, fmt.Errorf("missing required DB environment variables")
		}
		adminDsn = fmt.Sprintf("%s:%s@tcp(%s:%s)/?parseTime=true", username, password, host, port)
	}

	logging.Logger.Info("Connecting to MySQL server for initialization...")
	adminDb, err := sql.Open("mysql", adminDsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open admin mysql handle: %v", err)
	}
	connected := false
	for i := 0; i < 15; i++ {
		if err := adminDb.Ping(); err == nil {
			connected = true
			break
		}
		logging.Logger.Warnf("Database not ready, retrying... (%d/15)", i+1)
		time.Sleep(3 * time.Second)
	}
	if !connected {
		return nil, fmt.Errorf("database unreachable after multiple attempts")
	}

	var dbnameExistence string
	checkDbnameExistQuery := "SELECT SCHEMA_NAME FROM INFORMATION_SCHEMA.SCHEMATA WHERE SCHEMA_NAME = ?"
	err = adminDb.QueryRow(checkDbnameExistQuery, dbname).Scan(&dbnameExistence)

	if err == sql.ErrNoRows {
		logging.Logger.Infof("Database '%s' does not exist, creating...", dbname)
		createDbSql := fmt.Sprintf("CREATE DATABASE `%s` CHARACTER SET utf8mb4 COLLATE utf8mb4_general_ci;", dbname)
		if _, err := adminDb.Exec(createDbSql); err != nil {
			adminDb.Close()
			return nil, fmt.Errorf("failed to create database: %v", err)
		}
	} else if err != nil {
		adminDb.Close()
		return nil, fmt.Errorf("failed to check database existence: %v", err)
	}

	adminDb.Close()

	var finalDsn string
	if fullDsn != "" {
		finalDsn = fullDsn
	} else {
		finalDsn = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true", username, password, host, port, dbname)
	}

	logging.Logger.Info("Connecting to database...")
	db, err := sql.Open("mysql", finalDsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database handle: %v", err)
	}

	logging.Logger.Info("Connected to database successfully")
	logging.Logger.Info("Running migrations...")

	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %v", err)
	}

	return db, nil
}

func runMigrations(db *sql.DB) error {
	files, err := os.ReadDir("db/migrations")
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %v", err)
	}

	var migrationFiles []string
	for _, file := range files {
		if !file.IsDir() && strings.HasSuffix(file.Name(), ".sql") {
			migrationFiles = append(migrationFiles, file.Name())
		}
	}
	sort.Strings(migrationFiles)

	lastApplied, err := lastAppliedMigration(db)
	if err != nil {
		return fmt.Errorf("failed to get last applied migration name: %v", err)
	}

	applied := 0
	for _, migrationFile := range migrationFiles {
		if lastApplied != "" && migrationFile <= lastApplied {
			continue
		}
		logging.Logger.Info("applying migration: ", migrationFile)
		content, err := os.ReadFile(filepath.Join("db/migrations", migrationFile))
		if err != nil {
			return fmt.Errorf("failed to read this '%s' migration file, error: %v", migrationFile, err)
		}
		if err := applyMigration(db, migrationFile, string(content)); err != nil {
			return fmt.Errorf("failed to apply this '%s' migration file, error: %v", migrationFile, err)
		}
		applied++
	}

	if applied == 0 {
		logging.Logger.Info("no new migration")
		return nil
	}
	logging.Logger.Info("all migrations applied successfully")
	return nil
}

func lastAppliedMigration(db *sql.DB) (string, error) {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS migration (
        id INT AUTO_INCREMENT PRIMARY KEY,
        migration_name VARCHAR(255) NOT NULL UNIQUE,
        applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
    );`)
	if err != nil {
		return "", err
	}

	var lastMigration string
	err = db.QueryRow("SELECT migration_name FROM migration ORDER BY migration_name DESC LIMIT 1").Scan(&lastMigration)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return lastMigration, err
}

func applyMigration(db *sql.DB, name, sqlContent string) error {
	txn, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	for _, statement := range strings.Split(sqlContent, ";") {
		trimmedStmt := strings.TrimSpace(statement)
		if trimmedStmt == "" {
			continue
		}
		if _, err := txn.Exec(trimmedStmt); err != nil {
			txn.Rollback()
			return fmt.Errorf("migration statement failed: %w\nStatement: %s", err, trimmedStmt)
		}
	}

	if _, err := txn.Exec("INSERT INTO migration (migration_name) VALUES (?)", name); err != nil {
		txn.Rollback()
		return fmt.Errorf("failed to record migration name: %w", err)
	}

	return txn.Commit()
}

// --- INIT END --- //

type MySQLStorage struct {
	db *sql.DB
}

func NewMySQLStorage(db *sql.DB) *MySQLStorage {
	return &MySQLStorage{db: db}
}

func (mySql *MySQLStorage) GetStorageType() string {
	return "MySQL"
}

func localFailure(traceID string, op string, err error) error {
	logging.Logger.Errorf("[TraceID=%s] | local cache failure in Storage.%s() | Error: %v", traceID, op, err)
	return appErrors.ErrorResponse{
		Code:    appErrors.ErrLocalFailure,
		Message: "Local cache operation failed, try again later.",
	}
}

// ReplaceAll swaps the owner's whole local image for the snapshot in one
// transaction: purge, then insert. A failure rolls back and leaves the
// cache untouched.
func (mySql *MySQLStorage) ReplaceAll(ctx context.Context, ownerID string, snapshot syncer.Snapshot) error {
	traceID := contextutil.TraceIDFromContext(ctx)

	txn, err := mySql.db.Begin()
	if err != nil {
		return localFailure(traceID, "ReplaceAll", err)
	}

	for _, table := range []string{"budget_limit", "transaction", "category"} {
		if _, err := txn.Exec("DELETE FROM "+table+" WHERE owner_id = ?", ownerID); err != nil {
			txn.Rollback()
			return localFailure(traceID, "ReplaceAll", err)
		}
	}

	for _, c := range snapshot.Categories {
		if _, err := txn.Exec(upsertCategoryQuery, c.RemoteID, c.OwnerID, c.Synced, c.Name, c.Icon, c.Color); err != nil {
			txn.Rollback()
			return localFailure(traceID, "ReplaceAll", err)
		}
	}
	for _, t := range snapshot.Transactions {
		if _, err := txn.Exec(upsertTransactionQuery, t.RemoteID, t.OwnerID, t.Synced, t.Name, t.Amount, t.Type, t.CategoryID, t.Date, t.Note); err != nil {
			txn.Rollback()
			return localFailure(traceID, "ReplaceAll", err)
		}
	}
	for _, l := range snapshot.Limits {
		if _, err := txn.Exec(upsertLimitQuery, l.RemoteID, l.OwnerID, l.Synced, l.CategoryID, l.Amount, l.Period); err != nil {
			txn.Rollback()
			return localFailure(traceID, "ReplaceAll", err)
		}
	}

	if err := txn.Commit(); err != nil {
		return localFailure(traceID, "ReplaceAll", err)
	}
	return nil
}

// Upserts are keyed on (owner_id, remote_id) so a re-mirror of an already
// cached record replaces the row instead of duplicating it.

const upsertTransactionQuery = `INSERT INTO transaction
	(remote_id, owner_id, synced, name, amount, type, category_id, tx_date, note)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON DUPLICATE KEY UPDATE
	synced = VALUES(synced), name = VALUES(name), amount = VALUES(amount),
	type = VALUES(type), category_id = VALUES(category_id),
	tx_date = VALUES(tx_date), note = VALUES(note)`

const upsertCategoryQuery = `INSERT INTO category
	(remote_id, owner_id, synced, name, icon, color)
	VALUES (?, ?, ?, ?, ?, ?)
	ON DUPLICATE KEY UPDATE
	synced = VALUES(synced), name = VALUES(name), icon = VALUES(icon), color = VALUES(color)`

const upsertLimitQuery = `INSERT INTO budget_limit
	(remote_id, owner_id, synced, category_id, amount, period)
	VALUES (?, ?, ?, ?, ?, ?)
	ON DUPLICATE KEY UPDATE
	synced = VALUES(synced), category_id = VALUES(category_id),
	amount = VALUES(amount), period = VALUES(period)`

func (mySql *MySQLStorage) UpsertTransaction(ctx context.Context, t syncer.Transaction) error {
	traceID := contextutil.TraceIDFromContext(ctx)
	_, err := mySql.db.Exec(upsertTransactionQuery, t.RemoteID, t.OwnerID, t.Synced, t.Name, t.Amount, t.Type, t.CategoryID, t.Date, t.Note)
	if err != nil {
		return localFailure(traceID, "UpsertTransaction", err)
	}
	return nil
}

func (mySql *MySQLStorage) UpsertCategory(ctx context.Context, c syncer.Category) error {
	traceID := contextutil.TraceIDFromContext(ctx)
	_, err := mySql.db.Exec(upsertCategoryQuery, c.RemoteID, c.OwnerID, c.Synced, c.Name, c.Icon, c.Color)
	if err != nil {
		return localFailure(traceID, "UpsertCategory", err)
	}
	return nil
}

func (mySql *MySQLStorage) UpsertLimit(ctx context.Context, l syncer.BudgetLimit) error {
	traceID := contextutil.TraceIDFromContext(ctx)
	_, err := mySql.db.Exec(upsertLimitQuery, l.RemoteID, l.OwnerID, l.Synced, l.CategoryID, l.Amount, l.Period)
	if err != nil {
		return localFailure(traceID, "UpsertLimit", err)
	}
	return nil
}

func (mySql *MySQLStorage) DeleteTransactionByRemoteID(ctx context.Context, ownerID string, remoteID string) error {
	traceID := contextutil.TraceIDFromContext(ctx)
	_, err := mySql.db.Exec("DELETE FROM transaction WHERE owner_id = ? AND remote_id = ?", ownerID, remoteID)
	if err != nil {
		return localFailure(traceID, "DeleteTransactionByRemoteID", err)
	}
	return nil
}

func (mySql *MySQLStorage) DeleteCategoryByRemoteID(ctx context.Context, ownerID string, remoteID string) error {
	traceID := contextutil.TraceIDFromContext(ctx)
	_, err := mySql.db.Exec("DELETE FROM category WHERE owner_id = ? AND remote_id = ?", ownerID, remoteID)
	if err != nil {
		return localFailure(traceID, "DeleteCategoryByRemoteID", err)
	}
	return nil
}

func (mySql *MySQLStorage) DeleteLimitByRemoteID(ctx context.Context, ownerID string, remoteID string) error {
	traceID := contextutil.TraceIDFromContext(ctx)
	_, err := mySql.db.Exec("DELETE FROM budget_limit WHERE owner_id = ? AND remote_id = ?", ownerID, remoteID)
	if err != nil {
		return localFailure(traceID, "DeleteLimitByRemoteID", err)
	}
	return nil
}

func (mySql *MySQLStorage) DeleteAllByOwner(ctx context.Context, ownerID string) error {
	traceID := contextutil.TraceIDFromContext(ctx)

	txn, err := mySql.db.Begin()
	if err != nil {
		return localFailure(traceID, "DeleteAllByOwner", err)
	}
	for _, table := range []string{"budget_limit", "transaction", "category"} {
		if _, err := txn.Exec("DELETE FROM "+table+" WHERE owner_id = ?", ownerID); err != nil {
			txn.Rollback()
			return localFailure(traceID, "DeleteAllByOwner", err)
		}
	}
	if err := txn.Commit(); err != nil {
		return localFailure(traceID, "DeleteAllByOwner", err)
	}
	return nil
}

func (mySql *MySQLStorage) ListTransactions(ctx context.Context, ownerID string, from time.Time, to time.Time) ([]syncer.Transaction, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := `SELECT id, remote_id, owner_id, synced, name, amount, type, category_id, tx_date, note
		FROM transaction WHERE owner_id = ?`
	args := []interface{}{ownerID}
	if !from.IsZero() {
		query += " AND tx_date >= ?"
		args = append(args, from)
	}
	if !to.IsZero() {
		query += " AND tx_date <= ?"
		args = append(args, to)
	}
	query += " ORDER BY tx_date DESC;"

	rows, err := mySql.db.Query(query, args...)
	if err != nil {
		return nil, localFailure(traceID, "ListTransactions", err)
	}
	defer rows.Close()

	var transactions []syncer.Transaction
	for rows.Next() {
		var t syncer.Transaction
		if err := rows.Scan(&t.LocalID, &t.RemoteID, &t.OwnerID, &t.Synced, &t.Name, &t.Amount, &t.Type, &t.CategoryID, &t.Date, &t.Note); err != nil {
			return nil, localFailure(traceID, "ListTransactions", err)
		}
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, localFailure(traceID, "ListTransactions", err)
	}
	return transactions, nil
}

func (mySql *MySQLStorage) ListCategories(ctx context.Context, ownerID string) ([]syncer.Category, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	rows, err := mySql.db.Query(`SELECT id, remote_id, owner_id, synced, name, icon, color
		FROM category WHERE owner_id = ? ORDER BY name;`, ownerID)
	if err != nil {
		return nil, localFailure(traceID, "ListCategories", err)
	}
	defer rows.Close()

	var categories []syncer.Category
	for rows.Next() {
		var c syncer.Category
		if err := rows.Scan(&c.LocalID, &c.RemoteID, &c.OwnerID, &c.Synced, &c.Name, &c.Icon, &c.Color); err != nil {
			return nil, localFailure(traceID, "ListCategories", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, localFailure(traceID, "ListCategories", err)
	}
	return categories, nil
}

func (mySql *MySQLStorage) ListLimits(ctx context.Context, ownerID string) ([]syncer.BudgetLimit, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	rows, err := mySql.db.Query(`SELECT id, remote_id, owner_id, synced, category_id, amount, period
		FROM budget_limit WHERE owner_id = ? ORDER BY id;`, ownerID)
	if err != nil {
		return nil, localFailure(traceID, "ListLimits", err)
	}
	defer rows.Close()

	var limits []syncer.BudgetLimit
	for rows.Next() {
		var l syncer.BudgetLimit
		if err := rows.Scan(&l.LocalID, &l.RemoteID, &l.OwnerID, &l.Synced, &l.CategoryID, &l.Amount, &l.Period); err != nil {
			return nil, localFailure(traceID, "ListLimits", err)
		}
		limits = append(limits, l)
	}
	if err := rows.Err(); err != nil {
		return nil, localFailure(traceID, "ListLimits", err)
	}
	return limits, nil
}

func (mySql *MySQLStorage) SumByType(ctx context.Context, ownerID string, txType string, from time.Time, to time.Time) (float64, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := `SELECT IFNULL(SUM(amount), 0) FROM transaction WHERE owner_id = ? AND type = ?`
	args := []interface{}{ownerID, txType}
	if !from.IsZero() {
		query += " AND tx_date >= ?"
		args = append(args, from)
	}
	if !to.IsZero() {
		query += " AND tx_date <= ?"
		args = append(args, to)
	}

	var total float64
	if err := mySql.db.QueryRow(query, args...).Scan(&total); err != nil {
		return 0, localFailure(traceID, "SumByType", err)
	}
	return total, nil
}

func (mySql *MySQLStorage) SumByCategory(ctx context.Context, ownerID string, categoryID string, txType string, from time.Time, to time.Time) (float64, error) {
	traceID := contextutil.TraceIDFromContext(ctx)

	query := `SELECT IFNULL(SUM(amount), 0) FROM transaction WHERE owner_id = ? AND category_id = ? AND type = ?`
	args := []interface{}{ownerID, categoryID, txType}
	if !from.IsZero() {
		query += " AND tx_date >= ?"
		args = append(args, from)
	}
	if !to.IsZero() {
		query += " AND tx_date <= ?"
		args = append(args, to)
	}

	var total float64
	if err := mySql.db.QueryRow(query, args...).Scan(&total); err != nil {
		return 0, localFailure(traceID, "SumByCategory", err)
	}
	return total, nil
}
