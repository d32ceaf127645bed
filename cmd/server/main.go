package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/karzdaar/ledger/internal/config"
	"github.com/karzdaar/ledger/internal/handler"
	"github.com/karzdaar/ledger/internal/repository"
	"github.com/karzdaar/ledger/internal/service"
	"github.com/karzdaar/ledger/internal/storage"
	"github.com/karzdaar/ledger/pkg/logging"
	"github.com/karzdaar/ledger/pkg/response"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading configuration", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Logging.Level)

	db, err := initDB(cfg)
	if err != nil {
		slog.Error("connecting to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	redisClient := initRedis(cfg)
	defer redisClient.Close()

	debtRepo := repository.NewDebtRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	snapshots := storage.NewSnapshotStore(cfg.Storage.SnapshotPath, cfg.Storage.BackupDir)

	ledgerService := service.NewLedgerService(debtRepo, paymentRepo, redisClient, snapshots, cfg)
	ledgerHandler := handler.NewLedgerHandler(ledgerService)
	healthHandler := handler.NewHealthHandler(db, redisClient, cfg.GetHealthTimeout())

	router := setupRoutes(ledgerHandler, healthHandler)

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.GetReadTimeout(),
		WriteTimeout: cfg.GetWriteTimeout(),
	}

	go func() {
		slog.Info("server starting", "addr", server.Addr, "env", cfg.Server.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("forced shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server exited")
}

func initDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)

	return db, nil
}

func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func setupRoutes(ledgerHandler *handler.LedgerHandler, healthHandler *handler.HealthHandler) *mux.Router {
	router := mux.NewRouter()
	router.Use(response.LoggingMiddleware)

	// Health check
	router.HandleFunc("/health", healthHandler.Health).Methods("GET")
	router.HandleFunc("/health/ready", healthHandler.Ready).Methods("GET")

	// API routes
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(response.JSONMiddleware)

	api.HandleFunc("/customers", ledgerHandler.ListCustomers).Methods("GET")
	api.HandleFunc("/customers", ledgerHandler.CreateCustomer).Methods("POST")
	api.HandleFunc("/customers/{name}", ledgerHandler.DeleteCustomer).Methods("DELETE")
	api.HandleFunc("/customers/{name}/rename", ledgerHandler.RenameCustomer).Methods("PUT")
	api.HandleFunc("/customers/{name}/balance", ledgerHandler.GetCustomerBalance).Methods("GET")
	api.HandleFunc("/customers/{name}/entries", ledgerHandler.GetCustomerEntries).Methods("GET")
	api.HandleFunc("/customers/{name}/payments", ledgerHandler.RecordPayment).Methods("POST")

	api.HandleFunc("/debts", ledgerHandler.CreateDebt).Methods("POST")
	api.HandleFunc("/debts/pending", ledgerHandler.GetPendingDebts).Methods("GET")
	api.HandleFunc("/debts/overdue", ledgerHandler.GetOverdueDebts).Methods("GET")
	api.HandleFunc("/debts/{debtId}", ledgerHandler.GetDebt).Methods("GET")
	api.HandleFunc("/debts/{debtId}", ledgerHandler.UpdateDebt).Methods("PUT")
	api.HandleFunc("/debts/{debtId}", ledgerHandler.DeleteDebt).Methods("DELETE")
	api.HandleFunc("/debts/{debtId}/payments", ledgerHandler.AddPartialPayment).Methods("POST")
	api.HandleFunc("/debts/{debtId}/payments", ledgerHandler.GetPaymentHistory).Methods("GET")
	api.HandleFunc("/debts/{debtId}/paid", ledgerHandler.MarkFullyPaid).Methods("POST")

	api.HandleFunc("/summary", ledgerHandler.GetSummary).Methods("GET")
	api.HandleFunc("/export", ledgerHandler.ExportSnapshot).Methods("POST")
	api.HandleFunc("/import", ledgerHandler.ImportSnapshot).Methods("POST")

	return router
}
