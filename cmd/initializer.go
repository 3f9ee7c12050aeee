package main

import (
	"database/sql"
	"log"
	"net/http"

	"firebase.google.com/go/messaging"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/costa007m5-ctrl/Hep-Cell-sub001/internal/config"
	"github.com/costa007m5-ctrl/Hep-Cell-sub001/internal/handlers"
	"github.com/costa007m5-ctrl/Hep-Cell-sub001/internal/repositories"
	"github.com/costa007m5-ctrl/Hep-Cell-sub001/internal/services"
)

type application struct {
	errorLog *log.Logger
	infoLog  *log.Logger
	db       *sql.DB

	jwtSecret string
	wsManager *WebSocketManager

	saleHandler         *handlers.SaleHandler
	invoiceHandler      *handlers.InvoiceHandler
	profileHandler      *handlers.ProfileHandler
	notificationHandler *handlers.NotificationHandler
	mercadoPagoHandler  *handlers.MercadoPagoHandler
	cronHandler         *handlers.CronHandler
	actionLogHandler    *handlers.ActionLogHandler

	sweeper *services.SweeperService
}

func initializeApp(db *sql.DB, redisClient *redis.Client, fcmClient *messaging.Client,
	gateway services.PaymentGateway, storage services.SignatureUploader,
	cfg config.Config, errorLog, infoLog *log.Logger) *application {

	// Repositories
	profileRepo := repositories.ProfileRepository{DB: db}
	contractRepo := repositories.ContractRepository{DB: db}
	invoiceRepo := repositories.InvoiceRepository{DB: db}
	planRepo := repositories.InstallmentPlanRepository{DB: db}
	notificationRepo := repositories.NotificationRepository{DB: db}
	actionLogRepo := repositories.ActionLogRepository{DB: db}
	settingsRepo := repositories.SettingsRepository{DB: db}

	// Services
	wsManager := NewWebSocketManager()
	notificationService := &services.NotificationService{
		Repo:     &notificationRepo,
		FCM:      fcmClient,
		Hub:      wsManager,
		ErrorLog: errorLog,
	}
	saleService := &services.SaleService{
		Profiles:  &profileRepo,
		Contracts: &contractRepo,
		Invoices:  &invoiceRepo,
		Plans:     &planRepo,
		Settings:  &settingsRepo,
		Gateway:   gateway,
		Storage:   storage,
		Actions:   &actionLogRepo,
		Notifier:  notificationService,
		InfoLog:   infoLog,
		ErrorLog:  errorLog,
	}
	reconcilerService := &services.ReconcilerService{
		Invoices: &invoiceRepo,
		Plans:    &planRepo,
		Profiles: &profileRepo,
		Settings: &settingsRepo,
		Gateway:  gateway,
		Notifier: notificationService,
		Actions:  &actionLogRepo,
		InfoLog:  infoLog,
		ErrorLog: errorLog,
	}
	var sweepLock services.SweepLocker
	if redisClient != nil {
		sweepLock = &services.RedisSweepLock{Client: redisClient}
	}
	sweeperService := &services.SweeperService{
		Invoices:  &invoiceRepo,
		Contracts: &contractRepo,
		Notifier:  notificationService,
		Actions:   &actionLogRepo,
		Lock:      sweepLock,
		InfoLog:   infoLog,
		ErrorLog:  errorLog,
	}

	return &application{
		errorLog:            errorLog,
		infoLog:             infoLog,
		db:                  db,
		jwtSecret:           cfg.JWT.Secret,
		wsManager:           wsManager,
		saleHandler:         handlers.NewSaleHandler(saleService),
		invoiceHandler:      handlers.NewInvoiceHandler(&invoiceRepo),
		profileHandler:      handlers.NewProfileHandler(&profileRepo, &invoiceRepo),
		notificationHandler: handlers.NewNotificationHandler(&notificationRepo),
		mercadoPagoHandler:  handlers.NewMercadoPagoHandler(reconcilerService),
		cronHandler:         handlers.NewCronHandler(sweeperService),
		actionLogHandler:    handlers.NewActionLogHandler(&actionLogRepo),
		sweeper:             sweeperService,
	}
}

func openDB(driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		log.Printf("Failed to open DB: %v", err)
		return nil, err
	}
	if err = db.Ping(); err != nil {
		log.Printf("Failed to ping DB: %v", err)
		return nil, err
	}
	db.SetMaxIdleConns(35)
	log.Println("Successfully connected to database")
	return db, nil
}

func addSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Cross-Origin-Embedder-Policy", "require-corp")
		w.Header().Set("Cross-Origin-Resource-Policy", "same-origin")
		next.ServeHTTP(w, r)
	})
}
