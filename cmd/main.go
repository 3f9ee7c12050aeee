package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	firebase "firebase.google.com/go"
	"firebase.google.com/go/messaging"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"google.golang.org/api/option"

	"github.com/costa007m5-ctrl/Hep-Cell-sub001/internal/config"
	"github.com/costa007m5-ctrl/Hep-Cell-sub001/internal/services"
	"github.com/costa007m5-ctrl/Hep-Cell-sub001/utils"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Printf("Warning: Error loading .env file: %v", err)
	}
	cfg := config.LoadConfig()

	port := os.Getenv("PORT")
	if port == "" {
		port = ":4001"
	} else {
		port = ":" + port
	}

	addr := flag.String("addr", port, "HTTP network address")
	flag.Parse()

	infoLog := log.New(os.Stdout, "INFO\t", log.Ldate|log.Ltime)
	errorLog := log.New(os.Stderr, "ERROR\t", log.Ldate|log.Ltime|log.Lshortfile)

	db, err := openDB(cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		errorLog.Fatal(err)
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	fcmClient := newFCMClient(cfg, errorLog)

	gateway, err := services.NewMercadoPagoService(services.MercadoPagoConfig{
		BaseURL:         cfg.MercadoPago.BaseURL,
		AccessToken:     cfg.MercadoPago.AccessToken,
		SuccessBackURL:  cfg.MercadoPago.SuccessBackURL,
		FailureBackURL:  cfg.MercadoPago.FailureBackURL,
		NotificationURL: cfg.MercadoPago.NotificationURL,
		Logger:          slog.New(slog.NewTextHandler(os.Stdout, nil)),
	})
	if err != nil {
		errorLog.Fatal(err)
	}

	storage, err := utils.NewSignatureStorage(
		cfg.Storage.AccessKey, cfg.Storage.SecretKey,
		cfg.Storage.Bucket, cfg.Storage.Region, cfg.Storage.Endpoint,
	)
	if err != nil {
		errorLog.Printf("signature storage disabled: %v", err)
	}

	var uploader services.SignatureUploader
	if storage != nil {
		uploader = storage
	}

	app := initializeApp(db, redisClient, fcmClient, gateway, uploader, cfg, errorLog, infoLog)

	go app.wsManager.Run()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	startExpirationSweeper(ctx, app.sweeper, cfg.SweepInterval(), infoLog, errorLog)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowCredentials: true,
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
	})

	srv := &http.Server{
		Addr:         *addr,
		ErrorLog:     errorLog,
		Handler:      addSecurityHeaders(c.Handler(app.routes())),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	infoLog.Printf("Starting server on %s", *addr)
	if err := srv.ListenAndServe(); err != nil {
		errorLog.Fatal(err)
	}
}

func newFCMClient(cfg config.Config, errorLog *log.Logger) *messaging.Client {
	if cfg.Firebase.CredentialsFile == "" {
		return nil
	}
	ctx := context.Background()
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(cfg.Firebase.CredentialsFile))
	if err != nil {
		errorLog.Printf("firebase disabled: %v", err)
		return nil
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		errorLog.Printf("firebase messaging disabled: %v", err)
		return nil
	}
	return client
}
