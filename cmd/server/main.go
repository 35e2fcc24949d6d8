package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	assetclient "github.com/byuri-coder/pecu-backend/internal/adapter/asset"
	httpadapter "github.com/byuri-coder/pecu-backend/internal/adapter/http"
	"github.com/byuri-coder/pecu-backend/internal/adapter/notification"
	"github.com/byuri-coder/pecu-backend/internal/adapter/repository/memory"
	"github.com/byuri-coder/pecu-backend/internal/adapter/repository/postgres"
	"github.com/byuri-coder/pecu-backend/internal/domain"
	"github.com/byuri-coder/pecu-backend/internal/platform/envutil"
	"github.com/byuri-coder/pecu-backend/internal/platform/logger"
	"github.com/byuri-coder/pecu-backend/internal/usecase/factory"
	"github.com/byuri-coder/pecu-backend/internal/usecase/negotiation"
	"github.com/byuri-coder/pecu-backend/internal/usecase/token"
)

const defaultAPIToken = "dev-token"

func main() {
	log, err := logger.New(os.Getenv("APP_ENV"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// 1. Setup storage
	var (
		contractRepo   domain.ContractRepository
		receivableRepo domain.ReceivableRepository
	)
	if envutil.String("STORE", "postgres") == "memory" {
		// Local development without PostgreSQL; single-process only
		log.Warn("using in-memory store, state will not survive a restart")
		contractRepo = memory.NewContractRepository()
		receivableRepo = memory.NewReceivableRepository()
	} else {
		db, err := postgres.NewDB(dbConnString())
		if err != nil {
			log.Fatal("failed to connect to database", "error", err)
		}
		defer db.Close()
		contractRepo = postgres.NewContractRepository(db)
		receivableRepo = postgres.NewReceivableRepository(db)
	}

	// 2. External collaborators
	assets, err := assetclient.New(log, assetclient.Config{
		BaseURL: envutil.String("ASSET_SERVICE_URL", "http://localhost:8081"),
		APIKey:  os.Getenv("ASSET_SERVICE_TOKEN"),
		Timeout: envutil.Duration("ASSET_SERVICE_TIMEOUT", 10*time.Second),
	})
	if err != nil {
		log.Fatal("failed to build asset client", "error", err)
	}

	publicBaseURL := envutil.String("PUBLIC_BASE_URL", "http://localhost:8080")
	var notifier domain.Notifier
	if key := os.Getenv("SENDGRID_API_KEY"); key != "" {
		notifier, err = notification.NewSendGrid(log, notification.Config{
			APIKey:        key,
			BaseURL:       os.Getenv("SENDGRID_BASE_URL"),
			FromEmail:     envutil.String("SENDGRID_FROM_EMAIL", "no-reply@localhost"),
			FromName:      os.Getenv("SENDGRID_FROM_NAME"),
			VerifyBaseURL: publicBaseURL,
			Timeout:       envutil.Duration("SENDGRID_TIMEOUT", 15*time.Second),
		})
		if err != nil {
			log.Fatal("failed to build mail notifier", "error", err)
		}
	} else {
		log.Warn("SENDGRID_API_KEY not set, confirmation links will only be logged")
		notifier = notification.NewLogNotifier(log, publicBaseURL)
	}

	// 3. Token codec
	secret := envutil.String("TOKEN_SECRET", "")
	if secret == "" {
		log.Fatal("TOKEN_SECRET is required")
	}
	codec, err := token.NewCodec(secret, envutil.Duration("TOKEN_TTL", token.DefaultTTL))
	if err != nil {
		log.Fatal("failed to build token codec", "error", err)
	}

	// 4. Use cases
	contractFactory := factory.NewFactory(contractRepo, assets, log)
	feeRate := envutil.Decimal("FEE_RATE", decimal.Decimal{})
	negotiationService := negotiation.NewService(contractRepo, receivableRepo, assets, notifier, codec, log, feeRate)

	// 5. HTTP server
	router := httpadapter.NewRouter(httpadapter.RouterConfig{
		NegotiationHandler: httpadapter.NewNegotiationHandler(log, contractFactory, negotiationService),
		VerifyHandler: httpadapter.NewVerifyHandler(log, negotiationService, codec,
			envutil.String("VERIFY_SUCCESS_URL", publicBaseURL+"/confirmation/success"),
			envutil.String("VERIFY_FAILURE_URL", publicBaseURL+"/confirmation/failure")),
		APIToken:     envutil.String("API_TOKEN", defaultAPIToken),
		AllowOrigins: allowOrigins(),
	})

	addr := ":" + envutil.String("PORT", "8080")
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("HTTP server listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", "error", err)
		}
	}()

	waitForShutdown(server, log)
}

// dbConnString builds the connection string from DB_CONN_STR or individual
// vars (Docker friendly)
func dbConnString() string {
	if s := os.Getenv("DB_CONN_STR"); s != "" {
		return s
	}
	host := envutil.String("DB_HOST", "localhost")
	port := envutil.String("DB_PORT", "5432")
	user := envutil.String("DB_USER", "postgres")
	password := envutil.String("DB_PASSWORD", "postgres")
	dbname := envutil.String("DB_NAME", "pecu")
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)
}

func allowOrigins() []string {
	if origin := os.Getenv("CORS_ALLOW_ORIGIN"); origin != "" {
		return []string{origin}
	}
	return []string{"http://localhost:3000"}
}

// waitForShutdown waits for SIGTERM or SIGINT and gracefully shuts down the server
func waitForShutdown(server *http.Server, log *logger.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	log.Info("received signal, shutting down gracefully", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("HTTP server shutdown failed", "error", err)
	}
	log.Info("HTTP server stopped")
}
