package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	appanalysis "github.com/tether007/GreenChainAdvisory/internal/application/analysis"
	"github.com/tether007/GreenChainAdvisory/internal/config"
	domai "github.com/tether007/GreenChainAdvisory/internal/domain/ai"
	domain "github.com/tether007/GreenChainAdvisory/internal/domain/analysis"
	"github.com/tether007/GreenChainAdvisory/internal/domain/ledger"
	aiopenai "github.com/tether007/GreenChainAdvisory/internal/infra/ai/openai"
	aistub "github.com/tether007/GreenChainAdvisory/internal/infra/ai/stub"
	mysqlp "github.com/tether007/GreenChainAdvisory/internal/infra/db/mysql"
	postgresp "github.com/tether007/GreenChainAdvisory/internal/infra/db/postgres"
	"github.com/tether007/GreenChainAdvisory/internal/infra/httpserver"
	"github.com/tether007/GreenChainAdvisory/internal/infra/ledger/evm"
	"github.com/tether007/GreenChainAdvisory/internal/infra/ledger/gasless"
	minioStore "github.com/tether007/GreenChainAdvisory/internal/infra/storage"
	"github.com/tether007/GreenChainAdvisory/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	ctx := context.Background()

	// connect database (driver dipilih lewat config)
	var (
		db   *sql.DB
		repo domain.Repository
	)
	switch cfg.Database.Driver {
	case "postgres":
		db, err = postgresp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			log.Fatalf("postgres connect error: %v", err)
		}
		repo = postgresp.NewAnalysisRepository(db)
	default:
		db, err = mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			log.Fatalf("mysql connect error: %v", err)
		}
		repo = mysqlp.NewAnalysisRepository(db)
	}
	defer db.Close()

	// init minio image archive
	images, err := minioStore.New(ctx,
		cfg.Minio.Endpoint,
		cfg.Minio.Region,
		cfg.Minio.BucketName,
		cfg.Minio.AccessKey,
		cfg.Minio.SecretKey,
		cfg.Minio.UseSSL,
	)
	if err != nil {
		log.Fatalf("minio init error: %v", err)
	}

	// init ledger coordinator
	var coordinator ledger.Coordinator
	if cfg.Ledger.Gasless {
		coordinator = gasless.New()
	} else {
		evmc, err := evm.New(ctx, cfg.Ledger.RPCURL, cfg.Ledger.ContractAddress, cfg.Ledger.RelayerKey)
		if err != nil {
			log.Fatalf("ledger init error: %v", err)
		}
		defer evmc.Close()
		coordinator = evmc
	}

	// init diagnoser
	var diagnoser domai.Client
	if cfg.AI.Provider == "stub" {
		diagnoser = aistub.New()
	} else {
		diagnoser = aiopenai.NewClient(cfg.AI.APIKey, cfg.AI.Model)
	}

	// init service
	svc := &appanalysis.Service{
		Records:          repo,
		Ledger:           coordinator,
		AI:               diagnoser,
		Images:           images,
		Clock:            appanalysis.SystemClock{},
		InferenceTimeout: cfg.InferenceTimeout(),
		OnFallback:       middleware.IncrementFallbacks,
	}

	// health checks
	health := middleware.HealthHandler(map[string]middleware.HealthChecker{
		"database": &middleware.DatabaseHealthChecker{DB: db},
	})

	// init router
	mux := chi.NewRouter()
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(middleware.RateLimitMiddleware(20, 5))
	mux.Get("/metrics", middleware.MetricsHandler)
	mux.Get("/ready", middleware.ReadinessHandler)
	mux.Get("/live", middleware.LivenessHandler)
	mux.Mount("/", httpserver.NewRouter(svc, health, cfg.Server.AllowedOrigins))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		log.Printf("server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
