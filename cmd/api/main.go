package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"

	"github.com/coveline/service-ledger-go/internal/auth"
	"github.com/coveline/service-ledger-go/internal/bank"
	"github.com/coveline/service-ledger-go/internal/bank/repo"
	"github.com/coveline/service-ledger-go/internal/router"
	"github.com/coveline/service-ledger-go/pkg/database"
	"github.com/coveline/service-ledger-go/pkg/utilities"
)

func main() {
	// load .env file if present so os.Getenv picks values from it
	// this is best-effort: if no .env exists, continue (use defaults or real env)
	_ = godotenv.Load()

	lg, err := utilities.InitLogger(utilities.LogConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting service-ledger-go")

	cfg := database.ConfigFromEnv()
	sqlDB, err := database.Connect(cfg)
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer sqlDB.Close()

	sqlxDB := sqlx.NewDb(sqlDB, "postgres")
	defer sqlxDB.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := repo.NewPostgresStore(sqlxDB)
	if err := store.EnsureSchema(ctx); err != nil {
		sugar.Fatalf("provision schema: %v", err)
	}

	svc, err := bank.NewService(ctx, store, auth.NewPBKDF2Hasher(), sugar)
	if err != nil {
		sugar.Fatalf("build banking service: %v", err)
	}

	issuer := os.Getenv("TOKEN_ISSUER")
	if issuer == "" {
		issuer = "service-ledger-go"
	}
	tokens, err := auth.NewTokenIssuer(issuer, 12*time.Hour)
	if err != nil {
		sugar.Fatalf("init token issuer: %v", err)
	}

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = "0.0.0.0:8452"
	}
	handler := router.RegisterRoutes(sugar, bank.NewHandler(svc, tokens, sugar))
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		sugar.Infow("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()

	sugar.Info("shutting down")

	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
}
