package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/chengchang/ledger/internal/blob"
	"github.com/chengchang/ledger/internal/config"
	"github.com/chengchang/ledger/internal/database"
	ledgerHttp "github.com/chengchang/ledger/internal/http"
	recordHandler "github.com/chengchang/ledger/internal/http/record"
	"github.com/chengchang/ledger/internal/record"
	recordStore "github.com/chengchang/ledger/internal/record/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	blobs := blob.NewClient(cfg.Storage.URL, cfg.Storage.Key, cfg.Storage.Bucket)

	recordService := record.NewService(recordStore.New(db), blobs)
	recordH := recordHandler.NewHandler(recordService)

	router := ledgerHttp.New(recordH, db, cfg.Server.AllowedOrigin)

	port := fmt.Sprintf(":%d", cfg.App.Port)
	slog.Info("starting server", "port", port, "bucket", cfg.Storage.Bucket)

	if err := http.ListenAndServe(port, router); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
