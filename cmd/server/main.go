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

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/supabase-community/postgrest-go"

	"github.com/paylo/checkout-mcp/internal/catalog"
	catalogstore "github.com/paylo/checkout-mcp/internal/catalog/postgrest"
	"github.com/paylo/checkout-mcp/internal/config"
	"github.com/paylo/checkout-mcp/internal/mcpx"
	"github.com/paylo/checkout-mcp/internal/order"
	"github.com/paylo/checkout-mcp/internal/order/oplog"
	oplogsqlite "github.com/paylo/checkout-mcp/internal/order/oplog/sqlite"
	orderledger "github.com/paylo/checkout-mcp/internal/order/postgrest"
	"github.com/paylo/checkout-mcp/internal/payment"
	"github.com/paylo/checkout-mcp/internal/pkg/cache"
	"github.com/paylo/checkout-mcp/internal/pkg/telemetry"
)

const (
	serverName    = "paylo-checkout"
	serverVersion = "0.1.0"
)

func main() {
	// No .env file is the normal case in production.
	_ = godotenv.Load()

	telemetry.InitLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if cfg.OTelEnabled {
		shutdown, err := telemetry.SetupTracer(ctx, serverName)
		if err != nil {
			slog.Error("failed to initialise tracer", "error", err)
			os.Exit(1)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				slog.Error("tracer shutdown error", "error", err)
			}
		}()
	}

	db := postgrest.NewClient(cfg.SupabaseURL+"/rest/v1", "", map[string]string{
		"apikey":        cfg.SupabaseAnonKey,
		"Authorization": "Bearer " + cfg.SupabaseAnonKey,
	})
	if db.ClientError != nil {
		slog.Error("failed to build PostgREST client", "error", db.ClientError)
		os.Exit(1)
	}

	var catalogCache cache.Cache
	if cfg.RedisAddr != "" {
		catalogCache = cache.NewRedisCache(cfg.RedisAddr, "catalog")
	}
	catalogSvc := catalog.NewService(catalogstore.NewStore(db), catalogCache)

	var recorder oplog.Recorder
	if cfg.OplogPath != "" {
		repo, err := oplogsqlite.Open(cfg.OplogPath)
		if err != nil {
			slog.Error("failed to open oplog", "path", cfg.OplogPath, "error", err)
			os.Exit(1)
		}
		defer repo.Close()
		recorder = repo
	}

	coordinator := order.NewCoordinator(orderledger.NewLedger(db), catalogSvc, recorder)
	bridge := payment.NewBridge(cfg.CheckoutURL, nil)

	s := server.NewMCPServer(serverName, serverVersion,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	mcpx.NewHandler(catalogSvc, coordinator, bridge).Register(s)

	if cfg.HTTPAddr != "" {
		runHTTP(ctx, s, cfg.HTTPAddr)
		return
	}

	slog.Info("serving on stdio", "server", serverName)
	if err := server.ServeStdio(s); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("stdio server failed", "error", err)
		os.Exit(1)
	}
}

func runHTTP(ctx context.Context, s *server.MCPServer, addr string) {
	srv := &http.Server{
		Addr:    addr,
		Handler: mcpx.NewRouter(s),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("http shutdown error", "error", err)
		}
	}()

	slog.Info("serving on http", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("http server failed", "error", err)
		os.Exit(1)
	}
}
