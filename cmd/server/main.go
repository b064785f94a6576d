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

	"connectrpc.com/connect"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/roomsync/internal/api"
	"github.com/mmynk/roomsync/internal/app"
	"github.com/mmynk/roomsync/internal/auth"
	"github.com/mmynk/roomsync/internal/config"
	"github.com/mmynk/roomsync/internal/middleware"
	"github.com/mmynk/roomsync/internal/rpc"
	"github.com/mmynk/roomsync/internal/service"
	"github.com/mmynk/roomsync/pkg/logging"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg := config.Load()
	logging.SetupWith(logging.ParseLevel(cfg.LogLevel), logging.ParseFormat(cfg.LogFormat))

	if err := cfg.Validate(); err != nil {
		slog.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config) error {
	deps, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := deps.Close(); err != nil {
			slog.Warn("Failed to close resources", "error", err)
		}
	}()

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenDuration)
	authenticator := auth.NewPasswordAuthenticator(deps.Store)
	ledger := service.NewLedgerService(deps.Store, deps.ServiceOptions()...)
	accounts := service.NewAccountService(deps.Store, authenticator, jwtManager)

	router := api.NewRouter(api.NewHandler(ledger, accounts), jwtManager, deps.Metrics)
	rpcPath, rpcHandler := rpc.NewLedgerServiceHandler(ledger,
		connect.WithInterceptors(middleware.LoggingInterceptor(), middleware.RequireAuth(jwtManager)),
	)
	router.Handle(rpcPath+"*", rpcHandler)

	srv := &http.Server{
		Addr: cfg.Addr(),
		// Wrap with h2c for HTTP/2 without TLS (required for Connect)
		Handler:           h2c.NewHandler(corsMiddleware(router), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Server starting", "address", srv.Addr, "rpc_path", rpcPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		slog.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.RecurrenceScheduler {
		engine := service.NewRecurrenceEngine(deps.Store, deps.ServiceOptions()...)
		g.Go(func() error {
			engine.Run(ctx, cfg.RecurrenceInterval)
			return nil
		})
	}

	return g.Wait()
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
