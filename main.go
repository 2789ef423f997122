package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/hanbit-dev/fleamart/internal/handler"
	"github.com/hanbit-dev/fleamart/internal/repository/sqlite"
	"github.com/hanbit-dev/fleamart/internal/service"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	port := envOrDefault("PORT", "8080")
	dbPath := envOrDefault("DATABASE_PATH", "fleamart.db")
	adminEmails := splitList(os.Getenv("ADMIN_EMAILS"))

	bcryptCost := 12
	if v := os.Getenv("BCRYPT_COST"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			slog.Error("invalid BCRYPT_COST", "error", err)
			os.Exit(1)
		}
		if parsed < 4 || parsed > 14 {
			slog.Error("BCRYPT_COST must be between 4 and 14", "value", parsed)
			os.Exit(1)
		}
		bcryptCost = parsed
	}

	// Artificial round-trip delay on login, signup, and product creation.
	simulatedLatency := 500 * time.Millisecond
	if v := os.Getenv("SIMULATED_LATENCY_MS"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			slog.Error("invalid SIMULATED_LATENCY_MS", "value", v)
			os.Exit(1)
		}
		simulatedLatency = time.Duration(parsed) * time.Millisecond
	}

	db, err := sqlite.New(dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(context.Background()); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("database migrations applied")

	kv := db.KV()
	audit := service.NewAuditLog(kv)
	validator := service.NewValidator(audit)
	tokens := service.NewTokenService(audit)
	users := service.NewUserStore(kv, validator, bcryptCost, adminEmails)
	throttle := service.NewLoginThrottle(10*time.Second, 5)
	defer throttle.Close()
	sessions := service.NewSessionManager(kv, tokens, audit, users, throttle, service.SessionConfig{
		SimulatedLatency: simulatedLatency,
	})
	catalog := service.NewCatalogStore(kv, db.Blobs(), sessions, validator, audit, simulatedLatency)
	reports := service.NewReportStore(kv, sessions, validator, catalog, audit)
	chats := service.NewChatStore(kv, sessions, users, validator, audit)

	// Page-load analog: fresh anti-forgery token, stale session cleanup.
	if err := sessions.Initialize(context.Background()); err != nil {
		slog.Error("failed to initialize session state", "error", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, sessions, users, catalog, reports, chats, audit)

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler.SecurityHeaders(mux),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func envOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
