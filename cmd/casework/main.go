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

	"github.com/dukerupert/casework/internal/database"
	"github.com/dukerupert/casework/internal/handler"
	"github.com/dukerupert/casework/internal/logging"
	"github.com/dukerupert/casework/internal/server"
	"github.com/dukerupert/casework/internal/store"
)

func main() {
	logger := logging.Setup(os.Getenv("CASEWORK_LOG_LEVEL"), os.Getenv("CASEWORK_LOG_FORMAT"))

	port := envOr("CASEWORK_PORT", "8080")
	dbPath := envOr("CASEWORK_DB_PATH", "casework.db")

	db, err := database.Open(dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := seedAdmin(store.NewCaseworkerStore(db), os.Getenv("CASEWORK_ADMIN_EMAIL"), os.Getenv("CASEWORK_ADMIN_PASSWORD")); err != nil {
		slog.Error("failed to seed admin caseworker", "error", err)
		os.Exit(1)
	}

	cfg := server.Config{
		SessionIdle:     envDuration("CASEWORK_SESSION_IDLE", 30*time.Minute),
		BulkConcurrency: envInt("CASEWORK_BULK_CONCURRENCY", 4),
		SecureCookie:    os.Getenv("CASEWORK_SECURE_COOKIE") == "true",
		LoginRateLimit:  envInt("CASEWORK_LOGIN_RATE_LIMIT", 10),
	}
	if origins := os.Getenv("CASEWORK_WS_ORIGINS"); origins != "" {
		cfg.OriginPatterns = strings.Split(origins, ",")
	}

	srv := server.New(db, cfg, logger)

	httpServer := &http.Server{
		Addr:              ":" + port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	srv.Registry().Start(bgCtx)

	// Background cleanup goroutine
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n, err := srv.SessionStore().DeleteExpired(); err != nil {
					slog.Error("cleanup expired sessions", "error", err)
				} else if n > 0 {
					slog.Info("cleaned up expired sessions", "count", n)
				}
				srv.RateLimiter().Cleanup()
			case <-bgCtx.Done():
				return
			}
		}
	}()

	go func() {
		slog.Info("casework starting", "addr", ":"+port, "db", dbPath)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
	}

	// Drain autosaves still in flight before the database closes.
	bgCancel()
	srv.Registry().Stop()
}

// seedAdmin creates the first caseworker on an empty install.
func seedAdmin(caseworkers *store.CaseworkerStore, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	email = strings.ToLower(strings.TrimSpace(email))
	existing, err := caseworkers.GetByEmail(email)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	hash, err := handler.HashPassword(password)
	if err != nil {
		return err
	}
	cw, err := caseworkers.Create(email, "Administrator", hash)
	if err != nil {
		return err
	}
	slog.Info("seeded admin caseworker", "caseworker_id", cw.ID, "email", email)
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		slog.Warn("ignoring invalid integer setting", "key", key, "value", v)
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		slog.Warn("ignoring invalid duration setting", "key", key, "value", v)
		return fallback
	}
	return d
}
