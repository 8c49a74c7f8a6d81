package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/leadsearch/internal/config"
	logpkg "github.com/kailas-cloud/leadsearch/internal/logger"
	"github.com/kailas-cloud/leadsearch/internal/metrics"
	historyrepo "github.com/kailas-cloud/leadsearch/internal/repository/history"
	chiTransport "github.com/kailas-cloud/leadsearch/internal/transport/chi"
	batchuc "github.com/kailas-cloud/leadsearch/internal/usecase/batch"
	contactuc "github.com/kailas-cloud/leadsearch/internal/usecase/contact"
	healthuc "github.com/kailas-cloud/leadsearch/internal/usecase/health"
	historyuc "github.com/kailas-cloud/leadsearch/internal/usecase/history"
	searchuc "github.com/kailas-cloud/leadsearch/internal/usecase/search"
	usageuc "github.com/kailas-cloud/leadsearch/internal/usecase/usage"
	"github.com/kailas-cloud/leadsearch/internal/version"
)

func newServeCmd(env *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := bootstrap(*env)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, *env, cfg, logger)
		},
	}
}

func serve(ctx context.Context, env string, cfg config.Config, logger *zap.Logger) error {
	logger.Info("Starting leadsearch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("contact_store", cfg.Contacts.Store),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	metrics.RegisterCompletionMetrics()
	metrics.RegisterSearchMetrics()

	store, err := openRedis(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	repo, contactPinger, closeContacts, err := openContactStore(ctx, cfg, store, logger)
	if err != nil {
		return err
	}
	defer closeContacts()

	llm := buildLLM(ctx, cfg, newBudgetStore(store), logger)

	contactSvc := contactuc.New(repo, time.Duration(cfg.Contacts.SnapshotTTLSec)*time.Second, logger).
		WithPagination(cfg.Contacts.DefaultPage, cfg.Contacts.MaxPage)
	batchSvc := batchuc.New(repo, repo, contactSvc).WithMaxBatchSize(cfg.Contacts.MaxBatchSize)

	historyTTL := time.Duration(cfg.History.TTLHours) * time.Hour
	historySvc := historyuc.New(
		historyrepo.New(store, cfg.Storage.KeyPrefix, historyTTL), cfg.History.MaxEntries, logger,
	)

	// Interfaces must stay nil, not hold typed nil pointers, when the LLM is off.
	var parser searchuc.FilterParser
	var budgetReader usageuc.BudgetReader
	var activity usageuc.ActivityReader
	if llm.parser != nil {
		parser = llm.parser
		activity = llm.activity
	}
	if llm.budget != nil {
		budgetReader = llm.budget
	}

	searchSvc := searchuc.New(contactSvc, parser, historySvc, cfg.Search.Options(), logger).
		WithMaxLimit(cfg.Search.MaxResults)
	usageSvc := usageuc.New(budgetReader, activity)

	healthSvc := healthuc.New(store, llm.checker)
	if contactPinger != nil {
		healthSvc = healthSvc.WithContactStore(contactPinger)
	}

	server := chiTransport.NewServer(
		contactSvc, batchSvc, searchSvc, llm.parser, historySvc, usageSvc, healthSvc, logger,
	)
	if cfg.RateLimit.RequestsPerSecond > 0 {
		server = server.WithRateLimiter(chiTransport.NewRateLimiter(
			cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, 10*time.Minute,
		))
	}

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(chiTransport.AuthConfig{
		APIKeys:   cfg.Auth.APIKeys,
		JWTSecret: cfg.Auth.JWTSecret,
	}))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info("Server stopped gracefully")
	return nil
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}
				logpkg.FromContext(r.Context()).Error("panic recovered",
					zap.Any("panic", rvr),
					zap.String("path", r.URL.Path),
					zap.Stack("stacktrace"),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
					Code:    chiTransport.CodeInternalError,
					Message: "internal error",
				})
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int("response_bytes", ww.BytesWritten()),
			}
			if tokens := ww.Header().Get("X-Completion-Tokens"); tokens != "" {
				fields = append(fields, zap.String("completion_tokens", tokens))
			}
			reqLogger.Info("http_request", fields...)
		})
	}
}
