package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/leadsearch/internal/config"
	"github.com/kailas-cloud/leadsearch/internal/db/postgres"
	dbRedis "github.com/kailas-cloud/leadsearch/internal/db/redis"
	"github.com/kailas-cloud/leadsearch/internal/domain"
	domcontact "github.com/kailas-cloud/leadsearch/internal/domain/contact"
	budgetrepo "github.com/kailas-cloud/leadsearch/internal/repository/budget"
	contactrepo "github.com/kailas-cloud/leadsearch/internal/repository/contact"
	pgcontact "github.com/kailas-cloud/leadsearch/internal/repository/contact/postgres"
	"github.com/kailas-cloud/leadsearch/internal/transport/anthropic"
	"github.com/kailas-cloud/leadsearch/internal/transport/openai"
	contactuc "github.com/kailas-cloud/leadsearch/internal/usecase/contact"
	"github.com/kailas-cloud/leadsearch/internal/usecase/completion"
	healthuc "github.com/kailas-cloud/leadsearch/internal/usecase/health"
	"github.com/kailas-cloud/leadsearch/internal/usecase/nlfilter"
)

// contactStore is what the contact and batch services need from a repository.
type contactStore interface {
	contactuc.Repository
	UpsertBatch(ctx context.Context, contacts []domcontact.Contact) error
}

// openRedis connects to Redis/Valkey and waits until it answers.
func openRedis(ctx context.Context, cfg config.Config, logger *zap.Logger) (*dbRedis.Store, error) {
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("create redis store: %w", err)
	}

	timeout := time.Duration(cfg.Database.ReadinessTimeout) * time.Second
	if err := store.WaitForReady(ctx, timeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("redis not ready: %w", err)
	}
	logger.Info("Connected to redis", zap.Strings("addrs", cfg.Database.Addrs))
	return store, nil
}

// openContactStore returns the configured contact repository, a pinger for it
// when it lives outside Redis, and a close func.
func openContactStore(
	ctx context.Context, cfg config.Config, store *dbRedis.Store, logger *zap.Logger,
) (contactStore, healthuc.DBPinger, func(), error) {
	switch cfg.Contacts.Store {
	case "postgres":
		pg := cfg.Contacts.Postgres
		gdb, err := postgres.Open(postgres.Config{
			DSN:             pg.DSN,
			MaxIdleConns:    pg.MaxIdleConns,
			MaxOpenConns:    pg.MaxOpenConns,
			ConnMaxLifetime: time.Duration(pg.ConnMaxLifeMin) * time.Minute,
			LogLevel:        pg.LogLevel,
		})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open contact store: %w", err)
		}
		repo := pgcontact.New(gdb)
		if pg.AutoMigrate {
			if err := repo.Migrate(ctx); err != nil {
				postgres.Close(gdb)
				return nil, nil, nil, fmt.Errorf("migrate contact store: %w", err)
			}
			logger.Info("Contact schema migrated")
		}
		logger.Info("Using postgres contact store")
		return repo, postgres.NewPinger(gdb), func() { postgres.Close(gdb) }, nil
	default:
		logger.Info("Using redis contact store")
		return contactrepo.New(store, cfg.Storage.KeyPrefix), nil, func() {}, nil
	}
}

// llmStack is the completion chain used by the filter parser.
type llmStack struct {
	// parser is nil when no provider is configured.
	parser *nlfilter.Service
	// checker is the bare provider client, for health checks.
	checker healthuc.CompletionChecker
	// budget is nil when no limits are configured.
	budget *completion.BudgetTracker
	// activity counts completion calls for the usage report.
	activity *completion.InstrumentedCompleter
}

// buildLLM assembles provider -> instrumented (budget) -> nlfilter.
// budgetStore may be nil, in which case budget counters live in memory only.
func buildLLM(
	ctx context.Context, cfg config.Config, budgetStore completion.BudgetStore, logger *zap.Logger,
) llmStack {
	llm := cfg.LLM
	if !llm.Enabled() {
		logger.Warn("No LLM api_key configured; filter parsing disabled")
		return llmStack{}
	}

	var base interface {
		domain.Completer
		healthuc.CompletionChecker
	}
	switch llm.Provider {
	case "anthropic":
		base = anthropic.NewCompleter(&anthropic.Config{
			APIKey:  llm.APIKey,
			BaseURL: llm.BaseURL,
			Model:   llm.Model,
			Logger:  logger,
		})
	default:
		base = openai.NewCompleter(&openai.Config{
			APIKey:   llm.APIKey,
			BaseURL:  llm.BaseURL,
			Model:    llm.Model,
			User:     "leadsearch",
			Provider: llm.Provider,
			Logger:   logger,
		})
	}

	var budget *completion.BudgetTracker
	if llm.Budget.DailyTokenLimit > 0 || llm.Budget.MonthlyTokenLimit > 0 {
		action := completion.BudgetActionWarn
		if llm.Budget.Action == string(completion.BudgetActionReject) {
			action = completion.BudgetActionReject
		}
		budget = completion.NewBudgetTracker(
			llm.Provider, llm.Budget.DailyTokenLimit, llm.Budget.MonthlyTokenLimit, action, logger,
		).WithKeyPrefix(cfg.Storage.KeyPrefix)
		if budgetStore != nil {
			budget.WithStore(ctx, budgetStore)
		}
	}

	// A typed nil *BudgetTracker inside the interface would not compare equal to nil.
	var checker completion.BudgetChecker
	if budget != nil {
		checker = budget
	}
	instrumented := completion.NewInstrumentedCompleter(base, llm.Provider, llm.Model, checker, logger)

	parser := nlfilter.New(instrumented, nlfilter.Config{
		Temperature: llm.Temperature,
		MaxTokens:   llm.MaxTokens,
		Timeout:     time.Duration(llm.TimeoutSec) * time.Second,
	}, logger)

	logger.Info("Filter parser configured",
		zap.String("provider", llm.Provider),
		zap.String("model", llm.Model),
		zap.Bool("budget", budget != nil),
	)
	return llmStack{parser: parser, checker: base, budget: budget, activity: instrumented}
}

// newBudgetStore persists budget counters in Redis for two days / two months.
func newBudgetStore(store *dbRedis.Store) *budgetrepo.Store {
	return budgetrepo.New(store, 48*time.Hour, 62*24*time.Hour)
}
