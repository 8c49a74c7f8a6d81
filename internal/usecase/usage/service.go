package usage

import (
	"context"
	"time"

	domusage "github.com/kailas-cloud/leadsearch/internal/domain/usage"
	"github.com/kailas-cloud/leadsearch/internal/domain/usage/budget"
	"github.com/kailas-cloud/leadsearch/internal/domain/usage/metrics"
)

// Service handles usage reporting.
type Service struct {
	br       BudgetReader
	activity ActivityReader
	now      func() time.Time
}

// New creates a Service. br and activity can be nil (unlimited mode, no LLM).
func New(br BudgetReader, activity ActivityReader) *Service {
	return &Service{br: br, activity: activity, now: time.Now}
}

// GetReport builds a usage report for the given period.
func (s *Service) GetReport(_ context.Context, period domusage.Period) domusage.Report {
	now := s.now().UTC()
	var start, end int64
	var limit, used, remaining int64
	provider := ""
	if s.br != nil {
		provider = s.br.Provider()
	}

	switch period {
	case domusage.PeriodDay:
		dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		start = dayStart.UnixMilli()
		end = dayStart.Add(24 * time.Hour).UnixMilli()
		if s.br != nil {
			limit, used, remaining = s.br.DailyLimit(), s.br.DailyUsed(), s.br.RemainingDaily()
		}
	case domusage.PeriodMonth:
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		start = monthStart.UnixMilli()
		end = monthStart.AddDate(0, 1, 0).UnixMilli()
		if s.br != nil {
			limit, used, remaining = s.br.MonthlyLimit(), s.br.MonthlyUsed(), s.br.RemainingMonthly()
		}
	default:
		// total: no period boundaries, monthly budget applies
		if s.br != nil {
			limit, used, remaining = s.br.MonthlyLimit(), s.br.MonthlyUsed(), s.br.RemainingMonthly()
		}
	}

	if remaining < 0 {
		remaining = 0
	}
	exhausted := limit > 0 && remaining <= 0

	var requests, failures int64
	if s.activity != nil {
		requests, failures = s.activity.Requests(), s.activity.Failures()
	}

	b := budget.New(int(limit), int(remaining), exhausted, end)
	m := metrics.New(int(requests), int(used), int(failures))
	return domusage.NewReport(period, start, end, provider, m, b)
}
