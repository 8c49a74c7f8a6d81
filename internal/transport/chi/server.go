// Package chi exposes the contact search API over HTTP.
package chi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	gochi "github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/leadsearch/internal/domain"
	domusage "github.com/kailas-cloud/leadsearch/internal/domain/usage"
	batchuc "github.com/kailas-cloud/leadsearch/internal/usecase/batch"
	contactuc "github.com/kailas-cloud/leadsearch/internal/usecase/contact"
	healthuc "github.com/kailas-cloud/leadsearch/internal/usecase/health"
	historyuc "github.com/kailas-cloud/leadsearch/internal/usecase/history"
	"github.com/kailas-cloud/leadsearch/internal/usecase/nlfilter"
	searchuc "github.com/kailas-cloud/leadsearch/internal/usecase/search"
	usageuc "github.com/kailas-cloud/leadsearch/internal/usecase/usage"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 8 << 20

// Server holds the HTTP handlers.
type Server struct {
	contacts      *contactuc.Service
	batch         *batchuc.Service
	search        *searchuc.Service
	filters       *nlfilter.Service
	history       *historyuc.Service
	usage         *usageuc.Service
	health        *healthuc.Service
	limiter       *RateLimiter
	validate      *validator.Validate
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. filters may be nil when no LLM is configured.
func NewServer(
	contacts *contactuc.Service,
	batch *batchuc.Service,
	search *searchuc.Service,
	filters *nlfilter.Service,
	history *historyuc.Service,
	usage *usageuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		contacts:      contacts,
		batch:         batch,
		search:        search,
		filters:       filters,
		history:       history,
		usage:         usage,
		health:        health,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		logger:        logger,
		errorHandlers: defaultErrorHandlers(),
	}
}

// WithRateLimiter guards the LLM-backed endpoints with a per-client limiter.
func (s *Server) WithRateLimiter(l *RateLimiter) *Server {
	s.limiter = l
	return s
}

// Routes mounts every endpoint on r.
func (s *Server) Routes(r gochi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/api/v1", func(r gochi.Router) {
		r.Route("/search", func(r gochi.Router) {
			if s.limiter != nil {
				r.With(s.limiter.Middleware).Post("/parse-filters", s.ParseFilters)
			} else {
				r.Post("/parse-filters", s.ParseFilters)
			}
			r.Get("/history", s.GetHistory)
			r.Post("/history", s.AddHistory)
			r.Delete("/history", s.ClearHistory)
			r.Get("/history/suggest", s.SuggestHistory)
		})

		r.Route("/contacts", func(r gochi.Router) {
			r.Get("/", s.ListContacts)
			r.Post("/", s.CreateContact)
			r.Post("/search", s.SearchContacts)
			r.Post("/batch", s.BatchImport)
			r.Post("/batch-delete", s.BatchDelete)
			r.Get("/{id}", s.GetContact)
			r.Put("/{id}", s.UpsertContact)
			r.Delete("/{id}", s.DeleteContact)
		})

		r.Get("/usage", s.GetUsage)
	})
}

// GetUsage handles GET /api/v1/usage.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	var period string
	if err := runtime.BindQueryParameter("form", true, false, "period", r.URL.Query(), &period); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid period")
		return
	}
	p := domusage.PeriodMonth
	if period != "" {
		p = domusage.Period(period)
		if !p.Valid() {
			writeError(w, http.StatusBadRequest, CodeValidationFailed, "period must be one of day, month, total")
			return
		}
	}

	report := s.usage.GetReport(r.Context(), p)
	resp := UsageResponse{
		Period:   string(report.Period()),
		Provider: report.Provider(),
		Usage: UsageMetrics{
			CompletionRequests: report.Metrics().CompletionRequests(),
			Tokens:             report.Metrics().Tokens(),
			Failures:           report.Metrics().Failures(),
		},
		Budget: BudgetStatus{
			TokensLimit:     report.Budget().TokensLimit(),
			TokensRemaining: report.Budget().TokensRemaining(),
			IsExhausted:     report.Budget().IsExhausted(),
		},
	}
	if report.PeriodStart() > 0 {
		start := time.UnixMilli(report.PeriodStart()).UTC()
		end := time.UnixMilli(report.PeriodEnd()).UTC()
		resp.PeriodStartAt = &start
		resp.PeriodEndAt = &end
	}
	if report.Budget().ResetsAt() > 0 {
		resetsAt := time.UnixMilli(report.Budget().ResetsAt()).UTC()
		resp.Budget.ResetsAt = &resetsAt
	}

	writeJSON(w, http.StatusOK, resp)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, HealthResponse{Status: string(report.Status), Checks: checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// decode reads a JSON body into dst and validates it. On failure it writes
// a 400 and returns false.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body: "+err.Error())
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, validationMessage(err))
		return false
	}
	return true
}

// validationMessage renders validator errors as "field: rule" pairs.
func validationMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return "validation failed"
	}
	msg := ""
	for i, fe := range verrs {
		if i > 0 {
			msg += "; "
		}
		msg += fe.Namespace() + ": " + fe.Tag()
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
	}
	return msg
}

func setCompletionHeaders(w http.ResponseWriter, usage *domain.CompletionUsage) {
	if usage != nil && usage.Used {
		w.Header().Set("X-Completion-Tokens", strconv.Itoa(usage.TotalTokens))
	}
}
