package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	gochi "github.com/go-chi/chi/v5"

	"github.com/kailas-cloud/leadsearch/internal/domain"
	domcontact "github.com/kailas-cloud/leadsearch/internal/domain/contact"
	"github.com/kailas-cloud/leadsearch/internal/domain/search/fuzzy"
	"github.com/kailas-cloud/leadsearch/internal/domain/search/highlight"
	"github.com/kailas-cloud/leadsearch/internal/metrics"
	repohistory "github.com/kailas-cloud/leadsearch/internal/repository/history"
	batchuc "github.com/kailas-cloud/leadsearch/internal/usecase/batch"
	contactuc "github.com/kailas-cloud/leadsearch/internal/usecase/contact"
	healthuc "github.com/kailas-cloud/leadsearch/internal/usecase/health"
	historyuc "github.com/kailas-cloud/leadsearch/internal/usecase/history"
	"github.com/kailas-cloud/leadsearch/internal/usecase/nlfilter"
	searchuc "github.com/kailas-cloud/leadsearch/internal/usecase/search"
	usageuc "github.com/kailas-cloud/leadsearch/internal/usecase/usage"
)

func TestMain(m *testing.M) {
	metrics.RegisterSearchMetrics()
	metrics.RegisterCompletionMetrics()
	os.Exit(m.Run())
}

// --- Mocks ---

type memRepo struct {
	mu    sync.Mutex
	items map[string]domcontact.Contact
}

func newMemRepo() *memRepo {
	return &memRepo{items: make(map[string]domcontact.Contact)}
}

func (m *memRepo) Upsert(_ context.Context, c *domcontact.Contact) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, exists := m.items[c.ID()]
	m.items[c.ID()] = *c
	return !exists, nil
}

func (m *memRepo) UpsertBatch(ctx context.Context, contacts []domcontact.Contact) error {
	for i := range contacts {
		if _, err := m.Upsert(ctx, &contacts[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *memRepo) Get(_ context.Context, id string) (domcontact.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.items[id]
	if !ok {
		return domcontact.Contact{}, domain.ErrNotFound
	}
	return c, nil
}

func (m *memRepo) List(ctx context.Context, cursor string, limit int) ([]domcontact.Contact, string, error) {
	all, _ := m.All(ctx)
	out := make([]domcontact.Contact, 0, limit)
	for i := range all {
		if all[i].ID() <= cursor {
			continue
		}
		if len(out) == limit {
			return out, out[len(out)-1].ID(), nil
		}
		out = append(out, all[i])
	}
	return out, "", nil
}

func (m *memRepo) All(_ context.Context) ([]domcontact.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domcontact.Contact, 0, len(m.items))
	for _, c := range m.items {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out, nil
}

func (m *memRepo) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items), nil
}

func (m *memRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

type stubCompleter struct {
	text string
	err  error
}

func (s *stubCompleter) Complete(ctx context.Context, _ domain.CompletionRequest) (domain.CompletionResult, error) {
	if s.err != nil {
		domain.UsageFromContext(ctx).AddTokens(0)
		return domain.CompletionResult{}, s.err
	}
	domain.UsageFromContext(ctx).AddTokens(42)
	return domain.CompletionResult{Text: s.text, TotalTokens: 42}, nil
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

// --- Fixture ---

type fixture struct {
	repo    *memRepo
	handler http.Handler
}

func newFixture(t *testing.T, completer domain.Completer, opts ...func(*Server)) *fixture {
	t.Helper()
	repo := newMemRepo()
	contacts := contactuc.New(repo, 0, nil)
	batch := batchuc.New(repo, repo, contacts)
	history := historyuc.New(repohistory.NewMemoryStore(), 10, nil)
	var parser *nlfilter.Service
	var searchParser searchuc.FilterParser
	if completer != nil {
		parser = nlfilter.New(completer, nlfilter.DefaultConfig(), nil)
		searchParser = parser
	}
	search := searchuc.New(contacts, searchParser, history, fuzzy.DefaultOptions(), nil)
	health := healthuc.New(stubPinger{}, nil)

	srv := NewServer(contacts, batch, search, parser, history, usageuc.New(nil, nil), health, nil)
	for _, o := range opts {
		o(srv)
	}

	r := gochi.NewRouter()
	r.Use(BearerAuthMiddleware(AuthConfig{}))
	srv.Routes(r)
	return &fixture{repo: repo, handler: r}
}

func (f *fixture) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	return f.doFrom(t, "", method, path, body, headers...)
}

// doFrom is do with an explicit remote address ("" keeps the httptest default).
func (f *fixture) doFrom(t *testing.T, remoteAddr, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}

func (f *fixture) seed(t *testing.T, id string, fields domcontact.Fields, crm domcontact.CRM) {
	t.Helper()
	c, err := domcontact.New(id, fields, crm, time.Now().UTC())
	if err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
	if _, err := f.repo.Upsert(context.Background(), &c); err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode body %q: %v", rr.Body.String(), err)
	}
	return v
}

func f64(v float64) *float64 { return &v }

// --- parse-filters ---

const workedExample = `{"sector": "tecnología", "revenue_min": 1000000, "location": "Barcelona"}`

func TestParseFilters_Success(t *testing.T) {
	f := newFixture(t, &stubCompleter{text: "```json\n" + workedExample + "\n```"})

	rr := f.do(t, "POST", "/api/v1/search/parse-filters",
		`{"query":"empresas de tecnología de más de 1 millón en Barcelona"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200 (%s)", rr.Code, rr.Body.String())
	}
	if got := rr.Header().Get("X-Completion-Tokens"); got != "42" {
		t.Errorf("X-Completion-Tokens: got %q, want 42", got)
	}

	type rawBody struct {
		Filters map[string]any `json:"filters"`
		Query   string         `json:"query"`
		Success bool           `json:"success"`
	}
	body := decodeBody[rawBody](t, rr)
	if !body.Success {
		t.Error("success: got false")
	}
	if body.Query != "empresas de tecnología de más de 1 millón en Barcelona" {
		t.Errorf("query echo: got %q", body.Query)
	}
	want := map[string]any{"sector": "tecnología", "revenue_min": 1000000.0, "location": "Barcelona"}
	if fmt.Sprint(body.Filters) != fmt.Sprint(want) {
		t.Errorf("filters: got %v, want %v", body.Filters, want)
	}
}

func TestParseFilters_QueryRequired(t *testing.T) {
	f := newFixture(t, &stubCompleter{text: workedExample})

	tests := []struct {
		name string
		body string
	}{
		{"missing", `{}`},
		{"not a string", `{"query": 42}`},
		{"blank", `{"query": "   "}`},
		{"null", `{"query": null}`},
		{"malformed body", `{"query":`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := f.do(t, "POST", "/api/v1/search/parse-filters", tc.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status: got %d, want 400", rr.Code)
			}
			if got := strings.TrimSpace(rr.Body.String()); got != `{"filters":{},"error":"Query is required"}` {
				t.Errorf("body: got %s", got)
			}
		})
	}
}

func TestParseFilters_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{"rate limited", domain.NewUpstreamError("openai", 429, "slow down"),
			http.StatusTooManyRequests, msgRateLimited},
		{"provider failure", domain.NewUpstreamError("openai", 500, "boom"),
			http.StatusBadGateway, msgParseFailed},
		{"transport failure", fmt.Errorf("dial: %w", domain.ErrCompletionProviderError),
			http.StatusBadGateway, msgParseFailed},
		{"budget exhausted", fmt.Errorf("check: %w", domain.ErrCompletionQuotaExceeded),
			http.StatusPaymentRequired, msgBudgetExceeded},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, &stubCompleter{err: tc.err})
			rr := f.do(t, "POST", "/api/v1/search/parse-filters", `{"query":"empresas en Madrid"}`)
			if rr.Code != tc.wantStatus {
				t.Fatalf("status: got %d, want %d", rr.Code, tc.wantStatus)
			}
			body := decodeBody[ParseFiltersResponse](t, rr)
			if body.Error != tc.wantError {
				t.Errorf("error: got %q, want %q", body.Error, tc.wantError)
			}
			if !body.Filters.IsEmpty() {
				t.Errorf("filters: got %+v, want empty", body.Filters)
			}
		})
	}
}

func TestParseFilters_UnusableCompletionIsEmptySuccess(t *testing.T) {
	f := newFixture(t, &stubCompleter{text: "Lo siento, no puedo ayudar con eso."})

	rr := f.do(t, "POST", "/api/v1/search/parse-filters", `{"query":"algo raro"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"filters":{}`) {
		t.Errorf("body: got %s, want empty filters", rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"success":true`) {
		t.Errorf("body: got %s, want success", rr.Body.String())
	}
}

func TestParseFilters_NotConfigured(t *testing.T) {
	f := newFixture(t, nil)
	rr := f.do(t, "POST", "/api/v1/search/parse-filters", `{"query":"x y"}`)
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("status: got %d, want 503", rr.Code)
	}
}

func TestParseFilters_LocalRateLimit(t *testing.T) {
	f := newFixture(t, &stubCompleter{text: workedExample}, func(s *Server) {
		s.WithRateLimiter(NewRateLimiter(0.001, 1, time.Minute))
	})

	first := f.do(t, "POST", "/api/v1/search/parse-filters", `{"query":"tecnología"}`, ClientIDHeader, "a")
	if first.Code != http.StatusOK {
		t.Fatalf("first: got %d, want 200", first.Code)
	}
	second := f.do(t, "POST", "/api/v1/search/parse-filters", `{"query":"tecnología"}`, ClientIDHeader, "a")
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second: got %d, want 429", second.Code)
	}
	if body := decodeBody[ParseFiltersResponse](t, second); body.Error != msgRateLimited {
		t.Errorf("error: got %q", body.Error)
	}
	rotated := f.do(t, "POST", "/api/v1/search/parse-filters", `{"query":"tecnología"}`, ClientIDHeader, "b")
	if rotated.Code != http.StatusTooManyRequests {
		t.Errorf("new X-Client-ID from same address: got %d, want 429", rotated.Code)
	}
	other := f.doFrom(t, "198.51.100.7:4000", "POST", "/api/v1/search/parse-filters", `{"query":"tecnología"}`)
	if other.Code != http.StatusOK {
		t.Errorf("other address: got %d, want 200", other.Code)
	}
}

func TestSearchContacts_RateLimitIgnoresClientID(t *testing.T) {
	f := newFixture(t, &stubCompleter{text: workedExample}, func(s *Server) {
		s.WithRateLimiter(NewRateLimiter(0.001, 1, time.Minute))
	})
	body := `{"query":"tecnología","parse_filters":true}`

	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests, http.StatusTooManyRequests} {
		rr := f.do(t, "POST", "/api/v1/contacts/search", body, ClientIDHeader, fmt.Sprintf("client-%d", i))
		if rr.Code != want {
			t.Errorf("request %d: got %d, want %d", i, rr.Code, want)
		}
	}
}

func TestClientKey(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		header  string
		remote  string
		want    string
	}{
		{"client id header is ignored", "", "spoofed", "203.0.113.5:1234", "ip:203.0.113.5"},
		{"no identity", "", "", "203.0.113.5:1234", "ip:203.0.113.5"},
		{"jwt subject", "user-1", "spoofed", "203.0.113.5:1234", "sub:user-1"},
		{"remote without port", "", "", "203.0.113.9", "ip:203.0.113.9"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/v1/search/parse-filters", http.NoBody)
			req.RemoteAddr = tc.remote
			req.Header.Set(ClientIDHeader, tc.header)
			req = withOwner(req, tc.subject)

			if got := clientKey(req); got != tc.want {
				t.Errorf("clientKey: got %q, want %q", got, tc.want)
			}
		})
	}
}

// --- search ---

func seedSearch(t *testing.T, f *fixture) {
	f.seed(t, "c1", domcontact.Fields{Name: "Ana García", Company: "Acme", Industry: "Tecnología", Location: "Barcelona"},
		domcontact.CRM{Revenue: f64(2_500_000)})
	f.seed(t, "c2", domcontact.Fields{Name: "Luis Pérez", Company: "Forja", Industry: "Industria", Location: "Bilbao"},
		domcontact.CRM{Revenue: f64(800_000)})
}

func TestSearchContacts_FuzzyWithHighlights(t *testing.T) {
	f := newFixture(t, nil)
	seedSearch(t, f)

	rr := f.do(t, "POST", "/api/v1/contacts/search", `{"query":"Ana","highlight":true}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d (%s)", rr.Code, rr.Body.String())
	}
	body := decodeBody[SearchResponse](t, rr)
	if body.Total != 1 || len(body.Items) != 1 {
		t.Fatalf("results: got %d/%d, want 1", len(body.Items), body.Total)
	}
	item := body.Items[0]
	if item.Contact.ID != "c1" {
		t.Errorf("id: got %s, want c1", item.Contact.ID)
	}
	if item.Score > fuzzy.DefaultOptions().Threshold {
		t.Errorf("score %g above threshold", item.Score)
	}
	want := highlight.OpenTag + "Ana" + highlight.CloseTag + " García"
	if got := item.Highlights["name"]; got != want {
		t.Errorf("highlight: got %q, want %q", got, want)
	}
	if body.FilterStatus != string(searchuc.FilterStatusNone) {
		t.Errorf("filter_status: got %s", body.FilterStatus)
	}
}

func TestSearchContacts_BlankQueryReturnsAll(t *testing.T) {
	f := newFixture(t, nil)
	seedSearch(t, f)

	body := decodeBody[SearchResponse](t, f.do(t, "POST", "/api/v1/contacts/search", `{"query":"  "}`))
	if len(body.Items) != 2 || body.Items[0].Contact.ID != "c1" || body.Items[1].Contact.ID != "c2" {
		t.Errorf("blank query: got %+v", body.Items)
	}
}

func TestSearchContacts_ExplicitFilter(t *testing.T) {
	f := newFixture(t, nil)
	seedSearch(t, f)

	rr := f.do(t, "POST", "/api/v1/contacts/search", `{"query":"","filters":{"revenue_min":1000000}}`)
	body := decodeBody[SearchResponse](t, rr)
	if len(body.Items) != 1 || body.Items[0].Contact.ID != "c1" {
		t.Errorf("filtered: got %+v", body.Items)
	}
	if body.Filters.RevenueMin == nil || *body.Filters.RevenueMin != 1_000_000 {
		t.Errorf("filters echo: got %+v", body.Filters)
	}
}

func TestSearchContacts_InvalidInput(t *testing.T) {
	f := newFixture(t, nil)
	tests := []struct {
		name string
		body string
	}{
		{"unknown filter key", `{"query":"a","filters":{"colour":"red"}}`},
		{"threshold out of range", `{"query":"ana","threshold":1.5}`},
		{"negative limit", `{"query":"ana","limit":-1}`},
		{"unknown search key", `{"query":"ana","keys":[{"name":"notes","weight":1}]}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := f.do(t, "POST", "/api/v1/contacts/search", tc.body)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("status: got %d, want 400 (%s)", rr.Code, rr.Body.String())
			}
		})
	}
}

func TestSearchContacts_ParsedFilterDegradesOnUpstreamError(t *testing.T) {
	f := newFixture(t, &stubCompleter{err: domain.NewUpstreamError("openai", 429, "")})
	seedSearch(t, f)

	rr := f.do(t, "POST", "/api/v1/contacts/search", `{"query":"Luis","parse_filters":true}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	body := decodeBody[SearchResponse](t, rr)
	if body.FilterStatus != string(nlfilter.StatusRateLimited) {
		t.Errorf("filter_status: got %s", body.FilterStatus)
	}
	if body.FilterError == "" {
		t.Error("filter_error: want non-empty")
	}
	if len(body.Items) != 1 || body.Items[0].Contact.ID != "c2" {
		t.Errorf("fallback fuzzy: got %+v", body.Items)
	}
}

func TestSearchContacts_RecordsHistory(t *testing.T) {
	f := newFixture(t, nil)
	seedSearch(t, f)

	rr := f.do(t, "POST", "/api/v1/contacts/search", `{"query":"Ana","record_history":true}`, ClientIDHeader, "u1")
	if body := decodeBody[SearchResponse](t, rr); body.HistoryStatus != "ok" {
		t.Errorf("history_status: got %q", body.HistoryStatus)
	}

	hist := decodeBody[HistoryResponse](t, f.do(t, "GET", "/api/v1/search/history", "", ClientIDHeader, "u1"))
	if len(hist.History) != 1 || hist.History[0] != "Ana" {
		t.Errorf("history: got %v", hist.History)
	}
}

// --- history ---

func TestHistory_MissingOwner(t *testing.T) {
	f := newFixture(t, nil)
	rr := f.do(t, "GET", "/api/v1/search/history", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rr.Code)
	}
	if body := decodeBody[ErrorResponse](t, rr); body.Code != CodeMissingOwner {
		t.Errorf("code: got %s", body.Code)
	}
}

func TestHistory_Lifecycle(t *testing.T) {
	f := newFixture(t, nil)
	owner := []string{ClientIDHeader, "u1"}

	for _, q := range []string{"tecnología Barcelona", "industria Bilbao", "tecnología Barcelona"} {
		rr := f.do(t, "POST", "/api/v1/search/history", fmt.Sprintf(`{"query":%q}`, q), owner...)
		if rr.Code != http.StatusOK {
			t.Fatalf("add %q: got %d", q, rr.Code)
		}
	}

	hist := decodeBody[HistoryResponse](t, f.do(t, "GET", "/api/v1/search/history", "", owner...))
	want := []string{"tecnología Barcelona", "industria Bilbao"}
	if fmt.Sprint(hist.History) != fmt.Sprint(want) {
		t.Errorf("history: got %v, want %v", hist.History, want)
	}

	sug := decodeBody[HistoryResponse](t, f.do(t, "GET", "/api/v1/search/history/suggest?q=bilb&limit=5", "", owner...))
	if len(sug.History) != 1 || sug.History[0] != "industria Bilbao" {
		t.Errorf("suggest: got %v", sug.History)
	}

	if rr := f.do(t, "DELETE", "/api/v1/search/history", "", owner...); rr.Code != http.StatusOK {
		t.Fatalf("clear: got %d", rr.Code)
	}
	hist = decodeBody[HistoryResponse](t, f.do(t, "GET", "/api/v1/search/history", "", owner...))
	if len(hist.History) != 0 {
		t.Errorf("after clear: got %v", hist.History)
	}
}

func TestHistory_AddRequiresQuery(t *testing.T) {
	f := newFixture(t, nil)
	rr := f.do(t, "POST", "/api/v1/search/history", `{"query":""}`, ClientIDHeader, "u1")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rr.Code)
	}
}

// --- contacts ---

func TestContacts_CRUD(t *testing.T) {
	f := newFixture(t, nil)

	rr := f.do(t, "POST", "/api/v1/contacts", `{"name":"Ana","email":"ana@acme.es","revenue":1500000}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: got %d (%s)", rr.Code, rr.Body.String())
	}
	created := decodeBody[ContactResponse](t, rr)
	if created.ID == "" || created.Email != "ana@acme.es" {
		t.Fatalf("create body: %+v", created)
	}

	got := decodeBody[ContactResponse](t, f.do(t, "GET", "/api/v1/contacts/"+created.ID, ""))
	if got.Name != "Ana" || got.Revenue == nil || *got.Revenue != 1_500_000 {
		t.Errorf("get: %+v", got)
	}

	rr = f.do(t, "PUT", "/api/v1/contacts/"+created.ID, `{"name":"Ana María","lead_status_crm":"negociacion"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("update: got %d (%s)", rr.Code, rr.Body.String())
	}
	updated := decodeBody[ContactResponse](t, rr)
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("created_at changed: %v -> %v", created.CreatedAt, updated.CreatedAt)
	}

	if rr := f.do(t, "PUT", "/api/v1/contacts/new-1", `{"company":"Forja"}`); rr.Code != http.StatusCreated {
		t.Errorf("upsert new: got %d", rr.Code)
	}

	list := decodeBody[ContactListResponse](t, f.do(t, "GET", "/api/v1/contacts?limit=1", ""))
	if len(list.Items) != 1 || !list.HasMore || list.NextCursor == nil {
		t.Errorf("list page: %+v", list)
	}

	if rr := f.do(t, "DELETE", "/api/v1/contacts/"+created.ID, ""); rr.Code != http.StatusNoContent {
		t.Errorf("delete: got %d", rr.Code)
	}
	if rr := f.do(t, "GET", "/api/v1/contacts/"+created.ID, ""); rr.Code != http.StatusNotFound {
		t.Errorf("get deleted: got %d", rr.Code)
	}
}

func TestContacts_Validation(t *testing.T) {
	f := newFixture(t, nil)
	tests := []struct {
		name string
		body string
	}{
		{"no identifying field", `{"phone":"600"}`},
		{"bad email", `{"name":"Ana","email":"not-an-email"}`},
		{"unknown status", `{"name":"Ana","status":"archived"}`},
		{"unknown lead status", `{"name":"Ana","lead_status_crm":"cerrado"}`},
		{"negative employees", `{"name":"Ana","employees":-3}`},
		{"malformed json", `{"name":`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := f.do(t, "POST", "/api/v1/contacts", tc.body)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("status: got %d, want 400 (%s)", rr.Code, rr.Body.String())
			}
		})
	}
}

func TestContacts_ListInvalidLimit(t *testing.T) {
	f := newFixture(t, nil)
	if rr := f.do(t, "GET", "/api/v1/contacts?limit=abc", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rr.Code)
	}
}

func TestContacts_Batch(t *testing.T) {
	f := newFixture(t, nil)

	rr := f.do(t, "POST", "/api/v1/contacts/batch",
		`{"items":[{"id":"b1","name":"Ana"},{"id":"b2","phone":"600"},{"company":"Forja"}]}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("import: got %d (%s)", rr.Code, rr.Body.String())
	}
	body := decodeBody[BatchResponse](t, rr)
	if body.Succeeded != 2 || body.Failed != 1 {
		t.Fatalf("summary: %+v", body)
	}
	if body.Items[1].Error == nil || body.Items[1].Error.Code != CodeValidationFailed {
		t.Errorf("item 1 error: %+v", body.Items[1])
	}
	if body.Items[2].ID == "" {
		t.Error("generated id missing")
	}

	rr = f.do(t, "POST", "/api/v1/contacts/batch-delete", `{"ids":["b1","missing"]}`)
	del := decodeBody[BatchResponse](t, rr)
	if del.Succeeded != 1 || del.Failed != 1 || del.Items[1].Error.Code != CodeNotFound {
		t.Errorf("delete summary: %+v", del)
	}
}

// --- usage & health ---

func TestGetUsage(t *testing.T) {
	f := newFixture(t, nil)

	rr := f.do(t, "GET", "/api/v1/usage?period=day", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	body := decodeBody[UsageResponse](t, rr)
	if body.Period != "day" || body.PeriodStartAt == nil {
		t.Errorf("usage: %+v", body)
	}
	if body.Budget.IsExhausted {
		t.Error("unlimited budget reported exhausted")
	}

	if rr := f.do(t, "GET", "/api/v1/usage?period=year", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("invalid period: got %d, want 400", rr.Code)
	}
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name       string
		pingErr    error
		wantStatus int
	}{
		{"healthy", nil, http.StatusOK},
		{"database down", errors.New("conn refused"), http.StatusServiceUnavailable},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, nil, func(s *Server) {
				s.health = healthuc.New(stubPinger{err: tc.pingErr}, nil)
			})
			rr := f.do(t, "GET", "/health", "")
			if rr.Code != tc.wantStatus {
				t.Errorf("status: got %d, want %d", rr.Code, tc.wantStatus)
			}
		})
	}
}

func TestHandleDomainError_Mapping(t *testing.T) {
	s := NewServer(nil, nil, nil, nil, nil, nil, nil, nil)
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("get: %w", domain.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("x: %w", domain.ErrInvalidQuery), http.StatusBadRequest},
		{fmt.Errorf("x: %w", domain.ErrMissingOwner), http.StatusBadRequest},
		{domain.NewUpstreamError("anthropic", 429, ""), http.StatusTooManyRequests},
		{domain.NewUpstreamError("anthropic", 529, ""), http.StatusBadGateway},
		{domain.ErrCompletionQuotaExceeded, http.StatusPaymentRequired},
		{errors.New("redis: connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		rr := httptest.NewRecorder()
		s.handleDomainError(rr, httptest.NewRequest("GET", "/", http.NoBody), tc.err)
		if rr.Code != tc.want {
			t.Errorf("%v: got %d, want %d", tc.err, rr.Code, tc.want)
		}
		if strings.Contains(rr.Body.String(), "redis") {
			t.Errorf("internal detail leaked: %s", rr.Body.String())
		}
	}
}
