package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kailas-cloud/leadsearch/internal/domain"
	dombatch "github.com/kailas-cloud/leadsearch/internal/domain/batch"
	"github.com/kailas-cloud/leadsearch/internal/domain/search/filter"
	batchuc "github.com/kailas-cloud/leadsearch/internal/usecase/batch"
	"github.com/kailas-cloud/leadsearch/internal/usecase/nlfilter"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

// --- Mocks ---

type stubParser struct {
	out nlfilter.Outcome
	err error
}

func (p stubParser) Parse(context.Context, string) (nlfilter.Outcome, error) {
	return p.out, p.err
}

type stubImporter struct {
	got     []batchuc.Item
	results []dombatch.Result
}

func (s *stubImporter) Import(_ context.Context, items []batchuc.Item) []dombatch.Result {
	s.got = items
	return s.results
}

// --- Tests ---

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"serve", "parse-filters", "import"})
}

func TestRunParse_PrintsFilterInKeyOrder(t *testing.T) {
	f, _, err := filter.Parse([]byte(`{"location":"Barcelona","sector":"tecnología","revenue_min":1000000}`))
	require.NoError(t, err)

	var buf bytes.Buffer
	err = runParse(context.Background(), stubParser{out: nlfilter.Outcome{Filter: f, Status: nlfilter.StatusOK}}, "q", &buf)
	require.NoError(t, err)

	got := buf.String()
	assert.True(t, strings.HasPrefix(got, "status: ok\n"), got)
	sector := strings.Index(got, `"sector": "tecnología"`)
	location := strings.Index(got, `"location": "Barcelona"`)
	revenue := strings.Index(got, `"revenue_min": 1000000`)
	require.NotEqual(t, -1, sector, got)
	require.NotEqual(t, -1, location, got)
	require.NotEqual(t, -1, revenue, got)
	assert.Less(t, sector, location)
	assert.Less(t, location, revenue)
}

func TestRunParse_EmptyOutcome(t *testing.T) {
	var buf bytes.Buffer
	err := runParse(context.Background(), stubParser{out: nlfilter.Outcome{Status: nlfilter.StatusEmpty}}, "hola", &buf)
	require.NoError(t, err)
	assert.Equal(t, "status: empty\n{}\n", buf.String())
}

func TestRunParse_DegradedIsAnError(t *testing.T) {
	var buf bytes.Buffer
	out := nlfilter.Outcome{Status: nlfilter.StatusRateLimited, Err: domain.ErrRateLimited}
	err := runParse(context.Background(), stubParser{out: out}, "q", &buf)

	require.Error(t, err)
	assert.ErrorIs(t, err, errParseDegraded)
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.Contains(t, buf.String(), "status: rate_limited")
	assert.Contains(t, buf.String(), "error: ")
}

func TestRunParse_BlankQuery(t *testing.T) {
	err := runParse(context.Background(), stubParser{err: domain.ErrInvalidQuery}, " ", &bytes.Buffer{})
	assert.ErrorIs(t, err, domain.ErrInvalidQuery)
}

func TestReadImportItems(t *testing.T) {
	items, err := readImportItems(strings.NewReader(`[
		{"name":"Ana Ruiz","company":"Acme","email":"ana@acme.es"},
		{"id":"c-2","name":"Luis","created_at":"2024-05-01T10:00:00Z"}
	]`))
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Ana Ruiz", items[0].Fields.Name)
	assert.Equal(t, "c-2", items[1].ID)
	assert.Equal(t, 2024, items[1].CreatedAt.Year())
}

func TestReadImportItems_NotAnArray(t *testing.T) {
	_, err := readImportItems(strings.NewReader(`{"name":"x"}`))
	assert.Error(t, err)
}

func TestRunImport(t *testing.T) {
	tests := []struct {
		name    string
		results []dombatch.Result
		wantErr bool
		want    string
	}{
		{
			name:    "all ok",
			results: []dombatch.Result{dombatch.NewOK(0, "a"), dombatch.NewOK(1, "b")},
			want:    "imported 2, failed 0\n",
		},
		{
			name: "partial failure",
			results: []dombatch.Result{
				dombatch.NewOK(0, "a"),
				dombatch.NewError(1, "", errors.New("name is required")),
			},
			wantErr: true,
			want:    "item 1: name is required\nimported 1, failed 1\n",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			imp := &stubImporter{results: tc.results}
			var buf bytes.Buffer
			err := runImport(context.Background(), imp, make([]batchuc.Item, len(tc.results)), &buf, zap.NewNop())
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tc.want, buf.String())
			assert.Len(t, imp.got, len(tc.results))
		})
	}
}

func TestJSONRecoverer(t *testing.T) {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(zap.NewNop()))
	r.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/boom", http.NoBody))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"code":"internal_error","message":"internal error"}`, rr.Body.String())
}

func TestWideEventMiddleware_SetsRequestID(t *testing.T) {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(zap.NewNop()))
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}
