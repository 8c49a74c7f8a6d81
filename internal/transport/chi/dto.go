package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/leadsearch/internal/domain"
	dombatch "github.com/kailas-cloud/leadsearch/internal/domain/batch"
	domcontact "github.com/kailas-cloud/leadsearch/internal/domain/contact"
	"github.com/kailas-cloud/leadsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/leadsearch/internal/domain/search/fuzzy"
	"github.com/kailas-cloud/leadsearch/internal/domain/search/highlight"
	"github.com/kailas-cloud/leadsearch/internal/domain/search/result"
	batchuc "github.com/kailas-cloud/leadsearch/internal/usecase/batch"
)

// ContactRequest is the writable part of a contact.
type ContactRequest struct {
	Name          string   `json:"name" validate:"max=512"`
	Email         string   `json:"email" validate:"omitempty,max=512,email"`
	Company       string   `json:"company" validate:"max=512"`
	Phone         string   `json:"phone" validate:"max=512"`
	Title         string   `json:"title" validate:"max=512"`
	Industry      string   `json:"industry" validate:"max=512"`
	Location      string   `json:"location" validate:"max=512"`
	Revenue       *float64 `json:"revenue,omitempty" validate:"omitempty,gte=0"`
	EBITDA        *float64 `json:"ebitda,omitempty"`
	Employees     *int     `json:"employees,omitempty" validate:"omitempty,gte=0"`
	Status        string   `json:"status,omitempty" validate:"omitempty,oneof=new contacted qualified lost won"`
	LeadStatusCRM string   `json:"lead_status_crm,omitempty"`
	Origin        string   `json:"origin,omitempty"`
	EmailStatus   string   `json:"email_status,omitempty" validate:"omitempty,oneof=opened sent not_contacted"`
}

// ToDomain splits the request into contact fields and CRM attributes.
// Enum values are checked by the contact constructor.
func (r ContactRequest) ToDomain() (domcontact.Fields, domcontact.CRM) {
	f := domcontact.Fields{
		Name:     r.Name,
		Email:    r.Email,
		Company:  r.Company,
		Phone:    r.Phone,
		Title:    r.Title,
		Industry: r.Industry,
		Location: r.Location,
	}
	crm := domcontact.CRM{
		Revenue:     r.Revenue,
		EBITDA:      r.EBITDA,
		Employees:   r.Employees,
		Status:      domcontact.Status(r.Status),
		LeadStatus:  domcontact.LeadStatus(r.LeadStatusCRM),
		Origin:      domcontact.Origin(r.Origin),
		EmailStatus: domcontact.EmailStatus(r.EmailStatus),
	}
	return f, crm
}

// ImportItem is a contact in a batch import. ID and CreatedAt are optional.
type ImportItem struct {
	ContactRequest
	ID        string     `json:"id,omitempty" validate:"omitempty,max=256"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// ToBatchItem converts the import item for the batch service.
func (i ImportItem) ToBatchItem() batchuc.Item {
	f, crm := i.ToDomain()
	item := batchuc.Item{ID: i.ID, Fields: f, CRM: crm}
	if i.CreatedAt != nil {
		item.CreatedAt = *i.CreatedAt
	}
	return item
}

// ContactResponse is a stored contact.
type ContactResponse struct {
	ID string `json:"id"`
	ContactRequest
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func contactToResponse(c domcontact.Contact) ContactResponse {
	f, crm := c.Fields(), c.CRM()
	return ContactResponse{
		ID: c.ID(),
		ContactRequest: ContactRequest{
			Name:          f.Name,
			Email:         f.Email,
			Company:       f.Company,
			Phone:         f.Phone,
			Title:         f.Title,
			Industry:      f.Industry,
			Location:      f.Location,
			Revenue:       crm.Revenue,
			EBITDA:        crm.EBITDA,
			Employees:     crm.Employees,
			Status:        string(crm.Status),
			LeadStatusCRM: string(crm.LeadStatus),
			Origin:        string(crm.Origin),
			EmailStatus:   string(crm.EmailStatus),
		},
		CreatedAt: c.CreatedAt(),
		UpdatedAt: c.UpdatedAt(),
	}
}

// ContactListResponse is one page of contacts.
type ContactListResponse struct {
	Items      []ContactResponse `json:"items"`
	NextCursor *string           `json:"next_cursor"`
	HasMore    bool              `json:"has_more"`
}

// BatchImportRequest is the body of POST /api/v1/contacts/batch.
type BatchImportRequest struct {
	Items []ImportItem `json:"items" validate:"required,min=1,dive"`
}

// BatchDeleteRequest is the body of POST /api/v1/contacts/batch-delete.
type BatchDeleteRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}

// BatchResultItem is the outcome of one batch item.
type BatchResultItem struct {
	Index  int            `json:"index"`
	ID     string         `json:"id,omitempty"`
	Status string         `json:"status"`
	Error  *ErrorResponse `json:"error,omitempty"`
}

// BatchResponse summarizes a batch operation.
type BatchResponse struct {
	Items     []BatchResultItem `json:"items"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
}

func batchToResponse(results []dombatch.Result) BatchResponse {
	items := make([]BatchResultItem, len(results))
	for i, r := range results {
		items[i] = BatchResultItem{Index: r.Index(), ID: r.ID(), Status: string(r.Status())}
		if r.Err() != nil {
			items[i].Error = &ErrorResponse{Code: batchErrorCode(r.Err()), Message: safeDomainMessage(r.Err())}
		}
	}
	sum := dombatch.Summarize(results)
	return BatchResponse{Items: items, Succeeded: sum.OK, Failed: sum.Failed}
}

func batchErrorCode(err error) ErrorCode {
	switch {
	case errors.Is(err, domain.ErrInvalidContact):
		return CodeValidationFailed
	case errors.Is(err, domain.ErrNotFound):
		return CodeNotFound
	default:
		return CodeInternalError
	}
}

// ParseFiltersRequest is the body of POST /api/v1/search/parse-filters.
// Query is raw so that a non-string value can be told apart from a missing one.
type ParseFiltersRequest struct {
	Query json.RawMessage `json:"query"`
}

// ParseFiltersResponse is the parse-filters body. Success is omitted on errors.
type ParseFiltersResponse struct {
	Filters filter.Filter `json:"filters"`
	Query   string        `json:"query,omitempty"`
	Success bool          `json:"success,omitempty"`
	Status  string        `json:"status,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// SearchKey overrides a field weight.
type SearchKey struct {
	Name   string  `json:"name" validate:"required,oneof=name email company phone title industry location"`
	Weight float64 `json:"weight" validate:"gte=0"`
}

// SearchRequest is the body of POST /api/v1/contacts/search.
type SearchRequest struct {
	Query         string         `json:"query" validate:"max=1024"`
	Filters       map[string]any `json:"filters,omitempty"`
	ParseFilters  bool           `json:"parse_filters,omitempty"`
	Threshold     *float64       `json:"threshold,omitempty" validate:"omitempty,gte=0,lte=1"`
	Keys          []SearchKey    `json:"keys,omitempty" validate:"omitempty,dive"`
	Limit         int            `json:"limit,omitempty" validate:"gte=0"`
	Highlight     bool           `json:"highlight,omitempty"`
	RecordHistory bool           `json:"record_history,omitempty"`
}

// explicitFilter decodes the client's filter object. Unknown keys and
// invalid values are a client error here, unlike model output.
func (r SearchRequest) explicitFilter() (filter.Filter, error) {
	if len(r.Filters) == 0 {
		return filter.Filter{}, nil
	}
	f, dropped := filter.FromMap(r.Filters)
	if len(dropped) > 0 {
		return filter.Filter{}, fmt.Errorf("invalid filter keys: %v", dropped)
	}
	return f, nil
}

func (r SearchRequest) keys() []fuzzy.Key {
	if len(r.Keys) == 0 {
		return nil
	}
	keys := make([]fuzzy.Key, len(r.Keys))
	for i, k := range r.Keys {
		keys[i] = fuzzy.Key{Name: k.Name, Weight: k.Weight}
	}
	return keys
}

// MatchResponse is one matched field.
type MatchResponse struct {
	Key     string   `json:"key"`
	Value   string   `json:"value"`
	Indices [][2]int `json:"indices"`
	Score   float64  `json:"score"`
}

// SearchResultItem is a ranked contact.
type SearchResultItem struct {
	Contact    ContactResponse   `json:"contact"`
	Score      float64           `json:"score"`
	Matches    []MatchResponse   `json:"matches"`
	Highlights map[string]string `json:"highlights,omitempty"`
}

// SearchResponse is the body returned by a search.
type SearchResponse struct {
	Items         []SearchResultItem `json:"items"`
	Total         int                `json:"total"`
	Filters       filter.Filter      `json:"filters"`
	FilterStatus  string             `json:"filter_status"`
	FilterError   string             `json:"filter_error,omitempty"`
	HistoryStatus string             `json:"history_status,omitempty"`
}

func searchResultToResponse(r *result.Result, withHighlights bool) SearchResultItem {
	matches := make([]MatchResponse, len(r.Matches()))
	for i, m := range r.Matches() {
		indices := make([][2]int, len(m.Indices))
		for j, span := range m.Indices {
			indices[j] = [2]int(span)
		}
		matches[i] = MatchResponse{Key: m.Key, Value: m.Value, Indices: indices, Score: m.Score}
	}

	item := SearchResultItem{
		Contact: contactToResponse(r.Contact()),
		Score:   r.Score(),
		Matches: matches,
	}
	if withHighlights && len(r.Matches()) > 0 {
		item.Highlights = make(map[string]string, len(r.Matches()))
		for _, m := range r.Matches() {
			item.Highlights[m.Key] = highlight.ApplyHTML(m.Value, r.Matches(), m.Key)
		}
	}
	return item
}

// HistoryRequest is the body of POST /api/v1/search/history.
type HistoryRequest struct {
	Query string `json:"query" validate:"required,max=1024"`
}

// HistoryResponse lists recent queries, most recent first.
type HistoryResponse struct {
	History []string `json:"history"`
	Status  string   `json:"status"`
}

// UsageResponse reports completion usage and budget.
type UsageResponse struct {
	Period        string       `json:"period"`
	Provider      string       `json:"provider,omitempty"`
	PeriodStartAt *time.Time   `json:"period_start_at,omitempty"`
	PeriodEndAt   *time.Time   `json:"period_end_at,omitempty"`
	Usage         UsageMetrics `json:"usage"`
	Budget        BudgetStatus `json:"budget"`
}

// UsageMetrics are completion counters.
type UsageMetrics struct {
	CompletionRequests int `json:"completion_requests"`
	Tokens             int `json:"tokens"`
	Failures           int `json:"failures"`
}

// BudgetStatus is the token budget state.
type BudgetStatus struct {
	TokensLimit     int        `json:"tokens_limit"`
	TokensRemaining int        `json:"tokens_remaining"`
	IsExhausted     bool       `json:"is_exhausted"`
	ResetsAt        *time.Time `json:"resets_at,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
