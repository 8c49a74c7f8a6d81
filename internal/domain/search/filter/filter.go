// Package filter holds the structured contact filter derived from natural-language
// queries and the exact-match pass that applies it.
package filter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/leadsearch/internal/domain/contact"
	"github.com/kailas-cloud/leadsearch/internal/domain/search/textfold"
)

// Filter keys.
const (
	KeySector      = "sector"
	KeyLocation    = "location"
	KeyRevenueMin  = "revenue_min"
	KeyRevenueMax  = "revenue_max"
	KeyEBITDAMin   = "ebitda_min"
	KeyEBITDAMax   = "ebitda_max"
	KeyEmployeeMin = "employee_min"
	KeyEmployeeMax = "employee_max"
	KeyStatus      = "status"
	KeyLeadStatus  = "lead_status_crm"
	KeyOrigin      = "origin"
	KeyEmailStatus = "email_status"
	KeyDateRange   = "date_range"
	KeyTextSearch  = "text_search"
)

// Keys lists every allowed filter key.
var Keys = []string{
	KeySector, KeyLocation,
	KeyRevenueMin, KeyRevenueMax, KeyEBITDAMin, KeyEBITDAMax, KeyEmployeeMin, KeyEmployeeMax,
	KeyStatus, KeyLeadStatus, KeyOrigin, KeyEmailStatus, KeyDateRange, KeyTextSearch,
}

// DateRange is a creation-date window relative to now.
type DateRange string

// Date ranges.
const (
	Today      DateRange = "today"
	Last7Days  DateRange = "last_7_days"
	Last30Days DateRange = "last_30_days"
	Last90Days DateRange = "last_90_days"
	ThisYear   DateRange = "this_year"
)

// Valid reports whether d is a known range.
func (d DateRange) Valid() bool {
	switch d {
	case Today, Last7Days, Last30Days, Last90Days, ThisYear:
		return true
	}
	return false
}

// Since returns the inclusive lower bound of the range at now.
func (d DateRange) Since(now time.Time) time.Time {
	switch d {
	case Today:
		y, m, day := now.Date()
		return time.Date(y, m, day, 0, 0, 0, 0, now.Location())
	case Last7Days:
		return now.AddDate(0, 0, -7)
	case Last30Days:
		return now.AddDate(0, 0, -30)
	case Last90Days:
		return now.AddDate(0, 0, -90)
	case ThisYear:
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	}
	return time.Time{}
}

// Filter is a sparse set of constraints. Nil fields are unconstrained.
// Marshals to a JSON object holding only the present keys.
type Filter struct {
	Sector      *string              `json:"sector,omitempty"`
	Location    *string              `json:"location,omitempty"`
	RevenueMin  *float64             `json:"revenue_min,omitempty"`
	RevenueMax  *float64             `json:"revenue_max,omitempty"`
	EBITDAMin   *float64             `json:"ebitda_min,omitempty"`
	EBITDAMax   *float64             `json:"ebitda_max,omitempty"`
	EmployeeMin *int                 `json:"employee_min,omitempty"`
	EmployeeMax *int                 `json:"employee_max,omitempty"`
	Status      *contact.Status      `json:"status,omitempty"`
	LeadStatus  *contact.LeadStatus  `json:"lead_status_crm,omitempty"`
	Origin      *contact.Origin      `json:"origin,omitempty"`
	EmailStatus *contact.EmailStatus `json:"email_status,omitempty"`
	DateRange   *DateRange           `json:"date_range,omitempty"`
	TextSearch  *string              `json:"text_search,omitempty"`
}

// IsEmpty reports whether no constraint is set.
func (f Filter) IsEmpty() bool {
	return len(f.PresentKeys()) == 0
}

// PresentKeys returns the keys that carry a constraint, in Keys order.
func (f Filter) PresentKeys() []string {
	present := map[string]bool{
		KeySector:      f.Sector != nil,
		KeyLocation:    f.Location != nil,
		KeyRevenueMin:  f.RevenueMin != nil,
		KeyRevenueMax:  f.RevenueMax != nil,
		KeyEBITDAMin:   f.EBITDAMin != nil,
		KeyEBITDAMax:   f.EBITDAMax != nil,
		KeyEmployeeMin: f.EmployeeMin != nil,
		KeyEmployeeMax: f.EmployeeMax != nil,
		KeyStatus:      f.Status != nil,
		KeyLeadStatus:  f.LeadStatus != nil,
		KeyOrigin:      f.Origin != nil,
		KeyEmailStatus: f.EmailStatus != nil,
		KeyDateRange:   f.DateRange != nil,
		KeyTextSearch:  f.TextSearch != nil,
	}
	var keys []string
	for _, k := range Keys {
		if present[k] {
			keys = append(keys, k)
		}
	}
	return keys
}

// Merge returns base with every constraint present in override replacing base's.
func Merge(base, override Filter) Filter {
	out := base
	if override.Sector != nil {
		out.Sector = override.Sector
	}
	if override.Location != nil {
		out.Location = override.Location
	}
	if override.RevenueMin != nil {
		out.RevenueMin = override.RevenueMin
	}
	if override.RevenueMax != nil {
		out.RevenueMax = override.RevenueMax
	}
	if override.EBITDAMin != nil {
		out.EBITDAMin = override.EBITDAMin
	}
	if override.EBITDAMax != nil {
		out.EBITDAMax = override.EBITDAMax
	}
	if override.EmployeeMin != nil {
		out.EmployeeMin = override.EmployeeMin
	}
	if override.EmployeeMax != nil {
		out.EmployeeMax = override.EmployeeMax
	}
	if override.Status != nil {
		out.Status = override.Status
	}
	if override.LeadStatus != nil {
		out.LeadStatus = override.LeadStatus
	}
	if override.Origin != nil {
		out.Origin = override.Origin
	}
	if override.EmailStatus != nil {
		out.EmailStatus = override.EmailStatus
	}
	if override.DateRange != nil {
		out.DateRange = override.DateRange
	}
	if override.TextSearch != nil {
		out.TextSearch = override.TextSearch
	}
	return out
}

// Parse decodes a JSON object into a Filter.
// Unknown keys and values of the wrong type or outside their enum are dropped
// and reported in dropped. An error is returned only when data is not a JSON object.
func Parse(data []byte) (f Filter, dropped []string, err error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return Filter{}, nil, fmt.Errorf("decode filter: %w", err)
	}
	if raw == nil {
		return Filter{}, nil, fmt.Errorf("decode filter: not an object")
	}
	f, dropped = FromMap(raw)
	return f, dropped, nil
}

// FromMap builds a Filter from loosely typed values.
// Numeric strings ("1000000", "1.5") are accepted for numeric keys.
// Null values are treated as absent.
func FromMap(raw map[string]any) (Filter, []string) {
	var f Filter
	var dropped []string
	for key, v := range raw {
		if v == nil {
			continue
		}
		if !f.set(key, v) {
			dropped = append(dropped, key)
		}
	}
	sort.Strings(dropped)
	return f, dropped
}

func (f *Filter) set(key string, v any) bool {
	switch key {
	case KeySector:
		return setText(&f.Sector, v)
	case KeyLocation:
		return setText(&f.Location, v)
	case KeyTextSearch:
		return setText(&f.TextSearch, v)
	case KeyRevenueMin:
		return setAmount(&f.RevenueMin, v)
	case KeyRevenueMax:
		return setAmount(&f.RevenueMax, v)
	case KeyEBITDAMin:
		return setNumber(&f.EBITDAMin, v)
	case KeyEBITDAMax:
		return setNumber(&f.EBITDAMax, v)
	case KeyEmployeeMin:
		return setCount(&f.EmployeeMin, v)
	case KeyEmployeeMax:
		return setCount(&f.EmployeeMax, v)
	case KeyStatus:
		return setEnum(&f.Status, v)
	case KeyLeadStatus:
		return setEnum(&f.LeadStatus, v)
	case KeyOrigin:
		return setEnum(&f.Origin, v)
	case KeyEmailStatus:
		return setEnum(&f.EmailStatus, v)
	case KeyDateRange:
		return setEnum(&f.DateRange, v)
	}
	return false
}

func setText(dst **string, v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	*dst = &s
	return true
}

func setNumber(dst **float64, v any) bool {
	n, ok := toFloat(v)
	if !ok {
		return false
	}
	*dst = &n
	return true
}

func setAmount(dst **float64, v any) bool {
	n, ok := toFloat(v)
	if !ok || n < 0 {
		return false
	}
	*dst = &n
	return true
}

func setCount(dst **int, v any) bool {
	n, ok := toFloat(v)
	if !ok || n < 0 || n != math.Trunc(n) || n > math.MaxInt32 {
		return false
	}
	i := int(n)
	*dst = &i
	return true
}

type enum interface {
	~string
	Valid() bool
}

func setEnum[E enum](dst **E, v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	e := E(strings.ToLower(strings.TrimSpace(s)))
	if !e.Valid() {
		return false
	}
	*dst = &e
	return true
}

func toFloat(v any) (float64, bool) {
	var n float64
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		n = f
	case float64:
		n = t
	case int:
		n = float64(t)
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(t), "_", "")
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		n = f
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// Apply returns the contacts satisfying every present constraint, in input order.
// An empty filter returns contacts unchanged.
func (f Filter) Apply(contacts []contact.Contact, now time.Time) []contact.Contact {
	if f.IsEmpty() {
		return contacts
	}
	out := make([]contact.Contact, 0, len(contacts))
	for i := range contacts {
		if f.Match(&contacts[i], now) {
			out = append(out, contacts[i])
		}
	}
	return out
}

// Match reports whether c satisfies every present constraint.
// A contact without a value for a constrained numeric dimension does not match.
func (f Filter) Match(c *contact.Contact, now time.Time) bool {
	fields, crm := c.Fields(), c.CRM()

	if f.Sector != nil && !textfold.Contains(fields.Industry, *f.Sector) {
		return false
	}
	if f.Location != nil && !textfold.Contains(fields.Location, *f.Location) {
		return false
	}
	if !inRange(crm.Revenue, f.RevenueMin, f.RevenueMax) {
		return false
	}
	if !inRange(crm.EBITDA, f.EBITDAMin, f.EBITDAMax) {
		return false
	}
	if f.EmployeeMin != nil || f.EmployeeMax != nil {
		if crm.Employees == nil {
			return false
		}
		n := *crm.Employees
		if f.EmployeeMin != nil && n < *f.EmployeeMin {
			return false
		}
		if f.EmployeeMax != nil && n > *f.EmployeeMax {
			return false
		}
	}
	if f.Status != nil && crm.Status != *f.Status {
		return false
	}
	if f.LeadStatus != nil && crm.LeadStatus != *f.LeadStatus {
		return false
	}
	if f.Origin != nil && crm.Origin != *f.Origin {
		return false
	}
	if f.EmailStatus != nil && crm.EmailStatus != *f.EmailStatus {
		return false
	}
	if f.DateRange != nil {
		created := c.CreatedAt()
		if created.IsZero() || created.Before(f.DateRange.Since(now)) || created.After(now) {
			return false
		}
	}
	if f.TextSearch != nil && !containsAny(c, *f.TextSearch) {
		return false
	}
	return true
}

func inRange(v, lo, hi *float64) bool {
	if lo == nil && hi == nil {
		return true
	}
	if v == nil {
		return false
	}
	if lo != nil && *v < *lo {
		return false
	}
	if hi != nil && *v > *hi {
		return false
	}
	return true
}

func containsAny(c *contact.Contact, needle string) bool {
	for _, key := range contact.SearchableFields {
		if textfold.Contains(c.Field(key), needle) {
			return true
		}
	}
	return false
}
