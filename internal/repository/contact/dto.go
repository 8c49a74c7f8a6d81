package contact

import (
	"fmt"
	"strconv"
	"time"

	domcontact "github.com/kailas-cloud/leadsearch/internal/domain/contact"
)

// Hash field names.
const (
	hID          = "id"
	hRevenue     = "revenue"
	hEBITDA      = "ebitda"
	hEmployees   = "employees"
	hStatus      = "status"
	hLeadStatus  = "lead_status_crm"
	hOrigin      = "origin"
	hEmailStatus = "email_status"
	hCreatedAt   = "created_at"
	hUpdatedAt   = "updated_at"
)

// contactToHash converts a Contact to a map for HSET.
// Every field is written so that an overwrite clears values removed by an update.
func contactToHash(c *domcontact.Contact) map[string]string {
	f, crm := c.Fields(), c.CRM()
	m := map[string]string{
		hID:                      c.ID(),
		domcontact.FieldName:     f.Name,
		domcontact.FieldEmail:    f.Email,
		domcontact.FieldCompany:  f.Company,
		domcontact.FieldPhone:    f.Phone,
		domcontact.FieldTitle:    f.Title,
		domcontact.FieldIndustry: f.Industry,
		domcontact.FieldLocation: f.Location,
		hRevenue:                 formatFloat(crm.Revenue),
		hEBITDA:                  formatFloat(crm.EBITDA),
		hEmployees:               "",
		hStatus:                  string(crm.Status),
		hLeadStatus:              string(crm.LeadStatus),
		hOrigin:                  string(crm.Origin),
		hEmailStatus:             string(crm.EmailStatus),
		hCreatedAt:               strconv.FormatInt(c.CreatedAt().UnixMilli(), 10),
		hUpdatedAt:               strconv.FormatInt(c.UpdatedAt().UnixMilli(), 10),
	}
	if crm.Employees != nil {
		m[hEmployees] = strconv.Itoa(*crm.Employees)
	}
	return m
}

// contactFromHash hydrates a Contact from an HGETALL result map.
func contactFromHash(m map[string]string) (domcontact.Contact, error) {
	id := m[hID]
	if id == "" {
		return domcontact.Contact{}, fmt.Errorf("hash has no id")
	}

	revenue, err := parseFloat(m[hRevenue])
	if err != nil {
		return domcontact.Contact{}, fmt.Errorf("contact %s: invalid revenue: %w", id, err)
	}
	ebitda, err := parseFloat(m[hEBITDA])
	if err != nil {
		return domcontact.Contact{}, fmt.Errorf("contact %s: invalid ebitda: %w", id, err)
	}
	var employees *int
	if s := m[hEmployees]; s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return domcontact.Contact{}, fmt.Errorf("contact %s: invalid employees: %w", id, err)
		}
		employees = &n
	}

	fields := domcontact.Fields{
		Name:     m[domcontact.FieldName],
		Email:    m[domcontact.FieldEmail],
		Company:  m[domcontact.FieldCompany],
		Phone:    m[domcontact.FieldPhone],
		Title:    m[domcontact.FieldTitle],
		Industry: m[domcontact.FieldIndustry],
		Location: m[domcontact.FieldLocation],
	}
	crm := domcontact.CRM{
		Revenue:     revenue,
		EBITDA:      ebitda,
		Employees:   employees,
		Status:      domcontact.Status(m[hStatus]),
		LeadStatus:  domcontact.LeadStatus(m[hLeadStatus]),
		Origin:      domcontact.Origin(m[hOrigin]),
		EmailStatus: domcontact.EmailStatus(m[hEmailStatus]),
	}
	return domcontact.Reconstruct(id, fields, crm, parseMillis(m[hCreatedAt]), parseMillis(m[hUpdatedAt])), nil
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func parseFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parseMillis(s string) time.Time {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil || ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
