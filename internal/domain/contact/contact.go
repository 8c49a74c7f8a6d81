package contact

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Searchable field keys.
const (
	FieldName     = "name"
	FieldEmail    = "email"
	FieldCompany  = "company"
	FieldPhone    = "phone"
	FieldTitle    = "title"
	FieldIndustry = "industry"
	FieldLocation = "location"
)

// SearchableFields lists the free-text fields in display order.
var SearchableFields = []string{
	FieldName, FieldEmail, FieldCompany, FieldPhone, FieldTitle, FieldIndustry, FieldLocation,
}

// MaxFieldLength is the maximum length in bytes of any text field.
const MaxFieldLength = 512

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Fields holds the free-text attributes of a contact.
type Fields struct {
	Name     string
	Email    string
	Company  string
	Phone    string
	Title    string
	Industry string
	Location string
}

// CRM holds the pipeline attributes used by structured filters.
type CRM struct {
	Revenue     *float64
	EBITDA      *float64
	Employees   *int
	Status      Status
	LeadStatus  LeadStatus
	Origin      Origin
	EmailStatus EmailStatus
}

// Contact is the contact aggregate (immutable value object).
type Contact struct {
	id        string
	fields    Fields
	crm       CRM
	createdAt time.Time
	updatedAt time.Time
}

// New validates and creates a Contact.
// At least one of name, email or company is required.
func New(id string, f Fields, crm CRM, createdAt time.Time) (Contact, error) {
	if id == "" {
		return Contact{}, fmt.Errorf("contact ID is required")
	}
	if len(id) > 256 {
		return Contact{}, fmt.Errorf("contact ID too long (max 256)")
	}
	if !idRegex.MatchString(id) {
		return Contact{}, fmt.Errorf("contact ID must be alphanumeric with underscores and hyphens")
	}

	f = trimFields(f)
	if f.Name == "" && f.Email == "" && f.Company == "" {
		return Contact{}, fmt.Errorf("one of name, email or company is required")
	}
	for _, key := range SearchableFields {
		if len(f.get(key)) > MaxFieldLength {
			return Contact{}, fmt.Errorf("%s too long (max %d bytes)", key, MaxFieldLength)
		}
	}
	if f.Email != "" && !strings.Contains(f.Email, "@") {
		return Contact{}, fmt.Errorf("email %q is not a valid address", f.Email)
	}
	if err := crm.validate(); err != nil {
		return Contact{}, err
	}

	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return Contact{id: id, fields: f, crm: crm, createdAt: createdAt, updatedAt: createdAt}, nil
}

// Reconstruct creates a Contact without validation (storage hydration).
func Reconstruct(id string, f Fields, crm CRM, createdAt, updatedAt time.Time) Contact {
	return Contact{id: id, fields: f, crm: crm, createdAt: createdAt, updatedAt: updatedAt}
}

// ID returns the contact identifier.
func (c *Contact) ID() string { return c.id }

// Fields returns the free-text attributes.
func (c *Contact) Fields() Fields { return c.fields }

// CRM returns the pipeline attributes.
func (c *Contact) CRM() CRM { return c.crm }

// CreatedAt returns the creation time.
func (c *Contact) CreatedAt() time.Time { return c.createdAt }

// UpdatedAt returns the last modification time.
func (c *Contact) UpdatedAt() time.Time { return c.updatedAt }

// Field returns the value of a searchable field, or "" for unknown keys.
func (c *Contact) Field(key string) string { return c.fields.get(key) }

// Touch returns a copy with updatedAt set, keeping the original creation time.
func (c *Contact) Touch(createdAt, now time.Time) Contact {
	out := *c
	if !createdAt.IsZero() {
		out.createdAt = createdAt
	}
	out.updatedAt = now
	return out
}

func (f Fields) get(key string) string {
	switch key {
	case FieldName:
		return f.Name
	case FieldEmail:
		return f.Email
	case FieldCompany:
		return f.Company
	case FieldPhone:
		return f.Phone
	case FieldTitle:
		return f.Title
	case FieldIndustry:
		return f.Industry
	case FieldLocation:
		return f.Location
	default:
		return ""
	}
}

func trimFields(f Fields) Fields {
	return Fields{
		Name:     strings.TrimSpace(f.Name),
		Email:    strings.TrimSpace(f.Email),
		Company:  strings.TrimSpace(f.Company),
		Phone:    strings.TrimSpace(f.Phone),
		Title:    strings.TrimSpace(f.Title),
		Industry: strings.TrimSpace(f.Industry),
		Location: strings.TrimSpace(f.Location),
	}
}

func (c CRM) validate() error {
	if c.Status != "" && !c.Status.Valid() {
		return fmt.Errorf("unknown status %q", c.Status)
	}
	if c.LeadStatus != "" && !c.LeadStatus.Valid() {
		return fmt.Errorf("unknown lead_status_crm %q", c.LeadStatus)
	}
	if c.Origin != "" && !c.Origin.Valid() {
		return fmt.Errorf("unknown origin %q", c.Origin)
	}
	if c.EmailStatus != "" && !c.EmailStatus.Valid() {
		return fmt.Errorf("unknown email_status %q", c.EmailStatus)
	}
	if c.Employees != nil && *c.Employees < 0 {
		return fmt.Errorf("employees must be non-negative")
	}
	return nil
}
