package postgres

import (
	"time"

	domcontact "github.com/kailas-cloud/leadsearch/internal/domain/contact"
)

// contactModel maps the contacts table.
type contactModel struct {
	ID            string `gorm:"primaryKey;size:256"`
	Name          string `gorm:"size:512"`
	Email         string `gorm:"size:512;index"`
	Company       string `gorm:"size:512"`
	Phone         string `gorm:"size:512"`
	Title         string `gorm:"size:512"`
	Industry      string `gorm:"size:512"`
	Location      string `gorm:"size:512"`
	Revenue       *float64
	EBITDA        *float64 `gorm:"column:ebitda"`
	Employees     *int
	Status        string `gorm:"size:32"`
	LeadStatusCRM string `gorm:"column:lead_status_crm;size:32"`
	Origin        string `gorm:"size:32"`
	EmailStatus   string `gorm:"size:32"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName overrides the gorm default.
func (contactModel) TableName() string { return "contacts" }

func toModel(c *domcontact.Contact) contactModel {
	f, crm := c.Fields(), c.CRM()
	return contactModel{
		ID:            c.ID(),
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
		CreatedAt:     c.CreatedAt(),
		UpdatedAt:     c.UpdatedAt(),
	}
}

func (m *contactModel) toDomain() domcontact.Contact {
	return domcontact.Reconstruct(m.ID,
		domcontact.Fields{
			Name:     m.Name,
			Email:    m.Email,
			Company:  m.Company,
			Phone:    m.Phone,
			Title:    m.Title,
			Industry: m.Industry,
			Location: m.Location,
		},
		domcontact.CRM{
			Revenue:     m.Revenue,
			EBITDA:      m.EBITDA,
			Employees:   m.Employees,
			Status:      domcontact.Status(m.Status),
			LeadStatus:  domcontact.LeadStatus(m.LeadStatusCRM),
			Origin:      domcontact.Origin(m.Origin),
			EmailStatus: domcontact.EmailStatus(m.EmailStatus),
		},
		m.CreatedAt.UTC(), m.UpdatedAt.UTC(),
	)
}
