package nlfilter

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/leadsearch/internal/domain/contact"
	"github.com/kailas-cloud/leadsearch/internal/domain/search/filter"
)

// WorkedExampleQuery is the documented example the prompt teaches.
const WorkedExampleQuery = "empresas de tecnología de más de 1 millón en Barcelona"

const workedExampleOutput = `{"sector": "tecnología", "revenue_min": 1000000, "location": "Barcelona"}`

// SystemPrompt returns the fixed extraction instruction.
func SystemPrompt() string {
	var b strings.Builder
	b.WriteString("You convert search queries for an M&A advisory CRM into a JSON filter object.\n")
	b.WriteString("Respond with a single JSON object and nothing else. Omit keys the query does not mention.\n\n")
	b.WriteString("Allowed keys:\n")
	b.WriteString("- sector: industry name, normalized to its Spanish form (\"tech\" -> \"tecnología\", \"salud\" -> \"salud\")\n")
	b.WriteString("- location: city, province or region as written\n")
	b.WriteString("- revenue_min, revenue_max: annual revenue in euros\n")
	b.WriteString("- ebitda_min, ebitda_max: EBITDA in euros\n")
	b.WriteString("- employee_min, employee_max: headcount\n")
	fmt.Fprintf(&b, "- status: one of %s\n", joinEnum([]contact.Status{
		contact.StatusNew, contact.StatusContacted, contact.StatusQualified, contact.StatusLost, contact.StatusWon,
	}))
	fmt.Fprintf(&b, "- lead_status_crm: one of %s\n", joinEnum(contact.LeadStatuses))
	fmt.Fprintf(&b, "- origin: one of %s\n", joinEnum([]contact.Origin{
		contact.OriginValuation, contact.OriginContact, contact.OriginCollaborator,
		contact.OriginAcquisition, contact.OriginCompanyAcquisition,
	}))
	fmt.Fprintf(&b, "- email_status: one of %s\n", joinEnum([]contact.EmailStatus{
		contact.EmailOpened, contact.EmailSent, contact.EmailNotContacted,
	}))
	fmt.Fprintf(&b, "- date_range: one of %s\n", joinEnum([]filter.DateRange{
		filter.Today, filter.Last7Days, filter.Last30Days, filter.Last90Days, filter.ThisYear,
	}))
	b.WriteString("- text_search: any remaining free text that fits no other key\n\n")
	b.WriteString("Amounts are plain numbers: \"1M\", \"1 millón\" -> 1000000; \"500k\", \"500 mil\" -> 500000; \"mil\" alone -> 1000.\n")
	b.WriteString("\"más de X\" sets the _min key, \"menos de X\" sets the _max key.\n\n")
	b.WriteString("Examples:\n")
	fmt.Fprintf(&b, "Query: %s\nJSON: %s\n", WorkedExampleQuery, workedExampleOutput)
	b.WriteString("Query: leads calificados de origen valoración creados este año\n")
	b.WriteString(`JSON: {"lead_status_crm": "calificado", "origin": "valuation", "date_range": "this_year"}` + "\n")
	b.WriteString("Query: industriales en Valencia con menos de 50 empleados y email abierto\n")
	b.WriteString(`JSON: {"sector": "industria", "location": "Valencia", "employee_max": 50, "email_status": "opened"}` + "\n")
	return b.String()
}

func joinEnum[E ~string](values []E) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}
