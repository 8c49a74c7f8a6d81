package contact

// Status is the coarse lead status.
type Status string

// Lead statuses.
const (
	StatusNew       Status = "new"
	StatusContacted Status = "contacted"
	StatusQualified Status = "qualified"
	StatusLost      Status = "lost"
	StatusWon       Status = "won"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusContacted, StatusQualified, StatusLost, StatusWon:
		return true
	}
	return false
}

// LeadStatus is the CRM pipeline stage.
type LeadStatus string

// Pipeline stages, in funnel order.
const (
	LeadNuevo            LeadStatus = "nuevo"
	LeadContactando      LeadStatus = "contactando"
	LeadCalificado       LeadStatus = "calificado"
	LeadPropuestaEnviada LeadStatus = "propuesta_enviada"
	LeadNegociacion      LeadStatus = "negociacion"
	LeadMandatoFirmado   LeadStatus = "mandato_firmado"
	LeadEnEspera         LeadStatus = "en_espera"
	LeadFase0Activo      LeadStatus = "fase0_activo"
	LeadGanado           LeadStatus = "ganado"
	LeadPerdido          LeadStatus = "perdido"
	LeadArchivado        LeadStatus = "archivado"
)

// LeadStatuses lists every pipeline stage.
var LeadStatuses = []LeadStatus{
	LeadNuevo, LeadContactando, LeadCalificado, LeadPropuestaEnviada, LeadNegociacion,
	LeadMandatoFirmado, LeadEnEspera, LeadFase0Activo, LeadGanado, LeadPerdido, LeadArchivado,
}

// Valid reports whether s is a known pipeline stage.
func (s LeadStatus) Valid() bool {
	for _, v := range LeadStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Origin is the lead acquisition channel.
type Origin string

// Lead origins.
const (
	OriginValuation          Origin = "valuation"
	OriginContact            Origin = "contact"
	OriginCollaborator       Origin = "collaborator"
	OriginAcquisition        Origin = "acquisition"
	OriginCompanyAcquisition Origin = "company_acquisition"
)

// Valid reports whether o is a known origin.
func (o Origin) Valid() bool {
	switch o {
	case OriginValuation, OriginContact, OriginCollaborator, OriginAcquisition, OriginCompanyAcquisition:
		return true
	}
	return false
}

// EmailStatus is the outreach state of the contact's email.
type EmailStatus string

// Email statuses.
const (
	EmailOpened       EmailStatus = "opened"
	EmailSent         EmailStatus = "sent"
	EmailNotContacted EmailStatus = "not_contacted"
)

// Valid reports whether s is a known email status.
func (s EmailStatus) Valid() bool {
	switch s {
	case EmailOpened, EmailSent, EmailNotContacted:
		return true
	}
	return false
}
