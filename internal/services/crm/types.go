package crm

// Status discriminates the outcome of a CRM operation. Expected CRM-side
// rejections are reported through a Result, never as a panic, so the sync
// engine can decide what to do with them.
type Status string

const (
	StatusSuccess    Status = "success"
	StatusValidation Status = "validation_error"
	StatusAuth       Status = "auth_error"
	StatusTransport  Status = "transport_error"
	StatusRemote     Status = "remote_error"
	StatusMalformed  Status = "malformed_response"
)

// Result is the outcome of one logical CRM operation. The retry unit is the
// whole operation: a mid-sequence failure discards any partial remote state
// from this attempt and the next sync attempt starts over.
type Result struct {
	Status    Status
	LeadID    int64
	MeetingID int64
	Message   string
}

// OK reports whether the operation succeeded
func (r Result) OK() bool {
	return r.Status == StatusSuccess
}

func failure(status Status, message string) Result {
	return Result{Status: status, Message: message}
}

// ContactData is the canonical payload shape for a contact lead. Callers
// normalize snake/camel-case variants before this boundary; the client
// accepts exactly this shape.
type ContactData struct {
	ExternalRef string
	Name        string
	Email       string
	Phone       string
	Message     string
}

// ConsultationData is the canonical payload shape for a consultation lead
type ConsultationData struct {
	ExternalRef   string
	Name          string
	Email         string
	Phone         string
	Message       string
	PreferredDate string // YYYY-MM-DD
	PreferredTime string // HH:MM
}

// EndpointStatus describes one probed CRM endpoint in a connection report
type EndpointStatus struct {
	Name       string `json:"name"`
	Status     int    `json:"status"`
	StatusText string `json:"statusText"`
	Error      string `json:"error,omitempty"`
}

// ConnectionReport is the result of TestConnection
type ConnectionReport struct {
	Success   bool             `json:"success"`
	Message   string           `json:"message"`
	Endpoints []EndpointStatus `json:"endpoints"`
}

// capabilities is the fixed endpoint/field mapping discovered once per login.
// Legacy servers expose the lead contact name and the meeting model under
// different names depending on version; probing per request is never done.
type capabilities struct {
	serverVersion string
	leadNameField string // "contact_name" on modern servers, "partner_name" on legacy
	meetingModel  string // "calendar.event" on modern servers, "crm.meeting" on legacy
}
