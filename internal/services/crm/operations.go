package crm

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kolo/xmlrpc"
	"github.com/sirupsen/logrus"

	"github.com/woodentreasures/playhouse-server/internal/models"
)

// CreateContact pushes a contact lead to the CRM: find-or-create the partner
// record, then create the lead linked to it. A session failure anywhere in the
// sequence fails the whole operation; the next sync attempt starts over.
func (c *Client) CreateContact(data ContactData) Result {
	partnerID, err := c.findOrCreatePartner(data.Name, data.Email, data.Phone)
	if err != nil {
		return resultFromError(err)
	}

	leadID, err := c.createLead(partnerID, data.Name, data.Email, data.Phone, data.Message, data.ExternalRef, "Website contact")
	if err != nil {
		return resultFromError(err)
	}

	logrus.WithFields(logrus.Fields{
		"lead_id": leadID,
		"ref":     data.ExternalRef,
	}).Info("CRM contact lead created")

	return Result{Status: StatusSuccess, LeadID: leadID}
}

// CreateConsultationMeeting pushes a consultation lead and, when the visitor
// picked a slot, a meeting record linked to it.
func (c *Client) CreateConsultationMeeting(data ConsultationData) Result {
	partnerID, err := c.findOrCreatePartner(data.Name, data.Email, data.Phone)
	if err != nil {
		return resultFromError(err)
	}

	leadID, err := c.createLead(partnerID, data.Name, data.Email, data.Phone, data.Message, data.ExternalRef, "Design consultation")
	if err != nil {
		return resultFromError(err)
	}

	result := Result{Status: StatusSuccess, LeadID: leadID}

	if data.PreferredDate != "" && data.PreferredTime != "" {
		meetingID, err := c.createMeeting(partnerID, leadID, data)
		if err != nil {
			return resultFromError(err)
		}
		result.MeetingID = meetingID
	}

	logrus.WithFields(logrus.Fields{
		"lead_id":    result.LeadID,
		"meeting_id": result.MeetingID,
		"ref":        data.ExternalRef,
	}).Info("CRM consultation created")

	return result
}

// findOrCreatePartner locates the partner by email or creates a new one
func (c *Client) findOrCreatePartner(name, email, phone string) (int64, error) {
	domain := []interface{}{
		[]interface{}{"email", "=", email},
	}

	var ids []int64
	if err := c.execKw("res.partner", "search", []interface{}{domain}, map[string]interface{}{
		"limit": 1,
	}, &ids); err != nil {
		return 0, err
	}
	if len(ids) > 0 {
		return ids[0], nil
	}

	var partnerID int64
	values := map[string]interface{}{
		"name":  name,
		"email": email,
		"phone": phone,
	}
	if err := c.execKw("res.partner", "create", []interface{}{values}, nil, &partnerID); err != nil {
		return 0, err
	}
	return partnerID, nil
}

// createLead creates the crm.lead row using the probed field mapping
func (c *Client) createLead(partnerID int64, name, email, phone, message, externalRef, kind string) (int64, error) {
	values := map[string]interface{}{
		"name":                fmt.Sprintf("%s: %s", kind, name),
		c.leadNameFieldName(): name,
		"partner_id":          partnerID,
		"email_from":          email,
		"phone":               phone,
		"description":         message,
		"ref":                 externalRef,
	}

	var leadID int64
	if err := c.execKw("crm.lead", "create", []interface{}{values}, nil, &leadID); err != nil {
		return 0, err
	}
	return leadID, nil
}

// createMeeting creates a one-hour meeting at the requested slot
func (c *Client) createMeeting(partnerID, leadID int64, data ConsultationData) (int64, error) {
	start, err := time.Parse("2006-01-02 15:04", data.PreferredDate+" "+data.PreferredTime)
	if err != nil {
		// The slot came through the form layer malformed; the lead itself is
		// already created, so reject the whole operation for a clean retry.
		return 0, fmt.Errorf("invalid preferred slot %q %q: %w", data.PreferredDate, data.PreferredTime, err)
	}
	stop := start.Add(time.Hour)

	values := map[string]interface{}{
		"name":           fmt.Sprintf("Consultation: %s", data.Name),
		"start":          start.Format("2006-01-02 15:04:05"),
		"stop":           stop.Format("2006-01-02 15:04:05"),
		"partner_ids":    []interface{}{[]interface{}{4, partnerID}},
		"opportunity_id": leadID,
		"description":    data.Message,
	}

	var meetingID int64
	if err := c.execKw(c.meetingModelName(), "create", []interface{}{values}, nil, &meetingID); err != nil {
		return 0, err
	}
	return meetingID, nil
}

// FindPartnerByEmail returns the partner record for an email address, mainly
// for diagnostics. Empty CRM text fields come back as boolean false, which
// CRMString absorbs.
func (c *Client) FindPartnerByEmail(email string) (*PartnerInfo, error) {
	domain := []interface{}{
		[]interface{}{"email", "=", email},
	}

	var raw []map[string]interface{}
	if err := c.execKw("res.partner", "search_read", []interface{}{domain}, map[string]interface{}{
		"fields": []string{"name", "email", "phone"},
		"limit":  1,
	}, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}

	// JSON round-trip so CRMString can absorb the boolean-false empty fields
	encoded, err := json.Marshal(raw[0])
	if err != nil {
		return nil, err
	}
	var record struct {
		ID    int64            `json:"id"`
		Name  models.CRMString `json:"name"`
		Email models.CRMString `json:"email"`
		Phone models.CRMString `json:"phone"`
	}
	if err := json.Unmarshal(encoded, &record); err != nil {
		return nil, err
	}
	return &PartnerInfo{
		ID:    record.ID,
		Name:  record.Name.String(),
		Email: record.Email.String(),
		Phone: record.Phone.String(),
	}, nil
}

// PartnerInfo is a minimal view of a CRM partner record
type PartnerInfo struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// TestConnection probes the CRM endpoints and login without mutating anything.
// It always returns within the configured timeout.
func (c *Client) TestConnection() ConnectionReport {
	report := ConnectionReport{Success: true}

	// Version call needs no session
	var version struct {
		ServerVersion string `xmlrpc:"server_version"`
	}
	if err := c.callCommon("version", []interface{}{}, &version); err != nil {
		report.Endpoints = append(report.Endpoints, EndpointStatus{
			Name: "common", Status: 0, StatusText: "unreachable", Error: err.Error(),
		})
		report.Success = false
		report.Message = "CRM server unreachable"
		return report
	}
	report.Endpoints = append(report.Endpoints, EndpointStatus{
		Name: "common", Status: 200, StatusText: "OK (server " + version.ServerVersion + ")",
	})

	// The version probe just proved the server reachable, so drop any
	// unavailable cooldown and force a fresh login.
	c.discardSession()
	c.mu.Lock()
	c.serverUnavailable = false
	c.mu.Unlock()
	uid, err := c.ensureSession()
	if err != nil {
		report.Endpoints = append(report.Endpoints, EndpointStatus{
			Name: "login", Status: 401, StatusText: "authentication failed", Error: err.Error(),
		})
		report.Success = false
		report.Message = "CRM login failed"
		return report
	}
	report.Endpoints = append(report.Endpoints, EndpointStatus{
		Name: "login", Status: 200, StatusText: fmt.Sprintf("OK (uid %d)", uid),
	})

	var allowed bool
	if err := c.execKw("crm.lead", "check_access_rights", []interface{}{"create"}, map[string]interface{}{
		"raise_exception": false,
	}, &allowed); err != nil {
		report.Endpoints = append(report.Endpoints, EndpointStatus{
			Name: "object", Status: 500, StatusText: "object endpoint failed", Error: err.Error(),
		})
		report.Success = false
		report.Message = "CRM object endpoint failed"
		return report
	}
	statusText := "OK"
	if !allowed {
		statusText = "OK (no create permission on leads)"
		report.Success = false
		report.Message = "CRM user may not create leads"
	}
	report.Endpoints = append(report.Endpoints, EndpointStatus{
		Name: "object", Status: 200, StatusText: statusText,
	})

	if report.Message == "" {
		report.Message = "CRM connection healthy"
	}
	return report
}

// callCommon issues an unauthenticated call against the common endpoint
func (c *Client) callCommon(method string, args []interface{}, result interface{}) error {
	rpc, err := xmlrpc.NewClient(c.commonURL, c.transport)
	if err != nil {
		return err
	}
	defer rpc.Close()
	return rpc.Call(method, args, result)
}
