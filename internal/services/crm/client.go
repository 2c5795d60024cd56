package crm

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/kolo/xmlrpc"
	"github.com/sirupsen/logrus"

	"github.com/woodentreasures/playhouse-server/internal/config"
	apperrors "github.com/woodentreasures/playhouse-server/internal/errors"
)

// loginRetryCooldown suppresses login attempts while the server-unavailable
// flag is set, so a down CRM is not hammered by every record in a batch.
const loginRetryCooldown = 30 * time.Second

// Markers of a server-side scripting error in a fault string. A response
// carrying one of these comes from a broken endpoint, not a transient outage.
var scriptErrorMarkers = []string{
	"Traceback",
	"ProgrammingError",
	"Internal Server Error",
	"<html",
}

// Markers of an invalidated or rejected session in a fault string
var sessionErrorMarkers = []string{
	"AccessDenied",
	"Access Denied",
	"AccessError",
	"Session expired",
	"Invalid session",
}

// Markers of a CRM-side validation rejection in a fault string
var validationErrorMarkers = []string{
	"ValidationError",
	"Mandatory",
	"Invalid field",
	"UserError",
}

// Client talks to the external CRM over its legacy XML-RPC API and hides the
// authentication-session lifecycle and endpoint/field negotiation behind a
// stable interface. The session uid lives in memory only and is discarded the
// moment a call reports it invalid.
type Client struct {
	url       string
	database  string
	username  string
	password  string
	commonURL string
	objectURL string
	timeout   time.Duration
	transport http.RoundTripper

	mu                sync.Mutex
	uid               int
	caps              *capabilities
	serverUnavailable bool
	unavailableSince  time.Time
}

// NewClient creates a new CRM client
func NewClient(cfg config.CRMConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		url:       cfg.URL,
		database:  cfg.Database,
		username:  cfg.Username,
		password:  cfg.Password,
		commonURL: fmt.Sprintf("%s/xmlrpc/2/common", cfg.URL),
		objectURL: fmt.Sprintf("%s/xmlrpc/2/object", cfg.URL),
		timeout:   timeout,
		transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout: timeout,
			}).DialContext,
			TLSHandshakeTimeout:   timeout,
			ResponseHeaderTimeout: timeout,
		},
	}
}

// ensureSession returns a valid session uid, logging in when none is cached.
// While the server-unavailable flag is set, calls inside the cooldown window
// fail immediately without touching the network.
func (c *Client) ensureSession() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.uid != 0 {
		return c.uid, nil
	}

	if c.serverUnavailable && time.Since(c.unavailableSince) < loginRetryCooldown {
		return 0, apperrors.NewTransportError("CRM server marked unavailable, skipping call", nil)
	}

	return c.loginLocked()
}

// loginLocked performs the login handshake. Caller must hold c.mu.
func (c *Client) loginLocked() (int, error) {
	rpc, err := xmlrpc.NewClient(c.commonURL, c.transport)
	if err != nil {
		return 0, apperrors.NewTransportError("failed to create XML-RPC client", err)
	}
	defer rpc.Close()

	args := []interface{}{c.database, c.username, c.password, map[string]interface{}{}}
	var uid int
	if err := rpc.Call("authenticate", args, &uid); err != nil {
		c.markUnavailableLocked()
		if fault, ok := faultString(err); ok {
			if containsAny(fault, scriptErrorMarkers) {
				return 0, apperrors.NewAuthenticationError("CRM login endpoint is broken: "+fault, err)
			}
			return 0, apperrors.NewAuthenticationError("CRM login rejected: "+fault, err)
		}
		return 0, apperrors.NewTransportError("CRM login unreachable", err)
	}

	// A zero uid is the legacy way of reporting bad credentials
	if uid == 0 {
		c.markUnavailableLocked()
		return 0, apperrors.NewAuthenticationError("CRM login returned no session identifier", nil)
	}

	c.uid = uid
	c.serverUnavailable = false

	caps, err := c.probeLocked(uid)
	if err != nil {
		logrus.WithError(err).Warn("CRM capability probe failed, using defaults")
		caps = &capabilities{leadNameField: "contact_name", meetingModel: "calendar.event"}
	}
	c.caps = caps

	logrus.WithFields(logrus.Fields{
		"uid":     uid,
		"version": caps.serverVersion,
	}).Info("CRM session established")

	return uid, nil
}

// probeLocked discovers the server's field and model mapping once per login.
// The result is a fixed mapping consumed by every subsequent call.
func (c *Client) probeLocked(uid int) (*capabilities, error) {
	caps := &capabilities{
		leadNameField: "partner_name",
		meetingModel:  "crm.meeting",
	}

	rpc, err := xmlrpc.NewClient(c.commonURL, c.transport)
	if err != nil {
		return nil, err
	}
	var version struct {
		ServerVersion string `xmlrpc:"server_version"`
	}
	verErr := rpc.Call("version", []interface{}{}, &version)
	rpc.Close()
	if verErr == nil {
		caps.serverVersion = version.ServerVersion
	}

	var leadFields map[string]interface{}
	if err := c.rawExecKw(uid, "crm.lead", "fields_get", []interface{}{}, map[string]interface{}{
		"attributes": []string{"type"},
	}, &leadFields); err != nil {
		return nil, err
	}
	if _, ok := leadFields["contact_name"]; ok {
		caps.leadNameField = "contact_name"
	}

	var meetingFields map[string]interface{}
	if err := c.rawExecKw(uid, "calendar.event", "fields_get", []interface{}{}, map[string]interface{}{
		"attributes": []string{"type"},
	}, &meetingFields); err == nil {
		caps.meetingModel = "calendar.event"
	}

	return caps, nil
}

// execKw performs one authenticated object call. Session and availability
// bookkeeping happen here so operations stay linear.
func (c *Client) execKw(model, method string, args []interface{}, kw map[string]interface{}, result interface{}) error {
	uid, err := c.ensureSession()
	if err != nil {
		return err
	}

	if err := c.rawExecKw(uid, model, method, args, kw, result); err != nil {
		if fault, ok := faultString(err); ok {
			if containsAny(fault, sessionErrorMarkers) {
				c.discardSession()
				return apperrors.NewAuthenticationError("CRM session rejected: "+fault, err)
			}
			if containsAny(fault, validationErrorMarkers) {
				return apperrors.New(apperrors.ErrValidation, "CRM rejected operation: "+fault, err)
			}
			if containsAny(fault, scriptErrorMarkers) {
				return apperrors.New(apperrors.ErrRemoteOperation, "CRM endpoint malformed: "+fault, err)
			}
			return apperrors.New(apperrors.ErrRemoteOperation, "CRM operation failed: "+fault, err)
		}
		c.markUnavailable()
		return apperrors.NewTransportError(fmt.Sprintf("CRM call %s.%s unreachable", model, method), err)
	}
	return nil
}

// rawExecKw issues execute_kw without any session bookkeeping
func (c *Client) rawExecKw(uid int, model, method string, args []interface{}, kw map[string]interface{}, result interface{}) error {
	rpc, err := xmlrpc.NewClient(c.objectURL, c.transport)
	if err != nil {
		return err
	}
	defer rpc.Close()

	callArgs := []interface{}{c.database, uid, c.password, model, method, args}
	if kw != nil {
		callArgs = append(callArgs, kw)
	}
	return rpc.Call("execute_kw", callArgs, result)
}

// leadNameFieldName returns the probed lead field mapping
func (c *Client) leadNameFieldName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.caps == nil {
		return "contact_name"
	}
	return c.caps.leadNameField
}

// meetingModelName returns the probed meeting model mapping
func (c *Client) meetingModelName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.caps == nil {
		return "calendar.event"
	}
	return c.caps.meetingModel
}

func (c *Client) discardSession() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.uid = 0
	c.caps = nil
}

func (c *Client) markUnavailable() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.markUnavailableLocked()
}

func (c *Client) markUnavailableLocked() {
	c.serverUnavailable = true
	c.unavailableSince = time.Now()
	c.uid = 0
}

// Unavailable reports whether the client currently short-circuits calls
func (c *Client) Unavailable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.serverUnavailable
}

// resultFromError translates a classified call error into an operation Result
func resultFromError(err error) Result {
	appErr, ok := err.(*apperrors.AppError)
	if !ok {
		return failure(StatusMalformed, err.Error())
	}
	switch appErr.Type {
	case apperrors.ErrAuthentication:
		return failure(StatusAuth, appErr.Message)
	case apperrors.ErrTransport:
		return failure(StatusTransport, appErr.Message)
	case apperrors.ErrValidation:
		return failure(StatusValidation, appErr.Message)
	case apperrors.ErrRemoteOperation:
		return failure(StatusRemote, appErr.Message)
	default:
		return failure(StatusMalformed, appErr.Message)
	}
}

// faultString extracts the fault text from an XML-RPC fault response
func faultString(err error) (string, bool) {
	var fe xmlrpc.FaultError
	if errors.As(err, &fe) {
		return fe.String, true
	}
	var fep *xmlrpc.FaultError
	if errors.As(err, &fep) {
		return fep.String, true
	}
	return "", false
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
