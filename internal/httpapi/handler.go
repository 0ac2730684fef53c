// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/holomush/realmgate/internal/observability"
	"github.com/holomush/realmgate/internal/realm"
	"github.com/holomush/realmgate/pkg/errutil"
)

// Routes.
const (
	RouteAuthenticate = "/v1/authenticate"
	RouteAuthorize    = "/v1/authorize"
)

// CodeBadRequest is returned for bodies that cannot be decoded.
const CodeBadRequest = "HTTP_BAD_REQUEST"

const maxBodyBytes = 64 << 10

// Authenticator is the authentication entry point served by the API.
type Authenticator interface {
	Authenticate(ctx context.Context, realmAsked, authid string, details realm.Details) (realm.Grant, error)
}

// Authorizer is the authorization entry point served by the API.
type Authorizer interface {
	AuthorizeName(ctx context.Context, session realm.Session, resource, action string) (realm.Decision, error)
}

// AuthenticateRequest is the body of POST /v1/authenticate.
type AuthenticateRequest struct {
	Realm   string         `json:"realm"`
	AuthID  string         `json:"authid"`
	Details RequestDetails `json:"details"`
}

// RequestDetails carries the HELLO details. A missing ticket is distinct from an empty one.
// Routers forward the whole details dict, so keys other than ticket are ignored.
type RequestDetails struct {
	Ticket *string `json:"ticket,omitempty"`
}

// UnmarshalJSON decodes d without the envelope's unknown-field check.
func (d *RequestDetails) UnmarshalJSON(data []byte) error {
	type plain RequestDetails
	return json.Unmarshal(data, (*plain)(d))
}

// GrantResponse is the success body of POST /v1/authenticate.
type GrantResponse struct {
	Realm string         `json:"realm"`
	Role  string         `json:"role"`
	Extra map[string]any `json:"extra,omitempty"`
}

// AuthorizeRequest is the body of POST /v1/authorize.
type AuthorizeRequest struct {
	Session SessionRef `json:"session"`
	URI     string     `json:"uri"`
	Action  string     `json:"action"`
}

// SessionRef identifies the session being authorized. Routers send the full
// session dict; only authid and authrole are read.
type SessionRef struct {
	AuthID   string `json:"authid"`
	AuthRole string `json:"authrole"`
}

// UnmarshalJSON decodes s without the envelope's unknown-field check.
func (s *SessionRef) UnmarshalJSON(data []byte) error {
	type plain SessionRef
	return json.Unmarshal(data, (*plain)(s))
}

// DecisionResponse is the success body of POST /v1/authorize.
type DecisionResponse struct {
	Allow    bool `json:"allow"`
	Disclose bool `json:"disclose"`
}

// ErrorResponse is the body of every non-2xx response. Error is a WAMP error URI.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Option configures the handler.
type Option func(*handler)

// WithMetrics records request counts and latencies.
func WithMetrics(m *observability.Metrics) Option {
	return func(h *handler) {
		h.metrics = m
	}
}

// WithLogger sets the logger for internal failures.
func WithLogger(l *slog.Logger) Option {
	return func(h *handler) {
		h.logger = l
	}
}

type handler struct {
	authn   Authenticator
	authz   Authorizer
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewHandler returns the API routes.
func NewHandler(authn Authenticator, authz Authorizer, opts ...Option) http.Handler {
	h := &handler{authn: authn, authz: authz, logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}

	mux := http.NewServeMux()
	mux.Handle("POST "+RouteAuthenticate, h.observe(RouteAuthenticate, h.handleAuthenticate))
	mux.Handle("POST "+RouteAuthorize, h.observe(RouteAuthorize, h.handleAuthorize))
	return mux
}

func (h *handler) handleAuthenticate(w http.ResponseWriter, r *http.Request) {
	var req AuthenticateRequest
	if !h.decode(w, r, &req) {
		return
	}

	details := realm.Details{Ticket: req.Details.Ticket}
	grant, err := h.authn.Authenticate(r.Context(), req.Realm, req.AuthID, details)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, GrantResponse{Realm: grant.Realm, Role: grant.Role, Extra: grant.Extra})
}

func (h *handler) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	var req AuthorizeRequest
	if !h.decode(w, r, &req) {
		return
	}

	session := realm.Session{AuthID: req.Session.AuthID, AuthRole: req.Session.AuthRole}
	d, err := h.authz.AuthorizeName(r.Context(), session, req.URI, req.Action)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, DecisionResponse{Allow: d.Allow, Disclose: d.Disclose})
}

func (h *handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		status := http.StatusBadRequest
		if errBodyTooLarge(err) {
			status = http.StatusRequestEntityTooLarge
		}
		writeJSON(w, status, ErrorResponse{
			Error:   realm.URIInvalidArgument,
			Code:    CodeBadRequest,
			Message: "invalid request body: " + err.Error(),
		})
		return false
	}
	return true
}

// writeError maps a realm error to its status. Only realm-produced messages
// are echoed; internal failures are logged and answered generically.
func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := realm.ErrorKind(err)
	resp := ErrorResponse{Error: realm.ErrorURI(err), Code: errutil.Code(err), Message: err.Error()}

	var status int
	switch kind {
	case realm.KindMissingCredential, realm.KindInvalidCredential:
		status = http.StatusUnauthorized
	case realm.KindInvalidRealm:
		status = http.StatusForbidden
	case realm.KindUnsupportedAction:
		status = http.StatusBadRequest
	default:
		status = http.StatusInternalServerError
		errutil.LogErrorContext(r.Context(), h.logger, "decision failed", err)
		resp.Message = "internal error"
		if resp.Code == "" {
			resp.Code = "INTERNAL"
		}
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // client may disconnect; nothing useful to do
	json.NewEncoder(w).Encode(v)
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (h *handler) observe(route string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		h.metrics.ObserveRequest(route, rec.status, time.Since(start))
	})
}

// errBodyTooLarge reports whether err came from MaxBytesReader.
func errBodyTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}
