package controller

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/edgecore/ztedge/edgeerr"
	"github.com/edgecore/ztedge/envelope"
)

// SDKInfo, EnvInfo describe the login request's identifying metadata; the
// host application supplies these (§1 names "host build metadata" as an
// external collaborator).
type SDKInfo struct {
	Type    string `json:"type"`
	Version string `json:"version"`
	Branch  string `json:"branch,omitempty"`
	Revision string `json:"revision,omitempty"`
}

type EnvInfo struct {
	Arch string `json:"arch"`
	OS   string `json:"os"`
}

// LoginRequest is the POST /authenticate?method=cert body.
type LoginRequest struct {
	SDKInfo     SDKInfo  `json:"sdkInfo"`
	EnvInfo     EnvInfo  `json:"envInfo"`
	ConfigTypes []string `json:"configTypes,omitempty"`
}

// AuthQuery describes one outstanding secondary-factor challenge the
// controller demands before a session is usable; its presence on a login
// response is how the controller signals "partially authenticated, MFA
// required" (§4.E step 1).
type AuthQuery struct {
	Provider      string `json:"provider"`
	HTTPMethod    string `json:"httpMethod,omitempty"`
	HTTPURL       string `json:"httpUrl,omitempty"`
	MinCodeLength int    `json:"minCodeLength,omitempty"`
	MaxCodeLength int    `json:"maxCodeLength,omitempty"`
}

// LoginResult is the decoded successful login payload. A non-empty
// AuthQueries means the returned token authenticates the identity but the
// session remains partially authenticated until an mfa-login (or other
// matching AuthQuery challenge) completes.
type LoginResult struct {
	ID          string      `json:"id"`
	Token       string      `json:"token"`
	AuthQueries []AuthQuery `json:"authQueries,omitempty"`
}

// Login performs POST /authenticate?method=cert and, on success, stores
// the returned token so it is injected as zt-session on every subsequent
// request. The cached session state is set to partially authenticated
// when the response carries AuthQueries, fully authenticated otherwise.
func (c *Controller) Login(ctx context.Context, req LoginRequest) (LoginResult, *edgeerr.Error) {
	body, _ := json.Marshal(req)
	result := c.do(ctx, http.MethodPost, c.url("/authenticate?method=cert"), false, body)
	if result.Err != nil {
		return LoginResult{}, result.Err
	}
	lr, _, err := envelope.Decode[LoginResult](result.Body, result.Status, c.logger)
	if err != nil {
		return LoginResult{}, err
	}
	state := StateFullyAuthenticated
	if len(lr.AuthQueries) > 0 {
		state = StatePartiallyAuthenticated
	}
	c.mu.Lock()
	c.sessionToken = lr.Token
	c.cachedSessionID = lr.ID
	c.cachedSessionState = state
	c.mu.Unlock()
	return lr, nil
}

// Logout performs DELETE /current-api-session and clears the token
// regardless of the result (§4.C).
func (c *Controller) Logout(ctx context.Context) *edgeerr.Error {
	if err := c.requireSession(); err != nil {
		return err
	}
	result := c.do(ctx, http.MethodDelete, c.url("/current-api-session"), false, nil)
	c.mu.Lock()
	c.sessionToken = ""
	c.cachedSessionID = ""
	c.cachedSessionState = ""
	c.mu.Unlock()
	return result.Err
}

// Identity is the decoded current-identity payload.
type Identity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CurrentIdentity performs GET /current-identity.
func (c *Controller) CurrentIdentity(ctx context.Context) (Identity, *edgeerr.Error) {
	if err := c.requireSession(); err != nil {
		return Identity{}, err
	}
	result := c.do(ctx, http.MethodGet, c.url("/current-identity"), false, nil)
	if result.Err != nil {
		return Identity{}, result.Err
	}
	id, _, err := envelope.Decode[Identity](result.Body, result.Status, c.logger)
	return id, err
}

// APISession is the decoded current-api-session payload.
type APISession struct {
	ID    string `json:"id"`
	Token string `json:"token"`
	State string `json:"state"`
}

// CurrentAPISession performs GET /current-api-session.
func (c *Controller) CurrentAPISession(ctx context.Context) (APISession, *edgeerr.Error) {
	if err := c.requireSession(); err != nil {
		return APISession{}, err
	}
	result := c.do(ctx, http.MethodGet, c.url("/current-api-session"), false, nil)
	if result.Err != nil {
		return APISession{}, result.Err
	}
	s, _, err := envelope.Decode[APISession](result.Body, result.Status, c.logger)
	if err == nil {
		c.mu.Lock()
		c.cachedSessionID = s.ID
		c.cachedSessionState = s.State
		c.mu.Unlock()
	}
	return s, err
}

// API-session states as reported by the controller and cached by Login,
// MFALogin and CurrentAPISession.
const (
	StateFullyAuthenticated     = "FULLY_AUTHENTICATED"
	StatePartiallyAuthenticated = "PARTIALLY_AUTHENTICATED"
)

// FullyAuthenticated reports whether the API session is usable as the
// posture engine expects (§4.E step 1: "no API session or the session is
// only partially authenticated, skip").
func (s APISession) FullyAuthenticated() bool {
	return s.ID != "" && s.State == StateFullyAuthenticated
}

// SessionSnapshot is the posture engine's view of session identity,
// refreshed by Login and CurrentAPISession — never by a direct network
// call from the engine itself, so ticking never issues I/O on its own
// account (§4.E step 1).
type SessionSnapshot struct {
	ID                 string
	FullyAuthenticated bool
}

// Session returns the last-known session snapshot.
func (c *Controller) Session() SessionSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return SessionSnapshot{
		ID:                 c.cachedSessionID,
		FullyAuthenticated: c.cachedSessionID != "" && c.cachedSessionState == StateFullyAuthenticated,
	}
}

// ServicesUpdate is the decoded current-api-session/service-updates
// payload, used to detect whether the local service cache is stale.
type ServicesUpdate struct {
	LastChangeAt string `json:"lastChangeAt"`
}

// ServicesUpdate performs GET /current-api-session/service-updates.
func (c *Controller) ServicesUpdate(ctx context.Context) (ServicesUpdate, *edgeerr.Error) {
	if err := c.requireSession(); err != nil {
		return ServicesUpdate{}, err
	}
	result := c.do(ctx, http.MethodGet, c.url("/current-api-session/service-updates"), false, nil)
	if result.Err != nil {
		return ServicesUpdate{}, result.Err
	}
	u, _, err := envelope.Decode[ServicesUpdate](result.Body, result.Status, c.logger)
	return u, err
}
