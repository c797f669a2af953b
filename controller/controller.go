// Package controller implements the typed operations table against the
// zero-trust controller: version, login/logout, identity, services,
// sessions, MFA, enrollment, posture submission, and certificate
// extension — session-token injection, pagination, and controller
// rebind/restart tracking.
package controller

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/edgecore/ztedge/edgeerr"
	"github.com/edgecore/ztedge/envelope"
	"github.com/edgecore/ztedge/internal/reqid"
	"github.com/edgecore/ztedge/transaction"
)

// DefaultPageSize is used when Config.PageSize is zero.
const DefaultPageSize = 25

// Config configures a Controller.
type Config struct {
	BaseURL      string
	HTTPClient   *http.Client
	PageSize     int
	Logger       *zap.Logger
	RequestIDPrefix string

	// RedirectObserver, if set, is notified once after the controller
	// adopts a new base URL via a ziti-ctrl-address rebind.
	RedirectObserver func(newURL string)
}

// Controller owns the HTTP client, session token, base URL, and
// controller-instance id (§3 "Ownership"). Mutable fields are guarded by
// mu; callers embedding this client from a single scheduler goroutine (as
// the scheduler package does for the posture engine) never contend on it.
type Controller struct {
	cfg     Config
	client  *http.Client
	logger  *zap.Logger
	latency *latencyTracker

	mu                 sync.Mutex
	baseURL            string
	pageSize           int
	sessionToken       string
	version            string
	pathPrefix         string
	instanceID         string
	noBulk             bool
	cachedSessionID    string
	cachedSessionState string

	closeOnce sync.Once
	cancel    context.CancelFunc
	ctx       context.Context
}

// New constructs a Controller. The HTTP client is expected to already be
// configured for mTLS (see the transport package); Controller itself does
// not build TLS material.
func New(cfg Config) (*Controller, error) {
	if cfg.BaseURL == "" {
		return nil, edgeerr.New(edgeerr.InvalidConfig, "base URL required")
	}
	if cfg.HTTPClient == nil {
		return nil, edgeerr.New(edgeerr.InvalidConfig, "http client required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		cfg:      cfg,
		client:   cfg.HTTPClient,
		logger:   logger,
		latency:  newLatencyTracker(),
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
		pageSize: pageSize,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// CancelAll aborts every outstanding HTTP context; each in-flight call
// returns DISABLED (§5 "Cancellation").
func (c *Controller) CancelAll() {
	c.cancel()
}

// Close performs CancelAll, clears cached identity/URL/version state, logs a
// per-operation latency/success-rate summary, and tears down the HTTP
// client's idle connections.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		c.CancelAll()
		c.mu.Lock()
		c.sessionToken = ""
		c.version = ""
		c.instanceID = ""
		c.mu.Unlock()
		c.latency.logSummary(c.logger)
		c.client.CloseIdleConnections()
	})
}

// hasSession reports whether a session token is currently set.
func (c *Controller) hasSession() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionToken != ""
}

func (c *Controller) currentBase() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.baseURL
}

func (c *Controller) currentToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionToken
}

func (c *Controller) url(path string) string {
	return c.currentBase() + c.pathPrefix + path
}

// requireSession synchronously rejects non-pre-session operations with
// AUTH_FAILED when no token is set, issuing no network I/O (§3 invariant,
// grounded on ziti_ctrl.c's verify_api_session).
func (c *Controller) requireSession() *edgeerr.Error {
	if !c.hasSession() {
		return edgeerr.New(edgeerr.AuthFailed, "no api session token set for controller")
	}
	return nil
}

// callContext merges the caller-supplied ctx with the controller-wide
// cancellation context so that CancelAll/Close abort in-flight calls
// exactly as before, while a caller's own deadline or cancellation (e.g.
// cmd/ztedge-demo's context.WithTimeout around Login/Version) now also
// takes effect. The returned cancel must be deferred by the caller.
func (c *Controller) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	merged, cancel := context.WithCancel(ctx)
	if c.ctx.Err() != nil {
		// AfterFunc on an already-done context runs cancel in a separate
		// goroutine; cancel here so the call cannot start before it does.
		cancel()
	}
	stop := context.AfterFunc(c.ctx, cancel)
	return merged, func() {
		stop()
		cancel()
	}
}

// do executes one non-paged transaction and applies rebind/instance-id
// bookkeeping after the terminal result, per §4.C's ordering rule.
func (c *Controller) do(ctx context.Context, method, path string, plainText bool, body []byte) transaction.Result {
	ctx, cancel := c.callContext(ctx)
	defer cancel()
	txn := transaction.New(method, path, plainText, c.logger)
	var result transaction.Result
	if body != nil {
		result = txn.Do(ctx, c.client, c.currentBase(), bytes.NewReader(body), c.attachHeaders)
	} else {
		result = txn.Do(ctx, c.client, c.currentBase(), nil, c.attachHeaders)
	}
	c.latency.record(path, result.Elapsed, result.Err == nil)
	c.applyPostCallbackState(result)
	return result
}

// doHeaderFn is do() with an additional header-setting callback, used by
// the handful of operations that need a header beyond zt-session/
// X-Request-Id (e.g. MFA delete's mfa-validation-code).
func (c *Controller) doHeaderFn(ctx context.Context, method, path string, plainText bool, body []byte, extra func(*http.Request)) transaction.Result {
	ctx, cancel := c.callContext(ctx)
	defer cancel()
	txn := transaction.New(method, path, plainText, c.logger)
	setHeaders := func(req *http.Request) {
		c.attachHeaders(req)
		extra(req)
	}
	var result transaction.Result
	if body != nil {
		result = txn.Do(ctx, c.client, c.currentBase(), bytes.NewReader(body), setHeaders)
	} else {
		result = txn.Do(ctx, c.client, c.currentBase(), nil, setHeaders)
	}
	c.latency.record(path, result.Elapsed, result.Err == nil)
	c.applyPostCallbackState(result)
	return result
}

// attachHeaders sets zt-session (if present) and a log-correlation
// request id on every outbound request.
func (c *Controller) attachHeaders(req *http.Request) {
	if tok := c.currentToken(); tok != "" {
		req.Header.Set(transaction.HeaderSession, tok)
	}
	id := reqid.New()
	if c.cfg.RequestIDPrefix != "" {
		id = c.cfg.RequestIDPrefix + "-" + id
	}
	req.Header.Set(transaction.HeaderRequestID, id)
}

// applyPostCallbackState adopts a rebind address and tracks the
// controller-instance id *after* the terminal callback's data has already
// been produced, matching §4.C "Redirect vs rebind precedence".
func (c *Controller) applyPostCallbackState(result transaction.Result) {
	if result.NewAddress != "" {
		c.mu.Lock()
		old := c.baseURL
		c.baseURL = strings.TrimSuffix(result.NewAddress, "/")
		changed := old != c.baseURL
		c.mu.Unlock()
		if changed {
			c.logger.Info("controller rebind", zap.String("old", old), zap.String("new", c.baseURL))
			if c.cfg.RedirectObserver != nil {
				c.cfg.RedirectObserver(c.baseURL)
			}
		}
	}
	if result.InstanceID != "" {
		c.mu.Lock()
		changed := c.instanceID != "" && c.instanceID != result.InstanceID
		c.instanceID = result.InstanceID
		c.mu.Unlock()
		if changed {
			c.logger.Info("controller instance changed; posture resubmission will be forced")
		}
	}
}

// InstanceID returns the last-observed ziti-instance-id value, consulted
// by the posture engine on each tick (§4.E step 2).
func (c *Controller) InstanceID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.instanceID
}

// NoBulkPostureAPI reports whether the bulk posture endpoint has been
// observed to be unavailable (HTTP 404) on this Controller. The decision
// is sticky for the Controller's lifetime (§9 Open Question 1).
func (c *Controller) NoBulkPostureAPI() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.noBulk
}

// SetNoBulkPostureAPI permanently disables bulk posture submission on this
// Controller.
func (c *Controller) SetNoBulkPostureAPI() {
	c.mu.Lock()
	c.noBulk = true
	c.mu.Unlock()
}

// Version fetches GET /version (pre-session) and caches the edge v1 API
// path prefix.
func (c *Controller) Version(ctx context.Context) (VersionInfo, *edgeerr.Error) {
	result := c.do(ctx, http.MethodGet, c.currentBase()+"/version", false, nil)
	if result.Err != nil {
		return VersionInfo{}, result.Err
	}
	info, _, err := envelope.Decode[VersionInfo](result.Body, result.Status, c.logger)
	if err != nil {
		return VersionInfo{}, err
	}
	c.mu.Lock()
	c.version = info.Version
	if p, ok := info.APIVersions.Edge["v1"]; ok {
		c.pathPrefix = p.Path
	}
	c.mu.Unlock()
	return info, nil
}

// VersionInfo is the decoded /version payload.
type VersionInfo struct {
	Version     string `json:"version"`
	APIVersions struct {
		Edge map[string]struct {
			Path string `json:"path"`
		} `json:"edge"`
	} `json:"apiVersions"`
}

