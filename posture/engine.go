package posture

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/edgecore/ztedge/posture/probes"
	"github.com/edgecore/ztedge/servicetable"
)

// SessionProvider is the subset of *controller.Controller the engine
// consults to decide must_send (§4.E step 2). This package does not import
// controller directly (that dependency runs the other way); the scheduler
// package supplies a thin adapter over *controller.Controller that
// satisfies this interface.
type SessionProvider interface {
	Session() (id string, fullyAuthenticated bool)
	InstanceID() string
}

// Transport is the subset of *controller.Controller used to dispatch
// posture submissions (§4.E "Transport dispatch"), adapted the same way as
// SessionProvider.
type Transport interface {
	NoBulkPostureAPI() bool
	SetNoBulkPostureAPI()
	PostureResponseBulk(ctx context.Context, body []byte) (BulkResult, error)
	PostureResponse(ctx context.Context, body []byte) (SingleResult, error)

	// RefreshService re-fetches a single service's current catalog entry
	// (posture-query map included), the "force-refresh that service"
	// half of §4.E's post-submission handling.
	RefreshService(ctx context.Context, id string) (CatalogService, error)
	// RefreshCatalog re-fetches the entire service catalog, the "request
	// a general service refresh" half of the same handling.
	RefreshCatalog(ctx context.Context) ([]CatalogService, error)
}

// CatalogService is a service catalog entry as returned by a force-refresh
// or general-refresh call: enough to replace the corresponding
// servicetable.Service outright.
type CatalogService struct {
	ID           string
	Name         string
	PostureQuery map[string]servicetable.PostureQuery
}

// BulkResult/SingleResult are minimal local mirrors of the controller
// package's result types, kept here so this package does not import
// controller. The scheduler package's adapter converts a
// controller.PostureResponseBulkResult/PostureSubmitResult plus
// *edgeerr.Error into these on every call.
type BulkResult struct {
	HTTPStatus int
	Services   []ServiceTimer
}

type SingleResult struct {
	Services []ServiceTimer
}

// ServiceTimer mirrors a posture-response success body's per-service
// timer entry.
type ServiceTimer struct {
	ID               string
	Timeout          int
	TimeoutRemaining int
}

// Overrides lets the host application replace any default probe.
type Overrides struct {
	OS      probes.Probe
	MAC     probes.Probe
	Domain  probes.Probe
	Process probes.Probe // id passed is the absolute process path
}

// Engine implements the posture engine (§4.E): required-probe-set
// computation, the posture-response cache, and bulk/per-item dispatch with
// sticky 404 degradation.
type Engine struct {
	mu sync.Mutex

	session   SessionProvider
	transport Transport
	services  *servicetable.Table
	overrides Overrides
	logger    *zap.Logger
	dispatch  func(ctx context.Context, id string, reply func([]byte, error)) // process probe dispatcher (scheduler-supplied worker submit)

	cache *Cache

	previousSessionID   string
	previousInstanceID  string
	mustSendEveryTime    bool
	refreshCount         int
}

// New constructs an Engine. dispatchProcess is how the engine hands a
// process-probe job to the worker pool (the scheduler package supplies
// this); it must eventually call reply exactly once unless cancelled.
func New(session SessionProvider, transport Transport, services *servicetable.Table, overrides Overrides, dispatchProcess func(ctx context.Context, path string, reply func([]byte, error)), logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		session:           session,
		transport:         transport,
		services:          services,
		overrides:         overrides,
		logger:            logger,
		dispatch:          dispatchProcess,
		cache:             NewCache(),
		mustSendEveryTime: true,
	}
}

// requiredProbe is one entry of the required-probe set: a posture-query id
// the tick must ensure is present, mapped back to a dispatchable probe
// invocation.
type requiredProbe struct {
	id      string
	kind    servicetable.QueryType
	process string // absolute path, for PROCESS/PROCESS_MULTI entries
}

// Tick runs one posture-engine cycle (§4.E "Tick algorithm").
func (e *Engine) Tick(ctx context.Context) {
	e.mu.Lock()

	sessionID, fullyAuthed := e.session.Session()
	if sessionID == "" || !fullyAuthed {
		e.mu.Unlock()
		return
	}

	newSession := sessionID != e.previousSessionID
	instanceID := e.session.InstanceID()
	newInstance := instanceID != e.previousInstanceID
	mustSend := newSession || newInstance || e.mustSendEveryTime
	e.previousSessionID = sessionID
	e.previousInstanceID = instanceID

	required, sendEveryTime := e.buildRequiredSet()
	e.mustSendEveryTime = sendEveryTime

	e.cache.markAllObsolete()
	var toDispatch []requiredProbe
	for _, rp := range required {
		if e.cache.ensureRequired(rp.id) {
			toDispatch = append(toDispatch, rp)
		}
	}
	e.cache.sweepObsolete()
	e.mu.Unlock()

	// A probe may reply synchronously, and its reply takes e.mu itself, so
	// probes are dispatched with the lock released.
	for _, rp := range toDispatch {
		e.dispatchProbe(ctx, rp, mustSend)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.send(ctx)
}

// buildRequiredSet walks every known service's posture-query map (§4.E
// step 3): a single domain/OS/MAC query (last writer wins), plus one
// entry per process path from PROCESS and PROCESS_MULTI checks.
// sendEveryTime starts true and flips false if any required query
// declares NoTimeout.
func (e *Engine) buildRequiredSet() ([]requiredProbe, bool) {
	var osReq, macReq, domainReq *requiredProbe
	processPaths := make(map[string]bool)
	sendEveryTime := true

	e.services.Walk(func(svc *servicetable.Service) {
		for _, q := range svc.PostureQuery {
			if q.Timeout == servicetable.NoTimeout {
				sendEveryTime = false
			}
			switch q.Type {
			case servicetable.QueryOS:
				osReq = &requiredProbe{id: probes.IDOS, kind: servicetable.QueryOS}
			case servicetable.QueryMAC:
				macReq = &requiredProbe{id: probes.IDMAC, kind: servicetable.QueryMAC}
			case servicetable.QueryDomain:
				domainReq = &requiredProbe{id: probes.IDDomain, kind: servicetable.QueryDomain}
			case servicetable.QueryProcess, servicetable.QueryProcessMulti:
				for _, p := range q.Paths {
					processPaths[p] = true
				}
			}
		}
	})

	var required []requiredProbe
	if osReq != nil {
		required = append(required, *osReq)
	}
	if macReq != nil {
		required = append(required, *macReq)
	}
	if domainReq != nil {
		required = append(required, *domainReq)
	}
	for path := range processPaths {
		required = append(required, requiredProbe{id: path, kind: servicetable.QueryProcess, process: path})
	}
	return required, sendEveryTime
}

// dispatchProbe invokes the user override if present, else the default
// probe, delivering the reply back through the cache's collect. When
// mustSend is set (new session, new controller instance, or send-every-time),
// an unchanged body is still marked due to send.
func (e *Engine) dispatchProbe(ctx context.Context, rp requiredProbe, mustSend bool) {
	reply := func(body []byte, err error) {
		e.mu.Lock()
		e.cache.collect(rp.id, body, err, mustSend || e.mustSendEveryTime)
		e.mu.Unlock()
	}

	switch rp.kind {
	case servicetable.QueryOS:
		if e.overrides.OS != nil {
			e.overrides.OS(ctx, rp.id, reply)
		} else {
			probes.OS(ctx, rp.id, reply)
		}
	case servicetable.QueryMAC:
		if e.overrides.MAC != nil {
			e.overrides.MAC(ctx, rp.id, reply)
		} else {
			probes.MAC(ctx, rp.id, reply)
		}
	case servicetable.QueryDomain:
		if e.overrides.Domain != nil {
			e.overrides.Domain(ctx, rp.id, reply)
		} else {
			probes.Domain(ctx, rp.id, reply)
		}
	case servicetable.QueryProcess:
		if e.overrides.Process != nil {
			e.overrides.Process(ctx, rp.process, reply)
		} else if e.dispatch != nil {
			e.dispatch(ctx, rp.process, reply)
		}
	}
}

// EndpointStateChange sends a single /posture-response immediately using
// the ENDPOINT_STATE type, bypassing the cache, when either flag is true
// (§4.E "Trigger").
func (e *Engine) EndpointStateChange(ctx context.Context, woken, unlocked bool) {
	if !woken && !unlocked {
		return
	}
	body := probes.EndpointState(woken, unlocked)
	result, err := e.transport.PostureResponse(ctx, body)
	if err != nil {
		e.logger.Warn("endpoint-state posture submission failed", zap.Error(err))
		return
	}
	e.handleServiceTimers(ctx, result.Services)
}

// send implements §4.E's "Transport dispatch": bulk-first with sticky
// 404 degradation to per-item submission.
func (e *Engine) send(ctx context.Context) {
	due := e.cache.dueToSend()
	if len(due) == 0 {
		return
	}

	if !e.transport.NoBulkPostureAPI() {
		e.sendBulk(ctx, due)
		return
	}
	e.sendIndividually(ctx, due)
}

func (e *Engine) sendBulk(ctx context.Context, due map[string][]byte) {
	ids := make([]string, 0, len(due))
	var items []json.RawMessage
	for id, body := range due {
		ids = append(ids, id)
		items = append(items, json.RawMessage(body))
		e.cache.clearShouldSend(id)
	}
	payload, _ := json.Marshal(items)

	result, err := e.transport.PostureResponseBulk(ctx, payload)
	if err != nil {
		if result.HTTPStatus == 404 {
			e.transport.SetNoBulkPostureAPI()
			e.sendIndividually(ctx, due)
			return
		}
		e.mustSendEveryTime = true
		e.cache.markAllDueErrored(ids)
		return
	}
	for _, id := range ids {
		e.cache.markErrored(id, false)
	}
	e.handleServiceTimers(ctx, result.Services)
}

func (e *Engine) sendIndividually(ctx context.Context, due map[string][]byte) {
	var allTimers []ServiceTimer
	for id, body := range due {
		e.cache.clearShouldSend(id)
		result, err := e.transport.PostureResponse(ctx, body)
		if err != nil {
			e.cache.markErrored(id, true)
			continue
		}
		e.cache.markErrored(id, false)
		allTimers = append(allTimers, result.Services...)
	}
	e.handleServiceTimers(ctx, allTimers)
}

// handleServiceTimers force-refreshes every service named in a successful
// posture-response body by re-fetching it from the controller and
// replacing its service-table entry, then unconditionally performs one
// general catalog refresh that re-fetches and replaces the entire table
// (§9 Open Question 2, resolved to match handle_pr_resp_timer_events's
// per-id ziti_force_service_update calls followed unconditionally by
// ziti_services_refresh). Refresh failures are logged, not fatal: a
// stale table entry survives until the next successful refresh.
func (e *Engine) handleServiceTimers(ctx context.Context, timers []ServiceTimer) {
	for _, t := range timers {
		svc, err := e.transport.RefreshService(ctx, t.ID)
		if err != nil {
			e.logger.Warn("force-refresh service failed", zap.String("service", t.ID), zap.Error(err))
			continue
		}
		e.services.Upsert(&servicetable.Service{ID: svc.ID, Name: svc.Name, PostureQuery: svc.PostureQuery})
	}

	catalog, err := e.transport.RefreshCatalog(ctx)
	if err != nil {
		e.logger.Warn("general service refresh failed", zap.Error(err))
		return
	}
	for _, svc := range catalog {
		e.services.Upsert(&servicetable.Service{ID: svc.ID, Name: svc.Name, PostureQuery: svc.PostureQuery})
	}
	e.refreshCount++
}
