package scheduler

import (
	"context"

	"github.com/edgecore/ztedge/controller"
	"github.com/edgecore/ztedge/posture"
	"github.com/edgecore/ztedge/servicetable"
)

// ControllerAdapter satisfies posture.SessionProvider and posture.Transport
// over a *controller.Controller, so the posture package never needs to
// import controller directly.
type ControllerAdapter struct {
	ctrl *controller.Controller
}

// NewControllerAdapter wraps ctrl for use as a posture.Engine's session
// provider and transport.
func NewControllerAdapter(ctrl *controller.Controller) *ControllerAdapter {
	return &ControllerAdapter{ctrl: ctrl}
}

func (a *ControllerAdapter) Session() (string, bool) {
	s := a.ctrl.Session()
	return s.ID, s.FullyAuthenticated
}

func (a *ControllerAdapter) InstanceID() string {
	return a.ctrl.InstanceID()
}

func (a *ControllerAdapter) NoBulkPostureAPI() bool {
	return a.ctrl.NoBulkPostureAPI()
}

func (a *ControllerAdapter) SetNoBulkPostureAPI() {
	a.ctrl.SetNoBulkPostureAPI()
}

func (a *ControllerAdapter) PostureResponseBulk(ctx context.Context, body []byte) (posture.BulkResult, error) {
	result, err := a.ctrl.PostureResponseBulk(ctx, body)
	out := posture.BulkResult{HTTPStatus: result.HTTPStatus, Services: convertTimers(result.Services)}
	if err != nil {
		return out, err
	}
	return out, nil
}

func (a *ControllerAdapter) PostureResponse(ctx context.Context, body []byte) (posture.SingleResult, error) {
	result, err := a.ctrl.PostureResponse(ctx, body)
	out := posture.SingleResult{Services: convertTimers(result.Services)}
	if err != nil {
		return out, err
	}
	return out, nil
}

func convertTimers(in []controller.PostureServiceTimer) []posture.ServiceTimer {
	out := make([]posture.ServiceTimer, len(in))
	for i, t := range in {
		out[i] = posture.ServiceTimer{ID: t.ID, Timeout: t.Timeout, TimeoutRemaining: t.TimeoutRemaining}
	}
	return out
}

// RefreshService re-fetches a single service by id, the "force-refresh
// that service in the upstream service catalog" half of §4.E's
// post-submission handling.
func (a *ControllerAdapter) RefreshService(ctx context.Context, id string) (posture.CatalogService, error) {
	svc, err := a.ctrl.ServiceByID(ctx, id)
	if err != nil {
		return posture.CatalogService{}, err
	}
	return posture.CatalogService{ID: svc.ID, Name: svc.Name, PostureQuery: convertPostureQuery(svc.PostureQuerySets)}, nil
}

// RefreshCatalog re-fetches the full service catalog, the "request a
// general service refresh" half of the same handling.
func (a *ControllerAdapter) RefreshCatalog(ctx context.Context) ([]posture.CatalogService, error) {
	svcs, err := a.ctrl.Services(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]posture.CatalogService, len(svcs))
	for i, svc := range svcs {
		out[i] = posture.CatalogService{ID: svc.ID, Name: svc.Name, PostureQuery: convertPostureQuery(svc.PostureQuerySets)}
	}
	return out, nil
}

// convertPostureQuery flattens a service's posture-query-sets (policy id ->
// queries) into the service table's flat map keyed by query id, the shape
// buildRequiredSet walks.
func convertPostureQuery(sets []controller.PostureQuerySet) map[string]servicetable.PostureQuery {
	out := make(map[string]servicetable.PostureQuery)
	for _, set := range sets {
		for _, q := range set.PostureQueries {
			pq := servicetable.PostureQuery{Type: servicetable.QueryType(q.QueryType), Timeout: q.Timeout}
			if q.Process != nil {
				pq.Paths = append(pq.Paths, q.Process.Path)
			}
			for _, p := range q.Processes {
				pq.Paths = append(pq.Paths, p.Path)
			}
			out[q.ID] = pq
		}
	}
	return out
}
