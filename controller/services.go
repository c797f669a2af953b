package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/edgecore/ztedge/edgeerr"
	"github.com/edgecore/ztedge/envelope"
)

// Service is one decoded entry from GET /services.
type Service struct {
	ID                string                   `json:"id"`
	Name              string                   `json:"name"`
	PostureQuerySets  []PostureQuerySet        `json:"postureQuerySets,omitempty"`
}

// PostureQuerySet mirrors the controller's posture-query-set shape.
type PostureQuerySet struct {
	PolicyID      string         `json:"policyId"`
	PostureQueries []PostureQuery `json:"postureQueries"`
}

// PostureQuery mirrors one posture-check requirement attached to a service.
type PostureQuery struct {
	ID        string `json:"id"`
	QueryType string `json:"queryType"`
	Timeout   int    `json:"timeout"`
	Process   *struct {
		Path string `json:"path"`
	} `json:"process,omitempty"`
	Processes []struct {
		Path string `json:"path"`
	} `json:"processes,omitempty"`
}

// Services performs the paged GET /services walk.
func (c *Controller) Services(ctx context.Context) ([]Service, *edgeerr.Error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	return paginate[Service](ctx, c, "/services", 0)
}

// ServiceByID performs GET /services?filter=id="..." and returns the first
// element, used by the posture engine to force-refresh a single service
// named in a posture-response success body.
func (c *Controller) ServiceByID(ctx context.Context, id string) (Service, *edgeerr.Error) {
	if err := c.requireSession(); err != nil {
		return Service{}, err
	}
	path := fmt.Sprintf(`/services?filter=id="%s"`, id)
	result := c.do(ctx, http.MethodGet, c.url(path), false, nil)
	if result.Err != nil {
		return Service{}, result.Err
	}
	items, _, err := envelope.Decode[[]Service](result.Body, result.Status, c.logger)
	if err != nil {
		return Service{}, err
	}
	if len(items) == 0 {
		return Service{}, edgeerr.New(edgeerr.NotFound, "service not found: "+id)
	}
	return items[0], nil
}

// EdgeRouter is one decoded entry from GET /current-identity/edge-routers.
type EdgeRouter struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Hostname string   `json:"hostname"`
	Urls     []string `json:"urls,omitempty"`
}

// EdgeRouters performs the paged GET /current-identity/edge-routers walk.
func (c *Controller) EdgeRouters(ctx context.Context) ([]EdgeRouter, *edgeerr.Error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	return paginate[EdgeRouter](ctx, c, "/current-identity/edge-routers", 0)
}

// ServiceByName performs GET /services?filter=name="..." and returns the
// first element.
func (c *Controller) ServiceByName(ctx context.Context, name string) (Service, *edgeerr.Error) {
	if err := c.requireSession(); err != nil {
		return Service{}, err
	}
	path := fmt.Sprintf(`/services?filter=name="%s"`, name)
	result := c.do(ctx, http.MethodGet, c.url(path), false, nil)
	if result.Err != nil {
		return Service{}, result.Err
	}
	items, _, err := envelope.Decode[[]Service](result.Body, result.Status, c.logger)
	if err != nil {
		return Service{}, err
	}
	if len(items) == 0 {
		return Service{}, edgeerr.New(edgeerr.NotFound, "service not found: "+name)
	}
	return items[0], nil
}

// EdgeSession is one decoded session entry.
type EdgeSession struct {
	ID        string `json:"id"`
	ServiceID string `json:"serviceId"`
	Type      string `json:"type"`
	Token     string `json:"token"`
}

// GetSession performs GET /sessions/{id}.
func (c *Controller) GetSession(ctx context.Context, id string) (EdgeSession, *edgeerr.Error) {
	if err := c.requireSession(); err != nil {
		return EdgeSession{}, err
	}
	result := c.do(ctx, http.MethodGet, c.url("/sessions/"+id), false, nil)
	if result.Err != nil {
		return EdgeSession{}, result.Err
	}
	s, _, err := envelope.Decode[EdgeSession](result.Body, result.Status, c.logger)
	return s, err
}

// CreateSessionRequest is the POST /sessions body.
type CreateSessionRequest struct {
	ServiceID string `json:"serviceId"`
	Type      string `json:"type"`
}

// CreateSession performs POST /sessions.
func (c *Controller) CreateSession(ctx context.Context, req CreateSessionRequest) (EdgeSession, *edgeerr.Error) {
	if err := c.requireSession(); err != nil {
		return EdgeSession{}, err
	}
	body, _ := json.Marshal(req)
	result := c.do(ctx, http.MethodPost, c.url("/sessions"), false, body)
	if result.Err != nil {
		return EdgeSession{}, result.Err
	}
	s, _, err := envelope.Decode[EdgeSession](result.Body, result.Status, c.logger)
	return s, err
}

// Sessions performs the paged GET /sessions walk.
func (c *Controller) Sessions(ctx context.Context) ([]EdgeSession, *edgeerr.Error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	return paginate[EdgeSession](ctx, c, "/sessions", 0)
}
