package controller

import (
	"context"
	"net/http"

	"github.com/edgecore/ztedge/edgeerr"
	"github.com/edgecore/ztedge/envelope"
)

// PostureSubmitResult is the decoded posture-response success payload. It
// may name services whose timers the posture engine must force-refresh
// (§4.E "Transport dispatch").
type PostureSubmitResult struct {
	Services []PostureServiceTimer `json:"services,omitempty"`
}

// PostureServiceTimer mirrors one entry of the posture-response success
// body's services list.
type PostureServiceTimer struct {
	ID               string `json:"id"`
	Timeout          int    `json:"timeout"`
	TimeoutRemaining int    `json:"timeoutRemaining"`
}

// PostureResponse performs POST /posture-response with a single probe
// body.
func (c *Controller) PostureResponse(ctx context.Context, body []byte) (PostureSubmitResult, *edgeerr.Error) {
	if err := c.requireSession(); err != nil {
		return PostureSubmitResult{}, err
	}
	result := c.do(ctx, http.MethodPost, c.url("/posture-response"), false, body)
	if result.Err != nil {
		return PostureSubmitResult{}, result.Err
	}
	r, _, err := envelope.Decode[PostureSubmitResult](result.Body, result.Status, c.logger)
	return r, err
}

// PostureResponseBulkResult carries the HTTP status alongside the decoded
// body so the posture engine can detect the sticky-404 degradation case
// (§4.E "Transport dispatch").
type PostureResponseBulkResult struct {
	PostureSubmitResult
	HTTPStatus int
}

// PostureResponseBulk performs POST /posture-response-bulk with a JSON
// array body of probe responses.
func (c *Controller) PostureResponseBulk(ctx context.Context, body []byte) (PostureResponseBulkResult, *edgeerr.Error) {
	if err := c.requireSession(); err != nil {
		return PostureResponseBulkResult{}, err
	}
	result := c.do(ctx, http.MethodPost, c.url("/posture-response-bulk"), false, body)
	if result.Status == http.StatusNotFound {
		c.SetNoBulkPostureAPI()
		return PostureResponseBulkResult{HTTPStatus: result.Status}, edgeerr.New(edgeerr.NotFound, "bulk posture endpoint unavailable").WithHTTP(result.Status, "")
	}
	if result.Err != nil {
		return PostureResponseBulkResult{HTTPStatus: result.Status}, result.Err
	}
	r, _, err := envelope.Decode[PostureSubmitResult](result.Body, result.Status, c.logger)
	return PostureResponseBulkResult{PostureSubmitResult: r, HTTPStatus: result.Status}, err
}
