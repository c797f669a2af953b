package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/edgecore/ztedge/edgeerr"
	"github.com/edgecore/ztedge/envelope"
)

// EnrollResult is the decoded enrollment response. Cert is set verbatim
// from the response body when the controller replies with
// content-type: application/x-pem-file (§6); Data carries the JSON
// envelope's data for name-based enrollment.
type EnrollResult struct {
	Cert string
	Data json.RawMessage
}

// EnrollCSR performs POST /enroll?method=...&token=... with a CSR body
// (text/plain), the mode used by cert-based enrollment continuation.
func (c *Controller) EnrollCSR(ctx context.Context, method, token string, csr []byte) (EnrollResult, *edgeerr.Error) {
	path := "/enroll?method=" + url.QueryEscape(method) + "&token=" + url.QueryEscape(token)
	result := c.do(ctx, http.MethodPost, c.url(path), true, csr)
	if result.Err != nil {
		return EnrollResult{}, result.Err
	}
	if strings.Contains(result.ContentType, "application/x-pem-file") {
		return EnrollResult{Cert: string(result.Body)}, nil
	}
	data, _, err := envelope.Decode[json.RawMessage](result.Body, result.Status, c.logger)
	return EnrollResult{Data: data}, err
}

// EnrollJSON performs POST /enroll?method=...&token=... with a JSON body,
// the mode used for name-based enrollment requests.
func (c *Controller) EnrollJSON(ctx context.Context, method, token string, payload interface{}) (EnrollResult, *edgeerr.Error) {
	body, _ := json.Marshal(payload)
	path := "/enroll?method=" + url.QueryEscape(method) + "&token=" + url.QueryEscape(token)
	result := c.do(ctx, http.MethodPost, c.url(path), false, body)
	if result.Err != nil {
		return EnrollResult{}, result.Err
	}
	if strings.Contains(result.ContentType, "application/x-pem-file") {
		return EnrollResult{Cert: string(result.Body)}, nil
	}
	data, _, err := envelope.Decode[json.RawMessage](result.Body, result.Status, c.logger)
	return EnrollResult{Data: data}, err
}

// WellKnownCerts performs GET /.well-known/est/cacerts, a plain-text
// PKCS#7 response returned pre-session.
func (c *Controller) WellKnownCerts(ctx context.Context) ([]byte, *edgeerr.Error) {
	result := c.do(ctx, http.MethodGet, c.url("/.well-known/est/cacerts"), true, nil)
	return result.Body, result.Err
}
