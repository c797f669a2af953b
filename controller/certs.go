package controller

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/edgecore/ztedge/edgeerr"
	"github.com/edgecore/ztedge/envelope"
)

type csrRequest struct {
	ClientCertCSR string `json:"clientCertCsr"`
}

// CertExtendResult is the decoded certificate-extend response.
type CertExtendResult struct {
	ClientCert string `json:"clientCert"`
	CA         string `json:"ca,omitempty"`
}

// ExtendCertAuth performs POST /current-identity/authenticators/{id}/extend.
func (c *Controller) ExtendCertAuth(ctx context.Context, authenticatorID string, csr string) (CertExtendResult, *edgeerr.Error) {
	if err := c.requireSession(); err != nil {
		return CertExtendResult{}, err
	}
	body, _ := json.Marshal(csrRequest{ClientCertCSR: csr})
	result := c.do(ctx, http.MethodPost, c.url("/current-identity/authenticators/"+authenticatorID+"/extend"), false, body)
	if result.Err != nil {
		return CertExtendResult{}, result.Err
	}
	r, _, err := envelope.Decode[CertExtendResult](result.Body, result.Status, c.logger)
	return r, err
}

// VerifyExtendCertAuth performs POST /current-identity/authenticators/{id}/extend-verify,
// confirming a previously-issued extension.
func (c *Controller) VerifyExtendCertAuth(ctx context.Context, authenticatorID string, csr string) *edgeerr.Error {
	if err := c.requireSession(); err != nil {
		return err
	}
	body, _ := json.Marshal(csrRequest{ClientCertCSR: csr})
	result := c.do(ctx, http.MethodPost, c.url("/current-identity/authenticators/"+authenticatorID+"/extend-verify"), false, body)
	return result.Err
}

// CreateAPICertResult is the decoded create-api-cert response.
type CreateAPICertResult struct {
	Certificate string `json:"certificate"`
}

// CreateAPICert performs POST /current-api-session/certificates, used by
// cert-based enrollment continuation.
func (c *Controller) CreateAPICert(ctx context.Context, csr string) (CreateAPICertResult, *edgeerr.Error) {
	if err := c.requireSession(); err != nil {
		return CreateAPICertResult{}, err
	}
	body, _ := json.Marshal(csrRequest{ClientCertCSR: csr})
	result := c.do(ctx, http.MethodPost, c.url("/current-api-session/certificates"), false, body)
	if result.Err != nil {
		return CreateAPICertResult{}, result.Err
	}
	r, _, err := envelope.Decode[CreateAPICertResult](result.Body, result.Status, c.logger)
	return r, err
}
