package controller

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/edgecore/ztedge/edgeerr"
	"github.com/edgecore/ztedge/envelope"
)

// MFALoginRequest is the POST /authenticate/mfa body, used mid-login when
// the prior login response demanded MFA.
type MFALoginRequest struct {
	Code string `json:"code"`
}

// MFALogin performs POST /authenticate/mfa. On success the pending
// AuthQuery challenge is satisfied, so the cached session state advances
// to fully authenticated.
func (c *Controller) MFALogin(ctx context.Context, req MFALoginRequest) *edgeerr.Error {
	body, _ := json.Marshal(req)
	result := c.do(ctx, http.MethodPost, c.url("/authenticate/mfa"), false, body)
	if result.Err != nil {
		return result.Err
	}
	if result.Status >= 300 {
		_, _, err := envelope.Decode[json.RawMessage](result.Body, result.Status, c.logger)
		if err == nil {
			err = edgeerr.New(edgeerr.Unspecified, "mfa login rejected").WithHTTP(result.Status, "")
		}
		return err
	}
	c.mu.Lock()
	c.cachedSessionState = StateFullyAuthenticated
	c.mu.Unlock()
	return nil
}

// MFAEnrollment is the decoded MFA enrollment state.
type MFAEnrollment struct {
	ProvisioningURL string `json:"provisioningUrl"`
	Secret          string `json:"secret"`
	IsVerified      bool   `json:"isVerified"`
}

// MFAEnroll performs POST /current-identity/mfa, beginning enrollment.
func (c *Controller) MFAEnroll(ctx context.Context) (MFAEnrollment, *edgeerr.Error) {
	if err := c.requireSession(); err != nil {
		return MFAEnrollment{}, err
	}
	result := c.do(ctx, http.MethodPost, c.url("/current-identity/mfa"), false, nil)
	if result.Err != nil {
		return MFAEnrollment{}, result.Err
	}
	e, _, err := envelope.Decode[MFAEnrollment](result.Body, result.Status, c.logger)
	return e, err
}

// MFAGet performs GET /current-identity/mfa.
func (c *Controller) MFAGet(ctx context.Context) (MFAEnrollment, *edgeerr.Error) {
	if err := c.requireSession(); err != nil {
		return MFAEnrollment{}, err
	}
	result := c.do(ctx, http.MethodGet, c.url("/current-identity/mfa"), false, nil)
	if result.Err != nil {
		return MFAEnrollment{}, result.Err
	}
	e, _, err := envelope.Decode[MFAEnrollment](result.Body, result.Status, c.logger)
	return e, err
}

// MFADelete performs DELETE /current-identity/mfa with the confirming
// code carried in the mfa-validation-code header.
func (c *Controller) MFADelete(ctx context.Context, code string) *edgeerr.Error {
	if err := c.requireSession(); err != nil {
		return err
	}
	return c.doWithHeader(ctx, http.MethodDelete, c.url("/current-identity/mfa"), "mfa-validation-code", code, nil)
}

// MFAVerify performs POST /current-identity/mfa/verify, completing
// enrollment.
func (c *Controller) MFAVerify(ctx context.Context, code string) *edgeerr.Error {
	if err := c.requireSession(); err != nil {
		return err
	}
	body, _ := json.Marshal(MFALoginRequest{Code: code})
	result := c.do(ctx, http.MethodPost, c.url("/current-identity/mfa/verify"), false, body)
	return result.Err
}

// MFARecoveryCodes is the decoded recovery-codes payload.
type MFARecoveryCodes struct {
	Codes []string `json:"recoveryCodes"`
}

// MFAGetRecoveryCodes performs GET /current-identity/mfa/recovery-codes.
func (c *Controller) MFAGetRecoveryCodes(ctx context.Context) (MFARecoveryCodes, *edgeerr.Error) {
	if err := c.requireSession(); err != nil {
		return MFARecoveryCodes{}, err
	}
	result := c.do(ctx, http.MethodGet, c.url("/current-identity/mfa/recovery-codes"), false, nil)
	if result.Err != nil {
		return MFARecoveryCodes{}, result.Err
	}
	codes, _, err := envelope.Decode[MFARecoveryCodes](result.Body, result.Status, c.logger)
	return codes, err
}

// MFAPostRecoveryCodes performs POST /current-identity/mfa/recovery-codes,
// regenerating codes.
func (c *Controller) MFAPostRecoveryCodes(ctx context.Context) (MFARecoveryCodes, *edgeerr.Error) {
	if err := c.requireSession(); err != nil {
		return MFARecoveryCodes{}, err
	}
	result := c.do(ctx, http.MethodPost, c.url("/current-identity/mfa/recovery-codes"), false, nil)
	if result.Err != nil {
		return MFARecoveryCodes{}, result.Err
	}
	codes, _, err := envelope.Decode[MFARecoveryCodes](result.Body, result.Status, c.logger)
	return codes, err
}

// doWithHeader is do() plus one caller-supplied header, used by the
// handful of operations (MFA delete) that need a header beyond
// zt-session/X-Request-Id.
func (c *Controller) doWithHeader(ctx context.Context, method, path, headerName, headerValue string, body []byte) *edgeerr.Error {
	result := c.doHeaderFn(ctx, method, path, false, body, func(req *http.Request) {
		req.Header.Set(headerName, headerValue)
	})
	return result.Err
}
