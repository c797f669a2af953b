// Package envelope decodes the controller's standard response shape:
//
//	{ meta: { pagination: {...} }, data: <opaque>, error: { code, message }? }
//
// and maps the server's error codes onto the edgeerr taxonomy.
package envelope

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/edgecore/ztedge/edgeerr"
)

// Pagination mirrors the controller's meta.pagination block.
type Pagination struct {
	Limit      int `json:"limit"`
	Offset     int `json:"offset"`
	TotalCount int `json:"totalCount"`
}

// Meta mirrors the controller's meta block.
type Meta struct {
	Pagination Pagination `json:"pagination"`
}

// ServerError mirrors the controller's error block.
type ServerError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Raw is the envelope with data left undecoded, used to inspect meta/error
// before committing to an operation-specific decode.
type Raw struct {
	Meta  Meta            `json:"meta"`
	Data  json.RawMessage `json:"data"`
	Error *ServerError    `json:"error"`
}

// codeTable is the fixed server-code to internal-kind mapping. It is a
// process-wide read-only table, built once at init.
var codeTable = map[string]edgeerr.Kind{
	"NOT_FOUND":                 edgeerr.NotFound,
	"CONTROLLER_UNAVAILABLE":    edgeerr.ControllerUnavailable,
	"NO_ROUTABLE_INGRESS_NODES": edgeerr.GatewayUnavailable,
	"NO_EDGE_ROUTERS_AVAILABLE": edgeerr.GatewayUnavailable,
	"INVALID_AUTHENTICATION":    edgeerr.AuthFailed,
	"REQUIRES_CERT_AUTH":        edgeerr.AuthFailed,
	"UNAUTHORIZED":              edgeerr.AuthFailed,
	"INVALID_AUTH":              edgeerr.AuthFailed,
	"INVALID_POSTURE":           edgeerr.InvalidPosture,
	"MFA_INVALID_TOKEN":         edgeerr.MFAInvalidToken,
	"MFA_EXISTS":                edgeerr.MFAExists,
	"MFA_NOT_ENROLLED":          edgeerr.MFANotEnrolled,
	"INVALID_ENROLLMENT_TOKEN":  edgeerr.JWTInvalid,
	"COULD_NOT_VALIDATE":        edgeerr.NotAuthorized,
}

// CodeToKind maps a server error code to an internal Kind. An empty code
// maps to OK; an unrecognized non-empty code maps to Unspecified and is
// logged once at the call site via logger (nil-safe).
func CodeToKind(code string, httpStatus int, logger *zap.Logger) edgeerr.Kind {
	if code == "" {
		return edgeerr.OK
	}
	if kind, ok := codeTable[code]; ok {
		return kind
	}
	if logger != nil {
		logger.Warn("unrecognized controller error code",
			zap.String("code", code), zap.Int("http_status", httpStatus))
	}
	return edgeerr.Unspecified
}

// Decode parses body as an envelope and, on success, decodes Data into a
// value of type T with encoding/json. If envelope parsing fails and
// httpStatus is an error status (>= 300), a synthetic
// INVALID_CONTROLLER_RESPONSE error carrying the status is returned;
// below 300 the JSON error is wrapped as INVALID_CONTROLLER_RESPONSE. If
// the envelope carries a server error, it is mapped and returned; an
// absent or null data block yields T's zero value.
func Decode[T any](body []byte, httpStatus int, logger *zap.Logger) (T, *Raw, *edgeerr.Error) {
	var zero T
	var raw Raw
	if err := json.Unmarshal(body, &raw); err != nil {
		if httpStatus >= 300 {
			return zero, nil, edgeerr.Newf(edgeerr.InvalidControllerReply,
				"%s", httpStatusText(httpStatus)).WithHTTP(httpStatus, "")
		}
		return zero, nil, edgeerr.Wrap(err, edgeerr.InvalidControllerReply, "malformed envelope")
	}
	if raw.Error != nil {
		kind := CodeToKind(raw.Error.Code, httpStatus, logger)
		return zero, &raw, edgeerr.New(kind, raw.Error.Message).WithHTTP(httpStatus, raw.Error.Code)
	}
	if len(raw.Data) == 0 || string(raw.Data) == "null" {
		return zero, &raw, nil
	}
	if err := json.Unmarshal(raw.Data, &zero); err != nil {
		return zero, &raw, edgeerr.Wrap(err, edgeerr.InvalidControllerReply, "malformed data payload")
	}
	return zero, &raw, nil
}

func httpStatusText(status int) string {
	return fmt.Sprintf("http status %d", status)
}
