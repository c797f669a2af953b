// Package transaction implements the HTTP transaction layer: one
// outstanding request maps to one response object that accumulates body
// bytes, inspects framing/rebind headers, and delivers exactly one terminal
// result.
package transaction

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/edgecore/ztedge/edgeerr"
)

// HeaderCtrlAddress is the controller-rebind header name.
const HeaderCtrlAddress = "ziti-ctrl-address"

// HeaderInstanceID is the controller-restart signal header name.
const HeaderInstanceID = "ziti-instance-id"

// HeaderSession is the API-session-token header name.
const HeaderSession = "zt-session"

// HeaderRequestID is the log-correlation header; not part of the envelope
// contract, never observed by callers.
const HeaderRequestID = "X-Request-Id"

// Result is the terminal outcome of a Transaction: exactly one of Body set
// (success, possibly empty) or Err set.
type Result struct {
	Status      int
	Body        []byte
	PlainText   bool
	ContentType string
	NewAddress  string // non-empty if ziti-ctrl-address differed from current base
	InstanceID  string // raw ziti-instance-id header value, empty if absent
	Elapsed     time.Duration
	Err         *edgeerr.Error
}

// Transaction is a single in-flight request/response exchange.
type Transaction struct {
	Method    string
	Path      string
	PlainText bool // caller expects the body passed through unparsed

	start  time.Time
	logger *zap.Logger
}

// New creates a Transaction. plainText marks responses (e.g. well-known
// certs, PEM enrollment) that must not be run through the envelope parser.
func New(method, path string, plainText bool, logger *zap.Logger) *Transaction {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transaction{Method: method, Path: path, PlainText: plainText, start: time.Now(), logger: logger}
}

// Do issues the request against client and returns the terminal Result.
// currentBase is the controller's base URL at dispatch time, used only to
// detect whether a ziti-ctrl-address header actually names a different
// address (§4.C: "equal to current URL: no adoption").
func (t *Transaction) Do(ctx context.Context, client *http.Client, currentBase string, body io.Reader, setHeaders func(*http.Request)) Result {
	req, err := http.NewRequestWithContext(ctx, t.Method, t.Path, body)
	if err != nil {
		return Result{Err: edgeerr.Wrap(err, edgeerr.InvalidConfig, "build request")}
	}
	req.Header.Set("Accept", "application/json")
	if !t.PlainText {
		req.Header.Set("Content-Type", "application/json")
	}
	if setHeaders != nil {
		setHeaders(req)
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Result{Err: edgeerr.New(edgeerr.Disabled, "request cancelled")}
		}
		return Result{Err: edgeerr.Wrap(err, edgeerr.ControllerUnavailable, "transport failure")}
	}
	defer resp.Body.Close()

	buf := t.readBody(resp)

	newAddr := ""
	if addr := resp.Header.Get(HeaderCtrlAddress); addr != "" && addr != currentBase {
		newAddr = addr
	}
	instanceID := resp.Header.Get(HeaderInstanceID)

	result := Result{
		Status:      resp.StatusCode,
		Body:        buf,
		PlainText:   t.PlainText,
		ContentType: resp.Header.Get("content-type"),
		NewAddress:  newAddr,
		InstanceID:  instanceID,
		Elapsed:     time.Since(t.start),
	}
	return result
}

// readBody preallocates a buffer from Content-Length when present (the
// "preallocate" strategy); chunked/unknown-length responses grow the
// buffer as bytes arrive, mirroring the two framing strategies named in
// §4.B without needing to distinguish them beyond Go's own io.Reader
// semantics.
func (t *Transaction) readBody(resp *http.Response) []byte {
	var buf bytes.Buffer
	if cl := resp.Header.Get("Content-Length"); cl != "" {
		if n, err := strconv.Atoi(cl); err == nil && n > 0 {
			buf.Grow(n)
		}
	}
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		t.logger.Warn("error reading response body", zap.Error(err), zap.String("path", t.Path))
	}
	return buf.Bytes()
}
