package transaction

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edgecore/ztedge/edgeerr"
)

func TestDoSuccessReadsBodyAndHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(HeaderCtrlAddress, "https://new-controller:1280")
		w.Header().Set(HeaderInstanceID, "instance-2")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(200)
		w.Write([]byte(`{"data":{}}`))
	}))
	defer srv.Close()

	txn := New(http.MethodGet, srv.URL, false, zap.NewNop())
	result := txn.Do(t.Context(), srv.Client(), srv.URL, nil, nil)

	require.Nil(t, result.Err)
	assert.Equal(t, 200, result.Status)
	assert.Equal(t, "https://new-controller:1280", result.NewAddress)
	assert.Equal(t, "instance-2", result.InstanceID)
	assert.JSONEq(t, `{"data":{}}`, string(result.Body))
}

func TestDoNewAddressOmittedWhenUnchanged(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(HeaderCtrlAddress, "http://same")
		w.WriteHeader(200)
	}))
	defer srv.Close()

	txn := New(http.MethodGet, srv.URL, false, zap.NewNop())
	result := txn.Do(t.Context(), srv.Client(), "http://same", nil, nil)
	assert.Empty(t, result.NewAddress)
}

func TestDoTransportFailure(t *testing.T) {
	txn := New(http.MethodGet, "http://127.0.0.1:0", false, zap.NewNop())
	result := txn.Do(t.Context(), http.DefaultClient, "", nil, nil)
	require.NotNil(t, result.Err)
	assert.Equal(t, edgeerr.ControllerUnavailable, result.Err.Kind)
}

func TestDoSetHeadersCallback(t *testing.T) {
	var seen string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get(HeaderSession)
		w.WriteHeader(200)
	}))
	defer srv.Close()

	txn := New(http.MethodGet, srv.URL, false, zap.NewNop())
	txn.Do(t.Context(), srv.Client(), srv.URL, nil, func(req *http.Request) {
		req.Header.Set(HeaderSession, "tok-123")
	})
	assert.Equal(t, "tok-123", seen)
}
