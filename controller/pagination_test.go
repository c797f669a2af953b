package controller

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edgecore/ztedge/edgeerr"
)

// TestCancellationDuringPaginationStopsFurtherPages covers spec scenario
// 6: cancelling mid-walk (here, right after page 2 of 4 is served) means
// no further page is ever requested, and the terminal result is DISABLED.
func TestCancellationDuringPaginationStopsFurtherPages(t *testing.T) {
	var pagesServed int32
	ctx, cancel := context.WithCancel(context.Background())

	mux := http.NewServeMux()
	mux.HandleFunc("/sessions", func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&pagesServed, 1)
		if n == 2 {
			// Simulate the caller cancelling right after page 2 of 4 lands,
			// before the response for page 2 is even decoded.
			cancel()
		}
		offset := r.URL.Query().Get("offset")
		fmt.Fprintf(w, `{"meta":{"pagination":{"limit":1,"offset":%s,"totalCount":4}},"data":[{"id":"sess-%d"}]}`, offset, n)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	ctrl, err := New(Config{BaseURL: srv.URL, HTTPClient: srv.Client(), Logger: zap.NewNop(), PageSize: 1})
	require.NoError(t, err)
	t.Cleanup(ctrl.Close)
	ctrl.sessionToken = "tok"

	_, serr := ctrl.Sessions(ctx)
	require.NotNil(t, serr)
	assert.Equal(t, edgeerr.Disabled, serr.Kind)
	assert.Equal(t, int32(2), atomic.LoadInt32(&pagesServed), "pagination must stop immediately after the page in flight when cancelled, issuing no further pages")
}
