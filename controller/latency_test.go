package controller

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatencyTrackerSummarizesPerPath(t *testing.T) {
	lt := newLatencyTracker()
	lt.record("/services", 10*time.Millisecond, true)
	lt.record("/services", 20*time.Millisecond, true)
	lt.record("/services", 30*time.Millisecond, false)
	lt.record("/version", 5*time.Millisecond, true)

	summaries := lt.summarize()
	require.Len(t, summaries, 2)

	assert.Equal(t, "/services", summaries[0].path)
	assert.Equal(t, 3, summaries[0].total)
	assert.InDelta(t, 2.0/3.0, summaries[0].successRate, 0.001)

	assert.Equal(t, "/version", summaries[1].path)
	assert.Equal(t, 1, summaries[1].total)
	assert.Equal(t, 1.0, summaries[1].successRate)
}

func TestLatencyTrackerEmptyProducesNoSummaries(t *testing.T) {
	lt := newLatencyTracker()
	assert.Empty(t, lt.summarize())
}

func TestControllerRecordsLatencyOnEveryCall(t *testing.T) {
	ctrl, _ := newTestController(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{}}`))
	})

	_, err := ctrl.Version(t.Context())
	require.Nil(t, err)

	summaries := ctrl.latency.summarize()
	require.Len(t, summaries, 1)
	assert.Equal(t, 1, summaries[0].total)
}
