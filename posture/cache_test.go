package posture

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnsureRequiredDispatchesOncePerTick(t *testing.T) {
	c := NewCache()
	assert.True(t, c.ensureRequired("OS"))
	assert.False(t, c.ensureRequired("OS"), "already pending, should not re-dispatch")
}

func TestCollectChangedBodySetsShouldSend(t *testing.T) {
	c := NewCache()
	c.ensureRequired("OS")
	c.collect("OS", []byte(`{"a":1}`), nil, false)

	due := c.dueToSend()
	assert.Contains(t, due, "OS")
}

func TestCollectUnchangedBodyNoSendUnlessMustSend(t *testing.T) {
	c := NewCache()
	c.ensureRequired("OS")
	c.collect("OS", []byte(`{"a":1}`), nil, false)
	c.clearShouldSend("OS")

	c.ensureRequired("OS")
	c.collect("OS", []byte(`{"a":1}`), nil, false)
	assert.NotContains(t, c.dueToSend(), "OS")

	c.ensureRequired("OS")
	c.collect("OS", []byte(`{"a":1}`), nil, true)
	assert.Contains(t, c.dueToSend(), "OS")
}

func TestCollectErrorStickyResend(t *testing.T) {
	c := NewCache()
	c.ensureRequired("OS")
	c.collect("OS", []byte(`{"a":1}`), nil, false)
	c.clearShouldSend("OS")

	c.ensureRequired("OS")
	c.collect("OS", nil, errors.New("probe failed"), false)
	assert.Contains(t, c.dueToSend(), "OS")

	c.clearShouldSend("OS")
	c.ensureRequired("OS")
	c.collect("OS", []byte(`{"a":1}`), nil, false)
	assert.Contains(t, c.dueToSend(), "OS", "errored entries resend even with unchanged body")
}

func TestSweepObsoleteRemovesUnrequiredEntries(t *testing.T) {
	c := NewCache()
	c.ensureRequired("OS")
	c.collect("OS", []byte(`{"a":1}`), nil, false)
	c.clearShouldSend("OS")

	c.markAllObsolete()
	c.sweepObsolete()

	assert.True(t, c.ensureRequired("OS"), "entry was swept; ensureRequired recreates it and signals dispatch")
}

func TestCollectDiscardedForRemovedEntry(t *testing.T) {
	c := NewCache()
	c.collect("GONE", []byte(`{}`), nil, false)
	assert.NotContains(t, c.dueToSend(), "GONE")
}

func TestMarkAllDueErroredRestoresShouldSend(t *testing.T) {
	c := NewCache()
	c.ensureRequired("OS")
	c.collect("OS", []byte(`{"a":1}`), nil, false)
	ids := []string{"OS"}
	for _, id := range ids {
		c.clearShouldSend(id)
	}
	c.markAllDueErrored(ids)
	assert.Contains(t, c.dueToSend(), "OS")
}
