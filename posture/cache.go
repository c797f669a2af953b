// Package posture implements the posture engine: it composes probes from
// the required-query set, caches last responses, decides send/skip, and
// dispatches bulk or per-item submissions with fallback (§4.E).
package posture

import "bytes"

// entry is one posture-response cache record, keyed by probe id (§3
// "Posture-response cache"). Generalizes the teacher's CachedComponent —
// same "compare raw bytes before recomputing/resending" short-circuit,
// applied to should_send instead of a checksum.
type entry struct {
	serialized []byte
	pending    bool
	shouldSend bool
	obsolete   bool
	errored    bool
}

// Cache holds one entry per required probe id plus the sticky error-state
// map (folded into entry.errored here rather than kept as a separate map,
// since every id that has an error-state also has a cache entry).
type Cache struct {
	entries map[string]*entry
}

// NewCache creates an empty Cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]*entry)}
}

func (c *Cache) get(id string) *entry {
	e, ok := c.entries[id]
	if !ok {
		e = &entry{}
		c.entries[id] = e
	}
	return e
}

// markAllObsolete flags every entry with !pending && !shouldSend as
// obsolete, the first half of §4.E step 4.
func (c *Cache) markAllObsolete() {
	for _, e := range c.entries {
		if !e.pending && !e.shouldSend {
			e.obsolete = true
		}
	}
}

// ensureRequired clears obsolete for id and, if not already pending,
// marks it pending and returns true (meaning: dispatch its probe now).
func (c *Cache) ensureRequired(id string) (dispatch bool) {
	e := c.get(id)
	e.obsolete = false
	if e.pending {
		return false
	}
	e.pending = true
	return true
}

// sweepObsolete removes every entry still flagged obsolete (§4.E step 5).
func (c *Cache) sweepObsolete() {
	for id, e := range c.entries {
		if e.obsolete {
			delete(c.entries, id)
		}
	}
}

// collect implements the probe-reply handling of §4.E ("Probe reply
// (collect)"). If id has no cache entry (removed as obsolete), the reply
// is discarded.
func (c *Cache) collect(id string, body []byte, probeErr error, mustSendEveryTime bool) {
	e, ok := c.entries[id]
	if !ok {
		return
	}
	e.pending = false
	if probeErr != nil {
		e.errored = true
		e.shouldSend = true
		return
	}
	changed := !bytes.Equal(e.serialized, body)
	if changed {
		e.serialized = body
		e.shouldSend = true
		return
	}
	e.shouldSend = mustSendEveryTime || e.errored
}

// dueToSend returns every id whose entry currently has shouldSend set.
func (c *Cache) dueToSend() map[string][]byte {
	out := make(map[string][]byte)
	for id, e := range c.entries {
		if e.shouldSend {
			out[id] = e.serialized
		}
	}
	return out
}

// clearShouldSend clears shouldSend for id; called as each due id is
// folded into an outgoing batch.
func (c *Cache) clearShouldSend(id string) {
	if e, ok := c.entries[id]; ok {
		e.shouldSend = false
	}
}

// markErrored sets (or clears) the sticky error-state for id after a
// submission attempt.
func (c *Cache) markErrored(id string, errored bool) {
	if e, ok := c.entries[id]; ok {
		e.errored = errored
	}
}

// markAllDueErrored re-sets shouldSend for every id just cleared, used
// when a bulk submission itself fails and must_send is restored for the
// whole batch (§4.E "Transport dispatch": "on other errors, restore
// must_send=true so the next tick retries").
func (c *Cache) markAllDueErrored(ids []string) {
	for _, id := range ids {
		if e, ok := c.entries[id]; ok {
			e.shouldSend = true
			e.errored = true
		}
	}
}
