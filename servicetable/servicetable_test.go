package servicetable

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestUpsertGetRemove(t *testing.T) {
	table := New()
	want := &Service{
		ID:   "svc1",
		Name: "web",
		PostureQuery: map[string]PostureQuery{
			"pq-1": {Type: QueryOS, Timeout: 60},
		},
	}
	table.Upsert(want)

	svc, ok := table.Get("svc1")
	assert.True(t, ok)
	if diff := cmp.Diff(want, svc); diff != "" {
		t.Errorf("stored service differs from upserted service:\n%s", diff)
	}

	table.Remove("svc1")
	_, ok = table.Get("svc1")
	assert.False(t, ok)
}

func TestWalkVisitsEveryService(t *testing.T) {
	table := New()
	table.Upsert(&Service{ID: "svc1"})
	table.Upsert(&Service{ID: "svc2"})

	seen := map[string]bool{}
	table.Walk(func(s *Service) { seen[s.ID] = true })

	assert.Len(t, seen, 2)
	assert.True(t, seen["svc1"])
	assert.True(t, seen["svc2"])
}
