package servicetable

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadSeedUpsertsServicesAndQueries(t *testing.T) {
	doc := `
services:
  - id: svc-1
    name: web
    posture_query:
      pq-1:
        type: PROCESS
        timeout: -1
        paths:
          - /usr/bin/web
  - id: svc-2
    name: db
`
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	table := New()
	n, err := LoadSeed(table, path)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	svc1, ok := table.Get("svc-1")
	require.True(t, ok)
	require.Equal(t, "web", svc1.Name)
	require.Contains(t, svc1.PostureQuery, "pq-1")
	require.Equal(t, QueryProcess, svc1.PostureQuery["pq-1"].Type)
	require.Equal(t, NoTimeout, svc1.PostureQuery["pq-1"].Timeout)
	require.Equal(t, []string{"/usr/bin/web"}, svc1.PostureQuery["pq-1"].Paths)

	svc2, ok := table.Get("svc-2")
	require.True(t, ok)
	require.Empty(t, svc2.PostureQuery)
}

func TestLoadSeedMissingFileReturnsError(t *testing.T) {
	_, err := LoadSeed(New(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
