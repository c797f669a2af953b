package servicetable

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// seedDocument is the on-disk shape for a static service-catalog seed file,
// used to pre-populate a Table before the first services-update sync
// completes (or when running against a fixture controller in development).
type seedDocument struct {
	Services []seedService `yaml:"services"`
}

type seedService struct {
	ID           string               `yaml:"id"`
	Name         string               `yaml:"name"`
	PostureQuery map[string]seedQuery `yaml:"posture_query,omitempty"`
}

type seedQuery struct {
	Type    string   `yaml:"type"`
	Timeout int      `yaml:"timeout"`
	Paths   []string `yaml:"paths,omitempty"`
}

// LoadSeed decodes a YAML seed file and upserts every entry into t. It
// returns the number of services loaded.
func LoadSeed(t *Table, path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading seed file: %w", err)
	}
	var doc seedDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return 0, fmt.Errorf("decoding seed file: %w", err)
	}
	for _, s := range doc.Services {
		svc := &Service{ID: s.ID, Name: s.Name}
		if len(s.PostureQuery) > 0 {
			svc.PostureQuery = make(map[string]PostureQuery, len(s.PostureQuery))
			for id, q := range s.PostureQuery {
				svc.PostureQuery[id] = PostureQuery{Type: QueryType(q.Type), Timeout: q.Timeout, Paths: q.Paths}
			}
		}
		t.Upsert(svc)
	}
	return len(doc.Services), nil
}
