// Package servicetable is the in-process cache of the service catalog and
// each service's posture-query map. It is the "service table" the posture
// engine's tick algorithm walks (§4.E.3); it is touched only from the
// owning scheduler goroutine, so it carries no locks of its own.
package servicetable

// QueryType names the posture-check kinds the controller can attach to a
// service.
type QueryType string

const (
	QueryOS            QueryType = "OS"
	QueryMAC           QueryType = "MAC"
	QueryDomain        QueryType = "DOMAIN"
	QueryProcess       QueryType = "PROCESS"
	QueryProcessMulti  QueryType = "PROCESS_MULTI"
	QueryEndpointState QueryType = "ENDPOINT_STATE"

	// NoTimeout marks a posture query as never expiring from the
	// controller's perspective (§4.E.3: "timeout == -1").
	NoTimeout = -1
)

// PostureQuery is one entry in a service's posture-query map.
type PostureQuery struct {
	Type    QueryType
	Timeout int      // seconds, or NoTimeout
	Paths   []string // populated for PROCESS (len 1) and PROCESS_MULTI (len N)
}

// Service is one entry in the service table.
type Service struct {
	ID           string
	Name         string
	PostureQuery map[string]PostureQuery // keyed by the controller's posture-query id
}

// Table is the in-memory service catalog.
type Table struct {
	services map[string]*Service
}

// New creates an empty Table.
func New() *Table {
	return &Table{services: make(map[string]*Service)}
}

// Upsert inserts or replaces a service entry.
func (t *Table) Upsert(svc *Service) {
	t.services[svc.ID] = svc
}

// Remove deletes a service entry.
func (t *Table) Remove(id string) {
	delete(t.services, id)
}

// Get returns a service by id.
func (t *Table) Get(id string) (*Service, bool) {
	s, ok := t.services[id]
	return s, ok
}

// Walk calls fn for every service in the table. Order is unspecified.
func (t *Table) Walk(fn func(*Service)) {
	for _, s := range t.services {
		fn(s)
	}
}
