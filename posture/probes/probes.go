// Package probes implements the default posture probes: OS, MAC, domain,
// and per-process hash/signer/running-state. Each probe materializes one
// posture check's JSON body; callers may override any of them with a
// custom implementation of the same Probe signature.
package probes

import "context"

// IDs for the cache entries that are not a process path.
const (
	IDOS             = "OS"
	IDMAC            = "MAC"
	IDDomain         = "DOMAIN"
	IDEndpointState  = "ENDPOINT_STATE"
)

// Probe materializes one posture check's JSON body and delivers it via
// reply, exactly once. ctx is cancelled when the owning posture-checks
// bundle is torn down; a probe that has already started asynchronous work
// must drop its reply if ctx is done by the time it would fire.
type Probe func(ctx context.Context, id string, reply func(body []byte, err error))

// osPayload is the JSON shape posted for the OS probe.
type osPayload struct {
	ID      string `json:"id"`
	TypeID  string `json:"typeId"`
	Type    string `json:"type"`
	Version string `json:"version"`
	Build   string `json:"build"`
}

// macPayload is the JSON shape posted for the MAC probe.
type macPayload struct {
	ID           string   `json:"id"`
	TypeID       string   `json:"typeId"`
	MACAddresses []string `json:"macAddresses"`
}

// domainPayload is the JSON shape posted for the domain probe.
type domainPayload struct {
	ID     string `json:"id"`
	TypeID string `json:"typeId"`
	Domain string `json:"domain"`
}

// processPayload is the JSON shape posted for a process probe.
type processPayload struct {
	ID        string   `json:"id"`
	TypeID    string   `json:"typeId"`
	Path      string   `json:"path"`
	IsRunning bool     `json:"isRunning"`
	Hash      string   `json:"hash"`
	Signers   []string `json:"signers"`
}

// endpointStatePayload is the JSON shape posted for the edge-triggered
// endpoint-state probe (§4.E "Trigger").
type endpointStatePayload struct {
	ID      string `json:"id"`
	TypeID  string `json:"typeId"`
	Woken   bool   `json:"woken"`
	Unlocked bool  `json:"unlocked"`
}

// EndpointState builds the immediate, cache-bypassing posture body sent by
// endpoint_state_change (§4.E "Trigger").
func EndpointState(woken, unlocked bool) []byte {
	return marshal(endpointStatePayload{ID: "0", TypeID: "ENDPOINT_STATE", Woken: woken, Unlocked: unlocked})
}
