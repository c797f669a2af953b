//go:build !windows

package probes

import "context"

// Domain always returns an empty domain on non-Windows platforms (§4.D).
func Domain(ctx context.Context, id string, reply func([]byte, error)) {
	reply(marshal(domainPayload{ID: id, TypeID: "DOMAIN", Domain: ""}), nil)
}
