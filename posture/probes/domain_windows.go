//go:build windows

package probes

import (
	"context"

	"golang.org/x/sys/windows/registry"
)

// Domain implements the default domain probe for Windows, reading the
// joined-domain value the same way the original's NetGetJoinInformation
// call reports it.
func Domain(ctx context.Context, id string, reply func([]byte, error)) {
	k, err := registry.OpenKey(registry.LOCAL_MACHINE, `SYSTEM\CurrentControlSet\Services\Tcpip\Parameters`, registry.QUERY_VALUE)
	if err != nil {
		reply(marshal(domainPayload{ID: id, TypeID: "DOMAIN", Domain: ""}), nil)
		return
	}
	defer k.Close()
	domain, _, err := k.GetStringValue("Domain")
	if err != nil || domain == "" {
		domain, _, _ = k.GetStringValue("NV Domain")
	}
	reply(marshal(domainPayload{ID: id, TypeID: "DOMAIN", Domain: domain}), nil)
}
