//go:build windows

package probes

import (
	"context"
	"fmt"

	"golang.org/x/sys/windows"
)

// OS implements the default OS probe for Windows, via RtlGetVersion,
// branching on product type the same way the original's default_pq_os
// distinguishes "windows" from "windowsserver".
func OS(ctx context.Context, id string, reply func([]byte, error)) {
	info := windows.RtlGetVersion()
	osType := "windows"
	if info.ProductType != windows.VER_NT_WORKSTATION {
		osType = "windowsserver"
	}
	reply(marshal(osPayload{
		ID:      id,
		TypeID:  "OS",
		Type:    osType,
		Version: fmt.Sprintf("%d.%d", info.MajorVersion, info.MinorVersion),
		Build:   fmt.Sprintf("%d", info.BuildNumber),
	}), nil)
}
