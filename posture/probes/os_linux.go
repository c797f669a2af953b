//go:build linux

package probes

import (
	"context"

	"golang.org/x/sys/unix"
)

// OS implements the default OS probe for Linux, sourced from uname(2) —
// the Go equivalent of the original's uv_os_uname call on non-Windows
// platforms.
func OS(ctx context.Context, id string, reply func([]byte, error)) {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		reply(nil, err)
		return
	}
	reply(marshal(osPayload{
		ID:      id,
		TypeID:  "OS",
		Type:    cstr(uts.Sysname[:]),
		Version: cstr(uts.Release[:]),
		Build:   cstr(uts.Version[:]),
	}), nil)
}

func cstr(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
