package probes

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"io"
	"os"

	gopsprocess "github.com/shirou/gopsutil/v4/process"
)

// hashChunkSize matches the original's hash_sha512 streaming chunk size.
const hashChunkSize = 64 * 1024

// Process implements the default process probe: SHA-512 of the file
// contents, an is-running check, and (Windows-only) Authenticode signer
// thumbprints. It is always scheduled on a worker by the caller (the
// scheduler package); this function does the blocking work itself and
// checks ctx only immediately before delivering reply, matching the
// original's "always compute, only the completion handler gates delivery"
// cancellation semantics (§5).
func Process(ctx context.Context, path string, reply func([]byte, error)) {
	hash, hashErr := hashFile(path)
	running := isRunning(path)
	signers := signerThumbprints(path)

	if ctx.Err() != nil {
		// Cancelled: drop the reply, matching process_check_done's
		// "!canceled" guard.
		return
	}
	if hashErr != nil {
		reply(nil, hashErr)
		return
	}
	reply(marshal(processPayload{
		ID:        path,
		TypeID:    "PROCESS",
		Path:      path,
		IsRunning: running,
		Hash:      hash,
		Signers:   signers,
	}), nil)
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha512.New()
	buf := make([]byte, hashChunkSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// isRunning checks whether any running process's executable path matches
// path, collapsing the original's three-way platform-conditional
// check_running (Windows toolhelp snapshot / Linux /proc scan / macOS
// proc_listallpids) into one portable gopsutil call.
func isRunning(path string) bool {
	pids, err := gopsprocess.Pids()
	if err != nil {
		return false
	}
	for _, pid := range pids {
		p, err := gopsprocess.NewProcess(pid)
		if err != nil {
			continue
		}
		exe, err := p.Exe()
		if err != nil {
			continue
		}
		if exe == path {
			return true
		}
	}
	return false
}
