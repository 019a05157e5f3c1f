// Package preflight provides startup readiness checks for the paths and
// sockets dialbridged depends on. The daemon runs RunAll once before
// starting the engine; the CLI status command reuses the individual checks
// to display health.
package preflight

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"dialbridge/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll executes every applicable check for cfg. The host socket check is
// best effort: the bridge starts without the application and reconnects
// later, so its failure is reported but should not block startup.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	results := []Result{
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Mappings directory", cfg.Paths.MappingsDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckFreeSpace("Mappings filesystem", cfg.Paths.MappingsDir),
		CheckHostSocket(ctx, cfg.Paths.Socket, cfg.Host.Socket, time.Duration(cfg.Host.ConnectTimeout)*time.Second),
	}
	return results
}

// Fatal reports whether any check other than the host socket failed. The
// host application may legitimately not be running yet.
func Fatal(results []Result) bool {
	for _, r := range results {
		if !r.Passed && r.Name != hostSocketCheckName {
			return true
		}
	}
	return false
}

// CheckDirectoryAccess verifies that the directory exists and is
// readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// minFreeBytes is the floor below which the mapping store is considered at
// risk; SQLite WAL needs headroom to checkpoint.
const minFreeBytes = 16 << 20

// CheckFreeSpace verifies the filesystem holding path has usable headroom.
func CheckFreeSpace(name, path string) Result {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	free := stat.Bavail * uint64(stat.Bsize)
	if free < minFreeBytes {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: only %d bytes free)", path, free)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d MiB free)", path, free>>20)}
}

const hostSocketCheckName = "Host application socket"

// CheckHostSocket verifies the capability socket accepts connections, and
// that it is not the daemon's own IPC socket (a configuration mixup that
// would deadlock the engine against itself).
func CheckHostSocket(_ context.Context, ipcSocket, hostSocket string, timeout time.Duration) Result {
	if hostSocket == "" {
		return Result{Name: hostSocketCheckName, Detail: "not configured"}
	}
	if hostSocket == ipcSocket {
		return Result{Name: hostSocketCheckName, Detail: fmt.Sprintf("%s (error: host socket equals IPC socket)", hostSocket)}
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	conn, err := net.DialTimeout("unix", hostSocket, timeout)
	if err != nil {
		return Result{Name: hostSocketCheckName, Detail: fmt.Sprintf("%s (unreachable: %v)", hostSocket, err)}
	}
	_ = conn.Close()
	return Result{Name: hostSocketCheckName, Passed: true, Detail: fmt.Sprintf("%s (reachable)", hostSocket)}
}
