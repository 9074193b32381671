// Package fallback points the cross-platform hardware libraries at the
// same filesystem root the pseudo-file detectors read from. Those
// libraries back the lowest-priority detector of each category.
package fallback

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/jaypipes/ghw"
	"github.com/shirou/gopsutil/v4/common"
	"golang.org/x/sys/unix"

	"github.com/sigreer/hwsnap/internal/source"
)

// Relocated reports whether root points somewhere other than the live
// host. Probes that can only describe the running kernel, such as
// uname(2), must not run then.
func Relocated(root string) bool {
	return root != "" && root != "/"
}

// GopsutilContext returns ctx carrying gopsutil's host path overrides so
// its readers see root instead of the live /proc and /sys.
func GopsutilContext(ctx context.Context, root string) context.Context {
	if !Relocated(root) {
		return ctx
	}
	return context.WithValue(ctx, common.EnvKey, common.EnvMap{
		common.HostRootEnvKey: root,
		common.HostProcEnvKey: filepath.Join(root, "proc"),
		common.HostSysEnvKey:  filepath.Join(root, "sys"),
		common.HostEtcEnvKey:  filepath.Join(root, "etc"),
		common.HostRunEnvKey:  filepath.Join(root, "run"),
		common.HostDevEnvKey:  filepath.Join(root, "dev"),
		common.HostVarEnvKey:  filepath.Join(root, "var"),
	})
}

// GhwOptions returns ghw options for root. ghw warnings go to stderr
// unconditionally, so they are silenced; failures surface as errors.
func GhwOptions(root string) []*ghw.WithOption {
	opts := []*ghw.WithOption{ghw.WithDisableWarnings()}
	if Relocated(root) {
		opts = append(opts, ghw.WithChroot(root))
	}
	return opts
}

// UnameInfo is the subset of uname(2) the detectors use.
type UnameInfo struct {
	Sysname  string
	Nodename string
	Release  string
	Version  string
	Machine  string
}

// Uname calls uname(2). It describes the running kernel, so it reports
// ErrNotFound when root is relocated.
func Uname(root string) (UnameInfo, error) {
	if Relocated(root) {
		return UnameInfo{}, fmt.Errorf("uname describes the running kernel, not %s: %w", root, source.ErrNotFound)
	}
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return UnameInfo{}, fmt.Errorf("uname: %w", err)
	}
	return UnameInfo{
		Sysname:  unix.ByteSliceToString(u.Sysname[:]),
		Nodename: unix.ByteSliceToString(u.Nodename[:]),
		Release:  unix.ByteSliceToString(u.Release[:]),
		Version:  unix.ByteSliceToString(u.Version[:]),
		Machine:  unix.ByteSliceToString(u.Machine[:]),
	}, nil
}
