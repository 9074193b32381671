package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecRunnerMissingProgram(t *testing.T) {
	_, err := ExecRunner{}.Execute(context.Background(), "hwsnap-no-such-tool", nil, time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExecRunnerCapturesOutput(t *testing.T) {
	res, err := ExecRunner{}.Execute(context.Background(), "sh", []string{"-c", "echo hello; echo oops >&2"}, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(res.Stdout))
	assert.Equal(t, "oops\n", string(res.Stderr))
	assert.Equal(t, 0, res.ExitCode)
}

func TestExecRunnerNonZeroExit(t *testing.T) {
	res, err := ExecRunner{}.Execute(context.Background(), "sh", []string{"-c", "echo partial; exit 3"}, 5*time.Second)
	require.Error(t, err)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 3, exitErr.Code)
	assert.Equal(t, "partial\n", string(res.Stdout))
	assert.False(t, errors.Is(err, ErrPermission))
}

func TestExecRunnerPermissionMessage(t *testing.T) {
	_, err := ExecRunner{}.Execute(context.Background(), "sh", []string{"-c", "echo '/dev/mem: Permission denied' >&2; exit 1"}, 5*time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPermission)
}

func TestExecRunnerTimeoutKillsChild(t *testing.T) {
	start := time.Now()
	_, err := ExecRunner{}.Execute(context.Background(), "sh", []string{"-c", "sleep 30"}, 200*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestHostFS(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sys/block/sda/device"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sys/block/sda/size"), []byte("3907029168\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sys/block/nvme0n1"), 0o755))
	require.NoError(t, os.Symlink("../../bus/pci/drivers/ahci", filepath.Join(root, "sys/block/sda/device/driver")))

	fsys := HostFS{Root: root}

	size, err := ReadTrimmed(fsys, "/sys/block/sda/size")
	require.NoError(t, err)
	assert.Equal(t, "3907029168", size)

	names, err := fsys.ReadDir("/sys/block")
	require.NoError(t, err)
	assert.Equal(t, []string{"nvme0n1", "sda"}, names)

	driver, err := LinkBase(fsys, "/sys/block/sda/device/driver")
	require.NoError(t, err)
	assert.Equal(t, "ahci", driver)

	_, err = fsys.ReadText("/sys/block/sdb/size")
	assert.ErrorIs(t, err, ErrNotFound)
}
