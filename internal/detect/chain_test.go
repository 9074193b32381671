package detect

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigreer/hwsnap/internal/logging"
	"github.com/sigreer/hwsnap/internal/source"
	"github.com/sigreer/hwsnap/internal/source/sourcetest"
)

func staticDetector(name string, rank int, recs []testDisk, err error) Detector[testDisk] {
	return Func[testDisk]{
		Method: name,
		Rank:   rank,
		Desc:   "static",
		Fn: func(ctx context.Context, env Env) ([]testDisk, error) {
			return recs, err
		},
	}
}

func TestChainRunsEveryDetector(t *testing.T) {
	chain := NewChain("storage",
		staticDetector("ghw", 7, []testDisk{{Name: Ptr("sda"), Model: Ptr("ghw-model")}}, nil),
		staticDetector("sysfs", 0, []testDisk{{Name: Ptr("sda")}}, nil),
		staticDetector("lsblk", 2, nil, fmt.Errorf("lsblk: %w", source.ErrNotFound)),
		staticDetector("smartctl", 4, nil, &source.ExitError{Program: "smartctl", Code: 2}),
		staticDetector("nvme", 3, nil, ParseErrorf("nvme list", "unexpected token")),
		staticDetector("dmidecode", 5, nil, fmt.Errorf("x: %w", source.ErrPermission)),
	)

	out := chain.Run(context.Background(), Env{Strict: true})

	require.Len(t, out.Partials, 2)
	assert.Equal(t, "sysfs", out.Partials[0].Source)
	assert.Equal(t, "ghw", out.Partials[1].Source)

	kinds := map[string]Kind{}
	for _, e := range out.Errors {
		kinds[e.Detector] = e.Kind
		assert.Equal(t, "storage", e.Category)
	}
	assert.Equal(t, map[string]Kind{
		"lsblk":     Unavailable,
		"smartctl":  ExecutionFailed,
		"nvme":      ParseFailed,
		"dmidecode": PermissionDenied,
	}, kinds)
}

func TestChainLogsCategoryOnce(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(logging.Config{Level: zerolog.DebugLevel, Format: "json", Out: &buf})
	ctx := logging.WithCategory(logging.WithContext(context.Background(), logger), "storage")

	chain := NewChain("storage",
		staticDetector("sysfs", 0, []testDisk{{Name: Ptr("sda")}}, nil),
		staticDetector("smartctl", 1, nil, &source.ExitError{Program: "smartctl", Code: 2}),
		staticDetector("ghw", 2, nil, nil),
	)
	chain.Run(ctx, Env{Strict: true, Disabled: map[string]bool{"storage/ghw": true}})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.GreaterOrEqual(t, len(lines), 3, buf.String())
	for _, line := range lines {
		assert.Equal(t, 1, strings.Count(line, `"category":`), line)
		assert.Contains(t, line, `"category":"storage"`)
	}
}

func TestChainAllFailingIsNotAnError(t *testing.T) {
	chain := NewChain("gpu",
		staticDetector("a", 0, nil, errors.New("boom")),
		staticDetector("b", 1, nil, fmt.Errorf("b: %w", source.ErrNotFound)),
	)
	out := chain.Run(context.Background(), Env{})
	assert.Empty(t, out.Partials)
	assert.Len(t, out.Errors, 2)
}

func TestChainTimeoutIsExecutionFailed(t *testing.T) {
	slow := Func[testDisk]{
		Method: "slow",
		Rank:   0,
		Fn: func(ctx context.Context, env Env) ([]testDisk, error) {
			time.Sleep(2 * time.Second)
			return []testDisk{{Name: Ptr("sda")}}, nil
		},
	}
	chain := NewChain("storage", Detector[testDisk](slow), staticDetector("fast", 1, []testDisk{{Name: Ptr("sdb")}}, nil))

	start := time.Now()
	out := chain.Run(context.Background(), Env{AttemptTimeout: 50 * time.Millisecond})
	assert.Less(t, time.Since(start), time.Second)

	require.Len(t, out.Errors, 1)
	assert.Equal(t, ExecutionFailed, out.Errors[0].Kind)
	assert.ErrorIs(t, out.Errors[0], source.ErrTimeout)
	require.Len(t, out.Partials, 1)
	assert.Equal(t, "sdb", *out.Partials[0].Record.Name)
}

func TestChainRecoversParserPanic(t *testing.T) {
	chain := NewChain("cpu", Detector[testDisk](Func[testDisk]{
		Method: "broken",
		Fn: func(ctx context.Context, env Env) ([]testDisk, error) {
			var m map[string]int
			m["x"] = 1
			return nil, nil
		},
	}))
	out := chain.Run(context.Background(), Env{})
	require.Len(t, out.Errors, 1)
	assert.Equal(t, ParseFailed, out.Errors[0].Kind)
}

func TestChainDisabledDetector(t *testing.T) {
	chain := NewChain("storage",
		staticDetector("sysfs", 0, []testDisk{{Name: Ptr("sda")}}, nil),
		staticDetector("sas3ircu", 6, []testDisk{{Serial: Ptr("X")}}, nil),
	)
	out := chain.Run(context.Background(), Env{Disabled: map[string]bool{"storage/sas3ircu": true}})
	require.Len(t, out.Partials, 1)
	assert.Equal(t, "sysfs", out.Partials[0].Source)
	assert.Empty(t, out.Errors)
}

func TestChainUnitContract(t *testing.T) {
	bad := staticDetector("bad", 0, []testDisk{{Name: Ptr("sda"), SizeBytes: Ptr(int64(-512))}}, nil)
	chain := NewChain("storage", bad)

	out := chain.Run(context.Background(), Env{})
	assert.Empty(t, out.Partials)
	require.Len(t, out.Errors, 1)
	assert.Equal(t, ParseFailed, out.Errors[0].Kind)

	assert.Panics(t, func() {
		chain.Run(context.Background(), Env{Strict: true})
	})
}

func TestCommandDetector(t *testing.T) {
	runner := sourcetest.NewRunner().On("lsblk -J", `sda`)
	runner.Responses["smartctl -i /dev/sda"] = sourcetest.Response{Stdout: "Serial Number: X", ExitCode: 4}

	parse := func(out source.Output) ([]testDisk, error) {
		return []testDisk{{Name: Ptr(out.String())}}, nil
	}
	env := Env{Runner: runner}

	lsblk := Command[testDisk]{Method: "lsblk", Program: "lsblk", Args: []string{"-J"}, Parse: parse}
	recs, err := lsblk.Attempt(context.Background(), env)
	require.NoError(t, err)
	assert.Equal(t, "sda", *recs[0].Name)
	assert.Equal(t, "lsblk -J", lsblk.Source())

	smart := Command[testDisk]{Method: "smartctl", Program: "smartctl", Args: []string{"-i", "/dev/sda"}, Parse: parse}
	_, err = smart.Attempt(context.Background(), env)
	assert.Error(t, err)

	smart.Accept = func(code int) bool { return code&0x3 == 0 }
	recs, err = smart.Attempt(context.Background(), env)
	require.NoError(t, err)
	assert.Equal(t, "Serial Number: X", *recs[0].Name)
}

func TestFileDetector(t *testing.T) {
	tree := sourcetest.NewTree(t).File("/proc/cpuinfo", "processor\t: 0\n")
	f := File[testDisk]{
		Method: "cpuinfo",
		Path:   "/proc/cpuinfo",
		Parse: func(out source.Output) ([]testDisk, error) {
			assert.Equal(t, "/proc/cpuinfo", out.Source)
			return []testDisk{{Model: Ptr(out.String())}}, nil
		},
	}
	recs, err := f.Attempt(context.Background(), Env{FS: tree.FS()})
	require.NoError(t, err)
	assert.Equal(t, "processor\t: 0\n", *recs[0].Model)

	_, err = File[testDisk]{Method: "missing", Path: "/proc/nope"}.Attempt(context.Background(), Env{FS: tree.FS()})
	assert.Equal(t, Unavailable, Classify(err))
}

func TestDescribe(t *testing.T) {
	chain := NewChain("storage",
		Detector[testDisk](Command[testDisk]{Method: "lsblk", Rank: 2, Program: "lsblk", Args: []string{"-J"}}),
		Detector[testDisk](File[testDisk]{Method: "cpuinfo", Rank: 1, Path: "/proc/cpuinfo"}),
	)
	d := chain.Describe()
	require.Len(t, d, 2)
	assert.Equal(t, Descriptor{Category: "storage", Name: "cpuinfo", Priority: 1, Source: "/proc/cpuinfo"}, d[0])
	assert.Equal(t, "lsblk -J", d[1].Source)
}
