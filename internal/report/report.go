// Package report runs the category orchestrators and assembles their
// output into one host snapshot.
package report

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sigreer/hwsnap/internal/cache"
	"github.com/sigreer/hwsnap/internal/cpu"
	"github.com/sigreer/hwsnap/internal/detect"
	"github.com/sigreer/hwsnap/internal/fallback"
	"github.com/sigreer/hwsnap/internal/gpu"
	"github.com/sigreer/hwsnap/internal/logging"
	"github.com/sigreer/hwsnap/internal/memory"
	"github.com/sigreer/hwsnap/internal/network"
	"github.com/sigreer/hwsnap/internal/source"
	"github.com/sigreer/hwsnap/internal/storage"
	"github.com/sigreer/hwsnap/internal/system"
	"github.com/sigreer/hwsnap/internal/version"
)

// ErrUnknownCategory is returned for a category name no orchestrator
// handles.
var ErrUnknownCategory = errors.New("unknown category")

// Report is one snapshot of a host. It is valid even when every
// category came back empty.
type Report struct {
	ID          string    `json:"id" yaml:"id"`
	Version     string    `json:"version" yaml:"version"`
	Hostname    string    `json:"hostname" yaml:"hostname"`
	CollectedAt time.Time `json:"collected_at" yaml:"collected_at"`
	Categories  []string  `json:"categories" yaml:"categories"`

	System  *system.System      `json:"system,omitempty" yaml:"system,omitempty"`
	CPU     []cpu.CPU           `json:"cpu" yaml:"cpu"`
	Memory  []memory.Module     `json:"memory" yaml:"memory"`
	Storage []storage.Disk      `json:"storage" yaml:"storage"`
	GPU     []gpu.GPU           `json:"gpu" yaml:"gpu"`
	Network []network.Interface `json:"network" yaml:"network"`

	Totals      Totals       `json:"totals" yaml:"totals"`
	Diagnostics []Diagnostic `json:"diagnostics" yaml:"diagnostics"`
	Conflicts   []Conflict   `json:"conflicts" yaml:"conflicts"`
}

// Totals are derived from the resolved records.
type Totals struct {
	LogicalCPUs  int   `json:"logical_cpus" yaml:"logical_cpus"`
	MemoryBytes  int64 `json:"memory_bytes" yaml:"memory_bytes"`
	DIMMs        int   `json:"dimms" yaml:"dimms"`
	StorageBytes int64 `json:"storage_bytes" yaml:"storage_bytes"`
	Disks        int   `json:"disks" yaml:"disks"`
	GPUs         int   `json:"gpus" yaml:"gpus"`
	NICs         int   `json:"nics" yaml:"nics"`
}

// Diagnostic is one failed detector attempt.
type Diagnostic struct {
	Category string      `json:"category" yaml:"category"`
	Detector string      `json:"detector" yaml:"detector"`
	Kind     detect.Kind `json:"kind" yaml:"kind"`
	Message  string      `json:"message" yaml:"message"`
}

// Conflict is a merge disagreement tagged with its category.
type Conflict struct {
	Category        string `json:"category" yaml:"category"`
	detect.Conflict `yaml:",inline"`
}

type collectFunc func(ctx context.Context, env detect.Env, r *Report) ([]*detect.Error, []detect.Conflict)

type section struct {
	name     string
	describe func() []detect.Descriptor
	collect  collectFunc
}

func store[T any](resolve func(context.Context, detect.Env) detect.Result[T], set func(*Report, []T)) collectFunc {
	return func(ctx context.Context, env detect.Env, r *Report) ([]*detect.Error, []detect.Conflict) {
		res := resolve(ctx, env)
		set(r, res.Records)
		return res.Errors, res.Conflicts
	}
}

var sections = []section{
	{system.Category, system.Chain().Describe, store(system.Resolve, func(r *Report, recs []system.System) {
		if len(recs) > 0 {
			r.System = &recs[0]
		}
	})},
	{cpu.Category, cpu.Chain().Describe, store(cpu.Resolve, func(r *Report, recs []cpu.CPU) { r.CPU = recs })},
	{memory.Category, memory.Chain().Describe, store(memory.Resolve, func(r *Report, recs []memory.Module) { r.Memory = recs })},
	{storage.Category, storage.Chain().Describe, store(storage.Resolve, func(r *Report, recs []storage.Disk) { r.Storage = recs })},
	{gpu.Category, gpu.Chain().Describe, store(gpu.Resolve, func(r *Report, recs []gpu.GPU) { r.GPU = recs })},
	{network.Category, network.Chain().Describe, store(network.Resolve, func(r *Report, recs []network.Interface) { r.Network = recs })},
}

// Categories lists every category in report order.
func Categories() []string {
	names := make([]string, len(sections))
	for i, s := range sections {
		names[i] = s.name
	}
	return names
}

// Describe lists the detectors of the named categories, all of them when
// none are given.
func Describe(categories ...string) ([]detect.Descriptor, error) {
	selected, err := selectSections(categories)
	if err != nil {
		return nil, err
	}
	var out []detect.Descriptor
	for _, s := range selected {
		out = append(out, s.describe()...)
	}
	return out, nil
}

func selectSections(categories []string) ([]section, error) {
	if len(categories) == 0 {
		return sections, nil
	}
	want := make(map[string]bool, len(categories))
	for _, c := range categories {
		c = strings.ToLower(strings.TrimSpace(c))
		if !slices.Contains(Categories(), c) {
			return nil, fmt.Errorf("%w: %q (valid: %s)", ErrUnknownCategory, c, strings.Join(Categories(), ", "))
		}
		want[c] = true
	}
	var out []section
	for _, s := range sections {
		if want[s.name] {
			out = append(out, s)
		}
	}
	return out, nil
}

// Collect runs the selected categories concurrently, all of them when
// categories is empty. Detector failures end up in Diagnostics; the only
// error is an unknown category name or a cancelled context.
func Collect(ctx context.Context, env detect.Env, categories []string) (*Report, error) {
	selected, err := selectSections(categories)
	if err != nil {
		return nil, err
	}
	ctx = logging.WithComponent(ctx, "report")
	log := logging.FromContext(ctx)

	// Categories probing the same command line (lspci for GPUs and NICs)
	// share one execution. The memo lives for this call only.
	if env.Runner != nil {
		env.Runner = cache.NewRunner(env.Runner, cache.TTLSnapshot)
	}

	r := &Report{
		ID:          uuid.NewString(),
		Version:     version.Version,
		CollectedAt: time.Now().UTC(),
	}
	errs := make([][]*detect.Error, len(selected))
	conflicts := make([][]detect.Conflict, len(selected))

	// Each section writes only its own Report field and slot.
	g, gctx := errgroup.WithContext(ctx)
	for i, s := range selected {
		r.Categories = append(r.Categories, s.name)
		g.Go(func() error {
			start := time.Now()
			errs[i], conflicts[i] = s.collect(gctx, env, r)
			log.Debug().
				Str("category", s.name).
				Dur("duration", time.Since(start)).
				Msg("category collected")
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for i, s := range selected {
		for _, e := range errs[i] {
			r.Diagnostics = append(r.Diagnostics, Diagnostic{
				Category: e.Category,
				Detector: e.Detector,
				Kind:     e.Kind,
				Message:  e.Err.Error(),
			})
		}
		for _, c := range conflicts[i] {
			r.Conflicts = append(r.Conflicts, Conflict{Category: s.name, Conflict: c})
		}
	}
	r.Hostname = hostname(r, env)
	r.Totals = totals(r)

	log.Info().
		Str("id", r.ID).
		Int("diagnostics", len(r.Diagnostics)).
		Int("conflicts", len(r.Conflicts)).
		Msg("snapshot collected")
	return r, nil
}

// hostname prefers the resolved system record, then /etc/hostname under
// the root, then the live kernel's name when the root is not relocated.
func hostname(r *Report, env detect.Env) string {
	if r.System != nil && r.System.Hostname != nil {
		return *r.System.Hostname
	}
	if env.FS != nil {
		if h, err := source.ReadTrimmed(env.FS, "/etc/hostname"); err == nil && h != "" {
			return h
		}
	}
	if !fallback.Relocated(env.Root) {
		if h, err := os.Hostname(); err == nil {
			return h
		}
	}
	return ""
}

func totals(r *Report) Totals {
	t := Totals{
		MemoryBytes: memory.TotalBytes(r.Memory),
		DIMMs:       len(r.Memory),
		Disks:       len(r.Storage),
		GPUs:        len(r.GPU),
		NICs:        len(r.Network),
	}
	for _, c := range r.CPU {
		t.LogicalCPUs += detect.Deref(c.TotalThreads)
	}
	for _, d := range r.Storage {
		t.StorageBytes += detect.Deref(d.SizeBytes)
	}
	return t
}
