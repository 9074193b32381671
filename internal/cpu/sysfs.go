package cpu

import (
	"context"
	"path"
	"strconv"
	"strings"

	"github.com/sigreer/hwsnap/internal/detect"
	"github.com/sigreer/hwsnap/internal/source"
	"github.com/sigreer/hwsnap/internal/units"
)

const cpuBase = "/sys/devices/system/cpu"

// sysfsThread is the topology of one online logical CPU.
type sysfsThread struct {
	Package  string
	Core     string
	Siblings string // thread_siblings_list, e.g. "0,96" or "0-1"
}

type sysfsCache struct {
	Level string
	Type  string // Data, Instruction, Unified
	Size  string // "48K"
}

// sysfsTopology is the raw snapshot the sysfs detector parses.
type sysfsTopology struct {
	Threads []sysfsThread
	MinKHz  string
	MaxKHz  string
	BaseKHz string
	Caches  []sysfsCache
	Nodes   int
}

// isIndexed reports whether name is prefix followed by digits only, so
// cpu0 matches but cpufreq and cpuidle do not.
func isIndexed(name, prefix string) bool {
	suffix, ok := strings.CutPrefix(name, prefix)
	if !ok || suffix == "" {
		return false
	}
	for _, c := range suffix {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func readSysfsTopology(fsys source.FS) (sysfsTopology, error) {
	var topo sysfsTopology
	entries, err := fsys.ReadDir(cpuBase)
	if err != nil {
		return topo, err
	}

	first := ""
	for _, name := range entries {
		if !isIndexed(name, "cpu") {
			continue
		}
		dir := path.Join(cpuBase, name, "topology")
		pkg, err := source.ReadTrimmed(fsys, path.Join(dir, "physical_package_id"))
		if err != nil {
			// Offline CPUs have no topology directory
			continue
		}
		core, _ := source.ReadTrimmed(fsys, path.Join(dir, "core_id"))
		siblings, _ := source.ReadTrimmed(fsys, path.Join(dir, "thread_siblings_list"))
		topo.Threads = append(topo.Threads, sysfsThread{Package: pkg, Core: core, Siblings: siblings})
		if first == "" {
			first = name
		}
	}
	if first == "" {
		return topo, nil
	}

	freq := path.Join(cpuBase, first, "cpufreq")
	topo.MinKHz, _ = source.ReadTrimmed(fsys, path.Join(freq, "cpuinfo_min_freq"))
	topo.MaxKHz, _ = source.ReadTrimmed(fsys, path.Join(freq, "cpuinfo_max_freq"))
	topo.BaseKHz, _ = source.ReadTrimmed(fsys, path.Join(freq, "base_frequency"))

	cacheDir := path.Join(cpuBase, first, "cache")
	indexes, _ := fsys.ReadDir(cacheDir)
	for _, idx := range indexes {
		if !isIndexed(idx, "index") {
			continue
		}
		var c sysfsCache
		c.Level, _ = source.ReadTrimmed(fsys, path.Join(cacheDir, idx, "level"))
		c.Type, _ = source.ReadTrimmed(fsys, path.Join(cacheDir, idx, "type"))
		c.Size, _ = source.ReadTrimmed(fsys, path.Join(cacheDir, idx, "size"))
		topo.Caches = append(topo.Caches, c)
	}

	if nodes, err := fsys.ReadDir("/sys/devices/system/node"); err == nil {
		for _, n := range nodes {
			if isIndexed(n, "node") {
				topo.Nodes++
			}
		}
	}
	return topo, nil
}

// parseSysfsTopology counts unique packages for sockets and unique
// (package, core) pairs for physical cores.
func parseSysfsTopology(topo sysfsTopology) []Observation {
	if len(topo.Threads) == 0 {
		return nil
	}
	var o Observation

	type coreKey struct{ pkg, core string }
	packages := make(map[string]struct{})
	cores := make(map[coreKey]struct{})
	for _, t := range topo.Threads {
		packages[t.Package] = struct{}{}
		if t.Core != "" {
			cores[coreKey{t.Package, t.Core}] = struct{}{}
		}
	}
	o.Sockets = detect.Ptr(len(packages))
	o.LogicalCPUs = detect.Ptr(len(topo.Threads))
	if len(cores) > 0 {
		o.PhysicalCores = detect.Ptr(len(cores))
		if len(cores)%len(packages) == 0 {
			o.CoresPerSocket = detect.Ptr(len(cores) / len(packages))
		}
		if len(topo.Threads)%len(cores) == 0 {
			o.ThreadsPerCore = detect.Ptr(len(topo.Threads) / len(cores))
		}
	}
	// Without core ids the sibling list is the only hint. When core ids
	// exist but do not divide the thread count the cores are mixed (P-cores
	// with SMT beside E-cores without) and no single value is right.
	if len(cores) == 0 && topo.Threads[0].Siblings != "" {
		o.ThreadsPerCore = detect.Ptr(countCPUList(topo.Threads[0].Siblings))
	}

	if mhz, err := units.ParseKHz(topo.MinKHz); err == nil && mhz > 0 {
		o.MinMHz = &mhz
	}
	if mhz, err := units.ParseKHz(topo.MaxKHz); err == nil && mhz > 0 {
		o.MaxMHz = &mhz
	}
	if mhz, err := units.ParseKHz(topo.BaseKHz); err == nil && mhz > 0 {
		o.BaseMHz = &mhz
	}

	for _, c := range topo.Caches {
		kb, err := units.ParseCacheKB(c.Size)
		if err != nil {
			continue
		}
		switch {
		case c.Level == "1" && c.Type == "Data":
			o.L1dKB = &kb
		case c.Level == "1" && c.Type == "Instruction":
			o.L1iKB = &kb
		case c.Level == "2":
			o.L2KB = &kb
		case c.Level == "3":
			o.L3KB = &kb
		}
	}

	if topo.Nodes > 0 {
		o.NUMANodes = detect.Ptr(topo.Nodes)
	}
	return []Observation{o}
}

// countCPUList counts the CPUs in a kernel cpu list such as "0,96",
// "0-1" or "0-3,8-11".
func countCPUList(s string) int {
	n := 0
	for _, part := range strings.Split(strings.TrimSpace(s), ",") {
		lo, hi, isRange := strings.Cut(part, "-")
		if !isRange {
			if part != "" {
				n++
			}
			continue
		}
		a, errA := strconv.Atoi(lo)
		b, errB := strconv.Atoi(hi)
		if errA == nil && errB == nil && b >= a {
			n += b - a + 1
		}
	}
	return n
}

func sysfsDetector() detect.Detector[Observation] {
	return detect.Func[Observation]{
		Method: "sysfs",
		Rank:   0,
		Desc:   cpuBase + "/cpu*",
		Fn: func(ctx context.Context, env detect.Env) ([]Observation, error) {
			topo, err := readSysfsTopology(env.FS)
			if err != nil {
				return nil, err
			}
			return parseSysfsTopology(topo), nil
		},
	}
}
