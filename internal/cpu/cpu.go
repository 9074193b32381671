package cpu

import (
	"context"
	"strconv"

	"github.com/sigreer/hwsnap/internal/classify"
	"github.com/sigreer/hwsnap/internal/detect"
	"github.com/sigreer/hwsnap/internal/logging"
)

// Chain returns the CPU detectors in priority order.
func Chain() detect.Chain[Observation] {
	return detect.NewChain(Category,
		sysfsDetector(),
		unameDetector(),
		cpuinfoDetector(),
		lscpuDetector(),
		dmidecodeDetector(),
		gopsutilDetector(),
	)
}

// Identity puts every observation on the single host CPU entity.
func Identity(Observation) []string {
	return []string{detect.Key("cpu", "host")}
}

// Resolve detects the host processor. The result holds at most one
// record; none when every detector failed.
func Resolve(ctx context.Context, env detect.Env) detect.Result[CPU] {
	ctx = logging.WithCategory(ctx, Category)
	entities, errs, conflicts := detect.Resolve(ctx, env, Chain(), Identity)

	res := detect.Result[CPU]{Errors: errs, Conflicts: conflicts}
	for _, e := range entities {
		c, disagree := finish(e)
		res.Records = append(res.Records, c)
		res.Conflicts = append(res.Conflicts, disagree...)
	}
	logging.FromContext(ctx).Debug().
		Int("records", len(res.Records)).
		Int("errors", len(res.Errors)).
		Msg("cpu resolved")
	return res
}

// finish derives the normalized fields. Totals prefer the counts observed
// directly over the sockets x cores x threads product: hybrid parts mix
// cores with and without SMT, so the product overstates them. A product
// that disagrees with the observed count is reported as a conflict.
func finish(e detect.Entity[Observation]) (CPU, []detect.Conflict) {
	c := CPU{Observation: e.Record, Sources: e.Sources}

	if c.VendorID != nil && c.Vendor == nil {
		c.Vendor = detect.Str(classify.CPUVendor(*c.VendorID))
	}
	if c.Microarchitecture == nil {
		c.Microarchitecture = microarchitecture(c.Observation)
	}

	var conflicts []detect.Conflict
	total := func(field string, observed *int, product *int, from string) *int {
		switch {
		case observed == nil:
			return product
		case product != nil && *product != *observed:
			conflicts = append(conflicts, detect.Conflict{
				Entity:      firstKey(e.Keys),
				Field:       field,
				Kept:        strconv.Itoa(*observed),
				KeptFrom:    "observed",
				Ignored:     strconv.Itoa(*product),
				IgnoredFrom: from,
			})
		}
		return detect.Ptr(*observed)
	}

	var cores, threads *int
	if c.Sockets != nil && c.CoresPerSocket != nil {
		cores = detect.Ptr(*c.Sockets * *c.CoresPerSocket)
	}
	c.TotalCores = total("total_cores", c.PhysicalCores, cores, "sockets x cores_per_socket")
	if c.TotalCores != nil && c.ThreadsPerCore != nil {
		threads = detect.Ptr(*c.TotalCores * *c.ThreadsPerCore)
	}
	c.TotalThreads = total("total_threads", c.LogicalCPUs, threads, "total_cores x threads_per_core")
	return c, conflicts
}

func firstKey(keys []string) string {
	if len(keys) == 0 {
		return ""
	}
	return keys[0]
}

// microarchitecture classifies from family/model or implementer/part.
// It is nil when neither pair is known and Unknown when the table has
// no entry.
func microarchitecture(o Observation) *string {
	switch {
	case o.Implementer != nil && o.Part != nil:
		return detect.Str(classify.ArmMicroarchitecture(*o.Implementer, *o.Part))
	case o.VendorID != nil && o.Family != nil && o.ModelID != nil:
		return detect.Str(classify.X86Microarchitecture(*o.VendorID, *o.Family, *o.ModelID))
	case o.Vendor != nil && o.Family != nil && o.ModelID != nil:
		return detect.Str(classify.X86Microarchitecture(*o.Vendor, *o.Family, *o.ModelID))
	}
	return nil
}
