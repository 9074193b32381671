package system

import (
	"context"

	"github.com/sigreer/hwsnap/internal/detect"
	"github.com/sigreer/hwsnap/internal/logging"
	"github.com/sigreer/hwsnap/internal/units"
)

// Chain returns the system detectors in priority order.
func Chain() detect.Chain[Observation] {
	return detect.NewChain(Category,
		sysfsDetector(),
		unameDetector(),
		osReleaseDetector(),
		meminfoDetector(),
		dmidecodeDetector(),
		ipmiLanDetector(),
		ipmiMcDetector(),
		gopsutilDetector(),
		ghwDetector(),
	)
}

// Identity puts every observation on the same host.
func Identity(Observation) []string {
	return []string{"system"}
}

// Resolve detects host identity. The result holds at most one record.
func Resolve(ctx context.Context, env detect.Env) detect.Result[System] {
	ctx = logging.WithCategory(ctx, Category)
	entities, errs, conflicts := detect.Resolve(ctx, env, Chain(), Identity)

	res := detect.Result[System]{Errors: errs, Conflicts: conflicts}
	for _, e := range entities {
		res.Records = append(res.Records, finish(e))
	}
	logging.FromContext(ctx).Debug().
		Int("records", len(res.Records)).
		Int("errors", len(res.Errors)).
		Msg("system resolved")
	return res
}

func finish(e detect.Entity[Observation]) System {
	s := System{Observation: e.Record, Sources: e.Sources}
	if s.MemTotalBytes != nil {
		s.MemTotalGiB = detect.Ptr(units.GiB(*s.MemTotalBytes))
	}
	return s
}
