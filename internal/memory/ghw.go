package memory

import (
	"context"

	"github.com/jaypipes/ghw"
	ghwmemory "github.com/jaypipes/ghw/pkg/memory"

	"github.com/sigreer/hwsnap/internal/detect"
	"github.com/sigreer/hwsnap/internal/fallback"
)

func fromGhwModules(modules []*ghwmemory.Module) []Observation {
	var obs []Observation
	for _, m := range modules {
		if m == nil {
			continue
		}
		o := Observation{
			Locator:      edacLocator(m.Label),
			Label:        detect.Ident(m.Label),
			EDACLocation: detect.Ident(m.Location),
			Serial:       detect.Ident(m.SerialNumber),
			Manufacturer: detect.Ident(m.Vendor),
		}
		if m.SizeBytes > 0 {
			o.SizeBytes = detect.Ptr(m.SizeBytes)
			o.Populated = detect.Ptr(true)
		}
		if o.Locator == nil && o.Serial == nil {
			continue
		}
		obs = append(obs, o)
	}
	return obs
}

func ghwDetector() detect.Detector[Observation] {
	return detect.Func[Observation]{
		Method: "ghw",
		Rank:   2,
		Desc:   "ghw.Memory",
		Fn: func(ctx context.Context, env detect.Env) ([]Observation, error) {
			info, err := ghw.Memory(fallback.GhwOptions(env.Root)...)
			if err != nil {
				return nil, err
			}
			return fromGhwModules(info.Modules), nil
		},
	}
}
