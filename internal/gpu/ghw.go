package gpu

import (
	"context"

	"github.com/jaypipes/ghw"
	ghwgpu "github.com/jaypipes/ghw/pkg/gpu"

	"github.com/sigreer/hwsnap/internal/classify"
	"github.com/sigreer/hwsnap/internal/detect"
	"github.com/sigreer/hwsnap/internal/fallback"
)

func fromGhwCards(cards []*ghwgpu.GraphicsCard) []Observation {
	var obs []Observation
	for _, c := range cards {
		if c == nil {
			continue
		}
		o := Observation{PCIAddress: detect.Str(classify.CanonicalPCIAddress(c.Address))}
		if d := c.DeviceInfo; d != nil {
			o.Driver = detect.Str(d.Driver)
			if d.Vendor != nil {
				o.VendorID = detect.Str(classify.NormalizePCIID(d.Vendor.ID))
				o.Vendor = detect.Ident(d.Vendor.Name)
			}
			if d.Product != nil {
				o.DeviceID = detect.Str(classify.NormalizePCIID(d.Product.ID))
				o.Name = detect.Ident(d.Product.Name)
			}
		}
		if c.Node != nil && c.Node.ID >= 0 {
			o.NUMANode = detect.Ptr(c.Node.ID)
		}
		obs = append(obs, o)
	}
	return obs
}

func ghwDetector() detect.Detector[Observation] {
	return detect.Func[Observation]{
		Method: "ghw",
		Rank:   5,
		Desc:   "ghw.GPU",
		Fn: func(ctx context.Context, env detect.Env) ([]Observation, error) {
			info, err := ghw.GPU(fallback.GhwOptions(env.Root)...)
			if err != nil {
				return nil, err
			}
			return fromGhwCards(info.GraphicsCards), nil
		},
	}
}
