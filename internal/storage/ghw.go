package storage

import (
	"context"
	"strings"

	"github.com/jaypipes/ghw"
	"github.com/jaypipes/ghw/pkg/block"

	"github.com/sigreer/hwsnap/internal/detect"
	"github.com/sigreer/hwsnap/internal/fallback"
)

// fromGhwDisks converts ghw's block inventory. ghw reports "unknown" for
// values it could not read; Ident drops those.
func fromGhwDisks(disks []*block.Disk) []Observation {
	var obs []Observation
	for _, d := range disks {
		if d == nil {
			continue
		}
		o := Observation{
			Name:      detect.Str(d.Name),
			Model:     detect.Ident(d.Model),
			Vendor:    detect.Ident(d.Vendor),
			Serial:    detect.Ident(d.SerialNumber),
			WWN:       normalizeWWN(d.WWN),
			Removable: detect.Ptr(d.IsRemovable),
		}
		if d.SizeBytes > 0 {
			o.SizeBytes = detect.Ptr(int64(d.SizeBytes))
		}
		if d.PhysicalBlockSizeBytes > 0 {
			o.PhysicalBlockSize = detect.Ptr(int(d.PhysicalBlockSizeBytes))
		}
		switch strings.ToUpper(d.DriveType.String()) {
		case "HDD":
			o.Rotational = detect.Ptr(true)
		case "SSD":
			o.Rotational = detect.Ptr(false)
		}
		switch strings.ToLower(d.StorageController.String()) {
		case "nvme":
			o.Transport = detect.Str("nvme")
		case "scsi":
			o.Transport = detect.Str("scsi")
		case "virtio":
			o.Transport = detect.Str("virtio")
		case "mmc":
			o.Transport = detect.Str("mmc")
		}
		if d.NUMANodeID >= 0 {
			o.NUMANode = detect.Ptr(d.NUMANodeID)
		}
		obs = append(obs, o)
	}
	return obs
}

func ghwDetector() detect.Detector[Observation] {
	return detect.Func[Observation]{
		Method: "ghw",
		Rank:   7,
		Desc:   "ghw.Block",
		Fn: func(ctx context.Context, env detect.Env) ([]Observation, error) {
			info, err := ghw.Block(fallback.GhwOptions(env.Root)...)
			if err != nil {
				return nil, err
			}
			return fromGhwDisks(info.Disks), nil
		},
	}
}
