package storage

import (
	"regexp"
	"strings"

	"github.com/sigreer/hwsnap/internal/detect"
	"github.com/sigreer/hwsnap/internal/source"
)

// lsscsi output format: [H:C:T:L] type vendor model rev device
// Example: [0:0:0:0] disk SEAGATE ST8000NM0055 SN02 /dev/sda
var lsscsiLineRe = regexp.MustCompile(`^\[([^\]]+)\]\s+(\S+)\s+(.*?)\s+(/dev/\S+|-)\s*$`)

// parseLsscsi keeps disk entries. The vendor is the first word and the
// revision the last; everything between is the model.
func parseLsscsi(out source.Output) ([]Observation, error) {
	var obs []Observation
	lines := strings.Split(out.String(), "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		m := lsscsiLineRe.FindStringSubmatch(line)
		if m == nil {
			return nil, detect.ParseErrorf("lsscsi", "unexpected line %q", line)
		}
		hctl, devType, middle, device := m[1], m[2], m[3], m[4]
		// We want only disk devices, not cd, tape, enclosures etc.
		if devType != "disk" || device == "-" {
			continue
		}

		o := Observation{
			Name: detect.Str(strings.TrimPrefix(device, "/dev/")),
			HCTL: detect.Str(hctl),
		}
		fields := strings.Fields(middle)
		switch {
		case len(fields) >= 3:
			o.Vendor = detect.Ident(fields[0])
			o.Model = detect.Ident(strings.Join(fields[1:len(fields)-1], " "))
			o.Firmware = detect.Ident(fields[len(fields)-1])
		case len(fields) == 2:
			o.Vendor = detect.Ident(fields[0])
			o.Model = detect.Ident(fields[1])
		}
		obs = append(obs, o)
	}
	return obs, nil
}

func lsscsiDetector() detect.Detector[Observation] {
	return detect.Command[Observation]{
		Method:  "lsscsi",
		Rank:    5,
		Program: "lsscsi",
		Parse:   parseLsscsi,
	}
}
