package storage

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/sigreer/hwsnap/internal/classify"
	"github.com/sigreer/hwsnap/internal/detect"
	"github.com/sigreer/hwsnap/internal/source"
)

var (
	reSmartSerial   = regexp.MustCompile(`(?m)^Serial [Nn]umber:\s+(\S+)`)
	reSmartWWN      = regexp.MustCompile(`(?m)^LU WWN Device Id:\s+(\S+(?:\s+\S+)*)`)
	reSmartLUID     = regexp.MustCompile(`(?m)^Logical Unit id:\s+(\S+)`)
	reSmartModel    = regexp.MustCompile(`(?m)^(?:Device Model|Model Number|Product):\s+(.+)$`)
	reSmartVendor   = regexp.MustCompile(`(?m)^Vendor:\s+(.+)$`)
	reSmartFirmware = regexp.MustCompile(`(?m)^(?:Firmware Version|Revision):\s+(\S+)`)
	reSmartCapacity = regexp.MustCompile(`(?m)^(?:User Capacity|Total NVM Capacity|Namespace 1 Size/Capacity):\s+([\d,.]+)`)
	reSmartRotation = regexp.MustCompile(`(?m)^Rotation Rate:\s+(.+)$`)
	reSmartForm     = regexp.MustCompile(`(?m)^Form Factor:\s+(.+)$`)
	reSmartSectors  = regexp.MustCompile(`(?m)^Sector Sizes?:\s+(\d+) bytes logical(?:, (\d+) bytes physical)?`)
	reSmartLogical  = regexp.MustCompile(`(?m)^Logical block size:\s+(\d+) bytes`)
	reSmartProtocol = regexp.MustCompile(`(?m)^Transport protocol:\s+(\S+)`)
	reSmartSATA     = regexp.MustCompile(`(?m)^SATA Version is:`)
	reSmartHealth   = regexp.MustCompile(`(?m)^(?:SMART overall-health self-assessment test result|SMART Health Status):\s+(\S+)`)
)

// parseSmartctl parses `smartctl -i -H` text output for one device.
func parseSmartctl(name string, out source.Output) (Observation, error) {
	text := out.String()
	o := Observation{Name: detect.Str(name)}

	if !strings.Contains(text, "=== START OF INFORMATION SECTION ===") {
		return o, detect.ParseErrorf("smartctl", "%s: no information section", name)
	}

	match := func(re *regexp.Regexp) string {
		if m := re.FindStringSubmatch(text); len(m) > 1 {
			return strings.TrimSpace(m[1])
		}
		return ""
	}

	o.Serial = detect.Ident(match(reSmartSerial))
	o.Model = detect.Ident(match(reSmartModel))
	o.Vendor = detect.Ident(match(reSmartVendor))
	o.Firmware = detect.Ident(match(reSmartFirmware))

	// Normalize WWN format (remove spaces)
	if w := match(reSmartWWN); w != "" {
		o.WWN = normalizeWWN(strings.ReplaceAll(w, " ", ""))
	} else if luid := match(reSmartLUID); luid != "" {
		o.WWN = normalizeWWN(luid)
	}

	if c := match(reSmartCapacity); c != "" {
		digits := strings.NewReplacer(",", "", ".", "").Replace(c)
		if n, err := strconv.ParseInt(digits, 10, 64); err == nil && n > 0 {
			o.SizeBytes = &n
		}
	}

	if r := match(reSmartRotation); r != "" {
		if strings.Contains(r, "Solid State") {
			o.Rotational = detect.Ptr(false)
		} else if rpm, err := strconv.Atoi(strings.Fields(r)[0]); err == nil && rpm > 0 {
			o.Rotational = detect.Ptr(true)
			o.RotationRPM = &rpm
		}
	}
	o.FormFactor = detect.Ident(match(reSmartForm))

	if m := reSmartSectors.FindStringSubmatch(text); len(m) > 1 {
		o.LogicalBlockSize = positiveInt(m[1])
		if len(m) > 2 {
			o.PhysicalBlockSize = positiveInt(m[2])
		}
	} else {
		o.LogicalBlockSize = positiveInt(match(reSmartLogical))
	}

	switch {
	case strings.Contains(text, "NVMe Version") || strings.Contains(text, "NVMe Log"):
		o.Transport = detect.Str("nvme")
	case reSmartSATA.MatchString(text):
		o.Transport = detect.Str("sata")
	default:
		if p := match(reSmartProtocol); p != "" {
			o.Transport = detect.Str(strings.ToLower(p))
		}
	}

	if h := match(reSmartHealth); h != "" {
		o.Health = detect.Str(strings.ToUpper(h))
	}
	return o, nil
}

// smartAccept tolerates smartctl status bits other than "command line
// did not parse" and "device open failed".
func smartAccept(code int) bool {
	return code&0x3 == 0
}

func smartDetector() detect.Detector[Observation] {
	return detect.Func[Observation]{
		Method: "smartctl",
		Rank:   4,
		Desc:   "smartctl -i -H /dev/<disk>",
		Fn: func(ctx context.Context, env detect.Env) ([]Observation, error) {
			names, err := env.FS.ReadDir("/sys/block")
			if err != nil {
				return nil, err
			}
			var disks []string
			for _, name := range names {
				if !classify.IsVirtualBlock(name) {
					disks = append(disks, name)
				}
			}
			return detect.FanOut(ctx, env, disks, func(ctx context.Context, name string) (Observation, error) {
				out, err := env.RunAccept(ctx, smartAccept, "smartctl", "-i", "-H", "/dev/"+name)
				if err != nil {
					return Observation{}, err
				}
				return parseSmartctl(name, out)
			})
		},
	}
}
