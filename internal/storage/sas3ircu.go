package storage

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/sigreer/hwsnap/internal/detect"
	"github.com/sigreer/hwsnap/internal/source"
)

// sasDevice is one "Device is a Hard disk" block of `sas3ircu <n> display`.
type sasDevice struct {
	EnclosureID  int
	Slot         int
	SASAddress   string
	Manufacturer string
	Model        string
	Serial       string
	SerialVPD    string
	Firmware     string
	Protocol     string
	DriveType    string // SAS_HDD, SATA_SSD, etc.
	SizeMB       int64
	Sectors      int64
	enclosure    bool
}

var sasControllerRe = regexp.MustCompile(`(?m)^\s*(\d+)\s+\S+`)

// parseSas3ircuList returns the controller indexes from `sas3ircu list`.
func parseSas3ircuList(out source.Output) []int {
	var controllers []int
	for _, m := range sasControllerRe.FindAllStringSubmatch(out.String(), -1) {
		if num, err := strconv.Atoi(m[1]); err == nil {
			controllers = append(controllers, num)
		}
	}
	return controllers
}

// parseSas3ircuDisplay parses the physical device section of
// `sas3ircu <n> display`.
func parseSas3ircuDisplay(out source.Output) ([]Observation, error) {
	text := out.String()
	if !strings.Contains(text, "Physical device information") {
		return nil, detect.ParseErrorf("sas3ircu display", "no physical device section")
	}

	var devices []sasDevice
	var current *sasDevice
	section := ""
	flush := func() {
		if current != nil && !current.enclosure && (current.Serial != "" || current.SASAddress != "") {
			devices = append(devices, *current)
		}
		current = nil
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)

		// Detect section headers
		switch {
		case strings.HasPrefix(line, "Controller information"):
			section = "controller"
			continue
		case strings.HasPrefix(line, "Physical device information"):
			section = "devices"
			continue
		case strings.HasPrefix(line, "Enclosure information"), strings.HasPrefix(line, "IR Volume information"):
			flush()
			section = "other"
			continue
		case strings.HasPrefix(line, "---"):
			continue
		}
		if section != "devices" {
			continue
		}

		if strings.HasPrefix(line, "Device is a") {
			flush()
			current = &sasDevice{
				enclosure: strings.Contains(line, "Enclosure services device"),
			}
			continue
		}
		if current != nil {
			parseSasDeviceLine(line, current)
		}
	}
	flush()

	obs := make([]Observation, 0, len(devices))
	for _, d := range devices {
		obs = append(obs, d.observation())
	}
	return obs, nil
}

func parseSasDeviceLine(line string, dev *sasDevice) {
	key, val, ok := strings.Cut(line, ":")
	if !ok {
		return
	}
	key = strings.TrimSpace(key)
	val = strings.TrimSpace(val)

	switch key {
	case "Enclosure #":
		dev.EnclosureID, _ = strconv.Atoi(val)
	case "Slot #":
		dev.Slot, _ = strconv.Atoi(val)
	case "SAS Address":
		dev.SASAddress = strings.ReplaceAll(val, "-", "")
	case "Size (in MB)/(in sectors)":
		// Parse "7501160/15362376263"
		mb, sectors, _ := strings.Cut(val, "/")
		dev.SizeMB, _ = strconv.ParseInt(strings.TrimSpace(mb), 10, 64)
		dev.Sectors, _ = strconv.ParseInt(strings.TrimSpace(sectors), 10, 64)
	case "Manufacturer":
		dev.Manufacturer = val
	case "Model Number":
		dev.Model = val
	case "Firmware Revision":
		dev.Firmware = val
	case "Serial No":
		dev.Serial = val
	case "Unit Serial No(VPD)":
		if val != "N/A" {
			dev.SerialVPD = val
		}
	case "Protocol":
		dev.Protocol = val
	case "Drive Type":
		dev.DriveType = val
	}
}

func (d sasDevice) observation() Observation {
	o := Observation{
		Vendor:     detect.Ident(d.Manufacturer),
		Model:      detect.Ident(d.Model),
		Firmware:   detect.Ident(d.Firmware),
		SASAddress: normalizeHexID(d.SASAddress),
		Enclosure:  detect.Str(strconv.Itoa(d.EnclosureID)),
		Slot:       detect.Ptr(d.Slot),
	}
	// The VPD serial is the full form the kernel and smartctl report;
	// "Serial No" is often truncated.
	if s := detect.Ident(d.SerialVPD); s != nil {
		o.Serial = s
	} else {
		o.Serial = detect.Ident(d.Serial)
	}
	if p := strings.ToLower(d.Protocol); p != "" {
		o.Transport = &p
	}
	switch {
	case strings.HasSuffix(d.DriveType, "_HDD"):
		o.Rotational = detect.Ptr(true)
	case strings.HasSuffix(d.DriveType, "_SSD"):
		o.Rotational = detect.Ptr(false)
	}
	if size := sasSizeBytes(d.SizeMB, d.Sectors); size > 0 {
		o.SizeBytes = &size
	}
	return o
}

// sasSizeBytes picks the sector size that agrees with the MB column.
// 4Kn drives report 4096-byte sectors; everything else 512.
func sasSizeBytes(mb, sectors int64) int64 {
	const mib = 1 << 20
	if sectors > 0 && mb > 0 {
		for _, size := range []int64{512, 4096} {
			if diff := sectors*size/mib - mb; diff >= -1 && diff <= 1 {
				return sectors * size
			}
		}
	}
	if sectors > 0 && mb <= 0 {
		return sectors * 512
	}
	return mb * mib
}

func sas3ircuDetector() detect.Detector[Observation] {
	return detect.Func[Observation]{
		Method: "sas3ircu",
		Rank:   6,
		Desc:   "sas3ircu list; sas3ircu <n> display",
		Fn: func(ctx context.Context, env detect.Env) ([]Observation, error) {
			list, err := env.Run(ctx, "sas3ircu", "list")
			if err != nil {
				return nil, err
			}
			controllers := parseSas3ircuList(list)
			if len(controllers) == 0 {
				return nil, nil
			}

			var obs []Observation
			var firstErr error
			for _, n := range controllers {
				out, err := env.Run(ctx, "sas3ircu", strconv.Itoa(n), "display")
				if err == nil {
					var devs []Observation
					devs, err = parseSas3ircuDisplay(out)
					obs = append(obs, devs...)
				}
				if err != nil && firstErr == nil {
					firstErr = err
				}
			}
			if len(obs) == 0 && firstErr != nil {
				return nil, firstErr
			}
			return obs, nil
		},
	}
}
