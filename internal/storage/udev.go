package storage

import (
	"bufio"
	"context"
	"path"
	"strconv"
	"strings"

	"github.com/sigreer/hwsnap/internal/classify"
	"github.com/sigreer/hwsnap/internal/detect"
)

// udevRecord is the udev database entry for one block device, read
// directly from /run/udev/data/b<major>:<minor> without udevadm.
type udevRecord struct {
	Name    string
	Content string
}

// parseUdevDB parses the E: property lines of a udev database entry.
func parseUdevDB(rec udevRecord) Observation {
	o := Observation{Name: detect.Str(rec.Name)}
	var serial, shortSerial string

	scanner := bufio.NewScanner(strings.NewReader(rec.Content))
	for scanner.Scan() {
		line := scanner.Text()

		// Lines starting with E: are environment variables
		if !strings.HasPrefix(line, "E:") {
			continue
		}
		key, value, ok := strings.Cut(strings.TrimPrefix(line, "E:"), "=")
		if !ok {
			continue
		}

		switch key {
		case "ID_VENDOR":
			o.Vendor = detect.Ident(strings.ReplaceAll(value, "_", " "))
		case "ID_MODEL":
			o.Model = detect.Ident(strings.ReplaceAll(value, "_", " "))
		case "ID_REVISION":
			o.Firmware = detect.Ident(value)
		case "ID_SERIAL":
			serial = value
		case "ID_SERIAL_SHORT":
			shortSerial = value
		case "ID_SCSI_SERIAL":
			if shortSerial == "" {
				shortSerial = value
			}
		case "ID_WWN":
			o.WWN = normalizeWWN(value)
		case "ID_BUS":
			o.Transport = udevTransport(value)
		case "ID_ATA_ROTATION_RATE_RPM":
			if rpm, err := strconv.Atoi(value); err == nil {
				o.Rotational = detect.Ptr(rpm > 0)
				if rpm > 0 {
					o.RotationRPM = &rpm
				}
			}
		case "DEVLINKS":
			for _, link := range strings.Fields(value) {
				if strings.HasPrefix(link, "/dev/disk/by-id/") {
					o.ByID = append(o.ByID, link)
				}
			}
		}
	}

	if shortSerial != "" {
		o.Serial = detect.Ident(shortSerial)
	} else if serial != "" && !strings.Contains(serial, "_") {
		o.Serial = detect.Ident(serial)
	}
	return o
}

func udevTransport(bus string) *string {
	switch strings.ToLower(bus) {
	case "ata":
		return detect.Str("sata")
	case "nvme":
		return detect.Str("nvme")
	case "usb":
		return detect.Str("usb")
	}
	return nil
}

func udevDetector() detect.Detector[Observation] {
	return detect.Func[Observation]{
		Method: "udev",
		Rank:   1,
		Desc:   "/run/udev/data/b<major>:<minor>",
		Fn: func(ctx context.Context, env detect.Env) ([]Observation, error) {
			names, err := env.FS.ReadDir("/sys/block")
			if err != nil {
				return nil, err
			}
			var obs []Observation
			var firstErr error
			for _, name := range names {
				if classify.IsVirtualBlock(name) {
					continue
				}
				// Read major:minor from sysfs
				majMin, err := env.FS.ReadText(path.Join("/sys/block", name, "dev"))
				if err != nil {
					continue
				}
				content, err := env.FS.ReadText("/run/udev/data/b" + strings.TrimSpace(majMin))
				if err != nil {
					if firstErr == nil {
						firstErr = err
					}
					continue
				}
				obs = append(obs, parseUdevDB(udevRecord{Name: name, Content: content}))
			}
			if len(obs) == 0 && firstErr != nil {
				return nil, firstErr
			}
			return obs, nil
		},
	}
}
