package storage

import (
	"context"
	"path"
	"strconv"
	"strings"

	"github.com/sigreer/hwsnap/internal/detect"
	"github.com/sigreer/hwsnap/internal/source"
	"github.com/sigreer/hwsnap/internal/units"
)

// sysfsBlock is the raw attribute snapshot of one /sys/block entry.
// Reading never spawns a process and does not wake sleeping drives.
type sysfsBlock struct {
	Name    string
	Attrs   map[string]string // relative path -> contents
	Entries []string          // entries of device/
	HCTLs   []string          // entries of device/scsi_device
	Links   map[string]string // relative path -> symlink target
}

var blockAttrs = []string{
	"size",
	"dev",
	"removable",
	"queue/rotational",
	"queue/logical_block_size",
	"queue/physical_block_size",
	"device/model",
	"device/vendor",
	"device/serial",
	"device/rev",
	"device/firmware_rev",
	"device/wwid",
	"wwid",
	"device/sas_address",
	"device/transport",
	"device/numa_node",
	"device/device/numa_node",
	"device/vpd_pg80",
}

// readSysfsBlocks snapshots every entry under /sys/block.
func readSysfsBlocks(fsys source.FS) ([]sysfsBlock, error) {
	names, err := fsys.ReadDir("/sys/block")
	if err != nil {
		return nil, err
	}

	blocks := make([]sysfsBlock, 0, len(names))
	for _, name := range names {
		base := path.Join("/sys/block", name)
		b := sysfsBlock{
			Name:  name,
			Attrs: make(map[string]string),
			Links: make(map[string]string),
		}
		for _, attr := range blockAttrs {
			if v, err := fsys.ReadText(path.Join(base, attr)); err == nil {
				b.Attrs[attr] = v
			}
		}
		b.Entries, _ = fsys.ReadDir(path.Join(base, "device"))
		b.HCTLs, _ = fsys.ReadDir(path.Join(base, "device", "scsi_device"))
		for _, e := range b.Entries {
			if strings.HasPrefix(e, "enclosure_device:") {
				rel := path.Join("device", e)
				if target, err := fsys.ReadLink(path.Join(base, rel)); err == nil {
					b.Links[rel] = target
				}
			}
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}

// parseSysfsBlocks turns snapshots into observations.
func parseSysfsBlocks(blocks []sysfsBlock) []Observation {
	obs := make([]Observation, 0, len(blocks))
	for _, b := range blocks {
		obs = append(obs, parseSysfsBlock(b))
	}
	return obs
}

func parseSysfsBlock(b sysfsBlock) Observation {
	attr := func(k string) string { return strings.TrimSpace(b.Attrs[k]) }

	o := Observation{
		Name:   detect.Str(b.Name),
		Model:  detect.Ident(attr("device/model")),
		Vendor: detect.Ident(attr("device/vendor")),
	}

	if bytes, err := units.ParseSectors(attr("size")); err == nil {
		o.SizeBytes = &bytes
	}
	o.Rotational = parseFlag(attr("queue/rotational"))
	o.Removable = parseFlag(attr("removable"))
	o.LogicalBlockSize = positiveInt(attr("queue/logical_block_size"))
	o.PhysicalBlockSize = positiveInt(attr("queue/physical_block_size"))

	// Firmware: SCSI exposes rev, NVMe controllers firmware_rev
	if fw := detect.Ident(attr("device/firmware_rev")); fw != nil {
		o.Firmware = fw
	} else {
		o.Firmware = detect.Ident(attr("device/rev"))
	}

	// Serial: NVMe controllers expose it directly, SCSI via VPD page 80
	if s := detect.Ident(attr("device/serial")); s != nil {
		o.Serial = s
	} else if raw := b.Attrs["device/vpd_pg80"]; len(raw) > 4 {
		// VPD page 80 is binary, serial starts after 4-byte header
		o.Serial = detect.Ident(printable(raw[4:]))
	}

	// WWN/WWID. Format: naa.XXXXXXXX, eui.XXXX, t10.XXXXX etc
	if w := normalizeWWN(attr("wwid")); w != nil {
		o.WWN = w
	} else {
		o.WWN = normalizeWWN(attr("device/wwid"))
	}

	// SAS Address (for SAS drives)
	o.SASAddress = normalizeHexID(attr("device/sas_address"))

	if t := attr("device/transport"); t != "" {
		o.Transport = detect.Str(strings.ToLower(t))
		if *o.Transport == "pcie" || *o.Transport == "tcp" || *o.Transport == "rdma" || *o.Transport == "fc" {
			o.Transport = detect.Str("nvme")
		}
	}

	if n := nonNegativeInt(attr("device/numa_node")); n != nil {
		o.NUMANode = n
	} else {
		o.NUMANode = nonNegativeInt(attr("device/device/numa_node"))
	}

	// HCTL from scsi_device path
	if len(b.HCTLs) > 0 {
		o.HCTL = detect.Str(b.HCTLs[0])
	}

	// Enclosure and Slot from enclosure_device symlink
	for _, e := range b.Entries {
		if !strings.HasPrefix(e, "enclosure_device:") {
			continue
		}
		// Format: enclosure_device:SlotXX
		label := strings.TrimPrefix(e, "enclosure_device:")
		slotStr := strings.TrimLeft(label, "SlotDISKBaydiskbay_ ")
		if slot, err := strconv.Atoi(slotStr); err == nil {
			o.Slot = &slot
		}
		// Path ends like: .../10:0:12:0/enclosure/10:0:12:0/Slot00
		if target, ok := b.Links[path.Join("device", e)]; ok {
			parts := strings.Split(target, "/")
			for i, p := range parts {
				if p == "enclosure" && i+1 < len(parts) {
					o.Enclosure = detect.Str(parts[i+1])
					break
				}
			}
		}
		break
	}

	return o
}

func sysfsDetector() detect.Detector[Observation] {
	return detect.Func[Observation]{
		Method: "sysfs",
		Rank:   0,
		Desc:   "/sys/block/*",
		Fn: func(ctx context.Context, env detect.Env) ([]Observation, error) {
			blocks, err := readSysfsBlocks(env.FS)
			if err != nil {
				return nil, err
			}
			return parseSysfsBlocks(blocks), nil
		},
	}
}

// printable removes non-printable characters from binary VPD data.
func printable(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r >= 32 && r < 127 {
			return r
		}
		return -1
	}, s))
}

func parseFlag(s string) *bool {
	switch strings.TrimSpace(s) {
	case "1":
		return detect.Ptr(true)
	case "0":
		return detect.Ptr(false)
	}
	return nil
}

func positiveInt(s string) *int {
	n := detect.Int(s)
	if n == nil || *n <= 0 {
		return nil
	}
	return n
}

// nonNegativeInt drops the kernel's -1 "no NUMA node" marker.
func nonNegativeInt(s string) *int {
	n := detect.Int(s)
	if n == nil || *n < 0 {
		return nil
	}
	return n
}

// normalizeWWN reduces "naa.5000C500A6E7B82B", "0x5000c500a6e7b82b" and
// "eui.0025388b81b1a2c3" to bare lowercase hex. Anything else (t10 and
// vendor-specific IDs) is not a usable WWN.
func normalizeWWN(s string) *string {
	w := strings.ToLower(strings.TrimSpace(s))
	for _, p := range []string{"naa.", "eui.", "0x"} {
		w = strings.TrimPrefix(w, p)
	}
	w = strings.ReplaceAll(w, " ", "")
	if !isHex(w) || detect.IsPlaceholder(w) {
		return nil
	}
	return &w
}

// normalizeHexID reduces SAS addresses ("0x5000c500a6e7b82b",
// "5000c500-a6e7-b82b") to bare lowercase hex.
func normalizeHexID(s string) *string {
	w := strings.ToLower(strings.TrimSpace(s))
	w = strings.TrimPrefix(w, "0x")
	w = strings.ReplaceAll(w, "-", "")
	if !isHex(w) || detect.IsPlaceholder(w) {
		return nil
	}
	return &w
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return false
		}
	}
	return true
}
