// Package pci reads PCI function metadata from lspci machine-readable
// output and from /sys/bus/pci/devices. The GPU and network detectors
// filter its records by class.
package pci

import (
	"bufio"
	"path"
	"regexp"
	"strings"

	"github.com/sigreer/hwsnap/internal/classify"
	"github.com/sigreer/hwsnap/internal/detect"
	"github.com/sigreer/hwsnap/internal/source"
)

// DevicesDir lists every PCI function by address.
const DevicesDir = "/sys/bus/pci/devices"

// Device is one PCI function. IDs are lowercase hex without 0x.
type Device struct {
	Address   string // canonical dddd:bb:dd.f
	ClassID   string // "0300", "0200"
	Class     string
	VendorID  string
	Vendor    string
	DeviceID  string
	Device    string
	SubVendor string
	SubDevice string
	Revision  string
	Driver    string
	Module    string
	NUMANode  *int
}

// IsClass reports whether the function belongs to a base class such as
// classify.PCIClassDisplay.
func (d Device) IsClass(base string) bool {
	return classify.PCIClassIs(d.ClassID, base)
}

// "NVIDIA Corporation [10de]" or "GA100 [A100 PCIe 40GB] [20f1]"
var bracketIDRe = regexp.MustCompile(`^(.*?)\s*\[([0-9a-fA-F]{4,6})\]$`)

func splitNameID(v string) (name, id string) {
	v = strings.TrimSpace(v)
	if m := bracketIDRe.FindStringSubmatch(v); m != nil {
		return m[1], strings.ToLower(m[2])
	}
	return v, ""
}

// ParseLspci parses `lspci -Dvmmnn[k]`: blank-line separated records of
// "Key:\tvalue" lines.
func ParseLspci(text string) ([]Device, error) {
	var devices []Device
	var cur *Device
	flush := func() {
		if cur != nil && cur.Address != "" {
			devices = append(devices, *cur)
		}
		cur = nil
	}

	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			return nil, detect.ParseErrorf("lspci -vmm", "unexpected line %q", line)
		}
		if cur == nil {
			cur = &Device{}
		}
		val = strings.TrimSpace(val)
		switch key {
		case "Slot":
			cur.Address = classify.CanonicalPCIAddress(val)
		case "Class":
			cur.Class, cur.ClassID = splitNameID(val)
		case "Vendor":
			cur.Vendor, cur.VendorID = splitNameID(val)
		case "Device":
			cur.Device, cur.DeviceID = splitNameID(val)
		case "SVendor":
			_, cur.SubVendor = splitNameID(val)
		case "SDevice":
			_, cur.SubDevice = splitNameID(val)
		case "Rev":
			cur.Revision = val
		case "Driver":
			cur.Driver = val
		case "Module":
			if cur.Module == "" {
				cur.Module = val
			}
		case "NUMANode":
			cur.NUMANode = detect.Int(val)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, &detect.ParseError{Format: "lspci -vmm", Err: err}
	}
	flush()
	return devices, nil
}

// ReadSysfs reads one function from /sys/bus/pci/devices/<addr>.
func ReadSysfs(fsys source.FS, addr string) (Device, error) {
	dir := path.Join(DevicesDir, addr)
	class, err := source.ReadTrimmed(fsys, path.Join(dir, "class"))
	if err != nil {
		return Device{}, err
	}
	d := Device{Address: classify.CanonicalPCIAddress(addr)}
	// class is the 24-bit register "0x030000"; keep base and subclass.
	if c := classify.NormalizePCIID(class); len(c) >= 4 {
		d.ClassID = c[:4]
	}
	read := func(name string) string {
		v, _ := source.ReadTrimmed(fsys, path.Join(dir, name))
		return classify.NormalizePCIID(v)
	}
	d.VendorID = read("vendor")
	d.DeviceID = read("device")
	d.SubVendor = read("subsystem_vendor")
	d.SubDevice = read("subsystem_device")
	d.Revision = read("revision")
	if drv, err := source.LinkBase(fsys, path.Join(dir, "driver")); err == nil {
		d.Driver = drv
	}
	if n := detect.Int(read("numa_node")); n != nil && *n >= 0 {
		d.NUMANode = n
	}
	return d, nil
}

// ListSysfs reads every function under /sys/bus/pci/devices whose class
// matches base. Functions that cannot be read are skipped.
func ListSysfs(fsys source.FS, base string) ([]Device, error) {
	addrs, err := fsys.ReadDir(DevicesDir)
	if err != nil {
		return nil, err
	}
	var devices []Device
	for _, addr := range addrs {
		d, err := ReadSysfs(fsys, addr)
		if err != nil || !d.IsClass(base) {
			continue
		}
		devices = append(devices, d)
	}
	return devices, nil
}

// LinkWidth reads current_link_width; nil when absent or zero.
func LinkWidth(fsys source.FS, addr string) *int {
	v, err := source.ReadTrimmed(fsys, path.Join(DevicesDir, addr, "current_link_width"))
	if err != nil {
		return nil
	}
	n := detect.Int(v)
	if n == nil || *n <= 0 {
		return nil
	}
	return n
}

// LinkSpeed reads current_link_speed, e.g. "16.0 GT/s PCIe".
func LinkSpeed(fsys source.FS, addr string) *string {
	v, err := source.ReadTrimmed(fsys, path.Join(DevicesDir, addr, "current_link_speed"))
	if err != nil {
		return nil
	}
	return detect.Ident(v)
}
