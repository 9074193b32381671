package network

import (
	"context"
	"path"
	"regexp"
	"strings"

	"github.com/sigreer/hwsnap/internal/classify"
	"github.com/sigreer/hwsnap/internal/detect"
	"github.com/sigreer/hwsnap/internal/pci"
	"github.com/sigreer/hwsnap/internal/source"
)

const netBase = "/sys/class/net"

var pciAddressRe = regexp.MustCompile(`^[0-9a-f]{4}:[0-9a-f]{2}:[0-9a-f]{2}\.[0-7]$`)

// sysfsInterface is the raw attribute set of /sys/class/net/<name>.
type sysfsInterface struct {
	Name      string
	Address   string
	MTU       string
	Speed     string // Mbps, -1 or unreadable when the link is down
	Duplex    string
	OperState string
	Device    string // basename of the device link, "" for software interfaces
	VendorID  string
	DeviceID  string
	Driver    string
	NUMANode  string
}

func readSysfsInterface(fsys source.FS, name string) sysfsInterface {
	dir := path.Join(netBase, name)
	read := func(p string) string {
		v, _ := source.ReadTrimmed(fsys, path.Join(dir, p))
		return v
	}
	raw := sysfsInterface{
		Name:      name,
		Address:   read("address"),
		MTU:       read("mtu"),
		Speed:     read("speed"),
		Duplex:    read("duplex"),
		OperState: read("operstate"),
	}
	if dev, err := source.LinkBase(fsys, path.Join(dir, "device")); err == nil {
		raw.Device = dev
		raw.VendorID = read("device/vendor")
		raw.DeviceID = read("device/device")
		raw.NUMANode = read("device/numa_node")
		raw.Driver, _ = source.LinkBase(fsys, path.Join(dir, "device", "driver"))
	}
	return raw
}

func parseSysfsInterface(raw sysfsInterface) Observation {
	o := Observation{
		Name:      detect.Str(raw.Name),
		MAC:       normalizeMAC(raw.Address),
		Duplex:    detect.Ident(strings.ToLower(raw.Duplex)),
		OperState: detect.Ident(strings.ToLower(raw.OperState)),
		Virtual:   detect.Ptr(raw.Device == ""),
	}
	if mtu := detect.Int(raw.MTU); mtu != nil && *mtu > 0 {
		o.MTU = mtu
	}
	o.SpeedMbps = speed(raw.Speed)
	if raw.Device != "" {
		if addr := classify.CanonicalPCIAddress(raw.Device); pciAddressRe.MatchString(addr) {
			o.PCIAddress = &addr
		}
		o.VendorID = detect.Str(classify.NormalizePCIID(raw.VendorID))
		o.DeviceID = detect.Str(classify.NormalizePCIID(raw.DeviceID))
		o.Driver = detect.Str(raw.Driver)
		if n := detect.Int(raw.NUMANode); n != nil && *n >= 0 {
			o.NUMANode = n
		}
	}
	return o
}

// speed accepts positive Mbps values. The kernel reports -1, or
// 4294967295 through an unsigned cast, when the speed is unknown.
func speed(v string) *int {
	n := detect.Int(v)
	if n == nil || *n <= 0 || *n >= 4294967295 {
		return nil
	}
	return n
}

// normalizeMAC lowercases a MAC and drops the all-zero placeholder.
func normalizeMAC(v string) *string {
	return detect.Ident(strings.ToLower(v))
}

// interfaceNames lists /sys/class/net without software interfaces, for
// detectors that probe one interface at a time.
func interfaceNames(fsys source.FS) ([]string, error) {
	names, err := fsys.ReadDir(netBase)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, n := range names {
		if classify.IsVirtualInterface(n) {
			continue
		}
		if _, err := source.LinkBase(fsys, path.Join(netBase, n, "device")); err != nil {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func sysfsDetector() detect.Detector[Observation] {
	return detect.Func[Observation]{
		Method: "sysfs",
		Rank:   0,
		Desc:   netBase + "/*",
		Fn: func(ctx context.Context, env detect.Env) ([]Observation, error) {
			names, err := env.FS.ReadDir(netBase)
			if err != nil {
				return nil, err
			}
			obs := make([]Observation, 0, len(names))
			for _, n := range names {
				obs = append(obs, parseSysfsInterface(readSysfsInterface(env.FS, n)))
			}
			return obs, nil
		},
	}
}

// parseLspciNetwork keeps the network-class records of `lspci -Dvmmnn`.
func parseLspciNetwork(out source.Output) ([]Observation, error) {
	devices, err := pci.ParseLspci(out.String())
	if err != nil {
		return nil, err
	}
	var obs []Observation
	for _, d := range devices {
		if !d.IsClass(classify.PCIClassNetwork) {
			continue
		}
		obs = append(obs, Observation{
			PCIAddress: detect.Str(d.Address),
			Model:      detect.Ident(d.Device),
			Vendor:     detect.Ident(d.Vendor),
			VendorID:   detect.Str(d.VendorID),
			DeviceID:   detect.Str(d.DeviceID),
			Driver:     detect.Str(d.Driver),
			NUMANode:   d.NUMANode,
		})
	}
	return obs, nil
}

func lspciDetector() detect.Detector[Observation] {
	return detect.Command[Observation]{
		Method:  "lspci",
		Rank:    4,
		Program: "lspci",
		Args:    []string{"-Dvmmnnk"},
		Parse:   parseLspciNetwork,
	}
}
