package classify

import "strings"

// Storage kinds.
const (
	KindNVMe = "NVMe"
	KindEMMC = "eMMC"
	KindHDD  = "HDD"
	KindSSD  = "SSD"
)

// StorageKind classifies a block device. The name prefix wins over the
// rotational flag: nvme0n1 is NVMe whatever the kernel says about it.
// Without a prefix match and without a rotational flag the kind is Unknown.
func StorageKind(name string, rotational *bool) string {
	n := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "/dev/"))
	switch {
	case strings.HasPrefix(n, "nvme"):
		return KindNVMe
	case strings.HasPrefix(n, "mmcblk"):
		return KindEMMC
	}
	if rotational == nil {
		return Unknown
	}
	if *rotational {
		return KindHDD
	}
	return KindSSD
}

var virtualBlockPrefixes = []string{
	"loop",
	"ram",
	"zram",
	"dm-",
	"md",
	"nbd",
	"sr",
	"fd",
	"drbd",
	"rbd",
	"zd",
	"bcache",
	"pmem",
}

// IsVirtualBlock reports whether a block device name is a loop device,
// RAM disk, device-mapper target or other software device rather than a
// physical disk.
func IsVirtualBlock(name string) bool {
	n := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "/dev/"))
	if n == "" {
		return false
	}
	for _, p := range virtualBlockPrefixes {
		if strings.HasPrefix(n, p) {
			return true
		}
	}
	return false
}

var virtualNetPrefixes = []string{
	"veth",
	"br",
	"docker",
	"virbr",
	"vnet",
	"tun",
	"tap",
	"vxlan",
	"geneve",
	"genev_sys",
	"flannel",
	"cni",
	"cali",
	"weave",
	"cilium",
	"kube-",
	"dummy",
	"ovs-",
	"bond",
	"team",
	"wg",
	"tailscale",
	"zt",
	"ip6tnl",
	"ip_vti",
	"ip6_vti",
	"sit",
	"gre",
	"gretap",
	"erspan",
	"ifb",
	"nlmon",
	"lxc",
	"lxd",
	"podman",
	"macvtap",
	"macvlan",
	"ipvl",
}

// IsVirtualInterface reports whether a network interface name is
// loopback, a bridge, a veth pair end, a tunnel, an overlay or another
// software interface. VLAN sub-interfaces (eth0.100) are virtual too.
func IsVirtualInterface(name string) bool {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return false
	}
	if n == "lo" || strings.HasPrefix(n, "lo:") {
		return true
	}
	if strings.Contains(n, ".") || strings.Contains(n, "@") {
		return true
	}
	for _, p := range virtualNetPrefixes {
		if strings.HasPrefix(n, p) {
			return true
		}
	}
	return false
}

// memoryTypes normalizes EDAC and SMBIOS spellings.
var memoryTypes = []string{"LPDDR5", "LPDDR4", "DDR5", "DDR4", "DDR3", "DDR2", "HBM3", "HBM2", "HBM"}

// MemoryType reduces "Registered-DDR4", "Unbuffered-DDR5" or "DDR4" to the
// bare generation.
func MemoryType(raw string) string {
	u := strings.ToUpper(raw)
	for _, t := range memoryTypes {
		if strings.Contains(u, t) {
			return t
		}
	}
	if strings.TrimSpace(raw) == "" {
		return Unknown
	}
	return strings.TrimSpace(raw)
}
