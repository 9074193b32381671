// Package classify holds the read-only lookup tables that turn raw
// identifiers into names: PCI vendors, CPU microarchitectures, storage
// kinds and virtual device names. A miss is always Unknown, never an error.
package classify

import "strings"

// Unknown is returned for any identifier not in a table.
const Unknown = "Unknown"

var pciVendors = map[string]string{
	"1002": "AMD",
	"1022": "AMD",
	"10de": "NVIDIA",
	"8086": "Intel",
	"1a03": "ASPEED",
	"102b": "Matrox",
	"19e5": "Huawei",
	"15b3": "Mellanox",
	"14e4": "Broadcom",
	"1077": "QLogic",
	"1924": "Solarflare",
	"1137": "Cisco",
	"177d": "Cavium",
	"1dd8": "Pensando",
	"1fc9": "Tehuti",
	"8088": "Wangxun",
	"10ec": "Realtek",
	"1969": "Qualcomm Atheros",
	"1d0f": "Amazon",
	"1af4": "Red Hat (virtio)",
	"15ad": "VMware",
	"1414": "Microsoft",
	"1000": "Broadcom / LSI",
	"9005": "Microchip / Adaptec",
	"144d": "Samsung",
	"1c5c": "SK hynix",
	"15b7": "Sandisk / WD",
	"1179": "Kioxia",
	"1e0f": "Kioxia",
	"1344": "Micron",
	"8c86": "Intel",
	"1bb1": "Seagate",
	"1987": "Phison",
	"126f": "Silicon Motion",
	"1cc1": "ADATA",
	"1e49": "YMTC",
	"1ed5": "Moore Threads",
	"1e3e": "Iluvatar",
	"1d17": "Zhaoxin",
	"1d94": "Hygon",
	"1da3": "Habana Labs",
	"1e52": "Tenstorrent",
	"209f": "Biren",
	"1f4b": "Huawei (Ascend)",
}

// NormalizePCIID lowercases a vendor or device ID and strips any 0x prefix:
// "0x10DE" and "10de" both become "10de".
func NormalizePCIID(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	return strings.TrimPrefix(id, "0x")
}

// PCIVendor maps a PCI vendor ID to a vendor name.
func PCIVendor(id string) string {
	if name, ok := pciVendors[NormalizePCIID(id)]; ok {
		return name
	}
	return Unknown
}

// VendorFromName maps a free-form vendor string printed by a tool
// ("NVIDIA Corporation", "Advanced Micro Devices, Inc. [AMD/ATI]") onto
// the same names PCIVendor returns.
func VendorFromName(name string) string {
	n := strings.ToLower(name)
	switch {
	case n == "":
		return Unknown
	case strings.Contains(n, "nvidia"):
		return "NVIDIA"
	case strings.Contains(n, "advanced micro devices"), strings.Contains(n, "amd"), strings.Contains(n, "ati technologies"):
		return "AMD"
	case strings.Contains(n, "intel"):
		return "Intel"
	case strings.Contains(n, "aspeed"):
		return "ASPEED"
	case strings.Contains(n, "matrox"):
		return "Matrox"
	case strings.Contains(n, "mellanox"):
		return "Mellanox"
	case strings.Contains(n, "broadcom"):
		return "Broadcom"
	case strings.Contains(n, "huawei"):
		return "Huawei"
	}
	return Unknown
}

// CanonicalPCIAddress normalizes a PCI bus address to the kernel's
// "dddd:bb:dd.f" form: lowercase, four-digit domain. nvidia-smi prints an
// eight-digit domain and lspci may omit it entirely.
func CanonicalPCIAddress(addr string) string {
	a := strings.ToLower(strings.TrimSpace(addr))
	a = strings.TrimPrefix(a, "pci:")
	if a == "" {
		return ""
	}
	parts := strings.Split(a, ":")
	switch len(parts) {
	case 2:
		return "0000:" + a
	case 3:
		domain := parts[0]
		if len(domain) > 4 {
			domain = domain[len(domain)-4:]
		}
		for len(domain) < 4 {
			domain = "0" + domain
		}
		return domain + ":" + parts[1] + ":" + parts[2]
	}
	return a
}

// PCI class prefixes from the class register, as found in
// /sys/bus/pci/devices/*/class ("0x030000").
const (
	PCIClassDisplay = "03"
	PCIClassNetwork = "02"
)

// PCIClassIs reports whether a class register value belongs to a base class.
func PCIClassIs(class, base string) bool {
	c := NormalizePCIID(class)
	return strings.HasPrefix(c, base)
}
