package classify

import (
	"strconv"
	"strings"
)

// CPUVendor maps a cpuinfo vendor_id, lscpu vendor string or ARM
// implementer code to a short vendor name.
func CPUVendor(raw string) string {
	s := strings.TrimSpace(raw)
	switch strings.ToLower(s) {
	case "genuineintel", "intel", "intel(r) corporation", "intel corporation":
		return "Intel"
	case "authenticamd", "amd", "advanced micro devices, inc.", "advanced micro devices":
		return "AMD"
	case "hygongenuine":
		return "Hygon"
	case "centaurhauls", "shanghai":
		return "Zhaoxin"
	}
	if name, ok := armImplementers[normalizeHex(s)]; ok {
		return name
	}
	if s == "" {
		return Unknown
	}
	return s
}

var armImplementers = map[string]string{
	"0x41": "ARM",
	"0x42": "Broadcom",
	"0x43": "Cavium",
	"0x46": "Fujitsu",
	"0x48": "HiSilicon",
	"0x4e": "NVIDIA",
	"0x50": "Ampere",
	"0x51": "Qualcomm",
	"0x53": "Samsung",
	"0x61": "Apple",
	"0x6d": "Microsoft",
	"0xc0": "Ampere",
}

// ArmImplementer maps a "CPU implementer" code to a vendor name.
func ArmImplementer(code string) string {
	if name, ok := armImplementers[normalizeHex(code)]; ok {
		return name
	}
	return Unknown
}

type armPart struct {
	implementer string
	part        string
}

var armParts = map[armPart]string{
	{"0x41", "0xd03"}: "Cortex-A53",
	{"0x41", "0xd04"}: "Cortex-A35",
	{"0x41", "0xd05"}: "Cortex-A55",
	{"0x41", "0xd07"}: "Cortex-A57",
	{"0x41", "0xd08"}: "Cortex-A72",
	{"0x41", "0xd09"}: "Cortex-A73",
	{"0x41", "0xd0a"}: "Cortex-A75",
	{"0x41", "0xd0b"}: "Cortex-A76",
	{"0x41", "0xd0c"}: "Neoverse-N1",
	{"0x41", "0xd0d"}: "Cortex-A77",
	{"0x41", "0xd40"}: "Neoverse-V1",
	{"0x41", "0xd41"}: "Cortex-A78",
	{"0x41", "0xd44"}: "Cortex-X1",
	{"0x41", "0xd46"}: "Cortex-A510",
	{"0x41", "0xd47"}: "Cortex-A710",
	{"0x41", "0xd48"}: "Cortex-X2",
	{"0x41", "0xd49"}: "Neoverse-N2",
	{"0x41", "0xd4a"}: "Neoverse-E1",
	{"0x41", "0xd4f"}: "Neoverse-V2",
	{"0x41", "0xd84"}: "Neoverse-V3",
	{"0x41", "0xd8e"}: "Neoverse-N3",
	{"0x43", "0x0af"}: "ThunderX2",
	{"0x43", "0x0b8"}: "ThunderX3",
	{"0x46", "0x001"}: "A64FX",
	{"0x48", "0xd01"}: "TaiShan v110",
	{"0x48", "0xd02"}: "TaiShan v120",
	{"0x4e", "0x004"}: "Carmel",
	{"0x50", "0x000"}: "X-Gene",
	{"0x51", "0x800"}: "Kryo 2xx Gold",
	{"0x51", "0xc00"}: "Falkor",
	{"0x61", "0x022"}: "Icestorm (M1)",
	{"0x61", "0x023"}: "Firestorm (M1)",
	{"0xc0", "0xac3"}: "AmpereOne",
	{"0xc0", "0xac4"}: "AmpereOne",
}

// ArmMicroarchitecture maps an implementer/part pair from /proc/cpuinfo.
func ArmMicroarchitecture(implementer, part string) string {
	if name, ok := armParts[armPart{normalizeHex(implementer), normalizeHex(part)}]; ok {
		return name
	}
	return Unknown
}

type modelRange struct {
	from, to int
	name     string
}

// Intel family 6 models. Ranges are inclusive.
var intelFamily6 = []modelRange{
	{0x1a, 0x1a, "Nehalem"},
	{0x1e, 0x1f, "Nehalem"},
	{0x2e, 0x2e, "Nehalem-EX"},
	{0x25, 0x25, "Westmere"},
	{0x2c, 0x2c, "Westmere-EP"},
	{0x2f, 0x2f, "Westmere-EX"},
	{0x2a, 0x2a, "Sandy Bridge"},
	{0x2d, 0x2d, "Sandy Bridge-EP"},
	{0x3a, 0x3a, "Ivy Bridge"},
	{0x3e, 0x3e, "Ivy Bridge-EP"},
	{0x3c, 0x3c, "Haswell"},
	{0x45, 0x46, "Haswell"},
	{0x3f, 0x3f, "Haswell-EP"},
	{0x3d, 0x3d, "Broadwell"},
	{0x47, 0x47, "Broadwell"},
	{0x4f, 0x4f, "Broadwell-EP"},
	{0x56, 0x56, "Broadwell-DE"},
	{0x4e, 0x4e, "Skylake"},
	{0x5e, 0x5e, "Skylake"},
	{0x55, 0x55, "Skylake-SP"},
	{0x8e, 0x8e, "Kaby Lake"},
	{0x9e, 0x9e, "Coffee Lake"},
	{0xa5, 0xa6, "Comet Lake"},
	{0x66, 0x66, "Cannon Lake"},
	{0x7d, 0x7e, "Ice Lake"},
	{0x6a, 0x6a, "Ice Lake-SP"},
	{0x6c, 0x6c, "Ice Lake-D"},
	{0x8c, 0x8d, "Tiger Lake"},
	{0xa7, 0xa7, "Rocket Lake"},
	{0x97, 0x9a, "Alder Lake"},
	{0xb7, 0xb7, "Raptor Lake"},
	{0xba, 0xba, "Raptor Lake"},
	{0xbf, 0xbf, "Raptor Lake"},
	{0xaa, 0xac, "Meteor Lake"},
	{0xbd, 0xbd, "Lunar Lake"},
	{0xc5, 0xc6, "Arrow Lake"},
	{0x8f, 0x8f, "Sapphire Rapids"},
	{0xcf, 0xcf, "Emerald Rapids"},
	{0xad, 0xad, "Granite Rapids"},
	{0xae, 0xae, "Granite Rapids-D"},
	{0xaf, 0xaf, "Sierra Forest"},
	{0xdd, 0xdd, "Clearwater Forest"},
	{0x5c, 0x5c, "Goldmont"},
	{0x5f, 0x5f, "Goldmont"},
	{0x7a, 0x7a, "Goldmont Plus"},
	{0x86, 0x86, "Tremont"},
	{0x96, 0x96, "Tremont"},
	{0x9c, 0x9c, "Tremont"},
	{0xbe, 0xbe, "Gracemont"},
	{0x57, 0x57, "Knights Landing"},
	{0x85, 0x85, "Knights Mill"},
}

// AMD families by (family, model range).
var amdFamilies = map[int][]modelRange{
	0x10: {{0x00, 0xff, "K10"}},
	0x15: {
		{0x00, 0x0f, "Bulldozer"},
		{0x10, 0x1f, "Piledriver"},
		{0x30, 0x3f, "Steamroller"},
		{0x60, 0x7f, "Excavator"},
	},
	0x16: {{0x00, 0xff, "Jaguar"}},
	0x17: {
		{0x00, 0x07, "Zen"},
		{0x08, 0x08, "Zen+"},
		{0x11, 0x11, "Zen"},
		{0x18, 0x18, "Zen+"},
		{0x20, 0x2f, "Zen"},
		{0x30, 0x3f, "Zen 2"},
		{0x47, 0x47, "Zen 2"},
		{0x60, 0x6f, "Zen 2"},
		{0x70, 0x7f, "Zen 2"},
		{0x84, 0x84, "Zen 2"},
		{0x90, 0x9f, "Zen 2"},
		{0xa0, 0xaf, "Zen 2"},
	},
	0x19: {
		{0x00, 0x0f, "Zen 3"},
		{0x10, 0x1f, "Zen 4"},
		{0x20, 0x2f, "Zen 3"},
		{0x30, 0x3f, "Zen 3"},
		{0x40, 0x4f, "Zen 3+"},
		{0x50, 0x5f, "Zen 3"},
		{0x60, 0x7f, "Zen 4"},
		{0xa0, 0xaf, "Zen 4c"},
	},
	0x1a: {
		{0x00, 0x1f, "Zen 5"},
		{0x20, 0x2f, "Zen 5"},
		{0x40, 0x4f, "Zen 5"},
		{0x60, 0x7f, "Zen 5"},
	},
}

// X86Microarchitecture maps vendor, family and model (decimal, as
// /proc/cpuinfo prints them) to a microarchitecture name.
func X86Microarchitecture(vendor string, family, model int) string {
	var ranges []modelRange
	switch CPUVendor(vendor) {
	case "Intel":
		if family != 6 {
			return Unknown
		}
		ranges = intelFamily6
	case "AMD":
		ranges = amdFamilies[family]
	case "Hygon":
		if family == 0x18 {
			return "Dhyana"
		}
		return Unknown
	default:
		return Unknown
	}
	for _, r := range ranges {
		if model >= r.from && model <= r.to {
			return r.name
		}
	}
	return Unknown
}

// normalizeHex turns "0x41", "0X41" and "65" into "0x41", and parts such
// as "0xd0c" into "0xd0c". Three-digit part numbers keep their width.
func normalizeHex(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	if strings.HasPrefix(s, "0x") {
		return s
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return s
	}
	return "0x" + strconv.FormatInt(n, 16)
}
