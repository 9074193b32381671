// Package units converts the many unit spellings hardware tools use into
// the base units resolved records carry: bytes, KiB for CPU caches, MHz,
// MT/s and Mbps.
package units

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// SectorSize is the fixed unit of /sys/block/*/size, independent of the
// device's logical block size.
const SectorSize = 512

// SectorsToBytes converts a 512-byte sector count to bytes.
func SectorsToBytes(sectors int64) int64 {
	return sectors * SectorSize
}

// ParseSectors parses a sysfs size attribute into bytes.
func ParseSectors(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid sector count %q: %w", s, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative sector count %q", s)
	}
	return SectorsToBytes(n), nil
}

var binaryMultipliers = map[string]int64{
	"":    1,
	"b":   1,
	"k":   1 << 10,
	"kb":  1 << 10,
	"kib": 1 << 10,
	"m":   1 << 20,
	"mb":  1 << 20,
	"mib": 1 << 20,
	"g":   1 << 30,
	"gb":  1 << 30,
	"gib": 1 << 30,
	"t":   1 << 40,
	"tb":  1 << 40,
	"tib": 1 << 40,
}

// ParseBinarySize parses sizes such as "1M", "32768K", "48 KiB" or
// "16 GB" where every suffix is a power of two, as firmware and kernel
// interfaces print them. A bare number is bytes.
func ParseBinarySize(s string) (int64, error) {
	num, suffix := splitNumber(s)
	if num == "" {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	mult, ok := binaryMultipliers[strings.ToLower(suffix)]
	if !ok {
		return 0, fmt.Errorf("unknown size suffix in %q", s)
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil || f < 0 {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	return int64(math.Round(f * float64(mult))), nil
}

// ParseCacheKB parses a CPU cache size ("1M", "32K", "512 KiB") into KiB.
func ParseCacheKB(s string) (int, error) {
	b, err := ParseBinarySize(s)
	if err != nil {
		return 0, err
	}
	// A bare number from sysfs or cpuinfo is already KiB.
	if num, suffix := splitNumber(s); suffix == "" && num != "" {
		return int(b), nil
	}
	return int(b / 1024), nil
}

// KHzToMHz converts a cpufreq value in kHz to whole MHz.
func KHzToMHz(khz int64) int {
	return int((khz + 500) / 1000)
}

// ParseKHz parses a cpufreq attribute such as "3500000" into MHz.
func ParseKHz(s string) (int, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid frequency %q", s)
	}
	return KHzToMHz(n), nil
}

// ParseMHz parses "3500 MHz", "2.10 GHz", "3500.000" or "3200 MT/s" into
// whole MHz (or MT/s; the numbers are the same unit shape).
func ParseMHz(s string) (int, error) {
	num, suffix := splitNumber(s)
	if num == "" {
		return 0, fmt.Errorf("invalid frequency %q", s)
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil || f < 0 {
		return 0, fmt.Errorf("invalid frequency %q", s)
	}
	switch strings.ToLower(suffix) {
	case "", "mhz", "mt/s":
	case "ghz", "gt/s":
		f *= 1000
	case "khz":
		f /= 1000
	default:
		return 0, fmt.Errorf("unknown frequency unit in %q", s)
	}
	return int(math.Round(f)), nil
}

// ParseLinkSpeed parses NIC speeds: "10000Mb/s", "25000", "10G", "1 Gbps",
// "100GbE". A bare number is Mbps as in /sys/class/net/*/speed.
func ParseLinkSpeed(s string) (int, error) {
	num, suffix := splitNumber(s)
	if num == "" {
		return 0, fmt.Errorf("invalid link speed %q", s)
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil || f < 0 {
		return 0, fmt.Errorf("invalid link speed %q", s)
	}
	switch strings.ToLower(suffix) {
	case "", "m", "mb/s", "mbps", "mbit/s", "mbit":
	case "g", "gb/s", "gbps", "gbit/s", "gbe", "gbit":
		f *= 1000
	case "k", "kb/s", "kbps":
		f /= 1000
	default:
		return 0, fmt.Errorf("unknown link speed unit in %q", s)
	}
	return int(math.Round(f)), nil
}

// splitNumber splits "3200 MT/s" into "3200" and "MT/s".
func splitNumber(s string) (string, string) {
	s = strings.TrimSpace(s)
	i := 0
	for i < len(s) && (s[i] >= '0' && s[i] <= '9' || s[i] == '.') {
		i++
	}
	return s[:i], strings.TrimSpace(s[i:])
}

// GB returns the decimal gigabyte equivalent, rounded to two places.
func GB(bytes int64) float64 {
	return round2(float64(bytes) / 1e9)
}

// TB returns the decimal terabyte equivalent, rounded to two places.
func TB(bytes int64) float64 {
	return round2(float64(bytes) / 1e12)
}

// GiB returns the binary gibibyte equivalent, rounded to two places.
func GiB(bytes int64) float64 {
	return round2(float64(bytes) / (1 << 30))
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// Human renders a byte count for tables: decimal units for storage,
// binary for memory.
func Human(bytes int64, binary bool) string {
	if bytes < 0 {
		return "-"
	}
	if binary {
		return humanize.IBytes(uint64(bytes))
	}
	return humanize.Bytes(uint64(bytes))
}

// HumanSpeed renders Mbps for tables.
func HumanSpeed(mbps int) string {
	if mbps >= 1000 && mbps%1000 == 0 {
		return humanize.Comma(int64(mbps/1000)) + " Gb/s"
	}
	return humanize.Comma(int64(mbps)) + " Mb/s"
}
