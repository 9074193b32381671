package cpu

import (
	"encoding/json"
	"math"
	"regexp"
	"strings"

	"github.com/sigreer/hwsnap/internal/classify"
	"github.com/sigreer/hwsnap/internal/detect"
	"github.com/sigreer/hwsnap/internal/source"
	"github.com/sigreer/hwsnap/internal/units"
)

// lscpuOutput is `lscpu -J`. util-linux 2.37 and later nest fields under
// "children"; older releases emit a flat list.
type lscpuOutput struct {
	Lscpu []lscpuField `json:"lscpu"`
}

type lscpuField struct {
	Field    string       `json:"field"`
	Data     *string      `json:"data"`
	Children []lscpuField `json:"children"`
}

func flattenLscpu(fields []lscpuField, into map[string]string) {
	for _, f := range fields {
		key := strings.TrimSuffix(strings.TrimSpace(f.Field), ":")
		if f.Data != nil {
			if _, seen := into[key]; !seen {
				into[key] = strings.TrimSpace(*f.Data)
			}
		}
		flattenLscpu(f.Children, into)
	}
}

var lscpuInstancesRe = regexp.MustCompile(`\((\d+) instances?\)`)

// lscpuCacheKB returns the per-instance size of a cache line such as
// "48 KiB (24 instances)", "1.1 MiB (24 instances)" or the older "32K".
// Totals are rounded by lscpu, so the result can be off by a few KiB.
func lscpuCacheKB(v string) *int {
	size, _, _ := strings.Cut(v, "(")
	size = strings.TrimSpace(size)
	if m := lscpuInstancesRe.FindStringSubmatch(v); m != nil {
		instances := detect.Deref(detect.Int(m[1]))
		total, err := units.ParseBinarySize(size)
		if err != nil || instances <= 0 {
			return nil
		}
		kb := int(math.Round(float64(total) / float64(instances) / 1024))
		return &kb
	}
	kb, err := units.ParseCacheKB(size)
	if err != nil {
		return nil
	}
	return &kb
}

func parseLscpu(out source.Output) ([]Observation, error) {
	var raw lscpuOutput
	if err := json.Unmarshal(out.Data, &raw); err != nil {
		return nil, &detect.ParseError{Format: "lscpu json", Err: err}
	}
	fields := make(map[string]string)
	flattenLscpu(raw.Lscpu, fields)
	if len(fields) == 0 {
		return nil, detect.ParseErrorf("lscpu json", "no fields")
	}

	o := Observation{
		Architecture:   detect.Str(fields["Architecture"]),
		VendorID:       detect.Ident(fields["Vendor ID"]),
		Model:          detect.Ident(fields["Model name"]),
		LogicalCPUs:    positive(fields["CPU(s)"]),
		ThreadsPerCore: positive(fields["Thread(s) per core"]),
		Sockets:        positive(fields["Socket(s)"]),
		NUMANodes:      positive(fields["NUMA node(s)"]),
		L1dKB:          lscpuCacheKB(firstOf(fields, "L1d cache", "L1d")),
		L1iKB:          lscpuCacheKB(firstOf(fields, "L1i cache", "L1i")),
		L2KB:           lscpuCacheKB(firstOf(fields, "L2 cache", "L2")),
		L3KB:           lscpuCacheKB(firstOf(fields, "L3 cache", "L3")),
	}
	if cps := positive(fields["Core(s) per socket"]); cps != nil {
		o.CoresPerSocket = cps
	} else {
		o.CoresPerSocket = positive(fields["Core(s) per cluster"])
	}
	if f := fields["Flags"]; f != "" {
		o.Flags = strings.Fields(f)
	}
	if mhz, err := units.ParseMHz(fields["CPU max MHz"]); err == nil && mhz > 0 {
		o.MaxMHz = &mhz
	}
	if mhz, err := units.ParseMHz(fields["CPU min MHz"]); err == nil && mhz > 0 {
		o.MinMHz = &mhz
	}

	if o.VendorID != nil {
		vendor := classify.CPUVendor(*o.VendorID)
		o.Vendor = &vendor
		switch vendor {
		case "Intel", "AMD", "Hygon", "Zhaoxin":
			o.Family = parseInt(fields["CPU family"])
			o.ModelID = parseInt(fields["Model"])
			o.Stepping = parseInt(fields["Stepping"])
		default:
			// On arm64 lscpu prints the core name as the model name.
			o.Microarchitecture = o.Model
		}
	}
	return []Observation{o}, nil
}

// firstOf returns the first non-empty value among keys. Newer lscpu
// drops the " cache" suffix from cache fields.
func firstOf(fields map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := fields[k]; v != "" {
			return v
		}
	}
	return ""
}

func positive(s string) *int {
	n := detect.Int(s)
	if n == nil || *n <= 0 {
		return nil
	}
	return n
}

func lscpuDetector() detect.Detector[Observation] {
	return detect.Command[Observation]{
		Method:  "lscpu",
		Rank:    3,
		Program: "lscpu",
		Args:    []string{"-J"},
		Parse:   parseLscpu,
	}
}
