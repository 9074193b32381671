package cpu

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"

	"github.com/sigreer/hwsnap/internal/classify"
	"github.com/sigreer/hwsnap/internal/detect"
	"github.com/sigreer/hwsnap/internal/source"
	"github.com/sigreer/hwsnap/internal/units"
)

// baseClockRe finds the rated clock Intel embeds in model names:
// "Intel(R) Xeon(R) Gold 6130 CPU @ 2.10GHz".
var baseClockRe = regexp.MustCompile(`@\s*([\d.]+\s*[GM]Hz)`)

// parseCPUInfo parses /proc/cpuinfo. x86 kernels print one block per
// logical CPU with vendor_id, cpu family and model; arm64 kernels print
// CPU implementer and CPU part instead.
func parseCPUInfo(out source.Output) ([]Observation, error) {
	var o Observation
	processors := 0
	packages := make(map[string]struct{})
	var coresPerSocket, siblings *int

	scanner := bufio.NewScanner(strings.NewReader(out.String()))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		key, val, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)

		switch key {
		case "processor":
			processors++
		case "vendor_id":
			if o.VendorID == nil {
				o.VendorID = detect.Str(val)
			}
		case "model name":
			if o.Model == nil {
				o.Model = detect.Ident(val)
			}
		case "cpu family":
			if o.Family == nil {
				o.Family = detect.Int(val)
			}
		case "model":
			if o.ModelID == nil {
				o.ModelID = detect.Int(val)
			}
		case "stepping":
			if o.Stepping == nil {
				o.Stepping = detect.Int(val)
			}
		case "microcode":
			if o.Microcode == nil {
				o.Microcode = detect.Str(val)
			}
		case "flags", "Features":
			if o.Flags == nil {
				o.Flags = strings.Fields(val)
			}
		case "CPU implementer":
			if o.Implementer == nil {
				o.Implementer = detect.Str(strings.ToLower(val))
			}
		case "CPU part":
			if o.Part == nil {
				o.Part = detect.Str(strings.ToLower(val))
			}
		case "physical id":
			packages[val] = struct{}{}
		case "cpu cores":
			if coresPerSocket == nil {
				coresPerSocket = detect.Int(val)
			}
		case "siblings":
			if siblings == nil {
				siblings = detect.Int(val)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, &detect.ParseError{Format: "cpuinfo", Err: err}
	}
	if processors == 0 {
		return nil, detect.ParseErrorf("cpuinfo", "no processor entries")
	}

	o.LogicalCPUs = detect.Ptr(processors)
	if len(packages) > 0 {
		o.Sockets = detect.Ptr(len(packages))
	}
	if coresPerSocket != nil && *coresPerSocket > 0 {
		o.CoresPerSocket = coresPerSocket
		if siblings != nil && *siblings >= *coresPerSocket && *siblings%*coresPerSocket == 0 {
			o.ThreadsPerCore = detect.Ptr(*siblings / *coresPerSocket)
		}
	}

	switch {
	case o.VendorID != nil:
		o.Vendor = detect.Str(classify.CPUVendor(*o.VendorID))
		if hasFlag(o.Flags, "lm") {
			o.Architecture = detect.Str("x86_64")
		}
	case o.Implementer != nil:
		o.VendorID = o.Implementer
		o.Vendor = detect.Str(classify.ArmImplementer(*o.Implementer))
		o.Architecture = detect.Str("aarch64")
	}

	if o.Model != nil {
		if m := baseClockRe.FindStringSubmatch(*o.Model); m != nil {
			if mhz, err := units.ParseMHz(m[1]); err == nil && mhz > 0 {
				o.BaseMHz = &mhz
			}
		}
	}
	return []Observation{o}, nil
}

func hasFlag(flags []string, flag string) bool {
	for _, f := range flags {
		if f == flag {
			return true
		}
	}
	return false
}

// parseInt parses decimal or 0x-prefixed hex.
func parseInt(s string) *int {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 0, 64)
	if err != nil {
		return nil
	}
	v := int(n)
	return &v
}

func cpuinfoDetector() detect.Detector[Observation] {
	return detect.File[Observation]{
		Method: "cpuinfo",
		Rank:   2,
		Path:   "/proc/cpuinfo",
		Parse:  parseCPUInfo,
	}
}
