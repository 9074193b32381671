package cpu

import (
	"regexp"
	"strings"

	"github.com/sigreer/hwsnap/internal/classify"
	"github.com/sigreer/hwsnap/internal/detect"
	"github.com/sigreer/hwsnap/internal/dmi"
	"github.com/sigreer/hwsnap/internal/source"
	"github.com/sigreer/hwsnap/internal/units"
)

// "Type 0, Family 6, Model 85, Stepping 4"
var signatureRe = regexp.MustCompile(`Family (\d+), Model (\d+), Stepping (\d+)`)

// parseDmidecodeProcessors parses `dmidecode -t 4`. Only populated
// sockets are counted.
func parseDmidecodeProcessors(out source.Output) ([]Observation, error) {
	sections, err := dmi.Parse(out.String())
	if err != nil {
		return nil, err
	}

	var o Observation
	sockets := 0
	for _, s := range dmi.OfType(sections, dmi.TypeProcessor) {
		if !strings.HasPrefix(s.Get("Status"), "Populated") {
			continue
		}
		sockets++
		if sockets > 1 {
			continue
		}

		if m := detect.Ident(s.Get("Manufacturer")); m != nil {
			o.Vendor = detect.Str(classify.CPUVendor(*m))
		}
		o.Model = detect.Ident(s.Get("Version"))
		if m := signatureRe.FindStringSubmatch(s.Get("Signature")); m != nil {
			o.Family = detect.Int(m[1])
			o.ModelID = detect.Int(m[2])
			o.Stepping = detect.Int(m[3])
		}
		if mhz, err := units.ParseMHz(s.Get("Max Speed")); err == nil && mhz > 0 {
			o.MaxMHz = &mhz
		}
		cores := positive(s.Get("Core Count"))
		threads := positive(s.Get("Thread Count"))
		o.CoresPerSocket = cores
		if cores != nil && threads != nil && *threads%*cores == 0 {
			o.ThreadsPerCore = detect.Ptr(*threads / *cores)
		}
	}
	if sockets == 0 {
		return nil, nil
	}
	o.Sockets = &sockets
	return []Observation{o}, nil
}

func dmidecodeDetector() detect.Detector[Observation] {
	return detect.Command[Observation]{
		Method:  "dmidecode",
		Rank:    4,
		Program: "dmidecode",
		Args:    []string{"-t", "4"},
		Parse:   parseDmidecodeProcessors,
	}
}
