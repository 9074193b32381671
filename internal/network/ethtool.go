package network

import (
	"bufio"
	"context"
	"strings"

	"github.com/sigreer/hwsnap/internal/classify"
	"github.com/sigreer/hwsnap/internal/detect"
	"github.com/sigreer/hwsnap/internal/source"
	"github.com/sigreer/hwsnap/internal/units"
)

// ethtoolFields splits "key: value" lines. Indented continuation lines
// of multi-line values are skipped.
func ethtoolFields(text string) map[string]string {
	fields := make(map[string]string)
	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		key, val, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if _, seen := fields[key]; !seen {
			fields[key] = strings.TrimSpace(val)
		}
	}
	return fields
}

// parseEthtoolDriver parses `ethtool -i <if>`.
func parseEthtoolDriver(name string, out source.Output) (Observation, error) {
	f := ethtoolFields(out.String())
	if _, ok := f["driver"]; !ok {
		return Observation{}, detect.ParseErrorf("ethtool -i", "no driver line for %s", name)
	}
	o := Observation{
		Name:          detect.Str(name),
		Driver:        detect.Str(f["driver"]),
		DriverVersion: detect.Ident(f["version"]),
		Firmware:      detect.Ident(f["firmware-version"]),
	}
	if bus := classify.CanonicalPCIAddress(f["bus-info"]); pciAddressRe.MatchString(bus) {
		o.PCIAddress = &bus
	}
	return o, nil
}

// parseEthtoolLink parses `ethtool <if>`.
func parseEthtoolLink(name string, out source.Output) (Observation, error) {
	text := out.String()
	if !strings.Contains(text, "Settings for ") {
		return Observation{}, detect.ParseErrorf("ethtool", "no settings block for %s", name)
	}
	f := ethtoolFields(text)
	o := Observation{Name: detect.Str(name)}
	if mbps, err := units.ParseLinkSpeed(f["Speed"]); err == nil && mbps > 0 {
		o.SpeedMbps = &mbps
	}
	if d := strings.ToLower(strings.TrimSuffix(f["Duplex"], "!")); d == "full" || d == "half" {
		o.Duplex = &d
	}
	switch f["Link detected"] {
	case "yes":
		o.LinkDetected = detect.Ptr(true)
	case "no":
		o.LinkDetected = detect.Ptr(false)
	}
	return o, nil
}

func ethtoolDriverDetector() detect.Detector[Observation] {
	return detect.Func[Observation]{
		Method: "ethtool-driver",
		Rank:   1,
		Desc:   "ethtool -i <if>",
		Fn: func(ctx context.Context, env detect.Env) ([]Observation, error) {
			names, err := interfaceNames(env.FS)
			if err != nil {
				return nil, err
			}
			return detect.FanOut(ctx, env, names, func(ctx context.Context, name string) (Observation, error) {
				out, err := env.Run(ctx, "ethtool", "-i", name)
				if err != nil {
					return Observation{}, err
				}
				return parseEthtoolDriver(name, out)
			})
		},
	}
}

func ethtoolLinkDetector() detect.Detector[Observation] {
	return detect.Func[Observation]{
		Method: "ethtool-link",
		Rank:   2,
		Desc:   "ethtool <if>",
		Fn: func(ctx context.Context, env detect.Env) ([]Observation, error) {
			names, err := interfaceNames(env.FS)
			if err != nil {
				return nil, err
			}
			return detect.FanOut(ctx, env, names, func(ctx context.Context, name string) (Observation, error) {
				out, err := env.Run(ctx, "ethtool", name)
				if err != nil {
					return Observation{}, err
				}
				return parseEthtoolLink(name, out)
			})
		},
	}
}
