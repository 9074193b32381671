package system

import (
	"bufio"
	"strings"

	"github.com/sigreer/hwsnap/internal/detect"
	"github.com/sigreer/hwsnap/internal/source"
)

// ipmiFields reads ipmitool's "Key : Value" listings. Continuation lines
// (an empty key before the colon) are skipped. MAC values contain colons,
// so only the first one separates key and value.
func ipmiFields(text string) map[string]string {
	fields := make(map[string]string)
	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		key, val, ok := strings.Cut(scanner.Text(), ":")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		if _, seen := fields[key]; !seen {
			fields[key] = strings.TrimSpace(val)
		}
	}
	return fields
}

func parseIPMILan(out source.Output) ([]Observation, error) {
	f := ipmiFields(out.String())
	if _, ok := f["IP Address"]; !ok {
		if _, ok := f["MAC Address"]; !ok {
			return nil, detect.ParseErrorf("ipmitool lan print", "no IP Address or MAC Address")
		}
	}
	o := Observation{
		BMCAddress:       detect.Ident(f["IP Address"]),
		BMCAddressSource: detect.Ident(f["IP Address Source"]),
	}
	if mac := detect.Ident(f["MAC Address"]); mac != nil {
		o.BMCMAC = detect.Ptr(strings.ToLower(*mac))
	}
	return []Observation{o}, nil
}

func parseIPMIMc(out source.Output) ([]Observation, error) {
	f := ipmiFields(out.String())
	if f["Firmware Revision"] == "" && f["IPMI Version"] == "" {
		return nil, detect.ParseErrorf("ipmitool mc info", "no Firmware Revision or IPMI Version")
	}
	return []Observation{{
		BMCFirmware:     detect.Ident(f["Firmware Revision"]),
		BMCManufacturer: detect.Ident(f["Manufacturer Name"]),
		IPMIVersion:     detect.Ident(f["IPMI Version"]),
	}}, nil
}

func ipmiLanDetector() detect.Detector[Observation] {
	return detect.Command[Observation]{
		Method:  "ipmitool-lan",
		Rank:    5,
		Program: "ipmitool",
		Args:    []string{"lan", "print"},
		Parse:   parseIPMILan,
	}
}

func ipmiMcDetector() detect.Detector[Observation] {
	return detect.Command[Observation]{
		Method:  "ipmitool-mc",
		Rank:    6,
		Program: "ipmitool",
		Args:    []string{"mc", "info"},
		Parse:   parseIPMIMc,
	}
}
