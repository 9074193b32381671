package gpu

import (
	"context"
	"encoding/csv"
	"path"
	"regexp"
	"strings"

	"github.com/sigreer/hwsnap/internal/classify"
	"github.com/sigreer/hwsnap/internal/detect"
	"github.com/sigreer/hwsnap/internal/source"
)

const nvidiaVendorID = "10de"

// nvidiaSMIFields is the --query-gpu column order parseNvidiaSMI expects.
var nvidiaSMIFields = []string{
	"pci.bus_id",
	"name",
	"uuid",
	"memory.total",
	"driver_version",
	"vbios_version",
	"serial",
}

// nvidiaValue drops nvidia-smi's "[N/A]" and "[Not Supported]" markers.
func nvidiaValue(v string) *string {
	v = strings.TrimSpace(v)
	if strings.HasPrefix(v, "[") && strings.HasSuffix(v, "]") {
		return nil
	}
	return detect.Ident(v)
}

// parseNvidiaSMI parses `nvidia-smi --query-gpu=... --format=csv,noheader,nounits`.
// memory.total is MiB with nounits.
func parseNvidiaSMI(out source.Output) ([]Observation, error) {
	r := csv.NewReader(strings.NewReader(out.String()))
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = len(nvidiaSMIFields)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, &detect.ParseError{Format: "nvidia-smi csv", Err: err}
	}

	var obs []Observation
	for _, row := range rows {
		o := Observation{
			Name:          nvidiaValue(row[1]),
			UUID:          nvidiaValue(row[2]),
			DriverVersion: nvidiaValue(row[4]),
			VBIOS:         nvidiaValue(row[5]),
			Serial:        nvidiaValue(row[6]),
			VendorID:      detect.Str(nvidiaVendorID),
			Driver:        detect.Str("nvidia"),
		}
		if addr := nvidiaValue(row[0]); addr != nil {
			o.PCIAddress = detect.Str(classify.CanonicalPCIAddress(*addr))
		}
		if mib := detect.Int64(detect.Deref(nvidiaValue(row[3]))); mib != nil && *mib > 0 {
			o.VRAMBytes = detect.Ptr(*mib << 20)
		}
		obs = append(obs, o)
	}
	return obs, nil
}

func nvidiaSMIDetector() detect.Detector[Observation] {
	return detect.Command[Observation]{
		Method:  "nvidia-smi",
		Rank:    0,
		Program: "nvidia-smi",
		Args: []string{
			"--query-gpu=" + strings.Join(nvidiaSMIFields, ","),
			"--format=csv,noheader,nounits",
		},
		Parse: parseNvidiaSMI,
	}
}

const nvidiaProcDir = "/proc/driver/nvidia"

// "NVRM version: NVIDIA UNIX x86_64 Kernel Module  535.104.05  Sat Aug 19 01:15:15 UTC 2023"
var nvrmVersionRe = regexp.MustCompile(`Kernel Module(?:\s+for\s+\S+)?\s+(\d+(?:\.\d+)+)`)

// parseNvidiaInformation parses /proc/driver/nvidia/gpus/<addr>/information:
//
//	Model:           NVIDIA A100-PCIE-40GB
//	GPU UUID:        GPU-5f1c0b9a-...
//	Video BIOS:      92.00.25.00.08
//	Bus Location:    0000:3b:00.0
func parseNvidiaInformation(addr, text string) Observation {
	o := Observation{
		PCIAddress: detect.Str(classify.CanonicalPCIAddress(addr)),
		VendorID:   detect.Str(nvidiaVendorID),
		Driver:     detect.Str("nvidia"),
	}
	for _, line := range strings.Split(text, "\n") {
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "Model":
			o.Name = nvidiaValue(val)
		case "GPU UUID":
			o.UUID = nvidiaValue(val)
		case "Video BIOS":
			o.VBIOS = nvidiaValue(val)
		case "Bus Location":
			if v := strings.TrimSpace(val); v != "" {
				o.PCIAddress = detect.Str(classify.CanonicalPCIAddress(v))
			}
		}
	}
	return o
}

func nvidiaProcDetector() detect.Detector[Observation] {
	return detect.Func[Observation]{
		Method: "nvidia-proc",
		Rank:   3,
		Desc:   nvidiaProcDir + "/gpus/*/information",
		Fn: func(ctx context.Context, env detect.Env) ([]Observation, error) {
			gpus, err := env.FS.ReadDir(path.Join(nvidiaProcDir, "gpus"))
			if err != nil {
				return nil, err
			}
			var version *string
			if v, err := env.Read(path.Join(nvidiaProcDir, "version")); err == nil {
				if m := nvrmVersionRe.FindStringSubmatch(v.String()); m != nil {
					version = detect.Str(m[1])
				}
			}
			var obs []Observation
			for _, addr := range gpus {
				info, err := env.Read(path.Join(nvidiaProcDir, "gpus", addr, "information"))
				if err != nil {
					continue
				}
				o := parseNvidiaInformation(addr, info.String())
				o.DriverVersion = version
				obs = append(obs, o)
			}
			return obs, nil
		},
	}
}
