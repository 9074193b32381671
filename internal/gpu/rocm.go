package gpu

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/sigreer/hwsnap/internal/classify"
	"github.com/sigreer/hwsnap/internal/detect"
	"github.com/sigreer/hwsnap/internal/source"
)

const amdVendorID = "1002"

// rocmValue drops rocm-smi's "N/A" and "Not supported" fillers.
func rocmValue(v string) *string {
	if strings.EqualFold(strings.TrimSpace(v), "not supported") {
		return nil
	}
	return detect.Ident(v)
}

// parseRocmSMI parses `rocm-smi ... --json`. The top level maps "card0",
// "card1" ... to string-valued property maps; other keys ("system") are
// ignored. Cards are returned in index order.
func parseRocmSMI(out source.Output) ([]Observation, error) {
	var raw map[string]map[string]any
	if err := json.Unmarshal(out.Data, &raw); err != nil {
		return nil, &detect.ParseError{Format: "rocm-smi json", Err: err}
	}

	var cards []string
	for k := range raw {
		if isCard(k) {
			cards = append(cards, k)
		}
	}
	sort.Slice(cards, func(i, j int) bool {
		a, b := cardIndex(cards[i]), cardIndex(cards[j])
		return a < b
	})

	var obs []Observation
	for _, card := range cards {
		props := raw[card]
		get := func(key string) string {
			switch v := props[key].(type) {
			case string:
				return v
			case float64:
				return formatFloat(v)
			}
			return ""
		}
		o := Observation{
			VendorID: detect.Str(amdVendorID),
			Name:     rocmValue(get("Card series")),
			VBIOS:    rocmValue(get("VBIOS version")),
			Serial:   rocmValue(get("Serial Number")),
			UUID:     rocmValue(get("Unique ID")),
			Driver:   detect.Str("amdgpu"),
		}
		if addr := rocmValue(get("PCI Bus")); addr != nil {
			o.PCIAddress = detect.Str(classify.CanonicalPCIAddress(*addr))
		}
		if id := rocmValue(get("Card model")); id != nil {
			o.DeviceID = detect.Str(classify.NormalizePCIID(*id))
		}
		if b := detect.Int64(get("VRAM Total Memory (B)")); b != nil && *b > 0 {
			o.VRAMBytes = b
		}
		// Newer releases capitalize the key.
		if o.Name == nil {
			o.Name = rocmValue(get("Card Series"))
		}
		if o.Name == nil {
			o.Name = rocmValue(get("Card SKU"))
		}
		obs = append(obs, o)
	}
	return obs, nil
}

// isCard matches "card" followed by digits only.
func isCard(k string) bool {
	return cardIndex(k) >= 0
}

func cardIndex(k string) int {
	suffix, ok := strings.CutPrefix(k, "card")
	if !ok {
		return -1
	}
	n := detect.Int(suffix)
	if n == nil || *n < 0 {
		return -1
	}
	return *n
}

func formatFloat(f float64) string {
	b, _ := json.Marshal(f)
	return string(b)
}

func rocmSMIDetector() detect.Detector[Observation] {
	return detect.Command[Observation]{
		Method:  "rocm-smi",
		Rank:    1,
		Program: "rocm-smi",
		Args: []string{
			"--showbus", "--showproductname", "--showmeminfo", "vram",
			"--showvbios", "--showserial", "--showuniqueid", "--json",
		},
		Parse: parseRocmSMI,
	}
}
