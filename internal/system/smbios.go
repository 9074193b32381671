package system

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/sigreer/hwsnap/internal/detect"
	"github.com/sigreer/hwsnap/internal/dmi"
	"github.com/sigreer/hwsnap/internal/source"
)

const dmiIDBase = "/sys/class/dmi/id"

// normalizeUUID lowercases a valid UUID so the sysfs, dmidecode and ghw
// renderings agree. Invalid or placeholder values are unknown.
func normalizeUUID(s string) *string {
	if detect.IsPlaceholder(s) {
		return nil
	}
	u, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return detect.Str(u.String())
}

// dmiIDFields maps /sys/class/dmi/id attributes to observation fields.
// The serial and uuid attributes are root-only; unreadable ones stay
// unknown.
var dmiIDFields = []struct {
	file string
	set  func(*Observation, string)
}{
	{"sys_vendor", func(o *Observation, v string) { o.Manufacturer = detect.Ident(v) }},
	{"product_name", func(o *Observation, v string) { o.ProductName = detect.Ident(v) }},
	{"product_version", func(o *Observation, v string) { o.ProductVersion = detect.Ident(v) }},
	{"product_serial", func(o *Observation, v string) { o.Serial = detect.Ident(v) }},
	{"product_uuid", func(o *Observation, v string) { o.UUID = normalizeUUID(v) }},
	{"product_sku", func(o *Observation, v string) { o.SKU = detect.Ident(v) }},
	{"product_family", func(o *Observation, v string) { o.Family = detect.Ident(v) }},
	{"board_vendor", func(o *Observation, v string) { o.BoardVendor = detect.Ident(v) }},
	{"board_name", func(o *Observation, v string) { o.BoardName = detect.Ident(v) }},
	{"board_version", func(o *Observation, v string) { o.BoardVersion = detect.Ident(v) }},
	{"board_serial", func(o *Observation, v string) { o.BoardSerial = detect.Ident(v) }},
	{"chassis_vendor", func(o *Observation, v string) { o.ChassisVendor = detect.Ident(v) }},
	{"chassis_serial", func(o *Observation, v string) { o.ChassisSerial = detect.Ident(v) }},
	{"chassis_asset_tag", func(o *Observation, v string) { o.ChassisAssetTag = detect.Ident(v) }},
	{"bios_vendor", func(o *Observation, v string) { o.BIOSVendor = detect.Ident(v) }},
	{"bios_version", func(o *Observation, v string) { o.BIOSVersion = detect.Ident(v) }},
	{"bios_date", func(o *Observation, v string) { o.BIOSDate = detect.Ident(v) }},
}

func readDMIID(fsys source.FS) (Observation, error) {
	if _, err := fsys.ReadDir(dmiIDBase); err != nil {
		return Observation{}, err
	}
	var o Observation
	read := 0
	lastErr := fmt.Errorf("%s: no attributes: %w", dmiIDBase, source.ErrNotFound)
	for _, f := range dmiIDFields {
		v, err := source.ReadTrimmed(fsys, path.Join(dmiIDBase, f.file))
		if err != nil {
			lastErr = err
			continue
		}
		f.set(&o, v)
		read++
	}
	if read == 0 {
		return Observation{}, lastErr
	}
	return o, nil
}

func sysfsDetector() detect.Detector[Observation] {
	return detect.Func[Observation]{
		Method: "sysfs-dmi",
		Rank:   0,
		Desc:   dmiIDBase,
		Fn: func(ctx context.Context, env detect.Env) ([]Observation, error) {
			o, err := readDMIID(env.FS)
			if err != nil {
				return nil, err
			}
			return []Observation{o}, nil
		},
	}
}

// parseDmidecodeSystem reads the BIOS, System and Base Board structures.
func parseDmidecodeSystem(out source.Output) ([]Observation, error) {
	sections, err := dmi.Parse(out.String())
	if err != nil {
		return nil, err
	}

	var o Observation
	found := false
	if s := dmi.OfType(sections, dmi.TypeBIOS); len(s) > 0 {
		found = true
		o.BIOSVendor = detect.Ident(s[0].Get("Vendor"))
		o.BIOSVersion = detect.Ident(s[0].Get("Version"))
		o.BIOSDate = detect.Ident(s[0].Get("Release Date"))
	}
	if s := dmi.OfType(sections, dmi.TypeSystem); len(s) > 0 {
		found = true
		o.Manufacturer = detect.Ident(s[0].Get("Manufacturer"))
		o.ProductName = detect.Ident(s[0].Get("Product Name"))
		o.ProductVersion = detect.Ident(s[0].Get("Version"))
		o.Serial = detect.Ident(s[0].Get("Serial Number"))
		o.UUID = normalizeUUID(s[0].Get("UUID"))
		o.SKU = detect.Ident(s[0].Get("SKU Number"))
		o.Family = detect.Ident(s[0].Get("Family"))
	}
	if s := dmi.OfType(sections, dmi.TypeBaseboard); len(s) > 0 {
		found = true
		o.BoardVendor = detect.Ident(s[0].Get("Manufacturer"))
		o.BoardName = detect.Ident(s[0].Get("Product Name"))
		o.BoardVersion = detect.Ident(s[0].Get("Version"))
		o.BoardSerial = detect.Ident(s[0].Get("Serial Number"))
	}
	if !found {
		return nil, detect.ParseErrorf("dmidecode", "no BIOS, system or baseboard structure")
	}
	return []Observation{o}, nil
}

func dmidecodeDetector() detect.Detector[Observation] {
	return detect.Command[Observation]{
		Method:  "dmidecode",
		Rank:    4,
		Program: "dmidecode",
		Args:    []string{"-t", "0", "-t", "1", "-t", "2"},
		Parse:   parseDmidecodeSystem,
	}
}
