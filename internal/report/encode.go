package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/sigreer/hwsnap/internal/detect"
	"github.com/sigreer/hwsnap/internal/units"
)

// Format selects an encoder.
type Format string

const (
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatTable Format = "table"
)

// ParseFormat accepts json, yaml (or yml) and table.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "table", "":
		return FormatTable, nil
	}
	return "", fmt.Errorf("unknown output format %q (valid: json, yaml, table)", s)
}

// Encode writes v in format f. Table rendering is only defined for a
// *Report; other values fall back to YAML.
func Encode(w io.Writer, v any, f Format) error {
	switch f {
	case FormatJSON:
		return WriteJSON(w, v)
	case FormatYAML:
		return WriteYAML(w, v)
	case FormatTable:
		if r, ok := v.(*Report); ok {
			return WriteTable(w, r)
		}
		return WriteYAML(w, v)
	}
	return fmt.Errorf("unknown output format %q", f)
}

// WriteJSON outputs v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteYAML outputs v as YAML.
func WriteYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// table buffers rows for one section and aligns them on flush.
type table struct {
	tw *tabwriter.Writer
}

func newTable(w io.Writer, headers ...string) *table {
	t := &table{tw: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)}
	t.row(headers...)
	return t
}

func (t *table) row(cols ...string) {
	fmt.Fprintln(t.tw, "  "+strings.Join(cols, "\t"))
}

func (t *table) flush() error {
	return t.tw.Flush()
}

// WriteTable outputs a human summary. Headings are bold on terminals and
// plain otherwise.
func WriteTable(w io.Writer, r *Report) error {
	heading := lipgloss.NewRenderer(w).NewStyle().Bold(true)
	section := func(title string) {
		fmt.Fprintln(w)
		fmt.Fprintln(w, heading.Render(title))
	}

	printField(w, "Host", r.Hostname)
	printField(w, "Collected", r.CollectedAt.Format(time.RFC3339))
	printField(w, "Report ID", r.ID)
	if s := r.System; s != nil {
		printField(w, "System", join(s.Manufacturer, s.ProductName))
		printPtrField(w, "Serial", s.Serial)
		printField(w, "Board", join(s.BoardVendor, s.BoardName))
		printField(w, "BIOS", join(s.BIOSVendor, s.BIOSVersion, s.BIOSDate))
		printField(w, "OS", join(s.OSName))
		printPtrField(w, "Kernel", s.KernelRelease)
		printPtrField(w, "Hypervisor", s.Hypervisor)
		printField(w, "BMC", join(s.BMCAddress, s.BMCMAC, s.BMCFirmware))
	}

	if len(r.CPU) > 0 {
		section("CPU")
		t := newTable(w, "MODEL", "ARCH", "SOCKETS", "CORES", "THREADS", "MAX MHZ")
		for _, c := range r.CPU {
			t.row(str(c.Model), str(c.Microarchitecture), num(c.Sockets), num(c.TotalCores), num(c.TotalThreads), num(c.MaxMHz))
		}
		if err := t.flush(); err != nil {
			return err
		}
	}

	if len(r.Memory) > 0 {
		section(fmt.Sprintf("MEMORY (%s in %d modules)", units.Human(r.Totals.MemoryBytes, true), r.Totals.DIMMs))
		t := newTable(w, "LOCATOR", "SIZE", "TYPE", "SPEED", "MANUFACTURER", "PART", "SERIAL")
		for _, m := range r.Memory {
			speed := "-"
			if m.SpeedMTs != nil {
				speed = strconv.Itoa(*m.SpeedMTs) + " MT/s"
			}
			t.row(str(m.Locator), bytesOf(m.SizeBytes, true), str(m.Type), speed, str(m.Manufacturer), str(m.PartNumber), str(m.Serial))
		}
		if err := t.flush(); err != nil {
			return err
		}
	}

	if len(r.Storage) > 0 {
		section(fmt.Sprintf("STORAGE (%s raw in %d disks)", units.Human(r.Totals.StorageBytes, false), r.Totals.Disks))
		t := newTable(w, "NAME", "KIND", "SIZE", "MODEL", "SERIAL", "TRANSPORT", "HEALTH")
		for _, d := range r.Storage {
			t.row(str(d.Name), d.Kind, bytesOf(d.SizeBytes, false), str(d.Model), str(d.Serial), str(d.Transport), str(d.Health))
		}
		if err := t.flush(); err != nil {
			return err
		}
	}

	if len(r.GPU) > 0 {
		section("GPU")
		t := newTable(w, "PCI", "VENDOR", "NAME", "VRAM", "DRIVER")
		for _, g := range r.GPU {
			t.row(str(g.PCIAddress), str(g.Vendor), str(g.Name), bytesOf(g.VRAMBytes, true), join(g.Driver, g.DriverVersion))
		}
		if err := t.flush(); err != nil {
			return err
		}
	}

	if len(r.Network) > 0 {
		section("NETWORK")
		t := newTable(w, "NAME", "PCI", "MAC", "SPEED", "STATE", "DRIVER", "MODEL")
		for _, n := range r.Network {
			speed := "-"
			if n.SpeedMbps != nil {
				speed = units.HumanSpeed(*n.SpeedMbps)
			}
			t.row(str(n.Name), str(n.PCIAddress), str(n.MAC), speed, str(n.OperState), str(n.Driver), str(n.Model))
		}
		if err := t.flush(); err != nil {
			return err
		}
	}

	if len(r.Diagnostics) > 0 {
		section("DIAGNOSTICS")
		t := newTable(w, "CATEGORY", "DETECTOR", "KIND", "MESSAGE")
		for _, d := range r.Diagnostics {
			t.row(d.Category, d.Detector, d.Kind.String(), firstLine(d.Message))
		}
		if err := t.flush(); err != nil {
			return err
		}
	}

	if len(r.Conflicts) > 0 {
		section("CONFLICTS")
		t := newTable(w, "CATEGORY", "ENTITY", "FIELD", "KEPT", "IGNORED")
		for _, c := range r.Conflicts {
			t.row(c.Category, c.Entity, c.Field, c.Kept+" ("+c.KeptFrom+")", c.Ignored+" ("+c.IgnoredFrom+")")
		}
		if err := t.flush(); err != nil {
			return err
		}
	}
	return nil
}

// printField prints a labelled value if non-empty
func printField(w io.Writer, label, value string) {
	if value != "" {
		fmt.Fprintf(w, "%-12s %s\n", label+":", value)
	}
}

func printPtrField(w io.Writer, label string, value *string) {
	printField(w, label, detect.Deref(value))
}

func join(parts ...*string) string {
	var out []string
	for _, p := range parts {
		if p != nil && *p != "" {
			out = append(out, *p)
		}
	}
	return strings.Join(out, " ")
}

func str(p *string) string {
	if p == nil || *p == "" {
		return "-"
	}
	return *p
}

func num(p *int) string {
	if p == nil {
		return "-"
	}
	return strconv.Itoa(*p)
}

func bytesOf(p *int64, binary bool) string {
	if p == nil {
		return "-"
	}
	return units.Human(*p, binary)
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
