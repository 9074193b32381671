// Package dmi parses dmidecode text output into typed sections. It is
// shared by the CPU, memory and system detectors.
package dmi

import (
	"bufio"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/sigreer/hwsnap/internal/source"
)

// SMBIOS structure types used by the detectors.
const (
	TypeBIOS      = 0
	TypeSystem    = 1
	TypeBaseboard = 2
	TypeProcessor = 4
	TypeMemory    = 17
)

// Property is a key with an optional value and an optional item list:
//
//	Flags:
//		FPU (Floating-point unit on-chip)
//		VME (Virtual mode extension)
type Property struct {
	Value string
	Items []string
}

// Section is one "Handle 0x0041, DMI type 4, 48 bytes" block.
type Section struct {
	Handle     string
	Type       int
	Title      string
	Properties map[string]Property
}

// Get returns the trimmed value of key, or "".
func (s Section) Get(key string) string {
	return strings.TrimSpace(s.Properties[key].Value)
}

// Items returns the list under key.
func (s Section) Items(key string) []string {
	return s.Properties[key].Items
}

var handleRe = regexp.MustCompile(`^Handle (0x[0-9A-Fa-f]+), DMI type (\d+)`)

// Parse splits dmidecode output into sections. Output without a single
// handle means the firmware exposes no SMBIOS table.
func Parse(text string) ([]Section, error) {
	if strings.Contains(text, "No SMBIOS nor DMI entry point found") {
		return nil, fmt.Errorf("dmidecode: no SMBIOS entry point: %w", source.ErrNotFound)
	}

	var sections []Section
	var current *Section
	var lastKey string

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		if m := handleRe.FindStringSubmatch(line); m != nil {
			if current != nil {
				sections = append(sections, *current)
			}
			typ, _ := strconv.Atoi(m[2])
			current = &Section{Handle: m[1], Type: typ, Properties: make(map[string]Property)}
			lastKey = ""
			continue
		}
		if current == nil || strings.TrimSpace(line) == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "\t\t"):
			// List item under the previous key
			if lastKey != "" {
				p := current.Properties[lastKey]
				p.Items = append(p.Items, strings.TrimSpace(line))
				current.Properties[lastKey] = p
			}
		case strings.HasPrefix(line, "\t"):
			key, val, _ := strings.Cut(strings.TrimSpace(line), ":")
			lastKey = strings.TrimSpace(key)
			current.Properties[lastKey] = Property{Value: strings.TrimSpace(val)}
		default:
			if current.Title == "" {
				current.Title = strings.TrimSpace(line)
			}
		}
	}
	if current != nil {
		sections = append(sections, *current)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return sections, nil
}

// OfType filters sections by SMBIOS type.
func OfType(sections []Section, typ int) []Section {
	var out []Section
	for _, s := range sections {
		if s.Type == typ {
			out = append(out, s)
		}
	}
	return out
}
