package dmi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigreer/hwsnap/internal/detect"
)

const processor = `# dmidecode 3.4
Getting SMBIOS data from sysfs.
SMBIOS 3.2.0 present.

Handle 0x0041, DMI type 4, 48 bytes
Processor Information
	Socket Designation: CPU1
	Type: Central Processor
	Manufacturer: Intel(R) Corporation
	Signature: Type 0, Family 6, Model 85, Stepping 4
	Flags:
		FPU (Floating-point unit on-chip)
		VME (Virtual mode extension)
	Version: Intel(R) Xeon(R) Gold 6130 CPU @ 2.10GHz
	Max Speed: 4000 MHz
	Status: Populated, Enabled
	Core Count: 16

Handle 0x0042, DMI type 7, 27 bytes
Cache Information
	Socket Designation: L1 - Cache
`

func TestParse(t *testing.T) {
	sections, err := Parse(processor)
	require.NoError(t, err)
	require.Len(t, sections, 2)

	cpu := sections[0]
	assert.Equal(t, "0x0041", cpu.Handle)
	assert.Equal(t, TypeProcessor, cpu.Type)
	assert.Equal(t, "Processor Information", cpu.Title)
	assert.Equal(t, "CPU1", cpu.Get("Socket Designation"))
	assert.Equal(t, "16", cpu.Get("Core Count"))
	assert.Equal(t, "", cpu.Get("Thread Count"))
	assert.Equal(t, []string{"FPU (Floating-point unit on-chip)", "VME (Virtual mode extension)"}, cpu.Items("Flags"))

	assert.Len(t, OfType(sections, TypeProcessor), 1)
	assert.Empty(t, OfType(sections, TypeMemory))
}

func TestParseNoEntryPoint(t *testing.T) {
	_, err := Parse("# dmidecode 3.4\n# No SMBIOS nor DMI entry point found, sorry.\n")
	assert.Equal(t, detect.Unavailable, detect.Classify(err))
}

func TestParseEmpty(t *testing.T) {
	sections, err := Parse("")
	require.NoError(t, err)
	assert.Empty(t, sections)
}
