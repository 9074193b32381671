package gpu

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigreer/hwsnap/internal/detect"
	"github.com/sigreer/hwsnap/internal/pci"
	"github.com/sigreer/hwsnap/internal/source"
	"github.com/sigreer/hwsnap/internal/source/sourcetest"
)

const nvidiaSMIOutput = `00000000:3B:00.0, NVIDIA A100-PCIE-40GB, GPU-5f1c0b9a-1111-2222-3333-444455556666, 40960, 535.104.05, 92.00.25.00.08, 1321020012345
`

const nvidiaInformation = `Model: 		 NVIDIA A100-PCIE-40GB
IRQ:   		 180
GPU UUID: 	 GPU-5f1c0b9a-1111-2222-3333-444455556666
Video BIOS: 	 92.00.25.00.08
Bus Type: 	 PCIe
DMA Size: 	 47 bits
DMA Mask: 	 0x7fffffffffff
Bus Location: 	 0000:3b:00.0
Device Minor: 	 0
GPU Excluded:	 No
`

const nvidiaVersion = `NVRM version: NVIDIA UNIX x86_64 Kernel Module  535.104.05  Sat Aug 19 01:15:15 UTC 2023
GCC version:  gcc version 12.2.0 (Debian 12.2.0-14)
`

const lspciOutput = `Slot:	0000:03:00.0
Class:	VGA compatible controller [0300]
Vendor:	ASPEED Technology, Inc. [1a03]
Device:	ASPEED Graphics Family [2000]
Rev:	41
Driver:	ast

Slot:	0000:3b:00.0
Class:	3D controller [0302]
Vendor:	NVIDIA Corporation [10de]
Device:	GA100 [A100 PCIe 40GB] [20f1]
Rev:	a1
Driver:	nvidia

Slot:	0000:5e:00.0
Class:	Ethernet controller [0200]
Vendor:	Intel Corporation [8086]
Device:	Ethernet Controller X710 for 10GbE SFP+ [1572]
`

const rocmOutput = `{
  "card0": {
    "PCI Bus": "0000:C3:00.0",
    "Card series": "Instinct MI210",
    "Card model": "0x740f",
    "Card vendor": "Advanced Micro Devices, Inc. [AMD/ATI]",
    "Card SKU": "D67301",
    "VRAM Total Memory (B)": "68702699520",
    "VRAM Total Used Memory (B)": "10850304",
    "VBIOS version": "113-D67301-063",
    "Serial Number": "692241000123",
    "Unique ID": "0x8e3b5c1d2a4f6e70"
  },
  "card1": {
    "PCI Bus": "0000:83:00.0",
    "Card series": "N/A",
    "Card SKU": "D67301",
    "VRAM Total Memory (B)": 68702699520
  },
  "system": {
    "Driver version": "6.2.4"
  }
}`

func gpuTree(t *testing.T) *sourcetest.Tree {
	dev := pci.DevicesDir
	return sourcetest.NewTree(t).
		File(dev+"/0000:03:00.0/class", "0x030000\n").
		File(dev+"/0000:03:00.0/vendor", "0x1a03\n").
		File(dev+"/0000:03:00.0/device", "0x2000\n").
		File(dev+"/0000:03:00.0/numa_node", "-1\n").
		File(dev+"/0000:3b:00.0/class", "0x030200\n").
		File(dev+"/0000:3b:00.0/vendor", "0x10de\n").
		File(dev+"/0000:3b:00.0/device", "0x20f1\n").
		File(dev+"/0000:3b:00.0/numa_node", "0\n").
		File(dev+"/0000:3b:00.0/current_link_width", "16\n").
		File(dev+"/0000:3b:00.0/current_link_speed", "16.0 GT/s PCIe\n").
		Link(dev+"/0000:3b:00.0/driver", "../../../bus/pci/drivers/nvidia").
		File(dev+"/0000:5e:00.0/class", "0x020000\n").
		File(dev+"/0000:5e:00.0/vendor", "0x8086\n").
		File("/proc/driver/nvidia/version", nvidiaVersion).
		File("/proc/driver/nvidia/gpus/0000:3b:00.0/information", nvidiaInformation)
}

func testEnv(t *testing.T, runner *sourcetest.Runner) detect.Env {
	tree := gpuTree(t)
	return detect.Env{
		Runner:   runner,
		FS:       tree.FS(),
		Root:     tree.Root,
		Strict:   true,
		Disabled: map[string]bool{"gpu/ghw": true},
	}
}

func hostRunner() *sourcetest.Runner {
	return sourcetest.NewRunner().
		On("nvidia-smi --query-gpu=pci.bus_id,name,uuid,memory.total,driver_version,vbios_version,serial --format=csv,noheader,nounits", nvidiaSMIOutput).
		On("lspci -Dvmmnnk", lspciOutput)
}

func TestResolve(t *testing.T) {
	res := Resolve(context.Background(), testEnv(t, hostRunner()))
	require.Len(t, res.Records, 2)

	a100 := res.Records[0]
	assert.Equal(t, "0000:3b:00.0", *a100.PCIAddress)
	assert.Equal(t, "NVIDIA A100-PCIE-40GB", *a100.Name)
	assert.Equal(t, "NVIDIA", *a100.Vendor)
	assert.Equal(t, "10de", *a100.VendorID)
	assert.Equal(t, "20f1", *a100.DeviceID)
	assert.Equal(t, "GPU-5f1c0b9a-1111-2222-3333-444455556666", *a100.UUID)
	assert.Equal(t, "1321020012345", *a100.Serial)
	assert.Equal(t, "535.104.05", *a100.DriverVersion)
	assert.Equal(t, "92.00.25.00.08", *a100.VBIOS)
	assert.Equal(t, int64(40960)<<20, *a100.VRAMBytes)
	assert.Equal(t, 40.0, *a100.VRAMGiB)
	assert.Equal(t, 16, *a100.LinkWidth)
	assert.Equal(t, 0, *a100.NUMANode)
	assert.Equal(t, []string{"nvidia-smi", "sysfs", "nvidia-proc", "lspci"}, a100.Sources)

	bmc := res.Records[1]
	assert.Equal(t, "0000:03:00.0", *bmc.PCIAddress)
	assert.Equal(t, "ASPEED", *bmc.Vendor)
	assert.Equal(t, "ASPEED Graphics Family", *bmc.Name)
	assert.Equal(t, "ast", *bmc.Driver)
	assert.Nil(t, bmc.VRAMBytes)
	assert.Nil(t, bmc.VRAMGiB)
	assert.Nil(t, bmc.NUMANode)
	assert.Equal(t, []string{"sysfs", "lspci"}, bmc.Sources)

	require.Len(t, res.Errors, 1)
	assert.Equal(t, "rocm-smi", res.Errors[0].Detector)
	assert.Equal(t, detect.Unavailable, res.Errors[0].Kind)
}

func TestResolveIsIdempotent(t *testing.T) {
	env := testEnv(t, hostRunner())
	first := Resolve(context.Background(), env)
	second := Resolve(context.Background(), env)
	assert.Equal(t, first.Records, second.Records)
}

func TestResolveHeadless(t *testing.T) {
	tree := sourcetest.NewTree(t)
	env := detect.Env{
		Runner:   sourcetest.NewRunner(),
		FS:       tree.FS(),
		Root:     tree.Root,
		Disabled: map[string]bool{"gpu/ghw": true},
	}
	res := Resolve(context.Background(), env)
	assert.Empty(t, res.Records)
	assert.Len(t, res.Errors, 5)
}

func TestParseNvidiaSMIUnsupportedFields(t *testing.T) {
	out := "00000000:AF:00.0, Tesla T4, GPU-aaaa, 15360, 470.82.01, [N/A], [Not Supported]\n"
	obs, err := parseNvidiaSMI(source.NewOutput("nvidia-smi", []byte(out)))
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, "0000:af:00.0", *obs[0].PCIAddress)
	assert.Nil(t, obs[0].VBIOS)
	assert.Nil(t, obs[0].Serial)
	assert.Equal(t, int64(15360)<<20, *obs[0].VRAMBytes)
}

func TestParseNvidiaSMIWrongColumnCount(t *testing.T) {
	_, err := parseNvidiaSMI(source.NewOutput("nvidia-smi", []byte("Tesla T4, 15360\n")))
	assert.Equal(t, detect.ParseFailed, detect.Classify(err))
}

func TestParseRocmSMI(t *testing.T) {
	obs, err := parseRocmSMI(source.NewOutput("rocm-smi", []byte(rocmOutput)))
	require.NoError(t, err)
	require.Len(t, obs, 2)

	mi := obs[0]
	assert.Equal(t, "0000:c3:00.0", *mi.PCIAddress)
	assert.Equal(t, "Instinct MI210", *mi.Name)
	assert.Equal(t, "740f", *mi.DeviceID)
	assert.Equal(t, int64(68702699520), *mi.VRAMBytes)
	assert.Equal(t, "113-D67301-063", *mi.VBIOS)
	assert.Equal(t, "0x8e3b5c1d2a4f6e70", *mi.UUID)

	second := obs[1]
	assert.Equal(t, "0000:83:00.0", *second.PCIAddress)
	assert.Equal(t, "D67301", *second.Name, "SKU stands in when the series is N/A")
	assert.Equal(t, int64(68702699520), *second.VRAMBytes, "numeric JSON values are accepted")

	g := finish(detect.Entity[Observation]{Record: mi})
	assert.Equal(t, "AMD", *g.Vendor)
	assert.Equal(t, 63.98, *g.VRAMGiB)
}

func TestParseRocmSMIInvalid(t *testing.T) {
	_, err := parseRocmSMI(source.NewOutput("rocm-smi", []byte("WARNING: No AMD GPUs specified")))
	assert.Equal(t, detect.ParseFailed, detect.Classify(err))
}

func TestParseNvidiaInformation(t *testing.T) {
	o := parseNvidiaInformation("0000:3b:00.0", nvidiaInformation)
	assert.Equal(t, "NVIDIA A100-PCIE-40GB", *o.Name)
	assert.Equal(t, "0000:3b:00.0", *o.PCIAddress)
	assert.Equal(t, "92.00.25.00.08", *o.VBIOS)
}

func TestNvrmVersion(t *testing.T) {
	m := nvrmVersionRe.FindStringSubmatch(nvidiaVersion)
	require.NotNil(t, m)
	assert.Equal(t, "535.104.05", m[1])

	m = nvrmVersionRe.FindStringSubmatch("NVRM version: NVIDIA UNIX Open Kernel Module for x86_64  550.54.14  Release Build")
	require.NotNil(t, m)
	assert.Equal(t, "550.54.14", m[1])
}

func TestUnknownVendor(t *testing.T) {
	g := finish(detect.Entity[Observation]{Record: Observation{VendorID: detect.Str("abcd")}})
	assert.Equal(t, "Unknown", *g.Vendor)
}

func TestIdentityNormalizesAddress(t *testing.T) {
	a := Identity(Observation{PCIAddress: detect.Str("00000000:3B:00.0")})
	b := Identity(Observation{PCIAddress: detect.Str("0000:3b:00.0")})
	assert.Equal(t, a[0], b[0])
}
