package pci

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigreer/hwsnap/internal/classify"
	"github.com/sigreer/hwsnap/internal/detect"
	"github.com/sigreer/hwsnap/internal/source/sourcetest"
)

const lspciOutput = `Slot:	0000:00:00.0
Class:	Host bridge [0600]
Vendor:	Intel Corporation [8086]
Device:	Sky Lake-E DMI3 Registers [2020]
SVendor:	Super Micro Computer Inc [15d9]
SDevice:	Device [095d]
Rev:	07
NUMANode:	0

Slot:	0000:3b:00.0
Class:	3D controller [0302]
Vendor:	NVIDIA Corporation [10de]
Device:	GA100 [A100 PCIe 40GB] [20f1]
SVendor:	NVIDIA Corporation [10de]
SDevice:	Device [145f]
Rev:	a1
Driver:	nvidia
Module:	nvidiafb
Module:	nouveau
Module:	nvidia
NUMANode:	0

Slot:	0000:5e:00.0
Class:	Ethernet controller [0200]
Vendor:	Intel Corporation [8086]
Device:	Ethernet Controller X710 for 10GbE SFP+ [1572]
Rev:	02
Driver:	i40e
`

func TestParseLspci(t *testing.T) {
	devices, err := ParseLspci(lspciOutput)
	require.NoError(t, err)
	require.Len(t, devices, 3)

	gpu := devices[1]
	assert.Equal(t, "0000:3b:00.0", gpu.Address)
	assert.Equal(t, "0302", gpu.ClassID)
	assert.Equal(t, "3D controller", gpu.Class)
	assert.Equal(t, "10de", gpu.VendorID)
	assert.Equal(t, "NVIDIA Corporation", gpu.Vendor)
	assert.Equal(t, "20f1", gpu.DeviceID)
	assert.Equal(t, "GA100 [A100 PCIe 40GB]", gpu.Device)
	assert.Equal(t, "145f", gpu.SubDevice)
	assert.Equal(t, "nvidia", gpu.Driver)
	assert.Equal(t, "nvidiafb", gpu.Module)
	assert.Equal(t, 0, *gpu.NUMANode)
	assert.True(t, gpu.IsClass(classify.PCIClassDisplay))

	nic := devices[2]
	assert.True(t, nic.IsClass(classify.PCIClassNetwork))
	assert.Nil(t, nic.NUMANode)
	assert.False(t, devices[0].IsClass(classify.PCIClassDisplay))
}

func TestParseLspciWithoutDomain(t *testing.T) {
	devices, err := ParseLspci("Slot:\t3b:00.0\nClass:\tVGA compatible controller [0300]\n")
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "0000:3b:00.0", devices[0].Address)
}

func TestParseLspciRejectsGarbage(t *testing.T) {
	_, err := ParseLspci("this is not lspci output\n")
	assert.Equal(t, detect.ParseFailed, detect.Classify(err))
}

func TestListSysfs(t *testing.T) {
	tree := sourcetest.NewTree(t).
		File(DevicesDir+"/0000:3b:00.0/class", "0x030200\n").
		File(DevicesDir+"/0000:3b:00.0/vendor", "0x10de\n").
		File(DevicesDir+"/0000:3b:00.0/device", "0x20f1\n").
		File(DevicesDir+"/0000:3b:00.0/numa_node", "1\n").
		File(DevicesDir+"/0000:3b:00.0/current_link_width", "16\n").
		File(DevicesDir+"/0000:3b:00.0/current_link_speed", "16.0 GT/s PCIe\n").
		Link(DevicesDir+"/0000:3b:00.0/driver", "../../../bus/pci/drivers/nvidia").
		File(DevicesDir+"/0000:5e:00.0/class", "0x020000\n").
		File(DevicesDir+"/0000:5e:00.0/vendor", "0x8086\n").
		File(DevicesDir+"/0000:5e:00.0/numa_node", "-1\n").
		Dir(DevicesDir + "/0000:00:1f.0")

	gpus, err := ListSysfs(tree.FS(), classify.PCIClassDisplay)
	require.NoError(t, err)
	require.Len(t, gpus, 1)
	assert.Equal(t, "0000:3b:00.0", gpus[0].Address)
	assert.Equal(t, "0302", gpus[0].ClassID)
	assert.Equal(t, "10de", gpus[0].VendorID)
	assert.Equal(t, "nvidia", gpus[0].Driver)
	assert.Equal(t, 1, *gpus[0].NUMANode)
	assert.Equal(t, 16, *LinkWidth(tree.FS(), "0000:3b:00.0"))
	assert.Equal(t, "16.0 GT/s PCIe", *LinkSpeed(tree.FS(), "0000:3b:00.0"))

	nics, err := ListSysfs(tree.FS(), classify.PCIClassNetwork)
	require.NoError(t, err)
	require.Len(t, nics, 1)
	assert.Nil(t, nics[0].NUMANode, "numa_node -1 means no affinity")
	assert.Nil(t, LinkWidth(tree.FS(), "0000:5e:00.0"))
}

func TestListSysfsMissing(t *testing.T) {
	_, err := ListSysfs(sourcetest.NewTree(t).FS(), classify.PCIClassDisplay)
	assert.Equal(t, detect.Unavailable, detect.Classify(err))
}
