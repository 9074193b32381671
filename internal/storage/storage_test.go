package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigreer/hwsnap/internal/detect"
	"github.com/sigreer/hwsnap/internal/source/sourcetest"
)

const lsblkJSON = `{
   "blockdevices": [
      {"name":"loop0", "path":"/dev/loop0", "type":"loop", "size":67108864, "rota":false, "rm":false, "model":null, "vendor":null, "serial":null, "wwn":null, "rev":null, "tran":null, "hctl":null, "log-sec":512, "phy-sec":512},
      {"name":"sda", "path":"/dev/sda", "type":"disk", "size":4000787030016, "rota":true, "rm":false, "model":"ST4000NM0035-1V4107", "vendor":"ATA     ", "serial":"ZC1ABCDE", "wwn":"0x5000c500a6e7b82b", "rev":"TN03", "tran":"sata", "hctl":"0:0:0:0", "log-sec":512, "phy-sec":4096},
      {"name":"sdb", "path":"/dev/sdb", "type":"disk", "size":1000204886016, "rota":false, "rm":false, "model":"Samsung SSD 870", "vendor":"ATA     ", "serial":"S6PNNS0T000001", "wwn":null, "rev":"SVT02B6Q", "tran":"sata", "hctl":"1:0:0:0", "log-sec":512, "phy-sec":512},
      {"name":"nvme0n1", "path":"/dev/nvme0n1", "type":"disk", "size":2000398934016, "rota":false, "rm":false, "model":"Samsung SSD 980 PRO 2TB", "vendor":null, "serial":"S6B0NL0T123456", "wwn":"eui.002538b111b2c3d4", "rev":"5B2QGXA7", "tran":"nvme", "hctl":null, "log-sec":512, "phy-sec":512},
      {"name":"dm-0", "path":"/dev/dm-0", "type":"lvm", "size":107374182400, "rota":false, "rm":false, "model":null, "vendor":null, "serial":null, "wwn":null, "rev":null, "tran":null, "hctl":null, "log-sec":512, "phy-sec":512}
   ]
}`

const nvmeListJSON = `{
  "Devices" : [
    {
      "NameSpace" : 1,
      "DevicePath" : "/dev/nvme0n1",
      "Firmware" : "5B2QGXA7",
      "ModelNumber" : "Samsung SSD 980 PRO 2TB",
      "SerialNumber" : "S6B0NL0T123456",
      "UsedBytes" : 1234567168,
      "MaximumLBA" : 3907029168,
      "PhysicalSize" : 2000398934016,
      "SectorSize" : 512
    }
  ]
}`

const smartSATA = `smartctl 7.3 2022-02-28 r5338 [x86_64-linux-6.1.0] (local build)
Copyright (C) 2002-22, Bruce Allen, Christian Franke, www.smartmontools.org

=== START OF INFORMATION SECTION ===
Model Family:     Seagate Exos 7E8
Device Model:     ST4000NM0035-1V4107
Serial Number:    ZC1ABCDE
LU WWN Device Id: 5 000c50 0a6e7b82b
Firmware Version: TN03
User Capacity:    4,000,787,030,016 bytes [4.00 TB]
Sector Sizes:     512 bytes logical, 4096 bytes physical
Rotation Rate:    7200 rpm
Form Factor:      3.5 inches
Device is:        In smartctl database 7.3/5319
ATA Version is:   ACS-3 T13/2161-D revision 5
SATA Version is:  SATA 3.1, 6.0 Gb/s (current: 6.0 Gb/s)
Local Time is:    Mon Oct 19 10:00:00 2026 UTC
SMART support is: Available - device has SMART capability.
SMART support is: Enabled

=== START OF READ SMART DATA SECTION ===
SMART overall-health self-assessment test result: PASSED
`

// hostTree builds a host with one NVMe drive, one HDD, one SATA SSD and
// the usual software block devices.
func hostTree(t *testing.T) *sourcetest.Tree {
	tree := sourcetest.NewTree(t)
	tree.
		File("/sys/block/nvme0n1/size", "3907029168\n").
		File("/sys/block/nvme0n1/dev", "259:0\n").
		File("/sys/block/nvme0n1/removable", "0\n").
		File("/sys/block/nvme0n1/queue/rotational", "0\n").
		File("/sys/block/nvme0n1/queue/logical_block_size", "512\n").
		File("/sys/block/nvme0n1/wwid", "eui.002538b111b2c3d4\n").
		File("/sys/block/nvme0n1/device/model", "Samsung SSD 980 PRO 2TB                 \n").
		File("/sys/block/nvme0n1/device/serial", "S6B0NL0T123456      \n").
		File("/sys/block/nvme0n1/device/firmware_rev", "5B2QGXA7\n").
		File("/sys/block/nvme0n1/device/transport", "pcie\n").
		File("/sys/block/nvme0n1/device/numa_node", "-1\n")

	tree.
		File("/sys/block/sda/size", "7814037168\n").
		File("/sys/block/sda/dev", "8:0\n").
		File("/sys/block/sda/removable", "0\n").
		File("/sys/block/sda/queue/rotational", "1\n").
		File("/sys/block/sda/queue/logical_block_size", "512\n").
		File("/sys/block/sda/queue/physical_block_size", "4096\n").
		File("/sys/block/sda/device/model", "ST4000NM0035-1V4\n").
		File("/sys/block/sda/device/vendor", "ATA     \n").
		File("/sys/block/sda/device/rev", "TN03\n").
		File("/sys/block/sda/device/vpd_pg80", "\x00\x80\x00\x08ZC1ABCDE").
		Dir("/sys/block/sda/device/scsi_device/0:0:0:0").
		File("/run/udev/data/b8:0", "S:disk/by-id/ata-ST4000NM0035-1V4107_ZC1ABCDE\n"+
			"E:ID_BUS=ata\n"+
			"E:ID_MODEL=ST4000NM0035-1V4107\n"+
			"E:ID_SERIAL=ST4000NM0035-1V4107_ZC1ABCDE\n"+
			"E:ID_SERIAL_SHORT=ZC1ABCDE\n"+
			"E:ID_WWN=0x5000c500a6e7b82b\n"+
			"E:ID_ATA_ROTATION_RATE_RPM=7200\n"+
			"E:DEVLINKS=/dev/disk/by-id/ata-ST4000NM0035-1V4107_ZC1ABCDE /dev/disk/by-id/wwn-0x5000c500a6e7b82b /dev/disk/by-path/pci-0000:00:17.0-ata-1\n")

	tree.
		File("/sys/block/sdb/size", "1953525168\n").
		File("/sys/block/sdb/dev", "8:16\n").
		File("/sys/block/sdb/queue/rotational", "0\n").
		File("/sys/block/sdb/device/model", "Samsung SSD 870\n")

	for _, v := range []string{"loop0", "dm-0", "ram0"} {
		tree.
			File("/sys/block/"+v+"/size", "131072\n").
			File("/sys/block/"+v+"/queue/rotational", "0\n")
	}
	return tree
}

func hostRunner() *sourcetest.Runner {
	return sourcetest.NewRunner().
		On("lsblk -J -b -d -o "+lsblkColumns, lsblkJSON).
		On("nvme list -o json", nvmeListJSON).
		On("smartctl -i -H /dev/sda", smartSATA)
}

func testEnv(t *testing.T) detect.Env {
	return detect.Env{
		Runner:   hostRunner(),
		FS:       hostTree(t).FS(),
		Strict:   true,
		Disabled: map[string]bool{"storage/ghw": true},
	}
}

func byName(disks []Disk) map[string]Disk {
	m := make(map[string]Disk)
	for _, d := range disks {
		m[detect.Deref(d.Name)] = d
	}
	return m
}

func TestResolveNVMe(t *testing.T) {
	res := Resolve(context.Background(), testEnv(t))
	disks := byName(res.Records)

	nvme, ok := disks["nvme0n1"]
	require.True(t, ok)
	assert.Equal(t, "NVMe", nvme.Kind)
	assert.Equal(t, "/dev/nvme0n1", nvme.Path)
	assert.Equal(t, int64(2000398934016), *nvme.SizeBytes)
	assert.InDelta(t, 2000.4, *nvme.SizeGB, 0.001)
	assert.InDelta(t, 2.0, *nvme.SizeTB, 0.001)
	assert.Equal(t, "Samsung SSD 980 PRO 2TB", *nvme.Model)
	assert.Equal(t, "S6B0NL0T123456", *nvme.Serial)
	assert.Equal(t, "5B2QGXA7", *nvme.Firmware)
	assert.Equal(t, "002538b111b2c3d4", *nvme.WWN)
	assert.Equal(t, "nvme", *nvme.Transport)
	assert.Nil(t, nvme.NUMANode)
	assert.Equal(t, []string{"sysfs", "lsblk", "nvme"}, nvme.Sources)
}

func TestResolveClassifiesRotationalDisks(t *testing.T) {
	res := Resolve(context.Background(), testEnv(t))
	disks := byName(res.Records)

	sda := disks["sda"]
	assert.Equal(t, "HDD", sda.Kind)
	assert.Equal(t, "ZC1ABCDE", *sda.Serial)
	assert.Equal(t, "ST4000NM0035-1V4", *sda.Model, "sysfs outranks udev and smartctl")
	assert.Equal(t, 7200, *sda.RotationRPM)
	assert.Equal(t, "0:0:0:0", *sda.HCTL)
	assert.Equal(t, "sata", *sda.Transport)
	assert.Equal(t, "PASSED", *sda.Health)
	assert.Equal(t, "3.5 inches", *sda.FormFactor)
	assert.Equal(t, 4096, *sda.PhysicalBlockSize)
	assert.Contains(t, sda.ByID, "/dev/disk/by-id/wwn-0x5000c500a6e7b82b")
	assert.Equal(t, []string{"sysfs", "udev", "lsblk", "smartctl"}, sda.Sources)

	assert.Equal(t, "SSD", disks["sdb"].Kind)
}

func TestResolveFiltersVirtualDevices(t *testing.T) {
	res := Resolve(context.Background(), testEnv(t))

	names := make([]string, 0, len(res.Records))
	for _, d := range res.Records {
		names = append(names, detect.Deref(d.Name))
	}
	assert.Equal(t, []string{"nvme0n1", "sda", "sdb"}, names)
}

func TestResolveReportsMissingTools(t *testing.T) {
	res := Resolve(context.Background(), testEnv(t))

	kinds := map[string]detect.Kind{}
	for _, e := range res.Errors {
		kinds[e.Detector] = e.Kind
	}
	assert.Equal(t, detect.Unavailable, kinds["lsscsi"])
	assert.Equal(t, detect.Unavailable, kinds["sas3ircu"])
	assert.NotContains(t, kinds, "smartctl", "one answering disk is enough")
	assert.NotContains(t, kinds, "ghw")
}

func TestResolveIsIdempotent(t *testing.T) {
	env := testEnv(t)
	first := Resolve(context.Background(), env)
	second := Resolve(context.Background(), env)
	assert.Equal(t, first.Records, second.Records)
	assert.Equal(t, first.Conflicts, second.Conflicts)
}

func TestResolveEmptyHost(t *testing.T) {
	env := detect.Env{
		Runner:   sourcetest.NewRunner(),
		FS:       sourcetest.NewTree(t).FS(),
		Disabled: map[string]bool{"storage/ghw": true},
	}
	res := Resolve(context.Background(), env)
	assert.Empty(t, res.Records)
	assert.NotEmpty(t, res.Errors)
	for _, e := range res.Errors {
		assert.Equal(t, detect.Unavailable, e.Kind, e.Error())
	}
}

func TestResolveLinksHBAOnlyObservations(t *testing.T) {
	tree := hostTree(t)
	tree.
		File("/sys/block/sdc/size", "15002931888\n").
		File("/sys/block/sdc/queue/rotational", "1\n").
		File("/sys/block/sdc/device/sas_address", "0x5000c500d0a1b2c3\n").
		File("/sys/block/sdc/device/vpd_pg80", "\x00\x80\x00\x14ZL2XYZ120000C9341234")

	runner := hostRunner().
		On("sas3ircu list", sas3ircuList).
		On("sas3ircu 0 display", sas3ircuDisplay)

	env := detect.Env{
		Runner:   runner,
		FS:       tree.FS(),
		Strict:   true,
		Disabled: map[string]bool{"storage/ghw": true},
	}
	res := Resolve(context.Background(), env)
	disks := byName(res.Records)

	sdc := disks["sdc"]
	require.NotNil(t, sdc.Slot)
	assert.Equal(t, 4, *sdc.Slot)
	assert.Equal(t, "2", *sdc.Enclosure)
	assert.Equal(t, "SEAGATE", *sdc.Vendor)
	assert.Contains(t, sdc.Sources, "sas3ircu")
	assert.Len(t, res.Records, 4)
}

func TestResolveSharedSerialsStayDistinct(t *testing.T) {
	// A dual-slot card reader reports one serial for both LUNs, and an
	// NVMe controller's serial is shared by its namespaces.
	lsblk := `{
   "blockdevices": [
      {"name":"sdb", "path":"/dev/sdb", "type":"disk", "size":31914983424, "rota":false, "rm":true, "model":"SD/MMC", "vendor":"Generic-", "serial":"000000001206", "wwn":null, "tran":"usb", "hctl":"6:0:0:0"},
      {"name":"sdc", "path":"/dev/sdc", "type":"disk", "size":127865454592, "rota":false, "rm":true, "model":"SD/MMC/MS PRO", "vendor":"Generic-", "serial":"000000001206", "wwn":null, "tran":"usb", "hctl":"6:0:0:1"},
      {"name":"nvme0n1", "path":"/dev/nvme0n1", "type":"disk", "size":1000204886016, "rota":false, "rm":false, "model":"PM9A3", "serial":"S5GX1234", "wwn":"eui.0025388a11b2c3d1", "tran":"nvme"},
      {"name":"nvme0n2", "path":"/dev/nvme0n2", "type":"disk", "size":1000204886016, "rota":false, "rm":false, "model":"PM9A3", "serial":"S5GX1234", "wwn":"eui.0025388a11b2c3d2", "tran":"nvme"}
   ]
}`
	nvmeList := `{
  "Devices" : [
    {"NameSpace" : 1, "DevicePath" : "/dev/nvme0n1", "ModelNumber" : "PM9A3", "SerialNumber" : "S5GX1234", "PhysicalSize" : 1000204886016, "SectorSize" : 512},
    {"NameSpace" : 2, "DevicePath" : "/dev/nvme0n2", "ModelNumber" : "PM9A3", "SerialNumber" : "S5GX1234", "PhysicalSize" : 1000204886016, "SectorSize" : 512}
  ]
}`
	env := detect.Env{
		Runner: sourcetest.NewRunner().
			On("lsblk -J -b -d -o "+lsblkColumns, lsblk).
			On("nvme list -o json", nvmeList),
		FS:       sourcetest.NewTree(t).FS(),
		Strict:   true,
		Disabled: map[string]bool{"storage/ghw": true, "storage/smartctl": true},
	}
	res := Resolve(context.Background(), env)
	require.Len(t, res.Records, 4)
	assert.Empty(t, res.Conflicts)

	disks := byName(res.Records)
	assert.Equal(t, int64(31914983424), *disks["sdb"].SizeBytes)
	assert.Equal(t, int64(127865454592), *disks["sdc"].SizeBytes)
	assert.Equal(t, "SD/MMC/MS PRO", *disks["sdc"].Model)
	for _, name := range []string{"nvme0n1", "nvme0n2"} {
		d := disks[name]
		assert.Equal(t, "S5GX1234", *d.Serial, name)
		assert.Equal(t, []string{"lsblk", "nvme"}, d.Sources, name)
	}

	var total int64
	for _, d := range res.Records {
		total += detect.Deref(d.SizeBytes)
	}
	assert.Equal(t, int64(31914983424+127865454592+2*1000204886016), total)
}

func TestChainOrder(t *testing.T) {
	var names []string
	for _, d := range Chain().Describe() {
		names = append(names, d.Name)
		assert.Equal(t, Category, d.Category)
	}
	assert.Equal(t, []string{"sysfs", "udev", "lsblk", "nvme", "smartctl", "lsscsi", "sas3ircu", "ghw"}, names)
}
