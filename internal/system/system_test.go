package system

import (
	"context"
	"testing"

	ghwbaseboard "github.com/jaypipes/ghw/pkg/baseboard"
	ghwbios "github.com/jaypipes/ghw/pkg/bios"
	ghwproduct "github.com/jaypipes/ghw/pkg/product"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigreer/hwsnap/internal/detect"
	"github.com/sigreer/hwsnap/internal/source"
	"github.com/sigreer/hwsnap/internal/source/sourcetest"
)

const dmidecodeSystem = `# dmidecode 3.3
Getting SMBIOS data from sysfs.
SMBIOS 3.2.0 present.

Handle 0x0000, DMI type 0, 26 bytes
BIOS Information
	Vendor: American Megatrends Inc.
	Version: 3.4
	Release Date: 03/14/2023
	Characteristics:
		PCI is supported
		BIOS is upgradeable

Handle 0x0001, DMI type 1, 27 bytes
System Information
	Manufacturer: Supermicro
	Product Name: SYS-2029U-TR4
	Version: 0123456789
	Serial Number: S123456X
	UUID: 00000000-0000-0000-0000-AC1F6B123456
	Wake-up Type: Power Switch
	SKU Number: Default string
	Family: Default string

Handle 0x0002, DMI type 2, 15 bytes
Base Board Information
	Manufacturer: Supermicro
	Product Name: X11DPU
	Version: 1.10
	Serial Number: ZM19AS012345
	Asset Tag: Default string
`

const osRelease = `PRETTY_NAME="Ubuntu 22.04.4 LTS"
NAME="Ubuntu"
VERSION_ID="22.04"
VERSION="22.04.4 LTS (Jammy Jellyfish)"
ID=ubuntu
ID_LIKE=debian
# comment
`

const meminfo = `MemTotal:       263842548 kB
MemFree:        12345678 kB
MemAvailable:   200000000 kB
`

const ipmiLan = `Set in Progress         : Set Complete
Auth Type Support       : NONE MD2 MD5 PASSWORD
Auth Type Enable        : Callback : MD2 MD5 PASSWORD
                        : User     : MD2 MD5 PASSWORD
IP Address Source       : DHCP Address
IP Address              : 10.20.0.15
Subnet Mask             : 255.255.255.0
MAC Address             : AC:1F:6B:12:34:57
Default Gateway IP      : 10.20.0.1
`

const ipmiMc = `Device ID                 : 32
Device Revision           : 1
Firmware Revision         : 1.74
IPMI Version              : 2.0
Manufacturer ID           : 10876
Manufacturer Name         : Super Micro Computer Inc.
Product ID                : 2324 (0x0914)
Additional Device Support :
    Sensor Device
    SDR Repository Device
`

func systemTree(t *testing.T) *sourcetest.Tree {
	tree := sourcetest.NewTree(t)
	for file, v := range map[string]string{
		"sys_vendor":        "Supermicro\n",
		"product_name":      "SYS-2029U-TR4\n",
		"product_version":   "0123456789\n",
		"product_serial":    "S123456X\n",
		"product_uuid":      "00000000-0000-0000-0000-ac1f6b123456\n",
		"product_sku":       "Default string\n",
		"board_vendor":      "Supermicro\n",
		"board_name":        "X11DPU\n",
		"board_version":     "1.10\n",
		"board_serial":      "ZM19AS012345\n",
		"chassis_vendor":    "Supermicro\n",
		"chassis_serial":    "C8270LK12AB0123\n",
		"chassis_asset_tag": "Default string\n",
		"bios_vendor":       "American Megatrends Inc.\n",
		"bios_version":      "3.4\n",
		"bios_date":         "03/14/2023\n",
	} {
		tree.File(dmiIDBase+"/"+file, v)
	}
	tree.File("/etc/os-release", osRelease)
	tree.File("/proc/meminfo", meminfo)
	return tree
}

func systemEnv(t *testing.T, tree *sourcetest.Tree, runner *sourcetest.Runner) detect.Env {
	return detect.Env{
		Runner: runner,
		FS:     tree.FS(),
		Root:   tree.Root,
		Strict: true,
		Disabled: map[string]bool{
			"system/gopsutil": true,
			"system/ghw":      true,
		},
	}
}

func TestResolve(t *testing.T) {
	runner := sourcetest.NewRunner().
		On("dmidecode -t 0 -t 1 -t 2", dmidecodeSystem).
		On("ipmitool lan print", ipmiLan).
		On("ipmitool mc info", ipmiMc)
	res := Resolve(context.Background(), systemEnv(t, systemTree(t), runner))

	require.Len(t, res.Records, 1)
	s := res.Records[0]
	assert.Equal(t, "Supermicro", detect.Deref(s.Manufacturer))
	assert.Equal(t, "SYS-2029U-TR4", detect.Deref(s.ProductName))
	assert.Nil(t, s.ProductVersion)
	assert.Nil(t, s.SKU)
	assert.Equal(t, "S123456X", detect.Deref(s.Serial))
	assert.Equal(t, "00000000-0000-0000-0000-ac1f6b123456", detect.Deref(s.UUID))
	assert.Equal(t, "X11DPU", detect.Deref(s.BoardName))
	assert.Equal(t, "C8270LK12AB0123", detect.Deref(s.ChassisSerial))
	assert.Nil(t, s.ChassisAssetTag)
	assert.Equal(t, "3.4", detect.Deref(s.BIOSVersion))
	assert.Equal(t, "Ubuntu 22.04.4 LTS", detect.Deref(s.OSName))
	assert.Equal(t, "ubuntu", detect.Deref(s.OSID))
	assert.Equal(t, "22.04", detect.Deref(s.OSVersion))
	assert.Equal(t, int64(263842548)<<10, detect.Deref(s.MemTotalBytes))
	assert.InDelta(t, 251.62, detect.Deref(s.MemTotalGiB), 0.001)
	assert.Equal(t, "10.20.0.15", detect.Deref(s.BMCAddress))
	assert.Equal(t, "ac:1f:6b:12:34:57", detect.Deref(s.BMCMAC))
	assert.Equal(t, "DHCP Address", detect.Deref(s.BMCAddressSource))
	assert.Equal(t, "1.74", detect.Deref(s.BMCFirmware))
	assert.Equal(t, "Super Micro Computer Inc.", detect.Deref(s.BMCManufacturer))
	assert.Nil(t, s.Hostname)
	assert.Equal(t, []string{"sysfs-dmi", "os-release", "meminfo", "dmidecode", "ipmitool-lan", "ipmitool-mc"}, s.Sources)

	assert.Empty(t, res.Conflicts)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "uname", res.Errors[0].Detector)
	assert.Equal(t, detect.Unavailable, res.Errors[0].Kind)
}

func TestResolveWithoutBMC(t *testing.T) {
	runner := sourcetest.NewRunner().On("dmidecode -t 0 -t 1 -t 2", dmidecodeSystem)
	runner.Responses["ipmitool lan print"] = sourcetest.Response{
		ExitCode: 1,
		Stderr:   "Could not open device at /dev/ipmi0 or /dev/ipmi/0 or /dev/ipmidev/0: No such file or directory\n",
	}
	res := Resolve(context.Background(), systemEnv(t, systemTree(t), runner))

	require.Len(t, res.Records, 1)
	assert.Nil(t, res.Records[0].BMCAddress)

	kinds := map[string]detect.Kind{}
	for _, e := range res.Errors {
		kinds[e.Detector] = e.Kind
	}
	assert.Equal(t, map[string]detect.Kind{
		"uname":        detect.Unavailable,
		"ipmitool-lan": detect.PermissionDenied,
		"ipmitool-mc":  detect.Unavailable,
	}, kinds)
}

func TestResolveNothingAvailable(t *testing.T) {
	tree := sourcetest.NewTree(t)
	res := Resolve(context.Background(), systemEnv(t, tree, sourcetest.NewRunner()))

	assert.Empty(t, res.Records)
	assert.Len(t, res.Errors, 7)
	for _, e := range res.Errors {
		assert.Equal(t, detect.Unavailable, e.Kind, e.Detector)
	}
}

func TestParseOSRelease(t *testing.T) {
	obs, err := parseOSRelease(source.NewOutput("os-release", []byte("NAME='Rocky Linux'\nVERSION=\"9.3 (Blue Onyx)\"\nID=\"rocky\"\nVERSION_ID=\"9.3\"\n")))
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, "Rocky Linux 9.3 (Blue Onyx)", detect.Deref(obs[0].OSName))
	assert.Equal(t, "rocky", detect.Deref(obs[0].OSID))
	assert.Equal(t, "9.3", detect.Deref(obs[0].OSVersion))

	_, err = parseOSRelease(source.NewOutput("os-release", []byte("# nothing here\n")))
	assert.Equal(t, detect.ParseFailed, detect.Classify(err))
}

func TestOSReleaseFallsBackToUsrLib(t *testing.T) {
	tree := sourcetest.NewTree(t).File("/usr/lib/os-release", "ID=debian\nPRETTY_NAME=\"Debian GNU/Linux 12 (bookworm)\"\n")
	obs, err := osReleaseDetector().Attempt(context.Background(), detect.Env{FS: tree.FS()})
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, "debian", detect.Deref(obs[0].OSID))

	_, err = osReleaseDetector().Attempt(context.Background(), detect.Env{FS: sourcetest.NewTree(t).FS()})
	assert.Equal(t, detect.Unavailable, detect.Classify(err))
}

func TestParseMeminfo(t *testing.T) {
	obs, err := parseMeminfo(source.NewOutput("/proc/meminfo", []byte(meminfo)))
	require.NoError(t, err)
	assert.Equal(t, int64(270174769152), detect.Deref(obs[0].MemTotalBytes))

	_, err = parseMeminfo(source.NewOutput("/proc/meminfo", []byte("MemFree: 12 kB\n")))
	assert.Equal(t, detect.ParseFailed, detect.Classify(err))

	_, err = parseMeminfo(source.NewOutput("/proc/meminfo", []byte("MemTotal: lots\n")))
	assert.Equal(t, detect.ParseFailed, detect.Classify(err))
}

func TestParseIPMI(t *testing.T) {
	obs, err := parseIPMILan(source.NewOutput("ipmitool", []byte("IP Address Source : Static Address\nIP Address : 0.0.0.0\nMAC Address : 00:00:00:00:00:00\n")))
	require.NoError(t, err)
	assert.Nil(t, obs[0].BMCAddress)
	assert.Nil(t, obs[0].BMCMAC)
	assert.Equal(t, "Static Address", detect.Deref(obs[0].BMCAddressSource))

	_, err = parseIPMILan(source.NewOutput("ipmitool", []byte("garbage\n")))
	assert.Equal(t, detect.ParseFailed, detect.Classify(err))

	obs, err = parseIPMIMc(source.NewOutput("ipmitool", []byte(ipmiMc)))
	require.NoError(t, err)
	assert.Equal(t, "2.0", detect.Deref(obs[0].IPMIVersion))

	_, err = parseIPMIMc(source.NewOutput("ipmitool", []byte("Device ID : 32\n")))
	assert.Equal(t, detect.ParseFailed, detect.Classify(err))
}

func TestParseDmidecodeSystemEmpty(t *testing.T) {
	_, err := parseDmidecodeSystem(source.NewOutput("dmidecode", []byte("# dmidecode 3.3\n")))
	assert.Equal(t, detect.ParseFailed, detect.Classify(err))
}

func TestReadDMIIDMissing(t *testing.T) {
	_, err := readDMIID(sourcetest.NewTree(t).FS())
	assert.Equal(t, detect.Unavailable, detect.Classify(err))
}

func TestNormalizeUUID(t *testing.T) {
	assert.Equal(t, "4c4c4544-0053-5910-8048-b4c04f4d3432", detect.Deref(normalizeUUID("4C4C4544-0053-5910-8048-B4C04F4D3432")))
	assert.Nil(t, normalizeUUID("Not Settable"))
	assert.Nil(t, normalizeUUID("00000000-0000-0000-0000-000000000000"))
	assert.Nil(t, normalizeUUID("03000200-0400-0500-0006-000700080009"))
}

func TestFromGopsutil(t *testing.T) {
	o := fromGopsutil(&host.InfoStat{
		Hostname:             "node07",
		KernelVersion:        "6.8.0-45-generic",
		KernelArch:           "x86_64",
		Platform:             "redhat",
		VirtualizationSystem: "kvm",
		VirtualizationRole:   "guest",
	}, &mem.VirtualMemoryStat{Total: 8 << 30})
	assert.Equal(t, "node07", detect.Deref(o.Hostname))
	assert.Equal(t, "kvm", detect.Deref(o.Hypervisor))
	assert.Nil(t, o.OSID)
	assert.Equal(t, int64(8<<30), detect.Deref(o.MemTotalBytes))

	o = fromGopsutil(&host.InfoStat{VirtualizationSystem: "kvm", VirtualizationRole: "host"}, nil)
	assert.Nil(t, o.Hypervisor)
	assert.Nil(t, o.MemTotalBytes)
}

func TestFromGhw(t *testing.T) {
	o := fromGhw(
		&ghwproduct.Info{Vendor: "Dell Inc.", Name: "PowerEdge R650", SerialNumber: "7XJ2ZK3", UUID: "4C4C4544-0058-4A10-8032-B7C04F5A4B33", SKU: "unknown"},
		&ghwbios.Info{Vendor: "Dell Inc.", Version: "1.10.2", Date: "01/15/2024"},
		&ghwbaseboard.Info{Vendor: "Dell Inc.", Product: "0PYVT1", SerialNumber: ".7XJ2ZK3.CNFCP0034A00BT."},
	)
	assert.Equal(t, "PowerEdge R650", detect.Deref(o.ProductName))
	assert.Equal(t, "4c4c4544-0058-4a10-8032-b7c04f5a4b33", detect.Deref(o.UUID))
	assert.Nil(t, o.SKU)
	assert.Equal(t, "1.10.2", detect.Deref(o.BIOSVersion))
	assert.Equal(t, "0PYVT1", detect.Deref(o.BoardName))

	assert.Equal(t, Observation{}, fromGhw(nil, nil, nil))
}

func TestIdentityIsSingleton(t *testing.T) {
	assert.Equal(t, Identity(Observation{}), Identity(Observation{Serial: detect.Str("X")}))
}
