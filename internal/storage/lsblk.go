package storage

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/sigreer/hwsnap/internal/detect"
	"github.com/sigreer/hwsnap/internal/source"
)

// lsblkOutput represents the JSON output from lsblk
type lsblkOutput struct {
	Blockdevices []lsblkDevice `json:"blockdevices"`
}

// lsblkDevice represents a single device in lsblk output. util-linux
// before 2.33 prints every value as a string; newer releases use JSON
// numbers and booleans, so each column goes through lsblkValue.
type lsblkDevice struct {
	Name   lsblkValue `json:"name"`
	Path   lsblkValue `json:"path"`
	Type   lsblkValue `json:"type"`
	Size   lsblkValue `json:"size"`
	Rota   lsblkValue `json:"rota"`
	RM     lsblkValue `json:"rm"`
	Model  lsblkValue `json:"model"`
	Vendor lsblkValue `json:"vendor"`
	Serial lsblkValue `json:"serial"`
	WWN    lsblkValue `json:"wwn"`
	Rev    lsblkValue `json:"rev"`
	Tran   lsblkValue `json:"tran"`
	HCTL   lsblkValue `json:"hctl"`
	LogSec lsblkValue `json:"log-sec"`
	PhySec lsblkValue `json:"phy-sec"`
}

// lsblkValue accepts a string, number, boolean or null.
type lsblkValue string

func (v *lsblkValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*v = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = lsblkValue(s)
	case bytes.Equal(b, []byte("true")):
		*v = "1"
	case bytes.Equal(b, []byte("false")):
		*v = "0"
	default:
		*v = lsblkValue(b)
	}
	return nil
}

func (v lsblkValue) String() string {
	return strings.TrimSpace(string(v))
}

var lsblkColumns = "NAME,PATH,TYPE,SIZE,ROTA,RM,MODEL,VENDOR,SERIAL,WWN,REV,TRAN,HCTL,LOG-SEC,PHY-SEC"

// parseLsblk parses `lsblk -J -b -d -o ...`. Only whole disks are kept.
func parseLsblk(out source.Output) ([]Observation, error) {
	var output lsblkOutput
	if err := json.Unmarshal(out.Data, &output); err != nil {
		return nil, &detect.ParseError{Format: "lsblk json", Err: err}
	}

	var obs []Observation
	for _, dev := range output.Blockdevices {
		if t := dev.Type.String(); t != "" && t != "disk" {
			continue
		}
		name := dev.Name.String()
		if name == "" && dev.Path.String() != "" {
			name = strings.TrimPrefix(dev.Path.String(), "/dev/")
		}
		o := Observation{
			Name:     detect.Str(name),
			Model:    detect.Ident(dev.Model.String()),
			Vendor:   detect.Ident(dev.Vendor.String()),
			Serial:   detect.Ident(dev.Serial.String()),
			WWN:      normalizeWWN(dev.WWN.String()),
			Firmware: detect.Ident(dev.Rev.String()),
			HCTL:     detect.Str(dev.HCTL.String()),
		}
		if tran := dev.Tran.String(); tran != "" {
			o.Transport = detect.Str(strings.ToLower(tran))
		}
		if size := detect.Int64(dev.Size.String()); size != nil && *size >= 0 {
			o.SizeBytes = size
		}
		o.Rotational = parseFlag(dev.Rota.String())
		o.Removable = parseFlag(dev.RM.String())
		o.LogicalBlockSize = positiveInt(dev.LogSec.String())
		o.PhysicalBlockSize = positiveInt(dev.PhySec.String())
		obs = append(obs, o)
	}
	return obs, nil
}

func lsblkDetector() detect.Detector[Observation] {
	return detect.Command[Observation]{
		Method:  "lsblk",
		Rank:    2,
		Program: "lsblk",
		Args:    []string{"-J", "-b", "-d", "-o", lsblkColumns},
		Parse:   parseLsblk,
	}
}
