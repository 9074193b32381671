package network

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sigreer/hwsnap/internal/detect"
	"github.com/sigreer/hwsnap/internal/source"
)

// ipLink is one element of `ip -j addr show`.
type ipLink struct {
	IfName    string `json:"ifname"`
	MTU       int    `json:"mtu"`
	OperState string `json:"operstate"`
	LinkType  string `json:"link_type"`
	Address   string `json:"address"`
	AddrInfo  []struct {
		Family    string `json:"family"`
		Local     string `json:"local"`
		PrefixLen int    `json:"prefixlen"`
	} `json:"addr_info"`
}

func parseIPAddr(out source.Output) ([]Observation, error) {
	var links []ipLink
	if err := json.Unmarshal(out.Data, &links); err != nil {
		return nil, &detect.ParseError{Format: "ip -j addr", Err: err}
	}
	obs := make([]Observation, 0, len(links))
	for _, l := range links {
		if l.IfName == "" {
			continue
		}
		o := Observation{
			Name:      detect.Str(l.IfName),
			OperState: detect.Ident(strings.ToLower(l.OperState)),
		}
		if l.LinkType == "ether" {
			o.MAC = normalizeMAC(l.Address)
		}
		if l.LinkType == "loopback" {
			o.Virtual = detect.Ptr(true)
		}
		if l.MTU > 0 {
			o.MTU = detect.Ptr(l.MTU)
		}
		for _, a := range l.AddrInfo {
			if a.Local == "" {
				continue
			}
			o.Addresses = append(o.Addresses, fmt.Sprintf("%s/%d", a.Local, a.PrefixLen))
		}
		obs = append(obs, o)
	}
	return obs, nil
}

func ipDetector() detect.Detector[Observation] {
	return detect.Command[Observation]{
		Method:  "ip",
		Rank:    3,
		Program: "ip",
		Args:    []string{"-j", "addr", "show"},
		Parse:   parseIPAddr,
	}
}
