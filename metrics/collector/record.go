// SPDX-License-Identifier:Apache-2.0

package collector

import (
	"sort"
	"strings"

	"github.com/metallb/quagga-exporter/internal/bgp"
)

const (
	Plugin          = "quagga"
	TypeBGPNeighbor = "quagga_bgp_neighbor"
)

// Record is the state of one BGP neighbor at poll time, in the shape
// expected by the metric sink: plugin/plugin_instance/type/type_instance
// identify the series, Values() carries the samples.
type Record struct {
	Plugin         string
	PluginInstance string
	Type           string
	TypeInstance   string

	// PeerKey is the key the daemon reports the neighbor under, it equals
	// TypeInstance unless the hostname is used.
	PeerKey  string
	State    bgp.State
	Uptime   int64
	Prefixes int64
}

// Values returns state code, uptime in seconds and received prefixes, in
// this order.
func (r Record) Values() []int64 {
	return []int64{int64(r.State), r.Uptime, r.Prefixes}
}

// GroupLabel returns the plugin instance for the given address family.
func GroupLabel(family string) string {
	return "bgp_" + strings.ReplaceAll(family, " ", "_")
}

// Map turns the peer table into one record per peer. Attributes the daemon
// did not report are exported as 0. The hostname is used as type instance
// when useHostname is set and the peer has one.
func Map(peers map[string]bgp.Peer, family string, useHostname bool) []Record {
	group := GroupLabel(family)
	res := make([]Record, 0, len(peers))
	for key, p := range peers {
		r := Record{
			Plugin:         Plugin,
			PluginInstance: group,
			Type:           TypeBGPNeighbor,
			TypeInstance:   key,
			PeerKey:        key,
		}
		if useHostname && p.Hostname != nil {
			r.TypeInstance = *p.Hostname
		}
		if p.State != nil {
			r.State = *p.State
		}
		if p.Uptime != nil {
			r.Uptime = *p.Uptime
		}
		if p.PrefixesReceived != nil {
			r.Prefixes = *p.PrefixesReceived
		}
		res = append(res, r)
	}

	sort.Slice(res, func(i, j int) bool {
		if res[i].TypeInstance != res[j].TypeInstance {
			return res[i].TypeInstance < res[j].TypeInstance
		}
		return res[i].PeerKey < res[j].PeerKey
	})
	return res
}
