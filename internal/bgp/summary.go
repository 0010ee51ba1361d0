// SPDX-License-Identifier:Apache-2.0

// Package bgp decodes the JSON output of the daemon's
// "show bgp <family> summary json" command.
package bgp

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

var ErrDecode = errors.New("bgp: cannot decode summary")

// Summary is the decoded reply of a summary query. Dynamic peers are not
// part of Peers.
type Summary struct {
	RouterID string
	// AS is printed as the daemon does, plain ("65000") or in dot
	// notation ("1.10").
	AS       string
	VRFName  string
	Peers    map[string]Peer
}

// Peer holds the attributes of one configured peer. A nil field means the
// daemon did not report it.
type Peer struct {
	State            *State
	Hostname         *string
	Uptime           *int64 // seconds
	PrefixesReceived *int64
}

type summaryJSON struct {
	RouterID string               `json:"routerId"`
	AS       json.RawMessage      `json:"as"`
	VRFName  string               `json:"vrfName"`
	Peers    map[string]*peerJSON `json:"peers"`
}

type peerJSON struct {
	DynamicPeer         bool    `json:"dynamicPeer"`
	State               *string `json:"state"`
	Hostname            *string `json:"hostname"`
	PeerUptimeMsec      *int64  `json:"peerUptimeMsec"`
	PrefixReceivedCount *int64  `json:"prefixReceivedCount"`
}

// ParseSummary parses the summary reply. Any failure is reported as
// ErrDecode and no partial result is returned.
func ParseSummary(raw string) (*Summary, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, errors.WithMessage(ErrDecode, "empty reply")
	}

	var parsed summaryJSON
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, errors.WithMessagef(ErrDecode, "%v", err)
	}
	if parsed.Peers == nil {
		return nil, errors.WithMessage(ErrDecode, "reply has no peers object")
	}

	res := &Summary{
		RouterID: parsed.RouterID,
		AS:       asText(parsed.AS),
		VRFName:  parsed.VRFName,
		Peers:    make(map[string]Peer, len(parsed.Peers)),
	}
	for key, p := range parsed.Peers {
		if p == nil || p.DynamicPeer {
			continue
		}
		res.Peers[key] = p.toPeer()
	}
	return res, nil
}

// asText never fails, the AS number is informational only.
func asText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func (p *peerJSON) toPeer() Peer {
	var res Peer
	if p.State != nil {
		s := ParseState(*p.State)
		res.State = &s
	}
	if p.Hostname != nil {
		h := *p.Hostname
		res.Hostname = &h
	}
	if p.PeerUptimeMsec != nil {
		u := *p.PeerUptimeMsec / 1000
		res.Uptime = &u
	}
	if p.PrefixReceivedCount != nil {
		c := *p.PrefixReceivedCount
		res.PrefixesReceived = &c
	}
	return res
}
