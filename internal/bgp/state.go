// SPDX-License-Identifier:Apache-2.0

package bgp

import "strings"

// State is the numeric code of a BGP session state as exported in metrics.
type State int

const (
	StateUnknown     State = 0
	StateIdle        State = 1
	StateConnect     State = 2
	StateActive      State = 3
	StateOpenSent    State = 4
	StateOpenConfirm State = 5
	StateEstablished State = 6
	// StateClearing covers both "clearing" and "deleted": the session is
	// being torn down.
	StateClearing State = 7
)

var states = map[string]State{
	"idle":        StateIdle,
	"connect":     StateConnect,
	"active":      StateActive,
	"opensent":    StateOpenSent,
	"openconfirm": StateOpenConfirm,
	"established": StateEstablished,
	"clearing":    StateClearing,
	"deleted":     StateClearing,
}

// ParseState returns the code for the given state name, ignoring case.
// Unrecognized names map to StateUnknown.
func ParseState(name string) State {
	return states[strings.ToLower(name)]
}

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnect:
		return "connect"
	case StateActive:
		return "active"
	case StateOpenSent:
		return "opensent"
	case StateOpenConfirm:
		return "openconfirm"
	case StateEstablished:
		return "established"
	case StateClearing:
		return "clearing"
	}
	return "unknown"
}
