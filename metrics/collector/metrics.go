// SPDX-License-Identifier:Apache-2.0

package collector

import (
	"context"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/metallb/quagga-exporter/internal/bgp"
	"github.com/metallb/quagga-exporter/internal/vty"
)

type metric struct {
	Name string
	Help string
}

var (
	Namespace = "quagga"
	Subsystem = "bgp_neighbor"

	NeighborState = metric{
		Name: "state",
		Help: "BGP session state code (0 unknown, 1 idle, 2 connect, 3 active, 4 opensent, 5 openconfirm, 6 established, 7 clearing)",
	}

	NeighborUptime = metric{
		Name: "uptime_seconds",
		Help: "Time the BGP session has been established, in seconds",
	}

	NeighborPrefixes = metric{
		Name: "prefixes_received",
		Help: "Number of prefixes currently received on the BGP session",
	}
)

var (
	polls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "exporter",
		Name:      "polls_total",
		Help:      "Number of summary queries sent to the daemon.",
	}, []string{"plugin_instance"})

	pollErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "exporter",
		Name:      "poll_errors_total",
		Help:      "Number of polls that failed, by cause.",
	}, []string{"plugin_instance", "kind"})
)

// MustRegisterStats registers the exporter self metrics with r.
func MustRegisterStats(r prometheus.Registerer) {
	r.MustRegister(polls, pollErrors)
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, vty.ErrTimeout):
		return "timeout"
	case errors.Is(err, vty.ErrConnect):
		return "connect"
	case errors.Is(err, vty.ErrSend):
		return "send"
	case errors.Is(err, vty.ErrReceive):
		return "receive"
	case errors.Is(err, bgp.ErrDecode):
		return "decode"
	case errors.Is(err, context.Canceled):
		return "canceled"
	}
	return "other"
}
