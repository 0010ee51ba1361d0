// SPDX-License-Identifier:Apache-2.0

package collector

import (
	"context"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/metallb/quagga-exporter/internal/config"
	"github.com/metallb/quagga-exporter/internal/vty"
	"github.com/metallb/quagga-exporter/metrics/vtysh"
)

const subsystem = "bgp"

var labels = []string{"peer"}

type neighborDescs struct {
	state    *prometheus.Desc
	uptime   *prometheus.Desc
	prefixes *prometheus.Desc
}

// newNeighborDescs returns descriptors bound to one plugin instance, so that
// several instances can be registered side by side.
func newNeighborDescs(pluginInstance string) neighborDescs {
	constLabels := prometheus.Labels{"plugin_instance": pluginInstance}
	return neighborDescs{
		state: prometheus.NewDesc(
			prometheus.BuildFQName(Namespace, Subsystem, NeighborState.Name),
			NeighborState.Help,
			labels,
			constLabels,
		),
		uptime: prometheus.NewDesc(
			prometheus.BuildFQName(Namespace, Subsystem, NeighborUptime.Name),
			NeighborUptime.Help,
			labels,
			constLabels,
		),
		prefixes: prometheus.NewDesc(
			prometheus.BuildFQName(Namespace, Subsystem, NeighborPrefixes.Name),
			NeighborPrefixes.Help,
			labels,
			constLabels,
		),
	}
}

// BGP polls the neighbor summary of one daemon and address family.
type BGP struct {
	Log    log.Logger
	cfg    config.Instance
	frrCli vtysh.Cli
	descs  neighborDescs
	// ctx bounds every poll, it is cancelled when the exporter stops.
	ctx context.Context
}

func NewBGP(ctx context.Context, l log.Logger, cfg config.Instance) *BGP {
	client := vty.NewClient(cfg.Socket, cfg.ConnectTimeout, cfg.ReadTimeout)
	return newBGPWithCli(ctx, l, cfg, vtysh.ForSocket(client))
}

func newBGPWithCli(ctx context.Context, l log.Logger, cfg config.Instance, frrCli vtysh.Cli) *BGP {
	log := log.With(l, "collector", subsystem, "plugin_instance", GroupLabel(cfg.Family), "socket", cfg.Socket)
	return &BGP{Log: log, cfg: cfg, frrCli: frrCli, descs: newNeighborDescs(GroupLabel(cfg.Family)), ctx: ctx}
}

// CollectMetrics runs one poll cycle. On error no record is returned.
func (c *BGP) CollectMetrics(ctx context.Context) ([]Record, error) {
	polls.WithLabelValues(GroupLabel(c.cfg.Family)).Inc()

	summary, err := vtysh.GetBGPSummary(ctx, c.frrCli, c.cfg.Family)
	if err != nil {
		pollErrors.WithLabelValues(GroupLabel(c.cfg.Family), errorKind(err)).Inc()
		return nil, err
	}

	level.Debug(c.Log).Log("op", "collect", "routerid", summary.RouterID, "as", summary.AS, "vrf", summary.VRFName, "peers", len(summary.Peers))
	for key, p := range summary.Peers {
		level.Debug(c.Log).Log("op", "collect", "peer", key, "state", fmtOptional(p.State), "hostname", fmtOptional(p.Hostname),
			"uptime", fmtOptional(p.Uptime), "prefixes", fmtOptional(p.PrefixesReceived))
	}
	return Map(summary.Peers, c.cfg.Family, c.cfg.UseHostname), nil
}

func (c *BGP) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.descs.state
	ch <- c.descs.uptime
	ch <- c.descs.prefixes
}

func (c *BGP) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(c.ctx, c.cfg.Timeout())
	defer cancel()

	records, err := c.CollectMetrics(ctx)
	if err != nil {
		level.Error(c.Log).Log("error", err, "msg", "failed to fetch BGP summary from the daemon")
		return
	}

	c.updateNeighborMetrics(ch, records)
}

func (c *BGP) updateNeighborMetrics(ch chan<- prometheus.Metric, records []Record) {
	seen := make(map[string]string, len(records))
	for _, r := range records {
		// Two peers announcing the same hostname would make the scrape fail.
		if other, ok := seen[r.TypeInstance]; ok {
			level.Warn(c.Log).Log("op", "collect", "msg", "duplicate neighbor name, skipping", "peer", r.PeerKey, "name", r.TypeInstance, "kept", other)
			continue
		}
		seen[r.TypeInstance] = r.PeerKey

		ch <- prometheus.MustNewConstMetric(c.descs.state, prometheus.GaugeValue, float64(r.State), r.TypeInstance)
		ch <- prometheus.MustNewConstMetric(c.descs.uptime, prometheus.GaugeValue, float64(r.Uptime), r.TypeInstance)
		ch <- prometheus.MustNewConstMetric(c.descs.prefixes, prometheus.GaugeValue, float64(r.Prefixes), r.TypeInstance)
	}
}

func fmtOptional[T any](v *T) interface{} {
	if v == nil {
		return "<absent>"
	}
	return *v
}
