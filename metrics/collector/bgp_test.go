// SPDX-License-Identifier:Apache-2.0

package collector

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-kit/log"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/metallb/quagga-exporter/internal/bgp"
	"github.com/metallb/quagga-exporter/internal/config"
	"github.com/metallb/quagga-exporter/internal/vty"
)

const twoPeersReply = `{"routerId":"10.10.10.10","as":64512,"peers":{
	"10.0.0.1":{"state":"Established","hostname":"router-a","peerUptimeMsec":125000,"prefixReceivedCount":42},
	"10.0.0.2":{"state":"Active"},
	"10.0.0.3":{"state":"Established","dynamicPeer":true,"peerUptimeMsec":1000,"prefixReceivedCount":1}
}}`

type fakeCli struct {
	reply string
	err   error
	calls []string
}

func (f *fakeCli) run(_ context.Context, args string) (string, error) {
	f.calls = append(f.calls, args)
	return f.reply, f.err
}

func expectedExposition(samples map[string][]string) string {
	var b strings.Builder
	for _, m := range []metric{NeighborPrefixes, NeighborState, NeighborUptime} {
		name := fmt.Sprintf("%s_%s_%s", Namespace, Subsystem, m.Name)
		fmt.Fprintf(&b, "# HELP %s %s\n# TYPE %s gauge\n", name, m.Help, name)
		for _, s := range samples[m.Name] {
			fmt.Fprintf(&b, "%s%s\n", name, s)
		}
	}
	return b.String()
}

func testInstance(family string, useHostname bool) config.Instance {
	cfg := config.Default()
	cfg.Family = family
	cfg.UseHostname = useHostname
	return cfg
}

var _ = Describe("BGP collector", func() {
	var (
		buf    *bytes.Buffer
		logger log.Logger
	)

	BeforeEach(func() {
		buf = &bytes.Buffer{}
		logger = log.NewLogfmtLogger(log.NewSyncWriter(buf))
	})

	Context("CollectMetrics", func() {
		It("returns one record per configured peer", func() {
			cli := &fakeCli{reply: twoPeersReply}
			c := newBGPWithCli(context.Background(), logger, testInstance("ipv4 unicast", false), cli.run)

			records, err := c.CollectMetrics(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(cli.calls).To(Equal([]string{"show bgp ipv4 unicast summary json"}))
			Expect(records).To(Equal([]Record{
				{
					Plugin:         Plugin,
					PluginInstance: "bgp_ipv4_unicast",
					Type:           TypeBGPNeighbor,
					TypeInstance:   "10.0.0.1",
					PeerKey:        "10.0.0.1",
					State:          bgp.StateEstablished,
					Uptime:         125,
					Prefixes:       42,
				},
				{
					Plugin:         Plugin,
					PluginInstance: "bgp_ipv4_unicast",
					Type:           TypeBGPNeighbor,
					TypeInstance:   "10.0.0.2",
					PeerKey:        "10.0.0.2",
					State:          bgp.StateActive,
				},
			}))
		})

		It("uses the hostname when configured", func() {
			cli := &fakeCli{reply: twoPeersReply}
			c := newBGPWithCli(context.Background(), logger, testInstance("ipv4 unicast", true), cli.run)

			records, err := c.CollectMetrics(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(2))
			Expect(records[1].TypeInstance).To(Equal("router-a"))
			Expect(records[1].PeerKey).To(Equal("10.0.0.1"))
		})

		It("aborts the cycle on a malformed reply", func() {
			cli := &fakeCli{reply: `{"peers":{"10.0.0.1":`}
			c := newBGPWithCli(context.Background(), logger, testInstance("evpn", false), cli.run)
			before := testutil.ToFloat64(pollErrors.WithLabelValues("bgp_evpn", "decode"))

			records, err := c.CollectMetrics(context.Background())
			Expect(errors.Is(err, bgp.ErrDecode)).To(BeTrue())
			Expect(records).To(BeEmpty())
			Expect(testutil.ToFloat64(pollErrors.WithLabelValues("bgp_evpn", "decode"))).To(Equal(before + 1))
		})

		It("propagates transport errors", func() {
			cli := &fakeCli{err: errors.WithMessage(vty.ErrConnect, "dial /nowhere")}
			c := newBGPWithCli(context.Background(), logger, testInstance("ipv6 unicast", false), cli.run)
			before := testutil.ToFloat64(pollErrors.WithLabelValues("bgp_ipv6_unicast", "connect"))

			records, err := c.CollectMetrics(context.Background())
			Expect(errors.Is(err, vty.ErrConnect)).To(BeTrue())
			Expect(records).To(BeNil())
			Expect(testutil.ToFloat64(pollErrors.WithLabelValues("bgp_ipv6_unicast", "connect"))).To(Equal(before + 1))
		})
	})

	Context("Collect", func() {
		It("exposes three gauges per peer", func() {
			cli := &fakeCli{reply: twoPeersReply}
			c := newBGPWithCli(context.Background(), logger, testInstance("ipv4 unicast", true), cli.run)

			expected := expectedExposition(map[string][]string{
				NeighborState.Name: {
					`{peer="10.0.0.2",plugin_instance="bgp_ipv4_unicast"} 3`,
					`{peer="router-a",plugin_instance="bgp_ipv4_unicast"} 6`,
				},
				NeighborUptime.Name: {
					`{peer="10.0.0.2",plugin_instance="bgp_ipv4_unicast"} 0`,
					`{peer="router-a",plugin_instance="bgp_ipv4_unicast"} 125`,
				},
				NeighborPrefixes.Name: {
					`{peer="10.0.0.2",plugin_instance="bgp_ipv4_unicast"} 0`,
					`{peer="router-a",plugin_instance="bgp_ipv4_unicast"} 42`,
				},
			})
			Expect(testutil.CollectAndCompare(c, strings.NewReader(expected))).To(Succeed())
		})

		It("skips peers sharing a hostname", func() {
			cli := &fakeCli{reply: `{"peers":{
				"10.0.0.1":{"state":"Established","hostname":"leaf"},
				"10.0.0.2":{"state":"Idle","hostname":"leaf"}
			}}`}
			c := newBGPWithCli(context.Background(), logger, testInstance("ipv4 unicast", true), cli.run)

			Expect(testutil.CollectAndCount(c)).To(Equal(3))
			Expect(buf.String()).To(ContainSubstring("duplicate neighbor name"))
		})

		It("emits nothing and logs when the poll fails", func() {
			cli := &fakeCli{reply: "% Unknown command"}
			c := newBGPWithCli(context.Background(), logger, testInstance("ipv4 unicast", false), cli.run)

			Expect(testutil.CollectAndCount(c)).To(Equal(0))
			Expect(buf.String()).To(ContainSubstring("failed to fetch BGP summary"))
		})
	})

	Context("registration", func() {
		It("allows one collector per family on the same registry", func() {
			reg := prometheus.NewRegistry()
			cli := &fakeCli{reply: twoPeersReply}
			Expect(reg.Register(newBGPWithCli(context.Background(), logger, testInstance("ipv4 unicast", false), cli.run))).To(Succeed())
			Expect(reg.Register(newBGPWithCli(context.Background(), logger, testInstance("ipv6 unicast", false), cli.run))).To(Succeed())

			families, err := reg.Gather()
			Expect(err).NotTo(HaveOccurred())
			Expect(families).To(HaveLen(3))
			for _, f := range families {
				Expect(f.GetMetric()).To(HaveLen(4))
			}
		})
	})

	Context("against a vty socket", func() {
		var (
			dir      string
			listener net.Listener
		)

		BeforeEach(func() {
			var err error
			dir, err = os.MkdirTemp("", "vty")
			Expect(err).NotTo(HaveOccurred())
			listener, err = net.Listen("unix", filepath.Join(dir, "bgpd.vty"))
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			listener.Close()
			os.RemoveAll(dir)
		})

		serve := func(reply string, respond bool) {
			go func() {
				defer GinkgoRecover()
				conn, err := listener.Accept()
				if err != nil {
					return
				}
				defer conn.Close()
				_, err = bufio.NewReader(conn).ReadString(0)
				Expect(err).NotTo(HaveOccurred())
				if !respond {
					_, _ = conn.Read(make([]byte, 1))
					return
				}
				_, _ = conn.Write([]byte(reply + "\x00"))
			}()
		}

		It("collects through the socket", func() {
			serve(twoPeersReply, true)
			cfg := testInstance("ipv4 unicast", false)
			cfg.Socket = filepath.Join(dir, "bgpd.vty")
			c := NewBGP(context.Background(), logger, cfg)

			Expect(testutil.CollectAndCount(c)).To(Equal(6))
		})

		It("gives up after the read timeout", func() {
			serve("", false)
			cfg := testInstance("ipv4 unicast", false)
			cfg.Socket = filepath.Join(dir, "bgpd.vty")
			cfg.ReadTimeout = 100 * time.Millisecond
			c := NewBGP(context.Background(), logger, cfg)
			before := testutil.ToFloat64(pollErrors.WithLabelValues("bgp_ipv4_unicast", "timeout"))

			Expect(testutil.CollectAndCount(c)).To(Equal(0))
			Expect(testutil.ToFloat64(pollErrors.WithLabelValues("bgp_ipv4_unicast", "timeout"))).To(Equal(before + 1))
		})

		It("stops polling when the exporter shuts down", func() {
			serve("", false)
			cfg := testInstance("ipv4 unicast", false)
			cfg.Socket = filepath.Join(dir, "bgpd.vty")
			cfg.ReadTimeout = time.Minute
			ctx, cancel := context.WithCancel(context.Background())
			c := NewBGP(ctx, logger, cfg)

			time.AfterFunc(100*time.Millisecond, cancel)
			records, err := c.CollectMetrics(ctx)
			Expect(errors.Is(err, context.Canceled)).To(BeTrue())
			Expect(records).To(BeNil())
		})
	})
})
