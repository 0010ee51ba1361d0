// SPDX-License-Identifier:Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/metallb/quagga-exporter/internal/config"
	"github.com/metallb/quagga-exporter/internal/logging"
	"github.com/metallb/quagga-exporter/internal/vty"
	"github.com/metallb/quagga-exporter/metrics/collector"
)

func main() {
	var (
		metricsAddr    string
		logLevel       string
		configFile     string
		socket         string
		family         string
		useHostname    bool
		connectTimeout time.Duration
		readTimeout    time.Duration
		once           bool
	)

	flag.StringVar(&metricsAddr, "metrics-bind-address", "127.0.0.1:9342", "The address the metric endpoint binds to.")
	flag.StringVar(&logLevel, "log-level", "info", fmt.Sprintf("log level. must be one of: [%s]", logging.Levels.String()))
	flag.StringVar(&configFile, "config", "", "YAML file listing the instances to poll. When set, the per-instance flags are ignored.")
	flag.StringVar(&socket, "socket", vty.DefaultSocket, "The VTY socket of the BGP daemon.")
	flag.StringVar(&family, "family", config.DefaultFamily, "The address family to report peers for, e.g. \"ipv6 unicast\" or \"evpn\".")
	flag.BoolVar(&useHostname, "usehostname", true, "Name peers after the hostname they advertise, when they do.")
	flag.DurationVar(&connectTimeout, "connect-timeout", vty.DefaultTimeout, "Timeout for connecting to the VTY socket.")
	flag.DurationVar(&readTimeout, "read-timeout", vty.DefaultTimeout, "Timeout for reading a reply from the VTY socket.")
	flag.BoolVar(&once, "once", false, "Poll every instance once, log the records and exit.")
	flag.Parse()

	logger, err := logging.Init(os.Stdout, logLevel)
	if err != nil {
		fmt.Printf("failed to initialize logging: %s\n", err)
		os.Exit(1)
	}

	var instances []config.Instance
	if configFile != "" {
		instances, err = config.LoadFile(configFile)
	} else {
		var inst config.Instance
		inst, err = instanceFromFlags(socket, family, useHostname, connectTimeout, readTimeout)
		instances = []config.Instance{inst}
	}
	if err != nil {
		level.Error(logger).Log("op", "startup", "error", err, "msg", "invalid configuration")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bgps := make([]*collector.BGP, 0, len(instances))
	for _, inst := range instances {
		level.Info(logger).Log("op", "startup", "msg", "polling instance", "instance", inst.String())
		bgps = append(bgps, collector.NewBGP(ctx, logger, inst))
	}

	if once {
		if err := dispatchOnce(ctx, logger, bgps, instances); err != nil {
			os.Exit(1)
		}
		return
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector.MustRegisterStats(reg)
	for _, b := range bgps {
		reg.MustRegister(b)
	}

	if err := serve(ctx, logger, reg, metricsAddr); err != nil {
		level.Error(logger).Log("op", "serve", "error", err, "msg", "metrics endpoint failed")
		os.Exit(1)
	}
}

// instanceFromFlags validates the per-instance flags the same way as the
// entries of a config file.
func instanceFromFlags(socket, family string, useHostname bool, connectTimeout, readTimeout time.Duration) (config.Instance, error) {
	return config.Parse(map[string][]interface{}{
		config.KeySocket:         {socket},
		config.KeyFamily:         {family},
		config.KeyUseHostname:    {useHostname},
		config.KeyConnectTimeout: {connectTimeout.String()},
		config.KeyReadTimeout:    {readTimeout.String()},
	})
}

// dispatchOnce polls each instance and logs the records in the
// plugin/type/values shape. A failing instance does not stop the others.
func dispatchOnce(ctx context.Context, l log.Logger, bgps []*collector.BGP, instances []config.Instance) error {
	var lastErr error
	for i, b := range bgps {
		pollCtx, cancel := context.WithTimeout(ctx, instances[i].Timeout())
		records, err := b.CollectMetrics(pollCtx)
		cancel()
		if err != nil {
			level.Error(b.Log).Log("op", "dispatch", "error", err, "msg", "poll failed")
			lastErr = err
			continue
		}
		for _, r := range records {
			level.Info(l).Log("op", "dispatch", "plugin", r.Plugin, "plugin_instance", r.PluginInstance,
				"type", r.Type, "type_instance", r.TypeInstance, "values", fmt.Sprint(r.Values()))
		}
	}
	return lastErr
}

func serve(ctx context.Context, l log.Logger, reg *prometheus.Registry, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{ErrorLog: promLogger{l}}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			level.Error(l).Log("op", "shutdown", "error", err)
		}
	}()

	level.Info(l).Log("op", "serve", "msg", "serving metrics", "address", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// promLogger adapts a go-kit logger to the promhttp error logger.
type promLogger struct {
	l log.Logger
}

func (p promLogger) Println(v ...interface{}) {
	level.Error(p.l).Log("op", "scrape", "msg", fmt.Sprint(v...))
}
