package main

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/cachesight/wssmrc/engine"
	"github.com/cachesight/wssmrc/metrics"
)

func newServeReportCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve-report",
		Short: "expose estimator telemetry over HTTP /metrics (Prometheus format)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServeReport(addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":9115", "listen address")
	return cmd
}

// runServeReport exposes Prometheus collectors on /metrics and a JSON
// snapshot of every named estimator in engine.GlobalRegistry on /stats.
func runServeReport(addr string) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector())
	reg.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	est := metrics.NewEstimator("registry", "default")
	for _, c := range est.PrometheusCollectors() {
		reg.MustRegister(c)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/stats", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(engine.GlobalRegistry.AllStats()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})

	log.Printf("wssmrc: serving report endpoint on %s", addr)
	return http.ListenAndServe(addr, mux)
}
