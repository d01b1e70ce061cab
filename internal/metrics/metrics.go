// Package metrics pushes per-cycle counters to a Prometheus Pushgateway.
//
// loanwatch is a run-to-completion job, so there is nothing for Prometheus
// to scrape; the push-after-exit pattern makes the last cycle's counts and
// outcome visible to dashboards and alerting.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/roach88/loanwatch/internal/cycle"
)

// Push publishes one cycle summary to the Pushgateway at url under the
// given job name. Failure to push is reported but should not fail the
// cycle; metrics are best-effort observability.
func Push(url, job string, sum cycle.Summary) error {
	reg := prometheus.NewRegistry()

	gauges := map[string]struct {
		help  string
		value float64
	}{
		"loanwatch_cycle_observed_records": {
			help:  "Records observed in the last cycle.",
			value: float64(sum.Observed),
		},
		"loanwatch_cycle_changes_detected": {
			help:  "Change events detected in the last cycle.",
			value: float64(sum.Changes),
		},
		"loanwatch_cycle_new_records": {
			help:  "Records observed for the first time in the last cycle.",
			value: float64(sum.NewRecords),
		},
		"loanwatch_cycle_notifications_delivered": {
			help:  "Delivery-eligible events handed to the webhook in the last cycle.",
			value: float64(sum.Delivered),
		},
		"loanwatch_cycle_missing_records": {
			help:  "Stored records absent from the last observation.",
			value: float64(sum.Missing),
		},
		"loanwatch_cycle_duration_seconds": {
			help:  "Wall-clock duration of the last cycle.",
			value: sum.Duration.Seconds(),
		},
	}

	for name, g := range gauges {
		gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: g.help})
		gauge.Set(g.value)
		reg.MustRegister(gauge)
	}

	success := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "loanwatch_cycle_success",
		Help: "1 if the last cycle completed without error.",
	})
	if sum.Err == "" {
		success.Set(1)
	}
	reg.MustRegister(success)

	return push.New(url, job).Gatherer(reg).Push()
}
