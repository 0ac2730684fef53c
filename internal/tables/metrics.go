// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package tables

import "github.com/prometheus/client_golang/prometheus"

// LastReload records the Unix timestamp of the last successful tables reload.
var LastReload = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "realmgate_tables_last_reload",
	Help: "Unix timestamp of the last successful tables reload",
})

// ReloadFailures counts failed tables reloads.
var ReloadFailures = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "realmgate_tables_reload_failures_total",
	Help: "Total number of failed tables reloads",
})

// Entries records the size of the current snapshot by kind.
var Entries = prometheus.NewGaugeVec(prometheus.GaugeOpts{
	Name: "realmgate_tables_entries",
	Help: "Number of entries in the current tables snapshot",
}, []string{"kind"})

// RegisterMetrics registers the tables metrics with reg.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(LastReload, ReloadFailures, Entries)
}

// MetricsOptions returns the cache options wiring the package metrics.
func MetricsOptions() []CacheOption {
	return []CacheOption{
		WithLastUpdateGauge(LastReload),
		WithReloadFailureCounter(ReloadFailures),
		WithEntriesGauge(Entries),
	}
}
