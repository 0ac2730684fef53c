// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package realm

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for realm decisions.
var (
	// authentications counts Authenticate outcomes by result kind.
	authentications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "realmgate_authentications_total",
		Help: "Total number of realm join authentications by result",
	}, []string{"result"})

	// authorizations counts Authorize decisions by action and outcome.
	authorizations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "realmgate_authorizations_total",
		Help: "Total number of authorization decisions by action and outcome",
	}, []string{"action", "allow"})

	// decisionDuration tracks decision latency per entry point.
	decisionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "realmgate_decision_duration_seconds",
		Help:    "Histogram of realm decision latency in seconds",
		Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01},
	}, []string{"operation"})
)

func recordAuthentication(duration time.Duration, err error) {
	result := "granted"
	if err != nil {
		result = ErrorKind(err).String()
	}
	authentications.WithLabelValues(result).Inc()
	decisionDuration.WithLabelValues("authenticate").Observe(duration.Seconds())
}

func recordAuthorization(duration time.Duration, action Action, d Decision) {
	authorizations.WithLabelValues(action.String(), strconv.FormatBool(d.Allow)).Inc()
	decisionDuration.WithLabelValues("authorize").Observe(duration.Seconds())
}
