package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var pushDeliveriesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "push_deliveries_total",
		Help: "Total number of push delivery attempts by outcome",
	},
	[]string{"status"},
)

func RecordPushDelivery(status string) {
	pushDeliveriesTotal.WithLabelValues(status).Inc()
}
