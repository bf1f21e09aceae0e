// Package metrics exposes the scheduler's Prometheus instrumentation as
// a package-level promauto var block, registered against the default
// registry on import.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PacketsProcessed counts packets dequeued by the batcher, whether
	// transmitted or dropped as a deadline miss.
	PacketsProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "packets_processed_total",
			Help: "Packets dequeued by the batcher across all classes",
		},
	)

	// PacketsTransmitted counts non-empty class columns included in an
	// emitted frame (frame-columns, not source packets).
	PacketsTransmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "packets_transmitted_total",
			Help: "Non-empty class columns included in emitted frames",
		},
	)

	// DeadlineMisses counts packets dropped because their deadline had
	// already passed when the batcher reached them.
	DeadlineMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deadline_misses_total",
			Help: "Packets dropped past their deadline before transmission",
		},
	)

	// QueueDepth tracks the current depth of each class's queue.
	QueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "queue_depth",
			Help: "Current number of packets queued per class",
		},
		[]string{"class"},
	)

	// TXPowerLevel tracks the currently applied transmit power level
	// (0=min .. 3=high).
	TXPowerLevel = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tx_power_level",
			Help: "Currently applied transmit power level",
		},
	)

	// LinkQualityDBM tracks the most recently observed RSSI sample.
	LinkQualityDBM = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "link_quality_dbm",
			Help: "Most recently observed RSSI sample in dBm",
		},
	)

	// ReceiverPacketsReceived counts every frame handed to the receiver,
	// including ones that failed to parse.
	ReceiverPacketsReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "receiver_packets_received_total",
			Help: "Frames handed to the receiver callback",
		},
	)

	// ReceiverDataPackets counts frames that parsed successfully.
	ReceiverDataPackets = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "receiver_data_packets_total",
			Help: "Frames that parsed successfully",
		},
	)

	// ReceiverErrorPackets counts frames rejected during parsing, by
	// failure kind.
	ReceiverErrorPackets = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "receiver_error_packets_total",
			Help: "Frames rejected during parsing, by failure kind",
		},
		[]string{"kind"},
	)
)
