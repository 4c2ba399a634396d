// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package expand

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	capturesExpanded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "xivcap_captures_expanded",
		Help: "Count of captures that were fully expanded.",
	})

	expandErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "xivcap_expand_errors",
		Help: "Count of fatal expansion errors, by pipeline stage.",
	}, []string{"stage"})

	recordsDecoded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "xivcap_records_decoded",
		Help: "Count of capture records decoded from Data streams.",
	}, []string{"protocol"})

	packetsEmitted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "xivcap_packets_emitted",
		Help: "Count of packets written to disk.",
	}, []string{"protocol", "type"})

	payloadBytes = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "xivcap_payload_bytes",
		Help: "Count of packet payload bytes written to disk.",
	})

	classifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "xivcap_ipc_classifications",
		Help: "Count of IPC opcode classifications, by outcome.",
	}, []string{"result"})

	sizeMismatches = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "xivcap_ipc_size_mismatches",
		Help: "Count of exact opcode matches whose payload size differs from the table.",
	})
)

// RegisterMonitoring registers all of this package's monitoring metrics.
func RegisterMonitoring(reg prometheus.Registerer) {
	reg.MustRegister(
		capturesExpanded,
		expandErrors,
		recordsDecoded,
		packetsEmitted,
		payloadBytes,
		classifications,
		sizeMismatches,
	)
}
