/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const Namespace = "klv"

// Metrics contains the Prometheus metrics of the stream server
type Metrics struct {
	BuffersReceived      prometheus.Counter
	BytesReceived        prometheus.Counter
	PacketsDecoded       prometheus.Counter
	TruncatedBuffers     prometheus.Counter
	InterpreterFallbacks prometheus.Counter
	RecordsPublished     prometheus.Counter
	RecordsDropped       prometheus.Counter
	EncodeErrors         prometheus.Counter
	ActiveSessions       prometheus.Gauge
}

// NewMetrics creates the metrics and registers them with reg.
// A nil registerer leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		BuffersReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "buffers_received_total",
			Help:      "Total number of buffers received from the stream",
		}),
		BytesReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "bytes_received_total",
			Help:      "Total number of bytes received from the stream",
		}),
		PacketsDecoded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "packets_decoded_total",
			Help:      "Total number of complete KLV packets decoded",
		}),
		TruncatedBuffers: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "truncated_buffers_total",
			Help:      "Total number of buffers with a dropped incomplete tail",
		}),
		InterpreterFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "interpreter_fallbacks_total",
			Help:      "Total number of fields kept as raw bytes",
		}),
		RecordsPublished: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "records_published_total",
			Help:      "Total number of records handed off to data channels",
		}),
		RecordsDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "records_dropped_total",
			Help:      "Total number of records dropped because the hand-off queue was full",
		}),
		EncodeErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "encode_errors_total",
			Help:      "Total number of records that could not be encoded",
		}),
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "active_sessions",
			Help:      "Current number of WebRTC sessions",
		}),
	}
}

// RecordBuffer counts a buffer received from the stream
func (m *Metrics) RecordBuffer(size int, truncated bool) {
	m.BuffersReceived.Inc()
	m.BytesReceived.Add(float64(size))
	if truncated {
		m.TruncatedBuffers.Inc()
	}
}

func (m *Metrics) RecordPackets(count, fallbacks int) {
	m.PacketsDecoded.Add(float64(count))
	m.InterpreterFallbacks.Add(float64(fallbacks))
}

func (m *Metrics) RecordPublished(ok bool) {
	if ok {
		m.RecordsPublished.Inc()
	} else {
		m.RecordsDropped.Inc()
	}
}

func (m *Metrics) RecordEncodeError() {
	m.EncodeErrors.Inc()
}

func (m *Metrics) SetActiveSessions(count int) {
	m.ActiveSessions.Set(float64(count))
}
