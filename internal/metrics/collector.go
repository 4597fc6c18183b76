package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PipelineState provides the collector access to live pipeline state.
type PipelineState interface {
	JobRunning() bool
}

// BrokerState reports the progress publisher's connection.
type BrokerState interface {
	IsConnected() bool
}

// Collector implements prometheus.Collector to read live gauges at scrape time.
type Collector struct {
	pipeline PipelineState
	broker   BrokerState

	jobRunning    *prometheus.Desc
	mqttConnected *prometheus.Desc
}

// NewCollector creates a collector that reads live state at scrape time.
// broker may be nil when MQTT is not configured.
func NewCollector(pipeline PipelineState, broker BrokerState) *Collector {
	return &Collector{
		pipeline: pipeline,
		broker:   broker,
		jobRunning: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "job_running"),
			"1 while a transcription job is in progress.",
			nil, nil,
		),
		mqttConnected: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "mqtt", "connected"),
			"1 when the progress publisher is connected to its broker.",
			nil, nil,
		),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.jobRunning
	ch <- c.mqttConnected
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	running := 0.0
	if c.pipeline != nil && c.pipeline.JobRunning() {
		running = 1
	}
	ch <- prometheus.MustNewConstMetric(c.jobRunning, prometheus.GaugeValue, running)

	connected := 0.0
	if c.broker != nil && c.broker.IsConnected() {
		connected = 1
	}
	ch <- prometheus.MustNewConstMetric(c.mqttConnected, prometheus.GaugeValue, connected)
}
