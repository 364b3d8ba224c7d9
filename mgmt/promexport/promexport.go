// Package promexport exports graph counters as Prometheus metrics.
package promexport

import (
	"math"
	"net/http"

	"github.com/pktgraph/pktgraph/engine"
	"github.com/pktgraph/pktgraph/graph"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pktgraph"

var (
	descLinkTx = prometheus.NewDesc(prometheus.BuildFQName(namespace, "link", "tx_packets_total"),
		"Packets transmitted into a link.", []string{"link"}, nil)
	descLinkRx = prometheus.NewDesc(prometheus.BuildFQName(namespace, "link", "rx_packets_total"),
		"Packets received from a link.", []string{"link"}, nil)
	descLinkDrop = prometheus.NewDesc(prometheus.BuildFQName(namespace, "link", "tx_drop_total"),
		"Transmits refused because a link was full.", []string{"link"}, nil)
	descLinkOccupancy = prometheus.NewDesc(prometheus.BuildFQName(namespace, "link", "occupancy"),
		"Packets queued on a link.", []string{"link"}, nil)
	descBreaths = prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "breaths_total"),
		"Completed breathe cycles.", nil, nil)
	descPasses = prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "breath_passes"),
		"Mean exhale passes per breath.", nil, nil)
)

// Collector collects graph metrics.
type Collector struct {
	eng *engine.Engine
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector creates a Collector.
// Counters are read via engine.Do, between breaths.
func NewCollector(eng *engine.Engine) *Collector {
	return &Collector{eng: eng}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{descLinkTx, descLinkRx, descLinkDrop, descLinkOccupancy, descBreaths, descPasses} {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	var metrics []prometheus.Metric
	c.eng.Do(func() {
		g := c.eng.Graph()
		if g == nil {
			return
		}
		metrics = collect(g)
	})
	for _, m := range metrics {
		ch <- m
	}
}

func collect(g *graph.Graph) (metrics []prometheus.Metric) {
	for _, l := range g.Links() {
		name, cnt := l.String(), l.Counters()
		metrics = append(metrics,
			prometheus.MustNewConstMetric(descLinkTx, prometheus.CounterValue, float64(cnt.TxPackets), name),
			prometheus.MustNewConstMetric(descLinkRx, prometheus.CounterValue, float64(cnt.RxPackets), name),
			prometheus.MustNewConstMetric(descLinkDrop, prometheus.CounterValue, float64(cnt.TxDrop), name),
			prometheus.MustNewConstMetric(descLinkOccupancy, prometheus.GaugeValue, float64(l.NReadable()), name),
		)
	}

	s := g.Stats()
	passes := s.PassesPerBreath.Mean
	if math.IsNaN(passes) {
		passes = 0
	}
	metrics = append(metrics,
		prometheus.MustNewConstMetric(descBreaths, prometheus.CounterValue, float64(s.Breaths)),
		prometheus.MustNewConstMetric(descPasses, prometheus.GaugeValue, passes),
	)
	return metrics
}

// Handler creates an HTTP handler serving a registry with the Collector and Go runtime metrics.
func Handler(eng *engine.Engine) http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(NewCollector(eng), prometheus.NewGoCollector())
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
