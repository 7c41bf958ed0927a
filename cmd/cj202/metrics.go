// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"github.com/GermanBionicSystems/co2pwm/cj202"
	"github.com/prometheus/client_golang/prometheus"
)

// sensor is the part of *cj202.Dev the exporter reads.
type sensor interface {
	PPM() cj202.PPM
	Stats() cj202.Stats
}

var gaugeCo2Level = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "air_co2_level",
		Help: "Air Carbon Dioxide level (units: ppm)",
	},
	[]string{"pin"},
)

var (
	descSamples = prometheus.NewDesc(
		"cj202_samples_total",
		"Decoded sensor cycles by outcome.",
		[]string{"pin", "outcome"}, nil)
	descEdges = prometheus.NewDesc(
		"cj202_edges_total",
		"Signal edges seen by the capture source.",
		[]string{"pin"}, nil)
	descTimeouts = prometheus.NewDesc(
		"cj202_capture_timeouts_total",
		"Hardware capture waits that timed out without a pulse.",
		[]string{"pin"}, nil)
	descDropped = prometheus.NewDesc(
		"cj202_dropped_events_total",
		"Edge notifications dropped because the queue was full.",
		[]string{"pin"}, nil)
)

// statsCollector exports the decoder counters of a sensor.
type statsCollector struct {
	pin string
	s   sensor
}

func (c *statsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- descSamples
	ch <- descEdges
	ch <- descTimeouts
	ch <- descDropped
}

func (c *statsCollector) Collect(ch chan<- prometheus.Metric) {
	st := c.s.Stats()
	counter := func(d *prometheus.Desc, v uint64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), append([]string{c.pin}, labels...)...)
	}
	counter(descSamples, st.Accepted, "accepted")
	counter(descSamples, st.Degraded, "degraded")
	counter(descSamples, st.Rejected, "rejected")
	counter(descEdges, st.Edges)
	counter(descTimeouts, st.Timeouts)
	counter(descDropped, st.Dropped)
}

// registerMetrics registers the exporter metrics for the sensor on pin.
func registerMetrics(r prometheus.Registerer, pin string, s sensor) error {
	for _, c := range []prometheus.Collector{
		gaugeCo2Level,
		&statsCollector{pin: pin, s: s},
		// Add Go module build info.
		prometheus.NewBuildInfoCollector(),
	} {
		if err := r.Register(c); err != nil {
			return err
		}
	}
	return nil
}

var _ prometheus.Collector = &statsCollector{}
