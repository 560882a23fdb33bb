// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pumpstat exports commpump statistics as prometheus metrics.
package pumpstat

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/someonegg/commpump"
)

// Source is implemented by *commpump.Pump.
type Source interface {
	Statistics() commpump.Statistics
}

type counter struct {
	desc  *prometheus.Desc
	value func(s commpump.Statistics) int64
}

// Collector is a prometheus.Collector which reads a pump's counters on
// every scrape.
type Collector struct {
	src      Source
	counters []counter
}

// NewCollector returns a collector for src, name is the "pump" label.
func NewCollector(name string, src Source) *Collector {
	labels := prometheus.Labels{"pump": name}
	desc := func(metric, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName("commpump", "", metric), help, nil, labels)
	}

	return &Collector{
		src: src,
		counters: []counter{
			{desc("read_chunks_total", "Chunks received from the transport."),
				func(s commpump.Statistics) int64 { return s.ReadCount }},
			{desc("read_bytes_total", "Bytes received from the transport."),
				func(s commpump.Statistics) int64 { return s.ReadBytes }},
			{desc("decoded_total", "Values decoded and queued inbound."),
				func(s commpump.Statistics) int64 { return s.DecodedCount }},
			{desc("written_total", "Values sent to the transport."),
				func(s commpump.Statistics) int64 { return s.WrittenCount }},
			{desc("written_bytes_total", "Bytes sent to the transport."),
				func(s commpump.Statistics) int64 { return s.WrittenBytes }},
			{desc("encode_errors_total", "Values dropped because they could not be encoded."),
				func(s commpump.Statistics) int64 { return s.EncodeErrors }},
			{desc("dropped_total", "Values abandoned after a send error."),
				func(s commpump.Statistics) int64 { return s.DroppedCount }},
			{desc("output_total", "Values queued outbound."),
				func(s commpump.Statistics) int64 { return s.OutputCount }},
		},
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range c.counters {
		ch <- m.desc
	}
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.src.Statistics()
	for _, m := range c.counters {
		ch <- prometheus.MustNewConstMetric(m.desc, prometheus.CounterValue, float64(m.value(s)))
	}
}
