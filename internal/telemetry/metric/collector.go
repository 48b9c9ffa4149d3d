package metric

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/memkv/internal/storage/memory"
)

// StatsSource provides store counters.
type StatsSource interface {
	Stats() memory.Stats
}

// StoreCollector exports store counters at scrape time.
type StoreCollector struct {
	source StatsSource

	keys    *prometheus.Desc
	hits    *prometheus.Desc
	misses  *prometheus.Desc
	expired *prometheus.Desc
	shard   *prometheus.Desc
}

// NewStoreCollector creates a collector over source.
func NewStoreCollector(source StatsSource) *StoreCollector {
	return &StoreCollector{
		source: source,
		keys: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "store", "keys"),
			"Entries held by the store, including expired entries not yet evicted.",
			nil, nil),
		hits: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "store", "hits_total"),
			"GET lookups that found a live key.",
			nil, nil),
		misses: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "store", "misses_total"),
			"GET lookups that found no live key.",
			nil, nil),
		expired: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "store", "expired_total"),
			"Entries removed after their deadline passed.",
			nil, nil),
		shard: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "store", "shard_keys"),
			"Entries held by each store shard.",
			[]string{"shard"}, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *StoreCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.keys
	ch <- c.hits
	ch <- c.misses
	ch <- c.expired
	ch <- c.shard
}

// Collect implements prometheus.Collector.
func (c *StoreCollector) Collect(ch chan<- prometheus.Metric) {
	st := c.source.Stats()
	ch <- prometheus.MustNewConstMetric(c.keys, prometheus.GaugeValue, float64(st.Keys))
	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(st.Hits))
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(st.Misses))
	ch <- prometheus.MustNewConstMetric(c.expired, prometheus.CounterValue, float64(st.Expired))
	for i, n := range st.Shards {
		ch <- prometheus.MustNewConstMetric(c.shard, prometheus.GaugeValue, float64(n), strconv.Itoa(i))
	}
}
