package database

import (
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// PoolSnapshot is a point-in-time view of connection pool usage.
type PoolSnapshot struct {
	Acquired        int32
	Idle            int32
	Total           int32
	Max             int32
	AcquireCount    int64
	EmptyAcquires   int64
	AcquireDuration time.Duration
}

// PoolStatsFunc returns the current pool snapshot.
type PoolStatsFunc func() PoolSnapshot

// PgxPoolStats adapts a pgx pool to a PoolStatsFunc.
func PgxPoolStats(pool *pgxpool.Pool) PoolStatsFunc {
	return func() PoolSnapshot {
		s := pool.Stat()
		return PoolSnapshot{
			Acquired:        s.AcquiredConns(),
			Idle:            s.IdleConns(),
			Total:           s.TotalConns(),
			Max:             s.MaxConns(),
			AcquireCount:    s.AcquireCount(),
			EmptyAcquires:   s.EmptyAcquireCount(),
			AcquireDuration: s.AcquireDuration(),
		}
	}
}

type poolMetric struct {
	desc  *prometheus.Desc
	kind  prometheus.ValueType
	value func(PoolSnapshot) float64
}

// PoolStatsCollector exports pool snapshots as Prometheus metrics.
type PoolStatsCollector struct {
	stats   PoolStatsFunc
	service string
	metrics []poolMetric
}

// NewPoolStatsCollector builds a collector that reads stats on every scrape.
func NewPoolStatsCollector(stats PoolStatsFunc, service string) *PoolStatsCollector {
	gauge := func(name, help string, fn func(PoolSnapshot) float64) poolMetric {
		return poolMetric{prometheus.NewDesc(name, help, []string{"service"}, nil), prometheus.GaugeValue, fn}
	}
	counter := func(name, help string, fn func(PoolSnapshot) float64) poolMetric {
		return poolMetric{prometheus.NewDesc(name, help, []string{"service"}, nil), prometheus.CounterValue, fn}
	}

	return &PoolStatsCollector{
		stats:   stats,
		service: service,
		metrics: []poolMetric{
			gauge("db_pool_acquired_connections", "Connections currently checked out",
				func(s PoolSnapshot) float64 { return float64(s.Acquired) }),
			gauge("db_pool_idle_connections", "Connections currently idle",
				func(s PoolSnapshot) float64 { return float64(s.Idle) }),
			gauge("db_pool_total_connections", "Connections currently open",
				func(s PoolSnapshot) float64 { return float64(s.Total) }),
			gauge("db_pool_max_connections", "Configured pool size",
				func(s PoolSnapshot) float64 { return float64(s.Max) }),
			counter("db_pool_acquire_count_total", "Connection acquires",
				func(s PoolSnapshot) float64 { return float64(s.AcquireCount) }),
			counter("db_pool_empty_acquire_count_total", "Acquires that had to wait for a connection",
				func(s PoolSnapshot) float64 { return float64(s.EmptyAcquires) }),
			counter("db_pool_acquire_duration_seconds_total", "Time spent acquiring connections",
				func(s PoolSnapshot) float64 { return s.AcquireDuration.Seconds() }),
		},
	}
}

// Describe implements prometheus.Collector.
func (c *PoolStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range c.metrics {
		ch <- m.desc
	}
}

// Collect implements prometheus.Collector.
func (c *PoolStatsCollector) Collect(ch chan<- prometheus.Metric) {
	snap := c.stats()
	for _, m := range c.metrics {
		ch <- prometheus.MustNewConstMetric(m.desc, m.kind, m.value(snap), c.service)
	}
}

// RegisterPoolMetrics registers a collector for pool with reg.
func RegisterPoolMetrics(reg prometheus.Registerer, pool *pgxpool.Pool, service string) error {
	return reg.Register(NewPoolStatsCollector(PgxPoolStats(pool), service))
}
