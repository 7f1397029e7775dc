package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PoolStats — снимок счётчиков пула соединений.
type PoolStats struct {
	AcquiredConns        int32
	IdleConns            int32
	TotalConns           int32
	MaxConns             int32
	AcquireCount         int64
	EmptyAcquireCount    int64
	CanceledAcquireCount int64
	AcquireDuration      time.Duration
}

// PoolStatsFunc возвращает текущий снимок; false — пул ещё не создан.
type PoolStatsFunc func() (PoolStats, bool)

// PoolCollector читает статистику пула в момент сбора метрик.
type PoolCollector struct {
	stats PoolStatsFunc

	acquired        *prometheus.Desc
	idle            *prometheus.Desc
	total           *prometheus.Desc
	max             *prometheus.Desc
	acquireCount    *prometheus.Desc
	emptyAcquire    *prometheus.Desc
	canceledAcquire *prometheus.Desc
	acquireSeconds  *prometheus.Desc
}

// NewPoolCollector создаёт коллектор поверх функции снимка.
func NewPoolCollector(stats PoolStatsFunc) *PoolCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "pool", name), help, nil, nil)
	}

	return &PoolCollector{
		stats:           stats,
		acquired:        desc("acquired_conns", "Connections currently checked out of the pool"),
		idle:            desc("idle_conns", "Idle connections in the pool"),
		total:           desc("total_conns", "Total connections owned by the pool"),
		max:             desc("max_conns", "Configured upper bound of pool connections"),
		acquireCount:    desc("acquire_total", "Successful connection acquisitions"),
		emptyAcquire:    desc("empty_acquire_total", "Acquisitions that had to wait for a connection"),
		canceledAcquire: desc("canceled_acquire_total", "Acquisitions canceled while waiting"),
		acquireSeconds:  desc("acquire_duration_seconds_total", "Total time spent waiting for connections"),
	}
}

// RegisterPoolCollector регистрирует коллектор, повторная регистрация не считается ошибкой.
func RegisterPoolCollector(registerer prometheus.Registerer, stats PoolStatsFunc) error {
	err := registererOrDefault(registerer).Register(NewPoolCollector(stats))
	if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
		return nil
	}
	return err
}

// Describe реализует prometheus.Collector.
func (c *PoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.acquired
	ch <- c.idle
	ch <- c.total
	ch <- c.max
	ch <- c.acquireCount
	ch <- c.emptyAcquire
	ch <- c.canceledAcquire
	ch <- c.acquireSeconds
}

// Collect реализует prometheus.Collector.
func (c *PoolCollector) Collect(ch chan<- prometheus.Metric) {
	if c.stats == nil {
		return
	}
	s, ok := c.stats()
	if !ok {
		return
	}

	ch <- prometheus.MustNewConstMetric(c.acquired, prometheus.GaugeValue, float64(s.AcquiredConns))
	ch <- prometheus.MustNewConstMetric(c.idle, prometheus.GaugeValue, float64(s.IdleConns))
	ch <- prometheus.MustNewConstMetric(c.total, prometheus.GaugeValue, float64(s.TotalConns))
	ch <- prometheus.MustNewConstMetric(c.max, prometheus.GaugeValue, float64(s.MaxConns))
	ch <- prometheus.MustNewConstMetric(c.acquireCount, prometheus.CounterValue, float64(s.AcquireCount))
	ch <- prometheus.MustNewConstMetric(c.emptyAcquire, prometheus.CounterValue, float64(s.EmptyAcquireCount))
	ch <- prometheus.MustNewConstMetric(c.canceledAcquire, prometheus.CounterValue, float64(s.CanceledAcquireCount))
	ch <- prometheus.MustNewConstMetric(c.acquireSeconds, prometheus.CounterValue, s.AcquireDuration.Seconds())
}
