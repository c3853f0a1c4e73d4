// Package logger provides a zap-based stats collector that logs metrics.
package logger

import (
	"sync"

	"go.uber.org/zap"

	"github.com/discochess/barback/internal/stats"
)

// Collector implements stats.Collector by logging metrics via zap. It also
// keeps running totals so a CLI run can print a summary on exit.
type Collector struct {
	logger *zap.Logger

	mu       sync.Mutex
	counters map[string]int64
	gauges   map[string]int64
}

// Compile-time check that Collector implements stats.Collector.
var _ stats.Collector = (*Collector)(nil)

// New creates a new logger-based collector.
// If logger is nil, a no-op logger is used.
func New(logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{
		logger:   logger,
		counters: make(map[string]int64),
		gauges:   make(map[string]int64),
	}
}

// IncCounter logs a counter increment.
func (c *Collector) IncCounter(name string, delta int64) {
	c.mu.Lock()
	c.counters[name] += delta
	c.mu.Unlock()

	c.logger.Debug("counter",
		zap.String("metric", name),
		zap.Int64("delta", delta),
	)
}

// SetGauge logs a gauge value.
func (c *Collector) SetGauge(name string, value int64) {
	c.mu.Lock()
	c.gauges[name] = value
	c.mu.Unlock()

	c.logger.Debug("gauge",
		zap.String("metric", name),
		zap.Int64("value", value),
	)
}

// ObserveHistogram logs a histogram observation.
func (c *Collector) ObserveHistogram(name string, value float64) {
	c.logger.Debug("histogram",
		zap.String("metric", name),
		zap.Float64("value", value),
	)
}

// Totals returns a copy of the counter totals and latest gauge values.
func (c *Collector) Totals() map[string]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]int64, len(c.counters)+len(c.gauges))
	for k, v := range c.counters {
		out[k] = v
	}
	for k, v := range c.gauges {
		out[k] = v
	}
	return out
}

// Flush logs the accumulated totals at info level.
func (c *Collector) Flush() {
	totals := c.Totals()
	if len(totals) == 0 {
		return
	}
	fields := make([]zap.Field, 0, len(totals))
	for k, v := range totals {
		fields = append(fields, zap.Int64(k, v))
	}
	c.logger.Info("metrics summary", fields...)
}
