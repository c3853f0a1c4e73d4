package stats

// Noop discards all metrics. It is the default when no collector is configured.
type Noop struct{}

// Compile-time check that Noop implements Collector.
var _ Collector = (*Noop)(nil)

// NewNoop creates a new no-op collector.
func NewNoop() *Noop {
	return &Noop{}
}

func (n *Noop) IncCounter(string, int64)         {}
func (n *Noop) SetGauge(string, int64)           {}
func (n *Noop) ObserveHistogram(string, float64) {}

// OrNoop returns c, or a Noop collector if c is nil.
func OrNoop(c Collector) Collector {
	if c == nil {
		return NewNoop()
	}
	return c
}
