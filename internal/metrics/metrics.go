// Package metrics exposes counters and gauges in the Prometheus text format.
package metrics

import (
	"io"
	"math"
	"sync"
	"sync/atomic"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"
)

// ContentType is the exposition content type written by WriteText.
var ContentType = string(expfmt.NewFormat(expfmt.TypeTextPlain))

type collector interface {
	family() *dto.MetricFamily
}

// Registry holds metrics in registration order.
type Registry struct {
	mu         sync.Mutex
	collectors []collector
}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) register(c collector) {
	r.mu.Lock()
	r.collectors = append(r.collectors, c)
	r.mu.Unlock()
}

// Counter is a monotonically increasing integer.
type Counter struct {
	name, help string
	v          atomic.Int64
}

// NewCounter registers a counter.
func (r *Registry) NewCounter(name, help string) *Counter {
	c := &Counter{name: name, help: help}
	r.register(c)
	return c
}

func (c *Counter) Inc()         { c.v.Add(1) }
func (c *Counter) Add(n int64)  { c.v.Add(n) }
func (c *Counter) Value() int64 { return c.v.Load() }

func (c *Counter) family() *dto.MetricFamily {
	return &dto.MetricFamily{
		Name: proto.String(c.name),
		Help: proto.String(c.help),
		Type: dto.MetricType_COUNTER.Enum(),
		Metric: []*dto.Metric{{
			Counter: &dto.Counter{Value: proto.Float64(float64(c.Value()))},
		}},
	}
}

// Gauge is a float value that may go up and down.
type Gauge struct {
	name, help string
	bits       atomic.Uint64
}

// NewGauge registers a gauge.
func (r *Registry) NewGauge(name, help string) *Gauge {
	g := &Gauge{name: name, help: help}
	r.register(g)
	return g
}

func (g *Gauge) Set(v float64)  { g.bits.Store(math.Float64bits(v)) }
func (g *Gauge) Value() float64 { return math.Float64frombits(g.bits.Load()) }

func (g *Gauge) family() *dto.MetricFamily {
	return gaugeFamily(g.name, g.help, g.Value())
}

type gaugeFunc struct {
	name, help string
	fn         func() float64
}

// NewGaugeFunc registers a gauge whose value is read from fn at scrape time.
func (r *Registry) NewGaugeFunc(name, help string, fn func() float64) {
	r.register(&gaugeFunc{name: name, help: help, fn: fn})
}

func (g *gaugeFunc) family() *dto.MetricFamily {
	return gaugeFamily(g.name, g.help, g.fn())
}

func gaugeFamily(name, help string, v float64) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name: proto.String(name),
		Help: proto.String(help),
		Type: dto.MetricType_GAUGE.Enum(),
		Metric: []*dto.Metric{{
			Gauge: &dto.Gauge{Value: proto.Float64(v)},
		}},
	}
}

// Gather snapshots every registered metric.
func (r *Registry) Gather() []*dto.MetricFamily {
	r.mu.Lock()
	cs := make([]collector, len(r.collectors))
	copy(cs, r.collectors)
	r.mu.Unlock()

	out := make([]*dto.MetricFamily, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.family())
	}
	return out
}

// WriteText writes the Prometheus text exposition to w.
func (r *Registry) WriteText(w io.Writer) error {
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range r.Gather() {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
