package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Status submission results.
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultFailed   = "failed"
)

// Collector records live view activity. Components depend on this interface
// rather than on Prometheus directly.
type Collector interface {
	IncFramesReceived()
	IncDecodeErrors()
	IncFramesPublished()
	SetBrowsers(n int)
	IncStatus(result string)
}

// Client implements Collector with Prometheus metrics.
type Client struct {
	registry        *prometheus.Registry
	framesReceived  prometheus.Counter
	decodeErrors    prometheus.Counter
	framesPublished prometheus.Counter
	browsers        prometheus.Gauge
	statuses        *prometheus.CounterVec
}

// New registers the live view metrics on a private registry.
func New() *Client {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Client{
		registry: reg,
		framesReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "figaro_feed_frames_received_total",
			Help: "Frames received from the upstream feed",
		}),
		decodeErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "figaro_feed_decode_errors_total",
			Help: "Upstream frames that could not be decoded or rendered",
		}),
		framesPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "figaro_frames_published_total",
			Help: "Rendered frames broadcast to browsers",
		}),
		browsers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "figaro_browsers_connected",
			Help: "Browsers currently connected to the push socket",
		}),
		statuses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "figaro_status_submissions_total",
				Help: "Status change submissions by result",
			},
			[]string{"result"}, // ok|rejected|failed
		),
	}
}

// Handler exposes the registry in the Prometheus text format.
func (c *Client) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Client) IncFramesReceived()      { c.framesReceived.Inc() }
func (c *Client) IncDecodeErrors()        { c.decodeErrors.Inc() }
func (c *Client) IncFramesPublished()     { c.framesPublished.Inc() }
func (c *Client) SetBrowsers(n int)       { c.browsers.Set(float64(n)) }
func (c *Client) IncStatus(result string) { c.statuses.WithLabelValues(result).Inc() }

type nop struct{}

// Nop returns a Collector that records nothing.
func Nop() Collector { return nop{} }

func (nop) IncFramesReceived()  {}
func (nop) IncDecodeErrors()    {}
func (nop) IncFramesPublished() {}
func (nop) SetBrowsers(int)     {}
func (nop) IncStatus(string)    {}
