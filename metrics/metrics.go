package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg             *prometheus.Registry
	Requests        *prometheus.CounterVec
	RequestLatency  *prometheus.HistogramVec
	OrdersPlaced    prometheus.Counter
	OrderValue      prometheus.Histogram
	RatingRecompute prometheus.Counter
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_http_requests_total",
	}, []string{"route", "method", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_http_request_duration_seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})
	ordersPlaced := prometheus.NewCounter(prometheus.CounterOpts{Name: "storefront_orders_placed_total"})
	orderValue := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "storefront_order_total",
		Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 5000},
	})
	recompute := prometheus.NewCounter(prometheus.CounterOpts{Name: "storefront_rating_recomputes_total"})

	r.MustRegister(requests, latency, ordersPlaced, orderValue, recompute)
	return &Registry{
		reg:             r,
		Requests:        requests,
		RequestLatency:  latency,
		OrdersPlaced:    ordersPlaced,
		OrderValue:      orderValue,
		RatingRecompute: recompute,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Middleware records request counts and latency labelled by the mux route
// template, so path ids do not blow up label cardinality.
func (r *Registry) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, req)

		route := "unmatched"
		if cur := mux.CurrentRoute(req); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		r.Requests.WithLabelValues(route, req.Method, strconv.Itoa(sw.status)).Inc()
		r.RequestLatency.WithLabelValues(route, req.Method).Observe(time.Since(start).Seconds())
	})
}
