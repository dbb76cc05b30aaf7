// Copyright (C) 2023 Gobalsky Labs Limited
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package metrics

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// Gauge ...
	Gauge instrument = iota
	// Counter ...
	Counter
	// Histogram ...
	Histogram
)

const namespace = "fixmatch"

var (
	// ErrInstrumentNotSupported signals the specified instrument is not yet supported.
	ErrInstrumentNotSupported = errors.New("instrument type unsupported")
	// ErrInstrumentTypeMismatch signal the type of the instrument is not expected.
	ErrInstrumentTypeMismatch = errors.New("instrument is not of the expected type")
)

var (
	setupOnce sync.Once
	setupErr  error

	orderCounter        *prometheus.CounterVec
	tradeCounter        *prometheus.CounterVec
	tradedVolume        *prometheus.CounterVec
	cancelCounter       *prometheus.CounterVec
	restingOrdersGauge  *prometheus.GaugeVec
	matchingTime        *prometheus.HistogramVec
	execReportCounter   *prometheus.CounterVec
	rejectCounter       *prometheus.CounterVec
	outboxPendingGauge  prometheus.Gauge
	publishCounter      *prometheus.CounterVec
	subscribersGauge    prometheus.Gauge
	apiRequestCounter   *prometheus.CounterVec
	apiRequestTimeTotal *prometheus.CounterVec
)

// abstract prometheus types
type instrument int

// combine all possible prometheus options + way to differentiate between regular or vector type
type instrumentOpts struct {
	opts    prometheus.Opts
	buckets []float64
	vectors []string
}

type mi struct {
	gaugeV     *prometheus.GaugeVec
	gauge      prometheus.Gauge
	counterV   *prometheus.CounterVec
	counter    prometheus.Counter
	histogramV *prometheus.HistogramVec
	histogram  prometheus.Histogram
}

// InstrumentOption - vararg for instrument options setting
type InstrumentOption func(o *instrumentOpts)

// Vectors - configuration used to create a vector of a given interface, slice of label names
func Vectors(labels ...string) InstrumentOption {
	return func(o *instrumentOpts) {
		o.vectors = labels
	}
}

// Help - set the help field on instrument
func Help(help string) InstrumentOption {
	return func(o *instrumentOpts) {
		o.opts.Help = help
	}
}

// Namespace - set namespace
func Namespace(ns string) InstrumentOption {
	return func(o *instrumentOpts) {
		o.opts.Namespace = ns
	}
}

// Subsystem - set subsystem
func Subsystem(s string) InstrumentOption {
	return func(o *instrumentOpts) {
		o.opts.Subsystem = s
	}
}

// Buckets - specific to histogram type
func Buckets(b []float64) InstrumentOption {
	return func(o *instrumentOpts) {
		o.buckets = b
	}
}

// AddInstrument  configure and register new metrics instrument
// this will, over time, be moved to use custom Registries, etc...
func AddInstrument(t instrument, name string, opts ...InstrumentOption) (*mi, error) {
	var col prometheus.Collector
	ret := mi{}
	opt := instrumentOpts{
		opts: prometheus.Opts{
			Name: name,
		},
	}
	// apply options
	for _, o := range opts {
		o(&opt)
	}
	switch t {
	case Gauge:
		o := opt.gauge()
		if len(opt.vectors) == 0 {
			ret.gauge = prometheus.NewGauge(o)
			col = ret.gauge
		} else {
			ret.gaugeV = prometheus.NewGaugeVec(o, opt.vectors)
			col = ret.gaugeV
		}
	case Counter:
		o := opt.counter()
		if len(opt.vectors) == 0 {
			ret.counter = prometheus.NewCounter(o)
			col = ret.counter
		} else {
			ret.counterV = prometheus.NewCounterVec(o, opt.vectors)
			col = ret.counterV
		}
	case Histogram:
		o := opt.histogram()
		if len(opt.vectors) == 0 {
			ret.histogram = prometheus.NewHistogram(o)
			col = ret.histogram
		} else {
			ret.histogramV = prometheus.NewHistogramVec(o, opt.vectors)
			col = ret.histogramV
		}
	default:
		return nil, ErrInstrumentNotSupported
	}
	if err := prometheus.Register(col); err != nil {
		return nil, err
	}
	return &ret, nil
}

// Setup registers every instrument with the default prometheus registry.
// It is safe to call several times, only the first call registers.
func Setup() error {
	setupOnce.Do(func() {
		setupErr = setupMetrics()
	})
	return setupErr
}

// Start registers the instruments and, when enabled, serves them over HTTP
// until ctx is cancelled.
func Start(ctx context.Context, conf Config) error {
	if err := Setup(); err != nil {
		return err
	}
	if !conf.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(conf.Path, promhttp.Handler())
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", conf.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (i instrumentOpts) gauge() prometheus.GaugeOpts {
	return prometheus.GaugeOpts(i.opts)
}

func (i instrumentOpts) counter() prometheus.CounterOpts {
	return prometheus.CounterOpts(i.opts)
}

func (i instrumentOpts) histogram() prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Name:        i.opts.Name,
		Namespace:   i.opts.Namespace,
		Subsystem:   i.opts.Subsystem,
		ConstLabels: i.opts.ConstLabels,
		Help:        i.opts.Help,
		Buckets:     i.buckets,
	}
}

// Gauge returns a prometheus Gauge instrument
func (m mi) Gauge() (prometheus.Gauge, error) {
	if m.gauge == nil {
		return nil, ErrInstrumentTypeMismatch
	}
	return m.gauge, nil
}

// GaugeVec returns a prometheus GaugeVec instrument
func (m mi) GaugeVec() (*prometheus.GaugeVec, error) {
	if m.gaugeV == nil {
		return nil, ErrInstrumentTypeMismatch
	}
	return m.gaugeV, nil
}

// Counter returns a prometheus Counter instrument
func (m mi) Counter() (prometheus.Counter, error) {
	if m.counter == nil {
		return nil, ErrInstrumentTypeMismatch
	}
	return m.counter, nil
}

// CounterVec returns a prometheus CounterVec instrument
func (m mi) CounterVec() (*prometheus.CounterVec, error) {
	if m.counterV == nil {
		return nil, ErrInstrumentTypeMismatch
	}
	return m.counterV, nil
}

func (m mi) Histogram() (prometheus.Histogram, error) {
	if m.histogram == nil {
		return nil, ErrInstrumentTypeMismatch
	}
	return m.histogram, nil
}

func (m mi) HistogramVec() (*prometheus.HistogramVec, error) {
	if m.histogramV == nil {
		return nil, ErrInstrumentTypeMismatch
	}
	return m.histogramV, nil
}

func setupMetrics() error {
	var err error
	add := func(t instrument, name string, opts ...InstrumentOption) *mi {
		if err != nil {
			return nil
		}
		var m *mi
		m, err = AddInstrument(t, name, append([]InstrumentOption{Namespace(namespace)}, opts...)...)
		return m
	}

	orders := add(Counter, "orders_total", Subsystem("matching"), Vectors("market", "type"),
		Help("Number of orders submitted to the book"))
	trades := add(Counter, "trades_total", Subsystem("matching"), Vectors("market"),
		Help("Number of trades produced by the book"))
	volume := add(Counter, "traded_volume_total", Subsystem("matching"), Vectors("market"),
		Help("Quantity traded on the book"))
	cancels := add(Counter, "cancels_total", Subsystem("matching"), Vectors("market"),
		Help("Number of resting orders removed by a cancel"))
	resting := add(Gauge, "resting_orders", Subsystem("matching"), Vectors("market"),
		Help("Number of orders currently resting on the book"))
	timing := add(Histogram, "submit_duration_seconds", Subsystem("matching"), Vectors("market", "fn"),
		Buckets([]float64{0.000001, 0.000005, 0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.01}),
		Help("Time spent inside the book critical section"))
	reports := add(Counter, "execution_reports_total", Subsystem("gateway"), Vectors("exec_type"),
		Help("Execution reports emitted by the gateway"))
	rejects := add(Counter, "rejects_total", Subsystem("gateway"), Vectors("reason"),
		Help("Messages rejected before reaching the book"))
	pending := add(Gauge, "pending_records", Subsystem("outbox"),
		Help("Execution reports journaled but not yet acknowledged by the broadcaster"))
	published := add(Counter, "published_total", Subsystem("broadcast"), Vectors("driver", "result"),
		Help("Execution reports published to the message bus"))
	subs := add(Gauge, "subscribers", Subsystem("broker"),
		Help("Number of subscribers attached to the broker"))
	apiCalls := add(Counter, "api_requests_total", Subsystem("api"), Vectors("api", "request"),
		Help("Count of API requests"))
	apiTime := add(Counter, "api_request_seconds_total", Subsystem("api"), Vectors("api", "request"),
		Help("Total time spent serving API requests"))
	if err != nil {
		return err
	}

	if orderCounter, err = orders.CounterVec(); err != nil {
		return err
	}
	if tradeCounter, err = trades.CounterVec(); err != nil {
		return err
	}
	if tradedVolume, err = volume.CounterVec(); err != nil {
		return err
	}
	if cancelCounter, err = cancels.CounterVec(); err != nil {
		return err
	}
	if restingOrdersGauge, err = resting.GaugeVec(); err != nil {
		return err
	}
	if matchingTime, err = timing.HistogramVec(); err != nil {
		return err
	}
	if execReportCounter, err = reports.CounterVec(); err != nil {
		return err
	}
	if rejectCounter, err = rejects.CounterVec(); err != nil {
		return err
	}
	if outboxPendingGauge, err = pending.Gauge(); err != nil {
		return err
	}
	if publishCounter, err = published.CounterVec(); err != nil {
		return err
	}
	if subscribersGauge, err = subs.Gauge(); err != nil {
		return err
	}
	if apiRequestCounter, err = apiCalls.CounterVec(); err != nil {
		return err
	}
	apiRequestTimeTotal, err = apiTime.CounterVec()
	return err
}

// OrderCounterInc increments the order counter.
func OrderCounterInc(labelValues ...string) {
	if orderCounter == nil {
		return
	}
	orderCounter.WithLabelValues(labelValues...).Inc()
}

// TradesAdd accounts for n trades of the given total volume.
func TradesAdd(market string, n int, volume uint64) {
	if tradeCounter == nil || tradedVolume == nil || n == 0 {
		return
	}
	tradeCounter.WithLabelValues(market).Add(float64(n))
	tradedVolume.WithLabelValues(market).Add(float64(volume))
}

func CancelCounterInc(market string) {
	if cancelCounter == nil {
		return
	}
	cancelCounter.WithLabelValues(market).Inc()
}

// RestingOrdersGaugeSet updates the number of orders resting on the book.
func RestingOrdersGaugeSet(market string, n int) {
	if restingOrdersGauge == nil {
		return
	}
	restingOrdersGauge.WithLabelValues(market).Set(float64(n))
}

// StartMatchingTimer returns a func observing the elapsed time once called.
func StartMatchingTimer(market, fn string) func() {
	start := time.Now()
	return func() {
		if matchingTime == nil {
			return
		}
		matchingTime.WithLabelValues(market, fn).Observe(time.Since(start).Seconds())
	}
}

func ExecutionReportCounterInc(execType string) {
	if execReportCounter == nil {
		return
	}
	execReportCounter.WithLabelValues(execType).Inc()
}

func RejectCounterInc(reason string) {
	if rejectCounter == nil {
		return
	}
	rejectCounter.WithLabelValues(reason).Inc()
}

func OutboxPendingGaugeSet(n int) {
	if outboxPendingGauge == nil {
		return
	}
	outboxPendingGauge.Set(float64(n))
}

func PublishCounterInc(driver, result string) {
	if publishCounter == nil {
		return
	}
	publishCounter.WithLabelValues(driver, result).Inc()
}

func SubscribersGaugeSet(n int) {
	if subscribersGauge == nil {
		return
	}
	subscribersGauge.Set(float64(n))
}

// APIRequestAndTimeREST updates the metrics for REST API calls.
func APIRequestAndTimeREST(request string, seconds float64) {
	if apiRequestCounter == nil || apiRequestTimeTotal == nil {
		return
	}
	apiRequestCounter.WithLabelValues("REST", request).Inc()
	apiRequestTimeTotal.WithLabelValues("REST", request).Add(seconds)
}
