package otel

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// Source supplies engine snapshots. *authcore.Engine implements it.
type Source interface {
	MetricsSnapshot() authcore.MetricsSnapshot
}

type observedCounter struct {
	id         authcore.MetricID
	instrument metric.Int64ObservableCounter
}

type observedHistogram struct {
	id      authcore.MetricID
	buckets [8]metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
}

type observedBackpressure struct {
	def        internaldefs.BackpressureDef
	instrument metric.Int64ObservableCounter
}

// Exporter publishes engine metrics as observable instruments on a caller
// supplied meter. One callback reads a snapshot per collection.
type Exporter struct {
	source       Source
	registration metric.Registration
	counters     []observedCounter
	histograms   []observedHistogram
	backpressure []observedBackpressure
}

// NewExporter registers the instruments and the collection callback.
func NewExporter(meter metric.Meter, source Source) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	exporter := &Exporter{
		source:       source,
		counters:     make([]observedCounter, 0, len(internaldefs.CounterDefs)),
		histograms:   make([]observedHistogram, 0, len(internaldefs.HistogramDefs)),
		backpressure: make([]observedBackpressure, 0, len(internaldefs.BackpressureDefs)),
	}

	observables := make([]metric.Observable, 0,
		len(internaldefs.CounterDefs)+len(internaldefs.HistogramDefs)*9+len(internaldefs.BackpressureDefs))

	for _, def := range internaldefs.CounterDefs {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("create observable counter %s: %w", def.Name, err)
		}
		exporter.counters = append(exporter.counters, observedCounter{id: def.ID, instrument: ins})
		observables = append(observables, ins)
	}

	for _, def := range internaldefs.HistogramDefs {
		h := observedHistogram{id: def.ID}
		for i := 0; i < len(internaldefs.HistogramBoundSuffix); i++ {
			name := def.Name + "_bucket_le_" + internaldefs.HistogramBoundSuffix[i]
			ins, err := meter.Int64ObservableGauge(name, metric.WithDescription("Cumulative histogram bucket count."))
			if err != nil {
				return nil, fmt.Errorf("create histogram bucket gauge %s: %w", name, err)
			}
			h.buckets[i] = ins
			observables = append(observables, ins)
		}
		countName := def.Name + "_count"
		countIns, err := meter.Int64ObservableGauge(countName, metric.WithDescription("Histogram total sample count."))
		if err != nil {
			return nil, fmt.Errorf("create histogram count gauge %s: %w", countName, err)
		}
		h.count = countIns
		observables = append(observables, countIns)
		exporter.histograms = append(exporter.histograms, h)
	}

	for _, def := range internaldefs.BackpressureDefs {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("create observable counter %s: %w", def.Name, err)
		}
		exporter.backpressure = append(exporter.backpressure, observedBackpressure{def: def, instrument: ins})
		observables = append(observables, ins)
	}

	registration, err := meter.RegisterCallback(func(_ context.Context, observer metric.Observer) error {
		snapshot := exporter.source.MetricsSnapshot()
		for _, c := range exporter.counters {
			observer.ObserveInt64(c.instrument, int64(snapshot.Counters[c.id]))
		}
		for _, h := range exporter.histograms {
			cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[h.id]))
			for i := 0; i < len(cumulative); i++ {
				observer.ObserveInt64(h.buckets[i], int64(cumulative[i]))
			}
			observer.ObserveInt64(h.count, int64(cumulative[len(cumulative)-1]))
		}
		for _, bp := range exporter.backpressure {
			observer.ObserveInt64(bp.instrument, int64(bp.def.Value(snapshot)))
		}
		return nil
	}, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}

	exporter.registration = registration
	return exporter, nil
}

// Close unregisters the collection callback.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
