// Package otel publishes authcore engine metrics through OpenTelemetry.
//
// [NewExporter] registers an Int64ObservableCounter per engine counter, an
// Int64ObservableGauge per latency bucket, and counters for the mail queue
// and background runner. The caller owns the MeterProvider.
package otel
