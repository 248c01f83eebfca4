// Package prometheus renders authcore engine metrics in the Prometheus text
// exposition format without depending on a Prometheus client library.
//
// Mount [Exporter.Handler] on a scrape path such as /metrics.
package prometheus
