package prometheus

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/metrics/export/internaldefs"
)

// Source supplies engine snapshots. *authcore.Engine implements it.
type Source interface {
	MetricsSnapshot() authcore.MetricsSnapshot
}

// Exporter renders engine metrics in Prometheus text exposition format.
type Exporter struct {
	source Source
}

// NewExporter creates an exporter that reads from source on every scrape.
func NewExporter(source Source) *Exporter {
	return &Exporter{source: source}
}

// Handler returns an http.Handler that serves the current metrics.
func (p *Exporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(p.Render()))
	})
}

// Render writes the current metrics. It returns "" when the engine was built
// with metrics disabled and no backpressure has been recorded.
func (p *Exporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}

	snapshot := p.source.MetricsSnapshot()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && !hasBackpressure(snapshot) {
		return ""
	}

	var b strings.Builder
	b.Grow(8192)

	for _, def := range internaldefs.CounterDefs {
		writeCounter(&b, def.Name, def.Help, snapshot.Counters[def.ID])
	}

	for _, def := range internaldefs.HistogramDefs {
		nonCumulative := internaldefs.NormalizeBuckets(snapshot.Histograms[def.ID])
		cumulative := internaldefs.CumulativeBuckets(nonCumulative)
		writeHistogram(&b, def.Name, def.Help, cumulative)
	}

	for _, def := range internaldefs.BackpressureDefs {
		writeCounter(&b, def.Name, def.Help, def.Value(snapshot))
	}

	return b.String()
}

func hasBackpressure(s authcore.MetricsSnapshot) bool {
	for _, def := range internaldefs.BackpressureDefs {
		if def.Value(s) != 0 {
			return true
		}
	}
	return false
}

func writeHeader(b *strings.Builder, name, help, kind string) {
	b.WriteString("# HELP ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(escapeHelp(help))
	b.WriteByte('\n')
	b.WriteString("# TYPE ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(kind)
	b.WriteByte('\n')
}

func writeCounter(b *strings.Builder, name, help string, value uint64) {
	writeHeader(b, name, help, "counter")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(strconv.FormatUint(value, 10))
	b.WriteByte('\n')
}

func writeHistogram(b *strings.Builder, name, help string, cumulative [8]uint64) {
	writeHeader(b, name, help, "histogram")

	for i, le := range internaldefs.HistogramBounds {
		b.WriteString(name)
		b.WriteString("_bucket{le=\"")
		b.WriteString(le)
		b.WriteString("\"} ")
		b.WriteString(strconv.FormatUint(cumulative[i], 10))
		b.WriteByte('\n')
	}

	b.WriteString(name)
	b.WriteString("_count ")
	b.WriteString(strconv.FormatUint(cumulative[len(cumulative)-1], 10))
	b.WriteByte('\n')

	// Snapshots carry bucket counts only.
	b.WriteString(name)
	b.WriteString("_sum 0\n")
}

func escapeHelp(help string) string {
	help = strings.ReplaceAll(help, "\\", "\\\\")
	help = strings.ReplaceAll(help, "\n", "\\n")
	return help
}
