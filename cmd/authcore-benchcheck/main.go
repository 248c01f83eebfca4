// Command authcore-benchcheck compares two `go test -bench` outputs and exits
// non-zero when a tracked benchmark regressed past the threshold.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

const defaultThreshold = 0.30

var defaultTracked = map[string][]string{
	"BenchmarkValidateAccessToken": {"ns/op", "allocs/op"},
	"BenchmarkRefresh":             {"ns/op"},
	"BenchmarkLogin":               {"ns/op"},
}

// samples maps benchmark name to unit to observed values.
type samples map[string]map[string][]float64

type result struct {
	Benchmark string
	Unit      string
	Baseline  float64
	Candidate float64
	Delta     float64
}

func main() {
	var (
		baselinePath  string
		candidatePath string
		threshold     float64
	)

	flag.StringVar(&baselinePath, "baseline", "", "path to baseline benchmark output")
	flag.StringVar(&candidatePath, "candidate", "", "path to candidate benchmark output")
	flag.Float64Var(&threshold, "threshold", defaultThreshold, "maximum allowed regression ratio (0.30 = +30%)")
	flag.Parse()

	if baselinePath == "" || candidatePath == "" {
		fmt.Fprintln(os.Stderr, "-baseline and -candidate are required")
		os.Exit(2)
	}
	if threshold < 0 {
		fmt.Fprintln(os.Stderr, "-threshold must be >= 0")
		os.Exit(2)
	}

	baseline, err := parseFile(baselinePath, defaultTracked)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse baseline: %v\n", err)
		os.Exit(1)
	}
	candidate, err := parseFile(candidatePath, defaultTracked)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse candidate: %v\n", err)
		os.Exit(1)
	}

	results, failures := compare(baseline, candidate, defaultTracked, threshold)
	fmt.Println("benchmark unit baseline candidate delta")
	for _, r := range results {
		fmt.Printf("%s %s %.3f %.3f %+0.2f%%\n", r.Benchmark, r.Unit, r.Baseline, r.Candidate, r.Delta*100)
	}

	if len(failures) > 0 {
		fmt.Fprintln(os.Stderr, "performance regression threshold exceeded:")
		for _, failure := range failures {
			fmt.Fprintf(os.Stderr, "  - %s\n", failure)
		}
		os.Exit(1)
	}
}

func compare(baseline, candidate samples, tracked map[string][]string, threshold float64) ([]result, []string) {
	names := make([]string, 0, len(tracked))
	for name := range tracked {
		names = append(names, name)
	}
	sort.Strings(names)

	var (
		results  []result
		failures []string
	)
	for _, name := range names {
		for _, unit := range tracked[name] {
			base := baseline[name][unit]
			cand := candidate[name][unit]
			if len(base) == 0 || len(cand) == 0 {
				failures = append(failures, fmt.Sprintf("missing samples for %s %s", name, unit))
				continue
			}

			baseMedian := median(base)
			candMedian := median(cand)
			if baseMedian <= 0 {
				// allocs/op can legitimately be zero on both sides.
				if candMedian > baseMedian {
					failures = append(failures, fmt.Sprintf("%s %s rose from %.0f to %.0f", name, unit, baseMedian, candMedian))
				}
				continue
			}

			delta := (candMedian - baseMedian) / baseMedian
			results = append(results, result{name, unit, baseMedian, candMedian, delta})
			if delta > threshold {
				failures = append(failures, fmt.Sprintf("%s %s regressed by %+0.2f%% (limit %+0.2f%%)", name, unit, delta*100, threshold*100))
			}
		}
	}
	return results, failures
}

func parseFile(path string, tracked map[string][]string) (samples, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return parse(file, tracked)
}

func parse(r io.Reader, tracked map[string][]string) (samples, error) {
	out := samples{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "Benchmark") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}

		name := trimProcs(fields[0])
		if _, ok := tracked[name]; !ok {
			continue
		}
		if _, ok := out[name]; !ok {
			out[name] = map[string][]float64{}
		}

		// fields[1] is the iteration count; value/unit pairs follow.
		for i := 2; i+1 < len(fields); i += 2 {
			value, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				continue
			}
			out[name][fields[i+1]] = append(out[name][fields[i+1]], value)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// trimProcs strips the -GOMAXPROCS suffix go test appends to benchmark names.
func trimProcs(raw string) string {
	if idx := strings.LastIndexByte(raw, '-'); idx > 0 {
		if _, err := strconv.Atoi(raw[idx+1:]); err == nil {
			return raw[:idx]
		}
	}
	return raw
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
