package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

const defaultRegressionThreshold = 0.30

// trackedBenchmarks are the gate benchmarks compared between runs, with the units that count.
var trackedBenchmarks = map[string][]string{
	"BenchmarkEvaluateSignup":      {"ns/op", "allocs/op"},
	"BenchmarkEvaluateWebhookSend": {"ns/op", "allocs/op"},
	"BenchmarkEvaluateEndpoint":    {"ns/op"},
}

var errRegression = errors.New("performance regression threshold exceeded")

var benchdiffOpts struct {
	baseline  string
	candidate string
	threshold float64
}

var benchdiffCmd = &cobra.Command{
	Use:   "benchdiff",
	Short: "Compare two `go test -bench` outputs and fail on regressions",
	Long: `Compare median ns/op and allocs/op of the gate benchmarks between a baseline and a
candidate run. Any metric slower than the threshold ratio fails the command.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		o := benchdiffOpts
		if o.baseline == "" || o.candidate == "" {
			return errors.New("--baseline and --candidate are required")
		}
		if o.threshold < 0 {
			return errors.New("--threshold must be >= 0")
		}

		baseline, err := parseBenchmarkFile(o.baseline)
		if err != nil {
			return fmt.Errorf("parse baseline: %w", err)
		}
		candidate, err := parseBenchmarkFile(o.candidate)
		if err != nil {
			return fmt.Errorf("parse candidate: %w", err)
		}

		failures := compareBenchmarks(cmd.OutOrStdout(), baseline, candidate, o.threshold)
		if len(failures) > 0 {
			for _, f := range failures {
				fmt.Fprintf(cmd.ErrOrStderr(), "  - %s\n", f)
			}
			return errRegression
		}
		return nil
	},
}

func init() {
	f := benchdiffCmd.Flags()
	f.StringVar(&benchdiffOpts.baseline, "baseline", "", "path to baseline benchmark output")
	f.StringVar(&benchdiffOpts.candidate, "candidate", "", "path to candidate benchmark output")
	f.Float64Var(&benchdiffOpts.threshold, "threshold", defaultRegressionThreshold,
		"maximum allowed regression ratio (0.30 = +30%)")
}

// benchSamples maps benchmark name to unit to raw samples.
type benchSamples map[string]map[string][]float64

func parseBenchmarkFile(path string) (benchSamples, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseBenchmarks(f)
}

func parseBenchmarks(r io.Reader) (benchSamples, error) {
	samples := benchSamples{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 || !strings.HasPrefix(fields[0], "Benchmark") {
			continue
		}
		name := trimGOMAXPROCS(fields[0])
		if _, ok := trackedBenchmarks[name]; !ok {
			continue
		}
		if samples[name] == nil {
			samples[name] = map[string][]float64{}
		}
		// fields[1] is the iteration count; the rest are value/unit pairs.
		for i := 2; i+1 < len(fields); i += 2 {
			v, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				continue
			}
			samples[name][fields[i+1]] = append(samples[name][fields[i+1]], v)
		}
	}
	return samples, scanner.Err()
}

func compareBenchmarks(w io.Writer, baseline, candidate benchSamples, threshold float64) []string {
	names := make([]string, 0, len(trackedBenchmarks))
	for name := range trackedBenchmarks {
		names = append(names, name)
	}
	sort.Strings(names)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Benchmark", "Metric", "Baseline", "Candidate", "Delta"})

	var failures []string
	for _, name := range names {
		for _, unit := range trackedBenchmarks[name] {
			base, cand := baseline[name][unit], candidate[name][unit]
			if len(base) == 0 || len(cand) == 0 {
				failures = append(failures, fmt.Sprintf("missing samples for %s %s", name, unit))
				continue
			}
			bm, cm := median(base), median(cand)
			if bm <= 0 {
				// Zero-alloc baselines only regress when the candidate starts allocating.
				if cm > 0 {
					failures = append(failures, fmt.Sprintf("%s %s went from 0 to %.0f", name, unit, cm))
				}
				t.AppendRow(table.Row{name, unit, fmt.Sprintf("%.1f", bm), fmt.Sprintf("%.1f", cm), "n/a"})
				continue
			}
			delta := (cm - bm) / bm
			t.AppendRow(table.Row{name, unit, fmt.Sprintf("%.1f", bm), fmt.Sprintf("%.1f", cm), fmt.Sprintf("%+.2f%%", delta*100)})
			if delta > threshold {
				failures = append(failures, fmt.Sprintf("%s %s regressed by %+.2f%% (limit %+.2f%%)",
					name, unit, delta*100, threshold*100))
			}
		}
	}
	t.Render()
	return failures
}

func trimGOMAXPROCS(raw string) string {
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
