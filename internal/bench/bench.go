// Package bench provides benchmarking primitives for the phonemize bench command.
package bench

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/dustin/go-humanize"

	"github.com/example/go-piper-phonemize/internal/pipeline"
)

// ---------------------------------------------------------------------------
// Run result and stats
// ---------------------------------------------------------------------------

// RunResult holds the timing and output size of a single pipeline run.
type RunResult struct {
	Index     int
	Cold      bool // true for the first run (model and inventory loads)
	Duration  time.Duration
	TextBytes int
	Clauses   int
	IDs       int
}

// IDsPerSecond is the phoneme id throughput of the run.
func (r RunResult) IDsPerSecond() float64 {
	if r.Duration <= 0 {
		return 0
	}

	return float64(r.IDs) / r.Duration.Seconds()
}

// Stats holds aggregate timing statistics across all runs.
type Stats struct {
	Min  time.Duration
	Max  time.Duration
	Mean time.Duration
}

// ComputeStats calculates min, max and mean over a slice of durations.
func ComputeStats(durations []time.Duration) Stats {
	if len(durations) == 0 {
		return Stats{}
	}

	mn, mx := durations[0], durations[0]

	var sum time.Duration

	for _, d := range durations {
		if d < mn {
			mn = d
		}

		if d > mx {
			mx = d
		}

		sum += d
	}

	return Stats{
		Min:  mn,
		Max:  mx,
		Mean: sum / time.Duration(len(durations)),
	}
}

// ---------------------------------------------------------------------------
// Runs
// ---------------------------------------------------------------------------

// RunFunc performs one pipeline run.
type RunFunc func(ctx context.Context) (pipeline.Result, error)

// Measure calls fn runs times and records each call. The first run is marked
// cold. It stops at the first error.
func Measure(ctx context.Context, runs int, fn RunFunc) ([]RunResult, error) {
	out := make([]RunResult, 0, runs)

	for i := range runs {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		start := time.Now()

		res, err := fn(ctx)
		if err != nil {
			return out, fmt.Errorf("run %d: %w", i+1, err)
		}

		out = append(out, RunResult{
			Index:     i,
			Cold:      i == 0,
			Duration:  time.Since(start),
			TextBytes: len(res.Text),
			Clauses:   len(res.Clauses),
			IDs:       len(res.IDs),
		})
	}

	return out, nil
}

// Durations extracts the run durations, skipping the cold run when warm is set
// and more than one run exists.
func Durations(runs []RunResult, warm bool) []time.Duration {
	out := make([]time.Duration, 0, len(runs))

	for _, r := range runs {
		if warm && r.Cold && len(runs) > 1 {
			continue
		}

		out = append(out, r.Duration)
	}

	return out
}

// ---------------------------------------------------------------------------
// Latency gate
// ---------------------------------------------------------------------------

// CheckLatencyThreshold returns an error if mean > threshold.
// A threshold of 0 disables the gate.
func CheckLatencyThreshold(mean, threshold time.Duration) error {
	if threshold <= 0 {
		return nil
	}

	if mean > threshold {
		return fmt.Errorf("mean latency %v exceeds threshold %v", mean, threshold)
	}

	return nil
}

// ---------------------------------------------------------------------------
// Output formatters
// ---------------------------------------------------------------------------

// FormatTable writes a human-readable ASCII table of bench results to w.
func FormatTable(runs []RunResult, stats Stats, w io.Writer) {
	sb := &strings.Builder{}

	fmt.Fprintf(sb, "%-5s  %-5s  %10s  %9s  %8s  %8s  %12s\n", "Run", "Cold", "MS", "Text", "Clauses", "IDs", "IDs/s")
	fmt.Fprintln(sb, strings.Repeat("-", 70))

	for _, r := range runs {
		cold := ""
		if r.Cold {
			cold = "yes"
		}

		fmt.Fprintf(sb, "%-5d  %-5s  %10.3f  %9s  %8d  %8s  %12s\n",
			r.Index+1,
			cold,
			ms(r.Duration),
			humanize.Bytes(uint64(r.TextBytes)),
			r.Clauses,
			humanize.Comma(int64(r.IDs)),
			humanize.CommafWithDigits(r.IDsPerSecond(), 0),
		)
	}

	fmt.Fprintln(sb, strings.Repeat("-", 70))
	fmt.Fprintf(sb, "%-5s  %-5s  %10.3f  (min)\n", "", "", ms(stats.Min))
	fmt.Fprintf(sb, "%-5s  %-5s  %10.3f  (mean)\n", "", "", ms(stats.Mean))
	fmt.Fprintf(sb, "%-5s  %-5s  %10.3f  (max)\n", "", "", ms(stats.Max))

	fmt.Fprint(w, sb.String())
}

// jsonReport is the top-level JSON structure emitted by FormatJSON.
type jsonReport struct {
	Runs  []jsonRun `json:"runs"`
	Stats jsonStats `json:"stats"`
}

type jsonRun struct {
	Index        int     `json:"index"`
	Cold         bool    `json:"cold"`
	DurationMS   float64 `json:"duration_ms"`
	TextBytes    int     `json:"text_bytes"`
	Clauses      int     `json:"clauses"`
	IDs          int     `json:"ids"`
	IDsPerSecond float64 `json:"ids_per_second"`
}

type jsonStats struct {
	MinMS  float64 `json:"min_ms"`
	MeanMS float64 `json:"mean_ms"`
	MaxMS  float64 `json:"max_ms"`
}

func ms(d time.Duration) float64 { return float64(d.Microseconds()) / 1000 }

// FormatJSON writes a JSON report of bench results to w.
func FormatJSON(runs []RunResult, stats Stats, w io.Writer) error {
	jr := jsonReport{
		Runs: make([]jsonRun, len(runs)),
		Stats: jsonStats{
			MinMS:  ms(stats.Min),
			MeanMS: ms(stats.Mean),
			MaxMS:  ms(stats.Max),
		},
	}

	for i, r := range runs {
		jr.Runs[i] = jsonRun{
			Index:        r.Index,
			Cold:         r.Cold,
			DurationMS:   ms(r.Duration),
			TextBytes:    r.TextBytes,
			Clauses:      r.Clauses,
			IDs:          r.IDs,
			IDsPerSecond: r.IDsPerSecond(),
		}
	}

	data, err := sonic.ConfigStd.MarshalIndent(jr, "", "  ")
	if err != nil {
		return fmt.Errorf("encode bench report: %w", err)
	}

	_, err = w.Write(append(data, '\n'))

	return err
}
