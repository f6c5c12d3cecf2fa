package main

import (
	"context"
	"fmt"
	"os"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/go-piper-phonemize/internal/bench"
	"github.com/example/go-piper-phonemize/internal/pipeline"
)

func newBenchCmd() *cobra.Command {
	var (
		text       string
		voiceID    string
		runs       int
		format     string
		threshold  time.Duration
		warm       bool
		cpuProfile string
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark pipeline latency and id throughput",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			if strings.TrimSpace(text) == "" {
				return fmt.Errorf("--text is required for bench")
			}
			if runs < 1 {
				return fmt.Errorf("--runs must be at least 1")
			}
			if format != "table" && format != "json" {
				return fmt.Errorf("--format must be 'table' or 'json'")
			}

			selectedVoice := cfg.Phonemizer.Voice
			if voiceID != "" {
				selectedVoice = voiceID
			}

			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if cpuProfile != "" {
				f, err := os.Create(cpuProfile)
				if err != nil {
					return fmt.Errorf("create cpu profile: %w", err)
				}
				defer func() { _ = f.Close() }()

				if err := pprof.StartCPUProfile(f); err != nil {
					return fmt.Errorf("start cpu profile: %w", err)
				}
				defer pprof.StopCPUProfile()
			}

			results, err := bench.Measure(contextOrBackground(cmd.Context()), runs, func(ctx context.Context) (pipeline.Result, error) {
				return a.pipeline.Run(ctx, text, selectedVoice, cfg.Phonemizer.Diacritize)
			})
			if err != nil {
				return err
			}

			stats := bench.ComputeStats(bench.Durations(results, warm))

			out := cmd.OutOrStdout()

			switch format {
			case "json":
				if err := bench.FormatJSON(results, stats, out); err != nil {
					return err
				}
			default:
				bench.FormatTable(results, stats, out)
			}

			return bench.CheckLatencyThreshold(stats.Mean, threshold)
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "Text to convert on each run (required)")
	cmd.Flags().StringVar(&voiceID, "voice", "", "Voice ID (overrides config)")
	cmd.Flags().IntVar(&runs, "runs", 5, "Number of pipeline runs")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table|json")
	cmd.Flags().DurationVar(&threshold, "threshold", 0, "Exit non-zero if mean latency exceeds this value (0 = disabled)")
	cmd.Flags().BoolVar(&warm, "warm", false, "Exclude the cold first run from the statistics")
	cmd.Flags().StringVar(&cpuProfile, "cpuprofile", "", "Write a CPU profile to this file")

	return cmd
}
