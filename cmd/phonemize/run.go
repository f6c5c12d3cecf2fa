package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/example/go-piper-phonemize/internal/pipeline"
)

const (
	formatJSON     = "json"
	formatIDs      = "ids"
	formatPhonemes = "phonemes"
)

type runOptions struct {
	Voice      string
	Diacritize bool
	Format     string
	Lines      bool
}

func newRunCmd() *cobra.Command {
	var (
		text       string
		voiceID    string
		diacritize bool
		format     string
		lines      bool
	)

	cmd := &cobra.Command{
		Use:   "run [text]",
		Short: "Convert text to phoneme ids",
		Long: "Convert text to phoneme ids. Text comes from the arguments, --text or stdin.\n" +
			"With --lines every non-empty stdin line is converted as one batch item.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			if err := validateFormat(format); err != nil {
				return err
			}

			opts := runOptions{
				Voice:      cfg.Phonemizer.Voice,
				Diacritize: cfg.Phonemizer.Diacritize,
				Format:     format,
				Lines:      lines,
			}
			if voiceID != "" {
				opts.Voice = voiceID
			}

			if cmd.Flags().Changed("diacritize") {
				opts.Diacritize = diacritize
			}

			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if lines {
				return runLines(cmd.Context(), a.pipeline, cmd.InOrStdin(), cmd.OutOrStdout(), opts)
			}

			input, err := readInput(textFlag(cmd, text), args, cmd.InOrStdin())
			if err != nil {
				return err
			}

			res, err := a.pipeline.Run(contextOrBackground(cmd.Context()), input, opts.Voice, opts.Diacritize)
			if err != nil {
				return err
			}

			return writeResult(cmd.OutOrStdout(), res, opts.Format)
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "Input text (default: arguments or stdin)")
	cmd.Flags().StringVar(&voiceID, "voice", "", "Voice ID (overrides config)")
	cmd.Flags().BoolVar(&diacritize, "diacritize", true, "Restore diacritics for voices that need them (overrides config)")
	cmd.Flags().StringVar(&format, "format", formatJSON, "Output format: json|ids|phonemes")
	cmd.Flags().BoolVar(&lines, "lines", false, "Treat each stdin line as a separate input")

	return cmd
}

func validateFormat(format string) error {
	switch format {
	case formatJSON, formatIDs, formatPhonemes:
		return nil
	default:
		return fmt.Errorf("--format must be one of %s|%s|%s", formatJSON, formatIDs, formatPhonemes)
	}
}

// textFlag returns the --text value, or nil when the flag was not given.
// An explicit empty --text is kept so it encodes to the framing ids alone.
func textFlag(cmd *cobra.Command, text string) *string {
	if !cmd.Flags().Changed("text") {
		return nil
	}

	return &text
}

// readInput prefers --text, then positional arguments, then stdin. Empty
// stdin is valid input.
func readInput(text *string, args []string, stdin io.Reader) (string, error) {
	if text != nil {
		return *text, nil
	}

	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}

	if f, ok := stdin.(*os.File); ok {
		if info, err := f.Stat(); err == nil && info.Mode()&os.ModeCharDevice != 0 {
			return "", errors.New("no input text: pass it as an argument, with --text or on stdin")
		}
	}

	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}

	return strings.TrimRight(string(data), "\r\n"), nil
}

// runLines converts every non-empty line of r in one batch and writes one
// output line per input line, in order. Failed lines are reported on w as
// errors and make the command fail once all lines are written.
func runLines(ctx context.Context, p *pipeline.Pipeline, r io.Reader, w io.Writer, opts runOptions) error {
	var items []pipeline.Item

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		items = append(items, pipeline.Item{Text: line, Voice: opts.Voice, Diacritize: opts.Diacritize})
	}

	if err := sc.Err(); err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}

	if len(items) == 0 {
		return errors.New("no input lines")
	}

	batch := p.RunBatch(contextOrBackground(ctx), items)

	for i, it := range batch.Items {
		if it.Err != nil {
			if _, err := fmt.Fprintf(w, "error: line %d: %v\n", i+1, it.Err); err != nil {
				return err
			}

			continue
		}

		if err := writeResult(w, *it.Result, opts.Format); err != nil {
			return err
		}
	}

	if failed := batch.Failed(); failed > 0 {
		return fmt.Errorf("%d of %d lines failed", failed, len(items))
	}

	return nil
}

func writeResult(w io.Writer, res pipeline.Result, format string) error {
	var line string

	switch format {
	case formatIDs:
		parts := make([]string, len(res.IDs))
		for i, id := range res.IDs {
			parts[i] = strconv.FormatInt(id, 10)
		}

		line = strings.Join(parts, " ")
	case formatPhonemes:
		clauses := make([]string, len(res.Clauses))
		for i, c := range res.Clauses {
			clauses[i] = strings.Join(c.Phonemes, "") + c.Terminator
		}

		line = strings.Join(clauses, " ")
	default:
		data, err := sonic.Marshal(res)
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}

		line = string(data)
	}

	_, err := fmt.Fprintln(w, line)

	return err
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}

	return ctx
}
