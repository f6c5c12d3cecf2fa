// Package pipeline runs text through diacritization, phonemization and id
// encoding for a voice.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/multierr"

	"github.com/example/go-piper-phonemize/internal/diacritize"
	"github.com/example/go-piper-phonemize/internal/encode"
	"github.com/example/go-piper-phonemize/internal/inventory"
	"github.com/example/go-piper-phonemize/internal/phonemize"
	"github.com/example/go-piper-phonemize/internal/voice"
)

// ErrNoDiacritizer is reported when a voice needs diacritics but the
// pipeline was built without a diacritizer.
var ErrNoDiacritizer = errors.New("no diacritizer configured")

// Restorer restores diacritics with the model at modelPath.
type Restorer interface {
	Restore(ctx context.Context, text, modelPath string) (string, error)
}

// Result is the outcome of one pipeline run.
type Result struct {
	Voice           string         `json:"voice"`
	Text            string         `json:"text"`
	DiacritizedText string         `json:"diacritized_text,omitempty"`
	Clauses         []ClauseResult `json:"clauses"`
	IDs             []int64        `json:"ids"`
}

// ClauseResult is one clause with its phonemes and unframed ids.
type ClauseResult struct {
	Text       string   `json:"text"`
	Terminator string   `json:"terminator"`
	Kind       string   `json:"kind"`
	Sentence   int      `json:"sentence"`
	Phonemes   []string `json:"phonemes"`
	IDs        []int64  `json:"ids"`
}

// Item is one batch input.
type Item struct {
	Text       string `json:"text"`
	Voice      string `json:"voice"`
	Diacritize bool   `json:"diacritize"`
}

// ItemResult holds either a result or the error for one batch item.
type ItemResult struct {
	Result *Result
	Err    error
}

// BatchResult holds per-item results in input order.
type BatchResult struct {
	Items []ItemResult
}

// Err combines the errors of all failed items, or returns nil.
func (b BatchResult) Err() error {
	var err error

	for i, it := range b.Items {
		if it.Err != nil {
			err = multierr.Append(err, fmt.Errorf("item %d: %w", i, it.Err))
		}
	}

	return err
}

// Failed counts items that returned an error.
func (b BatchResult) Failed() int {
	n := 0

	for _, it := range b.Items {
		if it.Err != nil {
			n++
		}
	}

	return n
}

type Options struct {
	Catalog     *voice.Catalog
	Inventories *inventory.Store
	Phonemizer  *phonemize.Phonemizer
	// Diacritizer may be nil when no voice needs diacritics.
	Diacritizer Restorer
	// ModelPath is used for voices that do not name their own model.
	ModelPath string
	// Workers bounds RunBatch concurrency (default 4).
	Workers int
	Logger  *slog.Logger
}

// Pipeline is safe for concurrent use.
type Pipeline struct {
	catalog     *voice.Catalog
	inventories *inventory.Store
	phonemizer  *phonemize.Phonemizer
	diacritizer Restorer
	modelPath   string
	workers     int
	logger      *slog.Logger
}

func New(opts Options) *Pipeline {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Pipeline{
		catalog:     opts.Catalog,
		inventories: opts.Inventories,
		phonemizer:  opts.Phonemizer,
		diacritizer: opts.Diacritizer,
		modelPath:   opts.ModelPath,
		workers:     opts.Workers,
		logger:      opts.Logger,
	}
}

// Voices lists the voices the pipeline accepts.
func (p *Pipeline) Voices() []voice.Voice {
	return p.catalog.List()
}

// Run converts text to phoneme ids for voiceID. When diacritize is set and
// the voice declares diacritization, diacritics are restored first; other
// voices ignore the flag. Any stage failure aborts the run.
func (p *Pipeline) Run(ctx context.Context, text, voiceID string, diacritize bool) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	start := time.Now()

	v, err := p.catalog.Resolve(voiceID)
	if err != nil {
		return Result{}, err
	}

	inv, err := p.inventories.Load(v.ID)
	if err != nil {
		return Result{}, fmt.Errorf("inventory for %s: %w", v.ID, err)
	}

	res := Result{Voice: v.ID, Text: text}
	input := text

	switch {
	case diacritize && v.Diacritize:
		restored, err := p.restore(ctx, v, text)
		if err != nil {
			return Result{}, err
		}

		input = restored
		res.DiacritizedText = restored
	case diacritize:
		p.logger.Debug("voice does not use diacritics; ignoring diacritize flag", "voice", v.ID)
	}

	clauses, err := p.phonemizer.Phonemize(ctx, input, v.ID, phonemize.WithSegmenter(inv))
	if err != nil {
		return Result{}, err
	}

	seqs := make([][]string, len(clauses))
	for i, c := range clauses {
		seqs[i] = c.Phonemes
	}

	ids, err := encode.Encode(seqs, inv)
	if err != nil {
		return Result{}, err
	}

	res.IDs = ids
	res.Clauses = make([]ClauseResult, len(clauses))

	for i, c := range clauses {
		clauseIDs, err := encode.EncodeClause(c.Phonemes, inv)
		if err != nil {
			return Result{}, err
		}

		res.Clauses[i] = ClauseResult{
			Text:       c.Text,
			Terminator: c.Terminator,
			Kind:       c.Kind.String(),
			Sentence:   c.Sentence,
			Phonemes:   c.Phonemes,
			IDs:        clauseIDs,
		}
	}

	p.logger.Debug("pipeline run",
		"voice", v.ID,
		"clauses", len(clauses),
		"ids", len(ids),
		"diacritized", res.DiacritizedText != "",
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return res, nil
}

func (p *Pipeline) restore(ctx context.Context, v voice.Voice, text string) (string, error) {
	model := v.DiacritizerModel
	if model == "" {
		model = p.modelPath
	}

	if p.diacritizer == nil {
		return "", &diacritize.ModelLoadError{Path: model, Err: ErrNoDiacritizer}
	}

	return p.diacritizer.Restore(ctx, text, model)
}

// RunBatch runs every item on a bounded worker pool. Results keep input
// order and one item's failure does not affect the others.
func (p *Pipeline) RunBatch(ctx context.Context, items []Item) BatchResult {
	out := BatchResult{Items: make([]ItemResult, len(items))}

	wp := pool.New().WithMaxGoroutines(p.workers)

	for i, it := range items {
		wp.Go(func() {
			res, err := p.Run(ctx, it.Text, it.Voice, it.Diacritize)
			if err != nil {
				out.Items[i] = ItemResult{Err: err}
				return
			}

			out.Items[i] = ItemResult{Result: &res}
		})
	}

	wp.Wait()

	if failed := out.Failed(); failed > 0 {
		p.logger.Warn("batch finished with failures", "items", len(items), "failed", failed)
	}

	return out
}
