package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/example/go-piper-phonemize/internal/diacritize"
)

func newDiacritizeCmd() *cobra.Command {
	var (
		text  string
		model string
	)

	cmd := &cobra.Command{
		Use:   "diacritize [text]",
		Short: "Restore Arabic diacritics without phonemizing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			if model == "" {
				model = cfg.Paths.DiacritizerModel
			}

			if model == "" {
				return errors.New("no diacritization model: set --model or --paths-diacritizer-model")
			}

			input, err := readInput(textFlag(cmd, text), args, cmd.InOrStdin())
			if err != nil {
				return err
			}

			registry := diacritize.NewRegistry(diacritize.ONNXLoader(cfg.Runtime), slog.Default())
			defer func() { _ = registry.Close() }()

			out, err := registry.Restore(contextOrBackground(cmd.Context()), input, model)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), out)

			return err
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "Input text (default: arguments or stdin)")
	cmd.Flags().StringVar(&model, "model", "", "Diacritization model (default: config paths.diacritizer_model)")

	return cmd
}
