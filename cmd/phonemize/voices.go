package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/example/go-piper-phonemize/internal/inventory"
	"github.com/example/go-piper-phonemize/internal/voice"
)

type voiceRow struct {
	voice.Voice
	InventorySource string `json:"inventory_source"`
}

func newVoicesCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "voices",
		Short: "List supported voices",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			catalog, store, err := newCatalogAndStore(cfg)
			if err != nil {
				return err
			}

			return writeVoices(cmd.OutOrStdout(), catalog, store, format)
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "Output format: table|json")

	return cmd
}

func writeVoices(w io.Writer, catalog *voice.Catalog, store *inventory.Store, format string) error {
	voices := catalog.List()
	rows := make([]voiceRow, 0, len(voices))

	for _, v := range voices {
		src, err := store.Source(v.ID)
		if err != nil {
			return err
		}

		if src == "" {
			src = "builtin"
		}

		rows = append(rows, voiceRow{Voice: v, InventorySource: src})
	}

	switch format {
	case "json":
		data, err := sonic.Marshal(rows)
		if err != nil {
			return fmt.Errorf("encode voices: %w", err)
		}

		_, err = fmt.Fprintln(w, string(data))

		return err
	case "table":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "ID\tLANGUAGE\tESPEAK\tDIACRITIZE\tINVENTORY")

		for _, r := range rows {
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\n", r.ID, r.Language, r.Espeak, r.Diacritize, r.InventorySource)
		}

		return tw.Flush()
	default:
		return fmt.Errorf("--format must be 'table' or 'json'")
	}
}
