package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/example/go-piper-phonemize/internal/inventory"
)

func newInventoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inventory",
		Short: "Inspect and validate phoneme inventories",
	}

	cmd.AddCommand(newInventoryShowCmd())
	cmd.AddCommand(newInventoryValidateCmd())

	return cmd
}

func newInventoryShowCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show [voice]",
		Short: "Print the symbol table used for a voice",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			voiceID := cfg.Phonemizer.Voice
			if len(args) == 1 {
				voiceID = args[0]
			}

			_, store, err := newCatalogAndStore(cfg)
			if err != nil {
				return err
			}

			inv, err := store.Load(voiceID)
			if err != nil {
				return err
			}

			return writeInventory(cmd.OutOrStdout(), inv, format)
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "Output format: table|json")

	return cmd
}

func writeInventory(w io.Writer, inv *inventory.Inventory, format string) error {
	switch format {
	case "json":
		data, err := sonic.Marshal(inv.Map())
		if err != nil {
			return fmt.Errorf("encode inventory: %w", err)
		}

		_, err = fmt.Fprintln(w, string(data))

		return err
	case "table":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "SYMBOL\tID")

		type row struct {
			name string
			id   int64
		}

		reserved := []row{
			{inventory.BOS, inv.BOS()},
			{inventory.EOS, inv.EOS()},
			{inventory.ClauseBreak, inv.ClauseBreak()},
			{inventory.SymbolSeparator, inv.Separator()},
		}
		if pad, ok := inv.PAD(); ok {
			reserved = append(reserved, row{inventory.PAD, pad})
		}

		for _, r := range reserved {
			_, _ = fmt.Fprintf(tw, "%s\t%d\n", r.name, r.id)
		}

		for _, s := range inv.Symbols() {
			id, _ := inv.ID(s)
			_, _ = fmt.Fprintf(tw, "%q\t%d\n", s, id)
		}

		return tw.Flush()
	default:
		return fmt.Errorf("--format must be 'table' or 'json'")
	}
}

func newInventoryValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>...",
		Short: "Parse inventory files and report format errors",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateInventories(cmd.OutOrStdout(), args)
		},
	}
}

func validateInventories(w io.Writer, paths []string) error {
	failed := 0

	for _, path := range paths {
		inv, err := inventory.LoadFile(path)
		if err != nil {
			failed++

			_, _ = fmt.Fprintf(w, "FAIL %s: %v\n", path, err)

			continue
		}

		_, _ = fmt.Fprintf(w, "ok   %s (%d symbols)\n", path, inv.Len())
	}

	if failed > 0 {
		return errors.New("inventory validation failed")
	}

	return nil
}
