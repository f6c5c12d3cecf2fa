package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/go-piper-phonemize/internal/config"
	"github.com/example/go-piper-phonemize/internal/doctor"
	"github.com/example/go-piper-phonemize/internal/onnx"
	"github.com/example/go-piper-phonemize/internal/phonemize"
	"github.com/example/go-piper-phonemize/internal/voice"
)

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run local engine, runtime and inventory checks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			backend, err := config.NormalizeBackend(cfg.Phonemizer.Backend)
			if err != nil {
				return err
			}

			catalog, err := voice.LoadCatalog(cfg.Paths.VoicesManifest)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "backend: %s\n", backend)

			ctx := contextOrBackground(cmd.Context())
			espeak := phonemize.NewEspeakEngine(cfg.Phonemizer.CLIPath, cfg.Paths.DataDir)

			dcfg := doctor.Config{
				EspeakVersion: func() (string, error) {
					probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
					defer cancel()

					return espeak.Version(probeCtx)
				},
				SkipEspeak: backend == config.BackendNative,
				ORTRuntime: func() (string, error) {
					info, err := onnx.DetectRuntime(cfg.Runtime)
					if err != nil {
						return "", err
					}

					return fmt.Sprintf("%s (version %s, from %s)", info.LibraryPath, info.Version, info.Source), nil
				},
				SkipORT:        !cfg.Phonemizer.Diacritize || !anyDiacritizes(catalog),
				InventoryFiles: collectInventoryFiles(cfg.Paths.InventoryDir, catalog),
			}
			if !dcfg.SkipORT {
				dcfg.ModelFiles = collectModelFiles(cfg.Paths.DiacritizerModel, catalog)
			}

			result := doctor.Run(dcfg, out)

			if v, err := catalog.Resolve(cfg.Phonemizer.Voice); err != nil {
				result.AddFailure(fmt.Sprintf("default voice: %v", err))
				_, _ = fmt.Fprintf(out, "%s default voice: %v\n", doctor.FailMark, err)
			} else {
				_, _ = fmt.Fprintf(out, "%s default voice: %s (%s)\n", doctor.PassMark, v.ID, v.Language)
			}

			if result.Failed() {
				for _, f := range result.Failures() {
					fmt.Fprintf(cmd.ErrOrStderr(), "FAIL: %s\n", f)
				}

				return errors.New("doctor checks failed")
			}

			_, _ = fmt.Fprintln(out, "doctor checks passed")

			return nil
		},
	}

	return cmd
}

func anyDiacritizes(catalog *voice.Catalog) bool {
	for _, v := range catalog.List() {
		if v.Diacritize {
			return true
		}
	}

	return false
}

// collectModelFiles returns the distinct models that diacritizing voices
// would load.
func collectModelFiles(defaultModel string, catalog *voice.Catalog) []string {
	seen := map[string]bool{}

	var out []string

	for _, v := range catalog.List() {
		if !v.Diacritize {
			continue
		}

		path := v.DiacritizerModel
		if path == "" {
			path = defaultModel
		}

		if path == "" {
			path = "(unset)"
		}

		if !seen[path] {
			seen[path] = true
			out = append(out, path)
		}
	}

	return out
}

// collectInventoryFiles lists inventory files named by voices and those in
// dir.
func collectInventoryFiles(dir string, catalog *voice.Catalog) []string {
	seen := map[string]bool{}

	var out []string

	add := func(p string) {
		p = filepath.Clean(p)
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	for _, v := range catalog.List() {
		if v.Inventory != "" {
			add(v.Inventory)
		}
	}

	if dir == "" {
		return out
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		// Reported as a failing entry so doctor shows the bad directory.
		add(dir)
		return out
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}

		switch filepath.Ext(e.Name()) {
		case ".json", ".yaml", ".yml":
			add(filepath.Join(dir, e.Name()))
		}
	}

	return out
}
