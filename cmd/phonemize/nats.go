package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/go-piper-phonemize/internal/bus"
)

func newNATSCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "nats",
		Short: "Answer phonemize requests on a NATS subject",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return bus.New(cfg, a.pipeline).Start(ctx)
		},
	}
}
