package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pokegrid/relay/internal/config"
	"github.com/pokegrid/relay/internal/kvstore"
	"github.com/pokegrid/relay/internal/logging"
	"github.com/pokegrid/relay/internal/relay"
)

const releaseVersion = "0.1.0"

func newCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "pokegrid-relay",
		Short:         "Relay: the always-on control plane agents and the home client connect to.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	config.RegisterCommon(cmd, cfg)

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("pokegrid-relay v{{.Version}}\n")
	cmd.SilenceUsage = true

	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	log := logging.New(cfg.Verbose)
	defer log.Sync() //nolint:errcheck

	kv, err := kvstore.Dial(ctx, cfg.KVURL)
	if err != nil {
		return err
	}
	defer kv.Close()

	srv := relay.New(cfg, kv, log)
	return srv.Run(ctx)
}

func main() {
	log.SetFlags(0)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := &config.Config{}
	cmd := newCmd(cfg)
	cmd.SetContext(ctx)

	cobra.CheckErr(cmd.Execute())
}
