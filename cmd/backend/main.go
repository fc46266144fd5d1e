package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pokegrid/relay/internal/config"
	"github.com/pokegrid/relay/internal/emulator"
	"github.com/pokegrid/relay/internal/homeclient"
	"github.com/pokegrid/relay/internal/logging"
	"github.com/pokegrid/relay/internal/protocol"
	"github.com/pokegrid/relay/internal/tickproc"
)

const releaseVersion = "0.1.0"

func newCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "pokegrid-backend",
		Short:         "Backend: drives one emulator instance and pushes decoded state to the relay.",
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
	cmd.SetVersionTemplate("pokegrid-backend v{{.Version}}\n")
	cmd.SilenceUsage = true

	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	log := logging.New(cfg.Verbose)
	defer log.Sync() //nolint:errcheck

	// A real deployment replaces this with an Instance backed by an actual
	// libretro/Game Boy core; the fake lets the pipeline run without one.
	emu := emulator.NewFake()
	defer emu.Close()

	proc := tickproc.New(cfg.GameID, emu, log)

	client := homeclient.New(cfg.RelayURL, cfg.RelaySecret, cfg.GameID, proc.RecordVote, log)
	go client.Run(ctx)

	publish := func(state protocol.State) error {
		return client.PushState(state.Turn, state)
	}

	supervisor := tickproc.NewSupervisor(proc, cfg.TickInterval(), cfg.TickInterval()/3, publish, log)
	supervisor.Run(ctx)

	return nil
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
