package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"liuproxy_harvester/internal/app"
	"liuproxy_harvester/internal/shared/logger"
)

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the harvesting pipeline until interrupted",
		Long: `Run starts the fetch, queue, check and settle stages and keeps them
cycling until SIGINT or SIGTERM. The verified proxy set is logged, optionally
exported to [sink] export_path and served on [web] port.`,
		Args: cobra.NoArgs,
		RunE: runRunCmd,
	}
	cmd.Flags().String("seed", "", "Proxy list used as the initial good set, e.g. a previous export")
	return cmd
}

func runRunCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	seed, _ := cmd.Flags().GetString("seed")

	server, err := app.New(cfg, seed)
	if err != nil {
		return err
	}

	start := time.Now()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Start time: %s\n", start.Format("2006-01-02 15:04:05"))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info().Str("signal", sig.String()).Msg("Received shutdown signal.")
			server.Stop()
		case <-cmd.Context().Done():
		}
	}()

	runErr := server.Run(cmd.Context())

	fmt.Fprintf(out, "Working time: %s\n", time.Since(start).Round(time.Second))
	return runErr
}
