package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"liuproxy_harvester/internal/app"
	"liuproxy_harvester/proxypool/storage"
)

// NewCheckCmd creates the check command.
func NewCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [proxy...]",
		Short: "Check the liveness of the given proxies once",
		Long: `Check runs the configured judges against every proxy given as an
argument or listed in --file and prints one verdict per proxy.

Examples:
  harvester check 1.2.3.4:8080 socks5://5.6.7.8:1080
  harvester check --file proxies.txt --second-check https://www.example.com/`,
		Args: cobra.ArbitraryArgs,
		RunE: runCheckCmd,
	}
	cmd.Flags().StringP("file", "f", "", "File with one proxy per line")
	cmd.Flags().String("second-check", "", "Site that must also answer 200 through the proxy")
	cmd.Flags().IntP("workers", "w", 20, "Number of concurrent checks")
	cmd.Flags().StringSlice("judge", nil, "Judge URL (repeatable, overrides the config)")
	return cmd
}

func runCheckCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	candidates := append([]string(nil), args...)
	if file, _ := cmd.Flags().GetString("file"); file != "" {
		loaded, err := storage.NewFileStorage(file).Load()
		if err != nil {
			return err
		}
		candidates = append(candidates, loaded...)
	}
	if len(candidates) == 0 {
		return errors.New("no proxies to check: pass them as arguments or with --file")
	}

	if second, _ := cmd.Flags().GetString("second-check"); second != "" {
		cfg.CheckerConf.SecondCheckURL = second
	}
	if judges, _ := cmd.Flags().GetStringSlice("judge"); len(judges) > 0 {
		cfg.CheckerConf.Judges = judges
	}
	workers, _ := cmd.Flags().GetInt("workers")
	if workers <= 0 {
		workers = 1
	}

	checker := app.NewChecker(cfg.CheckerConf)
	verdicts := make([]bool, len(candidates))

	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(workers)
	for i, candidate := range candidates {
		g.Go(func() error {
			verdicts[i] = checker.Check(ctx, candidate)
			return nil
		})
	}
	_ = g.Wait()

	alive := 0
	out := cmd.OutOrStdout()
	for i, candidate := range candidates {
		if verdicts[i] {
			alive++
			fmt.Fprintf(out, "ALIVE %s\n", candidate)
		} else {
			fmt.Fprintf(out, "DEAD  %s\n", candidate)
		}
	}
	fmt.Fprintf(out, "%d/%d alive\n", alive, len(candidates))
	return nil
}
