package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"liuproxy_harvester/proxypool/scraper"
)

// NewSourcesCmd creates the sources command.
func NewSourcesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List the configured candidate sources",
		Args:  cobra.NoArgs,
		RunE:  runSourcesCmd,
	}
	cmd.Flags().Bool("fetch", false, "Fetch every source once and print the candidate count")
	return cmd
}

func runSourcesCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	fetch, _ := cmd.Flags().GetBool("fetch")

	out := cmd.OutOrStdout()
	scrapers := scraper.FromConfig(cfg.SourcesConf)
	if len(scrapers) == 0 {
		fmt.Fprintln(out, "no sources configured")
		return nil
	}

	for _, s := range scrapers {
		if !fetch {
			fmt.Fprintln(out, s.Name())
			continue
		}
		proxies, err := s.Scrape(cmd.Context())
		if err != nil {
			fmt.Fprintf(out, "%s\terror: %v\n", s.Name(), err)
			continue
		}
		fmt.Fprintf(out, "%s\t%d\n", s.Name(), len(proxies))
	}
	return nil
}
