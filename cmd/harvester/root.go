package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"liuproxy_harvester/internal/shared/config"
	"liuproxy_harvester/internal/shared/logger"
	"liuproxy_harvester/internal/shared/types"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

const defaultConfigPath = "configs/harvester.ini"

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "harvester",
		Short: "Harvest public proxies and keep a verified pool",
		Long: `harvester repeatedly fetches proxy candidates from public sources,
verifies every candidate through judge sites and publishes the set of proxies
that passed the last generation.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringP("config", "c", defaultConfigPath, "Path to the ini config file")

	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewCheckCmd())
	cmd.AddCommand(NewSourcesCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig 读取 --config 指定的 ini 文件。
// 默认路径不存在时使用内置默认值, 显式指定的文件必须存在。
func loadConfig(cmd *cobra.Command) (*types.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	cfg := config.Default()
	if _, statErr := os.Stat(path); errors.Is(statErr, fs.ErrNotExist) && !cmd.Flags().Changed("config") {
		config.ApplyEnv(cfg)
		config.Normalize(cfg)
	} else if err := config.LoadIni(cfg, path); err != nil {
		return nil, err
	}

	if err := logger.InitWithWriter(cfg.LogConf, cmd.ErrOrStderr()); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}
