package main

import (
	"context"
	"fmt"
	"os"

	"agentterm/pkg/backend"
	"agentterm/pkg/config"
	"agentterm/pkg/rpc"
	"agentterm/pkg/server"
	"agentterm/pkg/tui"
	"agentterm/pkg/watcher"

	"github.com/spf13/cobra"
)

// Version should be set during build
var Version = "dev"

type rootFlags struct {
	configPath string
	backendURL string
	mirrorPort int
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var flags rootFlags

	root := &cobra.Command{
		Use:          "agentterm",
		Short:        "Chat terminal for an on-chain trading agent",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Path to configuration file")
	root.PersistentFlags().StringVar(&flags.backendURL, "backend-url", "", "Agent API base URL")
	root.PersistentFlags().IntVar(&flags.mirrorPort, "mirror-port", 0, "Serve a read-only session mirror on this port")

	root.AddCommand(
		newVersionCmd(),
		newCheckCmd(&flags),
		newInitConfigCmd(&flags),
		newRestoreConfigCmd(&flags),
	)
	return root
}

// loadConfig resolves the config path and applies command line overrides
// on top of file and environment settings.
func loadConfig(cmd *cobra.Command, flags rootFlags) (config.Config, string, error) {
	path, err := config.GetConfigPath(flags.configPath)
	if err != nil {
		return config.Config{}, "", fmt.Errorf("determining config path: %w", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, path, err
	}
	if cmd.Flags().Changed("backend-url") {
		cfg.BackendURL = flags.backendURL
	}
	if cmd.Flags().Changed("mirror-port") {
		cfg.MirrorPort = flags.mirrorPort
	}
	return cfg, path, nil
}

func run(ctx context.Context, cfg config.Config) error {
	if problems := cfg.Validate(); len(problems) > 0 {
		for _, p := range problems {
			fmt.Fprintf(os.Stderr, "Error: %s\n", p)
		}
		return fmt.Errorf("invalid configuration")
	}

	wallet, err := rpc.NewWallet(cfg.Chain.RPCURLs, cfg.Chain.ChainID, cfg.PrivateKey, cfg.WalletAddress)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := watcher.NewWatcher(wallet, cfg.BalancePollInterval())
	w.Start(ctx)
	defer w.Stop()

	if cfg.MirrorPort > 0 {
		srv := server.NewServer(w)
		go func() {
			if err := srv.Start(ctx, cfg.MirrorPort); err != nil {
				fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
			}
		}()
	}

	return tui.Start(tui.Deps{
		Config:  cfg,
		Backend: backend.NewClient(cfg.BackendURL, cfg.RequestTimeout()),
		Wallet:  wallet,
		Watcher: w,
	}, cfg.LogFile, Version)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and exit",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "agentterm version %s\n", Version)
		},
	}
}

func newInitConfigCmd(flags *rootFlags) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init-config",
		Short: "Write the default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.GetConfigPath(flags.configPath)
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.SaveConfig(config.Default(), path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

func newRestoreConfigCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "restore-config",
		Short: "Restore the newest configuration backup",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.GetConfigPath(flags.configPath)
			if err != nil {
				return err
			}
			restored, err := config.RestoreLastBackup(path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %s from %s\n", path, restored)
			return nil
		},
	}
}
