package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"dev.hon.one/routewatch/common"
)

var (
	debug      bool
	configPath string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "routewatch",
		Short:             "Poll routing tables, interface statistics and reachability from network devices",
		Version:           common.AppVersion,
		SilenceUsage:      true,
		SilenceErrors:     true,
		CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debug {
				log.SetLevel(log.TraceLevel)
				log.Info("Debug mode enabled")
			}
		},
	}
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Show debug messages.")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (JSON or YAML).")

	rootCmd.AddCommand(
		newStartCmd(),
		newDeviceCmd(),
	)
	return rootCmd
}

func loadConfigAndInventory() (common.Config, *common.Inventory, error) {
	config, err := common.LoadConfig(configPath)
	if err != nil {
		return config, nil, fmt.Errorf("load config: %w", err)
	}
	inventory, err := common.LoadInventory(config.DevicesPath, config.CredentialsPath)
	if err != nil {
		return config, nil, fmt.Errorf("load inventory: %w", err)
	}
	return config, inventory, nil
}
