package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/proxnode/cmd/calibrate"
	"github.com/tphakala/proxnode/cmd/run"
	"github.com/tphakala/proxnode/cmd/scan"
	"github.com/tphakala/proxnode/cmd/version"
	"github.com/tphakala/proxnode/internal/conf"
	"github.com/tphakala/proxnode/internal/logger"
)

// RootCommand creates and returns the root command. settings is filled in
// before any subcommand that needs the configuration runs.
func RootCommand(settings *conf.Settings) *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "proxnode",
		Short:         "Wireless proximity sensing node",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to the config file (default: search ./, ~/.config/proxnode, /etc/proxnode)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug output")
	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		panic(fmt.Sprintf("error binding debug flag: %v", err))
	}

	calibrateCmd := calibrate.Command()
	versionCmd := version.Command()

	rootCmd.AddCommand(
		run.Command(settings),
		scan.Command(settings),
		calibrateCmd,
		versionCmd,
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// offline commands work without a config file
		if cmd.Name() == calibrateCmd.Name() || cmd.Name() == versionCmd.Name() {
			return nil
		}
		return initialize(configFile, settings)
	}
	rootCmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		return logger.Global().Flush()
	}

	return rootCmd
}

// initialize loads the configuration and installs the global logger.
func initialize(configFile string, settings *conf.Settings) error {
	loaded, err := conf.Load(configFile)
	if err != nil {
		return err
	}
	*settings = *loaded

	if settings.Debug {
		settings.Logging.DefaultLevel = "debug"
		if settings.Logging.Console != nil {
			settings.Logging.Console.Level = "debug"
		}
	}

	central, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger.SetGlobal(central)
	return nil
}
