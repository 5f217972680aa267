// internal/cli/root.go
package ragqa

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mwiater/ragqa/internal/appconfig"
	"github.com/mwiater/ragqa/internal/logging"
)

var (
	cfgFile       string
	currentConfig *appconfig.Config

	version = "dev"
	commit  = "none"
)

var rootCmd = &cobra.Command{
	Use:          "ragqa",
	Short:        "Answer questions about a crawled website",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// 1) Read the config file (or fall back to defaults).
		if err := ensureConfigLoaded(cmd); err != nil {
			return err
		}

		// 2) Materialize the merged configuration (flags > config > defaults).
		var cfg appconfig.Config
		if err := viper.Unmarshal(&cfg); err != nil {
			return fmt.Errorf("unmarshal config: %w", err)
		}
		cfg.ApplyDefaults()
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		cfg.ConfigPath = viper.ConfigFileUsed()
		currentConfig = &cfg

		// 3) Route the standard logger. Console output only in debug mode.
		logging.SetDebug(cfg.Debug)
		if cfg.Debug {
			logging.SetConsole(os.Stderr)
		} else {
			logging.SetConsole(nil)
		}
		if err := logging.Init(cfg.LogFilePath()); err != nil {
			return fmt.Errorf("init logging: %w", err)
		}
		logging.LogDebug("config loaded from %q", cfg.ConfigPath)
		return nil
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	err := rootCmd.Execute()
	_ = logging.Close()
	if err != nil {
		os.Exit(1)
	}
}

// SetVersionInfo records build metadata for the version command.
func SetVersionInfo(v, c string) {
	if v != "" {
		version = v
	}
	if c != "" {
		commit = c
	}
	rootCmd.Version = fmt.Sprintf("%s (%s)", version, commit)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", appconfig.DefaultConfigPath, "config file (e.g., config/config.json)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().String("logFile", "", "log file path (default ragqa.log)")

	// Flags override config values.
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("logFile", rootCmd.PersistentFlags().Lookup("logFile"))

	rootCmd.Version = fmt.Sprintf("%s (%s)", version, commit)
}

func initConfig() {
	// API keys may live in a local .env file; a missing file is fine.
	_ = godotenv.Load()
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

// ensureConfigLoaded reads the config file. A missing default file means
// "use defaults"; a missing file named with --config is an error.
func ensureConfigLoaded(cmd *cobra.Command) error {
	viper.SetDefault("debug", false)

	if _, err := os.Stat(cfgFile); err != nil {
		if errors.Is(err, os.ErrNotExist) && !cmd.Flags().Changed("config") {
			return nil
		}
		return fmt.Errorf("failed to load config %q: %w", cfgFile, err)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to load config: %w", err)
	}
	return nil
}

// GetConfig returns the loaded application configuration.
func GetConfig() *appconfig.Config {
	return currentConfig
}
