package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/trenderhq/trender/internal/contract"
	"github.com/trenderhq/trender/schema"
)

// All linker flags will be set by goreleaser infra at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCtx is the root context for all operations.
var rootCtx = context.Background()

// cfg will hold the validated, final configuration.
var cfg = &contract.Config{}

// input holds the raw, unvalidated configuration from all sources (file, env, flags).
// Viper will unmarshal into this struct.
var input = &contract.ConfigRawInput{}

// rootCmd is the command-line entrypoint for all other commands.
var rootCmd = &cobra.Command{
	Use:                "trender",
	Short:              "Collect and rank GitHub repository activity.",
	Long:               `Trender discovers active repositories, scores their data quality and momentum, and loads ranked snapshots into a Postgres warehouse.`,
	Version:            version,
	SilenceErrors:      true,
	SilenceUsage:       true,
	DisableSuggestions: true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName(".trender")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
	}

	viper.SetEnvPrefix("TRENDER")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("pool-min-conns", 2)
	viper.SetDefault("pool-max-conns", 10)
	viper.SetDefault("languages", schema.DefaultLanguages)
	viper.SetDefault("per-run-repo-limit", schema.DefaultPerRunRepoLimit)
	viper.SetDefault("chunk-size", schema.DefaultChunkSize)
	viper.SetDefault("updated-window-days", schema.DefaultUpdatedWindow)
	viper.SetDefault("marker-file", schema.DefaultMarkerFile)
	viper.SetDefault("marker-search-max", schema.DefaultMarkerSearchMax)
	viper.SetDefault("marker-created-days", 0)
	viper.SetDefault("readme-max-chars", schema.DefaultReadmeMaxChars)
	viper.SetDefault("quality-threshold", schema.DefaultQualityThreshold)
	viper.SetDefault("overall-limit", schema.DefaultOverallLimit)
	viper.SetDefault("per-language-limit", schema.DefaultPerLanguageLimit)
	viper.SetDefault("log-level", "info")
}

// sharedSetup unmarshals config and runs validation.
func sharedSetup(_ *cobra.Command, _ []string) error {
	// 1. Read config file. This merges defaults, file, env, and flags.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, which is fine; we'll use defaults/env/flags.
	}

	// 2. Unmarshal all resolved values from Viper into our raw input struct.
	if err := viper.Unmarshal(input); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}

	// 3. Run all validation. This populates the global 'cfg' from 'input'.
	if err := contract.ProcessAndValidate(cfg, input); err != nil {
		return err
	}

	configureLogging(cfg.LogLevel)
	return nil
}

// configureLogging applies the configured level to the process logger.
func configureLogging(level string) {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logrus.SetLevel(parsed)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
