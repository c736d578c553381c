package cmd

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/trenderhq/trender/internal/warehouse"
)

// migrateCmd manages the warehouse schema.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run warehouse schema migrations.",
	Long: `Apply or roll back warehouse schema migrations.

By default migrates to the latest version. Use --target-version to pin a
specific version, or 0 to roll everything back.

Examples:
  # Migrate to the latest schema
  trender migrate

  # Roll back everything
  trender migrate --target-version 0`,
	PreRunE: migrateSetup,
	Run: func(_ *cobra.Command, _ []string) {
		target := viper.GetInt("target-version")
		if err := warehouse.Migrate(input.DatabaseURL, target); err != nil {
			logrus.WithError(err).Fatal("Migration failed")
		}
	},
}

// migrateSetup is a lighter setup than sharedSetup: migrations only need
// the database URL, not a GitHub token.
func migrateSetup(_ *cobra.Command, _ []string) error {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	if err := viper.Unmarshal(input); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}
	if input.DatabaseURL == "" {
		return errors.New("database url is required (set TRENDER_DATABASE_URL or database-url)")
	}
	configureLogging(input.LogLevel)
	return nil
}
