package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/trenderhq/trender/internal/contract"
	"golang.org/x/term"
)

// authCmd stores a GitHub token in the user config file.
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Store a GitHub access token in the config file.",
	Long: `Prompt for a GitHub access token and save it to the user config
file (~/.trender.yaml).

The token is read without echoing to the terminal and validated against
the known token formats (ghp_, gho_, github_pat_) before saving.`,
	Run: func(_ *cobra.Command, _ []string) {
		if err := executeAuth(); err != nil {
			logrus.WithError(err).Fatal("Auth failed")
		}
	},
}

func executeAuth() error {
	fmt.Print("GitHub token: ")
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("read token: %w", err)
	}

	token := string(raw)
	if err := contract.ValidateToken(token); err != nil {
		return err
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("resolve home directory: %w", err)
	}
	configPath := filepath.Join(home, ".trender.yaml")

	viper.Set("github-token", token)
	if err := viper.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	fmt.Printf("Token saved to %s\n", configPath)
	return nil
}
