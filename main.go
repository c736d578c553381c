// main is the entry point for the trender CLI.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/trenderhq/trender/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		logrus.WithError(err).Error("Command failed")
		os.Exit(1)
	}
}
