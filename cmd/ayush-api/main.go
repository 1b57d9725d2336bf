// Package main provides the AYUSH API entry point.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

const serviceName = "ayush-api"

// version is set at build time with -ldflags "-X main.version=..."
var version = "1.0.0"

func main() {
	var envFile string

	rootCmd := &cobra.Command{
		Use:          serviceName,
		Short:        "AYUSH clinical-data FHIR API",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional dotenv file with configuration")

	rootCmd.AddCommand(serveCmd(&envFile))
	rootCmd.AddCommand(topicsCmd(&envFile))
	rootCmd.AddCommand(catalogCmd(&envFile))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
