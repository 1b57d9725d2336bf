package main

import (
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/ayushhealth/go-ayush/internal/catalog"
	"github.com/ayushhealth/go-ayush/internal/config"
)

func catalogCmd(envFile *string) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the disease catalog as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				cfg, err := config.Load(*envFile)
				if err != nil {
					return err
				}
				file = cfg.CatalogFile
			}

			cat, err := catalog.Load(file)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(cat.All(), "", "  ")
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(append(out, '\n'))
			return err
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML catalog file (defaults to CATALOG_FILE, then the built-in seed)")
	return cmd
}
