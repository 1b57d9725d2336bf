package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayushhealth/go-ayush/internal/infrastructure/redpanda"
	"github.com/ayushhealth/go-ayush/internal/observability/logging"
)

func topicsCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "topics",
		Short: "Create the clinical event topics in Redpanda",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*envFile)
			if err != nil {
				return err
			}
			if !cfg.EventsEnabled() {
				return errors.New("KAFKA_BROKERS is required")
			}

			logger, err := logging.New(cfg.Env, cfg.LogLevel)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			if err := redpanda.HealthCheck(ctx, cfg.KafkaBrokers); err != nil {
				return fmt.Errorf("redpanda unreachable: %w", err)
			}

			admin, err := redpanda.NewAdmin(cfg.KafkaBrokers, logger)
			if err != nil {
				return err
			}
			defer admin.Close()

			if err := admin.EnsureTopics(ctx); err != nil {
				return err
			}

			names, err := admin.ListTopics(ctx)
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}
