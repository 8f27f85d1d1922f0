package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"gptbot/internal/repository"
	"gptbot/internal/service"
)

func newStatsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print the number of users per language and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			db, err := repository.NewDB(cfg.DBDriver, cfg.DSN(), log)
			if err != nil {
				return fmt.Errorf("db: %w", err)
			}
			defer closeDB(db, log)

			stats := service.NewStatsService(repository.NewUserRepository(db), nil, "")
			summary, err := stats.Summary(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), summary)
			return nil
		},
	}
}
