package main

import (
	"log/slog"

	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"

	"github.com/LeventeLantos/sms-dispatch/internal/config"
	"github.com/LeventeLantos/sms-dispatch/internal/db"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded SQL migrations to POSTGRES_URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			dbCfg, err := config.LoadDatabase(ctx, envconfig.OsLookuper())
			if err != nil {
				return err
			}

			sqlDB, err := db.Connect(ctx, dbCfg.PostgresURL)
			if err != nil {
				return err
			}
			defer sqlDB.Close()

			applied, err := db.RunMigrations(ctx, sqlDB)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				slog.Info("database is up to date")
				return nil
			}
			for _, name := range applied {
				slog.Info("applied migration", "name", name)
			}
			return nil
		},
	}
}
