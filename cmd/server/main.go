package main

import (
	"context"
	"fmt"
	"os"

	"github.com/boardwar/backend/internal/config"
	"github.com/boardwar/backend/internal/logger"
	"github.com/boardwar/backend/internal/migrations"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "boardwar",
		Short:         "Matchmaking and session server for BoardWar",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			log, err := logger.New(cfg.Environment, cfg.LogLevel)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer log.Sync()
			return serve(cmd.Context(), cfg, log)
		},
	}

	root.AddCommand(newMigrateCommand(), newTokenCommand())
	return root
}

func newMigrateCommand() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			log, err := logger.New(cfg.Environment, cfg.LogLevel)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer log.Sync()

			if dir == "" {
				dir = cfg.MigrationsDir
			}
			if err := migrations.RunMigrations(cfg.DatabaseURL, dir, log); err != nil {
				return err
			}
			log.Info("migrations applied", zap.String("dir", dir))
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "migrations directory (defaults to MIGRATIONS_DIR)")
	return cmd
}
