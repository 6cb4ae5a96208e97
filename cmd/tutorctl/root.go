package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mind-engage/tutorgrade/internal/config"
	"github.com/mind-engage/tutorgrade/internal/problem"
)

var rootCmd = &cobra.Command{
	Use:           "tutorctl",
	Short:         "Question bank and grading tool for the tutoring center",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "YAML config file (env vars still override)")

	rootCmd.AddCommand(gradeCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(hashPasswordCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(versionCmd)
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}

// openRepo opens the configured storage backend.
func openRepo(ctx context.Context, cmd *cobra.Command) (problem.Repository, config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, cfg, err
	}
	repo, err := problem.Open(ctx, cfg.OpenOptions())
	return repo, cfg, err
}
