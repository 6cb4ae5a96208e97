package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mind-engage/tutorgrade/internal/gradebook"
	"github.com/mind-engage/tutorgrade/internal/problem"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Mirror graded submissions from the SQL event log to the spreadsheet once",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, cfg, err := openRepo(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer repo.Close()
		src, ok := repo.(*problem.SQLStore)
		if !ok {
			return errors.New("sync reads the event log and needs STORAGE_BACKEND=sql")
		}
		creds, err := os.ReadFile(cfg.Sheets.CredentialsFile)
		if err != nil {
			return err
		}
		sheet, err := problem.NewSheetStore(cmd.Context(), cfg.SheetConfig(), creds)
		if err != nil {
			return err
		}
		n, err := gradebook.New(src.Events(), sheet, nil).SyncOnce(cmd.Context())
		fmt.Fprintf(cmd.OutOrStdout(), "mirrored %d submissions\n", n)
		return err
	},
}
