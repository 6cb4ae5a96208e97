package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mind-engage/tutorgrade/internal/problem"
	"github.com/mind-engage/tutorgrade/internal/qti"
)

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Validate a CSV, JSON or QTI question file and upsert it into storage",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		qs, err := qti.DecodeFile(args[0], data)
		if err != nil {
			return err
		}
		var bad int
		for _, q := range qs {
			if err := problem.Validate(q); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				bad++
			}
		}
		if bad > 0 {
			return fmt.Errorf("%d of %d questions invalid, nothing imported", bad, len(qs))
		}
		if dry, _ := cmd.Flags().GetBool("dry-run"); dry {
			fmt.Fprintf(cmd.OutOrStdout(), "%d questions valid\n", len(qs))
			return nil
		}

		repo, _, err := openRepo(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer repo.Close()
		if err := repo.PutProblems(cmd.Context(), qs...); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d questions\n", len(qs))
		return nil
	},
}

func init() {
	importCmd.Flags().Bool("dry-run", false, "validate only")
}
