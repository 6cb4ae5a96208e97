package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mind-engage/tutorgrade/internal/problem"
	"github.com/mind-engage/tutorgrade/internal/qti"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write submissions (or, with --problems, the question bank) as CSV",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, _, err := openRepo(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer repo.Close()

		var out io.Writer = cmd.OutOrStdout()
		if path, _ := cmd.Flags().GetString("output"); path != "" {
			f, err := os.Create(path)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}

		if problems, _ := cmd.Flags().GetBool("problems"); problems {
			qs, err := repo.ListProblems(cmd.Context(), problem.Filter{})
			if err != nil {
				return err
			}
			switch format, _ := cmd.Flags().GetString("format"); format {
			case "csv":
				return problem.WriteQuestionsCSV(out, qs)
			case "qti":
				return qti.WritePackage(out, qs)
			default:
				return fmt.Errorf("unknown format %q (csv|qti)", format)
			}
		}
		user, _ := cmd.Flags().GetString("user")
		subs, err := repo.ListSubmissions(cmd.Context(), problem.SubmissionFilter{UserID: user})
		if err != nil {
			return err
		}
		return problem.WriteSubmissionsCSV(out, subs)
	},
}

func init() {
	exportCmd.Flags().StringP("output", "o", "", "output file (default stdout)")
	exportCmd.Flags().Bool("problems", false, "export the question bank instead of submissions")
	exportCmd.Flags().String("format", "csv", "question bank format with --problems: csv or qti (zip)")
	exportCmd.Flags().String("user", "", "only this student's submissions")
}
