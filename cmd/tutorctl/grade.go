package main

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	"github.com/mind-engage/tutorgrade/internal/grading"
	"github.com/mind-engage/tutorgrade/internal/problem"
)

var gradeCmd = &cobra.Command{
	Use:   "grade [flags] ANSWER",
	Short: "Grade one answer against a stored or inline question",
	Example: `  tutorctl grade --problem q12 "an elephant"
  tutorctl grade --type 주관식 --canonical "The flower is beautiful." --keywords beautiful,flower "beautiful flower"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		fullMatch := cfg.GradingFullMatchCorrect
		if cmd.Flags().Changed("full-match-correct") {
			fullMatch, _ = cmd.Flags().GetBool("full-match-correct")
		}

		id, _ := cmd.Flags().GetString("problem")

		var q problem.Question
		if id != "" {
			repo, err := problem.Open(cmd.Context(), cfg.OpenOptions())
			if err != nil {
				return err
			}
			defer repo.Close()
			if q, err = repo.GetProblem(cmd.Context(), id); err != nil {
				return err
			}
		} else {
			typ, _ := cmd.Flags().GetString("type")
			canonical, _ := cmd.Flags().GetString("canonical")
			keywords, _ := cmd.Flags().GetString("keywords")
			if typ == "" {
				return errors.New("either --problem or --type is required")
			}
			q = problem.Question{
				Type:     problem.ParseType(typ),
				Answer:   canonical,
				Keywords: problem.SplitKeywords(keywords),
			}
		}

		eng := grading.NewEngine(grading.WithFullKeywordMatchCorrect(fullMatch))
		res := eng.Grade(grading.Input{
			Type:      q.Type,
			Canonical: q.Answer,
			Submitted: args[0],
			Keywords:  q.Keywords,
		})
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

func init() {
	gradeCmd.Flags().String("problem", "", "stored question id")
	gradeCmd.Flags().String("type", "", "question type for an inline question")
	gradeCmd.Flags().String("canonical", "", "canonical answer for an inline question")
	gradeCmd.Flags().String("keywords", "", "comma-separated keywords for an inline question")
	gradeCmd.Flags().Bool("full-match-correct", false, `report a full keyword match as "Correct!"`)
	gradeCmd.Flags().SortFlags = false
}
