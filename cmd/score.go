package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var scoreContactID int64

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score unscored contacts, or rescore one with --contact",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if scoreContactID != 0 {
			score, err := env.Scorer.Recalculate(ctx, scoreContactID)
			if err != nil {
				return err
			}
			fmt.Printf("Contact %d: %s (%.2f)\n", scoreContactID, score.Score, score.ScoreValue)
			for _, reason := range score.Signals.Reasoning {
				fmt.Println("  " + reason)
			}
			return nil
		}

		n, err := env.Scorer.ScoreAllUnscored(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Scored %d contacts\n", n)
		return nil
	},
}

func init() {
	scoreCmd.Flags().Int64Var(&scoreContactID, "contact", 0, "rescore a single contact id")
	rootCmd.AddCommand(scoreCmd)
}
