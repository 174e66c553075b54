package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/intent-engine/internal/normalizer"
)

var (
	searchLocation string
	searchNum      int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run a SerpAPI search and import the results as contacts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := normalizer.ImportSearch(ctx, env.Store, env.Search, args[0], searchLocation, searchNum)
		if err != nil {
			return err
		}

		scored, err := env.Scorer.ScoreAllUnscored(ctx)
		if err != nil {
			zap.L().Warn("scoring imported contacts failed", zap.Error(err))
		}

		fmt.Printf("Search #%d returned %d results, created %d contacts, scored %d\n",
			result.SearchID, result.ResultsCount, result.ContactsCreated, scored)
		return nil
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchLocation, "location", "", "search location, e.g. \"Austin, TX\"")
	searchCmd.Flags().IntVar(&searchNum, "num", 10, "number of results to request")
	rootCmd.AddCommand(searchCmd)
}
