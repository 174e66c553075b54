package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/intent-engine/internal/normalizer"
)

var importCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Import contacts from a CSV file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close() //nolint:errcheck

		result, err := normalizer.ImportCSV(ctx, env.Store, f, filepath.Base(args[0]))
		if err != nil {
			return err
		}

		scored, err := env.Scorer.ScoreAllUnscored(ctx)
		if err != nil {
			zap.L().Warn("scoring imported contacts failed", zap.Error(err))
		}

		fmt.Printf("Imported %d of %d rows (%d skipped), scored %d contacts\n",
			result.Imported, result.TotalRows, result.Skipped, scored)
		for _, e := range result.Errors {
			fmt.Println("  " + e)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}
