package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/intent-engine/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "intent-engine",
	Short: "Lead intent data engine",
	Long:  "Ingests contacts from CSV files and SerpAPI searches, scores buying intent with keyword rules, builds filtered audiences and exports them as CSV, hashed identifiers or webhooks.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
