package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/intent-engine/internal/export"
)

var (
	exportFormat     string
	exportAudienceID int64
	exportIDs        []int64
	exportFields     []string
	exportWebhookURL string
	exportOut        string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export contacts as CSV, hashed emails or a webhook POST",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		req := export.Request{
			Format:     export.Format(exportFormat),
			ContactIDs: exportIDs,
			Fields:     exportFields,
			WebhookURL: exportWebhookURL,
		}
		if exportAudienceID != 0 {
			req.AudienceID = &exportAudienceID
		}

		result, err := env.Exports.Export(ctx, req)
		if err != nil {
			return err
		}

		if result.Content != "" {
			out := exportOut
			if out == "" {
				out = req.Filename()
			}
			if err := os.WriteFile(out, []byte(result.Content), 0o644); err != nil {
				return err
			}
			fmt.Printf("%s -> %s\n", result.Message, out)
			return nil
		}

		fmt.Println(result.Message)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "export format: csv, hashed or webhook")
	exportCmd.Flags().Int64Var(&exportAudienceID, "audience", 0, "export an audience by id")
	exportCmd.Flags().Int64SliceVar(&exportIDs, "ids", nil, "explicit contact ids to export")
	exportCmd.Flags().StringSliceVar(&exportFields, "fields", nil, "columns to include (default standard set)")
	exportCmd.Flags().StringVar(&exportWebhookURL, "webhook-url", "", "destination for webhook format")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output file path (default derived from request)")
	rootCmd.AddCommand(exportCmd)
}
