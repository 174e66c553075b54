package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich <contact-id> [contact-id...]",
	Short: "Enrich contacts through the skip-trace API",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		ids := make([]int64, 0, len(args))
		for _, arg := range args {
			var id int64
			if _, err := fmt.Sscanf(arg, "%d", &id); err != nil {
				return fmt.Errorf("invalid contact id %q", arg)
			}
			ids = append(ids, id)
		}

		if len(ids) == 1 {
			res, err := env.Enricher.EnrichContact(ctx, ids[0])
			if err != nil {
				return err
			}
			fmt.Println(res.Message)
			for _, f := range res.EnrichedFields {
				fmt.Println("  " + f)
			}
			return nil
		}

		res, err := env.Enricher.BulkEnrich(ctx, ids)
		if err != nil {
			return err
		}
		fmt.Printf("Enriched %d of %d contacts (%d failed)\n", res.Successful, res.Total, res.Failed)
		for _, e := range res.Errors {
			fmt.Printf("  contact %d: %s\n", e.ContactID, e.Error)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(enrichCmd)
}
