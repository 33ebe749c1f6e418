package main

import (
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikey/inbox-classifier/internal/core"
)

func init() {
	usageCmd := &cobra.Command{
		Use:   "usage USER_ID",
		Short: "Show today's usage for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return invoke(func(logger *zap.Logger, ledger *core.UsageLedger, repo core.UsageRepository) error {
				defer logger.Sync()
				if closer, ok := repo.(io.Closer); ok {
					defer closer.Close()
				}

				summary, err := ledger.Summary(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), summary)
			})
		},
	}
	rootCmd.AddCommand(usageCmd)
}
