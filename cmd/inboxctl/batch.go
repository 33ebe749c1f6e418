package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikey/inbox-classifier/internal/adapters/imap"
	"github.com/mikey/inbox-classifier/internal/core"
)

func init() {
	var maxMessages int

	batchCmd := &cobra.Command{
		Use:   "batch USER_ID",
		Short: "Classify the configured IMAP mailbox and print the tally",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return invoke(func(
				logger *zap.Logger,
				svc *core.BatchService,
				source *imap.Source,
				generator core.TextGenerator,
				repo core.UsageRepository,
			) error {
				defer logger.Sync()
				defer source.Close()
				if closer, ok := generator.(io.Closer); ok {
					defer closer.Close()
				}
				if closer, ok := repo.(io.Closer); ok {
					defer closer.Close()
				}

				ctx, cancel := signalContext()
				defer cancel()

				result, err := svc.ProcessBatch(ctx, args[0], source, maxMessages)
				var quotaErr *core.QuotaExceededError
				if errors.As(err, &quotaErr) {
					return fmt.Errorf("daily processing limit of %d reached for %s", quotaErr.Limit, quotaErr.UserID)
				}
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	}
	batchCmd.Flags().IntVarP(&maxMessages, "max", "n", 0, "Messages to process (0 means the configured cap)")
	rootCmd.AddCommand(batchCmd)
}
