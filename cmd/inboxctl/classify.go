package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikey/inbox-classifier/internal/adapters/mailfile"
	"github.com/mikey/inbox-classifier/internal/config"
	"github.com/mikey/inbox-classifier/internal/core"
	"github.com/mikey/inbox-classifier/internal/utils"
)

func init() {
	var inputFile string

	classifyCmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify one RFC 5322 message read from a file or stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return invoke(func(
				cfg *config.Config,
				logger *zap.Logger,
				classifier *core.Classifier,
				generator core.TextGenerator,
				textProcessor *utils.TextProcessor,
			) error {
				defer logger.Sync()
				if closer, ok := generator.(io.Closer); ok {
					defer closer.Close()
				}

				var input io.Reader = cmd.InOrStdin()
				if inputFile != "" {
					file, err := os.Open(inputFile)
					if err != nil {
						return fmt.Errorf("failed to open input file: %w", err)
					}
					defer file.Close()
					input = file
					logger.Debug("Reading message from file", zap.String("file", inputFile))
				}

				msg, err := mailfile.NewParser(textProcessor).Parse(input)
				if err != nil {
					return err
				}

				ctx, cancel := signalContext()
				defer cancel()

				start := time.Now()
				category := classifier.Classify(ctx, msg.Request())

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Subject:  %s\n", msg.Subject)
				fmt.Fprintf(out, "From:     %s\n", msg.Sender)
				fmt.Fprintf(out, "Provider: %s\n", cfg.GetLLM().Provider)
				fmt.Fprintf(out, "Category: %s\n", category)
				fmt.Fprintf(out, "Took:     %v\n", time.Since(start).Round(time.Millisecond))
				return nil
			})
		},
	}
	classifyCmd.Flags().StringVarP(&inputFile, "file", "f", "", "Message file (stdin if not specified)")
	rootCmd.AddCommand(classifyCmd)
}
