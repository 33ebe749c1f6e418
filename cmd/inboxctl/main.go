package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/dig"

	"github.com/mikey/inbox-classifier/internal/di"
)

var (
	flags   = &di.CLIFlags{}
	rootCmd = &cobra.Command{
		Use:           "inboxctl",
		Short:         "Operator CLI for the inbox classifier",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func main() {
	rootCmd.PersistentFlags().StringVarP(&flags.ConfigFile, "config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().StringVarP(&flags.Provider, "provider", "p", "", "LLM provider override (gemini, openai, bedrock)")
	rootCmd.PersistentFlags().StringVar(&flags.UsageStore, "usage-store", "", "Usage store override (memory, sqlite, mysql, postgres)")
	rootCmd.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// invoke builds the CLI container and runs fn with its dependencies
func invoke(fn interface{}) error {
	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		return fmt.Errorf("failed to build dependency container: %w", err)
	}
	if err := container.Invoke(fn); err != nil {
		return dig.RootCause(err)
	}
	return nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
