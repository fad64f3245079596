package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ignatzorin/username-extractor/internal/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "extractctl",
		Short:         "Extract usernames from screenshot file names and contents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				logger.Init("debug")
				logger.SetTextFormatter()
				logger.Log.SetOutput(cmd.ErrOrStderr())
				return
			}
			logger.Silence()
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print logs and notifications to stderr")

	root.AddCommand(namesCmd(), scanCmd(&verbose))
	return root
}
