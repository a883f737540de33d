package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var envFile string
	root := &cobra.Command{
		Use:           "venuebook",
		Short:         "Venue booking availability and conflict detection service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	root.AddCommand(newServeCmd(&envFile))
	root.AddCommand(newCheckCmd())
	return root
}
