package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kbukum/graceful/version"
)

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:   serviceName,
		Short: "Exercise graceful shutdown scenarios",
	}

	root.PersistentFlags().StringVarP(&g.configFile, "config", "c", "", "Path to a YAML config file")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&g.logFormat, "log-format", "", "Log format (console, json)")

	root.AddCommand(newRunCmd(g))
	root.AddCommand(newServeCmd(g))
	root.AddCommand(newSuperviseCmd(g))
	root.AddCommand(newVersionCmd())

	root.SilenceUsage = true
	root.SilenceErrors = true
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", serviceName, version.Get())
			return err
		},
	}
}
