//go:build windows

package main

import (
	"errors"

	"github.com/spf13/cobra"
)

func newSuperviseCmd(*globals) *cobra.Command {
	return &cobra.Command{
		Use:   "supervise",
		Short: "Not supported on Windows",
		RunE: func(*cobra.Command, []string) error {
			return errors.New("supervise needs unix socket pairs and is not supported on windows")
		},
	}
}
