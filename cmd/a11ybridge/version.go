package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/a11ybridge"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of a11ybridge",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "a11ybridge version %s\n", a11ybridge.Version)
		},
	}
}
