// root.go - the memctl command tree.

package main

import (
	"github.com/spf13/cobra"
)

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memctl",
		Short: "Drive the byte-addressable memory core interactively or by script",
	}
	cmd.AddCommand(replCmd())
	cmd.AddCommand(runCmd())
	cmd.AddCommand(scenarioCmd())
	return cmd
}
