// Package cliapp builds the command tree of the manifest-driven
// repository composer CLI: `compose --manifest <path> --output <dir>`.
package cliapp

import (
	"github.com/spf13/cobra"
)

// RootCmd assembles the composer CLI's top-level command tree.
func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "composer",
		Short: "Manifest-driven repository composer",
	}
	root.AddCommand(NewComposeCommand())
	return root
}
