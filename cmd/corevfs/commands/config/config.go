// Package config implements the "corevfs config" command group.
package config

import (
	"github.com/spf13/cobra"
)

// Cmd is the parent command for configuration utilities.
var Cmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration utilities",
}

func init() {
	Cmd.AddCommand(schemaCmd)
}
