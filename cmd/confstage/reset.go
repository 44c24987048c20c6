// Part of the confstage CLI - this file implements the 'confstage
// reset' subcommand.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/confstage/registry"
)

var resetCmd = &cobra.Command{
	Use:   "reset <fullname>",
	Short: "Wipe every stage and the metadata record of a configuration",
	Long:  "Remove the configuration from every configured stage and drop its metadata record. Base documents stay untouched.",
	Args:  cobra.ExactArgs(1),
	RunE:  runReset,
}

func runReset(cmd *cobra.Command, args []string) error {
	params, err := loadParams()
	if err != nil {
		return err
	}
	fresh, err := registry.Reset(params, args[0], author, newLogger())
	if err != nil {
		return err
	}
	fmt.Printf("Reset %s, base register reloaded\n", fresh.Fullname())
	return nil
}
