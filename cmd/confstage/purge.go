// Part of the confstage CLI - this file implements the 'confstage
// purge' and 'confstage remove' subcommands.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var purgeCmd = &cobra.Command{
	Use:   "purge <fullname> <stage>",
	Short: "Purge the stage files outside the retention rules",
	Args:  cobra.ExactArgs(2),
	RunE:  runPurge,
}

var removeCmd = &cobra.Command{
	Use:   "remove <fullname> <stage>",
	Short: "Remove every file of a configuration from a stage",
	Args:  cobra.ExactArgs(2),
	RunE:  runRemove,
}

func runPurge(cmd *cobra.Command, args []string) error {
	reg, err := loadRegister(args[0], "")
	if err != nil {
		return err
	}
	if err := reg.Purge(args[1]); err != nil {
		return err
	}
	fmt.Printf("Purged %s in stage %s\n", reg.Fullname(), args[1])
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	reg, err := loadRegister(args[0], "")
	if err != nil {
		return err
	}
	if err := reg.Remove(args[1]); err != nil {
		return err
	}
	fmt.Printf("Removed %s from stage %s\n", reg.Fullname(), args[1])
	return nil
}
