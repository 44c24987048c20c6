// Part of the confstage CLI - this file implements the 'confstage move'
// subcommand.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	moveFrom      string
	moveForce     bool
	moveRetention bool
)

var moveCmd = &cobra.Command{
	Use:   "move <fullname> <stage>",
	Short: "Move a configuration into a stage",
	Long:  "Write the current payload into a stage under its templated filename.",
	Args:  cobra.ExactArgs(2),
	RunE:  runMove,
}

func init() {
	moveCmd.Flags().StringVar(&moveFrom, "from", "", "stage to read the payload from, base when omitted")
	moveCmd.Flags().BoolVarP(&moveForce, "force", "f", false, "move even when the data has no change")
	moveCmd.Flags().BoolVarP(&moveRetention, "retention", "r", true, "purge the stage after the move")
}

func runMove(cmd *cobra.Command, args []string) error {
	reg, err := loadRegister(args[0], moveFrom)
	if err != nil {
		return err
	}
	moved, err := reg.Move(args[1], moveForce, moveRetention)
	if err != nil {
		return err
	}
	fmt.Printf("Moved %s to stage %s\n", moved.Fullname(), moved.Stage())
	return printJSON(moved.Data())
}
