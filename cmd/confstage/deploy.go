// Part of the confstage CLI - this file implements the 'confstage
// deploy' subcommand.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var deployStop string

var deployCmd = &cobra.Command{
	Use:   "deploy <fullname>",
	Short: "Move a configuration through every configured stage",
	Long:  "Walk the configured stages in order, moving the configuration through each until the stop stage.",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeploy,
}

func init() {
	deployCmd.Flags().StringVarP(&deployStop, "stop", "s", "", "stage to stop at, the final stage when omitted")
}

func runDeploy(cmd *cobra.Command, args []string) error {
	reg, err := loadRegister(args[0], "")
	if err != nil {
		return err
	}
	deployed, err := reg.Deploy(deployStop)
	if err != nil {
		return err
	}
	fmt.Printf("Deployed %s up to stage %s\n", deployed.Fullname(), deployed.Stage())
	return nil
}
