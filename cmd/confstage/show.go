// Part of the confstage CLI - this file implements the 'confstage show'
// and 'confstage meta' subcommands.
package main

import (
	"github.com/spf13/cobra"
)

var (
	showStage string
	showOrder int
)

var showCmd = &cobra.Command{
	Use:   "show <fullname>",
	Short: "Print the data of a configuration",
	Long:  "Print the payload of a configuration from base or from a stage, latest first.",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var metaCmd = &cobra.Command{
	Use:   "meta <fullname>",
	Short: "Print the metadata record of a configuration",
	Args:  cobra.ExactArgs(1),
	RunE:  runMeta,
}

func init() {
	showCmd.Flags().StringVarP(&showStage, "stage", "s", "", "stage to read from, base when omitted")
	showCmd.Flags().IntVarP(&showOrder, "order", "o", 1, "1 is the latest file, 2 the one before")
	metaCmd.Flags().StringVarP(&showStage, "stage", "s", "", "stage to read from, base when omitted")
	rootCmd.AddCommand(metaCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	reg, err := loadRegister(args[0], showStage)
	if err != nil {
		return err
	}
	if showOrder > 1 {
		data, err := reg.Pick(reg.Stage(), showOrder, false)
		if err != nil {
			return err
		}
		return printJSON(data)
	}
	return printJSON(reg.Data())
}

func runMeta(cmd *cobra.Command, args []string) error {
	reg, err := loadRegister(args[0], showStage)
	if err != nil {
		return err
	}
	meta, err := reg.Metadata()
	if err != nil {
		return err
	}
	return printJSON(meta)
}
