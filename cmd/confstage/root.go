// Part of the confstage CLI - this file wires the root command and the
// shared flags every subcommand reads.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/arthur-debert/confstage/config"
	"github.com/arthur-debert/confstage/registry"
)

var (
	paramsPath string
	author     string
	verbose    bool

	viperInst = viper.New()
)

var rootCmd = &cobra.Command{
	Use:   "confstage",
	Short: "Confstage CLI",
	Long: `Confstage moves versioned configuration data through named stages.

The parameter file location resolves in order of precedence:
1. The --params flag
2. The CONFSTAGE_PARAMS environment variable
3. ./parameters.yaml`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&paramsPath, "params", "p", "", "path to the parameter file")
	rootCmd.PersistentFlags().StringVarP(&author, "author", "a", "", "author recorded on metadata and audit records")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "show debug output")

	viperInst.AutomaticEnv()
	viperInst.SetEnvPrefix("CONFSTAGE")
	viperInst.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	_ = viperInst.BindPFlag("params", rootCmd.PersistentFlags().Lookup("params"))

	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(moveCmd)
	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(purgeCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(resetCmd)
}

// loadParams reads the parameter file resolved from the flag, the
// environment or the working directory.
func loadParams() (*config.Params, error) {
	path := viperInst.GetString("params")
	if path == "" {
		path = "parameters.yaml"
	}
	params, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load parameter file %s: %w", path, err)
	}
	return params, nil
}

func newLogger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// loadRegister builds a register for a fullname in an optional stage.
func loadRegister(fullname, stage string) (*registry.Register, error) {
	params, err := loadParams()
	if err != nil {
		return nil, err
	}
	opts := []registry.Option{registry.WithRegisterLogger(newLogger())}
	if stage != "" {
		opts = append(opts, registry.WithStage(stage))
	}
	if author != "" {
		opts = append(opts, registry.WithAuthor(author))
	}
	return registry.New(params, fullname, opts...)
}

// printJSON renders a payload to stdout.
func printJSON(data any) error {
	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(encoded))
	return nil
}
