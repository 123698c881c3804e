// Package cmd contains all the commands included in the binary file.
package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewRootCommand enables all children commands to read flags from CLI flags, environment variables prefixed with FLWOR, or config.yaml (in that order).
func NewRootCommand() *cobra.Command {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("FLWOR")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	configPaths := []string{"/etc/flwor", "$HOME/.flwor", "."}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	// A missing config file is not an error; flags and env still apply.
	_ = viper.ReadInConfig()

	return &cobra.Command{
		Use:   "flwor",
		Short: "Evaluate FLWOR pipelines over JSON documents",
		Long: `Evaluate FLWOR pipelines over JSON documents.

A pipeline is a YAML list of for, let, where, group by, order by, count and trace
clauses followed by a return expression. Expressions are written in CEL or as
simple child-axis paths.`,
		SilenceUsage: true,
	}
}
