// Package cli implements the as4d command line
package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

// ErrInvalidPModes is returned when a P-Mode violates the selected profile
var ErrInvalidPModes = errors.New("pmode validation failed")

// globalOptions are the persistent flags shared by all subcommands
type globalOptions struct {
	logLevel  string
	logFormat string
}

// NewRootCommand creates the as4d command tree
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "as4d",
		Short: "AS4 reliable messaging daemon",
		Long: `as4d runs an AS4 (ebMS3) message service handler with reliable
transmission, duplicate detection and profile validation.

Examples:
  # Check P-Modes against the e-SENS profile
  as4d validate --profile esens pmodes.yaml

  # List the built-in profiles
  as4d profiles

  # Run the receiver
  as4d serve --config /etc/as4d/as4d.yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides the config file")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "Log format (text, json); overrides the config file")

	cmd.AddCommand(
		ValidateCommand(),
		ProfilesCommand(),
		ServeCommand(opts),
	)

	return cmd
}

// pick returns the flag value when set, otherwise the fallback
func pick(flag, fallback string) string {
	if flag != "" {
		return flag
	}
	return fallback
}
