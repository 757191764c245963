package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sirosfoundation/go-as4-reliability/pkg/pmode"
	"github.com/sirosfoundation/go-as4-reliability/pkg/profile"
)

// ValidateCommand creates the validate command
func ValidateCommand() *cobra.Command {
	var (
		profileID string
		mode      string
	)

	cmd := &cobra.Command{
		Use:   "validate [flags] pmode.yaml...",
		Short: "Check P-Mode files against an AS4 profile",
		Long: `Check every P-Mode in the given YAML files against an AS4 profile.

Findings are printed per P-Mode. The command fails when at least one
finding has ERROR severity; warnings alone do not fail it.

Examples:
  as4d validate --profile bdew pmodes/*.yaml
  as4d validate --mode signal receipts.yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.OutOrStdout(), profileID, mode, args)
		},
	}

	cmd.Flags().StringVarP(&profileID, "profile", "p", "esens", "Profile to validate against (see 'as4d profiles')")
	cmd.Flags().StringVar(&mode, "mode", "user", "Validation mode: user (all checks) or signal")

	return cmd
}

func parseMode(s string) (profile.Mode, error) {
	switch s {
	case "", "user":
		return profile.ModeUserMessage, nil
	case "signal":
		return profile.ModeSignalMessage, nil
	default:
		return 0, fmt.Errorf("invalid mode %q: want user or signal", s)
	}
}

func runValidate(w io.Writer, profileID, modeName string, files []string) error {
	prof, err := profile.Get(profileID)
	if err != nil {
		return err
	}
	mode, err := parseMode(modeName)
	if err != nil {
		return err
	}

	failed := 0
	for _, path := range files {
		pmodes, err := pmode.LoadFile(path)
		if err != nil {
			return err
		}
		for _, pm := range pmodes {
			findings := profile.CheckPMode(prof.Validator, pm, mode)
			if findings.Empty() {
				fmt.Fprintf(w, "%s: %s: OK\n", path, pm.ID)
				continue
			}
			fmt.Fprintf(w, "%s: %s:\n", path, pm.ID)
			for _, f := range findings.All() {
				fmt.Fprintf(w, "  %s\n", f)
			}
			if findings.ContainsError() {
				failed++
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d pmode(s) violate profile %s", ErrInvalidPModes, failed, prof.ID)
	}
	return nil
}
