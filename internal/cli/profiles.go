package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sirosfoundation/go-as4-reliability/pkg/profile"
)

// ProfilesCommand creates the profiles command
func ProfilesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List the registered AS4 profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listProfiles(cmd.OutOrStdout(), profile.Default())
		},
	}
}

func listProfiles(w io.Writer, registry *profile.Registry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME")
	for _, p := range registry.All() {
		fmt.Fprintf(tw, "%s\t%s\n", p.ID, p.DisplayName)
	}
	return tw.Flush()
}
