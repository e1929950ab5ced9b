package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/Siteselect/internal/profile"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Inspect business-type profiles",
}

// -- profiles list --

var profilesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the configured profiles",
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := profile.LoadFile(cfg.Profiles.Path)
		if err != nil {
			return eris.Wrap(err, "load profiles")
		}
		formatProfiles(cmd.OutOrStdout(), store.All())
		return nil
	},
}

// -- profiles validate --

var profilesValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a profile table file for errors",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := profile.LoadFile(args[0])
		if err != nil {
			return eris.Wrapf(err, "profile table %s", args[0])
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d profiles ok (%s)\n", args[0], len(store.Types()), strings.Join(store.Types(), ", "))
		return nil
	},
}

func init() {
	profilesCmd.AddCommand(profilesListCmd, profilesValidateCmd)
	rootCmd.AddCommand(profilesCmd)
}

func formatProfiles(w io.Writer, all []*profile.Profile) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tNAME\tALIASES\tMETRICS")
	for _, p := range all {
		metrics := p.TargetedMetrics()
		names := make([]string, len(metrics))
		for i, m := range metrics {
			names[i] = string(m)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.TypeID(), p.Name(), strings.Join(p.Aliases(), ","), strings.Join(names, ","))
	}
	tw.Flush()
}
