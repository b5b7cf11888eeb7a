package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newTargetsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "targets",
		Aliases: []string{"list"},
		Short:   "List configured release targets",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			def, err := a.loadDefinition(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Release targets for %s (%d total), output: %s\n\n", def.ProjectName, len(def.Targets()), def.OutputDir)

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PLATFORM\tFORMAT\tBINARY\tARCHIVE")
			for _, t := range def.Targets() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.Platform(), t.Format, t.BinaryName(def.ProjectName), t.ArchiveName(def.ProjectName))
			}
			return tw.Flush()
		},
	}
}
