package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tigerroll/nsrdb2epw/internal/domain/model"
)

var datasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "List the supported dataset tokens",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TOKEN\tDATASET")
		for _, d := range model.Datasets() {
			fmt.Fprintf(w, "%s\t%s\n", d.Token, d.Name)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(datasetsCmd)
}
