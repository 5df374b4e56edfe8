package main

import (
	"fmt"

	"github.com/oukeidos/boardtrans/internal/language"
	"github.com/oukeidos/boardtrans/internal/providers"
	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List supported languages and providers",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Supported Languages:")
			for _, l := range language.Supported() {
				fmt.Fprintf(out, "  %-35s [%s]\n", l.Name+" ("+l.Native+")", l.Code)
			}
			fmt.Fprintln(out, "Providers:")
			for _, p := range providers.List() {
				def := ""
				if p.Name == providers.Default {
					def = " (default)"
				}
				fmt.Fprintf(out, "  %-35s [%s] model=%s%s\n", p.Label, p.Name, p.DefaultModel, def)
			}
		},
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	return cmd
}
