package main

import (
	"fmt"
	"os"

	"github.com/oukeidos/boardtrans/internal/cleanup"
	"github.com/oukeidos/boardtrans/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type rootOptions struct {
	configPath string
}

func execute() {
	cmd := newRootCmd()
	err := cmd.Execute()
	if cleanupErr := cleanup.RunAll(); cleanupErr != nil {
		fmt.Fprintln(os.Stderr, cleanupErr)
		if err == nil {
			err = cleanupErr
		}
	}
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &rootOptions{}
	translateOpts := translateOptions{root: root}

	cmd := &cobra.Command{
		Use:   "boardtrans",
		Short: "Board document translator (English ↔ Traditional Chinese)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !hasAnyFlagSet(cmd) {
				return cmd.Help()
			}
			if len(args) > 0 && isSubcommand(cmd, args[0]) {
				_ = cmd.Usage()
				return fmt.Errorf("unknown command %q for %q", args[0], cmd.CommandPath())
			}
			return runTranslate(cmd, args, &translateOpts)
		},
		Args:         cobra.ArbitraryArgs,
		SilenceUsage: true,
	}

	cmd.Version = version.Info()
	cmd.SetVersionTemplate("{{.Version}}\n")
	cmd.SetUsageTemplate(rootUsageTemplate)
	cmd.PersistentFlags().StringVar(&root.configPath, "config", "", "config file (default is $HOME/.boardtrans.yaml)")

	addTranslateFlags(cmd, &translateOpts)

	cmd.AddCommand(
		newAboutCmd(),
		newDisclaimerCmd(),
		newTranslateCmd(root),
		newDocsCmd(),
		newHistoryCmd(root),
		newListCmd(),
		newEnvCmd(),
	)

	cmd.InitDefaultCompletionCmd()
	for _, sub := range cmd.Commands() {
		if sub.Name() == "completion" {
			sub.Short = "Generate the autocompletion script for the specified shell"
			sub.SetUsageTemplate(subcommandUsageTemplate)
			break
		}
	}

	return cmd
}

func hasAnyFlagSet(cmd *cobra.Command) bool {
	changed := false
	cmd.Flags().Visit(func(_ *pflag.Flag) {
		changed = true
	})
	return changed
}

func isSubcommand(cmd *cobra.Command, name string) bool {
	for _, c := range cmd.Commands() {
		if c.Name() == name {
			return true
		}
	}
	return false
}
