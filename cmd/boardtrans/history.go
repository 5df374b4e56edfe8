package main

import (
	"fmt"

	"github.com/oukeidos/boardtrans/internal/config"
	"github.com/oukeidos/boardtrans/internal/history"
	"github.com/oukeidos/boardtrans/internal/prompt"
	"github.com/spf13/cobra"
)

type historyOptions struct {
	root  *rootOptions
	clear bool
	yes   bool
}

func newHistoryCmd(root *rootOptions) *cobra.Command {
	opts := historyOptions{root: root}
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show or clear the translation history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, &opts)
		},
		SilenceUsage: true,
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	cmd.Flags().BoolVar(&opts.clear, "clear", false, "Delete all history entries")
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "Clear without asking")
	cmd.Flags().String("history-file", "", "Translation history file (default: user config dir)")
	return cmd
}

func runHistory(cmd *cobra.Command, opts *historyOptions) error {
	cfg, _, err := config.Load(opts.root.configPath, cmd.Flags())
	if err != nil {
		return err
	}
	log, err := history.Load(cfg.HistoryPath)
	if err != nil {
		return err
	}

	if !opts.clear {
		return log.Table(cmd.OutOrStdout())
	}

	if log.Len() == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "History is already empty.")
		return nil
	}
	confirmer := prompt.DefaultConfirmer()
	confirmer.Out = cmd.ErrOrStderr()
	ok, err := confirmer.Confirm(fmt.Sprintf("Delete %d history entries?", log.Len()), opts.yes)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(cmd.OutOrStdout(), "History kept.")
		return nil
	}
	log.Clear()
	if err := log.Save(cfg.HistoryPath); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "History cleared.")
	return nil
}
