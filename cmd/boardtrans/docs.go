package main

import (
	"fmt"
	"strings"

	"github.com/oukeidos/boardtrans/internal/catalog"
	"github.com/spf13/cobra"
)

func newDocsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Browse the sample board documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDocsList(cmd, "")
		},
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)

	var category string
	list := &cobra.Command{
		Use:   "list",
		Short: "List sample documents by category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDocsList(cmd, category)
		},
	}
	list.Flags().StringVar(&category, "category", "", "Only list documents in this category")
	list.SetUsageTemplate(subcommandUsageTemplate)

	show := &cobra.Command{
		Use:     "show <category / document>...",
		Short:   "Print sample documents",
		Example: `  boardtrans docs show "Governance / Board Agenda"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDocsShow(cmd, args)
		},
	}
	show.SetUsageTemplate(subcommandUsageTemplate)

	cmd.AddCommand(list, show)
	return cmd
}

func runDocsList(cmd *cobra.Command, category string) error {
	c := catalog.Default()
	names := c.Categories()
	if category != "" {
		docs, err := c.Documents(category)
		if err != nil {
			return err
		}
		if len(docs) > 0 {
			names = []string{docs[0].Category}
		} else {
			names = []string{category}
		}
	}

	out := cmd.OutOrStdout()
	for i, name := range names {
		if i > 0 {
			fmt.Fprintln(out)
		}
		docs, err := c.Documents(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s:\n", name)
		for _, d := range docs {
			fmt.Fprintf(out, "  %s\n", d.Name)
		}
	}
	return nil
}

func runDocsShow(cmd *cobra.Command, refs []string) error {
	c := catalog.Default()
	docs := make([]catalog.Document, 0, len(refs))
	for _, ref := range refs {
		d, err := c.Resolve(ref)
		if err != nil {
			return err
		}
		docs = append(docs, d)
	}

	out := cmd.OutOrStdout()
	for i, d := range docs {
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "## %s\n\n%s\n", d.Ref(), strings.TrimRight(d.Text, "\n"))
	}
	return nil
}
