package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/golovatskygroup/journey-lens/internal/registry"
	"github.com/spf13/cobra"
)

type toolsOptions struct {
	stage string
	limit int
}

func (a *app) newToolsCmd() *cobra.Command {
	opts := &toolsOptions{}
	cmd := &cobra.Command{
		Use:   "tools [query]",
		Short: "List journey tools or find the one a phrase activates",
		Long: `Without a query, list the tools of every stage (or of --stage). With a query,
show the tool whose trigger it contains, or the closest triggers when none
matches.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			st, err := buildStack(cfg, a.stderr)
			if err != nil {
				return err
			}
			defer st.Close()

			stages := st.catalog.Stages()
			if opts.stage != "" {
				stages = []string{opts.stage}
			}
			query := strings.Join(args, " ")

			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			defer tw.Flush()
			for _, stage := range stages {
				tools := st.fetcher.Fetch(cmd.Context(), stage)
				if len(tools) == 0 {
					fmt.Fprintf(tw, "%s\t(no tools)\t\n", stage)
					continue
				}
				if query == "" {
					for _, t := range tools {
						fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", stage, t.Name, t.Component, strings.Join(t.Triggers, ", "))
					}
					continue
				}
				if m, ok := registry.FindTool(tools, query); ok {
					fmt.Fprintf(tw, "%s\t%s\t%s\tmatches %q\n", stage, m.Tool.Name, m.Tool.Component, m.Trigger)
					continue
				}
				for _, s := range registry.Suggest(tools, query, opts.limit) {
					fmt.Fprintf(tw, "%s\t%s\t%s\tclose to %q\n", stage, s.Tool.Name, s.Tool.Component, s.Trigger)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.stage, "stage", "s", "", "Only this journey stage")
	cmd.Flags().IntVar(&opts.limit, "limit", 3, "Maximum suggestions per stage")
	return cmd
}
