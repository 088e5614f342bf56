package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/golovatskygroup/journey-lens/internal/presets"
	"github.com/golovatskygroup/journey-lens/internal/workflow"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type workflowsOptions struct {
	check        bool
	conversation string
}

func (a *app) newWorkflowsCmd() *cobra.Command {
	opts := &workflowsOptions{}
	cmd := &cobra.Command{
		Use:   "workflows [component]",
		Short: "List, show or check tool demonstration workflows",
		Long: `Without arguments, list every registered workflow with its step count and
total delay. With a component, print its workflow as YAML (dynamic workflows
are built from --conversation). With --check, fail when a catalog component
has no workflow.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := workflow.Default()
			switch {
			case opts.check:
				return a.checkWorkflows(reg)
			case len(args) == 1:
				def, err := reg.Resolve(args[0], opts.conversation)
				if err != nil {
					return err
				}
				enc := yaml.NewEncoder(a.stdout)
				enc.SetIndent(2)
				defer enc.Close()
				return enc.Encode(def)
			}

			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			defer tw.Flush()
			for _, c := range reg.Components() {
				def, err := reg.Resolve(c, opts.conversation)
				if err != nil {
					fmt.Fprintf(tw, "%s\terror: %v\t\t\n", c, err)
					continue
				}
				total := time.Duration(def.TotalDelay()) * time.Millisecond
				fmt.Fprintf(tw, "%s\t%s\t%d steps\t%s\n", c, def.Name, len(def.Actions), total)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.check, "check", false, "Verify every catalog component has a workflow")
	cmd.Flags().StringVar(&opts.conversation, "conversation", "", "Conversation used by dynamic workflows")
	return cmd
}

func (a *app) checkWorkflows(reg *workflow.Registry) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	catalog, err := presets.LoadFile(cfg.Manifest.PresetsFile)
	if err != nil {
		return err
	}
	components := catalog.Components()
	if missing := reg.Missing(components); len(missing) > 0 {
		return fmt.Errorf("%d components without a workflow: %s", len(missing), strings.Join(missing, ", "))
	}
	fmt.Fprintf(a.stdout, "all %d catalog components have workflows\n", len(components))
	return nil
}
