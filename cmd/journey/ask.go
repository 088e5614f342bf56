package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/golovatskygroup/journey-lens/internal/converse"
	"github.com/golovatskygroup/journey-lens/internal/sink"
	"github.com/spf13/cobra"
)

type askOptions struct {
	stage      string
	demo       bool
	jsonOutput bool
}

func (a *app) newAskCmd() *cobra.Command {
	opts := &askOptions{}
	cmd := &cobra.Command{
		Use:   "ask <utterance>",
		Short: "Answer one utterance and report the tool it activates",
		Long: `Run one utterance through the routing pipeline. With --stage the utterance is
also matched against that stage's tools; --demo then plays the activated
tool's workflow, printing each action as a JSON line.

Examples:
  journey ask "2 + 2 * 3"
  journey ask --stage awareness "I need to prepare for my appointment"
  journey ask --stage awareness --demo "I have a headache and some pain"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.ask(cmd, strings.Join(args, " "), opts)
		},
	}
	cmd.Flags().StringVarP(&opts.stage, "stage", "s", "", "Journey stage whose tools are checked")
	cmd.Flags().BoolVar(&opts.demo, "demo", false, "Play the activated tool's workflow")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print the turn as JSON")
	return cmd
}

func (a *app) ask(cmd *cobra.Command, utterance string, opts *askOptions) error {
	if opts.demo && opts.stage == "" {
		return errors.New("--demo needs --stage")
	}
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	st, err := buildStack(cfg, a.stderr)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	turn := converse.Run(ctx, st.pipeline, st.orch, utterance, opts.stage)

	if opts.jsonOutput {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(turn); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(a.stdout, turn.Response)
		if turn.Tool != nil {
			fmt.Fprintf(a.stdout, "\n[%s] %s\n", turn.Tool.Outcome, turn.Tool.Message)
			for _, s := range turn.Tool.Suggestions {
				fmt.Fprintf(a.stdout, "  did you mean %q (%s)?\n", s.Tool.Name, s.Trigger)
			}
		}
	}

	if !opts.demo || turn.Tool == nil {
		return nil
	}
	report := st.orch.Play(ctx, *turn.Tool, sink.NewJSONLines(a.stdout))
	if report == nil {
		return nil
	}
	fmt.Fprintf(a.stdout, "%s: %s (%d/%d actions)\n", report.Workflow, report.Status, report.Dispatched, report.Total)
	return report.Err
}
