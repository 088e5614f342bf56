package main

import (
	"context"
	"io"
	"os/signal"
	"syscall"

	"github.com/golovatskygroup/journey-lens/internal/config"
	"github.com/spf13/cobra"
)

type app struct {
	root       *cobra.Command
	stdout     io.Writer
	stderr     io.Writer
	configPath string
}

func newApp(stdout, stderr io.Writer) *app {
	a := &app{stdout: stdout, stderr: stderr}
	a.root = &cobra.Command{
		Use:   "journey",
		Short: "Patient-journey companion: intent routing, tool activation and guided demos",
		Long: `journey answers patient utterances through a search, calculate and analyze
pipeline, activates the journey tool whose triggers match the conversation,
and plays that tool's scripted demonstration step by step.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	a.root.SetOut(stdout)
	a.root.SetErr(stderr)
	a.root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to YAML config file")

	a.root.AddCommand(
		a.newServeCmd(),
		a.newAskCmd(),
		a.newToolsCmd(),
		a.newWorkflowsCmd(),
	)
	return a
}

// Execute runs the command line until it finishes or SIGINT/SIGTERM arrives.
func (a *app) Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return a.root.ExecuteContext(ctx)
}

func (a *app) executeWithArgs(ctx context.Context, args []string) error {
	a.root.SetArgs(args)
	return a.Execute(ctx)
}

func (a *app) loadConfig() (config.Config, error) {
	return config.Load(a.configPath)
}
