package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/decision-harness/internal/env"
	"github.com/danielpatrickdp/decision-harness/internal/execution"
)

// #region run-cmd

type runOptions struct {
	policy   policyFlags
	source   logSource
	maxSteps int
	format   string
}

func (a *app) newRunCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Serve one session from a trained policy and explain every step",
		Long: `Run the executor from the environment's reset state until done or the step
cap. No learning and no exploration take place. With --log or --db the policy
is restored from the final snapshot of that log.

Examples:
  harness run --log log.json --format json
  harness run --policy fixed --action COMMIT --max-steps 5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd, opts)
		},
	}
	opts.policy.register(cmd, policyFixed)
	opts.source.register(cmd)
	cmd.Flags().IntVar(&opts.maxSteps, "max-steps", 0, "Step cap (defaults to execution.max_steps)")
	cmd.Flags().StringVar(&opts.format, "format", "yaml", "Output format: yaml or json")
	return cmd
}

func (a *app) run(cmd *cobra.Command, opts *runOptions) error {
	if opts.format != "yaml" && opts.format != "json" {
		return fmt.Errorf("unknown format %q", opts.format)
	}
	maxSteps := a.cfg.Execution.MaxSteps
	if cmd.Flags().Changed("max-steps") {
		maxSteps = opts.maxSteps
	}

	p, err := servingPolicy(cmd, &opts.policy, &opts.source)
	if err != nil {
		return err
	}
	exec, err := execution.NewExecutor(env.NewSignal(a.cfg.EnvConfig()), p, maxSteps, execution.WithLogger(a.logger))
	if err != nil {
		return err
	}
	rep, err := execution.NewSession(exec, nil).Run()
	if err != nil {
		return err
	}

	var out []byte
	if opts.format == "json" {
		out, err = json.MarshalIndent(rep, "", "  ")
		out = append(out, '\n')
	} else {
		out, err = yaml.Marshal(rep)
	}
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	_, err = a.stdout.Write(out)
	return err
}

// #endregion run-cmd
