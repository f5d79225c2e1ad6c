package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/decision-harness/internal/env"
	"github.com/danielpatrickdp/decision-harness/internal/replay"
)

// #region replay-cmd

type replayOptions struct {
	policy policyFlags
	source logSource
}

func (a *app) newReplayCmd() *cobra.Command {
	opts := &replayOptions{}
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Verify that a replay log reproduces action for action",
		Long: `Replay every entry of a log. Entry N is replayed against the policy restored
from entry N-1's snapshot. Exits 1 when any entry diverges.

Examples:
  harness replay --log log.json
  harness replay --db runs.db --run <run-id>`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.replay(cmd, opts)
		},
	}
	opts.policy.register(cmd, policyTable)
	opts.source.register(cmd)
	return cmd
}

func (a *app) replay(cmd *cobra.Command, opts *replayOptions) error {
	if opts.source.empty(a.cfg.Store.DBPath) {
		return fmt.Errorf("one of --log or --db is required")
	}
	src, err := opts.source.load(a.cfg.Store.DBPath)
	if err != nil {
		return err
	}
	opts.policy.adopt(cmd, src)

	results := replay.VerifyLogFrom(
		env.NewSignal(a.cfg.EnvConfig()),
		src.initial,
		src.entries,
		opts.policy.factory(),
		replay.WithLogger(a.logger),
	)
	return a.printReplay(results)
}

// #endregion replay-cmd

// #region output

// printReplay outputs a comparison table and returns errDiverged if any
// entry diverged.
func (a *app) printReplay(results []replay.EntryResult) error {
	a.printf("%-8s| %-6s| %-9s| %s\n", "Episode", "Steps", "Result", "Detail")
	a.printf("%-8s+%-7s+%-10s+%s\n", "--------", "-------", "----------", "------")

	for _, r := range results {
		detail := ""
		switch {
		case r.Divergence != nil:
			d := r.Divergence
			detail = fmt.Sprintf("step %d: expected %s, got %s", d.Step, d.Expected, d.Actual)
		case r.Err != nil:
			detail = r.Err.Error()
		}
		a.printf("%-8d| %-6d| %-9s| %s\n", r.EpisodeID, r.Steps, r.Status, detail)
	}

	s := replay.Summarize(results)
	a.printf("\nSummary: %d total, %d match, %d diverge, %d error\n", s.Total, s.Matched, s.Diverged, s.Errors)

	if s.Errors > 0 {
		return fmt.Errorf("%d entries could not be replayed", s.Errors)
	}
	if s.Diverged > 0 {
		return fmt.Errorf("%w: %v", errDiverged, s.FirstDivergence)
	}
	return nil
}

// #endregion output
