package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/decision-harness/internal/env"
	"github.com/danielpatrickdp/decision-harness/internal/exploration"
	"github.com/danielpatrickdp/decision-harness/internal/learning"
	"github.com/danielpatrickdp/decision-harness/internal/logging"
	"github.com/danielpatrickdp/decision-harness/internal/state"
	"github.com/danielpatrickdp/decision-harness/internal/store"
	"github.com/danielpatrickdp/decision-harness/internal/uncertainty"
	"github.com/danielpatrickdp/decision-harness/internal/update"
)

// #region train-cmd

type trainOptions struct {
	policy    policyFlags
	episodes  int
	maxSteps  int
	minVisits int
	out       string
	dbPath    string
	resume    string
}

func (a *app) newTrainCmd() *cobra.Command {
	opts := &trainOptions{}
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Run training episodes and record the replay log",
		Long: `Run training episodes against the configured environment. Every episode
appends {episode_id, policy_snapshot, episode_trace} to the replay log.

Examples:
  harness train --episodes 5 --max-steps 10 --out log.json
  harness train --db runs.db
  harness train --db runs.db --resume <run-id>`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.train(cmd, opts)
		},
	}
	opts.policy.register(cmd, policyTable)
	cmd.Flags().IntVar(&opts.episodes, "episodes", 0, "Episodes to run (defaults to training.episodes)")
	cmd.Flags().IntVar(&opts.maxSteps, "max-steps", 0, "Step cap per episode (defaults to training.max_steps_per_episode)")
	cmd.Flags().IntVar(&opts.minVisits, "min-visits", 0, "Visits before a state is exploited (defaults to exploration.min_visits_required)")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Write the replay log as JSON to this path")
	cmd.Flags().StringVar(&opts.dbPath, "db", "", "Also record the run in this SQLite store (defaults to store.db_path)")
	cmd.Flags().StringVar(&opts.resume, "resume", "", "Continue from the final policy of this stored run")
	return cmd
}

func (a *app) train(cmd *cobra.Command, opts *trainOptions) error {
	episodes := a.cfg.Training.Episodes
	if cmd.Flags().Changed("episodes") {
		episodes = opts.episodes
	}
	maxSteps := a.cfg.Training.MaxStepsPerEpisode
	if cmd.Flags().Changed("max-steps") {
		maxSteps = opts.maxSteps
	}
	minVisits := a.cfg.Exploration.MinVisitsRequired
	if cmd.Flags().Changed("min-visits") {
		minVisits = opts.minVisits
	}
	dbPath := opts.dbPath
	if dbPath == "" {
		dbPath = a.cfg.Store.DBPath
	}
	if opts.resume != "" && dbPath == "" {
		return fmt.Errorf("--resume requires --db")
	}

	mem := logging.NewReplayLog()
	var sink logging.Sink = mem
	var initial state.PolicySnapshot
	var loopOpts []learning.Option

	if dbPath != "" {
		st, err := store.NewStore(dbPath)
		if err != nil {
			return err
		}
		defer st.Close()

		if opts.resume != "" {
			parent, err := loadRun(st, opts.resume)
			if err != nil {
				return fmt.Errorf("resume: %w", err)
			}
			initial = parent.lastSnapshot()
		}
		run, err := st.BeginRun(opts.policy.kind, opts.resume)
		if err != nil {
			return err
		}
		sink = logging.Tee(mem, st.Sink(run.RunID))
		loopOpts = append(loopOpts, learning.WithRunID(run.RunID))
		a.printf("run %s\n", run.RunID)
	}

	p, err := opts.policy.restore(initial)
	if err != nil {
		return err
	}

	model := uncertainty.NewModel()
	loopOpts = append(loopOpts, learning.WithLogger(a.logger), learning.WithUncertainty(model))
	loop := learning.NewLoop(
		env.NewSignal(a.cfg.EnvConfig()),
		p,
		update.NewLearner(),
		exploration.NewStrategy(minVisits),
		sink,
		loopOpts...,
	)
	if err := loop.Train(episodes, maxSteps); err != nil {
		return err
	}

	a.printEpisodes(mem.Entries())
	limits := model.Snapshot()
	a.printf("Uncertainty: %d unseen states, %d partial observations\n", limits.UnseenStateCount, limits.PartialObservationCount)

	if opts.out != "" {
		data, err := mem.Export()
		if err != nil {
			return err
		}
		if err := os.WriteFile(opts.out, data, 0o644); err != nil {
			return fmt.Errorf("write log: %w", err)
		}
		a.printf("wrote %d entries to %s\n", mem.Len(), opts.out)
	}
	return nil
}

// #endregion train-cmd

// #region episode-table
func (a *app) printEpisodes(entries []state.LogEntry) {
	a.printf("%-8s| %-6s| %-8s| %-8s| %-8s| %s\n", "Episode", "Steps", "Reward", "Explore", "Exploit", "Actions")
	a.printf("%-8s+%-7s+%-9s+%-9s+%-9s+%s\n", "--------", "-------", "---------", "---------", "---------", "-------")
	for _, e := range entries {
		explore := 0
		for _, tr := range e.EpisodeTrace {
			if tr.Mode == state.ModeExplore {
				explore++
			}
		}
		actions := make([]string, 0, e.EpisodeTrace.Len())
		for _, act := range e.EpisodeTrace.Actions() {
			actions = append(actions, string(act))
		}
		a.printf("%-8d| %-6d| %-8.3f| %-8d| %-8d| %s\n",
			e.EpisodeID, e.EpisodeTrace.Len(), e.EpisodeTrace.TotalReward(), explore, e.EpisodeTrace.Len()-explore,
			strings.Join(actions, ","))
	}
}

// #endregion episode-table
