package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/decision-harness/internal/store"
)

// #region inspect-cmd

type inspectOptions struct {
	source logSource
	limit  int
	asJSON bool
}

func (a *app) newInspectCmd() *cobra.Command {
	opts := &inspectOptions{}
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "List stored runs or summarise a replay log",
		Long: `Without --run or --log, list the most recent runs in the store. Otherwise print
one row per episode of the selected log.

Examples:
  harness inspect --db runs.db
  harness inspect --db runs.db --run <run-id>
  harness inspect --log log.json --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.inspect(opts)
		},
	}
	opts.source.register(cmd)
	cmd.Flags().IntVar(&opts.limit, "limit", 20, "Runs to list")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Output as JSON")
	return cmd
}

func (a *app) inspect(opts *inspectOptions) error {
	if opts.source.empty(a.cfg.Store.DBPath) {
		return fmt.Errorf("one of --log or --db is required")
	}

	if opts.source.logPath == "" && opts.source.runID == "" {
		st, err := store.NewStore(opts.source.db(a.cfg.Store.DBPath))
		if err != nil {
			return err
		}
		defer st.Close()
		runs, err := st.ListRuns(opts.limit)
		if err != nil {
			return err
		}
		if opts.asJSON {
			return a.writeJSON(runs)
		}
		a.printRuns(runs)
		return nil
	}

	src, err := opts.source.load(a.cfg.Store.DBPath)
	if err != nil {
		return err
	}
	if opts.asJSON {
		return a.writeJSON(src.entries)
	}
	if src.run.RunID != "" {
		a.printf("run %s (%s)", src.run.RunID, src.run.PolicyKind)
		if src.run.ParentID != "" {
			a.printf(" resumed from %s", src.run.ParentID)
		}
		a.printf("\n")
	}
	a.printEpisodes(src.entries)
	return nil
}

// #endregion inspect-cmd

// #region output
func (a *app) printRuns(runs []store.RunRecord) {
	a.printf("%-38s| %-7s| %-9s| %s\n", "Run", "Policy", "Episodes", "Created")
	a.printf("%-38s+%-8s+%-10s+%s\n", "--------------------------------------", "--------", "----------", "-------")
	for _, r := range runs {
		a.printf("%-38s| %-7s| %-9d| %s\n", r.RunID, r.PolicyKind, r.Episodes, r.CreatedAt.Format("2006-01-02 15:04:05"))
	}
}

func (a *app) writeJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(a.stdout, "%s\n", data)
	return err
}

// #endregion output
