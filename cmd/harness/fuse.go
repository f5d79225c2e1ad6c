package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/decision-harness/internal/fusion"
)

// #region fuse-cmd

type fuseOptions struct {
	file   string
	format string
}

func (a *app) newFuseCmd() *cobra.Command {
	opts := &fuseOptions{}
	cmd := &cobra.Command{
		Use:   "fuse",
		Short: "Fuse a list of evidence signals into one",
		Long: `Read a YAML or JSON list of signals and fold them left to right. Signals
must share one type. Severity and uncertainty keep the maximum while
confidence keeps the minimum. Fused contradictions gain 0.2 uncertainty.

Examples:
  harness fuse --file signals.yaml
  harness fuse --file signals.json --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.fuse(opts)
		},
	}
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "Signal list (YAML or JSON)")
	cmd.Flags().StringVar(&opts.format, "format", "yaml", "Output format: yaml or json")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func (a *app) fuse(opts *fuseOptions) error {
	if opts.format != "yaml" && opts.format != "json" {
		return fmt.Errorf("unknown format %q", opts.format)
	}
	data, err := os.ReadFile(opts.file)
	if err != nil {
		return fmt.Errorf("read signals: %w", err)
	}
	var signals []fusion.Signal
	if err := yaml.Unmarshal(data, &signals); err != nil {
		return fmt.Errorf("parse signals: %w", err)
	}

	out, err := fusion.FuseAll(signals)
	if err != nil {
		return err
	}
	a.logger.Debug("fused signals", "count", len(signals), "type", out.Type)

	if opts.format == "json" {
		return a.writeJSON(out)
	}
	enc, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("encode signal: %w", err)
	}
	_, err = a.stdout.Write(enc)
	return err
}

// #endregion fuse-cmd
