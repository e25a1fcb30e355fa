package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/cocheuno/HawkOps-sub002/internal/config"
	"github.com/cocheuno/HawkOps-sub002/internal/journal"
)

func newJournalCmd() *cobra.Command {
	var (
		dsn     string
		agentID string
		limit   int
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "List recent journaled decisions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dsn == "" {
				cfg, err := config.Load()
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				dsn = cfg.JournalDSN
			}
			ctx := cmd.Context()
			rec, err := journal.Open(ctx, dsn, newLogger(cmd.ErrOrStderr(), "warn"))
			if err != nil {
				return err
			}
			defer func() { _ = rec.Close() }()

			entries, err := rec.Recent(ctx, agentID, limit)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}

			tw := table.NewWriter()
			tw.SetOutputMirror(cmd.OutOrStdout())
			tw.AppendHeader(table.Row{"Observed", "Agent", "Cycle", "Action", "Target", "Rule", "Source", "Applied", "Error"})
			for _, e := range entries {
				target := ""
				if e.TargetID != nil {
					target = e.TargetID.String()
				}
				tw.AppendRow(table.Row{
					e.ObservedAt.Format(time.DateTime), e.Agent, e.Cycle, e.Action,
					target, e.Rule, e.Source, e.Applied, e.Error,
				})
			}
			tw.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&dsn, "dsn", "", "journal DSN (default HAWKOPS_JOURNAL_DSN)")
	cmd.Flags().StringVar(&agentID, "agent", "", "only this agent")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum entries")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	return cmd
}
