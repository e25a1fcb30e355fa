package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cocheuno/HawkOps-sub002/internal/config"
	"github.com/cocheuno/HawkOps-sub002/internal/model"
	"github.com/cocheuno/HawkOps-sub002/internal/perception"
	"github.com/cocheuno/HawkOps-sub002/internal/policy"
	"github.com/cocheuno/HawkOps-sub002/internal/sla"
)

// decideOutput is what the decide command prints.
type decideOutput struct {
	Decision   *model.Decision   `json:"decision"`
	Perception *model.Perception `json:"perception,omitempty"`
}

func newDecideCmd() *cobra.Command {
	var (
		snapshotPath string
		role         string
		personality  string
		teamID       string
		at           string
		showView     bool
	)
	cmd := &cobra.Command{
		Use:   "decide",
		Short: "Print the decision an agent would make for a saved game snapshot",
		Long: `decide builds one role's perception of a saved state snapshot and prints
the resulting decision as JSON. The snapshot may be the raw state object or the
server's {"data": ...} envelope. No action is sent anywhere.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			r, err := model.ParseRole(role)
			if err != nil {
				return fmt.Errorf("--role: %w", err)
			}
			p, err := model.ParsePersonality(personality)
			if err != nil {
				return fmt.Errorf("--personality: %w", err)
			}
			now := time.Now()
			if at != "" {
				if now, err = time.Parse(time.RFC3339, at); err != nil {
					return fmt.Errorf("--at: %w", err)
				}
			}
			snap, err := readSnapshot(snapshotPath)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			logger := newLogger(cmd.ErrOrStderr(), "warn")
			knobs := policy.DefaultKnobs(p)
			knobs.AlertBreaches = cfg.AlertBreaches
			pol, err := policy.New(r, knobs, newEvaluator(ctx, cfg, logger), logger)
			if err != nil {
				return err
			}

			view := perception.Build(perception.Options{
				Role:        r,
				Personality: p,
				TeamID:      teamID,
				Clock:       sla.New(cfg.SLARiskWindow),
			}, snap, now)
			out := decideOutput{Decision: pol.Decide(ctx, view)}
			if showView {
				out.Perception = &view
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().StringVar(&snapshotPath, "snapshot", "", "path to a state snapshot JSON file")
	cmd.Flags().StringVar(&role, "role", string(model.RoleServiceDesk), "service_desk, tech_ops or management")
	cmd.Flags().StringVar(&personality, "personality", string(model.PersonalityBalanced), "cautious, balanced or aggressive")
	cmd.Flags().StringVar(&teamID, "team", "", "team whose incidents are visible (empty sees unassigned and all)")
	cmd.Flags().StringVar(&at, "at", "", "evaluate as of this RFC 3339 time instead of now")
	cmd.Flags().BoolVar(&showView, "show-perception", false, "include the perception in the output")
	_ = cmd.MarkFlagRequired("snapshot")
	return cmd
}

func readSnapshot(path string) (model.Snapshot, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && len(envelope.Data) > 0 && !bytes.Equal(envelope.Data, []byte("null")) {
		raw = envelope.Data
	}
	var snap model.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return model.Snapshot{}, fmt.Errorf("parse snapshot: %w", err)
	}
	return snap, nil
}
