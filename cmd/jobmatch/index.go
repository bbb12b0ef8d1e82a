package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MereWhiplash/jobmatch/internal/service"
	"github.com/MereWhiplash/jobmatch/internal/types"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Bulk-index job postings or candidate profiles from a JSON file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		file, _ := cmd.Flags().GetString("file")
		kind, _ := cmd.Flags().GetString("kind")
		return runIndex(ctxOrBackground(cmd.Context()), file, types.EntityKind(kind))
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)

	indexCmd.Flags().StringP("file", "f", "", "JSON array of postings or profiles")
	indexCmd.Flags().StringP("kind", "k", string(types.KindJob), "entity kind: job or candidate")
	indexCmd.MarkFlagRequired("file")
}

func runIndex(ctx context.Context, file string, kind types.EntityKind) error {
	if err := kind.Validate(); err != nil {
		return err
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", file, err)
	}

	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	svc, err := service.Build(ctx, cfg, service.Deps{}, log)
	if err != nil {
		return err
	}
	defer svc.Close()

	var changed int
	switch kind {
	case types.KindJob:
		var jobs []types.JobPosting
		if err := json.Unmarshal(data, &jobs); err != nil {
			return fmt.Errorf("failed to decode %s: %w", file, err)
		}
		if changed, err = svc.IndexJobs(ctx, jobs); err != nil {
			return err
		}
	case types.KindCandidate:
		var candidates []types.CandidateProfile
		if err := json.Unmarshal(data, &candidates); err != nil {
			return fmt.Errorf("failed to decode %s: %w", file, err)
		}
		for _, c := range candidates {
			ok, err := svc.IndexCandidate(ctx, c)
			if err != nil {
				return fmt.Errorf("failed to index candidate %s: %w", c.ID, err)
			}
			if ok {
				changed++
			}
		}
	}

	stats := svc.Stats()
	log.Info("index complete",
		zap.String("kind", string(kind)),
		zap.Int("changed", changed),
		zap.Int("jobs", stats.Jobs),
		zap.Int("candidates", stats.Candidates))
	fmt.Printf("indexed %d %s entries (%d changed)\n", countFor(stats, kind), kind, changed)
	return nil
}

func countFor(s service.Stats, kind types.EntityKind) int {
	if kind == types.KindCandidate {
		return s.Candidates
	}
	return s.Jobs
}
