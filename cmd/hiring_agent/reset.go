package main

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/hiring-pipeline/internal/config"
	"github.com/jonathan/hiring-pipeline/internal/db"
	"github.com/jonathan/hiring-pipeline/internal/logging"
	"github.com/jonathan/hiring-pipeline/internal/pipeline"
	"github.com/jonathan/hiring-pipeline/internal/types"
)

var (
	resetApplicationID string
	resetKind          string
	resetActorID       string
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Force-reset a stuck analysis or candidate evaluation",
	Long: `Resets a processing analysis record to pending, or drops an in-flight candidate
evaluation claim, so it can be triggered again. Use --kind cv|disc|interview for
an analysis or --kind evaluation for the candidate evaluation.`,
	RunE: runReset,
}

func init() {
	resetCmd.Flags().StringVarP(&resetApplicationID, "application-id", "a", "", "Application ID (required)")
	resetCmd.Flags().StringVarP(&resetKind, "kind", "k", "", "cv, disc, interview or evaluation (required)")
	resetCmd.Flags().StringVar(&resetActorID, "actor-id", "", "Operator ID recorded in logs")
	_ = resetCmd.MarkFlagRequired("application-id")
	_ = resetCmd.MarkFlagRequired("kind")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, _ []string) error {
	appID, err := uuid.Parse(resetApplicationID)
	if err != nil {
		return fmt.Errorf("invalid --application-id: %w", err)
	}
	actor := uuid.Nil
	if resetActorID != "" {
		if actor, err = uuid.Parse(resetActorID); err != nil {
			return fmt.Errorf("invalid --actor-id: %w", err)
		}
	}

	return withStore(cmd.Context(), func(cfg *config.Config, store *db.DB) error {
		log := logging.New(cfg.LogLevel)
		defer log.Sync() //nolint:errcheck
		orch := pipeline.NewOrchestrator(pipeline.Options{Store: store, Logger: log}, nil, pipeline.OrchestratorConfig{})

		var result any
		if resetKind == "evaluation" {
			reset, err := orch.ResetCandidateEvaluation(cmd.Context(), actor, appID)
			if err != nil {
				return err
			}
			result = map[string]bool{"reset": reset}
		} else {
			rec, err := orch.ResetAnalysis(cmd.Context(), actor, appID, types.AnalysisKind(resetKind))
			if err != nil {
				return err
			}
			result = rec
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	})
}
