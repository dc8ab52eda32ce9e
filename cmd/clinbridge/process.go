package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/clinical-bridge/clinbridge/internal/agent"
	"github.com/clinical-bridge/clinbridge/internal/config"
	"github.com/clinical-bridge/clinbridge/internal/llm"
	"github.com/clinical-bridge/clinbridge/internal/observability"
	"github.com/clinical-bridge/clinbridge/internal/pipeline"
	"github.com/clinical-bridge/clinbridge/internal/store"
)

var processFlags struct {
	file          string
	patientID     string
	payer         string
	procedure     string
	skipPriorAuth bool
	output        string
	save          bool
}

var processCmd = &cobra.Command{
	Use:   "process [note]",
	Short: "Run a clinical note through the full pipeline",
	Long: `Process a clinical note through documentation, coding, compliance,
prior authorization (when payer and procedure are given), and quality
assurance. The note is passed inline or via --file.`,
	Example: `  clinbridge process "65yo male with chest pain, BP 160/95, history of HTN"
  clinbridge process --file note.txt --payer Medicare --procedure 99214
  clinbridge process --file note.txt --skip-prior-auth --output json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runProcess,
}

func init() {
	processCmd.Flags().StringVarP(&processFlags.file, "file", "f", "", "Path to a text file containing the clinical note")
	processCmd.Flags().StringVar(&processFlags.patientID, "patient-id", "", "Patient identifier")
	processCmd.Flags().StringVar(&processFlags.payer, "payer", "", "Payer name (e.g., Medicare, Aetna)")
	processCmd.Flags().StringVar(&processFlags.procedure, "procedure", "", "Procedure description or CPT code")
	processCmd.Flags().BoolVar(&processFlags.skipPriorAuth, "skip-prior-auth", false, "Skip the prior authorization phase")
	processCmd.Flags().StringVarP(&processFlags.output, "output", "o", "summary", "Output format (summary|json|full)")
	processCmd.Flags().BoolVar(&processFlags.save, "save", false, "Persist the run to the workflow store")
}

func runProcess(cmd *cobra.Command, args []string) error {
	note, err := loadNote(args)
	if err != nil {
		return err
	}

	var coordOpts []pipeline.CoordinatorOption
	if cfg.Tracing.Enabled {
		tp, err := observability.InitTracing(cmd.Context(), cfg.Tracing)
		if err != nil {
			return fmt.Errorf("initializing tracing: %w", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := observability.ShutdownTracing(ctx, tp); err != nil {
				slog.Warn("failed to flush trace spans", "error", err)
			}
		}()
		coordOpts = append(coordOpts, pipeline.WithTracer(tp.Tracer("clinbridge")))
	}

	coordinator, err := buildCoordinator(cfg, coordOpts...)
	if err != nil {
		return err
	}

	in := pipeline.Input{
		Note:          note,
		PatientID:     processFlags.patientID,
		Payer:         processFlags.payer,
		Procedure:     processFlags.procedure,
		SkipPriorAuth: processFlags.skipPriorAuth || cfg.Pipeline.SkipPriorAuth,
	}

	state := coordinator.ProcessNote(cmd.Context(), in)
	summary := state.Summary()

	if processFlags.save {
		if err := saveRun(cmd, summary); err != nil {
			slog.Warn("failed to persist run", "workflow_id", summary.WorkflowID, "error", err)
		}
	}

	switch processFlags.output {
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			return err
		}
	case "full":
		renderSummary(cmd.OutOrStdout(), summary, true)
	case "summary":
		renderSummary(cmd.OutOrStdout(), summary, false)
	default:
		return fmt.Errorf("unknown output format %q (want summary, json, or full)", processFlags.output)
	}

	if summary.Status == pipeline.WorkflowStatusFailed {
		failed := summary.FailedPhase
		var msg string
		for _, p := range summary.Phases {
			if p.Phase == failed {
				msg = p.Error
			}
		}
		return fmt.Errorf("workflow failed at phase %s: %s", failed, msg)
	}
	return nil
}

func loadNote(args []string) (string, error) {
	if processFlags.file != "" {
		data, err := os.ReadFile(processFlags.file)
		if err != nil {
			return "", fmt.Errorf("reading note file: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	if len(args) == 1 && strings.TrimSpace(args[0]) != "" {
		return strings.TrimSpace(args[0]), nil
	}
	return "", fmt.Errorf("a clinical note is required (inline argument or --file)")
}

func buildCoordinator(cfg *config.Config, opts ...pipeline.CoordinatorOption) (*pipeline.Coordinator, error) {
	provider, err := buildProvider(cfg)
	if err != nil {
		return nil, err
	}

	agentOpts := []agent.LLMAgentOption{}
	if cfg.LLM.Model != "" {
		agentOpts = append(agentOpts, agent.WithModel(cfg.LLM.Model))
	}

	agents := pipeline.Agents{
		Documentation:    agent.NewDocumentationAgent(provider, agentOpts...),
		Coding:           agent.NewCodingAgent(provider, agentOpts...),
		Compliance:       agent.NewComplianceAgent(provider, agentOpts...),
		PriorAuth:        agent.NewPriorAuthAgent(provider, agentOpts...),
		QualityAssurance: agent.NewQualityAssuranceAgent(provider, agentOpts...),
	}

	executor := pipeline.NewPhaseExecutor(
		pipeline.WithRetryPolicy(pipeline.RetryPolicy{
			MaxRetries: cfg.Pipeline.MaxRetries,
			BaseDelay:  cfg.Pipeline.BaseDelay,
		}),
		pipeline.WithTimeout(cfg.Pipeline.PhaseTimeout),
	)

	opts = append([]pipeline.CoordinatorOption{pipeline.WithExecutor(executor)}, opts...)
	return pipeline.NewCoordinator(agents, opts...)
}

func buildProvider(cfg *config.Config) (llm.Provider, error) {
	switch cfg.LLM.Provider {
	case "", "anthropic":
		return llm.NewAnthropicProvider(llm.AnthropicConfig{
			APIKey: cfg.LLM.APIKey,
			Model:  cfg.LLM.Model,
		})
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
}

func saveRun(cmd *cobra.Command, summary pipeline.WorkflowSummary) error {
	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	return store.NewRunDAO(db).Save(cmd.Context(), summary)
}
