package main

import (
	"context"
	"fmt"
	"os"

	"vetvoice-platform/internal/assistant"
	"vetvoice-platform/internal/config"
	"vetvoice-platform/internal/voice"
	"vetvoice-platform/pkg/logger"
	"vetvoice-platform/pkg/utils"

	"github.com/spf13/cobra"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		opts   assistant.Options
		filter assistant.Filter
	)

	cmd := &cobra.Command{
		Use:   "assistantctl",
		Short: "Push assistant prompt and tool configuration to the voice provider",
		Long: `assistantctl diffs the locally-configured assistant prompts and tool
bindings against the remote provider state and pushes the differences.
Use --dry-run to print the diff without applying it.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd.Context(), filter, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "print the diff without applying it")
	cmd.Flags().BoolVar(&opts.ToolsOnly, "tools-only", false, "sync tool bindings only")
	cmd.Flags().BoolVar(&opts.PromptsOnly, "prompts-only", false, "sync system prompts only")
	cmd.Flags().StringVar(&filter.ClinicSlug, "clinic", "", "limit the run to one clinic slug")
	cmd.Flags().StringVar(&filter.AssistantType, "assistant-type", "", "limit the run to one assistant type")
	cmd.MarkFlagsMutuallyExclusive("tools-only", "prompts-only")

	return cmd
}

func runSync(ctx context.Context, filter assistant.Filter, opts assistant.Options) error {
	cfg, err := config.LoadSyncTool()
	if err != nil {
		return err
	}

	log := logger.New(cfg.App.Env, "assistantctl")

	db, err := utils.OpenPostgres(ctx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		return fmt.Errorf("postgres init: %w", err)
	}
	defer db.Close()

	configs, err := assistant.LoadConfigs(ctx, db, filter)
	if err != nil {
		return err
	}
	if len(configs) == 0 {
		fmt.Println("no assistants matched the filter")
		return nil
	}

	// Sync traffic is low-volume; a minimal throttle keeps the client happy.
	client := voice.NewClient(cfg.Voice.BaseURL, cfg.Voice.APIKey, voice.NewThrottle(1, 0))
	syncer := assistant.NewSyncer(client, log)

	var failed int
	for _, desired := range configs {
		res, err := syncer.Sync(ctx, desired, opts)
		if err != nil {
			failed++
			fmt.Printf("FAIL %s (%s/%s): %v\n", desired.AssistantID, desired.ClinicSlug, desired.AssistantType, err)
			continue
		}
		printResult(desired, res, opts)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d assistants failed to sync", failed, len(configs))
	}
	return nil
}

func printResult(desired assistant.Config, res assistant.Result, opts assistant.Options) {
	state := "applied"
	switch {
	case len(res.Changes) == 0:
		state = "in sync"
	case opts.DryRun:
		state = "dry-run"
	}
	fmt.Printf("%s (%s/%s): %s\n", res.AssistantID, desired.ClinicSlug, desired.AssistantType, state)
	for _, ch := range res.Changes {
		switch ch.Action {
		case assistant.ActionAdd:
			fmt.Printf("  + %s %s\n", ch.Field, ch.New)
		case assistant.ActionRemove:
			fmt.Printf("  - %s %s\n", ch.Field, ch.Old)
		default:
			fmt.Printf("  ~ %s\n", ch.Field)
		}
	}
}
