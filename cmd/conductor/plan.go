package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-conductor/internal/environment"
	"github.com/nerrad567/gray-logic-conductor/internal/execution"
	"github.com/nerrad567/gray-logic-conductor/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-conductor/internal/plan"
)

type planOptions struct {
	userID string
	dryRun bool
	asJSON bool
}

func planCmd(configPath *string) *cobra.Command {
	var opts planOptions

	cmd := &cobra.Command{
		Use:   "plan <goal>",
		Short: "Plan and execute a single goal against simulated devices",
		Long: `Plan classifies the goal, builds a plan from the current context and
executes it immediately against the simulated device transport. Step
progress is written to stderr; the result goes to stdout.`,
		Example: `  conductor plan "movie time"
  conductor plan --dry-run --json "goodnight"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			goalText := strings.Join(args, " ")
			return runPlan(cmd.Context(), *configPath, goalText, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVarP(&opts.userID, "user", "u", "cli", "User the plan is created for")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Validate steps without sending commands")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Print the plan and execution log as JSON")

	return cmd
}

// planOutput is the --json document.
type planOutput struct {
	Plan      *plan.Plan              `json:"plan"`
	Execution *execution.ExecutionLog `json:"execution"`
	Summary   execution.Summary       `json:"summary"`
}

// runPlan builds a throwaway core on an in-memory database and the simulated
// transport, so nothing outside the process is touched.
func runPlan(ctx context.Context, configFlag, goalText string, opts planOptions, out, progress io.Writer) error {
	cfg, log, err := loadConfig(configFlag)
	if err != nil {
		return err
	}
	cfg.Database.Path = database.MemoryPath

	env, err := environment.NewLiveProvider(cfg.Environment, cfg.Site.Timezone, nil)
	if err != nil {
		return fmt.Errorf("creating environment provider: %w", err)
	}

	c, err := newCore(ctx, cfg, log, simulatedTransport(cfg), env)
	if err != nil {
		return err
	}
	defer c.Close() //nolint:errcheck // In-memory database

	p, err := c.orch.CreatePlan(ctx, goalText, opts.userID)
	if err != nil {
		return fmt.Errorf("creating plan: %w", err)
	}
	fmt.Fprintf(progress, "plan %s: %s (%d steps)\n", p.ID, p.GoalType, len(p.Steps))

	coord := c.coordinator(&progressSink{w: progress}, nil)
	execLog, err := coord.Execute(ctx, p.ID, opts.userID, opts.dryRun)
	if err != nil {
		return fmt.Errorf("executing plan: %w", err)
	}
	if ctx.Err() != nil {
		return errInterrupted
	}

	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(planOutput{Plan: p, Execution: execLog, Summary: execLog.Summary()})
	}
	printSummary(out, execLog)
	return nil
}

func printSummary(w io.Writer, l *execution.ExecutionLog) {
	s := l.Summary()
	mode := ""
	if l.DryRun {
		mode = " (dry run)"
	}
	fmt.Fprintf(w, "%s%s: %s, %d/%d steps succeeded in %s\n",
		l.Goal, mode, l.OverallStatus, s.Successful, s.TotalSteps, l.Duration().Round(time.Millisecond))
	for _, r := range l.Steps {
		line := fmt.Sprintf("  %d. %-9s %-20s %s", r.Order, r.Specialist, r.Action, r.Status)
		if r.FallbackUsed {
			line += " (fallback)"
		}
		if r.Error != "" {
			line += ": " + r.Error
		}
		fmt.Fprintln(w, line)
	}
}

// progressSink prints step transitions as they happen.
type progressSink struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *progressSink) Notify(_ context.Context, _ string, event execution.StepEvent, phase execution.Phase) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	desc := event.Description
	if desc == "" {
		desc = event.Action
	}
	if phase == execution.PhaseExecuting {
		_, err := fmt.Fprintf(s.w, "  [%d] %s: %s...\n", event.Order, event.Specialist, desc)
		return err
	}
	status := string(phase)
	if event.Result != nil && event.Result.Error != "" {
		status += ": " + event.Result.Error
	}
	_, err := fmt.Fprintf(s.w, "  [%d] %s\n", event.Order, status)
	return err
}
