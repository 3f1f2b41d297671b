package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-conductor/internal/environment"
	"github.com/nerrad567/gray-logic-conductor/internal/goal"
	"github.com/nerrad567/gray-logic-conductor/internal/plan"
)

// Enricher attaches specialist policy to a step. *specialist.Registry
// implements it.
type Enricher interface {
	Enrich(step plan.Step) (plan.EnrichedStep, error)
}

// Logger defines the logging interface used by this package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Deps are the orchestrator's collaborators. Classifier and Templates
// default to the keyword classifier and built-in templates.
type Deps struct {
	Classifier  goal.Classifier
	Specialists Enricher
	Environment environment.Provider
	Store       plan.Store
	Templates   Templates
	Logger      Logger
}

// Orchestrator builds plans from goals.
//
// Thread Safety: all methods are safe for concurrent use; the orchestrator
// holds no mutable state of its own.
type Orchestrator struct {
	classifier  goal.Classifier
	specialists Enricher
	env         environment.Provider
	store       plan.Store
	templates   Templates
	logger      Logger
	now         func() time.Time
}

// New creates an orchestrator.
func New(d Deps) *Orchestrator {
	o := &Orchestrator{
		classifier:  d.Classifier,
		specialists: d.Specialists,
		env:         d.Environment,
		store:       d.Store,
		templates:   d.Templates,
		logger:      d.Logger,
		now:         time.Now,
	}
	if o.classifier == nil {
		o.classifier = goal.NewKeywordClassifier(nil)
	}
	if o.templates == nil {
		o.templates = DefaultTemplates()
	}
	if o.logger == nil {
		o.logger = noopLogger{}
	}
	return o
}

// CreatePlan validates and classifies text, reads the user's environment
// once, builds the plan and saves it to the plan store.
//
// Returns goal.ErrInvalidGoal for unusable text and ErrUnknownSpecialist
// when a template references an unregistered specialist.
func (o *Orchestrator) CreatePlan(ctx context.Context, text, userID string) (*plan.Plan, error) {
	if err := goal.ValidateText(text); err != nil {
		return nil, err
	}
	gt := o.classifier.Classify(text)

	snap, err := o.env.GetContext(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	p, err := o.BuildPlan(text, gt, snap)
	if err != nil {
		return nil, err
	}
	p.UserID = userID

	if err := o.store.Save(ctx, p); err != nil {
		return nil, fmt.Errorf("saving plan: %w", err)
	}

	o.logger.Info("plan created",
		"plan_id", p.ID,
		"user_id", userID,
		"goal_type", gt,
		"steps", len(p.Steps),
		"requires_confirmation", p.RequiresConfirmation,
		"raining", snap.IsRaining,
		"quiet_hours", snap.IsQuietHours,
	)
	return p, nil
}

// BuildPlan selects steps for gt (template or keyword synthesis), applies
// the context adjustments and enriches every step. It does not store the plan.
func (o *Orchestrator) BuildPlan(text string, gt goal.Type, snap environment.Snapshot) (*plan.Plan, error) {
	var (
		steps   []plan.Step
		confirm bool
	)
	if t, ok := o.templates[gt]; ok {
		steps, confirm = t.instantiate(), t.RequiresConfirmation
	} else {
		if gt != goal.TypeCustom {
			o.logger.Debug("no template for goal type, synthesising", "goal_type", gt)
		}
		steps = synthesize(text)
	}

	steps = applyAdjustments(steps, gt, snap)

	enriched := make([]plan.EnrichedStep, len(steps))
	for i, s := range steps {
		e, err := o.specialists.Enrich(s)
		if err != nil {
			return nil, fmt.Errorf("building %s plan: %w", gt, err)
		}
		enriched[i] = e
	}

	p := &plan.Plan{
		ID:                   plan.NewID(),
		Goal:                 text,
		GoalType:             gt,
		Steps:                enriched,
		RequiresConfirmation: confirm,
		Context:              snap,
		CreatedAt:            o.now().UTC(),
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("building %s plan: %w", gt, err)
	}
	return p, nil
}
