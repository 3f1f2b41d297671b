package execution

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-conductor/internal/goal"
	"github.com/nerrad567/gray-logic-conductor/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-conductor/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-conductor/internal/plan"
	"github.com/nerrad567/gray-logic-conductor/migrations"
)

// openTestDB returns a migrated in-memory database.
func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, config.DatabaseConfig{Path: database.MemoryPath})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup
	if err := db.Migrate(ctx, migrations.FS); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}

func sampleLog(id, userID string, started time.Time) *ExecutionLog {
	return &ExecutionLog{
		ID:            id,
		PlanID:        "plan-" + id,
		UserID:        userID,
		Goal:          "Movie time",
		GoalType:      goal.TypeMovieTime,
		StartedAt:     started,
		CompletedAt:   started.Add(1500 * time.Millisecond),
		OverallStatus: StatusPartial,
		Steps: []StepResult{
			{Order: 1, Specialist: plan.Ambiance, Action: "dim", Status: StepCompleted, Attempts: 1, DurationMS: 210, Timestamp: started.Add(210 * time.Millisecond)},
			{Order: 2, Specialist: plan.Security, Action: "verify_lock", Status: StepFailed, Error: "specialist: device not found", Timestamp: started.Add(time.Second)},
		},
	}
}

func TestSQLiteLogStore_InsertGet(t *testing.T) {
	store := NewSQLiteLogStore(openTestDB(t).DB)
	ctx := context.Background()
	started := time.Date(2026, 3, 1, 20, 15, 0, 123000000, time.UTC)

	want := sampleLog("e1", "alice", started)
	want.DryRun = true
	if err := store.Insert(ctx, want); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	got, err := store.Get(ctx, "e1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.PlanID != want.PlanID || got.UserID != "alice" || got.GoalType != goal.TypeMovieTime {
		t.Errorf("Get() identity = %+v", got)
	}
	if !got.DryRun || got.OverallStatus != StatusPartial {
		t.Errorf("Get() = dry %v status %q", got.DryRun, got.OverallStatus)
	}
	if !got.StartedAt.Equal(want.StartedAt) || !got.CompletedAt.Equal(want.CompletedAt) {
		t.Errorf("Get() times = (%v, %v), want (%v, %v)", got.StartedAt, got.CompletedAt, want.StartedAt, want.CompletedAt)
	}
	if len(got.Steps) != 2 {
		t.Fatalf("len(Steps) = %d, want 2", len(got.Steps))
	}
	if got.Steps[1].Error != "specialist: device not found" || got.Steps[1].Status != StepFailed {
		t.Errorf("Steps[1] = %+v", got.Steps[1])
	}
	if got.Steps[0].DurationMS != 210 || got.Steps[0].Specialist != plan.Ambiance {
		t.Errorf("Steps[0] = %+v", got.Steps[0])
	}

	if err := store.Insert(ctx, want); err == nil {
		t.Error("Insert(duplicate) error = nil")
	}
}

func TestSQLiteLogStore_GetNotFound(t *testing.T) {
	store := NewSQLiteLogStore(openTestDB(t).DB)
	if _, err := store.Get(context.Background(), "nope"); !errors.Is(err, ErrExecutionNotFound) {
		t.Errorf("Get() error = %v, want ErrExecutionNotFound", err)
	}
}

func TestSQLiteLogStore_List(t *testing.T) {
	store := NewSQLiteLogStore(openTestDB(t).DB)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	// Whole and fractional seconds mixed to check ordering.
	inserts := []struct {
		id, user string
		offset   time.Duration
	}{
		{"e1", "alice", 0},
		{"e2", "bob", 500 * time.Millisecond},
		{"e3", "alice", time.Second},
		{"e4", "alice", time.Second + 5*time.Millisecond},
	}
	for _, in := range inserts {
		if err := store.Insert(ctx, sampleLog(in.id, in.user, base.Add(in.offset))); err != nil {
			t.Fatalf("Insert(%s) error = %v", in.id, err)
		}
	}

	tests := []struct {
		name    string
		user    string
		limit   int
		wantIDs []string
	}{
		{"all users", "", 0, []string{"e4", "e3", "e2", "e1"}},
		{"one user", "alice", 0, []string{"e4", "e3", "e1"}},
		{"limited", "alice", 2, []string{"e4", "e3"}},
		{"unknown user", "carol", 10, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs, err := store.List(ctx, tt.user, tt.limit)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(logs) != len(tt.wantIDs) {
				t.Fatalf("List() returned %d logs, want %d", len(logs), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if logs[i].ID != id {
					t.Errorf("logs[%d].ID = %q, want %q", i, logs[i].ID, id)
				}
			}
		})
	}
}

func TestCoordinator_WritesToSQLiteLogStore(t *testing.T) {
	logs := NewSQLiteLogStore(openTestDB(t).DB)
	store := plan.NewMemoryStore(time.Minute)
	coord := New(Deps{Runner: newMockRunner(), Plans: store, Logs: logs, SettleDelay: -1})
	ctx := context.Background()

	if err := store.Save(ctx, testPlan("p1", testStep(1, plan.Ambiance, 1, 0))); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	log, err := coord.Execute(ctx, "p1", "alice", false)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	stored, err := logs.Get(ctx, log.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stored.OverallStatus != StatusSuccess || len(stored.Steps) != 1 {
		t.Errorf("stored log = %+v", stored)
	}
}
