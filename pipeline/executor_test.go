package pipeline

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/wayfarerlabs/discovery-pipeline/pipeline/checkpoint"
	"github.com/wayfarerlabs/discovery-pipeline/pipeline/emit"
)

// fakeStage is a minimal Stage implementation for exercising the executor
// without pulling in real stage logic.
type fakeStage struct {
	number int
	name   string
	fn     func(rc *RunContext, input any) (any, error)
}

func (f fakeStage) Number() int                                    { return f.number }
func (f fakeStage) Name() string                                   { return f.name }
func (f fakeStage) Execute(rc *RunContext, input any) (any, error) { return f.fn(rc, input) }

func passthroughStage(number int, name string) fakeStage {
	return fakeStage{number: number, name: name, fn: func(rc *RunContext, input any) (any, error) {
		return map[string]any{"stage": name, "input": input}, nil
	}}
}

func threeStages() []Stage {
	return []Stage{
		passthroughStage(0, "enhancement"),
		passthroughStage(1, "intake"),
		passthroughStage(2, "router_plan"),
	}
}

func newTestContext(t *testing.T) *RunContext {
	t.Helper()
	store := checkpoint.New(t.TempDir())
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return &RunContext{
		Context:   context.Background(),
		SessionID: "sess-1",
		RunID:     "run-1",
		Store:     store,
		Emitter:   emit.NewNullEmitter(),
		Now:       func() time.Time { return fixed },
	}
}

func TestExecute_FullRunWritesCheckpointsAndManifest(t *testing.T) {
	rc := newTestContext(t)
	opts := NewRunOptions()

	result, err := Execute(rc, threeStages(), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Manifest.Stages) != 3 {
		t.Fatalf("expected 3 manifest entries, got %d", len(result.Manifest.Stages))
	}
	for _, entry := range result.Manifest.Stages {
		if entry.Status != "complete" {
			t.Fatalf("expected stage %s complete, got %s", entry.StageID, entry.Status)
		}
	}
	if result.FinalOutput == nil {
		t.Fatalf("expected a final output to be recorded")
	}
	if len(result.Outputs) != 3 {
		t.Fatalf("expected 3 recorded outputs, got %d", len(result.Outputs))
	}

	path := rc.Store.StagePath(rc.SessionID, rc.RunID, 2, "router_plan")
	if _, err := checkpoint.ReadCheckpointMetadata(path); err != nil {
		t.Fatalf("expected stage 2 checkpoint to exist on disk: %v", err)
	}

	manifestPath := rc.Store.ManifestPath(rc.SessionID, rc.RunID)
	if _, err := os.Stat(manifestPath); err != nil {
		t.Fatalf("expected manifest.json to be written: %v", err)
	}
}

func TestExecute_DryRunSkipsCheckpointWrites(t *testing.T) {
	rc := newTestContext(t)
	opts := NewRunOptions(WithDryRun(true))

	result, err := Execute(rc, threeStages(), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, entry := range result.Manifest.Stages {
		if entry.Status != "skipped" {
			t.Fatalf("expected all stages skipped in dry run, got %s=%s", entry.StageID, entry.Status)
		}
	}

	path := rc.Store.StagePath(rc.SessionID, rc.RunID, 0, "enhancement")
	if _, err := checkpoint.ReadCheckpointMetadata(path); err == nil {
		t.Fatalf("expected no checkpoint file to be written in dry run")
	}
	manifestPath := rc.Store.ManifestPath(rc.SessionID, rc.RunID)
	if _, err := os.Stat(manifestPath); err == nil {
		t.Fatalf("expected no manifest.json to be written in dry run")
	}
}

func TestExecute_ContinueOnErrorDegradesAndPassesNilDownstream(t *testing.T) {
	rc := newTestContext(t)

	var sawNilInput bool
	stages := []Stage{
		passthroughStage(0, "enhancement"),
		fakeStage{number: 1, name: "intake", fn: func(rc *RunContext, input any) (any, error) {
			return nil, errors.New("boom")
		}},
		fakeStage{number: 2, name: "router_plan", fn: func(rc *RunContext, input any) (any, error) {
			sawNilInput = input == nil
			return map[string]any{"ok": true}, nil
		}},
	}

	opts := NewRunOptions(WithContinueOnError(true))
	result, err := Execute(rc, stages, opts)
	if err != nil {
		t.Fatalf("unexpected error with ContinueOnError set: %v", err)
	}
	if !sawNilInput {
		t.Fatalf("expected the stage downstream of a degraded stage to receive a nil input")
	}
	if len(result.DegradedStages) != 1 {
		t.Fatalf("expected 1 degraded stage recorded, got %d", len(result.DegradedStages))
	}
	if result.DegradedStages[0].StageID != "01_intake" {
		t.Fatalf("expected degraded stage id 01_intake, got %s", result.DegradedStages[0].StageID)
	}
	if len(result.Manifest.DegradedStages) != 1 || result.Manifest.DegradedStages[0] != "01_intake" {
		t.Fatalf("expected manifest to record the degraded stage id, got %v", result.Manifest.DegradedStages)
	}

	var foundDegradedEntry bool
	for _, entry := range result.Manifest.Stages {
		if entry.StageID == "01_intake" {
			foundDegradedEntry = true
			if entry.Status != "degraded" {
				t.Fatalf("expected 01_intake entry status degraded, got %s", entry.Status)
			}
		}
	}
	if !foundDegradedEntry {
		t.Fatalf("expected a manifest entry for the degraded stage")
	}
}

func TestExecute_FailFastStopsOnFirstError(t *testing.T) {
	rc := newTestContext(t)
	stages := []Stage{
		passthroughStage(0, "enhancement"),
		fakeStage{number: 1, name: "intake", fn: func(rc *RunContext, input any) (any, error) {
			return nil, errors.New("boom")
		}},
		passthroughStage(2, "router_plan"),
	}

	opts := NewRunOptions()
	_, err := Execute(rc, stages, opts)
	if err == nil {
		t.Fatalf("expected fail-fast execution to return the stage error")
	}
}

func TestExecute_StopAfterStageEndsEarly(t *testing.T) {
	rc := newTestContext(t)
	opts := NewRunOptions(WithStopAfterStage(1))

	result, err := Execute(rc, threeStages(), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Manifest.Stages) != 2 {
		t.Fatalf("expected execution to stop after stage 1, got %d stage entries", len(result.Manifest.Stages))
	}
	if _, ok := result.Outputs[2]; ok {
		t.Fatalf("expected stage 2 to never have run")
	}
}

func TestExecute_ResumeRequiresSourceRunID(t *testing.T) {
	rc := newTestContext(t)
	opts := NewRunOptions(WithResume(2, ""))

	_, err := Execute(rc, threeStages(), opts)
	if err == nil {
		t.Fatalf("expected an error when fromStage>0 without a sourceRunId")
	}
}

func TestExecute_ResumeLoadsUpstreamCheckpointAsInput(t *testing.T) {
	rc := newTestContext(t)

	// Seed a prior run's stage-1 checkpoint to resume from.
	priorRunID := "run-0"
	_, err := checkpoint.WriteCheckpoint(rc.Store, rc.SessionID, priorRunID, 1, "intake", map[string]any{"seed": "value"}, checkpoint.WriteOptions{}, rc.Now())
	if err != nil {
		t.Fatalf("failed to seed prior checkpoint: %v", err)
	}

	var receivedInput any
	stages := []Stage{
		passthroughStage(0, "enhancement"),
		passthroughStage(1, "intake"),
		fakeStage{number: 2, name: "router_plan", fn: func(rc *RunContext, input any) (any, error) {
			receivedInput = input
			return map[string]any{"done": true}, nil
		}},
	}

	opts := NewRunOptions(WithResume(2, priorRunID))
	result, err := Execute(rc, stages, opts)
	if err != nil {
		t.Fatalf("unexpected error resuming: %v", err)
	}
	if receivedInput == nil {
		t.Fatalf("expected stage 2 to receive the loaded upstream checkpoint as input")
	}
	if len(result.Manifest.Stages) != 1 {
		t.Fatalf("expected only the resumed stage to execute, got %d entries", len(result.Manifest.Stages))
	}
	if result.Manifest.Stages[0].StageNumber != 2 {
		t.Fatalf("expected the executed entry to be stage 2, got %d", result.Manifest.Stages[0].StageNumber)
	}
}
