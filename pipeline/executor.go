package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/wayfarerlabs/discovery-pipeline/domain"
	"github.com/wayfarerlabs/discovery-pipeline/pipeline/checkpoint"
	"github.com/wayfarerlabs/discovery-pipeline/pipeline/emit"
)

// RunContext is the shared execution context injected into every stage: the
// session/run identity, the checkpoint store, observability sinks, and the
// options the run was started with. Stages treat it as read-only apart from
// emitting events through Emitter. It carries no cost tracker.
type RunContext struct {
	Context   context.Context
	SessionID string
	RunID     string
	Store     *checkpoint.Store
	Emitter   emit.Emitter
	Options   RunOptions
	Now       func() time.Time
}

// Stage is the contract every numbered pipeline stage implements. Execute
// receives the upstream stage's payload as input (nil when ContinueOnError
// degraded the previous stage, or when the stage is stage 0) and returns
// its own payload. A Stage must never panic across this boundary and must
// tolerate a nil input when RunContext.Options.ContinueOnError is set.
type Stage interface {
	Number() int
	Name() string
	Execute(rc *RunContext, input any) (any, error)
}

// PipelineResult is returned by Execute.
type PipelineResult struct {
	Manifest       domain.RunManifest
	DegradedStages []StageError
	Outputs        map[int]any // stage number -> payload actually produced or loaded
	FinalOutput    any
}

// Execute runs stages in order against rc, honoring RunOptions (dry run,
// resume, stop-after, continue-on-error). See CreateResumeExecutionPlan for
// how fromStage maps to skip/execute sets.
func Execute(rc *RunContext, stages []Stage, opts RunOptions) (PipelineResult, error) {
	if opts.FromStage > 0 && opts.SourceRunID == "" {
		return PipelineResult{}, fmt.Errorf("pipeline: fromStage=%d requires sourceRunId", opts.FromStage)
	}

	plan := CreateResumeExecutionPlan(opts.FromStage)
	toExecute := make(map[int]bool, len(plan.StagesToExecute))
	for _, n := range plan.StagesToExecute {
		toExecute[n] = true
	}

	manifest := domain.RunManifest{
		RunID:     rc.RunID,
		SessionID: rc.SessionID,
		CreatedAt: rc.Now(),
	}

	result := PipelineResult{Outputs: make(map[int]any)}

	var input any
	if plan.InputStage >= 0 {
		loaded, err := loadUpstreamOutput(rc, opts.SourceRunID, plan.InputStage, stages)
		if err != nil {
			return PipelineResult{}, &StageError{StageID: fmt.Sprintf("%02d", plan.InputStage), Kind: KindIntegrityError, Message: "failed to load resume input", Cause: err}
		}
		input = loaded
		result.Outputs[plan.InputStage] = loaded
	}

	for _, stage := range stages {
		n := stage.Number()
		if !toExecute[n] {
			continue
		}

		startedAt := rc.Now()
		entry := domain.StageEntry{
			StageID:     fmt.Sprintf("%02d_%s", n, stage.Name()),
			StageNumber: n,
			StartedAt:   startedAt,
		}

		if opts.DryRun {
			entry.Status = domain.StageStatusSkipped
			entry.Reason = "dryRun"
			entry.FinishedAt = rc.Now()
			manifest.Stages = append(manifest.Stages, entry)
			continue
		}

		output, execErr := stage.Execute(rc, input)
		entry.FinishedAt = rc.Now()

		if execErr != nil {
			if !opts.ContinueOnError {
				return result, execErr
			}
			se := asStageError(entry.StageID, execErr)
			result.DegradedStages = append(result.DegradedStages, *se)
			manifest.DegradedStages = append(manifest.DegradedStages, entry.StageID)
			entry.Status = domain.StageStatusDegraded
			entry.Reason = se.Error()
			manifest.Stages = append(manifest.Stages, entry)
			input = nil
			result.Outputs[n] = nil
			if opts.StopAfterStage == n {
				break
			}
			continue
		}

		wr, err := checkpoint.WriteCheckpoint(rc.Store, rc.SessionID, rc.RunID, n, stage.Name(), output, checkpoint.WriteOptions{
			UpstreamStage: upstreamStageID(n, manifest),
		}, rc.Now())
		if err != nil {
			return result, &StageError{StageID: entry.StageID, Kind: KindStageFailure, Message: "checkpoint write failed", Cause: err}
		}

		sum, err := fileSHA256(wr.FilePath)
		if err != nil {
			return result, &StageError{StageID: entry.StageID, Kind: KindStageFailure, Message: "checkpoint hash failed", Cause: err}
		}

		entry.Status = domain.StageStatusComplete
		manifest.Stages = append(manifest.Stages, entry)

		result.Outputs[n] = output
		input = output
		result.FinalOutput = output

		if rc.Emitter != nil {
			rc.Emitter.Emit(emit.Event{
				RunID:  rc.RunID,
				Step:   n,
				NodeID: entry.StageID,
				Msg:    "stage complete",
				Meta:   map[string]any{"sha256": sum, "sizeBytes": wr.SizeBytes},
			})
		}

		if opts.StopAfterStage == n {
			break
		}
	}

	manifest.UpdatedAt = rc.Now()
	result.Manifest = manifest

	if !opts.DryRun {
		if err := writeManifest(rc, manifest); err != nil {
			return result, err
		}
	}

	return result, nil
}

func upstreamStageID(n int, manifest domain.RunManifest) string {
	if n == 0 {
		return ""
	}
	for i := len(manifest.Stages) - 1; i >= 0; i-- {
		if manifest.Stages[i].StageNumber == n-1 {
			return manifest.Stages[i].StageID
		}
	}
	return ""
}

func asStageError(stageID string, err error) *StageError {
	if se, ok := err.(*StageError); ok {
		return se
	}
	return &StageError{StageID: stageID, Kind: KindStageFailure, Message: err.Error(), Cause: err}
}

// loadUpstreamOutput loads the checkpoint produced by stageNumber in
// sourceRunID, used as the input edge into the first executed stage of a
// resumed run. Stage types are heterogeneous, so the payload is loaded as
// `any`; downstream stages type-assert the shape they expect.
func loadUpstreamOutput(rc *RunContext, sourceRunID string, stageNumber int, stages []Stage) (any, error) {
	var name string
	for _, s := range stages {
		if s.Number() == stageNumber {
			name = s.Name()
			break
		}
	}
	if name == "" {
		return nil, fmt.Errorf("no stage registered for number %d", stageNumber)
	}
	path := rc.Store.StagePath(rc.SessionID, sourceRunID, stageNumber, name)
	meta, err := checkpoint.ReadCheckpointMetadata(path)
	if err != nil {
		return nil, err
	}
	if err := ValidateStageFile(meta.StageNumber, stageNumber); err != nil {
		return nil, err
	}
	return checkpoint.ReadCheckpointData[any](path)
}

func fileSHA256(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func writeManifest(rc *RunContext, manifest domain.RunManifest) error {
	_, err := checkpoint.WriteCheckpointRaw(rc.Store.ManifestPath(rc.SessionID, rc.RunID), manifest)
	return err
}
