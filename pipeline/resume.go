package pipeline

import "fmt"

// TotalStages is the fixed number of stages in the pipeline, numbered 0..10.
const TotalStages = 11

// GetUpstreamStages returns every stage number that must complete before
// stage n can run: [0..n-1]. Stage dependencies are linear, but this is
// expressed as a general predecessor list so the contract extends cleanly
// if a future stage ever gains more than one upstream.
func GetUpstreamStages(n int) []int {
	if n <= 0 {
		return nil
	}
	out := make([]int, n)
	for i := 0; i < n; i++ {
		out[i] = i
	}
	return out
}

// GetDownstreamStages returns every stage number that depends on stage n:
// [n+1..10].
func GetDownstreamStages(n int) []int {
	if n >= TotalStages-1 {
		return nil
	}
	out := make([]int, 0, TotalStages-1-n)
	for i := n + 1; i < TotalStages; i++ {
		out = append(out, i)
	}
	return out
}

// ResumePlan is the result of CreateResumeExecutionPlan: which stages are
// loaded from a prior run's checkpoints versus re-executed.
type ResumePlan struct {
	StagesToSkip    []int
	StagesToExecute []int
	InputStage      int
}

// CreateResumeExecutionPlan builds a ResumePlan for resuming at fromStage.
// Stage 0 resume degenerates to a full run: there is no upstream stage to
// load from, so every stage executes and InputStage is -1.
func CreateResumeExecutionPlan(fromStage int) ResumePlan {
	if fromStage <= 0 {
		exec := make([]int, TotalStages)
		for i := range exec {
			exec[i] = i
		}
		return ResumePlan{StagesToSkip: nil, StagesToExecute: exec, InputStage: -1}
	}

	exec := make([]int, 0, TotalStages-fromStage)
	for i := fromStage; i < TotalStages; i++ {
		exec = append(exec, i)
	}
	return ResumePlan{
		StagesToSkip:    GetUpstreamStages(fromStage),
		StagesToExecute: exec,
		InputStage:      fromStage - 1,
	}
}

// ValidateStageFile checks that a prior-run checkpoint loaded for resume is
// compatible with the stage about to consume it: its metadata must parse
// and its stageNumber must match expectedStageNumber.
func ValidateStageFile(stageNumber, expectedStageNumber int) error {
	if stageNumber != expectedStageNumber {
		return fmt.Errorf("pipeline: resume input stage mismatch: checkpoint is stage %d, expected stage %d", stageNumber, expectedStageNumber)
	}
	return nil
}
