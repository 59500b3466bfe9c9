package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wayfarerlabs/discovery-pipeline/domain"
	"github.com/wayfarerlabs/discovery-pipeline/pipeline/checkpoint"
	"github.com/wayfarerlabs/discovery-pipeline/pipeline/workerpool"
)

// WorkerExecutionOutput is the stage-3 checkpoint payload: every worker's
// output, in assignment order.
type WorkerExecutionOutput struct {
	Outputs []domain.WorkerOutput `json:"outputs"`
}

// ExecuteWorkers runs stage 3: it fans the plan out across pool, then
// persists each WorkerOutput as its own file under the run's
// worker_outputs/ directory before returning the aggregate checkpoint
// payload. A write failure for one worker's file does not abort the
// others; errors are collected and returned alongside the payload.
func ExecuteWorkers(ctx context.Context, store *checkpoint.Store, sessionID, runID string, plan domain.WorkerPlan, pool *workerpool.Pool, exec workerpool.Executor) (WorkerExecutionOutput, []error) {
	outputs := pool.Run(ctx, plan.Assignments, exec)

	var writeErrs []error
	dir := store.WorkerOutputsDir(sessionID, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		writeErrs = append(writeErrs, fmt.Errorf("worker_outputs: mkdir: %w", err))
	} else {
		for _, out := range outputs {
			if err := writeWorkerOutput(dir, out); err != nil {
				writeErrs = append(writeErrs, err)
			}
		}
	}

	return WorkerExecutionOutput{Outputs: outputs}, writeErrs
}

func writeWorkerOutput(dir string, out domain.WorkerOutput) error {
	payload, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("worker_outputs: marshal %s: %w", out.WorkerID, err)
	}
	path := filepath.Join(dir, sanitizeWorkerID(out.WorkerID)+".json")
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("worker_outputs: write %s: %w", out.WorkerID, err)
	}
	return nil
}

// sanitizeWorkerID replaces path-hostile characters in a worker ID
// (typically "provider:destination") so it is safe as a filename.
func sanitizeWorkerID(workerID string) string {
	out := make([]byte, len(workerID))
	for i := 0; i < len(workerID); i++ {
		switch c := workerID[i]; c {
		case '/', '\\', ':':
			out[i] = '_'
		default:
			out[i] = c
		}
	}
	return string(out)
}
