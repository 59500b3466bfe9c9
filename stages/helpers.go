package stages

import (
	"os"

	"github.com/wayfarerlabs/discovery-pipeline/pipeline"
	"github.com/wayfarerlabs/discovery-pipeline/pipeline/emit"
)

func workerOutputWriteFailedEvent(runID string, err error) emit.Event {
	return emit.Event{
		RunID:  runID,
		NodeID: "03_worker_outputs",
		Msg:    "worker output file write failed",
		Meta:   map[string]any{"error": err.Error()},
	}
}

// writeResultsMarkdown writes the stage-10 human-readable rendering
// alongside the structured checkpoint, at <runDir>/results.md.
func writeResultsMarkdown(rc *pipeline.RunContext, markdown string) error {
	path := rc.Store.ResultsMarkdownPath(rc.SessionID, rc.RunID)
	return os.WriteFile(path, []byte(markdown), 0o644)
}
