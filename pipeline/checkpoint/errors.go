package checkpoint

import (
	"errors"
	"fmt"
)

// StageFileNotFound is returned when a checkpoint read is attempted against
// a (sessionId, runId, stageId) key that has no file on disk.
type StageFileNotFound struct {
	SessionID string
	RunID     string
	StageID   string
	Path      string
}

func (e *StageFileNotFound) Error() string {
	return fmt.Sprintf("checkpoint not found: session=%s run=%s stage=%s (%s)", e.SessionID, e.RunID, e.StageID, e.Path)
}

// FieldError is one structural complaint produced by validateCheckpointStructure.
type FieldError struct {
	Field  string
	Reason string
}

// InvalidCheckpoint is returned when a checkpoint file parses as JSON but
// fails structural validation (missing _meta/data, malformed stageId, out of
// range stageNumber, unparsable createdAt).
type InvalidCheckpoint struct {
	Path   string
	Fields []FieldError
}

func (e *InvalidCheckpoint) Error() string {
	msg := fmt.Sprintf("invalid checkpoint %s:", e.Path)
	for _, f := range e.Fields {
		msg += fmt.Sprintf(" %s: %s;", f.Field, f.Reason)
	}
	return msg
}

// ErrUnsupportedSchemaVersion is returned when a checkpoint's schemaVersion
// is higher than this binary understands.
var ErrUnsupportedSchemaVersion = errors.New("checkpoint schema version is newer than this reader supports")

// IntegrityError describes a checkpoint whose expected sha256 does not match
// the bytes on disk. Nothing in this repository returns it: checkpoint reads
// do not verify hashes, and the run manifest does not store them.
type IntegrityError struct {
	Path        string
	ExpectedSHA string
	ActualSHA   string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("checkpoint integrity mismatch %s: manifest sha256=%s, on-disk sha256=%s", e.Path, e.ExpectedSHA, e.ActualSHA)
}
