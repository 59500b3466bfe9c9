// Package checkpoint implements the durable, resumable per-stage file store
// the pipeline executor reads and writes through. Every stage output is
// wrapped in a {_meta, data} envelope and written atomically: the bytes are
// staged in a sibling temp file within the same directory, fsynced, then
// moved into place with os.Rename so a crash mid-write can never leave a
// half-written checkpoint visible to a reader.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/wayfarerlabs/discovery-pipeline/domain"
)

// CurrentSchemaVersion is the schema version this binary writes and the
// highest version it will accept on read.
const CurrentSchemaVersion = 1

var stageIDPattern = regexp.MustCompile(`^[0-9]{2}_[a-z_]+$`)

// Store is a filesystem-backed checkpoint store rooted at RootDir, laid out
// as:
//
//	<root>/sessions/<sessionId>/session.json
//	<root>/sessions/<sessionId>/runs/<runId>/NN_name.json
//	<root>/sessions/<sessionId>/runs/<runId>/worker_outputs/<workerId>.json
//	<root>/sessions/<sessionId>/runs/<runId>/manifest.json
//	<root>/sessions/<sessionId>/runs/<runId>/results.md
type Store struct {
	RootDir string
}

// New returns a Store rooted at rootDir. rootDir is created lazily by write
// operations, not here.
func New(rootDir string) *Store {
	return &Store{RootDir: rootDir}
}

// SessionDir returns the directory holding a session's durable record.
func (s *Store) SessionDir(sessionID string) string {
	return filepath.Join(s.RootDir, "sessions", sessionID)
}

// RunDir returns the directory holding one run's checkpoints.
func (s *Store) RunDir(sessionID, runID string) string {
	return filepath.Join(s.SessionDir(sessionID), "runs", runID)
}

// WorkerOutputsDir returns the directory individual WorkerOutput files are
// written under for a given run.
func (s *Store) WorkerOutputsDir(sessionID, runID string) string {
	return filepath.Join(s.RunDir(sessionID, runID), "worker_outputs")
}

// ManifestPath returns the path to a run's manifest.json.
func (s *Store) ManifestPath(sessionID, runID string) string {
	return filepath.Join(s.RunDir(sessionID, runID), "manifest.json")
}

// ResultsMarkdownPath returns the path to a run's human-readable rendering.
func (s *Store) ResultsMarkdownPath(sessionID, runID string) string {
	return filepath.Join(s.RunDir(sessionID, runID), "results.md")
}

// StagePath returns the checkpoint file path for a given stage number and
// name, e.g. (4, "candidates_normalized") -> ".../04_candidates_normalized.json".
func (s *Store) StagePath(sessionID, runID string, stageNumber int, stageName string) string {
	return filepath.Join(s.RunDir(sessionID, runID), StageFilename(stageNumber, stageName))
}

// StageFilename formats the canonical "NN_name.json" checkpoint filename.
func StageFilename(stageNumber int, stageName string) string {
	return fmt.Sprintf("%02d_%s.json", stageNumber, stageName)
}

// WriteOptions carries the optional fields attached to a checkpoint's
// StageMetadata at write time.
type WriteOptions struct {
	UpstreamStage string
	Config        map[string]any
}

// WriteResult is returned by WriteCheckpoint.
type WriteResult struct {
	FilePath  string
	Metadata  domain.StageMetadata
	SizeBytes int64
}

// WriteCheckpoint wraps data in a {_meta, data} envelope and writes it
// atomically under the run directory, creating parent directories as
// needed. now is injected so callers control CreatedAt determinism in tests.
func WriteCheckpoint[T any](s *Store, sessionID, runID string, stageNumber int, stageName string, data T, opts WriteOptions, now time.Time) (WriteResult, error) {
	stageID := fmt.Sprintf("%02d_%s", stageNumber, stageName)
	if !stageIDPattern.MatchString(stageID) {
		return WriteResult{}, fmt.Errorf("checkpoint: invalid stageId %q", stageID)
	}
	if stageNumber < 0 || stageNumber > 10 {
		return WriteResult{}, fmt.Errorf("checkpoint: stageNumber %d out of range 0..10", stageNumber)
	}

	meta := domain.StageMetadata{
		StageID:       stageID,
		StageNumber:   stageNumber,
		StageName:     stageName,
		SchemaVersion: CurrentSchemaVersion,
		SessionID:     sessionID,
		RunID:         runID,
		CreatedAt:     now,
		UpstreamStage: opts.UpstreamStage,
		Config:        opts.Config,
	}

	env := domain.Checkpoint[T]{Meta: meta, Data: data}
	payload, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return WriteResult{}, fmt.Errorf("checkpoint: marshal %s: %w", stageID, err)
	}

	dir := s.RunDir(sessionID, runID)
	path := filepath.Join(dir, StageFilename(stageNumber, stageName))
	if err := writeFileAtomic(dir, path, payload); err != nil {
		return WriteResult{}, err
	}

	return WriteResult{FilePath: path, Metadata: meta, SizeBytes: int64(len(payload))}, nil
}

// writeFileAtomic creates dir if needed, stages payload in a temp file
// alongside the target, fsyncs it, then renames it into place. A crash at
// any point before the final rename leaves the previous file (or nothing)
// intact; the rename itself is atomic within a single filesystem.
func writeFileAtomic(dir, path string, payload []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("checkpoint: mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("checkpoint: create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("checkpoint: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("checkpoint: sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("checkpoint: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("checkpoint: rename into place: %w", err)
	}
	return nil
}

// RawWriteResult is returned by WriteCheckpointRaw.
type RawWriteResult struct {
	SizeBytes int64
}

// WriteCheckpointRaw atomically writes value (already shaped the way it
// should appear on disk, e.g. a RunManifest) to path without wrapping it in
// a {_meta, data} envelope. Used for manifest.json, which carries its own
// top-level shape.
func WriteCheckpointRaw[T any](path string, value T) (RawWriteResult, error) {
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return RawWriteResult{}, fmt.Errorf("checkpoint: marshal %s: %w", path, err)
	}
	if err := writeFileAtomic(filepath.Dir(path), path, payload); err != nil {
		return RawWriteResult{}, err
	}
	return RawWriteResult{SizeBytes: int64(len(payload))}, nil
}

// ReadCheckpoint loads and validates a checkpoint envelope from path,
// returning the typed data alongside its metadata.
func ReadCheckpoint[T any](path string) (domain.Checkpoint[T], error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.Checkpoint[T]{}, &StageFileNotFound{Path: path}
		}
		return domain.Checkpoint[T]{}, fmt.Errorf("checkpoint: read %s: %w", path, err)
	}

	if err := ValidateCheckpointStructure(raw, path); err != nil {
		return domain.Checkpoint[T]{}, err
	}

	var env domain.Checkpoint[T]
	if err := json.Unmarshal(raw, &env); err != nil {
		return domain.Checkpoint[T]{}, &InvalidCheckpoint{Path: path, Fields: []FieldError{{Field: "data", Reason: err.Error()}}}
	}
	if env.Meta.SchemaVersion > CurrentSchemaVersion {
		return domain.Checkpoint[T]{}, fmt.Errorf("%w: %s has version %d, max understood %d", ErrUnsupportedSchemaVersion, path, env.Meta.SchemaVersion, CurrentSchemaVersion)
	}
	return env, nil
}

// ReadCheckpointData loads a checkpoint and returns only its payload.
func ReadCheckpointData[T any](path string) (T, error) {
	env, err := ReadCheckpoint[T](path)
	if err != nil {
		var zero T
		return zero, err
	}
	return env.Data, nil
}

// ReadCheckpointMetadata loads a checkpoint and returns only its _meta
// header, without requiring the caller to know the payload type.
func ReadCheckpointMetadata(path string) (domain.StageMetadata, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.StageMetadata{}, &StageFileNotFound{Path: path}
		}
		return domain.StageMetadata{}, fmt.Errorf("checkpoint: read %s: %w", path, err)
	}
	if err := ValidateCheckpointStructure(raw, path); err != nil {
		return domain.StageMetadata{}, err
	}
	var envelope struct {
		Meta domain.StageMetadata `json:"_meta"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return domain.StageMetadata{}, &InvalidCheckpoint{Path: path, Fields: []FieldError{{Field: "_meta", Reason: err.Error()}}}
	}
	return envelope.Meta, nil
}

// ValidateCheckpointStructure reports whether raw JSON has both "_meta" and
// "data" keys and that "_meta" conforms: stageId formatted NN_name,
// stageNumber in 0..10, required ISO8601 createdAt. Returns nil when valid,
// otherwise an *InvalidCheckpoint listing every field-level complaint.
func ValidateCheckpointStructure(raw []byte, path string) error {
	var generic map[string]json.RawMessage
	if err := json.Unmarshal(raw, &generic); err != nil {
		return &InvalidCheckpoint{Path: path, Fields: []FieldError{{Field: "<root>", Reason: "not a JSON object"}}}
	}

	var fields []FieldError
	metaRaw, hasMeta := generic["_meta"]
	if !hasMeta {
		fields = append(fields, FieldError{Field: "_meta", Reason: "missing"})
	}
	if _, hasData := generic["data"]; !hasData {
		fields = append(fields, FieldError{Field: "data", Reason: "missing"})
	}
	if hasMeta {
		var meta domain.StageMetadata
		if err := json.Unmarshal(metaRaw, &meta); err != nil {
			fields = append(fields, FieldError{Field: "_meta", Reason: "does not parse as StageMetadata"})
		} else {
			if !stageIDPattern.MatchString(meta.StageID) {
				fields = append(fields, FieldError{Field: "_meta.stageId", Reason: fmt.Sprintf("%q does not match ^[0-9]{2}_[a-z_]+$", meta.StageID)})
			}
			if meta.StageNumber < 0 || meta.StageNumber > 10 {
				fields = append(fields, FieldError{Field: "_meta.stageNumber", Reason: "out of range 0..10"})
			}
			if meta.CreatedAt.IsZero() {
				fields = append(fields, FieldError{Field: "_meta.createdAt", Reason: "missing or zero"})
			}
		}
	}

	if len(fields) > 0 {
		return &InvalidCheckpoint{Path: path, Fields: fields}
	}
	return nil
}
