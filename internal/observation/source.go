package observation

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// maxSceneFileSize bounds recorded scene files read from disk.
const maxSceneFileSize = 256 * 1024 * 1024

// StepSource yields one observation per simulation step. Next blocks until
// the driver has advanced the world; ok is false once the episode has no
// further steps. An error means the driver itself failed.
type StepSource interface {
	Next(ctx context.Context) (rec *StepRecord, ok bool, err error)
}

// Scene is a recorded episode.
type Scene struct {
	Name  string       `json:"name"`
	Level string       `json:"level,omitempty"`
	Steps []StepRecord `json:"steps"`
}

// SliceSource replays a fixed list of records.
type SliceSource struct {
	records []StepRecord
	pos     int
}

// NewSliceSource returns a StepSource over records. Records without an
// explicit step number are numbered by position.
func NewSliceSource(records []StepRecord) *SliceSource {
	out := make([]StepRecord, len(records))
	copy(out, records)
	for i := range out {
		if out[i].Step == 0 {
			out[i].Step = i
		}
	}
	return &SliceSource{records: out}
}

// Next returns the next record, or ok=false when the list is exhausted.
func (s *SliceSource) Next(ctx context.Context) (*StepRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if s.pos >= len(s.records) {
		return nil, false, nil
	}
	rec := &s.records[s.pos]
	s.pos++
	return rec, true, nil
}

// Remaining reports how many records have not been consumed.
func (s *SliceSource) Remaining() int {
	return len(s.records) - s.pos
}

// Source returns a fresh StepSource over the scene's steps.
func (sc *Scene) Source() *SliceSource {
	return NewSliceSource(sc.Steps)
}

// LoadScene reads a recorded scene. A .json file holds a Scene object; a
// .jsonl file holds one StepRecord per line and takes its name from the file.
func LoadScene(path string) (*Scene, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".json" && ext != ".jsonl" {
		return nil, fmt.Errorf("scene file must have .json or .jsonl extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat scene file: %w", err)
	}
	if info.Size() > maxSceneFileSize {
		return nil, fmt.Errorf("scene file too large: %d bytes (max %d)", info.Size(), maxSceneFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read scene file: %w", err)
	}

	if ext == ".jsonl" {
		steps, err := DecodeRecords(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", cleanPath, err)
		}
		name := strings.TrimSuffix(filepath.Base(cleanPath), filepath.Ext(cleanPath))
		return &Scene{Name: name, Steps: steps}, nil
	}

	var sc Scene
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("failed to parse scene JSON: %w", err)
	}
	if sc.Name == "" {
		sc.Name = strings.TrimSuffix(filepath.Base(cleanPath), filepath.Ext(cleanPath))
	}
	return &sc, nil
}

// DecodeRecords parses newline-delimited step records. Blank lines are
// skipped.
func DecodeRecords(data []byte) ([]StepRecord, error) {
	var steps []StepRecord
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), maxSceneFileSize)
	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		var rec StepRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		steps = append(steps, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return steps, nil
}

// EncodeRecord renders a record as a single JSON line.
func EncodeRecord(rec *StepRecord) ([]byte, error) {
	return json.Marshal(rec)
}
