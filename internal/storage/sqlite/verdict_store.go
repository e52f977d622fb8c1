package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/MCS-OSU/mcs-eval3/internal/gravity"
	"github.com/MCS-OSU/mcs-eval3/internal/timeutil"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrNotFound is returned when a verdict id does not exist.
var ErrNotFound = errors.New("verdict not found")

// VerdictRecord is one persisted episode verdict.
type VerdictRecord struct {
	VerdictID          string              `json:"verdict_id"`
	RunID              string              `json:"run_id"`
	Scene              string              `json:"scene"`
	Choice             string              `json:"choice"`
	Implausible        bool                `json:"implausible"`
	Confidence         float64             `json:"confidence"`
	Inconclusive       bool                `json:"inconclusive"`
	Reason             string              `json:"reason,omitempty"`
	DropStep           int                 `json:"drop_step"`
	PredictedStable    bool                `json:"predicted_stable"`
	ActualStable       bool                `json:"actual_stable"`
	Degenerate         bool                `json:"degenerate"`
	CrossCheckStatus   string              `json:"cross_check_status"`
	CrossCheckDistance float64             `json:"cross_check_distance,omitempty"`
	VerdictJSON        jsoniter.RawMessage `json:"verdict_json,omitempty"`
	CreatedAt          int64               `json:"created_at"`
}

// RunSummary aggregates the verdicts of one run.
type RunSummary struct {
	RunID        string `json:"run_id"`
	Total        int    `json:"total"`
	Implausible  int    `json:"implausible"`
	Inconclusive int    `json:"inconclusive"`
	Degenerate   int    `json:"degenerate"`
	Divergent    int    `json:"divergent"`
}

// VerdictStore provides persistence for episode verdicts.
type VerdictStore struct {
	db    *sql.DB
	clock timeutil.Clock
}

// NewVerdictStore creates a VerdictStore. A nil clock uses the wall clock.
func NewVerdictStore(db *sql.DB, clock timeutil.Clock) *VerdictStore {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &VerdictStore{db: db, clock: clock}
}

// NewVerdictRecord flattens a verdict for storage. The heatmap image is not
// stored; artifacts keep it on disk.
func NewVerdictRecord(runID string, v gravity.Verdict) (*VerdictRecord, error) {
	v.Heatmap = nil
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode verdict: %w", err)
	}
	return &VerdictRecord{
		RunID:              runID,
		Scene:              v.Scene,
		Choice:             v.Choice(),
		Implausible:        v.Implausible,
		Confidence:         v.Confidence,
		Inconclusive:       v.Inconclusive,
		Reason:             v.Reason,
		DropStep:           v.DropStep,
		PredictedStable:    v.PredictedStable,
		ActualStable:       v.ActualStable,
		Degenerate:         v.Degenerate,
		CrossCheckStatus:   v.CrossCheck.Status.String(),
		CrossCheckDistance: v.CrossCheck.Distance,
		VerdictJSON:        data,
	}, nil
}

// Insert persists rec. Empty VerdictID and CreatedAt are filled in.
func (s *VerdictStore) Insert(rec *VerdictRecord) error {
	if rec.VerdictID == "" {
		rec.VerdictID = uuid.New().String()
	}
	if rec.CreatedAt == 0 {
		rec.CreatedAt = s.clock.Now().UnixNano()
	}

	var verdictStr interface{}
	if len(rec.VerdictJSON) > 0 {
		verdictStr = string(rec.VerdictJSON)
	}

	return retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT INTO voe_verdicts (
				verdict_id, run_id, scene, choice, implausible, confidence,
				inconclusive, reason, drop_step, predicted_stable, actual_stable,
				degenerate, cross_check_status, cross_check_distance,
				verdict_json, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.VerdictID, rec.RunID, rec.Scene, rec.Choice, rec.Implausible, rec.Confidence,
			rec.Inconclusive, rec.Reason, rec.DropStep, rec.PredictedStable, rec.ActualStable,
			rec.Degenerate, rec.CrossCheckStatus, rec.CrossCheckDistance,
			verdictStr, rec.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert verdict: %w", err)
		}
		return nil
	})
}

// RecordVerdict stores v under runID and returns the stored record.
func (s *VerdictStore) RecordVerdict(runID string, v gravity.Verdict) (*VerdictRecord, error) {
	rec, err := NewVerdictRecord(runID, v)
	if err != nil {
		return nil, err
	}
	if err := s.Insert(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

const verdictColumns = `
	verdict_id, run_id, scene, choice, implausible, confidence,
	inconclusive, reason, drop_step, predicted_stable, actual_stable,
	degenerate, cross_check_status, cross_check_distance,
	verdict_json, created_at`

// Get returns a single verdict by id.
func (s *VerdictStore) Get(verdictID string) (*VerdictRecord, error) {
	row := s.db.QueryRow(`SELECT `+verdictColumns+` FROM voe_verdicts WHERE verdict_id = ?`, verdictID)
	rec, err := scanVerdict(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, verdictID)
	}
	return rec, err
}

// ListByRun returns the verdicts of a run, oldest first.
func (s *VerdictStore) ListByRun(runID string) ([]*VerdictRecord, error) {
	return s.list(`SELECT `+verdictColumns+` FROM voe_verdicts WHERE run_id = ? ORDER BY created_at ASC, scene ASC`, runID)
}

// ListByScene returns every verdict for a scene, newest first.
func (s *VerdictStore) ListByScene(scene string) ([]*VerdictRecord, error) {
	return s.list(`SELECT `+verdictColumns+` FROM voe_verdicts WHERE scene = ? ORDER BY created_at DESC`, scene)
}

// Summary aggregates the verdicts of a run.
func (s *VerdictStore) Summary(runID string) (RunSummary, error) {
	sum := RunSummary{RunID: runID}
	err := s.db.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(implausible), 0),
		       COALESCE(SUM(inconclusive), 0),
		       COALESCE(SUM(degenerate), 0),
		       COALESCE(SUM(CASE WHEN cross_check_status = 'divergent' THEN 1 ELSE 0 END), 0)
		FROM voe_verdicts
		WHERE run_id = ?`, runID,
	).Scan(&sum.Total, &sum.Implausible, &sum.Inconclusive, &sum.Degenerate, &sum.Divergent)
	if err != nil {
		return RunSummary{}, fmt.Errorf("summarise run %s: %w", runID, err)
	}
	return sum, nil
}

// Delete removes a verdict by id.
func (s *VerdictStore) Delete(verdictID string) error {
	return retryOnBusy(func() error {
		result, err := s.db.Exec(`DELETE FROM voe_verdicts WHERE verdict_id = ?`, verdictID)
		if err != nil {
			return fmt.Errorf("delete verdict: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, verdictID)
		}
		return nil
	})
}

// Sink returns a gravity.PredictionSink that stores every verdict under
// runID. Step predictions are not persisted.
func (s *VerdictStore) Sink(runID string) gravity.PredictionSink {
	return storeSink{store: s, runID: runID}
}

type storeSink struct {
	store *VerdictStore
	runID string
}

func (storeSink) MakeStepPrediction(context.Context, gravity.StepPrediction) error { return nil }

func (s storeSink) EndScene(_ context.Context, v gravity.Verdict) error {
	_, err := s.store.RecordVerdict(s.runID, v)
	return err
}

func (s *VerdictStore) list(query string, arg string) ([]*VerdictRecord, error) {
	rows, err := s.db.Query(query, arg)
	if err != nil {
		return nil, fmt.Errorf("query verdicts: %w", err)
	}
	defer rows.Close()

	var out []*VerdictRecord
	for rows.Next() {
		rec, err := scanVerdict(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanVerdict(sc scanner) (*VerdictRecord, error) {
	var rec VerdictRecord
	var reason, verdictStr sql.NullString
	var distance sql.NullFloat64
	err := sc.Scan(
		&rec.VerdictID, &rec.RunID, &rec.Scene, &rec.Choice, &rec.Implausible, &rec.Confidence,
		&rec.Inconclusive, &reason, &rec.DropStep, &rec.PredictedStable, &rec.ActualStable,
		&rec.Degenerate, &rec.CrossCheckStatus, &distance,
		&verdictStr, &rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan verdict row: %w", err)
	}
	rec.Reason = reason.String
	rec.CrossCheckDistance = distance.Float64
	if verdictStr.Valid {
		rec.VerdictJSON = jsoniter.RawMessage(verdictStr.String)
	}
	return &rec, nil
}

// Verdict decodes the full verdict stored with the record.
func (r *VerdictRecord) Verdict() (gravity.Verdict, error) {
	var v gravity.Verdict
	if len(r.VerdictJSON) == 0 {
		return v, errors.New("verdict payload not stored")
	}
	if err := json.Unmarshal(r.VerdictJSON, &v); err != nil {
		return v, fmt.Errorf("decode verdict: %w", err)
	}
	return v, nil
}
