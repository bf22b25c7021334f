package database

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tienminhktvn/dataops-project/dag"
	apperrors "github.com/tienminhktvn/dataops-project/errors"
)

// RunRecord is the persisted summary of one pipeline run.
type RunRecord struct {
	ID            string    `gorm:"primaryKey;size:64"`
	PipelineID    string    `gorm:"size:128;index"`
	LogicalDate   time.Time `gorm:"index"`
	Trigger       string    `gorm:"size:32"`
	Status        string    `gorm:"size:16"`
	FailedTask    string    `gorm:"size:128"`
	FailureDetail string    `gorm:"type:text"`
	GateDetail    string    `gorm:"type:text"`
	StartedAt     time.Time
	FinishedAt    time.Time
	DurationSecs  float64
	// Tasks holds the JSON encoded task attempts.
	Tasks     string `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName keeps the table name stable across gorm naming strategies.
func (RunRecord) TableName() string { return "dataops_runs" }

// RunStore persists run records.
type RunStore struct {
	db *DB
}

// NewRunStore creates a store over db.
func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db}
}

// Migrate creates or updates the run table.
func (s *RunStore) Migrate() error {
	return s.db.AutoMigrate(&RunRecord{})
}

// Save inserts rec or replaces the stored record with the same id.
func (s *RunStore) Save(ctx context.Context, rec RunRecord) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&rec).Error
	if err != nil {
		return FromDatabase(err)
	}
	return nil
}

// Get returns the record with id.
func (s *RunStore) Get(ctx context.Context, id string) (RunRecord, error) {
	var rec RunRecord
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return RunRecord{}, apperrors.NotFound("run", id)
	}
	if err != nil {
		return RunRecord{}, FromDatabase(err)
	}
	return rec, nil
}

// List returns up to limit records for pipelineID, newest first.
func (s *RunStore) List(ctx context.Context, pipelineID string, limit int) ([]RunRecord, error) {
	q := s.db.WithContext(ctx).Order("started_at DESC")
	if pipelineID != "" {
		q = q.Where("pipeline_id = ?", pipelineID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var recs []RunRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, FromDatabase(err)
	}
	return recs, nil
}

// RecordFromSnapshot flattens snap into a storable record.
func RecordFromSnapshot(snap dag.RunSnapshot) (RunRecord, error) {
	tasks, err := json.Marshal(snap.Tasks)
	if err != nil {
		return RunRecord{}, apperrors.Internal(err).WithDetail("run_id", snap.ID)
	}
	return RunRecord{
		ID:            snap.ID,
		PipelineID:    snap.PipelineID,
		LogicalDate:   snap.LogicalDate,
		Trigger:       snap.Trigger,
		Status:        string(snap.Status),
		FailedTask:    snap.FailedTask,
		FailureDetail: snap.FailureDetail,
		GateDetail:    snap.GateDetail,
		StartedAt:     snap.StartedAt,
		FinishedAt:    snap.FinishedAt,
		DurationSecs:  snap.DurationSecs,
		Tasks:         string(tasks),
	}, nil
}

// Snapshot restores the run snapshot stored in r.
func (r RunRecord) Snapshot() (dag.RunSnapshot, error) {
	snap := dag.RunSnapshot{
		ID:            r.ID,
		PipelineID:    r.PipelineID,
		LogicalDate:   r.LogicalDate,
		Trigger:       r.Trigger,
		Status:        dag.RunStatus(r.Status),
		StartedAt:     r.StartedAt,
		FinishedAt:    r.FinishedAt,
		DurationSecs:  r.DurationSecs,
		FailedTask:    r.FailedTask,
		FailureDetail: r.FailureDetail,
		GateDetail:    r.GateDetail,
	}
	if r.Tasks != "" {
		if err := json.Unmarshal([]byte(r.Tasks), &snap.Tasks); err != nil {
			return snap, apperrors.Internal(err).WithDetail("run_id", r.ID)
		}
	}
	return snap, nil
}

// SaveRun stores snap, replacing an earlier snapshot of the same run.
func (s *RunStore) SaveRun(ctx context.Context, snap dag.RunSnapshot) error {
	rec, err := RecordFromSnapshot(snap)
	if err != nil {
		return err
	}
	return s.Save(ctx, rec)
}

// GetRun returns the stored snapshot of run id.
func (s *RunStore) GetRun(ctx context.Context, id string) (dag.RunSnapshot, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return dag.RunSnapshot{}, err
	}
	return rec.Snapshot()
}

// ListRuns returns up to limit snapshots for pipelineID, newest first.
func (s *RunStore) ListRuns(ctx context.Context, pipelineID string, limit int) ([]dag.RunSnapshot, error) {
	recs, err := s.List(ctx, pipelineID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]dag.RunSnapshot, 0, len(recs))
	for _, rec := range recs {
		snap, err := rec.Snapshot()
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, nil
}
