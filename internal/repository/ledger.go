package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tigerroll/nsrdb2epw/pkg/batch/adapter/database"
	"github.com/tigerroll/nsrdb2epw/pkg/batch/support/util/exception"
)

const moduleName = "ledger"

// Ledger records conversion runs and their units.
type Ledger interface {
	StartRun(ctx context.Context, run RunRecord) error
	RecordUnit(ctx context.Context, unit UnitRecord) error
	FinishRun(ctx context.Context, runID string, summary RunSummary) error
	FindRun(ctx context.Context, runID string) (RunRecord, error)
	FindUnits(ctx context.Context, runID string) ([]UnitRecord, error)
}

// GormLedger is the database-backed Ledger.
type GormLedger struct {
	db *gorm.DB
}

var _ Ledger = (*GormLedger)(nil)

// NewGormLedger migrates the schema on conn and returns a ledger over it.
func NewGormLedger(ctx context.Context, conn database.DBConnection) (*GormLedger, error) {
	if err := NewMigrator(conn).Up(ctx); err != nil {
		return nil, exception.IO(moduleName, "failed to migrate ledger schema", err)
	}
	return &GormLedger{db: conn.GormDB()}, nil
}

// StartRun inserts the run row.
func (l *GormLedger) StartRun(ctx context.Context, run RunRecord) error {
	if run.Status == "" {
		run.Status = StatusStarted
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	if err := l.db.WithContext(ctx).Create(&run).Error; err != nil {
		return exception.IO(moduleName, fmt.Sprintf("failed to record run %s", run.ID), err)
	}
	return nil
}

// RecordUnit upserts a unit row. Recording the same unit twice keeps the latest outcome.
func (l *GormLedger) RecordUnit(ctx context.Context, unit UnitRecord) error {
	if unit.RecordedAt.IsZero() {
		unit.RecordedAt = time.Now().UTC()
	}
	err := l.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "run_id"}, {Name: "year"}, {Name: "group_index"}},
		UpdateAll: true,
	}).Create(&unit).Error
	if err != nil {
		return exception.IO(moduleName, fmt.Sprintf("failed to record unit %s/%d of run %s", unit.Year, unit.GroupIndex, unit.RunID), err)
	}
	return nil
}

// FinishRun stores the final counters and status.
func (l *GormLedger) FinishRun(ctx context.Context, runID string, s RunSummary) error {
	if s.FinishedAt.IsZero() {
		s.FinishedAt = time.Now().UTC()
	}
	res := l.db.WithContext(ctx).Model(&RunRecord{}).Where("id = ?", runID).Updates(map[string]interface{}{
		"status":        s.Status,
		"points":        s.Points,
		"units":         s.Units,
		"written":       s.Written,
		"failures":      s.Failures,
		"error_message": s.ErrorMessage,
		"finished_at":   s.FinishedAt,
	})
	if res.Error != nil {
		return exception.IO(moduleName, fmt.Sprintf("failed to finish run %s", runID), res.Error)
	}
	if res.RowsAffected == 0 {
		return exception.Newf(exception.KindIO, moduleName, "run %s not found", runID)
	}
	return nil
}

// FindRun loads a run row.
func (l *GormLedger) FindRun(ctx context.Context, runID string) (RunRecord, error) {
	var run RunRecord
	if err := l.db.WithContext(ctx).Where("id = ?", runID).First(&run).Error; err != nil {
		return RunRecord{}, exception.IO(moduleName, fmt.Sprintf("failed to load run %s", runID), err)
	}
	return run, nil
}

// FindUnits loads the unit rows of a run ordered by year and group.
func (l *GormLedger) FindUnits(ctx context.Context, runID string) ([]UnitRecord, error) {
	var units []UnitRecord
	err := l.db.WithContext(ctx).Where("run_id = ?", runID).Order("year, group_index").Find(&units).Error
	if err != nil {
		return nil, exception.IO(moduleName, fmt.Sprintf("failed to load units of run %s", runID), err)
	}
	return units, nil
}

// NoOpLedger discards everything. It is used when the ledger is disabled.
type NoOpLedger struct{}

var _ Ledger = NoOpLedger{}

func (NoOpLedger) StartRun(context.Context, RunRecord) error { return nil }
func (NoOpLedger) RecordUnit(context.Context, UnitRecord) error { return nil }
func (NoOpLedger) FinishRun(context.Context, string, RunSummary) error { return nil }
func (NoOpLedger) FindRun(_ context.Context, runID string) (RunRecord, error) {
	return RunRecord{}, exception.Newf(exception.KindIO, moduleName, "ledger disabled, run %s not recorded", runID)
}
func (NoOpLedger) FindUnits(context.Context, string) ([]UnitRecord, error) { return nil, nil }
