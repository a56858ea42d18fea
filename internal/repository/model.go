// Package repository keeps the run ledger: one row per conversion run and
// one row per retrieval unit, so a finished (or interrupted) run can be
// audited after the fact.
package repository

import "time"

// Run statuses.
const (
	StatusStarted   = "STARTED"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

// Unit statuses.
const (
	UnitWritten   = "WRITTEN"
	UnitSubmitted = "SUBMITTED"
	UnitFailed    = "FAILED"
)

// RunRecord is a row of conversion_runs.
type RunRecord struct {
	ID           string `gorm:"primaryKey;size:36"`
	Command      string
	Dataset      string
	Mode         string
	Geometry     string
	Status       string
	Points       int
	Units        int
	Written      int
	Failures     int
	ErrorMessage string
	StartedAt    time.Time
	FinishedAt   *time.Time
}

// TableName implements gorm's tabler.
func (RunRecord) TableName() string { return "conversion_runs" }

// UnitRecord is a row of conversion_units.
type UnitRecord struct {
	RunID           string `gorm:"primaryKey;size:36"`
	Year            string `gorm:"primaryKey;size:16"`
	GroupIndex      int    `gorm:"primaryKey;autoIncrement:false"`
	PointIDs        string `gorm:"column:point_ids"`
	Status          string
	ErrorKind       string
	ErrorMessage    string
	SourceLocation  string
	OutputLocation  string
	ParquetLocation string
	DownloadURL     string
	RecordedAt      time.Time
}

// TableName implements gorm's tabler.
func (UnitRecord) TableName() string { return "conversion_units" }

// RunSummary is what FinishRun stores when a run ends.
type RunSummary struct {
	Status       string
	Points       int
	Units        int
	Written      int
	Failures     int
	ErrorMessage string
	FinishedAt   time.Time
}
