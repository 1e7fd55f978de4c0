// Package store persists optimization jobs and their scored results.
package store

import "gorm.io/datatypes"

// JobStatus tracks an optimization job through its lifecycle.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

type jobModel struct {
	ID         string         `gorm:"column:id;primaryKey"`
	Symbol     string         `gorm:"column:symbol;index"`
	Interval   string         `gorm:"column:interval"`
	Strategy   string         `gorm:"column:strategy"`
	Mode       string         `gorm:"column:mode"`
	Space      datatypes.JSON `gorm:"column:space"`
	Status     JobStatus      `gorm:"column:status;index"`
	Error      string         `gorm:"column:error"`
	CreatedAt  int64          `gorm:"column:created_at"`
	StartedAt  int64          `gorm:"column:started_at"`
	FinishedAt int64          `gorm:"column:finished_at"`
}

func (jobModel) TableName() string { return "optimize_jobs" }

type runResultModel struct {
	ID        int64          `gorm:"column:id;primaryKey;autoIncrement"`
	JobID     string         `gorm:"column:job_id;index"`
	Name      string         `gorm:"column:name"`
	Params    datatypes.JSON `gorm:"column:params"`
	Score     float64        `gorm:"column:score"`
	StartMs   int64          `gorm:"column:start_ms"`
	EndMs     int64          `gorm:"column:end_ms"`
	CreatedAt int64          `gorm:"column:created_at"`
}

func (runResultModel) TableName() string { return "run_results" }
