package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"backtune/internal/optimizer"
	"backtune/internal/params"
	"backtune/internal/timeframe"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Job is one persisted optimization request.
type Job struct {
	ID         string          `json:"id"`
	Symbol     string          `json:"symbol"`
	Interval   string          `json:"interval"`
	Strategy   string          `json:"strategy"`
	Mode       string          `json:"mode"`
	Space      params.SpaceDef `json:"space"`
	Status     JobStatus       `json:"status"`
	Error      string          `json:"error,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	StartedAt  time.Time       `json:"started_at,omitempty"`
	FinishedAt time.Time       `json:"finished_at,omitempty"`
}

// Result is one persisted trial outcome.
type Result struct {
	JobID     string              `json:"job_id"`
	Name      string              `json:"name"`
	Params    map[string]any      `json:"params"`
	Score     float64             `json:"score"`
	Timeframe timeframe.Timeframe `json:"timeframe"`
}

var ErrJobNotFound = errors.New("job not found")

// ResultStore keeps jobs and results in a gorm-managed sqlite file.
type ResultStore struct {
	db *gorm.DB
}

func NewResultStore(path string) (*ResultStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("result store requires a path")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&jobModel{}, &runResultModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite + WAL: a little parallelism for HTTP reads without lock churn.
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &ResultStore{db: db}, nil
}

func (s *ResultStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CreateJob persists a pending job and returns it with a fresh id.
func (s *ResultStore) CreateJob(ctx context.Context, job Job) (Job, error) {
	job.ID = uuid.NewString()
	job.Status = JobPending
	job.CreatedAt = time.Now()

	space, err := json.Marshal(job.Space)
	if err != nil {
		return Job{}, fmt.Errorf("encode job space: %w", err)
	}
	m := jobModel{
		ID:        job.ID,
		Symbol:    job.Symbol,
		Interval:  job.Interval,
		Strategy:  job.Strategy,
		Mode:      job.Mode,
		Space:     space,
		Status:    job.Status,
		CreatedAt: job.CreatedAt.UnixMilli(),
	}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return Job{}, fmt.Errorf("create job: %w", err)
	}
	return job, nil
}

// MarkRunning flips a job to running and stamps the start time.
func (s *ResultStore) MarkRunning(ctx context.Context, id string) error {
	return s.setStatus(ctx, id, map[string]any{
		"status":     JobRunning,
		"started_at": time.Now().UnixMilli(),
	})
}

// MarkFinished records completion or failure.
func (s *ResultStore) MarkFinished(ctx context.Context, id string, runErr error) error {
	updates := map[string]any{
		"status":      JobCompleted,
		"finished_at": time.Now().UnixMilli(),
	}
	if runErr != nil {
		updates["status"] = JobFailed
		updates["error"] = runErr.Error()
	}
	return s.setStatus(ctx, id, updates)
}

func (s *ResultStore) setStatus(ctx context.Context, id string, updates map[string]any) error {
	tx := s.db.WithContext(ctx).Model(&jobModel{}).Where("id = ?", id).Updates(updates)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrJobNotFound
	}
	return nil
}

// Job loads one job by id.
func (s *ResultStore) Job(ctx context.Context, id string) (Job, error) {
	var m jobModel
	err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Job{}, ErrJobNotFound
	}
	if err != nil {
		return Job{}, err
	}
	return jobFromModel(m)
}

// Jobs lists the most recent jobs, newest first.
func (s *ResultStore) Jobs(ctx context.Context, limit int) ([]Job, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var models []jobModel
	if err := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]Job, 0, len(models))
	for _, m := range models {
		job, err := jobFromModel(m)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, nil
}

func jobFromModel(m jobModel) (Job, error) {
	job := Job{
		ID:        m.ID,
		Symbol:    m.Symbol,
		Interval:  m.Interval,
		Strategy:  m.Strategy,
		Mode:      m.Mode,
		Status:    m.Status,
		Error:     m.Error,
		CreatedAt: time.UnixMilli(m.CreatedAt).UTC(),
	}
	if m.StartedAt > 0 {
		job.StartedAt = time.UnixMilli(m.StartedAt).UTC()
	}
	if m.FinishedAt > 0 {
		job.FinishedAt = time.UnixMilli(m.FinishedAt).UTC()
	}
	if len(m.Space) > 0 {
		if err := json.Unmarshal(m.Space, &job.Space); err != nil {
			return Job{}, fmt.Errorf("decode job space: %w", err)
		}
	}
	return job, nil
}

// InsertResults persists the outcome of every trial in one job.
func (s *ResultStore) InsertResults(ctx context.Context, jobID string, results []optimizer.RunResult) error {
	if len(results) == 0 {
		return nil
	}
	now := time.Now().UnixMilli()
	models := make([]runResultModel, 0, len(results))
	for _, r := range results {
		raw, err := json.Marshal(r.Params.Map())
		if err != nil {
			return fmt.Errorf("encode params for %s: %w", r.Name, err)
		}
		models = append(models, runResultModel{
			JobID:     jobID,
			Name:      r.Name,
			Params:    raw,
			Score:     r.Score,
			StartMs:   r.Timeframe.Start.UnixMilli(),
			EndMs:     r.Timeframe.End.UnixMilli(),
			CreatedAt: now,
		})
	}
	return s.db.WithContext(ctx).Create(&models).Error
}

// Results returns a job's trials ordered by score, best first.
func (s *ResultStore) Results(ctx context.Context, jobID string) ([]Result, error) {
	var models []runResultModel
	if err := s.db.WithContext(ctx).Where("job_id = ?", jobID).Order("score DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]Result, 0, len(models))
	for _, m := range models {
		var p map[string]any
		if len(m.Params) > 0 {
			if err := json.Unmarshal(m.Params, &p); err != nil {
				return nil, fmt.Errorf("decode params for %s: %w", m.Name, err)
			}
		}
		tf, err := timeframe.New(time.UnixMilli(m.StartMs).UTC(), time.UnixMilli(m.EndMs).UTC())
		if err != nil {
			return nil, err
		}
		out = append(out, Result{
			JobID:     m.JobID,
			Name:      m.Name,
			Params:    p,
			Score:     m.Score,
			Timeframe: tf,
		})
	}
	return out, nil
}
