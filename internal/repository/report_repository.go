package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/nexalink-api/internal/models"
)

// ReportRepository persists analytics report job metadata.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

const reportColumns = `id, type, params, status, progress, result_url, created_by, created_at, finished_at, error_message`

// Create inserts a queued job.
func (r *ReportRepository) Create(ctx context.Context, job *models.ReportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = models.ReportStatusQueued
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO analytics_reports (` + reportColumns + `)
VALUES (:id, :type, :params, :status, :progress, :result_url, :created_by, :created_at, :finished_at, :error_message)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create analytics report: %w", err)
	}
	return nil
}

// GetByID returns a job by id.
func (r *ReportRepository) GetByID(ctx context.Context, id string) (*models.ReportJob, error) {
	const query = `SELECT ` + reportColumns + ` FROM analytics_reports WHERE id = $1`
	var job models.ReportJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, fmt.Errorf("get analytics report: %w", err)
	}
	return &job, nil
}

// ListByCreator returns the newest jobs submitted by a user.
func (r *ReportRepository) ListByCreator(ctx context.Context, userID string, limit int) ([]models.ReportJob, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `SELECT ` + reportColumns + ` FROM analytics_reports WHERE created_by = $1 ORDER BY created_at DESC LIMIT $2`
	jobs := make([]models.ReportJob, 0)
	if err := r.db.SelectContext(ctx, &jobs, query, userID, limit); err != nil {
		return nil, fmt.Errorf("list analytics reports: %w", err)
	}
	return jobs, nil
}

// UpdateReportJobParams defines the mutable fields. Nil fields are left untouched.
type UpdateReportJobParams struct {
	Status       *models.ReportStatus
	Progress     *int
	ResultURL    *string
	ErrorMessage *string
	FinishedAt   *time.Time
}

// Update persists the provided changes for a job.
func (r *ReportRepository) Update(ctx context.Context, id string, params UpdateReportJobParams) error {
	set := &whereBuilder{}
	if params.Status != nil {
		set.add("status = $%d", *params.Status)
	}
	if params.Progress != nil {
		set.add("progress = $%d", *params.Progress)
	}
	if params.ResultURL != nil {
		set.add("result_url = $%d", *params.ResultURL)
	}
	if params.ErrorMessage != nil {
		set.add("error_message = $%d", *params.ErrorMessage)
	}
	if params.FinishedAt != nil {
		set.add("finished_at = $%d", *params.FinishedAt)
	}
	if len(set.conditions) == 0 {
		return nil
	}

	query := fmt.Sprintf("UPDATE analytics_reports SET %s WHERE id = $%d", strings.Join(set.conditions, ", "), len(set.args)+1)
	args := append(set.args, id)
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update analytics report: %w", err)
	}
	return nil
}

// ListQueued fetches queued jobs for re-enqueueing after a restart.
func (r *ReportRepository) ListQueued(ctx context.Context, limit int) ([]models.ReportJob, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `SELECT ` + reportColumns + ` FROM analytics_reports WHERE status = 'QUEUED' ORDER BY created_at ASC LIMIT $1`
	jobs := make([]models.ReportJob, 0)
	if err := r.db.SelectContext(ctx, &jobs, query, limit); err != nil {
		return nil, fmt.Errorf("list queued analytics reports: %w", err)
	}
	return jobs, nil
}

// ListFinishedBefore retrieves completed jobs prior to cutoff for cleanup.
func (r *ReportRepository) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `SELECT ` + reportColumns + ` FROM analytics_reports WHERE status = 'FINISHED' AND finished_at IS NOT NULL AND finished_at < $1 ORDER BY finished_at ASC LIMIT $2`
	jobs := make([]models.ReportJob, 0)
	if err := r.db.SelectContext(ctx, &jobs, query, cutoff, limit); err != nil {
		return nil, fmt.Errorf("list finished analytics reports: %w", err)
	}
	return jobs, nil
}
