package service

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/nexalink-api/internal/access"
	"github.com/noah-isme/nexalink-api/internal/dto"
	"github.com/noah-isme/nexalink-api/internal/models"
	"github.com/noah-isme/nexalink-api/internal/repository"
	appErrors "github.com/noah-isme/nexalink-api/pkg/errors"
	"github.com/noah-isme/nexalink-api/pkg/jobs"
)

type reportJobStore interface {
	Create(ctx context.Context, job *models.ReportJob) error
	GetByID(ctx context.Context, id string) (*models.ReportJob, error)
	ListByCreator(ctx context.Context, userID string, limit int) ([]models.ReportJob, error)
	Update(ctx context.Context, id string, params repository.UpdateReportJobParams) error
	ListQueued(ctx context.Context, limit int) ([]models.ReportJob, error)
	ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type exportGenerator interface {
	Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error)
}

// ReportService orchestrates analytics report job lifecycle management.
type ReportService struct {
	repo      reportJobStore
	queue     jobDispatcher
	exporter  *ExportService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ReportServiceConfig
}

// ReportServiceConfig governs queue recovery and cleanup.
type ReportServiceConfig struct {
	ResultTTL       time.Duration
	CleanupInterval time.Duration
	MaxRetries      int
	ListLimit       int
}

// ReportDownload aggregates resolved download data.
type ReportDownload struct {
	File      *os.File
	Filename  string
	Format    models.ReportFormat
	ExpiresAt time.Time
}

// NewReportService constructs the report service.
func NewReportService(repo reportJobStore, queue jobDispatcher, exporter *ExportService, validate *validator.Validate, logger *zap.Logger, cfg ReportServiceConfig) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.ListLimit <= 0 {
		cfg.ListLimit = 20
	}
	return &ReportService{
		repo:      repo,
		queue:     queue,
		exporter:  exporter,
		validator: wireValidator(validate),
		logger:    logger,
		cfg:       cfg,
	}
}

// CreateJob narrows the requested filters through the caller scope, persists the job and enqueues it.
func (s *ReportService) CreateJob(ctx context.Context, scope access.Scope, req dto.ReportRequest) (*dto.ReportJobResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	filter, err := recordFilter(s.validator, dto.AnalyticsQuery{
		CourseID:  req.CourseID,
		StudentID: req.StudentID,
		FacultyID: req.FacultyID,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	})
	if err != nil {
		return nil, err
	}
	filter, err = scope.Narrow(filter)
	if err != nil {
		return nil, err
	}

	job := &models.ReportJob{
		Type:      req.Type,
		Params:    reportParams(req.Format, scope.Role(), filter),
		Status:    models.ReportStatusQueued,
		Progress:  0,
		CreatedBy: scope.Subject(),
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Type)}); err != nil {
		status := models.ReportStatusFailed
		msg := "failed to enqueue job"
		now := time.Now().UTC()
		progress := 100
		_ = s.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
			Status:       &status,
			Progress:     &progress,
			ErrorMessage: &msg,
			FinishedAt:   &now,
		})
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue report job")
	}
	s.logger.Info("report job queued", zap.String("job_id", job.ID), zap.String("type", string(job.Type)), zap.String("created_by", job.CreatedBy))
	return &dto.ReportJobResponse{ID: job.ID, Status: job.Status, Progress: job.Progress}, nil
}

func reportParams(format models.ReportFormat, role models.UserRole, filter models.RecordFilter) models.ReportJobParams {
	params := models.ReportJobParams{
		Format:          format,
		Role:            role,
		CourseID:        filter.CourseID,
		StudentID:       filter.StudentID,
		FacultyID:       filter.FacultyID,
		UserID:          filter.UserID,
		RestrictCourses: filter.RestrictCourses,
		CourseIDs:       filter.CourseIDs,
	}
	if filter.DateFrom != nil {
		params.DateFrom = filter.DateFrom.Format(dateLayout)
	}
	if filter.DateTo != nil {
		params.DateTo = filter.DateTo.Format(dateLayout)
	}
	return params
}

// GetStatus exposes job metadata. Only admins may read jobs they did not create.
func (s *ReportService) GetStatus(ctx context.Context, scope access.Scope, id string) (*dto.ReportStatusResponse, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "report not found", "failed to load report job")
	}
	if !scope.SeesAllUsers() && job.CreatedBy != scope.Subject() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "report belongs to another user")
	}
	return toReportStatus(job), nil
}

// List returns the caller's most recent report jobs.
func (s *ReportService) List(ctx context.Context, scope access.Scope) ([]dto.ReportStatusResponse, error) {
	list, err := s.repo.ListByCreator(ctx, scope.Subject(), s.cfg.ListLimit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list report jobs")
	}
	out := make([]dto.ReportStatusResponse, 0, len(list))
	for i := range list {
		out = append(out, *toReportStatus(&list[i]))
	}
	return out, nil
}

func toReportStatus(job *models.ReportJob) *dto.ReportStatusResponse {
	resp := &dto.ReportStatusResponse{
		ID:         job.ID,
		Type:       job.Type,
		Status:     job.Status,
		Progress:   job.Progress,
		ResultURL:  job.ResultURL,
		CreatedAt:  job.CreatedAt,
		FinishedAt: job.FinishedAt,
	}
	if job.ErrorMessage != nil && *job.ErrorMessage != "" {
		resp.Error = job.ErrorMessage
	}
	return resp
}

// ResolveDownload validates token and opens the stored export file.
func (s *ReportService) ResolveDownload(ctx context.Context, token string) (*ReportDownload, error) {
	jobID, relPath, expiresAt, err := s.exporter.ParseToken(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report job")
	}
	if job.ResultURL == nil || !strings.HasSuffix(*job.ResultURL, token) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	if job.Status != models.ReportStatusFinished {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "report not ready")
	}
	file, err := s.exporter.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	return &ReportDownload{
		File:      file,
		Filename:  filepath.Base(relPath),
		Format:    job.Params.Format,
		ExpiresAt: expiresAt,
	}, nil
}

// RecoverPendingJobs replays queued jobs after a process restart.
func (s *ReportService) RecoverPendingJobs(ctx context.Context) {
	pending, err := s.repo.ListQueued(ctx, 50)
	if err != nil {
		s.logger.Warn("failed to recover queued report jobs", zap.Error(err))
		return
	}
	for _, job := range pending {
		if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Type)}); err != nil {
			s.logger.Warn("failed to requeue pending job", zap.String("job_id", job.ID), zap.Error(err))
		}
	}
}

// StartCleanup boots a goroutine that purges expired exports periodically.
func (s *ReportService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.cleanupExpired(ctx)
			}
		}
	}()
}

func (s *ReportService) cleanupExpired(ctx context.Context) {
	const batch = 100
	cutoff := time.Now().Add(-s.cfg.ResultTTL)
	list, err := s.repo.ListFinishedBefore(ctx, cutoff, batch)
	if err != nil {
		s.logger.Warn("cleanup list failed", zap.Error(err))
		return
	}
	for _, job := range list {
		if job.ResultURL == nil {
			continue
		}
		token := extractToken(*job.ResultURL)
		if token == "" {
			continue
		}
		_, relPath, _, err := s.exporter.ParseToken(token, true)
		if err != nil {
			continue
		}
		if err := s.exporter.Delete(relPath); err != nil {
			s.logger.Warn("cleanup delete failed", zap.String("job_id", job.ID), zap.Error(err))
		}
	}
	removed, err := s.exporter.Cleanup(s.cfg.ResultTTL)
	if err != nil {
		s.logger.Warn("filesystem cleanup failed", zap.Error(err))
		return
	}
	if len(removed) > 0 {
		s.logger.Info("expired exports removed", zap.Int("files", len(removed)))
	}
}

func extractToken(url string) string {
	if url == "" {
		return ""
	}
	parts := strings.Split(url, "/")
	return parts[len(parts)-1]
}

// ReportWorker bridges queue jobs to ExportService.
type ReportWorker struct {
	repo       reportJobStore
	exporter   exportGenerator
	logger     *zap.Logger
	maxRetries int
}

// NewReportWorker constructs a worker.
func NewReportWorker(repo reportJobStore, exporter exportGenerator, maxRetries int, logger *zap.Logger) *ReportWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &ReportWorker{
		repo:       repo,
		exporter:   exporter,
		logger:     logger,
		maxRetries: maxRetries,
	}
}

// Handle processes a queue job. Failures below the retry ceiling put the job back to QUEUED.
func (w *ReportWorker) Handle(ctx context.Context, job jobs.Job) error {
	record, err := w.repo.GetByID(ctx, job.ID)
	if err != nil {
		return err
	}
	processing := models.ReportStatusProcessing
	progress := 10
	if err := w.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
		Status:   &processing,
		Progress: &progress,
	}); err != nil {
		return err
	}
	result, err := w.exporter.Generate(ctx, record)
	if err != nil {
		w.fail(ctx, job, err)
		return err
	}
	finished := models.ReportStatusFinished
	progress = 100
	now := time.Now().UTC()
	url := result.URL
	clear := ""
	if err := w.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
		Status:       &finished,
		Progress:     &progress,
		ResultURL:    &url,
		ErrorMessage: &clear,
		FinishedAt:   &now,
	}); err != nil {
		w.logger.Warn("failed to mark job finished", zap.String("job_id", job.ID), zap.Error(err))
		return err
	}
	return nil
}

func (w *ReportWorker) fail(ctx context.Context, job jobs.Job, cause error) {
	msg := cause.Error()
	params := repository.UpdateReportJobParams{ErrorMessage: &msg}
	if job.Attempt >= w.maxRetries {
		failed := models.ReportStatusFailed
		progress := 100
		now := time.Now().UTC()
		params.Status, params.Progress, params.FinishedAt = &failed, &progress, &now
	} else {
		queued := models.ReportStatusQueued
		reset := 0
		params.Status, params.Progress = &queued, &reset
	}
	if err := w.repo.Update(ctx, job.ID, params); err != nil {
		w.logger.Warn("failed to record job failure", zap.String("job_id", job.ID), zap.Error(err))
	}
}
