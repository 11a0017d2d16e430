package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/nexalink-api/internal/access"
	"github.com/noah-isme/nexalink-api/internal/dto"
	"github.com/noah-isme/nexalink-api/internal/models"
	appErrors "github.com/noah-isme/nexalink-api/pkg/errors"
)

type iaMarkWriter interface {
	GetComponent(ctx context.Context, id string) (*models.IAComponent, error)
	UpsertMark(ctx context.Context, mark *models.IAMark) error
}

type iaTotalLister interface {
	ListIATotals(ctx context.Context, filter models.RecordFilter) ([]models.IATotal, error)
}

// IAService records internal assessment marks.
type IAService struct {
	repo        iaMarkWriter
	enrollments enrollmentChecker
	students    studentChecker
	totals      iaTotalLister
	hooks       *RecordHooks
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
}

// IAServiceParams groups constructor dependencies.
type IAServiceParams struct {
	Repo        iaMarkWriter
	Enrollments enrollmentChecker
	Students    studentChecker
	Totals      iaTotalLister
	Hooks       *RecordHooks
	Metrics     *MetricsService
	Validator   *validator.Validate
	Logger      *zap.Logger
}

// NewIAService constructs the service.
func NewIAService(params IAServiceParams) *IAService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IAService{
		repo:        params.Repo,
		enrollments: params.Enrollments,
		students:    params.Students,
		totals:      params.Totals,
		hooks:       params.Hooks,
		metrics:     params.Metrics,
		validator:   wireValidator(params.Validator),
		logger:      logger,
	}
}

// BulkMarks upserts marks for one component and refreshes IA totals of its course.
func (s *IAService) BulkMarks(ctx context.Context, scope access.Scope, req dto.BulkIAMarksRequest) (*dto.BulkWriteResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	component, err := s.repo.GetComponent(ctx, req.ComponentID)
	if err != nil {
		return nil, notFoundOr(err, "IA component not found", "failed to load ia component")
	}
	if err := scope.AuthorizeCourseWrite(component.CourseID); err != nil {
		return nil, err
	}

	actor := scope.Subject()
	result := &dto.BulkWriteResponse{Errors: []models.BulkItemError{}, RecomputeErrors: []models.BulkItemError{}}
	written := make([]string, 0, len(req.Records))
	for _, item := range req.Records {
		marks := *item.Marks
		if marks < 0 || marks > component.MaxMarks {
			result.Errors = append(result.Errors, models.BulkItemError{
				StudentID: item.StudentID,
				Error:     fmt.Sprintf("Marks must be between 0 and %g.", component.MaxMarks),
			})
			continue
		}
		if msg := checkStudent(ctx, s.students, s.enrollments, s.logger, item.StudentID, component.CourseID); msg != "" {
			result.Errors = append(result.Errors, models.BulkItemError{StudentID: item.StudentID, Error: msg})
			continue
		}
		mark := &models.IAMark{
			StudentID:   item.StudentID,
			ComponentID: component.ID,
			Marks:       marks,
			MarkedBy:    &actor,
			Remarks:     item.Remarks,
		}
		if err := s.repo.UpsertMark(ctx, mark); err != nil {
			s.logger.Error("ia mark upsert failed", zap.String("component_id", component.ID), zap.String("student_id", item.StudentID), zap.Error(err))
			result.Errors = append(result.Errors, models.BulkItemError{StudentID: item.StudentID, Error: "Failed to record marks."})
			continue
		}
		written = append(written, item.StudentID)
	}
	result.CreatedCount = len(written)
	s.metrics.RecordBulkItems(models.ChangeIAMarks, result.CreatedCount, len(result.Errors))

	if len(written) > 0 {
		result.RecomputeErrors = s.hooks.Fire(ctx, models.RecordChange{
			Kind:       models.ChangeIAMarks,
			CourseID:   component.CourseID,
			StudentIDs: written,
			ActorID:    actor,
		})
	}
	return result, nil
}

// Totals lists cached IA totals within the caller's scope.
func (s *IAService) Totals(ctx context.Context, scope access.Scope, query dto.AnalyticsQuery) ([]models.IATotal, error) {
	filter, err := recordFilter(s.validator, query)
	if err != nil {
		return nil, err
	}
	filter, err = scope.Narrow(filter)
	if err != nil {
		return nil, err
	}
	rows, err := s.totals.ListIATotals(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list ia totals")
	}
	return rows, nil
}
