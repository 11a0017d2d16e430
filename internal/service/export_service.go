package service

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/nexalink-api/internal/dto"
	"github.com/noah-isme/nexalink-api/internal/models"
	"github.com/noah-isme/nexalink-api/pkg/export"
	"github.com/noah-isme/nexalink-api/pkg/storage"
)

type reportSource interface {
	AttendanceFor(ctx context.Context, filter models.RecordFilter, vis Visibility) (*dto.AttendanceAnalytics, error)
	PerformanceFor(ctx context.Context, filter models.RecordFilter, vis Visibility) (*dto.PerformanceAnalytics, error)
	EngagementFor(ctx context.Context, filter models.RecordFilter, vis Visibility) (*dto.EngagementAnalytics, error)
	FeedbackFor(ctx context.Context, filter models.RecordFilter, vis Visibility) (*dto.FeedbackAnalytics, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportService renders analytics reports and persists them behind signed download tokens.
type ExportService struct {
	analytics reportSource
	storage   fileStorage
	csv       csvRenderer
	pdf       pdfRenderer
	signer    *storage.SignedURLSigner
	logger    *zap.Logger
	cfg       ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(analytics reportSource, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		analytics: analytics,
		storage:   store,
		csv:       csv,
		pdf:       pdf,
		signer:    signer,
		logger:    logger,
		cfg:       cfg,
	}
}

// Generate computes the report with the visibility captured at submission, renders and stores it.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	dataset, title, err := s.buildDataset(ctx, job)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	relPath, err := s.storage.Save(reportFilename(job, time.Now().UTC()), payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	s.logger.Debug("report rendered", zap.String("job_id", job.ID), zap.String("path", relPath), zap.Int("rows", len(dataset.Rows)))

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/reports/download/%s", prefix, token),
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl, defaulting to the configured ResultTTL.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func reportFilename(job *models.ReportJob, now time.Time) string {
	scope := job.Params.CourseID
	if scope == "" {
		scope = string(job.Params.Role)
	}
	return fmt.Sprintf("%s_%s_%s_%s.%s",
		strings.ToLower(string(job.Type)),
		sanitizeFilename(scope),
		now.Format("20060102_150405"),
		shortID(job.ID),
		job.Params.Format,
	)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	if id == "" {
		return "job"
	}
	return id
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "all"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ReportJob) (export.Dataset, string, error) {
	filter, err := job.Params.Filter()
	if err != nil {
		return export.Dataset{}, "", err
	}
	vis := VisibilityForRole(job.Params.Role)
	title := reportTitle(job)

	switch job.Type {
	case models.ReportTypeAttendance:
		result, err := s.analytics.AttendanceFor(ctx, filter, vis)
		if err != nil {
			return export.Dataset{}, "", err
		}
		return attendanceDataset(result), title, nil
	case models.ReportTypePerformance:
		result, err := s.analytics.PerformanceFor(ctx, filter, vis)
		if err != nil {
			return export.Dataset{}, "", err
		}
		return performanceDataset(result), title, nil
	case models.ReportTypeEngagement:
		result, err := s.analytics.EngagementFor(ctx, filter, vis)
		if err != nil {
			return export.Dataset{}, "", err
		}
		return engagementDataset(result), title, nil
	case models.ReportTypeFeedback:
		result, err := s.analytics.FeedbackFor(ctx, filter, vis)
		if err != nil {
			return export.Dataset{}, "", err
		}
		return feedbackDataset(result), title, nil
	default:
		return export.Dataset{}, "", fmt.Errorf("unsupported report type %s", job.Type)
	}
}

func reportTitle(job *models.ReportJob) string {
	name := string(job.Type)
	if name != "" {
		name = strings.ToUpper(name[:1]) + name[1:]
	}
	parts := []string{name + " Report"}
	if job.Params.DateFrom != "" || job.Params.DateTo != "" {
		parts = append(parts, fmt.Sprintf("%s to %s", orDash(job.Params.DateFrom), orDash(job.Params.DateTo)))
	}
	return strings.Join(parts, " ")
}

func orDash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}

func formatPct(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

var attendanceHeaders = []string{"Section", "Group", "Total", "Present", "Absent", "Late", "Present (%)"}

func attendanceRow(section, group string, st dto.AttendanceStatistics) map[string]string {
	return map[string]string{
		"Section":     section,
		"Group":       group,
		"Total":       strconv.Itoa(st.Total),
		"Present":     strconv.Itoa(st.Present),
		"Absent":      strconv.Itoa(st.Absent),
		"Late":        strconv.Itoa(st.Late),
		"Present (%)": formatPct(st.PresentPercentage),
	}
}

func attendanceDataset(a *dto.AttendanceAnalytics) export.Dataset {
	rows := []map[string]string{attendanceRow("Overall", "All", a.Overall)}
	for _, row := range a.ByDate {
		rows = append(rows, attendanceRow("Date", row.Date, row.AttendanceStatistics))
	}
	if a.ByCourse != nil {
		for _, row := range *a.ByCourse {
			rows = append(rows, attendanceRow("Course", row.CourseCode, row.AttendanceStatistics))
		}
	}
	if a.ByStudent != nil {
		for _, row := range *a.ByStudent {
			rows = append(rows, attendanceRow("Student", labelOr(row.StudentName, row.StudentID), row.AttendanceStatistics))
		}
	}
	return export.Dataset{Headers: attendanceHeaders, Rows: rows}
}

var performanceHeaders = []string{"Section", "Group", "Count", "Average (%)", "Minimum (%)", "Maximum (%)"}

func performanceDataset(p *dto.PerformanceAnalytics) export.Dataset {
	rows := []map[string]string{{
		"Section":     "Overall",
		"Group":       "All",
		"Count":       strconv.Itoa(p.Overall.Total),
		"Average (%)": formatPct(p.Overall.AvgScore),
		"Minimum (%)": formatPct(p.Overall.MinScore),
		"Maximum (%)": formatPct(p.Overall.MaxScore),
	}}
	for _, row := range p.ByType {
		rows = append(rows, map[string]string{
			"Section":     "Type",
			"Group":       string(row.ScoreType),
			"Count":       strconv.Itoa(row.Count),
			"Average (%)": formatPct(row.AvgScore),
			"Minimum (%)": formatPct(row.MinScore),
			"Maximum (%)": formatPct(row.MaxScore),
		})
	}
	for _, row := range p.ByDate {
		rows = append(rows, map[string]string{"Section": "Date", "Group": row.Date, "Count": strconv.Itoa(row.Count), "Average (%)": formatPct(row.AvgScore)})
	}
	if p.ByCourse != nil {
		for _, row := range *p.ByCourse {
			rows = append(rows, map[string]string{"Section": "Course", "Group": row.CourseCode, "Count": strconv.Itoa(row.Count), "Average (%)": formatPct(row.AvgScore)})
		}
	}
	if p.ByStudent != nil {
		for _, row := range *p.ByStudent {
			rows = append(rows, map[string]string{"Section": "Student", "Group": labelOr(row.StudentName, row.StudentID), "Count": strconv.Itoa(row.Count), "Average (%)": formatPct(row.AvgScore)})
		}
	}
	return export.Dataset{Headers: performanceHeaders, Rows: rows}
}

var engagementHeaders = []string{"Section", "Group", "Count"}

func engagementDataset(e *dto.EngagementAnalytics) export.Dataset {
	rows := []map[string]string{
		{"Section": "Overall", "Group": "Records", "Count": strconv.Itoa(e.Overall.TotalRecords)},
		{"Section": "Overall", "Group": "Unique users", "Count": strconv.Itoa(e.Overall.UniqueUsers)},
		{"Section": "Overall", "Group": "Unique actions", "Count": strconv.Itoa(e.Overall.UniqueActions)},
	}
	for _, row := range e.ByAction {
		rows = append(rows, map[string]string{"Section": "Action", "Group": row.Action, "Count": strconv.Itoa(row.Count)})
	}
	for _, row := range e.ByUserType {
		rows = append(rows, map[string]string{"Section": "User type", "Group": row.UserType, "Count": strconv.Itoa(row.Count)})
	}
	for _, row := range e.ByHour {
		rows = append(rows, map[string]string{"Section": "Hour", "Group": fmt.Sprintf("%02d:00", row.Hour), "Count": strconv.Itoa(row.Count)})
	}
	for _, row := range e.ByDay {
		rows = append(rows, map[string]string{"Section": "Weekday", "Group": time.Weekday(row.Day).String(), "Count": strconv.Itoa(row.Count)})
	}
	if e.TopUsers != nil {
		for _, row := range *e.TopUsers {
			rows = append(rows, map[string]string{"Section": "Top user", "Group": labelOr(row.Email, row.UserID), "Count": strconv.Itoa(row.Count)})
		}
	}
	return export.Dataset{Headers: engagementHeaders, Rows: rows}
}

var feedbackHeaders = []string{"Section", "Group", "Count", "Average Rating", "Share (%)"}

func feedbackDataset(f *dto.FeedbackAnalytics) export.Dataset {
	rows := []map[string]string{{
		"Section":        "Overall",
		"Group":          "All",
		"Count":          strconv.Itoa(f.Overall.TotalFeedback),
		"Average Rating": formatPct(f.Overall.AvgRating),
	}}
	for _, row := range f.BySentiment {
		rows = append(rows, map[string]string{"Section": "Sentiment", "Group": row.Sentiment, "Count": strconv.Itoa(row.Count), "Average Rating": formatPct(row.AvgRating)})
	}
	if f.ByCourse != nil {
		for _, row := range *f.ByCourse {
			rows = append(rows, map[string]string{"Section": "Course", "Group": row.CourseCode, "Count": strconv.Itoa(row.Count), "Average Rating": formatPct(row.AvgRating)})
		}
	}
	if f.ByFaculty != nil {
		for _, row := range *f.ByFaculty {
			rows = append(rows, map[string]string{"Section": "Faculty", "Group": labelOr(row.FacultyName, row.FacultyID), "Count": strconv.Itoa(row.Count), "Average Rating": formatPct(row.AvgRating)})
		}
	}
	for _, row := range f.ByStatus {
		rows = append(rows, map[string]string{"Section": "Status", "Group": row.Status, "Count": strconv.Itoa(row.Count), "Share (%)": formatPct(row.Percentage)})
	}
	for _, row := range f.ByRating {
		rows = append(rows, map[string]string{"Section": "Rating", "Group": strconv.Itoa(row.Rating), "Count": strconv.Itoa(row.Count), "Share (%)": formatPct(row.Percentage)})
	}
	return export.Dataset{Headers: feedbackHeaders, Rows: rows}
}

func labelOr(label, fallback string) string {
	if strings.TrimSpace(label) == "" {
		return fallback
	}
	return label
}
