package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-attendance-api/internal/models"
	appErrors "github.com/noah-isme/campus-attendance-api/pkg/errors"
	"github.com/noah-isme/campus-attendance-api/pkg/export"
)

type reportAttendanceRepository interface {
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceDetail, error)
	GroupStats(ctx context.Context, groupID string, rng models.DateRange) (*models.GroupAttendanceStats, error)
	GroupsStats(ctx context.Context, rng models.DateRange) ([]models.GroupAttendanceStats, error)
	SubjectStats(ctx context.Context, subjectID string, rng models.DateRange) (*models.SubjectAttendanceStats, error)
	SubjectsStats(ctx context.Context, rng models.DateRange) ([]models.SubjectAttendanceStats, error)
	OverallStats(ctx context.Context, rng models.DateRange) (*models.OverallStats, error)
}

// ExportFormat selects the report rendering backend.
type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportXLSX ExportFormat = "xlsx"
	ExportPDF  ExportFormat = "pdf"
)

// ExportFile is a rendered report ready to stream to the client.
type ExportFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// ReportService builds aggregated attendance views and renders exports.
// Aggregates are cached in redis for a short TTL; a nil client disables
// caching.
type ReportService struct {
	repo     reportAttendanceRepository
	cache    *redis.Client
	cacheTTL time.Duration
	csv      *export.CSVExporter
	xlsx     *export.XLSXExporter
	pdf      *export.PDFExporter
	logger   *zap.Logger
}

// NewReportService creates an instance of ReportService.
func NewReportService(repo reportAttendanceRepository, cache *redis.Client, cacheTTL time.Duration, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		repo:     repo,
		cache:    cache,
		cacheTTL: cacheTTL,
		csv:      export.NewCSVExporter(),
		xlsx:     export.NewXLSXExporter(),
		pdf:      export.NewPDFExporter(),
		logger:   logger,
	}
}

// GroupStats returns cached per-group aggregates.
func (s *ReportService) GroupStats(ctx context.Context, groupID string, rng models.DateRange) (*models.GroupAttendanceStats, error) {
	key := statsKey("group", groupID, rng)
	var cached models.GroupAttendanceStats
	if s.readCache(ctx, key, &cached) {
		return &cached, nil
	}

	stats, err := s.repo.GroupStats(ctx, groupID, rng)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group stats")
	}
	s.writeCache(ctx, key, stats)
	return stats, nil
}

// GroupsStats returns aggregates for every group.
func (s *ReportService) GroupsStats(ctx context.Context, rng models.DateRange) ([]models.GroupAttendanceStats, error) {
	key := statsKey("groups", "", rng)
	var cached []models.GroupAttendanceStats
	if s.readCache(ctx, key, &cached) {
		return cached, nil
	}

	stats, err := s.repo.GroupsStats(ctx, rng)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load groups stats")
	}
	s.writeCache(ctx, key, stats)
	return stats, nil
}

// SubjectStats returns cached per-subject aggregates.
func (s *ReportService) SubjectStats(ctx context.Context, subjectID string, rng models.DateRange) (*models.SubjectAttendanceStats, error) {
	key := statsKey("subject", subjectID, rng)
	var cached models.SubjectAttendanceStats
	if s.readCache(ctx, key, &cached) {
		return &cached, nil
	}

	stats, err := s.repo.SubjectStats(ctx, subjectID, rng)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject stats")
	}
	s.writeCache(ctx, key, stats)
	return stats, nil
}

// SubjectsStats returns aggregates for every subject.
func (s *ReportService) SubjectsStats(ctx context.Context, rng models.DateRange) ([]models.SubjectAttendanceStats, error) {
	key := statsKey("subjects", "", rng)
	var cached []models.SubjectAttendanceStats
	if s.readCache(ctx, key, &cached) {
		return cached, nil
	}

	stats, err := s.repo.SubjectsStats(ctx, rng)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subjects stats")
	}
	s.writeCache(ctx, key, stats)
	return stats, nil
}

// OverallStats returns the dashboard aggregate.
func (s *ReportService) OverallStats(ctx context.Context, rng models.DateRange) (*models.OverallStats, error) {
	key := statsKey("overall", "", rng)
	var cached models.OverallStats
	if s.readCache(ctx, key, &cached) {
		return &cached, nil
	}

	stats, err := s.repo.OverallStats(ctx, rng)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load overall stats")
	}
	s.writeCache(ctx, key, stats)
	return stats, nil
}

// AttendanceJournal returns the filtered attendance records with
// joined student, group and subject names.
func (s *ReportService) AttendanceJournal(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceDetail, error) {
	records, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance journal")
	}
	return records, nil
}

// ExportAttendance renders the filtered attendance journal in the
// requested format.
func (s *ReportService) ExportAttendance(ctx context.Context, filter models.AttendanceFilter, format ExportFormat) (*ExportFile, error) {
	records, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance for export")
	}

	data := export.Dataset{
		Headers: []string{"Date", "Student", "Group", "Subject", "Status", "Notes"},
		Rows:    make([]map[string]string, 0, len(records)),
	}
	for _, record := range records {
		data.Rows = append(data.Rows, map[string]string{
			"Date":    record.Date.Format("2006-01-02"),
			"Student": derefString(record.StudentName),
			"Group":   derefString(record.GroupName),
			"Subject": derefString(record.SubjectName),
			"Status":  string(record.Status),
			"Notes":   derefString(record.Notes),
		})
	}

	return s.render(data, "attendance", "Attendance", "Attendance Report", format)
}

// ExportGroupStats renders the per-group aggregate table.
func (s *ReportService) ExportGroupStats(ctx context.Context, rng models.DateRange, format ExportFormat) (*ExportFile, error) {
	stats, err := s.GroupsStats(ctx, rng)
	if err != nil {
		return nil, err
	}

	data := export.Dataset{
		Headers: []string{"Group", "Students", "Records", "Present", "Absent", "Rate"},
		Rows:    make([]map[string]string, 0, len(stats)),
	}
	for _, group := range stats {
		rate := ""
		if group.AttendanceRate != nil {
			rate = fmt.Sprintf("%.1f%%", *group.AttendanceRate)
		}
		data.Rows = append(data.Rows, map[string]string{
			"Group":    group.GroupName,
			"Students": fmt.Sprintf("%d", group.StudentsCount),
			"Records":  fmt.Sprintf("%d", group.TotalRecords),
			"Present":  fmt.Sprintf("%d", group.PresentCount),
			"Absent":   fmt.Sprintf("%d", group.AbsentCount),
			"Rate":     rate,
		})
	}

	return s.render(data, "group-stats", "Groups", "Group Attendance", format)
}

func (s *ReportService) render(data export.Dataset, baseName, sheet, title string, format ExportFormat) (*ExportFile, error) {
	stamp := time.Now().Format("2006-01-02")
	switch format {
	case ExportCSV:
		body, err := s.csv.Render(data)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportFile{Name: baseName + "-" + stamp + ".csv", ContentType: "text/csv", Data: body}, nil
	case ExportXLSX:
		body, err := s.xlsx.Render(data, sheet)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render xlsx")
		}
		return &ExportFile{
			Name:        baseName + "-" + stamp + ".xlsx",
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Data:        body,
		}, nil
	case ExportPDF:
		body, err := s.pdf.Render(data, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportFile{Name: baseName + "-" + stamp + ".pdf", ContentType: "application/pdf", Data: body}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv, xlsx or pdf")
	}
}

func (s *ReportService) readCache(ctx context.Context, key string, out interface{}) bool {
	if s.cache == nil {
		return false
	}
	raw, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false
	}
	return true
}

func (s *ReportService) writeCache(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.cacheTTL).Err(); err != nil {
		s.logger.Warn("failed to cache stats", zap.String("key", key), zap.Error(err))
	}
}

func statsKey(kind, id string, rng models.DateRange) string {
	from, to := "", ""
	if rng.From != nil {
		from = rng.From.Format("2006-01-02")
	}
	if rng.To != nil {
		to = rng.To.Format("2006-01-02")
	}
	return fmt.Sprintf("stats:%s:%s:%s:%s", kind, id, from, to)
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
