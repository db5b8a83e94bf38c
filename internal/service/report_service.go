package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/civic-report-service/internal/domain"
	"github.com/spec-kit/civic-report-service/internal/events"
	"github.com/spec-kit/civic-report-service/internal/geo"
	"github.com/spec-kit/civic-report-service/internal/persistence"
	"github.com/spec-kit/civic-report-service/internal/repository"
	"github.com/spec-kit/civic-report-service/internal/routing"
	"github.com/spec-kit/civic-report-service/internal/workflow"
	apperrors "github.com/spec-kit/civic-report-service/pkg/util/errorutil"
)

const categoryCacheKey = "civic:categories"

// ReportService composes geofence validation, category routing and the
// status workflow around the report aggregate.
type ReportService struct {
	reports     repository.ReportRepository
	router      *routing.Router
	boundary    *geo.Boundary
	assignments *AssignmentService
	dispatcher  events.Dispatcher
	cache       *persistence.Redis
	cacheTTL    time.Duration
	logger      *zap.Logger
}

// ReportDependencies bundles collaborators for the report service.
type ReportDependencies struct {
	ReportRepo  repository.ReportRepository
	Router      *routing.Router
	Boundary    *geo.Boundary
	Assignments *AssignmentService
	Dispatcher  events.Dispatcher
	Cache       *persistence.Redis
	CacheTTL    time.Duration
	Logger      *zap.Logger
}

// ReportCreateInput describes a citizen submission.
type ReportCreateInput struct {
	Title       string
	Description string
	Category    string
	Latitude    float64
	Longitude   float64
	Address     string
	Photos      []string
	IsAnonymous bool
}

// ReportListFilter describes listing parameters common to all report views.
type ReportListFilter struct {
	Statuses   []domain.ReportStatus
	Categories []string
	Limit      int
	Offset     int
}

// NewReportService constructs the service.
func NewReportService(deps ReportDependencies) *ReportService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		reports:     deps.ReportRepo,
		router:      deps.Router,
		boundary:    deps.Boundary,
		assignments: deps.Assignments,
		dispatcher:  deps.Dispatcher,
		cache:       deps.Cache,
		cacheTTL:    deps.CacheTTL,
		logger:      logger,
	}
}

// CreateReport validates a submission and persists it in PENDING_APPROVAL.
// Every guard runs before any write; a boundary-data outage degrades to
// permissive instead of blocking creation.
func (s *ReportService) CreateReport(ctx context.Context, userID string, input ReportCreateInput) (*domain.Report, error) {
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" || description == "" || input.Category == "" {
		return nil, apperrors.NewValidationError("title, description, category required", nil)
	}
	// Character bound, not bytes: accented text must not shrink the budget.
	if utf8.RuneCountInString(description) > domain.MaxDescriptionLength {
		return nil, apperrors.NewValidationError("description too long", map[string]any{
			"max_length": domain.MaxDescriptionLength,
		})
	}
	if len(input.Photos) > domain.MaxPhotosPerReport {
		return nil, apperrors.NewValidationError("too many photos", map[string]any{
			"max_photos": domain.MaxPhotosPerReport,
		})
	}
	if !s.router.KnownCategory(input.Category) {
		return nil, apperrors.NewValidationError("unknown report category", map[string]any{
			"category": input.Category,
		})
	}
	if err := s.checkInsideBoundary(input.Latitude, input.Longitude); err != nil {
		return nil, err
	}

	report := &domain.Report{
		ReporterID:  userID,
		Title:       title,
		Description: description,
		Category:    input.Category,
		Location: domain.Location{
			Latitude:  input.Latitude,
			Longitude: input.Longitude,
			Address:   strings.TrimSpace(input.Address),
		},
		Photos:      input.Photos,
		IsAnonymous: input.IsAnonymous,
		Status:      domain.ReportStatusPendingApproval,
	}

	dept, err := s.router.DepartmentForCategory(ctx, input.Category)
	switch {
	case err == nil:
		report.DepartmentID = &dept.ID
	case errors.Is(err, pgx.ErrNoRows):
		// routing still works off the category; department record missing
		s.logger.Warn("no department found for category", zap.String("category", input.Category))
	default:
		if !apperrors.IsCode(err, "UPSTREAM_UNAVAILABLE") {
			return nil, err
		}
	}

	if err := s.reports.Create(ctx, report); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventReportCreated,
		ReportID: report.ID,
		Actor:    userActor(userID),
		Payload: events.ReportCreatedPayload{
			Category:     report.Category,
			DepartmentID: report.DepartmentID,
			Title:        report.Title,
			IsAnonymous:  report.IsAnonymous,
		},
	})
	return report, nil
}

// checkInsideBoundary rejects coordinates outside the municipality. A
// missing or malformed boundary never blocks creation.
func (s *ReportService) checkInsideBoundary(lat, lng float64) error {
	if s.boundary == nil {
		s.logger.Warn("boundary data not loaded; accepting submission")
		return nil
	}
	if err := s.boundary.Validate(); err != nil {
		s.logger.Warn("boundary data malformed; accepting submission", zap.Error(err))
		return nil
	}
	if !s.boundary.Contains(lat, lng) {
		return apperrors.NewValidationError("location is outside the municipal boundary", map[string]any{
			"latitude":  lat,
			"longitude": lng,
		})
	}
	return nil
}

// GetReport fetches a single report.
func (s *ReportService) GetReport(ctx context.Context, id string) (*domain.Report, error) {
	report, err := s.reports.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("report", map[string]any{"report_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return report, nil
}

// ListReports returns reports visible to the caller. Staff whose role maps
// to a category are auto-scoped to it; back-office staff, citizens and
// externals are unrestricted here.
func (s *ReportService) ListReports(ctx context.Context, staff *domain.StaffMember, filter ReportListFilter) ([]domain.Report, error) {
	repoFilter := repository.ReportFilter{
		Statuses:   filter.Statuses,
		Categories: filter.Categories,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}
	if staff != nil && !staff.IsBackOffice() {
		if category := s.router.CategoryForRole(staff.RoleName); category != nil {
			repoFilter.Categories = []string{*category}
		}
	}
	return s.list(ctx, repoFilter)
}

// ListMyReports returns the reports a citizen submitted.
func (s *ReportService) ListMyReports(ctx context.Context, userID string, filter ReportListFilter) ([]domain.Report, error) {
	return s.list(ctx, repository.ReportFilter{
		ReporterID: &userID,
		Statuses:   filter.Statuses,
		Categories: filter.Categories,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	})
}

// ListAssignedReports returns reports assigned to the acting staff member or
// external maintainer.
func (s *ReportService) ListAssignedReports(ctx context.Context, actor Actor, filter ReportListFilter) ([]domain.Report, error) {
	repoFilter := repository.ReportFilter{
		Statuses:   filter.Statuses,
		Categories: filter.Categories,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}
	id := actor.ID()
	switch {
	case actor.Staff != nil:
		repoFilter.InternalAssigneeID = &id
	case actor.External != nil:
		repoFilter.ExternalAssigneeID = &id
	default:
		return nil, apperrors.NewUnauthorized("assignee account required")
	}
	return s.list(ctx, repoFilter)
}

func (s *ReportService) list(ctx context.Context, filter repository.ReportFilter) ([]domain.Report, error) {
	reports, err := s.reports.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return reports, nil
}

// UpdateStatus applies one state transition. The state machine decides edge
// legality, the assignment service decides whether the actor may fire it,
// and the optimistic repository write turns lost races into Conflict.
func (s *ReportService) UpdateStatus(ctx context.Context, actor Actor, reportID string, newStatus domain.ReportStatus, rejectionReason string) (*domain.Report, error) {
	report, err := s.GetReport(ctx, reportID)
	if err != nil {
		return nil, err
	}

	event, err := workflow.EventFor(report.Status, newStatus)
	if err != nil {
		return nil, err
	}
	if err := s.assignments.AuthorizeEvent(actor, report, event); err != nil {
		return nil, err
	}

	reason := strings.TrimSpace(rejectionReason)
	if event == workflow.EventReject && reason == "" {
		return nil, apperrors.NewValidationError("rejection reason required", nil)
	}

	next, err := workflow.Next(report.Status, event)
	if err != nil {
		return nil, err
	}

	oldStatus := report.Status
	report.Status = next
	switch event {
	case workflow.EventApprove:
		assignee, err := s.assignments.InternalAssigneeFor(actor)
		if err != nil {
			return nil, err
		}
		report.InternalAssigneeID = assignee
	case workflow.EventReject:
		report.RejectionReason = &reason
	}

	if err := s.reports.Update(ctx, report); err != nil {
		return nil, mapReportWriteError(err, reportID)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventReportStatusChanged,
		ReportID: report.ID,
		Actor:    actorEvent(actor),
		Payload: events.ReportStatusChangedPayload{
			OldStatus:       oldStatus,
			NewStatus:       report.Status,
			RejectionReason: report.RejectionReason,
		},
	})
	return report, nil
}

// Categories returns the static category list, cached in redis when
// available.
func (s *ReportService) Categories(ctx context.Context) []string {
	if s.cache != nil && s.cache.Client != nil {
		if data, err := s.cache.Client.Get(ctx, categoryCacheKey).Bytes(); err == nil {
			var cached []string
			if err := json.Unmarshal(data, &cached); err == nil && len(cached) > 0 {
				return cached
			}
		}
	}

	categories := s.router.Categories()

	if s.cache != nil && s.cache.Client != nil && s.cacheTTL > 0 {
		if data, err := json.Marshal(categories); err == nil {
			if err := s.cache.Client.Set(ctx, categoryCacheKey, data, s.cacheTTL).Err(); err != nil {
				s.logger.Debug("category cache write failed", zap.Error(err))
			}
		}
	}
	return categories
}

func (s *ReportService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func userActor(userID string) events.Actor {
	return events.Actor{
		Type:   domain.SubjectTypeUser,
		UserID: &userID,
	}
}

func actorEvent(actor Actor) events.Actor {
	switch {
	case actor.Staff != nil:
		return events.Actor{Type: domain.SubjectTypeStaff, StaffID: &actor.Staff.ID}
	case actor.External != nil:
		return events.Actor{Type: domain.SubjectTypeExternal, ExternalID: &actor.External.ID}
	}
	return events.Actor{}
}
