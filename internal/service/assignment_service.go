package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/civic-report-service/internal/domain"
	"github.com/spec-kit/civic-report-service/internal/events"
	"github.com/spec-kit/civic-report-service/internal/repository"
	"github.com/spec-kit/civic-report-service/internal/workflow"
	apperrors "github.com/spec-kit/civic-report-service/pkg/util/errorutil"
)

// Actor is whoever fires a transition: a staff member or an external
// maintainer, never both.
type Actor struct {
	Staff    *domain.StaffMember
	External *domain.ExternalUser
}

// ID returns the acting subject's id.
func (a Actor) ID() string {
	switch {
	case a.Staff != nil:
		return a.Staff.ID
	case a.External != nil:
		return a.External.ID
	}
	return ""
}

// AssignmentService enforces the "who may act" half of every transition and
// owns the two-tier assignment model: internal assignment happens implicitly
// on approve, external assignment is a re-delegation by the internal
// assignee.
type AssignmentService struct {
	reports    repository.ReportRepository
	externals  repository.ExternalUserRepository
	companies  repository.CompanyRepository
	dispatcher events.Dispatcher
}

// AssignmentDependencies bundles repositories.
type AssignmentDependencies struct {
	ReportRepo   repository.ReportRepository
	ExternalRepo repository.ExternalUserRepository
	CompanyRepo  repository.CompanyRepository
	Dispatcher   events.Dispatcher
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	return &AssignmentService{
		reports:    deps.ReportRepo,
		externals:  deps.ExternalRepo,
		companies:  deps.CompanyRepo,
		dispatcher: deps.Dispatcher,
	}
}

// AuthorizeEvent checks role and ownership guards for a transition event.
// Status legality is the state machine's concern, not handled here.
func (s *AssignmentService) AuthorizeEvent(actor Actor, report *domain.Report, event workflow.Event) error {
	switch event {
	case workflow.EventApprove, workflow.EventReject:
		if !actor.Staff.IsBackOffice() {
			return apperrors.NewForbidden("only administrators and public relations officers may triage submissions")
		}
		return nil
	case workflow.EventStart, workflow.EventSuspend, workflow.EventResume, workflow.EventResolve:
		if !isAssignee(actor, report) {
			return apperrors.NewForbidden("only the current assignee may act on this report")
		}
		return nil
	default:
		return apperrors.NewInvalidTransition("unknown transition event", map[string]any{"event": event})
	}
}

// InternalAssigneeFor resolves who becomes the internal assignee when the
// actor approves: the approving staff member. First approver wins; a stale
// concurrent approve surfaces as a Conflict at the persistence layer.
func (s *AssignmentService) InternalAssigneeFor(actor Actor) (*string, error) {
	if actor.Staff == nil {
		return nil, apperrors.NewForbidden("staff account required")
	}
	id := actor.Staff.ID
	return &id, nil
}

// AssignExternal re-delegates a report to an external maintainer. Only the
// current internal assignee may do this, only while the report is in an
// active status, and only to an active maintainer whose company services the
// report's category. A previous external assignee is overwritten.
func (s *AssignmentService) AssignExternal(ctx context.Context, staff *domain.StaffMember, reportID, externalAssigneeID string) (*domain.Report, error) {
	if staff == nil {
		return nil, apperrors.NewUnauthorized("staff required")
	}

	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("report", map[string]any{"report_id": reportID})
		}
		return nil, apperrors.MapError(err)
	}
	if report.Status.IsTerminal() {
		return nil, apperrors.NewInvalidTransition("report is already finalized", map[string]any{
			"report_id": reportID,
			"status":    report.Status,
		})
	}
	if report.InternalAssigneeID == nil || *report.InternalAssigneeID != staff.ID {
		return nil, apperrors.NewForbidden("only the internal assignee may delegate externally")
	}

	external, err := s.externals.GetByID(ctx, externalAssigneeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("external user", map[string]any{"external_user_id": externalAssigneeID})
		}
		return nil, apperrors.MapError(err)
	}
	if !external.Active {
		return nil, apperrors.NewConflict("external maintainer inactive", map[string]any{"external_user_id": external.ID})
	}
	company, err := s.companies.GetByID(ctx, external.CompanyID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("company", map[string]any{"company_id": external.CompanyID})
		}
		return nil, apperrors.MapError(err)
	}
	if !company.IsActive {
		return nil, apperrors.NewConflict("company inactive", map[string]any{"company_id": company.ID})
	}
	if company.Category != report.Category {
		return nil, apperrors.NewForbidden("company does not service this report category")
	}

	previous := report.ExternalAssigneeID
	report.ExternalAssigneeID = &external.ID
	if err := s.reports.Update(ctx, report); err != nil {
		return nil, mapReportWriteError(err, reportID)
	}

	s.publishExternalAssigned(ctx, staff.ID, report.ID, external.ID, previous)
	return report, nil
}

func isAssignee(actor Actor, report *domain.Report) bool {
	id := actor.ID()
	if id == "" {
		return false
	}
	if report.InternalAssigneeID != nil && *report.InternalAssigneeID == id {
		return actor.Staff != nil
	}
	if report.ExternalAssigneeID != nil && *report.ExternalAssigneeID == id {
		return actor.External != nil
	}
	return false
}

func mapReportWriteError(err error, reportID string) error {
	switch {
	case errors.Is(err, repository.ErrStaleReport):
		return apperrors.NewConflict("report was modified concurrently, reload and retry", map[string]any{"report_id": reportID})
	case errors.Is(err, pgx.ErrNoRows):
		return apperrors.NewNotFound("report", map[string]any{"report_id": reportID})
	}
	return apperrors.MapError(err)
}

func (s *AssignmentService) publishExternalAssigned(ctx context.Context, staffID, reportID, externalID string, previous *string) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventReportExternalAssigned,
		ReportID:  reportID,
		Actor:     events.Actor{Type: domain.SubjectTypeStaff, StaffID: &staffID},
		Timestamp: time.Now(),
		Payload: events.ReportExternalAssignedPayload{
			ExternalAssigneeID: externalID,
			PreviousAssigneeID: previous,
		},
	}
	_ = s.dispatcher.Publish(ctx, event)
}
