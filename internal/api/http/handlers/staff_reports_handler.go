package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/civic-report-service/internal/api/dto"
	"github.com/spec-kit/civic-report-service/internal/auth"
	"github.com/spec-kit/civic-report-service/internal/domain"
	"github.com/spec-kit/civic-report-service/internal/service"
	apperrors "github.com/spec-kit/civic-report-service/pkg/util/errorutil"
)

// StaffReportsHandler handles workflow and assignment endpoints used by
// staff members and external maintainers.
type StaffReportsHandler struct {
	reports     *service.ReportService
	assignments *service.AssignmentService
}

// NewStaffReportsHandler constructs handler.
func NewStaffReportsHandler(reportService *service.ReportService, assignmentService *service.AssignmentService) *StaffReportsHandler {
	return &StaffReportsHandler{reports: reportService, assignments: assignmentService}
}

// UpdateStatus PUT /reports/:id/status.
func (h *StaffReportsHandler) UpdateStatus(c *fiber.Ctx) error {
	actor, err := assigneeActor(c)
	if err != nil {
		return err
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	status := domain.ReportStatus(strings.ToUpper(strings.TrimSpace(string(req.NewStatus))))
	if status == "" {
		return apperrors.NewValidationError("new_status required", nil)
	}

	report, err := h.reports.UpdateStatus(c.UserContext(), actor, c.Params("id"), status, req.RejectionReason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": reportResponse(report, true)})
}

// AssignExternal PATCH /reports/:id/assign-external.
func (h *StaffReportsHandler) AssignExternal(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Staff == nil {
		return apperrors.NewUnauthorized("staff account required")
	}
	var req dto.AssignExternalRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.ExternalAssigneeID) == "" {
		return apperrors.NewValidationError("external_assignee_id required", nil)
	}

	report, err := h.assignments.AssignExternal(c.UserContext(), principal.Staff, c.Params("id"), req.ExternalAssigneeID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": reportResponse(report, true)})
}

// ListAssignedReports GET /reports/assigned/me.
func (h *StaffReportsHandler) ListAssignedReports(c *fiber.Ctx) error {
	actor, err := assigneeActor(c)
	if err != nil {
		return err
	}
	filter := parseReportListFilter(c)
	reports, err := h.reports.ListAssignedReports(c.UserContext(), actor, filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": reportResponses(reports, true)})
}

func assigneeActor(c *fiber.Ctx) (service.Actor, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || (principal.Staff == nil && principal.External == nil) {
		return service.Actor{}, apperrors.NewUnauthorized("staff or maintainer account required")
	}
	return service.Actor{Staff: principal.Staff, External: principal.External}, nil
}
