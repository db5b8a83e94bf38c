package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/civic-report-service/internal/api/dto"
	"github.com/spec-kit/civic-report-service/internal/auth"
	"github.com/spec-kit/civic-report-service/internal/domain"
	"github.com/spec-kit/civic-report-service/internal/service"
	apperrors "github.com/spec-kit/civic-report-service/pkg/util/errorutil"
)

// ReportsHandler manages citizen-facing report endpoints plus the staff
// listing view.
type ReportsHandler struct {
	reports *service.ReportService
}

// NewReportsHandler constructs handler.
func NewReportsHandler(reportService *service.ReportService) *ReportsHandler {
	return &ReportsHandler{reports: reportService}
}

// CreateReport POST /reports.
func (h *ReportsHandler) CreateReport(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("citizen account required")
	}
	var req dto.CreateReportRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.ReportCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Address:     req.Address,
		Photos:      req.Photos,
		IsAnonymous: req.IsAnonymous,
	}
	report, err := h.reports.CreateReport(c.UserContext(), principal.User.ID, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": reportResponse(report, false)})
}

// ListReports GET /reports. Staff only; non-back-office staff see the report
// categories their role covers.
func (h *ReportsHandler) ListReports(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Staff == nil {
		return apperrors.NewUnauthorized("staff account required")
	}
	filter := parseReportListFilter(c)
	reports, err := h.reports.ListReports(c.UserContext(), principal.Staff, filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": reportResponses(reports, true)})
}

// ListMyReports GET /reports/me.
func (h *ReportsHandler) ListMyReports(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("citizen account required")
	}
	filter := parseReportListFilter(c)
	reports, err := h.reports.ListMyReports(c.UserContext(), principal.User.ID, filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": reportResponses(reports, false)})
}

// Categories GET /reports/categories.
func (h *ReportsHandler) Categories(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.reports.Categories(c.UserContext())})
}

func parseReportListFilter(c *fiber.Ctx) service.ReportListFilter {
	filter := service.ReportListFilter{Limit: 50}

	if raw := c.Query("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			part = strings.ToUpper(strings.TrimSpace(part))
			if part != "" {
				filter.Statuses = append(filter.Statuses, domain.ReportStatus(part))
			}
		}
	}
	if raw := c.Query("category"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				filter.Categories = append(filter.Categories, part)
			}
		}
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil && limit > 0 {
		if limit > 200 {
			limit = 200
		}
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(c.Query("offset")); err == nil && offset > 0 {
		filter.Offset = offset
	}
	return filter
}

// reportResponse maps a report for the wire. maskReporter hides the reporter
// of anonymous reports from staff and maintainer views.
func reportResponse(r *domain.Report, maskReporter bool) dto.ReportResponse {
	resp := dto.ReportResponse{
		ID:           r.ID,
		DepartmentID: r.DepartmentID,
		Title:        r.Title,
		Description:  r.Description,
		Category:     r.Category,
		Location: dto.LocationResponse{
			Latitude:  r.Location.Latitude,
			Longitude: r.Location.Longitude,
			Address:   r.Location.Address,
		},
		Photos:             r.Photos,
		IsAnonymous:        r.IsAnonymous,
		Status:             r.Status,
		RejectionReason:    r.RejectionReason,
		InternalAssigneeID: r.InternalAssigneeID,
		ExternalAssigneeID: r.ExternalAssigneeID,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
	if !r.IsAnonymous || !maskReporter {
		reporter := r.ReporterID
		resp.ReporterID = &reporter
	}
	return resp
}

func reportResponses(reports []domain.Report, maskReporter bool) []dto.ReportResponse {
	items := make([]dto.ReportResponse, 0, len(reports))
	for i := range reports {
		items = append(items, reportResponse(&reports[i], maskReporter))
	}
	return items
}
