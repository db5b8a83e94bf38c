package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/civic-report-service/internal/domain"
	"github.com/spec-kit/civic-report-service/internal/events"
	"github.com/spec-kit/civic-report-service/internal/repository"
	apperrors "github.com/spec-kit/civic-report-service/pkg/util/errorutil"
)

func validInput() ReportCreateInput {
	return ReportCreateInput{
		Title:       "Overflowing bins",
		Description: "The bins on the corner have not been emptied for a week.",
		Category:    "Waste",
		Latitude:    45.07,
		Longitude:   7.68,
		Address:     "Via Roma 1",
		Photos:      []string{"photo-1.jpg"},
	}
}

func TestCreateReport(t *testing.T) {
	env := newTestEnv(testBoundary())

	report, err := env.reports.CreateReport(context.Background(), "user-1", validInput())
	require.NoError(t, err)

	assert.NotEmpty(t, report.ID)
	assert.Equal(t, domain.ReportStatusPendingApproval, report.Status)
	assert.Equal(t, "user-1", report.ReporterID)
	require.NotNil(t, report.DepartmentID)
	assert.Equal(t, "dep-waste", *report.DepartmentID)

	created := env.recorder.byType(events.EventReportCreated)
	require.Len(t, created, 1)
	assert.Equal(t, report.ID, created[0].ReportID)
}

func TestCreateReportValidation(t *testing.T) {
	env := newTestEnv(testBoundary())
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*ReportCreateInput)
	}{
		{"missing title", func(in *ReportCreateInput) { in.Title = "  " }},
		{"missing description", func(in *ReportCreateInput) { in.Description = "" }},
		{"missing category", func(in *ReportCreateInput) { in.Category = "" }},
		{"description too long", func(in *ReportCreateInput) { in.Description = strings.Repeat("è", domain.MaxDescriptionLength+1) }},
		{"too many photos", func(in *ReportCreateInput) { in.Photos = []string{"a", "b", "c", "d"} }},
		{"unknown category", func(in *ReportCreateInput) { in.Category = "Potholes" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := validInput()
			tc.mutate(&input)
			_, err := env.reports.CreateReport(ctx, "user-1", input)
			assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"), "got %v", err)
		})
	}
}

func TestCreateReportDescriptionBoundCountsRunes(t *testing.T) {
	env := newTestEnv(testBoundary())

	// Maximum-length accented description is twice as many bytes as runes
	// and must still pass.
	input := validInput()
	input.Description = strings.Repeat("è", domain.MaxDescriptionLength)

	report, err := env.reports.CreateReport(context.Background(), "user-1", input)
	require.NoError(t, err)
	assert.Equal(t, input.Description, report.Description)
}

func TestCreateReportOutsideBoundary(t *testing.T) {
	env := newTestEnv(testBoundary())

	input := validInput()
	input.Latitude = 48.85
	input.Longitude = 2.35

	_, err := env.reports.CreateReport(context.Background(), "user-1", input)
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
}

func TestCreateReportPermissiveWithoutBoundary(t *testing.T) {
	env := newTestEnv(nil)

	input := validInput()
	input.Latitude = 48.85
	input.Longitude = 2.35

	report, err := env.reports.CreateReport(context.Background(), "user-1", input)
	require.NoError(t, err)
	assert.Equal(t, domain.ReportStatusPendingApproval, report.Status)
}

func TestCreateReportWithoutDepartmentRecord(t *testing.T) {
	env := newTestEnv(testBoundary())

	input := validInput()
	input.Category = "Sewer System" // no department row seeded in the fake

	report, err := env.reports.CreateReport(context.Background(), "user-1", input)
	require.NoError(t, err)
	assert.Nil(t, report.DepartmentID)
}

func TestUpdateStatusLifecycle(t *testing.T) {
	env := newTestEnv(testBoundary())
	ctx := context.Background()
	admin := Actor{Staff: backOfficeStaff()}

	report, err := env.reports.CreateReport(ctx, "user-1", validInput())
	require.NoError(t, err)

	report, err = env.reports.UpdateStatus(ctx, admin, report.ID, domain.ReportStatusAssigned, "")
	require.NoError(t, err)
	assert.Equal(t, domain.ReportStatusAssigned, report.Status)
	require.NotNil(t, report.InternalAssigneeID)
	assert.Equal(t, admin.Staff.ID, *report.InternalAssigneeID)

	report, err = env.reports.UpdateStatus(ctx, admin, report.ID, domain.ReportStatusInProgress, "")
	require.NoError(t, err)
	assert.Equal(t, domain.ReportStatusInProgress, report.Status)

	report, err = env.reports.UpdateStatus(ctx, admin, report.ID, domain.ReportStatusSuspended, "")
	require.NoError(t, err)
	assert.Equal(t, domain.ReportStatusSuspended, report.Status)

	report, err = env.reports.UpdateStatus(ctx, admin, report.ID, domain.ReportStatusInProgress, "")
	require.NoError(t, err)

	report, err = env.reports.UpdateStatus(ctx, admin, report.ID, domain.ReportStatusResolved, "")
	require.NoError(t, err)
	assert.Equal(t, domain.ReportStatusResolved, report.Status)

	// terminal; nothing may follow
	_, err = env.reports.UpdateStatus(ctx, admin, report.ID, domain.ReportStatusInProgress, "")
	assert.True(t, apperrors.IsCode(err, "INVALID_TRANSITION"))

	changed := env.recorder.byType(events.EventReportStatusChanged)
	assert.Len(t, changed, 5)
}

func TestUpdateStatusRejectRequiresReason(t *testing.T) {
	env := newTestEnv(testBoundary())
	ctx := context.Background()
	admin := Actor{Staff: backOfficeStaff()}

	report, err := env.reports.CreateReport(ctx, "user-1", validInput())
	require.NoError(t, err)

	_, err = env.reports.UpdateStatus(ctx, admin, report.ID, domain.ReportStatusRejected, "  ")
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	report, err = env.reports.UpdateStatus(ctx, admin, report.ID, domain.ReportStatusRejected, "duplicate of an open report")
	require.NoError(t, err)
	assert.Equal(t, domain.ReportStatusRejected, report.Status)
	require.NotNil(t, report.RejectionReason)
	assert.Equal(t, "duplicate of an open report", *report.RejectionReason)
}

func TestUpdateStatusApproveRequiresBackOffice(t *testing.T) {
	env := newTestEnv(testBoundary())
	ctx := context.Background()

	report, err := env.reports.CreateReport(ctx, "user-1", validInput())
	require.NoError(t, err)

	_, err = env.reports.UpdateStatus(ctx, Actor{Staff: operatorStaff()}, report.ID, domain.ReportStatusAssigned, "")
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))
}

func TestUpdateStatusOnlyAssigneeMayAct(t *testing.T) {
	env := newTestEnv(testBoundary())
	ctx := context.Background()
	admin := Actor{Staff: backOfficeStaff()}

	report, err := env.reports.CreateReport(ctx, "user-1", validInput())
	require.NoError(t, err)
	report, err = env.reports.UpdateStatus(ctx, admin, report.ID, domain.ReportStatusAssigned, "")
	require.NoError(t, err)

	other := Actor{Staff: &domain.StaffMember{ID: "staff-other", RoleName: domain.RoleAdministrator, Active: true}}
	_, err = env.reports.UpdateStatus(ctx, other, report.ID, domain.ReportStatusInProgress, "")
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))
}

func TestUpdateStatusByExternalAssignee(t *testing.T) {
	env := newTestEnv(testBoundary())
	ctx := context.Background()
	admin := Actor{Staff: backOfficeStaff()}

	report, err := env.reports.CreateReport(ctx, "user-1", validInput())
	require.NoError(t, err)
	report, err = env.reports.UpdateStatus(ctx, admin, report.ID, domain.ReportStatusAssigned, "")
	require.NoError(t, err)

	external := &domain.ExternalUser{ID: "ext-1", CompanyID: "co-1", Active: true}
	env.externals.users[external.ID] = external
	env.companies.companies["co-1"] = &domain.Company{ID: "co-1", Category: "Waste", IsActive: true}

	report, err = env.assignments.AssignExternal(ctx, admin.Staff, report.ID, external.ID)
	require.NoError(t, err)

	report, err = env.reports.UpdateStatus(ctx, Actor{External: external}, report.ID, domain.ReportStatusInProgress, "")
	require.NoError(t, err)
	assert.Equal(t, domain.ReportStatusInProgress, report.Status)

	report, err = env.reports.UpdateStatus(ctx, Actor{External: external}, report.ID, domain.ReportStatusResolved, "")
	require.NoError(t, err)
	assert.Equal(t, domain.ReportStatusResolved, report.Status)
}

func TestUpdateStatusInvalidTransition(t *testing.T) {
	env := newTestEnv(testBoundary())
	ctx := context.Background()
	admin := Actor{Staff: backOfficeStaff()}

	report, err := env.reports.CreateReport(ctx, "user-1", validInput())
	require.NoError(t, err)

	_, err = env.reports.UpdateStatus(ctx, admin, report.ID, domain.ReportStatusInProgress, "")
	assert.True(t, apperrors.IsCode(err, "INVALID_TRANSITION"))
}

func TestUpdateStatusNotFound(t *testing.T) {
	env := newTestEnv(testBoundary())

	_, err := env.reports.UpdateStatus(context.Background(), Actor{Staff: backOfficeStaff()}, "missing", domain.ReportStatusAssigned, "")
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
}

func TestUpdateStatusConflictOnConcurrentWrite(t *testing.T) {
	env := newTestEnv(testBoundary())
	ctx := context.Background()
	admin := Actor{Staff: backOfficeStaff()}

	report, err := env.reports.CreateReport(ctx, "user-1", validInput())
	require.NoError(t, err)

	// another writer touched the row between our read and write
	env.reportRepo.updateErr = repository.ErrStaleReport

	_, err = env.reports.UpdateStatus(ctx, admin, report.ID, domain.ReportStatusAssigned, "")
	assert.True(t, apperrors.IsCode(err, "CONFLICT"), "got %v", err)
}

func TestListReportsScopedByOperatorRole(t *testing.T) {
	env := newTestEnv(testBoundary())
	ctx := context.Background()

	_, err := env.reports.CreateReport(ctx, "user-1", validInput())
	require.NoError(t, err)

	lighting := validInput()
	lighting.Category = "Public Lighting"
	_, err = env.reports.CreateReport(ctx, "user-2", lighting)
	require.NoError(t, err)

	scoped, err := env.reports.ListReports(ctx, operatorStaff(), ReportListFilter{})
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, "Waste", scoped[0].Category)

	all, err := env.reports.ListReports(ctx, backOfficeStaff(), ReportListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestListMyReports(t *testing.T) {
	env := newTestEnv(testBoundary())
	ctx := context.Background()

	_, err := env.reports.CreateReport(ctx, "user-1", validInput())
	require.NoError(t, err)
	_, err = env.reports.CreateReport(ctx, "user-2", validInput())
	require.NoError(t, err)

	mine, err := env.reports.ListMyReports(ctx, "user-1", ReportListFilter{})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "user-1", mine[0].ReporterID)
}

func TestListAssignedReports(t *testing.T) {
	env := newTestEnv(testBoundary())
	ctx := context.Background()
	admin := Actor{Staff: backOfficeStaff()}

	report, err := env.reports.CreateReport(ctx, "user-1", validInput())
	require.NoError(t, err)
	_, err = env.reports.UpdateStatus(ctx, admin, report.ID, domain.ReportStatusAssigned, "")
	require.NoError(t, err)

	assigned, err := env.reports.ListAssignedReports(ctx, admin, ReportListFilter{})
	require.NoError(t, err)
	require.Len(t, assigned, 1)
	assert.Equal(t, report.ID, assigned[0].ID)

	none, err := env.reports.ListAssignedReports(ctx, Actor{Staff: operatorStaff()}, ReportListFilter{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCategoriesWithoutCache(t *testing.T) {
	env := newTestEnv(testBoundary())

	categories := env.reports.Categories(context.Background())
	assert.Contains(t, categories, "Waste")
	assert.Len(t, categories, 6)
}
