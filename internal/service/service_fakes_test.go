package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/civic-report-service/internal/domain"
	"github.com/spec-kit/civic-report-service/internal/events"
	"github.com/spec-kit/civic-report-service/internal/geo"
	"github.com/spec-kit/civic-report-service/internal/repository"
	"github.com/spec-kit/civic-report-service/internal/routing"
)

type fakeReportRepo struct {
	mu        sync.Mutex
	seq       int
	reports   map[string]domain.Report
	updateErr error
}

func newFakeReportRepo() *fakeReportRepo {
	return &fakeReportRepo{reports: make(map[string]domain.Report)}
}

func (f *fakeReportRepo) Create(_ context.Context, report *domain.Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	report.ID = fmt.Sprintf("report-%d", f.seq)
	now := time.Now()
	report.CreatedAt = now
	report.UpdatedAt = now
	f.reports[report.ID] = *report
	return nil
}

func (f *fakeReportRepo) Update(_ context.Context, report *domain.Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	stored, ok := f.reports[report.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if !stored.UpdatedAt.Equal(report.UpdatedAt) {
		return repository.ErrStaleReport
	}
	report.UpdatedAt = time.Now()
	f.reports[report.ID] = *report
	return nil
}

func (f *fakeReportRepo) GetByID(_ context.Context, id string) (*domain.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.reports[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := stored
	return &copied, nil
}

func (f *fakeReportRepo) ListWithFilter(_ context.Context, filter repository.ReportFilter) ([]domain.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Report
	for _, report := range f.reports {
		if filter.ReporterID != nil && report.ReporterID != *filter.ReporterID {
			continue
		}
		if filter.InternalAssigneeID != nil &&
			(report.InternalAssigneeID == nil || *report.InternalAssigneeID != *filter.InternalAssigneeID) {
			continue
		}
		if filter.ExternalAssigneeID != nil &&
			(report.ExternalAssigneeID == nil || *report.ExternalAssigneeID != *filter.ExternalAssigneeID) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, report.Status) {
			continue
		}
		if len(filter.Categories) > 0 && !containsString(filter.Categories, report.Category) {
			continue
		}
		out = append(out, report)
	}
	return out, nil
}

func containsStatus(statuses []domain.ReportStatus, status domain.ReportStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

func containsString(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

type fakeExternalRepo struct {
	users map[string]*domain.ExternalUser
}

func (f *fakeExternalRepo) Create(_ context.Context, _ *domain.ExternalUser) error { return nil }
func (f *fakeExternalRepo) Update(_ context.Context, _ *domain.ExternalUser) error { return nil }

func (f *fakeExternalRepo) GetByID(_ context.Context, id string) (*domain.ExternalUser, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return user, nil
}

func (f *fakeExternalRepo) GetByEmail(_ context.Context, email string) (*domain.ExternalUser, error) {
	for _, user := range f.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeExternalRepo) ListByCompany(_ context.Context, _ string) ([]domain.ExternalUser, error) {
	return nil, nil
}

type fakeCompanyRepo struct {
	companies map[string]*domain.Company
}

func (f *fakeCompanyRepo) Create(_ context.Context, _ *domain.Company) error { return nil }

func (f *fakeCompanyRepo) GetByID(_ context.Context, id string) (*domain.Company, error) {
	company, ok := f.companies[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return company, nil
}

func (f *fakeCompanyRepo) ListActiveByCategory(_ context.Context, _ string) ([]domain.Company, error) {
	return nil, nil
}

type fakeDeptSource struct {
	departments map[string]*domain.Department
}

func (f *fakeDeptSource) GetByName(_ context.Context, name string) (*domain.Department, error) {
	dept, ok := f.departments[name]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return dept, nil
}

type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) record(_ context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *eventRecorder) byType(eventType events.EventType) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, e := range r.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// testBoundary covers the metro area around (45.07, 7.68).
func testBoundary() *geo.Boundary {
	outer := geo.Ring{
		{Lng: 7.5, Lat: 44.9},
		{Lng: 7.8, Lat: 44.9},
		{Lng: 7.8, Lat: 45.2},
		{Lng: 7.5, Lat: 45.2},
		{Lng: 7.5, Lat: 44.9},
	}
	return &geo.Boundary{Polygons: []geo.Polygon{{outer}}}
}

type testEnv struct {
	reports     *ReportService
	assignments *AssignmentService
	reportRepo  *fakeReportRepo
	externals   *fakeExternalRepo
	companies   *fakeCompanyRepo
	recorder    *eventRecorder
}

func newTestEnv(boundary *geo.Boundary) *testEnv {
	reportRepo := newFakeReportRepo()
	externals := &fakeExternalRepo{users: make(map[string]*domain.ExternalUser)}
	companies := &fakeCompanyRepo{companies: make(map[string]*domain.Company)}
	depts := &fakeDeptSource{departments: map[string]*domain.Department{
		"Waste": {ID: "dep-waste", Name: "Waste", IsActive: true},
	}}

	dispatcher := events.NewInMemoryDispatcher()
	recorder := &eventRecorder{}
	dispatcher.Subscribe(events.EventReportCreated, recorder.record)
	dispatcher.Subscribe(events.EventReportStatusChanged, recorder.record)
	dispatcher.Subscribe(events.EventReportExternalAssigned, recorder.record)

	router := routing.NewRouter(routing.DefaultConfig(), depts)
	assignments := NewAssignmentService(AssignmentDependencies{
		ReportRepo:   reportRepo,
		ExternalRepo: externals,
		CompanyRepo:  companies,
		Dispatcher:   dispatcher,
	})
	reports := NewReportService(ReportDependencies{
		ReportRepo:  reportRepo,
		Router:      router,
		Boundary:    boundary,
		Assignments: assignments,
		Dispatcher:  dispatcher,
		Logger:      zap.NewNop(),
	})

	return &testEnv{
		reports:     reports,
		assignments: assignments,
		reportRepo:  reportRepo,
		externals:   externals,
		companies:   companies,
		recorder:    recorder,
	}
}

func backOfficeStaff() *domain.StaffMember {
	return &domain.StaffMember{ID: "staff-admin", Name: "Ada", RoleName: domain.RoleAdministrator, Active: true}
}

func operatorStaff() *domain.StaffMember {
	return &domain.StaffMember{ID: "staff-waste", Name: "Otto", RoleName: "waste operator", Active: true}
}

type fakeUserRepo struct {
	seq   int
	users map[string]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*domain.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	f.seq++
	user.ID = fmt.Sprintf("user-%d", f.seq)
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	if _, ok := f.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, user := range f.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type fakeStaffRepo struct {
	members map[string]*domain.StaffMember
}

func (f *fakeStaffRepo) Create(_ context.Context, staff *domain.StaffMember) error {
	stored := *staff
	f.members[staff.ID] = &stored
	return nil
}

func (f *fakeStaffRepo) Update(_ context.Context, staff *domain.StaffMember) error {
	if _, ok := f.members[staff.ID]; !ok {
		return pgx.ErrNoRows
	}
	stored := *staff
	f.members[staff.ID] = &stored
	return nil
}

func (f *fakeStaffRepo) GetByID(_ context.Context, id string) (*domain.StaffMember, error) {
	staff, ok := f.members[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *staff
	return &copied, nil
}

func (f *fakeStaffRepo) GetByEmail(_ context.Context, email string) (*domain.StaffMember, error) {
	for _, staff := range f.members {
		if staff.Email == email {
			copied := *staff
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeStaffRepo) List(_ context.Context, _ repository.StaffFilter) ([]domain.StaffMember, error) {
	return nil, nil
}

type fakeResetRepo struct {
	seq    int
	tokens map[string]*repository.PasswordResetToken
}

func newFakeResetRepo() *fakeResetRepo {
	return &fakeResetRepo{tokens: make(map[string]*repository.PasswordResetToken)}
}

func (f *fakeResetRepo) Create(_ context.Context, token *repository.PasswordResetToken) error {
	// Matches the repository: a new token burns prior unused ones for the
	// same account.
	now := time.Now()
	for _, existing := range f.tokens {
		if existing.SubjectType == token.SubjectType && existing.SubjectID == token.SubjectID && existing.UsedAt == nil {
			existing.UsedAt = &now
		}
	}
	f.seq++
	token.ID = fmt.Sprintf("reset-%d", f.seq)
	token.CreatedAt = now
	stored := *token
	f.tokens[token.ID] = &stored
	return nil
}

func (f *fakeResetRepo) GetByToken(_ context.Context, tokenStr string) (*repository.PasswordResetToken, error) {
	for _, token := range f.tokens {
		if token.Token == tokenStr {
			copied := *token
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeResetRepo) MarkUsed(_ context.Context, id string) error {
	token, ok := f.tokens[id]
	if !ok {
		return pgx.ErrNoRows
	}
	now := time.Now()
	token.UsedAt = &now
	return nil
}
