package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/civic-report-service/internal/api/http/handlers"
	"github.com/spec-kit/civic-report-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Staff          *handlers.StaffHandler
	Reports        *handlers.ReportsHandler
	StaffReports   *handlers.StaffReportsHandler
	Departments    *handlers.DepartmentsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/users/register", cfg.Users.Register)
	authGroup.Post("/users/login", cfg.Users.Login)

	authGroup.Post("/staff/login", cfg.Staff.Login)
	authGroup.Post("/external/login", cfg.Staff.LoginExternal)
	authGroup.Post("/password/reset/request", cfg.Staff.RequestPasswordReset)
	authGroup.Post("/password/reset/confirm", cfg.Staff.ConfirmPasswordReset)

	protectedAuth := authGroup.Group("", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	protectedAuth.Post("/password/change", cfg.Staff.ChangePassword)

	app.Get("/departments", cfg.Departments.ListDepartments)

	reports := app.Group("/reports")
	reports.Get("/categories", cfg.Reports.Categories)

	protected := reports.Group("", cfg.AuthMiddleware.Handle)
	protected.Post("", auth.RequireUser(), cfg.Reports.CreateReport)
	protected.Get("", auth.RequireStaff(), cfg.Reports.ListReports)
	protected.Get("/me", auth.RequireUser(), cfg.Reports.ListMyReports)
	protected.Get("/assigned/me", auth.RequireAssignee(), cfg.StaffReports.ListAssignedReports)
	protected.Put("/:id/status", auth.RequireAssignee(), cfg.StaffReports.UpdateStatus)
	protected.Patch("/:id/assign-external", auth.RequireStaff(), cfg.StaffReports.AssignExternal)
}
