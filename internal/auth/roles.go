package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/civic-report-service/internal/domain"
)

// RequireUser ensures a citizen is authenticated.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.SubjectType != domain.SubjectTypeUser {
			return fiber.NewError(http.StatusForbidden, "citizen account required")
		}
		return c.Next()
	}
}

// RequireStaff ensures a staff principal, any role.
func RequireStaff() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.SubjectType != domain.SubjectTypeStaff || principal.Staff == nil {
			return fiber.NewError(http.StatusForbidden, "staff account required")
		}
		return c.Next()
	}
}

// RequireBackOffice ensures the staff principal may approve or reject
// submissions (administrator or public-relations officer).
func RequireBackOffice() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.Staff == nil {
			return fiber.NewError(http.StatusForbidden, "staff account required")
		}
		if !principal.Staff.IsBackOffice() {
			return fiber.NewError(http.StatusForbidden, "insufficient role")
		}
		return c.Next()
	}
}

// RequireAssignee ensures a staff or external principal (the populations that
// can hold report assignments).
func RequireAssignee() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || (principal.Staff == nil && principal.External == nil) {
			return fiber.NewError(http.StatusForbidden, "staff or maintainer account required")
		}
		return c.Next()
	}
}

// RequireAnyRole ensures the caller is authenticated (any subject type).
func RequireAnyRole() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		return c.Next()
	}
}
