package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/civic-report-service/internal/api/dto"
	"github.com/spec-kit/civic-report-service/internal/repository"
)

// DepartmentsHandler exposes the municipal org-chart read endpoints.
type DepartmentsHandler struct {
	departments repository.DepartmentRepository
}

// NewDepartmentsHandler constructs handler.
func NewDepartmentsHandler(departmentRepo repository.DepartmentRepository) *DepartmentsHandler {
	return &DepartmentsHandler{departments: departmentRepo}
}

// ListDepartments GET /departments.
func (h *DepartmentsHandler) ListDepartments(c *fiber.Ctx) error {
	depts, err := h.departments.ListActive(c.UserContext())
	if err != nil {
		return err
	}

	items := make([]dto.DepartmentResponse, 0, len(depts))
	for i := range depts {
		roles, err := h.departments.ListRoles(c.UserContext(), depts[i].ID)
		if err != nil {
			return err
		}
		roleItems := make([]dto.RoleResponse, 0, len(roles))
		for _, role := range roles {
			roleItems = append(roleItems, dto.RoleResponse{ID: role.ID, Name: role.Name})
		}
		items = append(items, dto.DepartmentResponse{
			ID:    depts[i].ID,
			Name:  depts[i].Name,
			Roles: roleItems,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}
