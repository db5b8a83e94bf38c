// Package routing maps report categories to the departments responsible for
// them, and staff role names to the category each role serves. It is a pure
// mapping layer; department records themselves come from storage.
package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spec-kit/civic-report-service/internal/domain"
	apperrors "github.com/spec-kit/civic-report-service/pkg/util/errorutil"
)

// Config is the injected routing table, loaded at startup so category and
// role additions do not require code changes.
type Config struct {
	Categories     []string          `json:"categories"`
	RoleCategories map[string]string `json:"role_categories"`
}

// DefaultConfig returns the seeded municipal routing table. Administrators
// and public-relations officers are deliberately absent from RoleCategories:
// absence means "sees all categories".
func DefaultConfig() Config {
	return Config{
		Categories: []string{
			"Waste",
			"Sewer System",
			"Public Lighting",
			"Roads and Urban Furniture",
			"Public Green Areas",
			"Road Signs and Traffic Lights",
		},
		RoleCategories: map[string]string{
			"waste operator":           "Waste",
			"sewer technician":         "Sewer System",
			"lighting technician":      "Public Lighting",
			"road maintenance officer": "Roads and Urban Furniture",
			"green areas operator":     "Public Green Areas",
			"traffic signage operator": "Road Signs and Traffic Lights",
		},
	}
}

// LoadConfig reads a routing table from a JSON file, falling back to the
// compiled defaults when path is empty.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read routing config: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode routing config: %w", err)
	}
	if len(cfg.Categories) == 0 {
		return Config{}, fmt.Errorf("routing config lists no categories")
	}
	return cfg, nil
}

// DepartmentSource is the storage collaborator the router resolves
// departments through.
type DepartmentSource interface {
	GetByName(ctx context.Context, name string) (*domain.Department, error)
}

// Router resolves category/department/role associations.
type Router struct {
	categories     []string
	categorySet    map[string]struct{}
	roleCategories map[string]string
	departments    DepartmentSource
}

// NewRouter builds a router from the injected table. Role names are
// normalized once so lookups are case-insensitive.
func NewRouter(cfg Config, departments DepartmentSource) *Router {
	categorySet := make(map[string]struct{}, len(cfg.Categories))
	for _, category := range cfg.Categories {
		categorySet[category] = struct{}{}
	}
	roleCategories := make(map[string]string, len(cfg.RoleCategories))
	for role, category := range cfg.RoleCategories {
		roleCategories[normalizeRole(role)] = category
	}
	return &Router{
		categories:     append([]string(nil), cfg.Categories...),
		categorySet:    categorySet,
		roleCategories: roleCategories,
		departments:    departments,
	}
}

// Categories returns the static category list in seeded order.
func (r *Router) Categories() []string {
	return append([]string(nil), r.categories...)
}

// KnownCategory reports whether category is one of the seeded keys.
func (r *Router) KnownCategory(category string) bool {
	_, ok := r.categorySet[category]
	return ok
}

// CategoryForRole returns the category a staff role is responsible for, or
// nil for roles outside the table (administrators, PR officers, externals),
// which callers treat as "unrestricted, no auto-filter". Never errors.
func (r *Router) CategoryForRole(roleName string) *string {
	category, ok := r.roleCategories[normalizeRole(roleName)]
	if !ok {
		return nil
	}
	return &category
}

// DepartmentForCategory resolves the department responsible for a category.
// Department names are 1:1 with report categories in this system.
func (r *Router) DepartmentForCategory(ctx context.Context, category string) (*domain.Department, error) {
	if !r.KnownCategory(category) {
		return nil, apperrors.NewValidationError("unknown report category", map[string]any{
			"category": category,
		})
	}
	if r.departments == nil {
		return nil, apperrors.NewUpstreamUnavailable("department lookup not configured")
	}
	dept, err := r.departments.GetByName(ctx, category)
	if err != nil {
		return nil, err
	}
	return dept, nil
}

func normalizeRole(roleName string) string {
	return strings.ToLower(strings.TrimSpace(roleName))
}
