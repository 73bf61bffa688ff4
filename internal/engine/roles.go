package engine

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"formhub-backend/internal/model"
)

// Role CRUD. Roles have no entity-scoped access rules of their own, so the
// neutral-snapshot decision applies: admins only.

// ListRoles handles GET /role.
func (e *Engine) ListRoles(c *fiber.Ctx) error {
	s := e.scope()
	if _, _, err := s.authorize(c, e, "", "", nil, false); err != nil {
		return err
	}

	roles, err := e.store.ListRoles(c.UserContext())
	if err != nil {
		return StoreUnavailableError(fmt.Sprintf("list roles: %v", err))
	}
	if roles == nil {
		roles = []*model.Role{}
	}
	return c.JSON(fiber.Map{"data": roles})
}

// CreateRole handles POST /role.
func (e *Engine) CreateRole(c *fiber.Ctx) error {
	s := e.scope()
	if _, _, err := s.authorize(c, e, "", "", nil, false); err != nil {
		return err
	}

	var role model.Role
	if err := c.BodyParser(&role); err != nil {
		return NewAppError("INVALID_PAYLOAD", 400, "Invalid JSON body")
	}
	if role.Title == "" {
		return ValidationError("Role title is required")
	}
	role.ID = ""

	if err := e.store.SaveRole(c.UserContext(), &role); err != nil {
		return StoreUnavailableError(fmt.Sprintf("save role: %v", err))
	}
	return c.Status(201).JSON(fiber.Map{"data": role})
}

// UpdateRole handles PUT /role/:roleID.
func (e *Engine) UpdateRole(c *fiber.Ctx) error {
	s := e.scope()
	if _, _, err := s.authorize(c, e, "", "", nil, false); err != nil {
		return err
	}

	var role model.Role
	if err := c.BodyParser(&role); err != nil {
		return NewAppError("INVALID_PAYLOAD", 400, "Invalid JSON body")
	}
	role.ID = c.Params("roleID")

	if err := e.store.SaveRole(c.UserContext(), &role); err != nil {
		return StoreUnavailableError(fmt.Sprintf("save role: %v", err))
	}
	return c.JSON(fiber.Map{"data": role})
}
