package engine

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"formhub-backend/internal/access"
	"formhub-backend/internal/model"
)

// Action configuration CRUD, nested under the owning form. Authorization
// piggybacks on the form's own access rules: whoever may operate on the form
// may configure its actions.

// ListActions handles GET /form/:formID/action.
func (e *Engine) ListActions(c *fiber.Ctx) error {
	s := e.scope()
	formID := e.formID(c)

	if _, _, err := s.authorize(c, e, formID, "",
		&access.Entity{Type: access.EntityForm, ID: formID}, false); err != nil {
		return err
	}

	actions, err := e.store.FindActions(c.UserContext(), formID)
	if err != nil {
		return StoreUnavailableError(fmt.Sprintf("list actions: %v", err))
	}
	if actions == nil {
		actions = []*model.Action{}
	}
	return c.JSON(fiber.Map{"data": actions})
}

// CreateAction handles POST /form/:formID/action.
func (e *Engine) CreateAction(c *fiber.Ctx) error {
	s := e.scope()
	formID := e.formID(c)

	var a model.Action
	if err := c.BodyParser(&a); err != nil {
		return NewAppError("INVALID_PAYLOAD", 400, "Invalid JSON body")
	}

	if _, _, err := s.authorize(c, e, formID, "",
		&access.Entity{Type: access.EntityForm, ID: formID}, false); err != nil {
		return err
	}
	if _, err := s.cache.FindForm(c.UserContext(), formID); err != nil {
		return mapError(err)
	}

	if err := e.validateAction(&a); err != nil {
		return err
	}
	a.ID = ""
	a.FormID = formID

	if err := e.store.SaveAction(c.UserContext(), &a); err != nil {
		return StoreUnavailableError(fmt.Sprintf("save action: %v", err))
	}
	return c.Status(201).JSON(fiber.Map{"data": a})
}

// UpdateAction handles PUT /form/:formID/action/:actionID.
func (e *Engine) UpdateAction(c *fiber.Ctx) error {
	s := e.scope()
	formID := e.formID(c)
	actionID := c.Params("actionID")

	var a model.Action
	if err := c.BodyParser(&a); err != nil {
		return NewAppError("INVALID_PAYLOAD", 400, "Invalid JSON body")
	}

	if _, _, err := s.authorize(c, e, formID, "",
		&access.Entity{Type: access.EntityForm, ID: formID}, false); err != nil {
		return err
	}

	if err := e.validateAction(&a); err != nil {
		return err
	}
	a.ID = actionID
	a.FormID = formID

	if err := e.store.SaveAction(c.UserContext(), &a); err != nil {
		return StoreUnavailableError(fmt.Sprintf("save action: %v", err))
	}
	return c.JSON(fiber.Map{"data": a})
}

// DeleteAction handles DELETE /form/:formID/action/:actionID.
func (e *Engine) DeleteAction(c *fiber.Ctx) error {
	s := e.scope()
	formID := e.formID(c)
	actionID := c.Params("actionID")

	if _, _, err := s.authorize(c, e, formID, "",
		&access.Entity{Type: access.EntityForm, ID: formID}, false); err != nil {
		return err
	}

	if err := e.store.DeleteAction(c.UserContext(), actionID); err != nil {
		return StoreUnavailableError(fmt.Sprintf("delete action: %v", err))
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"deleted": actionID}})
}

// validateAction rejects configuration that could never run. Unknown names
// are a client error at configuration time; only already-persisted orphans
// are tolerated (and skipped) at load time.
func (e *Engine) validateAction(a *model.Action) error {
	if a.Name == "" {
		return ValidationError("Action name is required")
	}
	if _, ok := e.units.Get(a.Name); !ok {
		return BadConfigurationError(fmt.Sprintf("No action unit named %q is registered", a.Name))
	}
	if len(a.Handler) == 0 {
		a.Handler = []string{model.HandlerBefore}
	}
	if len(a.Method) == 0 {
		a.Method = []string{model.MethodCreate, model.MethodUpdate}
	}
	return nil
}
