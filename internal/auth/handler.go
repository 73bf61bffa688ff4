package auth

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"formhub-backend/internal/engine"
	"formhub-backend/internal/store"
)

// Handler serves login and registration.
type Handler struct {
	store     *store.Store
	jwtSecret string
}

func NewHandler(s *store.Store, jwtSecret string) *Handler {
	return &Handler{store: s, jwtSecret: jwtSecret}
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *fiber.Ctx) error {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&body); err != nil {
		return engine.NewAppError("INVALID_PAYLOAD", 400, "Invalid request body")
	}
	if body.Email == "" || body.Password == "" {
		return engine.UnauthorizedError("Email and password are required")
	}

	user, err := h.store.FindUserByEmail(c.Context(), body.Email)
	if err != nil {
		return engine.UnauthorizedError("Invalid email or password")
	}
	if !user.Active {
		return engine.UnauthorizedError("Account is disabled")
	}
	if !CheckPassword(body.Password, user.PasswordHash) {
		return engine.UnauthorizedError("Invalid email or password")
	}

	pair, err := GenerateTokenPair(user.ID, user.Roles, h.jwtSecret)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"user":          fiber.Map{"id": user.ID, "email": user.Email, "roles": user.Roles},
	}})
}

// Register handles POST /auth/register. New accounts get the installation's
// default role; further roles come from role assignment actions.
func (h *Handler) Register(c *fiber.Ctx) error {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&body); err != nil {
		return engine.NewAppError("INVALID_PAYLOAD", 400, "Invalid request body")
	}
	if body.Email == "" || len(body.Password) < 8 {
		return engine.NewAppError("VALIDATION_FAILED", 422, "Email and a password of at least 8 characters are required")
	}

	hash, err := HashPassword(body.Password)
	if err != nil {
		return err
	}

	var roles []string
	defaultRole, err := h.store.FindRole(c.Context(), store.RoleQuery{Default: true})
	if err == nil {
		roles = []string{defaultRole.ID}
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	user, err := h.store.CreateUser(c.Context(), body.Email, hash, roles)
	if err != nil {
		if errors.Is(err, store.ErrUniqueViolation) {
			return engine.NewAppError("EMAIL_TAKEN", 409, "An account with this email already exists")
		}
		return err
	}

	pair, err := GenerateTokenPair(user.ID, user.Roles, h.jwtSecret)
	if err != nil {
		return err
	}
	return c.Status(201).JSON(fiber.Map{"data": fiber.Map{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"user":          fiber.Map{"id": user.ID, "email": user.Email, "roles": user.Roles},
	}})
}

// Refresh handles POST /auth/refresh. The user's roles are reloaded from the
// store, so role changes made since login land in the new access token.
func (h *Handler) Refresh(c *fiber.Ctx) error {
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.BodyParser(&body); err != nil || body.RefreshToken == "" {
		return engine.NewAppError("INVALID_PAYLOAD", 400, "A refresh_token is required")
	}

	claims, err := ParseRefreshToken(body.RefreshToken, h.jwtSecret)
	if err != nil {
		return engine.UnauthorizedError("Invalid or expired refresh token")
	}

	user, err := h.store.FindUser(c.Context(), claims.Subject)
	if err != nil {
		return engine.UnauthorizedError("Invalid or expired refresh token")
	}
	if !user.Active {
		return engine.UnauthorizedError("Account is disabled")
	}

	pair, err := GenerateTokenPair(user.ID, user.Roles, h.jwtSecret)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": pair})
}

// RegisterRoutes mounts the auth endpoints.
func RegisterRoutes(app *fiber.App, h *Handler) {
	app.Post("/auth/login", h.Login)
	app.Post("/auth/register", h.Register)
	app.Post("/auth/refresh", h.Refresh)
}
