package engine

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"formhub-backend/internal/access"
	"formhub-backend/internal/action"
	"formhub-backend/internal/model"
	"formhub-backend/internal/store"
)

// Engine holds the process-wide collaborators of the request surface. All
// request-scoped state (caches, snapshots, pipelines) is built per request
// in scope() and discarded afterwards — nothing here may memoize
// authorization decisions across requests.
type Engine struct {
	store            *store.Store
	units            *action.UnitRegistry
	evaluator        *access.Evaluator
	conditionTimeout time.Duration
}

func New(s *store.Store, units *action.UnitRegistry, evaluator *access.Evaluator, conditionTimeout time.Duration) *Engine {
	return &Engine{
		store:            s,
		units:            units,
		evaluator:        evaluator,
		conditionTimeout: conditionTimeout,
	}
}

// requestScope bundles the request-lifetime objects: one cache, one
// resolver, one action pipeline. Built fresh for every request.
type requestScope struct {
	cache    *store.RequestCache
	resolver *access.Resolver
	pipeline *action.Pipeline
}

func (e *Engine) scope() *requestScope {
	cache := store.NewRequestCache(e.store)
	roles := access.NewRoleDirectory(cache)
	registry := action.NewRegistry(cache, e.units)
	conditions := action.NewConditionEvaluator(e.conditionTimeout)
	return &requestScope{
		cache:    cache,
		resolver: access.NewResolver(cache, roles),
		pipeline: action.NewPipeline(registry, e.units, conditions),
	}
}

// authorize resolves the snapshot for the request scope and evaluates the
// permission decision. Any resolution failure surfaces as the uniform
// authorization error.
func (s *requestScope) authorize(c *fiber.Ctx, e *Engine, formID, submissionID string, entity *access.Entity, ownerInPayload bool) (*access.AccessSnapshot, access.Decision, error) {
	snap, err := s.resolver.Resolve(c.UserContext(), access.ResolveRequest{
		FormID:       formID,
		SubmissionID: submissionID,
	})
	if err != nil {
		return nil, access.Decision{}, mapError(err)
	}

	decision := e.evaluator.Decide(identityOf(c), snap, access.Request{
		Method:         c.Method(),
		Entity:         entity,
		OwnerInPayload: ownerInPayload,
	})
	if !decision.Allowed {
		return nil, decision, UnauthorizedError("Unauthorized")
	}
	return snap, decision, nil
}

// identityOf reads the caller identity set by the auth middleware. Missing
// identity means anonymous.
func identityOf(c *fiber.Ctx) model.CallerIdentity {
	identity, _ := c.Locals("identity").(model.CallerIdentity)
	return identity
}

// formID resolves the :formID route parameter. Forms are addressable by
// document id or by their path alias; an unresolvable alias falls through
// unchanged and fails the form lookup downstream.
func (e *Engine) formID(c *fiber.Ctx) string {
	param := c.Params("formID")
	if _, err := uuid.Parse(param); err == nil {
		return param
	}
	if form, err := e.store.FindFormByPath(c.UserContext(), param); err == nil {
		return form.ID
	}
	return param
}
