package store

import (
	"context"
	"sync"

	"formhub-backend/internal/model"
)

// RequestCache memoizes document lookups for the lifetime of one request so
// the access resolver and action registry do not refetch the same form or
// submission. It is created per request by the handler layer and discarded at
// request end; it must never be shared across requests.
type RequestCache struct {
	store DocumentStore

	mu          sync.Mutex
	forms       map[string]*model.Form
	submissions map[string]*model.Submission
	roles       map[RoleQuery]*model.Role
	actions     map[string][]*model.Action
}

// NewRequestCache wraps a DocumentStore with per-request memoization.
func NewRequestCache(s DocumentStore) *RequestCache {
	return &RequestCache{
		store:       s,
		forms:       make(map[string]*model.Form),
		submissions: make(map[string]*model.Submission),
		roles:       make(map[RoleQuery]*model.Role),
		actions:     make(map[string][]*model.Action),
	}
}

// FindForm returns the cached form or loads it once.
func (c *RequestCache) FindForm(ctx context.Context, id string) (*model.Form, error) {
	c.mu.Lock()
	if form, ok := c.forms[id]; ok {
		c.mu.Unlock()
		return form, nil
	}
	c.mu.Unlock()

	form, err := c.store.FindForm(ctx, id)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.forms[id] = form
	c.mu.Unlock()
	return form, nil
}

// FindSubmission returns the cached submission or loads it once.
func (c *RequestCache) FindSubmission(ctx context.Context, formID, id string) (*model.Submission, error) {
	key := formID + "/" + id
	c.mu.Lock()
	if sub, ok := c.submissions[key]; ok {
		c.mu.Unlock()
		return sub, nil
	}
	c.mu.Unlock()

	sub, err := c.store.FindSubmission(ctx, formID, id)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.submissions[key] = sub
	c.mu.Unlock()
	return sub, nil
}

// FindRole returns the cached role for the query or loads it once.
func (c *RequestCache) FindRole(ctx context.Context, q RoleQuery) (*model.Role, error) {
	c.mu.Lock()
	if role, ok := c.roles[q]; ok {
		c.mu.Unlock()
		return role, nil
	}
	c.mu.Unlock()

	role, err := c.store.FindRole(ctx, q)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.roles[q] = role
	c.mu.Unlock()
	return role, nil
}

// FindActions returns the cached action list for the form or loads it once.
// Callers must treat the returned slice as read-only.
func (c *RequestCache) FindActions(ctx context.Context, formID string) ([]*model.Action, error) {
	c.mu.Lock()
	if actions, ok := c.actions[formID]; ok {
		c.mu.Unlock()
		return actions, nil
	}
	c.mu.Unlock()

	actions, err := c.store.FindActions(ctx, formID)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.actions[formID] = actions
	c.mu.Unlock()
	return actions, nil
}

// Invalidate drops a cached submission after an action mutates it mid-request
// so later loads in the same request observe the new state.
func (c *RequestCache) Invalidate(formID, id string) {
	c.mu.Lock()
	delete(c.submissions, formID+"/"+id)
	c.mu.Unlock()
}
