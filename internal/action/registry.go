package action

import (
	"context"
	"log"

	"formhub-backend/internal/model"
	"formhub-backend/internal/store"
)

// Registry loads and filters the configured actions for a form. One Registry
// serves one request: Load caches the list for the request's lifetime (the
// document lookup itself usually goes through the request cache as well).
type Registry struct {
	store store.DocumentStore
	units *UnitRegistry

	loaded map[string][]*model.Action
}

func NewRegistry(s store.DocumentStore, units *UnitRegistry) *Registry {
	return &Registry{
		store:  s,
		units:  units,
		loaded: make(map[string][]*model.Action),
	}
}

// Load returns the form's actions sorted by priority descending, creation
// order on ties. Actions whose name has no registered unit are skipped with
// a warning — orphaned configuration is tolerated, not fatal.
func (r *Registry) Load(ctx context.Context, formID string) ([]*model.Action, error) {
	if actions, ok := r.loaded[formID]; ok {
		return actions, nil
	}

	all, err := r.store.FindActions(ctx, formID)
	if err != nil {
		return nil, err
	}

	actions := make([]*model.Action, 0, len(all))
	for _, a := range all {
		if _, ok := r.units.Get(a.Name); !ok {
			log.Printf("WARN: skipping action %s (%s) on form %s: no such action unit", a.ID, a.Name, formID)
			continue
		}
		actions = append(actions, a)
	}
	sortByPriority(actions)

	r.loaded[formID] = actions
	return actions, nil
}

// Filter returns the actions configured for the given lifecycle phase and
// operation. Empty handler or method acts as a wildcard. The cached list is
// not mutated; callers get a fresh slice.
func Filter(actions []*model.Action, handler, method string) []*model.Action {
	var out []*model.Action
	for _, a := range actions {
		if a.RunsOn(handler, method) {
			out = append(out, a)
		}
	}
	return out
}
