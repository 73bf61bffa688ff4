package action

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"formhub-backend/internal/model"
)

// ErrBadConfig marks an action whose settings are unusable (missing role,
// missing URL, ...). The request surface maps it to a client error; it never
// crashes the pipeline for other requests.
var ErrBadConfig = errors.New("bad action configuration")

// Unit is the contract every action implementation satisfies. Resolve runs
// the action for one lifecycle phase and operation, mutating ectx in place
// as its side channel. Returning an error aborts the rest of the pipeline
// for this request.
type Unit interface {
	Resolve(ctx context.Context, a *model.Action, handler, method string, ectx *ExecutionContext) error
}

// UnitRegistry maps stable action names to their implementations. Populated
// once at startup; read-only afterwards.
type UnitRegistry struct {
	units map[string]Unit
}

func NewUnitRegistry() *UnitRegistry {
	return &UnitRegistry{units: make(map[string]Unit)}
}

// Register adds a unit under its name. Registering the same name twice is a
// programmer error and panics.
func (r *UnitRegistry) Register(name string, u Unit) {
	if _, exists := r.units[name]; exists {
		panic(fmt.Sprintf("action unit %q registered twice", name))
	}
	r.units[name] = u
}

// Get returns the unit for a name.
func (r *UnitRegistry) Get(name string) (Unit, bool) {
	u, ok := r.units[name]
	return u, ok
}

// sortByPriority stable-sorts actions by priority descending. Equal
// priorities keep their current (creation) order.
func sortByPriority(actions []*model.Action) {
	sort.SliceStable(actions, func(i, j int) bool {
		return actions[i].Priority > actions[j].Priority
	})
}
