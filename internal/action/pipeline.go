package action

import (
	"context"
	"log"

	"formhub-backend/internal/instrument"
)

// Pipeline executes the filtered, ordered actions for one request phase.
// Strictly sequential: each action completes before the next is considered,
// so an earlier action's mutations (a saved submission id, say) are visible
// to later ones. No rollback: an action's side effects stand even when a
// later action fails.
type Pipeline struct {
	registry   *Registry
	units      *UnitRegistry
	conditions *ConditionEvaluator
}

func NewPipeline(registry *Registry, units *UnitRegistry, conditions *ConditionEvaluator) *Pipeline {
	return &Pipeline{registry: registry, units: units, conditions: conditions}
}

// Execute runs every action configured for the handler phase and method, in
// priority order. Condition-false actions are skipped. The first action
// error aborts the rest of the sequence and is returned verbatim. A
// cancelled request stops launching further actions, but an action already
// running finishes.
func (p *Pipeline) Execute(ctx context.Context, handler, method string, ectx *ExecutionContext) error {
	if ectx.Form == nil {
		return nil
	}

	ctx, span := instrument.GetInstrumenter(ctx).StartSpan(ctx, "action", "pipeline", "pipeline.execute")
	defer span.End()
	span.SetEntity("form", ectx.Form.ID)
	span.SetMetadata("handler", handler)
	span.SetMetadata("method", method)

	actions, err := p.registry.Load(ctx, ectx.Form.ID)
	if err != nil {
		span.SetStatus("error")
		return err
	}

	for _, a := range Filter(actions, handler, method) {
		if err := ctx.Err(); err != nil {
			span.SetStatus("cancelled")
			return err
		}

		if !p.conditions.ShouldExecute(ctx, a, ectx.Data()) {
			log.Printf("Action %s (%s) skipped by condition", a.ID, a.Name)
			continue
		}

		unit, ok := p.units.Get(a.Name)
		if !ok {
			// Load already filtered unknown names; this only trips when the
			// registry and unit set disagree mid-request.
			log.Printf("WARN: action %s (%s) has no unit, skipping", a.ID, a.Name)
			continue
		}

		if err := unit.Resolve(ctx, a, handler, method, ectx); err != nil {
			span.SetStatus("error")
			return err
		}
	}

	span.SetStatus("ok")
	return nil
}
