package actions

import (
	"context"
	"fmt"
	"sort"

	"github.com/fentz26/stashsweep/internal/models"
	"github.com/fentz26/stashsweep/internal/planner"
)

type maker struct {
	env *Env
}

func (m *maker) Action() models.Action {
	return models.ActionMake
}

// Execute crafts each entry's target. Crafting may consume ingredients that
// belong to other buckets, so a non-empty bucket always asks for a replan.
func (m *maker) Execute(ctx context.Context, plan *planner.Plan) (Result, error) {
	entries := plan.Makes()
	if len(entries) == 0 {
		return Result{}, nil
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Item.Name < entries[j].Item.Name })

	mult, err := m.env.Game.CraftMultiplier(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("MAKE: craft multiplier: %w", err)
	}
	if mult < 1 {
		mult = 1
	}

	for _, e := range entries {
		if e.Rate <= 0 {
			return Result{}, fmt.Errorf("%w: MAKE entry for %s has rate %d", ErrPrecondition, e.Item, e.Rate)
		}
		crafts := e.Amount / e.Rate
		if crafts == 0 {
			continue
		}
		// the command counts target units, so a bulk-crafting build yields mult per craft
		units := crafts * mult
		m.env.Out.Commandf("craft %d %s (using %d %s)", units, e.Target, crafts*e.Rate, e.Item)
		cmd := models.Command{Verb: models.VerbCraft, Item: e.Target, Quantity: units}
		if err := m.env.Game.Execute(ctx, cmd); err != nil {
			return Result{ShouldReplan: true}, fmt.Errorf("MAKE: failed to craft %d %s from %s: %w", units, e.Target, e.Item, err)
		}
	}
	return Result{ShouldReplan: true}, nil
}
