package actions

import (
	"context"
	"fmt"

	"github.com/fentz26/stashsweep/internal/batch"
	"github.com/fentz26/stashsweep/internal/models"
	"github.com/fentz26/stashsweep/internal/planner"
)

type autosell struct {
	env *Env
}

func (a *autosell) Action() models.Action {
	return models.ActionAuto
}

// Execute sells each chunk and echoes its expected subtotal first. Profit only
// counts items whose sale went through.
func (a *autosell) Execute(ctx context.Context, plan *planner.Plan) (Result, error) {
	entries := sortByName(plan.Bucket(models.ActionAuto))
	if len(entries) == 0 {
		return Result{}, nil
	}

	var total int64
	for _, chunk := range batch.Chunk(entries, batch.MessageLimit) {
		var subtotal int64
		values := make([]int64, len(chunk))
		for i, e := range chunk {
			info, err := a.env.Game.Describe(ctx, e.Item)
			if err != nil {
				return Result{Profit: total}, fmt.Errorf("AUTO: price of %s: %w", e.Item, err)
			}
			values[i] = int64(e.Amount) * info.AutosellPrice
			subtotal += values[i]
		}

		a.env.Out.Commandf("autosell %s", describe(chunk))
		a.env.Out.Infof("Autosell subtotal: %d meat", subtotal)

		for i, e := range chunk {
			cmd := models.Command{Verb: models.VerbAutosell, Item: e.Item, Quantity: e.Amount}
			if err := a.env.Game.Execute(ctx, cmd); err != nil {
				return Result{Profit: total}, fmt.Errorf("AUTO: failed to autosell %d %s: %w", e.Amount, e.Item, err)
			}
			total += values[i]
		}
	}
	a.env.Out.Infof("Autosell total: %d meat", total)

	return Result{Profit: total}, nil
}
