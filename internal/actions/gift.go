package actions

import (
	"context"
	"fmt"

	"github.com/fentz26/stashsweep/internal/batch"
	"github.com/fentz26/stashsweep/internal/models"
	"github.com/fentz26/stashsweep/internal/planner"
)

type gifter struct {
	env *Env
}

func (g *gifter) Action() models.Action {
	return models.ActionGift
}

// Execute sends one message per recipient group, split at the message limit.
func (g *gifter) Execute(ctx context.Context, plan *planner.Plan) (Result, error) {
	for _, group := range plan.Gifts() {
		if len(group.Entries) == 0 {
			continue
		}
		rep, ok := plan.Rule(group.Entries[0].Item)
		if !ok || rep.Action != models.ActionGift {
			return Result{}, fmt.Errorf("%w: %s is in the GIFT bucket without a GIFT rule", ErrPrecondition, group.Entries[0].Item)
		}

		entries := sortByName(group.Entries)
		for _, chunk := range batch.Chunk(entries, batch.MessageLimit) {
			g.env.Out.Commandf("send to %s: %s", rep.Recipient, describe(chunk))
			msg := models.Message{Recipient: rep.Recipient, Text: rep.Message, Items: itemQuantities(chunk)}
			if err := send(ctx, g.env, msg); err != nil {
				return Result{}, fmt.Errorf("GIFT: %w", err)
			}
		}
	}
	return Result{}, nil
}
