package actions

import (
	"context"
	"fmt"
	"strings"

	"github.com/fentz26/stashsweep/internal/batch"
	"github.com/fentz26/stashsweep/internal/models"
	"github.com/fentz26/stashsweep/internal/planner"
)

const (
	shoppingList = "Degrassi Knoll shopping list"
	meatcar      = "bitchin' meatcar"
)

// simple issues one command per item. Batched categories group the calls
// into game batches.
type simple struct {
	env     *Env
	action  models.Action
	verb    models.Verb
	replans bool
	batched bool
}

func newSimple(env *Env, action models.Action, verb models.Verb, replans, batched bool) *simple {
	return &simple{env: env, action: action, verb: verb, replans: replans, batched: batched}
}

func (s *simple) Action() models.Action {
	return s.action
}

func (s *simple) Execute(ctx context.Context, plan *planner.Plan) (Result, error) {
	entries := sortByName(plan.Bucket(s.action))
	if s.action == models.ActionUse {
		var err error
		if entries, err = s.withoutShoppingList(ctx, entries); err != nil {
			return Result{}, err
		}
	}
	if len(entries) == 0 {
		return Result{}, nil
	}

	for _, chunk := range batch.Chunk(entries, batch.MessageLimit) {
		s.env.Out.Commandf("%s %s", s.verb, describe(chunk))
	}

	run := func(ctx context.Context, chunk []planner.Entry) error {
		for _, e := range chunk {
			cmd := models.Command{Verb: s.verb, Item: e.Item, Quantity: e.Amount}
			if err := s.env.Game.Execute(ctx, cmd); err != nil {
				return fmt.Errorf("%s: failed to %s %d %s: %w", s.action, s.verb, e.Amount, e.Item, err)
			}
		}
		return nil
	}

	if s.batched {
		onClose := func(chunk []planner.Entry, err error) error {
			return fmt.Errorf("%s: batch of %d items failed to close: %w", s.action, len(chunk), err)
		}
		if err := batch.Process(ctx, gameTx{game: s.env.Game}, entries, batch.BulkLimit, run, onClose); err != nil {
			return Result{}, err
		}
	} else if err := run(ctx, entries); err != nil {
		return Result{}, err
	}

	return Result{ShouldReplan: s.replans}, nil
}

// withoutShoppingList drops the shopping list from USE unless the character
// owns the car that unlocks it.
func (s *simple) withoutShoppingList(ctx context.Context, entries []planner.Entry) ([]planner.Entry, error) {
	idx := -1
	for i, e := range entries {
		if strings.EqualFold(e.Item.Name, shoppingList) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return entries, nil
	}

	car, ok, err := s.env.Game.ItemNamed(ctx, meatcar)
	if err != nil {
		return nil, fmt.Errorf("look up %s: %w", meatcar, err)
	}
	if ok {
		n, err := s.env.Game.AvailableAmount(ctx, car)
		if err != nil {
			return nil, fmt.Errorf("available amount of %s: %w", car, err)
		}
		if n > 0 {
			return entries, nil
		}
	}
	return append(entries[:idx:idx], entries[idx+1:]...), nil
}
