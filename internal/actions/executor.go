// Package actions carries out the buckets of a cleanup plan.
package actions

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/fentz26/stashsweep/internal/config"
	"github.com/fentz26/stashsweep/internal/connectors"
	"github.com/fentz26/stashsweep/internal/console"
	"github.com/fentz26/stashsweep/internal/models"
	"github.com/fentz26/stashsweep/internal/planner"
)

var (
	// ErrPrecondition means a plan broke an executor invariant.
	ErrPrecondition = errors.New("precondition violated")
	// ErrAborted means the user chose to abort the run.
	ErrAborted = errors.New("run aborted by user")
)

// Result is what an executor reports back to the orchestrator.
type Result struct {
	// ShouldReplan is set when the executor may have changed holdings that
	// other buckets depend on.
	ShouldReplan bool
	// Profit is the expected currency gained, also reported when simulating.
	Profit int64
}

// Env holds the collaborators shared by every executor of a run.
type Env struct {
	Game     connectors.Game
	Config   *config.Config
	Confirm  connectors.Confirmer
	Out      console.Reporter
	Resolver *planner.Resolver
}

// Executor carries out one action category.
type Executor interface {
	Action() models.Action
	Execute(ctx context.Context, plan *planner.Plan) (Result, error)
}

// Pipeline returns the executors in run order. Item-creating and consuming
// categories come before the ones that only move or sell items. TODO is not
// included; it always runs last.
func Pipeline(env *Env) []Executor {
	return []Executor{
		newSimple(env, models.ActionBreak, models.VerbBreak, true, false),
		&maker{env: env},
		newSimple(env, models.ActionUntinker, models.VerbUntinker, true, false),
		newSimple(env, models.ActionUse, models.VerbUse, true, false),
		&pulverizer{env: env},
		&mall{env: env},
		&autosell{env: env},
		newSimple(env, models.ActionDiscard, models.VerbDiscard, false, false),
		newSimple(env, models.ActionDisplay, models.VerbDisplay, false, true),
		newSimple(env, models.ActionCloset, models.VerbCloset, false, true),
		newSimple(env, models.ActionClan, models.VerbStash, false, true),
		&gifter{env: env},
	}
}

// ForAction returns the executor of a single category.
func ForAction(env *Env, a models.Action) (Executor, bool) {
	if a == models.ActionTodo {
		return &Todo{env: env}, true
	}
	for _, e := range Pipeline(env) {
		if e.Action() == a {
			return e, true
		}
	}
	return nil, false
}

// gameTx opens and closes game batches.
type gameTx struct {
	game connectors.Commands
}

func (t gameTx) BatchOpen(ctx context.Context) error {
	return t.game.Execute(ctx, models.Command{Verb: models.VerbBatchOpen})
}

func (t gameTx) BatchClose(ctx context.Context) error {
	return t.game.Execute(ctx, models.Command{Verb: models.VerbBatchClose})
}

func sortByName(entries []planner.Entry) []planner.Entry {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Item.Name != entries[j].Item.Name {
			return entries[i].Item.Name < entries[j].Item.Name
		}
		return entries[i].Item.ID < entries[j].Item.ID
	})
	return entries
}

func describe(entries []planner.Entry) string {
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, fmt.Sprintf("%d %s", e.Amount, e.Item))
	}
	return strings.Join(parts, ", ")
}

func itemQuantities(entries []planner.Entry) []models.ItemQuantity {
	out := make([]models.ItemQuantity, 0, len(entries))
	for _, e := range entries {
		out = append(out, models.ItemQuantity{Item: e.Item, Quantity: e.Amount})
	}
	return out
}

// send delivers msg, falling back to a gift package when the recipient cannot
// receive ordinary messages.
func send(ctx context.Context, env *Env, msg models.Message) error {
	err := env.Game.Send(ctx, msg)
	if errors.Is(err, connectors.ErrCannotReceive) {
		env.Out.Warnf("%s cannot receive messages right now; sending as a gift package", msg.Recipient)
		err = env.Game.SendGift(ctx, msg)
	}
	if err != nil {
		return fmt.Errorf("send to %s: %w", msg.Recipient, err)
	}
	return nil
}
