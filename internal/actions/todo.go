package actions

import (
	"context"

	"github.com/fentz26/stashsweep/internal/models"
	"github.com/fentz26/stashsweep/internal/planner"
)

// Todo prints reminders. It never changes holdings.
type Todo struct {
	env *Env
}

// NewTodo creates the reminder executor.
func NewTodo(env *Env) *Todo {
	return &Todo{env: env}
}

func (t *Todo) Action() models.Action {
	return models.ActionTodo
}

func (t *Todo) Execute(ctx context.Context, plan *planner.Plan) (Result, error) {
	for _, e := range sortByName(plan.Bucket(models.ActionTodo)) {
		rule, _ := plan.Rule(e.Item)
		if rule.Message == "" {
			t.env.Out.Infof("TODO: %d %s", e.Amount, e.Item)
			continue
		}
		t.env.Out.Infof("TODO: %d %s: %s", e.Amount, e.Item, rule.Message)
	}
	return Result{}, nil
}
