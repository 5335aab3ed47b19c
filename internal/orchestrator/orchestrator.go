// Package orchestrator runs the cleanup pipeline and rebuilds the plan
// whenever an executor invalidates it.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/fentz26/stashsweep/internal/actions"
	"github.com/fentz26/stashsweep/internal/config"
	"github.com/fentz26/stashsweep/internal/models"
	"github.com/fentz26/stashsweep/internal/planner"
)

// ErrAborted is returned when the user stops the run.
var ErrAborted = actions.ErrAborted

// FailedProfit is reported when no plan could be built.
const FailedProfit int64 = -1

// Report summarises a run.
type Report struct {
	// Profit is the expected cleanup profit, or FailedProfit.
	Profit int64
	// ProfitByAction breaks Profit down by category.
	ProfitByAction map[models.Action]int64
	// StockingCost is what restocking is expected to cost. It is not part of Profit.
	StockingCost int64
	// Replans counts how many times the plan was rebuilt.
	Replans int
	// Plan is the last plan the run worked from.
	Plan *planner.Plan
}

// Orchestrator runs one cleanup.
type Orchestrator struct {
	env       *actions.Env
	planner   *planner.Planner
	executors []actions.Executor
	stocker   *actions.Stocker
	todo      *actions.Todo
}

// New creates an orchestrator. The planner must be dedicated to this run.
func New(env *actions.Env, p *planner.Planner) *Orchestrator {
	return &Orchestrator{
		env:       env,
		planner:   p,
		executors: actions.Pipeline(env),
		stocker:   actions.NewStocker(env, p.Stock()),
		todo:      actions.NewTodo(env),
	}
}

// Run executes the pipeline once. On failure the returned report carries the
// profit accumulated before the failure; nothing is rolled back.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	report := &Report{ProfitByAction: make(map[models.Action]int64)}

	if err := o.emptyCloset(ctx); err != nil {
		report.Profit = FailedProfit
		return report, err
	}

	plan, err := o.planner.MakePlan(ctx)
	if err != nil {
		report.Profit = FailedProfit
		return report, err
	}
	if plan == nil {
		report.Profit = FailedProfit
		return report, fmt.Errorf("%w: stopped to categorize items", ErrAborted)
	}
	report.Plan = plan
	log.Printf("[orchestrator] initial plan has %d entries", plan.Size())

	for _, ex := range o.executors {
		res, err := ex.Execute(ctx, plan)
		report.Profit += res.Profit
		if res.Profit != 0 {
			report.ProfitByAction[ex.Action()] += res.Profit
		}
		if err != nil {
			return report, err
		}
		if !res.ShouldReplan {
			continue
		}
		if plan, err = o.replan(ctx, plan, ex.Action()); err != nil || plan == nil {
			return o.stopped(report, err)
		}
		report.Plan = plan
		report.Replans++
	}

	stocked, err := o.stocker.Run(ctx)
	report.StockingCost = stocked.Cost
	if err != nil {
		return report, err
	}
	if stocked.Acquired > 0 {
		if plan, err = o.replan(ctx, plan, "stocking"); err != nil || plan == nil {
			return o.stopped(report, err)
		}
		report.Plan = plan
		report.Replans++
	}

	if _, err := o.todo.Execute(ctx, plan); err != nil {
		return report, err
	}
	return report, nil
}

// stopped ends a run whose replan failed. A replan the user stopped discards
// the profit made so far.
func (o *Orchestrator) stopped(report *Report, err error) (*Report, error) {
	if err != nil {
		return report, err
	}
	report.Profit = FailedProfit
	return report, fmt.Errorf("%w: stopped to categorize items", ErrAborted)
}

// replan returns a nil plan when the user stopped the run.
func (o *Orchestrator) replan(ctx context.Context, old *planner.Plan, after models.Action) (*planner.Plan, error) {
	next, err := o.planner.MakePlan(ctx)
	if err != nil {
		return nil, fmt.Errorf("replan after %s: %w", after, err)
	}
	if next == nil {
		return nil, nil
	}
	log.Printf("[orchestrator] replanned after %s: %d entries", after, next.Size())

	if o.env.Config.ShowReplanDiff {
		diff, err := PlanDiff(old, next, string(after))
		if err != nil {
			log.Printf("[orchestrator] failed to diff plans: %v", err)
		} else if diff != "" {
			for _, line := range strings.Split(strings.TrimRight(diff, "\n"), "\n") {
				o.env.Out.Infof("%s", line)
			}
		}
	}
	return next, nil
}

// PlanDiff returns a unified diff between two plans, or "" when they match.
func PlanDiff(old, next *planner.Plan, label string) (string, error) {
	a, b := old.Render(), next.Render()
	if a == b {
		return "", nil
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(a),
		B:        difflib.SplitLines(b),
		FromFile: "plan",
		ToFile:   "plan after " + label,
		Context:  1,
	})
}

// emptyCloset moves everything out of the closet before the first plan when
// configured to.
func (o *Orchestrator) emptyCloset(ctx context.Context) error {
	g := o.env.Game
	switch o.env.Config.EmptyClosetMode {
	case config.EmptyClosetAlways:
	case config.EmptyClosetBeforeStorageEmpty:
		stored, err := g.ItemsAt(ctx, models.LocationStorage)
		if err != nil {
			return fmt.Errorf("list storage: %w", err)
		}
		if len(stored) == 0 {
			return nil
		}
	default:
		return nil
	}

	items, err := g.ItemsAt(ctx, models.LocationCloset)
	if err != nil {
		return fmt.Errorf("list closet: %w", err)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	for _, item := range items {
		n, err := g.Amount(ctx, item, models.LocationCloset)
		if err != nil {
			return fmt.Errorf("closet amount of %s: %w", item, err)
		}
		if n <= 0 {
			continue
		}
		o.env.Out.Commandf("uncloset %d %s", n, item)
		if err := g.Execute(ctx, models.Command{Verb: models.VerbUncloset, Item: item, Quantity: n}); err != nil {
			return fmt.Errorf("failed to uncloset %d %s: %w", n, item, err)
		}
	}
	return nil
}
