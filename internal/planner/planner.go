// Package planner turns cleanup rules and live holdings into a cleanup plan.
package planner

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/fentz26/stashsweep/internal/config"
	"github.com/fentz26/stashsweep/internal/connectors"
	"github.com/fentz26/stashsweep/internal/console"
	"github.com/fentz26/stashsweep/internal/models"
)

// Planner builds cleanup plans for one run. It carries the answer to the
// uncategorized-item prompt across passes, so one Planner must be used per run.
type Planner struct {
	game     connectors.Game
	cfg      *config.Config
	confirm  connectors.Confirmer
	out      console.Reporter
	resolver *Resolver
	recipes  *RecipeCache
	rules    models.RuleSet
	stock    models.StockSet

	askUncategorized bool
}

// New creates a planner for one run.
func New(g connectors.Game, cfg *config.Config, confirm connectors.Confirmer, out console.Reporter, rules models.RuleSet, stock models.StockSet) *Planner {
	if rules == nil {
		rules = models.RuleSet{}
	}
	if stock == nil {
		stock = models.StockSet{}
	}
	return &Planner{
		game:             g,
		cfg:              cfg,
		confirm:          confirm,
		out:              out,
		resolver:         NewResolver(g, cfg),
		recipes:          NewRecipeCache(g),
		rules:            rules,
		stock:            stock,
		askUncategorized: !cfg.MallDangerously,
	}
}

// Resolver returns the quantity resolver shared with the executors.
func (p *Planner) Resolver() *Resolver {
	return p.resolver
}

// Rules returns the rule set the planner was built with.
func (p *Planner) Rules() models.RuleSet {
	return p.rules
}

// Stock returns the stocking set the planner was built with.
func (p *Planner) Stock() models.StockSet {
	return p.stock
}

// MakePlan runs one planning pass over the items in inventory. It returns a
// nil plan and a nil error when the user chose to stop the run.
func (p *Planner) MakePlan(ctx context.Context) (*Plan, error) {
	items, err := p.game.ItemsAt(ctx, models.LocationInventory)
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })

	hasDisplay, err := p.game.HasDisplayCase(ctx)
	if err != nil {
		return nil, fmt.Errorf("check display case: %w", err)
	}

	b := NewBuilder(p.rules, p.stock)
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rule, hasRule := p.rules.Lookup(item)
		if hasRule && rule.Action.IsValid() {
			if err := p.classify(ctx, b, item, rule, hasDisplay); err != nil {
				return nil, err
			}
			continue
		}

		stop, err := p.checkStopForRelay(ctx, item)
		if err != nil {
			return nil, err
		}
		if stop {
			return nil, nil
		}
		if !hasRule && p.cfg.MallDangerously {
			excess, err := p.resolver.CleanupAmount(ctx, item, nil, p.stockRule(item))
			if err != nil {
				return nil, err
			}
			if excess > 0 {
				b.Add(models.ActionMall, item, excess)
			}
		} else if hasRule {
			log.Printf("[planner] %s has unrecognized action %q", item, rule.Action)
		}
	}

	return b.Build(), nil
}

func (p *Planner) stockRule(item models.Item) *models.StockingRule {
	if s, ok := p.stock.Lookup(item); ok {
		return &s
	}
	return nil
}

func (p *Planner) classify(ctx context.Context, b *Builder, item models.Item, rule models.CleanupRule, hasDisplay bool) error {
	excess, err := p.resolver.CleanupAmount(ctx, item, &rule, p.stockRule(item))
	if err != nil {
		return err
	}
	if excess <= 0 {
		return nil
	}

	switch rule.Action {
	case models.ActionKeep, models.ActionPulverize:
		// KEEP never acts; PULV items are gathered by tier when pulverizing.
	case models.ActionMake:
		return p.planMake(ctx, b, item, rule, excess)
	case models.ActionGift:
		b.AddGift(item, rule, excess)
	case models.ActionDisplay:
		if hasDisplay {
			b.Add(rule.Action, item, excess)
		}
	case models.ActionAuto, models.ActionBreak, models.ActionClan, models.ActionCloset,
		models.ActionDiscard, models.ActionMall, models.ActionTodo, models.ActionUntinker, models.ActionUse:
		b.Add(rule.Action, item, excess)
	default:
		return fmt.Errorf("unhandled action %q for %s", rule.Action, item)
	}
	return nil
}

func (p *Planner) planMake(ctx context.Context, b *Builder, item models.Item, rule models.CleanupRule, excess int) error {
	rate, err := p.recipes.Rate(ctx, rule.Target, item)
	if err != nil {
		return err
	}
	if rate <= 0 {
		p.out.Warnf("%s is not an ingredient of %s; check its MAKE rule", item, rule.Target)
		return nil
	}

	amount := excess
	if rule.CreatableOnly {
		creatable, err := p.game.CreatableAmount(ctx, rule.Target)
		if err != nil {
			return fmt.Errorf("creatable amount of %s: %w", rule.Target, err)
		}
		amount = min(amount, creatable*rate)
	}
	if amount < rate {
		return nil
	}
	b.AddMake(item, amount, rate, rule.Target)
	return nil
}

// checkStopForRelay asks once per run whether to stop and categorize an item
// that has no usable rule. It reports true when the user chose to stop.
func (p *Planner) checkStopForRelay(ctx context.Context, item models.Item) (bool, error) {
	if !p.askUncategorized {
		return false, nil
	}

	info, err := p.game.Describe(ctx, item)
	if err != nil {
		return false, fmt.Errorf("describe %s: %w", item, err)
	}
	if !info.Cleanable() {
		return false, nil
	}
	if s, ok := p.stock.Lookup(item); ok {
		full, err := p.game.AvailableAmount(ctx, item)
		if err != nil {
			return false, fmt.Errorf("available amount of %s: %w", item, err)
		}
		if s.Amount >= full {
			return false, nil
		}
	}

	question := fmt.Sprintf("%s has no cleanup rule. Stop now to categorize it? (no skips uncategorized items for the rest of this run)", item)
	stop, err := p.confirm.Confirm(ctx, question, 0, false)
	if err != nil {
		return false, fmt.Errorf("confirm: %w", err)
	}
	if stop {
		p.out.Warnf("Stopped to categorize %s", item)
		return true, nil
	}
	p.askUncategorized = false
	return false, nil
}
