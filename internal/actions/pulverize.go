package actions

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/fentz26/stashsweep/internal/batch"
	"github.com/fentz26/stashsweep/internal/models"
	"github.com/fentz26/stashsweep/internal/planner"
)

const (
	pulverizeSkill = "Pulverize"
	// materials reduce in batches of this size
	reductionBatch = 5
	// tier 0 is equipment; 1-3 are the material stages in processing order
	maxTier = 3
)

type pulverizer struct {
	env *Env
}

func (p *pulverizer) Action() models.Action {
	return models.ActionPulverize
}

type pulvCandidate struct {
	rule models.CleanupRule
	tier int
}

// Execute gathers PULV items straight from the rule set, tier by tier, so that
// products of one tier are picked up by the next.
func (p *pulverizer) Execute(ctx context.Context, plan *planner.Plan) (Result, error) {
	tiers, err := p.candidates(ctx, plan)
	if err != nil {
		return Result{}, err
	}

	skilled, err := p.env.Game.HasSkill(ctx, pulverizeSkill)
	if err != nil {
		return Result{}, fmt.Errorf("PULV: check skill: %w", err)
	}
	if skilled {
		return p.reduce(ctx, plan, tiers)
	}
	return p.delegate(ctx, plan, tiers)
}

func (p *pulverizer) candidates(ctx context.Context, plan *planner.Plan) ([maxTier + 1][]pulvCandidate, error) {
	var tiers [maxTier + 1][]pulvCandidate
	for _, rule := range plan.Rules().Sorted() {
		if rule.Action != models.ActionPulverize {
			continue
		}
		tier, err := p.env.Game.ReductionTier(ctx, rule.Item)
		if err != nil {
			return tiers, fmt.Errorf("PULV: tier of %s: %w", rule.Item, err)
		}
		if tier < 0 || tier > maxTier {
			p.env.Out.Warnf("%s cannot be pulverized; check its PULV rule", rule.Item)
			continue
		}
		tiers[tier] = append(tiers[tier], pulvCandidate{rule: rule, tier: tier})
	}
	for _, t := range tiers {
		sort.SliceStable(t, func(i, j int) bool { return t[i].rule.Item.Name < t[j].rule.Item.Name })
	}
	return tiers, nil
}

func (p *pulverizer) excess(ctx context.Context, plan *planner.Plan, rule models.CleanupRule) (int, error) {
	var stock *models.StockingRule
	if s, ok := plan.Stock().Lookup(rule.Item); ok {
		stock = &s
	}
	return p.env.Resolver.CleanupAmount(ctx, rule.Item, &rule, stock)
}

// reduce pulverizes in house. Excess is resolved when each tier starts so that
// earlier tiers' products are included.
func (p *pulverizer) reduce(ctx context.Context, plan *planner.Plan, tiers [maxTier + 1][]pulvCandidate) (Result, error) {
	processed := false
	for tier, cands := range tiers {
		for _, c := range cands {
			n, err := p.excess(ctx, plan, c.rule)
			if err != nil {
				return Result{ShouldReplan: processed}, err
			}
			if tier > 0 {
				n -= n % reductionBatch
			}
			if n <= 0 {
				continue
			}
			p.env.Out.Commandf("pulverize %d %s", n, c.rule.Item)
			cmd := models.Command{Verb: models.VerbPulverize, Item: c.rule.Item, Quantity: n}
			if err := p.env.Game.Execute(ctx, cmd); err != nil {
				return Result{ShouldReplan: processed}, fmt.Errorf("PULV: failed to pulverize %d %s: %w", n, c.rule.Item, err)
			}
			processed = true
		}
	}
	return Result{ShouldReplan: processed}, nil
}

// delegate sends everything to the pulverizing bot with a command naming the
// tiers included. Amounts are not rounded so the bot can combine partial
// batches.
func (p *pulverizer) delegate(ctx context.Context, plan *planner.Plan, tiers [maxTier + 1][]pulvCandidate) (Result, error) {
	bot := p.env.Config.PulverizeBot

	var entries []planner.Entry
	var sent []pulvCandidate
	mask := 0
	for _, cands := range tiers {
		for _, c := range cands {
			info, err := p.env.Game.Describe(ctx, c.rule.Item)
			if err != nil {
				return Result{}, fmt.Errorf("PULV: describe %s: %w", c.rule.Item, err)
			}
			if !info.Tradeable {
				continue
			}
			n, err := p.excess(ctx, plan, c.rule)
			if err != nil {
				return Result{}, err
			}
			if n <= 0 {
				continue
			}
			entries = append(entries, planner.Entry{Item: c.rule.Item, Amount: n})
			sent = append(sent, c)
			mask |= 1 << c.tier
		}
	}
	if len(entries) == 0 {
		return Result{}, nil
	}

	online, err := p.env.Game.IsOnline(ctx, bot)
	if err != nil {
		return Result{}, fmt.Errorf("PULV: check %s: %w", bot, err)
	}
	if !online {
		p.env.Out.Warnf("%s is offline; not sending items to pulverize", bot)
		return Result{}, nil
	}
	canInteract, err := p.env.Game.CanInteract(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("PULV: check interaction: %w", err)
	}
	if !canInteract {
		p.env.Out.Infof("Not sending items to %s: you cannot receive the results while restricted", bot)
		return Result{}, nil
	}

	text := strconv.Itoa(mask)
	ultimate, err := p.fullChainTagged(ctx, plan, sent)
	if err != nil {
		return Result{}, err
	}
	if ultimate {
		text += " ultimate"
	} else {
		p.env.Out.Warnf("Not every reduction product is tagged PULV; a second run will be needed to fully reduce")
	}

	for _, chunk := range batch.Chunk(entries, batch.MessageLimit) {
		p.env.Out.Commandf("send to %s (%s): %s", bot, text, describe(chunk))
		msg := models.Message{Recipient: bot, Text: text, Items: itemQuantities(chunk)}
		if err := send(ctx, p.env, msg); err != nil {
			return Result{ShouldReplan: true}, fmt.Errorf("PULV: %w", err)
		}
	}
	return Result{ShouldReplan: true}, nil
}

// fullChainTagged reports whether every reducible material downstream of the
// sent items is itself tagged PULV.
func (p *pulverizer) fullChainTagged(ctx context.Context, plan *planner.Plan, sent []pulvCandidate) (bool, error) {
	seen := make(map[int]bool)
	queue := make([]models.Item, 0, len(sent))
	for _, c := range sent {
		queue = append(queue, c.rule.Item)
	}

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]
		if seen[item.ID] {
			continue
		}
		seen[item.ID] = true

		products, err := p.env.Game.ReductionProducts(ctx, item)
		if err != nil {
			return false, fmt.Errorf("PULV: products of %s: %w", item, err)
		}
		for _, prod := range products {
			tier, err := p.env.Game.ReductionTier(ctx, prod)
			if err != nil {
				return false, fmt.Errorf("PULV: tier of %s: %w", prod, err)
			}
			if tier < 1 || tier > maxTier {
				continue
			}
			if rule, ok := plan.Rule(prod); !ok || rule.Action != models.ActionPulverize {
				return false, nil
			}
			queue = append(queue, prod)
		}
	}
	return true, nil
}
