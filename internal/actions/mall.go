package actions

import (
	"context"
	"fmt"
	"strings"

	"github.com/fentz26/stashsweep/internal/batch"
	"github.com/fentz26/stashsweep/internal/config"
	"github.com/fentz26/stashsweep/internal/models"
	"github.com/fentz26/stashsweep/internal/planner"
)

// MallMaxPrice is the highest listing price the mall accepts.
const MallMaxPrice int64 = 999_999_999

// badMultiName was once written into configs by a UI bug and sent items to a
// player literally named "false".
const badMultiName = "false"

type mall struct {
	env *Env
}

func (m *mall) Action() models.Action {
	return models.ActionMall
}

func (m *mall) Execute(ctx context.Context, plan *planner.Plan) (Result, error) {
	entries := sortByName(plan.Bucket(models.ActionMall))
	if len(entries) == 0 {
		return Result{}, nil
	}
	if m.env.Config.CanUseMallMulti {
		return m.sendToMulti(ctx, entries)
	}
	return m.list(ctx, plan, entries)
}

// sendToMulti hands every item to the secondary account. Profit is realised
// by that account and is not tracked here.
func (m *mall) sendToMulti(ctx context.Context, entries []planner.Entry) (Result, error) {
	name := strings.TrimSpace(m.env.Config.MallMultiName)
	if name == "" || strings.EqualFold(name, badMultiName) {
		m.env.Out.Warnf("Mall multi name %q is not valid; MALL items will not be sent", m.env.Config.MallMultiName)
		abort, err := m.env.Confirm.Confirm(ctx, "Abort the run? Otherwise only MALL is skipped.", m.env.Config.ConfirmTimeout, false)
		if err != nil {
			return Result{}, fmt.Errorf("confirm: %w", err)
		}
		if abort {
			return Result{}, fmt.Errorf("%w: invalid mall multi name %q", ErrAborted, m.env.Config.MallMultiName)
		}
		return Result{}, nil
	}

	for _, chunk := range batch.Chunk(entries, batch.MessageLimit) {
		m.env.Out.Commandf("send to %s: %s", name, describe(chunk))
		msg := models.Message{Recipient: name, Text: m.env.Config.MallMultiMessage, Items: itemQuantities(chunk)}
		if err := send(ctx, m.env, msg); err != nil {
			return Result{}, fmt.Errorf("MALL: %w", err)
		}
	}
	return Result{}, nil
}

func (m *mall) list(ctx context.Context, plan *planner.Plan, entries []planner.Entry) (Result, error) {
	var profit int64
	each := func(ctx context.Context, chunk []planner.Entry) error {
		for _, e := range chunk {
			price, err := m.price(ctx, plan, e.Item)
			if err != nil {
				return err
			}
			m.env.Out.Commandf("mall %d %s @ %d", e.Amount, e.Item, price)
			cmd := models.Command{Verb: models.VerbMall, Item: e.Item, Quantity: e.Amount, Price: price}
			if err := m.env.Game.Execute(ctx, cmd); err != nil {
				return fmt.Errorf("MALL: failed to list %d %s: %w", e.Amount, e.Item, err)
			}
			if price < MallMaxPrice {
				profit += int64(e.Amount) * price
			}
		}
		return nil
	}
	onClose := func(chunk []planner.Entry, err error) error {
		return fmt.Errorf("MALL: batch of %d items failed to close: %w", len(chunk), err)
	}

	err := batch.Process(ctx, gameTx{game: m.env.Game}, entries, batch.BulkLimit, each, onClose)
	return Result{Profit: profit}, err
}

func (m *mall) price(ctx context.Context, plan *planner.Plan, item models.Item) (int64, error) {
	var minPrice int64
	// items that reached MALL through the sell-unlisted fallback carry no price floor
	if rule, ok := plan.Rule(item); ok && rule.Action == models.ActionMall {
		minPrice = rule.MinPrice
	}

	if m.env.Config.MallPricingMode == config.MallPricingMax {
		if minPrice > 0 {
			return minPrice, nil
		}
		return MallMaxPrice, nil
	}

	recent, age, err := m.env.Game.HistoricalPrice(ctx, item)
	if err != nil {
		return 0, fmt.Errorf("MALL: historical price of %s: %w", item, err)
	}
	if recent <= 0 || age >= m.env.Config.FreshPriceAge {
		if recent, err = m.env.Game.MallPrice(ctx, item); err != nil {
			return 0, fmt.Errorf("MALL: mall price of %s: %w", item, err)
		}
	}
	return max(minPrice, recent, 0), nil
}
