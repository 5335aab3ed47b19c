package actions

import (
	"context"
	"fmt"
	"sort"

	"github.com/fentz26/stashsweep/internal/models"
)

// Stocker tops up items that fall short of their stocking rule.
type Stocker struct {
	env   *Env
	stock models.StockSet
}

// NewStocker creates a stocker for the given rules.
func NewStocker(env *Env, stock models.StockSet) *Stocker {
	return &Stocker{env: env, stock: stock}
}

// StockResult reports what a stocking pass bought.
type StockResult struct {
	// Cost is the estimate at current mall prices, kept apart from cleanup profit.
	Cost int64
	// Acquired counts acquire commands that succeeded, free ones included.
	Acquired int
}

// Run acquires every shortfall.
func (s *Stocker) Run(ctx context.Context) (StockResult, error) {
	var res StockResult
	if !s.env.Config.Stocking || len(s.stock) == 0 {
		return res, nil
	}

	rules := s.stock.Sorted()
	sort.SliceStable(rules, func(i, j int) bool { return rules[i].Item.Name < rules[j].Item.Name })

	for _, rule := range rules {
		have, err := s.env.Game.AvailableAmount(ctx, rule.Item)
		if err != nil {
			return res, fmt.Errorf("stocking: available amount of %s: %w", rule.Item, err)
		}
		short := rule.Amount - have
		if short <= 0 {
			continue
		}
		price, err := s.env.Game.MallPrice(ctx, rule.Item)
		if err != nil {
			return res, fmt.Errorf("stocking: mall price of %s: %w", rule.Item, err)
		}

		s.env.Out.Commandf("acquire %d %s (~%d meat)", short, rule.Item, price*int64(short))
		cmd := models.Command{Verb: models.VerbAcquire, Item: rule.Item, Quantity: short, Price: price}
		if err := s.env.Game.Execute(ctx, cmd); err != nil {
			return res, fmt.Errorf("stocking: failed to acquire %d %s: %w", short, rule.Item, err)
		}
		res.Cost += price * int64(short)
		res.Acquired++
	}
	if res.Cost > 0 {
		s.env.Out.Infof("Stocking cost: %d meat", res.Cost)
	}
	return res, nil
}
