package planner

import (
	"context"
	"fmt"
	"log"

	"github.com/fentz26/stashsweep/internal/config"
	"github.com/fentz26/stashsweep/internal/connectors"
	"github.com/fentz26/stashsweep/internal/models"
)

// Resolver computes how much of an item is free for cleanup.
type Resolver struct {
	game connectors.Game
	cfg  *config.Config
}

// NewResolver creates a resolver reading live holdings from g.
func NewResolver(g connectors.Game, cfg *config.Config) *Resolver {
	return &Resolver{game: g, cfg: cfg}
}

// CleanupAmount returns the excess of item: what is available beyond the keep
// floor, capped by what is physically in hand. It may retrieve items into hand
// from other locations so that executors can act on them. rule and stock may
// be nil.
func (r *Resolver) CleanupAmount(ctx context.Context, item models.Item, rule *models.CleanupRule, stock *models.StockingRule) (int, error) {
	if rule != nil && rule.Action == models.ActionKeep {
		return 0, nil
	}

	full, err := r.game.AvailableAmount(ctx, item)
	if err != nil {
		return 0, fmt.Errorf("available amount of %s: %w", item, err)
	}
	keepAmount := 0
	if rule != nil {
		keepAmount = rule.Keep()
	}

	// Read before retrieving; items already parked in the closet count toward
	// the stocking quota.
	closet, err := r.game.Amount(ctx, item, models.LocationCloset)
	if err != nil {
		return 0, fmt.Errorf("closet amount of %s: %w", item, err)
	}
	inHand, err := r.game.Amount(ctx, item, models.LocationInventory)
	if err != nil {
		return 0, fmt.Errorf("inventory amount of %s: %w", item, err)
	}

	keep := keepAmount
	// closet copies counted toward the stocking quota stay in the closet
	reserved := 0
	if r.cfg.Stocking && stock != nil {
		keep = max(keep, stock.Amount-closet)
		reserved = min(closet, max(stock.Amount, 0))
	}

	desired := full - keep - reserved
	if full > keepAmount && desired > inHand && full > inHand {
		n := min(desired-inHand, full-inHand)
		cmd := models.Command{Verb: models.VerbRetrieve, Item: item, Quantity: n}
		if err := r.game.Execute(ctx, cmd); err != nil {
			return 0, fmt.Errorf("retrieve %d %s: %w", n, item, err)
		}
		if r.cfg.SimulateOnly {
			inHand += n
		} else if inHand, err = r.game.Amount(ctx, item, models.LocationInventory); err != nil {
			return 0, fmt.Errorf("inventory amount of %s: %w", item, err)
		}
		log.Printf("[resolver] retrieved %d %s (full=%d keep=%d hand=%d)", n, item, full, keep, inHand)
	}

	return max(0, min(full-keep, inHand)), nil
}
