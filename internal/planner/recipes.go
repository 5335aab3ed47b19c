package planner

import (
	"context"
	"fmt"

	"github.com/fentz26/stashsweep/internal/connectors"
	"github.com/fentz26/stashsweep/internal/models"
)

// RecipeCache memoizes crafting ingredient lists for one run. The crafting
// graph is static while holdings change, so it is safe to share across replans.
type RecipeCache struct {
	game        connectors.Crafting
	ingredients map[int][]models.ItemQuantity
}

// NewRecipeCache creates an empty cache backed by g.
func NewRecipeCache(g connectors.Crafting) *RecipeCache {
	return &RecipeCache{game: g, ingredients: make(map[int][]models.ItemQuantity)}
}

// Ingredients returns what one craft of target consumes.
func (c *RecipeCache) Ingredients(ctx context.Context, target models.Item) ([]models.ItemQuantity, error) {
	if ings, ok := c.ingredients[target.ID]; ok {
		return ings, nil
	}
	ings, err := c.game.Ingredients(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("ingredients of %s: %w", target, err)
	}
	c.ingredients[target.ID] = ings
	return ings, nil
}

// Rate returns how many of ingredient one craft of target consumes, or 0 when
// ingredient is not part of the recipe.
func (c *RecipeCache) Rate(ctx context.Context, target, ingredient models.Item) (int, error) {
	ings, err := c.Ingredients(ctx, target)
	if err != nil {
		return 0, err
	}
	rate := 0
	for _, iq := range ings {
		if iq.Item.ID == ingredient.ID {
			rate += iq.Quantity
		}
	}
	return rate, nil
}
