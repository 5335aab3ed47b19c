// Package memgame is a deterministic in-memory game used for offline runs and tests.
package memgame

import "github.com/fentz26/stashsweep/internal/models"

// ItemRecord describes one item type.
type ItemRecord struct {
	ID                int    `json:"id"`
	Name              string `json:"name"`
	Tradeable         bool   `json:"tradeable,omitempty"`
	Discardable       bool   `json:"discardable,omitempty"`
	Quest             bool   `json:"quest,omitempty"`
	AutosellPrice     int64  `json:"autosell_price,omitempty"`
	MallPrice         int64  `json:"mall_price,omitempty"`
	HistoricalPrice   int64  `json:"historical_price,omitempty"`
	HistoricalAgeSec  int64  `json:"historical_age_sec,omitempty"`
	ReductionTier     int    `json:"reduction_tier,omitempty"`
	ReductionProducts []int  `json:"reduction_products,omitempty"`
}

// Holding is the count of one item at one location.
type Holding struct {
	ItemID   int             `json:"item_id"`
	Location models.Location `json:"location"`
	Amount   int             `json:"amount"`
}

// Ingredient is one line of a recipe.
type Ingredient struct {
	ItemID   int `json:"item_id"`
	Quantity int `json:"quantity"`
}

// Recipe describes what one craft of Target consumes.
type Recipe struct {
	Target      int          `json:"target"`
	Ingredients []Ingredient `json:"ingredients"`
}

// Player is another account the character may message.
type Player struct {
	Name          string `json:"name"`
	Online        bool   `json:"online,omitempty"`
	CannotReceive bool   `json:"cannot_receive,omitempty"`
}

// Character holds character-level flags.
type Character struct {
	Name            string            `json:"name,omitempty"`
	Skills          []string          `json:"skills,omitempty"`
	DisplayCase     bool              `json:"display_case,omitempty"`
	Restricted      bool              `json:"restricted,omitempty"`
	CraftMultiplier int               `json:"craft_multiplier,omitempty"`
	Meat            int64             `json:"meat,omitempty"`
	AvailableFrom   []models.Location `json:"available_from,omitempty"`
}

// Listing is an item put up for sale in the mall.
type Listing struct {
	ItemID   int   `json:"item_id"`
	Quantity int   `json:"quantity"`
	Price    int64 `json:"price"`
}

// State is the serialisable form of a game.
type State struct {
	Character Character        `json:"character"`
	Items     []ItemRecord     `json:"items"`
	Holdings  []Holding        `json:"holdings,omitempty"`
	Recipes   []Recipe         `json:"recipes,omitempty"`
	Players   []Player         `json:"players,omitempty"`
	Listings  []Listing        `json:"listings,omitempty"`
	Outbox    []models.Message `json:"outbox,omitempty"`
}

// DefaultAvailableFrom is used when a character does not configure its own set.
func DefaultAvailableFrom() []models.Location {
	return []models.Location{
		models.LocationInventory,
		models.LocationCloset,
		models.LocationStorage,
		models.LocationEquipped,
	}
}
