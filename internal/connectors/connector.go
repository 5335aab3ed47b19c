// Package connectors defines the interface between stashsweep and the game.
package connectors

import (
	"context"
	"errors"
	"time"

	"github.com/fentz26/stashsweep/internal/models"
)

// Sentinel errors reported by game connectors.
var (
	ErrCannotReceive = errors.New("recipient cannot receive items")
	ErrUnknownItem   = errors.New("unknown item")
	ErrCommandFailed = errors.New("game command failed")
)

// Holdings reads live item counts. Implementations must never cache across calls;
// executors mutate holdings between reads.
type Holdings interface {
	// ItemsAt lists the items with a positive count at loc.
	ItemsAt(ctx context.Context, loc models.Location) ([]models.Item, error)
	// Amount returns the count of item at loc.
	Amount(ctx context.Context, item models.Item, loc models.Location) (int, error)
	// AvailableAmount returns the count the character can bring into hand.
	// Which locations count is decided by the game.
	AvailableAmount(ctx context.Context, item models.Item) (int, error)
	// Describe returns the static flags of an item.
	Describe(ctx context.Context, item models.Item) (models.ItemInfo, error)
	// ItemNamed resolves an item by display name.
	ItemNamed(ctx context.Context, name string) (models.Item, bool, error)
}

// Prices quotes market values.
type Prices interface {
	// MallPrice runs a live market search.
	MallPrice(ctx context.Context, item models.Item) (int64, error)
	// HistoricalPrice returns the last recorded market price and its age.
	HistoricalPrice(ctx context.Context, item models.Item) (int64, time.Duration, error)
}

// Crafting exposes the crafting and material reduction graphs.
type Crafting interface {
	// Ingredients lists what one craft of target consumes.
	Ingredients(ctx context.Context, target models.Item) ([]models.ItemQuantity, error)
	// CreatableAmount is how many crafts of target current holdings allow.
	CreatableAmount(ctx context.Context, target models.Item) (int, error)
	// ReductionTier is 0 for equipment that can be pulverized and 1-3 for
	// reduction materials.
	ReductionTier(ctx context.Context, item models.Item) (int, error)
	// ReductionProducts lists the items produced by reducing item.
	ReductionProducts(ctx context.Context, item models.Item) ([]models.Item, error)
}

// Character reports character-level state.
type Character interface {
	HasSkill(ctx context.Context, skill string) (bool, error)
	HasDisplayCase(ctx context.Context) (bool, error)
	// CanInteract is false while the character may not trade with other players.
	CanInteract(ctx context.Context) (bool, error)
	// CraftMultiplier is the number of target units one craft yields. The
	// quantity of a craft command counts target units, not crafts.
	CraftMultiplier(ctx context.Context) (int, error)
	IsOnline(ctx context.Context, player string) (bool, error)
}

// Commands issues mutating game calls.
type Commands interface {
	// Execute runs one command and returns once the game has applied it.
	Execute(ctx context.Context, cmd models.Command) error
}

// Messenger sends items and text to other players.
type Messenger interface {
	// Send delivers a message. It returns ErrCannotReceive when the recipient
	// may not receive transfers right now.
	Send(ctx context.Context, msg models.Message) error
	// SendGift delivers through the slower package route, which works for
	// recipients that cannot receive ordinary messages.
	SendGift(ctx context.Context, msg models.Message) error
}

// Game is everything the cleanup engine needs from the game.
type Game interface {
	// Name returns the connector identifier.
	Name() string

	Holdings
	Prices
	Crafting
	Character
	Commands
	Messenger
}

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	// Confirm returns the answer, or defaultAnswer once timeout elapses.
	// A zero timeout waits indefinitely.
	Confirm(ctx context.Context, question string, timeout time.Duration, defaultAnswer bool) (bool, error)
}

// StaticConfirmer answers every question the same way without asking.
type StaticConfirmer struct {
	Answer bool
	// Asked records each question, in order.
	Asked []string
}

func (s *StaticConfirmer) Confirm(ctx context.Context, question string, timeout time.Duration, defaultAnswer bool) (bool, error) {
	s.Asked = append(s.Asked, question)
	return s.Answer, nil
}
