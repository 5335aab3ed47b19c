// Package models defines the core domain types for stashsweep.
package models

import (
	"fmt"
	"sort"
	"time"
)

// Item identifies a game item type. Items are owned by the game connector and
// never change during a run.
type Item struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// String renders the item the way it is shown to the user.
func (i Item) String() string {
	if i.Name == "" {
		return fmt.Sprintf("[%d]", i.ID)
	}
	return i.Name
}

// ItemInfo carries the static flags of an item type.
type ItemInfo struct {
	Item          Item  `json:"item"`
	Tradeable     bool  `json:"tradeable"`
	Discardable   bool  `json:"discardable"`
	Quest         bool  `json:"quest"`
	AutosellPrice int64 `json:"autosell_price"`
}

// Cleanable reports whether anything in the cleanup pipeline could act on the item.
func (i ItemInfo) Cleanable() bool {
	if i.Quest {
		return false
	}
	return i.Tradeable || i.Discardable || i.AutosellPrice > 0
}

// Location is a place where the character can hold items.
type Location string

const (
	LocationInventory Location = "inventory"
	LocationCloset    Location = "closet"
	LocationStorage   Location = "storage"
	LocationStash     Location = "stash"
	LocationDisplay   Location = "display"
	LocationEquipped  Location = "equipped"
	LocationCamp      Location = "camp"
	LocationMall      Location = "mall"
)

// Locations lists every holdings location in a stable order.
func Locations() []Location {
	return []Location{
		LocationInventory,
		LocationCloset,
		LocationStorage,
		LocationStash,
		LocationDisplay,
		LocationEquipped,
		LocationCamp,
		LocationMall,
	}
}

// Action is the cleanup category assigned to an item by its rule.
type Action string

const (
	ActionAuto      Action = "AUTO"
	ActionBreak     Action = "BREAK"
	ActionClan      Action = "CLAN"
	ActionCloset    Action = "CLST"
	ActionDiscard   Action = "DISC"
	ActionDisplay   Action = "DISP"
	ActionGift      Action = "GIFT"
	ActionKeep      Action = "KEEP"
	ActionMake      Action = "MAKE"
	ActionMall      Action = "MALL"
	ActionPulverize Action = "PULV"
	ActionTodo      Action = "TODO"
	ActionUntinker  Action = "UNTN"
	ActionUse       Action = "USE"
)

// Actions returns all known actions in tag order.
func Actions() []Action {
	return []Action{
		ActionAuto,
		ActionBreak,
		ActionClan,
		ActionCloset,
		ActionDiscard,
		ActionDisplay,
		ActionGift,
		ActionKeep,
		ActionMake,
		ActionMall,
		ActionPulverize,
		ActionTodo,
		ActionUntinker,
		ActionUse,
	}
}

// IsValid checks if the action is one of the known tags.
func (a Action) IsValid() bool {
	for _, valid := range Actions() {
		if a == valid {
			return true
		}
	}
	return false
}

// CleanupRule is the per-item cleanup instruction. Which of the optional fields
// are meaningful depends on Action.
type CleanupRule struct {
	Item       Item   `json:"item"`
	Action     Action `json:"action"`
	KeepAmount int    `json:"keep_amount,omitempty"`

	// GIFT
	Recipient string `json:"recipient,omitempty"`
	// GIFT kmail text, TODO reminder text
	Message string `json:"message,omitempty"`

	// MAKE
	Target        Item `json:"target,omitempty"`
	CreatableOnly bool `json:"creatable_only,omitempty"`

	// MALL
	MinPrice int64 `json:"min_price,omitempty"`
}

// Keep returns the keep floor for the rule. KEEP rules never release anything,
// so their floor is irrelevant and reported as 0.
func (r CleanupRule) Keep() int {
	if r.Action == ActionKeep || r.KeepAmount < 0 {
		return 0
	}
	return r.KeepAmount
}

// StockingRule reserves an amount of an item that must stay available.
type StockingRule struct {
	Item     Item   `json:"item"`
	Type     string `json:"type"`
	Amount   int    `json:"amount"`
	Category string `json:"category,omitempty"`
}

// RuleSet maps item ids to their cleanup rule.
type RuleSet map[int]CleanupRule

// Lookup returns the rule for an item, if present.
func (rs RuleSet) Lookup(item Item) (CleanupRule, bool) {
	r, ok := rs[item.ID]
	return r, ok
}

// Sorted returns the rules ordered by item id.
func (rs RuleSet) Sorted() []CleanupRule {
	out := make([]CleanupRule, 0, len(rs))
	for _, r := range rs {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Item.ID < out[j].Item.ID })
	return out
}

// StockSet maps item ids to their stocking rule.
type StockSet map[int]StockingRule

// Lookup returns the stocking rule for an item, if present.
func (ss StockSet) Lookup(item Item) (StockingRule, bool) {
	r, ok := ss[item.ID]
	return r, ok
}

// Sorted returns the stocking rules ordered by item id.
func (ss StockSet) Sorted() []StockingRule {
	out := make([]StockingRule, 0, len(ss))
	for _, r := range ss {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Item.ID < out[j].Item.ID })
	return out
}

// Verb names a mutating game command.
type Verb string

const (
	VerbRetrieve   Verb = "retrieve"
	VerbUncloset   Verb = "uncloset"
	VerbAutosell   Verb = "autosell"
	VerbDiscard    Verb = "discard"
	VerbCloset     Verb = "closet"
	VerbStash      Verb = "stash"
	VerbDisplay    Verb = "display"
	VerbBreak      Verb = "break"
	VerbUntinker   Verb = "untinker"
	VerbUse        Verb = "use"
	VerbCraft      Verb = "craft"
	VerbPulverize  Verb = "pulverize"
	VerbMall       Verb = "mall"
	VerbAcquire    Verb = "acquire"
	VerbBatchOpen  Verb = "batch_open"
	VerbBatchClose Verb = "batch_close"
)

// Command is a single mutating call against the game.
type Command struct {
	Verb     Verb  `json:"verb"`
	Item     Item  `json:"item,omitempty"`
	Quantity int   `json:"quantity,omitempty"`
	Price    int64 `json:"price,omitempty"`
}

// String renders the command as a CLI-style line.
func (c Command) String() string {
	switch c.Verb {
	case VerbBatchOpen, VerbBatchClose:
		return string(c.Verb)
	case VerbMall:
		return fmt.Sprintf("%s %d %s @ %d", c.Verb, c.Quantity, c.Item, c.Price)
	default:
		return fmt.Sprintf("%s %d %s", c.Verb, c.Quantity, c.Item)
	}
}

// Mutates reports whether the command changes item holdings.
func (c Command) Mutates() bool {
	return c.Verb != VerbBatchOpen && c.Verb != VerbBatchClose
}

// ItemQuantity pairs an item with an amount.
type ItemQuantity struct {
	Item     Item `json:"item"`
	Quantity int  `json:"quantity"`
}

// Message is an outgoing player-to-player transfer.
type Message struct {
	Recipient string         `json:"recipient"`
	Text      string         `json:"text"`
	Items     []ItemQuantity `json:"items,omitempty"`
	Meat      int64          `json:"meat,omitempty"`
}

// RunStatus represents the current state of a cleanup run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusAborted   RunStatus = "aborted"
)

// Run is a persisted record of one cleanup run.
type Run struct {
	ID         string     `json:"id"`
	Status     RunStatus  `json:"status"`
	Simulate   bool       `json:"simulate"`
	Profit     int64      `json:"profit"`
	Replans    int        `json:"replans"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// PDREntry represents a Process Decision Record for audit.
type PDREntry struct {
	ID         string    `json:"id"`
	RunID      string    `json:"run_id,omitempty"`
	Action     string    `json:"action"`
	InputsHash string    `json:"inputs_hash"`
	Outcome    string    `json:"outcome"`
	ItemID     int       `json:"item_id,omitempty"`
	Details    string    `json:"details,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
