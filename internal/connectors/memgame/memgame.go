package memgame

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/fentz26/stashsweep/internal/connectors"
	"github.com/fentz26/stashsweep/internal/models"
)

const reductionBatch = 5

// Game implements connectors.Game over an in-memory State.
type Game struct {
	items    map[int]ItemRecord
	byName   map[string]int
	holdings map[models.Location]map[int]int
	recipes  map[int][]Ingredient
	players  map[string]Player
	char     Character
	listings []Listing
	inBatch  bool

	// Log records every executed command in order, batch markers included.
	Log []models.Command
	// Outbox records delivered messages in order; gifts are included.
	Outbox []models.Message
	// FailOn makes Execute return the given error for a verb without applying it.
	FailOn map[models.Verb]error
}

// New builds a game from a state snapshot.
func New(s State) *Game {
	g := &Game{
		items:    make(map[int]ItemRecord),
		byName:   make(map[string]int),
		holdings: make(map[models.Location]map[int]int),
		recipes:  make(map[int][]Ingredient),
		players:  make(map[string]Player),
		char:     s.Character,
		listings: append([]Listing(nil), s.Listings...),
		Outbox:   append([]models.Message(nil), s.Outbox...),
		FailOn:   make(map[models.Verb]error),
	}
	if g.char.CraftMultiplier < 1 {
		g.char.CraftMultiplier = 1
	}
	for _, it := range s.Items {
		g.AddItem(it)
	}
	for _, h := range s.Holdings {
		g.SetAmount(h.ItemID, h.Location, h.Amount)
	}
	for _, r := range s.Recipes {
		g.recipes[r.Target] = append([]Ingredient(nil), r.Ingredients...)
	}
	for _, p := range s.Players {
		g.players[p.Name] = p
	}
	return g
}

// State returns a snapshot that New can rebuild the game from.
func (g *Game) State() State {
	s := State{
		Character: g.char,
		Listings:  append([]Listing(nil), g.listings...),
		Outbox:    append([]models.Message(nil), g.Outbox...),
	}
	for _, id := range sortedKeys(g.items) {
		s.Items = append(s.Items, g.items[id])
	}
	for _, loc := range models.Locations() {
		byItem := g.holdings[loc]
		for _, id := range sortedKeys(byItem) {
			if byItem[id] > 0 {
				s.Holdings = append(s.Holdings, Holding{ItemID: id, Location: loc, Amount: byItem[id]})
			}
		}
	}
	for _, id := range sortedKeys(g.recipes) {
		s.Recipes = append(s.Recipes, Recipe{Target: id, Ingredients: append([]Ingredient(nil), g.recipes[id]...)})
	}
	names := make([]string, 0, len(g.players))
	for n := range g.players {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		s.Players = append(s.Players, g.players[n])
	}
	return s
}

// AddItem registers an item type.
func (g *Game) AddItem(rec ItemRecord) models.Item {
	g.items[rec.ID] = rec
	g.byName[rec.Name] = rec.ID
	return models.Item{ID: rec.ID, Name: rec.Name}
}

// SetAmount overwrites the count of an item at a location.
func (g *Game) SetAmount(itemID int, loc models.Location, n int) {
	if g.holdings[loc] == nil {
		g.holdings[loc] = make(map[int]int)
	}
	if n <= 0 {
		delete(g.holdings[loc], itemID)
		return
	}
	g.holdings[loc][itemID] = n
}

// Count returns the count of an item at a location.
func (g *Game) Count(itemID int, loc models.Location) int {
	return g.holdings[loc][itemID]
}

// Meat returns the character's currency.
func (g *Game) Meat() int64 {
	return g.char.Meat
}

// Listings returns the mall listings created so far.
func (g *Game) Listings() []Listing {
	return append([]Listing(nil), g.listings...)
}

// Character returns a pointer to the character flags for adjustment in tests.
func (g *Game) Character() *Character {
	return &g.char
}

// AddRecipe registers a recipe.
func (g *Game) AddRecipe(r Recipe) {
	g.recipes[r.Target] = append([]Ingredient(nil), r.Ingredients...)
}

// AddPlayer registers another player.
func (g *Game) AddPlayer(p Player) {
	g.players[p.Name] = p
}

func (g *Game) Name() string {
	return "memgame"
}

func (g *Game) item(id int) models.Item {
	return models.Item{ID: id, Name: g.items[id].Name}
}

func (g *Game) record(item models.Item) (ItemRecord, error) {
	rec, ok := g.items[item.ID]
	if !ok {
		return ItemRecord{}, fmt.Errorf("%w: %s", connectors.ErrUnknownItem, item)
	}
	return rec, nil
}

// --- Holdings ---

func (g *Game) ItemsAt(ctx context.Context, loc models.Location) ([]models.Item, error) {
	var out []models.Item
	for _, id := range sortedKeys(g.holdings[loc]) {
		if g.holdings[loc][id] > 0 {
			out = append(out, g.item(id))
		}
	}
	return out, nil
}

func (g *Game) Amount(ctx context.Context, item models.Item, loc models.Location) (int, error) {
	return g.holdings[loc][item.ID], nil
}

func (g *Game) availableFrom() []models.Location {
	if len(g.char.AvailableFrom) > 0 {
		return g.char.AvailableFrom
	}
	return DefaultAvailableFrom()
}

func (g *Game) AvailableAmount(ctx context.Context, item models.Item) (int, error) {
	total := 0
	for _, loc := range g.availableFrom() {
		total += g.holdings[loc][item.ID]
	}
	return total, nil
}

func (g *Game) Describe(ctx context.Context, item models.Item) (models.ItemInfo, error) {
	rec, err := g.record(item)
	if err != nil {
		return models.ItemInfo{}, err
	}
	return models.ItemInfo{
		Item:          g.item(rec.ID),
		Tradeable:     rec.Tradeable,
		Discardable:   rec.Discardable,
		Quest:         rec.Quest,
		AutosellPrice: rec.AutosellPrice,
	}, nil
}

func (g *Game) ItemNamed(ctx context.Context, name string) (models.Item, bool, error) {
	id, ok := g.byName[name]
	if !ok {
		return models.Item{}, false, nil
	}
	return g.item(id), true, nil
}

// --- Prices ---

func (g *Game) MallPrice(ctx context.Context, item models.Item) (int64, error) {
	rec, err := g.record(item)
	if err != nil {
		return 0, err
	}
	return rec.MallPrice, nil
}

func (g *Game) HistoricalPrice(ctx context.Context, item models.Item) (int64, time.Duration, error) {
	rec, err := g.record(item)
	if err != nil {
		return 0, 0, err
	}
	return rec.HistoricalPrice, time.Duration(rec.HistoricalAgeSec) * time.Second, nil
}

// --- Crafting ---

func (g *Game) Ingredients(ctx context.Context, target models.Item) ([]models.ItemQuantity, error) {
	var out []models.ItemQuantity
	for _, ing := range g.recipes[target.ID] {
		out = append(out, models.ItemQuantity{Item: g.item(ing.ItemID), Quantity: ing.Quantity})
	}
	return out, nil
}

func (g *Game) CreatableAmount(ctx context.Context, target models.Item) (int, error) {
	recipe, ok := g.recipes[target.ID]
	if !ok || len(recipe) == 0 {
		return 0, nil
	}
	n := -1
	for _, ing := range recipe {
		if ing.Quantity <= 0 {
			continue
		}
		can := g.holdings[models.LocationInventory][ing.ItemID] / ing.Quantity
		if n < 0 || can < n {
			n = can
		}
	}
	if n < 0 {
		return 0, nil
	}
	return n, nil
}

func (g *Game) ReductionTier(ctx context.Context, item models.Item) (int, error) {
	rec, err := g.record(item)
	if err != nil {
		return 0, err
	}
	return rec.ReductionTier, nil
}

func (g *Game) ReductionProducts(ctx context.Context, item models.Item) ([]models.Item, error) {
	rec, err := g.record(item)
	if err != nil {
		return nil, err
	}
	out := make([]models.Item, 0, len(rec.ReductionProducts))
	for _, id := range rec.ReductionProducts {
		out = append(out, g.item(id))
	}
	return out, nil
}

// --- Character ---

func (g *Game) HasSkill(ctx context.Context, skill string) (bool, error) {
	for _, s := range g.char.Skills {
		if s == skill {
			return true, nil
		}
	}
	return false, nil
}

func (g *Game) HasDisplayCase(ctx context.Context) (bool, error) {
	return g.char.DisplayCase, nil
}

func (g *Game) CanInteract(ctx context.Context) (bool, error) {
	return !g.char.Restricted, nil
}

func (g *Game) CraftMultiplier(ctx context.Context) (int, error) {
	return g.char.CraftMultiplier, nil
}

func (g *Game) IsOnline(ctx context.Context, player string) (bool, error) {
	return g.players[player].Online, nil
}

// --- Commands ---

func (g *Game) Execute(ctx context.Context, cmd models.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err, ok := g.FailOn[cmd.Verb]; ok && err != nil {
		return err
	}
	if cmd.Mutates() && cmd.Quantity <= 0 {
		return fmt.Errorf("%w: %s: quantity must be positive", connectors.ErrCommandFailed, cmd)
	}
	if err := g.apply(cmd); err != nil {
		return fmt.Errorf("%w: %s: %v", connectors.ErrCommandFailed, cmd, err)
	}
	g.Log = append(g.Log, cmd)
	return nil
}

func (g *Game) apply(cmd models.Command) error {
	inv := models.LocationInventory
	id := cmd.Item.ID
	qty := cmd.Quantity

	switch cmd.Verb {
	case models.VerbBatchOpen:
		if g.inBatch {
			return fmt.Errorf("batch already open")
		}
		g.inBatch = true
	case models.VerbBatchClose:
		if !g.inBatch {
			return fmt.Errorf("no open batch")
		}
		g.inBatch = false
	case models.VerbRetrieve:
		return g.retrieve(id, qty)
	case models.VerbUncloset:
		return g.move(id, qty, models.LocationCloset, inv)
	case models.VerbAutosell:
		if err := g.take(id, qty, inv); err != nil {
			return err
		}
		g.char.Meat += g.items[id].AutosellPrice * int64(qty)
	case models.VerbDiscard, models.VerbUse:
		return g.take(id, qty, inv)
	case models.VerbCloset:
		return g.move(id, qty, inv, models.LocationCloset)
	case models.VerbStash:
		return g.move(id, qty, inv, models.LocationStash)
	case models.VerbDisplay:
		if !g.char.DisplayCase {
			return fmt.Errorf("no display case")
		}
		return g.move(id, qty, inv, models.LocationDisplay)
	case models.VerbBreak, models.VerbUntinker:
		if err := g.take(id, qty, inv); err != nil {
			return err
		}
		for _, ing := range g.recipes[id] {
			g.give(ing.ItemID, ing.Quantity*qty, inv)
		}
	case models.VerbCraft:
		recipe, ok := g.recipes[id]
		if !ok {
			return fmt.Errorf("no recipe")
		}
		crafts := (qty + g.char.CraftMultiplier - 1) / g.char.CraftMultiplier
		for _, ing := range recipe {
			if g.holdings[inv][ing.ItemID] < ing.Quantity*crafts {
				return fmt.Errorf("not enough %s", g.item(ing.ItemID))
			}
		}
		for _, ing := range recipe {
			_ = g.take(ing.ItemID, ing.Quantity*crafts, inv)
		}
		g.give(id, qty, inv)
	case models.VerbPulverize:
		rec := g.items[id]
		if rec.ReductionTier > 0 && qty%reductionBatch != 0 {
			return fmt.Errorf("materials reduce in multiples of %d", reductionBatch)
		}
		if err := g.take(id, qty, inv); err != nil {
			return err
		}
		for _, p := range rec.ReductionProducts {
			if rec.ReductionTier > 0 {
				g.give(p, qty/reductionBatch, inv)
			} else {
				g.give(p, qty, inv)
			}
		}
	case models.VerbMall:
		if err := g.move(id, qty, inv, models.LocationMall); err != nil {
			return err
		}
		g.listings = append(g.listings, Listing{ItemID: id, Quantity: qty, Price: cmd.Price})
	case models.VerbAcquire:
		g.char.Meat -= g.items[id].MallPrice * int64(qty)
		g.give(id, qty, inv)
	default:
		return fmt.Errorf("unsupported verb %q", cmd.Verb)
	}
	return nil
}

func (g *Game) retrieve(id, qty int) error {
	need := qty
	for _, loc := range g.availableFrom() {
		if loc == models.LocationInventory || need == 0 {
			continue
		}
		have := g.holdings[loc][id]
		if have == 0 {
			continue
		}
		n := have
		if n > need {
			n = need
		}
		_ = g.move(id, n, loc, models.LocationInventory)
		need -= n
	}
	if need > 0 {
		return fmt.Errorf("%d short", need)
	}
	return nil
}

func (g *Game) take(id, qty int, loc models.Location) error {
	have := g.holdings[loc][id]
	if have < qty {
		return fmt.Errorf("only %d in %s", have, loc)
	}
	g.SetAmount(id, loc, have-qty)
	return nil
}

func (g *Game) give(id, qty int, loc models.Location) {
	g.SetAmount(id, loc, g.holdings[loc][id]+qty)
}

func (g *Game) move(id, qty int, from, to models.Location) error {
	if err := g.take(id, qty, from); err != nil {
		return err
	}
	g.give(id, qty, to)
	return nil
}

// --- Messenger ---

func (g *Game) Send(ctx context.Context, msg models.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if g.players[msg.Recipient].CannotReceive {
		return fmt.Errorf("%w: %s", connectors.ErrCannotReceive, msg.Recipient)
	}
	return g.deliver(msg)
}

func (g *Game) SendGift(ctx context.Context, msg models.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return g.deliver(msg)
}

func (g *Game) deliver(msg models.Message) error {
	for _, iq := range msg.Items {
		if g.holdings[models.LocationInventory][iq.Item.ID] < iq.Quantity {
			return fmt.Errorf("%w: not enough %s to send", connectors.ErrCommandFailed, iq.Item)
		}
	}
	if g.char.Meat < msg.Meat {
		return fmt.Errorf("%w: not enough meat to send", connectors.ErrCommandFailed)
	}
	for _, iq := range msg.Items {
		_ = g.take(iq.Item.ID, iq.Quantity, models.LocationInventory)
	}
	g.char.Meat -= msg.Meat
	g.Outbox = append(g.Outbox, msg)
	return nil
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

var _ connectors.Game = (*Game)(nil)
