package actions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/fentz26/stashsweep/internal/config"
	"github.com/fentz26/stashsweep/internal/connectors"
	"github.com/fentz26/stashsweep/internal/connectors/memgame"
	"github.com/fentz26/stashsweep/internal/console"
	"github.com/fentz26/stashsweep/internal/models"
	"github.com/fentz26/stashsweep/internal/planner"
)

var (
	acorn  = models.Item{ID: 1, Name: "acorn"}
	bone   = models.Item{ID: 2, Name: "bone"}
	candle = models.Item{ID: 3, Name: "candle"}
	ring   = models.Item{ID: 10, Name: "ring"}
	list   = models.Item{ID: 20, Name: shoppingList}
	car    = models.Item{ID: 21, Name: meatcar}
)

func baseState() memgame.State {
	items := []memgame.ItemRecord{
		{ID: acorn.ID, Name: acorn.Name, Tradeable: true, AutosellPrice: 10, MallPrice: 150},
		{ID: bone.ID, Name: bone.Name, Tradeable: true, AutosellPrice: 4, MallPrice: 80},
		{ID: candle.ID, Name: candle.Name, Tradeable: true, AutosellPrice: 1, MallPrice: 20},
		{ID: ring.ID, Name: ring.Name, Tradeable: true},
		{ID: list.ID, Name: list.Name},
		{ID: car.ID, Name: car.Name},
	}
	return memgame.State{
		Character: memgame.Character{Meat: 1000, DisplayCase: true},
		Items:     items,
		Recipes:   []memgame.Recipe{{Target: ring.ID, Ingredients: []memgame.Ingredient{{ItemID: acorn.ID, Quantity: 3}}}},
		Players:   []memgame.Player{{Name: "bob", Online: true}, {Name: "shopkeeper", Online: true}},
	}
}

type fixture struct {
	game    *memgame.Game
	cfg     *config.Config
	confirm *connectors.StaticConfirmer
	out     *console.Recorder
	env     *Env
}

func newFixture(st memgame.State) *fixture {
	g := memgame.New(st)
	cfg := config.DefaultConfig()
	f := &fixture{game: g, cfg: cfg, confirm: &connectors.StaticConfirmer{}, out: &console.Recorder{}}
	f.env = &Env{Game: g, Config: cfg, Confirm: f.confirm, Out: f.out, Resolver: planner.NewResolver(g, cfg)}
	return f
}

func (f *fixture) give(it models.Item, n int) {
	f.game.SetAmount(it.ID, models.LocationInventory, n)
}

func executor(t *testing.T, env *Env, a models.Action) Executor {
	t.Helper()
	e, ok := ForAction(env, a)
	if !ok {
		t.Fatalf("No executor for %s", a)
	}
	return e
}

func commands(g *memgame.Game, verb models.Verb) []models.Command {
	var out []models.Command
	for _, c := range g.Log {
		if c.Verb == verb {
			out = append(out, c)
		}
	}
	return out
}

func TestPipelineOrder(t *testing.T) {
	f := newFixture(baseState())
	var got []string
	for _, e := range Pipeline(f.env) {
		got = append(got, string(e.Action()))
	}
	want := "BREAK MAKE UNTN USE PULV MALL AUTO DISC DISP CLST CLAN GIFT"
	if strings.Join(got, " ") != want {
		t.Errorf("Expected pipeline %q, got %q", want, strings.Join(got, " "))
	}
}

func TestReplanFlags(t *testing.T) {
	ctx := context.Background()

	t.Run("MAKE always replans", func(t *testing.T) {
		f := newFixture(baseState())
		f.give(acorn, 7)
		b := planner.NewBuilder(models.RuleSet{}, nil)
		b.AddMake(acorn, 7, 3, ring)

		res, err := executor(t, f.env, models.ActionMake).Execute(ctx, b.Build())
		if err != nil {
			t.Fatalf("Execute failed: %v", err)
		}
		if !res.ShouldReplan {
			t.Error("Expected MAKE to replan")
		}
		crafts := commands(f.game, models.VerbCraft)
		if len(crafts) != 1 || crafts[0].Quantity != 2 || crafts[0].Item != ring {
			t.Errorf("Unexpected crafts %v", crafts)
		}
		if f.game.Count(acorn.ID, models.LocationInventory) != 1 {
			t.Errorf("Expected 1 acorn left, got %d", f.game.Count(acorn.ID, models.LocationInventory))
		}
	})

	t.Run("MAKE with a bulk-crafting build", func(t *testing.T) {
		st := baseState()
		st.Character.CraftMultiplier = 3
		f := newFixture(st)
		f.give(acorn, 6)
		b := planner.NewBuilder(models.RuleSet{}, nil)
		b.AddMake(acorn, 6, 3, ring)

		res, err := executor(t, f.env, models.ActionMake).Execute(ctx, b.Build())
		if err != nil {
			t.Fatalf("Execute failed: %v", err)
		}
		if !res.ShouldReplan {
			t.Error("Expected MAKE to replan")
		}
		crafts := commands(f.game, models.VerbCraft)
		if len(crafts) != 1 || crafts[0].Quantity != 6 {
			t.Errorf("Expected one craft of 6 ring, got %v", crafts)
		}
		if got := f.game.Count(ring.ID, models.LocationInventory); got != 6 {
			t.Errorf("Expected 6 rings, got %d", got)
		}
		if got := f.game.Count(acorn.ID, models.LocationInventory); got != 0 {
			t.Errorf("Expected all acorns used, got %d left", got)
		}
		if !strings.Contains(strings.Join(f.out.Lines, "\n"), "craft 6 ring (using 6 acorn)") {
			t.Errorf("Unexpected echo %v", f.out.Lines)
		}
	})

	t.Run("CLST never replans", func(t *testing.T) {
		for _, n := range []int{0, 3} {
			f := newFixture(baseState())
			b := planner.NewBuilder(models.RuleSet{}, nil)
			if n > 0 {
				f.give(bone, n)
				b.Add(models.ActionCloset, bone, n)
			}
			res, err := executor(t, f.env, models.ActionCloset).Execute(ctx, b.Build())
			if err != nil {
				t.Fatalf("Execute failed: %v", err)
			}
			if res.ShouldReplan {
				t.Errorf("CLST with %d items asked to replan", n)
			}
		}
	})

	t.Run("BREAK replans only when used", func(t *testing.T) {
		f := newFixture(baseState())
		res, err := executor(t, f.env, models.ActionBreak).Execute(ctx, planner.NewBuilder(nil, nil).Build())
		if err != nil || res.ShouldReplan {
			t.Errorf("Empty BREAK = %+v, %v", res, err)
		}

		f.give(ring, 1)
		b := planner.NewBuilder(nil, nil)
		b.Add(models.ActionBreak, ring, 1)
		res, err = executor(t, f.env, models.ActionBreak).Execute(ctx, b.Build())
		if err != nil || !res.ShouldReplan {
			t.Errorf("BREAK = %+v, %v", res, err)
		}
		if f.game.Count(acorn.ID, models.LocationInventory) != 3 {
			t.Errorf("Expected 3 acorns from breaking, got %d", f.game.Count(acorn.ID, models.LocationInventory))
		}
	})
}

func TestBatchedCategory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(baseState())
	f.give(bone, 2)
	f.give(acorn, 1)
	b := planner.NewBuilder(nil, nil)
	b.Add(models.ActionCloset, bone, 2)
	b.Add(models.ActionCloset, acorn, 1)

	if _, err := executor(t, f.env, models.ActionCloset).Execute(ctx, b.Build()); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	var verbs []string
	for _, c := range f.game.Log {
		verbs = append(verbs, c.String())
	}
	want := "batch_open|closet 1 acorn|closet 2 bone|batch_close"
	if strings.Join(verbs, "|") != want {
		t.Errorf("Expected %q, got %q", want, strings.Join(verbs, "|"))
	}
}

func TestBatchCloseFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(baseState())
	f.give(bone, 2)
	f.game.FailOn[models.VerbBatchClose] = errors.New("too many items")
	b := planner.NewBuilder(nil, nil)
	b.Add(models.ActionClan, bone, 2)

	_, err := executor(t, f.env, models.ActionClan).Execute(ctx, b.Build())
	if err == nil {
		t.Fatal("Expected error")
	}
	if !strings.Contains(err.Error(), "batch of 1 items") {
		t.Errorf("Expected error naming the chunk size, got %v", err)
	}
}

func TestSimpleFailureNamesItem(t *testing.T) {
	ctx := context.Background()
	f := newFixture(baseState())
	b := planner.NewBuilder(nil, nil)
	b.Add(models.ActionDiscard, candle, 4)

	_, err := executor(t, f.env, models.ActionDiscard).Execute(ctx, b.Build())
	if err == nil || !strings.Contains(err.Error(), "4 candle") {
		t.Errorf("Expected item-specific error, got %v", err)
	}
}

func TestUseSkipsShoppingListWithoutCar(t *testing.T) {
	ctx := context.Background()
	for _, hasCar := range []bool{false, true} {
		t.Run(fmt.Sprintf("car=%v", hasCar), func(t *testing.T) {
			f := newFixture(baseState())
			f.give(list, 1)
			f.give(candle, 2)
			if hasCar {
				f.give(car, 1)
			}
			b := planner.NewBuilder(nil, nil)
			b.Add(models.ActionUse, list, 1)
			b.Add(models.ActionUse, candle, 2)

			if _, err := executor(t, f.env, models.ActionUse).Execute(ctx, b.Build()); err != nil {
				t.Fatalf("Execute failed: %v", err)
			}
			used := commands(f.game, models.VerbUse)
			wantUsed := 1
			if hasCar {
				wantUsed = 2
			}
			if len(used) != wantUsed {
				t.Errorf("Expected %d use commands, got %v", wantUsed, used)
			}
		})
	}
}

func TestAutosellProfit(t *testing.T) {
	ctx := context.Background()

	for _, simulate := range []bool{false, true} {
		t.Run(fmt.Sprintf("simulate=%v", simulate), func(t *testing.T) {
			f := newFixture(baseState())
			f.give(acorn, 3)
			f.give(bone, 5)
			if simulate {
				f.cfg.SimulateOnly = true
				f.env.Game = connectors.DryRun(f.game, f.out)
			}
			b := planner.NewBuilder(nil, nil)
			b.Add(models.ActionAuto, bone, 5)
			b.Add(models.ActionAuto, acorn, 3)

			res, err := executor(t, f.env, models.ActionAuto).Execute(ctx, b.Build())
			if err != nil {
				t.Fatalf("Execute failed: %v", err)
			}
			if res.Profit != 3*10+5*4 {
				t.Errorf("Expected profit 50, got %d", res.Profit)
			}
			wantMeat := int64(1050)
			if simulate {
				wantMeat = 1000
			}
			if f.game.Meat() != wantMeat {
				t.Errorf("Expected %d meat, got %d", wantMeat, f.game.Meat())
			}
		})
	}
}

func TestAutosellFailureCountsOnlySoldItems(t *testing.T) {
	f := newFixture(baseState())
	f.give(acorn, 3)
	f.give(bone, 5)
	b := planner.NewBuilder(nil, nil)
	b.Add(models.ActionAuto, acorn, 3)
	b.Add(models.ActionAuto, bone, 6)

	res, err := executor(t, f.env, models.ActionAuto).Execute(context.Background(), b.Build())
	if err == nil || !strings.Contains(err.Error(), "bone") {
		t.Fatalf("Expected failure naming bone, got %v", err)
	}
	if res.Profit != 30 {
		t.Errorf("Expected profit 30 from the acorns only, got %d", res.Profit)
	}
	if f.game.Meat() != 1030 {
		t.Errorf("Expected 1030 meat, got %d", f.game.Meat())
	}
}

func TestMallBasicSell(t *testing.T) {
	ctx := context.Background()
	f := newFixture(baseState())
	f.give(acorn, 5)
	rules := models.RuleSet{acorn.ID: {Item: acorn, Action: models.ActionMall, MinPrice: 100}}

	plan, err := planner.New(f.game, f.cfg, f.confirm, f.out, rules, nil).MakePlan(ctx)
	if err != nil {
		t.Fatalf("MakePlan failed: %v", err)
	}
	res, err := executor(t, f.env, models.ActionMall).Execute(ctx, plan)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if n := len(commands(f.game, models.VerbBatchOpen)); n != 1 {
		t.Errorf("Expected exactly one batch, got %d", n)
	}
	listings := f.game.Listings()
	if len(listings) != 1 || listings[0].Quantity != 5 || listings[0].Price < 100 {
		t.Fatalf("Unexpected listings %+v", listings)
	}
	if res.Profit != 5*listings[0].Price {
		t.Errorf("Expected profit %d, got %d", 5*listings[0].Price, res.Profit)
	}
}

func TestMallPricing(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name     string
		mode     config.MallPricingMode
		action   models.Action
		minPrice int64
		hist     int64
		histAge  time.Duration
		want     int64
		wantGain bool
	}{
		{"max with floor", config.MallPricingMax, models.ActionMall, 300, 0, 0, 300, true},
		{"max without floor", config.MallPricingMax, models.ActionMall, 0, 0, 0, MallMaxPrice, false},
		{"auto fresh history", config.MallPricingAuto, models.ActionMall, 100, 120, time.Hour, 120, true},
		{"auto stale history", config.MallPricingAuto, models.ActionMall, 100, 500, 48 * time.Hour, 150, true},
		{"auto floor wins", config.MallPricingAuto, models.ActionMall, 400, 0, 0, 400, true},
		{"unlisted ignores floor", config.MallPricingAuto, models.ActionAuto, 400, 0, 0, 150, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := baseState()
			st.Items[0].HistoricalPrice = tt.hist
			st.Items[0].HistoricalAgeSec = int64(tt.histAge / time.Second)
			f := newFixture(st)
			f.cfg.MallPricingMode = tt.mode
			f.give(acorn, 2)

			rules := models.RuleSet{acorn.ID: {Item: acorn, Action: tt.action, MinPrice: tt.minPrice}}
			b := planner.NewBuilder(rules, nil)
			b.Add(models.ActionMall, acorn, 2)

			res, err := executor(t, f.env, models.ActionMall).Execute(ctx, b.Build())
			if err != nil {
				t.Fatalf("Execute failed: %v", err)
			}
			listings := f.game.Listings()
			if len(listings) != 1 || listings[0].Price != tt.want {
				t.Fatalf("Expected price %d, got %+v", tt.want, listings)
			}
			if (res.Profit > 0) != tt.wantGain {
				t.Errorf("Unexpected profit %d", res.Profit)
			}
		})
	}
}

func TestMallMulti(t *testing.T) {
	ctx := context.Background()

	plan := func() *planner.Plan {
		b := planner.NewBuilder(nil, nil)
		b.Add(models.ActionMall, acorn, 2)
		return b.Build()
	}

	t.Run("sends to multi", func(t *testing.T) {
		f := newFixture(baseState())
		f.give(acorn, 2)
		f.cfg.CanUseMallMulti = true
		f.cfg.MallMultiName = "shopkeeper"

		res, err := executor(t, f.env, models.ActionMall).Execute(ctx, plan())
		if err != nil {
			t.Fatalf("Execute failed: %v", err)
		}
		if res.Profit != 0 {
			t.Errorf("Multi sales must not report profit, got %d", res.Profit)
		}
		if len(f.game.Outbox) != 1 || f.game.Outbox[0].Recipient != "shopkeeper" {
			t.Errorf("Unexpected outbox %+v", f.game.Outbox)
		}
	})

	for _, name := range []string{"", "false", "FALSE"} {
		for _, abort := range []bool{false, true} {
			t.Run(fmt.Sprintf("guard name=%q abort=%v", name, abort), func(t *testing.T) {
				f := newFixture(baseState())
				f.give(acorn, 2)
				f.cfg.CanUseMallMulti = true
				f.cfg.MallMultiName = name
				f.confirm.Answer = abort

				_, err := executor(t, f.env, models.ActionMall).Execute(ctx, plan())
				if abort && !errors.Is(err, ErrAborted) {
					t.Errorf("Expected ErrAborted, got %v", err)
				}
				if !abort && err != nil {
					t.Errorf("Expected MALL to be skipped, got %v", err)
				}
				if len(f.game.Outbox) != 0 || len(f.game.Log) != 0 {
					t.Error("Nothing must be sent when the multi name is invalid")
				}
				if len(f.confirm.Asked) != 1 || f.out.Count("warn") != 1 {
					t.Errorf("Expected one warning and one prompt, got %v", f.out.Lines)
				}
			})
		}
	}
}

func giftState(n int) (memgame.State, models.RuleSet, []models.Item) {
	st := baseState()
	rules := models.RuleSet{}
	var items []models.Item
	for i := 0; i < n; i++ {
		it := models.Item{ID: 100 + i, Name: fmt.Sprintf("gift%02d", i)}
		items = append(items, it)
		st.Items = append(st.Items, memgame.ItemRecord{ID: it.ID, Name: it.Name, Tradeable: true})
		st.Holdings = append(st.Holdings, memgame.Holding{ItemID: it.ID, Location: models.LocationInventory, Amount: i + 1})
		rules[it.ID] = models.CleanupRule{Item: it, Action: models.ActionGift, Recipient: "bob", Message: "for you"}
	}
	return st, rules, items
}

func TestGiftChunking(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		items    int
		messages int
	}{
		{2, 1},
		{11, 1},
		{12, 2},
		{23, 3},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d items", tt.items), func(t *testing.T) {
			st, rules, items := giftState(tt.items)
			f := newFixture(st)
			plan, err := planner.New(f.game, f.cfg, f.confirm, f.out, rules, nil).MakePlan(ctx)
			if err != nil {
				t.Fatalf("MakePlan failed: %v", err)
			}

			if _, err := executor(t, f.env, models.ActionGift).Execute(ctx, plan); err != nil {
				t.Fatalf("Execute failed: %v", err)
			}
			if len(f.game.Outbox) != tt.messages {
				t.Fatalf("Expected %d messages, got %d", tt.messages, len(f.game.Outbox))
			}

			sent := make(map[int]int)
			for _, msg := range f.game.Outbox {
				if msg.Recipient != "bob" || msg.Text != "for you" {
					t.Errorf("Unexpected message header %q %q", msg.Recipient, msg.Text)
				}
				if len(msg.Items) > 11 {
					t.Errorf("Message carries %d items", len(msg.Items))
				}
				for _, iq := range msg.Items {
					sent[iq.Item.ID] += iq.Quantity
				}
			}
			for i, it := range items {
				if sent[it.ID] != i+1 {
					t.Errorf("%s: sent %d, want %d", it, sent[it.ID], i+1)
				}
			}
		})
	}
}

func TestGiftFallsBackWhenRecipientCannotReceive(t *testing.T) {
	ctx := context.Background()
	st, rules, _ := giftState(2)
	f := newFixture(st)
	f.game.AddPlayer(memgame.Player{Name: "bob", CannotReceive: true})

	plan, err := planner.New(f.game, f.cfg, f.confirm, f.out, rules, nil).MakePlan(ctx)
	if err != nil {
		t.Fatalf("MakePlan failed: %v", err)
	}
	if _, err := executor(t, f.env, models.ActionGift).Execute(ctx, plan); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(f.game.Outbox) != 1 {
		t.Errorf("Expected gift package delivery, got %d", len(f.game.Outbox))
	}
	if f.out.Count("warn") != 1 {
		t.Errorf("Expected a fallback warning, got %v", f.out.Lines)
	}
}

func TestGiftPrecondition(t *testing.T) {
	ctx := context.Background()
	f := newFixture(baseState())
	rules := models.RuleSet{acorn.ID: {Item: acorn, Action: models.ActionAuto}}
	b := planner.NewBuilder(rules, nil)
	b.AddGift(acorn, models.CleanupRule{Item: acorn, Action: models.ActionGift, Recipient: "bob"}, 1)

	_, err := executor(t, f.env, models.ActionGift).Execute(ctx, b.Build())
	if !errors.Is(err, ErrPrecondition) {
		t.Errorf("Expected ErrPrecondition, got %v", err)
	}
}

func TestTodoOnlyDisplays(t *testing.T) {
	ctx := context.Background()
	f := newFixture(baseState())
	rules := models.RuleSet{candle.ID: {Item: candle, Action: models.ActionTodo, Message: "light it"}}
	b := planner.NewBuilder(rules, nil)
	b.Add(models.ActionTodo, candle, 2)

	res, err := NewTodo(f.env).Execute(ctx, b.Build())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if res.ShouldReplan || res.Profit != 0 {
		t.Errorf("Unexpected result %+v", res)
	}
	if len(f.game.Log) != 0 {
		t.Error("TODO must not issue commands")
	}
	if len(f.out.Lines) != 1 || !strings.Contains(f.out.Lines[0], "light it") {
		t.Errorf("Unexpected output %v", f.out.Lines)
	}
}

func TestStocker(t *testing.T) {
	ctx := context.Background()
	f := newFixture(baseState())
	f.give(acorn, 2)
	stock := models.StockSet{
		acorn.ID: {Item: acorn, Amount: 5},
		bone.ID:  {Item: bone, Amount: 0},
	}

	res, err := NewStocker(f.env, stock).Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Cost != 3*150 || res.Acquired != 1 {
		t.Errorf("Expected one acquisition costing 450, got %+v", res)
	}
	if f.game.Count(acorn.ID, models.LocationInventory) != 5 {
		t.Errorf("Expected 5 acorns, got %d", f.game.Count(acorn.ID, models.LocationInventory))
	}

	f.cfg.Stocking = false
	f.give(acorn, 0)
	res, _ = NewStocker(f.env, stock).Run(ctx)
	if res.Cost != 0 || res.Acquired != 0 {
		t.Errorf("Stocking off must not acquire, got %+v", res)
	}
}
