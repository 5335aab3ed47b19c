package planner

import (
	"fmt"
	"strings"

	"github.com/fentz26/stashsweep/internal/models"
)

// Entry is one item and the amount an executor should act on.
type Entry struct {
	Item   models.Item `json:"item"`
	Amount int         `json:"amount"`
}

// MakeEntry is a MAKE bucket entry.
type MakeEntry struct {
	Entry
	// Rate is how many of Item one craft consumes.
	Rate   int         `json:"rate"`
	Target models.Item `json:"target"`
}

// GiftGroup holds the items sent to one recipient with one message.
type GiftGroup struct {
	Recipient string  `json:"recipient"`
	Message   string  `json:"message"`
	Entries   []Entry `json:"entries"`
}

// Plan is the result of one planning pass. It is never modified after the
// planner returns it; accessors hand out copies.
type Plan struct {
	buckets map[models.Action][]Entry
	makes   []MakeEntry
	gifts   []GiftGroup
	rules   models.RuleSet
	stock   models.StockSet
}

// Bucket returns the entries of a simple action in insertion order. MAKE and
// GIFT have their own accessors.
func (p *Plan) Bucket(a models.Action) []Entry {
	return append([]Entry(nil), p.buckets[a]...)
}

// Makes returns the MAKE entries in insertion order.
func (p *Plan) Makes() []MakeEntry {
	return append([]MakeEntry(nil), p.makes...)
}

// Gifts returns the GIFT groups in order of first appearance.
func (p *Plan) Gifts() []GiftGroup {
	out := make([]GiftGroup, len(p.gifts))
	for i, g := range p.gifts {
		g.Entries = append([]Entry(nil), g.Entries...)
		out[i] = g
	}
	return out
}

// Rules returns the rule set the plan was derived from.
func (p *Plan) Rules() models.RuleSet {
	return p.rules
}

// Stock returns the stocking set the plan was derived from.
func (p *Plan) Stock() models.StockSet {
	return p.stock
}

// Rule looks up the cleanup rule of an item.
func (p *Plan) Rule(item models.Item) (models.CleanupRule, bool) {
	return p.rules.Lookup(item)
}

// Size returns the number of entries across all buckets.
func (p *Plan) Size() int {
	n := len(p.makes)
	for _, b := range p.buckets {
		n += len(b)
	}
	for _, g := range p.gifts {
		n += len(g.Entries)
	}
	return n
}

// Render formats the plan as stable text, one section per non-empty bucket.
func (p *Plan) Render() string {
	var sb strings.Builder
	for _, a := range models.Actions() {
		switch a {
		case models.ActionMake:
			if len(p.makes) == 0 {
				continue
			}
			fmt.Fprintf(&sb, "%s:\n", a)
			for _, m := range p.makes {
				fmt.Fprintf(&sb, "  %d %s -> %s (%d per craft)\n", m.Amount, m.Item, m.Target, m.Rate)
			}
		case models.ActionGift:
			for _, g := range p.gifts {
				fmt.Fprintf(&sb, "%s %s %q:\n", a, g.Recipient, g.Message)
				for _, e := range g.Entries {
					fmt.Fprintf(&sb, "  %d %s\n", e.Amount, e.Item)
				}
			}
		default:
			entries := p.buckets[a]
			if len(entries) == 0 {
				continue
			}
			fmt.Fprintf(&sb, "%s:\n", a)
			for _, e := range entries {
				fmt.Fprintf(&sb, "  %d %s\n", e.Amount, e.Item)
			}
		}
	}
	return sb.String()
}

// Builder accumulates a plan. It is used by the planner and by callers that
// need a hand-made plan.
type Builder struct {
	plan      *Plan
	giftIndex map[giftKey]int
}

type giftKey struct {
	recipient string
	message   string
}

// NewBuilder starts an empty plan derived from rules and stock.
func NewBuilder(rules models.RuleSet, stock models.StockSet) *Builder {
	return &Builder{
		plan: &Plan{
			buckets: make(map[models.Action][]Entry),
			rules:   rules,
			stock:   stock,
		},
		giftIndex: make(map[giftKey]int),
	}
}

// Add appends an entry to a simple bucket.
func (b *Builder) Add(a models.Action, item models.Item, amount int) {
	b.plan.buckets[a] = append(b.plan.buckets[a], Entry{Item: item, Amount: amount})
}

// AddMake appends a MAKE entry.
func (b *Builder) AddMake(item models.Item, amount, rate int, target models.Item) {
	b.plan.makes = append(b.plan.makes, MakeEntry{Entry: Entry{Item: item, Amount: amount}, Rate: rate, Target: target})
}

// AddGift groups by recipient and message so every group shares one rule shape.
func (b *Builder) AddGift(item models.Item, rule models.CleanupRule, amount int) {
	k := giftKey{recipient: rule.Recipient, message: rule.Message}
	i, ok := b.giftIndex[k]
	if !ok {
		i = len(b.plan.gifts)
		b.giftIndex[k] = i
		b.plan.gifts = append(b.plan.gifts, GiftGroup{Recipient: rule.Recipient, Message: rule.Message})
	}
	b.plan.gifts[i].Entries = append(b.plan.gifts[i].Entries, Entry{Item: item, Amount: amount})
}

// Build returns the finished plan. The builder must not be used afterwards.
func (b *Builder) Build() *Plan {
	p := b.plan
	b.plan = nil
	return p
}
