package connectors

import (
	"context"
	"fmt"
	"strings"

	"github.com/fentz26/stashsweep/internal/console"
	"github.com/fentz26/stashsweep/internal/models"
)

// DryRun wraps a game so that reads pass through and every mutating call is
// echoed instead of issued.
func DryRun(g Game, out console.Reporter) Game {
	return &dryRun{Game: g, out: out}
}

type dryRun struct {
	Game
	out console.Reporter
}

func (d *dryRun) Name() string {
	return d.Game.Name() + "+simulate"
}

func (d *dryRun) Execute(ctx context.Context, cmd models.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if cmd.Mutates() {
		d.out.Commandf("(simulated) %s", cmd)
	}
	return nil
}

func (d *dryRun) Send(ctx context.Context, msg models.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.out.Commandf("(simulated) send to %s: %s", msg.Recipient, describeItems(msg.Items))
	return nil
}

func (d *dryRun) SendGift(ctx context.Context, msg models.Message) error {
	return d.Send(ctx, msg)
}

func describeItems(items []models.ItemQuantity) string {
	parts := make([]string, 0, len(items))
	for _, iq := range items {
		parts = append(parts, fmt.Sprintf("%d %s", iq.Quantity, iq.Item))
	}
	return strings.Join(parts, ", ")
}
