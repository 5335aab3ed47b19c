package localexec

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/fentz26/stashsweep/internal/connectors"
	"github.com/fentz26/stashsweep/internal/models"
)

// fakeClient writes a shell script standing in for the game client.
func fakeClient(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script client requires a unix shell")
	}
	script := `#!/bin/sh
case "$1" in
  items) echo '[{"id":1,"name":"hat"},{"id":2,"name":"nugget"}]' ;;
  available) echo 7 ;;
  histprice) echo '{"price":120,"age_sec":3600}' ;;
  lookup) if [ "$2" = "hat" ]; then echo '{"found":true,"item":{"id":1,"name":"hat"}}'; else echo '{"found":false}'; fi ;;
  multiplier) echo 0 ;;
  exec) echo "$@" >> "$(dirname "$0")/exec.log"; echo null ;;
  send) echo "recipient busy" >&2; exit 3 ;;
  gift) echo null ;;
  *) echo "unsupported" >&2; exit 1 ;;
esac
`
	path := filepath.Join(t.TempDir(), "client.sh")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("Failed to write client: %v", err)
	}
	return path
}

func TestIsAllowed(t *testing.T) {
	l := New("", "")

	tests := []struct {
		op      string
		allowed bool
	}{
		{"items", true},
		{"exec", true},
		{"send", true},
		{"shell", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			if got := l.IsAllowed(tt.op); got != tt.allowed {
				t.Errorf("IsAllowed(%q) = %v, want %v", tt.op, got, tt.allowed)
			}
		})
	}
}

func TestQueries(t *testing.T) {
	ctx := context.Background()
	l := New(fakeClient(t), "")

	items, err := l.ItemsAt(ctx, models.LocationInventory)
	if err != nil {
		t.Fatalf("ItemsAt failed: %v", err)
	}
	if len(items) != 2 || items[1].Name != "nugget" {
		t.Errorf("Unexpected items %+v", items)
	}

	n, err := l.AvailableAmount(ctx, items[0])
	if err != nil || n != 7 {
		t.Errorf("AvailableAmount = %d, %v", n, err)
	}

	price, age, err := l.HistoricalPrice(ctx, items[0])
	if err != nil || price != 120 || age.Hours() != 1 {
		t.Errorf("HistoricalPrice = %d, %v, %v", price, age, err)
	}

	hat, ok, err := l.ItemNamed(ctx, "hat")
	if err != nil || !ok || hat.ID != 1 {
		t.Errorf("ItemNamed(hat) = %+v, %v, %v", hat, ok, err)
	}
	if _, ok, _ := l.ItemNamed(ctx, "wand"); ok {
		t.Error("Expected wand to be unknown")
	}

	mult, err := l.CraftMultiplier(ctx)
	if err != nil || mult != 1 {
		t.Errorf("CraftMultiplier = %d, %v", mult, err)
	}
}

func TestExecuteCommand(t *testing.T) {
	ctx := context.Background()
	bin := fakeClient(t)
	l := New(bin, "")

	cmd := models.Command{Verb: models.VerbMall, Item: models.Item{ID: 2}, Quantity: 5, Price: 150}
	if err := l.Execute(ctx, cmd); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(filepath.Dir(bin), "exec.log"))
	if err != nil {
		t.Fatalf("Failed to read exec log: %v", err)
	}
	if got := strings.TrimSpace(string(data)); got != "exec mall 2 5 150" {
		t.Errorf("Unexpected client args %q", got)
	}
}

func TestSendErrors(t *testing.T) {
	ctx := context.Background()
	l := New(fakeClient(t), "")
	msg := models.Message{Recipient: "bob", Text: "hi"}

	if err := l.Send(ctx, msg); !errors.Is(err, connectors.ErrCannotReceive) {
		t.Errorf("Expected ErrCannotReceive, got %v", err)
	}
	if err := l.SendGift(ctx, msg); err != nil {
		t.Errorf("SendGift failed: %v", err)
	}
	if _, err := l.Describe(ctx, models.Item{ID: 1}); !errors.Is(err, connectors.ErrCommandFailed) {
		t.Errorf("Expected ErrCommandFailed for unsupported op, got %v", err)
	}
}

func TestName(t *testing.T) {
	l := New("", "")
	if l.Name() != "localexec" {
		t.Errorf("Expected name 'localexec', got %s", l.Name())
	}
}
