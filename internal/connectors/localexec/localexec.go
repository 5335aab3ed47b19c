// Package localexec drives the game through a local client executable.
//
// Every call runs the client once as `<bin> <op> [args...]`. The client writes
// one JSON document to stdout. A non-zero exit is a failed call; stderr is
// reported back to the user.
package localexec

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/fentz26/stashsweep/internal/connectors"
	"github.com/fentz26/stashsweep/internal/models"
)

// allowedOps is the strict allowlist of client operations.
var allowedOps = map[string]bool{
	"items":       true,
	"amount":      true,
	"available":   true,
	"describe":    true,
	"lookup":      true,
	"mallprice":   true,
	"histprice":   true,
	"ingredients": true,
	"creatable":   true,
	"tier":        true,
	"products":    true,
	"skill":       true,
	"displaycase": true,
	"interact":    true,
	"multiplier":  true,
	"online":      true,
	"exec":        true,
	"send":        true,
	"gift":        true,
}

// exitCannotReceive is the client's exit code for a recipient that cannot
// receive messages.
const exitCannotReceive = 3

// LocalExec implements connectors.Game over a client executable.
type LocalExec struct {
	bin     string
	workDir string
	timeout time.Duration
}

// New creates a new LocalExec connector.
func New(bin, workDir string) *LocalExec {
	return &LocalExec{bin: bin, workDir: workDir, timeout: 30 * time.Second}
}

// Name returns the connector identifier.
func (l *LocalExec) Name() string {
	return "localexec"
}

// IsAllowed checks if an operation is in the allowlist.
func (l *LocalExec) IsAllowed(op string) bool {
	return allowedOps[op]
}

func (l *LocalExec) call(ctx context.Context, out any, op string, args ...string) error {
	if !l.IsAllowed(op) {
		return fmt.Errorf("operation not allowed: %s", op)
	}
	if l.bin == "" {
		return fmt.Errorf("no game client configured")
	}
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, l.bin, append([]string{op}, args...)...)
	if l.workDir != "" {
		cmd.Dir = l.workDir
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return fmt.Errorf("exec error: %w", err)
		}
		msg := strings.TrimSpace(stderr.String())
		if exitErr.ExitCode() == exitCannotReceive {
			return fmt.Errorf("%w: %s", connectors.ErrCannotReceive, msg)
		}
		return fmt.Errorf("%w: %s %s: exit %d: %s",
			connectors.ErrCommandFailed, op, strings.Join(args, " "), exitErr.ExitCode(), msg)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(stdout.Bytes(), out); err != nil {
		return fmt.Errorf("failed to decode %s reply: %w", op, err)
	}
	return nil
}

func id(item models.Item) string {
	return strconv.Itoa(item.ID)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

// --- Holdings ---

func (l *LocalExec) ItemsAt(ctx context.Context, loc models.Location) ([]models.Item, error) {
	var items []models.Item
	err := l.call(ctx, &items, "items", string(loc))
	return items, err
}

func (l *LocalExec) Amount(ctx context.Context, item models.Item, loc models.Location) (int, error) {
	var n int
	err := l.call(ctx, &n, "amount", id(item), string(loc))
	return n, err
}

func (l *LocalExec) AvailableAmount(ctx context.Context, item models.Item) (int, error) {
	var n int
	err := l.call(ctx, &n, "available", id(item))
	return n, err
}

func (l *LocalExec) Describe(ctx context.Context, item models.Item) (models.ItemInfo, error) {
	var info models.ItemInfo
	err := l.call(ctx, &info, "describe", id(item))
	return info, err
}

func (l *LocalExec) ItemNamed(ctx context.Context, name string) (models.Item, bool, error) {
	var reply struct {
		Found bool        `json:"found"`
		Item  models.Item `json:"item"`
	}
	if err := l.call(ctx, &reply, "lookup", name); err != nil {
		return models.Item{}, false, err
	}
	return reply.Item, reply.Found, nil
}

// --- Prices ---

func (l *LocalExec) MallPrice(ctx context.Context, item models.Item) (int64, error) {
	var p int64
	err := l.call(ctx, &p, "mallprice", id(item))
	return p, err
}

func (l *LocalExec) HistoricalPrice(ctx context.Context, item models.Item) (int64, time.Duration, error) {
	var reply struct {
		Price  int64 `json:"price"`
		AgeSec int64 `json:"age_sec"`
	}
	if err := l.call(ctx, &reply, "histprice", id(item)); err != nil {
		return 0, 0, err
	}
	return reply.Price, time.Duration(reply.AgeSec) * time.Second, nil
}

// --- Crafting ---

func (l *LocalExec) Ingredients(ctx context.Context, target models.Item) ([]models.ItemQuantity, error) {
	var out []models.ItemQuantity
	err := l.call(ctx, &out, "ingredients", id(target))
	return out, err
}

func (l *LocalExec) CreatableAmount(ctx context.Context, target models.Item) (int, error) {
	var n int
	err := l.call(ctx, &n, "creatable", id(target))
	return n, err
}

func (l *LocalExec) ReductionTier(ctx context.Context, item models.Item) (int, error) {
	var n int
	err := l.call(ctx, &n, "tier", id(item))
	return n, err
}

func (l *LocalExec) ReductionProducts(ctx context.Context, item models.Item) ([]models.Item, error) {
	var out []models.Item
	err := l.call(ctx, &out, "products", id(item))
	return out, err
}

// --- Character ---

func (l *LocalExec) HasSkill(ctx context.Context, skill string) (bool, error) {
	var ok bool
	err := l.call(ctx, &ok, "skill", skill)
	return ok, err
}

func (l *LocalExec) HasDisplayCase(ctx context.Context) (bool, error) {
	var ok bool
	err := l.call(ctx, &ok, "displaycase")
	return ok, err
}

func (l *LocalExec) CanInteract(ctx context.Context) (bool, error) {
	var ok bool
	err := l.call(ctx, &ok, "interact")
	return ok, err
}

func (l *LocalExec) CraftMultiplier(ctx context.Context) (int, error) {
	var n int
	if err := l.call(ctx, &n, "multiplier"); err != nil {
		return 0, err
	}
	if n < 1 {
		n = 1
	}
	return n, nil
}

func (l *LocalExec) IsOnline(ctx context.Context, player string) (bool, error) {
	var ok bool
	err := l.call(ctx, &ok, "online", player)
	return ok, err
}

// --- Commands ---

// Execute passes the command quantity through unchanged; for craft it is the
// number of target units to produce.
func (l *LocalExec) Execute(ctx context.Context, cmd models.Command) error {
	args := []string{string(cmd.Verb)}
	if cmd.Mutates() {
		args = append(args, id(cmd.Item), itoa(cmd.Quantity))
		if cmd.Verb == models.VerbMall {
			args = append(args, strconv.FormatInt(cmd.Price, 10))
		}
	}
	return l.call(ctx, nil, "exec", args...)
}

// --- Messenger ---

func (l *LocalExec) Send(ctx context.Context, msg models.Message) error {
	return l.message(ctx, "send", msg)
}

func (l *LocalExec) SendGift(ctx context.Context, msg models.Message) error {
	return l.message(ctx, "gift", msg)
}

func (l *LocalExec) message(ctx context.Context, op string, msg models.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	return l.call(ctx, nil, op, string(data))
}

var _ connectors.Game = (*LocalExec)(nil)
