package audit

import (
	"context"
	"log"
	"time"

	"github.com/fentz26/stashsweep/internal/connectors"
	"github.com/fentz26/stashsweep/internal/models"
)

const (
	outcomeOK     = "ok"
	outcomeFailed = "failed"
)

// Recorder wraps a game and records every mutating call. Reads pass through.
// Recording failures are logged and never fail the call itself.
type Recorder struct {
	connectors.Game

	runID   string
	pdr     *PDRWriter
	journal *Journal
}

// NewRecorder wraps g. Either sink may be nil.
func NewRecorder(g connectors.Game, runID string, pdr *PDRWriter, journal *Journal) *Recorder {
	return &Recorder{Game: g, runID: runID, pdr: pdr, journal: journal}
}

func (r *Recorder) Execute(ctx context.Context, cmd models.Command) error {
	err := r.Game.Execute(ctx, cmd)
	if cmd.Mutates() {
		c := cmd
		r.record(string(cmd.Verb), cmd.Item.ID, cmd, Entry{Command: &c}, err)
	}
	return err
}

func (r *Recorder) Send(ctx context.Context, msg models.Message) error {
	err := r.Game.Send(ctx, msg)
	m := msg
	r.record("send", 0, msg, Entry{Message: &m}, err)
	return err
}

func (r *Recorder) SendGift(ctx context.Context, msg models.Message) error {
	err := r.Game.SendGift(ctx, msg)
	m := msg
	r.record("gift", 0, msg, Entry{Message: &m}, err)
	return err
}

func (r *Recorder) record(action string, itemID int, inputs any, e Entry, callErr error) {
	outcome := outcomeOK
	details := ""
	if callErr != nil {
		outcome = outcomeFailed
		details = callErr.Error()
	}

	if r.pdr != nil {
		if _, err := r.pdr.Record(action, inputs, outcome, itemID, details); err != nil {
			log.Printf("[audit] failed to write PDR for %s: %v", action, err)
		}
	}
	if r.journal != nil {
		e.Time = time.Now().UTC()
		e.RunID = r.runID
		e.Action = action
		e.Outcome = outcome
		e.Error = details
		if err := r.journal.Write(e); err != nil {
			log.Printf("[audit] failed to journal %s: %v", action, err)
		}
	}
}

var _ connectors.Game = (*Recorder)(nil)
