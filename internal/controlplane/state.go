package controlplane

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/fentz26/stashsweep/internal/config"
	"github.com/fentz26/stashsweep/internal/connectors"
	"github.com/fentz26/stashsweep/internal/connectors/localexec"
	"github.com/fentz26/stashsweep/internal/connectors/memgame"
	"github.com/fentz26/stashsweep/internal/store"
)

// DefaultGameState names the simulated game used when none is given.
const DefaultGameState = "default"

// OpenGame returns the game a run should act on. With a game client configured
// it drives the client; otherwise it restores the named simulated game, which
// is also returned so the caller can persist it afterwards.
func OpenGame(s *store.Store, cfg *config.Config, name string) (connectors.Game, *memgame.Game, error) {
	if cfg.GameClient != "" {
		return localexec.New(cfg.GameClient, ""), nil, nil
	}
	g, err := LoadGame(s, name)
	if err != nil {
		return nil, nil, err
	}
	return g, g, nil
}

// LoadGame restores a simulated game from the store.
func LoadGame(s *store.Store, name string) (*memgame.Game, error) {
	doc, err := s.LoadGameState(name)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %q (import one with 'stashsweep state import')", ErrNoGameState, name)
	}
	if err != nil {
		return nil, err
	}
	st, err := memgame.Decode(bytes.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("stored game state %q: %w", name, err)
	}
	return memgame.New(st), nil
}

// SaveGame persists a simulated game under name.
func SaveGame(s *store.Store, name string, g *memgame.Game) error {
	var buf bytes.Buffer
	if err := memgame.Encode(&buf, g.State()); err != nil {
		return err
	}
	return s.SaveGameState(name, buf.Bytes())
}

// ImportState validates a game-state document and stores it under name.
func ImportState(s *store.Store, name string, r io.Reader) (memgame.State, error) {
	st, err := memgame.Decode(r)
	if err != nil {
		return memgame.State{}, err
	}
	var buf bytes.Buffer
	if err := memgame.Encode(&buf, st); err != nil {
		return memgame.State{}, err
	}
	if err := s.SaveGameState(name, buf.Bytes()); err != nil {
		return memgame.State{}, err
	}
	return st, nil
}

// ExportState writes the stored document for name.
func ExportState(s *store.Store, name string, w io.Writer) error {
	doc, err := s.LoadGameState(name)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %q", ErrNoGameState, name)
	}
	if err != nil {
		return err
	}
	_, err = w.Write(doc)
	return err
}
