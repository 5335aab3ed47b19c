package memgame

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed state.schema.json
var stateSchemaJSON string

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func stateSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString("state.schema.json", stateSchemaJSON)
	})
	return schema, schemaErr
}

// Decode reads a JSON state document, validates it against the state schema
// and checks that every reference points at a known item.
func Decode(r io.Reader) (State, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return State{}, fmt.Errorf("failed to read state: %w", err)
	}

	s, err := stateSchema()
	if err != nil {
		return State{}, fmt.Errorf("failed to compile state schema: %w", err)
	}
	var doc any
	docDec := json.NewDecoder(bytes.NewReader(raw))
	docDec.UseNumber()
	if err := docDec.Decode(&doc); err != nil {
		return State{}, fmt.Errorf("failed to parse state: %w", err)
	}
	if err := s.Validate(doc); err != nil {
		return State{}, fmt.Errorf("invalid state: %w", err)
	}

	var st State
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&st); err != nil {
		return State{}, fmt.Errorf("failed to decode state: %w", err)
	}
	if err := st.check(); err != nil {
		return State{}, err
	}
	return st, nil
}

// Encode writes the state as indented JSON.
func Encode(w io.Writer, st State) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(st)
}

func (s State) check() error {
	known := make(map[int]bool, len(s.Items))
	names := make(map[string]bool, len(s.Items))
	for _, it := range s.Items {
		if known[it.ID] {
			return fmt.Errorf("invalid state: duplicate item id %d", it.ID)
		}
		if names[it.Name] {
			return fmt.Errorf("invalid state: duplicate item name %q", it.Name)
		}
		known[it.ID] = true
		names[it.Name] = true
	}
	for _, it := range s.Items {
		for _, p := range it.ReductionProducts {
			if !known[p] {
				return fmt.Errorf("invalid state: item %d reduces to unknown item %d", it.ID, p)
			}
		}
	}
	for _, h := range s.Holdings {
		if !known[h.ItemID] {
			return fmt.Errorf("invalid state: holding of unknown item %d", h.ItemID)
		}
	}
	for _, r := range s.Recipes {
		if !known[r.Target] {
			return fmt.Errorf("invalid state: recipe for unknown item %d", r.Target)
		}
		for _, ing := range r.Ingredients {
			if !known[ing.ItemID] {
				return fmt.Errorf("invalid state: recipe %d uses unknown item %d", r.Target, ing.ItemID)
			}
		}
	}
	return nil
}
