// Package audit records every game mutation of a cleanup run.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/fentz26/stashsweep/internal/models"
	"github.com/fentz26/stashsweep/internal/store"
)

// PDRWriter writes Process Decision Records for one run.
type PDRWriter struct {
	store *store.Store
	runID string
}

// NewPDRWriter creates a new PDR writer scoped to runID.
func NewPDRWriter(s *store.Store, runID string) *PDRWriter {
	return &PDRWriter{store: s, runID: runID}
}

// Record writes a PDR entry for a state-mutating action.
func (w *PDRWriter) Record(action string, inputs interface{}, outcome string, itemID int, details string) (*models.PDREntry, error) {
	inputsHash := hashInputs(inputs)
	return w.store.WritePDR(w.runID, action, inputsHash, outcome, itemID, details)
}

// hashInputs creates a SHA256 hash of the inputs for reproducibility.
func hashInputs(inputs interface{}) string {
	data, err := json.Marshal(inputs)
	if err != nil {
		return "hash_error"
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
