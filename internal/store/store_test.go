package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/fentz26/stashsweep/internal/models"
)

func TestNew(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "nested", "test.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()

	// Verify file was created
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestRunLifecycle(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	run, err := s.CreateRun(true)
	if err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	if run.ID == "" {
		t.Error("Run ID should not be empty")
	}
	if run.Status != models.RunStatusRunning {
		t.Errorf("Expected status running, got %s", run.Status)
	}

	if err := s.FinishRun(run.ID, models.RunStatusFailed, 250, 2, fmt.Errorf("boom")); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}

	got, err := s.GetRun(run.ID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.Status != models.RunStatusFailed || got.Profit != 250 || got.Replans != 2 {
		t.Errorf("Unexpected run %+v", got)
	}
	if got.Error != "boom" {
		t.Errorf("Expected error 'boom', got %q", got.Error)
	}
	if !got.Simulate {
		t.Error("Expected simulate flag to persist")
	}
	if got.FinishedAt == nil {
		t.Error("Expected finished_at to be set")
	}
}

func TestRunNotFound(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	if _, err := s.GetRun("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if err := s.FinishRun("missing", models.RunStatusCompleted, 0, 0, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestListRuns(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	for i := 0; i < 3; i++ {
		if _, err := s.CreateRun(false); err != nil {
			t.Fatalf("CreateRun failed: %v", err)
		}
	}

	runs, err := s.ListRuns(0)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 3 {
		t.Errorf("Expected 3 runs, got %d", len(runs))
	}

	runs, err = s.ListRuns(2)
	if err != nil {
		t.Fatalf("ListRuns with limit failed: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("Expected 2 runs, got %d", len(runs))
	}
}

func TestPDR(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	run, _ := s.CreateRun(false)
	for i := 1; i <= 3; i++ {
		if _, err := s.WritePDR(run.ID, "autosell", "hash", "ok", i, ""); err != nil {
			t.Fatalf("WritePDR failed: %v", err)
		}
	}
	if _, err := s.WritePDR("", "standalone", "hash", "ok", 0, ""); err != nil {
		t.Fatalf("WritePDR without run failed: %v", err)
	}

	entries, err := s.GetPDRForRun(run.ID)
	if err != nil {
		t.Fatalf("GetPDRForRun failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(entries))
	}
	for i, e := range entries {
		if e.ItemID != i+1 {
			t.Errorf("Entry %d: expected item %d, got %d", i, i+1, e.ItemID)
		}
	}
}

func TestPrefs(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	if _, ok, _ := s.GetPref("stocking"); ok {
		t.Error("Expected no pref before set")
	}
	if err := s.SetPref("stocking", "true"); err != nil {
		t.Fatalf("SetPref failed: %v", err)
	}
	if err := s.SetPref("stocking", "false"); err != nil {
		t.Fatalf("SetPref overwrite failed: %v", err)
	}
	v, ok, err := s.GetPref("stocking")
	if err != nil || !ok || v != "false" {
		t.Errorf("GetPref = %q, %v, %v", v, ok, err)
	}

	_ = s.SetPref("mall_multi_name", "Shop")
	all, err := s.Prefs()
	if err != nil {
		t.Fatalf("Prefs failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("Expected 2 prefs, got %d", len(all))
	}

	if err := s.DeletePref("stocking"); err != nil {
		t.Fatalf("DeletePref failed: %v", err)
	}
	if _, ok, _ := s.GetPref("stocking"); ok {
		t.Error("Expected pref to be deleted")
	}
}

func TestGameState(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	if _, err := s.LoadGameState("default"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	if err := s.SaveGameState("default", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("SaveGameState failed: %v", err)
	}
	if err := s.SaveGameState("default", []byte(`{"a":2}`)); err != nil {
		t.Fatalf("SaveGameState overwrite failed: %v", err)
	}
	doc, err := s.LoadGameState("default")
	if err != nil {
		t.Fatalf("LoadGameState failed: %v", err)
	}
	if string(doc) != `{"a":2}` {
		t.Errorf("Unexpected document %s", doc)
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return s
}
