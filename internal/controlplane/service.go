// Package controlplane provides the service layer behind the stashsweep CLI.
package controlplane

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/fentz26/stashsweep/internal/actions"
	"github.com/fentz26/stashsweep/internal/audit"
	"github.com/fentz26/stashsweep/internal/config"
	"github.com/fentz26/stashsweep/internal/connectors"
	"github.com/fentz26/stashsweep/internal/console"
	"github.com/fentz26/stashsweep/internal/models"
	"github.com/fentz26/stashsweep/internal/orchestrator"
	"github.com/fentz26/stashsweep/internal/planner"
	"github.com/fentz26/stashsweep/internal/rules"
	"github.com/fentz26/stashsweep/internal/store"
)

// Service provides the control plane business logic.
type Service struct {
	store *store.Store
	cfg   *config.Config
	game  connectors.Game
	out   console.Reporter
}

// NewService creates a new control plane service.
func NewService(s *store.Store, cfg *config.Config, game connectors.Game, out console.Reporter) *Service {
	if out == nil {
		out = console.Discard
	}
	return &Service{
		store: s,
		cfg:   cfg,
		game:  game,
		out:   out,
	}
}

// RunOptions configures a single cleanup run.
type RunOptions struct {
	// Simulate forces simulate-only mode on top of the configuration.
	Simulate bool
	// Confirm answers prompts. Nil answers no to everything.
	Confirm connectors.Confirmer
}

// RunResult is the outcome of a cleanup run.
type RunResult struct {
	Run    *models.Run
	Report *orchestrator.Report
}

// --- Run Operations ---

// Run performs one cleanup and records it. The result is returned alongside
// any run error so callers can still report partial profit.
func (s *Service) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	ruleSet, stockSet, err := s.loadRules()
	if err != nil {
		return nil, err
	}

	cfg := *s.cfg
	cfg.SimulateOnly = cfg.SimulateOnly || opts.Simulate

	run, err := s.store.CreateRun(cfg.SimulateOnly)
	if err != nil {
		return nil, err
	}
	pdr := audit.NewPDRWriter(s.store, run.ID)
	pdr.Record("run.start", map[string]interface{}{
		"simulate":   cfg.SimulateOnly,
		"game":       s.game.Name(),
		"data_file":  cfg.DataFile,
		"rules":      len(ruleSet),
		"stock_file": cfg.StockFile,
	}, "success", 0, "")

	journal, err := s.openJournal(run.ID)
	if err != nil {
		s.finish(pdr, run.ID, &orchestrator.Report{Profit: orchestrator.FailedProfit}, err)
		return nil, err
	}
	if journal != nil {
		defer func() {
			if err := journal.Close(); err != nil {
				log.Printf("[controlplane] failed to close journal for run %s: %v", run.ID, err)
			}
		}()
	}

	game := s.game
	if cfg.SimulateOnly {
		game = connectors.DryRun(game, s.out)
	}
	game = audit.NewRecorder(game, run.ID, pdr, journal)

	confirm := opts.Confirm
	if confirm == nil {
		confirm = &connectors.StaticConfirmer{}
	}

	p := planner.New(game, &cfg, confirm, s.out, ruleSet, stockSet)
	env := &actions.Env{Game: game, Config: &cfg, Confirm: confirm, Out: s.out, Resolver: p.Resolver()}
	report, runErr := orchestrator.New(env, p).Run(ctx)

	s.finish(pdr, run.ID, report, runErr)
	finished, err := s.store.GetRun(run.ID)
	if err != nil {
		log.Printf("[controlplane] failed to reload run %s: %v", run.ID, err)
		finished = run
	}
	return &RunResult{Run: finished, Report: report}, runErr
}

func (s *Service) finish(pdr *audit.PDRWriter, runID string, report *orchestrator.Report, runErr error) {
	status := models.RunStatusCompleted
	switch {
	case errors.Is(runErr, orchestrator.ErrAborted):
		status = models.RunStatusAborted
	case runErr != nil:
		status = models.RunStatusFailed
	}

	if err := s.store.FinishRun(runID, status, report.Profit, report.Replans, runErr); err != nil {
		log.Printf("[controlplane] failed to finish run %s: %v", runID, err)
	}

	details := ""
	if runErr != nil {
		details = runErr.Error()
	}
	pdr.Record("run.finish", map[string]interface{}{
		"profit":        report.Profit,
		"replans":       report.Replans,
		"stocking_cost": report.StockingCost,
	}, string(status), 0, details)
	log.Printf("[controlplane] run %s %s: profit %d, %d replans", runID, status, report.Profit, report.Replans)
}

func (s *Service) openJournal(runID string) (*audit.Journal, error) {
	if s.cfg.JournalPath == "" {
		return nil, nil
	}
	if err := os.MkdirAll(s.cfg.JournalPath, 0o755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	return audit.OpenJournal(audit.JournalPath(s.cfg.JournalPath, runID))
}

// Plan builds the plan a run would start from without changing anything.
// Retrievals the resolver would perform are echoed instead.
func (s *Service) Plan(ctx context.Context, confirm connectors.Confirmer) (*planner.Plan, error) {
	ruleSet, stockSet, err := s.loadRules()
	if err != nil {
		return nil, err
	}
	if confirm == nil {
		confirm = &connectors.StaticConfirmer{}
	}

	cfg := *s.cfg
	cfg.SimulateOnly = true
	game := connectors.DryRun(s.game, s.out)

	plan, err := planner.New(game, &cfg, confirm, s.out, ruleSet, stockSet).MakePlan(ctx)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, fmt.Errorf("%w: stopped to categorize items", orchestrator.ErrAborted)
	}
	return plan, nil
}

func (s *Service) loadRules() (models.RuleSet, models.StockSet, error) {
	ruleSet, err := rules.LoadRules(s.cfg.DataFile)
	if err != nil {
		return nil, nil, err
	}
	stockSet, err := rules.LoadStock(s.cfg.StockFile)
	if err != nil {
		return nil, nil, err
	}
	return ruleSet, stockSet, nil
}

// --- History Operations ---

// History returns the most recent runs, newest first.
func (s *Service) History(limit int) ([]models.Run, error) {
	return s.store.ListRuns(limit)
}

// AuditReport is everything recorded about one run.
type AuditReport struct {
	Run     *models.Run
	Records []models.PDREntry
	// Journal is empty when journaling was off for the run.
	Journal []audit.Entry
}

// Audit returns the records of a run.
func (s *Service) Audit(runID string) (*AuditReport, error) {
	run, err := s.store.GetRun(runID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, err
	}

	records, err := s.store.GetPDRForRun(runID)
	if err != nil {
		return nil, err
	}
	report := &AuditReport{Run: run, Records: records}

	if s.cfg.JournalPath != "" {
		entries, err := audit.ReadJournal(audit.JournalPath(s.cfg.JournalPath, runID))
		switch {
		case err == nil:
			report.Journal = entries
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, err
		}
	}
	return report, nil
}
