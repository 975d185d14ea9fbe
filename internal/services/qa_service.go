package services

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nicholasglazer/admin-console/internal/backend"
	"github.com/nicholasglazer/admin-console/internal/clock"
	"github.com/nicholasglazer/admin-console/internal/ops"
)

const (
	specsTable = "test_specs"
	runsTable  = "test_runs"
)

// SpecPatch is a partial test spec update
type SpecPatch struct {
	Name        *string
	Description *string
	Suite       *string
	Steps       []string
}

func (p SpecPatch) fields(now time.Time) map[string]any {
	m := map[string]any{"updated_at": now}
	if p.Name != nil {
		m["name"] = *p.Name
	}
	if p.Description != nil {
		m["description"] = *p.Description
	}
	if p.Suite != nil {
		m["suite"] = *p.Suite
	}
	if p.Steps != nil {
		m["steps"] = p.Steps
	}
	return m
}

type newSpecRow struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Suite       string   `json:"suite,omitempty"`
	Steps       []string `json:"steps,omitempty"`
}

// QAServiceImpl implements QAService
type QAServiceImpl struct {
	db       RecordStore
	orch     WorkflowOrchestrator
	notifier Notifier
	clock    clock.Clock
	specs    *Collection[ops.TestSpec]
	runs     *Collection[ops.TestRun]
	runLimit int
	logger   *log.Logger
}

// NewQAService creates the QA state
func NewQAService(db RecordStore, orch WorkflowOrchestrator, notifier Notifier, clk clock.Clock) *QAServiceImpl {
	if clk == nil {
		clk = clock.Real()
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &QAServiceImpl{
		db:       db,
		orch:     orch,
		notifier: notifier,
		clock:    clk,
		specs:    NewCollection("test spec", func(s ops.TestSpec) string { return s.ID }, notifier),
		runs:     NewCollection("test run", func(r ops.TestRun) string { return r.ID }, notifier),
		runLimit: 50,
	}
}

// SetLogger sets the logger for debug output
func (s *QAServiceImpl) SetLogger(logger *log.Logger) {
	s.logger = logger
	s.specs.SetLogger(logger)
	s.runs.SetLogger(logger)
}

func (s *QAServiceImpl) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}

// LoadSpecs fetches the active specs, most recently updated first
func (s *QAServiceImpl) LoadSpecs(ctx context.Context) error {
	var specs []ops.TestSpec
	q := url.Values{
		"archived": {"eq.false"},
		"order":    {"updated_at.desc"},
	}
	if err := s.db.Select(ctx, specsTable, q, &specs); err != nil {
		s.logf("load specs failed (%s): %v", failureKind(err), err)
		return err
	}
	s.specs.Replace(specs)
	return nil
}

// CreateSpec adds a spec and persists it
func (s *QAServiceImpl) CreateSpec(ctx context.Context, spec ops.TestSpec) (ops.TestSpec, error) {
	if strings.TrimSpace(spec.Name) == "" {
		return ops.TestSpec{}, invalidInput("spec name cannot be empty")
	}
	now := s.clock.Now()
	spec.ID = "tmp-" + uuid.New().String()
	spec.CreatedAt, spec.UpdatedAt = now, now
	spec.Archived = false

	return s.specs.Create(ctx, spec, func(ctx context.Context, sp ops.TestSpec) (ops.TestSpec, error) {
		var created ops.TestSpec
		err := s.db.Insert(ctx, specsTable, newSpecRow{
			Name:        sp.Name,
			Description: sp.Description,
			Suite:       sp.Suite,
			Steps:       sp.Steps,
		}, &created)
		return created, err
	})
}

// UpdateSpec edits spec fields. A failed save restores only the patched
// fields.
func (s *QAServiceImpl) UpdateSpec(ctx context.Context, id string, patch SpecPatch) error {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return invalidInput("spec name cannot be empty")
	}
	now := s.clock.Now()
	return s.specs.Update(ctx, id, "update", func(sp *ops.TestSpec) Undo[ops.TestSpec] {
		var undo []func(*ops.TestSpec)
		if patch.Name != nil {
			prev := sp.Name
			sp.Name = *patch.Name
			undo = append(undo, func(sp *ops.TestSpec) { sp.Name = prev })
		}
		if patch.Description != nil {
			prev := sp.Description
			sp.Description = *patch.Description
			undo = append(undo, func(sp *ops.TestSpec) { sp.Description = prev })
		}
		if patch.Suite != nil {
			prev := sp.Suite
			sp.Suite = *patch.Suite
			undo = append(undo, func(sp *ops.TestSpec) { sp.Suite = prev })
		}
		if patch.Steps != nil {
			prev := sp.Steps
			sp.Steps = append([]string(nil), patch.Steps...)
			undo = append(undo, func(sp *ops.TestSpec) { sp.Steps = prev })
		}
		prevUpdated := sp.UpdatedAt
		sp.UpdatedAt = now
		return func(sp *ops.TestSpec) {
			for _, fn := range undo {
				fn(sp)
			}
			if sp.UpdatedAt.Equal(now) {
				sp.UpdatedAt = prevUpdated
			}
		}
	}, func(ctx context.Context, _ ops.TestSpec) error {
		return s.db.Update(ctx, specsTable, id, patch.fields(now), nil)
	})
}

// ArchiveSpec soft-deletes a spec. A failed save puts it back at the
// top of the list.
func (s *QAServiceImpl) ArchiveSpec(ctx context.Context, id string) error {
	now := s.clock.Now()
	return s.specs.Remove(ctx, id, "archive", func(ctx context.Context, _ ops.TestSpec) error {
		return s.db.Update(ctx, specsTable, id, map[string]any{"archived": true, "updated_at": now}, nil)
	})
}

// LoadRuns fetches the most recent runs
func (s *QAServiceImpl) LoadRuns(ctx context.Context) error {
	var runs []ops.TestRun
	q := url.Values{
		"order": {"started_at.desc"},
		"limit": {strconv.Itoa(s.runLimit)},
	}
	if err := s.db.Select(ctx, runsTable, q, &runs); err != nil {
		s.logf("load runs failed (%s): %v", failureKind(err), err)
		return err
	}
	s.runs.Replace(runs)
	return nil
}

// StartRun asks the orchestrator to execute specs, then refreshes the
// run list so the new run shows with its server-side state
func (s *QAServiceImpl) StartRun(ctx context.Context, specIDs []string, environment string) (*ops.TestRun, error) {
	if len(specIDs) == 0 {
		return nil, invalidInput("select at least one spec")
	}
	for _, id := range specIDs {
		if _, ok := s.specs.Get(id); !ok {
			return nil, fmt.Errorf("test spec %s: %w", id, ErrNotFound)
		}
	}

	run, err := s.orch.StartTestRun(ctx, backend.StartTestRunRequest{SpecIDs: specIDs, Environment: environment})
	if err != nil {
		s.logf("start run failed (%s): %v", failureKind(err), err)
		s.notifier.Error("Failed to start test run")
		return nil, err
	}
	s.notifier.Success(fmt.Sprintf("Test run started (%d specs)", len(specIDs)))

	if err := s.LoadRuns(ctx); err != nil {
		s.notifier.Warning("Test run started but the run list could not be refreshed")
	}
	return run, nil
}

// Specs returns the visible specs
func (s *QAServiceImpl) Specs() []ops.TestSpec {
	return s.specs.Items()
}

// Runs returns the loaded runs
func (s *QAServiceImpl) Runs() []ops.TestRun {
	return s.runs.Items()
}

// Subscribe registers fn to run after every spec or run change
func (s *QAServiceImpl) Subscribe(fn func()) func() {
	unsubSpecs := s.specs.Subscribe(fn)
	unsubRuns := s.runs.Subscribe(fn)
	return func() {
		unsubSpecs()
		unsubRuns()
	}
}
