package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/nicholasglazer/admin-console/internal/backend"
	"github.com/nicholasglazer/admin-console/internal/clock"
	"github.com/nicholasglazer/admin-console/internal/ops"
)

// WorkflowServiceImpl implements WorkflowService
type WorkflowServiceImpl struct {
	orch     WorkflowOrchestrator
	notifier Notifier
	clock    clock.Clock
	runs     *Collection[ops.WorkflowRun]
	logger   *log.Logger

	mu     sync.Mutex
	status ops.WorkflowStatus
}

// NewWorkflowService creates the workflow tracker
func NewWorkflowService(orch WorkflowOrchestrator, notifier Notifier, clk clock.Clock) *WorkflowServiceImpl {
	if clk == nil {
		clk = clock.Real()
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &WorkflowServiceImpl{
		orch:     orch,
		notifier: notifier,
		clock:    clk,
		runs:     NewCollection("workflow", func(w ops.WorkflowRun) string { return w.ID }, notifier),
	}
}

// SetLogger sets the logger for debug output
func (s *WorkflowServiceImpl) SetLogger(logger *log.Logger) {
	s.logger = logger
	s.runs.SetLogger(logger)
}

// LoadWorkflows fetches workflow runs, optionally filtered by status. The
// filter is remembered for refreshes.
func (s *WorkflowServiceImpl) LoadWorkflows(ctx context.Context, status ops.WorkflowStatus) error {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()

	runs, err := s.orch.ListWorkflows(ctx, status)
	if err != nil {
		if s.logger != nil {
			s.logger.Printf("load workflows failed (%s): %v", failureKind(err), err)
		}
		return err
	}
	s.runs.Replace(runs)
	return nil
}

// StartWorkflow starts a workflow and refreshes the list
func (s *WorkflowServiceImpl) StartWorkflow(ctx context.Context, req backend.StartWorkflowRequest) (*ops.WorkflowRun, error) {
	run, err := s.orch.StartWorkflow(ctx, req)
	if err != nil {
		if s.logger != nil {
			s.logger.Printf("start workflow %s failed (%s): %v", req.Type, failureKind(err), err)
		}
		s.notifier.Error("Failed to start workflow")
		return nil, err
	}
	s.notifier.Success(fmt.Sprintf("Workflow %s started", req.Type))

	s.mu.Lock()
	status := s.status
	s.mu.Unlock()
	if err := s.LoadWorkflows(ctx, status); err != nil {
		s.notifier.Warning("Workflow started but the list could not be refreshed")
	}
	return run, nil
}

// CancelWorkflow marks the run canceled and asks the orchestrator to
// cancel it; a rejected request restores the previous status
func (s *WorkflowServiceImpl) CancelWorkflow(ctx context.Context, workflowID string) error {
	return s.close(ctx, workflowID, "cancel", ops.WorkflowCanceled, func(ctx context.Context) error {
		return s.orch.CancelWorkflow(ctx, workflowID)
	})
}

// TerminateWorkflow marks the run terminated and asks the orchestrator
// to stop it; a rejected request restores the previous status
func (s *WorkflowServiceImpl) TerminateWorkflow(ctx context.Context, workflowID, reason string) error {
	return s.close(ctx, workflowID, "terminate", ops.WorkflowTerminated, func(ctx context.Context) error {
		return s.orch.TerminateWorkflow(ctx, workflowID, reason)
	})
}

func (s *WorkflowServiceImpl) close(ctx context.Context, id, action string, status ops.WorkflowStatus, call func(context.Context) error) error {
	run, ok := s.runs.Get(id)
	if !ok {
		return fmt.Errorf("workflow %s: %w", id, ErrNotFound)
	}
	if run.Status.Terminal() {
		return fmt.Errorf("workflow %s is %s: %w", id, run.Status, ErrWorkflowClosed)
	}
	now := s.clock.Now()
	return s.runs.Update(ctx, id, action, func(w *ops.WorkflowRun) Undo[ops.WorkflowRun] {
		prevStatus, prevClose := w.Status, w.CloseTime
		closed := now
		w.Status = status
		w.CloseTime = &closed
		return func(w *ops.WorkflowRun) {
			w.Status = prevStatus
			w.CloseTime = prevClose
		}
	}, func(ctx context.Context, _ ops.WorkflowRun) error {
		return call(ctx)
	})
}

// SignalWorkflow sends a signal to a running workflow
func (s *WorkflowServiceImpl) SignalWorkflow(ctx context.Context, workflowID, signal string, payload any) error {
	if run, ok := s.runs.Get(workflowID); ok && run.Status.Terminal() {
		return fmt.Errorf("workflow %s is %s: %w", workflowID, run.Status, ErrWorkflowClosed)
	}
	if err := s.orch.SignalWorkflow(ctx, workflowID, signal, payload); err != nil {
		if s.logger != nil {
			s.logger.Printf("signal %s to %s failed (%s): %v", signal, workflowID, failureKind(err), err)
		}
		s.notifier.Error(fmt.Sprintf("Failed to send %s signal", signal))
		return err
	}
	s.notifier.Success(fmt.Sprintf("Signal %s sent", signal))
	return nil
}

// Workflows returns the tracked runs
func (s *WorkflowServiceImpl) Workflows() []ops.WorkflowRun {
	return s.runs.Items()
}

// Running returns the runs that have not finished
func (s *WorkflowServiceImpl) Running() []ops.WorkflowRun {
	var out []ops.WorkflowRun
	for _, w := range s.runs.Items() {
		if !w.Status.Terminal() {
			out = append(out, w)
		}
	}
	return out
}

// Elapsed returns how long a run has been (or was) executing
func (s *WorkflowServiceImpl) Elapsed(w ops.WorkflowRun) time.Duration {
	end := s.clock.Now()
	if w.CloseTime != nil {
		end = *w.CloseTime
	}
	if w.StartTime.IsZero() || end.Before(w.StartTime) {
		return 0
	}
	return end.Sub(w.StartTime)
}

// Subscribe registers fn to run after every change
func (s *WorkflowServiceImpl) Subscribe(fn func()) func() {
	return s.runs.Subscribe(fn)
}
