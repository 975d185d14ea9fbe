package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/nicholasglazer/admin-console/internal/ops"
)

// Orchestrator talks to the backend API that starts and controls
// asynchronous automation workflows
type Orchestrator struct {
	c *Client
}

// NewOrchestrator creates an orchestrator API on top of c
func NewOrchestrator(c *Client) *Orchestrator {
	return &Orchestrator{c: c}
}

// StartWorkflowRequest starts a workflow of the given type
type StartWorkflowRequest struct {
	Type      string         `json:"type"`
	TaskQueue string         `json:"taskQueue,omitempty"`
	Input     map[string]any `json:"input,omitempty"`
}

// StartTestRunRequest asks the orchestrator to run a set of QA specs
type StartTestRunRequest struct {
	SpecIDs     []string `json:"specIds"`
	Environment string   `json:"environment,omitempty"`
}

// ListWorkflows returns recent workflow executions, optionally by status
func (o *Orchestrator) ListWorkflows(ctx context.Context, status ops.WorkflowStatus) ([]ops.WorkflowRun, error) {
	var q url.Values
	if status != "" {
		q = url.Values{"status": {string(status)}}
	}
	var out struct {
		Workflows []ops.WorkflowRun `json:"workflows"`
	}
	err := o.c.call(ctx, request{
		op:       "list workflows",
		method:   http.MethodGet,
		path:     "/api/workflows",
		query:    q,
		envelope: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.Workflows, nil
}

// StartWorkflow starts a workflow and returns its first execution record
func (o *Orchestrator) StartWorkflow(ctx context.Context, req StartWorkflowRequest) (*ops.WorkflowRun, error) {
	if req.Type == "" {
		return nil, fmt.Errorf("workflow type cannot be empty")
	}
	var out struct {
		Workflow *ops.WorkflowRun `json:"workflow"`
	}
	err := o.c.call(ctx, request{
		op:       "start workflow",
		method:   http.MethodPost,
		path:     "/api/workflows",
		body:     req,
		envelope: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.Workflow, nil
}

// CancelWorkflow requests a graceful cancellation
func (o *Orchestrator) CancelWorkflow(ctx context.Context, workflowID string) error {
	return o.control(ctx, "cancel workflow", workflowID, "cancel", nil)
}

// TerminateWorkflow stops a workflow immediately
func (o *Orchestrator) TerminateWorkflow(ctx context.Context, workflowID, reason string) error {
	return o.control(ctx, "terminate workflow", workflowID, "terminate", map[string]string{"reason": reason})
}

// SignalWorkflow delivers a named signal with an optional payload
func (o *Orchestrator) SignalWorkflow(ctx context.Context, workflowID, signal string, payload any) error {
	if signal == "" {
		return fmt.Errorf("signal name cannot be empty")
	}
	return o.control(ctx, "signal workflow", workflowID, "signal", map[string]any{"name": signal, "payload": payload})
}

// StartTestRun queues a QA run and returns the created run record
func (o *Orchestrator) StartTestRun(ctx context.Context, req StartTestRunRequest) (*ops.TestRun, error) {
	if len(req.SpecIDs) == 0 {
		return nil, fmt.Errorf("no spec IDs provided")
	}
	var out struct {
		Run *ops.TestRun `json:"run"`
	}
	err := o.c.call(ctx, request{
		op:       "start test run",
		method:   http.MethodPost,
		path:     "/api/qa/runs",
		body:     req,
		envelope: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.Run, nil
}

func (o *Orchestrator) control(ctx context.Context, op, workflowID, verb string, body any) error {
	if workflowID == "" {
		return fmt.Errorf("workflowID cannot be empty")
	}
	return o.c.call(ctx, request{
		op:       op,
		method:   http.MethodPost,
		path:     "/api/workflows/" + url.PathEscape(workflowID) + "/" + verb,
		body:     body,
		envelope: true,
	}, nil)
}
