package services

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/stretchr/testify/mock"

	"github.com/nicholasglazer/admin-console/internal/backend"
	"github.com/nicholasglazer/admin-console/internal/ops"
)

// MockRecordStore implements RecordStore for testing. Results are given
// as values and copied into the caller's out pointer through JSON.
type MockRecordStore struct {
	mock.Mock
}

func fill(out any, v any) {
	if out == nil || v == nil {
		return
	}
	data, _ := json.Marshal(v)
	_ = json.Unmarshal(data, out)
}

func (m *MockRecordStore) RPC(ctx context.Context, fn string, params any, out any) error {
	args := m.Called(ctx, fn, params)
	fill(out, args.Get(0))
	return args.Error(1)
}

func (m *MockRecordStore) Select(ctx context.Context, table string, query url.Values, out any) error {
	args := m.Called(ctx, table, query)
	fill(out, args.Get(0))
	return args.Error(1)
}

func (m *MockRecordStore) Insert(ctx context.Context, table string, row any, out any) error {
	args := m.Called(ctx, table, row)
	fill(out, args.Get(0))
	return args.Error(1)
}

func (m *MockRecordStore) Update(ctx context.Context, table, id string, patch any, out any) error {
	args := m.Called(ctx, table, id, patch)
	return args.Error(0)
}

func (m *MockRecordStore) Delete(ctx context.Context, table, id string) error {
	return m.Called(ctx, table, id).Error(0)
}

// MockOrchestrator implements WorkflowOrchestrator for testing
type MockOrchestrator struct {
	mock.Mock
}

func (m *MockOrchestrator) ListWorkflows(ctx context.Context, status ops.WorkflowStatus) ([]ops.WorkflowRun, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ops.WorkflowRun), args.Error(1)
}

func (m *MockOrchestrator) StartWorkflow(ctx context.Context, req backend.StartWorkflowRequest) (*ops.WorkflowRun, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ops.WorkflowRun), args.Error(1)
}

func (m *MockOrchestrator) CancelWorkflow(ctx context.Context, workflowID string) error {
	return m.Called(ctx, workflowID).Error(0)
}

func (m *MockOrchestrator) TerminateWorkflow(ctx context.Context, workflowID, reason string) error {
	return m.Called(ctx, workflowID, reason).Error(0)
}

func (m *MockOrchestrator) SignalWorkflow(ctx context.Context, workflowID, signal string, payload any) error {
	return m.Called(ctx, workflowID, signal, payload).Error(0)
}

func (m *MockOrchestrator) StartTestRun(ctx context.Context, req backend.StartTestRunRequest) (*ops.TestRun, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ops.TestRun), args.Error(1)
}
