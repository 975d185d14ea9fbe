package tui

import (
	"fmt"

	"github.com/nicholasglazer/admin-console/pkg/auth"
)

// Capabilities checked before a view or command is reachable
const (
	CapMail            = "webmail.view"
	CapBoardView       = "ops.tasks.view"
	CapBoardManage     = "ops.tasks.manage"
	CapQAView          = "ops.qa.view"
	CapQAManage        = "ops.qa.manage"
	CapWorkflowsView   = "ops.workflows.view"
	CapWorkflowsManage = "ops.workflows.manage"
)

var viewCapabilities = map[string]string{
	viewMail:      CapMail,
	viewBoard:     CapBoardView,
	viewQA:        CapQAView,
	viewWorkflows: CapWorkflowsView,
}

var commandCapabilities = map[string]string{
	"issue":        CapBoardManage,
	"move":         CapBoardManage,
	"assign":       CapBoardManage,
	"delete-issue": CapBoardManage,
	"spec":         CapQAManage,
	"archive-spec": CapQAManage,
	"run":          CapQAManage,
	"start":        CapWorkflowsManage,
	"cancel":       CapWorkflowsManage,
	"terminate":    CapWorkflowsManage,
	"signal":       CapWorkflowsManage,
}

// checkAccess returns auth.ErrForbidden unless caps grant what the view
// or command needs. Names without a requirement are always allowed.
func checkAccess(caps auth.Capabilities, requirements map[string]string, name string) error {
	required, ok := requirements[name]
	if !ok {
		return nil
	}
	return caps.Require(required)
}

// allowed reports a denial to the user and the log
func (a *App) allowed(requirements map[string]string, name string) bool {
	err := checkAccess(a.svc.Access, requirements, name)
	if err == nil {
		return true
	}
	if a.logger != nil {
		a.logger.Printf("access: %s: %v", name, err)
	}
	a.errorHandler.ShowError(a.ctx, fmt.Sprintf("Access denied: %s", name))
	return false
}
