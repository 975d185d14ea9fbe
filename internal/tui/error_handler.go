package tui

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/derailed/tview"

	"github.com/nicholasglazer/admin-console/internal/config"
	"github.com/nicholasglazer/admin-console/internal/services"
)

// LogLevel represents different types of user messages
type LogLevel int

const (
	LogLevelInfo LogLevel = iota
	LogLevelWarning
	LogLevelError
	LogLevelSuccess
)

func (l LogLevel) toastLevel() services.ToastLevel {
	switch l {
	case LogLevelWarning:
		return services.ToastWarning
	case LogLevelError:
		return services.ToastError
	case LogLevelSuccess:
		return services.ToastSuccess
	}
	return services.ToastInfo
}

// ErrorHandler routes user-facing messages into the toast queue and
// renders the queue and the status bar
type ErrorHandler struct {
	queue      func(func())
	toasts     services.ToastService
	statusView *tview.TextView
	toastView  *tview.TextView
	logger     *log.Logger
	baseline   func() string
	resize     func(lines int)
	now        func() time.Time

	mu               sync.Mutex
	colors           config.ToastColors
	persistentStatus string
}

// NewErrorHandler creates a new error handler. A nil app applies view
// updates inline.
func NewErrorHandler(app *tview.Application, toasts services.ToastService, statusView, toastView *tview.TextView, logger *log.Logger) *ErrorHandler {
	eh := &ErrorHandler{
		toasts:     toasts,
		statusView: statusView,
		toastView:  toastView,
		logger:     logger,
		colors:     config.DefaultColors().Toast,
		now:        time.Now,
		queue:      func(fn func()) { fn() },
	}
	if app != nil {
		eh.queue = func(fn func()) { app.QueueUpdateDraw(fn) }
	}
	return eh
}

// SetBaseline sets the provider of the default status text
func (eh *ErrorHandler) SetBaseline(fn func() string) {
	eh.baseline = fn
}

// SetResize sets the callback told how many toast lines are shown
func (eh *ErrorHandler) SetResize(fn func(lines int)) {
	eh.resize = fn
}

// SetColors applies theme toast colors
func (eh *ErrorHandler) SetColors(colors config.ToastColors) {
	eh.mu.Lock()
	eh.colors = colors
	eh.mu.Unlock()
}

// Attach renders the toast queue whenever it changes. The returned func
// stops rendering.
func (eh *ErrorHandler) Attach() func() {
	if eh.toasts == nil {
		return func() {}
	}
	return eh.toasts.Subscribe(func(list []services.Toast) {
		// Subscribers may run on the UI goroutine; never block it
		go eh.queue(func() { eh.renderToasts(list) })
	})
}

// HandleError logs err and shows a user-facing error toast
func (eh *ErrorHandler) HandleError(ctx context.Context, err error, userMsg string) {
	if err == nil {
		return
	}
	if eh.logger != nil {
		eh.logger.Printf("ERROR: %s: %v", userMsg, err)
	}
	display := userMsg
	if display == "" {
		display = err.Error()
	}
	eh.show(display, LogLevelError)
}

// ShowMessage shows a toast with the given level
func (eh *ErrorHandler) ShowMessage(ctx context.Context, msg string, level LogLevel) {
	if eh.logger != nil {
		eh.logger.Printf("%s: %s", eh.levelToString(level), msg)
	}
	eh.show(msg, level)
}

func (eh *ErrorHandler) show(msg string, level LogLevel) {
	if eh.toasts != nil {
		eh.toasts.Show(level.toastLevel(), msg, 0)
		return
	}
	// Without a queue the message goes to the status bar
	eh.queue(func() {
		if eh.statusView != nil {
			eh.statusView.SetText(msg)
		}
	})
}

// ShowPersistentMessage pins a message in the status bar until cleared
func (eh *ErrorHandler) ShowPersistentMessage(ctx context.Context, msg string, level LogLevel) {
	if eh.logger != nil {
		eh.logger.Printf("%s: %s", eh.levelToString(level), msg)
	}
	eh.queue(func() { eh.updatePersistentStatus(msg) })
}

// ClearPersistentMessage restores the baseline status
func (eh *ErrorHandler) ClearPersistentMessage() {
	eh.queue(func() { eh.updatePersistentStatus("") })
}

// ShowInfo shows an info message
func (eh *ErrorHandler) ShowInfo(ctx context.Context, msg string) {
	eh.ShowMessage(ctx, msg, LogLevelInfo)
}

// ShowWarning shows a warning message
func (eh *ErrorHandler) ShowWarning(ctx context.Context, msg string) {
	eh.ShowMessage(ctx, msg, LogLevelWarning)
}

// ShowError shows an error message
func (eh *ErrorHandler) ShowError(ctx context.Context, msg string) {
	eh.ShowMessage(ctx, msg, LogLevelError)
}

// ShowSuccess shows a success message
func (eh *ErrorHandler) ShowSuccess(ctx context.Context, msg string) {
	eh.ShowMessage(ctx, msg, LogLevelSuccess)
}

// ShowProgress shows a progress message
func (eh *ErrorHandler) ShowProgress(ctx context.Context, msg string) {
	eh.ShowPersistentMessage(ctx, msg, LogLevelInfo)
}

// ClearProgress clears any progress message
func (eh *ErrorHandler) ClearProgress() {
	eh.ClearPersistentMessage()
}

// levelToString converts LogLevel to string
func (eh *ErrorHandler) levelToString(level LogLevel) string {
	switch level {
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarning:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	case LogLevelSuccess:
		return "SUCCESS"
	default:
		return "UNKNOWN"
	}
}

func (eh *ErrorHandler) renderToasts(list []services.Toast) {
	if eh.toastView == nil {
		return
	}
	eh.mu.Lock()
	colors := eh.colors
	eh.mu.Unlock()
	eh.toastView.SetText(formatToasts(list, colors, eh.now()))
	if eh.resize != nil {
		eh.resize(len(list))
	}
}

// formatToasts renders the queue oldest first, one toast per line
func formatToasts(list []services.Toast, colors config.ToastColors, now time.Time) string {
	var b strings.Builder
	for i, t := range list {
		if i > 0 {
			b.WriteByte('\n')
		}
		color, icon := colors.InfoColor, "ℹ"
		switch t.Level {
		case services.ToastSuccess:
			color, icon = colors.SuccessColor, "✓"
		case services.ToastWarning:
			color, icon = colors.WarningColor, "!"
		case services.ToastError:
			color, icon = colors.ErrorColor, "✗"
		}
		fmt.Fprintf(&b, "[%s]%s %s[-] %s", color, icon, tview.Escape(t.Message), progressBar(t.Progress(now), 8))
	}
	return b.String()
}

// progressBar draws the remaining lifetime of a toast
func progressBar(elapsed float64, width int) string {
	left := width - int(elapsed*float64(width)+0.5)
	if left < 0 {
		left = 0
	}
	return "[::d]" + strings.Repeat("▮", left) + strings.Repeat("▯", width-left) + "[::-]"
}

// updatePersistentStatus updates the persistent status
func (eh *ErrorHandler) updatePersistentStatus(msg string) {
	eh.mu.Lock()
	eh.persistentStatus = msg
	eh.mu.Unlock()
	eh.refreshStatusDisplay()
}

// refreshStatusDisplay refreshes the status display
func (eh *ErrorHandler) refreshStatusDisplay() {
	if eh.statusView == nil {
		return
	}
	eh.statusView.SetText(eh.statusText())
}

func (eh *ErrorHandler) statusText() string {
	eh.mu.Lock()
	persistent := eh.persistentStatus
	eh.mu.Unlock()
	if persistent != "" {
		return persistent
	}
	if eh.baseline != nil {
		return eh.baseline()
	}
	return "Admin Console | ? help | : commands"
}
