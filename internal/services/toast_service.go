package services

import (
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nicholasglazer/admin-console/internal/clock"
)

// ToastLevel is the severity of a toast
type ToastLevel string

const (
	ToastInfo    ToastLevel = "info"
	ToastSuccess ToastLevel = "success"
	ToastWarning ToastLevel = "warning"
	ToastError   ToastLevel = "error"
)

// Toast is a transient notification
type Toast struct {
	ID        string
	Level     ToastLevel
	Message   string
	Duration  time.Duration
	CreatedAt time.Time
}

// Remaining returns the time left before auto-dismiss
func (t Toast) Remaining(now time.Time) time.Duration {
	left := t.CreatedAt.Add(t.Duration).Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

// Progress returns the elapsed fraction of the toast's lifetime, 0..1
func (t Toast) Progress(now time.Time) float64 {
	if t.Duration <= 0 {
		return 1
	}
	p := float64(now.Sub(t.CreatedAt)) / float64(t.Duration)
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}

// ToastOptions configures the notification queue
type ToastOptions struct {
	DefaultDuration time.Duration
	ErrorDuration   time.Duration
	MaxToasts       int
}

// DefaultToastOptions returns the stock queue settings
func DefaultToastOptions() ToastOptions {
	return ToastOptions{
		DefaultDuration: 4 * time.Second,
		ErrorDuration:   6 * time.Second,
		MaxToasts:       5,
	}
}

// ToastServiceImpl implements ToastService
type ToastServiceImpl struct {
	mu     sync.Mutex
	clock  clock.Clock
	opts   ToastOptions
	toasts []Toast
	timers map[string]*clock.Timer
	subs   observers
	logger *log.Logger
}

// NewToastService creates the session's toast queue
func NewToastService(clk clock.Clock, opts ToastOptions) *ToastServiceImpl {
	if clk == nil {
		clk = clock.Real()
	}
	def := DefaultToastOptions()
	if opts.DefaultDuration <= 0 {
		opts.DefaultDuration = def.DefaultDuration
	}
	if opts.ErrorDuration <= 0 {
		opts.ErrorDuration = def.ErrorDuration
	}
	if opts.MaxToasts <= 0 {
		opts.MaxToasts = def.MaxToasts
	}
	return &ToastServiceImpl{
		clock:  clk,
		opts:   opts,
		timers: make(map[string]*clock.Timer),
	}
}

// SetLogger sets the logger for debug output
func (s *ToastServiceImpl) SetLogger(logger *log.Logger) {
	s.logger = logger
}

// Show queues a toast and schedules its dismissal. A zero duration uses
// the configured default for the level. Returns the toast ID, or "" when
// the message is empty.
func (s *ToastServiceImpl) Show(level ToastLevel, message string, duration time.Duration) string {
	message = strings.TrimSpace(message)
	if message == "" {
		return ""
	}
	if duration <= 0 {
		duration = s.opts.DefaultDuration
		if level == ToastError {
			duration = s.opts.ErrorDuration
		}
	}

	if s.logger != nil {
		s.logger.Printf("%s: %s", strings.ToUpper(string(level)), message)
	}

	t := Toast{
		ID:        uuid.New().String(),
		Level:     level,
		Message:   message,
		Duration:  duration,
		CreatedAt: s.clock.Now(),
	}

	s.mu.Lock()
	s.toasts = append(s.toasts, t)
	var evicted []*clock.Timer
	for len(s.toasts) > s.opts.MaxToasts {
		oldest := s.toasts[0]
		s.toasts = s.toasts[1:]
		if timer, ok := s.timers[oldest.ID]; ok {
			evicted = append(evicted, timer)
			delete(s.timers, oldest.ID)
		}
	}
	s.mu.Unlock()

	for _, timer := range evicted {
		timer.Stop()
	}

	// The timer is armed after the lock is released: AfterFunc may run
	// the callback inline.
	timer := s.clock.AfterFunc(duration, func() { s.Dismiss(t.ID) })
	s.mu.Lock()
	if s.indexOf(t.ID) >= 0 {
		s.timers[t.ID] = timer
	} else {
		timer.Stop()
	}
	s.mu.Unlock()

	s.subs.notify()
	return t.ID
}

// Info shows an informational toast
func (s *ToastServiceImpl) Info(message string) string {
	return s.Show(ToastInfo, message, 0)
}

// Success shows a success toast
func (s *ToastServiceImpl) Success(message string) string {
	return s.Show(ToastSuccess, message, 0)
}

// Warning shows a warning toast
func (s *ToastServiceImpl) Warning(message string) string {
	return s.Show(ToastWarning, message, 0)
}

// Error shows an error toast
func (s *ToastServiceImpl) Error(message string) string {
	return s.Show(ToastError, message, 0)
}

// Dismiss removes a toast. Reports whether it was still queued.
func (s *ToastServiceImpl) Dismiss(id string) bool {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	s.toasts = append(s.toasts[:i:i], s.toasts[i+1:]...)
	timer := s.timers[id]
	delete(s.timers, id)
	s.mu.Unlock()

	timer.Stop()
	s.subs.notify()
	return true
}

// Clear removes every toast
func (s *ToastServiceImpl) Clear() {
	s.mu.Lock()
	timers := s.timers
	s.timers = make(map[string]*clock.Timer)
	s.toasts = nil
	s.mu.Unlock()

	for _, t := range timers {
		t.Stop()
	}
	s.subs.notify()
}

// Toasts returns a copy of the queue, oldest first
func (s *ToastServiceImpl) Toasts() []Toast {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Toast(nil), s.toasts...)
}

// Subscribe registers fn to receive the queue after every change
func (s *ToastServiceImpl) Subscribe(fn func([]Toast)) func() {
	if fn == nil {
		return func() {}
	}
	return s.subs.add(func() { fn(s.Toasts()) })
}

// Now exposes the queue's clock for countdown rendering
func (s *ToastServiceImpl) Now() time.Time {
	return s.clock.Now()
}

func (s *ToastServiceImpl) indexOf(id string) int {
	for i, t := range s.toasts {
		if t.ID == id {
			return i
		}
	}
	return -1
}
