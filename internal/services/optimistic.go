package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
)

// Undo restores the fields a mutation changed
type Undo[T any] func(item *T)

// Mutation changes an item in place and returns how to revert it
type Mutation[T any] func(item *T) Undo[T]

// Collection is an ordered in-memory list of records that are mutated
// optimistically: the change is visible before it is persisted and is
// reverted when persisting fails.
type Collection[T any] struct {
	mu       sync.RWMutex
	entity   string
	key      func(T) string
	items    []T
	notifier Notifier
	subs     observers
	logger   *log.Logger
}

// NewCollection creates a collection of entity records identified by key
func NewCollection[T any](entity string, key func(T) string, notifier Notifier) *Collection[T] {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Collection[T]{entity: entity, key: key, notifier: notifier}
}

// SetLogger sets the logger for debug output
func (c *Collection[T]) SetLogger(logger *log.Logger) {
	c.logger = logger
}

// Replace swaps the whole list, e.g. after a fetch
func (c *Collection[T]) Replace(items []T) {
	c.mu.Lock()
	c.items = append([]T(nil), items...)
	c.mu.Unlock()
	c.subs.notify()
}

// Items returns a copy of the list
func (c *Collection[T]) Items() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]T(nil), c.items...)
}

// Get returns the record with the given id
func (c *Collection[T]) Get(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.indexOf(id); i >= 0 {
		return c.items[i], true
	}
	var zero T
	return zero, false
}

// Len returns the number of records
func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Subscribe registers fn to run after every change
func (c *Collection[T]) Subscribe(fn func()) func() {
	return c.subs.add(fn)
}

// Create prepends item and persists it. On success the canonical record
// returned by persist replaces the provisional one; on failure the
// provisional record is removed.
func (c *Collection[T]) Create(ctx context.Context, item T, persist func(context.Context, T) (T, error)) (T, error) {
	provisional := c.key(item)

	c.mu.Lock()
	c.items = append([]T{item}, c.items...)
	c.mu.Unlock()
	c.subs.notify()

	canonical, err := persist(ctx, item)
	if err != nil {
		c.mu.Lock()
		if i := c.indexOf(provisional); i >= 0 {
			c.items = append(c.items[:i:i], c.items[i+1:]...)
		}
		c.mu.Unlock()
		c.subs.notify()
		c.fail("create", provisional, err)
		var zero T
		return zero, err
	}

	c.mu.Lock()
	if i := c.indexOf(provisional); i >= 0 {
		c.items[i] = canonical
	}
	c.mu.Unlock()
	c.subs.notify()
	c.succeed("create")
	return canonical, nil
}

// Update applies mutate to the record and persists the result. On
// failure the undo returned by mutate is applied to the current record.
func (c *Collection[T]) Update(ctx context.Context, id, action string, mutate Mutation[T], persist func(context.Context, T) error) error {
	c.mu.Lock()
	i := c.indexOf(id)
	if i < 0 {
		c.mu.Unlock()
		return fmt.Errorf("%s %s: %w", c.entity, id, ErrNotFound)
	}
	undo := mutate(&c.items[i])
	updated := c.items[i]
	c.mu.Unlock()
	c.subs.notify()

	if err := persist(ctx, updated); err != nil {
		c.mu.Lock()
		if j := c.indexOf(id); j >= 0 && undo != nil {
			undo(&c.items[j])
		}
		c.mu.Unlock()
		c.subs.notify()
		c.fail(action, id, err)
		return err
	}
	c.succeed(action)
	return nil
}

// Remove drops the record and persists the removal. On failure the
// record is re-added at the front of the list, not at its old position.
func (c *Collection[T]) Remove(ctx context.Context, id, action string, persist func(context.Context, T) error) error {
	c.mu.Lock()
	i := c.indexOf(id)
	if i < 0 {
		c.mu.Unlock()
		return fmt.Errorf("%s %s: %w", c.entity, id, ErrNotFound)
	}
	removed := c.items[i]
	c.items = append(c.items[:i:i], c.items[i+1:]...)
	c.mu.Unlock()
	c.subs.notify()

	if err := persist(ctx, removed); err != nil {
		c.mu.Lock()
		if c.indexOf(id) < 0 {
			c.items = append([]T{removed}, c.items...)
		}
		c.mu.Unlock()
		c.subs.notify()
		c.fail(action, id, err)
		return err
	}
	c.succeed(action)
	return nil
}

func (c *Collection[T]) indexOf(id string) int {
	for i := range c.items {
		if c.key(c.items[i]) == id {
			return i
		}
	}
	return -1
}

func (c *Collection[T]) succeed(action string) {
	c.notifier.Success(fmt.Sprintf("%s %s", capitalize(c.entity), pastTense(action)))
}

func (c *Collection[T]) fail(action, id string, err error) {
	if c.logger != nil {
		c.logger.Printf("%s %s %s failed (%s): %v", action, c.entity, id, failureKind(err), err)
	}
	c.notifier.Error(fmt.Sprintf("Failed to %s %s", action, c.entity))
}

var irregularPast = map[string]string{
	"cancel": "cancelled",
	"send":   "sent",
}

func pastTense(verb string) string {
	if p, ok := irregularPast[verb]; ok {
		return p
	}
	if strings.HasSuffix(verb, "e") {
		return verb + "d"
	}
	return verb + "ed"
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

type nopNotifier struct{}

func (nopNotifier) Info(string) string    { return "" }
func (nopNotifier) Success(string) string { return "" }
func (nopNotifier) Warning(string) string { return "" }
func (nopNotifier) Error(string) string   { return "" }
