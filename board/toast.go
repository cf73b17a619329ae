package board

import (
	"sync"
	"time"
)

// DismissAfter is how long a toast stays visible unless dismissed sooner.
const DismissAfter = 4 * time.Second

// Kind is the flavor of a toast.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

// Toast is a transient notification.
type Toast struct {
	ID      int
	Kind    Kind
	Message string
	Expires time.Time
}

// Toasts is a queue of notifications that expire on their own.
type Toasts struct {
	mu    sync.Mutex
	now   func() time.Time
	next  int
	items []Toast
}

// NewToasts returns an empty queue. A nil clock uses time.Now.
func NewToasts(now func() time.Time) *Toasts {
	if now == nil {
		now = time.Now
	}
	return &Toasts{now: now}
}

// Push adds a toast that expires after DismissAfter.
func (q *Toasts) Push(kind Kind, msg string) Toast {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.next++
	t := Toast{ID: q.next, Kind: kind, Message: msg, Expires: q.now().Add(DismissAfter)}
	q.items = append(q.items, t)
	return t
}

// Active returns the toasts that have not expired, oldest first.
func (q *Toasts) Active() []Toast {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pruneLocked()
	return append([]Toast(nil), q.items...)
}

// Latest returns the newest live toast.
func (q *Toasts) Latest() (Toast, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pruneLocked()
	if len(q.items) == 0 {
		return Toast{}, false
	}
	return q.items[len(q.items)-1], true
}

// Dismiss removes the toast with id. It reports whether one was removed.
func (q *Toasts) Dismiss(id int) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, t := range q.items {
		if t.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return true
		}
	}
	return false
}

func (q *Toasts) pruneLocked() {
	now := q.now()
	kept := q.items[:0]
	for _, t := range q.items {
		if now.Before(t.Expires) {
			kept = append(kept, t)
		}
	}
	q.items = kept
}
