// Package notify keeps the short-lived messages shown to a toolkit user.
//
// A Board holds at most one live record per kind. Showing a message of a kind that is
// already on the board replaces it; other kinds are left alone.
package notify

import (
	"fmt"
	"sync"
	"time"
)

// Kind classifies a notification.
type Kind string

const (
	Success Kind = "success"
	Error   Kind = "error"
	Warning Kind = "warning"
	Info    Kind = "info"
)

// DefaultDuration is how long a notification stays up when the caller does not say.
const DefaultDuration = 5 * time.Second

// Kinds lists every kind in display priority order.
var Kinds = []Kind{Error, Warning, Success, Info}

// ParseKind maps a string onto a Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown notification kind %q", s)
}

// Record is one shown notification.
type Record struct {
	ID        uint64
	Message   string
	Kind      Kind
	AutoHide  time.Duration // zero means it stays until dismissed
	CreatedAt time.Time
}

// Renderer draws board changes. Calls are made while the board is locked, so a
// renderer must not call back into the board.
type Renderer interface {
	Shown(Record)
	Removed(Record)
}

type entry struct {
	rec   Record
	timer *time.Timer
}

// Board is safe for concurrent use.
type Board struct {
	mu       sync.Mutex
	seq      uint64
	stack    []*entry // top first
	renderer Renderer
	now      func() time.Time
}

// NewBoard returns an empty board drawing through r. A nil renderer discards.
func NewBoard(r Renderer) *Board {
	if r == nil {
		r = Discard
	}
	return &Board{renderer: r, now: time.Now}
}

// Show puts message on top of the board, replacing any live record of the same kind.
// A positive duration removes the record after that long; zero or negative keeps it.
func (b *Board) Show(message string, kind Kind, duration time.Duration) Record {
	b.mu.Lock()
	defer b.mu.Unlock()

	if i := b.indexOfKind(kind); i >= 0 {
		b.removeAt(i)
	}

	b.seq++
	rec := Record{ID: b.seq, Message: message, Kind: kind, CreatedAt: b.now()}
	if duration > 0 {
		rec.AutoHide = duration
	}
	e := &entry{rec: rec}
	if duration > 0 {
		id := rec.ID
		e.timer = time.AfterFunc(duration, func() { b.expire(id) })
	}
	b.stack = append([]*entry{e}, b.stack...)
	b.renderer.Shown(rec)
	return rec
}

// Dismiss removes the live record of kind, as the close control does.
func (b *Board) Dismiss(kind Kind) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.indexOfKind(kind)
	if i < 0 {
		return false
	}
	b.removeAt(i)
	return true
}

// DismissAll clears the board and returns how many records were removed.
func (b *Board) DismissAll() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := len(b.stack)
	for len(b.stack) > 0 {
		b.removeAt(0)
	}
	return n
}

// Active returns the live records, top first.
func (b *Board) Active() []Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Record, len(b.stack))
	for i, e := range b.stack {
		out[i] = e.rec
	}
	return out
}

// Get returns the live record of kind.
func (b *Board) Get(kind Kind) (Record, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i := b.indexOfKind(kind); i >= 0 {
		return b.stack[i].rec, true
	}
	return Record{}, false
}

// expire runs on the auto-hide timer. A record that was already replaced is left alone.
func (b *Board) expire(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, e := range b.stack {
		if e.rec.ID == id {
			b.removeAt(i)
			return
		}
	}
}

func (b *Board) indexOfKind(kind Kind) int {
	for i, e := range b.stack {
		if e.rec.Kind == kind {
			return i
		}
	}
	return -1
}

func (b *Board) removeAt(i int) {
	e := b.stack[i]
	if e.timer != nil {
		e.timer.Stop()
	}
	b.stack = append(b.stack[:i], b.stack[i+1:]...)
	b.renderer.Removed(e.rec)
}
