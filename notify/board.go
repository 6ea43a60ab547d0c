// Package notify keeps the short-lived success and error banners shown after
// a user action.
package notify

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"
)

// DefaultTTL is how long a notification stays visible
const DefaultTTL = 5 * time.Second

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

type Notification struct {
	Level     Level     `json:"level"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Board holds notifications until they expire. Expired entries are pruned
// lazily on every read and write.
type Board struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	items []Notification
}

// NewBoard returns a board using ttl, or DefaultTTL when ttl <= 0. A nil now
// uses time.Now.
func NewBoard(ttl time.Duration, now func() time.Time) *Board {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Board{ttl: ttl, now: now}
}

func (b *Board) Success(format string, args ...interface{}) {
	b.post(LevelSuccess, fmt.Sprintf(format, args...))
}

func (b *Board) Error(format string, args ...interface{}) {
	b.post(LevelError, fmt.Sprintf(format, args...))
}

// Report posts err as an error, or text as a success when err is nil
func (b *Board) Report(text string, err error) {
	if err != nil {
		b.post(LevelError, fmt.Sprintf("%s: %v", text, err))
		return
	}
	b.post(LevelSuccess, text)
}

func (b *Board) post(level Level, text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	b.prune(now)
	b.items = append(b.items, Notification{
		Level:     level,
		Text:      text,
		CreatedAt: now,
		ExpiresAt: now.Add(b.ttl),
	})
}

// Active returns the notifications still visible, newest first
func (b *Board) Active() []Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prune(b.now())

	out := make([]Notification, len(b.items))
	for i := range b.items {
		out[i] = b.items[len(b.items)-1-i]
	}
	return out
}

func (b *Board) prune(now time.Time) {
	kept := b.items[:0]
	for _, n := range b.items {
		if now.Before(n.ExpiresAt) {
			kept = append(kept, n)
		}
	}
	b.items = kept
}

// Render writes the active notifications, one line each
func (b *Board) Render(w io.Writer) {
	ok := color.New(color.FgGreen, color.Bold)
	bad := color.New(color.FgRed, color.Bold)
	for _, n := range b.Active() {
		switch n.Level {
		case LevelError:
			bad.Fprintf(w, "✗ %s\n", n.Text)
		default:
			ok.Fprintf(w, "✓ %s\n", n.Text)
		}
	}
}
