package browser

import (
	"log"
	"sync"
)

type Variant string

const (
	VariantSuccess Variant = "success"
	VariantError   Variant = "error"
)

const errorTitle = "ERROR"

// Notification is a user-facing toast.
type Notification struct {
	Title   string  `json:"title"`
	Variant Variant `json:"variant"`
	Message string  `json:"message"`
}

type Notifier interface {
	Notify(n Notification)
}

// Recorder keeps notifications until they are drained. Safe for concurrent use.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	r.items = append(r.items, n)
	r.mu.Unlock()
}

// Drain returns the pending notifications and forgets them.
func (r *Recorder) Drain() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.items
	r.items = nil
	if out == nil {
		out = []Notification{}
	}
	return out
}

// Len returns the number of pending notifications.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// LogNotifier writes every notification to the log and forwards it.
type LogNotifier struct {
	prefix string
	next   Notifier
}

func NewLogNotifier(prefix string, next Notifier) *LogNotifier {
	return &LogNotifier{prefix: prefix, next: next}
}

func (l *LogNotifier) Notify(n Notification) {
	if n.Variant == VariantError {
		log.Printf("WARN: [%s] %s: %s", l.prefix, n.Title, n.Message)
	} else {
		log.Printf("[%s] %s: %s", l.prefix, n.Title, n.Message)
	}
	if l.next != nil {
		l.next.Notify(n)
	}
}
