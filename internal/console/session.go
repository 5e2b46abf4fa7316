package console

import (
	"sync"
	"sync/atomic"
	"time"

	"orgs-sync/internal/browser"
)

// Session is one operator's browser: a controller plus the notifications it
// raised since the last response.
type Session struct {
	ID            string
	Controller    *browser.Controller
	Notifications *browser.Recorder

	// ops runs one request at a time, so a response drains only the
	// notifications its own operation raised.
	ops        sync.Mutex
	lastAccess atomic.Int64 // unix nanoseconds
}

func (s *Session) touch(now time.Time) {
	s.lastAccess.Store(now.UnixNano())
}

// LastAccess returns when the session was last used.
func (s *Session) LastAccess() time.Time {
	return time.Unix(0, s.lastAccess.Load())
}
