package console

import (
	"log"
	"time"
)

// Sweeper expires idle sessions in the background.
type Sweeper struct {
	manager *SessionManager
	ttl     time.Duration
	ticker  *time.Ticker
	done    chan struct{}
}

func NewSweeper(manager *SessionManager, ttl time.Duration) *Sweeper {
	return &Sweeper{manager: manager, ttl: ttl}
}

// Start begins the background ticker. Sessions are checked every half TTL,
// at most once a minute.
func (s *Sweeper) Start() {
	interval := s.ttl / 2
	if interval > time.Minute {
		interval = time.Minute
	}
	if interval < time.Second {
		interval = time.Second
	}
	s.done = make(chan struct{})
	s.ticker = time.NewTicker(interval)
	go s.run(s.done, s.ticker.C)
	log.Printf("Session sweeper started (ttl: %s, every %s)", s.ttl, interval)
}

// Stop halts the ticker.
func (s *Sweeper) Stop() {
	if s.ticker != nil {
		s.ticker.Stop()
	}
	if s.done != nil {
		close(s.done)
		s.done = nil
	}
}

func (s *Sweeper) run(done <-chan struct{}, tick <-chan time.Time) {
	for {
		select {
		case <-done:
			return
		case <-tick:
			s.Sweep()
		}
	}
}

// Sweep expires idle sessions once.
func (s *Sweeper) Sweep() {
	if n := s.manager.Expire(s.ttl); n > 0 {
		log.Printf("Expired %d idle console sessions", n)
	}
}
