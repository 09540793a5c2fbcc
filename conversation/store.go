package conversation

import (
	"sync"
	"time"

	"github.com/A-calculus/personalisedU/internal/timeutil"
	"github.com/A-calculus/personalisedU/logging"
)

// DefaultTTL is how long an untouched context survives before the sweeper
// evicts it.
const DefaultTTL = time.Hour

// Options holds dependency + configuration overrides passed to NewStore.
type Options struct {
	// TTL after which an untouched context is evicted. Defaults to DefaultTTL.
	TTL time.Duration
	// SweepInterval between automatic sweeps. Defaults to TTL.
	SweepInterval time.Duration
	// Clock supplies timestamps and expiry decisions. Defaults to the real clock.
	Clock timeutil.Clock
	// Logger for store lifecycle events.
	Logger logging.Logger
}

// Store is a volatile, process-scoped context store. It is safe for
// concurrent access; every accessor returns a snapshot copy so no caller
// holds a reference into the live map. The background sweeper is explicit:
// Start launches it, Stop terminates it, and it runs independently of
// request handling.
type Store struct {
	mu       sync.RWMutex
	contexts map[string]*Conversation

	ttl           time.Duration
	sweepInterval time.Duration
	clock         timeutil.Clock
	logger        logging.Logger

	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
}

// NewStore constructs an empty context store with optional overrides.
func NewStore(optFns ...func(o *Options)) *Store {
	opts := Options{
		TTL:    DefaultTTL,
		Clock:  timeutil.RealClock{},
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = opts.TTL
	}
	return &Store{
		contexts:      make(map[string]*Conversation),
		ttl:           opts.TTL,
		sweepInterval: opts.SweepInterval,
		clock:         opts.Clock,
		logger:        opts.Logger,
	}
}

// Get returns a snapshot of the context for key, lazily creating an empty
// one on first access. It never fails and never returns a zero-value
// surrogate for a missing entry.
func (s *Store) Get(key string) Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrCreateLocked(key).clone()
}

// Update merges the delta into the context (shallow field replacement),
// refreshes LastUpdated and increments MessageCount. The updated snapshot is
// returned.
func (s *Store) Update(key string, d Delta) Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.getOrCreateLocked(key)
	s.applyLocked(c, d)
	return c.clone()
}

// AppendMessage appends a timestamped message to the transcript and then
// applies the same bookkeeping as Update with the mutated transcript field.
func (s *Store) AppendMessage(key string, m Message) Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.getOrCreateLocked(key)
	m.Timestamp = s.clock.Now()
	s.applyLocked(c, Delta{Messages: append(c.Messages, m)})
	return c.clone()
}

// Clear removes the context entirely. A subsequent Get recreates it empty.
func (s *Store) Clear(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.contexts, key)
	s.logger.Debug("conversation.context.cleared", "key", key)
}

// Len reports the number of live contexts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.contexts)
}

// SweepExpired removes every context whose LastUpdated is older than
// now - ttl and reports how many were evicted.
func (s *Store) SweepExpired(now time.Time, ttl time.Duration) int {
	cutoff := now.Add(-ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for key, c := range s.contexts {
		if c.LastUpdated.Before(cutoff) {
			delete(s.contexts, key)
			evicted++
			s.logger.Debug("conversation.context.expired", "key", key)
		}
	}
	return evicted
}

// Start launches the background sweeper. Calling Start on a running store is
// a no-op. The sweeper fires every SweepInterval regardless of request
// activity and only terminates on Stop.
func (s *Store) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	stop, done := s.stopCh, s.doneCh
	s.mu.Unlock()

	ticker := s.clock.Ticker(s.sweepInterval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C():
				n := s.SweepExpired(s.clock.Now(), s.ttl)
				if n > 0 {
					s.logger.Info("conversation.sweep.completed", "evicted", n)
				}
			}
		}
	}()
	s.logger.Info("conversation.sweeper.started", "interval", s.sweepInterval.String(), "ttl", s.ttl.String())
}

// Stop terminates the background sweeper and waits for it to exit. Calling
// Stop on a stopped store is a no-op.
func (s *Store) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	stop, done := s.stopCh, s.doneCh
	s.mu.Unlock()

	close(stop)
	<-done
	s.logger.Info("conversation.sweeper.stopped")
}

// getOrCreateLocked allocates and stores a new context; caller must hold the
// write lock.
func (s *Store) getOrCreateLocked(key string) *Conversation {
	if c, ok := s.contexts[key]; ok {
		return c
	}
	now := s.clock.Now()
	c := &Conversation{
		Messages:    []Message{},
		LastUpdated: now,
		Metadata:    Metadata{StartTime: now},
	}
	s.contexts[key] = c
	s.logger.Debug("conversation.context.created", "key", key)
	return c
}

// applyLocked performs the shared mutation bookkeeping: shallow field
// replacement, LastUpdated refresh and the MessageCount increment. Caller
// must hold the write lock.
func (s *Store) applyLocked(c *Conversation, d Delta) {
	if d.Messages != nil {
		c.Messages = d.Messages
	}
	if d.UserData != nil {
		c.UserData = d.UserData
	}
	c.LastUpdated = s.clock.Now()
	c.Metadata.MessageCount++
}
