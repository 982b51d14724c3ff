package store

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Store is the single writer of State. Dispatch calls are serialized and
// each call applies its actions atomically.
type Store struct {
	mu     sync.Mutex
	state  State
	seq    uint64
	subs   map[int]chan State
	nextID int
	logger *zap.Logger
}

func New(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Store{
		subs:   make(map[int]chan State),
		logger: logger,
	}
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

func (s *Store) Epoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state.Epoch
}

// NextSeq hands out snapshot sequence numbers. Take one before issuing the
// request whose response carries the snapshot.
func (s *Store) NextSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	return s.seq
}

func (s *Store) Dispatch(actions ...Action) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.applyLocked(actions)
}

// DispatchAt applies actions only while the session epoch is still epoch.
// It reports whether they were applied.
func (s *Store) DispatchAt(epoch uint64, actions ...Action) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Epoch != epoch {
		s.logger.Debug("dropping actions from a previous session",
			zap.Uint64("epoch", epoch),
			zap.Uint64("current_epoch", s.state.Epoch),
			zap.Int("actions", len(actions)),
		)
		return false
	}

	s.applyLocked(actions)
	return true
}

// Subscribe returns a channel carrying the latest state after every
// dispatch. Slow readers only ever see the newest snapshot. The returned
// func unsubscribes and closes the channel.
func (s *Store) Subscribe() (<-chan State, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan State, 1)
	ch <- s.state
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()

			delete(s.subs, id)
			close(ch)
		})
	}
}

func (s *Store) applyLocked(actions []Action) {
	if len(actions) == 0 {
		return
	}

	next := s.state
	for _, action := range actions {
		if _, ok := action.(LoadingStop); ok && next.LoadingCount == 0 {
			s.logger.Error("loading stop without matching start")
		}
		next = Reduce(next, action)
		s.logger.Debug("dispatch", zap.String("action", actionName(action)))
	}
	s.state = next

	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- next:
		default:
		}
	}
}

func actionName(action Action) string {
	return fmt.Sprintf("%T", action)
}
