package reconcile

import (
	"sync"

	"github.com/bnema/lobbyopoly-cli/internal/domain"
)

// Ledger records which events have reached the store. Both strategies
// consult it, so "have I seen event X" has one answer.
type Ledger struct {
	mu   sync.Mutex
	seen map[domain.ObjectID]struct{}
}

func NewLedger() *Ledger {
	return &Ledger{seen: make(map[domain.ObjectID]struct{})}
}

// Fresh returns the events not recorded yet, in input order, and records
// them. Events without an id cannot be deduplicated and always pass.
func (l *Ledger) Fresh(events []domain.Event) []domain.Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	fresh := make([]domain.Event, 0, len(events))
	for _, event := range events {
		if event.ID == "" {
			fresh = append(fresh, event)
			continue
		}
		if _, ok := l.seen[event.ID]; ok {
			continue
		}
		l.seen[event.ID] = struct{}{}
		fresh = append(fresh, event)
	}
	return fresh
}

// Replace makes events the complete record.
func (l *Ledger) Replace(events []domain.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.seen = make(map[domain.ObjectID]struct{}, len(events))
	for _, event := range events {
		if event.ID != "" {
			l.seen[event.ID] = struct{}{}
		}
	}
}

func (l *Ledger) Reset() {
	l.Replace(nil)
}
