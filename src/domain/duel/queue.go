package duel

import (
	"time"

	"github.com/goblingibber/arena/src/domain/shared"
)

type queueEntry struct {
	participant *Participant
	enqueuedAt  time.Time
}

// Queue holds participants waiting to be paired, in strict arrival order.
// It is not safe for concurrent use; the engine serializes access.
type Queue struct {
	entries []queueEntry
}

func NewQueue() *Queue {
	return &Queue{}
}

// Enqueue appends a participant. A participant already waiting under the same
// connection id is replaced, not duplicated; the new entry joins the back.
func (q *Queue) Enqueue(p *Participant, now time.Time) {
	q.Remove(p.ID)
	q.entries = append(q.entries, queueEntry{participant: p, enqueuedAt: now})
}

// Remove drops a waiting participant. No-op when the id is not queued.
func (q *Queue) Remove(id shared.ConnectionID) bool {
	for i, e := range q.entries {
		if e.participant.ID == id {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return true
		}
	}
	return false
}

// TakePair pops the two oldest entries when at least two are waiting.
func (q *Queue) TakePair() (*Participant, *Participant, bool) {
	if len(q.entries) < 2 {
		return nil, nil, false
	}
	first, second := q.entries[0].participant, q.entries[1].participant
	q.entries = q.entries[2:]
	return first, second, true
}

// Len returns the number of waiting participants.
func (q *Queue) Len() int {
	return len(q.entries)
}
