package duel

import (
	"time"

	"github.com/goblingibber/arena/src/domain/shared"
)

// MaxHP is the starting and maximum hit-point total for every participant.
const MaxHP = 100

// StatusTickEvery is the interval between status-effect applications.
const StatusTickEvery = time.Second

// StatusKind identifies a time-limited participant modifier.
type StatusKind string

const (
	StatusNone     StatusKind = ""
	StatusPoison   StatusKind = "poison"
	StatusWeakness StatusKind = "weakness"
)

// Status tracks the single effect a participant may carry. Duration counts
// remaining effect ticks; pending accrues scheduler time toward the next tick.
// Invariant: Duration == 0 exactly when Kind == StatusNone.
type Status struct {
	Kind     StatusKind
	Duration int
	pending  time.Duration
}

// Advance accrues tick time and reports whether an effect tick fires.
func (s *Status) Advance(dt time.Duration) bool {
	if s.Kind == StatusNone {
		s.pending = 0
		return false
	}
	s.pending += dt
	if s.pending < StatusTickEvery {
		return false
	}
	s.pending -= StatusTickEvery
	return true
}

// Participant is a queued or in-session player. Owned exclusively by either
// the match queue or one session, never both.
type Participant struct {
	ID         shared.ConnectionID
	Loadout    Loadout
	HP         int
	Status     Status
	LastAction time.Time
}

// NewParticipant creates a fresh participant at full health with no status.
func NewParticipant(id shared.ConnectionID, loadout Loadout, now time.Time) *Participant {
	return &Participant{
		ID:         id,
		Loadout:    loadout,
		HP:         MaxHP,
		LastAction: now,
	}
}

// ApplyDamage subtracts damage, clamping at zero.
func (p *Participant) ApplyDamage(damage int) {
	if damage < 0 {
		damage = 0
	}
	p.HP -= damage
	if p.HP < 0 {
		p.HP = 0
	}
}

// Afflict replaces any current status effect with a new one. Effects never stack.
func (p *Participant) Afflict(kind StatusKind, duration int) {
	if kind == StatusNone || duration <= 0 {
		p.ClearStatus()
		return
	}
	p.Status = Status{Kind: kind, Duration: duration}
}

// ClearStatus resets the participant to no effect.
func (p *Participant) ClearStatus() {
	p.Status = Status{}
}

// Fainted reports whether the participant is at zero hit points.
func (p *Participant) Fainted() bool {
	return p.HP <= 0
}
