package duel

import (
	"fmt"
	"time"

	"github.com/goblingibber/arena/src/domain/shared"
)

// State represents the lifecycle state of a battle session.
type State string

const (
	StateActive State = "active"
	StateEnded  State = "ended"
)

// Side addresses one of the two fixed participant slots.
type Side string

const (
	SidePlayer1 Side = "player1"
	SidePlayer2 Side = "player2"
)

// Opponent returns the other side.
func (s Side) Opponent() Side {
	if s == SidePlayer1 {
		return SidePlayer2
	}
	return SidePlayer1
}

// Label returns the human-readable name used in battle log entries.
func (s Side) Label() string {
	if s == SidePlayer1 {
		return "Player 1"
	}
	return "Player 2"
}

// LogEntry is one line of the append-only battle log.
type LogEntry struct {
	Message   string
	Timestamp time.Time
}

// CooldownTable tracks remaining cooldown seconds per attack kind for one side.
type CooldownTable map[AttackKind]float64

func NewCooldownTable() CooldownTable {
	return CooldownTable{AttackChaos: 0, AttackIQ: 0, AttackCringe: 0}
}

// Decay reduces every entry by the elapsed seconds, flooring at zero.
func (t CooldownTable) Decay(seconds float64) {
	for kind, remaining := range t {
		remaining -= seconds
		if remaining < 0 {
			remaining = 0
		}
		t[kind] = remaining
	}
}

// Set stores a new remaining cooldown, never negative.
func (t CooldownTable) Set(kind AttackKind, seconds float64) {
	if seconds < 0 {
		seconds = 0
	}
	t[kind] = seconds
}

// Session aggregate owns two participants and the battle state between them.
// All mutation is serialized by the engine; the aggregate itself holds no lock.
type Session struct {
	RoomID        shared.RoomID
	Player1       *Participant
	Player2       *Participant
	Log           []LogEntry
	Cooldowns     map[Side]CooldownTable
	TimingWindow  bool
	LastAction    time.Time
	LastBroadcast time.Time
	State         State
	Result        string
	CreatedAt     time.Time
}

// NewSession pairs two participants into an active session. The room id is
// derived from the pair of connection ids and is unique for the session's life.
func NewSession(p1, p2 *Participant, now time.Time) *Session {
	s := &Session{
		RoomID:  shared.RoomID(fmt.Sprintf("%s-%s", p1.ID, p2.ID)),
		Player1: p1,
		Player2: p2,
		Cooldowns: map[Side]CooldownTable{
			SidePlayer1: NewCooldownTable(),
			SidePlayer2: NewCooldownTable(),
		},
		LastAction: now,
		State:      StateActive,
		CreatedAt:  now,
	}
	s.AppendLog("Epic battle begins! ⚔️", now)
	return s
}

// IsActive reports whether the session still accepts actions and ticks.
func (s *Session) IsActive() bool {
	return s.State == StateActive
}

// SideOf resolves a connection id to its slot.
func (s *Session) SideOf(id shared.ConnectionID) (Side, bool) {
	switch id {
	case s.Player1.ID:
		return SidePlayer1, true
	case s.Player2.ID:
		return SidePlayer2, true
	}
	return "", false
}

// Participant returns the record occupying a slot.
func (s *Session) Participant(side Side) *Participant {
	if side == SidePlayer1 {
		return s.Player1
	}
	return s.Player2
}

// AppendLog adds one entry to the battle log.
func (s *Session) AppendLog(message string, now time.Time) {
	s.Log = append(s.Log, LogEntry{Message: message, Timestamp: now})
}

// Touch records activity, resetting the inactivity clock.
func (s *Session) Touch(now time.Time) {
	s.LastAction = now
}

// End moves the session to its terminal state. A second call returns
// ErrSessionAlreadyEnded with no further mutation, so termination happens
// exactly once no matter how many conditions trigger in the same tick.
func (s *Session) End(result string, now time.Time) error {
	if s.State == StateEnded {
		return ErrSessionAlreadyEnded
	}
	s.State = StateEnded
	s.Result = result
	s.AppendLog(fmt.Sprintf("Battle ends! %s", result), now)
	return nil
}

// DecayCooldowns advances both cooldown tables by the elapsed seconds.
func (s *Session) DecayCooldowns(seconds float64) {
	s.Cooldowns[SidePlayer1].Decay(seconds)
	s.Cooldowns[SidePlayer2].Decay(seconds)
}

// TickStatus advances one side's status effect by the scheduler delta and
// applies at most one effect tick. It returns the kind that ticked, if any.
func (s *Session) TickStatus(side Side, dt time.Duration, now time.Time) StatusKind {
	p := s.Participant(side)
	if !p.Status.Advance(dt) {
		return StatusNone
	}
	ticked := p.Status.Kind
	switch ticked {
	case StatusPoison:
		p.ApplyDamage(3)
		s.AppendLog(fmt.Sprintf("%s suffers 3 poison damage! 🤢", side.Label()), now)
	case StatusWeakness:
		// No direct damage; the penalty applies to the carrier's own attacks.
	}
	p.Status.Duration--
	if p.Status.Duration <= 0 {
		p.ClearStatus()
		switch ticked {
		case StatusPoison:
			s.AppendLog(fmt.Sprintf("%s recovers from poison!", side.Label()), now)
		case StatusWeakness:
			s.AppendLog(fmt.Sprintf("%s shakes off weakness! 😴", side.Label()), now)
		}
	}
	return ticked
}

// Knockout evaluates the hit-point termination condition.
func (s *Session) Knockout() (string, bool) {
	p1Out, p2Out := s.Player1.Fainted(), s.Player2.Fainted()
	switch {
	case p1Out && p2Out:
		return "draw (both fainted)", true
	case p1Out:
		return "player2 wins", true
	case p2Out:
		return "player1 wins", true
	}
	return "", false
}

// ShouldBroadcast gates tick snapshots to the broadcast throttle.
func (s *Session) ShouldBroadcast(now time.Time, every time.Duration) bool {
	return s.LastBroadcast.IsZero() || now.Sub(s.LastBroadcast) >= every
}

// MarkBroadcast records the last snapshot emission time.
func (s *Session) MarkBroadcast(now time.Time) {
	s.LastBroadcast = now
}
