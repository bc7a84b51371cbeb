package arena

import (
	"github.com/goblingibber/arena/src/domain/duel"
	"github.com/goblingibber/arena/src/domain/shared"
)

// Event is the outbound envelope delivered to a single connection.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

const (
	EventWaiting       = "waiting"
	EventSessionStart  = "session-start"
	EventSessionUpdate = "session-update"
	EventSessionEnd    = "session-end"
	EventError         = "error"
)

// EventSink delivers outbound events to connected participants. The gateway
// implements it; every payload handed over is a copy, never a live view.
type EventSink interface {
	Send(id shared.ConnectionID, event Event)
}

// Target values address the recipient's perspective in session-update events.
const (
	TargetPlayer   = "player"
	TargetOpponent = "opponent"
)

type WaitingPayload struct {
	Message string `json:"message"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type StatusSnapshot struct {
	Kind     string `json:"kind"`
	Duration int    `json:"duration"`
}

type ParticipantSnapshot struct {
	ID      string         `json:"id"`
	Loadout duel.Loadout   `json:"loadout"`
	HP      int            `json:"hp"`
	Status  StatusSnapshot `json:"status"`
}

type LogEntrySnapshot struct {
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// CooldownSnapshot maps side -> attack kind -> remaining seconds.
type CooldownSnapshot map[string]map[string]float64

type SessionStartPayload struct {
	RoomID  string              `json:"roomId"`
	Player1 ParticipantSnapshot `json:"player1"`
	Player2 ParticipantSnapshot `json:"player2"`
	Log     []LogEntrySnapshot  `json:"log"`
}

type SessionUpdatePayload struct {
	Player1      ParticipantSnapshot `json:"player1"`
	Player2      ParticipantSnapshot `json:"player2"`
	Log          []LogEntrySnapshot  `json:"log"`
	Cooldowns    CooldownSnapshot    `json:"cooldowns"`
	AttackEffect string              `json:"attackEffect"`
	StatusEffect string              `json:"statusEffect"`
	Target       string              `json:"target"`
	TimingWindow bool                `json:"timingWindow"`
}

type SessionEndPayload struct {
	Result  string              `json:"result"`
	Player1 ParticipantSnapshot `json:"player1"`
	Player2 ParticipantSnapshot `json:"player2"`
	Log     []LogEntrySnapshot  `json:"log"`
}

func snapshotParticipant(p *duel.Participant) ParticipantSnapshot {
	return ParticipantSnapshot{
		ID:      string(p.ID),
		Loadout: p.Loadout,
		HP:      p.HP,
		Status: StatusSnapshot{
			Kind:     string(p.Status.Kind),
			Duration: p.Status.Duration,
		},
	}
}

func snapshotLog(entries []duel.LogEntry) []LogEntrySnapshot {
	out := make([]LogEntrySnapshot, len(entries))
	for i, e := range entries {
		out[i] = LogEntrySnapshot{Message: e.Message, Timestamp: e.Timestamp.UnixMilli()}
	}
	return out
}

func snapshotCooldowns(s *duel.Session) CooldownSnapshot {
	out := make(CooldownSnapshot, 2)
	for side, table := range s.Cooldowns {
		kinds := make(map[string]float64, len(table))
		for kind, remaining := range table {
			kinds[string(kind)] = remaining
		}
		out[string(side)] = kinds
	}
	return out
}
