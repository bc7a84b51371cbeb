package arena

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/goblingibber/arena/src/domain/duel"
	"github.com/goblingibber/arena/src/domain/shared"
)

// Termination reasons, used for logging and metrics labels.
const (
	ReasonKnockout   = "knockout"
	ReasonDisconnect = "disconnect"
	ReasonTimeout    = "timeout"
)

// Config holds the engine's timing parameters.
type Config struct {
	BroadcastEvery     time.Duration
	InactivityTimeout  time.Duration
	TimingWindowChance float64
}

// DefaultConfig returns the production cadence parameters.
func DefaultConfig() Config {
	return Config{
		BroadcastEvery:     500 * time.Millisecond,
		InactivityTimeout:  2 * time.Minute,
		TimingWindowChance: 0.2,
	}
}

// StatusReport is the payload of the read-only status query.
type StatusReport struct {
	WaitingPlayers int
	ActiveSessions int
}

// Engine coordinates matchmaking and battle sessions. A single mutex
// serializes every mutation — inbound events, scheduler ticks and the
// inactivity sweep — so no two operations touch the same session concurrently
// and a session's termination is atomic with its final broadcast.
type Engine struct {
	mu       sync.Mutex
	queue    *duel.Queue
	sessions duel.Registry
	resolver *duel.Resolver
	dice     duel.Dice
	sink     EventSink
	logger   *zap.Logger
	metrics  *Metrics
	cfg      Config
	Clock    func() time.Time
}

// NewEngine creates the battle engine. The dice source feeds both combat
// resolution and the timing-window roll; seed it for reproducible behavior.
func NewEngine(sessions duel.Registry, sink EventSink, dice duel.Dice, logger *zap.Logger, metrics *Metrics, cfg Config) *Engine {
	return &Engine{
		queue:    duel.NewQueue(),
		sessions: sessions,
		resolver: duel.NewResolver(dice),
		dice:     dice,
		sink:     sink,
		logger:   logger,
		metrics:  metrics,
		cfg:      cfg,
		Clock:    func() time.Time { return time.Now().UTC() },
	}
}

// Join validates a loadout and enqueues the connection. The second waiting
// participant triggers pairing; a lone participant receives a waiting event.
// A connection already queued is replaced, never duplicated.
func (e *Engine) Join(ctx context.Context, conn shared.ConnectionID, loadout duel.Loadout) error {
	if err := conn.Validate(); err != nil {
		return err
	}
	if err := loadout.Validate(); err != nil {
		e.metrics.actionRejected("invalid_loadout")
		e.sink.Send(conn, Event{Type: EventError, Data: ErrorPayload{Message: err.Error()}})
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.Clock()
	e.queue.Enqueue(duel.NewParticipant(conn, loadout, now), now)

	p1, p2, ok := e.queue.TakePair()
	if !ok {
		e.sink.Send(conn, Event{Type: EventWaiting, Data: WaitingPayload{Message: "Waiting for an opponent..."}})
		return nil
	}

	s := duel.NewSession(p1, p2, now)
	if err := e.sessions.Save(ctx, s); err != nil {
		return err
	}
	e.metrics.sessionStarted()
	e.logger.Info("session started",
		zap.String("room_id", string(s.RoomID)),
		zap.String("player1", string(p1.ID)),
		zap.String("player2", string(p2.ID)),
	)

	start := SessionStartPayload{
		RoomID:  string(s.RoomID),
		Player1: snapshotParticipant(s.Player1),
		Player2: snapshotParticipant(s.Player2),
		Log:     snapshotLog(s.Log),
	}
	e.sink.Send(p1.ID, Event{Type: EventSessionStart, Data: start})
	e.sink.Send(p2.ID, Event{Type: EventSessionStart, Data: start})
	return nil
}

// Action resolves one attack against a session and broadcasts the result to
// both participants. Rejections produce an error event and no mutation.
func (e *Engine) Action(ctx context.Context, conn shared.ConnectionID, roomID shared.RoomID, attack string, timingBonus bool) error {
	kind, err := duel.ParseAttackKind(attack)
	if err != nil {
		e.metrics.actionRejected("unknown_kind")
		e.sink.Send(conn, Event{Type: EventError, Data: ErrorPayload{Message: err.Error()}})
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.sessions.Get(ctx, roomID)
	if err != nil {
		e.metrics.actionRejected("not_found")
		e.sink.Send(conn, Event{Type: EventError, Data: ErrorPayload{Message: "Battle not found!"}})
		return duel.ErrSessionNotFound
	}

	now := e.Clock()
	outcome, err := e.resolver.Resolve(s, conn, kind, timingBonus, now)
	if err != nil {
		if errors.Is(err, duel.ErrCooldownActive) {
			e.metrics.actionRejected("cooldown")
			e.sink.Send(conn, Event{Type: EventError, Data: ErrorPayload{Message: "Attack on cooldown!"}})
		} else {
			e.sink.Send(conn, Event{Type: EventError, Data: ErrorPayload{Message: err.Error()}})
		}
		return err
	}
	e.metrics.actionResolved()
	e.logger.Debug("action resolved",
		zap.String("room_id", string(s.RoomID)),
		zap.String("attacker", string(conn)),
		zap.String("kind", string(kind)),
		zap.Int("damage", outcome.Damage),
		zap.Bool("critical", outcome.Critical),
	)

	e.sendActionUpdate(s, outcome)

	if result, over := s.Knockout(); over {
		e.endSessionLocked(ctx, s, result, ReasonKnockout, now)
	}
	return nil
}

// sendActionUpdate emits the immediate post-action snapshot to both sides,
// addressing the target field from each recipient's perspective.
func (e *Engine) sendActionUpdate(s *duel.Session, outcome duel.Outcome) {
	base := SessionUpdatePayload{
		Player1:      snapshotParticipant(s.Player1),
		Player2:      snapshotParticipant(s.Player2),
		Log:          snapshotLog(s.Log),
		Cooldowns:    snapshotCooldowns(s),
		AttackEffect: string(outcome.Kind),
		StatusEffect: string(outcome.Inflicted),
		TimingWindow: s.TimingWindow,
	}
	for _, side := range []duel.Side{duel.SidePlayer1, duel.SidePlayer2} {
		payload := base
		if outcome.Defender == side {
			payload.Target = TargetPlayer
		} else {
			payload.Target = TargetOpponent
		}
		e.sink.Send(s.Participant(side).ID, Event{Type: EventSessionUpdate, Data: payload})
	}
}

// Disconnect removes a queued entry and force-ends any active session
// containing the connection, awarding the remaining side.
func (e *Engine) Disconnect(ctx context.Context, conn shared.ConnectionID) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.queue.Remove(conn) {
		e.logger.Debug("removed queued participant", zap.String("connection", string(conn)))
	}

	sessions, err := e.sessions.List(ctx)
	if err != nil {
		e.logger.Error("session list failed during disconnect", zap.Error(err))
		return
	}
	now := e.Clock()
	for _, s := range sessions {
		side, ok := s.SideOf(conn)
		if !ok || !s.IsActive() {
			continue
		}
		result := fmt.Sprintf("%s wins by disconnect", side.Opponent())
		e.endSessionLocked(ctx, s, result, ReasonDisconnect, now)
	}
}

// Status reports queue length and active-session count without mutation.
func (e *Engine) Status(ctx context.Context) StatusReport {
	e.mu.Lock()
	defer e.mu.Unlock()

	sessions, err := e.sessions.List(ctx)
	if err != nil {
		e.logger.Error("session list failed during status query", zap.Error(err))
	}
	return StatusReport{
		WaitingPlayers: e.queue.Len(),
		ActiveSessions: len(sessions),
	}
}

// TickAll advances every active session by one scheduler tick: cooldown decay,
// status-effect ticking, timing-window re-roll, termination check and the
// throttled snapshot broadcast.
func (e *Engine) TickAll(ctx context.Context, now time.Time, dt time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sessions, err := e.sessions.List(ctx)
	if err != nil {
		e.logger.Error("session list failed during tick", zap.Error(err))
		return
	}
	for _, s := range sessions {
		if !s.IsActive() {
			continue
		}
		s.DecayCooldowns(dt.Seconds())
		tick1 := s.TickStatus(duel.SidePlayer1, dt, now)
		tick2 := s.TickStatus(duel.SidePlayer2, dt, now)
		s.TimingWindow = e.dice.Float64() < e.cfg.TimingWindowChance

		if result, over := s.Knockout(); over {
			e.endSessionLocked(ctx, s, result, ReasonKnockout, now)
			continue
		}

		if s.ShouldBroadcast(now, e.cfg.BroadcastEvery) {
			e.sendTickUpdate(s, tick1, tick2)
			s.MarkBroadcast(now)
		}
	}
}

// sendTickUpdate emits the periodic snapshot, reporting whichever status
// effect ticked this cycle relative to each recipient.
func (e *Engine) sendTickUpdate(s *duel.Session, tick1, tick2 duel.StatusKind) {
	base := SessionUpdatePayload{
		Player1:      snapshotParticipant(s.Player1),
		Player2:      snapshotParticipant(s.Player2),
		Log:          snapshotLog(s.Log),
		Cooldowns:    snapshotCooldowns(s),
		TimingWindow: s.TimingWindow,
	}
	ticks := map[duel.Side]duel.StatusKind{
		duel.SidePlayer1: tick1,
		duel.SidePlayer2: tick2,
	}
	for _, side := range []duel.Side{duel.SidePlayer1, duel.SidePlayer2} {
		payload := base
		if opp := ticks[side.Opponent()]; opp != duel.StatusNone {
			payload.StatusEffect = string(opp)
			payload.Target = TargetOpponent
		} else if own := ticks[side]; own != duel.StatusNone {
			payload.StatusEffect = string(own)
			payload.Target = TargetPlayer
		}
		e.sink.Send(s.Participant(side).ID, Event{Type: EventSessionUpdate, Data: payload})
	}
}

// SweepInactive force-ends every active session whose last resolved action is
// older than the inactivity threshold.
func (e *Engine) SweepInactive(ctx context.Context, now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sessions, err := e.sessions.List(ctx)
	if err != nil {
		e.logger.Error("session list failed during sweep", zap.Error(err))
		return
	}
	for _, s := range sessions {
		if !s.IsActive() {
			continue
		}
		if now.Sub(s.LastAction) > e.cfg.InactivityTimeout {
			e.endSessionLocked(ctx, s, "draw (timeout)", ReasonTimeout, now)
		}
	}
}

// endSessionLocked performs the single Active→Ended transition: final log
// entry, one session-end event to each side, removal from the registry. The
// End guard makes a second invocation a no-op, so KO, disconnect and timeout
// racing in the same tick still produce exactly one end event.
func (e *Engine) endSessionLocked(ctx context.Context, s *duel.Session, result, reason string, now time.Time) {
	if err := s.End(result, now); err != nil {
		return
	}
	payload := SessionEndPayload{
		Result:  result,
		Player1: snapshotParticipant(s.Player1),
		Player2: snapshotParticipant(s.Player2),
		Log:     snapshotLog(s.Log),
	}
	e.sink.Send(s.Player1.ID, Event{Type: EventSessionEnd, Data: payload})
	e.sink.Send(s.Player2.ID, Event{Type: EventSessionEnd, Data: payload})
	if err := e.sessions.Delete(ctx, s.RoomID); err != nil {
		e.logger.Error("session delete failed", zap.String("room_id", string(s.RoomID)), zap.Error(err))
	}
	e.metrics.sessionEnded(reason)
	e.logger.Info("session ended",
		zap.String("room_id", string(s.RoomID)),
		zap.String("result", result),
		zap.String("reason", reason),
	)
}
