package duel_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/goblingibber/arena/src/domain/duel"
)

func newActiveSession(now time.Time) *duel.Session {
	p1 := duel.NewParticipant("conn-1", validLoadout(), now)
	p2 := duel.NewParticipant("conn-2", validLoadout(), now)
	return duel.NewSession(p1, p2, now)
}

func hasLogMessage(s *duel.Session, message string) bool {
	for _, entry := range s.Log {
		if strings.Contains(entry.Message, message) {
			return true
		}
	}
	return false
}

func TestNewSession(t *testing.T) {
	now := time.Now()
	s := newActiveSession(now)

	if s.RoomID != "conn-1-conn-2" {
		t.Errorf("RoomID = %s, want conn-1-conn-2", s.RoomID)
	}
	if !s.IsActive() {
		t.Error("expected new session to be active")
	}
	if s.Player1.HP != duel.MaxHP || s.Player2.HP != duel.MaxHP {
		t.Errorf("hp = (%d, %d), want both %d", s.Player1.HP, s.Player2.HP, duel.MaxHP)
	}
	if !hasLogMessage(s, "Epic battle begins!") {
		t.Error("expected opening log entry")
	}
	for _, side := range []duel.Side{duel.SidePlayer1, duel.SidePlayer2} {
		for _, kind := range duel.AttackKinds {
			if got := s.Cooldowns[side][kind]; got != 0 {
				t.Errorf("cooldown[%s][%s] = %v, want 0", side, kind, got)
			}
		}
	}
}

func TestSessionSideOf(t *testing.T) {
	s := newActiveSession(time.Now())

	if side, ok := s.SideOf("conn-1"); !ok || side != duel.SidePlayer1 {
		t.Errorf("SideOf(conn-1) = (%s, %v), want (player1, true)", side, ok)
	}
	if side, ok := s.SideOf("conn-2"); !ok || side != duel.SidePlayer2 {
		t.Errorf("SideOf(conn-2) = (%s, %v), want (player2, true)", side, ok)
	}
	if _, ok := s.SideOf("stranger"); ok {
		t.Error("expected unknown connection to resolve to no side")
	}
}

func TestSessionEndHappensExactlyOnce(t *testing.T) {
	now := time.Now()
	s := newActiveSession(now)

	if err := s.End("player1 wins", now); err != nil {
		t.Fatalf("first End returned %v", err)
	}
	if s.IsActive() {
		t.Error("expected ended session to be inactive")
	}
	if s.Result != "player1 wins" {
		t.Errorf("Result = %q, want %q", s.Result, "player1 wins")
	}
	if !hasLogMessage(s, "Battle ends! player1 wins") {
		t.Error("expected final log entry")
	}

	logLen := len(s.Log)
	err := s.End("draw (timeout)", now.Add(time.Second))
	if !errors.Is(err, duel.ErrSessionAlreadyEnded) {
		t.Fatalf("second End returned %v, want ErrSessionAlreadyEnded", err)
	}
	if s.Result != "player1 wins" {
		t.Errorf("Result overwritten to %q", s.Result)
	}
	if len(s.Log) != logLen {
		t.Error("second End appended to the log")
	}
}

func TestSessionKnockout(t *testing.T) {
	tests := []struct {
		name       string
		hp1, hp2   int
		wantResult string
		wantOver   bool
	}{
		{"both standing", 50, 50, "", false},
		{"player1 fainted", 0, 10, "player2 wins", true},
		{"player2 fainted", 10, 0, "player1 wins", true},
		{"both fainted", 0, 0, "draw (both fainted)", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newActiveSession(time.Now())
			s.Player1.HP = tt.hp1
			s.Player2.HP = tt.hp2

			result, over := s.Knockout()
			if over != tt.wantOver || result != tt.wantResult {
				t.Errorf("Knockout() = (%q, %v), want (%q, %v)", result, over, tt.wantResult, tt.wantOver)
			}
		})
	}
}

func TestCooldownDecayFloorsAtZero(t *testing.T) {
	s := newActiveSession(time.Now())
	s.Cooldowns[duel.SidePlayer1].Set(duel.AttackChaos, 1.5)

	s.DecayCooldowns(1)
	if got := s.Cooldowns[duel.SidePlayer1][duel.AttackChaos]; got != 0.5 {
		t.Errorf("cooldown after first decay = %v, want 0.5", got)
	}

	s.DecayCooldowns(1)
	if got := s.Cooldowns[duel.SidePlayer1][duel.AttackChaos]; got != 0 {
		t.Errorf("cooldown after second decay = %v, want 0", got)
	}
}

func TestCooldownSetClampsNegative(t *testing.T) {
	table := duel.NewCooldownTable()
	table.Set(duel.AttackIQ, -2)
	if got := table[duel.AttackIQ]; got != 0 {
		t.Errorf("cooldown = %v, want 0", got)
	}
}

func TestTickStatusPoisonRunsItsCourse(t *testing.T) {
	now := time.Now()
	s := newActiveSession(now)
	s.Player2.Afflict(duel.StatusPoison, 2)

	if got := s.TickStatus(duel.SidePlayer2, time.Second, now); got != duel.StatusPoison {
		t.Fatalf("first tick = %q, want poison", got)
	}
	if s.Player2.HP != 97 {
		t.Errorf("hp after first tick = %d, want 97", s.Player2.HP)
	}
	if s.Player2.Status.Duration != 1 {
		t.Errorf("duration after first tick = %d, want 1", s.Player2.Status.Duration)
	}

	if got := s.TickStatus(duel.SidePlayer2, time.Second, now.Add(time.Second)); got != duel.StatusPoison {
		t.Fatalf("second tick = %q, want poison", got)
	}
	if s.Player2.HP != 94 {
		t.Errorf("hp after second tick = %d, want 94", s.Player2.HP)
	}
	if s.Player2.Status.Kind != duel.StatusNone {
		t.Errorf("status after expiry = %q, want cleared", s.Player2.Status.Kind)
	}
	if !hasLogMessage(s, "suffers 3 poison damage!") {
		t.Error("expected poison damage log entry")
	}
	if !hasLogMessage(s, "recovers from poison!") {
		t.Error("expected poison recovery log entry")
	}
}

func TestTickStatusAccumulatesShortDeltas(t *testing.T) {
	now := time.Now()
	s := newActiveSession(now)
	s.Player1.Afflict(duel.StatusPoison, 2)

	if got := s.TickStatus(duel.SidePlayer1, 500*time.Millisecond, now); got != duel.StatusNone {
		t.Fatalf("tick at 500ms = %q, want none", got)
	}
	if s.Player1.HP != duel.MaxHP {
		t.Errorf("hp = %d, want %d", s.Player1.HP, duel.MaxHP)
	}

	if got := s.TickStatus(duel.SidePlayer1, 500*time.Millisecond, now); got != duel.StatusPoison {
		t.Fatalf("tick at 1000ms = %q, want poison", got)
	}
	if s.Player1.HP != 97 {
		t.Errorf("hp = %d, want 97", s.Player1.HP)
	}
}

func TestTickStatusWeaknessDealsNoDamage(t *testing.T) {
	now := time.Now()
	s := newActiveSession(now)
	s.Player1.Afflict(duel.StatusWeakness, 1)

	if got := s.TickStatus(duel.SidePlayer1, time.Second, now); got != duel.StatusWeakness {
		t.Fatalf("tick = %q, want weakness", got)
	}
	if s.Player1.HP != duel.MaxHP {
		t.Errorf("hp = %d, want %d", s.Player1.HP, duel.MaxHP)
	}
	if s.Player1.Status.Kind != duel.StatusNone {
		t.Errorf("status = %q, want cleared", s.Player1.Status.Kind)
	}
	if !hasLogMessage(s, "shakes off weakness!") {
		t.Error("expected weakness recovery log entry")
	}
}

func TestAfflictReplacesExistingStatus(t *testing.T) {
	now := time.Now()
	s := newActiveSession(now)
	s.Player2.Afflict(duel.StatusPoison, 2)
	s.Player2.Afflict(duel.StatusWeakness, 1)

	if s.Player2.Status.Kind != duel.StatusWeakness {
		t.Errorf("status = %q, want weakness", s.Player2.Status.Kind)
	}
	if s.Player2.Status.Duration != 1 {
		t.Errorf("duration = %d, want 1", s.Player2.Status.Duration)
	}
}

func TestShouldBroadcast(t *testing.T) {
	now := time.Now()
	s := newActiveSession(now)
	every := 500 * time.Millisecond

	if !s.ShouldBroadcast(now, every) {
		t.Error("expected first broadcast to pass the throttle")
	}
	s.MarkBroadcast(now)
	if s.ShouldBroadcast(now.Add(400*time.Millisecond), every) {
		t.Error("expected broadcast inside the window to be throttled")
	}
	if !s.ShouldBroadcast(now.Add(500*time.Millisecond), every) {
		t.Error("expected broadcast after the window to pass")
	}
}
