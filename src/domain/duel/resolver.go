package duel

import (
	"fmt"
	"math"
	"time"

	"github.com/goblingibber/arena/src/domain/shared"
)

// AttackKind identifies one of the three attack moves.
type AttackKind string

const (
	AttackChaos  AttackKind = "chaos"
	AttackIQ     AttackKind = "iq"
	AttackCringe AttackKind = "cringe"
)

// AttackKinds lists every valid attack kind.
var AttackKinds = []AttackKind{AttackChaos, AttackIQ, AttackCringe}

// ParseAttackKind validates a wire-level attack kind string.
func ParseAttackKind(raw string) (AttackKind, error) {
	switch AttackKind(raw) {
	case AttackChaos, AttackIQ, AttackCringe:
		return AttackKind(raw), nil
	}
	return "", ErrUnknownAttackKind
}

// Dice is the injected randomness source. math/rand.Rand satisfies it; tests
// substitute a scripted implementation.
type Dice interface {
	Float64() float64
}

// ResolverConfig holds the tunable combat parameters.
type ResolverConfig struct {
	BaseCooldowns    map[AttackKind]float64
	CritChance       float64
	CritMultiplier   float64
	TimingMultiplier float64
	PoisonChance     float64
	PoisonDuration   int
	WeaknessChance   float64
	WeaknessDuration int
	WeaknessPenalty  float64
}

// DefaultResolverConfig returns the production parameter set.
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		BaseCooldowns: map[AttackKind]float64{
			AttackChaos:  3,
			AttackIQ:     5,
			AttackCringe: 4,
		},
		CritChance:       0.15,
		CritMultiplier:   2,
		TimingMultiplier: 1.5,
		PoisonChance:     0.3,
		PoisonDuration:   2,
		WeaknessChance:   0.2,
		WeaknessDuration: 1,
		WeaknessPenalty:  0.7,
	}
}

// Outcome describes a resolved action, used to build the broadcast payload.
type Outcome struct {
	Attacker  Side
	Defender  Side
	Kind      AttackKind
	Damage    int
	Critical  bool
	Inflicted StatusKind
}

// Resolver turns an attack request into damage, status and cooldown deltas.
type Resolver struct {
	dice Dice
	cfg  ResolverConfig
}

func NewResolver(dice Dice) *Resolver {
	return NewResolverWithConfig(dice, DefaultResolverConfig())
}

func NewResolverWithConfig(dice Dice, cfg ResolverConfig) *Resolver {
	return &Resolver{dice: dice, cfg: cfg}
}

// Resolve applies one attack against a session. On rejection (ended session,
// unknown connection, active cooldown) the session is left untouched.
// Dice rolls are consumed in a fixed order: crit, damage variance, status.
func (r *Resolver) Resolve(s *Session, actor shared.ConnectionID, kind AttackKind, timingBonus bool, now time.Time) (Outcome, error) {
	if !s.IsActive() {
		return Outcome{}, ErrSessionAlreadyEnded
	}
	attackerSide, ok := s.SideOf(actor)
	if !ok {
		return Outcome{}, ErrNotParticipant
	}
	if s.Cooldowns[attackerSide][kind] > 0 {
		return Outcome{}, ErrCooldownActive
	}

	defenderSide := attackerSide.Opponent()
	attacker := s.Participant(attackerSide)
	defender := s.Participant(defenderSide)
	stat := attacker.Loadout.Stats.ForKind(kind)

	timingMultiplier := 1.0
	if timingBonus {
		timingMultiplier = r.cfg.TimingMultiplier
	}
	critical := r.dice.Float64() < r.cfg.CritChance
	critMultiplier := 1.0
	if critical {
		critMultiplier = r.cfg.CritMultiplier
	}

	suffix := ""
	if critical {
		suffix += " Critical!"
	}
	if timingBonus {
		suffix += " Perfect Timing!"
	}

	var damage int
	inflicted := StatusNone
	switch kind {
	case AttackChaos:
		variance := 0.4 + 0.2*r.dice.Float64()
		damage = int(math.Round(stat * variance * critMultiplier * timingMultiplier))
		s.AppendLog(fmt.Sprintf("%s unleashes CHAOS BLAST! 💥%s", attackerSide.Label(), suffix), now)
		if r.dice.Float64() < r.cfg.PoisonChance*timingMultiplier {
			defender.Afflict(StatusPoison, r.cfg.PoisonDuration)
			s.AppendLog(fmt.Sprintf("%s is poisoned! 🤢", defenderSide.Label()), now)
			inflicted = StatusPoison
		}
	case AttackIQ:
		damage = int(math.Round(stat * 0.3 * critMultiplier * timingMultiplier))
		blocked := int(math.Round(stat * 0.15))
		s.AppendLog(fmt.Sprintf("%s raises IQ SHIELD! 🛡️%s", attackerSide.Label(), suffix), now)
		s.AppendLog(fmt.Sprintf("%s blocks %d damage!", attackerSide.Label(), blocked), now)
	case AttackCringe:
		variance := 0.6 + 0.15*r.dice.Float64()
		damage = int(math.Round(stat * variance * critMultiplier * timingMultiplier))
		s.AppendLog(fmt.Sprintf("%s emits CRINGE WAVE! 😆%s", attackerSide.Label(), suffix), now)
		if r.dice.Float64() < r.cfg.WeaknessChance*timingMultiplier {
			defender.Afflict(StatusWeakness, r.cfg.WeaknessDuration)
			s.AppendLog(fmt.Sprintf("%s is weakened! 😖", defenderSide.Label()), now)
			inflicted = StatusWeakness
		}
	default:
		return Outcome{}, ErrUnknownAttackKind
	}

	if attacker.Status.Kind == StatusWeakness {
		damage = int(math.Round(float64(damage) * r.cfg.WeaknessPenalty))
		s.AppendLog(fmt.Sprintf("%s's attack is weakened! 😴", attackerSide.Label()), now)
	}

	defender.ApplyDamage(damage)
	s.AppendLog(fmt.Sprintf("%s takes %d damage! 💥", defenderSide.Label(), damage), now)

	// Stats of 200 or more reduce the cooldown all the way to zero.
	scale := 1 - stat/200
	if scale < 0 {
		scale = 0
	}
	s.Cooldowns[attackerSide].Set(kind, r.cfg.BaseCooldowns[kind]*scale)

	attacker.LastAction = now
	s.Touch(now)

	return Outcome{
		Attacker:  attackerSide,
		Defender:  defenderSide,
		Kind:      kind,
		Damage:    damage,
		Critical:  critical,
		Inflicted: inflicted,
	}, nil
}
