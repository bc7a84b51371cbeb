package duel

import (
	"fmt"
	"math"
	"strings"
)

// Stats is the offensive stat triple carried by a loadout. Each attack kind
// draws its damage from the matching stat.
type Stats struct {
	Cringe float64 `json:"cringe"`
	Chaos  float64 `json:"chaos"`
	IQ     float64 `json:"iq"`
}

// ForKind returns the stat backing the given attack kind.
func (s Stats) ForKind(kind AttackKind) float64 {
	switch kind {
	case AttackChaos:
		return s.Chaos
	case AttackIQ:
		return s.IQ
	case AttackCringe:
		return s.Cringe
	}
	return 0
}

// Loadout is the participant-supplied combat asset. Immutable once accepted.
type Loadout struct {
	ID        string `json:"id"`
	Gibberish string `json:"gibberish"`
	AudioURL  string `json:"audioUrl"`
	ImageURL  string `json:"imageUrl"`
	Stats     Stats  `json:"stats"`
	Timestamp int64  `json:"timestamp"`
}

// ValidationError reports every missing or invalid loadout field at once.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid loadout: missing or invalid fields: %s", strings.Join(e.Fields, ", "))
}

func validStat(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

// Validate checks the loadout at ingress, collecting every problem rather than
// stopping at the first.
func (l Loadout) Validate() error {
	var fields []string
	if strings.TrimSpace(l.ID) == "" {
		fields = append(fields, "id")
	}
	if strings.TrimSpace(l.Gibberish) == "" {
		fields = append(fields, "gibberish")
	}
	if strings.TrimSpace(l.AudioURL) == "" {
		fields = append(fields, "audioUrl")
	}
	if strings.TrimSpace(l.ImageURL) == "" {
		fields = append(fields, "imageUrl")
	}
	if !validStat(l.Stats.Cringe) {
		fields = append(fields, "stats.cringe")
	}
	if !validStat(l.Stats.Chaos) {
		fields = append(fields, "stats.chaos")
	}
	if !validStat(l.Stats.IQ) {
		fields = append(fields, "stats.iq")
	}
	if l.Timestamp == 0 {
		fields = append(fields, "timestamp")
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
