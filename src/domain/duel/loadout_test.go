package duel_test

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/goblingibber/arena/src/domain/duel"
)

func validLoadout() duel.Loadout {
	return duel.Loadout{
		ID:        "loadout-1",
		Gibberish: "blargh snorf glibble",
		AudioURL:  "https://cdn.example.com/a.mp3",
		ImageURL:  "https://cdn.example.com/a.png",
		Stats:     duel.Stats{Cringe: 70, Chaos: 85, IQ: 60},
		Timestamp: 1700000000000,
	}
}

func TestLoadoutValidate(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*duel.Loadout)
		wantFields []string
	}{
		{
			name:   "valid loadout passes",
			mutate: func(l *duel.Loadout) {},
		},
		{
			name:   "zero stats are valid",
			mutate: func(l *duel.Loadout) { l.Stats = duel.Stats{} },
		},
		{
			name:       "blank id",
			mutate:     func(l *duel.Loadout) { l.ID = "  " },
			wantFields: []string{"id"},
		},
		{
			name:       "missing gibberish",
			mutate:     func(l *duel.Loadout) { l.Gibberish = "" },
			wantFields: []string{"gibberish"},
		},
		{
			name:       "negative stat",
			mutate:     func(l *duel.Loadout) { l.Stats.Chaos = -1 },
			wantFields: []string{"stats.chaos"},
		},
		{
			name:       "non-finite stat",
			mutate:     func(l *duel.Loadout) { l.Stats.IQ = math.NaN() },
			wantFields: []string{"stats.iq"},
		},
		{
			name:       "zero timestamp",
			mutate:     func(l *duel.Loadout) { l.Timestamp = 0 },
			wantFields: []string{"timestamp"},
		},
		{
			name: "every problem reported at once",
			mutate: func(l *duel.Loadout) {
				l.AudioURL = ""
				l.ImageURL = ""
				l.Stats.Cringe = math.Inf(1)
			},
			wantFields: []string{"audioUrl", "imageUrl", "stats.cringe"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loadout := validLoadout()
			tt.mutate(&loadout)

			err := loadout.Validate()
			if len(tt.wantFields) == 0 {
				if err != nil {
					t.Fatalf("expected valid loadout, got %v", err)
				}
				return
			}

			var vErr *duel.ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			if !reflect.DeepEqual(vErr.Fields, tt.wantFields) {
				t.Errorf("fields = %v, want %v", vErr.Fields, tt.wantFields)
			}
		})
	}
}

func TestStatsForKind(t *testing.T) {
	stats := duel.Stats{Cringe: 1, Chaos: 2, IQ: 3}

	tests := []struct {
		kind duel.AttackKind
		want float64
	}{
		{duel.AttackCringe, 1},
		{duel.AttackChaos, 2},
		{duel.AttackIQ, 3},
		{duel.AttackKind("bogus"), 0},
	}
	for _, tt := range tests {
		if got := stats.ForKind(tt.kind); got != tt.want {
			t.Errorf("ForKind(%q) = %v, want %v", tt.kind, got, tt.want)
		}
	}
}
