package domain

import (
	"math"
	"testing"
)

func mustAssessment(t *testing.T, rng, acc, flu, inter, coh Level) SpeakingAssessment {
	t.Helper()
	a, err := NewSpeakingAssessment(
		CriterionAssessment{Criterion: CriterionRange, Level: rng},
		CriterionAssessment{Criterion: CriterionAccuracy, Level: acc},
		CriterionAssessment{Criterion: CriterionFluency, Level: flu},
		CriterionAssessment{Criterion: CriterionInteraction, Level: inter},
		CriterionAssessment{Criterion: CriterionCoherence, Level: coh},
	)
	if err != nil {
		t.Fatalf("NewSpeakingAssessment() error = %v", err)
	}
	return a
}

func TestAggregate_Scenarios(t *testing.T) {
	tests := []struct {
		name                      string
		rng, acc, flu, inter, coh Level
		want                      Level
		wantRank                  float64
	}{
		{"mixed B1 and B2", LevelB2, LevelB1, LevelB2, LevelB2, LevelB1, LevelB1Plus, 20.0 / 5.5},
		{"all A1", LevelA1, LevelA1, LevelA1, LevelA1, LevelA1, LevelA1, 1.0},
		{"all C2", LevelC2, LevelC2, LevelC2, LevelC2, LevelC2, LevelC2, 6.0},
		{"wide spread", LevelC1, LevelA2, LevelB2, LevelB1, LevelA2, LevelB1Plus, 18.1 / 5.5},
		{"weighted criteria pull up", LevelC1, LevelB2, LevelC1, LevelC1, LevelB2, LevelB2Plus, 25.5 / 5.5},
	}

	agg := NewLevelAggregator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := mustAssessment(t, tt.rng, tt.acc, tt.flu, tt.inter, tt.coh)
			if got := agg.Aggregate(a); got != tt.want {
				t.Errorf("Aggregate() = %s; want %s", got, tt.want)
			}
			if got := agg.WeightedRank(a); math.Abs(got-tt.wantRank) > 1e-9 {
				t.Errorf("WeightedRank() = %v; want %v", got, tt.wantRank)
			}
		})
	}
}

func TestAggregate_UniformIdentity(t *testing.T) {
	for _, l := range Levels() {
		a, err := UniformAssessment(l)
		if err != nil {
			t.Fatalf("UniformAssessment(%s) error = %v", l, err)
		}
		if got := Aggregate(a); got != l {
			t.Errorf("Aggregate(uniform %s) = %s; want %s", l, got, l)
		}
	}
}

func TestAggregate_Bounded(t *testing.T) {
	all := Levels()
	// Walk a deterministic sample of combinations using strides that are
	// coprime with the scale length.
	for i := 0; i < 500; i++ {
		a := mustAssessment(t,
			all[i%len(all)],
			all[(i*3+1)%len(all)],
			all[(i*5+2)%len(all)],
			all[(i*7+3)%len(all)],
			all[(i*9+4)%len(all)],
		)
		got := Aggregate(a)
		if got.Compare(a.Min()) < 0 || got.Compare(a.Max()) > 0 {
			t.Errorf("Aggregate() = %s outside [%s, %s] for %v", got, a.Min(), a.Max(), a.Items())
		}
	}
}

func TestAggregate_Monotonic(t *testing.T) {
	base := mustAssessment(t, LevelB1, LevelB1, LevelB1, LevelB1, LevelB1)
	before := Aggregate(base)

	for _, c := range Criteria() {
		m := base.Items()
		for i := range m {
			if m[i].Criterion == c {
				m[i].Level = LevelC2
			}
		}
		raised, err := NewSpeakingAssessment(m...)
		if err != nil {
			t.Fatalf("NewSpeakingAssessment() error = %v", err)
		}
		if got := Aggregate(raised); got.Compare(before) < 0 {
			t.Errorf("raising %s lowered the aggregate: %s < %s", c, got, before)
		}
	}
}

func TestAggregate_Deterministic(t *testing.T) {
	a := mustAssessment(t, LevelB2, LevelB1, LevelB2, LevelB2, LevelB1)
	first := Aggregate(a)
	for i := 0; i < 10; i++ {
		if got := Aggregate(a); got != first {
			t.Fatalf("Aggregate() = %s on call %d; want %s", got, i, first)
		}
	}
}

func TestTotalWeight(t *testing.T) {
	var sum float64
	for _, c := range Criteria() {
		sum += c.Weight()
	}
	if math.Abs(sum-TotalWeight) > 1e-9 {
		t.Errorf("sum of weights = %v; want %v", sum, TotalWeight)
	}
}
