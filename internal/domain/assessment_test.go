package domain

import (
	"errors"
	"testing"
)

func fullItems() []CriterionAssessment {
	return []CriterionAssessment{
		{Criterion: CriterionRange, Level: LevelB2},
		{Criterion: CriterionAccuracy, Level: LevelB1},
		{Criterion: CriterionFluency, Level: LevelB2},
		{Criterion: CriterionInteraction, Level: LevelB2},
		{Criterion: CriterionCoherence, Level: LevelB1},
	}
}

func TestNewSpeakingAssessment_Valid(t *testing.T) {
	a, err := NewSpeakingAssessment(fullItems()...)
	if err != nil {
		t.Fatalf("NewSpeakingAssessment() error = %v", err)
	}
	if got := a.Level(CriterionAccuracy); got != LevelB1 {
		t.Errorf("Level(accuracy) = %s; want B1", got)
	}
	if a.Min() != LevelB1 || a.Max() != LevelB2 {
		t.Errorf("Min/Max = %s/%s; want B1/B2", a.Min(), a.Max())
	}

	items := a.Items()
	for i, c := range Criteria() {
		if items[i].Criterion != c {
			t.Errorf("Items()[%d] = %s; want %s", i, items[i].Criterion, c)
		}
	}
}

func TestNewSpeakingAssessment_OrderIndependent(t *testing.T) {
	items := fullItems()
	reversed := make([]CriterionAssessment, len(items))
	for i, item := range items {
		reversed[len(items)-1-i] = item
	}

	a, err := NewSpeakingAssessment(items...)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewSpeakingAssessment(reversed...)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("assessments differ by input order: %v vs %v", a.Items(), b.Items())
	}
}

func TestNewSpeakingAssessment_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func([]CriterionAssessment) []CriterionAssessment
		wantErr error
	}{
		{
			name: "missing criterion",
			mutate: func(items []CriterionAssessment) []CriterionAssessment {
				return items[:4]
			},
			wantErr: ErrMissingCriterion,
		},
		{
			name: "duplicate criterion",
			mutate: func(items []CriterionAssessment) []CriterionAssessment {
				return append(items, CriterionAssessment{Criterion: CriterionFluency, Level: LevelC1})
			},
			wantErr: ErrDuplicateCriterion,
		},
		{
			name: "unknown criterion",
			mutate: func(items []CriterionAssessment) []CriterionAssessment {
				items[0].Criterion = "pronunciation"
				return items
			},
			wantErr: ErrUnknownCriterion,
		},
		{
			name: "invalid level",
			mutate: func(items []CriterionAssessment) []CriterionAssessment {
				items[2].Level = "B3"
				return items
			},
			wantErr: ErrInvalidLevel,
		},
		{
			name: "empty level",
			mutate: func(items []CriterionAssessment) []CriterionAssessment {
				items[4].Level = ""
				return items
			},
			wantErr: ErrInvalidLevel,
		},
		{
			name: "no items",
			mutate: func([]CriterionAssessment) []CriterionAssessment {
				return nil
			},
			wantErr: ErrMissingCriterion,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSpeakingAssessment(tt.mutate(fullItems())...)
			if !errors.Is(err, ErrInvalidAssessment) {
				t.Errorf("error = %v; want ErrInvalidAssessment", err)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v; want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAssessmentFromMap(t *testing.T) {
	a, err := AssessmentFromMap(map[Criterion]Level{
		CriterionRange:       LevelC1,
		CriterionAccuracy:    LevelC1,
		CriterionFluency:     LevelC1Plus,
		CriterionInteraction: LevelC1,
		CriterionCoherence:   LevelC1,
	})
	if err != nil {
		t.Fatalf("AssessmentFromMap() error = %v", err)
	}
	if got := a.Level(CriterionFluency); got != LevelC1Plus {
		t.Errorf("Level(fluency) = %s; want C1+", got)
	}

	_, err = AssessmentFromMap(map[Criterion]Level{CriterionRange: LevelA1})
	if !errors.Is(err, ErrMissingCriterion) {
		t.Errorf("partial map error = %v; want ErrMissingCriterion", err)
	}
}

func TestParseCriterion(t *testing.T) {
	c, err := ParseCriterion(" Fluency ")
	if err != nil || c != CriterionFluency {
		t.Errorf("ParseCriterion(Fluency) = %s, %v", c, err)
	}
	if _, err := ParseCriterion("grammar"); !errors.Is(err, ErrUnknownCriterion) {
		t.Errorf("ParseCriterion(grammar) error = %v; want ErrUnknownCriterion", err)
	}
}
