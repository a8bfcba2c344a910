package domain

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func TestToRank(t *testing.T) {
	tests := []struct {
		level Level
		want  float64
	}{
		{LevelA1, 1.0},
		{LevelA1Plus, 1.5},
		{LevelA2, 2.0},
		{LevelA2Plus, 2.5},
		{LevelB1, 3.0},
		{LevelB1Plus, 3.5},
		{LevelB2, 4.0},
		{LevelB2Plus, 4.5},
		{LevelC1, 5.0},
		{LevelC1Plus, 5.5},
		{LevelC2, 6.0},
		{Level("D1"), 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			if got := ToRank(tt.level); got != tt.want {
				t.Errorf("ToRank(%s) = %v; want %v", tt.level, got, tt.want)
			}
		})
	}
}

func TestFromRank_RoundTrip(t *testing.T) {
	for _, l := range Levels() {
		if got := FromRank(ToRank(l)); got != l {
			t.Errorf("FromRank(ToRank(%s)) = %s; want %s", l, got, l)
		}
	}
}

func TestToRank_Monotonic(t *testing.T) {
	all := Levels()
	for i := 1; i < len(all); i++ {
		if ToRank(all[i-1]) >= ToRank(all[i]) {
			t.Errorf("ToRank(%s) = %v should be < ToRank(%s) = %v",
				all[i-1], ToRank(all[i-1]), all[i], ToRank(all[i]))
		}
	}
}

func TestFromRank(t *testing.T) {
	tests := []struct {
		name string
		x    float64
		want Level
	}{
		{"below scale", -3, LevelA1},
		{"zero", 0, LevelA1},
		{"exact A1", 1.0, LevelA1},
		{"just above A1 rounds down", 1.2, LevelA1},
		{"tie rounds up", 1.25, LevelA1Plus},
		{"B1+ scenario", 3.636, LevelB1Plus},
		{"tie at B2 boundary", 3.75, LevelB2},
		{"just under tie", 3.7499, LevelB1Plus},
		{"C1+", 5.6, LevelC1Plus},
		{"tie near top", 5.75, LevelC2},
		{"above scale", 9.5, LevelC2},
		{"infinity", math.Inf(1), LevelC2},
		{"negative infinity", math.Inf(-1), LevelA1},
		{"NaN", math.NaN(), LevelA1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FromRank(tt.x); got != tt.want {
				t.Errorf("FromRank(%v) = %s; want %s", tt.x, got, tt.want)
			}
		})
	}
}

func TestRoundHalfStep(t *testing.T) {
	tests := []struct {
		x, want float64
	}{
		{3.636, 3.5},
		{3.75, 4.0},
		{3.74, 3.5},
		{4.25, 4.5},
		{4.24, 4.0},
		{2.0, 2.0},
	}
	for _, tt := range tests {
		if got := RoundHalfStep(tt.x); got != tt.want {
			t.Errorf("RoundHalfStep(%v) = %v; want %v", tt.x, got, tt.want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"B2", LevelB2, false},
		{" b1+ ", LevelB1Plus, false},
		{"c2", LevelC2, false},
		{"C3", "", true},
		{"B", "", true},
		{"", "", true},
		{"A1++", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidLevel) {
					t.Errorf("ParseLevel(%q) error = %v; want ErrInvalidLevel", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseLevel(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %s; want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestLevel_Next(t *testing.T) {
	all := Levels()
	for i, l := range all {
		next, ok := l.Next()
		if i == len(all)-1 {
			if ok {
				t.Errorf("%s.Next() = %s; want none", l, next)
			}
			continue
		}
		if !ok || next != all[i+1] {
			t.Errorf("%s.Next() = %s, %v; want %s", l, next, ok, all[i+1])
		}
	}
}

func TestLevel_Band(t *testing.T) {
	tests := []struct {
		level    Level
		band     Level
		bandName string
	}{
		{LevelA1Plus, LevelA1, "Beginner"},
		{LevelA2, LevelA2, "Elementary"},
		{LevelB1Plus, LevelB1, "Intermediate"},
		{LevelB2Plus, LevelB2, "Upper-Intermediate"},
		{LevelC1, LevelC1, "Advanced"},
		{LevelC2, LevelC2, "Proficient"},
	}
	for _, tt := range tests {
		if got := tt.level.Band(); got != tt.band {
			t.Errorf("%s.Band() = %s; want %s", tt.level, got, tt.band)
		}
		if got := tt.level.BandName(); got != tt.bandName {
			t.Errorf("%s.BandName() = %q; want %q", tt.level, got, tt.bandName)
		}
	}
}

func TestLevel_Compare(t *testing.T) {
	if LevelA2.Compare(LevelB1) != -1 {
		t.Error("A2 should compare below B1")
	}
	if LevelC1Plus.Compare(LevelC1) != 1 {
		t.Error("C1+ should compare above C1")
	}
	if LevelB2.Compare(LevelB2) != 0 {
		t.Error("B2 should compare equal to itself")
	}
}

func TestLevel_JSON(t *testing.T) {
	var v struct {
		Level Level `json:"level"`
	}
	if err := json.Unmarshal([]byte(`{"level":"b2+"}`), &v); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if v.Level != LevelB2Plus {
		t.Errorf("Level = %s; want B2+", v.Level)
	}

	err := json.Unmarshal([]byte(`{"level":"Z9"}`), &v)
	if !errors.Is(err, ErrInvalidLevel) {
		t.Errorf("Unmarshal(Z9) error = %v; want ErrInvalidLevel", err)
	}

	data, err := json.Marshal(struct {
		Level Level `json:"level"`
	}{LevelC1Plus})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `{"level":"C1+"}` {
		t.Errorf("Marshal() = %s", data)
	}
}
