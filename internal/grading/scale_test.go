package grading_test

import (
	"testing"

	"github.com/unilearn/unilearn-portal/internal/grading"
)

func TestDefaultScaleLetters(t *testing.T) {
	s := grading.DefaultScale()
	cases := []struct {
		pct  float64
		want string
	}{
		{100, "A"}, {90, "A"}, {89.9, "B"}, {80, "B"},
		{79, "C"}, {70, "C"}, {60, "D"}, {59.9, "F"}, {0, "F"},
	}
	for _, tc := range cases {
		if got := s.Letter(tc.pct); got != tc.want {
			t.Fatalf("Letter(%v) = %q, want %q", tc.pct, got, tc.want)
		}
	}
}

func TestDefaultScalePassMark(t *testing.T) {
	s := grading.DefaultScale()
	if !s.Passed(60) {
		t.Fatalf("60%% should pass")
	}
	if s.Passed(59.99) {
		t.Fatalf("59.99%% should fail")
	}
}

func TestParseScale(t *testing.T) {
	s, err := grading.ParseScale("HD:85, D:75, C:65, P:50, F:0", 50)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := s.Letter(84); got != "D" {
		t.Fatalf("Letter(84) = %q, want D", got)
	}
	if got := s.Letter(50); got != "P" {
		t.Fatalf("Letter(50) = %q, want P", got)
	}
	if !s.Passed(50) || s.Passed(49) {
		t.Fatalf("pass mark not honored")
	}
}

func TestParseScaleUnsortedInput(t *testing.T) {
	s, err := grading.ParseScale("F:0,A:90,C:70", 60)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := s.Letter(95); got != "A" {
		t.Fatalf("bands must be sorted descending, Letter(95) = %q", got)
	}
}

func TestParseScaleErrors(t *testing.T) {
	if _, err := grading.ParseScale("", 60); err == nil {
		t.Fatalf("empty spec should error")
	}
	if _, err := grading.ParseScale("A=90", 60); err == nil {
		t.Fatalf("missing colon should error")
	}
	if _, err := grading.ParseScale("A:ninety", 60); err == nil {
		t.Fatalf("non-numeric threshold should error")
	}
}
