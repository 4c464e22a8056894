package grading_test

import (
	"testing"

	"github.com/unilearn/unilearn-portal/internal/grading"
)

func TestChoiceScoring_AllOrNothing(t *testing.T) {
	g := grading.NewDefaultGrader()
	q := grading.Q{Type: "mcq", Points: 10, CorrectSet: []int{1}}

	cases := []struct {
		name     string
		selected []int
		want     float64
	}{
		{"exact match", []int{1}, 10},
		{"wrong choice", []int{0}, 0},
		{"superset is not partial credit", []int{1, 2}, 0},
		{"empty selection", nil, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := g.Score(q, grading.Response{Selected: tc.selected})
			if res.Points != tc.want {
				t.Fatalf("selected %v: got %v points, want %v", tc.selected, res.Points, tc.want)
			}
			if wantCorrect := tc.want == 10; res.Correct != wantCorrect {
				t.Fatalf("selected %v: correct=%v, want %v", tc.selected, res.Correct, wantCorrect)
			}
		})
	}
}

func TestChoiceScoring_MultiSelectOrderIndependent(t *testing.T) {
	g := grading.NewDefaultGrader()
	q := grading.Q{Type: "mcq", Points: 5, CorrectSet: []int{0, 2}}

	res := g.Score(q, grading.Response{Selected: []int{2, 0}})
	if res.Points != 5 || !res.Correct {
		t.Fatalf("order-independent match failed: %+v", res)
	}
	res = g.Score(q, grading.Response{Selected: []int{0}})
	if res.Points != 0 {
		t.Fatalf("partial overlap must score zero, got %v", res.Points)
	}
}

func TestTrueFalseScoring(t *testing.T) {
	g := grading.NewDefaultGrader()
	q := grading.Q{Type: "true_false", Points: 2, CorrectSet: []int{0}}

	if res := g.Score(q, grading.Response{Selected: []int{0}}); res.Points != 2 {
		t.Fatalf("want full points, got %v", res.Points)
	}
	if res := g.Score(q, grading.Response{Selected: []int{1}}); res.Points != 0 {
		t.Fatalf("want zero, got %v", res.Points)
	}
}

func TestChoiceScoring_NoKeyScoresZero(t *testing.T) {
	g := grading.NewDefaultGrader()
	q := grading.Q{Type: "mcq", Points: 10}
	if res := g.Score(q, grading.Response{}); res.Points != 0 || res.Correct {
		t.Fatalf("question without key must score zero: %+v", res)
	}
}

func TestSubjectiveTypesNeedManual(t *testing.T) {
	g := grading.NewDefaultGrader()
	for _, typ := range []string{"short_answer", "essay"} {
		res := g.Score(grading.Q{Type: typ, Points: 20}, grading.Response{Text: "some prose"})
		if !res.NeedsManual {
			t.Fatalf("%s should require manual grading", typ)
		}
		if res.Points != 0 {
			t.Fatalf("%s should not award auto points, got %v", typ, res.Points)
		}
	}
}

func TestUnknownTypeNeedsManual(t *testing.T) {
	g := grading.NewDefaultGrader()
	res := g.Score(grading.Q{Type: "diagram", Points: 3}, grading.Response{})
	if !res.NeedsManual {
		t.Fatalf("unknown type should fall back to manual review")
	}
}
