package grading

// Response is the student's recorded input for one question.
type Response struct {
	Text     string
	Selected []int
}

// Q is the minimal view of a question needed for scoring.
type Q struct {
	Type       string
	Points     float64
	CorrectSet []int
}

// Result is the outcome of scoring a single response.
type Result struct {
	Points      float64
	Correct     bool
	NeedsManual bool // true if grader review is required
}

// Strategy scores a single question type.
type Strategy interface {
	Score(q Q, resp Response) Result
}

// Grader routes by question type to the correct Strategy.
type Grader interface {
	Score(q Q, resp Response) Result
}

type defaultGrader struct {
	strategies map[string]Strategy
}

func (g *defaultGrader) Score(q Q, resp Response) Result {
	s, ok := g.strategies[q.Type]
	if !ok {
		return Result{NeedsManual: true}
	}
	return s.Score(q, resp)
}

// NewDefaultGrader installs the built-in strategies.
func NewDefaultGrader() Grader {
	return &defaultGrader{
		strategies: map[string]Strategy{
			"mcq":          choiceStrategy{},
			"true_false":   choiceStrategy{},
			"short_answer": manualStrategy{},
			"essay":        manualStrategy{},
		},
	}
}

// choiceStrategy scores choice questions by exact set equality of the
// selected indices against the correct set, order-independent. No partial
// credit: any missing or extra selection scores zero.
type choiceStrategy struct{}

func (choiceStrategy) Score(q Q, resp Response) Result {
	if len(q.CorrectSet) == 0 {
		// malformed question: no correct choice recorded
		return Result{}
	}
	if setEqual(toSet(resp.Selected), toSet(q.CorrectSet)) {
		return Result{Points: q.Points, Correct: true}
	}
	return Result{}
}

// manualStrategy defers short_answer and essay to the grader; auto-grading
// leaves their points untouched.
type manualStrategy struct{}

func (manualStrategy) Score(Q, Response) Result {
	return Result{NeedsManual: true}
}

func toSet(arr []int) map[int]struct{} {
	m := make(map[int]struct{}, len(arr))
	for _, v := range arr {
		m[v] = struct{}{}
	}
	return m
}

func setEqual(a, b map[int]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
