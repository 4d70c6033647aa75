package session

import (
	"math"

	"learnhub/models"
)

// Result is the outcome of scoring one attempt.
type Result struct {
	CorrectCount int  `json:"correct_count"`
	ScorePercent int  `json:"score_percent"`
	Passed       bool `json:"passed"`
}

// Score computes the result of an answer map against a question list. It is
// deterministic and side-effect free: identical inputs always produce the
// identical result, so the server can recompute it at the persistence
// boundary instead of trusting a client-supplied value. Unanswered questions
// count as incorrect. The percentage is rounded half-up to an integer and
// the passing threshold is inclusive.
func Score(questions models.QuestionList, passingScore int, answers models.AnswerMap) Result {
	if len(questions) == 0 {
		return Result{}
	}

	correct := 0
	for _, q := range questions {
		if selected, ok := answers[q.ID]; ok && selected == q.Correct {
			correct++
		}
	}

	percent := int(math.Round(100 * float64(correct) / float64(len(questions))))

	return Result{
		CorrectCount: correct,
		ScorePercent: percent,
		Passed:       percent >= passingScore,
	}
}
