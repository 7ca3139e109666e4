package exam

import (
	"math/rand"
	"sort"

	"qbank/models"
)

// SelectQuestions draws the merged spec from the eligible pool: for each
// canonical type, count questions uniformly at random without replacement.
// The combined result is ordered by type precedence and renumbered from 1,
// so the paper shows same-type blocks together. ExamID and SubmissionID are
// left for the caller to bind.
//
// If any type's pool is smaller than its count the whole draw fails with
// InsufficientQuestionsError and nothing is returned.
func SelectQuestions(pool []models.Question, specs map[string]models.TypeSpec, rng *rand.Rand) ([]models.ExamQuestion, error) {
	type drawn struct {
		question models.Question
		score    int
	}
	var selected []drawn

	for _, t := range Types {
		spec, ok := specs[t]
		if !ok || spec.Count <= 0 {
			continue
		}
		var candidates []models.Question
		for _, q := range pool {
			if q.Type == t {
				candidates = append(candidates, q)
			}
		}
		if len(candidates) < spec.Count {
			return nil, &InsufficientQuestionsError{Type: t, Required: spec.Count, Available: len(candidates)}
		}
		rng.Shuffle(len(candidates), func(i, j int) {
			candidates[i], candidates[j] = candidates[j], candidates[i]
		})
		for _, q := range candidates[:spec.Count] {
			selected = append(selected, drawn{question: q, score: spec.Score})
		}
	}

	sort.SliceStable(selected, func(i, j int) bool {
		return TypeOrder(selected[i].question.Type) < TypeOrder(selected[j].question.Type)
	})

	questions := make([]models.ExamQuestion, len(selected))
	for i, d := range selected {
		questions[i] = models.ExamQuestion{
			QuestionID: d.question.ID,
			Order:      i + 1,
			Score:      d.score,
		}
	}
	return questions, nil
}
