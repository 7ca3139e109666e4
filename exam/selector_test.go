package exam

import (
	"math/rand"
	"testing"

	"qbank/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeQuestion(id uint, qType string) models.Question {
	q := models.Question{TopicID: 2, Type: qType, Content: "q"}
	q.ID = id
	return q
}

func selectorPool() []models.Question {
	return []models.Question{
		makeQuestion(1, TypeSingle),
		makeQuestion(2, TypeSingle),
		makeQuestion(3, TypeSingle),
		makeQuestion(4, TypeMultiple),
		makeQuestion(5, TypeMultiple),
		makeQuestion(6, TypeFill),
	}
}

func TestSelectQuestionsDrawsRequestedCounts(t *testing.T) {
	specs := map[string]models.TypeSpec{
		TypeSingle:   {Type: TypeSingle, Count: 2, Score: 2},
		TypeMultiple: {Type: TypeMultiple, Count: 1, Score: 4},
	}
	rng := rand.New(rand.NewSource(42))

	questions, err := SelectQuestions(selectorPool(), specs, rng)
	require.NoError(t, err)
	require.Len(t, questions, 3)

	seen := make(map[uint]bool)
	for _, q := range questions {
		assert.False(t, seen[q.QuestionID], "no question drawn twice")
		seen[q.QuestionID] = true
	}
}

func TestSelectQuestionsDeterministicWithSeed(t *testing.T) {
	specs := map[string]models.TypeSpec{
		TypeSingle: {Type: TypeSingle, Count: 2, Score: 2},
	}

	first, err := SelectQuestions(selectorPool(), specs, rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	second, err := SelectQuestions(selectorPool(), specs, rand.New(rand.NewSource(7)))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSelectQuestionsOrdersByTypeBlocks(t *testing.T) {
	specs := map[string]models.TypeSpec{
		TypeFill:     {Type: TypeFill, Count: 1, Score: 5},
		TypeSingle:   {Type: TypeSingle, Count: 2, Score: 2},
		TypeMultiple: {Type: TypeMultiple, Count: 2, Score: 4},
	}
	rng := rand.New(rand.NewSource(1))

	questions, err := SelectQuestions(selectorPool(), specs, rng)
	require.NoError(t, err)
	require.Len(t, questions, 5)

	byID := make(map[uint]models.Question)
	for _, q := range selectorPool() {
		byID[q.ID] = q
	}
	lastOrder := 0
	lastRank := -1
	for _, q := range questions {
		assert.Equal(t, lastOrder+1, q.Order, "orders are 1..N without gaps")
		lastOrder = q.Order
		rank := TypeOrder(byID[q.QuestionID].Type)
		assert.GreaterOrEqual(t, rank, lastRank, "type blocks never interleave")
		lastRank = rank
	}
}

func TestSelectQuestionsCarriesPerExamScore(t *testing.T) {
	specs := map[string]models.TypeSpec{
		TypeFill: {Type: TypeFill, Count: 1, Score: 7},
	}

	questions, err := SelectQuestions(selectorPool(), specs, rand.New(rand.NewSource(3)))
	require.NoError(t, err)
	require.Len(t, questions, 1)
	assert.Equal(t, 7, questions[0].Score)
}

func TestSelectQuestionsInsufficientPool(t *testing.T) {
	specs := map[string]models.TypeSpec{
		TypeFill: {Type: TypeFill, Count: 3, Score: 5},
	}

	questions, err := SelectQuestions(selectorPool(), specs, rand.New(rand.NewSource(1)))
	assert.Nil(t, questions)

	var insufficient *InsufficientQuestionsError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, TypeFill, insufficient.Type)
	assert.Equal(t, 3, insufficient.Required)
	assert.Equal(t, 1, insufficient.Available)
}
