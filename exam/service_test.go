package exam

import (
	"encoding/json"
	"math/rand"
	"testing"
	"time"

	"qbank/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixture: one subject with one chapter, a single-choice and a
// multiple-choice question worth 5 points each, and a published exam
// drawing one of each.
func serviceFixture(t *testing.T) (*Service, *MemoryStore, models.Exam) {
	t.Helper()
	store := NewMemoryStore()

	subject := store.AddTopic(models.Topic{Name: "Math"})
	chapter := models.Topic{Name: "Algebra", ParentID: &subject.ID}
	chapter = store.AddTopic(chapter)

	single := models.Question{TopicID: chapter.ID, Type: TypeSingle, Content: "2+2?", Answer: `"A"`}
	single.SetOptions([]models.QuestionOption{
		{ID: "A", Content: "4"}, {ID: "B", Content: "5"},
		{ID: "C", Content: "6"}, {ID: "D", Content: "7"},
	})
	store.AddQuestion(single)

	multiple := models.Question{TopicID: chapter.ID, Type: TypeMultiple, Content: "Even numbers?", Answer: `["A","C"]`}
	multiple.SetOptions([]models.QuestionOption{
		{ID: "A", Content: "2"}, {ID: "B", Content: "3"},
		{ID: "C", Content: "4"}, {ID: "D", Content: "5"},
	})
	store.AddQuestion(multiple)

	var rule models.ExamRule
	rule.SetTopicIDs([]uint{chapter.ID})
	rule.SetSpecs([]models.TypeSpec{
		{Type: TypeSingle, Count: 1, Score: 5},
		{Type: TypeMultiple, Count: 1, Score: 5},
	})
	exam := store.AddExam(models.Exam{
		Name:     "Midterm",
		Duration: 60,
		Status:   models.ExamPublished,
		IsActive: true,
		Rules:    []models.ExamRule{rule},
	})

	svc := NewService(store, rand.New(rand.NewSource(1)))
	return svc, store, exam
}

func TestServiceFullExamFlow(t *testing.T) {
	svc, _, exam := serviceFixture(t)

	sub, err := svc.Start(exam.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionInProgress, sub.Status)
	assert.True(t, sub.EndTime.After(sub.StartTime))

	// Single-choice comes first, orders run 1..2.
	first, err := svc.Question(sub.ID, 10, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Order)
	assert.Equal(t, 2, first.TotalQuestions)
	assert.Equal(t, TypeSingle, first.Question.Type)
	assert.Equal(t, 5, first.Question.Score)
	assert.Len(t, first.Question.Options, 4)
	assert.Nil(t, first.UserAnswer, "nothing answered yet")

	second, err := svc.Question(sub.ID, 10, 2)
	require.NoError(t, err)
	assert.Equal(t, TypeMultiple, second.Question.Type)

	_, err = svc.SubmitAnswer(sub.ID, 10, first.Question.ID, json.RawMessage(`"A"`), false)
	require.NoError(t, err)

	// Re-fetching an answered question returns the stored answer.
	again, err := svc.Question(sub.ID, 10, 1)
	require.NoError(t, err)
	assert.Equal(t, first.Question.ID, again.Question.ID)
	assert.JSONEq(t, `"A"`, string(again.UserAnswer))

	done, err := svc.SubmitAnswer(sub.ID, 10, second.Question.ID, json.RawMessage(`["C","A"]`), true)
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionCompleted, done.Status)
	assert.Equal(t, 10, done.Score)
	require.NotNil(t, done.CompletedAt)

	result, err := svc.Result(sub.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, result.TotalScore)
	assert.Equal(t, 10, result.MaxScore)
	require.Len(t, result.Results, 2)
	for _, row := range result.Results {
		assert.True(t, row.IsCorrect)
		assert.Equal(t, 5, row.Score)
		assert.NotEmpty(t, row.Question.Answer)
	}
}

func TestServiceInsufficientPoolCreatesNoSubmission(t *testing.T) {
	svc, store, exam := serviceFixture(t)

	greedy := exam
	var rule models.ExamRule
	rule.SetTopicIDs(greedy.Rules[0].TopicIDList())
	rule.SetSpecs([]models.TypeSpec{{Type: TypeSingle, Count: 5, Score: 2}})
	greedy.Rules = []models.ExamRule{rule}
	greedy.ID = 0
	greedy = store.AddExam(greedy)

	_, err := svc.Start(greedy.ID, 10)

	var insufficient *InsufficientQuestionsError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, TypeSingle, insufficient.Type)
	assert.Equal(t, 0, store.SubmissionCount(), "a failed draw must not leave a submission behind")
}

func TestServiceLazyExpiry(t *testing.T) {
	svc, store, exam := serviceFixture(t)

	sub, err := svc.Start(exam.ID, 10)
	require.NoError(t, err)

	questions, err := store.ExamQuestions(sub.ID)
	require.NoError(t, err)
	_, err = svc.SubmitAnswer(sub.ID, 10, questions[0].QuestionID, json.RawMessage(`"A"`), false)
	require.NoError(t, err)

	// Force the deadline into the past.
	sub.EndTime = time.Now().Add(-time.Minute)
	require.NoError(t, store.SaveSubmission(sub))

	_, err = svc.SubmitAnswer(sub.ID, 10, questions[1].QuestionID, json.RawMessage(`["A","C"]`), false)
	assert.ErrorIs(t, err, ErrExamExpired)

	// The expired attempt completes over what was recorded before expiry.
	after, err := store.SubmissionForUser(sub.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionCompleted, after.Status)
	assert.Equal(t, 5, after.Score)
	require.NotNil(t, after.CompletedAt)

	_, err = svc.SubmitAnswer(sub.ID, 10, questions[1].QuestionID, json.RawMessage(`["A","C"]`), false)
	assert.ErrorIs(t, err, ErrNotInProgress)
}

func TestServiceOwnership(t *testing.T) {
	svc, _, exam := serviceFixture(t)

	sub, err := svc.Start(exam.ID, 10)
	require.NoError(t, err)

	_, err = svc.Question(sub.ID, 99, 1)
	assert.ErrorIs(t, err, ErrSubmissionNotFound, "someone else's submission looks like it does not exist")

	_, err = svc.SubmitAnswer(sub.ID, 99, 1, json.RawMessage(`"A"`), false)
	assert.ErrorIs(t, err, ErrSubmissionNotFound)

	_, err = svc.Result(sub.ID, 99)
	assert.ErrorIs(t, err, ErrSubmissionNotFound)
}

func TestServiceResultRequiresCompletion(t *testing.T) {
	svc, _, exam := serviceFixture(t)

	sub, err := svc.Start(exam.ID, 10)
	require.NoError(t, err)

	_, err = svc.Result(sub.ID, 10)
	assert.ErrorIs(t, err, ErrNotCompleted)
}

func TestServiceQuestionOutOfRange(t *testing.T) {
	svc, _, exam := serviceFixture(t)

	sub, err := svc.Start(exam.ID, 10)
	require.NoError(t, err)

	_, err = svc.Question(sub.ID, 10, 3)
	assert.ErrorIs(t, err, ErrQuestionNotFound)
}

func TestServicePreview(t *testing.T) {
	svc, _, exam := serviceFixture(t)

	preview, err := svc.Preview(exam.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, preview.TotalRequired)
	assert.Equal(t, 2, preview.TotalAvailable)
	assert.Empty(t, preview.Warnings)
	require.Len(t, preview.ByType, 4, "all canonical types are reported")

	_, err = svc.Preview(999)
	assert.ErrorIs(t, err, ErrExamNotFound)
}
