package exam

import (
	"testing"

	"qbank/models"

	"github.com/stretchr/testify/assert"
)

func uintPtr(v uint) *uint { return &v }

func testTopics() []models.Topic {
	subject := models.Topic{Name: "Math"}
	subject.ID = 1
	ch1 := models.Topic{Name: "Algebra", ParentID: uintPtr(1)}
	ch1.ID = 2
	ch2 := models.Topic{Name: "Geometry", ParentID: uintPtr(1)}
	ch2.ID = 3
	other := models.Topic{Name: "Sets", ParentID: uintPtr(1)}
	other.ID = 4
	return []models.Topic{subject, ch1, ch2, other}
}

func makeRule(topicIDs []uint, specs []models.TypeSpec) models.ExamRule {
	var rule models.ExamRule
	rule.SetTopicIDs(topicIDs)
	rule.SetSpecs(specs)
	return rule
}

func TestResolveRulesMergesMaxCountOverUnion(t *testing.T) {
	rules := []models.ExamRule{
		makeRule([]uint{2}, []models.TypeSpec{{Type: "single", Count: 3, Score: 2}}),
		makeRule([]uint{2, 3}, []models.TypeSpec{{Type: "single", Count: 5, Score: 4}}),
	}

	chapters, specs := ResolveRules(rules, testTopics())

	assert.Equal(t, []uint{2, 3}, chapters)
	assert.Equal(t, 5, specs[TypeSingle].Count)
	assert.Equal(t, 4, specs[TypeSingle].Score, "last rule's score wins")
}

func TestResolveRulesKeepsMaxCountWhenLaterRuleIsSmaller(t *testing.T) {
	rules := []models.ExamRule{
		makeRule([]uint{2}, []models.TypeSpec{{Type: "single", Count: 5, Score: 2}}),
		makeRule([]uint{3}, []models.TypeSpec{{Type: "single", Count: 3, Score: 1}}),
	}

	_, specs := ResolveRules(rules, testTopics())

	assert.Equal(t, 5, specs[TypeSingle].Count)
	assert.Equal(t, 1, specs[TypeSingle].Score)
}

func TestResolveRulesExpandsSubjectToChapters(t *testing.T) {
	rules := []models.ExamRule{
		makeRule([]uint{1}, []models.TypeSpec{{Type: "fill", Count: 2, Score: 5}}),
	}

	chapters, specs := ResolveRules(rules, testTopics())

	assert.Equal(t, []uint{2, 3, 4}, chapters, "subject expands to its chapters only")
	assert.Equal(t, 2, specs[TypeFill].Count)
}

func TestResolveRulesNormalizesTypeSynonyms(t *testing.T) {
	rules := []models.ExamRule{
		makeRule([]uint{2}, []models.TypeSpec{
			{Type: "single_choice", Count: 2, Score: 2},
			{Type: "单选", Count: 4, Score: 3},
			{Type: "MCQ", Count: 1, Score: 5},
		}),
	}

	_, specs := ResolveRules(rules, testTopics())

	assert.Equal(t, 4, specs[TypeSingle].Count, "synonyms merge into one canonical entry")
	assert.Equal(t, 1, specs[TypeMultiple].Count)
}

func TestResolveRulesDropsUnknownTypeLabels(t *testing.T) {
	rules := []models.ExamRule{
		makeRule([]uint{2}, []models.TypeSpec{
			{Type: "matching", Count: 3, Score: 2},
			{Type: "fill", Count: 1, Score: 2},
		}),
	}

	_, specs := ResolveRules(rules, testTopics())

	assert.Len(t, specs, 1)
	assert.Contains(t, specs, TypeFill)
}

func TestResolveRulesEmptyRules(t *testing.T) {
	chapters, specs := ResolveRules(nil, testTopics())

	assert.Empty(t, chapters)
	assert.Empty(t, specs)
}

func TestExpandToChapters(t *testing.T) {
	topics := testTopics()

	assert.Equal(t, []uint{2, 3, 4}, ExpandToChapters([]uint{1}, topics))
	assert.Equal(t, []uint{3, 2, 4}, ExpandToChapters([]uint{3, 1}, topics), "order preserved, duplicates dropped")
	assert.Equal(t, []uint{2}, ExpandToChapters([]uint{2, 2}, topics))
}
