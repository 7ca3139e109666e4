package exam

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"qbank/models"
)

// Service drives the exam lifecycle: resolving rules, assembling a
// submission, collecting answers inside the time window and grading.
//
// Expiry is lazy: nothing watches the clock, the deadline is checked on the
// next answer submission. Selection is reseeded per process, never cached
// across starts, so students drawing from a shared bank get independent
// papers.
type Service struct {
	store Store

	// rng is not safe for concurrent use; mu guards every draw and shuffle.
	mu  sync.Mutex
	rng *rand.Rand
}

// NewService wires the service to a store. Pass a seeded rng for
// deterministic draws in tests; nil uses a time-seeded source.
func NewService(store Store, rng *rand.Rand) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{store: store, rng: rng}
}

// Start assembles a new submission for examID. It fails without creating
// anything when the exam is missing or any type's pool is too small.
func (s *Service) Start(examID, userID uint) (*models.ExamSubmission, error) {
	exam, err := s.store.ExamByID(examID)
	if err != nil {
		return nil, err
	}
	topics, err := s.store.Topics()
	if err != nil {
		return nil, err
	}
	chapterIDs, specs := ResolveRules(exam.Rules, topics)
	pool, err := s.store.QuestionsByTopics(chapterIDs)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	questions, err := SelectQuestions(pool, specs, s.rng)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	sub := &models.ExamSubmission{
		ExamID:    examID,
		UserID:    userID,
		StartTime: now,
		EndTime:   now.Add(time.Duration(exam.Duration) * time.Minute),
		Status:    models.SubmissionInProgress,
	}
	for i := range questions {
		questions[i].ExamID = examID
	}
	if err := s.store.CreateSubmission(sub, questions); err != nil {
		return nil, err
	}
	return sub, nil
}

// TypeAvailability compares one type's required draw against its pool size.
type TypeAvailability struct {
	Type      string `json:"type"`
	Required  int    `json:"required"`
	Available int    `json:"available"`
}

type Preview struct {
	ByType         []TypeAvailability `json:"byType"`
	TotalRequired  int                `json:"totalRequired"`
	TotalAvailable int                `json:"totalAvailable"`
	Warnings       []string           `json:"warnings"`
}

// Preview reports, per type, how many questions the exam's rules require
// against how many its chapters can supply, without starting anything.
func (s *Service) Preview(examID uint) (*Preview, error) {
	exam, err := s.store.ExamByID(examID)
	if err != nil {
		return nil, err
	}
	topics, err := s.store.Topics()
	if err != nil {
		return nil, err
	}
	chapterIDs, specs := ResolveRules(exam.Rules, topics)
	pool, err := s.store.QuestionsByTopics(chapterIDs)
	if err != nil {
		return nil, err
	}

	available := make(map[string]int)
	for _, q := range pool {
		available[q.Type]++
	}

	preview := &Preview{Warnings: []string{}}
	for _, t := range Types {
		row := TypeAvailability{Type: t, Required: specs[t].Count, Available: available[t]}
		preview.ByType = append(preview.ByType, row)
		preview.TotalRequired += row.Required
		preview.TotalAvailable += row.Available
		if row.Available < row.Required {
			preview.Warnings = append(preview.Warnings,
				fmt.Sprintf("type %s: %d available is less than %d required", t, row.Available, row.Required))
		}
	}
	return preview, nil
}

// DisplayQuestion is a question as shown during an attempt: options shuffled,
// canonical answer and analysis withheld.
type DisplayQuestion struct {
	ID         uint                    `json:"id"`
	TopicID    uint                    `json:"topicId"`
	Type       string                  `json:"type"`
	Content    string                  `json:"content"`
	Options    []models.QuestionOption `json:"options,omitempty"`
	Difficulty int                     `json:"difficulty"`
	Score      int                     `json:"score"`
}

type QuestionView struct {
	Question       DisplayQuestion `json:"question"`
	Order          int             `json:"order"`
	TotalQuestions int             `json:"totalQuestions"`
	UserAnswer     json.RawMessage `json:"userAnswer"`
}

// Question returns the question at a 1-based order index of the caller's
// in-progress submission. Reads only; calling it repeatedly for the same
// order is safe and returns the same binding.
func (s *Service) Question(submissionID, userID uint, order int) (*QuestionView, error) {
	sub, err := s.store.SubmissionForUser(submissionID, userID)
	if err != nil {
		return nil, err
	}
	if sub.Status != models.SubmissionInProgress {
		return nil, ErrNotInProgress
	}
	bindings, err := s.store.ExamQuestions(submissionID)
	if err != nil {
		return nil, err
	}
	var binding *models.ExamQuestion
	for i := range bindings {
		if bindings[i].Order == order {
			binding = &bindings[i]
			break
		}
	}
	if binding == nil {
		return nil, ErrQuestionNotFound
	}
	question, err := s.store.QuestionByID(binding.QuestionID)
	if err != nil {
		return nil, err
	}

	options := question.OptionList()
	s.mu.Lock()
	s.rng.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})
	s.mu.Unlock()

	view := &QuestionView{
		Question: DisplayQuestion{
			ID:         question.ID,
			TopicID:    question.TopicID,
			Type:       question.Type,
			Content:    question.Content,
			Options:    options,
			Difficulty: question.Difficulty,
			Score:      binding.Score,
		},
		Order:          binding.Order,
		TotalQuestions: len(bindings),
	}
	if answer, err := s.store.AnswerFor(submissionID, binding.QuestionID); err != nil {
		return nil, err
	} else if answer != nil {
		view.UserAnswer = answer.AnswerRaw()
	}
	return view, nil
}

// SubmitAnswer upserts the answer for (submission, question). When the
// deadline has passed, the submission is completed, graded over what was
// recorded, and the expiring answer is rejected with ErrExamExpired. Passing
// completed=true finishes and grades the attempt.
func (s *Service) SubmitAnswer(submissionID, userID, questionID uint, answer json.RawMessage, completed bool) (*models.ExamSubmission, error) {
	sub, err := s.store.SubmissionForUser(submissionID, userID)
	if err != nil {
		return nil, err
	}
	if sub.Status != models.SubmissionInProgress {
		return nil, ErrNotInProgress
	}
	if time.Now().After(sub.EndTime) {
		if err := s.complete(sub); err != nil {
			return nil, err
		}
		return nil, ErrExamExpired
	}

	existing, err := s.store.AnswerFor(submissionID, questionID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		existing.Answer = string(answer)
		if err := s.store.SaveAnswer(existing); err != nil {
			return nil, err
		}
	} else {
		ans := &models.ExamAnswer{SubmissionID: submissionID, QuestionID: questionID, Answer: string(answer)}
		if err := s.store.SaveAnswer(ans); err != nil {
			return nil, err
		}
	}

	if completed {
		if err := s.complete(sub); err != nil {
			return nil, err
		}
	}
	return sub, nil
}

// complete grades all recorded answers and finalizes the submission.
func (s *Service) complete(sub *models.ExamSubmission) error {
	score, err := s.grade(sub.ID)
	if err != nil {
		return err
	}
	now := time.Now()
	sub.Status = models.SubmissionCompleted
	sub.Score = score
	sub.CompletedAt = &now
	return s.store.SaveSubmission(sub)
}

// grade sums the per-exam score of every correctly answered question.
// Unanswered questions contribute zero.
func (s *Service) grade(submissionID uint) (int, error) {
	bindings, err := s.store.ExamQuestions(submissionID)
	if err != nil {
		return 0, err
	}
	answers, err := s.store.Answers(submissionID)
	if err != nil {
		return 0, err
	}
	byQuestion := make(map[uint]models.ExamAnswer, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = a
	}

	total := 0
	for _, binding := range bindings {
		answer, ok := byQuestion[binding.QuestionID]
		if !ok {
			continue
		}
		question, err := s.store.QuestionByID(binding.QuestionID)
		if err != nil {
			return 0, err
		}
		if CheckAnswer(question.AnswerRaw(), answer.AnswerRaw()) {
			total += binding.Score
		}
	}
	return total, nil
}

// ResultQuestion is a question as shown in the final report, canonical
// answer and analysis included.
type ResultQuestion struct {
	ID       uint                    `json:"id"`
	TopicID  uint                    `json:"topicId"`
	Type     string                  `json:"type"`
	Content  string                  `json:"content"`
	Options  []models.QuestionOption `json:"options,omitempty"`
	Answer   json.RawMessage         `json:"answer"`
	Analysis string                  `json:"analysis"`
}

type QuestionResult struct {
	Question   ResultQuestion  `json:"question"`
	Order      int             `json:"order"`
	UserAnswer json.RawMessage `json:"userAnswer"`
	IsCorrect  bool            `json:"isCorrect"`
	Score      int             `json:"score"`
}

type Result struct {
	Submission *models.ExamSubmission `json:"submission"`
	Results    []QuestionResult       `json:"results"`
	TotalScore int                    `json:"totalScore"`
	MaxScore   int                    `json:"maxScore"`
}

// Result builds the per-question report for a completed submission.
func (s *Service) Result(submissionID, userID uint) (*Result, error) {
	sub, err := s.store.SubmissionForUser(submissionID, userID)
	if err != nil {
		return nil, err
	}
	if sub.Status != models.SubmissionCompleted {
		return nil, ErrNotCompleted
	}
	bindings, err := s.store.ExamQuestions(submissionID)
	if err != nil {
		return nil, err
	}
	answers, err := s.store.Answers(submissionID)
	if err != nil {
		return nil, err
	}
	byQuestion := make(map[uint]models.ExamAnswer, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = a
	}

	result := &Result{Submission: sub, TotalScore: sub.Score}
	for _, binding := range bindings {
		question, err := s.store.QuestionByID(binding.QuestionID)
		if err != nil {
			return nil, err
		}
		row := QuestionResult{
			Question: ResultQuestion{
				ID:       question.ID,
				TopicID:  question.TopicID,
				Type:     question.Type,
				Content:  question.Content,
				Options:  question.OptionList(),
				Answer:   question.AnswerRaw(),
				Analysis: question.Analysis,
			},
			Order: binding.Order,
		}
		if answer, ok := byQuestion[binding.QuestionID]; ok {
			row.UserAnswer = answer.AnswerRaw()
			row.IsCorrect = CheckAnswer(question.AnswerRaw(), answer.AnswerRaw())
			if row.IsCorrect {
				row.Score = binding.Score
			}
		}
		result.MaxScore += binding.Score
		result.Results = append(result.Results, row)
	}
	return result, nil
}
