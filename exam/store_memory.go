package exam

import (
	"sort"
	"sync"

	"qbank/models"
)

// MemoryStore keeps everything in process memory. It exists for tests and
// mirrors GormStore behavior, sentinel errors included.
type MemoryStore struct {
	mu            sync.Mutex
	nextID        uint
	topics        map[uint]models.Topic
	questions     map[uint]models.Question
	exams         map[uint]models.Exam
	submissions   map[uint]models.ExamSubmission
	examQuestions []models.ExamQuestion
	answers       []models.ExamAnswer
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		topics:      make(map[uint]models.Topic),
		questions:   make(map[uint]models.Question),
		exams:       make(map[uint]models.Exam),
		submissions: make(map[uint]models.ExamSubmission),
	}
}

func (s *MemoryStore) id() uint {
	s.nextID++
	return s.nextID
}

// AddTopic stores a topic, assigning an id when absent.
func (s *MemoryStore) AddTopic(t models.Topic) models.Topic {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == 0 {
		t.ID = s.id()
	}
	s.topics[t.ID] = t
	return t
}

func (s *MemoryStore) AddQuestion(q models.Question) models.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q.ID == 0 {
		q.ID = s.id()
	}
	s.questions[q.ID] = q
	return q
}

func (s *MemoryStore) AddExam(e models.Exam) models.Exam {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == 0 {
		e.ID = s.id()
	}
	s.exams[e.ID] = e
	return e
}

func (s *MemoryStore) ExamByID(id uint) (*models.Exam, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.exams[id]
	if !ok {
		return nil, ErrExamNotFound
	}
	return &e, nil
}

func (s *MemoryStore) Topics() ([]models.Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	topics := make([]models.Topic, 0, len(s.topics))
	for _, t := range s.topics {
		topics = append(topics, t)
	}
	sort.Slice(topics, func(i, j int) bool { return topics[i].ID < topics[j].ID })
	return topics, nil
}

func (s *MemoryStore) QuestionsByTopics(topicIDs []uint) ([]models.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wanted := make(map[uint]bool, len(topicIDs))
	for _, id := range topicIDs {
		wanted[id] = true
	}
	var questions []models.Question
	for _, q := range s.questions {
		if wanted[q.TopicID] {
			questions = append(questions, q)
		}
	}
	sort.Slice(questions, func(i, j int) bool { return questions[i].ID < questions[j].ID })
	return questions, nil
}

func (s *MemoryStore) QuestionByID(id uint) (*models.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[id]
	if !ok {
		return nil, ErrQuestionNotFound
	}
	return &q, nil
}

func (s *MemoryStore) CreateSubmission(sub *models.ExamSubmission, questions []models.ExamQuestion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub.ID = s.id()
	s.submissions[sub.ID] = *sub
	for i := range questions {
		questions[i].ID = s.id()
		questions[i].SubmissionID = sub.ID
		s.examQuestions = append(s.examQuestions, questions[i])
	}
	return nil
}

func (s *MemoryStore) SaveSubmission(sub *models.ExamSubmission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submissions[sub.ID] = *sub
	return nil
}

func (s *MemoryStore) SubmissionForUser(id, userID uint) (*models.ExamSubmission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.submissions[id]
	if !ok || sub.UserID != userID {
		return nil, ErrSubmissionNotFound
	}
	return &sub, nil
}

// SubmissionCount reports how many submissions exist, for assertions.
func (s *MemoryStore) SubmissionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.submissions)
}

func (s *MemoryStore) ExamQuestions(submissionID uint) ([]models.ExamQuestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var questions []models.ExamQuestion
	for _, eq := range s.examQuestions {
		if eq.SubmissionID == submissionID {
			questions = append(questions, eq)
		}
	}
	sort.Slice(questions, func(i, j int) bool { return questions[i].Order < questions[j].Order })
	return questions, nil
}

func (s *MemoryStore) Answers(submissionID uint) ([]models.ExamAnswer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var answers []models.ExamAnswer
	for _, a := range s.answers {
		if a.SubmissionID == submissionID {
			answers = append(answers, a)
		}
	}
	return answers, nil
}

func (s *MemoryStore) AnswerFor(submissionID, questionID uint) (*models.ExamAnswer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.answers {
		if a.SubmissionID == submissionID && a.QuestionID == questionID {
			found := a
			return &found, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) SaveAnswer(ans *models.ExamAnswer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ans.ID == 0 {
		ans.ID = s.id()
		s.answers = append(s.answers, *ans)
		return nil
	}
	for i := range s.answers {
		if s.answers[i].ID == ans.ID {
			s.answers[i] = *ans
			return nil
		}
	}
	s.answers = append(s.answers, *ans)
	return nil
}
