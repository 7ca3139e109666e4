package exam

import (
	"errors"

	"gorm.io/gorm"

	"qbank/models"
)

// GormStore backs the exam service with the application database.
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func (s *GormStore) ExamByID(id uint) (*models.Exam, error) {
	var exam models.Exam
	if err := s.DB.Preload("Rules").First(&exam, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrExamNotFound
		}
		return nil, err
	}
	return &exam, nil
}

func (s *GormStore) Topics() ([]models.Topic, error) {
	var topics []models.Topic
	if err := s.DB.Find(&topics).Error; err != nil {
		return nil, err
	}
	return topics, nil
}

func (s *GormStore) QuestionsByTopics(topicIDs []uint) ([]models.Question, error) {
	if len(topicIDs) == 0 {
		return nil, nil
	}
	var questions []models.Question
	if err := s.DB.Where("topic_id IN ?", topicIDs).Find(&questions).Error; err != nil {
		return nil, err
	}
	return questions, nil
}

func (s *GormStore) QuestionByID(id uint) (*models.Question, error) {
	var question models.Question
	if err := s.DB.First(&question, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuestionNotFound
		}
		return nil, err
	}
	return &question, nil
}

func (s *GormStore) CreateSubmission(sub *models.ExamSubmission, questions []models.ExamQuestion) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(sub).Error; err != nil {
			return err
		}
		for i := range questions {
			questions[i].SubmissionID = sub.ID
		}
		if len(questions) == 0 {
			return nil
		}
		return tx.Create(&questions).Error
	})
}

func (s *GormStore) SaveSubmission(sub *models.ExamSubmission) error {
	return s.DB.Save(sub).Error
}

func (s *GormStore) SubmissionForUser(id, userID uint) (*models.ExamSubmission, error) {
	var sub models.ExamSubmission
	err := s.DB.Where("id = ? AND user_id = ?", id, userID).First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}
	return &sub, nil
}

func (s *GormStore) ExamQuestions(submissionID uint) ([]models.ExamQuestion, error) {
	var questions []models.ExamQuestion
	err := s.DB.Where("submission_id = ?", submissionID).Order("question_order").Find(&questions).Error
	if err != nil {
		return nil, err
	}
	return questions, nil
}

func (s *GormStore) Answers(submissionID uint) ([]models.ExamAnswer, error) {
	var answers []models.ExamAnswer
	if err := s.DB.Where("submission_id = ?", submissionID).Find(&answers).Error; err != nil {
		return nil, err
	}
	return answers, nil
}

func (s *GormStore) AnswerFor(submissionID, questionID uint) (*models.ExamAnswer, error) {
	var answer models.ExamAnswer
	err := s.DB.Where("submission_id = ? AND question_id = ?", submissionID, questionID).First(&answer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &answer, nil
}

func (s *GormStore) SaveAnswer(ans *models.ExamAnswer) error {
	return s.DB.Save(ans).Error
}
