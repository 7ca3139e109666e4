package exam

import "qbank/models"

// Store is the persistence boundary of the exam lifecycle. The service only
// ever talks to this interface, so the assembly and grading logic can be
// tested against MemoryStore while production runs on GormStore.
//
// Lookups return the package sentinel errors when the row is absent;
// AnswerFor returns (nil, nil) so callers can upsert.
type Store interface {
	ExamByID(id uint) (*models.Exam, error)
	Topics() ([]models.Topic, error)
	QuestionsByTopics(topicIDs []uint) ([]models.Question, error)
	QuestionByID(id uint) (*models.Question, error)

	CreateSubmission(sub *models.ExamSubmission, questions []models.ExamQuestion) error
	SaveSubmission(sub *models.ExamSubmission) error
	SubmissionForUser(id, userID uint) (*models.ExamSubmission, error)

	ExamQuestions(submissionID uint) ([]models.ExamQuestion, error)
	Answers(submissionID uint) ([]models.ExamAnswer, error)
	AnswerFor(submissionID, questionID uint) (*models.ExamAnswer, error)
	SaveAnswer(ans *models.ExamAnswer) error
}
