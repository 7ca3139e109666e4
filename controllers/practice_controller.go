package controllers

import (
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"qbank/config"
	"qbank/exam"
	"qbank/middleware"
	"qbank/models"
	"qbank/utils"

	"gorm.io/gorm"

	"github.com/gofiber/fiber/v2"
)

// PracticeController runs untimed, topic-scoped practice sessions. The set
// of questions already served to each session lives in process memory only;
// a restart forgets it and questions may repeat, which is acceptable for
// practice.
type PracticeController struct {
	DB  *gorm.DB
	Cfg *config.Config

	mu     sync.Mutex
	rng    *rand.Rand
	served map[uint]map[uint]bool // session id -> question ids already served
}

func NewPracticeController(db *gorm.DB, cfg *config.Config, rng *rand.Rand) *PracticeController {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &PracticeController{
		DB:     db,
		Cfg:    cfg,
		rng:    rng,
		served: make(map[uint]map[uint]bool),
	}
}

// sessionChapters resolves the session's topic selection to chapter ids.
func (pc *PracticeController) sessionChapters(session *models.PracticeSession) ([]uint, error) {
	var topics []models.Topic
	if err := pc.DB.Find(&topics).Error; err != nil {
		return nil, err
	}
	return exam.ExpandToChapters(session.TopicIDList(), topics), nil
}

func (pc *PracticeController) ownedSession(c *fiber.Ctx, param string) (*models.PracticeSession, error) {
	claims := middleware.Claims(c)
	id, err := c.ParamsInt(param)
	if err != nil {
		return nil, utils.BadRequest(c, "Invalid session id")
	}

	var session models.PracticeSession
	if err := pc.DB.First(&session, id).Error; err != nil || session.UserID != claims.UserID {
		return nil, utils.NotFound(c, "Practice session not found")
	}
	return &session, nil
}

// Start opens a session over the selected topics. Subject ids expand to
// their chapters; the question count is capped by the available pool.
func (pc *PracticeController) Start(c *fiber.Ctx) error {
	claims := middleware.Claims(c)

	type startInput struct {
		TopicIDs      []uint `json:"topicIds"`
		QuestionCount int    `json:"questionCount"`
	}
	var input startInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if len(input.TopicIDs) == 0 || input.QuestionCount <= 0 {
		return utils.BadRequest(c, "Topic ids and question count are required")
	}

	var topics []models.Topic
	if err := pc.DB.Find(&topics).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}
	chapters := exam.ExpandToChapters(input.TopicIDs, topics)

	var available int64
	if len(chapters) > 0 {
		if err := pc.DB.Model(&models.Question{}).
			Where("topic_id IN ?", chapters).
			Count(&available).Error; err != nil {
			return utils.InternalServerError(c, "Could not query database")
		}
	}
	if available == 0 {
		return utils.BadRequest(c, "No questions available for the selected topics")
	}

	total := input.QuestionCount
	if int64(total) > available {
		total = int(available)
	}

	session := models.PracticeSession{
		UserID:         claims.UserID,
		TotalQuestions: total,
		StartTime:      time.Now(),
		Status:         models.PracticeInProgress,
	}
	session.SetTopicIDs(input.TopicIDs)
	if err := pc.DB.Create(&session).Error; err != nil {
		return utils.InternalServerError(c, "Could not create practice session")
	}
	return utils.Created(c, fiber.Map{"session": session})
}

// Question serves a random question the session has not answered or seen
// yet. 404 once the pool is exhausted.
func (pc *PracticeController) Question(c *fiber.Ctx) error {
	session, err := pc.ownedSession(c, "sessionId")
	if err != nil {
		return err
	}
	if session.Status != models.PracticeInProgress {
		return utils.BadRequest(c, "Practice session is not in progress")
	}

	chapters, err := pc.sessionChapters(session)
	if err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}
	if len(chapters) == 0 {
		return utils.NotFound(c, "No more questions available.")
	}

	var answered []uint
	if err := pc.DB.Model(&models.PracticeAnswer{}).
		Where("session_id = ?", session.ID).
		Pluck("question_id", &answered).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	query := pc.DB.Where("topic_id IN ?", chapters)
	if len(answered) > 0 {
		query = query.Where("id NOT IN ?", answered)
	}
	var candidates []models.Question
	if err := query.Find(&candidates).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	pc.mu.Lock()
	seen := pc.served[session.ID]
	if seen == nil {
		seen = make(map[uint]bool)
		pc.served[session.ID] = seen
	}
	var fresh []models.Question
	for _, q := range candidates {
		if !seen[q.ID] {
			fresh = append(fresh, q)
		}
	}
	var picked *models.Question
	if len(fresh) > 0 {
		q := fresh[pc.rng.Intn(len(fresh))]
		seen[q.ID] = true
		picked = &q
	}
	var options []models.QuestionOption
	if picked != nil {
		options = picked.OptionList()
		pc.rng.Shuffle(len(options), func(i, j int) {
			options[i], options[j] = options[j], options[i]
		})
	}
	pc.mu.Unlock()

	if picked == nil {
		return utils.NotFound(c, "No more questions available.")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"question": fiber.Map{
			"id":         picked.ID,
			"topicId":    picked.TopicID,
			"type":       picked.Type,
			"content":    picked.Content,
			"options":    options,
			"difficulty": picked.Difficulty,
		},
		"answeredCount":  len(answered),
		"totalQuestions": session.TotalQuestions,
	})
}

// Submit records a batch of answers, grades them and keeps the correct
// count in sync. Wrong answers land in the caller's wrongbook.
func (pc *PracticeController) Submit(c *fiber.Ctx) error {
	claims := middleware.Claims(c)

	type answerInput struct {
		QuestionID uint            `json:"questionId"`
		Answer     json.RawMessage `json:"answer"`
	}
	type submitInput struct {
		SessionID uint          `json:"sessionId"`
		Answers   []answerInput `json:"answers"`
		Completed bool          `json:"completed"`
	}
	var input submitInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	var session models.PracticeSession
	if err := pc.DB.First(&session, input.SessionID).Error; err != nil || session.UserID != claims.UserID {
		return utils.NotFound(c, "Practice session not found")
	}
	if session.Status != models.PracticeInProgress {
		return utils.BadRequest(c, "Practice session is not in progress")
	}

	for _, in := range input.Answers {
		var question models.Question
		if err := pc.DB.First(&question, in.QuestionID).Error; err != nil {
			continue
		}
		correct := exam.CheckAnswer(question.AnswerRaw(), in.Answer)

		var answer models.PracticeAnswer
		err := pc.DB.Where("session_id = ? AND question_id = ?", session.ID, in.QuestionID).
			First(&answer).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			answer = models.PracticeAnswer{SessionID: session.ID, QuestionID: in.QuestionID}
		} else if err != nil {
			return utils.InternalServerError(c, "Could not query database")
		}
		answer.UserAnswer = string(in.Answer)
		answer.IsCorrect = correct
		answer.AnsweredAt = time.Now()
		if err := pc.DB.Save(&answer).Error; err != nil {
			return utils.InternalServerError(c, "Could not save answer")
		}

		if !correct {
			recordWrongQuestion(pc.DB, claims.UserID, in.QuestionID)
		}
	}

	var correctCount int64
	if err := pc.DB.Model(&models.PracticeAnswer{}).
		Where("session_id = ? AND is_correct = ?", session.ID, true).
		Count(&correctCount).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}
	session.CorrectCount = int(correctCount)

	if input.Completed {
		now := time.Now()
		session.Status = models.PracticeCompleted
		session.EndTime = &now
		pc.mu.Lock()
		delete(pc.served, session.ID)
		pc.mu.Unlock()
	}
	if err := pc.DB.Save(&session).Error; err != nil {
		return utils.InternalServerError(c, "Could not update session")
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"session": session})
}

func (pc *PracticeController) Session(c *fiber.Ctx) error {
	session, err := pc.ownedSession(c, "id")
	if err != nil {
		return err
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"session":  session,
		"topicIds": session.TopicIDList(),
	})
}

// Result returns the per-question breakdown with canonical answers.
func (pc *PracticeController) Result(c *fiber.Ctx) error {
	session, err := pc.ownedSession(c, "sessionId")
	if err != nil {
		return err
	}

	var answers []models.PracticeAnswer
	if err := pc.DB.Where("session_id = ?", session.ID).
		Order("answered_at").
		Find(&answers).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	results := make([]fiber.Map, 0, len(answers))
	for _, a := range answers {
		var question models.Question
		if err := pc.DB.First(&question, a.QuestionID).Error; err != nil {
			continue
		}
		results = append(results, fiber.Map{
			"question": fiber.Map{
				"id":       question.ID,
				"type":     question.Type,
				"content":  question.Content,
				"options":  question.OptionList(),
				"answer":   question.AnswerRaw(),
				"analysis": question.Analysis,
			},
			"userAnswer": a.AnswerRaw(),
			"isCorrect":  a.IsCorrect,
		})
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"session":      session,
		"results":      results,
		"correctCount": session.CorrectCount,
		"totalCount":   len(results),
	})
}

// History lists the caller's sessions, newest first.
func (pc *PracticeController) History(c *fiber.Ctx) error {
	claims := middleware.Claims(c)
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 20)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	query := pc.DB.Model(&models.PracticeSession{}).Where("user_id = ?", claims.UserID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	var sessions []models.PracticeSession
	if err := query.Order("id desc").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&sessions).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}
	return utils.Paginate(c, sessions, total, page, limit)
}
