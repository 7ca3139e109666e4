package controllers

import (
	"encoding/json"
	"errors"

	"qbank/config"
	"qbank/exam"
	"qbank/models"
	"qbank/utils"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

type QuestionsController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewQuestionsController(db *gorm.DB, cfg *config.Config) *QuestionsController {
	return &QuestionsController{DB: db, Cfg: cfg}
}

// questionView is the full teacher-facing view, canonical answer included.
func questionView(q *models.Question) fiber.Map {
	return fiber.Map{
		"id":         q.ID,
		"topicId":    q.TopicID,
		"type":       q.Type,
		"content":    q.Content,
		"options":    q.OptionList(),
		"answer":     q.AnswerRaw(),
		"analysis":   q.Analysis,
		"difficulty": q.Difficulty,
		"score":      q.Score,
		"tags":       q.TagList(),
		"createdAt":  q.CreatedAt,
	}
}

type questionInput struct {
	TopicID    uint                    `json:"topicId" validate:"required"`
	Type       string                  `json:"type" validate:"required"`
	Content    string                  `json:"content" validate:"required"`
	Options    []models.QuestionOption `json:"options"`
	Answer     json.RawMessage         `json:"answer" validate:"required"`
	Analysis   string                  `json:"analysis"`
	Difficulty int                     `json:"difficulty" validate:"omitempty,min=1,max=5"`
	Score      int                     `json:"score" validate:"omitempty,min=1"`
	Tags       []string                `json:"tags"`
}

// validateAnswer checks that a choice question's answer only references
// option ids that exist.
func validateAnswer(qType string, options []models.QuestionOption, answer json.RawMessage) error {
	if qType != exam.TypeSingle && qType != exam.TypeMultiple {
		return nil
	}
	valid := make(map[string]bool, len(options))
	for _, o := range options {
		valid[o.ID] = true
	}

	var ids []string
	if qType == exam.TypeMultiple {
		if err := json.Unmarshal(answer, &ids); err != nil {
			return errors.New("multiple choice answer must be an array of option ids")
		}
		if len(ids) == 0 {
			return errors.New("multiple choice answer must not be empty")
		}
	} else {
		var id string
		if err := json.Unmarshal(answer, &id); err != nil {
			return errors.New("single choice answer must be an option id")
		}
		ids = []string{id}
	}
	for _, id := range ids {
		if !valid[id] {
			return errors.New("answer references an option id that does not exist")
		}
	}
	return nil
}

// List returns questions filtered by topic, type and difficulty.
func (qc *QuestionsController) List(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 20)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	query := qc.DB.Model(&models.Question{})
	if topicID := c.QueryInt("topicId", 0); topicID > 0 {
		query = query.Where("topic_id = ?", topicID)
	}
	if qType := c.Query("type"); qType != "" {
		normalized, ok := exam.NormalizeType(qType)
		if !ok {
			return utils.BadRequest(c, "Unknown question type")
		}
		query = query.Where("type = ?", normalized)
	}
	if difficulty := c.QueryInt("difficulty", 0); difficulty > 0 {
		query = query.Where("difficulty = ?", difficulty)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	var questions []models.Question
	if err := query.Order("id desc").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&questions).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	views := make([]fiber.Map, 0, len(questions))
	for i := range questions {
		views = append(views, questionView(&questions[i]))
	}
	return utils.Paginate(c, views, total, page, limit)
}

func (qc *QuestionsController) Get(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return utils.BadRequest(c, "Invalid question id")
	}

	var question models.Question
	if err := qc.DB.First(&question, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Question not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"question": questionView(&question)})
}

// Create adds a question to a chapter.
func (qc *QuestionsController) Create(c *fiber.Ctx) error {
	var input questionInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if err := validate.Struct(&input); err != nil {
		fieldErrors := make(map[string]string)
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			for _, fe := range ve {
				fieldErrors[fe.Field()] = fe.Tag()
			}
		}
		return utils.ValidationError(c, fieldErrors)
	}

	normalized, ok := exam.NormalizeType(input.Type)
	if !ok {
		return utils.BadRequest(c, "Unknown question type")
	}

	var topic models.Topic
	if err := qc.DB.First(&topic, input.TopicID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.BadRequest(c, "Topic does not exist")
		}
		return utils.InternalServerError(c, "Could not query database")
	}
	if topic.IsSubject() {
		return utils.BadRequest(c, "Questions belong to chapters, not subjects")
	}

	if err := validateAnswer(normalized, input.Options, input.Answer); err != nil {
		return utils.BadRequest(c, err.Error())
	}

	question := models.Question{
		TopicID:  input.TopicID,
		Type:     normalized,
		Content:  input.Content,
		Answer:   string(input.Answer),
		Analysis: input.Analysis,
	}
	question.SetOptions(input.Options)
	question.SetTags(input.Tags)
	if input.Difficulty > 0 {
		question.Difficulty = input.Difficulty
	} else {
		question.Difficulty = 1
	}
	if input.Score > 0 {
		question.Score = input.Score
	} else {
		question.Score = 5
	}

	if err := qc.DB.Create(&question).Error; err != nil {
		return utils.InternalServerError(c, "Could not create question")
	}
	return utils.Created(c, fiber.Map{"question": questionView(&question)})
}

// Update applies a partial update; absent fields keep their value.
func (qc *QuestionsController) Update(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return utils.BadRequest(c, "Invalid question id")
	}

	var question models.Question
	if err := qc.DB.First(&question, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Question not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	type updateInput struct {
		TopicID    *uint                    `json:"topicId"`
		Type       *string                  `json:"type"`
		Content    *string                  `json:"content"`
		Options    *[]models.QuestionOption `json:"options"`
		Answer     json.RawMessage          `json:"answer"`
		Analysis   *string                  `json:"analysis"`
		Difficulty *int                     `json:"difficulty"`
		Score      *int                     `json:"score"`
		Tags       *[]string                `json:"tags"`
	}
	var input updateInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	if input.TopicID != nil {
		var topic models.Topic
		if err := qc.DB.First(&topic, *input.TopicID).Error; err != nil {
			return utils.BadRequest(c, "Topic does not exist")
		}
		if topic.IsSubject() {
			return utils.BadRequest(c, "Questions belong to chapters, not subjects")
		}
		question.TopicID = *input.TopicID
	}
	if input.Type != nil {
		normalized, ok := exam.NormalizeType(*input.Type)
		if !ok {
			return utils.BadRequest(c, "Unknown question type")
		}
		question.Type = normalized
	}
	if input.Content != nil {
		question.Content = *input.Content
	}
	if input.Options != nil {
		question.SetOptions(*input.Options)
	}
	if input.Answer != nil {
		question.Answer = string(input.Answer)
	}
	if input.Analysis != nil {
		question.Analysis = *input.Analysis
	}
	if input.Difficulty != nil {
		question.Difficulty = *input.Difficulty
	}
	if input.Score != nil {
		question.Score = *input.Score
	}
	if input.Tags != nil {
		question.SetTags(*input.Tags)
	}

	if err := validateAnswer(question.Type, question.OptionList(), question.AnswerRaw()); err != nil {
		return utils.BadRequest(c, err.Error())
	}

	if err := qc.DB.Save(&question).Error; err != nil {
		return utils.InternalServerError(c, "Could not update question")
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"question": questionView(&question)})
}

func (qc *QuestionsController) Delete(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return utils.BadRequest(c, "Invalid question id")
	}

	res := qc.DB.Delete(&models.Question{}, id)
	if res.Error != nil {
		return utils.InternalServerError(c, "Could not delete question")
	}
	if res.RowsAffected == 0 {
		return utils.NotFound(c, "Question not found")
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"deleted": true})
}
