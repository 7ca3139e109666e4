package controllers

import (
	"encoding/json"
	"errors"

	"qbank/config"
	"qbank/exam"
	"qbank/middleware"
	"qbank/models"
	"qbank/utils"

	"gorm.io/gorm"

	"github.com/gofiber/fiber/v2"
)

type ExamsController struct {
	DB  *gorm.DB
	Cfg *config.Config
	Svc *exam.Service
}

func NewExamsController(db *gorm.DB, cfg *config.Config, svc *exam.Service) *ExamsController {
	return &ExamsController{DB: db, Cfg: cfg, Svc: svc}
}

// examError maps exam package errors onto HTTP responses. Not-found
// sentinels become 404, state and pool problems 400.
func examError(c *fiber.Ctx, err error) error {
	var insufficient *exam.InsufficientQuestionsError
	switch {
	case errors.Is(err, exam.ErrExamNotFound),
		errors.Is(err, exam.ErrSubmissionNotFound),
		errors.Is(err, exam.ErrQuestionNotFound):
		return utils.NotFound(c, err.Error())
	case errors.As(err, &insufficient),
		errors.Is(err, exam.ErrNotInProgress),
		errors.Is(err, exam.ErrExamExpired),
		errors.Is(err, exam.ErrNotCompleted):
		return utils.BadRequest(c, err.Error())
	default:
		return utils.InternalServerError(c, "Could not process exam request")
	}
}

type ruleView struct {
	ID        uint              `json:"id"`
	TopicIDs  []uint            `json:"topicIds"`
	TypeSpecs []models.TypeSpec `json:"typeSpecs"`
}

func examView(e *models.Exam) fiber.Map {
	rules := make([]ruleView, 0, len(e.Rules))
	for i := range e.Rules {
		r := &e.Rules[i]
		rules = append(rules, ruleView{ID: r.ID, TopicIDs: r.TopicIDList(), TypeSpecs: r.SpecList()})
	}
	return fiber.Map{
		"id":          e.ID,
		"name":        e.Name,
		"description": e.Description,
		"duration":    e.Duration,
		"status":      e.Status,
		"isActive":    e.IsActive,
		"createdBy":   e.CreatedBy,
		"rules":       rules,
		"createdAt":   e.CreatedAt,
	}
}

type ruleInput struct {
	TopicIDs  []uint            `json:"topicIds"`
	TypeSpecs []models.TypeSpec `json:"typeSpecs"`
}

// buildRules converts rule payloads to rows, expanding subject selectors to
// their chapters up front so stored rules always reference chapters.
func (ec *ExamsController) buildRules(inputs []ruleInput) ([]models.ExamRule, error) {
	var topics []models.Topic
	if err := ec.DB.Find(&topics).Error; err != nil {
		return nil, err
	}

	rules := make([]models.ExamRule, 0, len(inputs))
	for _, in := range inputs {
		var rule models.ExamRule
		rule.SetTopicIDs(exam.ExpandToChapters(in.TopicIDs, topics))
		specs := make([]models.TypeSpec, 0, len(in.TypeSpecs))
		for _, spec := range in.TypeSpecs {
			if normalized, ok := exam.NormalizeType(spec.Type); ok {
				spec.Type = normalized
			}
			specs = append(specs, spec)
		}
		rule.SetSpecs(specs)
		rules = append(rules, rule)
	}
	return rules, nil
}

// List returns exams with an optional status filter. Students only see
// published active exams.
func (ec *ExamsController) List(c *fiber.Ctx) error {
	claims := middleware.Claims(c)
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 20)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	query := ec.DB.Model(&models.Exam{})
	if claims.Role == models.RoleStudent {
		query = query.Where("status = ? AND is_active = ?", models.ExamPublished, true)
	} else if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	var exams []models.Exam
	if err := query.Preload("Rules").Order("id desc").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&exams).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	views := make([]fiber.Map, 0, len(exams))
	for i := range exams {
		views = append(views, examView(&exams[i]))
	}
	return utils.Paginate(c, views, total, page, limit)
}

func (ec *ExamsController) Create(c *fiber.Ctx) error {
	claims := middleware.Claims(c)

	type createInput struct {
		Name        string      `json:"name"`
		Description string      `json:"description"`
		Duration    int         `json:"duration"`
		Rules       []ruleInput `json:"rules"`
	}
	var input createInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if input.Name == "" {
		return utils.BadRequest(c, "Name is required")
	}
	if input.Duration <= 0 {
		input.Duration = 60
	}

	rules, err := ec.buildRules(input.Rules)
	if err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	e := models.Exam{
		Name:        input.Name,
		Description: input.Description,
		Duration:    input.Duration,
		Status:      models.ExamDraft,
		IsActive:    true,
		CreatedBy:   claims.UserID,
		Rules:       rules,
	}
	if err := ec.DB.Create(&e).Error; err != nil {
		return utils.InternalServerError(c, "Could not create exam")
	}
	return utils.Created(c, fiber.Map{"exam": examView(&e)})
}

func (ec *ExamsController) Get(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return utils.BadRequest(c, "Invalid exam id")
	}

	var e models.Exam
	if err := ec.DB.Preload("Rules").First(&e, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Exam not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"exam": examView(&e)})
}

// Update replaces basic fields and, when present, the whole rule set.
func (ec *ExamsController) Update(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return utils.BadRequest(c, "Invalid exam id")
	}

	var e models.Exam
	if err := ec.DB.Preload("Rules").First(&e, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Exam not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	type updateInput struct {
		Name        *string      `json:"name"`
		Description *string      `json:"description"`
		Duration    *int         `json:"duration"`
		IsActive    *bool        `json:"isActive"`
		Rules       *[]ruleInput `json:"rules"`
	}
	var input updateInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	if input.Name != nil {
		e.Name = *input.Name
	}
	if input.Description != nil {
		e.Description = *input.Description
	}
	if input.Duration != nil && *input.Duration > 0 {
		e.Duration = *input.Duration
	}
	if input.IsActive != nil {
		e.IsActive = *input.IsActive
	}

	err = ec.DB.Transaction(func(tx *gorm.DB) error {
		if input.Rules != nil {
			if err := tx.Where("exam_id = ?", e.ID).Delete(&models.ExamRule{}).Error; err != nil {
				return err
			}
			rules, err := ec.buildRules(*input.Rules)
			if err != nil {
				return err
			}
			for i := range rules {
				rules[i].ExamID = e.ID
			}
			if len(rules) > 0 {
				if err := tx.Create(&rules).Error; err != nil {
					return err
				}
			}
			e.Rules = rules
		}
		return tx.Omit("Rules").Save(&e).Error
	})
	if err != nil {
		return utils.InternalServerError(c, "Could not update exam")
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"exam": examView(&e)})
}

// Delete removes an exam and everything hanging off it. Deleting a missing
// exam succeeds.
func (ec *ExamsController) Delete(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return utils.BadRequest(c, "Invalid exam id")
	}

	err = ec.DB.Transaction(func(tx *gorm.DB) error {
		var subIDs []uint
		if err := tx.Model(&models.ExamSubmission{}).
			Where("exam_id = ?", id).
			Pluck("id", &subIDs).Error; err != nil {
			return err
		}
		if len(subIDs) > 0 {
			if err := tx.Where("submission_id IN ?", subIDs).Delete(&models.ExamAnswer{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("exam_id = ?", id).Delete(&models.ExamQuestion{}).Error; err != nil {
			return err
		}
		if err := tx.Where("exam_id = ?", id).Delete(&models.ExamSubmission{}).Error; err != nil {
			return err
		}
		if err := tx.Where("exam_id = ?", id).Delete(&models.ExamRule{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Exam{}, id).Error
	})
	if err != nil {
		return utils.InternalServerError(c, "Could not delete exam")
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"deleted": true})
}

func (ec *ExamsController) setStatus(c *fiber.Ctx, status string) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return utils.BadRequest(c, "Invalid exam id")
	}

	var e models.Exam
	if err := ec.DB.First(&e, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Exam not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	e.Status = status
	if err := ec.DB.Save(&e).Error; err != nil {
		return utils.InternalServerError(c, "Could not update exam")
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"exam": examView(&e)})
}

func (ec *ExamsController) Publish(c *fiber.Ctx) error {
	return ec.setStatus(c, models.ExamPublished)
}

func (ec *ExamsController) Unpublish(c *fiber.Ctx) error {
	return ec.setStatus(c, models.ExamDraft)
}

// Preview reports per-type pool coverage without starting an attempt.
func (ec *ExamsController) Preview(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return utils.BadRequest(c, "Invalid exam id")
	}

	preview, err := ec.Svc.Preview(uint(id))
	if err != nil {
		return examError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, preview)
}

// Start opens a timed submission for the caller.
func (ec *ExamsController) Start(c *fiber.Ctx) error {
	claims := middleware.Claims(c)
	id, err := c.ParamsInt("id")
	if err != nil {
		return utils.BadRequest(c, "Invalid exam id")
	}

	var e models.Exam
	if err := ec.DB.First(&e, id).Error; err == nil {
		if e.Status != models.ExamPublished || !e.IsActive {
			return utils.BadRequest(c, "Exam is not open for attempts")
		}
	}

	sub, err := ec.Svc.Start(uint(id), claims.UserID)
	if err != nil {
		return examError(c, err)
	}
	return utils.Created(c, fiber.Map{"submission": sub})
}

// History lists the caller's submissions, newest first.
func (ec *ExamsController) History(c *fiber.Ctx) error {
	claims := middleware.Claims(c)
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 20)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	query := ec.DB.Model(&models.ExamSubmission{}).Where("user_id = ?", claims.UserID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	var subs []models.ExamSubmission
	if err := query.Order("id desc").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&subs).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	type historyRow struct {
		models.ExamSubmission
		ExamName string `json:"examName"`
	}
	rows := make([]historyRow, 0, len(subs))
	for _, sub := range subs {
		row := historyRow{ExamSubmission: sub}
		var e models.Exam
		if err := ec.DB.First(&e, sub.ExamID).Error; err == nil {
			row.ExamName = e.Name
		}
		rows = append(rows, row)
	}
	return utils.Paginate(c, rows, total, page, limit)
}

// SubmissionQuestion returns one question of the caller's attempt by its
// 1-based position.
func (ec *ExamsController) SubmissionQuestion(c *fiber.Ctx) error {
	claims := middleware.Claims(c)
	submissionID, err := c.ParamsInt("submissionId")
	if err != nil {
		return utils.BadRequest(c, "Invalid submission id")
	}
	order, err := c.ParamsInt("order")
	if err != nil {
		return utils.BadRequest(c, "Invalid question order")
	}

	view, err := ec.Svc.Question(uint(submissionID), claims.UserID, order)
	if err != nil {
		return examError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, view)
}

// SubmitAnswer records one answer; completed=true finishes the attempt.
func (ec *ExamsController) SubmitAnswer(c *fiber.Ctx) error {
	claims := middleware.Claims(c)
	submissionID, err := c.ParamsInt("submissionId")
	if err != nil {
		return utils.BadRequest(c, "Invalid submission id")
	}

	type answerInput struct {
		QuestionID uint            `json:"questionId"`
		Answer     json.RawMessage `json:"answer"`
		Completed  bool            `json:"completed"`
	}
	var input answerInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if input.QuestionID == 0 {
		return utils.BadRequest(c, "Question id is required")
	}

	sub, err := ec.Svc.SubmitAnswer(uint(submissionID), claims.UserID, input.QuestionID, input.Answer, input.Completed)
	if err != nil {
		return examError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"submission": sub})
}

// Result returns the graded report for a completed attempt.
func (ec *ExamsController) Result(c *fiber.Ctx) error {
	claims := middleware.Claims(c)
	submissionID, err := c.ParamsInt("submissionId")
	if err != nil {
		return utils.BadRequest(c, "Invalid submission id")
	}

	result, err := ec.Svc.Result(uint(submissionID), claims.UserID)
	if err != nil {
		return examError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, result)
}
