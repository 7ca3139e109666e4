package controllers

import (
	"errors"
	"time"

	"qbank/config"
	"qbank/middleware"
	"qbank/models"
	"qbank/utils"

	"gorm.io/gorm"

	"github.com/gofiber/fiber/v2"
)

type UsersController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewUsersController(db *gorm.DB, cfg *config.Config) *UsersController {
	return &UsersController{DB: db, Cfg: cfg}
}

// recordWrongQuestion upserts a wrongbook entry: first miss creates it,
// repeats bump the counter and clear any earlier mastery.
func recordWrongQuestion(db *gorm.DB, userID, questionID uint) error {
	var entry models.WrongQuestion
	err := db.Where("user_id = ? AND question_id = ?", userID, questionID).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		entry = models.WrongQuestion{
			UserID:      userID,
			QuestionID:  questionID,
			WrongCount:  1,
			LastWrongAt: time.Now(),
		}
		return db.Create(&entry).Error
	}
	if err != nil {
		return err
	}

	entry.WrongCount++
	entry.LastWrongAt = time.Now()
	entry.IsMastered = false
	entry.MasteredAt = nil
	return db.Save(&entry).Error
}

// Wrongbook lists the caller's wrong questions, most recently missed first.
func (uc *UsersController) Wrongbook(c *fiber.Ctx) error {
	claims := middleware.Claims(c)
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 20)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	query := uc.DB.Model(&models.WrongQuestion{}).Where("user_id = ?", claims.UserID)
	if mastered := c.Query("isMastered"); mastered != "" {
		query = query.Where("is_mastered = ?", mastered == "true")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	var entries []models.WrongQuestion
	if err := query.Order("last_wrong_at desc").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&entries).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	items := make([]fiber.Map, 0, len(entries))
	for _, entry := range entries {
		item := fiber.Map{
			"id":          entry.ID,
			"questionId":  entry.QuestionID,
			"wrongCount":  entry.WrongCount,
			"lastWrongAt": entry.LastWrongAt,
			"isMastered":  entry.IsMastered,
			"masteredAt":  entry.MasteredAt,
		}
		var question models.Question
		if err := uc.DB.First(&question, entry.QuestionID).Error; err == nil {
			item["question"] = fiber.Map{
				"id":       question.ID,
				"topicId":  question.TopicID,
				"type":     question.Type,
				"content":  question.Content,
				"options":  question.OptionList(),
				"answer":   question.AnswerRaw(),
				"analysis": question.Analysis,
			}
		}
		items = append(items, item)
	}
	return utils.Paginate(c, items, total, page, limit)
}

// RecordWrong adds or bumps a wrongbook entry for the caller.
func (uc *UsersController) RecordWrong(c *fiber.Ctx) error {
	claims := middleware.Claims(c)
	questionID, err := c.ParamsInt("questionId")
	if err != nil {
		return utils.BadRequest(c, "Invalid question id")
	}

	var question models.Question
	if err := uc.DB.First(&question, questionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Question not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	if err := recordWrongQuestion(uc.DB, claims.UserID, uint(questionID)); err != nil {
		return utils.InternalServerError(c, "Could not update wrongbook")
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"recorded": true})
}

// MarkMastered flags a wrongbook entry as mastered.
func (uc *UsersController) MarkMastered(c *fiber.Ctx) error {
	claims := middleware.Claims(c)
	questionID, err := c.ParamsInt("questionId")
	if err != nil {
		return utils.BadRequest(c, "Invalid question id")
	}

	var entry models.WrongQuestion
	if err := uc.DB.Where("user_id = ? AND question_id = ?", claims.UserID, questionID).
		First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Wrongbook entry not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	now := time.Now()
	entry.IsMastered = true
	entry.MasteredAt = &now
	if err := uc.DB.Save(&entry).Error; err != nil {
		return utils.InternalServerError(c, "Could not update wrongbook")
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"entry": entry})
}

// Profile returns the caller's account and wrongbook mastery stats.
func (uc *UsersController) Profile(c *fiber.Ctx) error {
	claims := middleware.Claims(c)

	var user models.User
	if err := uc.DB.First(&user, claims.UserID).Error; err != nil {
		return utils.NotFound(c, "User not found")
	}

	var totalWrong, mastered int64
	if err := uc.DB.Model(&models.WrongQuestion{}).
		Where("user_id = ?", user.ID).
		Count(&totalWrong).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}
	if err := uc.DB.Model(&models.WrongQuestion{}).
		Where("user_id = ? AND is_mastered = ?", user.ID, true).
		Count(&mastered).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	var examCount, practiceCount int64
	uc.DB.Model(&models.ExamSubmission{}).Where("user_id = ?", user.ID).Count(&examCount)
	uc.DB.Model(&models.PracticeSession{}).Where("user_id = ?", user.ID).Count(&practiceCount)

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"user": safeUser(&user),
		"stats": fiber.Map{
			"wrongQuestions":   totalWrong,
			"mastered":         mastered,
			"unmastered":       totalWrong - mastered,
			"examSubmissions":  examCount,
			"practiceSessions": practiceCount,
		},
	})
}
