package controllers

import (
	"errors"

	"qbank/config"
	"qbank/models"
	"qbank/utils"

	"gorm.io/gorm"

	"github.com/gofiber/fiber/v2"
)

type TopicsController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewTopicsController(db *gorm.DB, cfg *config.Config) *TopicsController {
	return &TopicsController{DB: db, Cfg: cfg}
}

// topicView enriches a topic with its place in the subject/chapter hierarchy.
func topicView(t *models.Topic) fiber.Map {
	kind := "chapter"
	var courseID interface{}
	if t.IsSubject() {
		kind = "course"
	} else {
		courseID = *t.ParentID
	}
	return fiber.Map{
		"id":        t.ID,
		"name":      t.Name,
		"parentId":  t.ParentID,
		"sortOrder": t.SortOrder,
		"type":      kind,
		"courseId":  courseID,
	}
}

// List returns the whole topic tree as a flat list.
func (tc *TopicsController) List(c *fiber.Ctx) error {
	var topics []models.Topic
	if err := tc.DB.Order("sort_order, id").Find(&topics).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	views := make([]fiber.Map, 0, len(topics))
	for i := range topics {
		views = append(views, topicView(&topics[i]))
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"topics": views})
}

// Stats returns per-subject chapter lists with question counts.
func (tc *TopicsController) Stats(c *fiber.Ctx) error {
	var topics []models.Topic
	if err := tc.DB.Order("sort_order, id").Find(&topics).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	counts := make(map[uint]int64)
	rows := []struct {
		TopicID uint
		N       int64
	}{}
	if err := tc.DB.Model(&models.Question{}).
		Select("topic_id, count(*) as n").
		Group("topic_id").
		Scan(&rows).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}
	for _, r := range rows {
		counts[r.TopicID] = r.N
	}

	type chapterStat struct {
		ID            uint   `json:"id"`
		Name          string `json:"name"`
		QuestionCount int64  `json:"questionCount"`
	}
	type subjectStat struct {
		ID            uint          `json:"id"`
		Name          string        `json:"name"`
		Chapters      []chapterStat `json:"chapters"`
		QuestionCount int64         `json:"questionCount"`
	}

	var subjects []subjectStat
	index := make(map[uint]int)
	for _, t := range topics {
		if t.IsSubject() {
			index[t.ID] = len(subjects)
			subjects = append(subjects, subjectStat{ID: t.ID, Name: t.Name, Chapters: []chapterStat{}})
		}
	}
	var grandTotal int64
	for _, t := range topics {
		if t.IsSubject() {
			continue
		}
		i, ok := index[*t.ParentID]
		if !ok {
			continue
		}
		n := counts[t.ID]
		subjects[i].Chapters = append(subjects[i].Chapters, chapterStat{ID: t.ID, Name: t.Name, QuestionCount: n})
		subjects[i].QuestionCount += n
		grandTotal += n
	}
	if subjects == nil {
		subjects = []subjectStat{}
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"subjects":       subjects,
		"totalQuestions": grandTotal,
	})
}

// Create adds a subject (no parentId) or a chapter under an existing subject.
func (tc *TopicsController) Create(c *fiber.Ctx) error {
	type CreateInput struct {
		Name      string `json:"name"`
		ParentID  *uint  `json:"parentId"`
		SortOrder int    `json:"sortOrder"`
	}

	var input CreateInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if input.Name == "" {
		return utils.BadRequest(c, "Name is required")
	}

	if input.ParentID != nil {
		var parent models.Topic
		if err := tc.DB.First(&parent, *input.ParentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.BadRequest(c, "Parent topic does not exist")
			}
			return utils.InternalServerError(c, "Could not query database")
		}
		if !parent.IsSubject() {
			return utils.BadRequest(c, "Chapters cannot be nested under chapters")
		}
	}

	topic := models.Topic{Name: input.Name, ParentID: input.ParentID, SortOrder: input.SortOrder}
	if err := tc.DB.Create(&topic).Error; err != nil {
		return utils.InternalServerError(c, "Could not create topic")
	}
	return utils.Created(c, fiber.Map{"topic": topicView(&topic)})
}

// Delete removes a topic, any child chapters and every question under them.
func (tc *TopicsController) Delete(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return utils.BadRequest(c, "Invalid topic id")
	}

	var topic models.Topic
	if err := tc.DB.First(&topic, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Topic not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	doomed := []uint{topic.ID}
	if topic.IsSubject() {
		var children []models.Topic
		if err := tc.DB.Where("parent_id = ?", topic.ID).Find(&children).Error; err != nil {
			return utils.InternalServerError(c, "Could not query database")
		}
		for _, ch := range children {
			doomed = append(doomed, ch.ID)
		}
	}

	var deletedQuestions int64
	err = tc.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("topic_id IN ?", doomed).Delete(&models.Question{})
		if res.Error != nil {
			return res.Error
		}
		deletedQuestions = res.RowsAffected
		return tx.Where("id IN ?", doomed).Delete(&models.Topic{}).Error
	})
	if err != nil {
		return utils.InternalServerError(c, "Could not delete topic")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"deletedTopics":    len(doomed),
		"deletedQuestions": deletedQuestions,
	})
}
