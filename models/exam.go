package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

const (
	ExamDraft     = "draft"
	ExamPublished = "published"

	SubmissionInProgress = "in_progress"
	SubmissionCompleted  = "completed"
)

type Exam struct {
	gorm.Model
	Name        string     `gorm:"not null" json:"name"`
	Description string     `json:"description"`
	Duration    int        `gorm:"default:60" json:"duration"` // minutes
	Status      string     `gorm:"default:draft" json:"status"` // draft, published
	IsActive    bool       `gorm:"default:true" json:"isActive"`
	CreatedBy   uint       `json:"createdBy"`
	Rules       []ExamRule `json:"rules"`
}

// TypeSpec says how many questions of one type a rule draws and what each is worth.
type TypeSpec struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
	Score int    `json:"score"`
}

// ExamRule selects chapters and per-type draw counts for its exam.
type ExamRule struct {
	gorm.Model
	ExamID    uint   `gorm:"index" json:"examId"`
	TopicIDs  string `json:"-"` // JSON array of chapter ids
	TypeSpecs string `json:"-"` // JSON array of TypeSpec
}

func (r *ExamRule) TopicIDList() []uint {
	ids := []uint{}
	if r.TopicIDs != "" {
		json.Unmarshal([]byte(r.TopicIDs), &ids)
	}
	return ids
}

func (r *ExamRule) SetTopicIDs(ids []uint) {
	if ids == nil {
		ids = []uint{}
	}
	data, _ := json.Marshal(ids)
	r.TopicIDs = string(data)
}

func (r *ExamRule) SpecList() []TypeSpec {
	specs := []TypeSpec{}
	if r.TypeSpecs != "" {
		json.Unmarshal([]byte(r.TypeSpecs), &specs)
	}
	return specs
}

func (r *ExamRule) SetSpecs(specs []TypeSpec) {
	if specs == nil {
		specs = []TypeSpec{}
	}
	data, _ := json.Marshal(specs)
	r.TypeSpecs = string(data)
}

// ExamSubmission is one timed attempt by one user at one exam.
type ExamSubmission struct {
	gorm.Model
	ExamID      uint       `gorm:"index" json:"examId"`
	UserID      uint       `gorm:"index" json:"userId"`
	StartTime   time.Time  `json:"startTime"`
	EndTime     time.Time  `json:"endTime"`
	Status      string     `gorm:"default:in_progress" json:"status"` // in_progress, completed
	Score       int        `json:"score"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// ExamQuestion binds a drawn question to a submission position and per-exam score.
// "order" is a reserved word in SQL, hence the question_order column.
type ExamQuestion struct {
	gorm.Model
	ExamID       uint `gorm:"index" json:"examId"`
	SubmissionID uint `gorm:"index" json:"submissionId"`
	QuestionID   uint `json:"questionId"`
	Order        int  `gorm:"column:question_order" json:"order"`
	Score        int  `json:"score"`
}

type ExamAnswer struct {
	gorm.Model
	SubmissionID uint   `gorm:"index" json:"submissionId"`
	QuestionID   uint   `json:"questionId"`
	Answer       string `json:"-"` // JSON: option id, id array, or free text
}

func (a *ExamAnswer) AnswerRaw() json.RawMessage {
	return json.RawMessage(a.Answer)
}
