package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

const (
	PracticeInProgress = "in_progress"
	PracticeCompleted  = "completed"
	PracticeAbandoned  = "abandoned"
)

// PracticeSession is an untimed, topic-scoped run through the question pool.
type PracticeSession struct {
	gorm.Model
	UserID         uint       `gorm:"index" json:"userId"`
	TopicIDs       string     `json:"-"` // JSON array of topic ids (subjects or chapters)
	TotalQuestions int        `json:"totalQuestions"`
	CorrectCount   int        `json:"correctCount"`
	StartTime      time.Time  `json:"startTime"`
	EndTime        *time.Time `json:"endTime,omitempty"`
	Status         string     `gorm:"default:in_progress" json:"status"` // in_progress, completed, abandoned
}

func (s *PracticeSession) TopicIDList() []uint {
	ids := []uint{}
	if s.TopicIDs != "" {
		json.Unmarshal([]byte(s.TopicIDs), &ids)
	}
	return ids
}

func (s *PracticeSession) SetTopicIDs(ids []uint) {
	if ids == nil {
		ids = []uint{}
	}
	data, _ := json.Marshal(ids)
	s.TopicIDs = string(data)
}

type PracticeAnswer struct {
	gorm.Model
	SessionID  uint      `gorm:"index" json:"sessionId"`
	QuestionID uint      `json:"questionId"`
	UserAnswer string    `json:"-"` // JSON: option id, id array, or free text
	IsCorrect  bool      `json:"isCorrect"`
	AnsweredAt time.Time `json:"answeredAt"`
}

func (a *PracticeAnswer) AnswerRaw() json.RawMessage {
	return json.RawMessage(a.UserAnswer)
}
