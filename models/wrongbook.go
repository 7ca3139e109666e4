package models

import (
	"time"

	"gorm.io/gorm"
)

// WrongQuestion records a question a user got wrong, for review until mastered.
type WrongQuestion struct {
	gorm.Model
	UserID      uint       `gorm:"index" json:"userId"`
	QuestionID  uint       `json:"questionId"`
	WrongCount  int        `gorm:"default:1" json:"wrongCount"`
	LastWrongAt time.Time  `json:"lastWrongAt"`
	IsMastered  bool       `gorm:"default:false" json:"isMastered"`
	MasteredAt  *time.Time `json:"masteredAt,omitempty"`
}
