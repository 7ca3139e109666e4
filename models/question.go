package models

import (
	"encoding/json"

	"gorm.io/gorm"
)

type QuestionOption struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

type Question struct {
	gorm.Model
	TopicID    uint   `gorm:"index" json:"topicId"`
	Type       string `gorm:"not null" json:"type"` // single, multiple, fill, subjective
	Content    string `gorm:"not null" json:"content"`
	Options    string `json:"-"` // JSON array of QuestionOption, empty for fill/subjective
	Answer     string `json:"-"` // JSON: option id, id array, or free text
	Analysis   string `json:"analysis"`
	Difficulty int    `gorm:"default:1" json:"difficulty"`
	Score      int    `gorm:"default:5" json:"score"`
	Tags       string `json:"-"` // JSON array of strings
}

func (q *Question) OptionList() []QuestionOption {
	var options []QuestionOption
	if q.Options != "" {
		json.Unmarshal([]byte(q.Options), &options)
	}
	return options
}

func (q *Question) SetOptions(options []QuestionOption) {
	if len(options) == 0 {
		q.Options = ""
		return
	}
	data, _ := json.Marshal(options)
	q.Options = string(data)
}

func (q *Question) TagList() []string {
	tags := []string{}
	if q.Tags != "" {
		json.Unmarshal([]byte(q.Tags), &tags)
	}
	return tags
}

func (q *Question) SetTags(tags []string) {
	if tags == nil {
		tags = []string{}
	}
	data, _ := json.Marshal(tags)
	q.Tags = string(data)
}

// AnswerRaw returns the stored canonical answer as a JSON value.
func (q *Question) AnswerRaw() json.RawMessage {
	return json.RawMessage(q.Answer)
}
