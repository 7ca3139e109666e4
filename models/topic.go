package models

import "gorm.io/gorm"

// Topic is one node of the two-level subject/chapter hierarchy.
// A subject has ParentID nil; a chapter points at its subject.
type Topic struct {
	gorm.Model
	Name      string `gorm:"not null" json:"name"`
	ParentID  *uint  `gorm:"index" json:"parentId"`
	SortOrder int    `json:"sortOrder"`
}

func (t *Topic) IsSubject() bool {
	return t.ParentID == nil
}
