package exam

import (
	"errors"
	"fmt"
)

var (
	ErrExamNotFound       = errors.New("exam not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrQuestionNotFound   = errors.New("question not found")
	ErrNotInProgress      = errors.New("submission is not in progress")
	ErrExamExpired        = errors.New("exam time has expired")
	ErrNotCompleted       = errors.New("submission is not completed")
)

// InsufficientQuestionsError means the eligible pool for one type cannot
// cover the requested draw, so the exam cannot start.
type InsufficientQuestionsError struct {
	Type      string
	Required  int
	Available int
}

func (e *InsufficientQuestionsError) Error() string {
	return fmt.Sprintf("not enough %s questions in the selected chapters: %d available, %d required",
		e.Type, e.Available, e.Required)
}
