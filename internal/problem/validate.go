package problem

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mind-engage/tutorgrade/internal/grading"
)

var (
	ErrNotFound = errors.New("not found")
	ErrInvalid  = errors.New("invalid question")
)

// Validate checks an uploaded question before it is stored.
func Validate(q Question) error {
	if strings.TrimSpace(q.ID) == "" {
		return fmt.Errorf("%w: id required", ErrInvalid)
	}
	if strings.TrimSpace(q.Answer) == "" {
		return fmt.Errorf("%w: %s: answer required", ErrInvalid, q.ID)
	}
	switch q.Type {
	case grading.MultipleChoice:
		if len(q.Options) == 0 {
			return fmt.Errorf("%w: %s: multiple choice needs options", ErrInvalid, q.ID)
		}
	case grading.ShortAnswer, grading.Essay:
	default:
		return fmt.Errorf("%w: %s: unknown type %q", ErrInvalid, q.ID, q.Type)
	}
	if len(q.Options) > MaxOptions {
		return fmt.Errorf("%w: %s: at most %d options", ErrInvalid, q.ID, MaxOptions)
	}
	// keywords are stored comma-joined in CSV, sheet and SQL rows
	for _, k := range q.Keywords {
		if strings.Contains(k, ",") {
			return fmt.Errorf("%w: %s: keyword %q contains a comma", ErrInvalid, q.ID, k)
		}
	}
	return nil
}
