package qti

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/mind-engage/tutorgrade/internal/problem"
)

// DecodeFile picks a reader by file extension: .zip is a QTI package, .xml a
// single QTI item, anything else goes through problem.ReadQuestions.
func DecodeFile(filename string, data []byte) ([]problem.Question, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".zip":
		return ReadPackage(bytes.NewReader(data), int64(len(data)))
	case ".xml":
		q, err := ParseItem(data)
		if err != nil {
			return nil, err
		}
		return []problem.Question{q}, nil
	default:
		return problem.ReadQuestions(bytes.NewReader(data))
	}
}
