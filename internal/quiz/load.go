package quiz

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// LoadFile reads a quiz or a JSON array of quizzes from path and validates each.
func LoadFile(path string) ([]Quiz, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	b = bytes.TrimSpace(b)
	var list []Quiz
	if len(b) > 0 && b[0] == '{' {
		var q Quiz
		if err := json.Unmarshal(b, &q); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		list = []Quiz{q}
	} else if err := json.Unmarshal(b, &list); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for _, q := range list {
		if err := q.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return list, nil
}
