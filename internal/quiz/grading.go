package quiz

import (
	"strings"

	"github.com/example/studyquiz/pkg/models"
)

// GradeMultipleChoice compares the selected option with the correct answer verbatim
func GradeMultipleChoice(selected, correct string) bool {
	return selected == correct
}

// GradeShortAnswer compares typed input with the correct answer,
// ignoring surrounding whitespace and letter case.
func GradeShortAnswer(input, correct string) bool {
	input = strings.TrimSpace(input)
	if input == "" {
		return false
	}
	return strings.EqualFold(input, strings.TrimSpace(correct))
}

// OptionSet returns the distractors plus the correct answer, in stored order.
// The correct answer is included exactly once even if a distractor repeats it.
func OptionSet(q models.Question) []string {
	options := make([]string, 0, len(q.Options)+1)
	for _, o := range q.Options {
		if o == q.CorrectAnswer {
			continue
		}
		options = append(options, o)
	}
	return append(options, q.CorrectAnswer)
}
