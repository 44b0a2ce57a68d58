package quiz

import "math"

// Score grades answers against the quiz key: round(100*correct/total).
// Unanswered questions count as incorrect; a quiz with no questions scores 0.
func Score(q Quiz, answers Answers) (score, correct int) {
	total := len(q.Questions)
	if total == 0 {
		return 0, 0
	}
	for _, qq := range q.Questions {
		got, ok := answers[qq.ID]
		if ok && got == qq.CorrectAnswer {
			correct++
		}
	}
	score = int(math.Round(100 * float64(correct) / float64(total)))
	return score, correct
}

// Passed reports whether score meets the passing threshold (inclusive).
func Passed(score int, passingScore float64) bool {
	return float64(score) >= passingScore
}
