package questiongen

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// InvalidAnswer never matches a correct index.
const InvalidAnswer = -1

// ParseAnswer converts learner input to an option index. Non-numeric or
// out-of-range input yields InvalidAnswer.
func ParseAnswer(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 || n >= OptionCount {
		return InvalidAnswer
	}
	return n
}

// Evaluate reports whether the chosen index is the correct one.
func Evaluate(userIndex, correctIndex int) bool {
	return userIndex == correctIndex
}

// MinProseChars is the sanity floor for free-form LLM answers.
const MinProseChars = 50

// CheckContentLength reports whether a prose reply is long enough to show.
func CheckContentLength(text string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(text)) > MinProseChars
}
