package bot

import (
	"strconv"
	"strings"
)

// Callback data values. Parameterized callbacks are "<prefix><arg>".
const (
	cbMainMenu          = "main_menu"
	cbStartLearning     = "start_learning"
	cbContinueLesson    = "continue_lesson"
	cbRestartLearning   = "restart_learning"
	cbSelectTopic       = "select_topic"
	cbAskQuestion       = "ask_question"
	cbShowProgress      = "show_progress"
	cbShowHelp          = "show_help"
	cbAchievements      = "achievements"
	cbSettings          = "settings"
	cbDifficultyMenu    = "difficulty_settings"
	cbNotificationsOn   = "notifications_on"
	cbNotificationsOff  = "notifications_off"
	cbFAQ               = "faq"
	cbQuestionHistory   = "question_history"
	cbDetailedStats     = "detailed_stats"
	cbRecommendations   = "get_recommendations"
	cbSearch            = "search_methodology"
	prefixTopic         = "topic_"
	prefixStartQuestion = "start_questions_"
	prefixRereadTheory  = "reread_theory_"
	prefixAnswer        = "answer_"
	prefixHint          = "hint_"
	prefixSkip          = "skip_"
	prefixDifficulty    = "difficulty_"
	prefixFAQ           = "faq_"
	prefixHelpful       = "helpful_"
	prefixHelpfulYes    = "helpful_yes_"
	prefixHelpfulNo     = "helpful_no_"
	prefixSuggestion    = "ask_suggestion_"
)

func answerData(token string, i int) string { return prefixAnswer + token + "_" + strconv.Itoa(i) }
func hintData(token string) string          { return prefixHint + token }
func skipData(token string) string          { return prefixSkip + token }
func startQuestionsData(level int) string   { return prefixStartQuestion + strconv.Itoa(level) }
func rereadTheoryData(level int) string     { return prefixRereadTheory + strconv.Itoa(level) }
func topicData(id uint) string              { return prefixTopic + strconv.FormatUint(uint64(id), 10) }
func difficultyData(level int) string       { return prefixDifficulty + strconv.Itoa(level) }
func faqData(i int) string                  { return prefixFAQ + strconv.Itoa(i) }
func suggestionData(i int) string           { return prefixSuggestion + strconv.Itoa(i) }

func helpfulData(messageID uint, helpful bool) string {
	prefix := prefixHelpfulNo
	if helpful {
		prefix = prefixHelpfulYes
	}
	return prefix + strconv.FormatUint(uint64(messageID), 10)
}

// parseHelpful splits "helpful_(yes|no)_<message id>".
func parseHelpful(data string) (messageID uint, helpful, ok bool) {
	rest, helpful := strings.CutPrefix(data, prefixHelpfulYes)
	if !helpful {
		if rest, ok = strings.CutPrefix(data, prefixHelpfulNo); !ok {
			return 0, false, false
		}
	}
	id, err := strconv.ParseUint(rest, 10, 64)
	if err != nil || id == 0 {
		return 0, false, false
	}
	return uint(id), helpful, true
}

// parseAnswer splits "answer_<token>_<i>". The index is returned raw so the
// evaluator decides what is valid.
func parseAnswer(data string) (token, index string, ok bool) {
	rest, ok := strings.CutPrefix(data, prefixAnswer)
	if !ok {
		return "", "", false
	}
	i := strings.LastIndexByte(rest, '_')
	if i <= 0 || i == len(rest)-1 {
		return "", "", false
	}
	return rest[:i], rest[i+1:], true
}

// intArg parses the numeric suffix of a "<prefix><n>" callback.
func intArg(data, prefix string) (int, bool) {
	rest, ok := strings.CutPrefix(data, prefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return n, true
}
