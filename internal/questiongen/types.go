// Package questiongen produces multiple-choice questions on bank
// continuity risk. Each turn runs a fixed pipeline (query, retrieval,
// prompt, LLM call, parse, validate) and falls back to a static bank on any
// failure, so Generate always yields a usable question.
package questiongen

// Source records where a question came from.
type Source string

const (
	SourceLLM      Source = "llm"
	SourceFallback Source = "fallback"
)

// OptionCount is the number of answer options of every question.
const OptionCount = 4

// DefaultTopic labels generated questions without a topic.
const DefaultTopic = "Риски непрерывности"

// Question is a validated question ready to present.
type Question struct {
	// Token identifies this question instance in callback data.
	Token string `json:"token"`

	Text        string   `json:"question"`
	Options     []string `json:"options"`
	Correct     int      `json:"correct_answer"`
	Explanation string   `json:"explanation"`

	// Difficulty is the level the question was requested for.
	Difficulty int    `json:"difficulty"`
	Topic      string `json:"topic"`
	Source     Source `json:"source"`
}

// CorrectOption returns the text of the correct option.
func (q *Question) CorrectOption() string {
	if q.Correct < 0 || q.Correct >= len(q.Options) {
		return ""
	}
	return q.Options[q.Correct]
}

// Input describes the question to generate.
type Input struct {
	// Difficulty is the learner level, 1 to 5.
	Difficulty int
	// Topic optionally narrows the focus, e.g. the current lesson topic.
	Topic string
}

// Stage names a pipeline step.
type Stage string

const (
	StageBuildQuery      Stage = "build_query"
	StageRetrieveContext Stage = "retrieve_context"
	StageBuildPrompt     Stage = "build_prompt"
	StageCallLLM         Stage = "call_llm"
	StageParseResponse   Stage = "parse_response"
	StageValidate        Stage = "validate"
	StageAccept          Stage = "accept"
)

// Result is the outcome of one pipeline run. Question is never nil.
type Result struct {
	Question *Question
	Source   Source
	// Stage is StageAccept for LLM questions, otherwise the stage that
	// failed.
	Stage Stage
	// Reason describes the failure that caused a fallback.
	Reason string
	// Degraded is set when retrieval returned nothing and the prompt used
	// placeholder context.
	Degraded bool
}
