package questiongen

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

// Candidate is the decoded LLM output before validation.
type Candidate struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer float64  `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
	Topic         string   `json:"topic,omitempty"`
}

// Validator checks one property of a candidate question.
// Implementations are stateless and safe for concurrent use.
type Validator interface {
	// Name is a short identifier for logs, e.g. "structural".
	Name() string

	// Validate returns nil when the candidate passes.
	Validate(c *Candidate) *ValidationError
}

// ValidationError describes why a candidate was rejected.
type ValidationError struct {
	Validator string
	Message   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validator %q: %s", e.Validator, e.Message)
}

// Length floors in runes.
const (
	MinQuestionRunes    = 10
	MinExplanationRunes = 10
)

// DefaultValidators is the chain run on every candidate, in order.
func DefaultValidators() []Validator {
	return []Validator{
		&StructuralValidator{},
		&OptionsValidator{},
		&AnswerIndexValidator{},
	}
}

// StructuralValidator checks the question and explanation lengths.
type StructuralValidator struct{}

func (v *StructuralValidator) Name() string { return "structural" }

func (v *StructuralValidator) Validate(c *Candidate) *ValidationError {
	if utf8.RuneCountInString(strings.TrimSpace(c.Question)) < MinQuestionRunes {
		return &ValidationError{Validator: v.Name(), Message: fmt.Sprintf("question shorter than %d characters", MinQuestionRunes)}
	}
	if utf8.RuneCountInString(strings.TrimSpace(c.Explanation)) < MinExplanationRunes {
		return &ValidationError{Validator: v.Name(), Message: fmt.Sprintf("explanation shorter than %d characters", MinExplanationRunes)}
	}
	return nil
}

// OptionsValidator requires exactly four non-empty options.
type OptionsValidator struct{}

func (v *OptionsValidator) Name() string { return "options" }

func (v *OptionsValidator) Validate(c *Candidate) *ValidationError {
	if len(c.Options) != OptionCount {
		return &ValidationError{Validator: v.Name(), Message: fmt.Sprintf("expected %d options, got %d", OptionCount, len(c.Options))}
	}
	for i, o := range c.Options {
		if strings.TrimSpace(o) == "" {
			return &ValidationError{Validator: v.Name(), Message: fmt.Sprintf("option %d is empty", i)}
		}
	}
	return nil
}

// AnswerIndexValidator requires correct_answer to be an integer index into
// the options.
type AnswerIndexValidator struct{}

func (v *AnswerIndexValidator) Name() string { return "answer-index" }

func (v *AnswerIndexValidator) Validate(c *Candidate) *ValidationError {
	f := c.CorrectAnswer
	if f != math.Trunc(f) {
		return &ValidationError{Validator: v.Name(), Message: fmt.Sprintf("correct_answer %v is not an integer", f)}
	}
	if f < 0 || f >= OptionCount {
		return &ValidationError{Validator: v.Name(), Message: fmt.Sprintf("correct_answer %v out of range [0,%d)", f, OptionCount)}
	}
	return nil
}

func runValidators(validators []Validator, c *Candidate) *ValidationError {
	for _, v := range validators {
		if err := v.Validate(c); err != nil {
			return err
		}
	}
	return nil
}
