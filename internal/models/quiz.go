package models

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Timer is the per-question countdown shown to quiz takers.
type Timer string

const (
	TimerOff Timer = "off"
	Timer5   Timer = "5"
	Timer10  Timer = "10"
)

// Valid reports whether t is a known timer setting.
func (t Timer) Valid() bool {
	switch t {
	case TimerOff, Timer5, Timer10:
		return true
	}
	return false
}

// QuizOption is one answer choice of a quiz question.
type QuizOption struct {
	Text     string `json:"text" bson:"text"`
	ImageURL string `json:"imageUrl,omitempty" bson:"imageUrl,omitempty"`
	Correct  bool   `json:"correct" bson:"correct"`
}

// QuizQuestion is embedded in a Quiz and addressed by ID within it.
type QuizQuestion struct {
	ID               string       `json:"id" bson:"id"`
	PollQuestion     string       `json:"pollQuestion" bson:"pollQuestion"`
	OptionType       OptionType   `json:"optionType" bson:"optionType"`
	Options          []QuizOption `json:"options" bson:"options"`
	Timer            Timer        `json:"timer" bson:"timer"`
	Attempts         int          `json:"attempts" bson:"attempts"`
	CorrectAnswers   int          `json:"correctAnswers" bson:"correctAnswers"`
	IncorrectAnswers int          `json:"incorrectAnswers" bson:"incorrectAnswers"`
}

// Quiz is a titled set of scored questions owned by CreatedBy.
type Quiz struct {
	ID          string         `json:"id" bson:"_id"`
	Title       string         `json:"title" bson:"title"`
	Questions   []QuizQuestion `json:"questions" bson:"questions"`
	CreatedBy   string         `json:"createdBy" bson:"createdBy"`
	Impressions int            `json:"impressions" bson:"impressions"`
	CreatedAt   time.Time      `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt" bson:"updatedAt"`
}

// QuizResult is one entry of a stats batch: counter deltas for a single question.
type QuizResult struct {
	QuestionID string `json:"questionId"`
	Attempts   int    `json:"attempts"`
	Correct    int    `json:"correct"`
	Incorrect  int    `json:"incorrect"`
}

// ValidateQuiz checks a create payload.
func ValidateQuiz(title string, questions []QuizQuestion) error {
	if err := validateTitle(title); err != nil {
		return err
	}
	return ValidateQuizQuestions(questions)
}

// ValidateQuizQuestions checks a question sequence for create and update.
func ValidateQuizQuestions(questions []QuizQuestion) error {
	if err := validateQuestionCount(len(questions)); err != nil {
		return err
	}
	for i, q := range questions {
		if err := validateQuestionShape(i, q.PollQuestion, q.OptionType, len(q.Options)); err != nil {
			return err
		}
		if q.Timer != "" && !q.Timer.Valid() {
			return invalid(fieldf("questions[%d].timer", i), "must be one of off, 5, 10")
		}
		hasCorrect := false
		for j, o := range q.Options {
			if err := validateOption(i, j, q.OptionType, o.Text, o.ImageURL); err != nil {
				return err
			}
			hasCorrect = hasCorrect || o.Correct
		}
		if !hasCorrect {
			return invalid(fieldf("questions[%d].options", i), "each question must have one correct option")
		}
	}
	return nil
}

// NewQuiz builds a quiz from a validated payload. Ids are generated and counters start at zero.
func NewQuiz(ownerID, title string, questions []QuizQuestion, now time.Time) *Quiz {
	q := &Quiz{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedBy: ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	q.ReplaceQuestions(questions, now)
	return q
}

// QuestionIndex maps question id to its position in Questions.
func (q *Quiz) QuestionIndex() map[string]int {
	return indexQuestions(len(q.Questions), func(i int) string { return q.Questions[i].ID })
}

// ReplaceQuestions swaps in a new question sequence. The first question whose id matches a
// stored question keeps that question's counters; the rest, repeats included, get a fresh id
// and zero counters.
func (q *Quiz) ReplaceQuestions(questions []QuizQuestion, now time.Time) {
	idx := q.QuestionIndex()
	claimed := make(map[string]bool, len(idx))
	next := make([]QuizQuestion, len(questions))
	for i, in := range questions {
		out := QuizQuestion{
			PollQuestion: in.PollQuestion,
			OptionType:   in.OptionType,
			Options:      append([]QuizOption(nil), in.Options...),
			Timer:        in.Timer,
		}
		if out.Timer == "" {
			out.Timer = TimerOff
		}
		if pos, ok := idx[in.ID]; ok && !claimed[in.ID] {
			claimed[in.ID] = true
			prev := q.Questions[pos]
			out.ID = prev.ID
			out.Attempts = prev.Attempts
			out.CorrectAnswers = prev.CorrectAnswers
			out.IncorrectAnswers = prev.IncorrectAnswers
		} else {
			out.ID = uuid.NewString()
		}
		next[i] = out
	}
	q.Questions = next
	q.UpdatedAt = now
}

// ApplyResults adds each result's deltas to the matching question's counters and returns
// how many results were applied. Results naming an unknown question, carrying a negative
// delta, or that would overflow a counter are skipped.
func (q *Quiz) ApplyResults(results []QuizResult) int {
	idx := q.QuestionIndex()
	applied := 0
	for _, r := range results {
		pos, ok := idx[r.QuestionID]
		if !ok || r.Attempts < 0 || r.Correct < 0 || r.Incorrect < 0 {
			continue
		}
		question := &q.Questions[pos]
		if overflows(question.Attempts, r.Attempts) ||
			overflows(question.CorrectAnswers, r.Correct) ||
			overflows(question.IncorrectAnswers, r.Incorrect) {
			continue
		}
		question.Attempts += r.Attempts
		question.CorrectAnswers += r.Correct
		question.IncorrectAnswers += r.Incorrect
		applied++
	}
	return applied
}

func overflows(counter, delta int) bool {
	return delta > math.MaxInt-counter
}

// ImageURLs returns every option image referenced by the quiz.
func (q *Quiz) ImageURLs() []string {
	var urls []string
	for _, question := range q.Questions {
		for _, o := range question.Options {
			urls = collectImageURLs(urls, o.ImageURL)
		}
	}
	return urls
}
