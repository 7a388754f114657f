package models

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// PollOption is one choice of a poll question with its running selection count.
type PollOption struct {
	Text           string `json:"text" bson:"text"`
	ImageURL       string `json:"imageUrl,omitempty" bson:"imageUrl,omitempty"`
	SelectionCount int    `json:"selectionCount" bson:"selectionCount"`
}

// PollQuestion is embedded in a Poll and addressed by ID within it.
type PollQuestion struct {
	ID           string       `json:"id" bson:"id"`
	PollQuestion string       `json:"pollQuestion" bson:"pollQuestion"`
	OptionType   OptionType   `json:"optionType" bson:"optionType"`
	Options      []PollOption `json:"options" bson:"options"`
}

// Poll is a titled set of unscored questions owned by CreatedBy.
type Poll struct {
	ID          string         `json:"id" bson:"_id"`
	Title       string         `json:"title" bson:"title"`
	Questions   []PollQuestion `json:"questions" bson:"questions"`
	CreatedBy   string         `json:"createdBy" bson:"createdBy"`
	Impressions int            `json:"impressions" bson:"impressions"`
	CreatedAt   time.Time      `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt" bson:"updatedAt"`
}

// PollResult is one entry of a stats batch: the option indices chosen for a question.
type PollResult struct {
	QuestionID      string `json:"questionId"`
	OptionsSelected []int  `json:"optionsSelected"`
}

// ValidatePoll checks a create payload.
func ValidatePoll(title string, questions []PollQuestion) error {
	if err := validateTitle(title); err != nil {
		return err
	}
	return ValidatePollQuestions(questions)
}

// ValidatePollQuestions checks a question sequence for create and update.
func ValidatePollQuestions(questions []PollQuestion) error {
	if err := validateQuestionCount(len(questions)); err != nil {
		return err
	}
	for i, q := range questions {
		if err := validateQuestionShape(i, q.PollQuestion, q.OptionType, len(q.Options)); err != nil {
			return err
		}
		for j, o := range q.Options {
			if err := validateOption(i, j, q.OptionType, o.Text, o.ImageURL); err != nil {
				return err
			}
		}
	}
	return nil
}

// NewPoll builds a poll from a validated payload. Ids are generated and counters start at zero.
func NewPoll(ownerID, title string, questions []PollQuestion, now time.Time) *Poll {
	p := &Poll{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedBy: ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	p.ReplaceQuestions(questions, now)
	return p
}

// QuestionIndex maps question id to its position in Questions.
func (p *Poll) QuestionIndex() map[string]int {
	return indexQuestions(len(p.Questions), func(i int) string { return p.Questions[i].ID })
}

// ReplaceQuestions swaps in a new question sequence. The first question whose id matches a
// stored question keeps the selection counts of options at the same index; a repeated id is
// treated as a new question.
func (p *Poll) ReplaceQuestions(questions []PollQuestion, now time.Time) {
	idx := p.QuestionIndex()
	claimed := make(map[string]bool, len(idx))
	next := make([]PollQuestion, len(questions))
	for i, in := range questions {
		out := PollQuestion{
			PollQuestion: in.PollQuestion,
			OptionType:   in.OptionType,
			Options:      make([]PollOption, len(in.Options)),
		}
		var prev []PollOption
		if pos, ok := idx[in.ID]; ok && !claimed[in.ID] {
			claimed[in.ID] = true
			out.ID = p.Questions[pos].ID
			prev = p.Questions[pos].Options
		} else {
			out.ID = uuid.NewString()
		}
		for j, o := range in.Options {
			out.Options[j] = PollOption{Text: o.Text, ImageURL: o.ImageURL}
			if j < len(prev) {
				out.Options[j].SelectionCount = prev[j].SelectionCount
			}
		}
		next[i] = out
	}
	p.Questions = next
	p.UpdatedAt = now
}

// ApplyResults increments the selection count of every in-range option index and returns
// how many selections were counted. Unknown questions, out-of-range indices and saturated
// counts are skipped.
func (p *Poll) ApplyResults(results []PollResult) int {
	idx := p.QuestionIndex()
	counted := 0
	for _, r := range results {
		pos, ok := idx[r.QuestionID]
		if !ok {
			continue
		}
		options := p.Questions[pos].Options
		for _, i := range r.OptionsSelected {
			if i >= 0 && i < len(options) && options[i].SelectionCount < math.MaxInt {
				options[i].SelectionCount++
				counted++
			}
		}
	}
	return counted
}

// ImageURLs returns every option image referenced by the poll.
func (p *Poll) ImageURLs() []string {
	var urls []string
	for _, question := range p.Questions {
		for _, o := range question.Options {
			urls = collectImageURLs(urls, o.ImageURL)
		}
	}
	return urls
}
