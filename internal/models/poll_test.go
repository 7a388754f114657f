package models

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textPollQuestion(prompt string, options ...string) PollQuestion {
	q := PollQuestion{PollQuestion: prompt, OptionType: OptionTypeText}
	for _, o := range options {
		q.Options = append(q.Options, PollOption{Text: o})
	}
	return q
}

func TestValidatePoll(t *testing.T) {
	valid := textPollQuestion("Lunch?", "Pizza", "Sushi")

	assert.NoError(t, ValidatePoll("T", []PollQuestion{valid}))

	var verr *ValidationError
	err := ValidatePoll("T", []PollQuestion{textPollQuestion("Lunch?", "Pizza")})
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "questions[0].options", verr.Field)

	err = ValidatePoll("T", nil)
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "questions", verr.Field)

	err = ValidatePoll("T", []PollQuestion{valid, valid, valid, valid, valid, valid})
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "questions", verr.Field)

	err = ValidatePoll("", []PollQuestion{valid})
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "title", verr.Field)
}

func TestValidatePollTextImageNeedsOnlyText(t *testing.T) {
	q := PollQuestion{
		PollQuestion: "Pick one",
		OptionType:   OptionTypeTextImage,
		Options:      []PollOption{{Text: "plain"}, {Text: "with picture", ImageURL: "https://x/a.png"}},
	}
	assert.NoError(t, ValidatePoll("T", []PollQuestion{q}))

	q.Options[0] = PollOption{ImageURL: "https://x/b.png"}
	var verr *ValidationError
	require.True(t, errors.As(ValidatePoll("T", []PollQuestion{q}), &verr))
	assert.Equal(t, "questions[0].options[0].text", verr.Field)
}

func TestPollApplyResults(t *testing.T) {
	poll := NewPoll("owner", "T", []PollQuestion{textPollQuestion("q", "a", "b")}, time.Now())
	qid := poll.Questions[0].ID

	counted := poll.ApplyResults([]PollResult{
		{QuestionID: qid, OptionsSelected: []int{0, 1}},
		{QuestionID: qid, OptionsSelected: []int{5, -1}},
		{QuestionID: "missing", OptionsSelected: []int{0}},
	})

	assert.Equal(t, 2, counted)
	assert.Equal(t, 1, poll.Questions[0].Options[0].SelectionCount)
	assert.Equal(t, 1, poll.Questions[0].Options[1].SelectionCount)
}

func TestNewPollResetsSelectionCounts(t *testing.T) {
	in := textPollQuestion("q", "a", "b")
	in.Options[0].SelectionCount = 42

	poll := NewPoll("owner", "T", []PollQuestion{in}, time.Now())

	assert.Zero(t, poll.Questions[0].Options[0].SelectionCount)
	assert.NotEmpty(t, poll.Questions[0].ID)
}

func TestPollReplaceQuestionsKeepsCountsByIndex(t *testing.T) {
	poll := NewPoll("owner", "T", []PollQuestion{textPollQuestion("q", "a", "b")}, time.Now())
	qid := poll.Questions[0].ID
	poll.ApplyResults([]PollResult{{QuestionID: qid, OptionsSelected: []int{1, 1}}})

	edited := textPollQuestion("q", "a", "b", "c")
	edited.ID = qid
	poll.ReplaceQuestions([]PollQuestion{edited}, time.Now())

	opts := poll.Questions[0].Options
	require.Len(t, opts, 3)
	assert.Equal(t, qid, poll.Questions[0].ID)
	assert.Equal(t, 0, opts[0].SelectionCount)
	assert.Equal(t, 2, opts[1].SelectionCount)
	assert.Equal(t, 0, opts[2].SelectionCount)
}

func TestPollReplaceQuestionsRepeatedIDGetsFreshQuestion(t *testing.T) {
	poll := NewPoll("owner", "T", []PollQuestion{textPollQuestion("q", "a", "b")}, time.Now())
	qid := poll.Questions[0].ID
	poll.ApplyResults([]PollResult{{QuestionID: qid, OptionsSelected: []int{0, 0, 1}}})

	first := textPollQuestion("q", "a", "b")
	first.ID = qid
	second := textPollQuestion("copy", "a", "b")
	second.ID = qid

	poll.ReplaceQuestions([]PollQuestion{first, second}, time.Now())

	require.Len(t, poll.Questions, 2)
	assert.Equal(t, qid, poll.Questions[0].ID)
	assert.Equal(t, 2, poll.Questions[0].Options[0].SelectionCount)
	assert.NotEqual(t, qid, poll.Questions[1].ID)
	assert.Zero(t, poll.Questions[1].Options[0].SelectionCount)
	assert.Zero(t, poll.Questions[1].Options[1].SelectionCount)
	assert.Len(t, poll.QuestionIndex(), 2)
}

func TestPollApplyResultsSaturates(t *testing.T) {
	poll := NewPoll("owner", "T", []PollQuestion{textPollQuestion("q", "a", "b")}, time.Now())
	qid := poll.Questions[0].ID
	poll.Questions[0].Options[0].SelectionCount = math.MaxInt

	counted := poll.ApplyResults([]PollResult{{QuestionID: qid, OptionsSelected: []int{0, 1}}})

	assert.Equal(t, 1, counted)
	assert.Equal(t, math.MaxInt, poll.Questions[0].Options[0].SelectionCount)
	assert.Equal(t, 1, poll.Questions[0].Options[1].SelectionCount)
}
