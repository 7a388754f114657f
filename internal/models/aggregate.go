package models

import (
	"strings"
)

// MaxQuestions is the largest number of questions an aggregate may hold.
const MaxQuestions = 5

// MinOptions is the smallest number of options a question may offer.
const MinOptions = 2

// OptionType controls how a question's options are rendered.
type OptionType string

const (
	OptionTypeText      OptionType = "text"
	OptionTypeImage     OptionType = "image"
	OptionTypeTextImage OptionType = "textImage"
)

// Valid reports whether t is one of the known option types.
func (t OptionType) Valid() bool {
	switch t {
	case OptionTypeText, OptionTypeImage, OptionTypeTextImage:
		return true
	}
	return false
}

// Kind names an aggregate type in topics, metrics and log fields.
type Kind string

const (
	KindQuiz Kind = "quiz"
	KindPoll Kind = "poll"
)

// indexQuestions maps question id -> position in the sequence. Empty ids are not indexed.
func indexQuestions(n int, id func(i int) string) map[string]int {
	idx := make(map[string]int, n)
	for i := 0; i < n; i++ {
		if qid := id(i); qid != "" {
			idx[qid] = i
		}
	}
	return idx
}

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return invalid("title", "is required")
	}
	return nil
}

func validateQuestionCount(n int) error {
	if n == 0 {
		return invalid("questions", "at least one question is required")
	}
	if n > MaxQuestions {
		return invalid("questions", "exceeds the limit of %d", MaxQuestions)
	}
	return nil
}

func validateQuestionShape(i int, prompt string, optionType OptionType, options int) error {
	if strings.TrimSpace(prompt) == "" {
		return invalid(fieldf("questions[%d].pollQuestion", i), "is required")
	}
	if !optionType.Valid() {
		return invalid(fieldf("questions[%d].optionType", i), "must be one of text, image, textImage")
	}
	if options < MinOptions {
		return invalid(fieldf("questions[%d].options", i), "at least %d options are required", MinOptions)
	}
	return nil
}

func validateOption(qi, oi int, optionType OptionType, text, imageURL string) error {
	text, imageURL = strings.TrimSpace(text), strings.TrimSpace(imageURL)
	switch optionType {
	case OptionTypeImage:
		if imageURL == "" && text == "" {
			return invalid(fieldf("questions[%d].options[%d]", qi, oi), "text or imageUrl is required")
		}
	default:
		if text == "" {
			return invalid(fieldf("questions[%d].options[%d].text", qi, oi), "is required")
		}
	}
	return nil
}

func collectImageURLs(urls []string, imageURL string) []string {
	if imageURL = strings.TrimSpace(imageURL); imageURL != "" {
		urls = append(urls, imageURL)
	}
	return urls
}

// DroppedImageURLs returns the URLs in before that no longer appear in after.
func DroppedImageURLs(before, after []string) []string {
	keep := make(map[string]struct{}, len(after))
	for _, u := range after {
		keep[u] = struct{}{}
	}
	var dropped []string
	for _, u := range before {
		if _, ok := keep[u]; !ok {
			dropped = append(dropped, u)
			keep[u] = struct{}{}
		}
	}
	return dropped
}
