package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDroppedImageURLs(t *testing.T) {
	before := []string{"a", "b", "c", "b"}
	after := []string{"c", "d"}
	assert.Equal(t, []string{"a", "b"}, DroppedImageURLs(before, after))
	assert.Nil(t, DroppedImageURLs(nil, after))
}

func TestValidationErrorMessage(t *testing.T) {
	err := invalid("questions[0].options", "at least %d options are required", MinOptions)
	assert.Equal(t, "questions[0].options: at least 2 options are required", err.Error())
	assert.Equal(t, "title is required", (&ValidationError{Reason: "title is required"}).Error())
}
