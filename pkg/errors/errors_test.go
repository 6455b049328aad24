package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStageError_WrapsAndTags(t *testing.T) {
	cause := errors.New("connection refused")
	err := Fetch("raw ticks", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "fetch: raw ticks: connection refused", err.Error())

	stage, ok := StageOf(err)
	assert.True(t, ok)
	assert.Equal(t, StageFetch, stage)

	stage, ok = StageOf(Persist("snapshot", cause))
	assert.True(t, ok)
	assert.Equal(t, StagePersist, stage)

	stage, ok = StageOf(Compute("csv export", cause))
	assert.True(t, ok)
	assert.Equal(t, StageCompute, stage)
}

func TestStageOf_UntaggedError(t *testing.T) {
	_, ok := StageOf(errors.New("plain"))
	assert.False(t, ok)

	_, ok = StageOf(nil)
	assert.False(t, ok)
}

func TestIsValidation(t *testing.T) {
	err := Validation("symbol", "is required")

	assert.True(t, IsValidation(err))
	assert.Equal(t, "validation: symbol: is required", err.Error())
	assert.False(t, IsValidation(errors.New("plain")))
}
