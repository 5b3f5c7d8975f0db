package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPulseError_ErrorFormat(t *testing.T) {
	err := NewError(CONFIG_LOAD_FAILED, "could not read config")
	assert.Equal(t, "[CONFIG_LOAD_FAILED] could not read config", err.Error())
}

func TestPulseError_ErrorFormatWithCause(t *testing.T) {
	cause := errors.New("file not found")
	err := WrapError(CONFIG_LOAD_FAILED, "could not read config", cause)
	assert.Equal(t, "[CONFIG_LOAD_FAILED] could not read config: file not found", err.Error())
}

func TestPulseError_Unwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := WrapError(STORE_SAVE_FAILED, "save failed", cause)
	assert.ErrorIs(t, err, cause)
}

func TestPulseError_IsMatchesByCode(t *testing.T) {
	a := NewError(STORE_QUERY_FAILED, "first")
	b := NewError(STORE_QUERY_FAILED, "second")
	assert.ErrorIs(t, a, b)

	c := NewError(STORE_SAVE_FAILED, "other code")
	assert.NotErrorIs(t, a, c)
}

func TestPulseError_IsThroughWrapping(t *testing.T) {
	inner := NewError(WORKFLOW_CANCELLED, "cancelled")
	outer := fmt.Errorf("run aborted: %w", inner)
	assert.ErrorIs(t, outer, NewError(WORKFLOW_CANCELLED, ""))
}

func TestNewRetryableError(t *testing.T) {
	err := NewRetryableError(CONNECTOR_FETCH_FAILED, "timeout talking to source")
	assert.True(t, err.Retryable)
}

func TestCodeOf(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NewError(QUEUE_STOPPED, "queue shut down"))
	assert.Equal(t, QUEUE_STOPPED, CodeOf(err))
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))
}

func TestParseID(t *testing.T) {
	id := NewID()
	require.False(t, id.IsZero())

	parsed, err := ParseID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	_, err = ParseID("not-a-uuid")
	assert.Error(t, err)

	_, err = ParseID("")
	assert.Error(t, err)
}
