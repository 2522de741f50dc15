package corerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{Field: "command", Reason: "must not be empty"}
	assert.Equal(t, "validation error: command: must not be empty", err.Error())
}

func TestStateConflict_Message(t *testing.T) {
	err := &StateConflict{Entity: "job", From: "completed", To: "queued"}
	assert.Equal(t, "state conflict: job cannot transition from completed to queued", err.Error())
}

func TestStoreError_UnwrapsUnderlyingError(t *testing.T) {
	underlying := errors.New("bucket not found")
	err := &StoreError{Op: "GetJob", Err: underlying}

	assert.ErrorIs(t, err, underlying)
	assert.Contains(t, err.Error(), "GetJob")
}

func TestProtocolError_Message(t *testing.T) {
	err := &ProtocolError{Context: "heartbeat frame", Reason: "missing comma"}
	assert.Equal(t, "protocol error: heartbeat frame: missing comma", err.Error())
}

func TestFatal_UnwrapsUnderlyingError(t *testing.T) {
	underlying := errors.New("address already in use")
	err := &Fatal{Component: "dispatcher", Err: underlying}

	assert.ErrorIs(t, err, underlying)
	assert.Contains(t, err.Error(), "dispatcher")
}
