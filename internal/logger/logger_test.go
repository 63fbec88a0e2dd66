package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInit(t *testing.T) {
	Init()
	assert.NotNil(t, InfoLogger)
	assert.NotNil(t, ErrorLogger)
	assert.NotNil(t, DebugLogger)
}

func TestFieldsEven(t *testing.T) {
	assert.Equal(t, "a=1 b=2", fields([]interface{}{"a", 1, "b", 2}))
}

func TestFieldsOdd(t *testing.T) {
	assert.Equal(t, "a=?", fields([]interface{}{"a"}))
}

func TestFieldsEmpty(t *testing.T) {
	assert.Equal(t, "", fields(nil))
}

func TestInfoErrorDebugDoNotPanic(t *testing.T) {
	Init()
	Info("booking created", "bookingId", "abc123")
	Error("refund failed", "bookingId", "abc123", "err", "insufficient funds")
	Debug("cache miss", "key", "notifications:abc123")
	Infof("ride %s departs at %s", "abc123", "2026-06-01T12:00:00Z")
	Errorf("webhook verification failed: %v", "bad signature")
	Debugf("sweep found %d rides", 3)
}
