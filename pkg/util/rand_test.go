package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRoomID(t *testing.T) {
	seen := make(map[string]bool)

	for range 50 {
		id := NewRoomID()
		assert.Len(t, id, 15)
		for _, r := range id {
			assert.Contains(t, roomIDAlphabet, string(r))
		}
		assert.False(t, seen[id], "ids must not repeat")
		seen[id] = true
	}
}

func TestNewCode(t *testing.T) {
	assert.Len(t, NewCode(CodeSimple), 4)
	assert.Len(t, NewCode(CodeMedium), 6)
	assert.Len(t, NewCode(CodeStrong), 8)

	// Unknown strength falls back to medium
	assert.Len(t, NewCode("bogus"), 6)

	for range 50 {
		for _, r := range NewCode(CodeStrong) {
			assert.Contains(t, unambiguous, string(r))
		}
		assert.NotContains(t, NewCode(CodeSimple), "a", "simple codes are uppercase")
	}
}

func TestNewCodeStrongAvoidsLookalikes(t *testing.T) {
	for _, bad := range []string{"0", "O", "1", "l", "I", "i", "o"} {
		assert.False(t, strings.Contains(unambiguous, bad), "alphabet contains %q", bad)
	}
}

func TestRandStr(t *testing.T) {
	assert.Len(t, RandStr(10), 10)
	assert.NotEqual(t, RandStr(10), RandStr(10))
}
