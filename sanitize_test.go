package matrixctl_test

import (
	"testing"

	"github.com/fwojciec/matrixctl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeUserID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		in    any
		state matrixctl.SanitizeState
		value string
	}{
		{"valid", "@alice:example.org", matrixctl.Valid, "@alice:example.org"},
		{"surrounding whitespace", "  @alice:example.org\n", matrixctl.Valid, "@alice:example.org"},
		{"nil", nil, matrixctl.Absent, ""},
		{"nil pointer", (*string)(nil), matrixctl.Absent, ""},
		{"missing sigil", "alice:example.org", matrixctl.Invalid, ""},
		{"missing server", "@alice", matrixctl.Invalid, ""},
		{"not a string", 42, matrixctl.Invalid, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := matrixctl.SanitizeUserID(tt.in)

			assert.Equal(t, tt.state, got.State)
			if tt.state == matrixctl.Valid {
				assert.Equal(t, tt.value, got.Value)
				assert.NoError(t, got.Err())
			}
		})
	}
}

func TestSanitized_Err(t *testing.T) {
	t.Parallel()

	err := matrixctl.SanitizeRoomID("general").Err()

	require.Error(t, err)
	assert.Equal(t, matrixctl.EINVALID, matrixctl.ErrorCode(err))
	assert.Contains(t, matrixctl.ErrorMessage(err), `"general"`)
	assert.Contains(t, matrixctl.ErrorMessage(err), "room identifier")
	assert.NoError(t, matrixctl.SanitizeRoomID(nil).Err(), "absent is not an error")
}

func TestSanitize_Idempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"@alice:example.org", " @bob:example.org ", "bob", "",
		"!abc:example.org", "\t!abc:example.org", "!abc",
		"$Rqnc-F-dvnEYJTyHq_iKxU2bZ1CI92-kuZq3a5lr5Zg", " $abc ", "$not valid",
	}
	sanitizers := map[string]func(any) matrixctl.Sanitized{
		"user":  matrixctl.SanitizeUserID,
		"room":  matrixctl.SanitizeRoomID,
		"event": matrixctl.SanitizeEventID,
	}
	for name, sanitize := range sanitizers {
		for _, in := range inputs {
			once := sanitize(in)
			twice := sanitize(once)
			assert.Equal(t, once.State, twice.State, "%s(%q)", name, in)
			assert.Equal(t, once.Value, twice.Value, "%s(%q)", name, in)
		}
	}
}

func TestUserIDFromName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "@alice:example.org", matrixctl.UserIDFromName("alice", "example.org"))
	assert.Equal(t, "@alice:other.org", matrixctl.UserIDFromName(" @alice:other.org ", "example.org"))
}

func TestSanitizeMessageType(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"m.room.message", "M_ROOM_MESSAGE", " M.Room.Message "} {
		got, state := matrixctl.SanitizeMessageType(in)
		assert.Equal(t, matrixctl.Valid, state, in)
		assert.Equal(t, matrixctl.MessageTypeRoomMessage, got, in)
	}

	_, state := matrixctl.SanitizeMessageType("m.call.invite")
	assert.Equal(t, matrixctl.Invalid, state)
	_, state = matrixctl.SanitizeMessageType(nil)
	assert.Equal(t, matrixctl.Absent, state)
}

func TestMessageType_IsState(t *testing.T) {
	t.Parallel()

	assert.False(t, matrixctl.MessageTypeRoomMessage.IsState())
	assert.False(t, matrixctl.MessageTypeReaction.IsState())
	assert.False(t, matrixctl.MessageTypeRoomRedaction.IsState())
	assert.True(t, matrixctl.MessageTypeRoomTopic.IsState())
	assert.True(t, matrixctl.MessageTypeRoomPowerLevels.IsState())
}
