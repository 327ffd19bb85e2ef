package matrixctl

import (
	"regexp"
	"strings"
)

var (
	eventIDPattern = regexp.MustCompile(`^\$[0-9a-zA-Z.=_-]{1,255}$`)
	userIDPattern  = regexp.MustCompile(`^@[^:]+:[^.]+\..+$`)
	roomIDPattern  = regexp.MustCompile(`^![^:]+:[^.]+\..+$`)
)

// SanitizeState is the outcome of sanitizing an identifier.
type SanitizeState int

// SanitizeState constants.
const (
	Absent SanitizeState = iota
	Valid
	Invalid
)

func (s SanitizeState) String() string {
	switch s {
	case Valid:
		return "valid"
	case Invalid:
		return "invalid"
	default:
		return "absent"
	}
}

// Sanitized is a sanitized identifier. Value is only meaningful when State
// is Valid.
type Sanitized struct {
	Value string
	State SanitizeState

	kind    string
	example string
	input   string
}

// Err returns an EINVALID error describing the expected form when the
// identifier was invalid, and nil otherwise.
func (s Sanitized) Err() error {
	if s.State != Invalid {
		return nil
	}
	return Errorf(EINVALID, "the given %s %q is malformed; it should look like %q", s.kind, s.input, s.example)
}

type identifier struct {
	kind    string
	example string
	pattern *regexp.Regexp
}

var (
	eventIdentifier = identifier{kind: "event identifier", example: "$Rqnc-F-dvnEYJTyHq_iKxU2bZ1CI92-kuZq3a5lr5Zg", pattern: eventIDPattern}
	userIdentifier  = identifier{kind: "user identifier", example: "@alice:example.org", pattern: userIDPattern}
	roomIdentifier  = identifier{kind: "room identifier", example: "!yvLVXKBEjHRhBFmNnt:example.org", pattern: roomIDPattern}
)

func (id identifier) sanitize(v any) Sanitized {
	out := Sanitized{kind: id.kind, example: id.example}

	var s string
	switch x := v.(type) {
	case nil:
		return out
	case string:
		s = x
	case *string:
		if x == nil {
			return out
		}
		s = *x
	case Sanitized:
		switch x.State {
		case Absent:
			return out
		case Invalid:
			out.State = Invalid
			out.input = x.input
			return out
		}
		s = x.Value
	default:
		out.State = Invalid
		return out
	}

	trimmed := strings.TrimSpace(s)
	if !id.pattern.MatchString(trimmed) {
		out.State = Invalid
		out.input = s
		return out
	}
	out.Value = trimmed
	out.State = Valid
	return out
}

// SanitizeEventID validates an event identifier such as "$abc...".
// nil yields Absent; a matching string yields Valid with surrounding
// whitespace removed; anything else yields Invalid.
func SanitizeEventID(v any) Sanitized {
	return eventIdentifier.sanitize(v)
}

// SanitizeUserID validates a user identifier such as "@alice:example.org".
func SanitizeUserID(v any) Sanitized {
	return userIdentifier.sanitize(v)
}

// SanitizeRoomID validates a room identifier such as "!abc:example.org".
func SanitizeRoomID(v any) Sanitized {
	return roomIdentifier.sanitize(v)
}

// UserIDFromName returns name unchanged when it already is a user
// identifier and "@name:domain" otherwise.
func UserIDFromName(name, domain string) string {
	name = strings.TrimSpace(name)
	if strings.HasPrefix(name, "@") {
		return name
	}
	return "@" + name + ":" + domain
}

// MessageType is one of the Matrix event types matrixctl knows how to send
// and query.
type MessageType string

// Known event types.
const (
	MessageTypeRoomMessage     MessageType = "m.room.message"
	MessageTypeRoomMember      MessageType = "m.room.member"
	MessageTypeRoomName        MessageType = "m.room.name"
	MessageTypeRoomTopic       MessageType = "m.room.topic"
	MessageTypeRoomAvatar      MessageType = "m.room.avatar"
	MessageTypeRoomCreate      MessageType = "m.room.create"
	MessageTypeRoomJoinRules   MessageType = "m.room.join_rules"
	MessageTypeRoomPowerLevels MessageType = "m.room.power_levels"
	MessageTypeRoomRedaction   MessageType = "m.room.redaction"
	MessageTypeReaction        MessageType = "m.reaction"
)

// MessageTypes lists every known event type.
var MessageTypes = []MessageType{
	MessageTypeRoomMessage,
	MessageTypeRoomMember,
	MessageTypeRoomName,
	MessageTypeRoomTopic,
	MessageTypeRoomAvatar,
	MessageTypeRoomCreate,
	MessageTypeRoomJoinRules,
	MessageTypeRoomPowerLevels,
	MessageTypeRoomRedaction,
	MessageTypeReaction,
}

// IsState reports whether events of this type are room state, sent with
// an (empty) state key instead of a transaction id.
func (t MessageType) IsState() bool {
	switch t {
	case MessageTypeRoomMessage, MessageTypeRoomRedaction, MessageTypeReaction:
		return false
	}
	return strings.HasPrefix(string(t), "m.room.")
}

// SanitizeMessageType maps a case-insensitive event type ("m.room.message"
// or "M_ROOM_MESSAGE") to a known MessageType.
func SanitizeMessageType(v any) (MessageType, SanitizeState) {
	var s string
	switch x := v.(type) {
	case nil:
		return "", Absent
	case MessageType:
		s = string(x)
	case string:
		s = x
	case *string:
		if x == nil {
			return "", Absent
		}
		s = *x
	default:
		return "", Invalid
	}

	key := strings.ToLower(strings.TrimSpace(s))
	for _, t := range MessageTypes {
		if key == string(t) || key == strings.ReplaceAll(string(t), ".", "_") {
			return t, Valid
		}
	}
	return "", Invalid
}
