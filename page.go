package matrixctl

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Page is one page of a Synapse admin list endpoint. The item key differs
// per endpoint ("users", "rooms", "event_reports"); NextToken is the
// cursor for the next page and is nil at the end of the stream.
type Page struct {
	Items     []json.RawMessage
	NextToken *int
	Total     int
	// HasTotal is false when the response carries no total.
	HasTotal bool
}

// DecodePage decodes a list response whose items live under key.
func DecodePage(body []byte, key string) (*Page, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, Errorf(ESERVER, "cannot decode %s page: %v", key, err)
	}

	page := &Page{}
	if items, ok := raw[key]; ok && !isJSONNull(items) {
		if err := json.Unmarshal(items, &page.Items); err != nil {
			return nil, Errorf(ESERVER, "cannot decode %s page items: %v", key, err)
		}
	}

	// Rooms use next_batch/total_rooms; every other list uses
	// next_token/total.
	for _, k := range []string{"next_token", "next_batch"} {
		if v, ok := raw[k]; ok && !isJSONNull(v) {
			n, err := flexInt(v)
			if err != nil {
				return nil, Errorf(ESERVER, "cannot decode %s cursor: %v", key, err)
			}
			page.NextToken = &n
			break
		}
	}
	for _, k := range []string{"total", "total_rooms"} {
		if v, ok := raw[k]; ok && !isJSONNull(v) {
			n, err := flexInt(v)
			if err != nil {
				return nil, Errorf(ESERVER, "cannot decode %s total: %v", key, err)
			}
			page.Total = n
			page.HasTotal = true
			break
		}
	}
	return page, nil
}

// flexInt decodes an integer that Synapse sends either as a number or as a
// string.
func flexInt(v json.RawMessage) (int, error) {
	s := strings.Trim(string(bytes.TrimSpace(v)), `"`)
	return strconv.Atoi(s)
}

func isJSONNull(v json.RawMessage) bool {
	return string(bytes.TrimSpace(v)) == "null"
}

// Bool decodes a boolean that Synapse sends either as true/false or as
// 0/1 depending on the database backend.
type Bool bool

// UnmarshalJSON implements json.Unmarshaler.
func (b *Bool) UnmarshalJSON(data []byte) error {
	switch strings.TrimSpace(string(data)) {
	case "true", "1":
		*b = true
	case "false", "0", "null":
		*b = false
	default:
		return Errorf(ESERVER, "cannot decode %s as a boolean", data)
	}
	return nil
}

func (b Bool) String() string {
	if b {
		return "yes"
	}
	return "no"
}
