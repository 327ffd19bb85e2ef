package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fwojciec/matrixctl"
)

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return matrixctl.Errorf(matrixctl.EINTERNAL, "cannot encode output: %v", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// printRaw pretty-prints a JSON document, falling back to the raw text.
func printRaw(w io.Writer, raw json.RawMessage) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		_, err := fmt.Fprintln(w, string(raw))
		return err
	}
	return printJSON(w, v)
}

// output renders v as JSON when --json is set and as table otherwise.
func output(deps *Dependencies, v any, table func() *matrixctl.Table) error {
	if deps.JSON {
		return printJSON(deps.Stdout, v)
	}
	return table().Render(deps.Stdout)
}

// userID turns a bare username into a user id on the profile domain and
// validates the result.
func userID(deps *Dependencies, name string) (string, error) {
	id := matrixctl.SanitizeUserID(matrixctl.UserIDFromName(name, deps.Config.Server.API.Domain))
	if err := id.Err(); err != nil {
		return "", err
	}
	return id.Value, nil
}

// roomID resolves a configured alias and validates the room id.
func roomID(deps *Dependencies, room string) (string, error) {
	id := matrixctl.SanitizeRoomID(deps.Config.Server.ResolveRoomAlias(room))
	switch id.State {
	case matrixctl.Valid:
		return id.Value, nil
	case matrixctl.Absent:
		return "", matrixctl.Errorf(matrixctl.EINVALID, "a room id is required")
	}
	return "", id.Err()
}

// roomIDOrAlias is roomID that also accepts Matrix room aliases.
func roomIDOrAlias(deps *Dependencies, room string) (string, error) {
	resolved := deps.Config.Server.ResolveRoomAlias(room)
	if strings.HasPrefix(resolved, "#") && strings.Contains(resolved, ":") {
		return resolved, nil
	}
	return roomID(deps, resolved)
}

// eventID validates an event id.
func eventID(event string) (string, error) {
	id := matrixctl.SanitizeEventID(event)
	if id.State == matrixctl.Absent {
		return "", matrixctl.Errorf(matrixctl.EINVALID, "an event id is required")
	}
	if err := id.Err(); err != nil {
		return "", err
	}
	return id.Value, nil
}

// keyValueTable renders one record as two columns.
func keyValueTable(rows ...[]any) *matrixctl.Table {
	t := &matrixctl.Table{NoSep: true}
	for _, row := range rows {
		t.AddRow(row...)
	}
	return t
}
