package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fwojciec/matrixctl"
	"github.com/fwojciec/matrixctl/htmltomarkdown"
)

// Run executes the rooms command.
func (c *RoomsCmd) Run(deps *Dependencies) error {
	rooms, total, err := deps.Rooms.FindRooms(deps.Ctx, matrixctl.RoomFilter{
		Limit:      c.Limit,
		From:       c.From,
		SearchTerm: c.Search,
		OrderBy:    c.OrderBy,
		Reverse:    c.Reverse,
	})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", matrixctl.ErrorMessage(err))
		if rooms == nil {
			return err
		}
	}

	renderErr := output(deps, rooms, func() *matrixctl.Table {
		t := &matrixctl.Table{Headers: []string{"Name", "Alias", "Room id", "Members", "Local", "Version", "Public", "Join rules"}}
		for _, r := range rooms {
			t.AddRow(r.Name, r.CanonicalAlias, r.RoomID, r.JoinedMembers, r.JoinedLocalMembers, r.Version, r.Public, r.JoinRules)
		}
		return t
	})
	if renderErr != nil {
		return renderErr
	}
	if !deps.JSON {
		fmt.Fprintf(deps.Stdout, "Showing %d of %d rooms\n", len(rooms), total)
	}
	return err
}

// Run executes the delroom command.
func (c *DelroomCmd) Run(deps *Dependencies) error {
	id, err := roomID(deps, c.Room)
	if err != nil {
		return fail(deps, err)
	}
	opts := matrixctl.DeleteRoomOptions{
		RoomName: c.RoomName,
		Message:  c.Message,
		Block:    c.Block,
		NoPurge:  c.NoPurge,
	}
	if c.NewRoomFor != "" {
		if opts.NewRoomUserID, err = userID(deps, c.NewRoomFor); err != nil {
			return fail(deps, err)
		}
	}

	fmt.Fprintf(deps.Stdout, "Deleting room %s\n", id)
	err = deps.Rooms.DeleteRoom(deps.Ctx, id, opts, statusBanner(deps, map[string]string{
		matrixctl.StatusShutdown: "Removing members...",
		matrixctl.StatusPurging:  "Purging room history...",
	}))
	if err != nil {
		return fail(deps, err)
	}
	fmt.Fprintf(deps.Stdout, "Deleted room %s\n", id)
	return nil
}

// statusBanner prints the banner of every status the first time it is
// seen.
func statusBanner(deps *Dependencies, banners map[string]string) matrixctl.StatusFunc {
	seen := make(map[string]bool)
	return func(st matrixctl.JobStatus) {
		if seen[st.Status] {
			return
		}
		seen[st.Status] = true
		if banner, ok := banners[st.Status]; ok {
			fmt.Fprintln(deps.Stdout, banner)
		}
	}
}

// Run executes the largest-rooms command.
func (c *LargestRoomsCmd) Run(deps *Dependencies) error {
	rooms, err := deps.Rooms.LargestRooms(deps.Ctx)
	if err != nil {
		return fail(deps, err)
	}
	if c.Limit > 0 && len(rooms) > c.Limit {
		rooms = rooms[:c.Limit]
	}
	return output(deps, rooms, func() *matrixctl.Table {
		t := &matrixctl.Table{Headers: []string{"Room id", "Estimated size"}}
		for _, r := range rooms {
			t.AddRow(r.RoomID, humanize.Bytes(uint64(max(r.EstimatedSize, 0))))
		}
		return t
	})
}

// Run executes the joinroom command.
func (c *JoinroomCmd) Run(deps *Dependencies) error {
	room, err := roomIDOrAlias(deps, c.Room)
	if err != nil {
		return fail(deps, err)
	}
	user, err := userID(deps, c.User)
	if err != nil {
		return fail(deps, err)
	}
	joined, err := deps.Rooms.JoinRoom(deps.Ctx, room, user)
	if err != nil {
		return fail(deps, err)
	}
	fmt.Fprintf(deps.Stdout, "%s joined %s\n", user, joined)
	return nil
}

// Run executes the make-room-admin command.
func (c *MakeRoomAdminCmd) Run(deps *Dependencies) error {
	room, err := roomIDOrAlias(deps, c.Room)
	if err != nil {
		return fail(deps, err)
	}
	user, err := userID(deps, c.User)
	if err != nil {
		return fail(deps, err)
	}
	if err := deps.Rooms.MakeRoomAdmin(deps.Ctx, room, user); err != nil {
		return fail(deps, err)
	}
	fmt.Fprintf(deps.Stdout, "%s is now admin of %s\n", user, room)
	return nil
}

// Run executes the purge-history command.
func (c *PurgeHistoryCmd) Run(deps *Dependencies) error {
	id, err := roomID(deps, c.Room)
	if err != nil {
		return fail(deps, err)
	}
	opts := matrixctl.PurgeHistoryOptions{DeleteLocalEvents: c.DeleteLocalEvents}
	switch {
	case c.Event != "":
		if opts.EventID, err = eventID(c.Event); err != nil {
			return fail(deps, err)
		}
	case c.Days > 0:
		opts.Before = time.Now().AddDate(0, 0, -c.Days)
	default:
		return fail(deps, matrixctl.Errorf(matrixctl.EINVALID, "use --event or --days to bound the purge"))
	}

	ok, err := confirm(deps, c.Yes, fmt.Sprintf("Purge the history of %s? This cannot be undone.", id))
	if err != nil || !ok {
		return err
	}

	err = deps.Rooms.PurgeHistory(deps.Ctx, id, opts, statusBanner(deps, map[string]string{
		matrixctl.StatusActive: "Purging history...",
	}))
	if err != nil {
		return fail(deps, err)
	}
	fmt.Fprintf(deps.Stdout, "Purged the history of %s\n", id)
	return nil
}

// Run executes the send-event command.
func (c *SendEventCmd) Run(deps *Dependencies) error {
	id, err := roomID(deps, c.Room)
	if err != nil {
		return fail(deps, err)
	}
	eventType, state := matrixctl.SanitizeMessageType(c.Type)
	if state != matrixctl.Valid {
		return fail(deps, matrixctl.Errorf(matrixctl.EINVALID, "unknown event type %q", c.Type))
	}
	var content map[string]any
	if err := json.Unmarshal([]byte(c.Content), &content); err != nil || content == nil {
		return fail(deps, matrixctl.Errorf(matrixctl.EINVALID, "event content must be a JSON object"))
	}

	sent, err := deps.Events.SendEvent(deps.Ctx, id, eventType, json.RawMessage(c.Content))
	if err != nil {
		return fail(deps, err)
	}
	fmt.Fprintln(deps.Stdout, sent)
	return nil
}

// Run executes the get-event command.
func (c *GetEventCmd) Run(deps *Dependencies) error {
	id, err := eventID(c.EventID)
	if err != nil {
		return fail(deps, err)
	}
	store, closeStore, err := deps.OpenEventStore(deps.Ctx)
	if err != nil {
		return fail(deps, err)
	}
	defer closeStore()

	raw, err := store.FindEventByID(deps.Ctx, id)
	if err != nil {
		return fail(deps, err)
	}
	return printRaw(deps.Stdout, raw)
}

// Run executes the get-events command.
func (c *GetEventsCmd) Run(deps *Dependencies) error {
	user, err := userID(deps, c.User)
	if err != nil {
		return fail(deps, err)
	}
	filter := matrixctl.EventFilter{Sender: user, Limit: c.Limit}
	if c.Room != "" {
		if filter.RoomID, err = roomID(deps, c.Room); err != nil {
			return fail(deps, err)
		}
	}
	if c.Type != "" {
		var state matrixctl.SanitizeState
		if filter.Type, state = matrixctl.SanitizeMessageType(c.Type); state != matrixctl.Valid {
			return fail(deps, matrixctl.Errorf(matrixctl.EINVALID, "unknown event type %q", c.Type))
		}
	}

	store, closeStore, err := deps.OpenEventStore(deps.Ctx)
	if err != nil {
		return fail(deps, err)
	}
	defer closeStore()

	raws, err := store.FindEvents(deps.Ctx, filter)
	if err != nil {
		return fail(deps, err)
	}
	if deps.JSON {
		return printJSON(deps.Stdout, raws)
	}

	events := make([]*matrixctl.Event, 0, len(raws))
	for _, raw := range raws {
		var ev matrixctl.Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			return fail(deps, matrixctl.Errorf(matrixctl.ESERVER, "cannot decode stored event: %v", err))
		}
		events = append(events, &ev)
	}
	t := eventTable(deps, events, "")
	return t.Render(deps.Stdout)
}

// Run executes the get-event-context command.
func (c *GetEventContextCmd) Run(deps *Dependencies) error {
	room, err := roomID(deps, c.Room)
	if err != nil {
		return fail(deps, err)
	}
	event, err := eventID(c.Event)
	if err != nil {
		return fail(deps, err)
	}
	ec, err := deps.Events.EventContext(deps.Ctx, room, event, c.Limit)
	if err != nil {
		return fail(deps, err)
	}
	if deps.JSON {
		return printJSON(deps.Stdout, ec)
	}

	// Synapse returns events_before newest first.
	events := make([]*matrixctl.Event, 0, len(ec.EventsBefore)+len(ec.EventsAfter)+1)
	for i := len(ec.EventsBefore) - 1; i >= 0; i-- {
		events = append(events, ec.EventsBefore[i])
	}
	if ec.Event != nil {
		events = append(events, ec.Event)
	}
	events = append(events, ec.EventsAfter...)
	return eventTable(deps, events, event).Render(deps.Stdout)
}

// eventTable lists events, marking the one with id mark.
func eventTable(deps *Dependencies, events []*matrixctl.Event, mark string) *matrixctl.Table {
	t := &matrixctl.Table{
		Headers:        []string{"", "Time", "Sender", "Type", "Event id", "Content"},
		MaxColumnWidth: 60,
	}
	for _, ev := range events {
		marker := ""
		if mark != "" && ev.EventID == mark {
			marker = ">"
		}
		t.AddRow(marker, matrixctl.FormatTimestamp(ev.OriginServerTS), ev.Sender, ev.Type, ev.EventID, eventBody(deps, ev))
	}
	return t
}

// eventBody renders message events as Markdown and any other content as
// compact JSON.
func eventBody(deps *Dependencies, ev *matrixctl.Event) string {
	if ev.Type == string(matrixctl.MessageTypeRoomMessage) {
		var content matrixctl.MessageContent
		if err := json.Unmarshal(ev.Content, &content); err == nil {
			return htmltomarkdown.Body(deps.Converter, content)
		}
	}
	if len(ev.Content) == 0 {
		return ""
	}
	return string(ev.Content)
}
