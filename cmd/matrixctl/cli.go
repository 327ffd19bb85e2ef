package main

import (
	"context"
	"io"

	"github.com/fwojciec/matrixctl"
	"github.com/rs/zerolog"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx    context.Context
	Stdout io.Writer
	Stderr io.Writer
	Logger zerolog.Logger

	Config *matrixctl.Config
	JSON   bool

	Users    matrixctl.UserService
	Rooms    matrixctl.RoomService
	Events   matrixctl.EventService
	Media    matrixctl.MediaService
	Reports  matrixctl.ReportService
	Server   matrixctl.ServerService
	Playbook matrixctl.Playbook
	Updater  matrixctl.Updater
	Prompter matrixctl.Prompter

	Converter matrixctl.Converter
	Images    ImageViewer

	// OpenRunner connects to the homeserver host over SSH.
	OpenRunner func(ctx context.Context) (matrixctl.CommandRunner, error)

	// OpenEventStore connects to the Synapse database. The returned
	// function releases the connection and any tunnel.
	OpenEventStore func(ctx context.Context) (matrixctl.EventStore, func() error, error)
}

// ImageViewer previews images inline in the terminal.
type ImageViewer interface {
	Enabled() bool
	Show(name string, data []byte) error
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Debug  bool     `short:"d" help:"Enable debug logging"`
	Server string   `short:"s" default:"default" help:"Server profile to use"`
	Config []string `short:"c" type:"path" placeholder:"FILE" help:"Configuration file (repeatable, later files win)"`
	JSON   bool     `help:"Print JSON instead of tables"`

	Adduser  AdduserCmd  `cmd:"" group:"user" help:"Create a user"`
	Deluser  DeluserCmd  `cmd:"" group:"user" help:"Deactivate a user"`
	Users    UsersCmd    `cmd:"" group:"user" help:"List users"`
	User     UserCmd     `cmd:"" group:"user" help:"Show a user"`
	SetAdmin SetAdminCmd `cmd:"" name:"set-admin" group:"user" help:"Grant or revoke server admin rights"`
	IsAdmin  IsAdminCmd  `cmd:"" name:"is-admin" group:"user" help:"Check whether a user is a server admin"`

	Rooms           RoomsCmd           `cmd:"" group:"room" help:"List rooms"`
	Delroom         DelroomCmd         `cmd:"" group:"room" help:"Delete a room"`
	LargestRooms    LargestRoomsCmd    `cmd:"" name:"largest-rooms" group:"room" help:"List rooms by database size"`
	Joinroom        JoinroomCmd        `cmd:"" group:"room" help:"Force a local user into a room"`
	MakeRoomAdmin   MakeRoomAdminCmd   `cmd:"" name:"make-room-admin" group:"room" help:"Give a local user the highest power level in a room"`
	PurgeHistory    PurgeHistoryCmd    `cmd:"" name:"purge-history" group:"room" help:"Purge old events from a room"`
	SendEvent       SendEventCmd       `cmd:"" name:"send-event" group:"room" help:"Send an event into a room"`
	GetEvent        GetEventCmd        `cmd:"" name:"get-event" group:"room" help:"Read an event from the database"`
	GetEvents       GetEventsCmd       `cmd:"" name:"get-events" group:"room" help:"Read the events of a user from the database"`
	GetEventContext GetEventContextCmd `cmd:"" name:"get-event-context" group:"room" help:"Show an event with its surroundings"`

	Download         DownloadCmd         `cmd:"" group:"media" help:"Download media"`
	Upload           UploadCmd           `cmd:"" group:"media" help:"Upload media"`
	DeleteLocalMedia DeleteLocalMediaCmd `cmd:"" name:"delete-local-media" group:"media" help:"Delete old local media"`
	PurgeRemoteMedia PurgeRemoteMediaCmd `cmd:"" name:"purge-remote-media" group:"media" help:"Purge the remote media cache"`

	Start       StartCmd       `cmd:"" aliases:"restart" group:"server" help:"Start or restart the homeserver"`
	Stop        StopCmd        `cmd:"" group:"server" help:"Stop the homeserver"`
	Update      UpdateCmd      `cmd:"" group:"server" help:"Update the playbook checkout"`
	Version     VersionCmd     `cmd:"" group:"server" help:"Show the homeserver version"`
	Maintenance MaintenanceCmd `cmd:"" group:"server" help:"Run maintenance tasks"`

	Reports ReportsCmd `cmd:"" group:"mod" help:"List event reports"`
	Report  ReportCmd  `cmd:"" group:"mod" help:"Show an event report"`
	Redact  RedactCmd  `cmd:"" group:"mod" help:"Redact an event"`
}

// AdduserCmd is the "adduser" subcommand.
type AdduserCmd struct {
	Name    string `arg:"" help:"Username or user id"`
	Admin   bool   `short:"a" help:"Make the user a server admin"`
	Ansible bool   `help:"Register the user through the playbook"`
}

// DeluserCmd is the "deluser" subcommand.
type DeluserCmd struct {
	Name  string `arg:"" help:"Username or user id"`
	Erase bool   `default:"true" negatable:"" help:"Erase the profile and messages"`
}

// UsersCmd is the "users" subcommand.
type UsersCmd struct {
	Limit       int    `arg:"" optional:"" help:"Number of users to list (all when omitted)"`
	From        int    `help:"Offset of the first user"`
	Guests      bool   `help:"Include guests"`
	Deactivated bool   `help:"Include deactivated users"`
	Name        string `help:"Filter on user id or display name"`
}

// UserCmd is the "user" subcommand.
type UserCmd struct {
	Name string `arg:"" help:"Username or user id"`
}

// SetAdminCmd is the "set-admin" subcommand.
type SetAdminCmd struct {
	Name   string `arg:"" help:"Username or user id"`
	Revoke bool   `help:"Revoke admin rights instead"`
}

// IsAdminCmd is the "is-admin" subcommand.
type IsAdminCmd struct {
	Name string `arg:"" help:"Username or user id"`
}

// RoomsCmd is the "rooms" subcommand.
type RoomsCmd struct {
	Limit   int    `arg:"" optional:"" help:"Number of rooms to list (all when omitted)"`
	From    int    `help:"Offset of the first room"`
	Search  string `help:"Filter on room name, alias or id"`
	OrderBy string `name:"order-by" help:"Sort key"`
	Reverse bool   `help:"Reverse the sort order"`
}

// DelroomCmd is the "delroom" subcommand.
type DelroomCmd struct {
	Room       string `arg:"" help:"Room id or configured alias"`
	NewRoomFor string `arg:"" optional:"" name:"new-room-user" help:"Move local members to a new room owned by this user"`
	RoomName   string `help:"Name of the replacement room"`
	Message    string `help:"Message posted in the replacement room"`
	Block      bool   `help:"Block the room from being joined again"`
	NoPurge    bool   `help:"Keep the room's history in the database"`
}

// LargestRoomsCmd is the "largest-rooms" subcommand.
type LargestRoomsCmd struct {
	Limit int `default:"10" help:"Number of rooms to show"`
}

// JoinroomCmd is the "joinroom" subcommand.
type JoinroomCmd struct {
	Room string `arg:"" help:"Room id, alias or configured alias"`
	User string `arg:"" help:"Username or user id"`
}

// MakeRoomAdminCmd is the "make-room-admin" subcommand.
type MakeRoomAdminCmd struct {
	Room string `arg:"" help:"Room id, alias or configured alias"`
	User string `arg:"" help:"Username or user id"`
}

// PurgeHistoryCmd is the "purge-history" subcommand.
type PurgeHistoryCmd struct {
	Room              string `arg:"" help:"Room id or configured alias"`
	Event             string `help:"Purge up to this event"`
	Days              int    `help:"Purge events older than this many days"`
	DeleteLocalEvents bool   `name:"local" help:"Also purge events sent by local users"`
	Yes               bool   `short:"y" help:"Do not ask for confirmation"`
}

// SendEventCmd is the "send-event" subcommand.
type SendEventCmd struct {
	Room    string `arg:"" help:"Room id or configured alias"`
	Type    string `arg:"" help:"Event type (m.room.message or M_ROOM_MESSAGE)"`
	Content string `arg:"" help:"Event content as a JSON object"`
}

// GetEventCmd is the "get-event" subcommand.
type GetEventCmd struct {
	EventID string `arg:"" help:"Event id"`
}

// GetEventsCmd is the "get-events" subcommand.
type GetEventsCmd struct {
	User  string `required:"" help:"Sender of the events"`
	Room  string `help:"Only events in this room"`
	Type  string `help:"Only events of this type"`
	Limit int    `default:"100" help:"Maximum number of events"`
}

// GetEventContextCmd is the "get-event-context" subcommand.
type GetEventContextCmd struct {
	Room  string `arg:"" help:"Room id or configured alias"`
	Event string `arg:"" help:"Event id"`
	Limit int    `default:"10" help:"Number of events around the event"`
}

// DownloadCmd is the "download" subcommand.
type DownloadCmd struct {
	MXC  string `arg:"" help:"Media handle (mxc://server/media_id)"`
	Dest string `arg:"" optional:"" type:"path" help:"Destination file (defaults to the media id)"`
}

// UploadCmd is the "upload" subcommand.
type UploadCmd struct {
	Path string `arg:"" type:"existingfile" help:"File to upload"`
}

// DeleteLocalMediaCmd is the "delete-local-media" subcommand.
type DeleteLocalMediaCmd struct {
	Days         int   `default:"90" help:"Delete media not accessed for this many days"`
	SizeGreater  int64 `name:"size-gt" help:"Only media larger than this many bytes"`
	KeepProfiles bool  `default:"true" negatable:"" help:"Keep avatars and room icons"`
	Yes          bool  `short:"y" help:"Do not ask for confirmation"`
}

// PurgeRemoteMediaCmd is the "purge-remote-media" subcommand.
type PurgeRemoteMediaCmd struct {
	Days int  `default:"90" help:"Purge cached remote media older than this many days"`
	Yes  bool `short:"y" help:"Do not ask for confirmation"`
}

// StartCmd is the "start" subcommand.
type StartCmd struct {
	Unit string `help:"Restart a single systemd unit over SSH instead of running the playbook"`
}

// StopCmd is the "stop" subcommand.
type StopCmd struct {
	Unit string `help:"Stop a single systemd unit over SSH instead of running the playbook"`
}

// UpdateCmd is the "update" subcommand.
type UpdateCmd struct {
	Synapse bool `help:"Update the synapse playbook checkout instead"`
}

// VersionCmd is the "version" subcommand.
type VersionCmd struct{}

// MaintenanceCmd is the "maintenance" subcommand.
type MaintenanceCmd struct {
	Tasks []string `arg:"" optional:"" help:"Tasks to run (all configured tasks when omitted)"`
	List  bool     `help:"List the configured tasks"`
}

// ReportsCmd is the "reports" subcommand.
type ReportsCmd struct {
	Limit   int  `arg:"" optional:"" help:"Number of reports to list (all when omitted)"`
	From    int  `help:"Offset of the first report"`
	Forward bool `help:"Oldest reports first"`
}

// ReportCmd is the "report" subcommand.
type ReportCmd struct {
	ID int64 `arg:"" help:"Report id"`
}

// RedactCmd is the "redact" subcommand.
type RedactCmd struct {
	Room   string `arg:"" help:"Room id or configured alias"`
	Event  string `arg:"" help:"Event id"`
	Reason string `help:"Reason shown to the room"`
}
