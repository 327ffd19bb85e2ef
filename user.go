package matrixctl

import (
	"context"
	"time"
)

// User is an entry of the admin user list.
type User struct {
	Name         string  `json:"name"`
	DisplayName  *string `json:"displayname"`
	UserType     *string `json:"user_type"`
	IsGuest      Bool    `json:"is_guest"`
	Admin        Bool    `json:"admin"`
	Deactivated  Bool    `json:"deactivated"`
	ShadowBanned Bool    `json:"shadow_banned"`
	Locked       Bool    `json:"locked"`
	AvatarURL    *string `json:"avatar_url"`
	CreationTS   int64   `json:"creation_ts"`
	LastSeenTS   *int64  `json:"last_seen_ts"`
}

// Threepid is a third-party identifier bound to a user.
type Threepid struct {
	Medium      string `json:"medium"`
	Address     string `json:"address"`
	AddedAt     int64  `json:"added_at"`
	ValidatedAt int64  `json:"validated_at"`
}

// ExternalID links a user to an SSO provider account.
type ExternalID struct {
	AuthProvider string `json:"auth_provider"`
	ExternalID   string `json:"external_id"`
}

// UserDetail is the full admin view of one user.
type UserDetail struct {
	User
	Erased         Bool         `json:"erased"`
	AppserviceID   *string      `json:"appservice_id"`
	ConsentVersion *string      `json:"consent_version"`
	ConsentTS      *int64       `json:"consent_ts"`
	Threepids      []Threepid   `json:"threepids"`
	ExternalIDs    []ExternalID `json:"external_ids"`
}

// UserFilter selects users for FindUsers.
type UserFilter struct {
	// Limit is the number of users to return. Zero returns all users.
	Limit int
	// From is the starting offset.
	From int

	Guests      bool
	Deactivated bool
	Name        string
}

// UserService administers homeserver accounts.
type UserService interface {
	// FindUsers lists users, fetching pages concurrently. It also returns
	// the server-side total.
	FindUsers(ctx context.Context, filter UserFilter) ([]*User, int, error)

	// FindUserByID returns one user. Returns ENOTFOUND if the user does
	// not exist.
	FindUserByID(ctx context.Context, userID string) (*UserDetail, error)

	// CreateUser creates or updates an account with the given password.
	CreateUser(ctx context.Context, userID, password string, admin bool) error

	// DeactivateUser deactivates an account, erasing profile data when
	// erase is true.
	DeactivateUser(ctx context.Context, userID string, erase bool) error

	// SetAdmin grants or revokes server admin rights.
	SetAdmin(ctx context.Context, userID string, admin bool) error

	// IsAdmin reports whether the user is a server admin.
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// FormatTimestamp renders a Matrix millisecond timestamp in UTC. Zero
// renders as the empty string.
func FormatTimestamp(ms int64) string {
	if ms == 0 {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format("2006-01-02 15:04:05")
}
