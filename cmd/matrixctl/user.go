package main

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/fwojciec/matrixctl"
)

// generatedPasswordBytes is the entropy of generated passwords.
const generatedPasswordBytes = 18

// Run executes the adduser command.
func (c *AdduserCmd) Run(deps *Dependencies) error {
	id, err := userID(deps, c.Name)
	if err != nil {
		return fail(deps, err)
	}

	password, err := deps.Prompter.Password("Password (empty to generate one): ")
	if err != nil {
		return fail(deps, err)
	}
	if password == "" {
		if password, err = generatePassword(); err != nil {
			return fail(deps, err)
		}
		fmt.Fprintf(deps.Stdout, "Generated password: %s\n", password)
	}

	if c.Ansible {
		localpart := strings.TrimPrefix(strings.SplitN(id, ":", 2)[0], "@")
		admin := "no"
		if c.Admin {
			admin = "yes"
		}
		err = deps.Playbook.Run(deps.Ctx, matrixctl.PlaybookRun{
			Tags:      []string{"register-user"},
			ExtraVars: map[string]string{"username": localpart, "password": password, "admin": admin},
		})
	} else {
		err = deps.Users.CreateUser(deps.Ctx, id, password, c.Admin)
	}
	if err != nil {
		return fail(deps, err)
	}

	fmt.Fprintf(deps.Stdout, "Created user %s\n", id)
	return nil
}

func generatePassword() (string, error) {
	b := make([]byte, generatedPasswordBytes)
	if _, err := rand.Read(b); err != nil {
		return "", matrixctl.Errorf(matrixctl.EINTERNAL, "cannot generate password: %v", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Run executes the deluser command.
func (c *DeluserCmd) Run(deps *Dependencies) error {
	id, err := userID(deps, c.Name)
	if err != nil {
		return fail(deps, err)
	}
	if err := deps.Users.DeactivateUser(deps.Ctx, id, c.Erase); err != nil {
		return fail(deps, err)
	}
	fmt.Fprintf(deps.Stdout, "Deactivated user %s\n", id)
	return nil
}

// Run executes the users command.
func (c *UsersCmd) Run(deps *Dependencies) error {
	users, total, err := deps.Users.FindUsers(deps.Ctx, matrixctl.UserFilter{
		Limit:       c.Limit,
		From:        c.From,
		Guests:      c.Guests,
		Deactivated: c.Deactivated,
		Name:        c.Name,
	})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", matrixctl.ErrorMessage(err))
		if users == nil {
			return err
		}
	}

	renderErr := output(deps, users, func() *matrixctl.Table {
		t := &matrixctl.Table{Headers: []string{"Name", "Display name", "Guest", "Admin", "Deactivated", "Created"}}
		for _, u := range users {
			t.AddRow(u.Name, u.DisplayName, u.IsGuest, u.Admin, u.Deactivated, matrixctl.FormatTimestamp(u.CreationTS))
		}
		return t
	})
	if renderErr != nil {
		return renderErr
	}
	if !deps.JSON {
		fmt.Fprintf(deps.Stdout, "Showing %d of %d users\n", len(users), total)
	}
	return err
}

// Run executes the user command.
func (c *UserCmd) Run(deps *Dependencies) error {
	id, err := userID(deps, c.Name)
	if err != nil {
		return fail(deps, err)
	}
	user, err := deps.Users.FindUserByID(deps.Ctx, id)
	if err != nil {
		return fail(deps, err)
	}
	if deps.JSON {
		return printJSON(deps.Stdout, user)
	}

	var lastSeen any
	if user.LastSeenTS != nil {
		lastSeen = matrixctl.FormatTimestamp(*user.LastSeenTS)
	}
	summary := keyValueTable(
		[]any{"Name", user.Name},
		[]any{"Display name", user.DisplayName},
		[]any{"Avatar", user.AvatarURL},
		[]any{"Admin", user.Admin},
		[]any{"Guest", user.IsGuest},
		[]any{"Deactivated", user.Deactivated},
		[]any{"Erased", user.Erased},
		[]any{"Shadow banned", user.ShadowBanned},
		[]any{"Locked", user.Locked},
		[]any{"User type", user.UserType},
		[]any{"Appservice", user.AppserviceID},
		[]any{"Consent version", user.ConsentVersion},
		[]any{"Created", matrixctl.FormatTimestamp(user.CreationTS)},
		[]any{"Last seen", lastSeen},
	)
	if err := summary.Render(deps.Stdout); err != nil {
		return err
	}

	if len(user.Threepids) > 0 {
		t := &matrixctl.Table{Headers: []string{"Medium", "Address", "Added", "Validated"}}
		for _, tp := range user.Threepids {
			t.AddRow(tp.Medium, tp.Address, matrixctl.FormatTimestamp(tp.AddedAt), matrixctl.FormatTimestamp(tp.ValidatedAt))
		}
		fmt.Fprintln(deps.Stdout)
		if err := t.Render(deps.Stdout); err != nil {
			return err
		}
	}
	if len(user.ExternalIDs) > 0 {
		t := &matrixctl.Table{Headers: []string{"Auth provider", "External id"}}
		for _, ext := range user.ExternalIDs {
			t.AddRow(ext.AuthProvider, ext.ExternalID)
		}
		fmt.Fprintln(deps.Stdout)
		if err := t.Render(deps.Stdout); err != nil {
			return err
		}
	}
	return nil
}

// Run executes the set-admin command.
func (c *SetAdminCmd) Run(deps *Dependencies) error {
	id, err := userID(deps, c.Name)
	if err != nil {
		return fail(deps, err)
	}
	if err := deps.Users.SetAdmin(deps.Ctx, id, !c.Revoke); err != nil {
		return fail(deps, err)
	}
	if c.Revoke {
		fmt.Fprintf(deps.Stdout, "%s is no longer a server admin\n", id)
	} else {
		fmt.Fprintf(deps.Stdout, "%s is now a server admin\n", id)
	}
	return nil
}

// Run executes the is-admin command.
func (c *IsAdminCmd) Run(deps *Dependencies) error {
	id, err := userID(deps, c.Name)
	if err != nil {
		return fail(deps, err)
	}
	admin, err := deps.Users.IsAdmin(deps.Ctx, id)
	if err != nil {
		return fail(deps, err)
	}
	if deps.JSON {
		return printJSON(deps.Stdout, map[string]any{"user_id": id, "admin": admin})
	}
	if admin {
		fmt.Fprintf(deps.Stdout, "%s is a server admin\n", id)
	} else {
		fmt.Fprintf(deps.Stdout, "%s is not a server admin\n", id)
	}
	return nil
}
